package response

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/kelurahan-portal/internal/models"
	appErrors "github.com/noah-isme/kelurahan-portal/pkg/errors"
)

// Envelope represents the common response contract.
type Envelope struct {
	Data       interface{}            `json:"data,omitempty"`
	Error      *appErrors.Error       `json:"error,omitempty"`
	Pagination *models.Pagination     `json:"pagination,omitempty"`
	Meta       map[string]interface{} `json:"meta,omitempty"`
}

// Meta is a convenience alias for the meta block.
type Meta = map[string]interface{}

// JSON sends a success response with optional pagination metadata.
func JSON(c *gin.Context, status int, data interface{}, pagination *models.Pagination, meta ...Meta) {
	noStore(c)
	envelope := Envelope{Data: data, Pagination: pagination}
	if len(meta) > 0 && meta[0] != nil {
		envelope.Meta = meta[0]
	}
	c.JSON(status, envelope)
}

// Created responds with HTTP 201 Created.
func Created(c *gin.Context, data interface{}, meta ...Meta) {
	JSON(c, http.StatusCreated, data, nil, meta...)
}

// WithNotice wraps a notice into a meta block, merging extra keys.
func WithNotice(notice *models.Notice, extra ...Meta) Meta {
	meta := Meta{}
	for _, m := range extra {
		for k, v := range m {
			meta[k] = v
		}
	}
	if notice != nil {
		meta["notice"] = notice
	}
	return meta
}

// Error sends an error response converting the error to the common structure. Rate limited and
// auth failures get the extended notice, and 429 responses carry Retry-After when known.
func Error(c *gin.Context, err error, meta ...Meta) {
	appErr := appErrors.FromError(err)
	noStore(c)

	notice := models.NewNotice(models.NoticeError, appErr.Message)
	switch appErr.Status {
	case http.StatusTooManyRequests, http.StatusUnauthorized, http.StatusForbidden:
		notice.Extended()
	}
	if appErr.Status == http.StatusTooManyRequests {
		if secs := retryAfterSeconds(err); secs > 0 {
			c.Header("Retry-After", strconv.Itoa(secs))
		}
	}

	c.JSON(appErr.Status, Envelope{Error: appErr, Meta: WithNotice(notice, meta...)})
}

// File streams a binary download with the given content type and attachment filename.
func File(c *gin.Context, contentType, filename string, body []byte) {
	noStore(c)
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(http.StatusOK, contentType, body)
}

// NoContent sends a 204 response.
func NoContent(c *gin.Context) {
	c.Status(http.StatusNoContent)
}

func noStore(c *gin.Context) {
	c.Header("Cache-Control", "no-store")
	c.Header("Pragma", "no-cache")
}

// retryAfter is implemented by errors that know how long the caller must wait.
type retryAfter interface {
	RetryAfterSeconds() int
}

func retryAfterSeconds(err error) int {
	for err != nil {
		if ra, ok := err.(retryAfter); ok {
			return ra.RetryAfterSeconds()
		}
		unwrapper, ok := err.(interface{ Unwrap() error })
		if !ok {
			return 0
		}
		err = unwrapper.Unwrap()
	}
	return 0
}
