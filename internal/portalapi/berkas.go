package portalapi

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strconv"
	"strings"

	"github.com/noah-isme/kelurahan-portal/internal/models"
)

// Upload is one attachment to forward.
type Upload struct {
	PermohonanID int64
	JenisBerkas  string
	Filename     string
	MimeType     string
	Content      io.Reader
}

// UploadBerkas posts one attachment as multipart form data.
func (c *Client) UploadBerkas(ctx context.Context, up Upload) (*models.Berkas, error) {
	const route = "POST /berkas"

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	if err := writer.WriteField("permohonan_id", strconv.FormatInt(up.PermohonanID, 10)); err != nil {
		return nil, fmt.Errorf("write permohonan_id: %w", err)
	}
	if err := writer.WriteField("jenis_berkas", up.JenisBerkas); err != nil {
		return nil, fmt.Errorf("write jenis_berkas: %w", err)
	}
	header := textproto.MIMEHeader{}
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename="%s"`, escapeQuotes(up.Filename)))
	if up.MimeType != "" {
		header.Set("Content-Type", up.MimeType)
	}
	part, err := writer.CreatePart(header)
	if err != nil {
		return nil, fmt.Errorf("create file part: %w", err)
	}
	if _, err := io.Copy(part, up.Content); err != nil {
		return nil, fmt.Errorf("copy %s: %w", up.Filename, err)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("close multipart: %w", err)
	}

	resp, err := c.send(ctx, request{
		method:      http.MethodPost,
		route:       route,
		path:        "/berkas",
		body:        body,
		contentType: writer.FormDataContentType(),
	})
	if err != nil {
		return nil, err
	}
	env, err := c.readEnvelope(route, resp)
	if err != nil {
		return nil, err
	}
	var out models.Berkas
	if err := decodeData(route, env, &out); err != nil {
		return nil, err
	}
	if out.Kind == "" {
		out.Kind = models.KindForMIME(up.MimeType)
	}
	return &out, nil
}

// DownloadBerkas streams an attachment; the upstream requires a staff token.
func (c *Client) DownloadBerkas(ctx context.Context, id int64) (*File, error) {
	return c.download(ctx, "GET /berkas/download/{id}", idPath("/berkas/download", id), nil)
}

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

func escapeQuotes(s string) string {
	return quoteEscaper.Replace(s)
}
