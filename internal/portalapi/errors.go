package portalapi

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"

	appErrors "github.com/noah-isme/kelurahan-portal/pkg/errors"
)

// Kind classifies an upstream failure.
type Kind int

const (
	KindValidation Kind = iota + 1
	KindUnauthorized
	KindForbidden
	KindNotFound
	KindConflict
	KindRateLimited
	KindServer
	KindTransport
	KindBadResponse
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindUnauthorized:
		return "unauthorized"
	case KindForbidden:
		return "forbidden"
	case KindNotFound:
		return "not_found"
	case KindConflict:
		return "conflict"
	case KindRateLimited:
		return "rate_limited"
	case KindServer:
		return "server"
	case KindTransport:
		return "transport"
	case KindBadResponse:
		return "bad_response"
	default:
		return "unknown"
	}
}

const (
	// MsgTransport is shown whenever the upstream could not be reached at all.
	MsgTransport = "Tidak dapat terhubung ke server"
	// DefaultRetryAfter applies when a rate limit names no wait time.
	DefaultRetryAfter = 60 * time.Second

	rateLimitPhrase = "Terlalu banyak"
)

var minutesPattern = regexp.MustCompile(`(\d+)\s*menit`)

// ErrTransport is matched by errors.Is for failures where no response arrived.
var ErrTransport = errors.New("upstream unreachable")

// APIError is a normalised upstream failure. Fields keep the order the upstream sent them in.
type APIError struct {
	Kind       Kind
	Status     int
	Message    string
	Fields     []appErrors.FieldError
	RetryAfter time.Duration
	Err        error
}

func (e *APIError) Error() string {
	if e.Status > 0 {
		return "upstream " + strconv.Itoa(e.Status) + ": " + e.Headline()
	}
	return "upstream: " + e.Headline()
}

func (e *APIError) Unwrap() error {
	return e.Err
}

// Headline is the single message shown to a user: the first field error when present, else the
// upstream message.
func (e *APIError) Headline() string {
	if len(e.Fields) > 0 && e.Fields[0].Message != "" {
		return e.Fields[0].Message
	}
	return e.Message
}

// RetryAfterSeconds rounds RetryAfter up to whole seconds.
func (e *APIError) RetryAfterSeconds() int {
	if e.RetryAfter <= 0 {
		return 0
	}
	return int((e.RetryAfter + time.Second - 1) / time.Second)
}

// AppError maps the failure onto the gateway's typed errors, keeping e as the cause.
func (e *APIError) AppError() *appErrors.Error {
	var out *appErrors.Error
	switch e.Kind {
	case KindValidation:
		out = appErrors.WithFields(appErrors.ErrValidation, e.Headline(), e.Fields)
		out.Status = http.StatusUnprocessableEntity
	case KindUnauthorized:
		out = appErrors.Clone(appErrors.ErrUnauthorized, e.Message)
	case KindForbidden:
		out = appErrors.Clone(appErrors.ErrForbidden, e.Message)
	case KindNotFound:
		out = appErrors.Clone(appErrors.ErrNotFound, e.Message)
	case KindConflict:
		out = appErrors.Clone(appErrors.ErrConflict, e.Message)
	case KindRateLimited:
		out = appErrors.Clone(appErrors.ErrRateLimited, e.Message)
	default:
		out = appErrors.Clone(appErrors.ErrUpstream, e.Message)
	}
	out.Err = e
	return out
}

// AsAppError converts an upstream error for handlers; other errors pass through untouched.
func AsAppError(err error) error {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.AppError()
	}
	return err
}

// IsKind reports whether err is an *APIError of kind k.
func IsKind(err error, k Kind) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Kind == k
}

// IsRateLimited also recognises upstreams that signal throttling only through the message.
func IsRateLimited(err error) bool {
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		return false
	}
	return apiErr.Kind == KindRateLimited || strings.Contains(apiErr.Headline(), rateLimitPhrase)
}

func transportError(err error) *APIError {
	return &APIError{Kind: KindTransport, Message: MsgTransport, Err: errors.Join(ErrTransport, err)}
}

func kindForStatus(status int) Kind {
	switch {
	case status == http.StatusBadRequest || status == http.StatusUnprocessableEntity:
		return KindValidation
	case status == http.StatusUnauthorized:
		return KindUnauthorized
	case status == http.StatusForbidden:
		return KindForbidden
	case status == http.StatusNotFound:
		return KindNotFound
	case status == http.StatusConflict:
		return KindConflict
	case status == http.StatusTooManyRequests:
		return KindRateLimited
	default:
		return KindServer
	}
}

// errorFromResponse builds the APIError for a non-2xx JSON reply.
func errorFromResponse(resp *http.Response, env *envelope) *APIError {
	apiErr := &APIError{
		Kind:    kindForStatus(resp.StatusCode),
		Status:  resp.StatusCode,
		Message: env.Message,
	}
	if apiErr.Message == "" {
		apiErr.Message = "Terjadi kesalahan"
	}
	if fields, err := decodeFieldErrors(env.Errors); err == nil {
		apiErr.Fields = fields
	}
	if apiErr.Kind != KindRateLimited && strings.Contains(apiErr.Headline(), rateLimitPhrase) {
		apiErr.Kind = KindRateLimited
	}
	if apiErr.Kind == KindRateLimited {
		apiErr.RetryAfter = retryAfter(resp.Header.Get("Retry-After"), apiErr.Headline(), time.Now())
	}
	return apiErr
}

// retryAfter prefers the header (seconds or HTTP date), then an "N menit" phrase, then the default.
func retryAfter(header, message string, now time.Time) time.Duration {
	if header != "" {
		if secs, err := strconv.Atoi(strings.TrimSpace(header)); err == nil && secs > 0 {
			return time.Duration(secs) * time.Second
		}
		if at, err := http.ParseTime(header); err == nil && at.After(now) {
			return at.Sub(now)
		}
	}
	if m := minutesPattern.FindStringSubmatch(message); m != nil {
		if mins, err := strconv.Atoi(m[1]); err == nil && mins > 0 {
			return time.Duration(mins) * time.Minute
		}
	}
	return DefaultRetryAfter
}

// decodeFieldErrors walks the errors object token by token so field order survives.
func decodeFieldErrors(raw json.RawMessage) ([]appErrors.FieldError, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || raw[0] != '{' {
		return nil, nil
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	if _, err := dec.Token(); err != nil {
		return nil, err
	}
	var fields []appErrors.FieldError
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return fields, err
		}
		key, _ := tok.(string)
		var value json.RawMessage
		if err := dec.Decode(&value); err != nil {
			return fields, err
		}
		if msg := firstMessage(value); msg != "" {
			fields = append(fields, appErrors.FieldError{Field: key, Message: msg})
		}
	}
	return fields, nil
}

func firstMessage(value json.RawMessage) string {
	var list []string
	if err := json.Unmarshal(value, &list); err == nil {
		for _, msg := range list {
			if msg != "" {
				return msg
			}
		}
		return ""
	}
	var single string
	if err := json.Unmarshal(value, &single); err == nil {
		return single
	}
	return ""
}
