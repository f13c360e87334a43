// Package portalapi is the typed client for the office's upstream REST API. It normalises the
// upstream's success and error envelopes and forwards the caller's bearer token and request id.
package portalapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/kelurahan-portal/pkg/middleware/requestid"
)

// maxBodyBytes caps how much of a JSON reply is read; binary downloads use maxDownloadBytes.
const (
	maxBodyBytes     = 4 << 20
	maxDownloadBytes = 64 << 20
)

// Observer receives one sample per upstream round trip. route is the endpoint template, status is
// 0 for transport failures.
type Observer interface {
	ObserveUpstream(route string, status int, duration time.Duration)
}

// Config configures a Client.
type Config struct {
	BaseURL      string
	Timeout      time.Duration
	MaxIdleConns int
	HTTPClient   *http.Client
	Logger       *zap.Logger
	Observer     Observer
}

// Client talks to the upstream API.
type Client struct {
	baseURL  string
	httpDo   func(*http.Request) (*http.Response, error)
	logger   *zap.Logger
	observer Observer
}

// New builds a client for cfg.BaseURL.
func New(cfg Config) (*Client, error) {
	base := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if base == "" {
		return nil, errors.New("upstream base url is required")
	}
	if _, err := url.ParseRequestURI(base); err != nil {
		return nil, fmt.Errorf("parse upstream base url: %w", err)
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 15 * time.Second
		}
		transport := http.DefaultTransport.(*http.Transport).Clone()
		if cfg.MaxIdleConns > 0 {
			transport.MaxIdleConnsPerHost = cfg.MaxIdleConns
		}
		httpClient = &http.Client{Timeout: timeout, Transport: transport}
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	return &Client{
		baseURL:  base,
		httpDo:   httpClient.Do,
		logger:   cfg.Logger,
		observer: cfg.Observer,
	}, nil
}

type tokenKey struct{}

// WithToken returns a context whose upstream calls carry token as bearer credential.
func WithToken(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, tokenKey{}, token)
}

// TokenFrom returns the bearer token placed by WithToken.
func TokenFrom(ctx context.Context) string {
	token, _ := ctx.Value(tokenKey{}).(string)
	return token
}

// envelope is the upstream reply shape: success {success?, message?, data}, failure
// {message, errors?}.
type envelope struct {
	Success *bool           `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
	Errors  json.RawMessage `json:"errors"`
}

// File is a binary download.
type File struct {
	ContentType string
	Filename    string
	Body        []byte
}

type request struct {
	method      string
	route       string
	path        string
	query       url.Values
	body        io.Reader
	contentType string
	accept      string
}

func (c *Client) newRequest(ctx context.Context, r request) (*http.Request, error) {
	target := c.baseURL + r.path
	if len(r.query) > 0 {
		target += "?" + r.query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, r.method, target, r.body)
	if err != nil {
		return nil, fmt.Errorf("build %s: %w", r.route, err)
	}
	accept := r.accept
	if accept == "" {
		accept = "application/json"
	}
	req.Header.Set("Accept", accept)
	if r.contentType != "" {
		req.Header.Set("Content-Type", r.contentType)
	}
	if token := TokenFrom(ctx); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if id := requestid.FromContext(ctx); id != "" {
		req.Header.Set(requestid.Header, id)
	}
	return req, nil
}

func (c *Client) send(ctx context.Context, r request) (*http.Response, error) {
	req, err := c.newRequest(ctx, r)
	if err != nil {
		return nil, err
	}
	start := time.Now()
	resp, err := c.httpDo(req)
	status := 0
	if resp != nil {
		status = resp.StatusCode
	}
	if c.observer != nil {
		c.observer.ObserveUpstream(r.route, status, time.Since(start))
	}
	if err != nil {
		c.logger.Warn("upstream request failed",
			zap.String("route", r.route),
			zap.String("request_id", requestid.FromContext(ctx)),
			zap.Error(err),
		)
		return nil, transportError(err)
	}
	return resp, nil
}

// call performs a JSON round trip and decodes data into out when out is non-nil.
func (c *Client) call(ctx context.Context, method, route, path string, query url.Values, in, out interface{}) error {
	env, err := c.callEnvelope(ctx, method, route, path, query, in)
	if err != nil {
		return err
	}
	return decodeData(route, env, out)
}

func (c *Client) callEnvelope(ctx context.Context, method, route, path string, query url.Values, in interface{}) (*envelope, error) {
	r := request{method: method, route: route, path: path, query: query}
	if in != nil {
		payload, err := json.Marshal(in)
		if err != nil {
			return nil, fmt.Errorf("encode %s: %w", route, err)
		}
		r.body = bytes.NewReader(payload)
		r.contentType = "application/json"
	}
	resp, err := c.send(ctx, r)
	if err != nil {
		return nil, err
	}
	return c.readEnvelope(route, resp)
}

func (c *Client) readEnvelope(route string, resp *http.Response) (*envelope, error) {
	defer resp.Body.Close() //nolint:errcheck

	if !isJSON(resp.Header.Get("Content-Type")) {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxBodyBytes))
		return nil, &APIError{
			Kind:    KindBadResponse,
			Status:  resp.StatusCode,
			Message: "Server error: " + resp.Status,
		}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, transportError(err)
	}
	env := &envelope{}
	if len(bytes.TrimSpace(body)) > 0 {
		if err := json.Unmarshal(body, env); err != nil {
			return nil, &APIError{
				Kind:    KindBadResponse,
				Status:  resp.StatusCode,
				Message: "Server error: " + resp.Status,
				Err:     fmt.Errorf("decode %s envelope: %w", route, err),
			}
		}
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, errorFromResponse(resp, env)
	}
	if env.Success != nil && !*env.Success {
		resp.StatusCode = http.StatusBadRequest
		return nil, errorFromResponse(resp, env)
	}
	return env, nil
}

func decodeData(route string, env *envelope, out interface{}) error {
	if out == nil || env == nil {
		return nil
	}
	data := bytes.TrimSpace(env.Data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return &APIError{Kind: KindBadResponse, Message: "Respons server tidak dikenali", Err: fmt.Errorf("decode %s data: %w", route, err)}
	}
	return nil
}

// download fetches a binary resource. Error replies are still JSON envelopes.
func (c *Client) download(ctx context.Context, route, path string, query url.Values) (*File, error) {
	resp, err := c.send(ctx, request{method: http.MethodGet, route: route, path: path, query: query, accept: "*/*"})
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		_, err := c.readEnvelope(route, resp)
		return nil, err
	}
	defer resp.Body.Close() //nolint:errcheck

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxDownloadBytes))
	if err != nil {
		return nil, transportError(err)
	}
	file := &File{ContentType: resp.Header.Get("Content-Type"), Body: body}
	if file.ContentType == "" {
		file.ContentType = http.DetectContentType(body)
	}
	if _, params, err := mime.ParseMediaType(resp.Header.Get("Content-Disposition")); err == nil {
		file.Filename = params["filename"]
	}
	return file, nil
}

func isJSON(contentType string) bool {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return false
	}
	return mediaType == "application/json" || strings.HasSuffix(mediaType, "+json")
}

func idPath(prefix string, id int64) string {
	return prefix + "/" + strconv.FormatInt(id, 10)
}
