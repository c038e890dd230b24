package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

var ErrMissingID = errors.New("missing id")

// Error is a non-2xx answer from the remote API.
type Error struct {
	Method string
	Path   string
	Status int
	Body   string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s %s: %d %s", e.Method, e.Path, e.Status, http.StatusText(e.Status))
}

// Message returns the server's plain-text message, or "" when the body is
// empty or structured.
func (e *Error) Message() string {
	b := strings.TrimSpace(e.Body)
	if b == "" || strings.HasPrefix(b, "{") || strings.HasPrefix(b, "[") {
		return ""
	}
	return b
}

// StatusOf returns the HTTP status carried by err, or 0.
func StatusOf(err error) int {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Status
	}
	return 0
}

// Client talks to the car-rental REST API.
type Client struct {
	base  string // e.g. http://host:8080/api
	root  string // base with the /api suffix stripped
	http  *http.Client
	token func() string
}

type Option func(*Client)

// WithTokenSource makes every request carry "Authorization: Bearer <token>"
// when the source returns a non-empty token.
func WithTokenSource(f func() string) Option {
	return func(c *Client) { c.token = f }
}

func New(baseURL string, timeout time.Duration, opts ...Option) *Client {
	base := strings.TrimRight(strings.TrimSpace(baseURL), "/")
	c := &Client{
		base: base,
		root: strings.TrimSuffix(base, "/api"),
		http: &http.Client{
			Timeout:   timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) BaseURL() string { return c.base }

// WithToken returns a shallow copy of c that authenticates with f.
func (c *Client) WithToken(f func() string) *Client {
	cp := *c
	cp.token = f
	return &cp
}

type request struct {
	method      string
	base        string
	path        string
	body        io.Reader
	contentType string
	header      http.Header
}

func (c *Client) do(ctx context.Context, r request) ([]byte, error) {
	if r.base == "" {
		r.base = c.base
	}
	req, err := http.NewRequestWithContext(ctx, r.method, r.base+r.path, r.body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	if r.contentType != "" {
		req.Header.Set("Content-Type", r.contentType)
	}
	for k, vs := range r.header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	if c.token != nil {
		if tok := c.token(); tok != "" {
			req.Header.Set("Authorization", "Bearer "+tok)
		}
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode >= 300 {
		return nil, &Error{Method: r.method, Path: r.path, Status: resp.StatusCode, Body: string(data)}
	}
	return data, nil
}

func (c *Client) getJSON(ctx context.Context, path string) ([]byte, error) {
	return c.do(ctx, request{method: http.MethodGet, path: path})
}

func (c *Client) postJSON(ctx context.Context, base, path string, v any) ([]byte, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return c.do(ctx, request{method: http.MethodPost, base: base, path: path, body: bytes.NewReader(b), contentType: "application/json"})
}

// firstSuccess runs attempts in order and returns the first success, or the
// last error when all fail.
func firstSuccess(attempts ...func() ([]byte, error)) ([]byte, error) {
	var lastErr error
	for _, try := range attempts {
		data, err := try()
		if err == nil {
			return data, nil
		}
		lastErr = err
	}
	return nil, lastErr
}
