package upstream

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	authDomain "github.com/mateusmacedo/togobus-bff/internal/auth/domain"
	pkgApp "github.com/mateusmacedo/togobus-bff/pkg/application"
)

var (
	ErrNotFound     = errors.New("upstream resource not found")
	ErrUnauthorized = errors.New("upstream rejected credentials")
	ErrBadRequest   = errors.New("upstream rejected request")
)

// APIError is a non-2xx answer from the backend. Message comes from the body's
// detail or error field when present.
type APIError struct {
	Method  string
	Path    string
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s %s: %d %s", e.Method, e.Path, e.Status, e.Message)
}

func (e *APIError) Unwrap() error {
	switch {
	case e.Status == http.StatusNotFound:
		return ErrNotFound
	case e.Status == http.StatusUnauthorized || e.Status == http.StatusForbidden:
		return ErrUnauthorized
	case e.Status >= 400 && e.Status < 500:
		return ErrBadRequest
	default:
		return nil
	}
}

// Observer is notified after every backend call.
type Observer func(operation string, start time.Time, err error)

// Client talks to the trip/booking REST API.
type Client struct {
	baseURL    *url.URL
	httpClient *http.Client
	logger     pkgApp.AppLogger
	observe    Observer
}

type Option func(*Client)

func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

func WithObserver(observe Observer) Option {
	return func(c *Client) {
		c.observe = observe
	}
}

func NewClient(baseURL string, timeout time.Duration, logger pkgApp.AppLogger, opts ...Option) (*Client, error) {
	parsed, err := url.Parse(strings.TrimRight(baseURL, "/") + "/")
	if err != nil {
		return nil, fmt.Errorf("invalid upstream base url: %w", err)
	}
	if parsed.Scheme == "" || parsed.Host == "" {
		return nil, fmt.Errorf("invalid upstream base url %q", baseURL)
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	c := &Client{
		baseURL:    parsed,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
		observe:    func(string, time.Time, error) {},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

type request struct {
	operation string
	method    string
	path      string
	query     url.Values
	body      interface{}
	token     string
}

// do sends req and decodes a successful body into out, which may be nil. The
// bearer token is req.token, or the session's when req.token is empty.
func (c *Client) do(ctx context.Context, req request, out interface{}) (err error) {
	start := time.Now()
	defer func() { c.observe(req.operation, start, err) }()

	endpoint := c.baseURL.ResolveReference(&url.URL{Path: strings.TrimPrefix(req.path, "/")})
	if len(req.query) > 0 {
		endpoint.RawQuery = req.query.Encode()
	}

	var body io.Reader
	if req.body != nil {
		payload, err := json.Marshal(req.body)
		if err != nil {
			return fmt.Errorf("encode %s request: %w", req.operation, err)
		}
		body = bytes.NewReader(payload)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.method, endpoint.String(), body)
	if err != nil {
		return fmt.Errorf("build %s request: %w", req.operation, err)
	}
	httpReq.Header.Set("Accept", "application/json")
	if body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	token := req.token
	if token == "" {
		if session, ok := authDomain.SessionFromContext(ctx); ok {
			token = session.Token
		}
	}
	if token != "" {
		httpReq.Header.Set("Authorization", "Token "+token)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		pkgApp.LogError(ctx, c.logger, "upstream request failed", err, map[string]interface{}{
			"operation": req.operation,
			"path":      req.path,
		})
		return fmt.Errorf("%s: %w", req.operation, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return fmt.Errorf("read %s response: %w", req.operation, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &APIError{
			Method:  req.method,
			Path:    req.path,
			Status:  resp.StatusCode,
			Message: errorMessage(raw, resp.StatusCode),
		}
		pkgApp.LogDebug(ctx, c.logger, "upstream returned an error", map[string]interface{}{
			"operation": req.operation,
			"status":    resp.StatusCode,
			"message":   apiErr.Message,
		})
		return apiErr
	}

	if out == nil || len(bytes.TrimSpace(raw)) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode %s response: %w", req.operation, err)
	}
	return nil
}

func errorMessage(raw []byte, status int) string {
	var body map[string]interface{}
	if err := json.Unmarshal(raw, &body); err == nil {
		for _, key := range []string{"detail", "error", "message"} {
			if msg, ok := body[key].(string); ok && msg != "" {
				return msg
			}
		}
		if len(body) > 0 {
			return strings.TrimSpace(string(raw))
		}
	}
	if text := strings.TrimSpace(string(raw)); text != "" && len(text) < 512 {
		return text
	}
	return http.StatusText(status)
}
