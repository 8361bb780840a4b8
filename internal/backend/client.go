// Package backend is the HTTP client for the exit registration API. Every call goes
// through a Session, which owns the cookie jar and the anti-forgery token of one kiosk.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/exit-kiosk/pkg/middleware/requestid"
)

// Backend endpoints.
const (
	PathCSRFToken      = "/api/csrf-token"
	PathRoster         = "/data/students.json"
	PathStudentHistory = "/api/student-history"
	PathExit           = "/api/exit"
	PathHistory        = "/api/history"
	PathUpload         = "/api/upload-students"
	PathLogin          = "/api/login"
	PathLogout         = "/api/logout"
	PathReceipts       = "/pdfs/"

	// CSRFHeader carries the anti-forgery token on mutating calls.
	CSRFHeader = "X-CSRFToken"
)

// Observer receives one sample per backend call.
type Observer interface {
	ObserveBackendCall(endpoint, outcome string, duration time.Duration)
}

// Client holds the backend location and the shared transport.
type Client struct {
	baseURL   string
	timeout   time.Duration
	transport http.RoundTripper
	observer  Observer
	logger    *zap.Logger
}

// Option customises a Client.
type Option func(*Client)

// WithTransport replaces the HTTP transport (tests use httptest servers instead).
func WithTransport(rt http.RoundTripper) Option {
	return func(c *Client) { c.transport = rt }
}

// WithObserver records call metrics.
func WithObserver(o Observer) Option {
	return func(c *Client) { c.observer = o }
}

// WithLogger sets the client logger.
func WithLogger(l *zap.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// New builds a client for baseURL.
func New(baseURL string, timeout time.Duration, opts ...Option) *Client {
	if timeout <= 0 {
		timeout = 8 * time.Second
	}
	c := &Client{
		baseURL:   strings.TrimRight(baseURL, "/"),
		timeout:   timeout,
		transport: http.DefaultTransport,
		logger:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BaseURL returns the backend root URL.
func (c *Client) BaseURL() string { return c.baseURL }

type request struct {
	method   string
	path     string
	endpoint string
	body     io.Reader
	header   http.Header
	// withToken attaches the anti-forgery token, fetching it first if absent.
	withToken bool
}

// do issues req for session s. Redirects are never followed: any 3xx, a 401, or a landing
// on login.html means the session lost its sign-in.
func (c *Client) do(ctx context.Context, s *Session, req request) (*http.Response, error) {
	start := time.Now()
	resp, err := c.roundTrip(ctx, s, req)
	c.observe(req.endpoint, outcome(resp, err), time.Since(start))
	return resp, err
}

func (c *Client) roundTrip(ctx context.Context, s *Session, req request) (*http.Response, error) {
	httpReq, err := http.NewRequestWithContext(ctx, req.method, c.baseURL+req.path, req.body)
	if err != nil {
		return nil, fmt.Errorf("build %s %s: %w", req.method, req.path, err)
	}
	for k, values := range req.header {
		for _, v := range values {
			httpReq.Header.Add(k, v)
		}
	}
	if httpReq.Header.Get("Accept") == "" {
		httpReq.Header.Set("Accept", "application/json")
	}
	if id := requestid.FromContext(ctx); id != "" {
		httpReq.Header.Set(requestid.Header, id)
	}
	if req.withToken {
		token, err := s.EnsureToken(ctx)
		if err != nil {
			return nil, err
		}
		httpReq.Header.Set(CSRFHeader, token)
	}

	resp, err := s.http.Do(httpReq)
	if err != nil {
		c.logger.Warn("backend call failed", zap.String("endpoint", req.endpoint), zap.Error(err))
		return nil, unavailable(err)
	}

	if resp.StatusCode == http.StatusUnauthorized ||
		(resp.StatusCode >= 300 && resp.StatusCode < 400) ||
		strings.Contains(resp.Request.URL.String(), "login.html") {
		drain(resp)
		return nil, signInRequired(fmt.Errorf("%s %s: status %d", req.method, req.path, resp.StatusCode))
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		defer drain(resp)
		return nil, &RejectedError{Status: resp.StatusCode, Message: errorField(resp.Body)}
	}
	return resp, nil
}

func (c *Client) getJSON(ctx context.Context, s *Session, path, endpoint string, out interface{}) error {
	resp, err := c.do(ctx, s, request{method: http.MethodGet, path: path, endpoint: endpoint})
	if err != nil {
		return err
	}
	defer drain(resp)
	return decode(resp, out)
}

func (c *Client) observe(endpoint, outcome string, d time.Duration) {
	if c.observer != nil {
		c.observer.ObserveBackendCall(endpoint, outcome, d)
	}
}

func (c *Client) newHTTPClient(jar http.CookieJar) *http.Client {
	return &http.Client{
		Transport: c.transport,
		Jar:       jar,
		Timeout:   c.timeout,
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
}

// decode parses an expected-JSON body. A body that is not JSON is taken as a sign-in page
// served in its place.
func decode(resp *http.Response, out interface{}) error {
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return signInRequired(fmt.Errorf("decode %s: %w", resp.Request.URL.Path, err))
	}
	return nil
}

func errorField(body io.Reader) string {
	raw, err := io.ReadAll(io.LimitReader(body, 64<<10))
	if err != nil || len(bytes.TrimSpace(raw)) == 0 {
		return ""
	}
	var payload struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(raw, &payload); err != nil {
		return ""
	}
	return payload.Error
}

func outcome(resp *http.Response, err error) string {
	switch {
	case err == nil:
		return "ok"
	case IsSignInRequired(err):
		return "sign_in"
	case IsUnavailable(err):
		return "unavailable"
	default:
		return "rejected"
	}
}

func drain(resp *http.Response) {
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
	_ = resp.Body.Close()
}
