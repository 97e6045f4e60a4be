// Package transport provides the single outbound HTTP capability the
// pipeline depends on: one request described by data, executed with a
// bounded retry policy. Steps never construct http.Clients of their own.
package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"grabbit/internal/docpath"
	"grabbit/internal/logging"
	"grabbit/internal/steperr"
)

// Request describes one outbound call.
type Request struct {
	Method   string
	URL      string
	Headers  map[string]string
	Cookies  map[string]string
	Params   map[string]any
	JSONBody any
	FormBody map[string]string
	Timeout  time.Duration
}

// Response is the outcome of a completed call.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// Success reports a 2xx status.
func (r *Response) Success() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

// JSON decodes the body into v.
func (r *Response) JSON(v any) error {
	if err := json.Unmarshal(r.Body, v); err != nil {
		return fmt.Errorf("decode response body: %w", err)
	}
	return nil
}

// Text returns the body as a string.
func (r *Response) Text() string {
	return string(r.Body)
}

// Client executes requests with retry semantics.
type Client struct {
	httpClient *http.Client
	logger     *slog.Logger
	sleep      func(time.Duration)
	jitter     func(time.Duration) time.Duration

	mu       sync.Mutex
	nextCall map[string]time.Time
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithLogger attaches a logger for retry diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logging.NewComponentLogger(logger, "transport")
		}
	}
}

// withSleep replaces the backoff sleep, for tests.
func withSleep(sleep func(time.Duration)) Option {
	return func(c *Client) { c.sleep = sleep }
}

// New creates a transport client.
func New(opts ...Option) *Client {
	client := &Client{
		httpClient: &http.Client{},
		logger:     logging.NewNop(),
		sleep:      time.Sleep,
		jitter:     defaultJitter,
		nextCall:   map[string]time.Time{},
	}
	for _, opt := range opts {
		opt(client)
	}
	return client
}

// Throttle spaces calls to a named provider so at most rpm requests start
// per minute. Pacing state is shared by every run using this client, so
// batch workers draw from one budget.
func (c *Client) Throttle(ctx context.Context, key string, rpm int) error {
	if rpm <= 0 {
		return nil
	}
	interval := time.Minute / time.Duration(rpm)
	c.mu.Lock()
	now := time.Now()
	next := c.nextCall[key]
	if next.Before(now) {
		next = now
	}
	c.nextCall[key] = next.Add(interval)
	c.mu.Unlock()
	if wait := next.Sub(now); wait > 0 {
		c.sleep(wait)
	}
	return ctx.Err()
}

// Do executes the request under the retry policy. Transport failures and
// retryable statuses are retried with exponential backoff; a per-call
// timeout counts as a regular retryable failure. The final response is
// returned even when its status is not 2xx; callers decide how to react.
func (c *Client) Do(ctx context.Context, req Request, policy RetryPolicy) (*Response, error) {
	policy = policy.withDefaults()
	var lastErr error
	for attempt := 0; ; attempt++ {
		resp, err := c.execute(ctx, req)
		if err == nil {
			if policy.retryableStatus(resp.StatusCode) && attempt < policy.Retries {
				c.logger.Debug("retrying on status",
					logging.Int("status", resp.StatusCode),
					logging.Int("attempt", attempt))
				c.sleep(policy.delay(attempt, c.jitter))
				continue
			}
			return resp, nil
		}
		lastErr = err
		if attempt >= policy.Retries {
			break
		}
		c.logger.Debug("retrying on transport failure",
			logging.Error(err),
			logging.Int("attempt", attempt))
		c.sleep(policy.delay(attempt, c.jitter))
	}
	kind := steperr.KindNetwork
	if isTimeout(lastErr) {
		kind = steperr.KindTimeout
	}
	return nil, steperr.Wrap(kind, "", fmt.Sprintf("%s %s", req.Method, Redact(req.URL)), lastErr)
}

func (c *Client) execute(ctx context.Context, req Request) (*Response, error) {
	method := strings.ToUpper(strings.TrimSpace(req.Method))
	if method == "" {
		method = http.MethodGet
	}

	callCtx := ctx
	if req.Timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, req.Timeout)
		defer cancel()
	}

	target, err := buildURL(req.URL, req.Params)
	if err != nil {
		return nil, err
	}

	var body io.Reader
	contentType := ""
	switch {
	case req.JSONBody != nil:
		raw, err := json.Marshal(req.JSONBody)
		if err != nil {
			return nil, fmt.Errorf("encode request body: %w", err)
		}
		body = bytes.NewReader(raw)
		contentType = "application/json"
	case len(req.FormBody) > 0:
		form := url.Values{}
		for key, value := range req.FormBody {
			form.Set(key, value)
		}
		body = strings.NewReader(form.Encode())
		contentType = "application/x-www-form-urlencoded"
	}

	httpReq, err := http.NewRequestWithContext(callCtx, method, target, body)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	if contentType != "" {
		httpReq.Header.Set("Content-Type", contentType)
	}
	for key, value := range req.Headers {
		httpReq.Header.Set(key, value)
	}
	for name, value := range req.Cookies {
		httpReq.AddCookie(&http.Cookie{Name: name, Value: value})
	}

	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer httpResp.Body.Close()

	raw, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response body: %w", err)
	}
	return &Response{StatusCode: httpResp.StatusCode, Header: httpResp.Header, Body: raw}, nil
}

// buildURL merges declarative query params into the URL. Slice values
// repeat the key; scalars use their string form.
func buildURL(raw string, params map[string]any) (string, error) {
	parsed, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("parse url: %w", err)
	}
	if len(params) == 0 {
		return parsed.String(), nil
	}
	query := parsed.Query()
	for key, value := range params {
		switch v := value.(type) {
		case []any:
			for _, item := range v {
				query.Add(key, docpath.Stringify(item))
			}
		case []string:
			for _, item := range v {
				query.Add(key, item)
			}
		case nil:
		default:
			query.Set(key, docpath.Stringify(v))
		}
	}
	parsed.RawQuery = query.Encode()
	return parsed.String(), nil
}

func isTimeout(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr interface{ Timeout() bool }
	if errors.As(err, &netErr) {
		return netErr.Timeout()
	}
	return false
}
