// Package httpclient executes outbound HTTP calls with a bounded retry on
// transient transport failures. A received HTTP response of any status is
// returned to the caller as-is; only timeouts, connection-establishment
// failures and abrupt peer disconnects are retried.
package httpclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"syscall"
	"time"

	"go.uber.org/zap"
)

const (
	DefaultRetryCount = 2
	DefaultRetryDelay = 500 * time.Millisecond
)

// ConnectionError is returned once the retry budget for a call is exhausted.
type ConnectionError struct {
	Method   string
	URL      string
	Attempts int
	Err      error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("connection failed after %d attempts: %s %s: %v", e.Attempts, e.Method, e.URL, e.Err)
}

func (e *ConnectionError) Unwrap() error {
	return e.Err
}

type Config struct {
	BaseURL    string
	Timeout    time.Duration
	RetryCount int
	RetryDelay time.Duration
}

type Client struct {
	base       string
	timeout    time.Duration
	retryCount int
	retryDelay time.Duration
	transport  *http.Client
	logger     *zap.Logger
	sleep      func(context.Context, time.Duration) error
}

// Response is the raw outcome of a call that reached the peer. Status-level
// handling is the caller's business.
type Response struct {
	Status int
	Body   []byte
}

func (r Response) DecodeJSON(v any) error {
	if len(r.Body) == 0 {
		return fmt.Errorf("empty response body")
	}
	if err := json.Unmarshal(r.Body, v); err != nil {
		return fmt.Errorf("decode response body: %w", err)
	}
	return nil
}

// Options carries per-call overrides. Retry is a pointer so that an explicit
// zero (no retries) is distinguishable from "use the client default".
type Options struct {
	Query      url.Values
	Headers    map[string]string
	Cookies    map[string]string
	JSON       any
	Timeout    time.Duration
	Retry      *int
	RetryDelay time.Duration
}

func New(cfg Config, log *zap.Logger) *Client {
	if log == nil {
		log = zap.NewNop()
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Second
	}
	if cfg.RetryCount < 0 {
		cfg.RetryCount = DefaultRetryCount
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = DefaultRetryDelay
	}

	return &Client{
		base:       strings.TrimRight(cfg.BaseURL, "/"),
		timeout:    cfg.Timeout,
		retryCount: cfg.RetryCount,
		retryDelay: cfg.RetryDelay,
		transport:  &http.Client{},
		logger:     log,
		sleep:      sleepCtx,
	}
}

func (c *Client) Get(ctx context.Context, path string, opts Options) (Response, error) {
	return c.Do(ctx, http.MethodGet, path, opts)
}

func (c *Client) Post(ctx context.Context, path string, opts Options) (Response, error) {
	return c.Do(ctx, http.MethodPost, path, opts)
}

func (c *Client) Patch(ctx context.Context, path string, opts Options) (Response, error) {
	return c.Do(ctx, http.MethodPatch, path, opts)
}

func (c *Client) Put(ctx context.Context, path string, opts Options) (Response, error) {
	return c.Do(ctx, http.MethodPut, path, opts)
}

func (c *Client) Delete(ctx context.Context, path string, opts Options) (Response, error) {
	return c.Do(ctx, http.MethodDelete, path, opts)
}

// Do performs the call with retry on transient failures. The total number of
// attempts is retry+1; between attempts the configured delay is awaited.
func (c *Client) Do(ctx context.Context, method, path string, opts Options) (Response, error) {
	requestURL := c.base + "/" + strings.TrimLeft(path, "/")
	if len(opts.Query) > 0 {
		requestURL += "?" + opts.Query.Encode()
	}

	var body []byte
	if opts.JSON != nil {
		encoded, err := json.Marshal(opts.JSON)
		if err != nil {
			return Response{}, fmt.Errorf("encode request body: %w", err)
		}
		body = encoded
	}

	timeout := c.timeout
	if opts.Timeout > 0 {
		timeout = opts.Timeout
	}
	retry := c.retryCount
	if opts.Retry != nil && *opts.Retry >= 0 {
		retry = *opts.Retry
	}
	delay := c.retryDelay
	if opts.RetryDelay > 0 {
		delay = opts.RetryDelay
	}

	attempts := retry + 1
	c.logger.Info("sending request",
		zap.String("method", method),
		zap.String("url", requestURL),
		zap.Any("json", redactSecrets(opts.JSON)),
	)

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		resp, err := c.attempt(ctx, method, requestURL, body, opts, timeout)
		if err == nil {
			if resp.Status < http.StatusBadRequest {
				c.logger.Info("request successful",
					zap.String("method", method),
					zap.String("url", requestURL),
					zap.Int("status", resp.Status),
				)
			} else {
				c.logger.Warn("request failed",
					zap.String("method", method),
					zap.String("url", requestURL),
					zap.Int("status", resp.Status),
				)
			}
			return resp, nil
		}

		if ctx.Err() != nil {
			return Response{}, ctx.Err()
		}
		if !isRetriable(err) {
			return Response{}, fmt.Errorf("%s %s: %w", method, requestURL, err)
		}

		lastErr = err
		c.logger.Warn("transient request failure",
			zap.String("method", method),
			zap.String("url", requestURL),
			zap.Int("attempt", attempt),
			zap.Duration("retry_delay", delay),
			zap.Error(err),
		)
		if attempt < attempts {
			if err := c.sleep(ctx, delay); err != nil {
				return Response{}, err
			}
		}
	}

	return Response{}, &ConnectionError{
		Method:   method,
		URL:      requestURL,
		Attempts: attempts,
		Err:      lastErr,
	}
}

// attempt runs a single request; the response body is always drained and
// closed so the underlying connection is released on every exit path.
func (c *Client) attempt(ctx context.Context, method, requestURL string, body []byte, opts Options, timeout time.Duration) (Response, error) {
	attemptCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(attemptCtx, method, requestURL, reader)
	if err != nil {
		return Response{}, fmt.Errorf("build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for key, value := range opts.Headers {
		req.Header.Set(key, value)
	}
	for name, value := range opts.Cookies {
		req.AddCookie(&http.Cookie{Name: name, Value: value})
	}

	resp, err := c.transport.Do(req)
	if err != nil {
		return Response{}, err
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return Response{}, err
	}

	return Response{Status: resp.StatusCode, Body: payload}, nil
}

func isRetriable(err error) bool {
	if err == nil {
		return false
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	if errors.Is(err, syscall.ECONNREFUSED) || errors.Is(err, syscall.ECONNRESET) || errors.Is(err, syscall.EPIPE) {
		return true
	}
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return true
	}

	return false
}

// redactSecrets masks password fields before the payload reaches the log.
func redactSecrets(payload any) any {
	m, ok := payload.(map[string]any)
	if !ok {
		return payload
	}

	masked := make(map[string]any, len(m))
	for key, value := range m {
		switch strings.ToLower(key) {
		case "pwd", "password", "hashed_pwd":
			masked[key] = "***"
		default:
			masked[key] = value
		}
	}
	return masked
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
