package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/ppiankov/clearview/internal/model"
	"github.com/ppiankov/clearview/internal/util"
	"github.com/ppiankov/clearview/internal/worker"
)

const maxResponseBytes = 4 << 20

// retrySleepFunc is the sleep between retries (injectable for tests)
var retrySleepFunc = time.Sleep

// Client talks to the fact-checking backend
type Client struct {
	baseURL       *url.URL
	httpClient    *http.Client
	userAgent     string
	timeout       time.Duration
	uploadTimeout time.Duration
	limiter       *worker.Limiter
	logger        *slog.Logger
}

// Option customises a Client
type Option func(*Client)

// WithLimiter rate-limits outgoing requests
func WithLimiter(l *worker.Limiter) Option {
	return func(c *Client) { c.limiter = l }
}

// WithLogger sets the diagnostic logger
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// WithBaseTransport replaces the underlying transport below the authorization layer
func WithBaseTransport(rt http.RoundTripper) Option {
	return func(c *Client) {
		if t, ok := c.httpClient.Transport.(*authTransport); ok {
			t.base = rt
		}
	}
}

// NewClient creates a backend client. auth may be nil for unauthenticated use.
func NewClient(cfg model.APIConfig, auth Authorizer, opts ...Option) (*Client, error) {
	base, err := url.Parse(cfg.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse base URL: %w", err)
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, fmt.Errorf("base URL must be http or https: %q", cfg.BaseURL)
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	uploadTimeout := cfg.UploadTimeout
	if uploadTimeout <= 0 {
		uploadTimeout = 60 * time.Second
	}

	c := &Client{
		baseURL: base,
		httpClient: &http.Client{
			Transport: &authTransport{
				base: &http.Transport{
					Proxy:               util.NewProxyFunc(cfg.HTTPProxy, cfg.HTTPSProxy, cfg.NoProxy),
					MaxIdleConnsPerHost: 8,
					IdleConnTimeout:     90 * time.Second,
				},
				auth: auth,
			},
		},
		userAgent:     cfg.UserAgent,
		timeout:       timeout,
		uploadTimeout: uploadTimeout,
		logger:        slog.New(slog.NewTextHandler(io.Discard, nil)),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c, nil
}

// BaseURL returns the backend base URL
func (c *Client) BaseURL() string {
	return c.baseURL.String()
}

// call describes a single backend request
type call struct {
	op          string
	method      string
	path        string
	body        []byte
	contentType string
	timeout     time.Duration
	anonymous   bool
}

func (c *Client) send(ctx context.Context, cl call, out any) error {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx, c.baseURL.String()); err != nil {
			return &OpError{Op: cl.op, Kind: transportKind(err), Err: err}
		}
	}

	timeout := cl.timeout
	if timeout == 0 {
		timeout = c.timeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	if cl.anonymous {
		ctx = withoutAuth(ctx)
	}

	var body io.Reader
	if cl.body != nil {
		body = bytes.NewReader(cl.body)
	}

	req, err := http.NewRequestWithContext(ctx, cl.method, c.baseURL.JoinPath(cl.path).String(), body)
	if err != nil {
		return fmt.Errorf("%s: create request: %w", cl.op, err)
	}
	req.Header.Set("Accept", "application/json")
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}
	if cl.contentType != "" {
		req.Header.Set("Content-Type", cl.contentType)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Debug("api request failed", "op", cl.op, "path", cl.path, "error", err)
		return &OpError{Op: cl.op, Kind: transportKind(err), Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return &OpError{Op: cl.op, Kind: transportKind(err), Status: resp.StatusCode, Err: err}
	}

	c.logger.Debug("api request",
		"op", cl.op,
		"method", cl.method,
		"path", cl.path,
		"status", resp.StatusCode,
		"duration", time.Since(start).Round(time.Millisecond),
	)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return statusError(cl.op, resp.StatusCode, data)
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return &OpError{Op: cl.op, Kind: ErrMalformedResponse, Status: resp.StatusCode, Err: err}
	}
	return nil
}

// sendWithRetry makes up to attempts tries of an idempotent call, retrying transient failures
func (c *Client) sendWithRetry(ctx context.Context, cl call, out any, attempts int) error {
	var err error
	for attempt := 0; attempt < attempts; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(attempt) * 500 * time.Millisecond
			c.logger.Debug("retrying api request", "op", cl.op, "attempt", attempt+1, "backoff", backoff)
			retrySleepFunc(backoff)
			if ctx.Err() != nil {
				return &OpError{Op: cl.op, Kind: transportKind(ctx.Err()), Err: ctx.Err()}
			}
		}

		err = c.send(ctx, cl, out)
		if err == nil || !isRetryable(err) {
			return err
		}
	}
	return err
}

// isRetryable reports whether a failed call may succeed if repeated
func isRetryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) {
		return false
	}
	if IsNetwork(err) {
		return true
	}
	var opErr *OpError
	if errors.As(err, &opErr) && errors.Is(opErr.Kind, ErrUnexpectedStatus) {
		return opErr.Status >= 500 || opErr.Status == http.StatusTooManyRequests
	}
	return false
}

func transportKind(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return ErrTimeout
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return ErrTimeout
	}
	return ErrNetworkUnavailable
}

func statusError(op string, status int, body []byte) error {
	switch status {
	case http.StatusUnauthorized:
		return &OpError{Op: op, Kind: ErrUnauthorized, Status: status, Msg: detailMessage(body)}
	case http.StatusUnprocessableEntity:
		var verr model.HTTPValidationError
		if err := json.Unmarshal(body, &verr); err == nil && len(verr.Detail) > 0 {
			return &ValidationError{Op: op, Fields: fieldErrors(verr.Detail)}
		}
		return &OpError{Op: op, Kind: ErrValidation, Status: status, Msg: detailMessage(body)}
	default:
		return &OpError{Op: op, Kind: ErrUnexpectedStatus, Status: status, Msg: detailMessage(body)}
	}
}

// detailMessage extracts {"detail": "..."} or {"message": "..."} from an error body
func detailMessage(body []byte) string {
	var payload struct {
		Detail  any    `json:"detail"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return ""
	}
	if s, ok := payload.Detail.(string); ok && s != "" {
		return s
	}
	return payload.Message
}

func fieldErrors(details []model.ValidationDetail) []FieldError {
	fields := make([]FieldError, 0, len(details))
	for _, d := range details {
		loc := make([]string, 0, len(d.Loc))
		for _, part := range d.Loc {
			loc = append(loc, strings.TrimSpace(fmt.Sprint(part)))
		}
		fields = append(fields, FieldError{Loc: loc, Msg: d.Msg, Type: d.Type})
	}
	return fields
}
