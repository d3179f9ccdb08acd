// Package httpx is the outbound HTTP plumbing shared by the upstream API clients:
// rate limiting, optional retry on 429/5xx, metrics and upstream error mapping.
package httpx

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"golang.org/x/time/rate"

	"socialrelay/internal/metrics"
	"socialrelay/internal/model"
)

// maxErrorBody caps how much of an upstream error body is kept.
const maxErrorBody = 4 << 10

// Options tunes one upstream client.
type Options struct {
	Timeout     time.Duration
	RPS         float64
	Burst       int
	MaxAttempts int
	BaseBackoff time.Duration
	Logger      *slog.Logger
}

// Client sends requests to one upstream service.
type Client struct {
	service     string
	httpClient  *http.Client
	limiter     *rate.Limiter
	maxAttempts int
	baseBackoff time.Duration
	logger      *slog.Logger
}

func New(service string, opts Options) *Client {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	attempts := opts.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}
	backoff := opts.BaseBackoff
	if backoff <= 0 {
		backoff = 500 * time.Millisecond
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		service:     service,
		httpClient:  &http.Client{Timeout: timeout},
		limiter:     NewLimiter(opts.RPS, opts.Burst),
		maxAttempts: attempts,
		baseBackoff: backoff,
		logger:      logger,
	}
}

// Service names the upstream in metrics and errors.
func (c *Client) Service() string { return c.service }

func (c *Client) Logger() *slog.Logger { return c.logger }

// WithTransport returns a client sharing c's limiter and retry settings whose
// requests go through rt. Every attempt, retries included, passes through rt,
// so per-request signing happens again for each one.
func (c *Client) WithTransport(rt http.RoundTripper) *Client {
	cp := *c
	cp.httpClient = &http.Client{Timeout: c.httpClient.Timeout, Transport: rt}
	return &cp
}

// Do waits for the limiter, sends req and maps status >= 400 to *model.UpstreamError.
// On success the caller owns the response body.
func (c *Client) Do(ctx context.Context, req *http.Request) (*http.Response, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	resp, err := c.doWithRetry(ctx, req)
	if err == nil && resp.StatusCode >= 400 {
		err = c.upstreamError(resp)
		resp = nil
	}
	metrics.ObserveUpstream(c.service, err)
	if err != nil {
		c.logger.WarnContext(ctx, "upstream_call_failed",
			slog.String("service", c.service),
			slog.String("path", req.URL.Path),
			slog.String("error", err.Error()))
		return nil, err
	}
	return resp, nil
}

// DoJSON is Do followed by decoding the body into out (skipped when out is nil).
func (c *Client) DoJSON(ctx context.Context, req *http.Request, out any) error {
	resp, err := c.Do(ctx, req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s response: %w", c.service, err)
	}
	return nil
}

func (c *Client) upstreamError(resp *http.Response) error {
	defer resp.Body.Close()
	b, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	return &model.UpstreamError{Service: c.service, Status: resp.StatusCode, Body: string(b)}
}

func (c *Client) doWithRetry(ctx context.Context, req *http.Request) (*http.Response, error) {
	backoff := c.baseBackoff
	var lastErr error
	for attempt := 1; attempt <= c.maxAttempts; attempt++ {
		try := req.Clone(ctx)
		if attempt > 1 && req.GetBody != nil {
			body, err := req.GetBody()
			if err != nil {
				return nil, err
			}
			try.Body = body
		}
		resp, err := c.httpClient.Do(try)
		if err == nil {
			retryable := resp.StatusCode == http.StatusTooManyRequests || (resp.StatusCode >= 500 && resp.StatusCode <= 599)
			if !retryable || attempt == c.maxAttempts {
				return resp, nil
			}
			wait := retryAfter(resp.Header.Get("Retry-After"), backoff)
			_ = resp.Body.Close()
			metrics.IncAPIRetry(c.service + " " + req.URL.Path)
			select {
			case <-time.After(jitter(wait)):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
			backoff *= 2
			continue
		}
		lastErr = err
		if attempt == c.maxAttempts {
			break
		}
		metrics.IncAPIRetry(c.service + " " + req.URL.Path)
		select {
		case <-time.After(backoff):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
		backoff *= 2
	}
	if c.maxAttempts == 1 {
		return nil, lastErr
	}
	return nil, fmt.Errorf("request failed after %d attempts: %w", c.maxAttempts, lastErr)
}

func retryAfter(header string, def time.Duration) time.Duration {
	if header == "" {
		return def
	}
	if secs, err := strconv.Atoi(header); err == nil {
		return time.Duration(secs) * time.Second
	}
	if t, err := http.ParseTime(header); err == nil {
		if d := time.Until(t); d > 0 {
			return d
		}
	}
	return def
}

// jitter spreads wait by +/-20%.
func jitter(wait time.Duration) time.Duration {
	j := time.Duration(float64(wait) * 0.2)
	if j <= 0 {
		return wait
	}
	return wait - j + time.Duration(time.Now().UnixNano()%int64(2*j))
}
