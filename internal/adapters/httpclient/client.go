// internal/adapters/httpclient/client.go
package httpclient

import (
	"context"
	crand "crypto/rand"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"trip_planner/internal/adapters/observability"
)

// Client is the outbound JSON client every provider adapter shares:
// client-side rate limiting, optional retries on 429/5xx, metrics per endpoint.
type Client struct {
	service   string
	hc        *http.Client
	rl        *rate.Limiter
	retries   int
	userAgent string
}

type Option func(*Client)

// WithRateLimit bounds outbound calls; rps <= 0 disables limiting.
func WithRateLimit(rps float64, burst int) Option {
	return func(c *Client) {
		if rps <= 0 {
			c.rl = nil
			return
		}
		if burst <= 0 {
			burst = 1
		}
		c.rl = rate.NewLimiter(rate.Limit(rps), burst)
	}
}

// WithRetries sets how many times a 429/5xx or network failure is retried. Default 0.
func WithRetries(n int) Option { return func(c *Client) { c.retries = max(n, 0) } }

func New(service string, opts ...Option) *Client {
	c := &Client{
		service:   service,
		hc:        &http.Client{Timeout: 20 * time.Second},
		userAgent: "trip-planner/1.0",
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// ---- Errors ----

var (
	ErrNotFound     = errors.New("not found")
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")
)

// StatusError is any non-2xx response. errors.Is matches the 401/403/404 sentinels.
type StatusError struct {
	Service  string
	Endpoint string
	Code     int
	Body     string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("%s %s: bad status %d", e.Service, e.Endpoint, e.Code)
	}
	return fmt.Sprintf("%s %s: bad status %d: %s", e.Service, e.Endpoint, e.Code, e.Body)
}

func (e *StatusError) Is(target error) bool {
	switch target {
	case ErrNotFound:
		return e.Code == http.StatusNotFound
	case ErrUnauthorized:
		return e.Code == http.StatusUnauthorized
	case ErrForbidden:
		return e.Code == http.StatusForbidden
	}
	return false
}

// ---- Public API ----

// GetJSON issues a GET to rawURL with the extra headers and decodes the body into out.
// endpoint is a low-cardinality label for metrics and errors.
func (c *Client) GetJSON(ctx context.Context, endpoint, rawURL string, header http.Header, out any) error {
	return c.do(ctx, endpoint, func(ctx context.Context) (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
		if err != nil {
			return nil, err
		}
		copyHeader(req.Header, header)
		return req, nil
	}, out)
}

// PostForm sends an application/x-www-form-urlencoded body and decodes the JSON reply.
func (c *Client) PostForm(ctx context.Context, endpoint, rawURL string, form url.Values, out any) error {
	body := form.Encode()
	return c.do(ctx, endpoint, func(ctx context.Context) (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, rawURL, strings.NewReader(body))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		return req, nil
	}, out)
}

// ---- Internals ----

func copyHeader(dst, src http.Header) {
	for k, vs := range src {
		for _, v := range vs {
			dst.Add(k, v)
		}
	}
}

// do runs one logical call: rate limit, build a fresh request per attempt,
// retry 429/5xx and network errors up to c.retries times, decode on 2xx.
func (c *Client) do(ctx context.Context, endpoint string, build func(context.Context) (*http.Request, error), out any) error {
	if c.rl != nil {
		if err := c.rl.Wait(ctx); err != nil {
			return err
		}
	}

	var lastErr error
	for i := 0; i <= c.retries; i++ {
		req, err := build(ctx)
		if err != nil {
			return err
		}
		req.Header.Set("Accept", "application/json")
		if req.Header.Get("User-Agent") == "" && c.userAgent != "" {
			req.Header.Set("User-Agent", c.userAgent)
		}

		start := time.Now()
		resp, err := c.hc.Do(req)
		if err != nil {
			observability.ObserveExternal(c.service, endpoint, 0, time.Since(start))
			// network error or context canceled
			if ctx.Err() != nil {
				return ctx.Err()
			}
			lastErr = fmt.Errorf("%s %s: %w", c.service, endpoint, err)
			if i < c.retries && sleepCtx(ctx, backoff(i)) {
				continue
			}
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return lastErr
		}
		observability.ObserveExternal(c.service, endpoint, resp.StatusCode, time.Since(start))

		switch {
		case resp.StatusCode == http.StatusNoContent:
			_, _ = io.Copy(io.Discard, resp.Body)
			resp.Body.Close()
			return nil

		case resp.StatusCode >= 200 && resp.StatusCode < 300:
			err := json.NewDecoder(resp.Body).Decode(out)
			resp.Body.Close()
			if err != nil {
				return fmt.Errorf("%s %s: decode: %w", c.service, endpoint, err)
			}
			return nil

		case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
			// Prefer server-provided Retry-After; otherwise exponential backoff.
			wait := retryAfter(resp)
			serr := statusError(c.service, endpoint, resp)
			if wait == 0 {
				wait = backoff(i)
			}
			lastErr = serr
			if i < c.retries && sleepCtx(ctx, wait) {
				continue
			}
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return lastErr

		default:
			return statusError(c.service, endpoint, resp)
		}
	}

	return lastErr
}

// statusError reads a small error body for diagnostics and closes the response.
func statusError(service, endpoint string, resp *http.Response) *StatusError {
	b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	resp.Body.Close()
	return &StatusError{Service: service, Endpoint: endpoint, Code: resp.StatusCode, Body: strings.TrimSpace(string(b))}
}

// sleepCtx waits for d or returns early if ctx is done.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return true
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

// retryAfter parses Retry-After header (seconds or HTTP-date). Returns 0 if absent/invalid.
func retryAfter(resp *http.Response) time.Duration {
	h := resp.Header.Get("Retry-After")
	if h == "" {
		return 0
	}
	if secs, err := strconv.Atoi(strings.TrimSpace(h)); err == nil && secs >= 0 {
		return time.Duration(secs) * time.Second
	}
	if t, err := http.ParseTime(h); err == nil {
		if d := time.Until(t); d > 0 {
			return d
		}
	}
	return 0
}

// backoff returns 200ms, 400ms, 800ms... with up to +50% jitter.
func backoff(i int) time.Duration {
	base := time.Duration(1<<i) * 200 * time.Millisecond
	var b [1]byte
	if _, err := crand.Read(b[:]); err != nil {
		return base
	}
	f := float64(b[0]) / 255.0
	return base + time.Duration(0.5*f*float64(base))
}
