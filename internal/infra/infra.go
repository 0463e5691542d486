// Package infra provides shared infrastructure for upstream calls:
// rate limiting, a pre-configured REST client, and HTTP error mapping.
package infra

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"
)

// --- HTTP errors ---

// ErrHTTP wraps an upstream HTTP error with status code.
type ErrHTTP struct {
	StatusCode int
	Status     string
	Body       string
}

func (e *ErrHTTP) Error() string {
	return fmt.Sprintf("HTTP %d %s: %s", e.StatusCode, e.Status, e.Body)
}

// CheckResponse converts a >= 400 response into *ErrHTTP. The body is
// truncated to keep logs readable.
func CheckResponse(resp *resty.Response) error {
	if resp == nil || !resp.IsError() {
		return nil
	}
	body := resp.Body()
	if len(body) > 1024 {
		body = body[:1024]
	}
	return &ErrHTTP{
		StatusCode: resp.StatusCode(),
		Status:     resp.Status(),
		Body:       string(body),
	}
}

// --- REST client ---

// ClientOptions configures NewRestClient.
type ClientOptions struct {
	BaseURL   string
	Timeout   time.Duration
	UserAgent string
	Limiter   *RateLimiter
}

// NewRestClient returns a resty client with browser-like default headers,
// a cookie jar, a hard per-request timeout, and an optional rate limiter
// applied before every request.
func NewRestClient(opts ClientOptions) *resty.Client {
	c := resty.New().
		SetTimeout(opts.Timeout).
		SetHeaders(map[string]string{
			"Accept":          "application/json, text/html, */*",
			"Accept-Language": "en-US,en;q=0.9",
		})
	if opts.UserAgent != "" {
		c.SetHeader("User-Agent", opts.UserAgent)
	}
	if opts.BaseURL != "" {
		c.SetBaseURL(opts.BaseURL)
	}
	if opts.Limiter != nil {
		lim := opts.Limiter
		c.OnBeforeRequest(func(_ *resty.Client, r *resty.Request) error {
			return lim.Wait(r.Context())
		})
	}
	return c
}

// --- Rate limiter ---

// maxRatePerSecond is the highest rate with a refill interval of at least 1µs.
const maxRatePerSecond = 1e6

// RateLimiter provides simple token-bucket rate limiting.
type RateLimiter struct {
	mu         sync.Mutex
	tokens     int
	maxTokens  int
	refillRate time.Duration
	lastRefill time.Time
}

// NewRateLimiter creates a rate limiter that allows maxTokens requests
// per refillRate duration. refillRate is clamped to at least 1ns.
func NewRateLimiter(maxTokens int, refillRate time.Duration) *RateLimiter {
	if refillRate < time.Nanosecond {
		refillRate = time.Nanosecond
	}
	return &RateLimiter{
		tokens:     maxTokens,
		maxTokens:  maxTokens,
		refillRate: refillRate,
		lastRefill: time.Now(),
	}
}

// NewRateLimiterPerSecond returns a limiter refilling one token every
// 1/perSec seconds with a burst of ceil(perSec). A non-positive rate
// returns nil, which callers treat as unlimited, as does a rate too high
// to express as a refill interval.
func NewRateLimiterPerSecond(perSec float64) *RateLimiter {
	if perSec <= 0 || perSec > maxRatePerSecond {
		return nil
	}
	burst := int(perSec)
	if float64(burst) < perSec {
		burst++
	}
	return NewRateLimiter(burst, time.Duration(float64(time.Second)/perSec))
}

// Wait blocks until a token is available or context is cancelled.
func (rl *RateLimiter) Wait(ctx context.Context) error {
	if rl == nil {
		return nil
	}
	for {
		rl.mu.Lock()
		rl.refill()
		if rl.tokens > 0 {
			rl.tokens--
			rl.mu.Unlock()
			return nil
		}
		wait := rl.refillRate - time.Since(rl.lastRefill)
		rl.mu.Unlock()

		if wait <= 0 {
			continue
		}
		t := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			t.Stop()
			return ctx.Err()
		case <-t.C:
		}
	}
}

// refill adds tokens based on elapsed time. Must be called with mu held.
func (rl *RateLimiter) refill() {
	elapsed := time.Since(rl.lastRefill)
	if elapsed >= rl.refillRate {
		periods := int(elapsed / rl.refillRate)
		rl.tokens += periods
		if rl.tokens > rl.maxTokens {
			rl.tokens = rl.maxTokens
		}
		rl.lastRefill = rl.lastRefill.Add(time.Duration(periods) * rl.refillRate)
	}
}
