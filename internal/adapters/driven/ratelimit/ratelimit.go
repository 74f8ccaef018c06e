// Package ratelimit throttles outbound requests to AI providers.
//
// Each provider client owns one Limiter. The token bucket smooths bursts,
// and a 429 response pushes every later request back until the provider's
// Retry-After has passed.
package ratelimit

import (
	"context"
	"net/http"
	"strconv"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/custodia-labs/hsnlens/internal/core/domain"
)

// DefaultBackoff is used when a 429 response carries no usable Retry-After.
const DefaultBackoff = 30 * time.Second

// Config holds rate limiting configuration for a provider.
type Config struct {
	// RequestsPerSecond is the sustained rate limit.
	RequestsPerSecond float64
	// BurstSize is the maximum burst size.
	BurstSize int
}

// DefaultLimits are conservative per-provider defaults. Local Ollama is
// limited only to keep a single machine responsive.
var DefaultLimits = map[domain.AIProvider]Config{
	domain.AIProviderOpenAI:    {RequestsPerSecond: 3.0, BurstSize: 5},
	domain.AIProviderAnthropic: {RequestsPerSecond: 1.0, BurstSize: 2},
	domain.AIProviderOllama:    {RequestsPerSecond: 10.0, BurstSize: 10},
}

// Limiter is a token bucket with a shared backoff deadline.
type Limiter struct {
	mu      sync.Mutex
	limiter *rate.Limiter
	retryAt time.Time
	now     func() time.Time
}

// ForProvider creates a limiter with the provider's default limits.
func ForProvider(provider domain.AIProvider) *Limiter {
	cfg, ok := DefaultLimits[provider]
	if !ok {
		cfg = Config{RequestsPerSecond: 2.0, BurstSize: 5}
	}
	return New(cfg)
}

// New creates a limiter with custom configuration. A non-positive rate
// disables the token bucket; backoff still applies.
func New(cfg Config) *Limiter {
	limit := rate.Limit(cfg.RequestsPerSecond)
	if cfg.RequestsPerSecond <= 0 {
		limit = rate.Inf
	}
	burst := cfg.BurstSize
	if burst <= 0 {
		burst = 1
	}
	return &Limiter{
		limiter: rate.NewLimiter(limit, burst),
		now:     time.Now,
	}
}

// Wait blocks until a request can be made without exceeding the rate limit.
// It also respects any backoff period set by Backoff.
func (l *Limiter) Wait(ctx context.Context) error {
	if wait := l.backoffRemaining(); wait > 0 {
		timer := time.NewTimer(wait)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
		}
	}
	return l.limiter.Wait(ctx)
}

// Allow reports whether a request may be made immediately.
func (l *Limiter) Allow() bool {
	if l.backoffRemaining() > 0 {
		return false
	}
	return l.limiter.Allow()
}

// Backoff delays every later request by d, or DefaultBackoff if d is not
// positive. A shorter backoff never shortens an existing one.
func (l *Limiter) Backoff(d time.Duration) {
	if d <= 0 {
		d = DefaultBackoff
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if until := l.now().Add(d); until.After(l.retryAt) {
		l.retryAt = until
	}
}

// Observe records a 429 response, honouring its Retry-After header.
// Other statuses are ignored.
func (l *Limiter) Observe(resp *http.Response) {
	if resp == nil || resp.StatusCode != http.StatusTooManyRequests {
		return
	}
	l.Backoff(RetryAfter(resp.Header, l.now()))
}

func (l *Limiter) backoffRemaining() time.Duration {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.retryAt.Sub(l.now())
}

// RetryAfter parses a Retry-After header given in seconds or as an HTTP
// date. It returns zero when the header is absent or unparseable.
func RetryAfter(h http.Header, now time.Time) time.Duration {
	v := h.Get("Retry-After")
	if v == "" {
		return 0
	}
	if secs, err := strconv.Atoi(v); err == nil {
		if secs < 0 {
			return 0
		}
		return time.Duration(secs) * time.Second
	}
	if t, err := http.ParseTime(v); err == nil {
		if d := t.Sub(now); d > 0 {
			return d
		}
	}
	return 0
}
