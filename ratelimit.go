package langsys

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// DefaultRequestsPerMinute applies when a RateLimitConfig leaves the rate unset.
const DefaultRequestsPerMinute = 60

// RateLimitConfig configures a RateLimiter.
type RateLimitConfig struct {
	RequestsPerMinute int
	BurstSize         int // Defaults to RequestsPerMinute
}

// RateLimiter spaces out requests to the translation service or an AI
// provider. It is a token bucket that can also be paused for everyone, so a
// Retry-After seen by one caller holds back the others.
type RateLimiter struct {
	limiter *rate.Limiter

	mu          sync.Mutex
	pausedUntil time.Time
}

// NewRateLimiter creates a limiter whose bucket starts full.
func NewRateLimiter(cfg RateLimitConfig) *RateLimiter {
	rpm := cfg.RequestsPerMinute
	if rpm <= 0 {
		rpm = DefaultRequestsPerMinute
	}
	burst := cfg.BurstSize
	if burst <= 0 {
		burst = rpm
	}
	return &RateLimiter{
		limiter: rate.NewLimiter(rate.Every(time.Minute/time.Duration(rpm)), burst),
	}
}

// Wait blocks until a pause is over and a token is available, or ctx is done.
func (r *RateLimiter) Wait(ctx context.Context) error {
	if d := r.pauseLeft(); d > 0 {
		timer := time.NewTimer(d)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
	return r.limiter.Wait(ctx)
}

// Pause holds back every caller for d. A shorter pause never cuts an existing
// one short.
func (r *RateLimiter) Pause(d time.Duration) {
	if d <= 0 {
		return
	}
	until := time.Now().Add(d)
	r.mu.Lock()
	if until.After(r.pausedUntil) {
		r.pausedUntil = until
	}
	r.mu.Unlock()
}

func (r *RateLimiter) pauseLeft() time.Duration {
	r.mu.Lock()
	defer r.mu.Unlock()
	return time.Until(r.pausedUntil)
}

// TryAcquire takes a token without blocking and reports whether it got one.
// It always fails while paused.
func (r *RateLimiter) TryAcquire() bool {
	if r.pauseLeft() > 0 {
		return false
	}
	return r.limiter.Allow()
}

// Available returns the number of tokens in the bucket.
func (r *RateLimiter) Available() float64 {
	return r.limiter.Tokens()
}

// RateLimitedProvider throttles an AIProvider so drafting stays under the
// provider's request quota.
type RateLimitedProvider struct {
	provider AIProvider
	limiter  *RateLimiter
}

var _ AIProvider = (*RateLimitedProvider)(nil)

// NewRateLimitedProvider wraps provider with a limiter built from cfg.
func NewRateLimitedProvider(provider AIProvider, cfg RateLimitConfig) *RateLimitedProvider {
	return &RateLimitedProvider{provider: provider, limiter: NewRateLimiter(cfg)}
}

// Translate implements AIProvider.
func (p *RateLimitedProvider) Translate(ctx context.Context, req TranslateRequest) ([]string, error) {
	if err := p.limiter.Wait(ctx); err != nil {
		return nil, &ProviderError{Message: "rate limit wait cancelled", Cause: err}
	}
	return p.provider.Translate(ctx, req)
}

// Limiter returns the underlying limiter.
func (p *RateLimitedProvider) Limiter() *RateLimiter {
	return p.limiter
}
