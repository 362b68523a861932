package resilience

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

const (
	// DefaultPermits is the default number of permits per period
	DefaultPermits = 5
	// DefaultPeriod is the default rate limit period
	DefaultPeriod = time.Second
	// DefaultAcquireTimeout is the default time a caller may wait for a permit
	DefaultAcquireTimeout = time.Second
)

// Limiter gates entry to a single attempt.
// Implementations must be safe for concurrent use.
type Limiter interface {
	// Acquire blocks until a permit is granted or the acquire timeout elapses.
	// A refusal is reported as *RateLimitExceededError.
	Acquire(ctx context.Context) error
}

// RateLimitConfig configures a Limiter.
type RateLimitConfig struct {
	// Permits is the number of permits granted per Period
	Permits int
	// Period is the length of one rate limit window
	Period time.Duration
	// AcquireTimeout bounds how long Acquire may block; zero means fail fast
	AcquireTimeout time.Duration
}

// DefaultRateLimitConfig returns 5 permits per second with a 1 second acquire timeout.
func DefaultRateLimitConfig() RateLimitConfig {
	return RateLimitConfig{
		Permits:        DefaultPermits,
		Period:         DefaultPeriod,
		AcquireTimeout: DefaultAcquireTimeout,
	}
}

// Validate checks that the configuration describes a usable limiter.
func (c RateLimitConfig) Validate() error {
	if c.Permits < 1 {
		return fmt.Errorf("%w: permits must be at least 1, got %d", ErrInvalidConfig, c.Permits)
	}
	if c.Period <= 0 {
		return fmt.Errorf("%w: period must be positive, got %v", ErrInvalidConfig, c.Period)
	}
	if c.AcquireTimeout < 0 {
		return fmt.Errorf("%w: acquire timeout must not be negative, got %v", ErrInvalidConfig, c.AcquireTimeout)
	}
	return nil
}

// unlimited grants every request immediately.
type unlimited struct{}

// Unlimited returns a Limiter that never refuses.
func Unlimited() Limiter { return unlimited{} }

func (unlimited) Acquire(context.Context) error { return nil }

// FixedWindowLimiter grants at most Permits permits per Period window.
// Windows are aligned to the limiter's creation time and reset atomically
// at each boundary.
type FixedWindowLimiter struct {
	cfg   RateLimitConfig
	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error

	mu          sync.Mutex
	windowStart time.Time
	// available goes negative when callers hold reservations in future windows
	available int
}

// NewFixedWindowLimiter creates a fixed window limiter.
func NewFixedWindowLimiter(cfg RateLimitConfig) (*FixedWindowLimiter, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	l := &FixedWindowLimiter{
		cfg:   cfg,
		now:   time.Now,
		sleep: sleepContext,
	}
	l.windowStart = l.now()
	l.available = cfg.Permits
	return l, nil
}

// Acquire takes a permit from the current window, or reserves one in the
// earliest later window when that window opens within the acquire timeout.
func (l *FixedWindowLimiter) Acquire(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return &RateLimitExceededError{Timeout: l.cfg.AcquireTimeout, Cause: err}
	}

	wait, ok := l.reserve()
	if !ok {
		return &RateLimitExceededError{Timeout: l.cfg.AcquireTimeout}
	}
	if wait <= 0 {
		return nil
	}
	if err := l.sleep(ctx, wait); err != nil {
		l.release()
		return &RateLimitExceededError{Timeout: l.cfg.AcquireTimeout, Cause: err}
	}
	return nil
}

// reserve consumes a permit and reports how long the caller must wait for its window.
func (l *FixedWindowLimiter) reserve() (time.Duration, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	l.advance(now)

	if l.available > 0 {
		l.available--
		return 0, true
	}

	// -available permits are already promised to later windows
	windowsAhead := (-l.available)/l.cfg.Permits + 1
	wait := l.windowStart.Add(time.Duration(windowsAhead) * l.cfg.Period).Sub(now)
	if wait > l.cfg.AcquireTimeout {
		return 0, false
	}
	l.available--
	return wait, true
}

// advance moves the window forward to the one containing now.
func (l *FixedWindowLimiter) advance(now time.Time) {
	elapsed := now.Sub(l.windowStart)
	if elapsed < l.cfg.Period {
		return
	}
	windows := int(elapsed / l.cfg.Period)
	l.windowStart = l.windowStart.Add(time.Duration(windows) * l.cfg.Period)
	l.available = min(l.available+windows*l.cfg.Permits, l.cfg.Permits)
}

// release returns a reserved permit that was never used.
func (l *FixedWindowLimiter) release() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.advance(l.now())
	l.available = min(l.available+1, l.cfg.Permits)
}

// TokenBucketLimiter spaces permits Period/Permits apart with a burst of one,
// so any window of length Period holds at most Permits grants.
type TokenBucketLimiter struct {
	cfg     RateLimitConfig
	limiter *rate.Limiter
}

// NewTokenBucketLimiter creates a token bucket limiter.
func NewTokenBucketLimiter(cfg RateLimitConfig) (*TokenBucketLimiter, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	interval := cfg.Period / time.Duration(cfg.Permits)
	return &TokenBucketLimiter{
		cfg:     cfg,
		limiter: rate.NewLimiter(rate.Every(interval), 1),
	}, nil
}

// Acquire reserves a token and waits for it when the delay fits in the acquire timeout.
func (l *TokenBucketLimiter) Acquire(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return &RateLimitExceededError{Timeout: l.cfg.AcquireTimeout, Cause: err}
	}

	now := time.Now()
	r := l.limiter.ReserveN(now, 1)
	if !r.OK() {
		return &RateLimitExceededError{Timeout: l.cfg.AcquireTimeout}
	}
	delay := r.DelayFrom(now)
	if delay > l.cfg.AcquireTimeout {
		r.CancelAt(now)
		return &RateLimitExceededError{Timeout: l.cfg.AcquireTimeout}
	}
	if delay <= 0 {
		return nil
	}
	if err := sleepContext(ctx, delay); err != nil {
		r.Cancel()
		return &RateLimitExceededError{Timeout: l.cfg.AcquireTimeout, Cause: err}
	}
	return nil
}

// sleepContext blocks the calling goroutine for d or until ctx is done.
func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
