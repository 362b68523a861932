package resilience

import (
	"context"
	"errors"
	"time"
)

// Policy is a rate limiter and a retry policy composed around one attempt.
// A Policy is immutable after construction and safe for concurrent use; the
// limiter is the only shared mutable state.
type Policy struct {
	limiter   Limiter
	retry     RetryPolicy
	listeners []RetryListener
	sleep     func(ctx context.Context, d time.Duration) error
}

// PolicyOption configures a Policy.
type PolicyOption func(*Policy)

// WithRetryListener registers a listener notified before every retry.
func WithRetryListener(l RetryListener) PolicyOption {
	return func(p *Policy) {
		if l != nil {
			p.listeners = append(p.listeners, l)
		}
	}
}

// NewPolicy composes limiter and retry. A nil limiter is Unlimited.
func NewPolicy(limiter Limiter, retry RetryPolicy, opts ...PolicyOption) (*Policy, error) {
	if err := retry.Validate(); err != nil {
		return nil, err
	}
	if limiter == nil {
		limiter = Unlimited()
	}
	p := &Policy{
		limiter: limiter,
		retry:   retry,
		sleep:   sleepContext,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// Passthrough is the degenerate policy: one attempt, no rate limit.
func Passthrough() *Policy {
	return &Policy{limiter: Unlimited(), retry: NoRetry(), sleep: sleepContext}
}

// Retry returns the policy's retry configuration.
func (p *Policy) Retry() RetryPolicy { return p.retry }

// AttemptFunc performs one attempt. attempt starts at 1.
type AttemptFunc[T any] func(ctx context.Context, attempt int) (T, error)

// Execute runs fn under the policy. Each attempt first acquires a permit;
// a refused permit ends the call with *RateLimitExceededError. When every
// attempt fails, Execute returns *RetryExhaustedError wrapping the last failure.
func Execute[T any](ctx context.Context, p *Policy, fn AttemptFunc[T]) (T, error) {
	if p == nil {
		p = Passthrough()
	}

	var zero T
	var last error
	for attempt := 1; attempt <= p.retry.MaxAttempts; attempt++ {
		if err := p.limiter.Acquire(ctx); err != nil {
			return zero, asRateLimitError(err)
		}

		result, err := fn(ctx, attempt)
		if err == nil {
			return result, nil
		}
		last = err

		if attempt == p.retry.MaxAttempts {
			break
		}

		p.notify(RetryEvent{Attempt: attempt, Err: err, Wait: p.retry.Wait})
		if err := p.sleep(ctx, p.retry.Wait); err != nil {
			return zero, &RetryExhaustedError{Attempts: attempt, Last: last, Interrupted: err}
		}
	}
	return zero, &RetryExhaustedError{Attempts: p.retry.MaxAttempts, Last: last}
}

func (p *Policy) notify(ev RetryEvent) {
	for _, l := range p.listeners {
		l(ev)
	}
}

// asRateLimitError normalizes refusals from custom Limiter implementations.
func asRateLimitError(err error) error {
	var rle *RateLimitExceededError
	if errors.As(err, &rle) {
		return rle
	}
	return &RateLimitExceededError{Cause: err}
}
