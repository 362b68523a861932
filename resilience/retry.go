package resilience

import (
	"fmt"
	"time"
)

const (
	// DefaultMaxAttempts is the default total number of attempts, the first included
	DefaultMaxAttempts = 5
	// DefaultWait is the default fixed delay between attempts
	DefaultWait = time.Second
)

// RetryPolicy governs how many times a failed attempt is re-run and how long
// to wait in between. Attempt 1 is the initial try; attempts 2..MaxAttempts
// are retries.
type RetryPolicy struct {
	MaxAttempts int
	Wait        time.Duration
}

// DefaultRetryPolicy returns 5 attempts with a fixed 1 second wait.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{MaxAttempts: DefaultMaxAttempts, Wait: DefaultWait}
}

// NoRetry runs a single attempt.
func NoRetry() RetryPolicy {
	return RetryPolicy{MaxAttempts: 1}
}

// Validate checks the MaxAttempts >= 1 invariant and a non-negative wait.
func (p RetryPolicy) Validate() error {
	if p.MaxAttempts < 1 {
		return fmt.Errorf("%w: max attempts must be at least 1, got %d", ErrInvalidConfig, p.MaxAttempts)
	}
	if p.Wait < 0 {
		return fmt.Errorf("%w: wait must not be negative, got %v", ErrInvalidConfig, p.Wait)
	}
	return nil
}

// RetryEvent describes a failed attempt that is about to be retried.
type RetryEvent struct {
	// Attempt is the number of the attempt that failed, starting at 1
	Attempt int
	// Err is the failure reason
	Err error
	// Wait is the delay before the next attempt
	Wait time.Duration
}

// RetryListener observes retries. Listeners run synchronously on the calling
// goroutine and must not block.
type RetryListener func(RetryEvent)
