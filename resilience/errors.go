package resilience

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrPermitNotAcquired is the sentinel wrapped by every RateLimitExceededError
	ErrPermitNotAcquired = errors.New("resilience: permit not acquired")

	// ErrInvalidConfig is wrapped by configuration validation failures
	ErrInvalidConfig = errors.New("resilience: invalid configuration")
)

// RateLimitExceededError reports that no permit was granted within the acquire timeout.
type RateLimitExceededError struct {
	// Timeout is the acquire timeout that elapsed
	Timeout time.Duration
	// Cause is set when acquisition was interrupted, e.g. by context cancellation
	Cause error
}

func (e *RateLimitExceededError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("rate limit exceeded: no permit within %v: %v", e.Timeout, e.Cause)
	}
	return fmt.Sprintf("rate limit exceeded: no permit within %v", e.Timeout)
}

func (e *RateLimitExceededError) Unwrap() []error {
	if e.Cause != nil {
		return []error{ErrPermitNotAcquired, e.Cause}
	}
	return []error{ErrPermitNotAcquired}
}

// RetryExhaustedError reports that every attempt failed.
type RetryExhaustedError struct {
	// Attempts is the number of attempts that ran
	Attempts int
	// Last is the failure of the final attempt
	Last error
	// Interrupted is set when the wait before the next attempt was cut short
	Interrupted error
}

func (e *RetryExhaustedError) Error() string {
	if e.Interrupted != nil {
		return fmt.Sprintf("retry interrupted after %d attempt(s): %v: %v", e.Attempts, e.Interrupted, e.Last)
	}
	return fmt.Sprintf("retry exhausted after %d attempt(s): %v", e.Attempts, e.Last)
}

func (e *RetryExhaustedError) Unwrap() []error {
	if e.Interrupted != nil {
		return []error{e.Last, e.Interrupted}
	}
	return []error{e.Last}
}
