// Package resilience composes a rate limiter and a retry policy around a
// single attempt of an effectful operation.
//
// Composition
//
// The retry loop is the outer structure; the rate limiter gates entry to every
// attempt, retries included:
//
//	for attempt := 1; attempt <= MaxAttempts; attempt++ {
//	    acquire permit            // RateLimitExceededError, terminal
//	    result, err := attempt()
//	    if err == nil { return result }
//	    sleep(Wait)               // skipped after the last attempt
//	}
//	return RetryExhaustedError    // wraps the last attempt failure
//
// A permit that cannot be acquired within the limiter's acquire timeout fails
// the whole call immediately. It is never retried and does not count against
// the attempt budget.
//
// Rate limiters
//
//   - FixedWindowLimiter: at most Permits grants per Period. A caller that
//     finds the window exhausted reserves a permit in a later window if the
//     wait fits in AcquireTimeout, and fails immediately otherwise.
//   - TokenBucketLimiter: smooth refill backed by golang.org/x/time/rate, with
//     the same acquire-timeout contract.
//   - Unlimited: always grants.
//
// Retry
//
// A fixed Wait between attempts, no jitter, no exponential growth. Every
// attempt failure is retryable; callers keep non-retryable work (encoding,
// decoding) outside the attempt closure.
package resilience
