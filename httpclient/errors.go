package httpclient

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/gaborage/resilient-http/resilience"
)

// ClientError is implemented by every error a verb call returns.
type ClientError interface {
	error
	Type() ErrorType
}

// ErrorType defines the category of client error
type ErrorType string

const (
	// EncodingError means the request could not be built; nothing was sent
	EncodingError ErrorType = "encoding"
	// RateLimitError means no permit was acquired within the acquire timeout
	RateLimitError ErrorType = "rate_limit"
	// RetryExhaustedError means every attempt failed
	RetryExhaustedError ErrorType = "retry_exhausted"
	// DecodingError means a successful response body could not be decoded
	DecodingError ErrorType = "decoding"
)

// encodingError represents request build failures
type encodingError struct {
	message string
	wrapped error
}

func (e *encodingError) Error() string {
	if e.wrapped != nil {
		return fmt.Sprintf("encoding error: %s: %v", e.message, e.wrapped)
	}
	return fmt.Sprintf("encoding error: %s", e.message)
}

func (e *encodingError) Type() ErrorType {
	return EncodingError
}

func (e *encodingError) Unwrap() error {
	return e.wrapped
}

// rateLimitError represents a refused rate limit permit
type rateLimitError struct {
	wrapped *resilience.RateLimitExceededError
}

func (e *rateLimitError) Error() string {
	return e.wrapped.Error()
}

func (e *rateLimitError) Type() ErrorType {
	return RateLimitError
}

func (e *rateLimitError) Unwrap() error {
	return e.wrapped
}

// retryExhaustedError represents a call whose attempts all failed
type retryExhaustedError struct {
	wrapped *resilience.RetryExhaustedError
}

func (e *retryExhaustedError) Error() string {
	return e.wrapped.Error()
}

func (e *retryExhaustedError) Type() ErrorType {
	return RetryExhaustedError
}

func (e *retryExhaustedError) Unwrap() error {
	return e.wrapped
}

// Attempts returns the number of attempts that ran.
func (e *retryExhaustedError) Attempts() int {
	return e.wrapped.Attempts
}

// Last returns the failure of the final attempt.
func (e *retryExhaustedError) Last() error {
	return e.wrapped.Last
}

// decodingError represents an unparseable successful response
type decodingError struct {
	message string
	body    []byte
	wrapped error
}

func (e *decodingError) Error() string {
	return fmt.Sprintf("decoding error: %s: %v", e.message, e.wrapped)
}

func (e *decodingError) Type() ErrorType {
	return DecodingError
}

func (e *decodingError) Unwrap() error {
	return e.wrapped
}

// Body returns the response body that failed to decode.
func (e *decodingError) Body() []byte {
	return e.body
}

// NewEncodingError creates a new encoding error
func NewEncodingError(message string, wrapped error) ClientError {
	return &encodingError{
		message: message,
		wrapped: wrapped,
	}
}

// NewRateLimitError creates a new rate limit error
func NewRateLimitError(timeout time.Duration, cause error) ClientError {
	return &rateLimitError{
		wrapped: &resilience.RateLimitExceededError{Timeout: timeout, Cause: cause},
	}
}

// NewRetryExhaustedError creates a new retry exhausted error
func NewRetryExhaustedError(attempts int, last error) ClientError {
	return &retryExhaustedError{
		wrapped: &resilience.RetryExhaustedError{Attempts: attempts, Last: last},
	}
}

// NewDecodingError creates a new decoding error
func NewDecodingError(message string, body []byte, wrapped error) ClientError {
	return &decodingError{
		message: message,
		body:    body,
		wrapped: wrapped,
	}
}

// StatusError is an attempt failure caused by a non-2xx response.
// It is only ever returned wrapped by a RetryExhaustedError.
type StatusError struct {
	Method     string
	URL        string
	StatusCode int
	Body       []byte
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s %s: unexpected status %d", e.Method, e.URL, e.StatusCode)
}

// HTTPStatus returns the response status code.
func (e *StatusError) HTTPStatus() int {
	return e.StatusCode
}

// TransportError is an attempt failure raised before a response was read.
// It is only ever returned wrapped by a RetryExhaustedError.
type TransportError struct {
	// Op names the failing step: "interceptor", "round trip" or "read body"
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("transport error: %s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// Timeout reports whether the failure was a connect or request timeout.
func (e *TransportError) Timeout() bool {
	if errors.Is(e.Err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(e.Err, &netErr) && netErr.Timeout()
}

// IsErrorType checks if an error is of a specific type
func IsErrorType(err error, errorType ErrorType) bool {
	if err == nil {
		return false
	}
	var clientErr ClientError
	if errors.As(err, &clientErr) {
		return clientErr.Type() == errorType
	}
	return false
}

// IsHTTPStatusError reports whether err wraps a StatusError with the given status code.
func IsHTTPStatusError(err error, statusCode int) bool {
	code, ok := StatusCode(err)
	return ok && code == statusCode
}

// StatusCode returns the status code of the StatusError wrapped by err.
func StatusCode(err error) (int, bool) {
	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return statusErr.StatusCode, true
	}
	return 0, false
}

// IsSuccessStatus checks if a status code represents success (2xx)
func IsSuccessStatus(statusCode int) bool {
	return statusCode >= 200 && statusCode < 300
}

// classify maps a resilience failure into the caller-visible taxonomy.
func classify(err error) ClientError {
	switch e := err.(type) {
	case *resilience.RateLimitExceededError:
		return &rateLimitError{wrapped: e}
	case *resilience.RetryExhaustedError:
		return &retryExhaustedError{wrapped: e}
	default:
		return &retryExhaustedError{wrapped: &resilience.RetryExhaustedError{Attempts: 1, Last: err}}
	}
}
