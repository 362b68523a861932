package httpclient

import (
	"context"
	nethttp "net/http"
	"time"

	"github.com/gaborage/resilient-http/resilience"
	"github.com/gaborage/resilient-http/trace"
)

const (
	// HeaderXRequestID is the default header carrying the per-call request ID
	HeaderXRequestID = trace.HeaderXRequestID
	// HeaderTraceParent is the W3C trace context header name
	HeaderTraceParent = trace.HeaderTraceParent
	// HeaderTraceState is the W3C trace state header name
	HeaderTraceState = trace.HeaderTraceState
)

// Client performs JSON-over-HTTP calls under a rate limit and a retry policy.
//
// Every error returned by a Client is a ClientError of exactly one of the
// types EncodingError, RateLimitError, RetryExhaustedError or DecodingError.
type Client interface {
	// Get decodes the response body into out. A nil out discards the body.
	Get(ctx context.Context, url string, headers map[string]string, out any) error
	// Post encodes body as JSON when non-nil and decodes the response into out.
	Post(ctx context.Context, url string, headers map[string]string, body, out any) error
	// Put encodes body as JSON when non-nil and decodes the response into out.
	Put(ctx context.Context, url string, headers map[string]string, body, out any) error
	// Patch encodes body as JSON when non-nil and decodes the response into out.
	Patch(ctx context.Context, url string, headers map[string]string, body, out any) error
	// Delete never decodes the response body.
	Delete(ctx context.Context, url string, headers map[string]string) error
	// Do runs the resilient pipeline with a pre-encoded body and returns the raw response.
	Do(ctx context.Context, method string, req *Request) (*Response, error)
}

// Request is a pre-encoded request for Client.Do
type Request struct {
	URL     string
	Headers map[string]string
	// Body is sent as-is; nil means no body
	Body []byte
	Auth *BasicAuth
}

// Response is the raw outcome of a successful call
type Response struct {
	StatusCode int
	Body       []byte
	Headers    nethttp.Header
	Stats      Stats
}

// Stats contains call execution statistics
type Stats struct {
	// ElapsedTime covers permit waits, every attempt and the waits between them
	ElapsedTime time.Duration
	// Attempts is the number of attempts the call used
	Attempts int
	// CallCount is the client-wide sequence number of this call
	CallCount int64
}

// BasicAuth contains basic authentication credentials
type BasicAuth struct {
	Username string
	Password string
}

// RequestInterceptor is called before each attempt is sent.
// A returned error fails that attempt.
type RequestInterceptor func(ctx context.Context, req *nethttp.Request) error

// RateLimitStrategy selects the rate limiter implementation
type RateLimitStrategy string

const (
	// FixedWindow grants at most Permits per Period window
	FixedWindow RateLimitStrategy = "fixed"
	// TokenBucket spaces permits Period/Permits apart without bursting
	TokenBucket RateLimitStrategy = "token"
)

// Config holds the client configuration
type Config struct {
	// BaseURL is prepended to relative request URLs
	BaseURL string
	// ConnectTimeout bounds connection establishment
	ConnectTimeout time.Duration
	// RequestTimeout bounds one attempt, from dial to reading the body
	RequestTimeout time.Duration

	RateLimitEnabled  bool
	RateLimitStrategy RateLimitStrategy
	RateLimit         resilience.RateLimitConfig

	RetryEnabled bool
	Retry        resilience.RetryPolicy

	RequestInterceptors []RequestInterceptor
	BasicAuth           *BasicAuth
	DefaultHeaders      map[string]string
	// RequestIDHeader is set on every attempt of a call; empty disables it
	RequestIDHeader string
}

// DefaultConfig returns a configuration with rate limiting and retry enabled:
// 10s timeouts, 5 permits per second with a 1s acquire timeout, and 5
// attempts with a fixed 1s wait.
func DefaultConfig() Config {
	return Config{
		ConnectTimeout:    DefaultConnectTimeout,
		RequestTimeout:    DefaultRequestTimeout,
		RateLimitEnabled:  true,
		RateLimitStrategy: FixedWindow,
		RateLimit:         resilience.DefaultRateLimitConfig(),
		RetryEnabled:      true,
		Retry:             resilience.DefaultRetryPolicy(),
		DefaultHeaders:    make(map[string]string),
		RequestIDHeader:   HeaderXRequestID,
	}
}
