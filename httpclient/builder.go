package httpclient

import (
	"fmt"
	"maps"
	nethttp "net/http"
	"time"

	"go.opentelemetry.io/otel/metric"
	oteltrace "go.opentelemetry.io/otel/trace"

	"github.com/gaborage/resilient-http/httpclient/internal/tracking"
	"github.com/gaborage/resilient-http/logger"
	"github.com/gaborage/resilient-http/resilience"
)

// Builder provides a fluent interface for configuring the client
type Builder struct {
	config         Config
	logger         logger.Logger
	limiter        resilience.Limiter
	listeners      []resilience.RetryListener
	transport      Transport
	httpClient     *nethttp.Client
	roundTripper   nethttp.RoundTripper
	meterProvider  metric.MeterProvider
	tracerProvider oteltrace.TracerProvider
}

// NewBuilder creates a builder starting from DefaultConfig
func NewBuilder(log logger.Logger) *Builder {
	return &Builder{
		config: DefaultConfig(),
		logger: log,
	}
}

// NewClient creates a client with the default configuration
func NewClient(log logger.Logger) Client {
	c, err := NewBuilder(log).Build()
	if err != nil {
		// DefaultConfig is always valid
		panic(err)
	}
	return c
}

// WithConfig replaces the whole configuration
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cfg
	b.config.DefaultHeaders = maps.Clone(cfg.DefaultHeaders)
	if b.config.DefaultHeaders == nil {
		b.config.DefaultHeaders = make(map[string]string)
	}
	return b
}

// WithBaseURL sets the prefix for relative request URLs
func (b *Builder) WithBaseURL(baseURL string) *Builder {
	b.config.BaseURL = baseURL
	return b
}

// WithTimeout sets both the connect and the per-request timeout
func (b *Builder) WithTimeout(timeout time.Duration) *Builder {
	b.config.ConnectTimeout = timeout
	b.config.RequestTimeout = timeout
	return b
}

// WithConnectTimeout sets the connection establishment timeout
func (b *Builder) WithConnectTimeout(timeout time.Duration) *Builder {
	b.config.ConnectTimeout = timeout
	return b
}

// WithRequestTimeout sets the timeout of a single attempt
func (b *Builder) WithRequestTimeout(timeout time.Duration) *Builder {
	b.config.RequestTimeout = timeout
	return b
}

// WithRateLimit enables a fixed window rate limiter
func (b *Builder) WithRateLimit(cfg resilience.RateLimitConfig) *Builder {
	b.config.RateLimitEnabled = true
	b.config.RateLimitStrategy = FixedWindow
	b.config.RateLimit = cfg
	return b
}

// WithTokenBucket enables a token bucket rate limiter
func (b *Builder) WithTokenBucket(cfg resilience.RateLimitConfig) *Builder {
	b.config.RateLimitEnabled = true
	b.config.RateLimitStrategy = TokenBucket
	b.config.RateLimit = cfg
	return b
}

// WithLimiter uses l instead of a limiter built from the configuration.
// Sharing one Limiter between clients shares their permit budget.
func (b *Builder) WithLimiter(l resilience.Limiter) *Builder {
	b.limiter = l
	b.config.RateLimitEnabled = l != nil
	return b
}

// WithoutRateLimit disables rate limiting
func (b *Builder) WithoutRateLimit() *Builder {
	b.config.RateLimitEnabled = false
	b.limiter = nil
	return b
}

// WithRetry sets the retry policy
func (b *Builder) WithRetry(policy resilience.RetryPolicy) *Builder {
	b.config.RetryEnabled = true
	b.config.Retry = policy
	return b
}

// WithoutRetry runs every call as a single attempt
func (b *Builder) WithoutRetry() *Builder {
	b.config.RetryEnabled = false
	return b
}

// WithRetryListener adds a listener notified before every retry
func (b *Builder) WithRetryListener(l resilience.RetryListener) *Builder {
	b.listeners = append(b.listeners, l)
	return b
}

// WithBasicAuth sets basic authentication credentials
func (b *Builder) WithBasicAuth(username, password string) *Builder {
	b.config.BasicAuth = &BasicAuth{
		Username: username,
		Password: password,
	}
	return b
}

// WithDefaultHeader adds a header sent with every request; per-call headers override it
func (b *Builder) WithDefaultHeader(key, value string) *Builder {
	b.config.DefaultHeaders[key] = value
	return b
}

// WithRequestInterceptor adds a request interceptor
func (b *Builder) WithRequestInterceptor(interceptor RequestInterceptor) *Builder {
	b.config.RequestInterceptors = append(b.config.RequestInterceptors, interceptor)
	return b
}

// WithRequestIDHeader sets the header carrying the per-call request ID; empty disables it
func (b *Builder) WithRequestIDHeader(header string) *Builder {
	b.config.RequestIDHeader = header
	return b
}

// WithHTTPClient uses hc for round trips. Its own timeouts apply and the
// configured connect and request timeouts are ignored.
func (b *Builder) WithHTTPClient(hc *nethttp.Client) *Builder {
	b.httpClient = hc
	return b
}

// WithRoundTripper uses rt under an http.Client bounded by the request timeout
func (b *Builder) WithRoundTripper(rt nethttp.RoundTripper) *Builder {
	b.roundTripper = rt
	return b
}

// WithTransport replaces the net/http transport adapter entirely.
// Basic auth and request interceptors are not applied by custom transports.
func (b *Builder) WithTransport(t Transport) *Builder {
	b.transport = t
	return b
}

// WithMeterProvider records client metrics on mp instead of the global provider
func (b *Builder) WithMeterProvider(mp metric.MeterProvider) *Builder {
	b.meterProvider = mp
	return b
}

// WithTracerProvider records client spans on tp instead of the global provider
func (b *Builder) WithTracerProvider(tp oteltrace.TracerProvider) *Builder {
	b.tracerProvider = tp
	return b
}

// Build validates the configuration and creates the client
func (b *Builder) Build() (Client, error) {
	limiter, err := b.buildLimiter()
	if err != nil {
		return nil, err
	}

	retry := resilience.NoRetry()
	if b.config.RetryEnabled {
		retry = b.config.Retry
	}

	log := b.logger
	if log == nil {
		log = logger.Nop()
	}

	cfg := b.config
	cfg.DefaultHeaders = maps.Clone(b.config.DefaultHeaders)
	cfg.RequestInterceptors = append([]RequestInterceptor(nil), b.config.RequestInterceptors...)

	c := &client{
		config:    &cfg,
		logger:    log,
		transport: b.buildTransport(&cfg),
		metrics:   tracking.NewRecorder(b.meterProvider, b.tracerProvider),
	}

	opts := []resilience.PolicyOption{resilience.WithRetryListener(c.onRetry)}
	for _, l := range b.listeners {
		opts = append(opts, resilience.WithRetryListener(l))
	}
	c.policy, err = resilience.NewPolicy(limiter, retry, opts...)
	if err != nil {
		return nil, err
	}
	return c, nil
}

func (b *Builder) buildLimiter() (resilience.Limiter, error) {
	if !b.config.RateLimitEnabled {
		return resilience.Unlimited(), nil
	}
	if b.limiter != nil {
		return b.limiter, nil
	}
	switch b.config.RateLimitStrategy {
	case FixedWindow, "":
		return resilience.NewFixedWindowLimiter(b.config.RateLimit)
	case TokenBucket:
		return resilience.NewTokenBucketLimiter(b.config.RateLimit)
	default:
		return nil, fmt.Errorf("%w: unknown rate limit strategy %q", resilience.ErrInvalidConfig, b.config.RateLimitStrategy)
	}
}

func (b *Builder) buildTransport(cfg *Config) Transport {
	if b.transport != nil {
		return b.transport
	}
	hc := b.httpClient
	if hc == nil {
		hc = newHTTPClient(b.roundTripper, cfg.ConnectTimeout, cfg.RequestTimeout)
	}
	return &httpTransport{
		httpClient:   hc,
		auth:         cfg.BasicAuth,
		interceptors: cfg.RequestInterceptors,
	}
}
