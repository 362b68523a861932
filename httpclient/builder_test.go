package httpclient

import (
	"context"
	nethttp "net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gaborage/resilient-http/resilience"
)

func buildImpl(t *testing.T, b *Builder) *client {
	t.Helper()
	c, err := b.Build()
	require.NoError(t, err)
	impl, ok := c.(*client)
	require.True(t, ok)
	return impl
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, 10*time.Second, cfg.ConnectTimeout)
	assert.Equal(t, 10*time.Second, cfg.RequestTimeout)
	assert.True(t, cfg.RateLimitEnabled)
	assert.Equal(t, FixedWindow, cfg.RateLimitStrategy)
	assert.Equal(t, resilience.RateLimitConfig{Permits: 5, Period: time.Second, AcquireTimeout: time.Second}, cfg.RateLimit)
	assert.True(t, cfg.RetryEnabled)
	assert.Equal(t, resilience.RetryPolicy{MaxAttempts: 5, Wait: time.Second}, cfg.Retry)
	assert.Equal(t, HeaderXRequestID, cfg.RequestIDHeader)
	assert.NotNil(t, cfg.DefaultHeaders)
}

func TestNewClientUsesDefaults(t *testing.T) {
	c := NewClient(nil)
	impl, ok := c.(*client)
	require.True(t, ok)

	assert.Equal(t, resilience.DefaultRetryPolicy(), impl.policy.Retry())
	assert.NotNil(t, impl.logger)

	transport, ok := impl.transport.(*httpTransport)
	require.True(t, ok)
	assert.Equal(t, DefaultRequestTimeout, transport.httpClient.Timeout)
}

func TestBuilderTimeouts(t *testing.T) {
	impl := buildImpl(t, NewBuilder(nil).WithTimeout(3*time.Second))
	assert.Equal(t, 3*time.Second, impl.config.ConnectTimeout)
	assert.Equal(t, 3*time.Second, impl.config.RequestTimeout)

	impl = buildImpl(t, NewBuilder(nil).WithConnectTimeout(time.Second).WithRequestTimeout(2*time.Second))
	assert.Equal(t, time.Second, impl.config.ConnectTimeout)
	assert.Equal(t, 2*time.Second, impl.transport.(*httpTransport).httpClient.Timeout)
}

func TestBuilderRateLimitStrategies(t *testing.T) {
	cfg := resilience.RateLimitConfig{Permits: 2, Period: time.Second}

	fixed := buildImpl(t, NewBuilder(nil).WithRateLimit(cfg))
	assert.Equal(t, FixedWindow, fixed.config.RateLimitStrategy)

	token := buildImpl(t, NewBuilder(nil).WithTokenBucket(cfg))
	assert.Equal(t, TokenBucket, token.config.RateLimitStrategy)

	disabled := buildImpl(t, NewBuilder(nil).WithRateLimit(cfg).WithoutRateLimit())
	assert.False(t, disabled.config.RateLimitEnabled)

	_, err := NewBuilder(nil).WithRateLimit(resilience.RateLimitConfig{}).Build()
	assert.ErrorIs(t, err, resilience.ErrInvalidConfig)

	bad := DefaultConfig()
	bad.RateLimitStrategy = "leaky"
	_, err = NewBuilder(nil).WithConfig(bad).Build()
	assert.ErrorIs(t, err, resilience.ErrInvalidConfig)
}

func TestBuilderTokenBucketLimitsCalls(t *testing.T) {
	transport := newScriptedTransport(respondOK(`{}`))
	c, err := NewBuilder(nil).
		WithTransport(transport).
		WithTokenBucket(resilience.RateLimitConfig{Permits: 2, Period: time.Minute}).
		Build()
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, c.Get(ctx, testURL, nil, nil))
	assert.True(t, IsErrorType(c.Get(ctx, testURL, nil, nil), RateLimitError))
	assert.Equal(t, 1, transport.callCount())
}

func TestBuilderWithLimiterNilDisablesRateLimit(t *testing.T) {
	impl := buildImpl(t, NewBuilder(nil).WithLimiter(nil))
	assert.False(t, impl.config.RateLimitEnabled)
}

func TestBuilderRetry(t *testing.T) {
	impl := buildImpl(t, NewBuilder(nil).WithRetry(resilience.RetryPolicy{MaxAttempts: 2, Wait: time.Millisecond}))
	assert.Equal(t, 2, impl.policy.Retry().MaxAttempts)

	impl = buildImpl(t, NewBuilder(nil).WithoutRetry())
	assert.Equal(t, resilience.NoRetry(), impl.policy.Retry())

	_, err := NewBuilder(nil).WithRetry(resilience.RetryPolicy{MaxAttempts: 0}).Build()
	assert.ErrorIs(t, err, resilience.ErrInvalidConfig)
}

func TestBuiltClientIsIsolatedFromBuilder(t *testing.T) {
	transport := newScriptedTransport(respondOK(`{}`))
	b := NewBuilder(nil).WithTransport(transport).WithDefaultHeader("X-Version", "1")
	c, err := b.Build()
	require.NoError(t, err)

	b.WithDefaultHeader("X-Version", "2").WithDefaultHeader("X-Late", "yes")
	require.NoError(t, c.Get(context.Background(), testURL, nil, nil))

	req := transport.lastRequest()
	assert.Equal(t, "1", req.Header.Get("X-Version"))
	assert.Empty(t, req.Header.Get("X-Late"))
}

func TestWithConfigCopiesHeaders(t *testing.T) {
	cfg := DefaultConfig()
	cfg.DefaultHeaders["X-Env"] = "prod"
	b := NewBuilder(nil).WithConfig(cfg)
	cfg.DefaultHeaders["X-Env"] = "dev"

	impl := buildImpl(t, b)
	assert.Equal(t, "prod", impl.config.DefaultHeaders["X-Env"])

	cfg.DefaultHeaders = nil
	impl = buildImpl(t, NewBuilder(nil).WithConfig(cfg).WithDefaultHeader("X-A", "b"))
	assert.Equal(t, "b", impl.config.DefaultHeaders["X-A"])
}

func TestBuilderBasicAuthAndInterceptors(t *testing.T) {
	interceptor := func(context.Context, *nethttp.Request) error { return nil }
	impl := buildImpl(t, NewBuilder(nil).WithBasicAuth("u", "p").WithRequestInterceptor(interceptor))

	transport, ok := impl.transport.(*httpTransport)
	require.True(t, ok)
	assert.Equal(t, &BasicAuth{Username: "u", Password: "p"}, transport.auth)
	assert.Len(t, transport.interceptors, 1)
}

func TestBuilderRetryListenersRunAfterClientListener(t *testing.T) {
	log := &fakeLogger{}
	var seen []int
	c, err := NewBuilder(log).
		WithTransport(newScriptedTransport(respondStatus(nethttp.StatusBadGateway))).
		WithoutRateLimit().
		WithRetry(fastRetry(3)).
		WithRetryListener(func(ev resilience.RetryEvent) {
			assert.Len(t, log.eventsByMessage(testClientRetrying), ev.Attempt)
			seen = append(seen, ev.Attempt)
		}).
		Build()
	require.NoError(t, err)

	require.Error(t, c.Get(context.Background(), testURL, nil, nil))
	assert.Equal(t, []int{1, 2}, seen)
}
