package httpclient

import (
	"github.com/gaborage/resilient-http/config"
	"github.com/gaborage/resilient-http/logger"
	"github.com/gaborage/resilient-http/resilience"
)

// FromConfig maps the file/env client configuration onto a Config.
// Zero timeouts keep their defaults.
func FromConfig(cfg *config.ClientConfig) Config {
	c := DefaultConfig()
	if cfg == nil {
		return c
	}

	c.BaseURL = cfg.BaseURL
	if cfg.Timeout.Connect > 0 {
		c.ConnectTimeout = cfg.Timeout.Connect
	}
	if cfg.Timeout.Request > 0 {
		c.RequestTimeout = cfg.Timeout.Request
	}

	c.RateLimitEnabled = cfg.RateLimit.Enabled
	if cfg.RateLimit.Strategy != "" {
		c.RateLimitStrategy = RateLimitStrategy(cfg.RateLimit.Strategy)
	}
	c.RateLimit = resilience.RateLimitConfig{
		Permits:        cfg.RateLimit.Permits,
		Period:         cfg.RateLimit.Period,
		AcquireTimeout: cfg.RateLimit.AcquireTimeout,
	}

	c.RetryEnabled = cfg.Retry.Enabled
	c.Retry = resilience.RetryPolicy{
		MaxAttempts: cfg.Retry.MaxAttempts,
		Wait:        cfg.Retry.Wait,
	}

	for k, v := range cfg.Headers {
		c.DefaultHeaders[k] = v
	}
	c.RequestIDHeader = cfg.RequestIDHeader
	return c
}

// NewFromConfig builds a client from loaded configuration. Further options
// can be applied with NewBuilder(log).WithConfig(FromConfig(cfg)).
func NewFromConfig(cfg *config.ClientConfig, log logger.Logger) (Client, error) {
	return NewBuilder(log).WithConfig(FromConfig(cfg)).Build()
}
