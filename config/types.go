package config

import (
	"time"

	"github.com/gaborage/resilient-http/observability"
)

// Config represents the overall application configuration structure.
type Config struct {
	Client        ClientConfig         `koanf:"client" json:"client" yaml:"client"`
	Log           LogConfig            `koanf:"log" json:"log" yaml:"log"`
	Observability observability.Config `koanf:"observability" json:"observability" yaml:"observability"`
}

// ClientConfig configures the resilient HTTP client.
type ClientConfig struct {
	BaseURL         string            `koanf:"baseurl" json:"baseurl" yaml:"baseurl" validate:"omitempty,url"`
	Timeout         TimeoutConfig     `koanf:"timeout" json:"timeout" yaml:"timeout"`
	RateLimit       RateLimitConfig   `koanf:"ratelimit" json:"ratelimit" yaml:"ratelimit"`
	Retry           RetryConfig       `koanf:"retry" json:"retry" yaml:"retry"`
	Headers         map[string]string `koanf:"headers" json:"headers" yaml:"headers"`
	RequestIDHeader string            `koanf:"requestidheader" json:"requestidheader" yaml:"requestidheader"`
}

// TimeoutConfig holds the transport timeouts.
type TimeoutConfig struct {
	Connect time.Duration `koanf:"connect" json:"connect" yaml:"connect" validate:"gt=0"`
	Request time.Duration `koanf:"request" json:"request" yaml:"request" validate:"gt=0"`
}

// RateLimitConfig configures the outbound rate limiter.
type RateLimitConfig struct {
	Enabled        bool          `koanf:"enabled" json:"enabled" yaml:"enabled"`
	Strategy       string        `koanf:"strategy" json:"strategy" yaml:"strategy" validate:"oneof=fixed token"`
	Permits        int           `koanf:"permits" json:"permits" yaml:"permits" validate:"min=1"`
	Period         time.Duration `koanf:"period" json:"period" yaml:"period" validate:"gt=0"`
	AcquireTimeout time.Duration `koanf:"acquiretimeout" json:"acquiretimeout" yaml:"acquiretimeout" validate:"gte=0"`
}

// RetryConfig configures the retry policy.
type RetryConfig struct {
	Enabled     bool          `koanf:"enabled" json:"enabled" yaml:"enabled"`
	MaxAttempts int           `koanf:"maxattempts" json:"maxattempts" yaml:"maxattempts" validate:"min=1"`
	Wait        time.Duration `koanf:"wait" json:"wait" yaml:"wait" validate:"gte=0"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level  string `koanf:"level" json:"level" yaml:"level" validate:"oneof=trace debug info warn error"`
	Pretty bool   `koanf:"pretty" json:"pretty" yaml:"pretty"`
}
