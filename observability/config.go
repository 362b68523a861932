package observability

import (
	"fmt"
	"strings"
	"time"
)

const (
	// EndpointStdout is a special endpoint value that outputs to stdout (for local development).
	EndpointStdout = "stdout"

	// ProtocolHTTP specifies OTLP over HTTP/protobuf.
	ProtocolHTTP = "http"

	// ProtocolGRPC specifies OTLP over gRPC.
	ProtocolGRPC = "grpc"

	// DefaultMetricsInterval is the default periodic export interval.
	DefaultMetricsInterval = 10 * time.Second

	// DefaultExportTimeout bounds a single export.
	DefaultExportTimeout = 30 * time.Second
)

// Config defines the configuration for observability features.
type Config struct {
	// Enabled controls whether observability is active.
	// When false, all observability operations become no-ops.
	Enabled bool `koanf:"enabled" json:"enabled" yaml:"enabled"`

	// Service contains service identification metadata.
	Service ServiceConfig `koanf:"service" json:"service" yaml:"service"`

	Trace   SignalConfig `koanf:"trace" json:"trace" yaml:"trace"`
	Metrics SignalConfig `koanf:"metrics" json:"metrics" yaml:"metrics"`
}

// ServiceConfig contains service identification metadata.
type ServiceConfig struct {
	// Name identifies the service in traces and metrics.
	// This is required when observability is enabled.
	Name    string `koanf:"name" json:"name" yaml:"name"`
	Version string `koanf:"version" json:"version" yaml:"version"`
}

// SignalConfig configures the export of one signal (traces or metrics).
type SignalConfig struct {
	Enabled bool `koanf:"enabled" json:"enabled" yaml:"enabled"`

	// Endpoint is "stdout" or an OTLP collector address. HTTP endpoints are
	// host:port or a full http(s) URL; gRPC endpoints are host:port.
	Endpoint string `koanf:"endpoint" json:"endpoint" yaml:"endpoint"`

	// Protocol is "http" or "grpc" and is ignored for stdout.
	Protocol string `koanf:"protocol" json:"protocol" yaml:"protocol"`

	Insecure bool              `koanf:"insecure" json:"insecure" yaml:"insecure"`
	Headers  map[string]string `koanf:"headers" json:"headers" yaml:"headers"`

	// Interval is the metrics export interval; unused for traces.
	Interval time.Duration `koanf:"interval" json:"interval" yaml:"interval"`

	// ExportTimeout bounds a single export call.
	ExportTimeout time.Duration `koanf:"exporttimeout" json:"exporttimeout" yaml:"exporttimeout"`
}

// ApplyDefaults sets default values for any config fields that are not specified.
func (c *Config) ApplyDefaults() {
	c.Trace.applyDefaults()
	c.Metrics.applyDefaults()
	if c.Metrics.Interval == 0 {
		c.Metrics.Interval = DefaultMetricsInterval
	}
}

func (s *SignalConfig) applyDefaults() {
	if s.Endpoint == "" {
		s.Endpoint = EndpointStdout
	}
	if s.Protocol == "" {
		s.Protocol = ProtocolHTTP
	}
	if s.ExportTimeout == 0 {
		s.ExportTimeout = DefaultExportTimeout
	}
}

// Validate checks the configuration for errors.
// A disabled configuration is always valid.
func (c *Config) Validate() error {
	if c == nil {
		return ErrNilConfig
	}
	if !c.Enabled {
		return nil
	}
	if c.Service.Name == "" {
		return ErrMissingServiceName
	}
	if c.Trace.Enabled {
		if err := c.Trace.validate(); err != nil {
			return fmt.Errorf("trace: %w", err)
		}
	}
	if c.Metrics.Enabled {
		if err := c.Metrics.validate(); err != nil {
			return fmt.Errorf("metrics: %w", err)
		}
		if c.Metrics.Interval < 0 {
			return fmt.Errorf("metrics: interval %v: %w", c.Metrics.Interval, ErrInvalidInterval)
		}
	}
	return nil
}

func (s *SignalConfig) validate() error {
	if s.Endpoint == EndpointStdout || s.Endpoint == "" {
		return nil
	}
	switch s.Protocol {
	case ProtocolHTTP, "":
		return nil
	case ProtocolGRPC:
		if strings.HasPrefix(s.Endpoint, "http://") || strings.HasPrefix(s.Endpoint, "https://") {
			return fmt.Errorf("grpc endpoint %q must be host:port: %w", s.Endpoint, ErrInvalidEndpointFormat)
		}
		return nil
	default:
		return fmt.Errorf("protocol '%s': %w", s.Protocol, ErrInvalidProtocol)
	}
}
