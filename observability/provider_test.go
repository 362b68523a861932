package observability

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	metricznoop "go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/trace/noop"
)

func stdoutConfig() *Config {
	return &Config{
		Enabled: true,
		Service: ServiceConfig{Name: "resilient-http-test", Version: "1.0.0"},
		Trace:   SignalConfig{Enabled: true, Endpoint: EndpointStdout},
		Metrics: SignalConfig{Enabled: true, Endpoint: EndpointStdout},
	}
}

func TestNewProviderNilConfig(t *testing.T) {
	p, err := NewProvider(nil)
	assert.Nil(t, p)
	assert.ErrorIs(t, err, ErrNilConfig)
}

func TestNewProviderDisabledReturnsNoop(t *testing.T) {
	p, err := NewProvider(&Config{})
	require.NoError(t, err)

	_, ok := p.(*noopProvider)
	assert.True(t, ok)
	assert.IsType(t, noop.TracerProvider{}, p.TracerProvider())
	assert.IsType(t, metricznoop.MeterProvider{}, p.MeterProvider())
	assert.NoError(t, p.ForceFlush(context.Background()))
	assert.NoError(t, p.Shutdown(context.Background()))
}

func TestNewProviderInvalidConfig(t *testing.T) {
	cfg := stdoutConfig()
	cfg.Trace.Endpoint = "otel:4317"
	cfg.Trace.Protocol = "udp"

	_, err := NewProvider(cfg)
	assert.ErrorIs(t, err, ErrInvalidProtocol)
}

func TestNewProviderDoesNotMutateInput(t *testing.T) {
	cfg := stdoutConfig()
	cfg.Trace.Endpoint = ""

	p, err := NewProvider(cfg, WithStdoutWriter(&bytes.Buffer{}), WithoutGlobals())
	require.NoError(t, err)
	defer func() { _ = p.Shutdown(context.Background()) }()

	assert.Empty(t, cfg.Trace.Endpoint)
	assert.Zero(t, cfg.Metrics.Interval)
}

func TestStdoutProviderExportsToWriter(t *testing.T) {
	var buf bytes.Buffer
	p, err := NewProvider(stdoutConfig(), WithStdoutWriter(&buf), WithoutGlobals())
	require.NoError(t, err)

	ctx := context.Background()
	_, span := p.TracerProvider().Tracer("test").Start(ctx, "GET /brands")
	span.End()

	counter, err := p.MeterProvider().Meter("test").Int64Counter("http.client.retries")
	require.NoError(t, err)
	counter.Add(ctx, 1)

	require.NoError(t, Shutdown(p, 0))

	out := buf.String()
	assert.Contains(t, out, "GET /brands")
	assert.Contains(t, out, "http.client.retries")
	assert.Contains(t, out, "resilient-http-test")
}

func TestProviderWithOnlyTracing(t *testing.T) {
	cfg := stdoutConfig()
	cfg.Metrics.Enabled = false

	p, err := NewProvider(cfg, WithStdoutWriter(&bytes.Buffer{}), WithoutGlobals())
	require.NoError(t, err)
	defer func() { _ = p.Shutdown(context.Background()) }()

	assert.IsType(t, metricznoop.MeterProvider{}, p.MeterProvider())
	assert.NotNil(t, p.TracerProvider())
}

func TestProviderWithOTLPTraceExporters(t *testing.T) {
	for _, tc := range []struct {
		name     string
		endpoint string
		protocol string
	}{
		{name: "http host port", endpoint: "localhost:4318", protocol: ProtocolHTTP},
		{name: "http url", endpoint: "http://localhost:4318", protocol: ProtocolHTTP},
		{name: "grpc", endpoint: "localhost:4317", protocol: ProtocolGRPC},
	} {
		t.Run(tc.name, func(t *testing.T) {
			cfg := stdoutConfig()
			cfg.Metrics.Enabled = false
			cfg.Trace = SignalConfig{
				Enabled:  true,
				Endpoint: tc.endpoint,
				Protocol: tc.protocol,
				Insecure: true,
				Headers:  map[string]string{"x-api-key": "secret"},
			}

			p, err := NewProvider(cfg, WithoutGlobals())
			require.NoError(t, err)
			_ = p.Shutdown(context.Background())
		})
	}
}

func TestMustNewProviderPanicsOnInvalidConfig(t *testing.T) {
	cfg := stdoutConfig()
	cfg.Service.Name = ""

	assert.Panics(t, func() { MustNewProvider(cfg) })
	assert.NotPanics(t, func() { MustNewProvider(&Config{}) })
}
