package observability

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutmetric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	"google.golang.org/grpc/credentials/insecure"
)

// initMeterProvider initializes the OpenTelemetry meter provider.
func (p *provider) initMeterProvider(res *resource.Resource) error {
	exporter, err := p.createMetricExporter()
	if err != nil {
		return fmt.Errorf("failed to create metric exporter: %w", err)
	}

	reader := sdkmetric.NewPeriodicReader(
		exporter,
		sdkmetric.WithInterval(p.config.Metrics.Interval),
		sdkmetric.WithTimeout(p.config.Metrics.ExportTimeout),
	)

	p.meterProvider = sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(reader),
	)
	return nil
}

// createMetricExporter creates a metric exporter based on the configured endpoint.
func (p *provider) createMetricExporter() (sdkmetric.Exporter, error) {
	sc := p.config.Metrics
	if sc.Endpoint == EndpointStdout {
		return stdoutmetric.New(stdoutmetric.WithWriter(p.stdout))
	}

	switch sc.Protocol {
	case ProtocolHTTP:
		opts := []otlpmetrichttp.Option{endpointOption(sc.Endpoint, otlpmetrichttp.WithEndpoint, otlpmetrichttp.WithEndpointURL)}
		if sc.Insecure {
			opts = append(opts, otlpmetrichttp.WithInsecure())
		}
		if len(sc.Headers) > 0 {
			opts = append(opts, otlpmetrichttp.WithHeaders(sc.Headers))
		}
		return otlpmetrichttp.New(context.Background(), opts...)
	case ProtocolGRPC:
		opts := []otlpmetricgrpc.Option{otlpmetricgrpc.WithEndpoint(sc.Endpoint)}
		if sc.Insecure {
			opts = append(opts, otlpmetricgrpc.WithTLSCredentials(insecure.NewCredentials()))
		}
		if len(sc.Headers) > 0 {
			opts = append(opts, otlpmetricgrpc.WithHeaders(sc.Headers))
		}
		return otlpmetricgrpc.New(context.Background(), opts...)
	default:
		return nil, fmt.Errorf("metrics protocol '%s': %w", sc.Protocol, ErrInvalidProtocol)
	}
}
