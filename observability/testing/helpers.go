// Package testing provides in-memory OpenTelemetry providers and assertion
// helpers for tests that exercise client instrumentation.
//
// Usage:
//
//	mp := NewTestMeterProvider()
//	defer mp.Shutdown(context.Background())
//
//	client, _ := httpclient.NewBuilder(log).WithMeterProvider(mp).Build()
//	// ... perform calls
//
//	rm := mp.Collect(t)
//	assert.Equal(t, int64(2), SumInt64(rm, "http.client.retries"))
package testing

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

const attrValueMismatchErrMsg = "attribute %s value mismatch"

// TestTraceProvider wraps the SDK TracerProvider and in-memory exporter for testing.
type TestTraceProvider struct {
	*sdktrace.TracerProvider
	Exporter *tracetest.InMemoryExporter
}

// NewTestTraceProvider creates a TracerProvider that exports synchronously
// into memory, so spans are visible as soon as they end.
func NewTestTraceProvider() *TestTraceProvider {
	exporter := tracetest.NewInMemoryExporter()
	return &TestTraceProvider{
		TracerProvider: sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter)),
		Exporter:       exporter,
	}
}

// TestMeterProvider wraps the SDK MeterProvider and manual reader for testing.
type TestMeterProvider struct {
	*sdkmetric.MeterProvider
	Reader *sdkmetric.ManualReader
}

// NewTestMeterProvider creates a MeterProvider read on demand by Collect.
func NewTestMeterProvider() *TestMeterProvider {
	reader := sdkmetric.NewManualReader()
	return &TestMeterProvider{
		MeterProvider: sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader)),
		Reader:        reader,
	}
}

// Collect reads all metrics recorded so far.
func (tmp *TestMeterProvider) Collect(t *testing.T) metricdata.ResourceMetrics {
	t.Helper()
	var rm metricdata.ResourceMetrics
	require.NoError(t, tmp.Reader.Collect(context.Background(), &rm), "failed to collect metrics")
	return rm
}

// FindMetric finds a metric by name. Returns nil if not found.
func FindMetric(rm metricdata.ResourceMetrics, metricName string) *metricdata.Metrics {
	for _, sm := range rm.ScopeMetrics {
		for i := range sm.Metrics {
			if sm.Metrics[i].Name == metricName {
				return &sm.Metrics[i]
			}
		}
	}
	return nil
}

// SumInt64 adds up every data point of an int64 counter.
// It returns 0 when the metric was never recorded.
func SumInt64(rm metricdata.ResourceMetrics, metricName string) int64 {
	m := FindMetric(rm, metricName)
	if m == nil {
		return 0
	}
	data, ok := m.Data.(metricdata.Sum[int64])
	if !ok {
		return 0
	}
	var total int64
	for _, dp := range data.DataPoints {
		total += dp.Value
	}
	return total
}

// HistogramCount adds up the observation counts of every data point of a float64 histogram.
func HistogramCount(rm metricdata.ResourceMetrics, metricName string) uint64 {
	m := FindMetric(rm, metricName)
	if m == nil {
		return 0
	}
	data, ok := m.Data.(metricdata.Histogram[float64])
	if !ok {
		return 0
	}
	var total uint64
	for _, dp := range data.DataPoints {
		total += dp.Count
	}
	return total
}

// SpanCollector provides a fluent API for filtering and asserting on captured spans.
type SpanCollector struct {
	t     *testing.T
	spans tracetest.SpanStubs
}

// NewSpanCollector creates a span collector from an in-memory exporter.
func NewSpanCollector(t *testing.T, exporter *tracetest.InMemoryExporter) *SpanCollector {
	t.Helper()
	return &SpanCollector{t: t, spans: exporter.GetSpans()}
}

// Len returns the number of collected spans.
func (sc *SpanCollector) Len() int {
	return len(sc.spans)
}

// WithName filters spans by name.
func (sc *SpanCollector) WithName(name string) *SpanCollector {
	return sc.filter(func(s *tracetest.SpanStub) bool { return s.Name == name })
}

// WithAttribute filters spans carrying key with the given value.
func (sc *SpanCollector) WithAttribute(key string, value any) *SpanCollector {
	return sc.filter(func(s *tracetest.SpanStub) bool {
		for _, attr := range s.Attributes {
			if attr.Key == attribute.Key(key) && matchesValue(attr.Value, value) {
				return true
			}
		}
		return false
	})
}

func (sc *SpanCollector) filter(keep func(*tracetest.SpanStub) bool) *SpanCollector {
	filtered := make(tracetest.SpanStubs, 0, len(sc.spans))
	for i := range sc.spans {
		if keep(&sc.spans[i]) {
			filtered = append(filtered, sc.spans[i])
		}
	}
	return &SpanCollector{t: sc.t, spans: filtered}
}

// First returns the first span in the collection.
// Fails the test if the collection is empty.
func (sc *SpanCollector) First() tracetest.SpanStub {
	sc.t.Helper()
	require.NotEmpty(sc.t, sc.spans, "no spans in collection")
	return sc.spans[0]
}

// AssertCount asserts the number of collected spans.
func (sc *SpanCollector) AssertCount(expected int) *SpanCollector {
	sc.t.Helper()
	assert.Len(sc.t, sc.spans, expected, "unexpected number of spans")
	return sc
}

func matchesValue(attrValue attribute.Value, expected any) bool {
	switch v := expected.(type) {
	case string:
		return attrValue.AsString() == v
	case int:
		return attrValue.AsInt64() == int64(v)
	case int64:
		return attrValue.AsInt64() == v
	case bool:
		return attrValue.AsBool() == v
	default:
		return false
	}
}

// AssertSpanAttribute asserts that a span has a specific attribute with the expected value.
func AssertSpanAttribute(t *testing.T, span *tracetest.SpanStub, key string, expected any) {
	t.Helper()
	for _, attr := range span.Attributes {
		if string(attr.Key) == key {
			assert.True(t, matchesValue(attr.Value, expected), attrValueMismatchErrMsg, key)
			return
		}
	}
	t.Errorf("attribute %s not found in span", key)
}

// AssertSpanError asserts that a span ended with an error status.
func AssertSpanError(t *testing.T, span *tracetest.SpanStub) {
	t.Helper()
	assert.Equal(t, codes.Error, span.Status.Code, "expected error status")
}
