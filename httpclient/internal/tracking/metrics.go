// Package tracking records OpenTelemetry metrics and spans for resilient
// HTTP calls.
package tracking

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

const (
	// InstrumentationName is the meter and tracer name for client telemetry
	InstrumentationName = "github.com/gaborage/resilient-http/httpclient"

	// Metric names following OpenTelemetry HTTP client semantic conventions where they exist
	MetricCallDuration    = "http.client.request.duration" // Histogram in seconds, one point per verb call
	MetricAttemptDuration = "http.client.attempt.duration" // Histogram in seconds, one point per attempt
	MetricRetries         = "http.client.retries"          // Counter
	MetricRateLimited     = "http.client.rate_limited"     // Counter

	// Attribute keys per OTel semantic conventions
	AttrMethod     = "http.request.method"
	AttrStatusCode = "http.response.status_code"
	AttrURL        = "url.full"
	AttrErrorType  = "error.type"
	AttrAttempt    = "http.request.resend_count"
	AttrRequestID  = "http.request.id"
)

// Recorder holds the client's metric instruments and tracer.
// A nil *Recorder records nothing.
type Recorder struct {
	tracer          trace.Tracer
	callDuration    metric.Float64Histogram
	attemptDuration metric.Float64Histogram
	retries         metric.Int64Counter
	rateLimited     metric.Int64Counter
}

// logMetricError logs a metric initialization error to stderr.
func logMetricError(metricName string, err error) {
	if err != nil {
		fmt.Fprintf(os.Stderr, "WARNING: Failed to initialize http client metric %s: %v\n", metricName, err)
	}
}

// NewRecorder creates instruments on mp and a tracer on tp.
// Nil providers fall back to the otel globals.
func NewRecorder(mp metric.MeterProvider, tp trace.TracerProvider) *Recorder {
	if mp == nil {
		mp = otel.GetMeterProvider()
	}
	if tp == nil {
		tp = otel.GetTracerProvider()
	}

	meter := mp.Meter(InstrumentationName)
	r := &Recorder{tracer: tp.Tracer(InstrumentationName)}

	var err error
	r.callDuration, err = meter.Float64Histogram(
		MetricCallDuration,
		metric.WithDescription("Duration of resilient HTTP calls including rate limit waits and retries"),
		metric.WithUnit("s"),
	)
	logMetricError(MetricCallDuration, err)

	r.attemptDuration, err = meter.Float64Histogram(
		MetricAttemptDuration,
		metric.WithDescription("Duration of single HTTP round trips"),
		metric.WithUnit("s"),
	)
	logMetricError(MetricAttemptDuration, err)

	r.retries, err = meter.Int64Counter(
		MetricRetries,
		metric.WithDescription("Number of retried attempts"),
		metric.WithUnit("{retry}"),
	)
	logMetricError(MetricRetries, err)

	r.rateLimited, err = meter.Int64Counter(
		MetricRateLimited,
		metric.WithDescription("Number of calls refused by the rate limiter"),
		metric.WithUnit("{call}"),
	)
	logMetricError(MetricRateLimited, err)

	return r
}

// StartCall opens the span covering a whole verb call.
func (r *Recorder) StartCall(ctx context.Context, method, url, requestID string) (context.Context, trace.Span) {
	if r == nil {
		return ctx, trace.SpanFromContext(ctx)
	}
	return r.tracer.Start(ctx, "HTTP "+method,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String(AttrMethod, method),
			attribute.String(AttrURL, url),
			attribute.String(AttrRequestID, requestID),
		),
	)
}

// StartAttempt opens a child span for one attempt.
func (r *Recorder) StartAttempt(ctx context.Context, method string, attempt int) (context.Context, trace.Span) {
	if r == nil {
		return ctx, trace.SpanFromContext(ctx)
	}
	return r.tracer.Start(ctx, "HTTP "+method+" attempt",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String(AttrMethod, method),
			attribute.Int(AttrAttempt, attempt-1),
		),
	)
}

// EndAttempt records the attempt duration and closes its span.
// status is zero when no response was received.
func (r *Recorder) EndAttempt(ctx context.Context, span trace.Span, method string, status int, duration time.Duration, err error) {
	if r == nil {
		return
	}
	attrs := statusAttrs(method, status, err)
	if r.attemptDuration != nil {
		r.attemptDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(attrs...))
	}
	endSpan(span, attrs, err)
}

// EndCall records the call duration and closes the call span.
// errorType is empty for a successful call.
func (r *Recorder) EndCall(ctx context.Context, span trace.Span, method string, status int, duration time.Duration, errorType string, err error) {
	if r == nil {
		return
	}
	attrs := []attribute.KeyValue{attribute.String(AttrMethod, method)}
	if status != 0 {
		attrs = append(attrs, attribute.Int(AttrStatusCode, status))
	}
	if errorType != "" {
		attrs = append(attrs, attribute.String(AttrErrorType, errorType))
	}
	if r.callDuration != nil {
		r.callDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(attrs...))
	}
	endSpan(span, attrs, err)
}

// RecordRetry counts a retry of the given failed attempt.
func (r *Recorder) RecordRetry(ctx context.Context, attempt int, err error) {
	if r == nil || r.retries == nil {
		return
	}
	r.retries.Add(ctx, 1, metric.WithAttributes(
		attribute.Int(AttrAttempt, attempt),
		attribute.String(AttrErrorType, ClassifyError(err)),
	))
}

// RecordRateLimited counts a call refused by the rate limiter.
func (r *Recorder) RecordRateLimited(ctx context.Context, method string) {
	if r == nil || r.rateLimited == nil {
		return
	}
	r.rateLimited.Add(ctx, 1, metric.WithAttributes(attribute.String(AttrMethod, method)))
}

func statusAttrs(method string, status int, err error) []attribute.KeyValue {
	attrs := []attribute.KeyValue{attribute.String(AttrMethod, method)}
	if status != 0 {
		attrs = append(attrs, attribute.Int(AttrStatusCode, status))
	}
	if err != nil {
		attrs = append(attrs, attribute.String(AttrErrorType, ClassifyError(err)))
	}
	return attrs
}

func endSpan(span trace.Span, attrs []attribute.KeyValue, err error) {
	span.SetAttributes(attrs...)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

// statusCoder is implemented by attempt failures that carry a response status.
type statusCoder interface {
	HTTPStatus() int
}

// timeouter is implemented by transport failures that can tell a timeout apart.
type timeouter interface {
	Timeout() bool
}

// ClassifyError returns a low-cardinality error.type value: the status code
// for status failures, "timeout" or "transport" for round-trip failures.
func ClassifyError(err error) string {
	switch e := err.(type) {
	case nil:
		return ""
	case statusCoder:
		return strconv.Itoa(e.HTTPStatus())
	case timeouter:
		if e.Timeout() {
			return "timeout"
		}
		return "transport"
	default:
		return "error"
	}
}
