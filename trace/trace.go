// Package trace carries request identifiers through a context.Context and
// propagates the active OpenTelemetry span as W3C trace context headers.
package trace

import (
	"context"
	nethttp "net/http"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/propagation"
	oteltrace "go.opentelemetry.io/otel/trace"
)

// contextKey is the type for context keys to avoid collisions
type contextKey string

const (
	requestIDKey contextKey = "request_id"

	// HeaderXRequestID is the default header carrying the request ID
	HeaderXRequestID = "X-Request-ID"
	// HeaderTraceParent is the W3C trace context header name
	HeaderTraceParent = "traceparent"
	// HeaderTraceState carries vendor specific trace data alongside traceparent
	HeaderTraceState = "tracestate"
)

var traceContext = propagation.TraceContext{}

// WithRequestID stores a request ID in the context.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey, id)
}

// RequestIDFromContext returns the request ID stored in ctx, if any.
func RequestIDFromContext(ctx context.Context) (string, bool) {
	if id, ok := ctx.Value(requestIDKey).(string); ok && id != "" {
		return id, true
	}
	return "", false
}

// NewRequestID returns a random UUIDv4 string.
func NewRequestID() string {
	return uuid.NewString()
}

// EnsureRequestID returns ctx carrying a request ID and the ID itself. An ID
// already present in ctx is kept, so every attempt of one call shares it.
func EnsureRequestID(ctx context.Context) (context.Context, string) {
	if id, ok := RequestIDFromContext(ctx); ok {
		return ctx, id
	}
	id := NewRequestID()
	return WithRequestID(ctx, id), id
}

// InjectTraceContext writes traceparent and tracestate for the span context
// active in ctx into h. A traceparent already present in h is kept as is.
// It reports whether headers were written.
func InjectTraceContext(ctx context.Context, h nethttp.Header) bool {
	if h.Get(HeaderTraceParent) != "" {
		return false
	}
	if !oteltrace.SpanContextFromContext(ctx).IsValid() {
		return false
	}
	traceContext.Inject(ctx, propagation.HeaderCarrier(h))
	return true
}
