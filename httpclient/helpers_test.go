package httpclient

import (
	"context"
	"maps"
	"net"
	nethttp "net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gaborage/resilient-http/logger"
	"github.com/gaborage/resilient-http/resilience"
)

// fakeLogEvent implements logger.LogEvent for testing
type fakeLogEvent struct {
	logger *fakeLogger
	level  string
	fields map[string]any
}

func (e *fakeLogEvent) Msg(msg string) {
	e.logger.record(loggedEvent{level: e.level, fields: maps.Clone(e.fields), message: msg})
}

func (e *fakeLogEvent) Msgf(format string, _ ...any) {
	e.Msg(format)
}

func (e *fakeLogEvent) Err(err error) logger.LogEvent {
	e.fields["error"] = err
	return e
}

func (e *fakeLogEvent) Str(key, value string) logger.LogEvent {
	e.fields[key] = value
	return e
}

func (e *fakeLogEvent) Int(key string, value int) logger.LogEvent {
	e.fields[key] = value
	return e
}

func (e *fakeLogEvent) Int64(key string, value int64) logger.LogEvent {
	e.fields[key] = value
	return e
}

func (e *fakeLogEvent) Uint64(key string, value uint64) logger.LogEvent {
	e.fields[key] = value
	return e
}

func (e *fakeLogEvent) Bool(key string, value bool) logger.LogEvent {
	e.fields[key] = value
	return e
}

func (e *fakeLogEvent) Dur(key string, d time.Duration) logger.LogEvent {
	e.fields[key] = d
	return e
}

func (e *fakeLogEvent) Interface(key string, i any) logger.LogEvent {
	e.fields[key] = i
	return e
}

func (e *fakeLogEvent) Bytes(key string, val []byte) logger.LogEvent {
	e.fields[key] = val
	return e
}

// fakeLogger implements logger.Logger for testing
type fakeLogger struct {
	mu     sync.Mutex
	events []loggedEvent
}

type loggedEvent struct {
	level   string
	fields  map[string]any
	message string
}

func (l *fakeLogger) newEvent(level string) logger.LogEvent {
	return &fakeLogEvent{logger: l, level: level, fields: make(map[string]any)}
}

func (l *fakeLogger) Info() logger.LogEvent  { return l.newEvent("info") }
func (l *fakeLogger) Error() logger.LogEvent { return l.newEvent("error") }
func (l *fakeLogger) Debug() logger.LogEvent { return l.newEvent("debug") }
func (l *fakeLogger) Warn() logger.LogEvent  { return l.newEvent("warn") }
func (l *fakeLogger) Fatal() logger.LogEvent { return l.newEvent("fatal") }

func (l *fakeLogger) WithFields(_ map[string]any) logger.Logger {
	return l
}

func (l *fakeLogger) record(ev loggedEvent) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, ev)
}

func (l *fakeLogger) eventsByMessage(message string) []loggedEvent {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []loggedEvent
	for _, ev := range l.events {
		if ev.message == message {
			out = append(out, ev)
		}
	}
	return out
}

// countingLimiter counts granted permits and refuses once refuseAfter permits
// were granted. Zero never refuses; a negative value refuses every permit.
type countingLimiter struct {
	acquired    atomic.Int32
	refuseAfter int32
}

func (l *countingLimiter) Acquire(context.Context) error {
	if l.refuseAfter != 0 && l.acquired.Load() >= max(l.refuseAfter, 0) {
		return &resilience.RateLimitExceededError{}
	}
	l.acquired.Add(1)
	return nil
}

// scriptedTransport answers attempt n with responses[n-1], repeating the last entry.
type scriptedTransport struct {
	mu        sync.Mutex
	calls     int
	requests  []*RequestDescriptor
	responses []scriptedResponse
}

type scriptedResponse struct {
	status int
	body   string
	err    error
}

func newScriptedTransport(responses ...scriptedResponse) *scriptedTransport {
	return &scriptedTransport{responses: responses}
}

func (s *scriptedTransport) Execute(_ context.Context, d *RequestDescriptor) (*Outcome, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	s.requests = append(s.requests, d)

	r := s.responses[min(s.calls, len(s.responses))-1]
	if r.err != nil {
		return nil, r.err
	}
	var body []byte
	if r.body != "" {
		body = []byte(r.body)
	}
	return &Outcome{StatusCode: r.status, Header: nethttp.Header{}, Body: body}, nil
}

func (s *scriptedTransport) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

func (s *scriptedTransport) lastRequest() *RequestDescriptor {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.requests) == 0 {
		return nil
	}
	return s.requests[len(s.requests)-1]
}

func respondOK(body string) scriptedResponse { return scriptedResponse{status: nethttp.StatusOK, body: body} }

func respondStatus(code int) scriptedResponse { return scriptedResponse{status: code} }

func respondErr(err error) scriptedResponse { return scriptedResponse{err: err} }

// fastRetry keeps retry tests quick while leaving a measurable wait.
func fastRetry(attempts int) resilience.RetryPolicy {
	return resilience.RetryPolicy{MaxAttempts: attempts, Wait: 5 * time.Millisecond}
}

// newTestClient builds a client around transport with no rate limit and fast retries.
func newTestClient(t *testing.T, transport Transport, log logger.Logger) Client {
	t.Helper()
	c, err := NewBuilder(log).
		WithTransport(transport).
		WithoutRateLimit().
		WithRetry(fastRetry(3)).
		Build()
	if err != nil {
		t.Fatalf("build client: %v", err)
	}
	return c
}

func newIPv4TestServer(t *testing.T, handler nethttp.Handler) *httptest.Server {
	t.Helper()
	lc := net.ListenConfig{}
	listener, err := lc.Listen(context.Background(), "tcp4", "127.0.0.1:0")
	if err != nil {
		t.Skipf("skipping test: unable to bind IPv4 listener: %v", err)
		return &httptest.Server{}
	}

	server := &httptest.Server{
		Listener: listener,
		Config:   &nethttp.Server{Handler: handler},
	}
	server.Start()
	t.Cleanup(server.Close)
	return server
}

const testURL = "http://api.example.com/items"
