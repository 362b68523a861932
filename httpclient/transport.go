package httpclient

import (
	"bytes"
	"context"
	"io"
	"net"
	nethttp "net/http"
	"time"

	"github.com/gaborage/resilient-http/trace"
)

const (
	// DefaultConnectTimeout bounds connection establishment
	DefaultConnectTimeout = 10 * time.Second
	// DefaultRequestTimeout bounds one attempt end to end
	DefaultRequestTimeout = 10 * time.Second
)

// Outcome is the status, headers and body of one round trip.
type Outcome struct {
	StatusCode int
	Header     nethttp.Header
	Body       []byte
}

// Transport performs exactly one round trip. Implementations must be safe
// for concurrent use and must not retry.
type Transport interface {
	Execute(ctx context.Context, req *RequestDescriptor) (*Outcome, error)
}

// TransportFunc adapts a function to Transport
type TransportFunc func(ctx context.Context, req *RequestDescriptor) (*Outcome, error)

// Execute calls f(ctx, req)
func (f TransportFunc) Execute(ctx context.Context, req *RequestDescriptor) (*Outcome, error) {
	return f(ctx, req)
}

// httpTransport executes descriptors with a net/http client
type httpTransport struct {
	httpClient   *nethttp.Client
	auth         *BasicAuth
	interceptors []RequestInterceptor
}

// newHTTPClient returns a client whose dialer honours connectTimeout and
// whose overall deadline per attempt is requestTimeout. A nil rt clones
// the default transport.
func newHTTPClient(rt nethttp.RoundTripper, connectTimeout, requestTimeout time.Duration) *nethttp.Client {
	if rt == nil {
		base := nethttp.DefaultTransport.(*nethttp.Transport).Clone()
		dialer := &net.Dialer{
			Timeout:   connectTimeout,
			KeepAlive: 30 * time.Second,
		}
		base.DialContext = dialer.DialContext
		base.TLSHandshakeTimeout = connectTimeout
		rt = base
	}
	return &nethttp.Client{
		Transport: rt,
		Timeout:   requestTimeout,
	}
}

// Execute sends the request and reads the whole response body.
func (t *httpTransport) Execute(ctx context.Context, d *RequestDescriptor) (*Outcome, error) {
	httpReq, err := t.buildRequest(ctx, d)
	if err != nil {
		return nil, err
	}

	httpResp, err := t.httpClient.Do(httpReq)
	if err != nil {
		return nil, &TransportError{Op: "round trip", Err: err}
	}
	defer httpResp.Body.Close()

	body, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, &TransportError{Op: "read body", Err: err}
	}

	return &Outcome{
		StatusCode: httpResp.StatusCode,
		Header:     httpResp.Header,
		Body:       body,
	}, nil
}

// buildRequest constructs an *http.Request, applies auth and trace headers, and runs interceptors.
func (t *httpTransport) buildRequest(ctx context.Context, d *RequestDescriptor) (*nethttp.Request, error) {
	var body io.Reader
	if d.Body != nil {
		body = bytes.NewReader(d.Body)
	}

	httpReq, err := nethttp.NewRequestWithContext(ctx, d.Method, d.URL, body)
	if err != nil {
		return nil, &TransportError{Op: "round trip", Err: err}
	}
	httpReq.Header = d.Header.Clone()

	if t.auth != nil && httpReq.Header.Get(headerAuthorization) == "" {
		httpReq.SetBasicAuth(t.auth.Username, t.auth.Password)
	}
	trace.InjectTraceContext(ctx, httpReq.Header)

	for _, interceptor := range t.interceptors {
		if err := interceptor(ctx, httpReq); err != nil {
			return nil, &TransportError{Op: "interceptor", Err: err}
		}
	}
	return httpReq, nil
}
