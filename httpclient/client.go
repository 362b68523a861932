package httpclient

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	nethttp "net/http"
	"sync/atomic"
	"time"

	"github.com/gaborage/resilient-http/httpclient/internal/tracking"
	"github.com/gaborage/resilient-http/logger"
	"github.com/gaborage/resilient-http/resilience"
	"github.com/gaborage/resilient-http/trace"
)

// client implements the Client interface
type client struct {
	config    *Config
	logger    logger.Logger
	transport Transport
	policy    *resilience.Policy
	metrics   *tracking.Recorder
	callCount atomic.Int64
}

// Get performs a GET request and decodes the response into out
func (c *client) Get(ctx context.Context, url string, headers map[string]string, out any) error {
	resp, err := c.send(ctx, nethttp.MethodGet, url, headers, nil, nil)
	if err != nil {
		return err
	}
	return c.decode(nethttp.MethodGet, url, resp, out)
}

// Post performs a POST request with a JSON body
func (c *client) Post(ctx context.Context, url string, headers map[string]string, body, out any) error {
	return c.sendJSON(ctx, nethttp.MethodPost, url, headers, body, out)
}

// Put performs a PUT request with a JSON body
func (c *client) Put(ctx context.Context, url string, headers map[string]string, body, out any) error {
	return c.sendJSON(ctx, nethttp.MethodPut, url, headers, body, out)
}

// Patch performs a PATCH request with a JSON body
func (c *client) Patch(ctx context.Context, url string, headers map[string]string, body, out any) error {
	return c.sendJSON(ctx, nethttp.MethodPatch, url, headers, body, out)
}

// Delete performs a DELETE request; the response body is never decoded
func (c *client) Delete(ctx context.Context, url string, headers map[string]string) error {
	_, err := c.send(ctx, nethttp.MethodDelete, url, headers, nil, nil)
	return err
}

// Do performs a request with a pre-encoded body and returns the raw response
func (c *client) Do(ctx context.Context, method string, req *Request) (*Response, error) {
	if req == nil {
		err := NewEncodingError("request cannot be nil", nil)
		c.logFailure(method, "", "", 0, err)
		return nil, err
	}
	return c.send(ctx, method, req.URL, req.Headers, req.Body, req.Auth)
}

func (c *client) sendJSON(ctx context.Context, method, url string, headers map[string]string, body, out any) error {
	payload, err := encodeBody(body)
	if err != nil {
		c.logFailure(method, url, "", 0, err)
		return err
	}
	resp, err := c.send(ctx, method, url, headers, payload, nil)
	if err != nil {
		return err
	}
	return c.decode(method, url, resp, out)
}

// send builds the descriptor and runs it through the resilience policy.
func (c *client) send(ctx context.Context, method, rawURL string, headers map[string]string, payload []byte, auth *BasicAuth) (*Response, error) {
	ctx, requestID := trace.EnsureRequestID(ctx)

	layers := []map[string]string{c.config.DefaultHeaders}
	if c.config.RequestIDHeader != "" {
		layers = append(layers, map[string]string{c.config.RequestIDHeader: requestID})
	}
	if auth != nil {
		layers = append(layers, map[string]string{headerAuthorization: basicAuthValue(auth)})
	}
	layers = append(layers, headers)

	fullURL := resolveURL(c.config.BaseURL, rawURL)
	d, err := newDescriptor(method, fullURL, payload, layers...)
	if err != nil {
		c.logFailure(method, fullURL, requestID, 0, err)
		return nil, err
	}
	return c.execute(ctx, d, requestID)
}

func (c *client) execute(ctx context.Context, d *RequestDescriptor, requestID string) (*Response, error) {
	start := time.Now()
	callCount := c.callCount.Add(1)
	ctx, span := c.metrics.StartCall(ctx, d.Method, d.URL, requestID)

	var attempts int
	outcome, err := resilience.Execute(ctx, c.policy, func(ctx context.Context, attempt int) (*Outcome, error) {
		attempts = attempt
		return c.attempt(ctx, d, attempt)
	})
	elapsed := time.Since(start)

	if err != nil {
		clientErr := classify(err)
		status, _ := StatusCode(clientErr)
		if clientErr.Type() == RateLimitError {
			c.metrics.RecordRateLimited(ctx, d.Method)
		}
		c.metrics.EndCall(ctx, span, d.Method, status, elapsed, string(clientErr.Type()), clientErr)
		c.logFailure(d.Method, d.URL, requestID, attempts, clientErr)
		return nil, clientErr
	}

	c.metrics.EndCall(ctx, span, d.Method, outcome.StatusCode, elapsed, "", nil)
	return &Response{
		StatusCode: outcome.StatusCode,
		Body:       outcome.Body,
		Headers:    outcome.Header,
		Stats: Stats{
			ElapsedTime: elapsed,
			Attempts:    attempts,
			CallCount:   callCount,
		},
	}, nil
}

// attempt performs one round trip and classifies a non-2xx status as a failure.
func (c *client) attempt(ctx context.Context, d *RequestDescriptor, attempt int) (*Outcome, error) {
	ctx, span := c.metrics.StartAttempt(ctx, d.Method, attempt)
	c.logRequest(d, attempt)

	start := time.Now()
	out, err := c.transport.Execute(ctx, d)
	elapsed := time.Since(start)

	if err != nil {
		var transportErr *TransportError
		if !errors.As(err, &transportErr) {
			transportErr = &TransportError{Op: "round trip", Err: err}
		}
		c.metrics.EndAttempt(ctx, span, d.Method, 0, elapsed, transportErr)
		c.logger.Debug().
			Str("direction", "outbound").
			Str("method", d.Method).
			Str("url", d.URL).
			Int("attempt", attempt).
			Bool("timeout", transportErr.Timeout()).
			Dur("elapsed", elapsed).
			Err(transportErr).
			Msg("HTTP client attempt failed")
		return nil, transportErr
	}

	c.logResponse(d, out, attempt, elapsed)
	if !IsSuccessStatus(out.StatusCode) {
		statusErr := &StatusError{
			Method:     d.Method,
			URL:        d.URL,
			StatusCode: out.StatusCode,
			Body:       out.Body,
		}
		c.metrics.EndAttempt(ctx, span, d.Method, out.StatusCode, elapsed, statusErr)
		return nil, statusErr
	}

	c.metrics.EndAttempt(ctx, span, d.Method, out.StatusCode, elapsed, nil)
	return out, nil
}

// decode unmarshals a successful body into out. A 204 response or a nil out
// yields no decoded value; an empty body otherwise fails to decode.
func (c *client) decode(method, url string, resp *Response, out any) error {
	if out == nil || resp.StatusCode == nethttp.StatusNoContent {
		return nil
	}
	if err := json.Unmarshal(resp.Body, out); err != nil {
		decodeErr := NewDecodingError(fmt.Sprintf("failed to decode response into %T", out), resp.Body, err)
		c.logFailure(method, url, "", resp.Stats.Attempts, decodeErr)
		return decodeErr
	}
	return nil
}

// onRetry is registered on the policy and observes every retry.
func (c *client) onRetry(ev resilience.RetryEvent) {
	c.metrics.RecordRetry(context.Background(), ev.Attempt, ev.Err)
	c.logger.Warn().
		Int("attempt", ev.Attempt).
		Dur("wait", ev.Wait).
		Err(ev.Err).
		Msg("HTTP client retrying request")
}

// logRequest logs one outgoing attempt
func (c *client) logRequest(d *RequestDescriptor, attempt int) {
	c.logger.Debug().
		Str("direction", "outbound").
		Str("method", d.Method).
		Str("url", d.URL).
		Int("attempt", attempt).
		Interface("headers", d.Header).
		Int("body_size", len(d.Body)).
		Msg("HTTP client request")
}

// logResponse logs the response of one attempt
func (c *client) logResponse(d *RequestDescriptor, out *Outcome, attempt int, elapsed time.Duration) {
	c.logger.Debug().
		Str("direction", "inbound").
		Str("method", d.Method).
		Str("url", d.URL).
		Int("attempt", attempt).
		Int("status", out.StatusCode).
		Dur("elapsed", elapsed).
		Int("body_size", len(out.Body)).
		Msg("HTTP client response")
}

// logFailure logs a terminal failure with its error kind
func (c *client) logFailure(method, url, requestID string, attempts int, err error) {
	event := c.logger.Error().
		Str("method", method).
		Str("url", url).
		Int("attempts", attempts)

	var clientErr ClientError
	if errors.As(err, &clientErr) {
		event = event.Str("error_type", string(clientErr.Type()))
	}
	if requestID != "" {
		event = event.Str("request_id", requestID)
	}
	if code, ok := StatusCode(err); ok {
		event = event.Int("status", code)
	}
	event.Err(err).Msg("HTTP client call failed")
}

func basicAuthValue(auth *BasicAuth) string {
	return "Basic " + base64.StdEncoding.EncodeToString([]byte(auth.Username+":"+auth.Password))
}
