package httpclient

import (
	"math"
	nethttp "net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildRequestDefaultHeaders(t *testing.T) {
	tests := []struct {
		name       string
		method     string
		body       any
		wantAccept bool
	}{
		{name: "get without body", method: nethttp.MethodGet},
		{name: "delete without body", method: nethttp.MethodDelete},
		{name: "post without body", method: nethttp.MethodPost},
		{name: "post with body", method: nethttp.MethodPost, body: map[string]int{"x": 1}, wantAccept: true},
		{name: "put with body", method: nethttp.MethodPut, body: []string{"a"}, wantAccept: true},
		{name: "patch with empty struct", method: nethttp.MethodPatch, body: struct{}{}, wantAccept: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, err := BuildRequest(tt.method, testURL, nil, tt.body)
			require.NoError(t, err)

			assert.Equal(t, mediaTypeJSON, d.Header.Get(headerContentType))
			if tt.wantAccept {
				assert.Equal(t, mediaTypeJSON, d.Header.Get(headerAccept))
				assert.True(t, d.HasBody())
			} else {
				assert.Empty(t, d.Header.Values(headerAccept))
				assert.False(t, d.HasBody())
			}
		})
	}
}

func TestBuildRequestCallerHeadersOverrideDefaults(t *testing.T) {
	d, err := BuildRequest(nethttp.MethodPost, testURL, map[string]string{
		"content-type": "application/vnd.api+json",
		"ACCEPT":       "text/plain",
		"X-Custom":     "value",
	}, map[string]string{"k": "v"})
	require.NoError(t, err)

	assert.Equal(t, []string{"application/vnd.api+json"}, d.Header.Values(headerContentType))
	assert.Equal(t, []string{"text/plain"}, d.Header.Values(headerAccept))
	assert.Equal(t, "value", d.Header.Get("X-Custom"))
}

func TestBuildRequestEncodesBody(t *testing.T) {
	type payload struct {
		Name  string `json:"name"`
		Count int    `json:"count"`
	}

	d, err := BuildRequest(nethttp.MethodPost, testURL, nil, payload{Name: "gol", Count: 2})
	require.NoError(t, err)
	assert.JSONEq(t, `{"name":"gol","count":2}`, string(d.Body))
	assert.Equal(t, nethttp.MethodPost, d.Method)
	assert.Equal(t, testURL, d.URL)
}

func TestBuildRequestNilBodyDiffersFromEmptyPayload(t *testing.T) {
	withoutBody, err := BuildRequest(nethttp.MethodPost, testURL, nil, nil)
	require.NoError(t, err)
	assert.Nil(t, withoutBody.Body)

	emptyString, err := BuildRequest(nethttp.MethodPost, testURL, nil, "")
	require.NoError(t, err)
	assert.Equal(t, []byte(`""`), emptyString.Body)
}

func TestBuildRequestEncodingFailures(t *testing.T) {
	tests := []struct {
		name   string
		method string
		url    string
		body   any
	}{
		{name: "channel body", method: nethttp.MethodPost, url: testURL, body: make(chan int)},
		{name: "function body", method: nethttp.MethodPut, url: testURL, body: func() {}},
		{name: "NaN body", method: nethttp.MethodPost, url: testURL, body: math.NaN()},
		{name: "unsupported method", method: "TRACE", url: testURL},
		{name: "empty url", method: nethttp.MethodGet, url: ""},
		{name: "relative url", method: nethttp.MethodGet, url: "/items"},
		{name: "unsupported scheme", method: nethttp.MethodGet, url: "ftp://example.com/file"},
		{name: "missing host", method: nethttp.MethodGet, url: "http:///items"},
		{name: "malformed url", method: nethttp.MethodGet, url: "http://[::1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, err := BuildRequest(tt.method, tt.url, nil, tt.body)
			assert.Nil(t, d)
			require.Error(t, err)
			assert.True(t, IsErrorType(err, EncodingError), "got %v", err)
		})
	}
}

func TestNewDescriptorLayersOverrideInOrder(t *testing.T) {
	d, err := newDescriptor(nethttp.MethodGet, testURL, nil,
		map[string]string{"X-Tenant": "default", "X-Env": "prod"},
		nil,
		map[string]string{"x-tenant": "acme"},
	)
	require.NoError(t, err)

	assert.Equal(t, "acme", d.Header.Get("X-Tenant"))
	assert.Equal(t, "prod", d.Header.Get("X-Env"))
}

func TestResolveURL(t *testing.T) {
	tests := []struct {
		base, ref, want string
	}{
		{"", "http://a.example.com/x", "http://a.example.com/x"},
		{"https://api.example.com/v1", "http://other.example.com/x", "http://other.example.com/x"},
		{"https://api.example.com/v1", "/carros/marcas", "https://api.example.com/v1/carros/marcas"},
		{"https://api.example.com/v1/", "carros/marcas", "https://api.example.com/v1/carros/marcas"},
		{"https://api.example.com/v1", "", "https://api.example.com/v1"},
		{"", "", ""},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, resolveURL(tt.base, tt.ref), "base=%q ref=%q", tt.base, tt.ref)
	}
}
