package httpclient

import (
	"encoding/json"
	"fmt"
	nethttp "net/http"
	"net/url"
	"strings"
)

const (
	headerContentType   = "Content-Type"
	headerAccept        = "Accept"
	headerAuthorization = "Authorization"
	mediaTypeJSON       = "application/json"
)

// RequestDescriptor is a transport-ready request. It is owned by a single
// call and must not be modified once built.
type RequestDescriptor struct {
	Method string
	URL    string
	Header nethttp.Header
	// Body is nil when the request carries no body, which differs from an
	// empty payload
	Body []byte
}

// HasBody reports whether the request carries a body.
func (d *RequestDescriptor) HasBody() bool {
	return d.Body != nil
}

// BuildRequest encodes body as JSON when non-nil and merges headers on top of
// the JSON defaults. Content-Type is always set; Accept only when a body is
// present. Caller headers win over defaults, compared case-insensitively.
func BuildRequest(method, rawURL string, headers map[string]string, body any) (*RequestDescriptor, error) {
	payload, err := encodeBody(body)
	if err != nil {
		return nil, err
	}
	return newDescriptor(method, rawURL, payload, headers)
}

// encodeBody serializes body, returning nil for a nil body.
func encodeBody(body any) ([]byte, error) {
	if body == nil {
		return nil, nil
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, NewEncodingError(fmt.Sprintf("failed to encode %T body", body), err)
	}
	return payload, nil
}

// newDescriptor validates method and URL and applies header layers in order,
// later layers overriding earlier ones.
func newDescriptor(method, rawURL string, body []byte, layers ...map[string]string) (*RequestDescriptor, error) {
	if !isSupportedMethod(method) {
		return nil, NewEncodingError(fmt.Sprintf("unsupported method %q", method), nil)
	}
	if err := validateURL(rawURL); err != nil {
		return nil, err
	}

	header := make(nethttp.Header)
	header.Set(headerContentType, mediaTypeJSON)
	if body != nil {
		header.Set(headerAccept, mediaTypeJSON)
	}
	for _, layer := range layers {
		for key, value := range layer {
			header.Set(key, value)
		}
	}

	return &RequestDescriptor{
		Method: method,
		URL:    rawURL,
		Header: header,
		Body:   body,
	}, nil
}

func isSupportedMethod(method string) bool {
	switch method {
	case nethttp.MethodGet, nethttp.MethodPost, nethttp.MethodPut, nethttp.MethodPatch, nethttp.MethodDelete:
		return true
	}
	return false
}

func validateURL(rawURL string) error {
	if rawURL == "" {
		return NewEncodingError("URL cannot be empty", nil)
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return NewEncodingError("invalid URL", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return NewEncodingError(fmt.Sprintf("unsupported URL scheme %q", u.Scheme), nil)
	}
	if u.Host == "" {
		return NewEncodingError("URL has no host", nil)
	}
	return nil
}

// resolveURL joins a relative path onto base. Absolute URLs are returned as-is.
func resolveURL(base, ref string) string {
	if base == "" || strings.Contains(ref, "://") {
		return ref
	}
	if ref == "" {
		return base
	}
	return strings.TrimRight(base, "/") + "/" + strings.TrimLeft(ref, "/")
}
