package httpclient

import (
	"context"
	"encoding/json"
	"fmt"
)

// GetAs performs a GET and decodes the response into a new T.
// A 204 response yields the zero value of T; an empty 2xx body is a DecodingError.
func GetAs[T any](ctx context.Context, c Client, url string, headers map[string]string) (T, error) {
	var out T
	err := c.Get(ctx, url, headers, &out)
	return out, err
}

// PostAs performs a POST and decodes the response into a new T.
func PostAs[T any](ctx context.Context, c Client, url string, headers map[string]string, body any) (T, error) {
	var out T
	err := c.Post(ctx, url, headers, body, &out)
	return out, err
}

// PutAs performs a PUT and decodes the response into a new T.
func PutAs[T any](ctx context.Context, c Client, url string, headers map[string]string, body any) (T, error) {
	var out T
	err := c.Put(ctx, url, headers, body, &out)
	return out, err
}

// PatchAs performs a PATCH and decodes the response into a new T.
func PatchAs[T any](ctx context.Context, c Client, url string, headers map[string]string, body any) (T, error) {
	var out T
	err := c.Patch(ctx, url, headers, body, &out)
	return out, err
}

// Decode unmarshals data into a new T. Failures are DecodingErrors
// carrying data.
func Decode[T any](data []byte) (T, error) {
	var out T
	if err := json.Unmarshal(data, &out); err != nil {
		return out, NewDecodingError(fmt.Sprintf("failed to decode response into %T", out), data, err)
	}
	return out, nil
}
