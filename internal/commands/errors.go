package commands

import (
	"fmt"

	"github.com/gaborage/resilient-http/httpclient"
)

// Describe turns a command error into a one-line message naming its kind.
func Describe(err error) string {
	switch {
	case err == nil:
		return ""
	case httpclient.IsErrorType(err, httpclient.RateLimitError):
		return fmt.Sprintf("rate limited, try again later: %v", err)
	case httpclient.IsErrorType(err, httpclient.RetryExhaustedError):
		if code, ok := httpclient.StatusCode(err); ok {
			return fmt.Sprintf("request failed after retries (last status %d): %v", code, err)
		}
		return fmt.Sprintf("request failed after retries: %v", err)
	case httpclient.IsErrorType(err, httpclient.DecodingError):
		return fmt.Sprintf("unexpected response from the FIPE API: %v", err)
	case httpclient.IsErrorType(err, httpclient.EncodingError):
		return fmt.Sprintf("invalid request: %v", err)
	default:
		return err.Error()
	}
}
