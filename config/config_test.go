package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testBaseURL = "https://parallelum.com.br/fipe/api/v1"

func TestLoadWithDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)
	require.NotNil(t, cfg)

	assert.Empty(t, cfg.Client.BaseURL)
	assert.Equal(t, 10*time.Second, cfg.Client.Timeout.Connect)
	assert.Equal(t, 10*time.Second, cfg.Client.Timeout.Request)

	assert.True(t, cfg.Client.RateLimit.Enabled)
	assert.Equal(t, "fixed", cfg.Client.RateLimit.Strategy)
	assert.Equal(t, 5, cfg.Client.RateLimit.Permits)
	assert.Equal(t, time.Second, cfg.Client.RateLimit.Period)
	assert.Equal(t, time.Second, cfg.Client.RateLimit.AcquireTimeout)

	assert.True(t, cfg.Client.Retry.Enabled)
	assert.Equal(t, 5, cfg.Client.Retry.MaxAttempts)
	assert.Equal(t, time.Second, cfg.Client.Retry.Wait)
	assert.Equal(t, "X-Request-ID", cfg.Client.RequestIDHeader)

	assert.Equal(t, "info", cfg.Log.Level)
	assert.False(t, cfg.Log.Pretty)

	assert.False(t, cfg.Observability.Enabled)
	assert.Equal(t, "resilient-http", cfg.Observability.Service.Name)
	assert.Equal(t, "stdout", cfg.Observability.Metrics.Endpoint)
	assert.Equal(t, 10*time.Second, cfg.Observability.Metrics.Interval)
}

func TestLoadWithEnvironmentVariables(t *testing.T) {
	t.Setenv("RESILIENT_CLIENT_BASEURL", testBaseURL)
	t.Setenv("RESILIENT_CLIENT_RETRY_MAXATTEMPTS", "3")
	t.Setenv("RESILIENT_CLIENT_RETRY_WAIT", "250ms")
	t.Setenv("RESILIENT_CLIENT_RATELIMIT_STRATEGY", "token")
	t.Setenv("RESILIENT_CLIENT_RATELIMIT_ENABLED", "false")
	t.Setenv("RESILIENT_LOG_LEVEL", "debug")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, testBaseURL, cfg.Client.BaseURL)
	assert.Equal(t, 3, cfg.Client.Retry.MaxAttempts)
	assert.Equal(t, 250*time.Millisecond, cfg.Client.Retry.Wait)
	assert.Equal(t, "token", cfg.Client.RateLimit.Strategy)
	assert.False(t, cfg.Client.RateLimit.Enabled)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestLoadWithFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
client:
  baseurl: https://parallelum.com.br/fipe/api/v1
  timeout:
    request: 3s
  ratelimit:
    permits: 2
    period: 2s
  retry:
    maxattempts: 4
  headers:
    x-client: fipe-cli
log:
  pretty: true
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	cfg, err := Load(WithFile(path))
	require.NoError(t, err)

	assert.Equal(t, testBaseURL, cfg.Client.BaseURL)
	assert.Equal(t, 3*time.Second, cfg.Client.Timeout.Request)
	assert.Equal(t, 10*time.Second, cfg.Client.Timeout.Connect)
	assert.Equal(t, 2, cfg.Client.RateLimit.Permits)
	assert.Equal(t, 2*time.Second, cfg.Client.RateLimit.Period)
	assert.Equal(t, 4, cfg.Client.Retry.MaxAttempts)
	assert.Equal(t, map[string]string{"x-client": "fipe-cli"}, cfg.Client.Headers)
	assert.True(t, cfg.Log.Pretty)
}

func TestLoadPriority(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("client:\n  retry:\n    maxattempts: 2\n    wait: 2s\n"), 0o600))
	t.Setenv("RESILIENT_CLIENT_RETRY_MAXATTEMPTS", "3")

	cfg, err := Load(WithFile(path))
	require.NoError(t, err)
	assert.Equal(t, 3, cfg.Client.Retry.MaxAttempts)
	assert.Equal(t, 2*time.Second, cfg.Client.Retry.Wait)

	cfg, err = Load(WithFile(path), WithOverrides(map[string]any{"client.retry.maxattempts": 7}))
	require.NoError(t, err)
	assert.Equal(t, 7, cfg.Client.Retry.MaxAttempts)
}

func TestLoadWithYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("client:\n  retry:\n    maxattempts: 2\n    wait: 2s\n"), 0o600))

	cfg, err := Load(WithFile(path), WithYAML([]byte("client:\n  retry:\n    maxattempts: 6\n")))
	require.NoError(t, err)
	assert.Equal(t, 6, cfg.Client.Retry.MaxAttempts)
	assert.Equal(t, 2*time.Second, cfg.Client.Retry.Wait)

	_, err = Load(WithYAML([]byte("client: [unclosed")))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "yaml document")
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(WithFile(filepath.Join(t.TempDir(), "missing.yaml")))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing.yaml")
}

func TestLoadMalformedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("client: [unclosed"), 0o600))

	_, err := Load(WithFile(path))
	assert.Error(t, err)
}

func TestLoadInvalidEnvironmentValue(t *testing.T) {
	t.Setenv("RESILIENT_CLIENT_RETRY_MAXATTEMPTS", "many")

	_, err := Load()
	assert.Error(t, err)
}

func TestLoadValidationFailure(t *testing.T) {
	_, err := Load(WithOverrides(map[string]any{
		"client.ratelimit.permits": 0,
		"client.retry.maxattempts": 0,
	}))
	require.Error(t, err)

	var configErr *ConfigError
	require.True(t, errors.As(err, &configErr))
	assert.Equal(t, "invalid", configErr.Category)
	assert.Contains(t, err.Error(), "client.ratelimit.permits")
	assert.Contains(t, err.Error(), "client.retry.maxattempts")
}
