// Package config loads application configuration from defaults, an optional
// YAML file and environment variables.
package config

import (
	"fmt"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	envprovider "github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/knadh/koanf/v2"
)

// EnvPrefix is stripped from environment variables before they are mapped to
// keys: RESILIENT_CLIENT_RETRY_MAXATTEMPTS becomes client.retry.maxattempts.
const EnvPrefix = "RESILIENT_"

type loadOptions struct {
	file      string
	yaml      []byte
	overrides map[string]any
}

// LoadOption customizes Load.
type LoadOption func(*loadOptions)

// WithFile loads the given YAML file on top of the defaults. A missing file is an error.
func WithFile(path string) LoadOption {
	return func(o *loadOptions) {
		o.file = path
	}
}

// WithYAML loads an in-memory YAML document after the file, if any.
func WithYAML(data []byte) LoadOption {
	return func(o *loadOptions) {
		o.yaml = data
	}
}

// WithOverrides applies values on top of every other source, e.g. from CLI flags.
// Keys use the koanf dotted form, such as "client.baseurl".
func WithOverrides(values map[string]any) LoadOption {
	return func(o *loadOptions) {
		o.overrides = values
	}
}

// Load loads configuration from multiple sources with priority:
// 1. Overrides (highest priority)
// 2. Environment variables
// 3. YAML configuration file, then an in-memory YAML document
// 4. Default values (lowest priority)
func Load(opts ...LoadOption) (*Config, error) {
	var o loadOptions
	for _, opt := range opts {
		opt(&o)
	}

	k := koanf.New(".")

	if err := loadDefaults(k); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if o.file != "" {
		if err := k.Load(file.Provider(o.file), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load %s: %w", o.file, err)
		}
	}

	if len(o.yaml) > 0 {
		if err := k.Load(rawbytes.Provider(o.yaml), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load yaml document: %w", err)
		}
	}

	if err := k.Load(envprovider.Provider(EnvPrefix, ".", func(s string) string {
		// Convert RESILIENT_UPPER_CASE to upper.case for koanf
		return strings.ReplaceAll(strings.ToLower(strings.TrimPrefix(s, EnvPrefix)), "_", ".")
	}), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if len(o.overrides) > 0 {
		if err := k.Load(confmap.Provider(o.overrides, "."), nil); err != nil {
			return nil, fmt.Errorf("failed to load overrides: %w", err)
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

func loadDefaults(k *koanf.Koanf) error {
	defaults := map[string]any{
		"client.baseurl":                  "",
		"client.timeout.connect":          "10s",
		"client.timeout.request":          "10s",
		"client.ratelimit.enabled":        true,
		"client.ratelimit.strategy":       "fixed",
		"client.ratelimit.permits":        5,
		"client.ratelimit.period":         "1s",
		"client.ratelimit.acquiretimeout": "1s",
		"client.retry.enabled":            true,
		"client.retry.maxattempts":        5,
		"client.retry.wait":               "1s",
		"client.requestidheader":          "X-Request-ID",

		"log.level":  "info",
		"log.pretty": false,

		"observability.enabled":          false,
		"observability.service.name":     "resilient-http",
		"observability.service.version":  "v1.0.0",
		"observability.trace.enabled":    true,
		"observability.trace.endpoint":   "stdout",
		"observability.trace.protocol":   "http",
		"observability.metrics.enabled":  true,
		"observability.metrics.endpoint": "stdout",
		"observability.metrics.protocol": "http",
		"observability.metrics.interval": "10s",
	}

	return k.Load(confmap.Provider(defaults, "."), nil)
}
