package commands

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/gaborage/resilient-http/config"
	"github.com/gaborage/resilient-http/httpclient"
	"github.com/gaborage/resilient-http/internal/fipe"
	"github.com/gaborage/resilient-http/logger"
	"github.com/gaborage/resilient-http/observability"
)

// Options holds the persistent flags shared by every subcommand
type Options struct {
	ConfigFile  string
	BaseURL     string
	Verbose     bool
	Metrics     bool
	Concurrency int

	// transport replaces the network in tests
	transport httpclient.Transport
}

// session is the per-invocation wiring built from Options
type session struct {
	provider observability.Provider
	fipe     *fipe.Client
}

// loadConfig layers the flags on top of file and environment configuration.
func (o *Options) loadConfig(cmd *cobra.Command) (*config.Config, error) {
	overrides := map[string]any{}
	if cmd.Flags().Changed("base-url") {
		overrides["client.baseurl"] = o.BaseURL
	}
	if o.Verbose {
		overrides["log.level"] = "debug"
	}
	if o.Metrics {
		overrides["observability.enabled"] = true
		overrides["observability.trace.enabled"] = false
		overrides["observability.metrics.enabled"] = true
		overrides["observability.metrics.endpoint"] = observability.EndpointStdout
	}

	opts := []config.LoadOption{config.WithOverrides(overrides)}
	if o.ConfigFile != "" {
		opts = append(opts, config.WithFile(o.ConfigFile))
	}

	cfg, err := config.Load(opts...)
	if err != nil {
		return nil, err
	}
	if cfg.Client.BaseURL == "" {
		cfg.Client.BaseURL = fipe.DefaultBaseURL
	}
	return cfg, nil
}

// open builds the logger, telemetry provider and FIPE client.
func (o *Options) open(cmd *cobra.Command) (*session, error) {
	cfg, err := o.loadConfig(cmd)
	if err != nil {
		return nil, err
	}

	log := logger.NewWithWriter(cfg.Log.Level, cfg.Log.Pretty, cmd.ErrOrStderr())

	provider, err := observability.NewProvider(&cfg.Observability,
		observability.WithStdoutWriter(cmd.ErrOrStderr()),
		observability.WithoutGlobals(),
	)
	if err != nil {
		return nil, err
	}

	b := httpclient.NewBuilder(log).
		WithConfig(httpclient.FromConfig(&cfg.Client)).
		WithMeterProvider(provider.MeterProvider()).
		WithTracerProvider(provider.TracerProvider())
	if o.transport != nil {
		b = b.WithTransport(o.transport)
	}
	hc, err := b.Build()
	if err != nil {
		return nil, errors.Join(err, provider.Shutdown(context.Background()))
	}

	log.Debug().
		Str("base_url", cfg.Client.BaseURL).
		Bool("rate_limit", cfg.Client.RateLimit.Enabled).
		Int("max_attempts", cfg.Client.Retry.MaxAttempts).
		Msg("FIPE client ready")

	return &session{
		provider: provider,
		fipe:     fipe.New(hc, fipe.WithConcurrency(o.Concurrency)),
	}, nil
}

// close flushes telemetry.
func (s *session) close() error {
	if err := observability.Shutdown(s.provider, observability.DefaultShutdownTimeout); err != nil {
		return fmt.Errorf("telemetry: %w", err)
	}
	return nil
}

// run opens a session for the duration of fn.
func (o *Options) run(cmd *cobra.Command, fn func(ctx context.Context, s *session) error) (err error) {
	s, err := o.open(cmd)
	if err != nil {
		return err
	}
	defer func() {
		err = errors.Join(err, s.close())
	}()
	return fn(cmd.Context(), s)
}
