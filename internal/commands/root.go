// Package commands implements the fipe command line interface.
package commands

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/gaborage/resilient-http/internal/fipe"
)

// NewRootCommand creates the fipe command with all subcommands attached
func NewRootCommand(version string) *cobra.Command {
	return newRootCommand(version, &Options{})
}

func newRootCommand(version string, opts *Options) *cobra.Command {
	root := &cobra.Command{
		Use:   "fipe",
		Short: "Query FIPE vehicle reference prices",
		Long: `Query brands, models, years and reference prices from the FIPE API.

Every request goes through a rate limited, retrying HTTP client configured
from defaults, an optional YAML file and RESILIENT_* environment variables.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := root.PersistentFlags()
	flags.StringVarP(&opts.ConfigFile, "config", "c", "", "YAML configuration file")
	flags.StringVar(&opts.BaseURL, "base-url", fipe.DefaultBaseURL, "FIPE API base URL")
	flags.BoolVarP(&opts.Verbose, "verbose", "v", false, "Log every request, response and retry")
	flags.BoolVar(&opts.Metrics, "metrics", false, "Print client metrics to stderr on exit")
	flags.IntVar(&opts.Concurrency, "concurrency", fipe.DefaultConcurrency, "Parallel lookups for models --all")

	root.AddCommand(
		newBrandsCommand(opts),
		newModelsCommand(opts),
		newYearsCommand(opts),
		newPriceCommand(opts),
		newVersionCommand(version),
	)
	return root
}

func newVersionCommand(version string) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "fipe version %s\n", version)
			fmt.Fprintf(cmd.OutOrStdout(), "Built with %s %s/%s\n", runtime.Version(), runtime.GOOS, runtime.GOARCH)
		},
	}
}
