package commands

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/gaborage/resilient-http/internal/fipe"
)

const vehicleTypeHelp = "type is one of carros, motos or caminhoes (or cars, motorcycles, trucks)"

func newBrandsCommand(opts *Options) *cobra.Command {
	return &cobra.Command{
		Use:     "brands <type>",
		Short:   "List vehicle brands",
		Long:    "List the brands of a vehicle type; " + vehicleTypeHelp + ".",
		Example: "  fipe brands carros",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			vt, err := fipe.ParseVehicleType(args[0])
			if err != nil {
				return err
			}
			return opts.run(cmd, func(ctx context.Context, s *session) error {
				brands, err := s.fipe.Brands(ctx, vt)
				if err != nil {
					return err
				}
				return writeTable(cmd.OutOrStdout(), "CODE\tBRAND", func(w io.Writer) {
					for _, b := range brands {
						fmt.Fprintf(w, "%s\t%s\n", b.Code, b.Name)
					}
				})
			})
		},
	}
}

func newModelsCommand(opts *Options) *cobra.Command {
	var all bool

	cmd := &cobra.Command{
		Use:   "models <type> [brand]",
		Short: "List the models of a brand",
		Long: `List the models of one brand, or of every brand with --all.

With --all the per-brand lookups run in parallel and share the client's
rate limit.`,
		Example: `  fipe models carros 59
  fipe models motos --all --concurrency 8`,
		Args: func(cmd *cobra.Command, args []string) error {
			if all {
				return cobra.ExactArgs(1)(cmd, args)
			}
			return cobra.ExactArgs(2)(cmd, args)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			vt, err := fipe.ParseVehicleType(args[0])
			if err != nil {
				return err
			}
			return opts.run(cmd, func(ctx context.Context, s *session) error {
				if all {
					return listAllModels(ctx, cmd.OutOrStdout(), s, vt)
				}
				models, err := s.fipe.Models(ctx, vt, args[1])
				if err != nil {
					return err
				}
				return writeTable(cmd.OutOrStdout(), "CODE\tMODEL", func(w io.Writer) {
					for _, m := range models.Models {
						fmt.Fprintf(w, "%d\t%s\n", m.Code, m.Name)
					}
				})
			})
		},
	}

	cmd.Flags().BoolVarP(&all, "all", "a", false, "List models of every brand")
	return cmd
}

func listAllModels(ctx context.Context, out io.Writer, s *session, vt fipe.VehicleType) error {
	all, err := s.fipe.AllModels(ctx, vt)
	if err != nil {
		return err
	}
	return writeTable(out, "BRAND\tCODE\tMODEL", func(w io.Writer) {
		for _, bm := range all {
			for _, m := range bm.Models {
				fmt.Fprintf(w, "%s\t%d\t%s\n", bm.Brand.Name, m.Code, m.Name)
			}
		}
	})
}

func newYearsCommand(opts *Options) *cobra.Command {
	return &cobra.Command{
		Use:     "years <type> <brand> <model>",
		Short:   "List the model years of a model",
		Example: "  fipe years carros 59 5940",
		Args:    cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			vt, err := fipe.ParseVehicleType(args[0])
			if err != nil {
				return err
			}
			return opts.run(cmd, func(ctx context.Context, s *session) error {
				years, err := s.fipe.Years(ctx, vt, args[1], args[2])
				if err != nil {
					return err
				}
				return writeTable(cmd.OutOrStdout(), "CODE\tYEAR", func(w io.Writer) {
					for _, y := range years {
						fmt.Fprintf(w, "%s\t%s\n", y.Code, y.Name)
					}
				})
			})
		},
	}
}

func newPriceCommand(opts *Options) *cobra.Command {
	return &cobra.Command{
		Use:     "price <type> <brand> <model> <year>",
		Short:   "Show the reference price of a model year",
		Example: "  fipe price carros 59 5940 2014-3",
		Args:    cobra.ExactArgs(4),
		RunE: func(cmd *cobra.Command, args []string) error {
			vt, err := fipe.ParseVehicleType(args[0])
			if err != nil {
				return err
			}
			return opts.run(cmd, func(ctx context.Context, s *session) error {
				p, err := s.fipe.Price(ctx, vt, args[1], args[2], args[3])
				if err != nil {
					return err
				}
				return writeTable(cmd.OutOrStdout(), "", func(w io.Writer) {
					fmt.Fprintf(w, "Brand:\t%s\n", p.Brand)
					fmt.Fprintf(w, "Model:\t%s\n", p.Model)
					fmt.Fprintf(w, "Year:\t%d\n", p.ModelYear)
					fmt.Fprintf(w, "Fuel:\t%s\n", p.Fuel)
					fmt.Fprintf(w, "FIPE code:\t%s\n", p.FipeCode)
					fmt.Fprintf(w, "Reference:\t%s\n", p.ReferenceMonth)
					fmt.Fprintf(w, "Price:\t%s\n", p.Value)
				})
			})
		},
	}
}

// writeTable aligns tab separated rows; an empty header is omitted.
func writeTable(out io.Writer, header string, rows func(w io.Writer)) error {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	if header != "" {
		fmt.Fprintln(w, header)
	}
	rows(w)
	return w.Flush()
}
