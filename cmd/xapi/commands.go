package main

import (
	"context"
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/LLIEPJIOK/xapi/pkg/xapi/api"
)

func newVersionCmd(f *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print client and broker API versions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return f.run(cmd, func(ctx context.Context, client *api.Client) error {
				v, err := client.GetVersion(ctx)
				if err != nil {
					return err
				}

				return printJSON(cmd.OutOrStdout(), map[string]string{
					"client": Version,
					"api":    v.Version,
				})
			})
		},
	}
}

func newSymbolsCmd(f *rootFlags) *cobra.Command {
	var category string

	cmd := &cobra.Command{
		Use:   "symbols",
		Short: "List tradable symbols",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return f.run(cmd, func(ctx context.Context, client *api.Client) error {
				symbols, err := client.GetAllSymbols(ctx)
				if err != nil {
					return err
				}

				sort.Slice(symbols, func(i, j int) bool {
					return symbols[i].Symbol < symbols[j].Symbol
				})

				out := cmd.OutOrStdout()

				for _, s := range symbols {
					if category != "" && s.CategoryName != category {
						continue
					}

					if _, err := fmt.Fprintf(out, "%-16s %-6s %s\n", s.Symbol, s.CategoryName, s.Description); err != nil {
						return err
					}
				}

				return nil
			})
		},
	}

	cmd.Flags().StringVar(&category, "category", "", "Only list symbols of this category (FX, CFD, STC, ...)")

	return cmd
}

func newSymbolCmd(f *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:     "symbol <name>",
		Short:   "Show one symbol",
		Example: "  xapi symbol EURUSD",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return f.run(cmd, func(ctx context.Context, client *api.Client) error {
				s, err := client.GetSymbol(ctx, args[0])
				if err != nil {
					if d := api.DescribeError(err); d != "" {
						return fmt.Errorf("%w (%s)", err, d)
					}

					return err
				}

				return printJSON(cmd.OutOrStdout(), s)
			})
		},
	}
}
