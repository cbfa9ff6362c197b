package commands

import (
	"context"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/conduit-lang/metastore/internal/cli/ui"
)

func newListCommand(flags *globalFlags) *cobra.Command {
	var qf queryFlags

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List metadata matching filters",
		Long: `List metadata records matching the given filters.

Examples:
  metastore list --entity 42
  metastore list --name color --value red --value blue
  metastore list --pair "rating>=3" --order rating:desc:integer --limit -1`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			q, err := qf.query()
			if err != nil {
				return err
			}
			return withApp(cmd, flags, func(ctx context.Context, a *app) error {
				records, err := a.store.GetAll(ctx, q)
				if err != nil {
					return storeError("LIST", err, flags)
				}
				ui.RenderRecords(cmd.OutOrStdout(), records, flags.noColor)
				return nil
			})
		},
	}

	qf.register(cmd, true)
	return cmd
}

func newCountCommand(flags *globalFlags) *cobra.Command {
	var qf queryFlags

	cmd := &cobra.Command{
		Use:   "count",
		Short: "Aggregate metadata matching filters",
		Long: `Count matching metadata, or aggregate integer values with --calc
(sum, avg, min or max).`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			q, err := qf.query()
			if err != nil {
				return err
			}
			return withApp(cmd, flags, func(ctx context.Context, a *app) error {
				result, err := a.store.Calculate(ctx, q)
				if err != nil {
					return storeError("COUNT", err, flags)
				}
				fmt.Fprintln(cmd.OutOrStdout(), strconv.FormatFloat(result, 'f', -1, 64))
				return nil
			})
		},
	}

	qf.register(cmd, false)
	cmd.Flags().StringVar(&qf.calculation, "calc", "count", "count, sum, avg, min or max")
	return cmd
}

func newEntitiesCommand(flags *globalFlags) *cobra.Command {
	var (
		qf    queryFlags
		count bool
	)

	cmd := &cobra.Command{
		Use:   "entities",
		Short: "List entities whose metadata matches filters",
		Long: `List entities that carry matching metadata.

Examples:
  metastore entities --type object --subtype blog --pair status=published
  metastore entities --pair "rating>3" --order rating:desc:integer
  metastore entities --name featured --count`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if count {
				qf.calculation = "count"
			}
			q, err := qf.query()
			if err != nil {
				return err
			}
			return withApp(cmd, flags, func(ctx context.Context, a *app) error {
				out := cmd.OutOrStdout()
				if count {
					n, err := a.store.CalculateEntities(ctx, q)
					if err != nil {
						return storeError("ENTITIES", err, flags)
					}
					fmt.Fprintln(out, strconv.FormatFloat(n, 'f', -1, 64))
					return nil
				}

				list, err := a.store.GetEntities(ctx, q)
				if err != nil {
					return storeError("ENTITIES", err, flags)
				}
				ui.RenderEntities(out, list, flags.noColor)
				return nil
			})
		},
	}

	qf.register(cmd, true)
	cmd.Flags().BoolVar(&count, "count", false, "print the number of matching entities")
	return cmd
}
