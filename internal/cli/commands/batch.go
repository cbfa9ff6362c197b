package commands

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/AlecAivazis/survey/v2"
	"github.com/spf13/cobra"

	"github.com/conduit-lang/metastore/internal/cli/ui"
	"github.com/conduit-lang/metastore/internal/orm/metadata"
)

// batchKind describes one of the mass operations
type batchKind struct {
	use   string
	past  string
	short string
	run   func(s *metadata.Store, ctx context.Context, q *metadata.Query) (int, error)
}

var (
	batchDelete = batchKind{
		use:   "delete-all",
		past:  "Deleted",
		short: "Delete all metadata matching filters",
		run:   (*metadata.Store).DeleteAll,
	}
	batchDisable = batchKind{
		use:   "disable-all",
		past:  "Disabled",
		short: "Disable all metadata matching filters",
		run:   (*metadata.Store).DisableAll,
	}
	batchEnable = batchKind{
		use:   "enable-all",
		past:  "Enabled",
		short: "Re-enable disabled metadata matching filters (needs --show-hidden)",
		run:   (*metadata.Store).EnableAll,
	}
)

func newBatchCommand(flags *globalFlags, kind batchKind) *cobra.Command {
	var (
		qf  queryFlags
		yes bool
	)

	cmd := &cobra.Command{
		Use:   kind.use,
		Short: kind.short,
		Long: kind.short + `.

At least one of --entity, --owner, --name, --value, --pair or --id is
required. Records the acting principal may not edit are skipped and
reported. The operation is not transactional.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			q, err := qf.query()
			if err != nil {
				return err
			}
			if !q.Constrained() {
				return storeError(operationName(kind.use), metadata.ErrUnconstrainedBatch, flags)
			}

			return withApp(cmd, flags, func(ctx context.Context, a *app) error {
				out := cmd.OutOrStdout()
				if !yes {
					ok, err := confirmBatch(ctx, a, &qf, kind)
					if err != nil {
						return err
					}
					if !ok {
						fmt.Fprintln(out, ui.Info("Aborted.", flags.noColor))
						return nil
					}
				}

				n, err := kind.run(a.store, ctx, q)
				switch {
				case errors.Is(err, metadata.ErrBatchIncomplete):
					fmt.Fprintln(out, ui.Warning(fmt.Sprintf("%s %d metadata records; some were skipped", kind.past, n),
						&ui.Hint{Label: "Act as the owner or bypass checks", Try: "--as <guid> or --ignore-access"}, flags.noColor))
					return nil
				case err != nil:
					return storeError(operationName(kind.use), err, flags)
				case n == 0:
					fmt.Fprintln(out, ui.Info("No metadata matched.", flags.noColor))
					return nil
				}
				ui.WriteSuccess(out, fmt.Sprintf("%s %d metadata records", kind.past, n), flags.noColor)
				return nil
			})
		},
	}

	qf.register(cmd, false)
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "skip the confirmation prompt")
	return cmd
}

// confirmBatch previews how many records match and asks before mutating
func confirmBatch(ctx context.Context, a *app, qf *queryFlags, kind batchKind) (bool, error) {
	preview := *qf
	preview.calculation = "count"
	q, err := preview.query()
	if err != nil {
		return false, err
	}
	n, err := a.store.Calculate(ctx, q)
	if err != nil {
		return false, err
	}

	var ok bool
	prompt := &survey.Confirm{
		Message: fmt.Sprintf("%s: %s matching metadata records. Continue?", operationName(kind.use), strconv.FormatFloat(n, 'f', -1, 64)),
		Default: false,
	}
	if err := survey.AskOne(prompt, &ok); err != nil {
		return false, err
	}
	return ok, nil
}

func operationName(use string) string {
	return strings.ToUpper(strings.ReplaceAll(use, "-", " "))
}
