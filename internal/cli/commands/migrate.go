package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/conduit-lang/metastore/internal/cli/ui"
)

func newMigrateCommand(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create the entities and metadata tables",
		Long: `Create the entities and metadata tables and their indexes in the
configured database. Existing tables are left untouched.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, flags, func(ctx context.Context, a *app) error {
				if err := a.db.Migrate(ctx); err != nil {
					return fmt.Errorf("migration failed: %w", err)
				}
				ui.WriteSuccess(cmd.OutOrStdout(),
					fmt.Sprintf("Schema ready (%s, %s)", a.db.Dialect(), a.cfg.Database.Driver), flags.noColor)
				return nil
			})
		},
	}
}
