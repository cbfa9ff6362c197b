package commands

import (
	"runtime"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var (
	// Version information - set at build time
	Version   = "dev"
	GitCommit = "unknown"
	BuildDate = "unknown"
	GoVersion = "unknown"
)

// globalFlags are shared by every command
type globalFlags struct {
	configPath   string
	as           int64
	roles        []string
	ignoreAccess bool
	showHidden   bool
	noColor      bool
}

// NewRootCommand creates the root command
func NewRootCommand() *cobra.Command {
	flags := &globalFlags{}

	rootCmd := &cobra.Command{
		Use:   "metastore",
		Short: "Entity metadata store",
		Long: color.CyanString(`metastore - entity metadata store

Attach named values to entities, query them with metadata filters and
manage them in bulk. Every command acts as the principal given by --as.`),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if flags.noColor {
				color.NoColor = true
			}
		},
	}

	pf := rootCmd.PersistentFlags()
	pf.StringVarP(&flags.configPath, "config", "c", "", "config file (default ./metastore.yml)")
	pf.Int64Var(&flags.as, "as", 0, "act as this principal guid (0 is anonymous)")
	pf.StringSliceVar(&flags.roles, "role", nil, "roles of the acting principal")
	pf.BoolVar(&flags.ignoreAccess, "ignore-access", false, "bypass access filtering and edit checks")
	pf.BoolVar(&flags.showHidden, "show-hidden", false, "include disabled metadata")
	pf.BoolVar(&flags.noColor, "no-color", false, "disable colored output")

	rootCmd.AddCommand(NewVersionCommand())
	rootCmd.AddCommand(newMigrateCommand(flags))
	rootCmd.AddCommand(newGetCommand(flags))
	rootCmd.AddCommand(newURLCommand(flags))
	rootCmd.AddCommand(newSetCommand(flags))
	rootCmd.AddCommand(newUpdateCommand(flags))
	rootCmd.AddCommand(newDeleteCommand(flags))
	rootCmd.AddCommand(newListCommand(flags))
	rootCmd.AddCommand(newCountCommand(flags))
	rootCmd.AddCommand(newEntitiesCommand(flags))
	rootCmd.AddCommand(newBatchCommand(flags, batchDelete))
	rootCmd.AddCommand(newBatchCommand(flags, batchDisable))
	rootCmd.AddCommand(newBatchCommand(flags, batchEnable))
	rootCmd.AddCommand(newServeCommand(flags))

	return rootCmd
}

// NewVersionCommand creates the version command
func NewVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Long:  "Display the metastore version, Git commit, build date, and Go version",
		Run: func(cmd *cobra.Command, args []string) {
			// Set GoVersion to actual runtime if not set at build time
			goVer := GoVersion
			if goVer == "unknown" {
				goVer = runtime.Version()
			}

			out := cmd.OutOrStdout()
			titleColor := color.New(color.FgCyan, color.Bold)
			valueColor := color.New(color.FgWhite)

			titleColor.Fprint(out, "metastore version: ")
			valueColor.Fprintln(out, Version)

			titleColor.Fprint(out, "Git commit: ")
			valueColor.Fprintln(out, GitCommit)

			titleColor.Fprint(out, "Build date: ")
			valueColor.Fprintln(out, BuildDate)

			titleColor.Fprint(out, "Go version: ")
			valueColor.Fprintln(out, goVer)
		},
	}
}

// Execute runs the root command
func Execute() error {
	rootCmd := NewRootCommand()
	if err := rootCmd.Execute(); err != nil {
		errorColor := color.New(color.FgRed, color.Bold)
		errorColor.Fprintf(rootCmd.ErrOrStderr(), "Error: %v\n", err)
		return err
	}
	return nil
}
