package main

import (
	"github.com/spf13/cobra"
)

type rootFlags struct {
	home      string
	config    string
	logLevel  string
	logFormat string
	verbose   bool
}

func newRootCmd(app *AppContext) *cobra.Command {
	flags := &rootFlags{}

	cmd := &cobra.Command{
		Use:           "plugdeck",
		Short:         "plugdeck installs, provisions and launches pyproject.toml plugins",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			app.flags = *flags
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			if !isTerminal(cmd.OutOrStdout()) {
				return cmd.Help()
			}
			return runDashboard(cmd, app)
		},
	}

	cmd.PersistentFlags().StringVar(&flags.home, "home", "", "Data directory (default $PLUGDECK_HOME or ~/.plugdeck)")
	cmd.PersistentFlags().StringVar(&flags.config, "config", "", "Path to plugdeck.yaml (default <home>/plugdeck.yaml)")
	cmd.PersistentFlags().StringVar(&flags.logLevel, "log-level", "", "Log level: debug, info, warn or error")
	cmd.PersistentFlags().StringVar(&flags.logFormat, "log-format", "", "Log format: text, logfmt or json")
	cmd.PersistentFlags().BoolVarP(&flags.verbose, "verbose", "v", false, "Enable debug logging")

	cmd.AddCommand(newListCmd(app))
	cmd.AddCommand(newShowCmd(app))
	cmd.AddCommand(newLaunchCmd(app))
	cmd.AddCommand(newExecCmd(app))
	cmd.AddCommand(newCommandsCmd(app))
	cmd.AddCommand(newManualsCmd(app))
	cmd.AddCommand(newOpenCmd(app))
	cmd.AddCommand(newImportCmd(app))
	cmd.AddCommand(newExportCmd(app))
	cmd.AddCommand(newEnvCmd(app))
	cmd.AddCommand(newProxyCmd(app))
	cmd.AddCommand(newSettingsCmd(app))
	cmd.AddCommand(newHistoryCmd(app))
	cmd.AddCommand(newWatchCmd(app))
	cmd.AddCommand(newDashboardCmd(app))
	cmd.AddCommand(newVersionCmd())

	return cmd
}
