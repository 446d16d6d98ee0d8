package main

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

func newEnvCmd(app *AppContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "env",
		Short: "Choose which .env variables are passed to plugins",
	}

	cmd.AddCommand(newEnvListCmd(app))
	cmd.AddCommand(newEnvToggleCmd(app, "enable", true))
	cmd.AddCommand(newEnvToggleCmd(app, "disable", false))

	return cmd
}

func newEnvListCmd(app *AppContext) *cobra.Command {
	var showValues bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List .env variables and whether they are enabled",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, o, err := startOrchestrator(cmd, app, "command.env")
			if err != nil {
				return err
			}
			vars, err := o.EnvironmentVariables()
			if err != nil {
				return newCommandError("list environment", app.Config.EnvFile, err, "Check that the .env file is readable.")
			}
			if len(vars) == 0 {
				fmt.Fprintf(cmd.OutOrStdout(), "No variables in %s.\n", app.Config.EnvFile)
				return nil
			}

			writer := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(writer, "KEY\tENABLED\tVALUE")
			for _, v := range vars {
				value := "****"
				if showValues {
					value = v.Value
				}
				fmt.Fprintf(writer, "%s\t%t\t%s\n", v.Key, v.Enabled, value)
			}
			return writer.Flush()
		},
	}

	cmd.Flags().BoolVar(&showValues, "values", false, "Print variable values")

	return cmd
}

func newEnvToggleCmd(app *AppContext, verb string, enabled bool) *cobra.Command {
	return &cobra.Command{
		Use:   verb + " <key>...",
		Short: strings.ToUpper(verb[:1]) + verb[1:] + " .env variables",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, o, err := startOrchestrator(cmd, app, "command.env")
			if err != nil {
				return err
			}
			for _, key := range args {
				if err := o.SetEnvEnabled(key, enabled); err != nil {
					return newCommandError(verb+" variable", key, err, "")
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s %sd\n", key, verb)
			}
			return nil
		},
	}
}

func newProxyCmd(app *AppContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "proxy",
		Short: "Show or change the proxy used for downloads and plugins",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "get",
		Short: "Print the configured proxy",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, o, err := startOrchestrator(cmd, app, "command.proxy")
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), valueOrFallback(o.Settings().Proxy(), "(none)"))
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "set [url]",
		Short: "Set the proxy. Without an argument the proxy is cleared",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, o, err := startOrchestrator(cmd, app, "command.proxy")
			if err != nil {
				return err
			}
			proxy := ""
			if len(args) == 1 {
				proxy = args[0]
			}
			if err := o.SetProxy(proxy); err != nil {
				return newCommandError("set proxy", proxy, err, "Use a URL such as http://proxy.example.com:8080.")
			}
			fmt.Fprintln(cmd.OutOrStdout(), "proxy: "+valueOrFallback(proxy, "(none)"))
			return nil
		},
	})

	return cmd
}

type settingsJSON struct {
	Proxy          string          `json:"proxy"`
	SizePreference int             `json:"size_preference"`
	Environment    map[string]bool `json:"environment_settings"`
	SettingsFile   string          `json:"settings_file"`
}

func newSettingsCmd(app *AppContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "settings",
		Short: "Show persisted settings",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, o, err := startOrchestrator(cmd, app, "command.settings")
			if err != nil {
				return err
			}
			snap := o.Settings()
			encoder := json.NewEncoder(cmd.OutOrStdout())
			encoder.SetIndent("", "  ")
			return encoder.Encode(settingsJSON{
				Proxy:          snap.Proxy(),
				SizePreference: snap.SizePreference(),
				Environment:    snap.EnvSettings(),
				SettingsFile:   app.Config.SettingsFile,
			})
		},
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "size <n>",
		Short: "Store the preferred dashboard size",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, o, err := startOrchestrator(cmd, app, "command.settings")
			if err != nil {
				return err
			}
			size, err := strconv.Atoi(args[0])
			if err != nil {
				return newCommandError("set size preference", args[0], err, "Pass a whole number.")
			}
			if err := o.SetSizePreference(size); err != nil {
				return newCommandError("set size preference", args[0], err, "Pass a number of zero or more.")
			}
			fmt.Fprintf(cmd.OutOrStdout(), "size preference: %d\n", size)
			return nil
		},
	})

	return cmd
}
