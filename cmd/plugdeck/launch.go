package main

import (
	"context"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/alexisbeaulieu97/plugdeck/internal/app/orchestrator"
	"github.com/alexisbeaulieu97/plugdeck/internal/domain/plugin"
)

type launchOptions struct {
	forceProvision bool
	wait           bool
}

func newLaunchCmd(app *AppContext) *cobra.Command {
	opts := &launchOptions{}

	cmd := &cobra.Command{
		Use:   "launch <name>",
		Short: "Provision a plugin if needed and start it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var launchOpts []orchestrator.LaunchOption
			if opts.forceProvision {
				launchOpts = append(launchOpts, orchestrator.WithForceProvision())
			}
			name := args[0]
			err := runActivity(cmd, app, "launch", nil, func(ctx context.Context, o *orchestrator.Orchestrator) error {
				return o.Launch(ctx, name, launchOpts...)
			})
			if err != nil {
				return err
			}
			if opts.wait {
				app.Launcher.Wait()
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&opts.forceProvision, "force-provision", false, "Re-run the dependency sync before launching")
	cmd.Flags().BoolVar(&opts.wait, "wait", false, "Wait for the plugin process to exit")

	return cmd
}

type execOptions struct {
	raw  bool
	wait bool
}

func newExecCmd(app *AppContext) *cobra.Command {
	opts := &execOptions{}

	cmd := &cobra.Command{
		Use:   "exec <name> <snippet>",
		Short: "Run one of a plugin's command snippets",
		Long: `Run a command snippet shipped with a plugin, or with --raw any command text.
Macros such as ${PLUGIN_DIR} and ${ENV:NAME} are substituted first.`,
		Args: cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := args[0]
			text := strings.Join(args[1:], " ")
			if !opts.raw {
				snippet, err := findSnippet(cmd, app, name, text)
				if err != nil {
					return err
				}
				text = snippet.Command
			}
			err := runActivity(cmd, app, "exec", nil, func(ctx context.Context, o *orchestrator.Orchestrator) error {
				return o.ExecuteCommand(ctx, name, text)
			})
			if err != nil {
				return err
			}
			if opts.wait {
				app.Launcher.Wait()
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&opts.raw, "raw", false, "Treat the arguments as command text instead of a snippet name")
	cmd.Flags().BoolVar(&opts.wait, "wait", false, "Wait for the command to exit")

	return cmd
}

func findSnippet(cmd *cobra.Command, app *AppContext, name, snippet string) (plugin.Snippet, error) {
	_, o, err := startOrchestrator(cmd, app, "command.exec")
	if err != nil {
		return plugin.Snippet{}, err
	}
	p, err := o.Plugin(name)
	if err != nil {
		return plugin.Snippet{}, newCommandError("run command", name, err, "Run 'plugdeck list' to see installed plugins.")
	}
	s, ok := p.Command(snippet)
	if !ok {
		return plugin.Snippet{}, newCommandError("run command", name+" has no command "+strconv.Quote(snippet),
			fmt.Errorf("unknown command %q", snippet),
			fmt.Sprintf("Run 'plugdeck commands %s' to list its commands, or pass --raw.", name))
	}
	return s, nil
}

func newCommandsCmd(app *AppContext) *cobra.Command {
	return &cobra.Command{
		Use:   "commands <name>",
		Short: "List the command snippets of a plugin",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, o, err := startOrchestrator(cmd, app, "command.commands")
			if err != nil {
				return err
			}
			snippets, err := o.Commands(args[0])
			if err != nil {
				return newCommandError("list commands", args[0], err, "Run 'plugdeck list' to see installed plugins.")
			}
			if len(snippets) == 0 {
				fmt.Fprintf(cmd.OutOrStdout(), "%s has no commands.\n", args[0])
				return nil
			}

			writer := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(writer, "NAME\tDESCRIPTION\tCOMMAND")
			for _, s := range snippets {
				fmt.Fprintf(writer, "%s\t%s\t%s\n", s.Name, valueOrFallback(s.Description, "-"), s.Command)
			}
			return writer.Flush()
		},
	}
}

type manualsOptions struct {
	open int
}

func newManualsCmd(app *AppContext) *cobra.Command {
	opts := &manualsOptions{}

	cmd := &cobra.Command{
		Use:   "manuals <name>",
		Short: "List or open the manuals of a plugin",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, o, err := startOrchestrator(cmd, app, "command.manuals")
			if err != nil {
				return err
			}
			p, err := o.Plugin(args[0])
			if err != nil {
				return newCommandError("list manuals", args[0], err, "Run 'plugdeck list' to see installed plugins.")
			}
			manuals, err := o.Manuals(args[0])
			if err != nil {
				return newCommandError("list manuals", args[0], err, "")
			}

			if opts.open > 0 {
				if opts.open > len(manuals) {
					return newCommandError("open manual", args[0],
						fmt.Errorf("manual %d does not exist", opts.open),
						fmt.Sprintf("Pick a number between 1 and %d.", len(manuals)))
				}
				if err := o.OpenManual(ctx, manuals[opts.open-1]); err != nil {
					return newCommandError("open manual", manuals[opts.open-1], err, "Check that a default application is configured for this file type.")
				}
				return nil
			}

			if len(manuals) == 0 {
				fmt.Fprintf(cmd.OutOrStdout(), "%s has no manuals.\n", args[0])
				return nil
			}
			for i, m := range manuals {
				fmt.Fprintf(cmd.OutOrStdout(), "%3d  %s\n", i+1, manualLabel(p, m))
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&opts.open, "open", 0, "Open the manual with this number")

	return cmd
}

func manualLabel(p plugin.Plugin, path string) string {
	rel, err := filepath.Rel(p.ManualDir(), path)
	if err != nil {
		return filepath.Base(path)
	}
	return filepath.ToSlash(rel)
}

func newOpenCmd(app *AppContext) *cobra.Command {
	return &cobra.Command{
		Use:   "open <name>",
		Short: "Open a plugin's directory in the file manager",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, o, err := startOrchestrator(cmd, app, "command.open")
			if err != nil {
				return err
			}
			if err := o.OpenPluginDir(ctx, args[0]); err != nil {
				return newCommandError("open plugin directory", args[0], err, "")
			}
			return nil
		},
	}
}
