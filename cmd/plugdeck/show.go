package main

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/alexisbeaulieu97/plugdeck/internal/domain/plugin"
)

func newShowCmd(app *AppContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show <name>",
		Short: "Show the details of a plugin",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runShow(cmd, app, args[0])
		},
	}
}

func runShow(cmd *cobra.Command, app *AppContext, name string) error {
	_, o, err := startOrchestrator(cmd, app, "command.show")
	if err != nil {
		return err
	}

	p, err := o.Plugin(name)
	if err != nil {
		return newCommandError("show plugin", name, err, "Run 'plugdeck list' to see installed plugins.")
	}

	command := "(none)"
	if p.Executable {
		resolved, err := o.ResolvedCommand(name)
		if err != nil {
			return newCommandError("show plugin", "resolving the launch command of "+name, err, "Check the .env file.")
		}
		command = resolved
	}

	return renderPlugin(cmd, p, command)
}

func renderPlugin(cmd *cobra.Command, p plugin.Plugin, command string) error {
	out := cmd.OutOrStdout()
	writer := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)

	fmt.Fprintf(writer, "Name:\t%s\n", p.Name)
	if p.Alias != "" {
		fmt.Fprintf(writer, "Alias:\t%s\n", p.Alias)
	}
	fmt.Fprintf(writer, "Version:\t%s\n", valueOrFallback(p.Version, "-"))
	fmt.Fprintf(writer, "Description:\t%s\n", valueOrFallback(p.Description, "(no description)"))
	fmt.Fprintf(writer, "Tags:\t%s\n", valueOrFallback(strings.Join(p.Tags, ", "), "-"))
	fmt.Fprintf(writer, "Dependencies:\t%s\n", valueOrFallback(strings.Join(p.Dependencies, ", "), "-"))
	fmt.Fprintf(writer, "Path:\t%s\n", p.Path)
	fmt.Fprintf(writer, "Status:\t%s\n", pluginStatus(p))
	fmt.Fprintf(writer, "Command:\t%s\n", command)
	if err := writer.Flush(); err != nil {
		return err
	}

	if len(p.Commands) > 0 {
		fmt.Fprintln(out, "\nCommands:")
		for _, s := range p.Commands {
			fmt.Fprintf(out, "  %s  %s\n", s.Name, valueOrFallback(s.Description, s.Command))
		}
	}
	if len(p.Manuals) > 0 {
		fmt.Fprintln(out, "\nManuals:")
		for _, m := range p.Manuals {
			fmt.Fprintf(out, "  %s\n", manualLabel(p, m))
		}
	}
	return nil
}
