package main

import (
	"encoding/json"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/alexisbeaulieu97/plugdeck/internal/domain/plugin"
	"github.com/alexisbeaulieu97/plugdeck/internal/provision"
)

type listOptions struct {
	jsonOutput bool
	query      string
}

func newListCmd(app *AppContext) *cobra.Command {
	opts := &listOptions{}

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List installed plugins",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runList(cmd, app, opts)
		},
	}

	cmd.Flags().BoolVar(&opts.jsonOutput, "json", false, "Output in JSON format")
	cmd.Flags().StringVarP(&opts.query, "search", "s", "", "Only list plugins matching a name, alias, tag or description")

	return cmd
}

func runList(cmd *cobra.Command, app *AppContext, opts *listOptions) error {
	_, o, err := startOrchestrator(cmd, app, "command.list")
	if err != nil {
		return err
	}

	plugins := o.Search(opts.query)
	if opts.jsonOutput {
		return renderListJSON(cmd, plugins, len(o.Skipped()))
	}
	if len(plugins) == 0 {
		return renderEmptyList(cmd, opts.query)
	}
	return renderListTable(cmd, plugins)
}

func renderEmptyList(cmd *cobra.Command, query string) error {
	if query != "" {
		fmt.Fprintf(cmd.OutOrStdout(), "No plugins match %q.\n", query)
		return nil
	}
	fmt.Fprintln(cmd.OutOrStdout(), "No plugins installed yet.")
	fmt.Fprintln(cmd.OutOrStdout(), "\nRun 'plugdeck import <archive|url>' to add your first plugin.")
	return nil
}

func renderListTable(cmd *cobra.Command, plugins []plugin.Plugin) error {
	writer := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)

	fmt.Fprintln(writer, "NAME\tVERSION\tSTATUS\tTAGS\tDESCRIPTION")
	for _, p := range plugins {
		fmt.Fprintf(writer, "%s\t%s\t%s\t%s\t%s\n",
			p.Name,
			valueOrFallback(p.Version, "-"),
			pluginStatus(p),
			valueOrFallback(strings.Join(p.Tags, ","), "-"),
			valueOrFallback(p.Description, "(no description)"),
		)
	}

	return writer.Flush()
}

func pluginStatus(p plugin.Plugin) string {
	switch {
	case !p.Executable:
		return "not executable"
	case provision.IsProvisioned(p):
		return "ready"
	default:
		return "needs provisioning"
	}
}

type listJSONPlugin struct {
	Name         string   `json:"name"`
	Alias        string   `json:"alias,omitempty"`
	Version      string   `json:"version"`
	Description  string   `json:"description"`
	Tags         []string `json:"tags"`
	Dependencies []string `json:"dependencies"`
	Path         string   `json:"path"`
	Executable   bool     `json:"executable"`
	Provisioned  bool     `json:"provisioned"`
	Commands     int      `json:"commands"`
	Manuals      int      `json:"manuals"`
}

type listJSONPayload struct {
	Version string           `json:"version"`
	Count   int              `json:"count"`
	Skipped int              `json:"skipped"`
	Plugins []listJSONPlugin `json:"plugins"`
}

func renderListJSON(cmd *cobra.Command, plugins []plugin.Plugin, skipped int) error {
	payload := listJSONPayload{
		Version: "1.0",
		Count:   len(plugins),
		Skipped: skipped,
		Plugins: make([]listJSONPlugin, len(plugins)),
	}

	for i, p := range plugins {
		payload.Plugins[i] = listJSONPlugin{
			Name:         p.Name,
			Alias:        p.Alias,
			Version:      p.Version,
			Description:  p.Description,
			Tags:         nonNil(p.Tags),
			Dependencies: nonNil(p.Dependencies),
			Path:         p.Path,
			Executable:   p.Executable,
			Provisioned:  provision.IsProvisioned(p),
			Commands:     len(p.Commands),
			Manuals:      len(p.Manuals),
		}
	}

	encoder := json.NewEncoder(cmd.OutOrStdout())
	encoder.SetIndent("", "  ")
	return encoder.Encode(payload)
}

func nonNil(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}
