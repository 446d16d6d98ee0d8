package main

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/alexisbeaulieu97/plugdeck/internal/history"
)

type historyOptions struct {
	limit      int
	plugin     string
	kind       string
	jsonOutput bool
}

func newHistoryCmd(app *AppContext) *cobra.Command {
	opts := &historyOptions{}

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recent launches, imports and exports",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHistory(cmd, app, opts)
		},
	}

	cmd.Flags().IntVarP(&opts.limit, "limit", "n", 20, "Maximum number of entries")
	cmd.Flags().StringVar(&opts.plugin, "plugin", "", "Only show entries for this plugin")
	cmd.Flags().StringVar(&opts.kind, "kind", "", "Only show launch, command, provision, import or export entries")
	cmd.Flags().BoolVar(&opts.jsonOutput, "json", false, "Output in JSON format")

	return cmd
}

func runHistory(cmd *cobra.Command, app *AppContext, opts *historyOptions) error {
	ctx, o, err := startOrchestrator(cmd, app, "command.history")
	if err != nil {
		return err
	}
	if app.Journal == nil {
		return newCommandError("read history", app.Config.HistoryDB, fmt.Errorf("activity journal unavailable"), "Check that history_db points to a writable location.")
	}

	kind := history.Kind(opts.kind)
	switch kind {
	case "", history.KindLaunch, history.KindCommand, history.KindProvision, history.KindImport, history.KindExport:
	default:
		return newCommandError("read history", "filtering by "+opts.kind, fmt.Errorf("unknown kind %q", opts.kind), "Use launch, command, provision, import or export.")
	}

	entries, err := o.History(ctx, history.Query{Plugin: opts.plugin, Kind: kind, Limit: opts.limit})
	if err != nil {
		return newCommandError("read history", app.Config.HistoryDB, err, "")
	}

	if opts.jsonOutput {
		return renderHistoryJSON(cmd, entries)
	}
	if len(entries) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No activity recorded yet.")
		return nil
	}

	writer := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(writer, "WHEN\tKIND\tPLUGIN\tRESULT\tDETAIL")
	for _, e := range entries {
		result := "ok"
		if !e.Success {
			result = valueOrFallback(e.Error, "failed")
		}
		fmt.Fprintf(writer, "%s\t%s\t%s\t%s\t%s\n",
			e.At.Local().Format(time.DateTime),
			e.Kind,
			valueOrFallback(e.Plugin, "-"),
			result,
			valueOrFallback(e.Detail, "-"),
		)
	}
	return writer.Flush()
}

type historyJSONEntry struct {
	ID      int64        `json:"id"`
	At      time.Time    `json:"at"`
	Kind    history.Kind `json:"kind"`
	Plugin  string       `json:"plugin,omitempty"`
	Detail  string       `json:"detail,omitempty"`
	Success bool         `json:"success"`
	Error   string       `json:"error,omitempty"`
}

func renderHistoryJSON(cmd *cobra.Command, entries []history.Entry) error {
	out := make([]historyJSONEntry, len(entries))
	for i, e := range entries {
		out[i] = historyJSONEntry(e)
	}
	encoder := json.NewEncoder(cmd.OutOrStdout())
	encoder.SetIndent("", "  ")
	return encoder.Encode(out)
}
