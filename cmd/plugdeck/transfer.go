package main

import (
	"context"
	"strings"

	"github.com/spf13/cobra"

	"github.com/alexisbeaulieu97/plugdeck/internal/app/orchestrator"
	"github.com/alexisbeaulieu97/plugdeck/internal/tui"
)

type importOptions struct {
	yes bool
	no  bool
}

func newImportCmd(app *AppContext) *cobra.Command {
	opts := &importOptions{}

	cmd := &cobra.Command{
		Use:   "import <archive|url>",
		Short: "Install a plugin from a zip archive, an http(s) or s3 URL, or a git repository",
		Long: `Install a plugin from a local .zip archive, an http(s):// or s3:// URL,
or a git+https:// repository. Replacing an installed plugin asks for
confirmation first.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var tuiOpts []tui.Option
			switch {
			case opts.yes:
				tuiOpts = append(tuiOpts, tui.WithAutoAnswer(true))
			case opts.no:
				tuiOpts = append(tuiOpts, tui.WithAutoAnswer(false))
			}
			source := args[0]
			return runActivity(cmd, app, "import", tuiOpts, func(ctx context.Context, o *orchestrator.Orchestrator) error {
				if isURL(source) {
					return o.ImportFromURL(ctx, source)
				}
				return o.ImportFromDisk(ctx, source)
			})
		},
	}

	cmd.Flags().BoolVarP(&opts.yes, "yes", "y", false, "Overwrite an installed plugin without asking")
	cmd.Flags().BoolVar(&opts.no, "no", false, "Keep an installed plugin without asking")
	cmd.MarkFlagsMutuallyExclusive("yes", "no")

	return cmd
}

func isURL(source string) bool {
	return strings.Contains(source, "://")
}

func newExportCmd(app *AppContext) *cobra.Command {
	return &cobra.Command{
		Use:   "export <name> <destination>",
		Short: "Archive a plugin to a file, a directory or an s3:// URL",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			name, dest := args[0], args[1]
			return runActivity(cmd, app, "export", nil, func(ctx context.Context, o *orchestrator.Orchestrator) error {
				return o.ExportPlugin(ctx, name, dest)
			})
		},
	}
}
