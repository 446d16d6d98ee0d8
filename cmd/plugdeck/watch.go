package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/alexisbeaulieu97/plugdeck/internal/app/orchestrator"
	"github.com/alexisbeaulieu97/plugdeck/internal/ports"
	"github.com/alexisbeaulieu97/plugdeck/internal/registry"
)

type watchOptions struct {
	metricsAddr string
	debounce    time.Duration
}

func newWatchCmd(app *AppContext) *cobra.Command {
	opts := &watchOptions{}

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Rescan whenever the plugins directory changes",
		Long: `Watch the plugins directory and rescan after every change. With
--metrics-addr, Prometheus metrics are served on /metrics until interrupted.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWatch(cmd, app, opts)
		},
	}

	cmd.Flags().StringVar(&opts.metricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address, e.g. :9464")
	cmd.Flags().DurationVar(&opts.debounce, "debounce", 0, "Delay between a change and the rescan (default 250ms)")

	return cmd
}

func runWatch(cmd *cobra.Command, app *AppContext, opts *watchOptions) error {
	ctx, o, err := startOrchestrator(cmd, app, "command.watch")
	if err != nil {
		return err
	}
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	out := cmd.OutOrStdout()
	sub, err := o.Events().Subscribe(ports.EventScanCompleted, func(_ context.Context, e ports.DomainEvent) error {
		if scan, ok := e.Payload().(orchestrator.ScanCompleted); ok {
			fmt.Fprintf(out, "%s  %d plugin(s), %d skipped\n", time.Now().Format(time.TimeOnly), scan.Count, len(scan.Skipped))
		}
		return nil
	})
	if err != nil {
		return err
	}
	defer sub.Unsubscribe()

	var serverErr <-chan error
	if opts.metricsAddr != "" {
		addr, done, err := app.Metrics.Serve(ctx, opts.metricsAddr)
		if err != nil {
			return newCommandError("serve metrics", opts.metricsAddr, err, "Pick a free address with --metrics-addr.")
		}
		serverErr = done
		fmt.Fprintf(out, "Serving metrics on http://%s/metrics\n", addr)
	}

	var watchOpts []registry.WatcherOption
	if opts.debounce > 0 {
		watchOpts = append(watchOpts, registry.WithDebounce(opts.debounce))
	}

	fmt.Fprintf(out, "Watching %s (%d plugin(s)). Press Ctrl+C to stop.\n", app.Config.PluginsDir, len(o.Plugins()))
	watchErr := make(chan error, 1)
	go func() { watchErr <- o.Watch(ctx, watchOpts...) }()

	select {
	case err := <-watchErr:
		if err != nil {
			return newCommandError("watch plugins", app.Config.PluginsDir, err, "")
		}
		return nil
	case err := <-serverErr:
		stop()
		<-watchErr
		if err != nil {
			return newCommandError("serve metrics", opts.metricsAddr, err, "")
		}
		return nil
	}
}
