package main

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/alexisbeaulieu97/plugdeck/internal/ports"
	"github.com/alexisbeaulieu97/plugdeck/internal/tui"
	"github.com/alexisbeaulieu97/plugdeck/internal/tui/dashboard"
)

func newDashboardCmd(app *AppContext) *cobra.Command {
	return &cobra.Command{
		Use:   "dashboard",
		Short: "Browse, search and launch plugins interactively",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDashboard(cmd, app)
		},
	}
}

func runDashboard(cmd *cobra.Command, app *AppContext) error {
	// Plugin output would corrupt the alternate screen.
	app.DiscardChildOutput = true
	ctx, o, err := startOrchestrator(cmd, app, "command.dashboard")
	if err != nil {
		return err
	}
	logger := app.Logger.With("component", "command.dashboard")

	program := tea.NewProgram(dashboard.NewModel(ctx, o), tea.WithAltScreen())

	subs := make([]ports.Subscription, 0, len(dashboard.Events))
	defer func() {
		for _, s := range subs {
			s.Unsubscribe()
		}
	}()
	for _, eventType := range dashboard.Events {
		sub, err := o.Events().Subscribe(eventType, func(_ context.Context, e ports.DomainEvent) error {
			program.Send(tui.EventMsg{Type: e.EventType(), Payload: e.Payload()})
			return nil
		})
		if err != nil {
			return err
		}
		subs = append(subs, sub)
	}

	watchCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		if err := o.Watch(watchCtx); err != nil {
			logger.Warn(ctx, "plugin directory watcher stopped", "error", err)
		}
	}()

	logger.Info(ctx, "dashboard opened", "plugins", len(o.Plugins()))
	if _, err := program.Run(); err != nil {
		return fmt.Errorf("failed to run dashboard: %w", err)
	}
	logger.Info(ctx, "dashboard closed")
	return nil
}
