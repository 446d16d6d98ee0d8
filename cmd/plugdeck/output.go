package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/alexisbeaulieu97/plugdeck/internal/app/orchestrator"
	"github.com/alexisbeaulieu97/plugdeck/internal/tui"
)

func isTerminal(writer io.Writer) bool {
	if file, ok := writer.(*os.File); ok {
		return term.IsTerminal(int(file.Fd()))
	}
	return false
}

func valueOrFallback(value, fallback string) string {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return fallback
	}
	return trimmed
}

// startOrchestrator bootstraps the application for cmd.
func startOrchestrator(cmd *cobra.Command, app *AppContext, component string) (context.Context, *orchestrator.Orchestrator, error) {
	ctx, _ := app.CommandContext(cmd, component)
	o, err := app.Bootstrap(ctx, cmd.OutOrStdout(), cmd.ErrOrStderr())
	if err != nil {
		return nil, nil, err
	}
	return ctx, o, nil
}

type activityFunc func(ctx context.Context, o *orchestrator.Orchestrator) error

// runActivity runs start and renders the events it produces until all
// background work has drained. On a terminal the progress is interactive;
// otherwise the final summary is printed once.
func runActivity(cmd *cobra.Command, app *AppContext, title string, opts []tui.Option, start activityFunc) error {
	ctx, o, err := startOrchestrator(cmd, app, "command."+title)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()

	var final tui.Model
	if isTerminal(out) {
		model := tui.NewModel(title, o, opts...)
		program := tea.NewProgram(model, tea.WithOutput(out))
		unsubscribe, err := tui.Subscribe(o.Events(), program.Send)
		if err != nil {
			return err
		}
		defer unsubscribe()

		go func() {
			_ = start(ctx, o)
			o.Wait()
			program.Send(tui.DoneMsg{})
		}()

		result, err := program.Run()
		if err != nil {
			return fmt.Errorf("failed to render progress: %w", err)
		}
		m, ok := result.(tui.Model)
		if !ok {
			return fmt.Errorf("unexpected model type %T", result)
		}
		final = m
	} else {
		opts = append(opts, tui.NonInteractive())
		dispatcher := tui.NewDispatcher(nil, tui.NewModel(title, o, opts...))
		unsubscribe, err := tui.Subscribe(o.Events(), dispatcher.Send)
		if err != nil {
			return err
		}
		_ = start(ctx, o)
		o.Wait()
		dispatcher.Send(tui.DoneMsg{})
		unsubscribe()

		final = dispatcher.State()
		fmt.Fprintln(out, final.View())
	}

	if problems := final.Problems(); len(problems) > 0 {
		return fmt.Errorf("%s finished with %d problem(s): %s", title, len(problems), problems[0].Title)
	}
	if final.Cancelled() {
		return fmt.Errorf("%s cancelled", title)
	}
	return nil
}
