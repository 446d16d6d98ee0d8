package dashboard

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/alexisbeaulieu97/plugdeck/internal/app/orchestrator"
	"github.com/alexisbeaulieu97/plugdeck/internal/domain/plugin"
)

// loadPluginsCmd lists plugins, filtered by query when set
func loadPluginsCmd(svc PluginService, query string) tea.Cmd {
	return func() tea.Msg {
		if query == "" {
			return PluginsLoadedMsg{Plugins: svc.Plugins()}
		}
		return PluginsLoadedMsg{Plugins: svc.Search(query)}
	}
}

func launchCmd(ctx context.Context, svc PluginService, name string, force bool) tea.Cmd {
	return func() tea.Msg {
		var opts []orchestrator.LaunchOption
		if force {
			opts = append(opts, orchestrator.WithForceProvision())
		}
		return ActionDoneMsg{Action: ActionLaunch, Name: name, Err: svc.Launch(ctx, name, opts...)}
	}
}

func runSnippetCmd(ctx context.Context, svc PluginService, name string, snippet plugin.Snippet) tea.Cmd {
	return func() tea.Msg {
		return ActionDoneMsg{Action: ActionRun, Name: snippet.Name, Err: svc.ExecuteCommand(ctx, name, snippet.Command)}
	}
}

func openDirCmd(ctx context.Context, svc PluginService, name string) tea.Cmd {
	return func() tea.Msg {
		return ActionDoneMsg{Action: ActionOpen, Name: name, Err: svc.OpenPluginDir(ctx, name)}
	}
}

func openManualCmd(ctx context.Context, svc PluginService, path string) tea.Cmd {
	return func() tea.Msg {
		return ActionDoneMsg{Action: ActionManual, Name: path, Err: svc.OpenManual(ctx, path)}
	}
}

func rescanCmd(ctx context.Context, svc PluginService) tea.Cmd {
	return func() tea.Msg {
		return ActionDoneMsg{Action: ActionRescan, Err: svc.Scan(ctx)}
	}
}
