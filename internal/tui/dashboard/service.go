package dashboard

import (
	"context"

	"github.com/alexisbeaulieu97/plugdeck/internal/app/orchestrator"
	"github.com/alexisbeaulieu97/plugdeck/internal/domain/plugin"
)

// PluginService exposes the operations the dashboard drives. It is
// satisfied by *orchestrator.Orchestrator.
type PluginService interface {
	Plugins() []plugin.Plugin
	Search(query string) []plugin.Plugin
	Scan(ctx context.Context) error
	Launch(ctx context.Context, name string, opts ...orchestrator.LaunchOption) error
	ExecuteCommand(ctx context.Context, name, text string) error
	OpenPluginDir(ctx context.Context, name string) error
	OpenManual(ctx context.Context, path string) error
}

var _ PluginService = (*orchestrator.Orchestrator)(nil)
