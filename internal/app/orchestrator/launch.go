package orchestrator

import (
	"context"
	"errors"
	"time"

	"github.com/alexisbeaulieu97/plugdeck/internal/domain/plugin"
	"github.com/alexisbeaulieu97/plugdeck/internal/envfile"
	"github.com/alexisbeaulieu97/plugdeck/internal/history"
	"github.com/alexisbeaulieu97/plugdeck/internal/launcher"
	"github.com/alexisbeaulieu97/plugdeck/internal/ports"
	"github.com/alexisbeaulieu97/plugdeck/internal/provision"
	"github.com/alexisbeaulieu97/plugdeck/internal/resolver"
	pderrors "github.com/alexisbeaulieu97/plugdeck/pkg/errors"
)

var errNotExecutable = errors.New("missing " + plugin.EntryFile)

// LaunchOption adjusts a single launch.
type LaunchOption func(*launchOptions)

type launchOptions struct {
	force bool
}

// WithForceProvision re-runs the dependency sync even when the environment
// is already provisioned.
func WithForceProvision() LaunchOption {
	return func(o *launchOptions) { o.force = true }
}

// Launch starts a plugin. An unprovisioned plugin is provisioned on the
// provision worker first and spawned once that succeeds; Launch returns as
// soon as the work is spawned or enqueued. Failures after that point are
// reported through events.
func (o *Orchestrator) Launch(ctx context.Context, name string, opts ...LaunchOption) error {
	var lo launchOptions
	for _, opt := range opts {
		opt(&lo)
	}

	p, err := o.registry.Get(name)
	if err != nil {
		o.reportError(ctx, ports.EventErrorOccurred, err)
		return err
	}
	if !p.Executable {
		err := pderrors.NewSpawnError(p.Name, "", errNotExecutable)
		o.failLaunch(ctx, p, "", history.KindLaunch, err)
		return err
	}

	if !lo.force && provision.IsProvisioned(p) {
		_, err := o.spawnPlugin(ctx, p)
		return err
	}

	started := time.Now()
	results, err := o.provisioner.Ensure(ctx, p, provision.Options{Force: lo.force})
	if err != nil {
		o.reportError(ctx, ports.EventProvisionError, err)
		return err
	}
	o.publish(ctx, ports.EventProvisionStarted, ProvisionStarted{Name: p.Name})

	bgCtx := context.WithoutCancel(ctx)
	o.bg.Go(func() {
		res := <-results
		elapsed := time.Since(started)
		if !res.Success {
			o.metrics.RecordProvision(p.Name, elapsed, ports.OutcomeFailure)
			o.record(bgCtx, history.Entry{Kind: history.KindProvision, Plugin: p.Name, Error: errorText(res.Err)})
			o.reportError(bgCtx, ports.EventProvisionError, res.Err)
			return
		}
		o.metrics.RecordProvision(p.Name, elapsed, ports.OutcomeSuccess)
		o.record(bgCtx, history.Entry{Kind: history.KindProvision, Plugin: p.Name, Success: true})
		o.publish(bgCtx, ports.EventProvisionFinished, ProvisionFinished{Name: p.Name})
		_, _ = o.spawnPlugin(bgCtx, p)
	}, o.panicHandler(bgCtx, "launch"))
	return nil
}

// ExecuteCommand runs snippet text for a plugin right away, whatever its
// provisioning state. Macros are substituted relative to the snippet
// directory.
func (o *Orchestrator) ExecuteCommand(ctx context.Context, name, text string) error {
	p, err := o.registry.Get(name)
	if err != nil {
		o.reportError(ctx, ports.EventErrorOccurred, err)
		return err
	}
	env, err := o.environment()
	if err != nil {
		o.failLaunch(ctx, p, text, history.KindCommand, err)
		return err
	}

	command := resolver.SubstituteMacros(text, resolver.MacroContext{
		PluginDir:  p.Path,
		SnippetDir: p.SnippetDir(),
		CommandDir: p.CommandDir(),
		Lookup:     env.Lookup,
	})
	req := launcher.Request{
		Plugin:   p.Name,
		Command:  command,
		Dir:      p.Path,
		Env:      env,
		Platform: o.platform,
	}
	if provision.IsProvisioned(p) {
		req.VirtualEnv = p.EnvDir()
	}
	_, err = o.spawn(ctx, p, req, history.KindCommand)
	return err
}

// OpenManual opens a manual file with the host's default application.
func (o *Orchestrator) OpenManual(ctx context.Context, path string) error {
	if err := o.launcher.Open(ctx, o.platform, path); err != nil {
		o.reportError(ctx, ports.EventErrorOccurred, err)
		return err
	}
	return nil
}

// OpenPluginDir opens a plugin's directory in the host file manager.
func (o *Orchestrator) OpenPluginDir(ctx context.Context, name string) error {
	p, err := o.registry.Get(name)
	if err != nil {
		o.reportError(ctx, ports.EventErrorOccurred, err)
		return err
	}
	return o.OpenManual(ctx, p.Path)
}

func (o *Orchestrator) launchCommand(p plugin.Plugin, env *envfile.Env) string {
	return resolver.SubstituteMacros(o.resolver.Resolve(p), resolver.MacroContext{
		PluginDir:  p.Path,
		SnippetDir: p.SnippetDir(),
		CommandDir: p.Path,
		Lookup:     env.Lookup,
	})
}

func (o *Orchestrator) spawnPlugin(ctx context.Context, p plugin.Plugin) (*launcher.Process, error) {
	env, err := o.environment()
	if err != nil {
		o.failLaunch(ctx, p, "", history.KindLaunch, err)
		return nil, err
	}
	return o.spawn(ctx, p, launcher.Request{
		Plugin:       p.Name,
		Command:      o.launchCommand(p, env),
		Dir:          p.Path,
		Env:          env,
		Platform:     o.platform,
		VirtualEnv:   p.EnvDir(),
		PauseOnError: true,
	}, history.KindLaunch)
}

func (o *Orchestrator) spawn(ctx context.Context, p plugin.Plugin, req launcher.Request, kind history.Kind) (*launcher.Process, error) {
	proc, err := o.launcher.Spawn(ctx, req)
	if err != nil {
		o.failLaunch(ctx, p, req.Command, kind, err)
		return nil, err
	}
	o.metrics.RecordLaunch(p.Name, ports.OutcomeSuccess)
	o.record(ctx, history.Entry{Kind: kind, Plugin: p.Name, Detail: req.Command, Success: true})
	o.publish(ctx, ports.EventPluginLaunched, PluginLaunched{Name: p.Name, Command: req.Command, PID: proc.PID})
	return proc, nil
}

func (o *Orchestrator) failLaunch(ctx context.Context, p plugin.Plugin, command string, kind history.Kind, err error) {
	o.metrics.RecordLaunch(p.Name, ports.OutcomeFailure)
	o.record(ctx, history.Entry{Kind: kind, Plugin: p.Name, Detail: command, Error: errorText(err)})
	o.reportError(ctx, ports.EventErrorOccurred, err)
}
