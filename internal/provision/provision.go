// Package provision creates the isolated dependency environment of a plugin
// by driving an external package manager.
package provision

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"time"

	"github.com/alexisbeaulieu97/plugdeck/internal/domain/plugin"
	"github.com/alexisbeaulieu97/plugdeck/internal/envfile"
	"github.com/alexisbeaulieu97/plugdeck/internal/infrastructure/logging"
	"github.com/alexisbeaulieu97/plugdeck/internal/internalexec"
	"github.com/alexisbeaulieu97/plugdeck/internal/ports"
	"github.com/alexisbeaulieu97/plugdeck/internal/worker"
	pderrors "github.com/alexisbeaulieu97/plugdeck/pkg/errors"
)

const (
	uvInstallHint     = "Install uv: https://docs.astral.sh/uv/getting-started/installation/"
	pythonInstallHint = "Install Python 3 and make sure it is on PATH: https://www.python.org/downloads/"

	// ProjectEnvVar tells uv where to create the environment.
	ProjectEnvVar = "UV_PROJECT_ENVIRONMENT"
)

// Config names the tools and limits used for provisioning.
type Config struct {
	PackageManager string
	Interpreter    string
	ProbeTimeout   time.Duration
	SyncTimeout    time.Duration
	SyncArgs       []string
}

// Options tune a single Ensure call.
type Options struct {
	// Force re-runs the sync even when the environment is already marked.
	Force bool
}

// EnvSource builds the merged environment for a subprocess.
type EnvSource func() (*envfile.Env, error)

// Provisioner runs at most one provisioning job at a time.
type Provisioner struct {
	cfg    Config
	slot   *worker.Slot
	env    EnvSource
	logger ports.Logger
	output io.Writer
	now    func() time.Time
}

// Option configures a Provisioner.
type Option func(*Provisioner)

// WithLogger sets the logger.
func WithLogger(logger ports.Logger) Option {
	return func(p *Provisioner) { p.logger = logging.OrNoOp(logger) }
}

// WithOutput mirrors package manager output to w while it runs.
func WithOutput(w io.Writer) Option {
	return func(p *Provisioner) { p.output = w }
}

// WithSlot shares a worker slot with the caller, for example so Wait can
// drain it on shutdown.
func WithSlot(slot *worker.Slot) Option {
	return func(p *Provisioner) {
		if slot != nil {
			p.slot = slot
		}
	}
}

// New creates a Provisioner.
func New(cfg Config, env EnvSource, opts ...Option) *Provisioner {
	if cfg.ProbeTimeout <= 0 {
		cfg.ProbeTimeout = 5 * time.Second
	}
	if len(cfg.SyncArgs) == 0 {
		cfg.SyncArgs = []string{"sync"}
	}
	p := &Provisioner{
		cfg:    cfg,
		slot:   worker.NewSlot("provision"),
		env:    env,
		logger: logging.NewNoOpLogger(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Slot returns the worker slot the provisioner runs on.
func (p *Provisioner) Slot() *worker.Slot { return p.slot }

// Ensure provisions pl in the background. It returns ErrBusy immediately when
// another provisioning job is active. The returned channel receives one
// Result.
func (p *Provisioner) Ensure(ctx context.Context, pl plugin.Plugin, opts Options) (<-chan worker.Result, error) {
	return p.slot.TryGo(ctx, func(ctx context.Context) error {
		return p.Provision(ctx, pl, opts)
	})
}

// Provision runs the provisioning steps synchronously: probe the tools, skip
// if already provisioned, sync, then write the marker. Once the sync
// subprocess starts it is not cancelled by ctx; SyncTimeout bounds it instead.
func (p *Provisioner) Provision(ctx context.Context, pl plugin.Plugin, opts Options) error {
	logger := p.logger.With("plugin", pl.Name)

	pmVersion, err := p.Probe(ctx)
	if err != nil {
		return err
	}

	if !opts.Force && IsProvisioned(pl) {
		logger.Debug(ctx, "environment already provisioned", "env_dir", pl.EnvDir())
		return nil
	}

	env, err := p.env()
	if err != nil {
		return pderrors.NewProvisionError(pl.Name, "", fmt.Errorf("build environment: %w", err))
	}
	env = env.Clone()
	env.Set(ProjectEnvVar, pl.EnvDir())

	logger.Info(ctx, "syncing plugin environment", "env_dir", pl.EnvDir(), "tool", p.cfg.PackageManager)
	started := p.now()

	syncCtx := context.WithoutCancel(ctx)
	var cancel context.CancelFunc
	if p.cfg.SyncTimeout > 0 {
		syncCtx, cancel = context.WithTimeout(syncCtx, p.cfg.SyncTimeout)
		defer cancel()
	}

	cmd := exec.CommandContext(syncCtx, p.cfg.PackageManager, p.cfg.SyncArgs...)
	cmd.Dir = pl.Path
	cmd.Env = env.Slice()
	cmd.WaitDelay = 5 * time.Second

	res, err := internalexec.Run(cmd, p.output)
	if err != nil {
		if errors.Is(syncCtx.Err(), context.DeadlineExceeded) {
			err = fmt.Errorf("%s %v timed out after %s", p.cfg.PackageManager, p.cfg.SyncArgs, p.cfg.SyncTimeout)
		}
		logger.Error(ctx, "environment sync failed", "error", err, "exit_code", res.ExitCode)
		return pderrors.NewProvisionError(pl.Name, internalexec.PrimaryOutput(res), err)
	}

	marker := Marker{
		ProvisionedAt:  p.now().UTC(),
		PackageManager: pmVersion,
		PluginVersion:  pl.Version,
	}
	if err := writeMarker(pl, marker); err != nil {
		return pderrors.NewProvisionError(pl.Name, "", err)
	}

	logger.Info(ctx, "plugin environment ready", "duration", p.now().Sub(started).String())
	return nil
}

// Probe checks that the package manager and interpreter respond to
// --version. It returns the package manager's version line.
func (p *Provisioner) Probe(ctx context.Context) (string, error) {
	pmVersion, err := p.probeTool(ctx, p.cfg.PackageManager, uvInstallHint)
	if err != nil {
		return "", err
	}
	if _, err := p.probeTool(ctx, p.cfg.Interpreter, pythonInstallHint); err != nil {
		return "", err
	}
	return pmVersion, nil
}

func (p *Provisioner) probeTool(ctx context.Context, tool, hint string) (string, error) {
	probeCtx, cancel := context.WithTimeout(ctx, p.cfg.ProbeTimeout)
	defer cancel()

	version, err := internalexec.Version(exec.CommandContext(probeCtx, tool, "--version"))
	if err != nil {
		if probeCtx.Err() != nil && !internalexec.IsNotFound(err) {
			err = fmt.Errorf("no response within %s: %w", p.cfg.ProbeTimeout, probeCtx.Err())
		}
		p.logger.Warn(ctx, "required tool unavailable", "tool", tool, "error", err)
		return "", pderrors.NewToolUnavailableError(tool, hint, err)
	}
	p.logger.Debug(ctx, "tool available", "tool", tool, "version", version)
	return version, nil
}
