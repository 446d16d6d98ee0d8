// Package orchestrator wires the plugin lifecycle engine together and exposes
// it to presentation layers as operations plus events.
package orchestrator

import (
	"context"
	"fmt"
	"io"
	"os"
	"sort"
	"sync"

	"github.com/alexisbeaulieu97/plugdeck/internal/config"
	"github.com/alexisbeaulieu97/plugdeck/internal/domain/plugin"
	"github.com/alexisbeaulieu97/plugdeck/internal/envfile"
	"github.com/alexisbeaulieu97/plugdeck/internal/history"
	"github.com/alexisbeaulieu97/plugdeck/internal/infrastructure/events"
	"github.com/alexisbeaulieu97/plugdeck/internal/infrastructure/logging"
	"github.com/alexisbeaulieu97/plugdeck/internal/launcher"
	"github.com/alexisbeaulieu97/plugdeck/internal/manifest"
	"github.com/alexisbeaulieu97/plugdeck/internal/metrics"
	"github.com/alexisbeaulieu97/plugdeck/internal/ports"
	"github.com/alexisbeaulieu97/plugdeck/internal/provision"
	"github.com/alexisbeaulieu97/plugdeck/internal/registry"
	"github.com/alexisbeaulieu97/plugdeck/internal/resolver"
	"github.com/alexisbeaulieu97/plugdeck/internal/settings"
	"github.com/alexisbeaulieu97/plugdeck/internal/transfer"
	"github.com/alexisbeaulieu97/plugdeck/internal/worker"
)

// Options configure an Orchestrator. Only Config is required; every other
// collaborator has a default built from it.
type Options struct {
	Config   config.Config
	Platform *resolver.Platform
	Logger   ports.Logger
	Events   ports.EventPublisher
	Metrics  ports.MetricsCollector
	// Journal records activity when set. The orchestrator does not close it.
	Journal     *history.Journal
	Settings    *settings.Store
	Launcher    *launcher.Launcher
	Provisioner *provision.Provisioner
	S3          *transfer.S3Provider
	// ProvisionOutput mirrors package manager output while environments
	// are synced. It is ignored when Provisioner is set.
	ProvisionOutput io.Writer
	// TempDir is swept for orphaned import scratch files. Empty means the
	// system temp directory.
	TempDir string
}

// Orchestrator owns the registry, the worker slots and every lifecycle
// component. Its methods are safe for concurrent use.
type Orchestrator struct {
	cfg      config.Config
	platform resolver.Platform
	logger   ports.Logger
	events   ports.EventPublisher
	metrics  ports.MetricsCollector
	journal  *history.Journal
	settings *settings.Store
	tempDir  string

	loader      *manifest.Loader
	registry    *registry.Registry
	resolver    *resolver.Resolver
	provisioner *provision.Provisioner
	launcher    *launcher.Launcher
	importer    *transfer.Importer
	exporter    *transfer.Exporter

	// pathLock serializes scans with the install step of an import.
	pathLock   sync.Mutex
	importSlot *worker.Slot
	exportSlot *worker.Slot
	bg         worker.Group
}

// New builds an Orchestrator from opts.
func New(opts Options) (*Orchestrator, error) {
	cfg := opts.Config
	if err := config.Validate(&cfg); err != nil {
		return nil, err
	}

	logger := logging.OrNoOp(opts.Logger)
	platform := resolver.Current()
	if opts.Platform != nil {
		platform = *opts.Platform
	}

	o := &Orchestrator{
		cfg:        cfg,
		platform:   platform,
		logger:     logger.With("component", "orchestrator"),
		events:     opts.Events,
		metrics:    metrics.OrNoOp(opts.Metrics),
		journal:    opts.Journal,
		settings:   opts.Settings,
		tempDir:    opts.TempDir,
		importSlot: worker.NewSlot("import"),
		exportSlot: worker.NewSlot("export"),
	}
	if o.events == nil {
		o.events = events.NewLoggingPublisher(logger, ports.EventImportProgress)
	}
	if o.settings == nil {
		store, err := settings.Open(cfg.SettingsFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load settings: %w", err)
		}
		o.settings = store
	}

	o.loader = manifest.NewLoader(logger.With("component", "manifest"))
	o.registry = registry.New(cfg.PluginsDir, o.loader)
	o.resolver = resolver.New(platform, cfg.Tools.DefaultCommand)

	o.provisioner = opts.Provisioner
	if o.provisioner == nil {
		provisionOpts := []provision.Option{provision.WithLogger(logger.With("component", "provisioner"))}
		if opts.ProvisionOutput != nil {
			provisionOpts = append(provisionOpts, provision.WithOutput(opts.ProvisionOutput))
		}
		o.provisioner = provision.New(provision.Config{
			PackageManager: cfg.Tools.PackageManager,
			Interpreter:    cfg.Tools.Interpreter,
			ProbeTimeout:   cfg.Tools.ProbeTimeout,
			SyncTimeout:    cfg.Tools.SyncTimeout,
			SyncArgs:       cfg.Tools.SyncArgs,
		}, o.environment, provisionOpts...)
	}
	o.launcher = opts.Launcher
	if o.launcher == nil {
		o.launcher = launcher.New(launcher.WithLogger(logger.With("component", "launcher")))
	}

	s3 := opts.S3
	if s3 == nil {
		s3 = transfer.S3ProviderFromConfig(transfer.S3Config{
			Region:    cfg.Download.S3Region,
			Endpoint:  cfg.Download.S3Endpoint,
			PathStyle: cfg.Download.S3PathStyle,
		})
	}
	transferLogger := logger.With("component", "transfer")
	o.importer = transfer.NewImporter(transfer.ImporterOptions{
		Root:     cfg.PluginsDir,
		Loader:   o.loader,
		Lookup:   o.lookup,
		PathLock: &o.pathLock,
		Downloader: transfer.NewDownloader(transfer.DownloaderOptions{
			Timeout:   cfg.Download.Timeout,
			ChunkSize: cfg.Download.ChunkSize,
			Proxy:     func() string { return o.settings.Snapshot().Proxy() },
			GitDepth:  1,
			S3:        s3,
			Logger:    transferLogger,
		}),
		Logger: transferLogger,
	})
	o.exporter = transfer.NewExporter(transferLogger, s3)

	return o, nil
}

// Platform returns the platform commands are resolved for.
func (o *Orchestrator) Platform() resolver.Platform { return o.platform }

// Events returns the publisher operations report through.
func (o *Orchestrator) Events() ports.EventPublisher { return o.events }

// Start sweeps orphaned import directories and performs the first scan.
func (o *Orchestrator) Start(ctx context.Context) error {
	if err := os.MkdirAll(o.cfg.PluginsDir, 0o755); err != nil {
		return fmt.Errorf("failed to create plugins directory: %w", err)
	}
	removed, err := transfer.SweepOrphans(o.cfg.PluginsDir, o.tempDir)
	if err != nil {
		o.logger.Warn(ctx, "failed to remove orphaned import files", "error", err)
	}
	if len(removed) > 0 {
		o.logger.Info(ctx, "removed orphaned import files", "count", len(removed))
	}
	return o.Scan(ctx)
}

// Scan rebuilds the registry from disk and publishes scan.completed.
func (o *Orchestrator) Scan(ctx context.Context) error {
	o.pathLock.Lock()
	result, err := o.registry.Scan(ctx)
	o.pathLock.Unlock()
	if err != nil {
		o.logger.Error(ctx, "plugin scan failed", "root", o.cfg.PluginsDir, "error", err)
		o.reportError(ctx, ports.EventErrorOccurred, err)
		return err
	}

	o.metrics.SetPlugins(len(result.Plugins))
	o.publish(ctx, ports.EventScanCompleted, ScanCompleted{Count: len(result.Plugins), Skipped: result.Skipped})
	return nil
}

// Plugins returns every registered plugin sorted by name.
func (o *Orchestrator) Plugins() []plugin.Plugin {
	return o.registry.List()
}

// Search returns the plugins matching query.
func (o *Orchestrator) Search(query string) []plugin.Plugin {
	return o.registry.Search(query)
}

// Plugin returns the plugin registered as name.
func (o *Orchestrator) Plugin(name string) (plugin.Plugin, error) {
	return o.registry.Get(name)
}

// Skipped returns the manifest errors of the last scan.
func (o *Orchestrator) Skipped() []error {
	return o.registry.Skipped()
}

// Commands returns the command snippets of a plugin.
func (o *Orchestrator) Commands(name string) ([]plugin.Snippet, error) {
	p, err := o.registry.Get(name)
	if err != nil {
		return nil, err
	}
	return o.loader.Commands(p), nil
}

// Manuals returns the manual files of a plugin.
func (o *Orchestrator) Manuals(name string) ([]string, error) {
	p, err := o.registry.Get(name)
	if err != nil {
		return nil, err
	}
	return manifest.Manuals(p), nil
}

// ResolvedCommand returns the launch command for a plugin after macro
// substitution, without running it.
func (o *Orchestrator) ResolvedCommand(name string) (string, error) {
	p, err := o.registry.Get(name)
	if err != nil {
		return "", err
	}
	env, err := o.environment()
	if err != nil {
		return "", err
	}
	return o.launchCommand(p, env), nil
}

// Settings returns the current settings snapshot.
func (o *Orchestrator) Settings() *settings.Snapshot {
	return o.settings.Snapshot()
}

// SetProxy stores the proxy used for downloads, provisioning and launches.
// An empty value clears it.
func (o *Orchestrator) SetProxy(proxy string) error {
	return o.settings.SetProxy(proxy)
}

// SetEnvEnabled toggles whether a .env variable is passed to plugins.
func (o *Orchestrator) SetEnvEnabled(key string, enabled bool) error {
	return o.settings.SetEnvEnabled(key, enabled)
}

// SetSizePreference stores the preferred dashboard size.
func (o *Orchestrator) SetSizePreference(size int) error {
	return o.settings.SetSizePreference(size)
}

// EnvVar is one .env entry together with its toggle.
type EnvVar struct {
	Key     string
	Value   string
	Enabled bool
}

// EnvironmentVariables lists the .env file entries in file order.
func (o *Orchestrator) EnvironmentVariables() ([]EnvVar, error) {
	entries, err := envfile.Load(o.cfg.EnvFile)
	if err != nil {
		return nil, err
	}
	snap := o.settings.Snapshot()
	out := make([]EnvVar, 0, len(entries))
	for _, e := range entries {
		out = append(out, EnvVar{Key: e.Key, Value: e.Value, Enabled: snap.EnvEnabled(e.Key)})
	}
	return out, nil
}

// History returns recent journal entries, or nil when no journal is attached.
func (o *Orchestrator) History(ctx context.Context, q history.Query) ([]history.Entry, error) {
	if o.journal == nil {
		return nil, nil
	}
	return o.journal.Recent(ctx, q)
}

// Watch rescans whenever the plugins directory changes until ctx is done.
func (o *Orchestrator) Watch(ctx context.Context, opts ...registry.WatcherOption) error {
	opts = append([]registry.WatcherOption{registry.WithWatcherLogger(o.logger.With("component", "watcher"))}, opts...)
	w, err := registry.NewWatcher(o.cfg.PluginsDir, func(ctx context.Context) { _ = o.Scan(ctx) }, opts...)
	if err != nil {
		return err
	}
	defer w.Close()
	return w.Run(ctx)
}

// Wait blocks until all background work has finished. Launched plugin
// processes are not waited for.
func (o *Orchestrator) Wait() {
	o.provisioner.Slot().Wait()
	o.importSlot.Wait()
	o.exportSlot.Wait()
	o.bg.Wait()
}

// Close cancels an active import and waits for background work.
func (o *Orchestrator) Close() error {
	o.importer.Cancel()
	o.Wait()
	return nil
}

// environment builds the merged child environment: the process environment
// minus filtered prefixes, the proxy override and the enabled .env entries.
// Disabled .env keys are removed even when inherited.
func (o *Orchestrator) environment() (*envfile.Env, error) {
	entries, err := envfile.Load(o.cfg.EnvFile)
	if err != nil {
		return nil, err
	}
	snap := o.settings.Snapshot()
	env, report := envfile.Build(envfile.BuildOptions{
		Base:           os.Environ(),
		FilterPrefixes: o.cfg.EnvFilterPrefixes,
		Proxy:          snap.Proxy(),
		Entries:        entries,
		Enabled:        snap.EnvEnabled,
		FoldCase:       o.platform.IsWindows(),
	})
	if len(report.Removed) > 0 {
		removed := append([]string(nil), report.Removed...)
		sort.Strings(removed)
		o.logger.Debug(context.Background(), "disabled variables removed from environment", "keys", removed)
	}
	return env, nil
}

func (o *Orchestrator) lookup(name string) (plugin.Plugin, bool) {
	p, err := o.registry.Get(name)
	return p, err == nil
}

func (o *Orchestrator) record(ctx context.Context, e history.Entry) {
	if o.journal == nil {
		return
	}
	if _, err := o.journal.Record(ctx, e); err != nil {
		o.logger.Warn(ctx, "failed to record activity", "kind", e.Kind, "plugin", e.Plugin, "error", err)
	}
}

func (o *Orchestrator) panicHandler(ctx context.Context, op string) func(error) {
	return func(err error) {
		o.logger.Error(ctx, "background task panicked", "operation", op, "error", err)
		o.reportError(ctx, ports.EventErrorOccurred, err)
	}
}

func errorText(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
