package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/alexisbeaulieu97/plugdeck/internal/app/orchestrator"
	"github.com/alexisbeaulieu97/plugdeck/internal/config"
	"github.com/alexisbeaulieu97/plugdeck/internal/history"
	"github.com/alexisbeaulieu97/plugdeck/internal/infrastructure/events"
	logginginfra "github.com/alexisbeaulieu97/plugdeck/internal/infrastructure/logging"
	"github.com/alexisbeaulieu97/plugdeck/internal/launcher"
	"github.com/alexisbeaulieu97/plugdeck/internal/logger"
	"github.com/alexisbeaulieu97/plugdeck/internal/metrics"
	"github.com/alexisbeaulieu97/plugdeck/internal/ports"
)

const (
	homeEnvVar     = "PLUGDECK_HOME"
	configFileName = "plugdeck.yaml"
)

// AppContext bundles long-lived services created on first use by a command.
type AppContext struct {
	flags rootFlags

	// LogWriter receives log output. It defaults to stderr.
	LogWriter io.Writer
	// DiscardChildOutput drops the output of spawned plugins instead of
	// passing it through.
	DiscardChildOutput bool

	buffer *logginginfra.EventBuffer
	boot   ports.Logger
	// syncOutput mirrors uv output during provisioning in verbose mode.
	syncOutput io.Writer

	Config       *config.Config
	Logger       ports.Logger
	Events       *events.LoggingPublisher
	Metrics      *metrics.PrometheusCollector
	Journal      *history.Journal
	Launcher     *launcher.Launcher
	Orchestrator *orchestrator.Orchestrator
}

// NewAppContext returns an empty context. Log entries written before the
// configuration is known are buffered and replayed on the real logger.
func NewAppContext() *AppContext {
	buffer := logginginfra.NewEventBuffer(0)
	return &AppContext{
		LogWriter: os.Stderr,
		buffer:    buffer,
		boot:      logginginfra.NewBufferedLogger(buffer),
	}
}

// CommandContext returns the command context tagged with a fresh correlation
// ID and a logger scoped to component.
func (a *AppContext) CommandContext(cmd *cobra.Command, component string) (context.Context, ports.Logger) {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	ctx = ports.WithCorrelationID(ctx, ports.GenerateCorrelationID())
	if a.Logger == nil {
		return ctx, a.boot.With("component", component)
	}
	return ctx, a.Logger.With("component", component)
}

// Bootstrap loads configuration, builds the logger and starts the
// orchestrator. It is idempotent.
func (a *AppContext) Bootstrap(ctx context.Context, stdout, stderr io.Writer) (*orchestrator.Orchestrator, error) {
	if a.Orchestrator != nil {
		return a.Orchestrator, nil
	}

	home, err := a.homeDir()
	if err != nil {
		return nil, newCommandError("start", "locating the data directory", err, "Set --home or "+homeEnvVar+".")
	}
	a.boot.Debug(ctx, "data directory resolved", "home", home)

	configPath := a.flags.config
	optional := configPath == ""
	if optional {
		configPath = filepath.Join(home, configFileName)
	}
	cfg, err := config.Load(configPath, home, optional)
	if err != nil {
		return nil, newCommandError("start", "loading "+configPath, err, "Fix the configuration file or remove it to use the defaults.")
	}
	a.Config = cfg
	a.boot.Debug(ctx, "configuration loaded", "path", configPath, "plugins_dir", cfg.PluginsDir)

	log, err := a.newLogger(cfg.Log)
	if err != nil {
		return nil, newCommandError("start", "configuring logging", err, "Use --log-level debug|info|warn|error and --log-format text|logfmt|json.")
	}
	a.Logger = log
	a.buffer.Flush(log)

	a.Events = events.NewLoggingPublisher(log.With("component", "events"), ports.EventImportProgress)
	a.Metrics = metrics.NewPrometheusCollector()

	if cfg.HistoryDB != "" {
		journal, err := history.Open(ctx, cfg.HistoryDB)
		if err != nil {
			log.Warn(ctx, "activity journal unavailable", "path", cfg.HistoryDB, "error", err)
		} else {
			a.Journal = journal
		}
	}

	if a.DiscardChildOutput {
		stdout, stderr = nil, nil
	}
	if a.flags.verbose && stderr != nil {
		a.syncOutput = stderr
	}
	launcherLogger := log.With("component", "launcher")
	a.Launcher = launcher.New(
		launcher.WithLogger(launcherLogger),
		launcher.WithStdio(stdout, stderr),
		launcher.WithExitHandler(func(exit launcher.Exit) {
			if exit.Code != 0 || exit.Err != nil {
				launcherLogger.Warn(context.Background(), "plugin exited with an error", "plugin", exit.Plugin, "pid", exit.PID, "exit_code", exit.Code, "error", exit.Err)
			}
		}),
	)

	o, err := orchestrator.New(orchestrator.Options{
		Config:   *cfg,
		Logger:   log,
		Events:   a.Events,
		Metrics:  a.Metrics,
		Journal:  a.Journal,
		Launcher: a.Launcher,

		ProvisionOutput: a.syncOutput,
	})
	if err != nil {
		return nil, newCommandError("start", "initialising plugdeck", err, "Check the configuration values.")
	}
	if err := o.Start(ctx); err != nil {
		return nil, newCommandError("start", "scanning "+cfg.PluginsDir, err, "Check that the plugins directory is readable.")
	}
	a.Orchestrator = o
	return o, nil
}

// Close stops background work and releases the journal.
func (a *AppContext) Close() error {
	var errs []error
	if a.Orchestrator != nil {
		errs = append(errs, a.Orchestrator.Close())
	}
	if a.Journal != nil {
		errs = append(errs, a.Journal.Close())
	}
	if a.Logger == nil && a.buffer.Len() > 0 {
		fallback, err := logginginfra.New(logginginfra.Options{Writer: a.logWriter(), Level: "warn"})
		if err == nil {
			a.buffer.Flush(fallback)
		}
	}
	return errors.Join(errs...)
}

func (a *AppContext) homeDir() (string, error) {
	if a.flags.home != "" {
		return filepath.Abs(a.flags.home)
	}
	if env := strings.TrimSpace(os.Getenv(homeEnvVar)); env != "" {
		return filepath.Abs(env)
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".plugdeck"), nil
}

func (a *AppContext) newLogger(cfg config.LogConfig) (ports.Logger, error) {
	level := cfg.Level
	if a.flags.verbose {
		level = "debug"
	}
	if a.flags.logLevel != "" {
		level = a.flags.logLevel
	}
	format := cfg.Format
	if a.flags.logFormat != "" {
		format = a.flags.logFormat
	}

	switch strings.ToLower(format) {
	case "json":
		return logger.New(logger.Options{Level: level, Writer: a.logWriter(), Layer: "cli"})
	case "", "text", "logfmt":
		return logginginfra.New(logginginfra.Options{
			Writer:    a.logWriter(),
			Level:     level,
			Format:    format,
			Layer:     "cli",
			Component: "plugdeck",
		})
	default:
		return nil, fmt.Errorf("unknown log format %q", format)
	}
}

func (a *AppContext) logWriter() io.Writer {
	if a.LogWriter == nil {
		return os.Stderr
	}
	return a.LogWriter
}
