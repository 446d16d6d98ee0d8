// Package launcher starts plugin processes detached from plugdeck.
package launcher

import (
	"context"
	"errors"
	"io"
	"os"
	"os/exec"
	"strings"

	"github.com/alexisbeaulieu97/plugdeck/internal/envfile"
	"github.com/alexisbeaulieu97/plugdeck/internal/infrastructure/logging"
	"github.com/alexisbeaulieu97/plugdeck/internal/ports"
	"github.com/alexisbeaulieu97/plugdeck/internal/resolver"
	"github.com/alexisbeaulieu97/plugdeck/internal/worker"
	pderrors "github.com/alexisbeaulieu97/plugdeck/pkg/errors"
)

// VirtualEnvVar points launched processes at their plugin environment.
const VirtualEnvVar = "VIRTUAL_ENV"

var errEmptyCommand = errors.New("empty command")

// Request describes one process to start. It is built per call.
type Request struct {
	Plugin   string
	Command  string
	Dir      string
	Env      *envfile.Env
	Platform resolver.Platform
	// VirtualEnv, when set, is exported as VIRTUAL_ENV.
	VirtualEnv string
	// PauseOnError keeps the windows console open after a non-zero exit.
	PauseOnError bool
}

// Exit is reported once the reaper has collected a child.
type Exit struct {
	Plugin string
	PID    int
	Code   int
	Err    error
}

// Process is a started child.
type Process struct {
	PID int
	// Exited receives the exit status once and is then closed.
	Exited <-chan Exit
}

// Launcher spawns processes and reaps them in the background.
type Launcher struct {
	logger ports.Logger
	stdout io.Writer
	stderr io.Writer
	onExit func(Exit)
	reaper worker.Group
}

// Option configures a Launcher.
type Option func(*Launcher)

// WithLogger sets the logger.
func WithLogger(logger ports.Logger) Option {
	return func(l *Launcher) { l.logger = logging.OrNoOp(logger) }
}

// WithStdio attaches child output to the given writers. By default output is
// discarded.
func WithStdio(stdout, stderr io.Writer) Option {
	return func(l *Launcher) {
		l.stdout = stdout
		l.stderr = stderr
	}
}

// WithExitHandler is called from the reaper goroutine for every child.
func WithExitHandler(fn func(Exit)) Option {
	return func(l *Launcher) { l.onExit = fn }
}

// New creates a Launcher.
func New(opts ...Option) *Launcher {
	l := &Launcher{logger: logging.NewNoOpLogger()}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// ShellArgs returns the argv used to run command through the platform shell.
// On windows a launch with pauseOnError echoes the exit code and waits for a
// key press when the command fails.
func ShellArgs(platform resolver.Platform, command string, pauseOnError bool) []string {
	if platform.IsWindows() {
		inner := command
		if pauseOnError {
			inner = command + " & if %ERRORLEVEL% neq 0 (echo Exit code: %ERRORLEVEL% & pause)"
		}
		return []string{"cmd", "/c", `"` + inner + `"`}
	}
	return []string{"sh", "-c", command}
}

// Spawn starts req and returns without waiting for it. A non-zero exit is not
// an error; only a failure to start is, reported as a SpawnError.
func (l *Launcher) Spawn(ctx context.Context, req Request) (*Process, error) {
	if strings.TrimSpace(req.Command) == "" {
		return nil, pderrors.NewSpawnError(req.Plugin, req.Command, errEmptyCommand)
	}

	argv := ShellArgs(req.Platform, req.Command, req.PauseOnError)
	cmd := exec.Command(argv[0], argv[1:]...)
	cmd.Dir = req.Dir
	cmd.Stdout = l.stdout
	cmd.Stderr = l.stderr

	env := req.Env
	if env == nil {
		env, _ = envfile.Build(envfile.BuildOptions{Base: os.Environ(), FoldCase: req.Platform.IsWindows()})
	} else {
		env = env.Clone()
	}
	if req.VirtualEnv != "" {
		env.Set(VirtualEnvVar, req.VirtualEnv)
	}
	cmd.Env = env.Slice()

	detach(cmd, argv)

	if err := cmd.Start(); err != nil {
		l.logger.Error(ctx, "failed to start process", "plugin", req.Plugin, "command", req.Command, "error", err)
		return nil, pderrors.NewSpawnError(req.Plugin, req.Command, err)
	}

	pid := cmd.Process.Pid
	exited := make(chan Exit, 1)
	l.logger.Info(ctx, "process started", "plugin", req.Plugin, "pid", pid, "dir", req.Dir)

	l.reaper.Go(func() {
		err := cmd.Wait()
		exit := Exit{Plugin: req.Plugin, PID: pid, Code: -1}
		if cmd.ProcessState != nil {
			exit.Code = cmd.ProcessState.ExitCode()
		}
		var exitErr *exec.ExitError
		if err != nil && !errors.As(err, &exitErr) {
			exit.Err = err
		}
		l.logger.Debug(context.Background(), "process exited", "plugin", req.Plugin, "pid", pid, "exit_code", exit.Code)
		if l.onExit != nil {
			l.onExit(exit)
		}
		exited <- exit
		close(exited)
	}, func(err error) {
		l.logger.Error(context.Background(), "reaper failed", "plugin", req.Plugin, "error", err)
	})

	return &Process{PID: pid, Exited: exited}, nil
}

// Wait blocks until every spawned child has been reaped.
func (l *Launcher) Wait() {
	l.reaper.Wait()
}
