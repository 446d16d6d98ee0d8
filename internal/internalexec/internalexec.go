// Package internalexec runs helper subprocesses (package manager, interpreter
// probes) and captures what they print.
package internalexec

import (
	"bytes"
	"errors"
	"io"
	"os/exec"
	"strings"
	"sync"
)

// maxCapture bounds how much of each stream is retained. Sync runs can be
// chatty; only the tail is useful in an error report.
const maxCapture = 64 * 1024

// Result captures stdout/stderr emitted by a command run.
type Result struct {
	Stdout   string
	Stderr   string
	ExitCode int
}

// Run executes cmd and collects its output. When stream is non-nil both
// streams are also copied to it as they arrive. Any writers already set on
// cmd keep receiving output.
func Run(cmd *exec.Cmd, stream io.Writer) (Result, error) {
	stdoutBuf := &tailBuffer{limit: maxCapture}
	stderrBuf := &tailBuffer{limit: maxCapture}

	// Both streams are copied concurrently by exec; serialize them onto stream.
	if stream != nil {
		stream = &lockedWriter{w: stream}
	}
	cmd.Stdout = tee(cmd.Stdout, stream, stdoutBuf)
	cmd.Stderr = tee(cmd.Stderr, stream, stderrBuf)

	err := cmd.Run()

	res := Result{
		Stdout:   strings.TrimSpace(stdoutBuf.String()),
		Stderr:   strings.TrimSpace(stderrBuf.String()),
		ExitCode: -1,
	}
	if cmd.ProcessState != nil {
		res.ExitCode = cmd.ProcessState.ExitCode()
	}
	return res, err
}

// Version runs "<tool> --version" and returns the first line it prints.
func Version(cmd *exec.Cmd) (string, error) {
	res, err := Run(cmd, nil)
	if err != nil {
		return "", err
	}
	line, _, _ := strings.Cut(res.Stdout, "\n")
	if line == "" {
		line, _, _ = strings.Cut(res.Stderr, "\n")
	}
	return strings.TrimSpace(line), nil
}

// PrimaryOutput returns stderr if present, otherwise stdout.
func PrimaryOutput(res Result) string {
	if res.Stderr != "" {
		return res.Stderr
	}
	return res.Stdout
}

// IsNotFound reports whether err means the executable could not be located.
func IsNotFound(err error) bool {
	return errors.Is(err, exec.ErrNotFound) || errors.Is(err, exec.ErrDot)
}

func tee(existing, stream io.Writer, buf *tailBuffer) io.Writer {
	writers := []io.Writer{buf}
	if existing != nil {
		writers = append(writers, existing)
	}
	if stream != nil {
		writers = append(writers, stream)
	}
	if len(writers) == 1 {
		return buf
	}
	return io.MultiWriter(writers...)
}

type lockedWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (l *lockedWriter) Write(p []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.w.Write(p)
}

// tailBuffer keeps the last limit bytes written to it.
type tailBuffer struct {
	mu    sync.Mutex
	limit int
	buf   bytes.Buffer
}

func (t *tailBuffer) Write(p []byte) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	n := len(p)
	if len(p) >= t.limit {
		t.buf.Reset()
		t.buf.Write(p[len(p)-t.limit:])
		return n, nil
	}
	if over := t.buf.Len() + len(p) - t.limit; over > 0 {
		t.buf.Next(over)
	}
	t.buf.Write(p)
	return n, nil
}

func (t *tailBuffer) String() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.buf.String()
}
