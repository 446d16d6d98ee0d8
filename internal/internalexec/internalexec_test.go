package internalexec

import (
	"bytes"
	"os/exec"
	"runtime"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func skipOnWindows(t *testing.T) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("POSIX shell assumptions do not hold on Windows")
	}
}

func TestRunCapturesBothStreams(t *testing.T) {
	skipOnWindows(t)

	var stream bytes.Buffer
	cmd := exec.Command("sh", "-c", "echo 'resolved 3 packages'; echo 'warning: slow' >&2; exit 2")

	result, err := Run(cmd, &stream)
	require.Error(t, err)
	assert.Equal(t, "resolved 3 packages", result.Stdout)
	assert.Equal(t, "warning: slow", result.Stderr)
	assert.Equal(t, 2, result.ExitCode)
	assert.Contains(t, stream.String(), "resolved 3 packages")
	assert.Contains(t, stream.String(), "warning: slow")
}

func TestRunSerializesSharedStream(t *testing.T) {
	skipOnWindows(t)

	var stream bytes.Buffer
	script := "i=0; while [ $i -lt 200 ]; do echo out$i; echo err$i >&2; i=$((i+1)); done"
	cmd := exec.Command("sh", "-c", script)

	result, err := Run(cmd, &stream)
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(stream.String()), "\n")
	assert.Len(t, lines, 400)
	assert.Contains(t, lines, "out199")
	assert.Contains(t, lines, "err199")
	assert.True(t, strings.HasSuffix(result.Stdout, "out199"))
	assert.True(t, strings.HasSuffix(result.Stderr, "err199"))
}

func TestRunKeepsExistingWriters(t *testing.T) {
	skipOnWindows(t)

	var stdout bytes.Buffer
	cmd := exec.Command("echo", "piped output")
	cmd.Stdout = &stdout

	result, err := Run(cmd, nil)
	require.NoError(t, err)
	assert.Equal(t, "piped output", result.Stdout)
	assert.Equal(t, "piped output\n", stdout.String())
	assert.Equal(t, 0, result.ExitCode)
}

func TestVersion(t *testing.T) {
	skipOnWindows(t)

	v, err := Version(exec.Command("sh", "-c", "printf 'uv 0.4.18\\nextra\\n'"))
	require.NoError(t, err)
	assert.Equal(t, "uv 0.4.18", v)

	v, err = Version(exec.Command("sh", "-c", "echo 'Python 3.12.1' >&2"))
	require.NoError(t, err)
	assert.Equal(t, "Python 3.12.1", v)
}

func TestMissingExecutable(t *testing.T) {
	_, err := Run(exec.Command("plugdeck-definitely-missing-tool"), nil)
	require.Error(t, err)
	assert.True(t, IsNotFound(err))
}

func TestPrimaryOutput(t *testing.T) {
	assert.Equal(t, "err", PrimaryOutput(Result{Stdout: "out", Stderr: "err"}))
	assert.Equal(t, "out", PrimaryOutput(Result{Stdout: "out"}))
	assert.Equal(t, "", PrimaryOutput(Result{}))
}

func TestTailBufferKeepsNewestBytes(t *testing.T) {
	buf := &tailBuffer{limit: 8}
	_, _ = buf.Write([]byte("12345"))
	_, _ = buf.Write([]byte("6789"))
	assert.Equal(t, "23456789", buf.String())

	_, _ = buf.Write([]byte(strings.Repeat("x", 20)))
	assert.Equal(t, strings.Repeat("x", 8), buf.String())
}
