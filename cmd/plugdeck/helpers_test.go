package main

import (
	"archive/zip"
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

type cliResult struct {
	stdout string
	logs   string
	err    error
}

func runCLI(t *testing.T, home string, args ...string) cliResult {
	t.Helper()
	app := NewAppContext()
	logs := &bytes.Buffer{}
	app.LogWriter = logs

	root := newRootCmd(app)
	stdout := &bytes.Buffer{}
	root.SetOut(stdout)
	root.SetErr(stdout)
	root.SetArgs(append([]string{"--home", home}, args...))

	err := root.Execute()
	if closeErr := app.Close(); err == nil {
		err = closeErr
	}
	return cliResult{stdout: stdout.String(), logs: logs.String(), err: err}
}

func writeFile(t *testing.T, path, body string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
}

func manifest(name, version string) string {
	return "[project]\nname = \"" + name + "\"\nversion = \"" + version + "\"\ndescription = \"Plugin " + name + "\"\n"
}

func installPlugin(t *testing.T, home, name, version string) string {
	t.Helper()
	dir := filepath.Join(home, "plugins", name)
	writeFile(t, filepath.Join(dir, "pyproject.toml"), manifest(name, version))
	writeFile(t, filepath.Join(dir, "main.py"), "print('hi')\n")
	return dir
}

func pluginArchive(t *testing.T, name, version string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name+".zip")
	f, err := os.Create(path)
	require.NoError(t, err)
	zw := zip.NewWriter(f)
	for entry, body := range map[string]string{
		name + "/pyproject.toml": manifest(name, version),
		name + "/main.py":        "print('imported')\n",
	} {
		w, err := zw.Create(entry)
		require.NoError(t, err)
		_, err = w.Write([]byte(body))
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	require.NoError(t, f.Close())
	return path
}
