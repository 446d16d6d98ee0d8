package transfer

import (
	"archive/zip"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/alexisbeaulieu97/plugdeck/internal/domain/plugin"
)

type zipEntry struct {
	name string
	body string
	mode fs.FileMode
}

func manifestFor(name, version string) string {
	return fmt.Sprintf("[project]\nname = %q\nversion = %q\ndescription = \"Plugin %s\"\ntags = [\"test\"]\n", name, version, name)
}

func pluginZipEntries(dir, name, version string) []zipEntry {
	return []zipEntry{
		{name: dir + "/"},
		{name: dir + "/" + plugin.ManifestFile, body: manifestFor(name, version)},
		{name: dir + "/" + plugin.EntryFile, body: "print('hello')\n"},
		{name: dir + "/run.sh", body: "#!/bin/sh\necho run\n", mode: 0o755},
	}
}

func writeZip(t *testing.T, path string, entries ...zipEntry) string {
	t.Helper()
	f, err := os.Create(path)
	require.NoError(t, err)
	zw := zip.NewWriter(f)
	for _, e := range entries {
		header := &zip.FileHeader{Name: e.name, Method: zip.Deflate}
		mode := e.mode
		if mode == 0 {
			mode = 0o644
		}
		if strings.HasSuffix(e.name, "/") {
			mode = fs.ModeDir | 0o755
			header.Method = zip.Store
		}
		header.SetMode(mode)
		w, err := zw.CreateHeader(header)
		require.NoError(t, err)
		if e.body != "" {
			_, err = w.Write([]byte(e.body))
			require.NoError(t, err)
		}
	}
	require.NoError(t, zw.Close())
	require.NoError(t, f.Close())
	return path
}

func writePluginDir(t *testing.T, root, dir, name, version string) string {
	t.Helper()
	pluginDir := filepath.Join(root, dir)
	require.NoError(t, os.MkdirAll(pluginDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(pluginDir, plugin.ManifestFile), []byte(manifestFor(name, version)), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(pluginDir, plugin.EntryFile), []byte("print('old')\n"), 0o644))
	return pluginDir
}

func stagingDirs(t *testing.T, root string) []string {
	t.Helper()
	matches, err := filepath.Glob(filepath.Join(root, TempDirPrefix+"*"))
	require.NoError(t, err)
	return matches
}

type progressLog struct {
	mu      sync.Mutex
	reports []Progress
}

func (l *progressLog) record(p Progress) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.reports = append(l.reports, p)
}

func (l *progressLog) statuses() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]string, 0, len(l.reports))
	for _, r := range l.reports {
		out = append(out, r.Status)
	}
	return out
}

func (l *progressLog) contains(prefix string) bool {
	for _, s := range l.statuses() {
		if strings.HasPrefix(s, prefix) {
			return true
		}
	}
	return false
}
