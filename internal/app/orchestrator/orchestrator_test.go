package orchestrator

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alexisbeaulieu97/plugdeck/internal/config"
	"github.com/alexisbeaulieu97/plugdeck/internal/history"
	"github.com/alexisbeaulieu97/plugdeck/internal/launcher"
	"github.com/alexisbeaulieu97/plugdeck/internal/metrics"
	"github.com/alexisbeaulieu97/plugdeck/internal/ports"
	"github.com/alexisbeaulieu97/plugdeck/internal/provision"
	"github.com/alexisbeaulieu97/plugdeck/internal/resolver"
	pderrors "github.com/alexisbeaulieu97/plugdeck/pkg/errors"
)

const fakeUV = `#!/bin/sh
if [ "$1" = "--version" ]; then
  echo "uv 0.4.18"
  exit 0
fi
mkdir -p "$UV_PROJECT_ENVIRONMENT"
echo "Installed 1 package"
`

const fakePython = `#!/bin/sh
echo "Python 3.12.1"
`

const runScript = `#!/bin/sh
printf '%s|%s|%s' "$VISIBLE" "$SECRET" "$VIRTUAL_ENV" > launched.txt
`

type recordedEvent struct {
	eventType string
	payload   interface{}
}

type recorder struct {
	mu       sync.Mutex
	events   []recordedEvent
	handlers map[string]func(ports.DomainEvent)
}

func newRecorder() *recorder {
	return &recorder{handlers: map[string]func(ports.DomainEvent){}}
}

func (r *recorder) Publish(_ context.Context, event ports.DomainEvent) error {
	r.mu.Lock()
	r.events = append(r.events, recordedEvent{eventType: event.EventType(), payload: event.Payload()})
	handler := r.handlers[event.EventType()]
	r.mu.Unlock()
	if handler != nil {
		handler(event)
	}
	return nil
}

func (r *recorder) Subscribe(string, ports.EventHandler) (ports.Subscription, error) {
	return noopSubscription{}, nil
}

func (r *recorder) on(eventType string, fn func(ports.DomainEvent)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handlers[eventType] = fn
}

func (r *recorder) ofType(eventType string) []interface{} {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []interface{}
	for _, e := range r.events {
		if e.eventType == eventType {
			out = append(out, e.payload)
		}
	}
	return out
}

func (r *recorder) errors() []ErrorReport {
	var out []ErrorReport
	for _, p := range append(r.ofType(ports.EventErrorOccurred), r.ofType(ports.EventProvisionError)...) {
		out = append(out, p.(ErrorReport))
	}
	return out
}

type noopSubscription struct{}

func (noopSubscription) Unsubscribe() {}

type harness struct {
	o       *Orchestrator
	cfg     config.Config
	events  *recorder
	exits   chan launcher.Exit
	journal *history.Journal
	metrics *metrics.PrometheusCollector
	tempDir string
}

func writeFile(t *testing.T, path, body string, mode os.FileMode) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(body), mode))
}

func manifestText(name, version, extra string) string {
	return "[project]\nname = \"" + name + "\"\nversion = \"" + version + "\"\ndescription = \"Plugin " + name + "\"\n" + extra
}

func writePlugin(t *testing.T, root, name, version string) string {
	t.Helper()
	dir := filepath.Join(root, name)
	writeFile(t, filepath.Join(dir, "pyproject.toml"), manifestText(name, version, "exec = \"sh ./run.sh\"\n"), 0o644)
	writeFile(t, filepath.Join(dir, "main.py"), "print('hi')\n", 0o644)
	writeFile(t, filepath.Join(dir, "run.sh"), runScript, 0o755)
	return dir
}

func newHarness(t *testing.T, customize ...func(*Options)) *harness {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell script fakes require a POSIX shell")
	}
	base := t.TempDir()
	bin := t.TempDir()

	cfg := config.Default(base)
	cfg.Tools.PackageManager = filepath.Join(bin, "uv")
	cfg.Tools.Interpreter = filepath.Join(bin, "python3")
	writeFile(t, cfg.Tools.PackageManager, fakeUV, 0o755)
	writeFile(t, cfg.Tools.Interpreter, fakePython, 0o755)
	writeFile(t, cfg.EnvFile, "VISIBLE=ok\nSECRET=from-file\n", 0o644)
	t.Setenv("SECRET", "inherited")

	journal, err := history.Open(context.Background(), cfg.HistoryDB)
	require.NoError(t, err)
	t.Cleanup(func() { _ = journal.Close() })

	h := &harness{
		cfg:     cfg,
		events:  newRecorder(),
		exits:   make(chan launcher.Exit, 8),
		journal: journal,
		metrics: metrics.NewPrometheusCollector(),
		tempDir: t.TempDir(),
	}
	platform := resolver.FromGOOS(runtime.GOOS)
	opts := Options{
		Config:   cfg,
		Platform: &platform,
		Events:   h.events,
		Metrics:  h.metrics,
		Journal:  journal,
		Launcher: launcher.New(launcher.WithExitHandler(func(e launcher.Exit) { h.exits <- e })),
		TempDir:  h.tempDir,
	}
	for _, fn := range customize {
		fn(&opts)
	}
	h.o, err = New(opts)
	require.NoError(t, err)
	t.Cleanup(func() { _ = h.o.Close() })
	return h
}

func (h *harness) waitExit(t *testing.T) launcher.Exit {
	t.Helper()
	select {
	case e := <-h.exits:
		return e
	case <-time.After(10 * time.Second):
		t.Fatal("process did not exit")
		return launcher.Exit{}
	}
}

func pluginArchive(t *testing.T, name, version string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name+".zip")
	f, err := os.Create(path)
	require.NoError(t, err)
	zw := zip.NewWriter(f)
	for entry, body := range map[string]string{
		name + "/pyproject.toml": manifestText(name, version, ""),
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

func TestStartScansAndSkipsInvalidPlugins(t *testing.T) {
	h := newHarness(t)
	writePlugin(t, h.cfg.PluginsDir, "demo", "1.0.0")
	writeFile(t, filepath.Join(h.cfg.PluginsDir, "broken", "pyproject.toml"), "[project]\nname = \"broken\"\n", 0o644)
	require.NoError(t, os.MkdirAll(filepath.Join(h.cfg.PluginsDir, ".temp_import_stale"), 0o755))

	require.NoError(t, h.o.Start(context.Background()))

	require.Len(t, h.o.Plugins(), 1)
	assert.Len(t, h.o.Skipped(), 1)
	assert.NoDirExists(t, filepath.Join(h.cfg.PluginsDir, ".temp_import_stale"))

	scans := h.events.ofType(ports.EventScanCompleted)
	require.Len(t, scans, 1)
	assert.Equal(t, 1, scans[0].(ScanCompleted).Count)
	expected := `
# HELP plugdeck_plugins Plugins registered by the last scan.
# TYPE plugdeck_plugins gauge
plugdeck_plugins 1
`
	assert.NoError(t, testutil.GatherAndCompare(h.metrics.Registry(), strings.NewReader(expected), "plugdeck_plugins"))
}

func TestLaunchUnknownPlugin(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, h.o.Start(context.Background()))

	err := h.o.Launch(context.Background(), "ghost")

	var nf *pderrors.NotFoundError
	require.ErrorAs(t, err, &nf)
	reports := h.events.errors()
	require.Len(t, reports, 1)
	assert.Equal(t, "Plugin Not Found", reports[0].Title)
}

func TestLaunchWithoutEntryFile(t *testing.T) {
	h := newHarness(t)
	dir := writePlugin(t, h.cfg.PluginsDir, "noentry", "1.0.0")
	require.NoError(t, os.Remove(filepath.Join(dir, "main.py")))
	require.NoError(t, h.o.Start(context.Background()))

	err := h.o.Launch(context.Background(), "noentry")

	var se *pderrors.SpawnError
	require.ErrorAs(t, err, &se)
	assert.Len(t, h.events.errors(), 1)
	assert.Empty(t, h.events.ofType(ports.EventProvisionStarted))
}

func TestLaunchProvisionsThenSpawns(t *testing.T) {
	h := newHarness(t)
	dir := writePlugin(t, h.cfg.PluginsDir, "demo", "1.0.0")
	require.NoError(t, h.o.Start(context.Background()))
	require.NoError(t, h.o.SetEnvEnabled("VISIBLE", true))

	require.NoError(t, h.o.Launch(context.Background(), "demo"))
	h.o.Wait()
	exit := h.waitExit(t)
	assert.Equal(t, 0, exit.Code)

	out, err := os.ReadFile(filepath.Join(dir, "launched.txt"))
	require.NoError(t, err)
	assert.Equal(t, "ok||"+filepath.Join(dir, ".venv"), string(out))

	assert.Empty(t, h.events.errors())
	assert.Len(t, h.events.ofType(ports.EventProvisionStarted), 1)
	assert.Len(t, h.events.ofType(ports.EventProvisionFinished), 1)
	launched := h.events.ofType(ports.EventPluginLaunched)
	require.Len(t, launched, 1)
	assert.Equal(t, exit.PID, launched[0].(PluginLaunched).PID)

	p, err := h.o.Plugin("demo")
	require.NoError(t, err)
	assert.True(t, provision.IsProvisioned(p))

	counts, err := h.journal.Counts(context.Background(), "demo")
	require.NoError(t, err)
	assert.Equal(t, 1, counts[history.KindProvision])
	assert.Equal(t, 1, counts[history.KindLaunch])
}

func TestProvisionOutputIsMirrored(t *testing.T) {
	var output bytes.Buffer
	h := newHarness(t, func(opts *Options) { opts.ProvisionOutput = &output })
	writePlugin(t, h.cfg.PluginsDir, "demo", "1.0.0")
	require.NoError(t, h.o.Start(context.Background()))

	require.NoError(t, h.o.Launch(context.Background(), "demo"))
	h.o.Wait()
	h.waitExit(t)

	assert.Contains(t, output.String(), "Installed 1 package")
}

func TestLaunchSkipsProvisioningWhenMarked(t *testing.T) {
	h := newHarness(t)
	writePlugin(t, h.cfg.PluginsDir, "demo", "1.0.0")
	require.NoError(t, h.o.Start(context.Background()))

	require.NoError(t, h.o.Launch(context.Background(), "demo"))
	h.o.Wait()
	h.waitExit(t)

	require.NoError(t, h.o.Launch(context.Background(), "demo"))
	h.o.Wait()
	h.waitExit(t)

	assert.Len(t, h.events.ofType(ports.EventProvisionStarted), 1)
	assert.Len(t, h.events.ofType(ports.EventPluginLaunched), 2)
}

func TestExecuteCommandSubstitutesMacros(t *testing.T) {
	h := newHarness(t)
	dir := writePlugin(t, h.cfg.PluginsDir, "demo", "1.0.0")
	require.NoError(t, h.o.Start(context.Background()))
	require.NoError(t, h.o.SetEnvEnabled("VISIBLE", true))

	err := h.o.ExecuteCommand(context.Background(), "demo",
		`printf '%s' "${PLUGIN_DIR}|${ENV:VISIBLE}|${ENV:SECRET}|${UNKNOWN}" > exec.txt`)
	require.NoError(t, err)
	h.waitExit(t)

	out, err := os.ReadFile(filepath.Join(dir, "exec.txt"))
	require.NoError(t, err)
	assert.Equal(t, dir+"|ok||", string(out))
	assert.Empty(t, h.events.ofType(ports.EventProvisionStarted))
}

func TestEnvironmentVariablesReflectToggles(t *testing.T) {
	h := newHarness(t)

	vars, err := h.o.EnvironmentVariables()
	require.NoError(t, err)
	require.Len(t, vars, 2)
	assert.Equal(t, EnvVar{Key: "VISIBLE", Value: "ok"}, vars[0])

	require.NoError(t, h.o.SetEnvEnabled("SECRET", true))
	vars, err = h.o.EnvironmentVariables()
	require.NoError(t, err)
	assert.True(t, vars[1].Enabled)
	assert.True(t, h.o.Settings().EnvEnabled("SECRET"))
}

func TestImportFromDiskInstallsNewPlugin(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, h.o.Start(context.Background()))
	h.events.on(ports.EventConfirmationRequested, func(ports.DomainEvent) {
		t.Error("new plugins must not ask for confirmation")
	})

	require.NoError(t, h.o.ImportFromDisk(context.Background(), pluginArchive(t, "fresh", "1.0.0")))
	h.o.Wait()

	assert.Empty(t, h.events.errors())
	finished := h.events.ofType(ports.EventImportFinished)
	require.Len(t, finished, 1)
	assert.Equal(t, ImportFinished{Success: true, Name: "fresh"}, finished[0])
	assert.NotEmpty(t, h.events.ofType(ports.EventImportProgress))

	p, err := h.o.Plugin("fresh")
	require.NoError(t, err)
	assert.Equal(t, "1.0.0", p.Version)
	assert.False(t, h.o.ImportActive())
}

func TestImportReplacesAfterConfirmation(t *testing.T) {
	h := newHarness(t)
	writePlugin(t, h.cfg.PluginsDir, "demo", "1.0.0")
	require.NoError(t, h.o.Start(context.Background()))
	h.events.on(ports.EventConfirmationRequested, func(e ports.DomainEvent) {
		req := e.Payload().(ConfirmationRequested)
		assert.Equal(t, "demo", req.Plugin)
		assert.NoError(t, h.o.ResolveConfirmation(req.CallbackID, true))
	})

	require.NoError(t, h.o.ImportFromDisk(context.Background(), pluginArchive(t, "demo", "2.0.0")))
	h.o.Wait()

	assert.Len(t, h.events.ofType(ports.EventConfirmationRequested), 1)
	p, err := h.o.Plugin("demo")
	require.NoError(t, err)
	assert.Equal(t, "2.0.0", p.Version)

	entries, err := h.o.History(context.Background(), history.Query{Kind: history.KindImport})
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.True(t, entries[0].Success)
}

func TestSecondImportIsBusy(t *testing.T) {
	h := newHarness(t)
	writePlugin(t, h.cfg.PluginsDir, "demo", "1.0.0")
	require.NoError(t, h.o.Start(context.Background()))
	pending := make(chan string, 1)
	h.events.on(ports.EventConfirmationRequested, func(e ports.DomainEvent) {
		pending <- e.Payload().(ConfirmationRequested).CallbackID
	})

	require.NoError(t, h.o.ImportFromDisk(context.Background(), pluginArchive(t, "demo", "2.0.0")))
	var callbackID string
	select {
	case callbackID = <-pending:
	case <-time.After(10 * time.Second):
		t.Fatal("confirmation was not requested")
	}
	assert.True(t, h.o.ImportActive())

	err := h.o.ImportFromDisk(context.Background(), pluginArchive(t, "other", "1.0.0"))
	assert.True(t, errors.Is(err, pderrors.ErrBusy))

	require.NoError(t, h.o.ResolveConfirmation(callbackID, false))
	h.o.Wait()

	finished := h.events.ofType(ports.EventImportFinished)
	require.Len(t, finished, 1)
	assert.Equal(t, ImportFinished{Name: "demo", Declined: true}, finished[0])
	p, err := h.o.Plugin("demo")
	require.NoError(t, err)
	assert.Equal(t, "1.0.0", p.Version)
	_, err = h.o.Plugin("other")
	assert.Error(t, err)
}

func TestURLImportIsExclusiveAndCancelRemovesStaging(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, h.o.Start(context.Background()))

	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Length", "1048576")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(make([]byte, 4096))
		w.(http.Flusher).Flush()
		select {
		case <-r.Context().Done():
		case <-release:
		}
	}))
	t.Cleanup(srv.Close)
	t.Cleanup(func() { close(release) })

	downloading := make(chan struct{}, 1)
	h.events.on(ports.EventImportProgress, func(e ports.DomainEvent) {
		if strings.HasPrefix(e.Payload().(ImportProgress).Status, "Downloading") {
			select {
			case downloading <- struct{}{}:
			default:
			}
		}
	})

	require.NoError(t, h.o.ImportFromURL(context.Background(), srv.URL+"/demo.zip"))
	select {
	case <-downloading:
	case <-time.After(10 * time.Second):
		t.Fatal("download did not start")
	}

	err := h.o.ImportFromURL(context.Background(), srv.URL+"/other.zip")
	assert.True(t, errors.Is(err, pderrors.ErrBusy))

	assert.True(t, h.o.CancelImport())
	h.o.Wait()
	assert.False(t, h.o.ImportActive())

	staged, err := filepath.Glob(filepath.Join(h.cfg.PluginsDir, ".temp_import_*"))
	require.NoError(t, err)
	assert.Empty(t, staged)
	scratch, err := filepath.Glob(filepath.Join(h.tempDir, "plugdeck_import_*"))
	require.NoError(t, err)
	assert.Empty(t, scratch)

	finished := h.events.ofType(ports.EventImportFinished)
	require.Len(t, finished, 1)
	assert.False(t, finished[0].(ImportFinished).Success)
	assert.Len(t, h.events.ofType(ports.EventImportStarted), 1)
}

func TestImportFromURLRejectsUnknownScheme(t *testing.T) {
	h := newHarness(t)

	err := h.o.ImportFromURL(context.Background(), "ftp://example.com/plugin.zip")

	assert.True(t, errors.Is(err, pderrors.ErrInvalidURL))
	assert.Empty(t, h.events.ofType(ports.EventImportStarted))
	assert.Len(t, h.events.errors(), 1)
}

func TestExportPluginPublishesPath(t *testing.T) {
	h := newHarness(t)
	writePlugin(t, h.cfg.PluginsDir, "demo", "1.0.0")
	require.NoError(t, h.o.Start(context.Background()))
	dest := t.TempDir()

	require.NoError(t, h.o.ExportPlugin(context.Background(), "demo", dest))
	h.o.Wait()

	exported := h.events.ofType(ports.EventExportFinished)
	require.Len(t, exported, 1)
	path := exported[0].(ExportFinished).Path
	assert.True(t, strings.HasPrefix(path, dest))
	assert.FileExists(t, path)

	expected := `
# HELP plugdeck_exports_total Plugin exports.
# TYPE plugdeck_exports_total counter
plugdeck_exports_total{outcome="success",plugin="demo"} 1
`
	assert.NoError(t, testutil.GatherAndCompare(h.metrics.Registry(), strings.NewReader(expected), "plugdeck_exports_total"))
}
