// Package transfer imports plugins from archives, URLs and git repositories,
// and exports them as zip archives.
package transfer

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/uuid"

	"github.com/alexisbeaulieu97/plugdeck/internal/domain/plugin"
	"github.com/alexisbeaulieu97/plugdeck/internal/infrastructure/logging"
	"github.com/alexisbeaulieu97/plugdeck/internal/manifest"
	"github.com/alexisbeaulieu97/plugdeck/internal/ports"
	"github.com/alexisbeaulieu97/plugdeck/pkg/diff"
	pderrors "github.com/alexisbeaulieu97/plugdeck/pkg/errors"
)

// Confirmation asks whether an installed plugin may be replaced.
type Confirmation struct {
	CallbackID string
	Title      string
	Message    string
	Plugin     string
	Target     string
}

// Hooks connect an import to its caller. Both fields may be nil; without
// Confirm every overwrite is declined.
type Hooks struct {
	Progress ProgressFunc
	Confirm  func(Confirmation)
}

// Result describes a finished import.
type Result struct {
	Name     string
	Path     string
	Replaced bool
	Declined bool
}

// Lookup finds an installed plugin by name.
type Lookup func(name string) (plugin.Plugin, bool)

// ImporterOptions configure an Importer.
type ImporterOptions struct {
	Root       string
	Loader     *manifest.Loader
	Lookup     Lookup
	PathLock   sync.Locker
	Downloader *Downloader
	Logger     ports.Logger
}

// Importer runs import sessions. Only one session may be active at a time.
type Importer struct {
	root   string
	loader *manifest.Loader
	lookup Lookup
	lock   sync.Locker
	dl     *Downloader
	logger ports.Logger

	mu     sync.Mutex
	active *session
}

type session struct {
	id      string
	source  string
	tempDir string
	cancel  context.CancelFunc

	pendingID string
	answer    chan bool
}

// NewImporter creates an Importer.
func NewImporter(opts ImporterOptions) *Importer {
	logger := logging.OrNoOp(opts.Logger)
	im := &Importer{
		root:   opts.Root,
		loader: opts.Loader,
		lookup: opts.Lookup,
		lock:   opts.PathLock,
		dl:     opts.Downloader,
		logger: logger,
	}
	if im.loader == nil {
		im.loader = manifest.NewLoader(logger)
	}
	if im.lookup == nil {
		im.lookup = func(string) (plugin.Plugin, bool) { return plugin.Plugin{}, false }
	}
	if im.lock == nil {
		im.lock = &sync.Mutex{}
	}
	if im.dl == nil {
		im.dl = NewDownloader(DownloaderOptions{Logger: logger})
	}
	return im
}

// Active reports whether a session is running.
func (im *Importer) Active() bool {
	im.mu.Lock()
	defer im.mu.Unlock()
	return im.active != nil
}

// Cancel stops the active session. It reports whether there was one.
func (im *Importer) Cancel() bool {
	im.mu.Lock()
	defer im.mu.Unlock()
	if im.active == nil {
		return false
	}
	im.active.cancel()
	return true
}

// Resolve answers the pending confirmation identified by callbackID.
func (im *Importer) Resolve(callbackID string, accepted bool) error {
	im.mu.Lock()
	defer im.mu.Unlock()
	s := im.active
	if s == nil || s.pendingID == "" || s.pendingID != callbackID {
		return fmt.Errorf("no pending confirmation %q", callbackID)
	}
	s.pendingID = ""
	s.answer <- accepted
	return nil
}

// ImportFromDisk installs the plugin contained in a local zip archive.
func (im *Importer) ImportFromDisk(ctx context.Context, archivePath string, hooks Hooks) (Result, error) {
	return im.run(ctx, archivePath, hooks, func(ctx context.Context, s *session) (string, error) {
		if err := ValidateZip(archivePath); err != nil {
			return "", err
		}
		return im.unpack(ctx, archivePath, archivePath, s, hooks.Progress)
	})
}

// ImportFromURL downloads or clones a plugin and installs it.
func (im *Importer) ImportFromURL(ctx context.Context, rawURL string, hooks Hooks) (Result, error) {
	kind, address, err := ClassifyURL(rawURL)
	if err != nil {
		return Result{}, err
	}

	return im.run(ctx, rawURL, hooks, func(ctx context.Context, s *session) (string, error) {
		if kind == SourceGit {
			dir := filepath.Join(s.tempDir, "clone")
			if err := im.dl.Clone(ctx, address, dir, hooks.Progress); err != nil {
				return "", err
			}
			if _, err := os.Stat(filepath.Join(dir, plugin.ManifestFile)); err != nil {
				return "", pderrors.NewArchiveError(rawURL, fmt.Sprintf("repository has no %s at its root", plugin.ManifestFile), err)
			}
			return dir, nil
		}

		archive := filepath.Join(s.tempDir, "download.zip")
		if err := im.dl.DownloadFile(ctx, kind, address, archive, hooks.Progress); err != nil {
			return "", err
		}
		hooks.Progress.report(Progress{Indeterminate: true, Status: "Verifying..."})
		if err := ValidateZip(archive); err != nil {
			return "", pderrors.NewArchiveError(rawURL, "the downloaded file is not a valid zip file", err)
		}
		return im.unpack(ctx, rawURL, archive, s, hooks.Progress)
	})
}

func (im *Importer) unpack(ctx context.Context, source, archive string, s *session, progress ProgressFunc) (string, error) {
	extracted := filepath.Join(s.tempDir, "extracted")
	if err := Extract(ctx, archive, extracted, progress); err != nil {
		var archErr *pderrors.ArchiveError
		if errors.As(err, &archErr) {
			archErr.Source = source
		}
		return "", err
	}
	return FindPluginRoot(source, extracted)
}

func (im *Importer) run(ctx context.Context, source string, hooks Hooks, acquire func(context.Context, *session) (string, error)) (Result, error) {
	ctx, s, err := im.begin(ctx, source)
	if err != nil {
		return Result{}, err
	}
	defer im.finish(ctx, s)

	im.logger.Info(ctx, "import started", "source", source, "session", s.id)

	dir, err := acquire(ctx, s)
	if err == nil && ctx.Err() != nil {
		err = pderrors.ErrCancelled
	}
	if err != nil {
		if ctx.Err() != nil && !errors.Is(err, pderrors.ErrCancelled) {
			err = fmt.Errorf("%w: %v", pderrors.ErrCancelled, err)
		}
		return Result{}, err
	}
	return im.install(ctx, s, dir, hooks)
}

func (im *Importer) begin(ctx context.Context, source string) (context.Context, *session, error) {
	im.mu.Lock()
	defer im.mu.Unlock()
	if im.active != nil {
		return nil, nil, fmt.Errorf("import: %w", pderrors.ErrBusy)
	}

	id := uuid.NewString()
	tempDir := filepath.Join(im.root, TempDirPrefix+id)
	if err := os.MkdirAll(tempDir, 0o755); err != nil {
		return nil, nil, fmt.Errorf("failed to create staging directory: %w", err)
	}

	ctx, cancel := context.WithCancel(ctx)
	s := &session{id: id, source: source, tempDir: tempDir, cancel: cancel, answer: make(chan bool, 1)}
	im.active = s
	return ctx, s, nil
}

func (im *Importer) finish(ctx context.Context, s *session) {
	s.cancel()
	if err := SafeRemoveAll(s.tempDir); err != nil {
		im.logger.Warn(ctx, "failed to remove staging directory", "path", s.tempDir, "error", err)
	}
	im.mu.Lock()
	if im.active == s {
		im.active = nil
	}
	im.mu.Unlock()
}

func (im *Importer) install(ctx context.Context, s *session, dir string, hooks Hooks) (Result, error) {
	incoming, err := im.loader.Load(dir)
	if err != nil {
		return Result{}, pderrors.NewArchiveError(s.source, "the plugin manifest is invalid", err)
	}

	target := filepath.Join(im.root, incoming.Name)
	existing, registered := im.lookup(incoming.Name)
	if registered && existing.Path != "" {
		target = existing.Path
	}
	_, statErr := os.Stat(target)
	conflict := registered || statErr == nil
	result := Result{Name: incoming.Name, Path: target, Replaced: conflict}

	if conflict {
		accepted, err := im.confirm(ctx, s, incoming, target, hooks.Confirm)
		if err != nil {
			return Result{}, err
		}
		if !accepted {
			im.logger.Info(ctx, "overwrite declined", "plugin", incoming.Name)
			result.Declined = true
			result.Replaced = false
			return result, nil
		}
	}

	if ctx.Err() != nil {
		return Result{}, pderrors.ErrCancelled
	}

	im.lock.Lock()
	defer im.lock.Unlock()
	if err := SafeRemoveAll(target); err != nil {
		return Result{}, err
	}
	if err := MoveDir(dir, target); err != nil {
		return Result{}, fmt.Errorf("failed to install plugin %s: %w", incoming.Name, err)
	}

	hooks.Progress.report(Progress{Percent: 100, Status: "Import complete"})
	im.logger.Info(ctx, "plugin imported", "plugin", incoming.Name, "path", target, "replaced", conflict)
	return result, nil
}

func (im *Importer) confirm(ctx context.Context, s *session, incoming plugin.Plugin, target string, ask func(Confirmation)) (bool, error) {
	if ask == nil {
		return false, nil
	}

	message := fmt.Sprintf("Plugin '%s' already exists. Do you want to overwrite it?", incoming.Name)
	if before, err := manifest.ReadText(target); err == nil {
		if after, err := manifest.ReadText(incoming.Path); err == nil && before != after {
			message += "\n\n" + diff.Lines(before, after, "installed", "incoming", 0)
		}
	}

	req := Confirmation{
		CallbackID: uuid.NewString(),
		Title:      "Plugin exists",
		Message:    message,
		Plugin:     incoming.Name,
		Target:     target,
	}
	im.mu.Lock()
	s.pendingID = req.CallbackID
	im.mu.Unlock()

	ask(req)

	select {
	case accepted := <-s.answer:
		return accepted, nil
	case <-ctx.Done():
		im.mu.Lock()
		s.pendingID = ""
		im.mu.Unlock()
		return false, pderrors.ErrCancelled
	}
}
