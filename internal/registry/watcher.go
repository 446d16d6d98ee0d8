package registry

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/alexisbeaulieu97/plugdeck/internal/domain/plugin"
	"github.com/alexisbeaulieu97/plugdeck/internal/infrastructure/logging"
	"github.com/alexisbeaulieu97/plugdeck/internal/ports"
)

const defaultDebounce = 500 * time.Millisecond

// ErrWatcherClosed is returned when Run is called on a closed watcher.
var ErrWatcherClosed = errors.New("watcher closed")

// Watcher triggers a rescan when the plugins root, or the top level of any
// plugin directory, changes on disk. Bursts of events are collapsed into one
// rescan after a quiet period. Changes inside import staging directories and
// dependency environments are ignored.
type Watcher struct {
	root     string
	debounce time.Duration
	rescan   func(ctx context.Context)
	logger   ports.Logger

	fsw     *fsnotify.Watcher
	mu      sync.Mutex
	watched map[string]struct{}
	closed  bool
}

// WatcherOption customises a Watcher.
type WatcherOption func(*Watcher)

// WithDebounce sets the quiet period before a rescan fires.
func WithDebounce(d time.Duration) WatcherOption {
	return func(w *Watcher) {
		if d > 0 {
			w.debounce = d
		}
	}
}

// WithWatcherLogger sets the logger.
func WithWatcherLogger(logger ports.Logger) WatcherOption {
	return func(w *Watcher) { w.logger = logging.OrNoOp(logger) }
}

// NewWatcher creates a watcher for root that calls rescan after changes.
func NewWatcher(root string, rescan func(ctx context.Context), opts ...WatcherOption) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	w := &Watcher{
		root:     filepath.Clean(root),
		debounce: defaultDebounce,
		rescan:   rescan,
		logger:   logging.NewNoOpLogger(),
		fsw:      fsw,
		watched:  make(map[string]struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}
	w.logger = w.logger.With("component", "watcher")
	return w, nil
}

// Run watches until ctx is cancelled or Close is called.
func (w *Watcher) Run(ctx context.Context) error {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return ErrWatcherClosed
	}
	w.mu.Unlock()

	if err := w.add(w.root); err != nil {
		return err
	}
	w.syncPluginDirs(ctx)

	var timer *time.Timer
	var fire <-chan time.Time
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-w.fsw.Events:
			if !ok {
				return nil
			}
			if w.ignored(event.Name) {
				continue
			}
			w.logger.Debug(ctx, "filesystem change", "path", event.Name, "op", event.Op.String())
			if timer == nil {
				timer = time.NewTimer(w.debounce)
			} else {
				if !timer.Stop() {
					select {
					case <-timer.C:
					default:
					}
				}
				timer.Reset(w.debounce)
			}
			fire = timer.C
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn(ctx, "watch error", "error", err)
		case <-fire:
			fire = nil
			w.syncPluginDirs(ctx)
			if w.rescan != nil {
				w.rescan(ctx)
			}
		}
	}
}

// Close stops the underlying fsnotify watcher.
func (w *Watcher) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return nil
	}
	w.closed = true
	return w.fsw.Close()
}

// ignored filters paths whose first component below root is a dot entry
// (.temp_import_*, .venv at root level) or whose second component is the
// plugin's own environment or caches.
func (w *Watcher) ignored(path string) bool {
	rel, err := filepath.Rel(w.root, path)
	if err != nil || rel == "." {
		return false
	}
	parts := strings.Split(rel, string(filepath.Separator))
	if strings.HasPrefix(parts[0], ".") {
		return true
	}
	if len(parts) > 1 {
		switch parts[1] {
		case plugin.EnvDirName, "__pycache__", ".git":
			return true
		}
		if strings.HasSuffix(parts[1], ".tmp") {
			return true
		}
	}
	return false
}

// syncPluginDirs adds a watch on every plugin directory so manifest edits are
// noticed; fsnotify is not recursive.
func (w *Watcher) syncPluginDirs(ctx context.Context) {
	matches, err := filepath.Glob(filepath.Join(w.root, "*", plugin.ManifestFile))
	if err != nil {
		return
	}
	for _, m := range matches {
		dir := filepath.Dir(m)
		if w.ignored(dir) {
			continue
		}
		if err := w.add(dir); err != nil {
			w.logger.Debug(ctx, "cannot watch plugin directory", "dir", dir, "error", err)
		}
	}
}

func (w *Watcher) add(dir string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return ErrWatcherClosed
	}
	if _, ok := w.watched[dir]; ok {
		return nil
	}
	if err := w.fsw.Add(dir); err != nil {
		return err
	}
	w.watched[dir] = struct{}{}
	return nil
}
