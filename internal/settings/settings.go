// Package settings persists user preferences shared with the presentation
// layer: the proxy URL, per-variable .env toggles and the UI size preference.
package settings

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"sync/atomic"

	pderrors "github.com/alexisbeaulieu97/plugdeck/pkg/errors"
)

const (
	keyProxy          = "proxy"
	keyEnvironment    = "environment_settings"
	keySizePreference = "size_preference"
)

// Snapshot is an immutable view of the settings file. Accessors return copies.
type Snapshot struct {
	proxy          string
	env            map[string]bool
	sizePreference int
	extra          map[string]json.RawMessage
}

// Proxy returns the configured proxy URL, or "".
func (s *Snapshot) Proxy() string { return s.proxy }

// EnvEnabled reports whether the .env key is switched on. Missing keys are off.
func (s *Snapshot) EnvEnabled(key string) bool { return s.env[key] }

// EnvSettings returns a copy of the per-key toggles.
func (s *Snapshot) EnvSettings() map[string]bool {
	out := make(map[string]bool, len(s.env))
	for k, v := range s.env {
		out[k] = v
	}
	return out
}

// EnabledKeys returns the enabled keys in sorted order.
func (s *Snapshot) EnabledKeys() []string {
	var keys []string
	for k, v := range s.env {
		if v {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys
}

// SizePreference returns the stored UI size preference.
func (s *Snapshot) SizePreference() int { return s.sizePreference }

func (s *Snapshot) clone() *Snapshot {
	out := &Snapshot{
		proxy:          s.proxy,
		env:            s.EnvSettings(),
		sizePreference: s.sizePreference,
		extra:          make(map[string]json.RawMessage, len(s.extra)),
	}
	for k, v := range s.extra {
		out.extra[k] = v
	}
	return out
}

// Store owns settings.json. Readers take lock-free snapshots; writers are
// serialised and replace the snapshot only after the file was written.
type Store struct {
	path    string
	mu      sync.Mutex
	current atomic.Pointer[Snapshot]
}

// Open loads path. A missing file starts from empty settings.
func Open(path string) (*Store, error) {
	s := &Store{path: path}
	snap, err := load(path)
	if err != nil {
		return nil, err
	}
	s.current.Store(snap)
	return s, nil
}

// Path returns the settings file location.
func (s *Store) Path() string { return s.path }

// Snapshot returns the current settings.
func (s *Store) Snapshot() *Snapshot { return s.current.Load() }

// SetProxy stores a proxy URL. An empty value clears the proxy.
func (s *Store) SetProxy(proxy string) error {
	proxy = strings.TrimSpace(proxy)
	if proxy != "" {
		if err := validateProxy(proxy); err != nil {
			return err
		}
	}
	return s.update(func(next *Snapshot) { next.proxy = proxy })
}

// SetEnvEnabled switches a .env key on or off.
func (s *Store) SetEnvEnabled(key string, enabled bool) error {
	key = strings.TrimSpace(key)
	if key == "" {
		return pderrors.NewValidationError("environment_settings", "variable name is empty", nil)
	}
	return s.update(func(next *Snapshot) { next.env[key] = enabled })
}

// SetSizePreference stores the UI size preference.
func (s *Store) SetSizePreference(size int) error {
	if size < 0 {
		return pderrors.NewValidationError(keySizePreference, "must not be negative", nil)
	}
	return s.update(func(next *Snapshot) { next.sizePreference = size })
}

func (s *Store) update(mutate func(*Snapshot)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.current.Load().clone()
	mutate(next)
	if err := save(s.path, next); err != nil {
		return err
	}
	s.current.Store(next)
	return nil
}

func validateProxy(proxy string) error {
	u, err := url.Parse(proxy)
	if err != nil {
		return pderrors.NewValidationError(keyProxy, "not a valid URL", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return pderrors.NewValidationError(keyProxy, "expected scheme://host[:port]", nil)
	}
	return nil
}

func load(path string) (*Snapshot, error) {
	snap := &Snapshot{env: map[string]bool{}, extra: map[string]json.RawMessage{}}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return snap, nil
		}
		return nil, fmt.Errorf("failed to read settings: %w", err)
	}
	if len(strings.TrimSpace(string(data))) == 0 {
		return snap, nil
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, pderrors.NewParseError(path, 0, fmt.Errorf("failed to parse settings: %w", err))
	}
	for key, value := range raw {
		var err error
		switch key {
		case keyProxy:
			err = json.Unmarshal(value, &snap.proxy)
		case keyEnvironment:
			err = json.Unmarshal(value, &snap.env)
			if snap.env == nil {
				snap.env = map[string]bool{}
			}
		case keySizePreference:
			err = json.Unmarshal(value, &snap.sizePreference)
		default:
			snap.extra[key] = value
		}
		if err != nil {
			return nil, pderrors.NewParseError(path, 0, fmt.Errorf("field %s: %w", key, err))
		}
	}
	return snap, nil
}

// save writes the snapshot atomically, keeping keys it does not manage.
func save(path string, snap *Snapshot) error {
	doc := make(map[string]any, len(snap.extra)+3)
	for k, v := range snap.extra {
		doc[k] = v
	}
	doc[keyProxy] = snap.proxy
	doc[keyEnvironment] = snap.env
	doc[keySizePreference] = snap.sizePreference

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal settings: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create settings directory: %w", err)
	}

	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0o644); err != nil {
		return fmt.Errorf("failed to write temporary file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to rename temporary file: %w", err)
	}
	return nil
}
