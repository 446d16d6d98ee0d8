// Package registry holds the current set of discovered plugins.
package registry

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/alexisbeaulieu97/plugdeck/internal/domain/plugin"
	"github.com/alexisbeaulieu97/plugdeck/internal/manifest"
	pderrors "github.com/alexisbeaulieu97/plugdeck/pkg/errors"
)

// Scanner loads plugins from a root directory.
type Scanner interface {
	Scan(ctx context.Context, root string) (manifest.ScanResult, error)
}

// Registry is the in-memory plugin set. Every scan replaces it wholesale.
type Registry struct {
	root    string
	scanner Scanner

	mu        sync.RWMutex
	plugins   []plugin.Plugin
	index     map[string]int
	skipped   []error
	scannedAt time.Time
}

// New creates an empty registry for root.
func New(root string, scanner Scanner) *Registry {
	return &Registry{
		root:    root,
		scanner: scanner,
		index:   make(map[string]int),
	}
}

// Root returns the plugins directory backing the registry.
func (r *Registry) Root() string {
	return r.root
}

// Scan reloads the plugin set from disk. On error the previous set is kept.
func (r *Registry) Scan(ctx context.Context) (manifest.ScanResult, error) {
	result, err := r.scanner.Scan(ctx, r.root)
	if err != nil {
		return result, err
	}
	r.Replace(result.Plugins, result.Skipped)
	return result, nil
}

// Replace swaps in a new plugin set.
func (r *Registry) Replace(plugins []plugin.Plugin, skipped []error) {
	next := make([]plugin.Plugin, 0, len(plugins))
	index := make(map[string]int, len(plugins))
	for _, p := range plugins {
		if _, dup := index[p.Name]; dup {
			continue
		}
		index[p.Name] = len(next)
		next = append(next, p.Clone())
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.plugins = next
	r.index = index
	r.skipped = append([]error(nil), skipped...)
	r.scannedAt = time.Now()
}

// List returns copies of all plugins sorted by name.
func (r *Registry) List() []plugin.Plugin {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]plugin.Plugin, len(r.plugins))
	for i, p := range r.plugins {
		result[i] = p.Clone()
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })
	return result
}

// Get retrieves a plugin by name.
func (r *Registry) Get(name string) (plugin.Plugin, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	i, ok := r.index[name]
	if !ok {
		return plugin.Plugin{}, pderrors.NewNotFoundError(name)
	}
	return r.plugins[i].Clone(), nil
}

// Has reports whether a plugin named name is registered.
func (r *Registry) Has(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.index[name]
	return ok
}

// Len returns the number of registered plugins.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.plugins)
}

// Skipped returns the errors of directories the last scan ignored.
func (r *Registry) Skipped() []error {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]error(nil), r.skipped...)
}

// ScannedAt returns when the registry was last replaced.
func (r *Registry) ScannedAt() time.Time {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.scannedAt
}

// Search returns plugins whose name, alias, description or tags contain
// query, case-insensitively. An empty query returns everything.
func (r *Registry) Search(query string) []plugin.Plugin {
	all := r.List()
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return all
	}
	var matches []plugin.Plugin
	for _, p := range all {
		if matchesQuery(p, q) {
			matches = append(matches, p)
		}
	}
	return matches
}

func matchesQuery(p plugin.Plugin, q string) bool {
	for _, field := range []string{p.Name, p.Alias, p.Description} {
		if strings.Contains(strings.ToLower(field), q) {
			return true
		}
	}
	for _, tag := range p.Tags {
		if strings.Contains(strings.ToLower(tag), q) {
			return true
		}
	}
	return false
}
