package manifest

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/alexisbeaulieu97/plugdeck/internal/config"
	"github.com/alexisbeaulieu97/plugdeck/internal/domain/plugin"
	"github.com/alexisbeaulieu97/plugdeck/internal/infrastructure/logging"
	"github.com/alexisbeaulieu97/plugdeck/internal/ports"
	"github.com/alexisbeaulieu97/plugdeck/internal/textenc"
	pderrors "github.com/alexisbeaulieu97/plugdeck/pkg/errors"
)

// ScanResult is the outcome of one pass over the plugins root.
type ScanResult struct {
	Plugins []plugin.Plugin
	Skipped []error
}

// Loader turns plugin directories into plugin.Plugin values.
type Loader struct {
	logger ports.Logger
}

// NewLoader creates a Loader. A nil logger discards output.
func NewLoader(logger ports.Logger) *Loader {
	return &Loader{logger: logging.OrNoOp(logger).With("component", "manifest")}
}

// Scan loads every immediate subdirectory of root in lexical order. Dot
// directories and directories without a manifest are ignored. A broken
// manifest skips that directory only; the error is recorded in Skipped.
// When two directories declare the same name the first one wins.
func (l *Loader) Scan(ctx context.Context, root string) (ScanResult, error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return ScanResult{}, nil
		}
		return ScanResult{}, fmt.Errorf("read plugins directory: %w", err)
	}

	var result ScanResult
	seen := make(map[string]string)
	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		if !entry.IsDir() || strings.HasPrefix(entry.Name(), ".") {
			continue
		}
		dir := filepath.Join(root, entry.Name())
		if _, err := os.Stat(filepath.Join(dir, plugin.ManifestFile)); err != nil {
			continue
		}

		p, err := l.Load(dir)
		if err != nil {
			l.logger.Warn(ctx, "skipping plugin", "dir", dir, "error", err)
			result.Skipped = append(result.Skipped, err)
			continue
		}
		if first, dup := seen[p.Name]; dup {
			err := pderrors.NewManifestError(p.ManifestPath(), "name", fmt.Errorf("duplicate plugin name %q (already loaded from %s)", p.Name, first))
			l.logger.Warn(ctx, "skipping duplicate plugin", "dir", dir, "name", p.Name)
			result.Skipped = append(result.Skipped, err)
			continue
		}
		seen[p.Name] = dir
		result.Plugins = append(result.Plugins, p)
	}

	l.logger.Debug(ctx, "scan finished", "root", root, "plugins", len(result.Plugins), "skipped", len(result.Skipped))
	return result, nil
}

// Load reads a single plugin directory.
func (l *Loader) Load(dir string) (plugin.Plugin, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return plugin.Plugin{}, err
	}
	m, err := ParseFile(filepath.Join(abs, plugin.ManifestFile))
	if err != nil {
		return plugin.Plugin{}, err
	}
	execSpec, _ := m.ExecSpec()

	p := plugin.Plugin{
		Name:         m.Name,
		Alias:        strings.TrimSpace(m.Alias),
		Version:      m.Version,
		Description:  m.Description,
		Tags:         append([]string(nil), m.Tags...),
		Dependencies: append([]string(nil), m.Dependencies...),
		Exec:         execSpec,
		Path:         abs,
	}
	if info, err := os.Stat(filepath.Join(abs, plugin.EntryFile)); err == nil && !info.IsDir() {
		p.Executable = true
	}
	p.Commands = l.Commands(p)
	p.Manuals = Manuals(p)
	return p, nil
}

// Commands reads snippets/commands/*.yaml and *.yml, sorted by snippet name.
// Files without a name or command are skipped with a warning.
func (l *Loader) Commands(p plugin.Plugin) []plugin.Snippet {
	entries, err := os.ReadDir(p.CommandDir())
	if err != nil {
		return nil
	}

	var snippets []plugin.Snippet
	names := make(map[string]struct{})
	for _, entry := range entries {
		ext := strings.ToLower(filepath.Ext(entry.Name()))
		if entry.IsDir() || (ext != ".yaml" && ext != ".yml") {
			continue
		}
		path := filepath.Join(p.CommandDir(), entry.Name())
		s, err := parseSnippet(path)
		if err != nil {
			l.logger.Warn(context.Background(), "skipping snippet", "plugin", p.Name, "file", path, "error", err)
			continue
		}
		if _, dup := names[s.Name]; dup {
			l.logger.Warn(context.Background(), "duplicate snippet name", "plugin", p.Name, "name", s.Name, "file", path)
			continue
		}
		names[s.Name] = struct{}{}
		snippets = append(snippets, s)
	}

	sort.SliceStable(snippets, func(i, j int) bool { return snippets[i].Name < snippets[j].Name })
	return snippets
}

func parseSnippet(path string) (plugin.Snippet, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return plugin.Snippet{}, err
	}
	text, err := textenc.Decode(raw)
	if err != nil {
		return plugin.Snippet{}, err
	}
	var s plugin.Snippet
	if err := yaml.Unmarshal([]byte(text), &s); err != nil {
		return plugin.Snippet{}, err
	}
	s.Name = strings.TrimSpace(s.Name)
	s.Command = strings.TrimSpace(s.Command)
	s.Description = strings.TrimSpace(s.Description)
	if err := config.GetValidator().Struct(s); err != nil {
		field, reason := config.FirstViolation(err)
		return plugin.Snippet{}, fmt.Errorf("%s %s", field, reason)
	}
	s.Path = path
	return s, nil
}

// Manuals lists every regular file under manuals/, recursively, sorted by
// path. Hidden files are ignored.
func Manuals(p plugin.Plugin) []string {
	root := p.ManualDir()
	var files []string
	_ = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if strings.HasPrefix(d.Name(), ".") && path != root {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.Type().IsRegular() {
			files = append(files, path)
		}
		return nil
	})
	sort.Strings(files)
	return files
}

// ReadText returns the decoded manifest text of a plugin directory, used to
// show what an import would overwrite.
func ReadText(dir string) (string, error) {
	raw, err := os.ReadFile(filepath.Join(dir, plugin.ManifestFile))
	if err != nil {
		return "", err
	}
	return textenc.Decode(raw)
}
