// Package plugin holds the plugin domain model produced by a registry scan.
package plugin

import (
	"path/filepath"
	"sort"
)

// ExecKind discriminates the Exec variants.
type ExecKind int

const (
	// ExecNone means the manifest declares no launch command.
	ExecNone ExecKind = iota
	// ExecString is a single command used on every platform.
	ExecString
	// ExecPlatformMap holds one command per platform tag.
	ExecPlatformMap
)

// Exec is the optional launch override declared in a manifest.
type Exec struct {
	Kind       ExecKind
	Command    string
	ByPlatform map[string]string
}

// NoExec returns the absent variant.
func NoExec() Exec { return Exec{Kind: ExecNone} }

// CommandExec returns the single-command variant.
func CommandExec(command string) Exec { return Exec{Kind: ExecString, Command: command} }

// PlatformExec returns the per-platform variant. The map is copied.
func PlatformExec(byPlatform map[string]string) Exec {
	m := make(map[string]string, len(byPlatform))
	for k, v := range byPlatform {
		m[k] = v
	}
	return Exec{Kind: ExecPlatformMap, ByPlatform: m}
}

// Platforms lists the tags of a platform map in sorted order.
func (e Exec) Platforms() []string {
	keys := make([]string, 0, len(e.ByPlatform))
	for k := range e.ByPlatform {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Snippet is a named shell command shipped with a plugin.
type Snippet struct {
	Name        string `yaml:"name" validate:"required"`
	Command     string `yaml:"command" validate:"required"`
	Description string `yaml:"description"`
	Path        string `yaml:"-"`
}

// Plugin is an immutable view of one plugin directory. Values are replaced
// wholesale on every scan.
type Plugin struct {
	Name         string
	Alias        string
	Version      string
	Description  string
	Tags         []string
	Dependencies []string
	Exec         Exec
	Path         string
	Executable   bool
	Manuals      []string
	Commands     []Snippet
}

// DisplayName returns the alias when set, the name otherwise.
func (p Plugin) DisplayName() string {
	if p.Alias != "" {
		return p.Alias
	}
	return p.Name
}

// EnvDir is the plugin's isolated dependency environment.
func (p Plugin) EnvDir() string { return filepath.Join(p.Path, EnvDirName) }

// ManifestPath is the plugin's pyproject.toml.
func (p Plugin) ManifestPath() string { return filepath.Join(p.Path, ManifestFile) }

// SnippetDir is <plugin>/snippets.
func (p Plugin) SnippetDir() string { return filepath.Join(p.Path, SnippetsDir) }

// CommandDir is <plugin>/snippets/commands, the directory snippet files live in.
func (p Plugin) CommandDir() string { return filepath.Join(p.Path, SnippetsDir, CommandsDir) }

// ManualDir is <plugin>/manuals.
func (p Plugin) ManualDir() string { return filepath.Join(p.Path, ManualsDir) }

// Command looks up a snippet by name.
func (p Plugin) Command(name string) (Snippet, bool) {
	for _, s := range p.Commands {
		if s.Name == name {
			return s, true
		}
	}
	return Snippet{}, false
}

// Clone returns a deep copy so callers cannot mutate registry state.
func (p Plugin) Clone() Plugin {
	out := p
	out.Tags = append([]string(nil), p.Tags...)
	out.Dependencies = append([]string(nil), p.Dependencies...)
	out.Manuals = append([]string(nil), p.Manuals...)
	out.Commands = append([]Snippet(nil), p.Commands...)
	if p.Exec.ByPlatform != nil {
		out.Exec = PlatformExec(p.Exec.ByPlatform)
	}
	return out
}
