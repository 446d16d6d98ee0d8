// Package manifest reads plugin directories into domain plugins.
package manifest

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/pelletier/go-toml/v2"

	"github.com/alexisbeaulieu97/plugdeck/internal/config"
	"github.com/alexisbeaulieu97/plugdeck/internal/domain/plugin"
	"github.com/alexisbeaulieu97/plugdeck/internal/textenc"
	pderrors "github.com/alexisbeaulieu97/plugdeck/pkg/errors"
)

// Manifest is the [project] table of a plugin's pyproject.toml.
type Manifest struct {
	Name         string   `toml:"name" validate:"required,plugin_name"`
	Alias        string   `toml:"alias"`
	Version      string   `toml:"version" validate:"required"`
	Description  string   `toml:"description" validate:"required"`
	Tags         []string `toml:"tags"`
	Dependencies []string `toml:"dependencies"`
	Exec         any      `toml:"exec"`
}

type pyproject struct {
	Project *Manifest `toml:"project"`
}

// Parse decodes and validates manifest bytes. path is only used in errors.
func Parse(path string, raw []byte) (Manifest, error) {
	text, err := textenc.Decode(raw)
	if err != nil {
		return Manifest{}, pderrors.NewManifestError(path, "", err)
	}

	var doc pyproject
	if err := toml.Unmarshal([]byte(text), &doc); err != nil {
		var decodeErr *toml.DecodeError
		if errors.As(err, &decodeErr) {
			row, col := decodeErr.Position()
			err = fmt.Errorf("line %d, column %d: %s", row, col, decodeErr.Error())
		}
		return Manifest{}, pderrors.NewManifestError(path, "", err)
	}
	if doc.Project == nil {
		return Manifest{}, pderrors.NewManifestError(path, "project", errors.New("missing [project] table"))
	}

	m := *doc.Project
	m.Name = strings.TrimSpace(m.Name)
	m.Version = strings.TrimSpace(m.Version)
	m.Description = strings.TrimSpace(m.Description)

	if err := config.GetValidator().Struct(m); err != nil {
		field, reason := config.FirstViolation(err)
		return Manifest{}, pderrors.NewManifestError(path, field, errors.New(reason))
	}
	if _, err := m.ExecSpec(); err != nil {
		return Manifest{}, pderrors.NewManifestError(path, "exec", err)
	}
	return m, nil
}

// ParseFile reads and parses a manifest from disk.
func ParseFile(path string) (Manifest, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Manifest{}, pderrors.NewManifestError(path, "", err)
	}
	return Parse(path, raw)
}

// ExecSpec converts the loosely typed exec value into the Exec variant. A
// string applies to every platform; a table maps platform tags to commands.
func (m Manifest) ExecSpec() (plugin.Exec, error) {
	switch v := m.Exec.(type) {
	case nil:
		return plugin.NoExec(), nil
	case string:
		if strings.TrimSpace(v) == "" {
			return plugin.NoExec(), nil
		}
		return plugin.CommandExec(v), nil
	case map[string]any:
		byPlatform := make(map[string]string, len(v))
		keys := make([]string, 0, len(v))
		for k := range v {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			cmd, ok := v[k].(string)
			if !ok {
				return plugin.Exec{}, fmt.Errorf("exec.%s must be a string", k)
			}
			byPlatform[k] = cmd
		}
		return plugin.PlatformExec(byPlatform), nil
	default:
		return plugin.Exec{}, fmt.Errorf("exec must be a string or a table, got %T", v)
	}
}
