package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"

	pderrors "github.com/alexisbeaulieu97/plugdeck/pkg/errors"
)

var yamlLineRegex = regexp.MustCompile(`line (\d+)`)

// Load reads the configuration at path on top of Default(baseDir). A missing
// file is not an error when optional is true; the defaults are returned.
func Load(path, baseDir string, optional bool) (*Config, error) {
	cfg := Default(baseDir)

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, pderrors.NewParseError(path, extractLine(err), err)
		}
	case errors.Is(err, fs.ErrNotExist) && optional:
	default:
		return nil, pderrors.NewParseError(path, 0, err)
	}

	if err := cfg.normalize(baseDir); err != nil {
		return nil, err
	}
	if err := Validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks struct constraints and reports the first violation.
func Validate(cfg *Config) error {
	if err := validatorInstance().Struct(cfg); err != nil {
		field, reason := FirstViolation(err)
		return pderrors.NewValidationError(field, reason, err)
	}
	return nil
}

// normalize expands "~" and resolves relative paths against baseDir.
func (c *Config) normalize(baseDir string) error {
	home, _ := os.UserHomeDir()
	for _, p := range []*string{&c.PluginsDir, &c.SettingsFile, &c.EnvFile, &c.HistoryDB} {
		if *p == "" {
			continue
		}
		expanded, err := expandPath(*p, home, baseDir)
		if err != nil {
			return pderrors.NewValidationError("paths", err.Error(), err)
		}
		*p = expanded
	}
	return nil
}

func expandPath(p, home, baseDir string) (string, error) {
	if p == "~" || strings.HasPrefix(p, "~/") || strings.HasPrefix(p, `~\`) {
		if home == "" {
			return "", fmt.Errorf("cannot expand %q: home directory unknown", p)
		}
		p = filepath.Join(home, p[1:])
	}
	if !filepath.IsAbs(p) {
		p = filepath.Join(baseDir, p)
	}
	return filepath.Clean(p), nil
}

func extractLine(err error) int {
	if err == nil {
		return 0
	}

	matches := yamlLineRegex.FindStringSubmatch(err.Error())
	if len(matches) != 2 {
		return 0
	}

	var line int
	if _, scanErr := fmt.Sscanf(matches[1], "%d", &line); scanErr != nil {
		return 0
	}

	return line
}
