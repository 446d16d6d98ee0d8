// Package config loads plugdeck's application configuration (plugdeck.yaml).
package config

import (
	"path/filepath"
	"runtime"
	"time"
)

// DefaultLaunchCommand runs a plugin's entry file inside its environment.
const DefaultLaunchCommand = "uv run --active main.py"

// Config represents the full application configuration document.
type Config struct {
	PluginsDir        string         `yaml:"plugins_dir" validate:"required"`
	SettingsFile      string         `yaml:"settings_file" validate:"required"`
	EnvFile           string         `yaml:"env_file" validate:"required"`
	HistoryDB         string         `yaml:"history_db,omitempty"`
	EnvFilterPrefixes []string       `yaml:"env_filter_prefixes,omitempty" validate:"dive,required"`
	Tools             ToolsConfig    `yaml:"tools"`
	Download          DownloadConfig `yaml:"download"`
	Log               LogConfig      `yaml:"log"`
}

// ToolsConfig names the external tools driven by the provisioner.
type ToolsConfig struct {
	PackageManager string        `yaml:"package_manager" validate:"required"`
	Interpreter    string        `yaml:"interpreter" validate:"required"`
	ProbeTimeout   time.Duration `yaml:"probe_timeout" validate:"min=100ms"`
	SyncTimeout    time.Duration `yaml:"sync_timeout" validate:"min=0"`
	SyncArgs       []string      `yaml:"sync_args" validate:"min=1,dive,required"`
	DefaultCommand string        `yaml:"default_command" validate:"required"`
}

// DownloadConfig tunes URL imports.
type DownloadConfig struct {
	Timeout     time.Duration `yaml:"timeout" validate:"min=1s"`
	ChunkSize   int           `yaml:"chunk_size" validate:"min=512,max=4194304"`
	S3Region    string        `yaml:"s3_region,omitempty"`
	S3Endpoint  string        `yaml:"s3_endpoint,omitempty" validate:"omitempty,url"`
	S3PathStyle bool          `yaml:"s3_path_style,omitempty"`
}

// LogConfig selects the logging backend.
type LogConfig struct {
	Level  string `yaml:"level,omitempty" validate:"omitempty,oneof=debug info warn error"`
	Format string `yaml:"format,omitempty" validate:"omitempty,oneof=text json logfmt"`
}

// Default returns the configuration used when no file is present, rooted at
// baseDir (normally ~/.plugdeck).
func Default(baseDir string) Config {
	interpreter := "python3"
	if runtime.GOOS == "windows" {
		interpreter = "python"
	}
	return Config{
		PluginsDir:        filepath.Join(baseDir, "plugins"),
		SettingsFile:      filepath.Join(baseDir, "settings.json"),
		EnvFile:           filepath.Join(baseDir, ".env"),
		HistoryDB:         filepath.Join(baseDir, "history.db"),
		EnvFilterPrefixes: []string{"QT_", "PYSIDE_"},
		Tools: ToolsConfig{
			PackageManager: "uv",
			Interpreter:    interpreter,
			ProbeTimeout:   5 * time.Second,
			SyncTimeout:    10 * time.Minute,
			SyncArgs:       []string{"sync"},
			DefaultCommand: DefaultLaunchCommand,
		},
		Download: DownloadConfig{
			Timeout:   60 * time.Second,
			ChunkSize: 32 * 1024,
		},
		Log: LogConfig{Level: "warn", Format: "text"},
	}
}
