package provision

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/alexisbeaulieu97/plugdeck/internal/domain/plugin"
)

// MarkerFile is written inside the environment directory after a successful
// sync.
const MarkerFile = ".plugdeck-provisioned"

// Marker records when and how an environment was provisioned.
type Marker struct {
	ProvisionedAt  time.Time `json:"provisioned_at"`
	PackageManager string    `json:"package_manager,omitempty"`
	PluginVersion  string    `json:"plugin_version,omitempty"`
}

// MarkerPath returns the marker location for p.
func MarkerPath(p plugin.Plugin) string {
	return filepath.Join(p.EnvDir(), MarkerFile)
}

// IsProvisioned reports whether p's environment has been provisioned.
func IsProvisioned(p plugin.Plugin) bool {
	info, err := os.Stat(MarkerPath(p))
	return err == nil && info.Mode().IsRegular()
}

// ReadMarker loads p's marker.
func ReadMarker(p plugin.Plugin) (Marker, error) {
	var m Marker
	data, err := os.ReadFile(MarkerPath(p))
	if err != nil {
		return m, err
	}
	if err := json.Unmarshal(data, &m); err != nil {
		return m, fmt.Errorf("failed to parse marker: %w", err)
	}
	return m, nil
}

func writeMarker(p plugin.Plugin, m Marker) error {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal marker: %w", err)
	}
	if err := os.MkdirAll(p.EnvDir(), 0o755); err != nil {
		return fmt.Errorf("failed to create environment directory: %w", err)
	}

	path := MarkerPath(p)
	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0o644); err != nil {
		return fmt.Errorf("failed to write marker: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to write marker: %w", err)
	}
	return nil
}
