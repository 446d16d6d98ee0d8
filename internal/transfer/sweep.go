package transfer

import (
	"os"
	"path/filepath"
	"strings"
)

const (
	// TempDirPrefix names import staging directories inside the plugins root.
	TempDirPrefix = ".temp_import_"
	// SystemTempPrefix names scratch files and directories in the system
	// temp directory.
	SystemTempPrefix = "plugdeck_import_"
)

// SweepOrphans removes staging directories left behind by a crash: every
// TempDirPrefix entry in root and every SystemTempPrefix entry in tempDir.
// An empty tempDir means os.TempDir(). It returns the removed paths.
func SweepOrphans(root, tempDir string) ([]string, error) {
	if tempDir == "" {
		tempDir = os.TempDir()
	}

	var removed []string
	var firstErr error
	sweep := func(dir, prefix string) {
		entries, err := os.ReadDir(dir)
		if err != nil {
			if !os.IsNotExist(err) && firstErr == nil {
				firstErr = err
			}
			return
		}
		for _, e := range entries {
			if !strings.HasPrefix(e.Name(), prefix) {
				continue
			}
			path := filepath.Join(dir, e.Name())
			if err := SafeRemoveAll(path); err != nil {
				if firstErr == nil {
					firstErr = err
				}
				continue
			}
			removed = append(removed, path)
		}
	}

	sweep(root, TempDirPrefix)
	sweep(tempDir, SystemTempPrefix)
	return removed, firstErr
}
