package transfer

import (
	"archive/zip"
	"context"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/alexisbeaulieu97/plugdeck/internal/domain/plugin"
	pderrors "github.com/alexisbeaulieu97/plugdeck/pkg/errors"
)

// macMetadataDir is added by the macOS archive utility and never part of a
// plugin.
const macMetadataDir = "__MACOSX"

// Progress is one import progress report.
type Progress struct {
	Percent       int
	Indeterminate bool
	Status        string
}

// ProgressFunc receives progress reports. It may be nil.
type ProgressFunc func(Progress)

func (f ProgressFunc) report(p Progress) {
	if f != nil {
		f(p)
	}
}

// ValidateZip checks that path is a readable zip archive.
func ValidateZip(path string) error {
	r, err := zip.OpenReader(path)
	if err != nil {
		return pderrors.NewArchiveError(path, "not a valid zip file", err)
	}
	return r.Close()
}

// Extract unpacks the zip at archivePath into dest. Entries that would land
// outside dest are rejected, unix modes are restored and cancellation is
// checked before every entry.
func Extract(ctx context.Context, archivePath, dest string, progress ProgressFunc) error {
	r, err := zip.OpenReader(archivePath)
	if err != nil {
		return pderrors.NewArchiveError(archivePath, "not a valid zip file", err)
	}
	defer r.Close()

	root, err := filepath.Abs(dest)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return fmt.Errorf("failed to create extraction directory: %w", err)
	}

	total := len(r.File)
	progress.report(Progress{Percent: 0, Status: fmt.Sprintf("Extracting... 0/%d files", total)})
	for i, f := range r.File {
		if err := ctx.Err(); err != nil {
			return pderrors.ErrCancelled
		}
		if err := extractEntry(root, f); err != nil {
			return pderrors.NewArchiveError(archivePath, fmt.Sprintf("failed to extract %s", f.Name), err)
		}
		progress.report(Progress{
			Percent: (i + 1) * 100 / total,
			Status:  fmt.Sprintf("Extracting... %d/%d files", i+1, total),
		})
	}
	return nil
}

func extractEntry(root string, f *zip.File) error {
	name := strings.ReplaceAll(f.Name, "\\", "/")
	if name == "" || strings.HasPrefix(name, macMetadataDir+"/") {
		return nil
	}

	target, err := entryPath(root, name)
	if err != nil {
		return err
	}

	mode := f.Mode()
	switch {
	case mode.IsDir() || strings.HasSuffix(name, "/"):
		return os.MkdirAll(target, dirPerm(mode))
	case mode&fs.ModeSymlink != 0:
		// Links could point anywhere on the host; they are not restored.
		return nil
	}

	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return err
	}
	rc, err := f.Open()
	if err != nil {
		return err
	}
	defer rc.Close()

	out, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, filePerm(mode))
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, rc); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

// entryPath joins name onto root and rejects paths escaping root.
func entryPath(root, name string) (string, error) {
	if filepath.IsAbs(name) || strings.HasPrefix(name, "/") || filepath.VolumeName(name) != "" {
		return "", fmt.Errorf("absolute path %q in archive", name)
	}
	target := filepath.Join(root, filepath.FromSlash(name))
	if target != root && !strings.HasPrefix(target, root+string(os.PathSeparator)) {
		return "", fmt.Errorf("entry %q escapes the extraction directory", name)
	}
	return target, nil
}

func filePerm(mode fs.FileMode) fs.FileMode {
	perm := mode.Perm()
	if perm == 0 {
		return 0o644
	}
	return perm | 0o600
}

func dirPerm(mode fs.FileMode) fs.FileMode {
	perm := mode.Perm()
	if perm == 0 {
		return 0o755
	}
	return perm | 0o700
}

// FindPluginRoot returns the single top-level directory of an extracted
// archive. It must hold the manifest.
func FindPluginRoot(source, dir string) (string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", pderrors.NewArchiveError(source, "cannot read extracted archive", err)
	}

	var dirs, withManifest []string
	for _, e := range entries {
		name := e.Name()
		if strings.HasPrefix(name, ".") || name == macMetadataDir {
			continue
		}
		if !e.IsDir() {
			if name == plugin.ManifestFile {
				return "", pderrors.NewArchiveError(source, "the manifest must be inside a single top-level directory", nil)
			}
			continue
		}
		dirs = append(dirs, name)
		if _, err := os.Stat(filepath.Join(dir, name, plugin.ManifestFile)); err == nil {
			withManifest = append(withManifest, name)
		}
	}

	switch {
	case len(withManifest) > 1:
		return "", pderrors.NewArchiveError(source, "archive contains multiple plugins; import one plugin at a time", nil)
	case len(dirs) == 0:
		return "", pderrors.NewArchiveError(source, "no plugin directory found in archive", nil)
	case len(dirs) > 1:
		return "", pderrors.NewArchiveError(source, "archive must contain exactly one top-level directory", nil)
	case len(withManifest) == 0:
		return "", pderrors.NewArchiveError(source, fmt.Sprintf("no %s found in %s", plugin.ManifestFile, dirs[0]), nil)
	}
	return filepath.Join(dir, withManifest[0]), nil
}
