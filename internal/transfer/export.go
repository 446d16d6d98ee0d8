package transfer

import (
	"archive/zip"
	"context"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/alexisbeaulieu97/plugdeck/internal/domain/plugin"
	"github.com/alexisbeaulieu97/plugdeck/internal/infrastructure/logging"
	"github.com/alexisbeaulieu97/plugdeck/internal/ports"
	"github.com/alexisbeaulieu97/plugdeck/internal/registry"
	pderrors "github.com/alexisbeaulieu97/plugdeck/pkg/errors"
)

var excludedDirs = map[string]bool{
	plugin.EnvDirName: true,
	"__pycache__":     true,
	".git":            true,
	".cache":          true,
	".pytest_cache":   true,
	".mypy_cache":     true,
	".ruff_cache":     true,
	".tox":            true,
}

// Excluded reports whether a path relative to the plugin directory is left
// out of exported archives.
func Excluded(rel string, isDir bool) bool {
	parts := strings.Split(filepath.ToSlash(rel), "/")
	for i, part := range parts {
		dirPart := i < len(parts)-1 || isDir
		if dirPart && (excludedDirs[part] || strings.HasSuffix(part, "_cache")) {
			return true
		}
	}
	last := parts[len(parts)-1]
	return !isDir && (strings.HasSuffix(last, ".lock") || strings.HasSuffix(last, ".pyc"))
}

// Exporter packages plugin directories into zip archives.
type Exporter struct {
	logger ports.Logger
	s3     *S3Provider
}

// NewExporter creates an Exporter. s3 may be nil, in which case s3://
// destinations are rejected.
func NewExporter(logger ports.Logger, s3 *S3Provider) *Exporter {
	return &Exporter{logger: logging.OrNoOp(logger), s3: s3}
}

// ArchiveFileName is the file name used when exporting into a directory.
func ArchiveFileName(p plugin.Plugin) string {
	return registry.ArchiveName(p.Name, "")
}

// Export writes p as a zip archive to dest and returns the final location.
// dest may be a file path, an existing directory or an s3:// URL.
func (e *Exporter) Export(ctx context.Context, p plugin.Plugin, dest string) (string, error) {
	if IsS3URL(dest) {
		return e.exportS3(ctx, p, dest)
	}

	target := dest
	if info, err := os.Stat(dest); (err == nil && info.IsDir()) || strings.HasSuffix(dest, string(os.PathSeparator)) || strings.HasSuffix(dest, "/") {
		target = filepath.Join(dest, ArchiveFileName(p))
	}
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return "", fmt.Errorf("failed to create export directory: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(target), "."+filepath.Base(target)+".*.tmp")
	if err != nil {
		return "", fmt.Errorf("failed to create temporary file: %w", err)
	}
	tmpPath := tmp.Name()
	cleanup := func() { _ = os.Remove(tmpPath) }

	count, err := WriteZip(ctx, tmp, p.Path, filepath.Base(p.Path))
	if err != nil {
		tmp.Close()
		cleanup()
		return "", err
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return "", fmt.Errorf("failed to write archive: %w", err)
	}
	if err := os.Rename(tmpPath, target); err != nil {
		cleanup()
		return "", fmt.Errorf("failed to rename temporary file: %w", err)
	}

	e.logger.Info(ctx, "plugin exported", "plugin", p.Name, "path", target, "files", count)
	return target, nil
}

func (e *Exporter) exportS3(ctx context.Context, p plugin.Plugin, dest string) (string, error) {
	if e.s3 == nil {
		return "", fmt.Errorf("%w: s3 destinations are not configured", pderrors.ErrInvalidURL)
	}
	loc, err := ParseS3URL(dest)
	if err != nil {
		return "", err
	}
	if loc.Key == "" || strings.HasSuffix(loc.Key, "/") {
		loc.Key += ArchiveFileName(p)
	}

	tmp, err := os.CreateTemp("", "plugdeck_export_*.zip")
	if err != nil {
		return "", fmt.Errorf("failed to create temporary file: %w", err)
	}
	defer os.Remove(tmp.Name())
	defer tmp.Close()

	if _, err := WriteZip(ctx, tmp, p.Path, filepath.Base(p.Path)); err != nil {
		return "", err
	}
	if _, err := tmp.Seek(0, io.SeekStart); err != nil {
		return "", err
	}

	if err := e.s3.Upload(ctx, loc, tmp); err != nil {
		return "", err
	}
	e.logger.Info(ctx, "plugin exported", "plugin", p.Name, "url", loc.String())
	return loc.String(), nil
}

// WriteZip writes a deflate archive of dir to w. Every entry is stored under
// topName so the archive has a single top-level directory. It returns the
// number of files written.
func WriteZip(ctx context.Context, w io.Writer, dir, topName string) (int, error) {
	zw := zip.NewWriter(w)
	count := 0

	err := filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return pderrors.ErrCancelled
		}
		rel, err := filepath.Rel(dir, p)
		if err != nil {
			return err
		}
		if rel == "." {
			return nil
		}
		if Excluded(rel, d.IsDir()) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		info, err := d.Info()
		if err != nil {
			return err
		}
		if !d.IsDir() && !info.Mode().IsRegular() {
			return nil
		}

		header, err := zip.FileInfoHeader(info)
		if err != nil {
			return err
		}
		header.Name = path.Join(topName, filepath.ToSlash(rel))
		if d.IsDir() {
			header.Name += "/"
			header.Method = zip.Store
			_, err = zw.CreateHeader(header)
			return err
		}
		header.Method = zip.Deflate

		fw, err := zw.CreateHeader(header)
		if err != nil {
			return err
		}
		f, err := os.Open(p)
		if err != nil {
			return err
		}
		defer f.Close()
		if _, err := io.Copy(fw, f); err != nil {
			return err
		}
		count++
		return nil
	})
	if err != nil {
		_ = zw.Close()
		return count, fmt.Errorf("failed to write archive: %w", err)
	}
	if err := zw.Close(); err != nil {
		return count, fmt.Errorf("failed to finish archive: %w", err)
	}
	return count, nil
}
