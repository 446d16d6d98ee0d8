package transfer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-git/go-git/v5"

	"github.com/alexisbeaulieu97/plugdeck/internal/infrastructure/logging"
	"github.com/alexisbeaulieu97/plugdeck/internal/ports"
	pderrors "github.com/alexisbeaulieu97/plugdeck/pkg/errors"
)

// SourceKind classifies an import URL.
type SourceKind int

const (
	SourceHTTP SourceKind = iota
	SourceS3
	SourceGit
)

func (k SourceKind) String() string {
	switch k {
	case SourceS3:
		return "s3"
	case SourceGit:
		return "git"
	default:
		return "http"
	}
}

// ClassifyURL validates raw and returns how it is fetched together with the
// address handed to the transport. git+ prefixes are stripped.
func ClassifyURL(raw string) (SourceKind, string, error) {
	raw = strings.TrimSpace(raw)
	invalid := func(reason string) (SourceKind, string, error) {
		return 0, "", fmt.Errorf("%w: %s: %q", pderrors.ErrInvalidURL, reason, raw)
	}
	if raw == "" {
		return invalid("empty URL")
	}

	lower := strings.ToLower(raw)
	if strings.HasPrefix(lower, "git+") {
		inner := raw[len("git+"):]
		u, err := url.Parse(inner)
		if err != nil || u.Scheme == "" {
			return invalid("git URL needs a transport scheme")
		}
		return SourceGit, inner, nil
	}

	u, err := url.Parse(raw)
	if err != nil {
		return invalid(err.Error())
	}
	switch strings.ToLower(u.Scheme) {
	case "http", "https":
		if u.Host == "" {
			return invalid("missing host")
		}
		if strings.HasSuffix(strings.ToLower(u.Path), ".git") {
			return SourceGit, raw, nil
		}
		return SourceHTTP, raw, nil
	case "s3":
		if u.Host == "" {
			return invalid("missing bucket")
		}
		return SourceS3, raw, nil
	default:
		return invalid("URL must start with http://, https://, s3:// or git+")
	}
}

// DownloaderOptions configure a Downloader.
type DownloaderOptions struct {
	Timeout   time.Duration
	ChunkSize int
	// Proxy returns the proxy URL to use, or "" for a direct connection.
	Proxy func() string
	// GitDepth limits clone history. Zero clones everything.
	GitDepth int
	S3       *S3Provider
	Logger   ports.Logger
	// HTTPClient overrides the client built from Timeout and Proxy.
	HTTPClient *http.Client
}

// Downloader retrieves import sources.
type Downloader struct {
	client    *http.Client
	chunkSize int
	gitDepth  int
	s3        *S3Provider
	logger    ports.Logger
}

// NewDownloader creates a Downloader.
func NewDownloader(opts DownloaderOptions) *Downloader {
	if opts.Timeout <= 0 {
		opts.Timeout = 60 * time.Second
	}
	if opts.ChunkSize <= 0 {
		opts.ChunkSize = 32 * 1024
	}
	client := opts.HTTPClient
	if client == nil {
		transport := http.DefaultTransport.(*http.Transport).Clone()
		if opts.Proxy != nil {
			proxy := opts.Proxy
			transport.Proxy = func(req *http.Request) (*url.URL, error) {
				if p := proxy(); p != "" {
					return url.Parse(p)
				}
				return http.ProxyFromEnvironment(req)
			}
		}
		client = &http.Client{Timeout: opts.Timeout, Transport: transport}
	}
	return &Downloader{
		client:    client,
		chunkSize: opts.ChunkSize,
		gitDepth:  opts.GitDepth,
		s3:        opts.S3,
		logger:    logging.OrNoOp(opts.Logger),
	}
}

// DownloadFile streams an http(s) or s3 source into destPath.
func (d *Downloader) DownloadFile(ctx context.Context, kind SourceKind, address, destPath string, progress ProgressFunc) error {
	progress.report(Progress{Percent: 0, Indeterminate: true, Status: "Connecting to server..."})

	var (
		body io.ReadCloser
		size int64
		err  error
	)
	switch kind {
	case SourceHTTP:
		body, size, err = d.openHTTP(ctx, address)
	case SourceS3:
		if d.s3 == nil {
			return fmt.Errorf("%w: s3 sources are not configured", pderrors.ErrInvalidURL)
		}
		var loc S3Location
		if loc, err = ParseS3URL(address); err == nil {
			body, size, err = d.s3.Download(ctx, loc)
		}
	default:
		return fmt.Errorf("%w: %s sources are not downloaded as files", pderrors.ErrInvalidURL, kind)
	}
	if err != nil {
		if ctx.Err() != nil {
			return pderrors.ErrCancelled
		}
		return err
	}
	defer body.Close()

	out, err := os.Create(destPath)
	if err != nil {
		return fmt.Errorf("failed to create download file: %w", err)
	}
	written, err := copyWithProgress(ctx, out, body, size, d.chunkSize, progress)
	if cerr := out.Close(); err == nil && cerr != nil {
		err = cerr
	}
	if err != nil {
		if errors.Is(err, pderrors.ErrCancelled) {
			return err
		}
		var netErr *pderrors.NetworkError
		if errors.As(err, &netErr) {
			return err
		}
		return pderrors.NewNetworkError(address, 0, err)
	}

	d.logger.Info(ctx, "download complete", "url", address, "bytes", written)
	return nil
}

func (d *Downloader) openHTTP(ctx context.Context, address string) (io.ReadCloser, int64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, address, nil)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: %v", pderrors.ErrInvalidURL, err)
	}
	resp, err := d.client.Do(req)
	if err != nil {
		return nil, 0, pderrors.NewNetworkError(address, 0, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		resp.Body.Close()
		return nil, 0, pderrors.NewNetworkError(address, resp.StatusCode, fmt.Errorf("server returned %s", resp.Status))
	}
	return resp.Body, resp.ContentLength, nil
}

// copyWithProgress copies src into dst in chunks of chunkSize, checking ctx
// between chunks. total is -1 or 0 when unknown.
func copyWithProgress(ctx context.Context, dst io.Writer, src io.Reader, total int64, chunkSize int, progress ProgressFunc) (int64, error) {
	buf := make([]byte, chunkSize)
	var written int64
	for {
		if ctx.Err() != nil {
			return written, pderrors.ErrCancelled
		}
		n, readErr := src.Read(buf)
		if n > 0 {
			if _, err := dst.Write(buf[:n]); err != nil {
				return written, err
			}
			written += int64(n)
			progress.report(downloadProgress(written, total))
		}
		if readErr == io.EOF {
			return written, nil
		}
		if readErr != nil {
			if ctx.Err() != nil {
				return written, pderrors.ErrCancelled
			}
			return written, readErr
		}
	}
}

func downloadProgress(done, total int64) Progress {
	if total > 0 {
		percent := int(done * 100 / total)
		if percent > 100 {
			percent = 100
		}
		return Progress{
			Percent: percent,
			Status:  fmt.Sprintf("Downloading... %d KB / %d KB", done/1024, total/1024),
		}
	}
	return Progress{Indeterminate: true, Status: fmt.Sprintf("Downloading... %d KB", done/1024)}
}

// Clone fetches a git repository into dest and strips its .git directory so
// the result is a plain plugin directory.
func (d *Downloader) Clone(ctx context.Context, address, dest string, progress ProgressFunc) error {
	progress.report(Progress{Indeterminate: true, Status: "Cloning repository..."})

	opts := &git.CloneOptions{
		URL:          address,
		SingleBranch: true,
		Tags:         git.NoTags,
	}
	if d.gitDepth > 0 {
		opts.Depth = d.gitDepth
	}
	if _, err := git.PlainCloneContext(ctx, dest, false, opts); err != nil {
		if ctx.Err() != nil {
			return pderrors.ErrCancelled
		}
		return pderrors.NewNetworkError(address, 0, fmt.Errorf("git clone failed: %w", err))
	}
	if err := SafeRemoveAll(filepath.Join(dest, ".git")); err != nil {
		return err
	}
	d.logger.Info(ctx, "repository cloned", "url", address)
	progress.report(Progress{Percent: 100, Status: "Clone complete"})
	return nil
}
