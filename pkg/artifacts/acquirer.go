package artifacts

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/fleak-ai/zephflow-go/pkg/util/resiliency"
	"github.com/fleak-ai/zephflow-go/pkg/versioning"
)

// Options configures an Acquirer.
type Options struct {
	// OverridePath, when non-empty, is a pre-supplied artifact path that
	// bypasses cache and network entirely (ZEPHFLOW_MAIN_JAR).
	OverridePath string

	// CacheDir overrides the default user-scoped cache directory.
	CacheDir string

	// RepoURL overrides the canonical release repository.
	RepoURL string

	// MirrorURL, when non-empty, names an object-store mirror checked
	// before the release repository ("s3://bucket/prefix" or
	// "gs://bucket/prefix").
	MirrorURL string

	// HTTPTimeout is the per-attempt download timeout (default 30s).
	HTTPTimeout time.Duration

	// MaxAttempts bounds download retries (default 3).
	MaxAttempts int
}

// Acquirer resolves a versioned engine artifact to a local path.
//
// Resolve is serialized by an internal mutex: concurrent first-use callers
// block until the winning resolution completes, then observe its result.
// This prevents duplicate downloads and partial-file races on the shared
// cache directory.
type Acquirer struct {
	mu       sync.Mutex
	cache    *Cache
	catalog  *versioning.Catalog
	client   *resiliency.RetryClient
	override string
	mirror   Mirror
}

// NewAcquirer creates an acquirer. The mirror, when configured, is opened
// eagerly so a malformed mirror URL fails fast.
func NewAcquirer(ctx context.Context, opts Options) (*Acquirer, error) {
	cache, err := NewCache(opts.CacheDir)
	if err != nil {
		return nil, err
	}

	var mirror Mirror
	if opts.MirrorURL != "" {
		mirror, err = OpenMirror(ctx, opts.MirrorURL)
		if err != nil {
			return nil, err
		}
	}

	return &Acquirer{
		cache:    cache,
		catalog:  versioning.NewCatalog(opts.RepoURL),
		client:   resiliency.NewRetryClient(opts.HTTPTimeout, opts.MaxAttempts),
		override: opts.OverridePath,
		mirror:   mirror,
	}, nil
}

// Cache exposes the underlying cache (diagnostics, tests).
func (a *Acquirer) Cache() *Cache { return a.cache }

// Resolve returns a local path to the artifact for version.
//
// Order, first match wins:
//  1. override path (no verification, no cache, no network)
//  2. cache hit (verified record)
//  3. mirror object store, when configured
//  4. release repository download
//
// On any acquisition failure no partial file remains in the cache directory.
func (a *Acquirer) Resolve(ctx context.Context, version string) (string, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	// 1. Override
	if a.override != "" {
		fi, err := os.Stat(a.override)
		if err != nil || !fi.Mode().IsRegular() {
			return "", fmt.Errorf("%w: %s", ErrOverrideNotFound, a.override)
		}
		slog.Debug("artifacts: using override jar", "path", a.override)
		return a.override, nil
	}

	if _, err := versioning.Parse(version); err != nil {
		return "", fmt.Errorf("%w: %v", ErrVersionNotFound, err)
	}
	filename := a.catalog.ArtifactName(version)

	// 2. Cache
	if path := a.cache.Lookup(version, filename); path != "" {
		slog.Debug("artifacts: cache hit", "version", version, "path", path)
		return path, nil
	}

	// 3. Mirror (best effort: a failing mirror falls through to the
	// release repository with a warning)
	if a.mirror != nil {
		path, err := a.fetchMirror(ctx, version, filename)
		if err == nil {
			return path, nil
		}
		slog.Warn("artifacts: mirror fetch failed, falling back to release download",
			"version", version, "error", err)
	}

	// 4. Network
	return a.download(ctx, version, filename)
}

// download fetches the artifact from the release repository into the cache.
func (a *Acquirer) download(ctx context.Context, version, filename string) (path string, err error) {
	url := a.catalog.DownloadURL(version)
	slog.Info("artifacts: downloading engine jar", "version", version, "url", url)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrNetwork, err)
	}

	resp, err := a.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrNetwork, err)
	}
	defer resp.Body.Close() //nolint:errcheck // best-effort close

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return "", fmt.Errorf("%w: no release at %s", ErrVersionNotFound, url)
	case resp.StatusCode != http.StatusOK:
		return "", fmt.Errorf("%w: unexpected status %s from %s", ErrNetwork, resp.Status, url)
	}

	return a.stage(version, filename, resp.ContentLength, resp.Body)
}

// fetchMirror fetches the artifact object from the configured mirror.
func (a *Acquirer) fetchMirror(ctx context.Context, version, filename string) (string, error) {
	slog.Info("artifacts: fetching engine jar from mirror", "version", version, "object", filename)

	tmp, cleanup, err := a.tempFile(filename)
	if err != nil {
		return "", err
	}
	defer cleanup()

	size, err := a.mirror.Fetch(ctx, filename, tmp)
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrNetwork, err)
	}

	return a.verifyAndCommit(version, tmp.Name(), filename, size)
}

// stage copies the response body to a temp file in the cache dir, verifies
// it, and commits it. The temp file is removed on every failure path.
func (a *Acquirer) stage(version, filename string, want int64, body io.Reader) (string, error) {
	tmp, cleanup, err := a.tempFile(filename)
	if err != nil {
		return "", err
	}
	defer cleanup()

	n, err := io.Copy(tmp, body)
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrNetwork, err)
	}

	if want >= 0 && n != want {
		return "", fmt.Errorf("%w: got %d bytes, expected %d", ErrCorruptArtifact, n, want)
	}
	return a.verifyAndCommit(version, tmp.Name(), filename, n)
}

func (a *Acquirer) verifyAndCommit(version, tmpPath, filename string, size int64) (string, error) {
	if size == 0 {
		return "", fmt.Errorf("%w: downloaded file is empty", ErrCorruptArtifact)
	}

	path, err := a.cache.Commit(version, tmpPath, filename)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrCorruptArtifact, err)
	}
	slog.Info("artifacts: engine jar installed", "version", version, "path", path, "bytes", size)
	return path, nil
}

// tempFile creates a uniquely named staging file in the cache dir so the
// final install is a same-filesystem rename. The returned cleanup removes
// the file unless Commit already renamed it away.
func (a *Acquirer) tempFile(filename string) (*os.File, func(), error) {
	name := fmt.Sprintf("%s.tmp-%s", filename, uuid.NewString())
	path := filepath.Join(a.cache.Dir(), name)

	//nolint:gosec // G304: path is cache-internal
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: cannot stage download: %v", ErrNetwork, err)
	}
	cleanup := func() {
		_ = f.Close()
		if _, err := os.Stat(path); err == nil {
			_ = os.Remove(path)
		}
	}
	return f, cleanup, nil
}
