// Package artifacts acquires, verifies, and caches the versioned engine JAR.
//
// Resolution order is override > cache > mirror > network. The on-disk cache
// is user-scoped and survives process restarts; a small JSON metadata file
// records the last verified version so a stale or tampered cache entry is
// treated as a miss rather than trusted.
package artifacts

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"
)

const metadataFile = "version.json"

// Record is the cache metadata for the last verified artifact.
type Record struct {
	Version    string    `json:"version"`
	Path       string    `json:"path"`
	SHA256     string    `json:"sha256,omitempty"`
	VerifiedAt time.Time `json:"verified_at"`
}

// Cache is the persistent on-disk artifact store. An entry is trusted only
// if the artifact file exists and the metadata records the matching version;
// anything else is a miss. Invalidation is logical: files are never deleted
// on a failed re-verification.
type Cache struct {
	dir      string
	metaPath string
}

// DefaultCacheDir returns the user-scoped cache location (~/.zephflow/jars).
func DefaultCacheDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory: %w", err)
	}
	return filepath.Join(home, ".zephflow", "jars"), nil
}

// NewCache opens (creating if needed) the cache at dir. An empty dir selects
// the default user-scoped location.
func NewCache(dir string) (*Cache, error) {
	if dir == "" {
		var err error
		dir, err = DefaultCacheDir()
		if err != nil {
			return nil, err
		}
	}
	//nolint:gosec // G301: 0755 is intentional for a user cache directory
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to ensure cache dir: %w", err)
	}
	return &Cache{dir: dir, metaPath: filepath.Join(dir, metadataFile)}, nil
}

// Dir returns the cache directory.
func (c *Cache) Dir() string { return c.dir }

// Lookup returns the cached artifact path for version, or "" on a miss.
// A missing file, unreadable metadata, or a version mismatch is a miss.
func (c *Cache) Lookup(version, filename string) string {
	rec, err := c.readMetadata()
	if err != nil || rec.Version != version {
		return ""
	}

	path := filepath.Join(c.dir, filename)
	fi, err := os.Stat(path)
	if err != nil || !fi.Mode().IsRegular() || fi.Size() == 0 {
		return ""
	}
	return path
}

// Commit atomically installs a verified temp file as the artifact for
// version and updates the metadata record. The temp file must live on the
// same filesystem as the cache dir (the acquirer stages it there).
func (c *Cache) Commit(version, tmpPath, filename string) (string, error) {
	final := filepath.Join(c.dir, filename)

	sum, err := fileSHA256(tmpPath)
	if err != nil {
		return "", fmt.Errorf("failed to hash artifact: %w", err)
	}

	if err := os.Rename(tmpPath, final); err != nil {
		return "", fmt.Errorf("failed to commit artifact: %w", err)
	}

	rec := Record{
		Version:    version,
		Path:       final,
		SHA256:     "sha256:" + sum,
		VerifiedAt: time.Now().UTC(),
	}
	if err := c.writeMetadata(rec); err != nil {
		return "", err
	}
	return final, nil
}

func (c *Cache) readMetadata() (Record, error) {
	var rec Record
	data, err := os.ReadFile(c.metaPath)
	if err != nil {
		return rec, err //nolint:wrapcheck // miss-or-error is collapsed by Lookup
	}
	if err := json.Unmarshal(data, &rec); err != nil {
		return rec, fmt.Errorf("unreadable cache metadata: %w", err)
	}
	return rec, nil
}

func (c *Cache) writeMetadata(rec Record) error {
	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode cache metadata: %w", err)
	}

	// Write to temp, then rename, so a crash never leaves torn metadata.
	tmp := c.metaPath + ".tmp"
	//nolint:gosec // G306: 0644 is intentional for a user cache file
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("failed to write cache metadata: %w", err)
	}
	if err := os.Rename(tmp, c.metaPath); err != nil {
		return fmt.Errorf("failed to commit cache metadata: %w", err)
	}
	return nil
}

func fileSHA256(path string) (string, error) {
	f, err := os.Open(path) //nolint:gosec // path is cache-internal
	if err != nil {
		return "", err //nolint:wrapcheck // caller provides context
	}
	defer f.Close() //nolint:errcheck // best-effort close

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err //nolint:wrapcheck // caller provides context
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
