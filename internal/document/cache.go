package document

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// Cache artifact name prefixes. The naming is part of the external
// contract: maintenance tooling clears cache entries by path pattern.
const (
	pageCachePrefix    = "page-cache-"
	versionCachePrefix = "document-version-"
)

// PageCache holds rendered page bitmaps and intermediate files on a
// shared filesystem path. Entries are regenerable side artifacts: they
// are safe to delete at any time, and a missing entry simply means
// recompute on next access. Concurrent writers for the same key are
// tolerated; the last writer wins.
type PageCache struct {
	path string
}

func NewPageCache(path string) (*PageCache, error) {
	if err := os.MkdirAll(path, 0o755); err != nil {
		return nil, fmt.Errorf("create cache dir: %w", err)
	}
	return &PageCache{path: path}, nil
}

func (c *PageCache) PagePath(cacheUUID string) string {
	return filepath.Join(c.path, pageCachePrefix+cacheUUID)
}

func (c *PageCache) VersionPath(cacheUUID string) string {
	return filepath.Join(c.path, versionCachePrefix+cacheUUID)
}

// OpenPage returns the cached bitmap for the page, or os.ErrNotExist.
func (c *PageCache) OpenPage(cacheUUID string) ([]byte, error) {
	return os.ReadFile(c.PagePath(cacheUUID))
}

func (c *PageCache) WritePage(cacheUUID string, data []byte) error {
	if err := os.WriteFile(c.PagePath(cacheUUID), data, 0o644); err != nil {
		// Never leave a truncated artifact behind a valid key.
		os.Remove(c.PagePath(cacheUUID))
		return fmt.Errorf("write page cache: %w", err)
	}
	return nil
}

// OpenVersion returns the cached intermediate file for a version, or
// os.ErrNotExist.
func (c *PageCache) OpenVersion(cacheUUID string) (io.ReadCloser, error) {
	return os.Open(c.VersionPath(cacheUUID))
}

// WriteVersion streams an intermediate file into the cache and reopens
// it for reading. On write failure the partial artifact is removed.
func (c *PageCache) WriteVersion(cacheUUID string, r io.Reader) (io.ReadCloser, error) {
	path := c.VersionPath(cacheUUID)

	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("create intermediate file: %w", err)
	}
	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		os.Remove(path)
		return nil, fmt.Errorf("write intermediate file: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(path)
		return nil, fmt.Errorf("close intermediate file: %w", err)
	}

	return os.Open(path)
}

// InvalidatePage removes a page's cached bitmap. Missing entries are
// not an error.
func (c *PageCache) InvalidatePage(cacheUUID string) error {
	return removeIfPresent(c.PagePath(cacheUUID))
}

// InvalidateVersion removes a version's intermediate file.
func (c *PageCache) InvalidateVersion(cacheUUID string) error {
	return removeIfPresent(c.VersionPath(cacheUUID))
}

func removeIfPresent(path string) error {
	err := os.Remove(path)
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove cache file: %w", err)
	}
	return nil
}
