package cache

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	pkgerrors "github.com/glorpus-work/depot/pkg/errors"
)

// CleanOptions specifies what to clean from the cache.
type CleanOptions struct {
	// PartialOnly removes only leftovers of interrupted downloads.
	PartialOnly bool
	// OlderThan limits cleaning to files not modified within the duration.
	OlderThan time.Duration
}

// CleanResult contains information about what was cleaned.
type CleanResult struct {
	Files      int
	TotalFreed int64
}

// Info represents cache information.
type Info struct {
	Directory    string
	TotalSize    int64
	ArchiveFiles int
	ArchiveSize  int64
	PartialFiles int
	PartialSize  int64
}

// Info reports the archives currently held in the cache.
func (c *Cache) Info() (*Info, error) {
	info := &Info{Directory: c.dir}
	err := c.walk(func(path string, fi os.FileInfo) error {
		if isPartial(fi.Name()) {
			info.PartialFiles++
			info.PartialSize += fi.Size()
		} else {
			info.ArchiveFiles++
			info.ArchiveSize += fi.Size()
		}
		info.TotalSize += fi.Size()
		return nil
	})
	if err != nil {
		return nil, pkgerrors.Wrapf(err, "failed to get cache info")
	}
	return info, nil
}

// Clean removes cached files according to the specified options.
func (c *Cache) Clean(options CleanOptions) (*CleanResult, error) {
	result := &CleanResult{}
	cutoff := time.Now().Add(-options.OlderThan)
	err := c.walk(func(path string, fi os.FileInfo) error {
		if options.PartialOnly && !isPartial(fi.Name()) {
			return nil
		}
		if options.OlderThan > 0 && fi.ModTime().After(cutoff) {
			return nil
		}
		if err := os.Remove(path); err != nil {
			return pkgerrors.Wrapf(err, "failed to remove %s", path)
		}
		result.Files++
		result.TotalFreed += fi.Size()
		return nil
	})
	if err != nil {
		return nil, pkgerrors.Wrapf(err, "failed to clean cache")
	}
	return result, nil
}

// walk visits the regular files directly inside the cache directory. A missing
// directory is an empty cache.
func (c *Cache) walk(fn func(path string, fi os.FileInfo) error) error {
	if c.dir == "" {
		return pkgerrors.ErrCacheDirectory
	}
	entries, err := os.ReadDir(c.dir)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return err
	}
	for _, entry := range entries {
		if !entry.Type().IsRegular() {
			continue
		}
		fi, err := entry.Info()
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return err
		}
		if err := fn(filepath.Join(c.dir, entry.Name()), fi); err != nil {
			return err
		}
	}
	return nil
}

func isPartial(name string) bool {
	return strings.HasPrefix(name, ".") && strings.HasSuffix(name, ".part")
}
