// Package cache maps archive URLs onto a flat download cache and guarantees that a
// path it hands out holds a non-empty file whose digest matches the expected hash.
package cache

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"github.com/glorpus-work/depot/internal/logger"
	"github.com/glorpus-work/depot/pkg/checksum"
	"github.com/glorpus-work/depot/pkg/download"
	pkgerrors "github.com/glorpus-work/depot/pkg/errors"
	"github.com/glorpus-work/depot/pkg/fsutil"
	"github.com/glorpus-work/depot/pkg/model"
	"github.com/glorpus-work/depot/pkg/retry"
)

// DefaultTimeout bounds a single HTTP request.
const DefaultTimeout = 60 * time.Second

// Cache is the artifact cache. Distinct URLs map to distinct files, so concurrent
// Fetch calls for different archives never touch the same path.
type Cache struct {
	dir        string
	downloader download.Downloader
	verify     bool
	policy     retry.Policy
}

// Option configures a Cache.
type Option func(*Cache)

// WithDownloader replaces the HTTP downloader.
func WithDownloader(d download.Downloader) Option {
	return func(c *Cache) { c.downloader = d }
}

// WithVerification toggles hash verification. When disabled any non-empty cached
// file is accepted and a warning is logged.
func WithVerification(on bool) Option {
	return func(c *Cache) { c.verify = on }
}

// WithRetryPolicy overrides the attempt budget.
func WithRetryPolicy(p retry.Policy) Option {
	return func(c *Cache) { c.policy = p }
}

// New creates a cache rooted at dir.
func New(dir string, opts ...Option) *Cache {
	c := &Cache{
		dir:    dir,
		verify: true,
		policy: retry.Policy{Attempts: retry.DefaultAttempts},
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.downloader == nil {
		c.downloader = download.NewManager(DefaultTimeout, "")
	}
	return c
}

// NewDefault creates a cache in the user cache directory.
func NewDefault(opts ...Option) (*Cache, error) {
	dir, err := fsutil.GetCacheDir()
	if err != nil {
		return nil, pkgerrors.Wrapf(err, "failed to get user cache directory")
	}
	return New(dir, opts...), nil
}

// Directory returns the cache directory.
func (c *Cache) Directory() string {
	return c.dir
}

// Path returns the cache location for rawURL: the cache directory joined with the
// basename of the URL path.
func (c *Cache) Path(rawURL string) (string, error) {
	p := rawURL
	if u, err := url.Parse(rawURL); err == nil && u.Host != "" {
		p = u.Path
	}
	base := model.URLBasename(p)
	if base == "" || base == "." || base == ".." || base == "/" {
		return "", fmt.Errorf("cannot derive a file name from %q: %w", rawURL, pkgerrors.ErrConfig)
	}
	return filepath.Join(c.dir, base), nil
}

// Fetch returns the path of a verified local copy of url, downloading it when the
// cache holds no usable copy. Zero-length and mismatching files are deleted and
// fetched again, at most three attempts in total.
func (c *Cache) Fetch(ctx context.Context, name, rawURL, algorithm, expectedHash string) (string, error) {
	if c.dir == "" {
		return "", pkgerrors.ErrCacheDirectory
	}
	path, err := c.Path(rawURL)
	if err != nil {
		return "", err
	}
	if _, err := checksum.New(algorithm); err != nil {
		return "", err
	}
	if err := os.MkdirAll(c.dir, fsutil.DirModeDefault); err != nil {
		return "", pkgerrors.Wrap(err, "could not create cache directory")
	}

	fields := logger.Fields{"package": name, "url": rawURL}
	err = retry.Do(ctx, c.policy, func(ctx context.Context, attempt int) (retry.Outcome, error) {
		if outcome, done, err := c.checkCached(path, algorithm, expectedHash, fields); done {
			return outcome, err
		}

		logger.Info("Downloading archive", fields, logger.Fields{"attempt": attempt})
		if _, err := c.downloader.Download(ctx, rawURL, path); err != nil {
			if errors.Is(err, download.ErrHostUnavailable) || ctx.Err() != nil {
				return retry.Fail, err
			}
			logger.Warn("Download failed", fields, logger.Fields{"attempt": attempt, "error": err.Error()})
			return retry.Retry, err
		}

		outcome, done, err := c.checkCached(path, algorithm, expectedHash, fields)
		if !done {
			return retry.Retry, fmt.Errorf("%s vanished after download: %w", path, pkgerrors.ErrDownload)
		}
		return outcome, err
	})
	if err != nil {
		return "", fmt.Errorf("failed to fetch %s: %w", name, err)
	}
	return path, nil
}

// checkCached inspects the file at path. done is false when there is no file.
func (c *Cache) checkCached(path, algorithm, expectedHash string, fields logger.Fields) (outcome retry.Outcome, done bool, err error) {
	info, statErr := os.Stat(path)
	if os.IsNotExist(statErr) {
		return retry.Retry, false, nil
	}
	if statErr != nil {
		return retry.Fail, true, pkgerrors.Wrapf(statErr, "failed to stat %s", path)
	}
	if info.IsDir() {
		return retry.Fail, true, fmt.Errorf("%s is a directory: %w", path, pkgerrors.ErrConfig)
	}
	if info.Size() == 0 {
		logger.Warn("Removing zero-length cache file", fields, logger.Fields{"path": path})
		return retry.Retry, true, c.discard(path, fmt.Errorf("%s is empty: %w", path, pkgerrors.ErrIntegrity))
	}

	if !c.verify {
		logger.Warn("Hash verification disabled, accepting cached file", fields, logger.Fields{"path": path})
		return retry.Success, true, nil
	}
	if expectedHash == "" {
		logger.Warn("No hash configured, accepting cached file unverified", fields, logger.Fields{"path": path})
		return retry.Success, true, nil
	}

	got, ok, hashErr := checksum.Verify(algorithm, path, expectedHash)
	if hashErr != nil {
		return retry.Fail, true, hashErr
	}
	if !ok {
		logger.Warn("Removing cache file with mismatching hash", fields, logger.Fields{
			"path":     path,
			"expected": expectedHash,
			"actual":   got,
		})
		return retry.Retry, true, c.discard(path, &HashMismatchError{
			Path:      path,
			Algorithm: model.ArchiveDescription{HashAlgorithm: algorithm}.Algorithm(),
			Expected:  expectedHash,
			Actual:    got,
		})
	}
	logger.Debug("Cache hit", fields, logger.Fields{"path": path})
	return retry.Success, true, nil
}

func (c *Cache) discard(path string, cause error) error {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("%v; removing it failed: %v: %w", cause, err, pkgerrors.ErrIntegrity)
	}
	return cause
}

// HashMismatchError reports a cached file whose digest differs from the expected one.
type HashMismatchError struct {
	Path      string
	Algorithm string
	Expected  string
	Actual    string
}

func (e *HashMismatchError) Error() string {
	return fmt.Sprintf("%s hash mismatch for %s: expected %s, got %s", e.Algorithm, e.Path, e.Expected, e.Actual)
}

// Unwrap returns ErrIntegrity.
func (e *HashMismatchError) Unwrap() error {
	return pkgerrors.ErrIntegrity
}
