package cache_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/glorpus-work/depot/pkg/cache"
	pkgerrors "github.com/glorpus-work/depot/pkg/errors"
	"github.com/glorpus-work/depot/pkg/retry"
	"github.com/glorpus-work/depot/test/testutil"
)

const archiveName = "bogus-0.1-linux64-1.tar.gz"

type fixture struct {
	server   *testutil.ArchiveServer
	cache    *cache.Cache
	cacheDir string
	hash     string
}

func newFixture(t *testing.T, opts ...cache.Option) *fixture {
	t.Helper()
	serveDir := t.TempDir()
	testutil.WriteTree(t, serveDir, map[string]string{archiveName: "archive payload"})
	cacheDir := filepath.Join(t.TempDir(), "cache")
	return &fixture{
		server:   testutil.NewArchiveServer(t, serveDir),
		cache:    cache.New(cacheDir, opts...),
		cacheDir: cacheDir,
		hash:     testutil.MD5File(t, filepath.Join(serveDir, archiveName)),
	}
}

func (f *fixture) seed(t *testing.T, content string) {
	t.Helper()
	testutil.WriteTree(t, f.cacheDir, map[string]string{archiveName: content})
}

func (f *fixture) fetch(hash string) (string, error) {
	return f.cache.Fetch(context.Background(), "bogus", f.server.FileURL(archiveName), "md5", hash)
}

func TestFetchDownloadsOnMiss(t *testing.T) {
	f := newFixture(t)

	path, err := f.fetch(f.hash)
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(f.cacheDir, archiveName), path)
	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "archive payload", string(content))
	assert.Equal(t, 1, f.server.Hits(archiveName))
}

func TestFetchValidCacheSkipsNetwork(t *testing.T) {
	f := newFixture(t)
	f.seed(t, "archive payload")

	_, err := f.fetch(f.hash)
	require.NoError(t, err)
	_, err = f.fetch(f.hash)
	require.NoError(t, err)

	assert.Equal(t, 0, f.server.TotalHits())
}

func TestFetchSelfHealing(t *testing.T) {
	tests := []struct {
		name   string
		cached string
	}{
		{name: "zero length file", cached: ""},
		{name: "hash mismatch", cached: "corrupted"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			f.seed(t, tt.cached)

			path, err := f.fetch(f.hash)
			require.NoError(t, err)

			content, err := os.ReadFile(path)
			require.NoError(t, err)
			assert.Equal(t, "archive payload", string(content))
			assert.Equal(t, 1, f.server.Hits(archiveName))
		})
	}
}

func TestFetchPersistentMismatchUsesThreeAttempts(t *testing.T) {
	f := newFixture(t)

	_, err := f.fetch("00000000000000000000000000000000")
	require.Error(t, err)

	assert.ErrorIs(t, err, pkgerrors.ErrIntegrity)
	var mismatch *cache.HashMismatchError
	require.True(t, errors.As(err, &mismatch))
	assert.Equal(t, f.hash, mismatch.Actual)
	var exhausted *retry.ExhaustedError
	require.True(t, errors.As(err, &exhausted))
	assert.Equal(t, 3, exhausted.Attempts)
	assert.Equal(t, 3, f.server.Hits(archiveName))
	assert.NoFileExists(t, filepath.Join(f.cacheDir, archiveName))
}

func TestFetchServerErrors(t *testing.T) {
	t.Run("transient", func(t *testing.T) {
		f := newFixture(t)
		f.server.FailNext(archiveName, 2)

		_, err := f.fetch(f.hash)
		require.NoError(t, err)
		assert.Equal(t, 3, f.server.Hits(archiveName))
	})

	t.Run("persistent", func(t *testing.T) {
		f := newFixture(t)
		f.server.FailNext(archiveName, 10)

		_, err := f.fetch(f.hash)
		require.ErrorIs(t, err, pkgerrors.ErrDownload)
		assert.Equal(t, 3, f.server.Hits(archiveName))
		assert.NoFileExists(t, filepath.Join(f.cacheDir, archiveName))
	})
}

func TestFetchWithoutHash(t *testing.T) {
	f := newFixture(t)
	f.seed(t, "anything goes")

	path, err := f.fetch("")
	require.NoError(t, err)

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "anything goes", string(content))
	assert.Equal(t, 0, f.server.TotalHits())
}

func TestFetchVerificationDisabled(t *testing.T) {
	f := newFixture(t, cache.WithVerification(false))
	f.seed(t, "corrupted")

	_, err := f.fetch(f.hash)
	require.NoError(t, err)
	assert.Equal(t, 0, f.server.TotalHits())
}

func TestFetchUnknownAlgorithm(t *testing.T) {
	f := newFixture(t)

	_, err := f.cache.Fetch(context.Background(), "bogus", f.server.FileURL(archiveName), "crc64", f.hash)

	require.ErrorIs(t, err, pkgerrors.ErrConfig)
	assert.Equal(t, 0, f.server.TotalHits())
}

func TestFetchCustomBudget(t *testing.T) {
	f := newFixture(t, cache.WithRetryPolicy(retry.Policy{Attempts: 1}))

	_, err := f.fetch("ffffffffffffffffffffffffffffffff")
	require.ErrorIs(t, err, pkgerrors.ErrIntegrity)
	assert.Equal(t, 1, f.server.Hits(archiveName))
}

func TestPath(t *testing.T) {
	c := cache.New("/var/cache/depot")

	path, err := c.Path("https://example.com/dist/bogus-0.1-linux64-1.zip?token=abc")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join("/var/cache/depot", "bogus-0.1-linux64-1.zip"), path)

	_, err = c.Path("https://example.com/")
	assert.ErrorIs(t, err, pkgerrors.ErrConfig)
}

func TestInfoAndClean(t *testing.T) {
	dir := t.TempDir()
	testutil.WriteTree(t, dir, map[string]string{
		"a.tar.gz":               "12345",
		"b.zip":                  "123",
		".c.tar.gz.1234.part":    "1",
		"nested/ignored.tar.bz2": "ignored",
	})
	c := cache.New(dir)

	info, err := c.Info()
	require.NoError(t, err)
	assert.Equal(t, dir, info.Directory)
	assert.Equal(t, 2, info.ArchiveFiles)
	assert.Equal(t, int64(8), info.ArchiveSize)
	assert.Equal(t, 1, info.PartialFiles)
	assert.Equal(t, int64(9), info.TotalSize)

	result, err := c.Clean(cache.CleanOptions{PartialOnly: true})
	require.NoError(t, err)
	assert.Equal(t, 1, result.Files)
	assert.FileExists(t, filepath.Join(dir, "a.tar.gz"))

	result, err = c.Clean(cache.CleanOptions{OlderThan: time.Hour})
	require.NoError(t, err)
	assert.Equal(t, 0, result.Files)

	result, err = c.Clean(cache.CleanOptions{})
	require.NoError(t, err)
	assert.Equal(t, 2, result.Files)
	assert.Equal(t, int64(8), result.TotalFreed)
	assert.FileExists(t, filepath.Join(dir, "nested", "ignored.tar.bz2"))
}

func TestInfoMissingDirectory(t *testing.T) {
	c := cache.New(filepath.Join(t.TempDir(), "missing"))
	info, err := c.Info()
	require.NoError(t, err)
	assert.Equal(t, int64(0), info.TotalSize)
}
