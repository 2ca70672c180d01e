package fsutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsWithin(t *testing.T) {
	root := filepath.Join("srv", "install")
	tests := []struct {
		path string
		want bool
	}{
		{filepath.Join(root, "lib"), true},
		{filepath.Join(root, "lib", "x"), true},
		{root, false},
		{"srv", false},
		{filepath.Join("srv", "installed"), false},
		{filepath.Join(root, "..", "other"), false},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			assert.Equal(t, tt.want, IsWithin(root, tt.path))
		})
	}
}

func TestPruneEmptyDirs(t *testing.T) {
	root := t.TempDir()
	deep := filepath.Join(root, "include", "bogus", "detail")
	kept := filepath.Join(root, "lib")
	require.NoError(t, os.MkdirAll(deep, DirModeDefault))
	require.NoError(t, os.MkdirAll(kept, DirModeDefault))
	require.NoError(t, os.WriteFile(filepath.Join(kept, "other.lib"), nil, FileModeDefault))

	// Only the leaf and an unrelated non-empty directory are named; the parents of the
	// leaf are discovered as they empty out.
	removed := PruneEmptyDirs(root, []string{deep, kept})

	assert.Equal(t, []string{
		deep,
		filepath.Join(root, "include", "bogus"),
		filepath.Join(root, "include"),
	}, removed)
	assert.DirExists(t, kept)
	assert.DirExists(t, root)
}

func TestPruneEmptyDirsNeverLeavesRoot(t *testing.T) {
	parent := t.TempDir()
	root := filepath.Join(parent, "install")
	require.NoError(t, os.MkdirAll(root, DirModeDefault))

	removed := PruneEmptyDirs(root, []string{root, parent})

	assert.Empty(t, removed)
	assert.DirExists(t, root)
}

func TestPruneEmptyDirsMissing(t *testing.T) {
	root := t.TempDir()
	assert.Empty(t, PruneEmptyDirs(root, []string{filepath.Join(root, "gone")}))
}
