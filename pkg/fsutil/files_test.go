package fsutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMove(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "src.bin")
	dst := filepath.Join(dir, "nested", "dst.bin")
	require.NoError(t, os.WriteFile(src, []byte("payload"), FileModeDefault))

	require.NoError(t, Move(src, dst))

	_, err := os.Stat(src)
	assert.True(t, os.IsNotExist(err))
	got, err := os.ReadFile(dst)
	require.NoError(t, err)
	assert.Equal(t, "payload", string(got))
}

func TestMoveReplacesExisting(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "new")
	dst := filepath.Join(dir, "old")
	require.NoError(t, os.WriteFile(src, []byte("new"), FileModeDefault))
	require.NoError(t, os.WriteFile(dst, []byte("old"), FileModeDefault))

	require.NoError(t, Move(src, dst))

	got, err := os.ReadFile(dst)
	require.NoError(t, err)
	assert.Equal(t, "new", string(got))
}

func TestMoveErrors(t *testing.T) {
	assert.Error(t, Move("", "x"))
	assert.Error(t, Move(filepath.Join(t.TempDir(), "missing"), filepath.Join(t.TempDir(), "dst")))
}

func TestCopyKeepsPermissions(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "tool")
	dst := filepath.Join(dir, "tool.copy")
	require.NoError(t, os.WriteFile(src, []byte("#!/bin/sh\n"), FileModeExec))

	require.NoError(t, Copy(src, dst))

	info, err := os.Stat(dst)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(FileModeExec), info.Mode().Perm())
}

func TestCreateFileExclusive(t *testing.T) {
	path := filepath.Join(t.TempDir(), "once")
	f, err := CreateFileExclusive(path, FileModeDefault)
	require.NoError(t, err)
	require.NoError(t, f.Close())

	_, err = CreateFileExclusive(path, FileModeDefault)
	assert.True(t, os.IsExist(err))
}
