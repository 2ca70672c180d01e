package checksum

import (
	"crypto/sha256"
	"errors"
	"hash"
	"hash/crc32"
	"os"
	"path/filepath"
	"strings"
	"testing"

	pkgerrors "github.com/glorpus-work/depot/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "payload.bin")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestFile(t *testing.T) {
	path := writeFile(t, "hello")

	tests := []struct {
		algorithm string
		want      string
	}{
		{"", "5d41402abc4b2a76b9719d911017c592"},
		{"md5", "5d41402abc4b2a76b9719d911017c592"},
		{"MD5", "5d41402abc4b2a76b9719d911017c592"},
		{"sha1", "aaf4c61ddcc5e8a2dabede0f3b482cd9aea9434d"},
		{"sha256", "2cf24dba5fb0a30e26e83b2ac5b9e29e1b161e5c1fa7425e73043362938b9824"},
	}
	for _, tt := range tests {
		t.Run(tt.algorithm, func(t *testing.T) {
			got, err := File(tt.algorithm, path)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestVerify(t *testing.T) {
	path := writeFile(t, "hello")

	got, ok, err := Verify("md5", path, "  5D41402ABC4B2A76B9719D911017C592 ")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "5d41402abc4b2a76b9719d911017c592", got)

	got, ok, err = Verify("md5", path, "00000000000000000000000000000000")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, "5d41402abc4b2a76b9719d911017c592", got)

	_, _, err = Verify("md5", filepath.Join(t.TempDir(), "missing"), "x")
	assert.Error(t, err)
}

func TestUnknownAlgorithm(t *testing.T) {
	_, err := New("whirlpool")
	require.Error(t, err)
	assert.True(t, errors.Is(err, pkgerrors.ErrConfig))
	assert.Contains(t, err.Error(), "sha256")
}

func TestRegister(t *testing.T) {
	Register("CRC32", func() hash.Hash { return crc32.NewIEEE() })
	assert.Contains(t, Algorithms(), "crc32")

	got, err := Reader("crc32", strings.NewReader("hello"))
	require.NoError(t, err)
	assert.Equal(t, "3610a686", got)

	h, err := New("sha256")
	require.NoError(t, err)
	assert.Equal(t, sha256.Size, h.Size())
}

func TestEqual(t *testing.T) {
	assert.True(t, Equal("ABCDEF", " abcdef\n"))
	assert.False(t, Equal("abcdef", "abcdee"))
}
