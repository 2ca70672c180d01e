package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestArchivesMatch(t *testing.T) {
	base := ArchiveDescription{URL: "https://example.com/bogus-0.1-linux64-1.tar.gz", Hash: "abc123", HashAlgorithm: "md5"}

	tests := []struct {
		name  string
		other ArchiveDescription
		want  bool
	}{
		{"identical", base, true},
		{"algorithm defaulted to md5", ArchiveDescription{URL: base.URL, Hash: base.Hash}, true},
		{"algorithm case", ArchiveDescription{URL: base.URL, Hash: base.Hash, HashAlgorithm: "MD5"}, true},
		{"hash case", ArchiveDescription{URL: base.URL, Hash: "ABC123", HashAlgorithm: "md5"}, true},
		{"format is ignored", ArchiveDescription{URL: base.URL, Hash: base.Hash, Format: "zip"}, true},
		{"different hash", ArchiveDescription{URL: base.URL, Hash: "def456", HashAlgorithm: "md5"}, false},
		{"different url", ArchiveDescription{URL: "https://example.com/bogus-0.2-linux64-1.tar.gz", Hash: base.Hash}, false},
		{"different algorithm", ArchiveDescription{URL: base.URL, Hash: base.Hash, HashAlgorithm: "sha256"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ArchivesMatch(base, tt.other))
			assert.Equal(t, tt.want, ArchivesMatch(tt.other, base), "match must be symmetric")
		})
	}
}

func TestURLBasename(t *testing.T) {
	tests := map[string]string{
		"https://example.com/a/b/pkg.tar.gz":         "pkg.tar.gz",
		"https://example.com/a/pkg.zip?token=secret": "pkg.zip",
		"https://example.com/a/pkg.zip#frag":         "pkg.zip",
		`C:\deps\pkg.zip`:                            "pkg.zip",
		"/tmp/local.tar.bz2":                         "local.tar.bz2",
		"":                                           "",
	}
	for in, want := range tests {
		assert.Equal(t, want, URLBasename(in), in)
	}
}
