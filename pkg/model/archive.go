package model

import (
	"path"
	"strings"
)

// DefaultHashAlgorithm is assumed when an archive states a hash but no algorithm.
const DefaultHashAlgorithm = "md5"

// ArchiveDescription locates and authenticates one downloadable archive.
type ArchiveDescription struct {
	URL           string `json:"url" yaml:"url"`
	Hash          string `json:"hash,omitempty" yaml:"hash,omitempty"`
	HashAlgorithm string `json:"hash_algorithm,omitempty" yaml:"hash_algorithm,omitempty"`
	Format        string `json:"format,omitempty" yaml:"format,omitempty"`
}

// Algorithm returns the hash algorithm, defaulted to md5.
func (a ArchiveDescription) Algorithm() string {
	if a.HashAlgorithm == "" {
		return DefaultHashAlgorithm
	}
	return strings.ToLower(a.HashAlgorithm)
}

// Basename returns the last path element of the archive URL.
func (a ArchiveDescription) Basename() string {
	return URLBasename(a.URL)
}

// ArchivesMatch reports whether two descriptors name the same bits: equal
// (defaulted) hash algorithms, equal hashes and equal URLs. This is the
// "up to date" test.
func ArchivesMatch(a, b ArchiveDescription) bool {
	return a.Algorithm() == b.Algorithm() &&
		strings.EqualFold(a.Hash, b.Hash) &&
		a.URL == b.URL
}

// URLBasename returns the final path element of a URL or file path, ignoring any
// query string or fragment.
func URLBasename(raw string) string {
	if i := strings.IndexAny(raw, "?#"); i >= 0 {
		raw = raw[:i]
	}
	raw = strings.ReplaceAll(raw, "\\", "/")
	raw = strings.TrimRight(raw, "/")
	if raw == "" {
		return ""
	}
	return path.Base(raw)
}
