// Package checksum hashes files with a named algorithm taken from a registry.
package checksum

import (
	"crypto/md5"  //nolint:gosec // legacy archive hashes are md5
	"crypto/sha1" //nolint:gosec // accepted for legacy package descriptions
	"crypto/sha256"
	"crypto/sha512"
	"encoding/hex"
	"fmt"
	"hash"
	"io"
	"os"
	"sort"
	"strings"
	"sync"

	"github.com/glorpus-work/depot/pkg/errors"
	"github.com/glorpus-work/depot/pkg/model"
)

// Constructor creates a fresh hash for one algorithm.
type Constructor func() hash.Hash

var (
	registryMu sync.RWMutex
	registry   = map[string]Constructor{
		"md5":    md5.New,
		"sha1":   sha1.New,
		"sha224": sha256.New224,
		"sha256": sha256.New,
		"sha384": sha512.New384,
		"sha512": sha512.New,
	}
)

// Register adds or replaces an algorithm. Names are case-insensitive.
func Register(name string, ctor Constructor) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[strings.ToLower(name)] = ctor
}

// Algorithms returns the registered algorithm names, sorted.
func Algorithms() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// New returns a hash for algorithm; an empty name means md5.
func New(algorithm string) (hash.Hash, error) {
	if algorithm == "" {
		algorithm = model.DefaultHashAlgorithm
	}
	registryMu.RLock()
	ctor, ok := registry[strings.ToLower(algorithm)]
	registryMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("unknown hash algorithm %q (known: %s): %w",
			algorithm, strings.Join(Algorithms(), ", "), errors.ErrConfig)
	}
	return ctor(), nil
}

// Reader returns the hex digest of everything read from r.
func Reader(algorithm string, r io.Reader) (string, error) {
	h, err := New(algorithm)
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(h, r); err != nil {
		return "", errors.Wrap(err, "hashing")
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// File returns the hex digest of the file at path.
func File(algorithm, path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", errors.Wrap(err, "open for checksum")
	}
	defer func() { _ = f.Close() }()
	return Reader(algorithm, f)
}

// Verify hashes the file at path and reports whether the digest matches want.
// The computed digest is returned either way.
func Verify(algorithm, path, want string) (got string, ok bool, err error) {
	got, err = File(algorithm, path)
	if err != nil {
		return "", false, err
	}
	return got, Equal(got, want), nil
}

// Equal compares two hex digests ignoring case and surrounding whitespace.
func Equal(a, b string) bool {
	return normalizeHex(a) == normalizeHex(b)
}

func normalizeHex(s string) string { return strings.ToLower(strings.TrimSpace(s)) }
