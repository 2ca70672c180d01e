// Package testutil provides helpers shared by package tests: an HTTP server that
// serves archives from a directory and counts requests, and file tree builders.
package testutil

import (
	"crypto/md5" //nolint:gosec // fixtures use the default package hash
	"encoding/hex"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
)

// ArchiveServer serves the files of a directory over HTTP.
type ArchiveServer struct {
	Server *httptest.Server
	URL    string
	Dir    string

	mu       sync.Mutex
	hits     map[string]int
	failures map[string]int
}

// NewArchiveServer starts a server for dir that is shut down when the test ends.
func NewArchiveServer(t *testing.T, dir string) *ArchiveServer {
	t.Helper()
	s := &ArchiveServer{
		Dir:      dir,
		hits:     make(map[string]int),
		failures: make(map[string]int),
	}
	files := http.FileServer(http.Dir(dir))
	s.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		name := strings.TrimPrefix(r.URL.Path, "/")
		s.mu.Lock()
		s.hits[name]++
		fail := s.failures[name] > 0
		if fail {
			s.failures[name]--
		}
		s.mu.Unlock()
		if fail {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		files.ServeHTTP(w, r)
	}))
	s.URL = s.Server.URL
	t.Cleanup(s.Server.Close)
	return s
}

// FileURL returns the URL under which name is served.
func (s *ArchiveServer) FileURL(name string) string {
	return s.URL + "/" + name
}

// Hits returns how many requests were made for name.
func (s *ArchiveServer) Hits(name string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hits[name]
}

// TotalHits returns the number of requests served.
func (s *ArchiveServer) TotalHits() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	total := 0
	for _, n := range s.hits {
		total += n
	}
	return total
}

// FailNext makes the next n requests for name answer 500.
func (s *ArchiveServer) FailNext(name string, n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[name] = n
}

// WriteTree creates files below root from a map of slash-separated relative paths
// to contents.
func WriteTree(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for rel, content := range files {
		path := filepath.Join(root, filepath.FromSlash(rel))
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatalf("failed to create directory for %s: %v", rel, err)
		}
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			t.Fatalf("failed to write %s: %v", rel, err)
		}
	}
}

// MD5File returns the hex md5 digest of the file at path.
func MD5File(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read %s: %v", path, err)
	}
	sum := md5.Sum(data) //nolint:gosec // fixtures use the default package hash
	return hex.EncodeToString(sum[:])
}
