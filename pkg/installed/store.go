// Package installed persists the record of what is installed in one install
// directory: a Dependencies tree keyed by package name.
package installed

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/glorpus-work/depot/pkg/errors"
	"github.com/glorpus-work/depot/pkg/fsutil"
	"github.com/glorpus-work/depot/pkg/model"
)

// FileName is the name of the installed-manifest file inside an install directory.
const FileName = ".depot-installed.json"

// FormatVersion is the schema version of the installed-manifest file.
const FormatVersion = "1"

// Store is the installed-manifest of one install directory. All mutations go
// through the store's lock, and Save writes the whole file atomically, so the
// store is the single writer of the file.
type Store struct {
	FormatVersion string             `json:"format_version"`
	LastUpdate    time.Time          `json:"last_update"`
	Dependencies  model.Dependencies `json:"dependencies"`

	path    string
	rwMutex sync.RWMutex
}

// NewStore creates an empty store backed by path.
func NewStore(path string) *Store {
	return &Store{
		FormatVersion: FormatVersion,
		LastUpdate:    time.Now(),
		Dependencies:  model.Dependencies{},
		path:          path,
	}
}

// PathFor returns the installed-manifest path of an install directory.
func PathFor(installDir string) string {
	return filepath.Join(installDir, FileName)
}

// Open loads the installed-manifest of installDir. A missing file yields an empty
// store.
func Open(installDir string) (*Store, error) {
	s := NewStore(PathFor(installDir))
	if err := s.Load(); err != nil {
		return nil, err
	}
	return s, nil
}

// Path returns the file backing the store.
func (s *Store) Path() string {
	return s.path
}

// Load replaces the in-memory state with the file contents.
func (s *Store) Load() error {
	cleanPath := filepath.Clean(s.path)
	if !filepath.IsAbs(cleanPath) {
		return fmt.Errorf("installed manifest path must be absolute: %s: %w", s.path, errors.ErrInvalidPath)
	}

	data, err := os.ReadFile(cleanPath)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read installed manifest: %w", err)
	}

	var onDisk struct {
		FormatVersion string             `json:"format_version"`
		LastUpdate    time.Time          `json:"last_update"`
		Dependencies  model.Dependencies `json:"dependencies"`
	}
	if err := json.Unmarshal(data, &onDisk); err != nil {
		return fmt.Errorf("failed to parse installed manifest %s: %v: %w", cleanPath, err, errors.ErrConfig)
	}
	if onDisk.FormatVersion != "" && onDisk.FormatVersion != FormatVersion {
		return fmt.Errorf("installed manifest %s has format version %q, expected %q: %w",
			cleanPath, onDisk.FormatVersion, FormatVersion, errors.ErrConfig)
	}

	s.rwMutex.Lock()
	defer s.rwMutex.Unlock()
	s.LastUpdate = onDisk.LastUpdate
	s.Dependencies = onDisk.Dependencies
	if s.Dependencies == nil {
		s.Dependencies = model.Dependencies{}
	}
	return nil
}

// Save writes the store to its file through a temporary file and a rename.
func (s *Store) Save() (err error) {
	cleanPath := filepath.Clean(s.path)
	if !filepath.IsAbs(cleanPath) {
		return fmt.Errorf("installed manifest path must be absolute: %s: %w", s.path, errors.ErrInvalidPath)
	}
	dir := filepath.Dir(cleanPath)
	if err := fsutil.EnsureDir(dir); err != nil {
		return fmt.Errorf("failed to create %s: %w", dir, err)
	}

	s.rwMutex.RLock()
	data, err := json.MarshalIndent(s, "", "  ")
	s.rwMutex.RUnlock()
	if err != nil {
		return fmt.Errorf("failed to marshal installed manifest: %w", err)
	}

	tmpFile, err := os.CreateTemp(dir, ".depot-installed-*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temporary file in %s: %w", dir, err)
	}
	tmpPath := tmpFile.Name()
	defer func() {
		if err != nil {
			_ = os.Remove(tmpPath)
		}
	}()

	if _, err := tmpFile.Write(data); err != nil {
		_ = tmpFile.Close()
		return fmt.Errorf("failed to write to temporary file: %w", err)
	}
	if err := tmpFile.Sync(); err != nil {
		_ = tmpFile.Close()
		return fmt.Errorf("failed to sync temporary file to disk: %w", err)
	}
	if err := tmpFile.Close(); err != nil {
		return fmt.Errorf("failed to close temporary file: %w", err)
	}
	if err := os.Rename(tmpPath, cleanPath); err != nil {
		return fmt.Errorf("failed to rename temporary file to %s: %w", cleanPath, err)
	}
	return nil
}

// Get returns a copy of the record for name, or nil.
func (s *Store) Get(name string) *model.MetadataDescription {
	s.rwMutex.RLock()
	defer s.rwMutex.RUnlock()
	return s.Dependencies[name].DeepCopy()
}

// Has reports whether name is installed.
func (s *Store) Has(name string) bool {
	s.rwMutex.RLock()
	defer s.rwMutex.RUnlock()
	_, ok := s.Dependencies[name]
	return ok
}

// Put records md under its package name, replacing any previous record.
func (s *Store) Put(md *model.MetadataDescription) error {
	name := md.Name()
	if name == "" {
		return fmt.Errorf("installed record has no package name: %w", errors.ErrConfig)
	}
	s.rwMutex.Lock()
	defer s.rwMutex.Unlock()
	s.Dependencies[name] = md.DeepCopy()
	s.LastUpdate = time.Now()
	return nil
}

// Remove drops the record for name and returns it. ok is false when name was not
// installed.
func (s *Store) Remove(name string) (md *model.MetadataDescription, ok bool) {
	s.rwMutex.Lock()
	defer s.rwMutex.Unlock()
	md, ok = s.Dependencies[name]
	if !ok {
		return nil, false
	}
	delete(s.Dependencies, name)
	s.LastUpdate = time.Now()
	return md, true
}

// Snapshot returns an independent copy of the installed tree.
func (s *Store) Snapshot() model.Dependencies {
	s.rwMutex.RLock()
	defer s.rwMutex.RUnlock()
	return s.Dependencies.DeepCopy()
}

// Filtered returns copies of the records whose name contains filter
// (case-insensitive), sorted by name. An empty filter matches everything.
func (s *Store) Filtered(filter string) []*model.MetadataDescription {
	s.rwMutex.RLock()
	defer s.rwMutex.RUnlock()

	filter = strings.ToLower(filter)
	var out []*model.MetadataDescription
	for _, name := range s.Dependencies.Names() {
		if filter == "" || strings.Contains(strings.ToLower(name), filter) {
			out = append(out, s.Dependencies[name].DeepCopy())
		}
	}
	return out
}
