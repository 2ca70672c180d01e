// Package fsutil provides file system helpers shared by the cache, the extractor and
// the uninstaller.
package fsutil

import (
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// EnsureDir creates a directory and all necessary parents with DirModeDefault.
func EnsureDir(path string) error {
	return os.MkdirAll(path, DirModeDefault)
}

// EnsureFileDir creates the parent directory of a file path if it doesn't exist.
func EnsureFileDir(filePath string) error {
	return EnsureDir(filepath.Dir(filePath))
}

// IsWithin reports whether path lies strictly below root.
func IsWithin(root, path string) bool {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return false
	}
	return rel != "." && rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

// PruneEmptyDirs removes every directory in dirs that is empty, deepest path first,
// then retries with the parents of the directories it removed until a pass removes
// nothing. Directories at or above root are never touched. It returns the removed
// directories in removal order.
func PruneEmptyDirs(root string, dirs []string) []string {
	root = filepath.Clean(root)
	pending := make(map[string]struct{}, len(dirs))
	for _, d := range dirs {
		d = filepath.Clean(d)
		if IsWithin(root, d) {
			pending[d] = struct{}{}
		}
	}

	var removed []string
	gone := make(map[string]struct{})
	for len(pending) > 0 {
		batch := make([]string, 0, len(pending))
		for d := range pending {
			batch = append(batch, d)
		}
		sort.Slice(batch, func(i, j int) bool {
			if len(batch[i]) != len(batch[j]) {
				return len(batch[i]) > len(batch[j])
			}
			return batch[i] < batch[j]
		})

		next := make(map[string]struct{})
		for _, d := range batch {
			if !isEmptyDir(d) {
				continue
			}
			if err := os.Remove(d); err != nil {
				continue
			}
			removed = append(removed, d)
			gone[d] = struct{}{}
			if parent := filepath.Dir(d); IsWithin(root, parent) {
				next[parent] = struct{}{}
			}
		}
		for d := range gone {
			delete(next, d)
		}
		pending = next
	}
	return removed
}

func isEmptyDir(dir string) bool {
	info, err := os.Lstat(dir)
	if err != nil || !info.IsDir() {
		return false
	}
	f, err := os.Open(dir)
	if err != nil {
		return false
	}
	defer func() { _ = f.Close() }()
	names, err := f.Readdirnames(1)
	return err != nil && len(names) == 0
}
