package archive

import (
	"archive/tar"
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"sort"

	"github.com/mholt/archives"

	"github.com/glorpus-work/depot/internal/logger"
	pkgerrors "github.com/glorpus-work/depot/pkg/errors"
	"github.com/glorpus-work/depot/pkg/fsutil"
)

// Extract unpacks the archive into dir and returns the slash-separated relative
// paths of the non-directory members it wrote, in archive order.
//
// Members named in exclude, and MetadataEntryName, are skipped. Before writing
// anything Extract checks every remaining member against dir; if any target is
// already occupied it returns a *errors.PathConflictError listing all of them and
// leaves dir untouched. If extraction fails part way, every file and directory
// created by this call is removed again.
func Extract(ctx context.Context, archivePath, dir string, exclude []string) ([]string, error) {
	skip := skipSet(exclude)

	entries, err := List(ctx, archivePath)
	if err != nil {
		return nil, err
	}
	if conflicts := findConflicts(entries, dir, skip); len(conflicts) > 0 {
		return nil, pkgerrors.NewPathConflictError(dir, conflicts)
	}

	x := &extraction{dir: dir, skip: skip}
	if err := x.mkdirAll(dir); err != nil {
		return nil, pkgerrors.Wrapf(err, "failed to create install directory %s", dir)
	}
	if err := walk(ctx, archivePath, x.handle); err != nil {
		x.rollback()
		return nil, err
	}
	logger.Debug("Extracted archive", logger.Fields{"archive": archivePath, "dir": dir, "files": len(x.written)})
	return x.written, nil
}

// Conflicts reports the members of the archive that Extract would refuse to write
// into dir, as a *errors.PathConflictError. Paths listed in ignore are treated as
// free, which lets a caller check an upgrade before removing the files of the
// version it replaces. It returns nil when extraction would not collide.
func Conflicts(ctx context.Context, archivePath, dir string, exclude, ignore []string) error {
	skip := skipSet(exclude)
	free := make(map[string]bool, len(ignore))
	for _, name := range ignore {
		if clean, err := cleanName(name); err == nil && clean != "" {
			free[clean] = true
		}
	}

	entries, err := List(ctx, archivePath)
	if err != nil {
		return err
	}
	var conflicts []string
	for _, name := range findConflicts(entries, dir, skip) {
		if !free[name] {
			conflicts = append(conflicts, name)
		}
	}
	if len(conflicts) > 0 {
		return pkgerrors.NewPathConflictError(dir, conflicts)
	}
	return nil
}

func skipSet(exclude []string) map[string]bool {
	skip := map[string]bool{MetadataEntryName: true}
	for _, e := range exclude {
		if name, err := cleanName(e); err == nil && name != "" {
			skip[name] = true
		}
	}
	return skip
}

// findConflicts returns the members whose target path is already occupied by
// something extraction would have to overwrite.
func findConflicts(entries []Entry, dir string, skip map[string]bool) []string {
	var conflicts []string
	for _, e := range entries {
		if skip[e.Name] {
			continue
		}
		info, err := os.Lstat(filepath.Join(dir, filepath.FromSlash(e.Name)))
		if err != nil {
			continue
		}
		if e.IsDir && info.IsDir() {
			continue
		}
		conflicts = append(conflicts, e.Name)
	}
	sort.Strings(conflicts)
	return conflicts
}

type extraction struct {
	dir  string
	skip map[string]bool

	written      []string
	createdFiles []string
	createdDirs  []string
}

func (x *extraction) handle(ctx context.Context, name string, f archives.FileInfo) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if x.skip[name] {
		return nil
	}
	target := filepath.Join(x.dir, filepath.FromSlash(name))

	if f.IsDir() {
		return x.mkdirAll(target)
	}
	if err := x.mkdirAll(filepath.Dir(target)); err != nil {
		return err
	}

	var err error
	switch {
	case f.Mode()&os.ModeSymlink != 0:
		err = x.writeSymlink(name, target, f.LinkTarget)
	case isHardLink(f):
		err = x.writeHardLink(name, target, f.LinkTarget)
	case f.Mode().IsRegular():
		err = x.writeFile(name, target, f)
	default:
		logger.Warn("Skipping unsupported archive member", logger.Fields{"member": name, "mode": f.Mode().String()})
		return nil
	}
	if err != nil {
		return err
	}
	x.written = append(x.written, name)
	return nil
}

func (x *extraction) writeFile(name, target string, f archives.FileInfo) error {
	src, err := f.Open()
	if err != nil {
		return fmt.Errorf("failed to open member %s: %v: %w", name, err, pkgerrors.ErrFormat)
	}
	defer func() { _ = src.Close() }()

	perm := f.Mode().Perm()
	if perm == 0 {
		perm = fsutil.FileModeDefault
	}
	dst, err := fsutil.CreateFileExclusive(target, perm)
	if err != nil {
		return pkgerrors.Wrapf(err, "failed to create %s", target)
	}
	x.createdFiles = append(x.createdFiles, target)

	if _, err := io.Copy(dst, src); err != nil {
		_ = dst.Close()
		return fmt.Errorf("failed to extract %s: %v: %w", name, err, pkgerrors.ErrFormat)
	}
	if err := dst.Close(); err != nil {
		return pkgerrors.Wrapf(err, "failed to close %s", target)
	}
	if err := os.Chmod(target, perm); err != nil {
		return pkgerrors.Wrapf(err, "failed to set permissions for %s", target)
	}
	if mtime := f.ModTime(); !mtime.IsZero() {
		_ = os.Chtimes(target, mtime, mtime)
	}
	return nil
}

func (x *extraction) writeSymlink(name, target, linkTarget string) error {
	if linkTarget == "" || filepath.IsAbs(linkTarget) || path.IsAbs(linkTarget) {
		return fmt.Errorf("symlink %s has unsafe target %q: %w", name, linkTarget, pkgerrors.ErrFormat)
	}
	resolved := path.Join(path.Dir(name), filepath.ToSlash(linkTarget))
	if _, err := cleanName(resolved); err != nil {
		return fmt.Errorf("symlink %s points outside the install directory: %w", name, pkgerrors.ErrFormat)
	}
	if err := os.Symlink(linkTarget, target); err != nil {
		return pkgerrors.Wrapf(err, "failed to create symlink %s", target)
	}
	x.createdFiles = append(x.createdFiles, target)
	return nil
}

func (x *extraction) writeHardLink(name, target, linkTarget string) error {
	source, err := cleanName(linkTarget)
	if err != nil || source == "" {
		return fmt.Errorf("hard link %s has unsafe target %q: %w", name, linkTarget, pkgerrors.ErrFormat)
	}
	if err := os.Link(filepath.Join(x.dir, filepath.FromSlash(source)), target); err != nil {
		return pkgerrors.Wrapf(err, "failed to create hard link %s", target)
	}
	x.createdFiles = append(x.createdFiles, target)
	return nil
}

func isHardLink(f archives.FileInfo) bool {
	hdr, ok := f.Header.(*tar.Header)
	return ok && hdr.Typeflag == tar.TypeLink
}

// mkdirAll creates dir and any missing parents, remembering each directory it
// created.
func (x *extraction) mkdirAll(dir string) error {
	var missing []string
	for d := filepath.Clean(dir); ; d = filepath.Dir(d) {
		info, err := os.Lstat(d)
		if err == nil {
			if !info.IsDir() {
				return fmt.Errorf("%s exists and is not a directory: %w", d, pkgerrors.ErrConflict)
			}
			break
		}
		if !os.IsNotExist(err) {
			return pkgerrors.Wrapf(err, "failed to stat %s", d)
		}
		missing = append(missing, d)
		if parent := filepath.Dir(d); parent == d {
			break
		}
	}
	for i := len(missing) - 1; i >= 0; i-- {
		if err := os.Mkdir(missing[i], fsutil.DirModeDefault); err != nil && !os.IsExist(err) {
			return pkgerrors.Wrapf(err, "failed to create directory %s", missing[i])
		}
		x.createdDirs = append(x.createdDirs, missing[i])
	}
	return nil
}

// rollback removes what this extraction created: files first, then directories
// deepest first.
func (x *extraction) rollback() {
	for i := len(x.createdFiles) - 1; i >= 0; i-- {
		if err := os.Remove(x.createdFiles[i]); err != nil && !os.IsNotExist(err) {
			logger.Warn("Rollback could not remove file", logger.Fields{"path": x.createdFiles[i], "error": err.Error()})
		}
	}
	for i := len(x.createdDirs) - 1; i >= 0; i-- {
		_ = os.Remove(x.createdDirs[i])
	}
	x.written = nil
}
