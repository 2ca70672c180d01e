// Package archive inspects, extracts and creates package archives
// (tar.gz, tar.bz2, tar.zst and zip).
package archive

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"strings"

	"github.com/mholt/archives"

	pkgerrors "github.com/glorpus-work/depot/pkg/errors"
)

// MetadataEntryName is the reserved archive member holding the embedded package
// metadata. It is never extracted.
const MetadataEntryName = "depot.json"

// Entry describes one archive member.
type Entry struct {
	Name  string
	IsDir bool
	Size  int64
	Mode  fs.FileMode
}

// errStop ends a walk early without reporting an error.
var errStop = errors.New("stop walking archive")

// memberFunc is called with the sanitized member name; root entries are skipped.
type memberFunc func(ctx context.Context, name string, f archives.FileInfo) error

// walk visits every member of the archive at archivePath. Errors returned by fn are
// passed through unchanged; decoding failures are reported as ErrFormat.
func walk(ctx context.Context, archivePath string, fn memberFunc) error {
	format, err := DetectType(archivePath)
	if err != nil {
		return err
	}
	ex, err := extractor(format)
	if err != nil {
		return err
	}

	file, err := os.Open(archivePath)
	if err != nil {
		return pkgerrors.Wrapf(err, "failed to open archive %s", archivePath)
	}
	defer func() { _ = file.Close() }()

	var handlerErr error
	err = ex.Extract(ctx, file, func(ctx context.Context, f archives.FileInfo) error {
		name, err := cleanName(f.NameInArchive)
		if err == nil && name != "" {
			err = fn(ctx, name, f)
		}
		if err != nil {
			handlerErr = err
		}
		return err
	})
	switch {
	case handlerErr != nil:
		if errors.Is(handlerErr, errStop) {
			return nil
		}
		return handlerErr
	case err != nil && ctx.Err() != nil:
		return ctx.Err()
	case err != nil:
		return fmt.Errorf("failed to read %s archive %s: %v: %w", format, archivePath, err, pkgerrors.ErrFormat)
	}
	return nil
}

// cleanName normalizes a member name to a slash-separated relative path. The
// archive root yields "". Names that escape the archive root are ErrFormat.
func cleanName(name string) (string, error) {
	n := strings.ReplaceAll(name, "\\", "/")
	if strings.HasPrefix(n, "/") || (len(n) > 1 && n[1] == ':') {
		return "", fmt.Errorf("absolute member path %q: %w", name, pkgerrors.ErrFormat)
	}
	n = path.Clean(n)
	if n == "." {
		return "", nil
	}
	if n == ".." || strings.HasPrefix(n, "../") {
		return "", fmt.Errorf("member path %q escapes the archive root: %w", name, pkgerrors.ErrFormat)
	}
	return n, nil
}

// List enumerates the members of an archive without extracting it.
func List(ctx context.Context, archivePath string) ([]Entry, error) {
	var entries []Entry
	err := walk(ctx, archivePath, func(_ context.Context, name string, f archives.FileInfo) error {
		entries = append(entries, Entry{
			Name:  name,
			IsDir: f.IsDir(),
			Size:  f.Size(),
			Mode:  f.Mode(),
		})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return entries, nil
}

// Contains reports whether the archive has a member called name.
func Contains(ctx context.Context, archivePath, name string) (bool, error) {
	want, err := cleanName(name)
	if err != nil {
		return false, err
	}
	found := false
	err = walk(ctx, archivePath, func(_ context.Context, member string, _ archives.FileInfo) error {
		if member == want {
			found = true
			return errStop
		}
		return nil
	})
	return found, err
}

// ReadEntry returns the contents of a single member. found is false, with a nil
// error, when the archive has no such member. The archive is not modified.
func ReadEntry(ctx context.Context, archivePath, name string) (rc io.ReadCloser, found bool, err error) {
	want, err := cleanName(name)
	if err != nil {
		return nil, false, err
	}

	var buf bytes.Buffer
	err = walk(ctx, archivePath, func(_ context.Context, member string, f archives.FileInfo) error {
		if member != want || f.IsDir() {
			return nil
		}
		src, err := f.Open()
		if err != nil {
			return fmt.Errorf("failed to open member %s: %v: %w", member, err, pkgerrors.ErrFormat)
		}
		defer func() { _ = src.Close() }()
		if _, err := io.Copy(&buf, src); err != nil {
			return fmt.Errorf("failed to read member %s: %v: %w", member, err, pkgerrors.ErrFormat)
		}
		found = true
		return errStop
	})
	if err != nil {
		return nil, false, err
	}
	if !found {
		return nil, false, nil
	}
	return io.NopCloser(&buf), true, nil
}
