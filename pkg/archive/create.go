package archive

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/mholt/archives"

	"github.com/glorpus-work/depot/pkg/fsutil"
)

// Create packs the contents of sourceDir (without the directory itself) into a
// new archive at archivePath. FormatUnknown selects the format from the
// archivePath extension.
func Create(ctx context.Context, sourceDir, archivePath string, format Format) error {
	if format == FormatUnknown {
		f, ok := FormatFromName(archivePath)
		if !ok {
			return fmt.Errorf("cannot infer archive format from %s", archivePath)
		}
		format = f
	}
	ar, err := archiver(format)
	if err != nil {
		return err
	}

	absolutePath, err := filepath.Abs(sourceDir)
	if err != nil {
		return fmt.Errorf("failed to get absolute path for source directory: %w", err)
	}
	files, err := archives.FilesFromDisk(ctx, nil, map[string]string{
		absolutePath + string(os.PathSeparator): "",
	})
	if err != nil {
		return fmt.Errorf("failed to read files from disk: %w", err)
	}

	if err := fsutil.EnsureFileDir(archivePath); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	file, err := os.Create(archivePath)
	if err != nil {
		return fmt.Errorf("failed to create output file %s: %w", archivePath, err)
	}
	if err := ar.Archive(ctx, file, files); err != nil {
		_ = file.Close()
		_ = os.Remove(archivePath)
		return fmt.Errorf("failed to create archive: %w", err)
	}
	if err := file.Sync(); err != nil {
		_ = file.Close()
		return fmt.Errorf("failed to sync archive: %w", err)
	}
	return file.Close()
}
