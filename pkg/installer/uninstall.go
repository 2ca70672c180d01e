package installer

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/hashicorp/go-multierror"

	"github.com/glorpus-work/depot/internal/logger"
	"github.com/glorpus-work/depot/pkg/fsutil"
	"github.com/glorpus-work/depot/pkg/hooks"
	"github.com/glorpus-work/depot/pkg/model"
)

// Uninstall removes the named packages. Names that are not installed are skipped.
func (i *Installer) Uninstall(ctx context.Context, names []string) error {
	i.mu.Lock()
	defer i.mu.Unlock()

	var result *multierror.Error
	for _, name := range names {
		rec := i.store.Get(name)
		if rec == nil {
			logger.Info("Package is not installed", logger.Fields{"package": name})
			continue
		}
		emit(i.events, Event{Phase: "uninstalling", Package: name, Msg: rec.PackageVersion()})
		if err := i.uninstallRecord(ctx, name, rec); err != nil {
			emit(i.events, Event{Phase: "error", Package: name, Msg: err.Error()})
			result = multierror.Append(result, err)
			continue
		}
		logger.Success("Uninstalled package", logger.Fields{"package": name, "version": rec.PackageVersion()})
	}
	return result.ErrorOrNil()
}

// uninstallRecord runs the pre-uninstall hook, deletes the files of rec, prunes the
// directories left empty and drops the record stored under name. Callers hold i.mu.
func (i *Installer) uninstallRecord(ctx context.Context, name string, rec *model.MetadataDescription) error {
	fields := logger.Fields{"package": name}

	var script string
	if rec.PackageDescription != nil {
		script = rec.PackageDescription.Hooks[string(hooks.PreUninstall)]
	}
	hc := hooks.HookContext{
		PackageName:    name,
		PackageVersion: rec.PackageVersion(),
		InstallDir:     i.installDir,
		Files:          rec.Manifest,
	}
	if err := i.hooks.Execute(ctx, hooks.PreUninstall, script, hc); err != nil {
		return fmt.Errorf("uninstall of %s aborted: %w", name, err)
	}

	parents := make(map[string]struct{})
	var result *multierror.Error
	for _, rel := range rec.Manifest {
		target := filepath.Join(i.installDir, filepath.FromSlash(rel))
		if !fsutil.IsWithin(i.installDir, target) {
			logger.Warn("Skipping manifest entry outside the install directory", fields, logger.Fields{"path": rel})
			continue
		}
		parents[filepath.Dir(target)] = struct{}{}
		if err := os.Remove(target); err != nil {
			if os.IsNotExist(err) {
				logger.Warn("Installed file is already missing", fields, logger.Fields{"path": rel})
				continue
			}
			result = multierror.Append(result, fmt.Errorf("failed to remove %s: %w", target, err))
		}
	}
	if err := result.ErrorOrNil(); err != nil {
		return fmt.Errorf("uninstall of %s incomplete: %w", name, err)
	}

	dirs := make([]string, 0, len(parents))
	for d := range parents {
		dirs = append(dirs, d)
	}
	for _, d := range fsutil.PruneEmptyDirs(i.installDir, dirs) {
		logger.Debug("Removed empty directory", fields, logger.Fields{"path": d})
	}

	i.store.Remove(name)
	if err := i.store.Save(); err != nil {
		return fmt.Errorf("failed to save installed manifest: %w", err)
	}
	return nil
}
