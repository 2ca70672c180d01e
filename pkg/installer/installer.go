// Package installer drives the install and uninstall lifecycle of packages in one
// install directory: fetch, verify, derive metadata, check conflicts, extract and
// record.
package installer

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"

	"github.com/glorpus-work/depot/internal/logger"
	"github.com/glorpus-work/depot/pkg/archive"
	"github.com/glorpus-work/depot/pkg/checksum"
	"github.com/glorpus-work/depot/pkg/errors"
	"github.com/glorpus-work/depot/pkg/hooks"
	"github.com/glorpus-work/depot/pkg/installed"
	"github.com/glorpus-work/depot/pkg/model"
	"github.com/glorpus-work/depot/pkg/platform"
	"github.com/glorpus-work/depot/pkg/resolver"
)

// extractExcludes are archive members never written into the install directory.
var extractExcludes = []string{archive.MetadataEntryName, installed.FileName}

// DefaultConcurrency bounds the number of parallel prefetches.
const DefaultConcurrency = 4

// InstallOptions control a single install run.
type InstallOptions struct {
	// DryRun fetches, verifies and checks for conflicts, but changes nothing.
	DryRun bool
	// LocalOverrides maps a package name to a local archive used instead of the
	// configured URL.
	LocalOverrides map[string]string
	// VerifyHashes compares fetched archives against the configured hash. When false
	// any non-empty download is accepted with a warning.
	VerifyHashes bool
}

// Installer manages the packages of one install directory.
type Installer struct {
	installDir    string
	store         *installed.Store
	fetcher       Fetcher
	hooks         hooks.Executor
	platform      string
	configuration string
	concurrency   int
	events        Events

	// mu serializes every mutation of the install directory and the store.
	mu sync.Mutex
}

// Option configures an Installer.
type Option func(*Installer)

// WithStore uses an already loaded installed-manifest store.
func WithStore(s *installed.Store) Option {
	return func(i *Installer) { i.store = s }
}

// WithHookExecutor replaces the tengo hook executor.
func WithHookExecutor(e hooks.Executor) Option {
	return func(i *Installer) { i.hooks = e }
}

// WithPlatform selects the platform archives are resolved for.
func WithPlatform(name string) Option {
	return func(i *Installer) { i.platform = name }
}

// WithConfiguration sets the build configuration recorded for installs.
func WithConfiguration(c string) Option {
	return func(i *Installer) { i.configuration = c }
}

// WithConcurrency bounds parallel prefetches in Install.
func WithConcurrency(n int) Option {
	return func(i *Installer) { i.concurrency = n }
}

// WithEvents registers progress callbacks.
func WithEvents(e Events) Option {
	return func(i *Installer) { i.events = e }
}

// New creates an installer for installDir. Unless WithStore is given, the
// installed-manifest of installDir is loaded.
func New(installDir string, fetcher Fetcher, opts ...Option) (*Installer, error) {
	if installDir == "" {
		return nil, fmt.Errorf("install directory cannot be empty: %w", errors.ErrInvalidPath)
	}
	if fetcher == nil {
		return nil, fmt.Errorf("fetcher is not configured: %w", errors.ErrConfig)
	}
	abs, err := filepath.Abs(installDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve install directory %s: %w", installDir, err)
	}

	i := &Installer{
		installDir:  abs,
		fetcher:     fetcher,
		platform:    platform.CurrentName(),
		concurrency: DefaultConcurrency,
	}
	for _, opt := range opts {
		opt(i)
	}
	if i.hooks == nil {
		i.hooks = hooks.NewTengoExecutor()
	}
	if i.concurrency < 1 {
		i.concurrency = 1
	}
	if i.store == nil {
		s, err := installed.Open(abs)
		if err != nil {
			return nil, err
		}
		i.store = s
	}
	return i, nil
}

// InstallDir returns the absolute install directory.
func (i *Installer) InstallDir() string {
	return i.installDir
}

// Store returns the installed-manifest store.
func (i *Installer) Store() *installed.Store {
	return i.store
}

// source is where the archive of one package comes from.
type source struct {
	name     string
	pkg      *model.PackageDescription
	platform string
	archive  model.ArchiveDescription
	local    bool
}

// basename is the file name metadata is synthesized from.
func (s source) basename() string {
	return model.URLBasename(s.archive.URL)
}

// resolveSource validates pkg and picks its archive. A local override replaces the
// configured archive; its hash is computed from the file.
func (i *Installer) resolveSource(name string, pkg *model.PackageDescription, overrides map[string]string) (*source, error) {
	if pkg == nil {
		return nil, fmt.Errorf("%s: %w", name, errors.ErrUnknownPackage)
	}
	if pkg.Name != "" && pkg.Name != name {
		return nil, fmt.Errorf("package configured as %q is named %q: %w", name, pkg.Name, errors.ErrConfig)
	}
	if err := hooks.Validate(pkg.Hooks); err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}

	pd, matched, err := platform.Resolve(pkg, i.platform)
	if err != nil {
		return nil, err
	}
	if pd.Archive.Format != "" {
		if _, err := archive.ParseFormat(pd.Archive.Format); err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
	}
	src := &source{name: name, pkg: pkg, platform: matched, archive: pd.Archive}

	localPath, ok := overrides[name]
	if !ok || localPath == "" {
		if pd.Archive.URL == "" {
			return nil, fmt.Errorf("%s: no archive URL for platform %s: %w", name, matched, errors.ErrConfig)
		}
		return src, nil
	}

	abs, err := filepath.Abs(localPath)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve local archive %s: %w", localPath, err)
	}
	algorithm := pd.Archive.Algorithm()
	sum, err := checksum.File(algorithm, abs)
	if err != nil {
		return nil, fmt.Errorf("failed to hash local archive for %s: %w", name, err)
	}
	src.local = true
	src.archive = model.ArchiveDescription{
		URL:           abs,
		Hash:          sum,
		HashAlgorithm: algorithm,
		Format:        pd.Archive.Format,
	}
	return src, nil
}

// upToDate reports whether the installed record was made from exactly the archive
// src points at.
func (i *Installer) upToDate(src *source) bool {
	rec := i.store.Get(src.name)
	if rec == nil {
		return false
	}
	if src.local != (rec.InstallType == model.InstallTypeLocal) {
		return false
	}
	return model.ArchivesMatch(rec.Archive, src.archive)
}

// obtain returns a verified local file for src.
func (i *Installer) obtain(ctx context.Context, src *source, verify bool) (string, error) {
	if src.local {
		return src.archive.URL, nil
	}
	hash := src.archive.Hash
	if !verify {
		logger.Warn("Hash verification disabled", logger.Fields{"package": src.name})
		hash = ""
	} else if hash == "" {
		logger.Warn("No hash configured, archive will not be verified", logger.Fields{"package": src.name})
	}
	emit(i.events, Event{Phase: "fetching", Package: src.name, Msg: src.archive.URL})
	return i.fetcher.Fetch(ctx, src.name, src.archive.URL, src.archive.Algorithm(), hash)
}

// InstallOne installs or upgrades one package. An install whose configured archive
// already matches the installed record does nothing.
func (i *Installer) InstallOne(ctx context.Context, name string, pkg *model.PackageDescription, opts InstallOptions) error {
	src, err := i.resolveSource(name, pkg, opts.LocalOverrides)
	if err != nil {
		return err
	}
	return i.install(ctx, src, "", opts)
}

// install runs the lifecycle for src. When path is non-empty it is the already
// fetched archive.
func (i *Installer) install(ctx context.Context, src *source, path string, opts InstallOptions) error {
	fields := logger.Fields{"package": src.name}
	if i.upToDate(src) {
		logger.Info("Package is up to date", fields)
		emit(i.events, Event{Phase: "current", Package: src.name})
		return nil
	}

	if path == "" {
		var err error
		if path, err = i.obtain(ctx, src, opts.VerifyHashes); err != nil {
			return err
		}
	}

	md, err := deriveMetadata(ctx, path, src.basename())
	if err != nil {
		return fmt.Errorf("%s: %w", src.name, err)
	}
	if md.Name() != src.name {
		return fmt.Errorf("package configured as %q contains %q: %w", src.name, md.Name(), errors.ErrConfig)
	}
	completeRecord(md, src.pkg, src.platform, i.configuration)
	md.Archive = src.archive
	md.InstallDir = i.installDir
	md.InstallType = model.InstallTypePackage
	if src.local {
		md.InstallType = model.InstallTypeLocal
	}

	i.mu.Lock()
	defer i.mu.Unlock()

	old := i.store.Get(src.name)
	decision := NeedsInstall(md, old)
	if decision == Current {
		logger.Info("Package version is already installed", fields, logger.Fields{"version": md.PackageVersion()})
		emit(i.events, Event{Phase: "current", Package: src.name, Msg: md.PackageVersion()})
		if opts.DryRun {
			return nil
		}
		old.Archive = md.Archive
		old.InstallType = md.InstallType
		return i.record(old)
	}

	emit(i.events, Event{Phase: "checking", Package: src.name})
	if err := checkLicense(ctx, md, path); err != nil {
		return err
	}
	if msg := resolver.New(i.store.Snapshot().Without(src.name)).FindConflicts(md); msg != "" {
		return fmt.Errorf("cannot install %s %s: %s: %w", src.name, md.PackageVersion(), msg, errors.ErrConflict)
	}

	var replaced []string
	if decision == Replace {
		replaced = old.Manifest
	}
	if err := archive.Conflicts(ctx, path, i.installDir, extractExcludes, replaced); err != nil {
		return fmt.Errorf("cannot install %s %s: %w", src.name, md.PackageVersion(), err)
	}

	if opts.DryRun {
		logger.Info("Dry run, skipping extraction", fields, logger.Fields{
			"version":  md.PackageVersion(),
			"decision": decision.String(),
		})
		emit(i.events, Event{Phase: "dry-run", Package: src.name, Msg: md.PackageVersion()})
		return nil
	}

	if decision == Replace {
		emit(i.events, Event{Phase: "uninstalling", Package: src.name, Msg: old.PackageVersion()})
		if err := i.uninstallRecord(ctx, src.name, old); err != nil {
			return err
		}
	}

	emit(i.events, Event{Phase: "installing", Package: src.name, Msg: md.PackageVersion()})
	manifest, err := archive.Extract(ctx, path, i.installDir, extractExcludes)
	if err != nil {
		return fmt.Errorf("failed to extract %s: %w", src.name, err)
	}
	md.Manifest = manifest
	if err := i.record(md); err != nil {
		return err
	}
	logger.Success("Installed package", fields, logger.Fields{"version": md.PackageVersion(), "files": len(manifest)})

	hc := hooks.HookContext{
		PackageName:    src.name,
		PackageVersion: md.PackageVersion(),
		InstallDir:     i.installDir,
		Files:          manifest,
	}
	if err := i.hooks.Execute(ctx, hooks.PostInstall, md.PackageDescription.Hooks[string(hooks.PostInstall)], hc); err != nil {
		logger.Warn("Post-install hook failed", fields, logger.Fields{"error": err.Error()})
	}
	emit(i.events, Event{Phase: "done", Package: src.name, Msg: md.PackageVersion()})
	return nil
}

func (i *Installer) record(md *model.MetadataDescription) error {
	if err := i.store.Put(md); err != nil {
		return err
	}
	if err := i.store.Save(); err != nil {
		return fmt.Errorf("failed to save installed manifest: %w", err)
	}
	return nil
}
