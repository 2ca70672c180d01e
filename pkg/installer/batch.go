package installer

import (
	"context"
	"fmt"
	"sync"

	"github.com/hashicorp/go-multierror"
	"golang.org/x/sync/errgroup"

	"github.com/glorpus-work/depot/internal/logger"
	"github.com/glorpus-work/depot/pkg/model"
)

// Install installs the named packages in order. Remote archives are fetched up front
// with bounded concurrency; the packages are then installed one at a time. A failing
// package does not stop the others; all failures are returned together.
func (i *Installer) Install(ctx context.Context, packages map[string]*model.PackageDescription, names []string, opts InstallOptions) error {
	var result *multierror.Error

	sources := make([]*source, 0, len(names))
	for _, name := range names {
		src, err := i.resolveSource(name, packages[name], opts.LocalOverrides)
		if err != nil {
			result = multierror.Append(result, err)
			continue
		}
		sources = append(sources, src)
	}

	paths, fetchErrs := i.prefetch(ctx, sources, opts.VerifyHashes)
	for _, src := range sources {
		if err, failed := fetchErrs[src.name]; failed {
			result = multierror.Append(result, err)
			continue
		}
		if err := i.install(ctx, src, paths[src.name], opts); err != nil {
			logger.Error("Install failed", logger.Fields{"package": src.name, "error": err.Error()})
			emit(i.events, Event{Phase: "error", Package: src.name, Msg: err.Error()})
			result = multierror.Append(result, err)
		}
	}
	return result.ErrorOrNil()
}

// prefetch downloads the archives of every source that is not already installed.
// Errors are reported per package.
func (i *Installer) prefetch(ctx context.Context, sources []*source, verify bool) (map[string]string, map[string]error) {
	var (
		mu    sync.Mutex
		paths = make(map[string]string, len(sources))
		errs  = make(map[string]error)
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(i.concurrency)
	for _, src := range sources {
		if src.local || i.upToDate(src) {
			continue
		}
		g.Go(func() error {
			path, err := i.obtain(gctx, src, verify)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				errs[src.name] = fmt.Errorf("%s: %w", src.name, err)
				return nil
			}
			paths[src.name] = path
			return nil
		})
	}
	_ = g.Wait()
	return paths, errs
}
