package hooks_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pkgerrors "github.com/glorpus-work/depot/pkg/errors"
	"github.com/glorpus-work/depot/pkg/hooks"
)

func TestTengoExecutor(t *testing.T) {
	executor := hooks.NewTengoExecutor()
	hc := hooks.HookContext{
		PackageName:    "bogus",
		PackageVersion: "0.1",
		InstallDir:     "/test/install/path",
		Files:          []string{"lib/bogus.lib", "include/bogus.h"},
		Vars: map[string]interface{}{
			"customVar": "customValue",
		},
	}
	ctx := context.Background()

	t.Run("empty script", func(t *testing.T) {
		assert.NoError(t, executor.Execute(ctx, hooks.PostInstall, "", hc))
	})

	t.Run("runtime error", func(t *testing.T) {
		err := executor.Execute(ctx, hooks.PostInstall, `non_existent_function()`, hc)
		require.Error(t, err)
		assert.ErrorIs(t, err, hooks.ErrHookExecution)
	})

	t.Run("context variables are accessible", func(t *testing.T) {
		script := `
			err := ""
			if packageName != "bogus" || packageVersion != "0.1" || customVar != "customValue" {
				err = "unexpected context"
			}
			if len(files) != 2 || files[0] != "lib/bogus.lib" {
				err = "unexpected files"
			}
		`
		assert.NoError(t, executor.Execute(ctx, hooks.PostInstall, script, hc))
	})

	t.Run("script reports failure", func(t *testing.T) {
		script := `err := "refusing to uninstall " + packageName`
		err := executor.Execute(ctx, hooks.PreUninstall, script, hc)
		require.Error(t, err)
		assert.ErrorIs(t, err, hooks.ErrHookScript)
		assert.Contains(t, err.Error(), "refusing to uninstall bogus")
	})

	t.Run("script can use stdlib", func(t *testing.T) {
		dir := t.TempDir()
		marker := filepath.Join(dir, "marker.txt")
		script := `
			os := import("os")
			text := import("text")
			f := os.create(target)
			f.write_string(text.to_upper(packageName))
			f.close()
		`
		withTarget := hc
		withTarget.Vars = map[string]interface{}{"target": marker}
		require.NoError(t, executor.Execute(ctx, hooks.PostInstall, script, withTarget))

		data, err := os.ReadFile(marker)
		require.NoError(t, err)
		assert.Equal(t, "BOGUS", string(data))
	})

	t.Run("cancelled context", func(t *testing.T) {
		cctx, cancel := context.WithTimeout(ctx, 50*time.Millisecond)
		defer cancel()
		err := executor.Execute(cctx, hooks.PostInstall, `for {}`, hc)
		assert.Error(t, err)
	})
}

func TestValidate(t *testing.T) {
	assert.NoError(t, hooks.Validate(nil))
	assert.NoError(t, hooks.Validate(map[string]string{"post-install": "", "pre-uninstall": ""}))

	err := hooks.Validate(map[string]string{"pre-install": "x := 1"})
	assert.ErrorIs(t, err, pkgerrors.ErrConfig)
}
