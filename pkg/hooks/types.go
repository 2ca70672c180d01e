// Package hooks runs the tengo scripts a package description attaches to its
// lifecycle.
package hooks

import (
	"fmt"

	pkgerrors "github.com/glorpus-work/depot/pkg/errors"
)

// HookType represents the type of hooks.
type HookType string

// Supported hooks types.
const (
	PostInstall  HookType = "post-install"
	PreUninstall HookType = "pre-uninstall"
)

// Types lists the supported hook types.
func Types() []HookType {
	return []HookType{PostInstall, PreUninstall}
}

// Common hooks errors.
var (
	// ErrHookExecution is returned when a script fails to compile or run.
	ErrHookExecution = fmt.Errorf("error executing hook")

	// ErrHookScript is returned when a script reports a failure through `err`.
	ErrHookScript = fmt.Errorf("hook script error")
)

// HookContext contains information passed to hooks.
type HookContext struct {
	PackageName    string
	PackageVersion string
	InstallDir     string
	// Files are the installed paths relative to InstallDir.
	Files []string
	Vars  map[string]interface{}
}

// Validate checks that every key of a package's hooks map names a supported type.
func Validate(hooks map[string]string) error {
	for name := range hooks {
		if !isSupported(HookType(name)) {
			return fmt.Errorf("unsupported hook type %q: %w", name, pkgerrors.ErrConfig)
		}
	}
	return nil
}

func isSupported(t HookType) bool {
	for _, known := range Types() {
		if t == known {
			return true
		}
	}
	return false
}
