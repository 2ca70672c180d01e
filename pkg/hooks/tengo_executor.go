package hooks

import (
	"context"
	"fmt"

	"github.com/d5/tengo/v2"
	"github.com/d5/tengo/v2/stdlib"

	"github.com/glorpus-work/depot/internal/logger"
)

// Executor runs one hook script.
type Executor interface {
	Execute(ctx context.Context, hookType HookType, script string, hc HookContext) error
}

// TengoExecutor handles the execution of Tengo scripts.
type TengoExecutor struct {
	modules []string
}

var _ Executor = (*TengoExecutor)(nil)

// NewTengoExecutor creates a new Tengo script executor.
func NewTengoExecutor() *TengoExecutor {
	return &TengoExecutor{
		modules: []string{"fmt", "os", "strings", "text", "times"},
	}
}

// Execute runs script. An empty script is a no-op. The script sees packageName,
// packageVersion, installDir, files and every entry of hc.Vars as variables, and
// reports a failure by assigning a non-empty string or error to `err`.
func (e *TengoExecutor) Execute(ctx context.Context, hookType HookType, script string, hc HookContext) error {
	if script == "" {
		return nil
	}

	scriptInstance := tengo.NewScript([]byte(script))
	scriptInstance.SetImports(stdlib.GetModuleMap(e.modules...))

	files := make([]interface{}, len(hc.Files))
	for i, f := range hc.Files {
		files[i] = f
	}
	vars := map[string]interface{}{
		"packageName":    hc.PackageName,
		"packageVersion": hc.PackageVersion,
		"installDir":     hc.InstallDir,
		"files":          files,
	}
	for k, v := range hc.Vars {
		vars[k] = v
	}
	for k, v := range vars {
		if err := scriptInstance.Add(k, v); err != nil {
			return fmt.Errorf("failed to add variable '%s' to script: %w", k, err)
		}
	}

	logger.Debug("Running hook", logger.Fields{"hook": string(hookType), "package": hc.PackageName})
	compiled, err := scriptInstance.RunContext(ctx)
	if err != nil {
		return fmt.Errorf("%s: %w: %w", hookType, ErrHookExecution, err)
	}

	errVar := compiled.Get("err")
	if errVar != nil {
		switch v := errVar.Value().(type) {
		case error:
			return fmt.Errorf("%s: %w: %w", hookType, ErrHookScript, v)
		case string:
			if v != "" {
				return fmt.Errorf("%s: %w: %s", hookType, ErrHookScript, v)
			}
		}
	}
	return nil
}
