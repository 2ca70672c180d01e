package cli

import (
	"fmt"
	"io"

	"github.com/fatih/color"

	"github.com/glorpus-work/depot/pkg/installer"
)

var (
	okColor   = color.New(color.FgGreen, color.Bold)
	warnColor = color.New(color.FgYellow)
	errColor  = color.New(color.FgRed, color.Bold)
	dimColor  = color.New(color.Faint)
)

func setColor(enabled bool) {
	color.NoColor = !enabled
}

// printEvent writes one progress line for an installer event.
func printEvent(w io.Writer, e installer.Event) {
	label := dimColor
	switch e.Phase {
	case "done":
		label = okColor
	case "current", "dry-run":
		label = warnColor
	case "error":
		label = errColor
	}
	if e.Msg != "" {
		_, _ = fmt.Fprintf(w, "%s %s: %s\n", label.Sprintf("%-12s", e.Phase), e.Package, e.Msg)
		return
	}
	_, _ = fmt.Fprintf(w, "%s %s\n", label.Sprintf("%-12s", e.Phase), e.Package)
}

// printSummary writes the closing line of a batch command.
func printSummary(w io.Writer, action string, total int, err error) {
	if err != nil {
		_, _ = errColor.Fprintf(w, "%s finished with errors (%d package(s) requested)\n", action, total)
		return
	}
	_, _ = okColor.Fprintf(w, "%s finished (%d package(s))\n", action, total)
}
