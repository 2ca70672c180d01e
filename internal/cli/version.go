package cli

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/glorpus-work/depot/pkg/platform"
)

// Build information, overridden with -ldflags at release time.
var (
	Version   = "0.1.0"
	BuildDate = "unknown"
	GitCommit = "unknown"
)

// NewVersionCmd creates the version command.
func NewVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Long:  "Display version information for depot",
		Run: func(_ *cobra.Command, _ []string) {
			runVersion()
		},
	}
}

func runVersion() {
	fmt.Printf("depot version %s\n", Version)
	fmt.Printf("Build date: %s\n", BuildDate)
	fmt.Printf("Git commit: %s\n", GitCommit)
	fmt.Printf("Platform: %s (%s/%s)\n", platform.CurrentName(), runtime.GOOS, runtime.GOARCH)
}
