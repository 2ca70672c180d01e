package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/glorpus-work/depot/internal/cli"
)

var (
	configPath string
	verbose    bool
	noColor    bool
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	rootCmd := newRootCmd()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		cancel()
		os.Exit(1)
	}

	cancel()
}

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "depot",
		Short: "Install prebuilt native dependencies",
		Long: `depot downloads prebuilt archives of native libraries, verifies them and
extracts them into a shared install directory:
- install, uninstall and list packages described in a packages file
- manage the download cache
- create and inspect package archives`,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVar(&configPath, "config", "", "config file path (default: auto-detect)")
	cmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "disable colored output")

	cli.ConfigPath = &configPath
	cli.Verbose = &verbose
	cli.NoColor = &noColor

	cmd.AddCommand(
		cli.NewInstallCmd(),
		cli.NewUninstallCmd(),
		cli.NewListCmd(),
		cli.NewConfigCmd(),
		cli.NewCacheCmd(),
		cli.NewArchiveCmd(),
		cli.NewVersionCmd(),
	)

	return cmd
}
