package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/glorpus-work/depot/pkg/config"
	"github.com/glorpus-work/depot/pkg/installer"
)

type installFlags struct {
	dryRun       bool
	all          bool
	noVerify     bool
	packagesFile string
	installDir   string
	local        map[string]string
}

// NewInstallCmd creates the install command.
func NewInstallCmd() *cobra.Command {
	var flags installFlags

	cmd := &cobra.Command{
		Use:   "install [PACKAGE...]",
		Short: "Install packages",
		Long: `Install one or more packages described in the packages file.
Archives are downloaded into the cache, verified and extracted into the
install directory. Packages that are already up to date are skipped.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 && !flags.all {
				return fmt.Errorf("name at least one package or pass --all")
			}
			return runInstall(cmd.Context(), args, flags)
		},
	}

	cmd.Flags().BoolVar(&flags.dryRun, "dry-run", false, "Fetch and check packages without changing the install directory")
	cmd.Flags().BoolVar(&flags.all, "all", false, "Install every package in the packages file")
	cmd.Flags().BoolVar(&flags.noVerify, "no-verify", false, "Skip archive hash verification")
	cmd.Flags().StringVar(&flags.packagesFile, "packages", "", "Packages file (defaults to config)")
	cmd.Flags().StringVar(&flags.installDir, "install-dir", "", "Install directory (defaults to config)")
	cmd.Flags().StringToStringVar(&flags.local, "local", nil, "Install a package from a local archive (name=path)")

	return cmd
}

func runInstall(ctx context.Context, names []string, flags installFlags) error {
	if ctx == nil {
		ctx = context.Background()
	}
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	packages, err := loadPackages(cfg, flags.packagesFile)
	if err != nil {
		return err
	}
	if flags.all {
		names = config.PackageNames(packages)
	}

	inst, err := newInstaller(cfg, flags.installDir, installer.Events{OnEvent: func(e installer.Event) {
		printEvent(os.Stdout, e)
	}})
	if err != nil {
		return err
	}

	opts := installer.InstallOptions{
		DryRun:         flags.dryRun,
		LocalOverrides: flags.local,
		VerifyHashes:   cfg.Settings.Verify() && !flags.noVerify,
	}
	err = inst.Install(ctx, packages, names, opts)
	printSummary(os.Stdout, "Install", len(names), err)
	if err != nil {
		return fmt.Errorf("failed to install packages: %w", err)
	}
	return nil
}
