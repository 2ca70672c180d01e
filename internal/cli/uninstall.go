package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/glorpus-work/depot/pkg/installer"
)

// NewUninstallCmd creates the uninstall command.
func NewUninstallCmd() *cobra.Command {
	var (
		installDir string
		all        bool
	)

	cmd := &cobra.Command{
		Use:   "uninstall [PACKAGE...]",
		Short: "Uninstall packages",
		Long: `Remove installed packages. Every file recorded for the package is deleted
and directories left empty are pruned.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 && !all {
				return fmt.Errorf("name at least one package or pass --all")
			}
			return runUninstall(cmd.Context(), args, installDir, all)
		},
	}

	cmd.Flags().StringVar(&installDir, "install-dir", "", "Install directory (defaults to config)")
	cmd.Flags().BoolVar(&all, "all", false, "Uninstall every installed package")

	return cmd
}

func runUninstall(ctx context.Context, names []string, installDir string, all bool) error {
	if ctx == nil {
		ctx = context.Background()
	}
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	inst, err := newInstaller(cfg, installDir, installer.Events{OnEvent: func(e installer.Event) {
		printEvent(os.Stdout, e)
	}})
	if err != nil {
		return err
	}

	if all {
		names = names[:0]
		for _, md := range inst.Store().Filtered("") {
			names = append(names, md.Name())
		}
	}

	err = inst.Uninstall(ctx, names)
	printSummary(os.Stdout, "Uninstall", len(names), err)
	if err != nil {
		return fmt.Errorf("failed to uninstall packages: %w", err)
	}
	return nil
}
