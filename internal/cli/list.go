package cli

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

// NewListCmd creates the list command.
func NewListCmd() *cobra.Command {
	var (
		nameFilter string
		installDir string
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List installed packages",
		Long: `List the packages recorded in the installed manifest.

Use --name to filter packages by name.`,
		RunE: func(_ *cobra.Command, _ []string) error {
			return runList(nameFilter, installDir)
		},
	}

	cmd.Flags().StringVar(&nameFilter, "name", "", "Filter packages by name (partial match)")
	cmd.Flags().StringVar(&installDir, "install-dir", "", "Install directory (defaults to config)")

	return cmd
}

func runList(nameFilter, installDir string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	inst, err := newInstaller(cfg, installDir, noEvents)
	if err != nil {
		return err
	}

	records := inst.Store().Filtered(nameFilter)
	if len(records) == 0 {
		fmt.Println("No packages installed")
		return nil
	}

	tabWriter := tabwriter.NewWriter(os.Stdout, 0, 0, TabWidth, ' ', 0)
	_, _ = fmt.Fprintln(tabWriter, "PACKAGE\tVERSION\tBUILD\tPLATFORM\tTYPE\tFILES\tSTATUS")
	for _, md := range records {
		status := okColor.Sprint("clean")
		if md.Dirty {
			status = warnColor.Sprint("dirty")
		}
		_, _ = fmt.Fprintf(tabWriter, "%s\t%s\t%s\t%s\t%s\t%d\t%s\n",
			md.Name(), orDash(md.PackageVersion()), orDash(md.BuildID), orDash(md.Platform),
			md.InstallType, len(md.Manifest), status)
	}
	return tabWriter.Flush()
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
