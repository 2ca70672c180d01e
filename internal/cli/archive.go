package cli

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/glorpus-work/depot/internal/logger"
	"github.com/glorpus-work/depot/pkg/archive"
)

// NewArchiveCmd creates the archive command used to build and inspect
// package archives.
func NewArchiveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "archive",
		Short: "Create and inspect package archives",
	}

	cmd.AddCommand(
		newArchiveCreateCmd(),
		newArchiveListCmd(),
	)

	return cmd
}

func newArchiveCreateCmd() *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "create SOURCE_DIR ARCHIVE",
		Short: "Pack a directory into an archive",
		Long: `Pack the contents of SOURCE_DIR into ARCHIVE. The format is taken from
--format, then from the archive's file extension.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runArchiveCreate(cmd.Context(), args[0], args[1], format)
		},
	}

	cmd.Flags().StringVar(&format, "format", "", "Archive format (tar.gz, tar.bz2, tar.zst, zip)")

	return cmd
}

func newArchiveListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list ARCHIVE",
		Short: "List the members of an archive",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runArchiveList(cmd.Context(), args[0])
		},
	}
}

func runArchiveCreate(ctx context.Context, sourceDir, archivePath, formatName string) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if formatName == "" {
		if f, ok := archive.FormatFromName(archivePath); ok {
			formatName = f.String()
		} else {
			formatName = DefaultArchiveFormat
		}
	}
	format, err := archive.ParseFormat(formatName)
	if err != nil {
		return err
	}

	if err := archive.Create(ctx, sourceDir, archivePath, format); err != nil {
		return fmt.Errorf("failed to create archive: %w", err)
	}
	logger.Success("Archive created", logger.Fields{"path": archivePath, "format": format.String()})
	return nil
}

func runArchiveList(ctx context.Context, archivePath string) error {
	if ctx == nil {
		ctx = context.Background()
	}
	entries, err := archive.List(ctx, archivePath)
	if err != nil {
		return err
	}

	tabWriter := tabwriter.NewWriter(os.Stdout, 0, 0, TabWidth, ' ', 0)
	for _, e := range entries {
		size := humanize.Bytes(uint64(e.Size))
		if e.IsDir {
			size = "-"
		}
		_, _ = fmt.Fprintf(tabWriter, "%s\t%s\t%s\n", e.Mode, size, e.Name)
	}
	return tabWriter.Flush()
}
