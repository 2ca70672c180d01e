package cli

import (
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/glorpus-work/depot/internal/logger"
	"github.com/glorpus-work/depot/pkg/cache"
)

// NewCacheCmd creates the cache command with subcommands
func NewCacheCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Manage the archive cache",
		Long:  "Clean, show information about, and locate the archive cache",
	}

	cmd.AddCommand(
		newCacheCleanCmd(),
		newCacheInfoCmd(),
		newCacheDirCmd(),
	)

	return cmd
}

func newCacheCleanCmd() *cobra.Command {
	var options cache.CleanOptions

	cmd := &cobra.Command{
		Use:   "clean",
		Short: "Clean the archive cache",
		Long:  "Remove cached archives to free up disk space",
		RunE: func(_ *cobra.Command, _ []string) error {
			return runCacheClean(options)
		},
	}

	cmd.Flags().BoolVar(&options.PartialOnly, "partial", false, "Remove only leftovers of interrupted downloads")
	cmd.Flags().DurationVar(&options.OlderThan, "older-than", 0, "Remove only files not modified within this duration (e.g. 720h)")

	return cmd
}

func newCacheInfoCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "info",
		Short: "Show cache information",
		Long:  "Display the size and file counts of the archive cache",
		RunE: func(_ *cobra.Command, _ []string) error {
			return runCacheInfo()
		},
	}
}

func newCacheDirCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "dir",
		Short: "Show cache directory path",
		Long:  "Display the path to the cache directory",
		RunE: func(_ *cobra.Command, _ []string) error {
			return runCacheDir()
		},
	}
}

func runCacheClean(options cache.CleanOptions) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	result, err := newCache(cfg).Clean(options)
	if err != nil {
		return err
	}

	fields := logger.Fields{"files": result.Files, "freed": humanize.Bytes(uint64(result.TotalFreed))}
	if options.OlderThan > 0 {
		fields["older_than"] = options.OlderThan.Round(time.Second).String()
	}
	logger.Success("Cache cleaning completed", fields)
	return nil
}

func runCacheInfo() error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	info, err := newCache(cfg).Info()
	if err != nil {
		return err
	}

	fmt.Printf("Cache Directory: %s\n", info.Directory)
	fmt.Printf("Total Size: %s\n", humanize.Bytes(uint64(info.TotalSize)))
	fmt.Printf("Archives: %s (%d files)\n", humanize.Bytes(uint64(info.ArchiveSize)), info.ArchiveFiles)
	fmt.Printf("Partial Downloads: %s (%d files)\n", humanize.Bytes(uint64(info.PartialSize)), info.PartialFiles)
	return nil
}

func runCacheDir() error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	fmt.Println(newCache(cfg).Directory())
	return nil
}
