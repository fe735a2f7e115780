package app

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/blackwell-systems/apkident/internal/cache"
)

var (
	cleanKeep time.Duration

	cleanCmd = &cobra.Command{
		Use:   "clean",
		Short: "Remove expired files from the cache directory",
		Long: `Remove cached archives older than the keep time (keep_cache_time, 24h by
default), interrupted downloads and stray index files older than an hour,
and icons older than a year. Directories left empty are removed.`,
		Example: `  apkident clean
  apkident clean --keep 72h`,
		Args: cobra.NoArgs,
		RunE: runClean,
	}
)

func init() {
	cleanCmd.Flags().DurationVar(&cleanKeep, "keep", 0, "keep archives newer than this (default: keep_cache_time)")
}

func runClean(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	keep := cfg.KeepCacheTime
	if cleanKeep > 0 {
		keep = cleanKeep
	}

	stats, err := cache.Clean(cfg.CacheDir, keep, time.Now())
	if err != nil {
		logger.Warn("Cache cleanup incomplete", "dir", cfg.CacheDir, "error", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "✓ Removed %d files and %d directories (%s) from %s\n",
		stats.Files, stats.Dirs, formatSize(stats.Bytes), cfg.CacheDir)
	return err
}
