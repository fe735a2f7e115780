package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/blackwell-systems/apkident/internal/output"
	"github.com/blackwell-systems/apkident/internal/scanner"
)

var (
	scanForce bool
	scanJobs  int
	scanQuiet bool

	scanCmd = &cobra.Command{
		Use:   "scan [dir...]",
		Short: "Build identity records for the archives in a set of directories",
		Long: `Scan every .apk archive below the given directories, or the archive_dirs
from the configuration file, and store one identity record per package
version in the apkident database.

Archives whose package, version and content hash are already known are
skipped unless --force is given. A damaged archive never stops the scan:
it is reported and the remaining archives are processed.

The scan command should be run:
  • After installing apkident for the first time
  • After installing or updating packages outside of the watcher
  • Before 'apkident check' so the comparison uses current records`,
		Example: `  # Scan the configured archive directories
  apkident scan

  # Scan a specific directory with 8 workers
  apkident scan /data/app --jobs 8

  # Rebuild every record
  apkident scan --force`,
		RunE: runScan,
	}
)

func init() {
	scanCmd.Flags().BoolVar(&scanForce, "force", false, "rebuild records that are already known")
	scanCmd.Flags().IntVarP(&scanJobs, "jobs", "j", 0, "archives to process concurrently (default: config jobs)")
	scanCmd.Flags().BoolVarP(&scanQuiet, "quiet", "q", false, "suppress progress output")
}

func runScan(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	dirs := args
	if len(dirs) == 0 {
		dirs = cfg.ArchiveDirs
	}
	if len(dirs) == 0 {
		return errors.New("no archive directories given and none configured in archive_dirs")
	}

	paths, err := scanner.FindArchives(dirs)
	if err != nil {
		return fmt.Errorf("failed to find archives: %w", err)
	}

	out := cmd.OutOrStdout()
	if len(paths) == 0 {
		fmt.Fprintln(out, "No archives found.")
		return nil
	}

	st, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	jobs := cfg.Jobs
	if scanJobs > 0 {
		jobs = scanJobs
	}

	var progress *output.ProgressBar
	opts := scanner.Options{Jobs: jobs, Force: scanForce, Logger: logger}
	if !scanQuiet {
		progress = output.NewProgress(len(paths), "Scanning archives")
		progress.SetWriter(cmd.ErrOrStderr())
		opts.Progress = func(path string, outcome scanner.Outcome) {
			if outcome == scanner.Failed {
				progress.Fail()
				return
			}
			progress.Increment()
		}
	}

	sc, err := scanner.New(st, newBuilder(cfg), opts)
	if err != nil {
		return fmt.Errorf("failed to create scanner: %w", err)
	}

	ctx, stop := signal.NotifyContext(commandContext(cmd), os.Interrupt)
	defer stop()

	res, scanErr := sc.ScanFiles(ctx, paths)
	if progress != nil {
		progress.Finish()
	}
	if res == nil {
		return fmt.Errorf("failed to scan archives: %w", scanErr)
	}

	run := res.Run
	fmt.Fprintf(out, "✓ Scanned %d archives: %d built, %d skipped, %d failed\n",
		run.ArchiveCount, run.BuiltCount, run.SkippedCount, run.FailedCount)
	for _, f := range res.Failures {
		fmt.Fprintf(out, "  ✗ %s: %v\n", f.Path, f.Err)
	}

	if scanErr != nil {
		return scanErr
	}
	return nil
}

// commandContext returns the command's context or a background one when
// the command runs outside ExecuteContext.
func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
