package app

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/blackwell-systems/apkident/internal/output"
	"github.com/blackwell-systems/apkident/internal/store"
	"github.com/blackwell-systems/apkident/internal/watcher"
)

var (
	statusQuiet bool

	statusCmd = &cobra.Command{
		Use:   "status",
		Short: "Show known records, the last scan and the watcher state",
		Long: `Display the apkident database location, the number of known identity
records, a summary of the last scan run, whether the watch daemon is running,
and a table of the known records.`,
		Example: `  apkident status
  apkident status --quiet`,
		Args: cobra.NoArgs,
		RunE: runStatus,
	}
)

func init() {
	statusCmd.Flags().BoolVarP(&statusQuiet, "quiet", "q", false, "omit the record table")
}

func runStatus(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()

	st, err := openExistingStore(cfg)
	if errors.Is(err, store.ErrNotInitialized) {
		fmt.Fprintln(out, "apkident is not set up. Run 'apkident scan <dir>' to get started.")
		return nil
	}
	if err != nil {
		return err
	}
	defer st.Close()

	count, err := st.CountSnapshots()
	if err != nil {
		return fmt.Errorf("failed to count records: %w", err)
	}
	run, err := st.LastScanRun()
	if err != nil && !errors.Is(err, store.ErrRecordNotFound) {
		return fmt.Errorf("failed to get last scan: %w", err)
	}

	var dbSize int64
	if fi, err := os.Stat(cfg.DBPath); err == nil {
		dbSize = fi.Size()
	}

	fmt.Fprintf(out, "Database:  %s (%s)\n", cfg.DBPath, formatSize(dbSize))
	fmt.Fprintf(out, "Records:   %d\n", count)
	fmt.Fprintf(out, "Watcher:   %s\n", watcherState())
	fmt.Fprint(out, output.RenderScanRun(run))

	if statusQuiet || count == 0 {
		return nil
	}

	snaps, err := st.ListSnapshots()
	if err != nil {
		return fmt.Errorf("failed to list records: %w", err)
	}
	fmt.Fprintln(out)
	fmt.Fprint(out, output.RenderSnapshotTable(snaps))
	return nil
}

func watcherState() string {
	pidFile, err := getPIDFile()
	if err != nil {
		return "unknown"
	}
	running, err := watcher.IsDaemonRunning(pidFile)
	if err != nil {
		return "unknown"
	}
	if running {
		return "running"
	}
	return "stopped"
}
