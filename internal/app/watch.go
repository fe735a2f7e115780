package app

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/blackwell-systems/apkident/internal/logging"
	"github.com/blackwell-systems/apkident/internal/output"
	"github.com/blackwell-systems/apkident/internal/scanner"
	"github.com/blackwell-systems/apkident/internal/watcher"
)

var (
	watchDaemon      bool
	watchDaemonChild bool
	watchStop        bool
	watchDebounce    time.Duration

	watchCmd = &cobra.Command{
		Use:   "watch [dir...]",
		Short: "Keep identity records current as archives change",
		Long: `Watch the archive directories and update the identity records as
archives appear, change or disappear.

A full scan runs first. After that, new or rewritten archives are scanned
once they have been quiet for the debounce interval, and records of removed
archives are forgotten.

Watch modes:
  • Foreground (default): run in the current terminal, Ctrl+C to stop
  • Daemon: run in the background, logging to log_file with rotation
  • Stop: stop a running daemon`,
		Example: `  # Run in foreground (Ctrl+C to stop)
  apkident watch /data/app

  # Run as background daemon
  apkident watch --daemon

  # Stop running daemon
  apkident watch --stop`,
		RunE: runWatch,
	}
)

func init() {
	watchCmd.Flags().BoolVar(&watchDaemon, "daemon", false, "run as background daemon")
	watchCmd.Flags().BoolVar(&watchDaemonChild, "daemon-child", false, "internal flag for daemon child process")
	watchCmd.Flags().BoolVar(&watchStop, "stop", false, "stop running daemon")
	watchCmd.Flags().DurationVar(&watchDebounce, "debounce", watcher.DefaultDebounce, "quiet period before a changed archive is scanned")

	watchCmd.Flags().MarkHidden("daemon-child")
}

func runWatch(cmd *cobra.Command, args []string) error {
	pidFile, err := getPIDFile()
	if err != nil {
		return fmt.Errorf("failed to get PID file path: %w", err)
	}

	if watchStop {
		return stopWatchDaemon(cmd, pidFile)
	}

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

	if watchDaemon {
		return startWatchDaemon(cmd, pidFile, cfg.LogFile, dirs)
	}

	if watchDaemonChild {
		fileLogger, closeLog := logging.Setup(logging.Options{Verbose: verbose, File: cfg.LogFile})
		defer closeLog()
		logger = fileLogger
	}

	st, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	sc, err := scanner.New(st, newBuilder(cfg), scanner.Options{Jobs: cfg.Jobs, Logger: logger})
	if err != nil {
		return fmt.Errorf("failed to create scanner: %w", err)
	}

	res, err := sc.ScanDirs(commandContext(cmd), dirs)
	if err != nil {
		return fmt.Errorf("initial scan failed: %w", err)
	}
	logger.Info("Initial scan complete",
		"archives", res.Run.ArchiveCount,
		"built", res.Run.BuiltCount,
		"skipped", res.Run.SkippedCount,
		"failed", res.Run.FailedCount)

	w, err := watcher.New(sc, dirs, watcher.Options{Debounce: watchDebounce, Logger: logger})
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}

	if watchDaemonChild {
		return w.RunDaemon(pidFile)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Watching %d directories (press Ctrl+C to stop)...\n", len(dirs))
	if err := w.RunDaemon(""); err != nil {
		return err
	}
	fmt.Fprintln(out, "✓ Watcher stopped")
	return nil
}

func stopWatchDaemon(cmd *cobra.Command, pidFile string) error {
	out := cmd.OutOrStdout()

	running, err := watcher.IsDaemonRunning(pidFile)
	if err != nil {
		return fmt.Errorf("failed to check daemon status: %w", err)
	}
	if !running {
		fmt.Fprintln(out, "Daemon is not running")
		return nil
	}

	if err := watcher.StopDaemon(pidFile); err != nil {
		return fmt.Errorf("failed to stop daemon: %w", err)
	}
	fmt.Fprintln(out, "✓ Daemon stopped")
	return nil
}

func startWatchDaemon(cmd *cobra.Command, pidFile, logFile string, dirs []string) error {
	spinner := output.NewSpinner("Starting daemon")
	spinner.SetWriter(cmd.ErrOrStderr())
	spinner.Start()

	pid, err := watcher.StartDaemon(pidFile, daemonChildArgs(dirs))
	if err != nil {
		spinner.Stop()
		return fmt.Errorf("failed to start daemon: %w", err)
	}
	spinner.Stop()

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "✓ Watch daemon started (PID %d)\n", pid)
	fmt.Fprintf(out, "  PID file: %s\n", pidFile)
	fmt.Fprintf(out, "  Log file: %s\n", logFile)
	fmt.Fprintln(out, "\nTo stop: apkident watch --stop")
	return nil
}

// daemonChildArgs forwards the global flags and directories to the child.
func daemonChildArgs(dirs []string) []string {
	var args []string
	if dbPath != "" {
		args = append(args, "--db", dbPath)
	}
	if configDir != "" {
		args = append(args, "--config-dir", configDir)
	}
	if verbose {
		args = append(args, "--verbose")
	}
	if watchDebounce != watcher.DefaultDebounce {
		args = append(args, "--debounce", watchDebounce.String())
	}
	return append(args, dirs...)
}
