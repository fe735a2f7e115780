package app

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/dustin/go-humanize"

	"github.com/blackwell-systems/apkident/internal/analyzer"
	"github.com/blackwell-systems/apkident/internal/config"
	"github.com/blackwell-systems/apkident/internal/logging"
	"github.com/blackwell-systems/apkident/internal/snapshots"
	"github.com/blackwell-systems/apkident/internal/store"
)

// logger is the CLI logger. Commands that log to a file replace it.
var logger = slog.Default()

func setupLogger() {
	logger = logging.New(os.Stderr, logging.Options{Verbose: verbose})
	slog.SetDefault(logger)
}

// getConfigDir returns the --config-dir value or the default directory.
func getConfigDir() (string, error) {
	if configDir != "" {
		return configDir, nil
	}
	dir, err := config.Dir()
	if err != nil {
		return "", fmt.Errorf("failed to get config directory: %w", err)
	}
	return dir, nil
}

// loadConfig loads the configuration file and applies environment and flag
// overrides.
func loadConfig() (*config.Config, error) {
	dir, err := getConfigDir()
	if err != nil {
		return nil, err
	}

	cfg, err := config.Load(dir)
	if err != nil {
		return nil, err
	}
	cfg.ApplyEnv(os.Getenv)
	if dbPath != "" {
		cfg.DBPath = dbPath
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// openStore opens the database and creates its schema if needed.
func openStore(cfg *config.Config) (*store.Store, error) {
	if err := os.MkdirAll(filepath.Dir(cfg.DBPath), 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	st, err := store.New(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := st.CreateSchema(); err != nil {
		st.Close()
		return nil, fmt.Errorf("failed to create database schema: %w", err)
	}
	return st, nil
}

// openExistingStore opens the database without creating it.
func openExistingStore(cfg *config.Config) (*store.Store, error) {
	if _, err := os.Stat(cfg.DBPath); err != nil {
		return nil, store.ErrNotInitialized
	}
	st, err := store.New(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	return st, nil
}

func newBuilder(cfg *config.Config) *snapshots.Builder {
	return snapshots.NewBuilder(snapshots.Options{
		StorageRoot: cfg.StorageRoot,
		HashType:    cfg.HashType,
	}, logger)
}

func device(cfg *config.Config) analyzer.Device {
	return analyzer.Device{SDK: cfg.Device.SDK, ABIs: cfg.Device.ABIs}
}

// getPIDFile returns the watch daemon PID file path.
func getPIDFile() (string, error) {
	dir, err := getConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "watch.pid"), nil
}

// formatSize converts bytes to a human-readable size.
func formatSize(bytes int64) string {
	if bytes <= 0 {
		return "0 B"
	}
	return humanize.Bytes(uint64(bytes))
}
