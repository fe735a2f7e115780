package app

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	dbPath    string
	configDir string
	verbose   bool

	// RootCmd is the root command for apkident
	RootCmd = &cobra.Command{
		Use:   "apkident",
		Short: "Identify installed Android packages from their archives",
		Long: `apkident builds identity records for installed Android packages from
their .apk archives: signer fingerprint, SDK range, native ABIs, expansion
files and content hash. Records are kept in a local database and compared
against repository catalogs to find safe, compatible updates.

Quick Start:
  1. apkident scan /path/to/apks
  2. apkident status
  3. apkident check index-v1.json

Features:
  • Legacy signer fingerprints compatible with repository indexes
  • Best-effort snapshots that never fail on a damaged archive
  • Localized metadata resolution with per-field fallback
  • Directory watching to keep records current

Examples:
  # Fingerprint an archive
  apkident fingerprint app.apk

  # Show everything known about an archive
  apkident show app.apk

  # Resolve localized metadata for a package
  apkident localize index-v1.json org.fdroid.fdroid --locale de-AT`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			setupLogger()
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, "apkident: installed-package identity for Android archives")
			fmt.Fprintln(out)

			cfg, err := loadConfig()
			if err == nil {
				if _, statErr := os.Stat(cfg.DBPath); statErr == nil {
					fmt.Fprintln(out, "Tip: Run 'apkident status' to list known packages.")
					fmt.Fprintln(out, "     Run 'apkident --help' for all commands.")
					return nil
				}
			}
			fmt.Fprintln(out, "Run 'apkident scan <dir>' to get started.")
			fmt.Fprintln(out, "Run 'apkident --help' for the full reference.")
			return nil
		},
	}
)

func init() {
	RootCmd.PersistentFlags().StringVar(&dbPath, "db", "", "database path (default: <config-dir>/apkident.db)")
	RootCmd.PersistentFlags().StringVar(&configDir, "config-dir", "", "configuration directory (default: ~/.config/apkident)")
	RootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")

	RootCmd.SuggestionsMinimumDistance = 2

	RootCmd.AddCommand(scanCmd)
	RootCmd.AddCommand(showCmd)
	RootCmd.AddCommand(fingerprintCmd)
	RootCmd.AddCommand(localizeCmd)
	RootCmd.AddCommand(checkCmd)
	RootCmd.AddCommand(statusCmd)
	RootCmd.AddCommand(exportCmd)
	RootCmd.AddCommand(watchCmd)
	RootCmd.AddCommand(cleanCmd)
}

// Execute runs the root command
func Execute() error {
	return RootCmd.Execute()
}
