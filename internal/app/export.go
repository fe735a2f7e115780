package app

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/blackwell-systems/apkident/internal/snapshots"
)

var exportCmd = &cobra.Command{
	Use:   "export <file>",
	Short: "Write the known records to a JSON file",
	Long: `Write every known identity record to a JSON file. The file can be
read back by other tools or compared between devices.`,
	Example: `  apkident export installed.json`,
	Args:    cobra.ExactArgs(1),
	RunE:    runExport,
}

func runExport(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	st, err := openExistingStore(cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	snaps, err := st.ListSnapshots()
	if err != nil {
		return fmt.Errorf("failed to list records: %w", err)
	}

	if err := snapshots.WriteFile(args[0], snaps); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "✓ Exported %d records to %s\n", len(snaps), args[0])
	return nil
}
