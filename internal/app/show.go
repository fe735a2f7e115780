package app

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/blackwell-systems/apkident/internal/output"
)

var (
	showJSON bool

	showCmd = &cobra.Command{
		Use:   "show <archive>",
		Short: "Build and print the identity record of one archive",
		Long: `Build the identity record of a single archive without storing it.

The package name and version are read from the archive's manifest. Stages
that fail (signature, SDK range, native code, expansion files) are listed
as warnings; the remaining fields are still printed.`,
		Example: `  apkident show app.apk
  apkident show app.apk --json`,
		Args: cobra.ExactArgs(1),
		RunE: runShow,
	}
)

func init() {
	showCmd.Flags().BoolVar(&showJSON, "json", false, "print the record as JSON")
}

func runShow(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	snap, err := newBuilder(cfg).BuildFromArchive(args[0])
	if err != nil {
		return fmt.Errorf("failed to build snapshot: %w", err)
	}

	out := cmd.OutOrStdout()
	if showJSON {
		data, err := json.MarshalIndent(snap, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal snapshot: %w", err)
		}
		fmt.Fprintln(out, string(data))
		return nil
	}

	fmt.Fprint(out, output.RenderSnapshot(snap))
	return nil
}
