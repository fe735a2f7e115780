package app

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/blackwell-systems/apkident/internal/analyzer"
	"github.com/blackwell-systems/apkident/internal/catalog"
	"github.com/blackwell-systems/apkident/internal/output"
)

var checkCmd = &cobra.Command{
	Use:   "check <index.json> [package]",
	Short: "Compare catalog versions with the installed records",
	Long: `Evaluate every catalog version of the installed packages against their
stored identity records.

A version is safe when its signer matches the installed signer and it is
compatible with the device SDK and native ABIs. A different signer blocks
the version; an unknown signer on either side needs review.

With a package argument every catalog version of that package is listed.`,
	Example: `  apkident check index-v1.json
  apkident check index-v1.json org.fdroid.fdroid`,
	Args: cobra.RangeArgs(1, 2),
	RunE: runCheck,
}

func runCheck(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	st, err := openExistingStore(cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	spinner := output.NewSpinner("Loading catalog")
	spinner.SetWriter(cmd.ErrOrStderr())
	spinner.Start()
	idx, err := catalog.ReadFile(args[0])
	spinner.Stop()
	if err != nil {
		return err
	}

	a := analyzer.New(st, device(cfg))
	out := cmd.OutOrStdout()

	if len(args) == 2 {
		r, err := a.CheckApp(idx, args[1])
		if err != nil {
			return fmt.Errorf("failed to check %s: %w", args[1], err)
		}
		fmt.Fprint(out, output.RenderEvaluations(r))
		return nil
	}

	reports, err := a.CheckAll(idx)
	if err != nil {
		return fmt.Errorf("failed to check catalog: %w", err)
	}
	fmt.Fprint(out, output.RenderReports(reports))

	updates := 0
	for _, r := range reports {
		if r.UpdateAvailable() {
			updates++
		}
	}
	fmt.Fprintf(out, "\n%d of %d packages have a safe update.\n", updates, len(reports))
	return nil
}
