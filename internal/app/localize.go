package app

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/blackwell-systems/apkident/internal/catalog"
	"github.com/blackwell-systems/apkident/internal/locale"
	"github.com/blackwell-systems/apkident/internal/output"
)

var (
	localizeLocale       string
	localizeLocales      []string
	localizeSingleLocale bool
	localizeJSON         bool

	localizeCmd = &cobra.Command{
		Use:   "localize <index.json> <package>",
		Short: "Resolve the localized metadata of a catalog app",
		Long: `Resolve an app's localized name, summary, description, graphics and
screenshots for a locale preference.

Each field falls back independently through the candidate locales: the
exact locale, its bare language, the other entries of the preference list,
then English. Without flags the preference comes from the configuration
file or from LANGUAGE, LC_ALL, LC_MESSAGES and LANG.`,
		Example: `  apkident localize index-v1.json org.fdroid.fdroid --locale de-AT
  apkident localize index-v1.json org.fdroid.fdroid --locales fr-CA,de
  apkident localize index-v1.json org.fdroid.fdroid --locale pt-BR --single-locale`,
		Args: cobra.ExactArgs(2),
		RunE: runLocalize,
	}
)

func init() {
	localizeCmd.Flags().StringVar(&localizeLocale, "locale", "", "primary locale (e.g. de-AT)")
	localizeCmd.Flags().StringSliceVar(&localizeLocales, "locales", nil, "ordered locale preference list")
	localizeCmd.Flags().BoolVar(&localizeSingleLocale, "single-locale", false, "use the single-locale fallback policy")
	localizeCmd.Flags().BoolVar(&localizeJSON, "json", false, "print the result as JSON")
}

func runLocalize(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	idx, err := catalog.ReadFile(args[0])
	if err != nil {
		return err
	}

	app, ok := idx.App(args[1])
	if !ok {
		return fmt.Errorf("package %s not found in %s", args[1], args[0])
	}

	pref := cfg.Preference(os.Getenv)
	if localizeLocale != "" || len(localizeLocales) > 0 {
		pref = locale.ParsePreference(localizeLocale, localizeLocales...)
		if pref.Primary == "" && len(pref.List) > 0 {
			pref.Primary = pref.List[0]
		}
	}
	era := cfg.Era()
	if localizeSingleLocale {
		era = locale.SingleLocale
	}

	logger.Debug("Resolving localized metadata", "package", app.PackageName, "primary", pref.Primary, "era", era.String())
	l := app.Resolve(pref, era)

	out := cmd.OutOrStdout()
	if localizeJSON {
		data, err := json.MarshalIndent(l, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal localized metadata: %w", err)
		}
		fmt.Fprintln(out, string(data))
		return nil
	}

	fmt.Fprint(out, output.RenderLocalized(app.PackageName, l))
	return nil
}
