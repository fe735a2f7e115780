package app

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/blackwell-systems/apkident/internal/archive"
	"github.com/blackwell-systems/apkident/internal/fingerprint"
)

var fingerprintCmd = &cobra.Command{
	Use:   "fingerprint <archive>...",
	Short: "Print the legacy signer fingerprint of archives",
	Long: `Print the legacy signer fingerprint of each archive: 32 uppercase hex
characters derived from the signer certificate, as published in the "sig"
field of repository indexes.

Archives that cannot be read or carry no signature are reported on stderr
and the command exits with an error after processing the rest.`,
	Example: `  apkident fingerprint app.apk
  apkident fingerprint /data/app/*.apk`,
	Args: cobra.MinimumNArgs(1),
	RunE: runFingerprint,
}

func runFingerprint(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	failed := 0

	for _, path := range args {
		cert, err := archive.ExtractSignerCertificate(path)
		if err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "%s: %v\n", path, err)
			failed++
			continue
		}
		fmt.Fprintf(out, "%s  %s\n", fingerprint.Legacy(cert), path)
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d archives could not be fingerprinted", failed, len(args))
	}
	return nil
}
