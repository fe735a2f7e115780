package app

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/blackwell-systems/apkident/internal/archive/archivetest"
	"github.com/blackwell-systems/apkident/internal/axml/axmltest"
)

// resetFlags restores every flag of cmd and its subcommands to its default
// so that package-level flag variables do not leak between tests.
func resetFlags(cmd *cobra.Command) {
	reset := func(f *pflag.Flag) {
		if sv, ok := f.Value.(pflag.SliceValue); ok {
			_ = sv.Replace(nil)
		} else {
			_ = f.Value.Set(f.DefValue)
		}
		f.Changed = false
	}
	cmd.PersistentFlags().VisitAll(reset)
	cmd.Flags().VisitAll(reset)
	for _, c := range cmd.Commands() {
		resetFlags(c)
	}
}

// runCLI executes the root command with args and returns stdout and stderr.
func runCLI(t *testing.T, args ...string) (string, string, error) {
	t.Helper()

	resetFlags(RootCmd)
	t.Cleanup(func() { resetFlags(RootCmd) })

	var stdout, stderr bytes.Buffer
	RootCmd.SetOut(&stdout)
	RootCmd.SetErr(&stderr)
	RootCmd.SetArgs(args)
	t.Cleanup(func() {
		RootCmd.SetOut(nil)
		RootCmd.SetErr(nil)
		RootCmd.SetArgs(nil)
	})

	err := RootCmd.Execute()
	return stdout.String(), stderr.String(), err
}

// testEnv is an isolated config directory with an archive directory.
type testEnv struct {
	configDir  string
	archiveDir string
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	for _, key := range []string{"APKIDENT_DB", "APKIDENT_STORAGE_ROOT", "APKIDENT_LOCALE"} {
		t.Setenv(key, "")
	}

	root := t.TempDir()
	env := &testEnv{
		configDir:  filepath.Join(root, "config"),
		archiveDir: filepath.Join(root, "apks"),
	}
	if err := os.MkdirAll(env.archiveDir, 0755); err != nil {
		t.Fatalf("Failed to create archive dir: %v", err)
	}
	return env
}

// run executes a command against the environment's config directory.
func (e *testEnv) run(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	return runCLI(t, append(args, "--config-dir", e.configDir)...)
}

func (e *testEnv) writeConfig(t *testing.T, content string) {
	t.Helper()
	if err := os.MkdirAll(e.configDir, 0755); err != nil {
		t.Fatalf("Failed to create config dir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(e.configDir, "config.yaml"), []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}
}

// writeApp writes an archive for pkg into the archive directory.
func (e *testEnv) writeApp(t *testing.T, name, pkg string, versionCode int32, opts archivetest.Options) string {
	t.Helper()
	path := filepath.Join(e.archiveDir, name)
	opts.Manifest = axmltest.Manifest(axmltest.ManifestSpec{
		Package:     pkg,
		VersionCode: versionCode,
		VersionName: "1.0",
		MinSDK:      21,
		TargetSDK:   33,
	})
	if opts.Entries == nil {
		opts.Entries = map[string][]byte{"classes.dex": []byte(pkg)}
	}
	archivetest.Write(t, path, opts)
	return path
}
