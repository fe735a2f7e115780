package app

import (
	"strings"
	"testing"
)

func TestRootCommand(t *testing.T) {
	if RootCmd.Use != "apkident" {
		t.Errorf("expected Use to be 'apkident', got '%s'", RootCmd.Use)
	}
	if RootCmd.Short == "" {
		t.Error("expected Short description to be set")
	}
	if RootCmd.Long == "" {
		t.Error("expected Long description to be set")
	}
}

func TestRootCommandHasSubcommands(t *testing.T) {
	found := make(map[string]bool)
	for _, cmd := range RootCmd.Commands() {
		found[cmd.Name()] = true
	}

	for _, expected := range []string{
		"scan", "show", "fingerprint", "localize", "check", "status", "export", "watch", "clean",
	} {
		if !found[expected] {
			t.Errorf("expected command '%s' to be registered", expected)
		}
	}
}

func TestRootCommandHasPersistentFlags(t *testing.T) {
	for _, name := range []string{"db", "config-dir", "verbose"} {
		flag := RootCmd.PersistentFlags().Lookup(name)
		if flag == nil {
			t.Errorf("expected --%s flag to be registered", name)
			continue
		}
		if flag.Usage == "" {
			t.Errorf("expected --%s flag to have usage text", name)
		}
	}
}

func TestRootCommandRun(t *testing.T) {
	env := newTestEnv(t)

	out, _, err := env.run(t)
	if err != nil {
		t.Fatalf("root command failed: %v", err)
	}
	if !strings.Contains(out, "apkident scan <dir>") {
		t.Errorf("fresh setup should point at scan, got:\n%s", out)
	}
}

func TestCommandsHaveHelpText(t *testing.T) {
	for _, cmd := range RootCmd.Commands() {
		if cmd.Name() == "help" || cmd.Name() == "completion" {
			continue
		}
		t.Run(cmd.Name(), func(t *testing.T) {
			if cmd.Short == "" {
				t.Error("expected Short description to be set")
			}
			if cmd.Long == "" {
				t.Error("expected Long description to be set")
			}
			if cmd.Example == "" {
				t.Error("expected Example to be set")
			}
			if cmd.RunE == nil {
				t.Error("expected RunE to be set")
			}
		})
	}
}

func TestInvalidConfig(t *testing.T) {
	env := newTestEnv(t)
	env.writeConfig(t, "hash_type: crc32\n")

	_, _, err := env.run(t, "status")
	if err == nil || !strings.Contains(err.Error(), "invalid configuration") {
		t.Errorf("expected invalid configuration error, got %v", err)
	}
}
