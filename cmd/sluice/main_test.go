package main

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// writeCLIConfig installs a minimal valid config under a temp HOME and
// returns its path.
func writeCLIConfig(t *testing.T) string {
	t.Helper()

	base := t.TempDir()
	home := filepath.Join(base, "home")
	if err := os.MkdirAll(home, 0o755); err != nil {
		t.Fatal(err)
	}
	t.Setenv("HOME", home)

	configPath := filepath.Join(home, ".config", "sluice", "config.toml")
	if err := os.MkdirAll(filepath.Dir(configPath), 0o755); err != nil {
		t.Fatal(err)
	}

	body := fmt.Sprintf(`[paths]
staging_dir = %q
output_dir = %q
log_dir = %q

[selector]
targets = ["alpha", "beta"]

[browser]
page_url_template = "https://live.example.com/watch/%%s"
`,
		filepath.Join(base, "staging"),
		filepath.Join(base, "output"),
		filepath.Join(base, "logs"),
	)
	if err := os.WriteFile(configPath, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return configPath
}

func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return stdout.String(), err
}

func requireContains(t *testing.T, output, want string) {
	t.Helper()
	if !strings.Contains(output, want) {
		t.Fatalf("expected output to contain %q, got:\n%s", want, output)
	}
}

func TestConfigInitAndValidate(t *testing.T) {
	writeCLIConfig(t)

	out, err := runCLI(t, "config", "validate")
	if err != nil {
		t.Fatalf("config validate: %v", err)
	}
	requireContains(t, out, "Configuration valid")

	target := filepath.Join(t.TempDir(), "config.toml")
	out, err = runCLI(t, "config", "init", "--path", target)
	if err != nil {
		t.Fatalf("config init: %v", err)
	}
	requireContains(t, out, "Wrote sample configuration")

	if _, err := os.Stat(target); err != nil {
		t.Fatalf("expected config file at %s: %v", target, err)
	}

	// A second init without --overwrite must refuse to clobber the file.
	if _, err := runCLI(t, "config", "init", "--path", target); err == nil {
		t.Fatal("expected error when config already exists")
	}
	if _, err := runCLI(t, "config", "init", "--path", target, "--overwrite"); err != nil {
		t.Fatalf("config init --overwrite: %v", err)
	}
}

func TestConfigShowPrintsEffectiveSettings(t *testing.T) {
	writeCLIConfig(t)

	out, err := runCLI(t, "config", "show")
	if err != nil {
		t.Fatalf("config show: %v", err)
	}
	requireContains(t, out, "static (alpha, beta)")
	requireContains(t, out, "https://live.example.com/watch/%s")
	requireContains(t, out, "Upload enabled:    no")
}

func TestJobsWithEmptyCatalog(t *testing.T) {
	writeCLIConfig(t)

	out, err := runCLI(t, "jobs")
	if err != nil {
		t.Fatalf("jobs: %v", err)
	}
	requireContains(t, out, "No artifacts recorded")
}

func TestReassembleRejectsMissingDirectory(t *testing.T) {
	writeCLIConfig(t)

	if _, err := runCLI(t, "reassemble", filepath.Join(t.TempDir(), "nope")); err == nil {
		t.Fatal("expected error for missing session directory")
	}
}

func TestTestNotifyWithoutTopic(t *testing.T) {
	writeCLIConfig(t)

	out, err := runCLI(t, "test-notify")
	if err != nil {
		t.Fatalf("test-notify: %v", err)
	}
	requireContains(t, out, "Notifications are not configured")
}

func TestReassembleReusesStagedArtifact(t *testing.T) {
	writeCLIConfig(t)

	staging := t.TempDir()
	dir := filepath.Join(staging, "alpha-deadbeef")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "00000000_1.ts"), []byte("seg"), 0o644); err != nil {
		t.Fatal(err)
	}
	// An earlier run staged the artifact but stopped before moving it.
	staged := "alpha-20260301-120000.mp4"
	if err := os.WriteFile(filepath.Join(staging, staged), []byte("artifact"), 0o644); err != nil {
		t.Fatal(err)
	}

	out, err := runCLI(t, "reassemble", dir)
	if err != nil {
		t.Fatalf("reassemble: %v", err)
	}
	requireContains(t, out, "(0 attempts)")
	requireContains(t, out, staged)
	if _, err := os.Stat(dir); !os.IsNotExist(err) {
		t.Fatalf("session directory should be cleaned up, stat err=%v", err)
	}
}
