package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeTestConfig(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	content := `
[paths]
data_dir = "` + filepath.Join(dir, "data") + `"
log_dir = "` + filepath.Join(dir, "logs") + `"
`
	path := filepath.Join(dir, "config.toml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func runCommand(t *testing.T, args ...string) string {
	t.Helper()
	cmd := newRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	if err := cmd.Execute(); err != nil {
		t.Fatalf("command %v failed: %v\n%s", args, err, out.String())
	}
	return out.String()
}

func TestStateGetAndSet(t *testing.T) {
	cfg := writeTestConfig(t)

	out := runCommand(t, "--config", cfg, "state", "get")
	for _, key := range []string{"max_feed_id", "rematch_request", "initial_setup"} {
		if !strings.Contains(out, key) {
			t.Fatalf("state listing missing %s:\n%s", key, out)
		}
	}

	out = runCommand(t, "--config", cfg, "state", "set", "max_feed_id", "120")
	if !strings.Contains(out, "max_feed_id: 0 -> 120") {
		t.Fatalf("set output: %s", out)
	}

	out = runCommand(t, "--config", cfg, "state", "get", "max_feed_id")
	if strings.TrimSpace(out) != "120" {
		t.Fatalf("get output: %q", out)
	}

	// Lowering the watermark is flagged as actionable.
	out = runCommand(t, "--config", cfg, "state", "set", "max_feed_id", "50")
	if !strings.Contains(out, "daemon will act") {
		t.Fatalf("regression not flagged: %s", out)
	}
}

func TestStateSetRejectsUnknownKey(t *testing.T) {
	cfg := writeTestConfig(t)
	cmd := newRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs([]string{"--config", cfg, "state", "set", "bogus", "1"})
	if err := cmd.Execute(); err == nil {
		t.Fatal("expected error for unknown state key")
	}
}

func TestRematchCommandBumpsCounter(t *testing.T) {
	cfg := writeTestConfig(t)

	out := runCommand(t, "--config", cfg, "rematch")
	if !strings.Contains(out, "counter 1") {
		t.Fatalf("rematch output: %s", out)
	}
	out = runCommand(t, "--config", cfg, "state", "get", "rematch_request")
	if strings.TrimSpace(out) != "1" {
		t.Fatalf("counter = %q", out)
	}
}

func TestConfigInit(t *testing.T) {
	target := filepath.Join(t.TempDir(), "nested", "tosho.toml")

	out := runCommand(t, "config", "init", "--path", target)
	if !strings.Contains(out, target) {
		t.Fatalf("init output: %s", out)
	}
	data, err := os.ReadFile(target)
	if err != nil {
		t.Fatalf("read sample: %v", err)
	}
	if !strings.Contains(string(data), "[feed]") {
		t.Fatal("sample missing [feed] section")
	}

	// A second init without --overwrite must refuse.
	cmd := newRootCommand()
	var buf bytes.Buffer
	cmd.SetOut(&buf)
	cmd.SetErr(&buf)
	cmd.SetArgs([]string{"config", "init", "--path", target})
	if err := cmd.Execute(); err == nil {
		t.Fatal("expected error for existing config file")
	}
}

func TestTorrentsListingEmpty(t *testing.T) {
	cfg := writeTestConfig(t)
	out := runCommand(t, "--config", cfg, "torrents")
	if !strings.Contains(out, "0 torrents") {
		t.Fatalf("torrents output: %s", out)
	}
}
