package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func runCommand(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestStepsCommand(t *testing.T) {
	out, err := runCommand(t, "steps")
	if err != nil {
		t.Fatalf("steps: %v", err)
	}
	for _, name := range []string{"identify", "indexer_search", "decide"} {
		if !strings.Contains(out, name) {
			t.Errorf("steps output missing %q:\n%s", name, out)
		}
	}
}

func TestStepsCommandJSON(t *testing.T) {
	out, err := runCommand(t, "steps", "--json")
	if err != nil {
		t.Fatalf("steps --json: %v", err)
	}

	var infos []struct {
		Name       string `json:"name"`
		SideEffect bool   `json:"side_effect"`
	}
	if err := json.Unmarshal([]byte(out), &infos); err != nil {
		t.Fatalf("steps --json emitted invalid JSON: %v\n%s", err, out)
	}
	sideEffect := false
	for _, info := range infos {
		if info.SideEffect {
			sideEffect = true
		}
	}
	if !sideEffect {
		t.Error("no step reported as a side effect")
	}
}

func TestConfigInitCommand(t *testing.T) {
	target := filepath.Join(t.TempDir(), "config.toml")

	out, err := runCommand(t, "config", "init", "--path", target)
	if err != nil {
		t.Fatalf("config init: %v", err)
	}
	if !strings.Contains(out, "Wrote default configuration") {
		t.Errorf("unexpected output:\n%s", out)
	}
	if _, err := os.Stat(target); err != nil {
		t.Fatalf("expected config file at %s: %v", target, err)
	}

	if _, err := runCommand(t, "config", "init", "--path", target); err == nil {
		t.Error("config init overwrote an existing file without --overwrite")
	}
	if _, err := runCommand(t, "config", "init", "--path", target, "--overwrite"); err != nil {
		t.Errorf("config init --overwrite: %v", err)
	}
}

func TestConfigValidateCommand(t *testing.T) {
	target := filepath.Join(t.TempDir(), "config.toml")
	if _, err := runCommand(t, "config", "init", "--path", target); err != nil {
		t.Fatalf("config init: %v", err)
	}

	out, err := runCommand(t, "--config", target, "config", "validate")
	if err != nil {
		t.Fatalf("config validate: %v\n%s", err, out)
	}
	if !strings.Contains(out, "Configuration valid") {
		t.Errorf("unexpected output:\n%s", out)
	}
}

func TestConfigValidateCommandReportsProviderKeys(t *testing.T) {
	target := filepath.Join(t.TempDir(), "config.toml")
	if _, err := runCommand(t, "config", "init", "--path", target); err != nil {
		t.Fatalf("config init: %v", err)
	}

	out, err := runCommand(t, "--config", target, "config", "validate")
	if err != nil {
		t.Fatalf("config validate: %v\n%s", err, out)
	}
	if !strings.Contains(out, "indexer: indexer.api_key is not set") {
		t.Errorf("provider credential warnings missing from output:\n%s", out)
	}
}
