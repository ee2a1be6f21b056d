package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"duewatch/internal/config"
)

func writeConfig(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadAppliesDefaults(t *testing.T) {
	path := writeConfig(t, "")

	cfg, resolved, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if !exists || resolved != path {
		t.Fatalf("expected resolved=%s exists=true, got %s %v", path, resolved, exists)
	}
	if got := cfg.Schedule.CheckTime; got != "09:00" {
		t.Errorf("default check_time = %q", got)
	}
	if got := cfg.Dispatch.Thresholds; len(got) != 3 || got[0] != 14 || got[1] != 7 || got[2] != 3 {
		t.Errorf("default thresholds = %v", got)
	}
	if !filepath.IsAbs(cfg.Paths.DataDir) {
		t.Errorf("data_dir not absolute: %q", cfg.Paths.DataDir)
	}
	if !strings.HasSuffix(cfg.DatabasePath(), "duewatch.db") {
		t.Errorf("unexpected database path %q", cfg.DatabasePath())
	}
}

func TestLoadOverrides(t *testing.T) {
	path := writeConfig(t, `
[dispatch]
thresholds = [30, 10]
include_operators = true
operator_channels = ["100200300", "  ", "400500600"]

[schedule]
check_time = "07:30"
timezone = "UTC"
`)

	cfg, _, _, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if got := cfg.Dispatch.Thresholds; len(got) != 2 || got[0] != 30 || got[1] != 10 {
		t.Errorf("thresholds = %v", got)
	}
	if got := cfg.Dispatch.OperatorChannels; len(got) != 2 {
		t.Errorf("expected blank operator channels dropped, got %v", got)
	}
	hour, minute := cfg.CheckClock()
	if hour != 7 || minute != 30 {
		t.Errorf("CheckClock = %d:%d", hour, minute)
	}
	if cfg.Location().String() != "UTC" {
		t.Errorf("Location = %s", cfg.Location())
	}
}

func TestLoadRejectsBadCheckTime(t *testing.T) {
	path := writeConfig(t, `
[schedule]
check_time = "25:99"
`)
	if _, _, _, err := config.Load(path); err == nil {
		t.Fatal("expected error for invalid check_time")
	}
}

func TestLoadRejectsDuplicateThresholds(t *testing.T) {
	path := writeConfig(t, `
[dispatch]
thresholds = [7, 7]
operator_channels = ["1"]
`)
	if _, _, _, err := config.Load(path); err == nil {
		t.Fatal("expected error for duplicate thresholds")
	}
}

func TestLoadRejectsRemoteWithoutCredentials(t *testing.T) {
	path := writeConfig(t, `
[remote]
enabled = true
base_url = "http://localhost:8000"
`)
	if _, _, _, err := config.Load(path); err == nil {
		t.Fatal("expected error for remote without credentials")
	}
}
