package logging

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeConfig(t *testing.T, dir, body string) {
	t.Helper()
	cfgDir := filepath.Join(dir, ".accord")
	if err := os.MkdirAll(cfgDir, 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(cfgDir, "config.yaml"), []byte(body), 0644); err != nil {
		t.Fatal(err)
	}
}

func resetState() {
	Close()
	workspace = ""
	logsDir = ""
	config = loggingConfig{}
	logLevel = LevelInfo
}

func TestInitialize_NoConfigIsSilent(t *testing.T) {
	defer resetState()
	dir := t.TempDir()

	if err := Initialize(dir); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	if IsDebugMode() {
		t.Error("expected debug mode off without config")
	}

	// No logs directory should be created
	if _, err := os.Stat(filepath.Join(dir, ".accord", "logs")); !os.IsNotExist(err) {
		t.Error("logs directory should not exist in production mode")
	}

	// Logging should be a no-op, not a panic
	Resolver("this goes nowhere")
}

func TestInitialize_DebugModeWritesFiles(t *testing.T) {
	defer resetState()
	dir := t.TempDir()
	writeConfig(t, dir, "logging:\n  debug_mode: true\n  level: debug\n")

	if err := Initialize(dir); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	if !IsDebugMode() {
		t.Fatal("expected debug mode on")
	}

	Escalation("escalation %s created", "esc-1")
	Close()

	entries, err := os.ReadDir(filepath.Join(dir, ".accord", "logs"))
	if err != nil {
		t.Fatalf("reading logs dir: %v", err)
	}
	found := false
	for _, e := range entries {
		if strings.Contains(e.Name(), "escalation") {
			found = true
			data, _ := os.ReadFile(filepath.Join(dir, ".accord", "logs", e.Name()))
			if !strings.Contains(string(data), "esc-1 created") {
				t.Errorf("log file missing message, got: %s", data)
			}
		}
	}
	if !found {
		t.Error("expected an escalation log file")
	}
}

func TestCategoryFilter(t *testing.T) {
	defer resetState()
	dir := t.TempDir()
	writeConfig(t, dir, "logging:\n  debug_mode: true\n  categories:\n    vcs: false\n    resolver: true\n")

	if err := Initialize(dir); err != nil {
		t.Fatalf("Initialize: %v", err)
	}

	if IsCategoryEnabled(CategoryVCS) {
		t.Error("vcs should be disabled")
	}
	if !IsCategoryEnabled(CategoryResolver) {
		t.Error("resolver should be enabled")
	}
	// Unlisted categories default on
	if !IsCategoryEnabled(CategoryPorter) {
		t.Error("unlisted category should default to enabled")
	}
}

func TestTimerStopDoesNotPanicWhenDisabled(t *testing.T) {
	defer resetState()
	timer := StartTimer(CategoryResolver, "noop")
	timer.Stop()
	timer2 := StartTimer(CategoryVCS, "noop2")
	timer2.StopWithThreshold(0)
}
