package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.VCS.Binary != "git" {
		t.Errorf("expected git binary, got %s", cfg.VCS.Binary)
	}
	if cfg.Escalation.Backend != "memory" {
		t.Errorf("expected memory backend, got %s", cfg.Escalation.Backend)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config should validate: %v", err)
	}
}

func TestLoad_MissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Name != "accord" {
		t.Errorf("expected defaults, got name %q", cfg.Name)
	}
}

func TestLoad_FileOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	body := `
vcs:
  binary: git
  default_timeout: 5s
escalation:
  backend: sqlite
  database_path: /tmp/esc.db
  diff_excerpt_limit: 500
channels:
  primary: github
  github:
    repo: example/repo
`
	if err := os.WriteFile(path, []byte(body), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Escalation.Backend != "sqlite" {
		t.Errorf("backend = %s", cfg.Escalation.Backend)
	}
	if cfg.Channels.GitHub.Repo != "example/repo" {
		t.Errorf("repo = %s", cfg.Channels.GitHub.Repo)
	}
	if got := cfg.GetVCSTimeout(); got != 5*time.Second {
		t.Errorf("timeout = %v", got)
	}
	// Unset sections keep defaults
	if cfg.Strategy.StorePath != ".accord/strategy_stats.json" {
		t.Errorf("store path = %s", cfg.Strategy.StorePath)
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("ACCORD_ESCALATION_DB", "/tmp/override.db")
	t.Setenv("ACCORD_CHANNEL", "github")

	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Escalation.DatabasePath != "/tmp/override.db" {
		t.Errorf("database path = %s", cfg.Escalation.DatabasePath)
	}
	if cfg.Escalation.Backend != "sqlite" {
		t.Errorf("env db override should force sqlite backend, got %s", cfg.Escalation.Backend)
	}
	if cfg.Channels.Primary != "github" {
		t.Errorf("channel = %s", cfg.Channels.Primary)
	}
}

func TestValidate_Rejects(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Escalation.Backend = "postgres"
	if err := cfg.Validate(); err == nil {
		t.Error("expected error for unknown backend")
	}

	cfg = DefaultConfig()
	cfg.Channels.Primary = "carrier-pigeon"
	if err := cfg.Validate(); err == nil {
		t.Error("expected error for unknown channel")
	}

	cfg = DefaultConfig()
	cfg.Resolver.MinSampleSize = 0
	if err := cfg.Validate(); err == nil {
		t.Error("expected error for zero sample size")
	}
}

func TestSaveRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "sub", "config.yaml")

	cfg := DefaultConfig()
	cfg.Channels.GitHub.Repo = "example/saved"
	if err := cfg.Save(path); err != nil {
		t.Fatalf("Save: %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if loaded.Channels.GitHub.Repo != "example/saved" {
		t.Errorf("round trip lost repo, got %q", loaded.Channels.GitHub.Repo)
	}
}
