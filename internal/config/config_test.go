package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg.Workspace != "~/.clai/workspace" {
		t.Errorf("Workspace = %q", cfg.Workspace)
	}
	if cfg.LogLevel != "info" {
		t.Errorf("LogLevel = %q, want info", cfg.LogLevel)
	}
	if cfg.Sandbox.TimeoutS != 30 {
		t.Errorf("TimeoutS = %d, want 30", cfg.Sandbox.TimeoutS)
	}
	if cfg.Sandbox.MaxOutputKB != 1024 {
		t.Errorf("MaxOutputKB = %d, want 1024", cfg.Sandbox.MaxOutputKB)
	}
	if cfg.Audit != nil {
		t.Error("Audit enabled by default, want nil")
	}
	if cfg.Observability != nil {
		t.Error("Observability enabled by default, want nil")
	}
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("Load on missing file: %v", err)
	}
	if cfg.Sandbox.TimeoutS != 30 {
		t.Errorf("TimeoutS = %d, want default 30", cfg.Sandbox.TimeoutS)
	}
}

func TestLoadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
log_level: debug
sandbox:
  timeout_s: 60
  max_output_kb: 256
  ignore_patterns:
    - "*.log"
audit:
  backend: sqlite
approval:
  auto_safe: true
observability:
  metrics:
    enabled: true
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.LogLevel != "debug" {
		t.Errorf("LogLevel = %q, want debug", cfg.LogLevel)
	}
	if cfg.Sandbox.TimeoutS != 60 {
		t.Errorf("TimeoutS = %d, want 60", cfg.Sandbox.TimeoutS)
	}
	if got := cfg.Timeout(); got != 60*time.Second {
		t.Errorf("Timeout() = %v, want 60s", got)
	}
	if got := cfg.MaxOutputBytes(); got != 256<<10 {
		t.Errorf("MaxOutputBytes() = %d, want %d", got, 256<<10)
	}
	if len(cfg.Sandbox.IgnorePatterns) != 1 || cfg.Sandbox.IgnorePatterns[0] != "*.log" {
		t.Errorf("IgnorePatterns = %v", cfg.Sandbox.IgnorePatterns)
	}
	if cfg.Audit == nil || cfg.Audit.Backend != "sqlite" {
		t.Errorf("Audit = %+v, want sqlite backend", cfg.Audit)
	}
	if !cfg.Approval.AutoSafe {
		t.Error("Approval.AutoSafe = false, want true")
	}
	if cfg.Observability == nil || cfg.Observability.Metrics == nil {
		t.Fatal("Observability.Metrics = nil, want enabled")
	}
	// Defaults fill in what the file omits.
	if got := cfg.Observability.Metrics.Addr; got != "127.0.0.1:9464" {
		t.Errorf("Metrics.Addr = %q, want default", got)
	}
}

func TestLoadInvalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"bad yaml", "{{{"},
		{"bad audit backend", "audit:\n  backend: postgres\n"},
		{"bad log level", "log_level: loud\n"},
		{"negative timeout", "sandbox:\n  timeout_s: -5\n"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "config.yaml")
			if err := os.WriteFile(path, []byte(tc.content), 0o644); err != nil {
				t.Fatal(err)
			}
			if _, err := Load(path); err == nil {
				t.Error("Load succeeded, want error")
			}
		})
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("CLAI_WORKSPACE", "/custom/ws")
	t.Setenv("CLAI_LOG_LEVEL", "warn")
	t.Setenv("CLAI_TIMEOUT_S", "120")

	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Workspace != "/custom/ws" {
		t.Errorf("Workspace = %q, want /custom/ws", cfg.Workspace)
	}
	if cfg.LogLevel != "warn" {
		t.Errorf("LogLevel = %q, want warn", cfg.LogLevel)
	}
	if cfg.Sandbox.TimeoutS != 120 {
		t.Errorf("TimeoutS = %d, want 120", cfg.Sandbox.TimeoutS)
	}
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub", "config.yaml")

	cfg := Default()
	cfg.LogLevel = "debug"
	cfg.Audit = &AuditConfig{Backend: "file", JSON: true}
	if err := cfg.Save(path); err != nil {
		t.Fatalf("Save: %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if loaded.LogLevel != "debug" {
		t.Errorf("LogLevel = %q, want debug", loaded.LogLevel)
	}
	if loaded.Audit == nil || !loaded.Audit.JSON {
		t.Errorf("Audit = %+v, want file backend with JSON", loaded.Audit)
	}
}

func TestDefaultPathOverride(t *testing.T) {
	t.Setenv("CLAI_CONFIG", "/etc/clai/custom.yaml")
	if got := DefaultPath(); got != "/etc/clai/custom.yaml" {
		t.Errorf("DefaultPath() = %q, want CLAI_CONFIG value", got)
	}
}
