// Package config handles loading and validating CLAI configuration.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration for CLAI.
type Config struct {
	Workspace     string               `json:"workspace,omitempty" yaml:"workspace,omitempty"` // Runtime dir root. Default: ~/.clai/workspace. Override: CLAI_WORKSPACE env var.
	LogLevel      string               `json:"log_level,omitempty" yaml:"log_level,omitempty"` // "debug", "info" (default), "warn", "error".
	Sandbox       SandboxConfig        `json:"sandbox" yaml:"sandbox"`
	Audit         *AuditConfig         `json:"audit,omitempty" yaml:"audit,omitempty"` // nil = audit logging disabled
	Approval      ApprovalConfig       `json:"approval" yaml:"approval"`
	Observability *ObservabilityConfig `json:"observability,omitempty" yaml:"observability,omitempty"` // nil = observability disabled
}

// SandboxConfig bounds command execution and tree filtering.
type SandboxConfig struct {
	TimeoutS       int      `json:"timeout_s" yaml:"timeout_s"`             // Per-command wall clock limit. Default: 30.
	MaxOutputKB    int      `json:"max_output_kb" yaml:"max_output_kb"`     // Cap on each of stdout/stderr. Default: 1024.
	IgnorePatterns []string `json:"ignore_patterns" yaml:"ignore_patterns"` // Extra glob patterns on top of the built-in set.
}

// AuditConfig selects the audit sink backend.
type AuditConfig struct {
	Backend string `json:"backend" yaml:"backend"`               // "file" (default) or "sqlite".
	Path    string `json:"path,omitempty" yaml:"path,omitempty"` // Override location. Default: derived from workspace.
	JSON    bool   `json:"json" yaml:"json"`                     // File backend only: JSONL instead of human-readable.
}

// ApprovalConfig controls the interactive approval flow.
type ApprovalConfig struct {
	AutoSafe bool `json:"auto_safe" yaml:"auto_safe"` // Skip the execution prompt for read-only plan intents.
}

// ObservabilityConfig configures metrics and tracing.
// When nil, both are disabled with zero overhead.
type ObservabilityConfig struct {
	Metrics *MetricsConfig `json:"metrics,omitempty" yaml:"metrics,omitempty"`
	Tracing *TracingConfig `json:"tracing,omitempty" yaml:"tracing,omitempty"`
}

// MetricsConfig configures Prometheus metrics exposition.
type MetricsConfig struct {
	Enabled bool   `json:"enabled" yaml:"enabled"`
	Addr    string `json:"addr" yaml:"addr"` // Default: "127.0.0.1:9464".
	Path    string `json:"path" yaml:"path"` // Default: "/metrics".
}

// TracingConfig configures OTLP trace export.
type TracingConfig struct {
	Enabled     bool    `json:"enabled" yaml:"enabled"`
	ServiceName string  `json:"service_name" yaml:"service_name"` // Default: "clai".
	Endpoint    string  `json:"endpoint" yaml:"endpoint"`         // OTLP collector endpoint (host:port).
	Protocol    string  `json:"protocol" yaml:"protocol"`         // "grpc" (default) or "http".
	Insecure    bool    `json:"insecure" yaml:"insecure"`
	SampleRate  float64 `json:"sample_rate" yaml:"sample_rate"` // Default: 1.0.
}

// Default returns a Config with all defaults applied and no optional
// features enabled.
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

// Load reads a YAML config file, applies defaults, and applies CLAI_*
// environment overrides. A missing file yields the default config.
func Load(path string) (*Config, error) {
	cfg := &Config{}

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config %s: %w", path, err)
		}
	case os.IsNotExist(err):
		// No config file is fine; run on defaults.
	default:
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}

	cfg.applyDefaults()
	cfg.applyEnv()

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// DefaultPath returns ~/.clai/config.yaml, overridable via CLAI_CONFIG.
func DefaultPath() string {
	if p := os.Getenv("CLAI_CONFIG"); p != "" {
		return p
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "config.yaml"
	}
	return filepath.Join(home, ".clai", "config.yaml")
}

// Save writes the config as YAML, creating parent directories.
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return fmt.Errorf("creating config dir: %w", err)
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}

// Timeout returns the per-command timeout as a duration.
func (c *Config) Timeout() time.Duration {
	return time.Duration(c.Sandbox.TimeoutS) * time.Second
}

// MaxOutputBytes returns the output cap in bytes.
func (c *Config) MaxOutputBytes() int {
	return c.Sandbox.MaxOutputKB << 10
}

func (c *Config) applyDefaults() {
	if c.Workspace == "" {
		c.Workspace = "~/.clai/workspace"
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.Sandbox.TimeoutS == 0 {
		c.Sandbox.TimeoutS = 30
	}
	if c.Sandbox.MaxOutputKB == 0 {
		c.Sandbox.MaxOutputKB = 1024
	}
	if c.Audit != nil && c.Audit.Backend == "" {
		c.Audit.Backend = "file"
	}
	if c.Observability != nil {
		if m := c.Observability.Metrics; m != nil {
			if m.Addr == "" {
				m.Addr = "127.0.0.1:9464"
			}
			if m.Path == "" {
				m.Path = "/metrics"
			}
		}
		if t := c.Observability.Tracing; t != nil {
			if t.ServiceName == "" {
				t.ServiceName = "clai"
			}
			if t.Protocol == "" {
				t.Protocol = "grpc"
			}
			if t.SampleRate <= 0 {
				t.SampleRate = 1.0
			}
		}
	}
}

func (c *Config) applyEnv() {
	if v := os.Getenv("CLAI_WORKSPACE"); v != "" {
		c.Workspace = v
	}
	if v := os.Getenv("CLAI_LOG_LEVEL"); v != "" {
		c.LogLevel = v
	}
	if v := os.Getenv("CLAI_TIMEOUT_S"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.Sandbox.TimeoutS = n
		}
	}
}

func (c *Config) validate() error {
	if c.Sandbox.TimeoutS < 0 {
		return fmt.Errorf("sandbox.timeout_s must not be negative")
	}
	if c.Sandbox.MaxOutputKB < 0 {
		return fmt.Errorf("sandbox.max_output_kb must not be negative")
	}
	if c.Audit != nil {
		switch c.Audit.Backend {
		case "file", "sqlite":
		default:
			return fmt.Errorf("audit.backend must be \"file\" or \"sqlite\", got %q", c.Audit.Backend)
		}
	}
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log_level must be one of debug, info, warn, error; got %q", c.LogLevel)
	}
	return nil
}
