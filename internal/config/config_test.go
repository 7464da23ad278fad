package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"vividly/internal/config"
)

func TestDefaultValidates(t *testing.T) {
	cfg := config.Default()
	base := t.TempDir()
	cfg.Paths.DataDir = filepath.Join(base, "data")
	cfg.Paths.BlobDir = filepath.Join(base, "blobs")
	cfg.Paths.LogDir = filepath.Join(base, "logs")
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config should validate: %v", err)
	}
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	cfg, resolved, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if exists {
		t.Fatal("expected missing config to be reported")
	}
	if resolved == "" {
		t.Fatal("expected resolved path")
	}
	if cfg.Workers.Count != 2 {
		t.Fatalf("expected default worker count, got %d", cfg.Workers.Count)
	}
	if cfg.Pipeline.MaxStageAttempts != 3 {
		t.Fatalf("expected default stage attempts, got %d", cfg.Pipeline.MaxStageAttempts)
	}
}

func TestLoadParsesOverrides(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	content := `
[workers]
count = 4

[pipeline]
max_stage_attempts = 5

[guardrails]
blocked_terms = ["  Weapons ", "weapons", ""]

[logging]
format = "json"
level = "debug"
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, _, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !exists {
		t.Fatal("expected config file to be found")
	}
	if cfg.Workers.Count != 4 {
		t.Fatalf("expected worker count 4, got %d", cfg.Workers.Count)
	}
	if cfg.Pipeline.MaxStageAttempts != 5 {
		t.Fatalf("expected 5 attempts, got %d", cfg.Pipeline.MaxStageAttempts)
	}
	if len(cfg.Guardrails.BlockedTerms) != 1 || cfg.Guardrails.BlockedTerms[0] != "weapons" {
		t.Fatalf("expected deduplicated lowercase terms, got %v", cfg.Guardrails.BlockedTerms)
	}
	if cfg.Logging.Format != "json" {
		t.Fatalf("expected json format, got %q", cfg.Logging.Format)
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*config.Config)
	}{
		{"zero workers", func(c *config.Config) { c.Workers.Count = 0 }},
		{"zero attempts", func(c *config.Config) { c.Pipeline.MaxStageAttempts = 0 }},
		{"backoff max below base", func(c *config.Config) {
			c.Pipeline.RetryBackoffBase = 10
			c.Pipeline.RetryBackoffMax = 5
		}},
		{"heartbeat timeout too small", func(c *config.Config) {
			c.Workers.HeartbeatInterval = 30
			c.Workers.HeartbeatTimeout = 30
		}},
		{"bad confidence", func(c *config.Config) { c.Intent.ConfidenceThreshold = 1.5 }},
		{"bad log format", func(c *config.Config) { c.Logging.Format = "yaml" }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := config.Default()
			tc.mutate(&cfg)
			if err := cfg.Validate(); err == nil {
				t.Fatal("expected validation error")
			}
		})
	}
}
