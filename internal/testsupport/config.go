package testsupport

import (
	"path/filepath"
	"testing"

	"vividly/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*config.Config)

// NewConfig produces a config seeded with unique temp directories per test.
// It defaults common fields and applies any provided options.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfg := config.Default()
	cfg.Paths.DataDir = filepath.Join(base, "data")
	cfg.Paths.BlobDir = filepath.Join(base, "blobs")
	cfg.Paths.LogDir = filepath.Join(base, "logs")
	cfg.Paths.APIBind = "127.0.0.1:0"
	cfg.LLM.APIKey = "test"
	cfg.Workers.Count = 1

	for _, opt := range opts {
		opt(&cfg)
	}

	return &cfg
}

// WithGuardrailTerms sets blocked and flagged keyword lists on the test config.
func WithGuardrailTerms(blocked, flagged []string) ConfigOption {
	return func(cfg *config.Config) {
		cfg.Guardrails.BlockedTerms = blocked
		cfg.Guardrails.FlaggedTerms = flagged
	}
}

// WithMaxStageAttempts overrides the per-stage attempt budget.
func WithMaxStageAttempts(attempts int) ConfigOption {
	return func(cfg *config.Config) {
		cfg.Pipeline.MaxStageAttempts = attempts
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.DataDir)
}
