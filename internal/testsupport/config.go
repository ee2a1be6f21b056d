// Package testsupport provides shared helpers for package tests: temp-dir
// configs, store setup, and seeded fixture data.
package testsupport

import (
	"path/filepath"
	"testing"

	"duewatch/internal/config"
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
	cfg.Paths.LogDir = filepath.Join(base, "logs")
	cfg.Paths.APIBind = "127.0.0.1:0"
	cfg.Schedule.Timezone = "UTC"

	for _, opt := range opts {
		opt(&cfg)
	}

	if err := cfg.Validate(); err != nil {
		t.Fatalf("test config invalid: %v", err)
	}
	return &cfg
}

// WithThresholds overrides the dispatch thresholds on the test config.
func WithThresholds(days ...int) ConfigOption {
	return func(cfg *config.Config) {
		cfg.Dispatch.Thresholds = days
	}
}

// WithOperatorChannels sets the operator channel list on the test config.
func WithOperatorChannels(channels ...string) ConfigOption {
	return func(cfg *config.Config) {
		cfg.Dispatch.IncludeOperators = true
		cfg.Dispatch.OperatorChannels = channels
	}
}

// WithRemote points the remote section at a test server.
func WithRemote(baseURL string) ConfigOption {
	return func(cfg *config.Config) {
		cfg.Remote.Enabled = true
		cfg.Remote.BaseURL = baseURL
		cfg.Remote.Username = "test"
		cfg.Remote.Password = "test"
	}
}
