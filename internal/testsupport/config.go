package testsupport

import (
	"path/filepath"
	"testing"

	"pipeline/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	cfg *config.Config
}

// NewConfig produces a config rooted in a unique temp directory per test.
// Project logs are disabled and history is off unless an option turns it on.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Project.DefaultRoot = filepath.Join(base, "project")
	cfgVal.Logging.ProjectLog = false
	cfgVal.History.Enabled = false

	builder := &configBuilder{cfg: &cfgVal}

	for _, opt := range opts {
		opt(builder)
	}

	return builder.cfg
}

// WithHistory enables the save history database.
func WithHistory(maxEntries int) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.History.Enabled = true
		b.cfg.History.MaxEntries = maxEntries
	}
}

// WithEngines limits the enabled script engines.
func WithEngines(engines ...string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Scripts.EnabledEngines = append([]string(nil), engines...)
	}
}
