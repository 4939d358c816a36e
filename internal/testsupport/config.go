package testsupport

import (
	"path/filepath"
	"testing"

	"filingsync/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// It defaults common fields and applies any provided options.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.DataDir = filepath.Join(base, "filings")
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.Paths.RegistryFile = filepath.Join(base, "entities.toml")
	cfgVal.Sync.Workers = 2
	cfgVal.Logging.Format = "json"

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}

	for _, opt := range opts {
		opt(builder)
	}

	return builder.cfg
}

// WithWorkers overrides the worker count on the test config.
func WithWorkers(n int) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Sync.Workers = n
	}
}

// WithFetchCommand sets the external fetch command template.
func WithFetchCommand(command string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Sync.FetchCommand = command
	}
}

// WithRegistry writes contents to the registry file and points the config at
// it. The file name decides the format (.toml or .csv).
func WithRegistry(name, contents string) ConfigOption {
	return func(b *configBuilder) {
		path := filepath.Join(b.baseDir, name)
		writeBytes(b.t, path, []byte(contents))
		b.cfg.Paths.RegistryFile = path
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.DataDir)
}
