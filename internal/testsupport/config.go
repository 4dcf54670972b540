package testsupport

import (
	"path/filepath"
	"testing"

	"clipkeeper/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.DataDir = filepath.Join(base, "data")
	cfgVal.Paths.RecordingsDir = filepath.Join(base, "recordings")
	cfgVal.Paths.StagingDir = filepath.Join(base, "staging")
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.Server.Bind = "127.0.0.1:0"
	cfgVal.Server.UploadDir = filepath.Join(base, "server", "uploads")
	cfgVal.Server.DatabasePath = filepath.Join(base, "server", "dataset.db")
	cfgVal.Capture.MinFreeMiB = 0

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

// WithIngestURL points the ingest client at url.
func WithIngestURL(url string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Ingest.BaseURL = url
	}
}

// WithBackend selects the capture backend.
func WithBackend(kind string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Capture.Backend = kind
	}
}

// WithPublicDir sets the server's static asset directory.
func WithPublicDir(dir string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Server.PublicDir = dir
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.DataDir)
}
