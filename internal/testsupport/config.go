package testsupport

import (
	"os"
	"path/filepath"
	"testing"

	"sluice/internal/config"
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
	cfgVal.Paths.StagingDir = filepath.Join(base, "staging")
	cfgVal.Paths.OutputDir = filepath.Join(base, "output")
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.Selector.Targets = []string{"alpha"}
	cfgVal.Browser.PageURLTemplate = "https://live.example.com/watch/%s"
	cfgVal.Capture.RoundInterval = 0
	cfgVal.Capture.SettleSeconds = 0

	for _, dir := range []string{cfgVal.Paths.StagingDir, cfgVal.Paths.OutputDir, cfgVal.Paths.LogDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			t.Fatalf("mkdir %s: %v", dir, err)
		}
	}

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

// WithTargets replaces the static target list on the test config.
func WithTargets(targets ...string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Selector.Targets = targets
	}
}

// WithLanes sets the lane count on the test config.
func WithLanes(lanes int) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Capture.Lanes = lanes
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.StagingDir)
}
