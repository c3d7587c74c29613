package testsupport

import (
	"path/filepath"
	"testing"

	"annotcore/internal/config"
)

// NewConfig returns a valid config rooted in a fresh temp directory:
// corpus/ for the repository, corpus/media and logs/. Each mutate func runs
// before validation.
func NewConfig(t testing.TB, mutate ...func(*config.Config)) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfg := config.Default()
	cfg.Paths.RepositoryDir = filepath.Join(base, "corpus")
	cfg.Paths.MediaDir = filepath.Join(cfg.Paths.RepositoryDir, "media")
	cfg.Paths.LogDir = filepath.Join(base, "logs")
	cfg.Batch.YieldEvery = 1
	for _, fn := range mutate {
		fn(&cfg)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("test config invalid: %v", err)
	}
	return &cfg
}
