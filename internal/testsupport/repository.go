package testsupport

import (
	"context"
	"testing"

	"annotcore/internal/config"
	"annotcore/internal/logging"
	"annotcore/internal/repository"
	"annotcore/internal/structure"
)

// MustCreateRepository creates a corpus at cfg's repository directory,
// declares levels and registers cleanup.
func MustCreateRepository(t testing.TB, cfg *config.Config, levels ...*structure.Level) *repository.Repository {
	t.Helper()

	repo, err := repository.Create(context.Background(), cfg.Paths.RepositoryDir, repository.Options{
		Name:          "test corpus",
		MediaDir:      cfg.Paths.MediaDir,
		DatastoreFile: cfg.Datastore.Filename,
		Logger:        logging.NewNop(),
	})
	if err != nil {
		t.Fatalf("repository.Create: %v", err)
	}
	t.Cleanup(func() {
		_ = repo.Close()
	})
	MustCreateLevels(t, repo, levels...)
	return repo
}
