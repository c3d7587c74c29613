package repository

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"
	"github.com/google/uuid"

	"annotcore/internal/corpuserr"
	"annotcore/internal/datastore"
	"annotcore/internal/datastore/sqlstore"
	"annotcore/internal/logging"
	"annotcore/internal/structure"
)

const lockFile = ".lock"

// ErrLocked is reported when another process holds the repository.
var ErrLocked = errors.New("repository is locked by another process")

// noCopy marks Repository as not copyable for go vet's copylocks check.
type noCopy struct{}

func (*noCopy) Lock()   {}
func (*noCopy) Unlock() {}

// Options configures Create.
type Options struct {
	Name        string
	Description string
	// MediaDir overrides the media base path; relative paths are resolved
	// against the repository directory.
	MediaDir      string
	DatastoreFile string
	Logger        *slog.Logger
}

// Repository is an open corpus.
type Repository struct {
	noCopy noCopy

	dir    string
	def    Definition
	lock   *flock.Flock
	logger *slog.Logger

	annotations *sqlstore.Store
	metadata    *sqlstore.MetadataStore
	structure   *structure.AnnotationStructure
	metaStruct  *structure.MetadataStructure
	files       Files
}

// Create initialises a new corpus in dir, creating the directory when
// needed. It fails with a schema conflict when dir already holds a corpus.
func Create(ctx context.Context, dir string, opts Options) (*Repository, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("resolve repository dir: %w", err)
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, corpuserr.IO("create repository", err)
	}
	if _, err := os.Stat(filepath.Join(abs, DefinitionFile)); err == nil {
		return nil, corpuserr.SchemaConflict("repository "+abs, "a corpus already exists")
	} else if !errors.Is(err, fs.ErrNotExist) {
		return nil, corpuserr.IO("create repository", err)
	}

	lock, err := acquireLock(abs)
	if err != nil {
		return nil, err
	}
	def := Definition{
		ID:            uuid.NewString(),
		Name:          opts.Name,
		Description:   opts.Description,
		Created:       time.Now().UTC().Truncate(time.Second),
		BasePathMedia: opts.MediaDir,
		Datastore:     DatastoreDefinition{File: opts.DatastoreFile},
	}
	if def.Name == "" {
		def.Name = filepath.Base(abs)
	}
	def.normalize()
	if err := def.validate(); err != nil {
		_ = lock.Unlock()
		return nil, err
	}
	if err := writeDefinition(abs, def); err != nil {
		_ = lock.Unlock()
		return nil, err
	}
	r, err := open(ctx, abs, def, lock, opts.Logger)
	if err != nil {
		_ = os.Remove(filepath.Join(abs, DefinitionFile))
		return nil, err
	}
	if err := os.MkdirAll(r.files.Base(), 0o755); err != nil {
		_ = r.Close()
		_ = os.Remove(filepath.Join(abs, DefinitionFile))
		return nil, corpuserr.IO("create media directory", err)
	}
	r.logger.Info("repository created", logging.String("path", abs), logging.String("id", def.ID))
	return r, nil
}

// Open opens the corpus stored in dir. It fails with a not-found error when
// dir holds no corpus definition.
func Open(ctx context.Context, dir string, logger *slog.Logger) (*Repository, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("resolve repository dir: %w", err)
	}
	def, err := readDefinition(abs)
	if err != nil {
		return nil, err
	}
	lock, err := acquireLock(abs)
	if err != nil {
		return nil, err
	}
	return open(ctx, abs, def, lock, logger)
}

func acquireLock(dir string) (*flock.Flock, error) {
	lock := flock.New(filepath.Join(dir, lockFile))
	ok, err := lock.TryLock()
	if err != nil {
		return nil, corpuserr.IO("acquire repository lock", err)
	}
	if !ok {
		return nil, corpuserr.IO("acquire repository lock", fmt.Errorf("%s: %w", dir, ErrLocked))
	}
	return lock, nil
}

// open finishes Create and Open. It owns lock and releases it on failure.
func open(ctx context.Context, dir string, def Definition, lock *flock.Flock, logger *slog.Logger) (*Repository, error) {
	logger = logging.NewComponentLogger(logger, "repository").With(logging.String(logging.FieldCorpus, def.Name))
	r := &Repository{
		dir:    dir,
		def:    def,
		lock:   lock,
		logger: logger,
		files:  newFiles(dir, def.BasePathMedia),
	}
	dbPath := filepath.Join(dir, def.Datastore.File)
	var err error
	if r.annotations, err = sqlstore.Open(ctx, dbPath, logger); err != nil {
		_ = r.Close()
		return nil, err
	}
	if r.metadata, err = sqlstore.OpenMetadata(ctx, dbPath, logger); err != nil {
		_ = r.Close()
		return nil, err
	}
	if r.structure, err = r.annotations.LoadStructure(ctx); err != nil {
		_ = r.Close()
		return nil, err
	}
	if r.metaStruct, err = r.metadata.LoadStructure(ctx); err != nil {
		_ = r.Close()
		return nil, err
	}
	logger.Debug("repository opened",
		logging.String("path", dir),
		logging.Int("levels", len(r.structure.Levels())),
	)
	return r, nil
}

// Close releases the datastores and the directory lock. It is safe to call
// more than once.
func (r *Repository) Close() error {
	if r == nil {
		return nil
	}
	var errs []error
	if r.annotations != nil {
		errs = append(errs, r.annotations.Close())
		r.annotations = nil
	}
	if r.metadata != nil {
		errs = append(errs, r.metadata.Close())
		r.metadata = nil
	}
	if r.lock != nil {
		if err := r.lock.Unlock(); err != nil {
			errs = append(errs, corpuserr.IO("release repository lock", err))
		}
		r.lock = nil
	}
	return errors.Join(errs...)
}

// ID returns the generated corpus identifier.
func (r *Repository) ID() string { return r.def.ID }

// Name returns the corpus name.
func (r *Repository) Name() string { return r.def.Name }

// Dir returns the absolute repository directory.
func (r *Repository) Dir() string { return r.dir }

// Definition returns a copy of the corpus definition.
func (r *Repository) Definition() Definition { return r.def }

// Files returns the media path resolver.
func (r *Repository) Files() Files { return r.files }

// Annotations returns the annotation datastore.
func (r *Repository) Annotations() datastore.AnnotationDatastore { return r.annotations }

// Metadata returns the metadata datastore.
func (r *Repository) Metadata() datastore.MetadataDatastore { return r.metadata }

// Structure returns a copy of the annotation structure.
func (r *Repository) Structure() *structure.AnnotationStructure { return r.structure.Clone() }

// MetadataStructure returns a copy of the metadata structure.
func (r *Repository) MetadataStructure() *structure.MetadataStructure { return r.metaStruct.Clone() }

// Health checks the annotation datastore.
func (r *Repository) Health(ctx context.Context) (datastore.Health, error) {
	return r.annotations.Health(ctx)
}
