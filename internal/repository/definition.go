package repository

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"

	"annotcore/internal/corpuserr"
	"annotcore/internal/sqlitedriver"
)

// DefinitionFile is the name of the corpus definition inside a repository
// directory.
const DefinitionFile = "corpus.toml"

const (
	defaultMediaDir      = "media"
	defaultDatastoreFile = "corpus.db"
)

// Definition is the persisted description of a corpus.
type Definition struct {
	ID          string    `toml:"id"`
	Name        string    `toml:"name"`
	Description string    `toml:"description,omitempty"`
	Created     time.Time `toml:"created"`
	// BasePathMedia is absolute or relative to the repository directory.
	BasePathMedia string              `toml:"base_path_media"`
	Datastore     DatastoreDefinition `toml:"datastore"`
}

// DatastoreDefinition records where the SQL datastore lives.
type DatastoreDefinition struct {
	Driver string `toml:"driver"`
	File   string `toml:"file"`
}

func (d *Definition) normalize() {
	d.Name = strings.TrimSpace(d.Name)
	if strings.TrimSpace(d.BasePathMedia) == "" {
		d.BasePathMedia = defaultMediaDir
	}
	if strings.TrimSpace(d.Datastore.File) == "" {
		d.Datastore.File = defaultDatastoreFile
	}
	if d.Datastore.Driver == "" {
		d.Datastore.Driver = sqlitedriver.DriverType()
	}
}

func (d *Definition) validate() error {
	if d.ID == "" {
		return corpuserr.Validation(DefinitionFile, "missing id")
	}
	if strings.ContainsAny(d.Datastore.File, `/\`) {
		return corpuserr.Validation(DefinitionFile, "datastore file %q must be a plain file name", d.Datastore.File)
	}
	return nil
}

// Exists reports whether dir holds a corpus definition. It does not open
// or lock the corpus.
func Exists(dir string) bool {
	if strings.TrimSpace(dir) == "" {
		return false
	}
	info, err := os.Stat(filepath.Join(dir, DefinitionFile))
	return err == nil && info.Mode().IsRegular()
}

func readDefinition(dir string) (Definition, error) {
	var def Definition
	path := filepath.Join(dir, DefinitionFile)
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return def, corpuserr.NotFound("repository", dir)
	}
	if err != nil {
		return def, corpuserr.IO("read corpus definition", err)
	}
	if err := toml.Unmarshal(data, &def); err != nil {
		return def, corpuserr.Validation(DefinitionFile, "parse: %v", err)
	}
	def.normalize()
	if err := def.validate(); err != nil {
		return def, err
	}
	return def, nil
}

func writeDefinition(dir string, def Definition) error {
	data, err := toml.Marshal(def)
	if err != nil {
		return fmt.Errorf("encode corpus definition: %w", err)
	}
	path := filepath.Join(dir, DefinitionFile)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return corpuserr.IO("write corpus definition", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return corpuserr.IO("write corpus definition", err)
	}
	return nil
}
