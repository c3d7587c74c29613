package repository

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"annotcore/internal/corpuserr"
)

// MediaExtensions are tried in order by Files.Media.
var MediaExtensions = []string{".wav", ".flac", ".mp3", ".ogg", ".m4a", ".mp4", ".mkv"}

// Files resolves media paths below the corpus media base path.
type Files struct {
	base string
}

func newFiles(repoDir, basePath string) Files {
	if !filepath.IsAbs(basePath) {
		basePath = filepath.Join(repoDir, basePath)
	}
	return Files{base: filepath.Clean(basePath)}
}

// Base returns the absolute media base path.
func (f Files) Base() string { return f.base }

// Path resolves rel below the base path. Absolute paths and paths leaving
// the base are rejected.
func (f Files) Path(rel string) (string, error) {
	if rel == "" || filepath.IsAbs(rel) {
		return "", corpuserr.Validation("media path "+rel, "must be relative to the media base path")
	}
	cleaned := filepath.Clean(filepath.FromSlash(rel))
	if cleaned == ".." || strings.HasPrefix(cleaned, ".."+string(filepath.Separator)) {
		return "", corpuserr.Validation("media path "+rel, "escapes the media base path")
	}
	return filepath.Join(f.base, cleaned), nil
}

// Media finds the media file of an annotation: <base>/<annotationID><ext>
// for the first extension in MediaExtensions that exists.
func (f Files) Media(annotationID string) (string, error) {
	for _, ext := range MediaExtensions {
		path, err := f.Path(annotationID + ext)
		if err != nil {
			return "", err
		}
		info, err := os.Stat(path)
		if err == nil && !info.IsDir() {
			return path, nil
		}
		if err != nil && !errors.Is(err, fs.ErrNotExist) {
			return "", corpuserr.IO("stat media", err)
		}
	}
	return "", corpuserr.NotFound("media of annotation", annotationID)
}

// List returns the media files below the base path, relative and
// slash-separated, in lexical order. A missing base path yields nothing.
func (f Files) List() ([]string, error) {
	var out []string
	err := filepath.WalkDir(f.base, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == f.base && errors.Is(err, fs.ErrNotExist) {
				return fs.SkipAll
			}
			return err
		}
		if d.IsDir() || !slices.Contains(MediaExtensions, strings.ToLower(filepath.Ext(path))) {
			return nil
		}
		rel, err := filepath.Rel(f.base, path)
		if err != nil {
			return err
		}
		out = append(out, filepath.ToSlash(rel))
		return nil
	})
	if err != nil {
		return nil, corpuserr.IO("list media", err)
	}
	slices.Sort(out)
	return out, nil
}
