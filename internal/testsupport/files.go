package testsupport

import (
	"os"
	"path/filepath"
	"testing"
)

// TouchFiles creates empty placeholder files under dir, making parent
// directories as needed, and returns their paths.
func TouchFiles(t testing.TB, dir string, names ...string) []string {
	t.Helper()
	paths := make([]string, 0, len(names))
	for _, name := range names {
		path := filepath.Join(dir, filepath.FromSlash(name))
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatalf("mkdir for %s: %v", name, err)
		}
		if err := os.WriteFile(path, nil, 0o644); err != nil {
			t.Fatalf("touch %s: %v", name, err)
		}
		paths = append(paths, path)
	}
	return paths
}
