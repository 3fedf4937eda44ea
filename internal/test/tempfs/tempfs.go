// Package tempfs creates throwaway directory trees for tests.
package tempfs

import (
	"os"
	"path/filepath"
	"testing"
)

// WithTempFS writes files (keyed by slash-separated path relative to the
// tree root) into a fresh temporary directory and calls fn with its path.
// The directory is removed when the test ends.
func WithTempFS(t *testing.T, files map[string]string, fn func(t *testing.T, root string)) {
	t.Helper()

	root := t.TempDir()
	for name, content := range files {
		path := filepath.Join(root, filepath.FromSlash(name))
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	fn(t, root)
}
