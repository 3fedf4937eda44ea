package fs

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"slices"
	"strings"

	"github.com/gobwas/glob"
)

const metaChars = "*?[{"

// IsPattern reports whether s contains glob metacharacters.
func IsPattern(s string) bool {
	return strings.ContainsAny(s, metaChars)
}

// Glob returns the sorted paths of all regular files in fsys matching
// pattern. A single "*" does not cross directory boundaries, "**" does.
func Glob(fsys fs.FS, pattern string) ([]string, error) {
	g, err := glob.Compile(pattern, '/')
	if err != nil {
		return nil, fmt.Errorf("invalid pattern %q: %w", pattern, err)
	}

	var matches []string
	err = fs.WalkDir(fsys, ".", func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		if g.Match(p) {
			matches = append(matches, p)
		}
		return nil
	})
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, err
	}

	slices.Sort(matches)
	return matches, nil
}

// Expand resolves pattern against the directory root and returns the
// matching files. Matches keep the form of the pattern: relative patterns
// produce paths relative to root, absolute ones absolute paths. Plain paths
// are returned as is, whether or not they exist.
func Expand(root, pattern string) ([]string, error) {
	if !IsPattern(pattern) {
		return []string{pattern}, nil
	}

	p := filepath.ToSlash(pattern)
	abs := path.IsAbs(p)

	segments := strings.Split(strings.TrimPrefix(path.Clean(p), "/"), "/")
	i := slices.IndexFunc(segments, IsPattern)
	prefix, rest := path.Join(segments[:i]...), path.Join(segments[i:]...)
	if abs {
		prefix = "/" + prefix
	}

	dir := filepath.FromSlash(prefix)
	if !abs {
		dir = filepath.Join(root, dir)
	}

	matches, err := Glob(os.DirFS(dir), rest)
	if err != nil {
		return nil, err
	}
	if len(matches) == 0 {
		return nil, fmt.Errorf("no files match %q", pattern)
	}

	for j := range matches {
		matches[j] = filepath.FromSlash(path.Join(prefix, matches[j]))
	}
	return matches, nil
}
