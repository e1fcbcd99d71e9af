// Package fsutil provides file system helpers shared by the loader, the
// scheduler and the watcher: recursive file discovery and glob expansion
// relative to a project root.
package fsutil

import (
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// FindFilesByExtension recursively searches the given root path for all files ending
// with the specified extension. It returns a slice of their full paths.
func FindFilesByExtension(rootPath string, extension string) ([]string, error) {
	if extension == "" {
		panic("extension must not be empty")
	}

	var files []string
	err := filepath.WalkDir(rootPath, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && strings.HasSuffix(d.Name(), extension) {
			files = append(files, path)
		}
		return nil
	})

	if err != nil {
		return nil, err
	}

	return files, nil
}

// NormalizePattern turns a user supplied pattern into the slash separated,
// root relative form doublestar expects. The "!" negation prefix is kept.
func NormalizePattern(p string) string {
	neg := strings.HasPrefix(p, "!")
	p = strings.TrimPrefix(p, "!")
	p = filepath.ToSlash(p)
	p = strings.TrimPrefix(p, "./")
	if p != "" {
		p = path.Clean(p)
	}
	if neg {
		return "!" + p
	}
	return p
}

// ValidatePatterns reports the first malformed pattern.
func ValidatePatterns(patterns []string) error {
	for _, p := range patterns {
		norm := strings.TrimPrefix(NormalizePattern(p), "!")
		if norm == "" || !doublestar.ValidatePattern(norm) {
			return fmt.Errorf("invalid glob pattern %q", p)
		}
	}
	return nil
}

// Expand resolves glob patterns against root and returns the matching files
// as absolute paths, sorted and without duplicates. Patterns prefixed with
// "!" remove their matches from the result regardless of position.
func Expand(root string, patterns []string) ([]string, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}
	fsys := os.DirFS(absRoot)

	include := make(map[string]struct{})
	var excludes []string
	for _, raw := range patterns {
		p := NormalizePattern(raw)
		if strings.HasPrefix(p, "!") {
			excludes = append(excludes, strings.TrimPrefix(p, "!"))
			continue
		}
		matches, err := doublestar.Glob(fsys, p)
		if err != nil {
			return nil, fmt.Errorf("expanding %q: %w", raw, err)
		}
		for _, m := range matches {
			info, err := fs.Stat(fsys, m)
			if err != nil || info.IsDir() {
				continue
			}
			include[m] = struct{}{}
		}
	}

	out := make([]string, 0, len(include))
	for rel := range include {
		excluded, err := matchAny(excludes, rel)
		if err != nil {
			return nil, err
		}
		if excluded {
			continue
		}
		out = append(out, filepath.Join(absRoot, filepath.FromSlash(rel)))
	}
	sort.Strings(out)
	return out, nil
}

// Match reports whether the file at p matches any of the patterns, with the
// same negation semantics as Expand. p may be absolute or relative to root.
func Match(root string, patterns []string, p string) (bool, error) {
	rel, ok := Rel(root, p)
	if !ok {
		return false, nil
	}
	var includes, excludes []string
	for _, raw := range patterns {
		norm := NormalizePattern(raw)
		if strings.HasPrefix(norm, "!") {
			excludes = append(excludes, strings.TrimPrefix(norm, "!"))
		} else {
			includes = append(includes, norm)
		}
	}
	matched, err := matchAny(includes, rel)
	if err != nil || !matched {
		return false, err
	}
	excluded, err := matchAny(excludes, rel)
	if err != nil {
		return false, err
	}
	return !excluded, nil
}

// Rel converts p into a slash separated path relative to root. It returns
// false when p lies outside root.
func Rel(root, p string) (string, bool) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return "", false
	}
	if !filepath.IsAbs(p) {
		p = filepath.Join(absRoot, p)
	}
	rel, err := filepath.Rel(absRoot, p)
	if err != nil {
		return "", false
	}
	rel = filepath.ToSlash(rel)
	if rel == ".." || strings.HasPrefix(rel, "../") {
		return "", false
	}
	return rel, true
}

// StaticBase returns the directory prefix of a pattern that contains no
// glob meta characters, e.g. "src/assets/sass" for "src/assets/sass/**/*.scss".
func StaticBase(pattern string) string {
	p := strings.TrimPrefix(NormalizePattern(pattern), "!")
	base, _ := doublestar.SplitPattern(p)
	if base == "" {
		return "."
	}
	return base
}

func matchAny(patterns []string, rel string) (bool, error) {
	for _, p := range patterns {
		ok, err := doublestar.Match(p, rel)
		if err != nil {
			return false, fmt.Errorf("matching %q: %w", p, err)
		}
		if ok {
			return true, nil
		}
	}
	return false, nil
}
