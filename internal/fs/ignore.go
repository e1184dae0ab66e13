package fs

import (
	"bufio"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// IgnoreFileName is the per-root ignore file. Its patterns are applied after
// the ones from the config.
const IgnoreFileName = ".mdvignore"

type ignoreRule struct {
	glob     string
	anchored bool // match the whole root-relative path instead of the base name
	dirOnly  bool // trailing "/": match directories only
	negate   bool // leading "!": re-include what earlier rules excluded
}

func (r ignoreRule) matches(rel, base string, isDir bool) bool {
	if r.dirOnly && !isDir {
		return false
	}
	target := base
	if r.anchored {
		target = rel
	}
	ok, _ := path.Match(r.glob, target)
	return ok
}

// IgnoreMatcher hides root-relative paths from tree listings and search.
// Rules use a small subset of gitignore syntax:
//
//	*.log     base name glob
//	drafts/   directories only
//	/build    anchored to the root (any rule containing "/" is anchored)
//	!keep.log re-includes a path an earlier rule ignored
//
// The last matching rule decides. A nil matcher ignores nothing.
type IgnoreMatcher struct {
	rules []ignoreRule
}

// NewIgnoreMatcher parses rules. Blank lines, comments and malformed globs
// are skipped.
func NewIgnoreMatcher(lines []string) *IgnoreMatcher {
	m := &IgnoreMatcher{}
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		var r ignoreRule
		if strings.HasPrefix(line, "!") {
			r.negate = true
			line = line[1:]
		}
		if strings.HasSuffix(line, "/") {
			r.dirOnly = true
			line = strings.TrimRight(line, "/")
		}
		r.anchored = strings.Contains(line, "/")
		r.glob = strings.TrimPrefix(line, "/")

		if r.glob == "" {
			continue
		}
		if _, err := path.Match(r.glob, ""); errors.Is(err, path.ErrBadPattern) {
			continue
		}
		m.rules = append(m.rules, r)
	}
	return m
}

// LoadIgnoreMatcher combines configured rules with those in root's
// IgnoreFileName, if present.
func LoadIgnoreMatcher(root string, configured []string) (*IgnoreMatcher, error) {
	fromFile, err := ParseIgnoreFile(filepath.Join(root, IgnoreFileName))
	if err != nil {
		return nil, err
	}
	return NewIgnoreMatcher(append(append([]string{}, configured...), fromFile...)), nil
}

// Match reports whether the root-relative path, a directory when isDir is
// set, is ignored.
func (m *IgnoreMatcher) Match(relativePath string, isDir bool) bool {
	if m == nil || relativePath == "" {
		return false
	}
	rel := strings.Trim(filepath.ToSlash(relativePath), "/")
	base := path.Base(rel)

	ignored := false
	for _, r := range m.rules {
		if r.negate == ignored && r.matches(rel, base, isDir) {
			ignored = !r.negate
		}
	}
	return ignored
}

// ParseIgnoreFile returns the lines of an ignore file, or nil if it does not
// exist.
func ParseIgnoreFile(filename string) ([]string, error) {
	f, err := os.Open(filename)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("opening ignore file: %w", err)
	}
	defer f.Close()

	var lines []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		lines = append(lines, sc.Text())
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("reading ignore file %s: %w", filename, err)
	}
	return lines, nil
}
