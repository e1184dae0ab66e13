package fs

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"golang.org/x/exp/mmap"
)

const (
	minQueryLength   = 2
	maxSearchResults = 100
	maxPreviewRunes  = 100
)

// SearchResult is the first line of a file that matched a query.
type SearchResult struct {
	Path    string `json:"path"`
	Line    int    `json:"line"`
	Preview string `json:"preview"`
}

// Search looks for query, case-insensitively, in the files under
// relativePath and reports the first matching line of each file. Queries
// shorter than two characters return no results. Files that are not UTF-8
// text are skipped.
func (m *Manager) Search(relativePath, query string) ([]SearchResult, error) {
	results := []SearchResult{}
	if utf8.RuneCountInString(query) < minQueryLength {
		return results, nil
	}

	abs, rel, err := m.resolve(relativePath)
	if err != nil {
		return nil, err
	}
	info, err := os.Stat(abs)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return results, nil
		}
		return nil, fmt.Errorf("stat %s: %w", rel, err)
	}

	needle := strings.ToLower(query)
	if !info.IsDir() {
		if r, ok := m.searchFile(abs, rel, needle); ok {
			results = append(results, r)
		}
		return results, nil
	}

	errLimit := errors.New("result limit reached")
	err = filepath.WalkDir(abs, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			m.logger.Debug("search skipping path", "path", p, "error", err)
			if d != nil && d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if p == abs {
			return nil
		}
		childRel, err := m.resolver.Relative(p)
		if err != nil {
			return nil
		}
		if m.hidden(d.Name(), childRel, d.IsDir()) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}
		if r, ok := m.searchFile(p, childRel, needle); ok {
			results = append(results, r)
			if len(results) >= maxSearchResults {
				return errLimit
			}
		}
		return nil
	})
	if err != nil && err != errLimit {
		return nil, fmt.Errorf("searching %s: %w", rel, err)
	}
	return results, nil
}

// searchFile maps the file into memory and scans it line by line.
func (m *Manager) searchFile(abs, rel, needle string) (SearchResult, bool) {
	reader, err := mmap.Open(abs)
	if err != nil {
		m.logger.Debug("search cannot open file", "path", rel, "error", err)
		return SearchResult{}, false
	}
	defer reader.Close()

	data := make([]byte, reader.Len())
	if _, err := reader.ReadAt(data, 0); err != nil && len(data) > 0 {
		m.logger.Debug("search cannot read file", "path", rel, "error", err)
		return SearchResult{}, false
	}
	if !utf8.Valid(data) {
		return SearchResult{}, false
	}

	lineNum := 0
	for len(data) > 0 {
		lineNum++
		var line []byte
		if i := bytes.IndexByte(data, '\n'); i >= 0 {
			line, data = data[:i], data[i+1:]
		} else {
			line, data = data, nil
		}
		if strings.Contains(strings.ToLower(string(line)), needle) {
			return SearchResult{Path: rel, Line: lineNum, Preview: preview(string(line))}, true
		}
	}
	return SearchResult{}, false
}

func preview(line string) string {
	line = strings.TrimSpace(line)
	if utf8.RuneCountInString(line) <= maxPreviewRunes {
		return line
	}
	return string([]rune(line)[:maxPreviewRunes])
}
