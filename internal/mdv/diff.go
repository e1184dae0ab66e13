package mdv

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/pmezard/go-difflib/difflib"
)

// Diff line categories.
const (
	LineAdded     = "added"
	LineRemoved   = "removed"
	LineModified  = "modified"
	LineUnchanged = "unchanged"
)

// DiffLine is one position of a positional diff. Modified lines carry both
// sides; all other categories carry Content.
type DiffLine struct {
	LineNumber int
	Type       string
	Content    string
	OldContent string
	NewContent string
}

func (l DiffLine) MarshalJSON() ([]byte, error) {
	if l.Type == LineModified {
		return json.Marshal(struct {
			LineNumber int    `json:"line_number"`
			Type       string `json:"type"`
			OldContent string `json:"old_content"`
			NewContent string `json:"new_content"`
		}{l.LineNumber, l.Type, l.OldContent, l.NewContent})
	}
	return json.Marshal(struct {
		LineNumber int    `json:"line_number"`
		Type       string `json:"type"`
		Content    string `json:"content"`
	}{l.LineNumber, l.Type, l.Content})
}

// DiffStats counts diff lines per category.
type DiffStats struct {
	LinesAdded     int `json:"lines_added"`
	LinesRemoved   int `json:"lines_removed"`
	LinesModified  int `json:"lines_modified"`
	LinesUnchanged int `json:"lines_unchanged"`
}

// VersionRef identifies one side of a comparison.
type VersionRef struct {
	ID        string    `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	Note      string    `json:"note"`
}

// DiffReport is the result of CompareVersions. Diff and Stats come from the
// positional comparison; UnifiedDiff is a conventional patch of the same two
// contents for display.
type DiffReport struct {
	Version1    VersionRef `json:"version1"`
	Version2    VersionRef `json:"version2"`
	Diff        []DiffLine `json:"diff"`
	Stats       DiffStats  `json:"stats"`
	UnifiedDiff string     `json:"unified_diff"`
}

// splitLines splits s after every "\n", keeping the line endings.
// A trailing segment without a newline is its own line.
func splitLines(s string) []string {
	lines := strings.SplitAfter(s, "\n")
	if lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	return lines
}

// positionalDiff compares line i of old with line i of new. It does not
// compute a minimal edit script: an inserted line shifts every later line
// and shows up as a run of modifications.
func positionalDiff(oldText, newText string) ([]DiffLine, DiffStats) {
	oldLines := splitLines(oldText)
	newLines := splitLines(newText)

	n := max(len(oldLines), len(newLines))
	lines := make([]DiffLine, 0, n)
	var stats DiffStats

	for i := 0; i < n; i++ {
		line := DiffLine{LineNumber: i + 1}
		switch {
		case i >= len(oldLines):
			line.Type = LineAdded
			line.Content = displayLine(newLines[i])
			stats.LinesAdded++
		case i >= len(newLines):
			line.Type = LineRemoved
			line.Content = displayLine(oldLines[i])
			stats.LinesRemoved++
		case oldLines[i] == newLines[i]:
			line.Type = LineUnchanged
			line.Content = displayLine(oldLines[i])
			stats.LinesUnchanged++
		default:
			line.Type = LineModified
			line.OldContent = displayLine(oldLines[i])
			line.NewContent = displayLine(newLines[i])
			stats.LinesModified++
		}
		lines = append(lines, line)
	}
	return lines, stats
}

func displayLine(line string) string {
	return strings.TrimRight(line, "\n")
}

func unifiedDiff(oldText, newText, fromFile, toFile string) (string, error) {
	return difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        difflib.SplitLines(oldText),
		B:        difflib.SplitLines(newText),
		FromFile: fromFile,
		ToFile:   toFile,
		Context:  3,
	})
}
