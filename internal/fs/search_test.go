package fs

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"mdvault/internal/mdv"
	"mdvault/internal/testutil"
)

func TestManager_Search(t *testing.T) {
	m, root := newTestManager(t, nil, []string{"skip-*.md"})
	testutil.WriteFile(t, root, "a.md", "intro\nThe Quick brown fox\nquick again\n")
	testutil.WriteFile(t, root, "notes/b.txt", "nothing here\n   QUICK start   \n")
	testutil.WriteFile(t, root, "notes/c.md", "no match\n")
	testutil.WriteFile(t, root, "notes/empty.md", "")
	testutil.WriteFile(t, root, ".hidden.md", "quick\n")
	testutil.WriteFile(t, root, ".versions/set/r.json", `{"content":"quick"}`)
	testutil.WriteFile(t, root, "skip-me.md", "quick\n")
	testutil.WriteFile(t, root, "binary.bin", "quick \xff\xfe")

	results, err := m.Search("", "quick")
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	want := []SearchResult{
		{Path: "a.md", Line: 2, Preview: "The Quick brown fox"},
		{Path: "notes/b.txt", Line: 2, Preview: "QUICK start"},
	}
	if len(results) != len(want) {
		t.Fatalf("Search() = %+v, want %+v", results, want)
	}
	for i := range want {
		if results[i] != want[i] {
			t.Errorf("results[%d] = %+v, want %+v", i, results[i], want[i])
		}
	}

	t.Run("scoped to a directory", func(t *testing.T) {
		results, err := m.Search("notes", "quick")
		if err != nil {
			t.Fatal(err)
		}
		if len(results) != 1 || results[0].Path != "notes/b.txt" {
			t.Errorf("Search(notes) = %+v", results)
		}
	})

	t.Run("single file", func(t *testing.T) {
		results, err := m.Search("a.md", "AGAIN")
		if err != nil {
			t.Fatal(err)
		}
		if len(results) != 1 || results[0].Line != 3 {
			t.Errorf("Search(a.md) = %+v", results)
		}
	})

	t.Run("short query", func(t *testing.T) {
		results, err := m.Search("", "q")
		if err != nil || results == nil || len(results) != 0 {
			t.Errorf("Search(q) = %v, %v", results, err)
		}
	})

	t.Run("missing directory", func(t *testing.T) {
		results, err := m.Search("nope", "quick")
		if err != nil || len(results) != 0 {
			t.Errorf("Search(nope) = %v, %v", results, err)
		}
	})

	t.Run("traversal", func(t *testing.T) {
		if _, err := m.Search("../..", "quick"); !errors.Is(err, mdv.ErrPathTraversal) {
			t.Errorf("Search(../..) error = %v, want ErrPathTraversal", err)
		}
	})
}

func TestManager_Search_Limits(t *testing.T) {
	m, root := newTestManager(t, nil, nil)
	for i := 0; i < 120; i++ {
		testutil.WriteFile(t, root, fmt.Sprintf("f%03d.md", i), "needle\n")
	}
	testutil.WriteFile(t, root, "long/line.md", strings.Repeat("é", 150)+"needle")

	results, err := m.Search("", "needle")
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != maxSearchResults {
		t.Errorf("len(results) = %d, want %d", len(results), maxSearchResults)
	}

	long, err := m.Search("long", "needle")
	if err != nil {
		t.Fatal(err)
	}
	if len(long) != 1 || len([]rune(long[0].Preview)) != maxPreviewRunes {
		t.Errorf("preview = %q", long[0].Preview)
	}
}
