package fs

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"mdvault/internal/mdv"
	"mdvault/internal/testutil"
)

// recordingSnapshotter remembers every snapshot request.
type recordingSnapshotter struct {
	calls []snapshotCall
	err   error
}

type snapshotCall struct {
	path, content, note string
}

func (r *recordingSnapshotter) CreateVersion(_ context.Context, filePath, content, note string) (*mdv.CreateResult, error) {
	r.calls = append(r.calls, snapshotCall{filePath, content, note})
	if r.err != nil {
		return nil, r.err
	}
	return &mdv.CreateResult{}, nil
}

func newTestManager(t *testing.T, versions Snapshotter, ignore []string) (*Manager, string) {
	t.Helper()
	resolver, err := mdv.NewPathResolver(t.TempDir(), "")
	if err != nil {
		t.Fatal(err)
	}
	limits := Limits{MaxFileSize: 1024, MaxUploadSize: 1024, MaxImageSize: 512}
	return NewManager(resolver, versions, NewIgnoreMatcher(ignore), limits, mdv.NewNopLogger()), resolver.Root()
}

func TestManager_Tree(t *testing.T) {
	m, root := newTestManager(t, nil, []string{"*.log"})
	for _, p := range []string{
		"b.md", "A.txt", "zeta/inner.go", "Alpha/config.yaml", "Alpha/deep/x.bin",
		".hidden.md", ".versions/abc/r.json", "debug.log", "empty/.keep",
	} {
		testutil.WriteFile(t, root, p, "x")
	}

	tree, err := m.Tree("")
	if err != nil {
		t.Fatalf("Tree() error = %v", err)
	}

	var names []string
	for _, n := range tree {
		names = append(names, n.Name)
	}
	if got := strings.Join(names, ","); got != "Alpha,empty,zeta,A.txt,b.md" {
		t.Errorf("Tree() names = %s", got)
	}

	alpha := tree[0]
	if alpha.Type != TypeDirectory || alpha.Path != "Alpha" || len(alpha.Children) != 2 {
		t.Fatalf("Alpha = %+v", alpha)
	}
	if c := alpha.Children[0]; c.Name != "deep" || c.Children[0].Path != "Alpha/deep/x.bin" || c.Children[0].Type != TypeUnknown {
		t.Errorf("Alpha/deep = %+v", c)
	}
	if c := alpha.Children[1]; c.Type != TypeConfig || c.Children != nil {
		t.Errorf("Alpha/config.yaml = %+v", c)
	}
	if empty := tree[1]; empty.Children == nil || len(empty.Children) != 0 {
		t.Errorf("empty dir children = %#v, want empty non-nil", empty.Children)
	}
	if tree[3].Type != TypeText || tree[4].Type != TypeMarkdown {
		t.Errorf("file types = %s, %s", tree[3].Type, tree[4].Type)
	}

	t.Run("subdirectory", func(t *testing.T) {
		sub, err := m.Tree("/zeta")
		if err != nil {
			t.Fatal(err)
		}
		if len(sub) != 1 || sub[0].Path != "zeta/inner.go" || sub[0].Type != TypeCode {
			t.Errorf("Tree(zeta) = %+v", sub)
		}
	})

	t.Run("file target", func(t *testing.T) {
		single, err := m.Tree("b.md")
		if err != nil {
			t.Fatal(err)
		}
		if len(single) != 1 || single[0].Path != "b.md" {
			t.Errorf("Tree(b.md) = %+v", single)
		}
	})

	t.Run("missing target", func(t *testing.T) {
		none, err := m.Tree("nope")
		if err != nil || none == nil || len(none) != 0 {
			t.Errorf("Tree(nope) = %v, %v", none, err)
		}
	})

	t.Run("reserved directory", func(t *testing.T) {
		if _, err := m.Tree(".versions"); !errors.Is(err, ErrReservedPath) {
			t.Errorf("Tree(.versions) error = %v, want ErrReservedPath", err)
		}
	})

	t.Run("traversal", func(t *testing.T) {
		if _, err := m.Tree("../"); !errors.Is(err, mdv.ErrPathTraversal) {
			t.Errorf("Tree(../) error = %v, want ErrPathTraversal", err)
		}
	})
}

func TestManager_ReadFile(t *testing.T) {
	m, root := newTestManager(t, nil, nil)
	testutil.WriteFile(t, root, "notes/a.md", "# Hello\n")
	testutil.WriteFile(t, root, "big.md", strings.Repeat("x", 2048))
	testutil.WriteFile(t, root, "latin1.txt", "caf\xe9")

	got, err := m.ReadFile("notes/a.md")
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	if got != "# Hello\n" {
		t.Errorf("ReadFile() = %q", got)
	}

	tests := []struct {
		path string
		want error
	}{
		{"missing.md", mdv.ErrNotFound},
		{"notes", mdv.ErrNotFound},
		{"big.md", mdv.ErrInvalidArgument},
		{"latin1.txt", mdv.ErrInvalidArgument},
		{"../../etc/passwd", mdv.ErrPathTraversal},
		{".versions/x/r.json", ErrReservedPath},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			if _, err := m.ReadFile(tt.path); !errors.Is(err, tt.want) {
				t.Errorf("ReadFile(%q) error = %v, want %v", tt.path, err, tt.want)
			}
		})
	}
}

func TestManager_SaveFile(t *testing.T) {
	ctx := context.Background()

	t.Run("new file is not snapshotted", func(t *testing.T) {
		rec := &recordingSnapshotter{}
		m, root := newTestManager(t, rec, nil)

		if err := m.SaveFile(ctx, "dir/new.md", "hello"); err != nil {
			t.Fatalf("SaveFile() error = %v", err)
		}
		data, err := os.ReadFile(filepath.Join(root, "dir", "new.md"))
		if err != nil || string(data) != "hello" {
			t.Errorf("saved content = %q, %v", data, err)
		}
		if len(rec.calls) != 0 {
			t.Errorf("snapshots = %+v, want none", rec.calls)
		}
	})

	t.Run("existing content is snapshotted before overwrite", func(t *testing.T) {
		rec := &recordingSnapshotter{}
		m, root := newTestManager(t, rec, nil)
		testutil.WriteFile(t, root, "a.md", "before")

		if err := m.SaveFile(ctx, "/a.md", "after"); err != nil {
			t.Fatal(err)
		}
		want := snapshotCall{"a.md", "before", NoteAutoSave}
		if len(rec.calls) != 1 || rec.calls[0] != want {
			t.Errorf("snapshots = %+v, want [%+v]", rec.calls, want)
		}
		data, _ := os.ReadFile(filepath.Join(root, "a.md"))
		if string(data) != "after" {
			t.Errorf("saved content = %q", data)
		}
	})

	t.Run("failed snapshot does not block the save", func(t *testing.T) {
		rec := &recordingSnapshotter{err: errors.New("vault offline")}
		m, root := newTestManager(t, rec, nil)
		testutil.WriteFile(t, root, "a.md", "before")

		if err := m.SaveFile(ctx, "a.md", "after"); err != nil {
			t.Fatalf("SaveFile() error = %v", err)
		}
		data, _ := os.ReadFile(filepath.Join(root, "a.md"))
		if string(data) != "after" {
			t.Errorf("saved content = %q", data)
		}
	})

	t.Run("rejected paths", func(t *testing.T) {
		m, _ := newTestManager(t, nil, nil)
		for path, want := range map[string]error{
			"":               mdv.ErrInvalidArgument,
			"../escape.md":   mdv.ErrPathTraversal,
			".versions/a.md": ErrReservedPath,
		} {
			if err := m.SaveFile(ctx, path, "x"); !errors.Is(err, want) {
				t.Errorf("SaveFile(%q) error = %v, want %v", path, err, want)
			}
		}
	})

	t.Run("content over the limit", func(t *testing.T) {
		m, _ := newTestManager(t, nil, nil)
		if err := m.SaveFile(ctx, "a.md", strings.Repeat("x", 2000)); !errors.Is(err, mdv.ErrInvalidArgument) {
			t.Errorf("SaveFile() error = %v, want ErrInvalidArgument", err)
		}
	})

	t.Run("with a snapshot store", func(t *testing.T) {
		f := testutil.NewTestStore(t)
		m := NewManager(f.Resolver, f.Store, nil, Limits{}, mdv.NewNopLogger())
		f.WriteFile(t, "a.md", "v1")

		if err := m.SaveFile(ctx, "a.md", "v2"); err != nil {
			t.Fatal(err)
		}
		if err := m.SaveFile(ctx, "a.md", "v3"); err != nil {
			t.Fatal(err)
		}

		versions, err := f.Store.GetVersions(ctx, "a.md", 0)
		if err != nil {
			t.Fatal(err)
		}
		if len(versions) != 2 || versions[0].Note != NoteAutoSave {
			t.Fatalf("versions = %+v", versions)
		}
		v, err := f.Store.GetVersion(ctx, versions[0].ID)
		if err != nil {
			t.Fatal(err)
		}
		if v.Content != "v2" {
			t.Errorf("latest snapshot content = %q, want %q", v.Content, "v2")
		}
		if got := f.ReadFile(t, "a.md"); got != "v3" {
			t.Errorf("file content = %q", got)
		}
	})
}

func TestManager_Rename(t *testing.T) {
	m, root := newTestManager(t, nil, nil)
	testutil.WriteFile(t, root, "docs/a.md", "x")
	testutil.WriteFile(t, root, "docs/taken.md", "y")

	res, err := m.Rename("docs/a.md", "b.md")
	if err != nil {
		t.Fatalf("Rename() error = %v", err)
	}
	want := RenameResult{OldPath: "docs/a.md", NewPath: "docs/b.md", NewName: "b.md"}
	if *res != want {
		t.Errorf("Rename() = %+v, want %+v", *res, want)
	}
	if _, err := os.Stat(filepath.Join(root, "docs", "b.md")); err != nil {
		t.Errorf("renamed file missing: %v", err)
	}

	t.Run("directory", func(t *testing.T) {
		res, err := m.Rename("docs", "papers")
		if err != nil {
			t.Fatal(err)
		}
		if res.NewPath != "papers" {
			t.Errorf("NewPath = %q", res.NewPath)
		}
		if err := os.Rename(filepath.Join(root, "papers"), filepath.Join(root, "docs")); err != nil {
			t.Fatal(err)
		}
	})

	tests := []struct {
		name    string
		path    string
		newName string
		want    error
	}{
		{"missing source", "docs/none.md", "c.md", mdv.ErrNotFound},
		{"target exists", "docs/b.md", "taken.md", mdv.ErrInvalidArgument},
		{"slash in name", "docs/b.md", "sub/c.md", mdv.ErrInvalidArgument},
		{"dot dot", "docs/b.md", "..", mdv.ErrInvalidArgument},
		{"leading dot", "docs/b.md", ".secret", mdv.ErrInvalidArgument},
		{"root", "", "x", mdv.ErrInvalidArgument},
		{"escape", "../x", "y", mdv.ErrPathTraversal},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := m.Rename(tt.path, tt.newName); !errors.Is(err, tt.want) {
				t.Errorf("Rename(%q, %q) error = %v, want %v", tt.path, tt.newName, err, tt.want)
			}
		})
	}
}

func TestValidateName(t *testing.T) {
	valid := []string{"notes.md", "My File (2).md", "日本語.md", strings.Repeat("a", 200)}
	for _, name := range valid {
		if err := ValidateName(name); err != nil {
			t.Errorf("ValidateName(%q) error = %v", name, err)
		}
	}
	invalid := []string{"", ".", "..", "a<b", "a>b", "a:b", `a"b`, "a|b", "a?b", "a*b", "a/b", `a\b`, ".hidden", strings.Repeat("a", 201)}
	for _, name := range invalid {
		if err := ValidateName(name); !errors.Is(err, mdv.ErrInvalidArgument) {
			t.Errorf("ValidateName(%q) error = %v, want ErrInvalidArgument", name, err)
		}
	}
}

func TestManager_Delete(t *testing.T) {
	m, root := newTestManager(t, nil, nil)
	testutil.WriteFile(t, root, "a.md", "x")
	testutil.WriteFile(t, root, "dir/sub/b.md", "y")

	if rel, err := m.Delete("a.md"); err != nil || rel != "a.md" {
		t.Fatalf("Delete(a.md) = %q, %v", rel, err)
	}
	if _, err := os.Stat(filepath.Join(root, "a.md")); !os.IsNotExist(err) {
		t.Error("file still present")
	}

	if _, err := m.Delete("dir"); err != nil {
		t.Fatalf("Delete(dir) error = %v", err)
	}
	if _, err := os.Stat(filepath.Join(root, "dir")); !os.IsNotExist(err) {
		t.Error("directory still present")
	}

	for path, want := range map[string]error{
		"a.md":      mdv.ErrNotFound,
		"":          mdv.ErrInvalidArgument,
		"/":         mdv.ErrInvalidArgument,
		".versions": ErrReservedPath,
		"../..":     mdv.ErrPathTraversal,
	} {
		if _, err := m.Delete(path); !errors.Is(err, want) {
			t.Errorf("Delete(%q) error = %v, want %v", path, err, want)
		}
	}
	if _, err := os.Stat(root); err != nil {
		t.Errorf("root removed: %v", err)
	}
}

func TestManager_ImagePath(t *testing.T) {
	m, root := newTestManager(t, nil, nil)
	testutil.WriteFile(t, root, "images/abc_cat.png", "png")

	p, err := m.ImagePath("images/abc_cat.png")
	if err != nil {
		t.Fatalf("ImagePath() error = %v", err)
	}
	if p != filepath.Join(root, "images", "abc_cat.png") {
		t.Errorf("ImagePath() = %q", p)
	}

	if _, err := m.ImagePath("images/none.png"); !errors.Is(err, mdv.ErrNotFound) {
		t.Errorf("ImagePath(missing) error = %v, want ErrNotFound", err)
	}
	if _, err := m.ImagePath("images"); !errors.Is(err, mdv.ErrNotFound) {
		t.Errorf("ImagePath(dir) error = %v, want ErrNotFound", err)
	}
	if _, err := m.ImagePath("../../etc/passwd"); !errors.Is(err, mdv.ErrPathTraversal) {
		t.Errorf("ImagePath(escape) error = %v, want ErrPathTraversal", err)
	}
}
