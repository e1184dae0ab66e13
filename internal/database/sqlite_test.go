package database

import (
	"context"
	"testing"
	"time"

	"mdvault/internal/mdv"
)

// newTestDB creates a new in-memory database with schema applied.
func newTestDB(t *testing.T) *SQLiteDatabase {
	t.Helper()

	db, err := NewSQLiteDatabase(":memory:")
	if err != nil {
		t.Fatalf("failed to create database: %v", err)
	}

	t.Cleanup(func() {
		db.Close()
	})

	return db
}

var baseTime = time.Date(2024, 1, 15, 10, 30, 0, 0, time.UTC)

func newEntry(id, filePath string, offset time.Duration, size int64) *mdv.IndexEntry {
	return &mdv.IndexEntry{
		ID:          id,
		FilePath:    filePath,
		SetKey:      mdv.SetKey(filePath),
		RecordKey:   id + ".json",
		ContentHash: "hash-" + id,
		CreatedAt:   baseTime.Add(offset),
		Size:        size,
		Note:        "note " + id,
	}
}

func TestSQLiteDatabase_FindVersionByID(t *testing.T) {
	ctx := context.Background()

	t.Run("returns nil when version not found", func(t *testing.T) {
		db := newTestDB(t)

		entry, err := db.FindVersionByID(ctx, "missing")
		if err != nil {
			t.Fatalf("FindVersionByID() error = %v", err)
		}
		if entry != nil {
			t.Errorf("FindVersionByID() = %v, want nil", entry)
		}
	})

	t.Run("finds inserted version", func(t *testing.T) {
		db := newTestDB(t)
		want := newEntry("v-1", "notes/a.md", 1500*time.Nanosecond, 42)

		if err := db.InsertVersion(ctx, want); err != nil {
			t.Fatalf("InsertVersion() error = %v", err)
		}

		got, err := db.FindVersionByID(ctx, "v-1")
		if err != nil {
			t.Fatalf("FindVersionByID() error = %v", err)
		}
		if got == nil {
			t.Fatal("FindVersionByID() returned nil, want entry")
		}
		if got.FilePath != want.FilePath || got.SetKey != want.SetKey || got.RecordKey != want.RecordKey {
			t.Errorf("entry location = (%q, %q, %q), want (%q, %q, %q)",
				got.FilePath, got.SetKey, got.RecordKey, want.FilePath, want.SetKey, want.RecordKey)
		}
		if got.ContentHash != want.ContentHash || got.Size != want.Size || got.Note != want.Note {
			t.Errorf("entry metadata = %+v, want %+v", got, want)
		}
		if !got.CreatedAt.Equal(want.CreatedAt) {
			t.Errorf("CreatedAt = %v, want %v (nanoseconds preserved)", got.CreatedAt, want.CreatedAt)
		}
	})

	t.Run("rejects duplicate id", func(t *testing.T) {
		db := newTestDB(t)
		if err := db.InsertVersion(ctx, newEntry("v-1", "a.md", 0, 1)); err != nil {
			t.Fatalf("InsertVersion() error = %v", err)
		}
		if err := db.InsertVersion(ctx, newEntry("v-1", "b.md", time.Second, 1)); err == nil {
			t.Error("InsertVersion() expected error for duplicate id")
		}
	})
}

func TestSQLiteDatabase_DeleteVersion(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)

	if err := db.InsertVersion(ctx, newEntry("v-1", "a.md", 0, 1)); err != nil {
		t.Fatalf("InsertVersion() error = %v", err)
	}

	if err := db.DeleteVersion(ctx, "v-1"); err != nil {
		t.Fatalf("DeleteVersion() error = %v", err)
	}
	got, err := db.FindVersionByID(ctx, "v-1")
	if err != nil {
		t.Fatalf("FindVersionByID() error = %v", err)
	}
	if got != nil {
		t.Error("version still present after DeleteVersion()")
	}

	if err := db.DeleteVersion(ctx, "v-1"); err != nil {
		t.Errorf("DeleteVersion() of missing id error = %v, want nil", err)
	}
}

func TestSQLiteDatabase_ListVersionedFiles(t *testing.T) {
	ctx := context.Background()

	t.Run("empty index", func(t *testing.T) {
		db := newTestDB(t)
		files, err := db.ListVersionedFiles(ctx)
		if err != nil {
			t.Fatalf("ListVersionedFiles() error = %v", err)
		}
		if len(files) != 0 {
			t.Errorf("len(files) = %d, want 0", len(files))
		}
	})

	t.Run("summarizes each file with its latest version", func(t *testing.T) {
		db := newTestDB(t)
		entries := []*mdv.IndexEntry{
			newEntry("a1", "a.md", 1*time.Minute, 10),
			newEntry("a2", "a.md", 5*time.Minute, 20),
			newEntry("b1", "docs/b.md", 3*time.Minute, 30),
			newEntry("a3", "a.md", 2*time.Minute, 15),
		}
		for _, e := range entries {
			if err := db.InsertVersion(ctx, e); err != nil {
				t.Fatalf("InsertVersion(%s) error = %v", e.ID, err)
			}
		}

		files, err := db.ListVersionedFiles(ctx)
		if err != nil {
			t.Fatalf("ListVersionedFiles() error = %v", err)
		}
		if len(files) != 2 {
			t.Fatalf("len(files) = %d, want 2", len(files))
		}

		if files[0].Path != "a.md" {
			t.Errorf("files[0].Path = %q, want a.md (most recent first)", files[0].Path)
		}
		if files[0].VersionCount != 3 {
			t.Errorf("files[0].VersionCount = %d, want 3", files[0].VersionCount)
		}
		if files[0].LatestSize != 20 {
			t.Errorf("files[0].LatestSize = %d, want 20", files[0].LatestSize)
		}
		if !files[0].LatestTimestamp.Equal(baseTime.Add(5 * time.Minute)) {
			t.Errorf("files[0].LatestTimestamp = %v", files[0].LatestTimestamp)
		}
		if files[1].Path != "docs/b.md" || files[1].VersionCount != 1 {
			t.Errorf("files[1] = %+v, want docs/b.md with 1 version", files[1])
		}
	})
}

func TestSQLiteDatabase_DeleteAllVersions(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)

	for _, id := range []string{"v-1", "v-2"} {
		if err := db.InsertVersion(ctx, newEntry(id, "a.md", 0, 1)); err != nil {
			t.Fatalf("InsertVersion() error = %v", err)
		}
	}

	if err := db.DeleteAllVersions(ctx); err != nil {
		t.Fatalf("DeleteAllVersions() error = %v", err)
	}

	files, err := db.ListVersionedFiles(ctx)
	if err != nil {
		t.Fatalf("ListVersionedFiles() error = %v", err)
	}
	if len(files) != 0 {
		t.Errorf("len(files) = %d after DeleteAllVersions, want 0", len(files))
	}
}

func TestSQLiteDatabase_CheckMigrations(t *testing.T) {
	db := newTestDB(t)
	if err := db.CheckMigrations(); err != nil {
		t.Errorf("CheckMigrations() error = %v", err)
	}
}

func TestSQLiteDatabase_ListFileVersions(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)

	entries := []*mdv.IndexEntry{
		newEntry("v-2", "a.md", 2*time.Second, 2),
		newEntry("v-1", "a.md", time.Second, 1),
		newEntry("v-3", "b.md", 3*time.Second, 3),
	}
	for _, e := range entries {
		if err := db.InsertVersion(ctx, e); err != nil {
			t.Fatalf("InsertVersion(%s) error = %v", e.ID, err)
		}
	}

	got, err := db.ListFileVersions(ctx, "a.md")
	if err != nil {
		t.Fatalf("ListFileVersions() error = %v", err)
	}
	if len(got) != 2 || got[0].ID != "v-1" || got[1].ID != "v-2" {
		t.Fatalf("ListFileVersions() = %+v, want v-1, v-2", got)
	}
	if got[1].ContentHash != "hash-v-2" || got[1].RecordKey != "v-2.json" {
		t.Errorf("entry = %+v", got[1])
	}

	none, err := db.ListFileVersions(ctx, "missing.md")
	if err != nil {
		t.Fatalf("ListFileVersions() error = %v", err)
	}
	if len(none) != 0 {
		t.Errorf("ListFileVersions(missing) = %+v, want empty", none)
	}
}

func TestSQLiteDatabase_ListVersionIDs(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)

	ids, err := db.ListVersionIDs(ctx)
	if err != nil {
		t.Fatalf("ListVersionIDs() error = %v", err)
	}
	if len(ids) != 0 {
		t.Errorf("ListVersionIDs() on empty index = %v", ids)
	}

	for _, id := range []string{"v-2", "v-1"} {
		if err := db.InsertVersion(ctx, newEntry(id, "a.md", 0, 1)); err != nil {
			t.Fatalf("InsertVersion() error = %v", err)
		}
	}
	ids, err = db.ListVersionIDs(ctx)
	if err != nil {
		t.Fatalf("ListVersionIDs() error = %v", err)
	}
	if len(ids) != 2 || ids[0] != "v-1" || ids[1] != "v-2" {
		t.Errorf("ListVersionIDs() = %v, want [v-1 v-2]", ids)
	}
}
