package testutil

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"mdvault/internal/database"
	"mdvault/internal/mdv"
	"mdvault/internal/vault"
)

// StoreFixture bundles a SnapshotStore with the collaborators tests inspect.
type StoreFixture struct {
	Root     string
	Resolver *mdv.PathResolver
	Vault    *vault.MemoryVault
	Database *database.SQLiteDatabase
	Clock    *StubClock
	IDs      *StubIDGenerator
	Store    *mdv.SnapshotStore
}

// NewTestStore creates a SnapshotStore over a fresh temp root, an in-memory
// vault and index, a clock that ticks one second per call and sequential ids.
func NewTestStore(t *testing.T) *StoreFixture {
	t.Helper()

	root := t.TempDir()
	resolver, err := mdv.NewPathResolver(root, "")
	if err != nil {
		t.Fatalf("NewPathResolver() error = %v", err)
	}

	f := &StoreFixture{
		Root:     resolver.Root(),
		Resolver: resolver,
		Vault:    NewTestVault(),
		Database: NewTestDatabase(t),
		Clock:    TickingClock(time.Second),
		IDs:      NewStubIDGenerator(),
	}
	f.Store = mdv.NewSnapshotStore(resolver, f.Vault, f.Database, mdv.NewNopLogger(), f.Clock, f.IDs)
	return f
}

// WriteFile writes content to a root-relative path, creating parents.
func (f *StoreFixture) WriteFile(t *testing.T, rel, content string) {
	t.Helper()
	WriteFile(t, f.Root, rel, content)
}

// ReadFile returns the content of a root-relative path.
func (f *StoreFixture) ReadFile(t *testing.T, rel string) string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(f.Root, filepath.FromSlash(rel)))
	if err != nil {
		t.Fatalf("reading %s: %v", rel, err)
	}
	return string(data)
}

// WriteFile writes content to root/rel, creating parents.
func WriteFile(t *testing.T, root, rel, content string) {
	t.Helper()
	p := filepath.Join(root, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(p), 0755); err != nil {
		t.Fatalf("creating parent of %s: %v", rel, err)
	}
	if err := os.WriteFile(p, []byte(content), 0644); err != nil {
		t.Fatalf("writing %s: %v", rel, err)
	}
}
