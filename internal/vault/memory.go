package vault

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sort"
	"sync"

	"mdvault/internal/mdv"
)

// MemoryVault is an in-memory implementation of the Vault interface.
// It stores all records in memory, making it useful for testing.
// This implementation is safe for concurrent use.
type MemoryVault struct {
	name string
	sets map[string]map[string][]byte // set key -> record key -> record
	mu   sync.RWMutex
}

// NewMemoryVault creates a new in-memory vault with the given name.
func NewMemoryVault(name string) *MemoryVault {
	return &MemoryVault{
		name: name,
		sets: make(map[string]map[string][]byte),
	}
}

// PutRecord stores a record.
func (m *MemoryVault) PutRecord(_ context.Context, setKey, recordKey string, r io.Reader, size int64) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return fmt.Errorf("failed to read record: %w", err)
	}

	if int64(len(data)) != size {
		return fmt.Errorf("size mismatch: expected %d bytes, got %d", size, len(data))
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	set, ok := m.sets[setKey]
	if !ok {
		set = make(map[string][]byte)
		m.sets[setKey] = set
	}
	set[recordKey] = data
	return nil
}

// GetRecord retrieves a record.
func (m *MemoryVault) GetRecord(_ context.Context, setKey, recordKey string, w io.Writer) error {
	m.mu.RLock()
	defer m.mu.RUnlock()

	data, ok := m.sets[setKey][recordKey]
	if !ok {
		return fmt.Errorf("record %s/%s: %w", setKey, recordKey, mdv.ErrNotFound)
	}

	if _, err := io.Copy(w, bytes.NewReader(data)); err != nil {
		return fmt.Errorf("failed to write record: %w", err)
	}

	return nil
}

// DeleteRecord removes one record.
func (m *MemoryVault) DeleteRecord(_ context.Context, setKey, recordKey string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	set := m.sets[setKey]
	if _, ok := set[recordKey]; !ok {
		return fmt.Errorf("record %s/%s: %w", setKey, recordKey, mdv.ErrNotFound)
	}
	delete(set, recordKey)
	if len(set) == 0 {
		delete(m.sets, setKey)
	}
	return nil
}

// ListRecords returns the record keys of a set in ascending order.
func (m *MemoryVault) ListRecords(_ context.Context, setKey string) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	keys := make([]string, 0, len(m.sets[setKey]))
	for k := range m.sets[setKey] {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys, nil
}

// ListSets returns all non-empty set keys.
func (m *MemoryVault) ListSets(_ context.Context) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	sets := make([]string, 0, len(m.sets))
	for k := range m.sets {
		sets = append(sets, k)
	}
	sort.Strings(sets)
	return sets, nil
}

// Corrupt overwrites an existing record with data, bypassing size checks.
// Records that do not exist are not created. Used by tests that exercise
// unreadable records.
func (m *MemoryVault) Corrupt(setKey, recordKey string, data []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.sets[setKey][recordKey]; ok {
		m.sets[setKey][recordKey] = data
	}
}

// ValidateSetup always succeeds for in-memory vault.
func (m *MemoryVault) ValidateSetup(_ context.Context) error {
	return nil
}

// Compile-time check that MemoryVault implements mdv.Vault interface
var _ mdv.Vault = (*MemoryVault)(nil)
