package vault

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"mdvault/internal/mdv"
)

// FileSystemVault is a filesystem-based implementation of the Vault interface.
// It stores one directory per version set:
//
//	<root>/
//	  <set key>/
//	    <record key>   (one JSON record per version)
type FileSystemVault struct {
	name string
	root string
}

// NewFileSystemVault creates a new filesystem vault rooted at the given path.
func NewFileSystemVault(name, root string) (*FileSystemVault, error) {
	if err := os.MkdirAll(root, 0755); err != nil {
		return nil, fmt.Errorf("failed to create vault directory: %w", err)
	}
	return &FileSystemVault{name: name, root: root}, nil
}

// PutRecord stores a record using an atomic write.
func (v *FileSystemVault) PutRecord(_ context.Context, setKey, recordKey string, r io.Reader, size int64) error {
	if err := validateKeys(setKey, recordKey); err != nil {
		return err
	}
	setDir := filepath.Join(v.root, setKey)
	if err := os.MkdirAll(setDir, 0755); err != nil {
		return fmt.Errorf("failed to create set directory: %w", err)
	}
	return v.writeFile(filepath.Join(setDir, recordKey), r, size)
}

// GetRecord writes the record to w.
func (v *FileSystemVault) GetRecord(_ context.Context, setKey, recordKey string, w io.Writer) error {
	if err := validateKeys(setKey, recordKey); err != nil {
		return err
	}
	return v.readFile(filepath.Join(v.root, setKey, recordKey), w)
}

// DeleteRecord removes one record. The set directory is removed once empty.
func (v *FileSystemVault) DeleteRecord(_ context.Context, setKey, recordKey string) error {
	if err := validateKeys(setKey, recordKey); err != nil {
		return err
	}
	p := filepath.Join(v.root, setKey, recordKey)
	if err := os.Remove(p); err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("record %s/%s: %w", setKey, recordKey, mdv.ErrNotFound)
		}
		return fmt.Errorf("failed to remove record: %w", err)
	}
	// Fails harmlessly while other records remain.
	os.Remove(filepath.Join(v.root, setKey))
	return nil
}

// ListRecords returns the record keys of a set in ascending order.
func (v *FileSystemVault) ListRecords(_ context.Context, setKey string) ([]string, error) {
	if err := validateKeys(setKey); err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(filepath.Join(v.root, setKey))
	if err != nil {
		if os.IsNotExist(err) {
			return []string{}, nil
		}
		return nil, fmt.Errorf("failed to read set directory: %w", err)
	}

	keys := make([]string, 0, len(entries))
	for _, e := range entries {
		// Skip leftovers of interrupted writes.
		if e.IsDir() || strings.HasPrefix(e.Name(), ".tmp-") {
			continue
		}
		keys = append(keys, e.Name())
	}
	sort.Strings(keys)
	return keys, nil
}

// ListSets returns the keys of all set directories.
func (v *FileSystemVault) ListSets(_ context.Context) ([]string, error) {
	entries, err := os.ReadDir(v.root)
	if err != nil {
		if os.IsNotExist(err) {
			return []string{}, nil
		}
		return nil, fmt.Errorf("failed to read vault directory: %w", err)
	}

	sets := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() && !strings.HasPrefix(e.Name(), ".") {
			sets = append(sets, e.Name())
		}
	}
	sort.Strings(sets)
	return sets, nil
}

// ValidateSetup verifies that the vault directory is accessible.
func (v *FileSystemVault) ValidateSetup(_ context.Context) error {
	info, err := os.Stat(v.root)
	if err != nil {
		return fmt.Errorf("vault root not accessible: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("vault root is not a directory: %s", v.root)
	}
	return nil
}

// writeFile writes data from r to the specified path using atomic write (temp file + rename).
func (v *FileSystemVault) writeFile(destPath string, r io.Reader, expectedSize int64) error {
	// Create temp file in the same directory to ensure atomic rename works
	dir := filepath.Dir(destPath)
	tmpFile, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmpFile.Name()

	success := false
	defer func() {
		if !success {
			os.Remove(tmpPath)
		}
	}()

	written, err := io.Copy(tmpFile, r)
	if err != nil {
		tmpFile.Close()
		return fmt.Errorf("failed to write data: %w", err)
	}

	if err := tmpFile.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}

	if written != expectedSize {
		return fmt.Errorf("size mismatch: expected %d bytes, got %d", expectedSize, written)
	}

	if err := os.Rename(tmpPath, destPath); err != nil {
		return fmt.Errorf("failed to rename temp file: %w", err)
	}

	success = true
	return nil
}

// readFile reads from the specified path and writes to w.
func (v *FileSystemVault) readFile(srcPath string, w io.Writer) error {
	f, err := os.Open(srcPath)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("record %s: %w", filepath.Base(srcPath), mdv.ErrNotFound)
		}
		return fmt.Errorf("failed to open file: %w", err)
	}
	defer f.Close()

	if _, err := io.Copy(w, f); err != nil {
		return fmt.Errorf("failed to read file: %w", err)
	}

	return nil
}

// validateKeys rejects keys that could address anything outside their set.
func validateKeys(keys ...string) error {
	for _, k := range keys {
		if k == "" || k == "." || k == ".." || strings.ContainsAny(k, `/\`) {
			return fmt.Errorf("%w: invalid vault key %q", mdv.ErrInvalidArgument, k)
		}
	}
	return nil
}

// Compile-time check that FileSystemVault implements mdv.Vault interface
var _ mdv.Vault = (*FileSystemVault)(nil)
