package mdv

import (
	"context"
	"io"
)

// Vault stores version records. Records are grouped into sets (one per
// versioned file, identified by a set key) and addressed by a record key
// whose lexical order matches creation order.
type Vault interface {
	// PutRecord stores a record atomically: readers never observe a partial
	// record. size is the number of bytes that will be read from r.
	PutRecord(ctx context.Context, setKey, recordKey string, r io.Reader, size int64) error

	// GetRecord writes the record to w. Returns an error wrapping ErrNotFound
	// if the record does not exist.
	GetRecord(ctx context.Context, setKey, recordKey string, w io.Writer) error

	// DeleteRecord removes exactly one record. Returns an error wrapping
	// ErrNotFound if the record does not exist.
	DeleteRecord(ctx context.Context, setKey, recordKey string) error

	// ListRecords returns the record keys of a set in ascending order.
	// A set that has never been written returns an empty slice.
	ListRecords(ctx context.Context, setKey string) ([]string, error)

	// ListSets returns the keys of all non-empty sets.
	ListSets(ctx context.Context) ([]string, error)

	// ValidateSetup verifies that the vault is accessible and properly configured.
	ValidateSetup(ctx context.Context) error
}
