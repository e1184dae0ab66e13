package mdv

import "context"

// Database is the id index over version records. It lets a version be found
// by id without scanning every set, and summarizes sets for listings.
// The vault remains the source of truth; Reindex rebuilds the index from it.
type Database interface {
	// InsertVersion records where a version lives.
	InsertVersion(ctx context.Context, entry *IndexEntry) error

	// FindVersionByID returns the entry for id, or nil if there is none.
	FindVersionByID(ctx context.Context, id string) (*IndexEntry, error)

	// ListFileVersions returns the entries of one file, oldest first.
	ListFileVersions(ctx context.Context, filePath string) ([]*IndexEntry, error)

	// ListVersionIDs returns the ids of all indexed versions.
	ListVersionIDs(ctx context.Context) ([]string, error)

	// DeleteVersion removes the entry for id. Deleting a missing id is not an error.
	DeleteVersion(ctx context.Context, id string) error

	// ListVersionedFiles summarizes every file that has versions, most
	// recently versioned first.
	ListVersionedFiles(ctx context.Context) ([]*VersionedFile, error)

	// DeleteAllVersions empties the index.
	DeleteAllVersions(ctx context.Context) error

	// Close closes the database connection.
	Close() error
}
