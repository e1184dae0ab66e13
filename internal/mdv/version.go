package mdv

import "time"

// Version is one immutable snapshot of a file's content. It is also the
// on-disk record format.
type Version struct {
	ID          string    `json:"id"`
	FilePath    string    `json:"file_path"`
	Content     string    `json:"content"`
	ContentHash string    `json:"content_hash"`
	Timestamp   time.Time `json:"timestamp"`
	Size        int64     `json:"size"`
	Note        string    `json:"note"`
}

// Summary returns the version without its content.
func (v *Version) Summary() VersionSummary {
	return VersionSummary{
		ID:        v.ID,
		FilePath:  v.FilePath,
		Note:      v.Note,
		Timestamp: v.Timestamp,
		Size:      v.Size,
		Hash:      v.ContentHash,
	}
}

// VersionSummary describes a version without its content.
type VersionSummary struct {
	ID        string    `json:"id"`
	FilePath  string    `json:"file_path"`
	Note      string    `json:"note"`
	Timestamp time.Time `json:"timestamp"`
	Size      int64     `json:"size"`
	Hash      string    `json:"hash"`
}

// CreateResult is returned by CreateVersion. IsDuplicate is true when the
// content matched an existing version and nothing new was written.
type CreateResult struct {
	VersionSummary
	IsDuplicate bool `json:"is_duplicate"`
}

// RestoreResult describes a completed restore.
type RestoreResult struct {
	FilePath          string    `json:"file_path"`
	RestoredVersionID string    `json:"restored_version_id"`
	RestoredTimestamp time.Time `json:"restored_timestamp"`
	// BackupVersionID is the version holding the pre-restore content, empty
	// when the live file did not exist.
	BackupVersionID string `json:"backup_version_id,omitempty"`
}

// CleanupResult reports the outcome of CleanupOldVersions.
type CleanupResult struct {
	DeletedCount   int `json:"deleted_count"`
	RemainingCount int `json:"remaining_count"`
}

// VersionedFile summarizes the version set of one file.
type VersionedFile struct {
	Path            string    `json:"path"`
	VersionCount    int       `json:"version_count"`
	LatestTimestamp time.Time `json:"latest_timestamp"`
	LatestSize      int64     `json:"latest_size"`
}

// IndexEntry is a row of the id index: where a version's record lives and the
// metadata needed to list it without reading the record.
type IndexEntry struct {
	ID          string
	FilePath    string
	SetKey      string
	RecordKey   string
	ContentHash string
	CreatedAt   time.Time
	Size        int64
	Note        string
}
