package mdv

import (
	"context"
	"errors"
	"fmt"
)

// GetVersions returns summaries of the versions of filePath, newest first,
// at most limit of them. A non-positive limit selects DefaultListLimit.
// Records that cannot be read are skipped.
func (s *SnapshotStore) GetVersions(ctx context.Context, filePath string, limit int) ([]VersionSummary, error) {
	fp, err := NormalizeFilePath(filePath)
	if err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = DefaultListLimit
	}

	setKey := SetKey(fp)
	keys, err := s.vault.ListRecords(ctx, setKey)
	if err != nil {
		return nil, storageErr("listing version records", err)
	}

	summaries := []VersionSummary{}
	for i := len(keys) - 1; i >= 0 && len(summaries) < limit; i-- {
		pk, ok := parseRecordKey(keys[i])
		if !ok {
			continue
		}
		summary, err := s.loadSummary(ctx, setKey, keys[i], pk)
		if err != nil {
			s.logger.Warn("skipping unreadable version record", "file_path", fp, "record", keys[i], "error", err)
			continue
		}
		summaries = append(summaries, summary)
	}
	return summaries, nil
}

// GetVersion returns the full version with the given id. Unknown ids return
// an error wrapping ErrNotFound.
func (s *SnapshotStore) GetVersion(ctx context.Context, id string) (*Version, error) {
	entry, err := s.findEntry(ctx, id)
	if err != nil {
		return nil, err
	}

	pk, _ := parseRecordKey(entry.RecordKey)
	v, err := s.readRecord(ctx, entry.SetKey, entry.RecordKey, pk.encrypted)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, fmt.Errorf("version %s: %w", id, ErrNotFound)
		}
		return nil, err
	}
	return v, nil
}

// DeleteVersion removes exactly one version.
func (s *SnapshotStore) DeleteVersion(ctx context.Context, id string) error {
	entry, err := s.findEntry(ctx, id)
	if err != nil {
		return err
	}

	unlock := s.locks.lock(entry.FilePath)
	defer unlock()

	recordErr := s.vault.DeleteRecord(ctx, entry.SetKey, entry.RecordKey)
	if recordErr != nil && !errors.Is(recordErr, ErrNotFound) {
		return storageErr("deleting version record", recordErr)
	}
	if err := s.database.DeleteVersion(ctx, id); err != nil {
		return storageErr("removing version from index", err)
	}
	if recordErr != nil {
		// The index pointed at a record that no longer exists.
		return fmt.Errorf("version %s: %w", id, ErrNotFound)
	}

	s.logger.Info("version deleted", "file_path", entry.FilePath, "id", id)
	return nil
}

// CleanupOldVersions deletes the oldest versions of filePath so that at most
// keepCount remain.
func (s *SnapshotStore) CleanupOldVersions(ctx context.Context, filePath string, keepCount int) (*CleanupResult, error) {
	if keepCount < 0 {
		return nil, fmt.Errorf("%w: keep count %d is negative", ErrInvalidArgument, keepCount)
	}
	fp, err := NormalizeFilePath(filePath)
	if err != nil {
		return nil, err
	}

	unlock := s.locks.lock(fp)
	defer unlock()

	setKey := SetKey(fp)
	keys, err := s.vault.ListRecords(ctx, setKey)
	if err != nil {
		return nil, storageErr("listing version records", err)
	}

	var records []parsedKey
	var recordKeys []string
	for _, key := range keys {
		if pk, ok := parseRecordKey(key); ok {
			records = append(records, pk)
			recordKeys = append(recordKeys, key)
		}
	}

	result := &CleanupResult{RemainingCount: len(records)}
	if len(records) <= keepCount {
		return result, nil
	}

	// Keys are ascending, so the oldest come first.
	for i := 0; i < len(records)-keepCount; i++ {
		err := s.vault.DeleteRecord(ctx, setKey, recordKeys[i])
		if err != nil && !errors.Is(err, ErrNotFound) {
			return nil, storageErr("deleting version record", err)
		}
		if err := s.database.DeleteVersion(ctx, records[i].id); err != nil {
			return nil, storageErr("removing version from index", err)
		}
		result.DeletedCount++
		result.RemainingCount--
	}

	s.logger.Info("old versions cleaned up", "file_path", fp, "deleted", result.DeletedCount, "remaining", result.RemainingCount)
	return result, nil
}

// ListVersionedFiles summarizes every file that has versions, most recently
// versioned first.
func (s *SnapshotStore) ListVersionedFiles(ctx context.Context) ([]*VersionedFile, error) {
	files, err := s.database.ListVersionedFiles(ctx)
	if err != nil {
		return nil, storageErr("listing versioned files", err)
	}
	return files, nil
}

// Reindex rebuilds the id index from the records in the vault. Records that
// cannot be read are left out, except encrypted records while no key is
// unlocked: those keep the entry the index already had for them. Returns the
// number of versions indexed.
func (s *SnapshotStore) Reindex(ctx context.Context) (int, error) {
	sets, err := s.vault.ListSets(ctx)
	if err != nil {
		return 0, storageErr("listing version sets", err)
	}

	type record struct {
		setKey, key string
		pk          parsedKey
		kept        *IndexEntry
	}
	var records []record
	for _, setKey := range sets {
		keys, err := s.vault.ListRecords(ctx, setKey)
		if err != nil {
			return 0, storageErr("listing version records", err)
		}
		for _, key := range keys {
			pk, ok := parseRecordKey(key)
			if !ok {
				continue
			}
			rec := record{setKey: setKey, key: key, pk: pk}
			if pk.encrypted && s.decryptCtx == nil {
				if rec.kept, err = s.database.FindVersionByID(ctx, pk.id); err != nil {
					return 0, storageErr("looking up version", err)
				}
			}
			records = append(records, rec)
		}
	}

	if err := s.database.DeleteAllVersions(ctx); err != nil {
		return 0, storageErr("clearing index", err)
	}

	count := 0
	for _, rec := range records {
		entry := rec.kept
		if entry == nil {
			v, err := s.readRecord(ctx, rec.setKey, rec.key, rec.pk.encrypted)
			if err != nil {
				s.logger.Warn("not indexing unreadable version record", "set", rec.setKey, "record", rec.key, "error", err)
				continue
			}
			entry = indexEntry(v, rec.setKey, rec.key)
		}
		if err := s.database.InsertVersion(ctx, entry); err != nil {
			return count, storageErr("indexing version", err)
		}
		count++
	}

	s.logger.Info("index rebuilt", "sets", len(sets), "versions", count)
	return count, nil
}

// SyncIndex compares the ids in the index with the record keys in the vault
// and rebuilds the index when they differ. It reports whether a rebuild ran.
func (s *SnapshotStore) SyncIndex(ctx context.Context) (bool, error) {
	indexed, err := s.database.ListVersionIDs(ctx)
	if err != nil {
		return false, storageErr("listing indexed versions", err)
	}
	want := make(map[string]bool, len(indexed))
	for _, id := range indexed {
		want[id] = true
	}

	sets, err := s.vault.ListSets(ctx)
	if err != nil {
		return false, storageErr("listing version sets", err)
	}
	stored := 0
	inSync := true
	for _, setKey := range sets {
		keys, err := s.vault.ListRecords(ctx, setKey)
		if err != nil {
			return false, storageErr("listing version records", err)
		}
		for _, key := range keys {
			pk, ok := parseRecordKey(key)
			if !ok {
				continue
			}
			stored++
			if !want[pk.id] {
				inSync = false
			}
		}
	}
	if inSync && stored == len(indexed) {
		return false, nil
	}

	s.logger.Warn("version index out of date, rebuilding", "indexed", len(indexed), "stored", stored)
	if _, err := s.Reindex(ctx); err != nil {
		return true, err
	}
	return true, nil
}

// findEntry looks up id in the index. On a miss the vault is scanned, and a
// record found that way is added back to the index.
func (s *SnapshotStore) findEntry(ctx context.Context, id string) (*IndexEntry, error) {
	if id == "" {
		return nil, fmt.Errorf("%w: empty version id", ErrInvalidArgument)
	}
	entry, err := s.database.FindVersionByID(ctx, id)
	if err != nil {
		return nil, storageErr("looking up version", err)
	}
	if entry != nil {
		return entry, nil
	}
	return s.scanForEntry(ctx, id)
}

func (s *SnapshotStore) scanForEntry(ctx context.Context, id string) (*IndexEntry, error) {
	sets, err := s.vault.ListSets(ctx)
	if err != nil {
		return nil, storageErr("listing version sets", err)
	}
	for _, setKey := range sets {
		keys, err := s.vault.ListRecords(ctx, setKey)
		if err != nil {
			return nil, storageErr("listing version records", err)
		}
		for _, key := range keys {
			pk, ok := parseRecordKey(key)
			if !ok || pk.id != id {
				continue
			}
			v, err := s.readRecord(ctx, setKey, key, pk.encrypted)
			if err != nil {
				return nil, err
			}
			entry := indexEntry(v, setKey, key)
			if err := s.database.InsertVersion(ctx, entry); err != nil {
				s.logger.Warn("re-indexing version found in vault", "id", id, "error", err)
			}
			return entry, nil
		}
	}
	return nil, fmt.Errorf("version %s: %w", id, ErrNotFound)
}

func indexEntry(v *Version, setKey, recordKey string) *IndexEntry {
	return &IndexEntry{
		ID:          v.ID,
		FilePath:    v.FilePath,
		SetKey:      setKey,
		RecordKey:   recordKey,
		ContentHash: v.ContentHash,
		CreatedAt:   v.Timestamp,
		Size:        v.Size,
		Note:        v.Note,
	}
}
