package mdv

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

const (
	// DefaultListLimit is used by GetVersions when no positive limit is given.
	DefaultListLimit = 50

	// DefaultKeepCount is the retention used when callers do not choose one.
	DefaultKeepCount = 20

	// NotePreRestoreBackup is the note attached to the snapshot of the live
	// file taken before a restore overwrites it.
	NotePreRestoreBackup = "pre-restore backup"
)

// ErrRecordLocked is returned when an encrypted record has to be read but no
// decryption key has been unlocked.
var ErrRecordLocked = errors.New("record is encrypted and no key is unlocked")

// SnapshotStore records, lists, restores and compares versions of files under
// a root directory. Records live in a Vault; a Database indexes them by id.
//
// Operations on the same logical path are serialized within the process.
// Nothing protects against other processes writing the same root.
type SnapshotStore struct {
	resolver   *PathResolver
	vault      Vault
	database   Database
	logger     Logger
	clock      Clock
	idgen      IDGenerator
	encryptor  Encryptor
	decryptCtx DecryptionContext
	locks      *pathLocks
}

// NewSnapshotStore creates a SnapshotStore with the provided dependencies.
// Records are written in plaintext until SetEncryption is called.
func NewSnapshotStore(resolver *PathResolver, vault Vault, database Database, logger Logger, clock Clock, idgen IDGenerator) *SnapshotStore {
	return &SnapshotStore{
		resolver: resolver,
		vault:    vault,
		database: database,
		logger:   logger,
		clock:    clock,
		idgen:    idgen,
		locks:    newPathLocks(),
	}
}

// SetEncryption makes new records encrypted with enc. dec, when non-nil, is
// used to read encrypted records; without it encrypted records can still be
// listed (from the index) but not read.
func (s *SnapshotStore) SetEncryption(enc Encryptor, dec DecryptionContext) {
	s.encryptor = enc
	s.decryptCtx = dec
}

// CreateVersion snapshots content as a new version of filePath. If a version
// with identical content already exists for the path, its summary is returned
// with IsDuplicate set and nothing is written.
func (s *SnapshotStore) CreateVersion(ctx context.Context, filePath, content, note string) (*CreateResult, error) {
	fp, err := NormalizeFilePath(filePath)
	if err != nil {
		return nil, err
	}
	if s.resolver.IsReserved(fp) {
		return nil, fmt.Errorf("%w: %q", ErrReservedPath, filePath)
	}

	unlock := s.locks.lock(fp)
	defer unlock()

	return s.createVersionLocked(ctx, fp, content, note)
}

// createVersionLocked does the work of CreateVersion. The caller holds the
// lock for fp.
func (s *SnapshotStore) createVersionLocked(ctx context.Context, fp, content, note string) (*CreateResult, error) {
	setKey := SetKey(fp)
	hash := HashContent(content)

	keys, err := s.vault.ListRecords(ctx, setKey)
	if err != nil {
		return nil, storageErr("listing version records", err)
	}
	indexed, err := s.database.ListFileVersions(ctx, fp)
	if err != nil {
		return nil, storageErr("listing indexed versions", err)
	}
	byID := make(map[string]*IndexEntry, len(indexed))
	for _, e := range indexed {
		byID[e.ID] = e
	}

	// Hashes come from the index; only records it does not know are read.
	var latest time.Time
	for i := len(keys) - 1; i >= 0; i-- {
		pk, ok := parseRecordKey(keys[i])
		if !ok {
			continue
		}
		if pk.timestamp.After(latest) {
			latest = pk.timestamp
		}

		var summary VersionSummary
		if e, ok := byID[pk.id]; ok && e.RecordKey == keys[i] {
			summary = summaryFromEntry(e)
		} else {
			summary, err = s.loadSummary(ctx, setKey, keys[i], pk)
			if err != nil {
				s.logger.Warn("skipping unreadable version record", "file_path", fp, "record", keys[i], "error", err)
				continue
			}
		}
		if summary.Hash == hash {
			s.logger.Debug("duplicate content, no version written", "file_path", fp, "id", summary.ID)
			return &CreateResult{VersionSummary: summary, IsDuplicate: true}, nil
		}
	}

	ts := s.clock.Now().UTC()
	if !ts.After(latest) {
		ts = latest.Add(time.Nanosecond)
	}

	v := &Version{
		ID:          s.idgen.New(),
		FilePath:    fp,
		Content:     content,
		ContentHash: hash,
		Timestamp:   ts,
		Size:        int64(len(content)),
		Note:        note,
	}

	key, err := s.writeRecord(ctx, setKey, v)
	if err != nil {
		return nil, err
	}

	if err := s.database.InsertVersion(ctx, indexEntry(v, setKey, key)); err != nil {
		if delErr := s.vault.DeleteRecord(ctx, setKey, key); delErr != nil {
			s.logger.Error("removing unindexed version record", "record", key, "error", delErr)
		}
		return nil, storageErr("indexing version", err)
	}

	s.logger.Info("version created", "file_path", fp, "id", v.ID, "size", v.Size, "note", note)
	return &CreateResult{VersionSummary: v.Summary()}, nil
}

// writeRecord serializes v, encrypting it when an encryptor is set, and
// stores it. Returns the record key.
func (s *SnapshotStore) writeRecord(ctx context.Context, setKey string, v *Version) (string, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encoding version record: %w", err)
	}

	encrypted := s.encryptor != nil
	if encrypted {
		var buf bytes.Buffer
		if err := s.encryptor.Encrypt(bytes.NewReader(data), &buf); err != nil {
			return "", storageErr("encrypting version record", err)
		}
		data = buf.Bytes()
	}

	key := recordKey(v.Timestamp, v.ID, encrypted)
	if err := s.vault.PutRecord(ctx, setKey, key, bytes.NewReader(data), int64(len(data))); err != nil {
		return "", storageErr("writing version record", err)
	}
	return key, nil
}

// readRecord fetches and decodes one record.
func (s *SnapshotStore) readRecord(ctx context.Context, setKey, key string, encrypted bool) (*Version, error) {
	var buf bytes.Buffer
	if err := s.vault.GetRecord(ctx, setKey, key, &buf); err != nil {
		return nil, storageErr("reading version record", err)
	}

	data := buf.Bytes()
	if encrypted {
		if s.decryptCtx == nil {
			return nil, ErrRecordLocked
		}
		var plain bytes.Buffer
		if err := s.decryptCtx.Decrypt(bytes.NewReader(data), &plain); err != nil {
			return nil, storageErr("decrypting version record", err)
		}
		data = plain.Bytes()
	}

	var v Version
	if err := json.Unmarshal(data, &v); err != nil {
		return nil, fmt.Errorf("decoding version record %s: %w", key, err)
	}
	if v.ID == "" {
		return nil, fmt.Errorf("version record %s has no id", key)
	}
	return &v, nil
}

// loadSummary returns the summary of a record. Encrypted records that cannot
// be decrypted are summarized from the index instead.
func (s *SnapshotStore) loadSummary(ctx context.Context, setKey, key string, pk parsedKey) (VersionSummary, error) {
	if pk.encrypted && s.decryptCtx == nil {
		entry, err := s.database.FindVersionByID(ctx, pk.id)
		if err != nil {
			return VersionSummary{}, err
		}
		if entry == nil {
			return VersionSummary{}, ErrRecordLocked
		}
		return summaryFromEntry(entry), nil
	}

	v, err := s.readRecord(ctx, setKey, key, pk.encrypted)
	if err != nil {
		return VersionSummary{}, err
	}
	return v.Summary(), nil
}

func summaryFromEntry(e *IndexEntry) VersionSummary {
	return VersionSummary{
		ID:        e.ID,
		FilePath:  e.FilePath,
		Note:      e.Note,
		Timestamp: e.CreatedAt,
		Size:      e.Size,
		Hash:      e.ContentHash,
	}
}
