package mdv

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// RestoreVersion overwrites the live file with the content of version id.
// If the live file exists its current content is first snapshotted with
// NotePreRestoreBackup; if that snapshot fails the file is left untouched.
func (s *SnapshotStore) RestoreVersion(ctx context.Context, id string) (*RestoreResult, error) {
	v, err := s.GetVersion(ctx, id)
	if err != nil {
		return nil, err
	}

	target, err := s.resolver.Resolve(v.FilePath)
	if err != nil {
		return nil, err
	}
	rel, err := s.resolver.Relative(target)
	if err != nil {
		return nil, err
	}
	if s.resolver.IsReserved(v.FilePath) || s.resolver.IsReserved(rel) {
		return nil, fmt.Errorf("%w: cannot restore onto %q", ErrReservedPath, v.FilePath)
	}

	unlock := s.locks.lock(v.FilePath)
	defer unlock()

	result := &RestoreResult{
		FilePath:          v.FilePath,
		RestoredVersionID: v.ID,
		RestoredTimestamp: v.Timestamp,
	}

	current, err := os.ReadFile(target)
	switch {
	case err == nil:
		backup, err := s.createVersionLocked(ctx, v.FilePath, string(current), NotePreRestoreBackup)
		if err != nil {
			return nil, fmt.Errorf("backing up current content: %w", err)
		}
		result.BackupVersionID = backup.ID
	case errors.Is(err, fs.ErrNotExist):
		// Nothing to back up.
	default:
		return nil, storageErr("reading current file", err)
	}

	if err := WriteFileAtomic(target, []byte(v.Content)); err != nil {
		return nil, storageErr("writing restored file", err)
	}

	s.logger.Info("version restored", "file_path", v.FilePath, "id", v.ID, "backup_id", result.BackupVersionID)
	return result, nil
}

// WriteFileAtomic writes data to path through a temp file in the same
// directory and a rename, creating parent directories as needed.
func WriteFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("creating parent directory: %w", err)
	}

	perm := fs.FileMode(0644)
	if info, err := os.Stat(path); err == nil {
		perm = info.Mode().Perm()
	}

	tmpFile, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpPath := tmpFile.Name()

	success := false
	defer func() {
		if !success {
			os.Remove(tmpPath)
		}
	}()

	if _, err := tmpFile.Write(data); err != nil {
		tmpFile.Close()
		return fmt.Errorf("writing data: %w", err)
	}
	if err := tmpFile.Chmod(perm); err != nil {
		tmpFile.Close()
		return fmt.Errorf("setting permissions: %w", err)
	}
	if err := tmpFile.Close(); err != nil {
		return fmt.Errorf("closing temp file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("renaming temp file: %w", err)
	}

	success = true
	return nil
}
