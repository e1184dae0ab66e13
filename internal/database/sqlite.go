package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"mdvault/internal/database/migrations"
	"mdvault/internal/mdv"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

// SQLiteDatabase implements the mdv.Database interface using SQLite.
type SQLiteDatabase struct {
	db   *sqlx.DB
	path string
}

// versionRow mirrors the versions table.
type versionRow struct {
	ID          string `db:"id"`
	FilePath    string `db:"file_path"`
	SetKey      string `db:"set_key"`
	RecordKey   string `db:"record_key"`
	ContentHash string `db:"content_hash"`
	CreatedAt   int64  `db:"created_at"`
	Size        int64  `db:"size"`
	Note        string `db:"note"`
}

type versionedFileRow struct {
	FilePath        string `db:"file_path"`
	VersionCount    int    `db:"version_count"`
	LatestCreatedAt int64  `db:"latest_created_at"`
	LatestSize      int64  `db:"latest_size"`
}

// NewSQLiteDatabase opens a SQLite database and applies pending migrations.
// path can be a file path or ":memory:" for in-memory database.
func NewSQLiteDatabase(path string) (*SQLiteDatabase, error) {
	db, err := OpenConnection(path)
	if err != nil {
		return nil, err
	}

	if err := migrations.MigrateUp(db.DB); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrating database: %w", err)
	}

	return &SQLiteDatabase{db: db, path: path}, nil
}

// NewSQLiteDatabaseFromDB wraps an existing database connection.
// The caller is responsible for ensuring the connection is properly configured
// and migrated.
func NewSQLiteDatabaseFromDB(db *sqlx.DB) *SQLiteDatabase {
	return &SQLiteDatabase{db: db}
}

// OpenConnection opens and configures a SQLite database connection with appropriate PRAGMAs.
// path can be a file path or ":memory:" for in-memory database.
func OpenConnection(path string) (*sqlx.DB, error) {
	db, err := sqlx.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// A single connection keeps ":memory:" databases alive and serializes writers.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to set busy timeout: %w", err)
	}

	return db, nil
}

// CheckMigrations verifies that the schema is at the latest version.
func (s *SQLiteDatabase) CheckMigrations() error {
	return migrations.CheckDBMigrationStatus(s.db.DB)
}

func (s *SQLiteDatabase) InsertVersion(ctx context.Context, entry *mdv.IndexEntry) error {
	row := versionRow{
		ID:          entry.ID,
		FilePath:    entry.FilePath,
		SetKey:      entry.SetKey,
		RecordKey:   entry.RecordKey,
		ContentHash: entry.ContentHash,
		CreatedAt:   entry.CreatedAt.UnixNano(),
		Size:        entry.Size,
		Note:        entry.Note,
	}
	_, err := s.db.NamedExecContext(ctx, `
		INSERT INTO versions (id, file_path, set_key, record_key, content_hash, created_at, size, note)
		VALUES (:id, :file_path, :set_key, :record_key, :content_hash, :created_at, :size, :note)`, row)
	if err != nil {
		return fmt.Errorf("inserting version: %w", err)
	}
	return nil
}

func (s *SQLiteDatabase) FindVersionByID(ctx context.Context, id string) (*mdv.IndexEntry, error) {
	var row versionRow
	err := s.db.GetContext(ctx, &row, `
		SELECT id, file_path, set_key, record_key, content_hash, created_at, size, note
		FROM versions WHERE id = ?`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil // Not found
		}
		return nil, fmt.Errorf("finding version by id: %w", err)
	}
	return row.toEntry(), nil
}

func (s *SQLiteDatabase) ListFileVersions(ctx context.Context, filePath string) ([]*mdv.IndexEntry, error) {
	var rows []versionRow
	err := s.db.SelectContext(ctx, &rows, `
		SELECT id, file_path, set_key, record_key, content_hash, created_at, size, note
		FROM versions WHERE file_path = ?
		ORDER BY created_at, id`, filePath)
	if err != nil {
		return nil, fmt.Errorf("listing versions of %s: %w", filePath, err)
	}

	entries := make([]*mdv.IndexEntry, len(rows))
	for i := range rows {
		entries[i] = rows[i].toEntry()
	}
	return entries, nil
}

func (s *SQLiteDatabase) ListVersionIDs(ctx context.Context) ([]string, error) {
	ids := []string{}
	if err := s.db.SelectContext(ctx, &ids, "SELECT id FROM versions ORDER BY id"); err != nil {
		return nil, fmt.Errorf("listing version ids: %w", err)
	}
	return ids, nil
}

func (s *SQLiteDatabase) DeleteVersion(ctx context.Context, id string) error {
	if _, err := s.db.ExecContext(ctx, "DELETE FROM versions WHERE id = ?", id); err != nil {
		return fmt.Errorf("deleting version: %w", err)
	}
	return nil
}

func (s *SQLiteDatabase) ListVersionedFiles(ctx context.Context) ([]*mdv.VersionedFile, error) {
	var rows []versionedFileRow
	err := s.db.SelectContext(ctx, &rows, `
		SELECT v.file_path    AS file_path,
		       c.version_count AS version_count,
		       v.created_at   AS latest_created_at,
		       v.size         AS latest_size
		FROM versions v
		JOIN (
			SELECT file_path, COUNT(*) AS version_count, MAX(created_at) AS latest
			FROM versions
			GROUP BY file_path
		) c ON v.file_path = c.file_path AND v.created_at = c.latest
		ORDER BY v.created_at DESC, v.file_path`)
	if err != nil {
		return nil, fmt.Errorf("listing versioned files: %w", err)
	}

	files := make([]*mdv.VersionedFile, len(rows))
	for i, r := range rows {
		files[i] = &mdv.VersionedFile{
			Path:            r.FilePath,
			VersionCount:    r.VersionCount,
			LatestTimestamp: time.Unix(0, r.LatestCreatedAt).UTC(),
			LatestSize:      r.LatestSize,
		}
	}
	return files, nil
}

func (s *SQLiteDatabase) DeleteAllVersions(ctx context.Context) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("starting transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM versions"); err != nil {
		return fmt.Errorf("deleting versions: %w", err)
	}
	return tx.Commit()
}

// Close closes the database connection.
func (s *SQLiteDatabase) Close() error {
	return s.db.Close()
}

func (r *versionRow) toEntry() *mdv.IndexEntry {
	return &mdv.IndexEntry{
		ID:          r.ID,
		FilePath:    r.FilePath,
		SetKey:      r.SetKey,
		RecordKey:   r.RecordKey,
		ContentHash: r.ContentHash,
		CreatedAt:   time.Unix(0, r.CreatedAt).UTC(),
		Size:        r.Size,
		Note:        r.Note,
	}
}

// Compile-time check that SQLiteDatabase implements mdv.Database interface
var _ mdv.Database = (*SQLiteDatabase)(nil)
