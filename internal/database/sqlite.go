package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"kv-go/internal/database/migrations"
	"kv-go/internal/kv"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

const importColumns = "id, stored_name, original_name, imported_at, size, source_url"

// SQLiteImportStore implements kv.ImportStore using SQLite.
type SQLiteImportStore struct {
	db *sql.DB
}

// NewSQLiteImportStore opens the database at path and migrates it to the
// latest schema. path can be a file path or ":memory:".
func NewSQLiteImportStore(path string) (*SQLiteImportStore, error) {
	db, err := OpenConnection(path)
	if err != nil {
		return nil, err
	}

	if err := migrations.MigrateUp(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrating %s: %w", path, err)
	}

	return &SQLiteImportStore{db: db}, nil
}

// NewSQLiteImportStoreFromDB wraps an existing, already migrated connection.
func NewSQLiteImportStoreFromDB(db *sql.DB) *SQLiteImportStore {
	return &SQLiteImportStore{db: db}
}

// OpenConnection opens and configures a SQLite database connection.
//
// The pool is limited to one connection: every ":memory:" connection is a
// separate database, and a single writer keeps appends totally ordered
// within the process.
func OpenConnection(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to set busy timeout: %w", err)
	}
	return db, nil
}

func (s *SQLiteImportStore) Insert(storedName, originalName string, importedAt time.Time, meta kv.ImportMeta) (*kv.ImportRecord, error) {
	millis := importedAt.UnixMilli()
	res, err := s.db.ExecContext(context.Background(),
		"INSERT INTO imports (stored_name, original_name, imported_at, size, source_url) VALUES (?, ?, ?, ?, ?)",
		storedName, originalName, millis, meta.Size, meta.SourceURL)
	if err != nil {
		return nil, &kv.StorageError{Op: "insert import", Err: err}
	}

	id, err := res.LastInsertId()
	if err != nil {
		return nil, &kv.StorageError{Op: "insert import", Err: err}
	}

	return &kv.ImportRecord{
		ID:           id,
		StoredName:   storedName,
		OriginalName: originalName,
		ImportedAt:   time.UnixMilli(millis),
		Size:         meta.Size,
		SourceURL:    meta.SourceURL,
	}, nil
}

func (s *SQLiteImportStore) ListAll() ([]*kv.ImportRecord, error) {
	rows, err := s.db.QueryContext(context.Background(),
		"SELECT "+importColumns+" FROM imports ORDER BY imported_at DESC, id DESC")
	if err != nil {
		return nil, &kv.StorageError{Op: "list imports", Err: err}
	}
	defer rows.Close()

	result := []*kv.ImportRecord{}
	for rows.Next() {
		rec, err := scanImport(rows)
		if err != nil {
			return nil, &kv.StorageError{Op: "list imports", Err: err}
		}
		result = append(result, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, &kv.StorageError{Op: "list imports", Err: err}
	}
	return result, nil
}

func (s *SQLiteImportStore) GetLatest() (*kv.ImportRecord, error) {
	row := s.db.QueryRowContext(context.Background(),
		"SELECT "+importColumns+" FROM imports ORDER BY imported_at DESC, id DESC LIMIT 1")
	rec, err := scanImport(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil // Empty history
		}
		return nil, &kv.StorageError{Op: "find latest import", Err: err}
	}
	return rec, nil
}

func (s *SQLiteImportStore) Get(id int64) (*kv.ImportRecord, error) {
	row := s.db.QueryRowContext(context.Background(),
		"SELECT "+importColumns+" FROM imports WHERE id = ?", id)
	rec, err := scanImport(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil // Not found
		}
		return nil, &kv.StorageError{Op: "find import", Err: err}
	}
	return rec, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanImport(row scanner) (*kv.ImportRecord, error) {
	var rec kv.ImportRecord
	var millis int64
	if err := row.Scan(&rec.ID, &rec.StoredName, &rec.OriginalName, &millis, &rec.Size, &rec.SourceURL); err != nil {
		return nil, err
	}
	rec.ImportedAt = time.UnixMilli(millis)
	return &rec, nil
}

// CheckMigrations verifies the database schema is up-to-date.
func (s *SQLiteImportStore) CheckMigrations() error {
	return migrations.CheckDBMigrationStatus(s.db)
}

// Close closes the database connection.
func (s *SQLiteImportStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Compile-time check that SQLiteImportStore implements kv.ImportStore.
var _ kv.ImportStore = (*SQLiteImportStore)(nil)
