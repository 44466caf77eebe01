package kv

import "time"

// ImportRecord is the metadata of one imported database file. The secrets
// themselves are never part of it.
type ImportRecord struct {
	ID           int64
	StoredName   string
	OriginalName string
	ImportedAt   time.Time
	Size         int64
	SourceURL    string
}

// ImportMeta carries the optional descriptive fields of a new record.
type ImportMeta struct {
	Size      int64
	SourceURL string
}

// ImportStore is the append-only import history.
type ImportStore interface {
	// Insert appends a record and returns it with its assigned ID. The record
	// is durable when Insert returns. Failures are *StorageError.
	Insert(storedName, originalName string, importedAt time.Time, meta ImportMeta) (*ImportRecord, error)

	// ListAll returns every record, most recent first. It returns an empty
	// slice when the history is empty.
	ListAll() ([]*ImportRecord, error)

	// GetLatest returns the most recently imported record, or nil if none.
	GetLatest() (*ImportRecord, error)

	// Get returns the record with the given ID, or nil if it does not exist.
	Get(id int64) (*ImportRecord, error)

	// CheckMigrations verifies the schema is current.
	CheckMigrations() error

	// Close closes the underlying storage.
	Close() error
}
