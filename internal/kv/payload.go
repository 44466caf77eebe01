package kv

import (
	"errors"
	"io"
)

// PayloadStore keeps the raw bytes of imported files, keyed by stored name.
// All operations stream so large files are not held twice in memory.
type PayloadStore interface {
	// Put stores the payload under name. size is the number of bytes that
	// will be read from r. Names are never reused, so Put does not overwrite.
	Put(name string, r io.Reader, size int64) error

	// Get writes the payload stored under name to w.
	Get(name string, w io.Writer) error

	// Delete removes the payload stored under name. Removing a missing
	// payload is not an error.
	Delete(name string) error

	// ValidateSetup verifies that the store is reachable and writable.
	ValidateSetup() error
}

// ErrPayloadExists is returned by PayloadStore.Put when name is taken.
var ErrPayloadExists = errors.New("payload already exists")
