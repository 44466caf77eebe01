package payload

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"kv-go/internal/kv"
)

// FileSystemStore keeps each imported file as a plain file under root:
//
//	<root>/
//	  <storedName>
type FileSystemStore struct {
	root string
}

// NewFileSystemStore creates a store rooted at the given path, creating the
// directory if needed.
func NewFileSystemStore(root string) (*FileSystemStore, error) {
	if err := os.MkdirAll(root, 0700); err != nil {
		return nil, fmt.Errorf("failed to create payload directory: %w", err)
	}
	return &FileSystemStore{root: root}, nil
}

// Root returns the directory holding the payloads.
func (s *FileSystemStore) Root() string {
	return s.root
}

// Put stores the payload. It fails with kv.ErrPayloadExists if name is taken,
// also when another process wins the race for the same name.
func (s *FileSystemStore) Put(name string, r io.Reader, size int64) error {
	if err := validateName(name); err != nil {
		return err
	}
	destPath := filepath.Join(s.root, name)
	if _, err := os.Lstat(destPath); err == nil {
		return fmt.Errorf("%s: %w", name, kv.ErrPayloadExists)
	}
	return s.writeFile(destPath, r, size)
}

// Get writes the payload stored under name to w.
func (s *FileSystemStore) Get(name string, w io.Writer) error {
	if err := validateName(name); err != nil {
		return err
	}

	f, err := os.Open(filepath.Join(s.root, name))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("payload not found: %s", name)
		}
		return fmt.Errorf("failed to open payload: %w", err)
	}
	defer f.Close()

	if _, err := io.Copy(w, f); err != nil {
		return fmt.Errorf("failed to read payload: %w", err)
	}
	return nil
}

// Delete removes the payload stored under name.
func (s *FileSystemStore) Delete(name string) error {
	if err := validateName(name); err != nil {
		return err
	}
	err := os.Remove(filepath.Join(s.root, name))
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to remove payload: %w", err)
	}
	return nil
}

// ValidateSetup verifies that the root directory exists and is writable.
func (s *FileSystemStore) ValidateSetup() error {
	info, err := os.Stat(s.root)
	if err != nil {
		return fmt.Errorf("payload root not accessible: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("payload root is not a directory: %s", s.root)
	}

	probe, err := os.CreateTemp(s.root, ".probe-*")
	if err != nil {
		return fmt.Errorf("payload root not writable: %w", err)
	}
	probe.Close()
	return os.Remove(probe.Name())
}

// writeFile writes r to a temp file in the same directory and links it into
// place. Unlike a rename, the link fails if destPath already exists, so a
// concurrent writer can never be overwritten.
func (s *FileSystemStore) writeFile(destPath string, r io.Reader, expectedSize int64) error {
	tmpFile, err := os.CreateTemp(s.root, ".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmpFile.Name()
	defer os.Remove(tmpPath)

	written, err := io.Copy(tmpFile, r)
	if err != nil {
		tmpFile.Close()
		return fmt.Errorf("failed to write data: %w", err)
	}
	if err := tmpFile.Sync(); err != nil {
		tmpFile.Close()
		return fmt.Errorf("failed to sync temp file: %w", err)
	}
	if err := tmpFile.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}

	if written != expectedSize {
		return fmt.Errorf("size mismatch: expected %d bytes, got %d", expectedSize, written)
	}

	if err := os.Link(tmpPath, destPath); err != nil {
		if errors.Is(err, fs.ErrExist) {
			return fmt.Errorf("%s: %w", filepath.Base(destPath), kv.ErrPayloadExists)
		}
		return fmt.Errorf("failed to move payload into place: %w", err)
	}
	return nil
}

// Compile-time check that FileSystemStore implements kv.PayloadStore.
var _ kv.PayloadStore = (*FileSystemStore)(nil)
