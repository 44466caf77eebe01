package payload

import (
	"bytes"
	"fmt"
	"io"
	"sync"

	"kv-go/internal/kv"
)

// MemoryStore is an in-memory implementation of kv.PayloadStore, useful for
// testing and for the memory database. It is safe for concurrent use.
type MemoryStore struct {
	mu    sync.RWMutex
	files map[string][]byte
}

// NewMemoryStore creates an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{files: make(map[string][]byte)}
}

// Put stores the payload. It fails with kv.ErrPayloadExists if name is taken.
func (m *MemoryStore) Put(name string, r io.Reader, size int64) error {
	if err := validateName(name); err != nil {
		return err
	}

	data, err := io.ReadAll(r)
	if err != nil {
		return fmt.Errorf("failed to read payload: %w", err)
	}
	if int64(len(data)) != size {
		return fmt.Errorf("size mismatch: expected %d bytes, got %d", size, len(data))
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.files[name]; ok {
		return fmt.Errorf("%s: %w", name, kv.ErrPayloadExists)
	}
	m.files[name] = data
	return nil
}

// Get writes the payload stored under name to w.
func (m *MemoryStore) Get(name string, w io.Writer) error {
	m.mu.RLock()
	data, ok := m.files[name]
	m.mu.RUnlock()

	if !ok {
		return fmt.Errorf("payload not found: %s", name)
	}
	if _, err := io.Copy(w, bytes.NewReader(data)); err != nil {
		return fmt.Errorf("failed to write payload: %w", err)
	}
	return nil
}

// Delete removes the payload stored under name.
func (m *MemoryStore) Delete(name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.files, name)
	return nil
}

// Len returns the number of stored payloads.
func (m *MemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.files)
}

// ValidateSetup always succeeds for the in-memory store.
func (m *MemoryStore) ValidateSetup() error {
	return nil
}

// Compile-time check that MemoryStore implements kv.PayloadStore.
var _ kv.PayloadStore = (*MemoryStore)(nil)
