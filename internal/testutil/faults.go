package testutil

import (
	"io"
	"sync"
	"time"

	"kv-go/internal/kv"
)

// FaultyImportStore wraps an ImportStore and fails inserts on demand.
type FaultyImportStore struct {
	kv.ImportStore

	mu        sync.Mutex
	insertErr error
}

var _ kv.ImportStore = (*FaultyImportStore)(nil)

// NewFaultyImportStore wraps store. It behaves like store until told to fail.
func NewFaultyImportStore(store kv.ImportStore) *FaultyImportStore {
	return &FaultyImportStore{ImportStore: store}
}

// FailInserts makes every Insert return err. nil restores normal behavior.
func (s *FaultyImportStore) FailInserts(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.insertErr = err
}

func (s *FaultyImportStore) Insert(storedName, originalName string, importedAt time.Time, meta kv.ImportMeta) (*kv.ImportRecord, error) {
	s.mu.Lock()
	err := s.insertErr
	s.mu.Unlock()
	if err != nil {
		return nil, err
	}
	return s.ImportStore.Insert(storedName, originalName, importedAt, meta)
}

// FaultyPayloadStore wraps a PayloadStore and fails writes on demand.
type FaultyPayloadStore struct {
	kv.PayloadStore

	mu     sync.Mutex
	putErr error
}

var _ kv.PayloadStore = (*FaultyPayloadStore)(nil)

// NewFaultyPayloadStore wraps store. It behaves like store until told to fail.
func NewFaultyPayloadStore(store kv.PayloadStore) *FaultyPayloadStore {
	return &FaultyPayloadStore{PayloadStore: store}
}

// FailPuts makes every Put return err. nil restores normal behavior.
func (s *FaultyPayloadStore) FailPuts(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.putErr = err
}

func (s *FaultyPayloadStore) Put(name string, r io.Reader, size int64) error {
	s.mu.Lock()
	err := s.putErr
	s.mu.Unlock()
	if err != nil {
		return err
	}
	return s.PayloadStore.Put(name, r, size)
}
