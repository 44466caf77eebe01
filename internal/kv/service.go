package kv

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"
)

// maxNameAttempts bounds the suffixes tried when two imports of the same
// file land in the same second.
const maxNameAttempts = 100

// KVService is the orchestration layer that coordinates the downloader,
// payload storage and import history to perform the operations needed by
// the CLI and the session.
type KVService struct {
	store      ImportStore
	payloads   PayloadStore
	sealer     Sealer
	downloader Downloader
	logger     Logger
	clock      Clock

	// importMu serializes imports within the process so appends are totally
	// ordered by ImportedAt. lock, when set, does the same across processes.
	importMu sync.Mutex
	lock     ImportLock
}

// ImportLock serializes imports between processes sharing a base directory.
type ImportLock interface {
	// Acquire blocks until the lock is held or ctx ends.
	Acquire(ctx context.Context) (release func(), err error)
}

// NewKVService creates a new KVService with the provided dependencies.
func NewKVService(store ImportStore, payloads PayloadStore, sealer Sealer, downloader Downloader, logger Logger, clock Clock) *KVService {
	return &KVService{
		store:      store,
		payloads:   payloads,
		sealer:     sealer,
		downloader: downloader,
		logger:     logger,
		clock:      clock,
	}
}

// UseImportLock makes every import hold l while it names and records the
// payload.
func (s *KVService) UseImportLock(l ImportLock) {
	s.importMu.Lock()
	defer s.importMu.Unlock()
	s.lock = l
}

// Import downloads the file at rawURL, stores its payload and appends a
// record to the history. No record is created when any step fails.
func (s *KVService) Import(ctx context.Context, rawURL string) (*ImportRecord, error) {
	source := redactURL(rawURL)
	s.logger.Info("import started", "url", source)

	data, err := s.downloader.Fetch(ctx, rawURL)
	if err != nil {
		s.logger.Warn("download failed", "url", source, "error", err)
		return nil, err
	}

	s.importMu.Lock()
	defer s.importMu.Unlock()

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("import canceled: %w", err)
	}
	if s.lock != nil {
		release, err := s.lock.Acquire(ctx)
		if err != nil {
			return nil, &StorageError{Op: "acquire import lock", Err: err}
		}
		defer release()
	}

	var sealed bytes.Buffer
	if err := s.sealer.Seal(bytes.NewReader(data), &sealed); err != nil {
		return nil, &StorageError{Op: "seal payload", Err: err}
	}

	originalName := OriginalNameFromURL(rawURL)
	importedAt := s.clock.Now()
	if latest, err := s.store.GetLatest(); err == nil && latest != nil && !importedAt.After(latest.ImportedAt) {
		// Keep the history strictly ordered even if the wall clock stepped back.
		importedAt = latest.ImportedAt.Add(time.Millisecond)
	}

	storedName, err := s.putPayload(importedAt, originalName, sealed.Bytes())
	if err != nil {
		return nil, err
	}

	rec, err := s.store.Insert(storedName, originalName, importedAt, ImportMeta{
		Size:      int64(len(data)),
		SourceURL: source,
	})
	if err != nil {
		s.logger.Error("recording import failed", "stored_name", storedName, "error", err)
		if delErr := s.payloads.Delete(storedName); delErr != nil {
			s.logger.Warn("removing unrecorded payload failed", "stored_name", storedName, "error", delErr)
		}
		var storageErr *StorageError
		if !errors.As(err, &storageErr) {
			err = &StorageError{Op: "record import", Err: err}
		}
		return nil, err
	}

	s.logger.Info("import complete", "id", rec.ID, "stored_name", rec.StoredName, "size", rec.Size)
	return rec, nil
}

// putPayload stores data under the first free stored name for importedAt.
func (s *KVService) putPayload(importedAt time.Time, originalName string, data []byte) (string, error) {
	for attempt := 1; attempt <= maxNameAttempts; attempt++ {
		name := StoredName(importedAt, originalName)
		if attempt > 1 {
			name = fmt.Sprintf("%s_%d_%s", importedAt.Format(storedNameLayout), attempt, originalName)
		}

		err := s.payloads.Put(name, bytes.NewReader(data), int64(len(data)))
		if errors.Is(err, ErrPayloadExists) {
			continue
		}
		if err != nil {
			return "", &StorageError{Op: "write payload", Err: err}
		}
		return name, nil
	}
	return "", &StorageError{Op: "write payload", Err: fmt.Errorf("no free name for %s", originalName)}
}

// LoadPayload returns the original bytes of an import.
func (s *KVService) LoadPayload(rec *ImportRecord) ([]byte, error) {
	var sealed bytes.Buffer
	if err := s.payloads.Get(rec.StoredName, &sealed); err != nil {
		return nil, &StorageError{Op: "read payload", Err: err}
	}

	var plain bytes.Buffer
	if err := s.sealer.Open(&sealed, &plain); err != nil {
		return nil, &StorageError{Op: "unseal payload", Err: err}
	}
	return plain.Bytes(), nil
}

// History returns every import, newest first.
func (s *KVService) History() ([]*ImportRecord, error) {
	recs, err := s.store.ListAll()
	if err != nil {
		return nil, fmt.Errorf("listing imports: %w", err)
	}
	return recs, nil
}

// Latest returns the most recent import, or nil when there is none.
func (s *KVService) Latest() (*ImportRecord, error) {
	rec, err := s.store.GetLatest()
	if err != nil {
		return nil, fmt.Errorf("finding latest import: %w", err)
	}
	return rec, nil
}

// Get returns the import with the given ID.
func (s *KVService) Get(id int64) (*ImportRecord, error) {
	rec, err := s.store.Get(id)
	if err != nil {
		return nil, fmt.Errorf("finding import %d: %w", id, err)
	}
	if rec == nil {
		return nil, fmt.Errorf("import %d does not exist", id)
	}
	return rec, nil
}

// redactURL drops credentials and query strings before a URL is logged or
// persisted.
func redactURL(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	u.User = nil
	u.RawQuery = ""
	u.Fragment = ""
	return strings.TrimSuffix(u.String(), "?")
}
