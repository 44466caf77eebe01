package kv

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
)

// Field selects which value of an entry is copied.
type Field int

const (
	FieldSecret Field = iota
	FieldUsername
)

func (f Field) String() string {
	switch f {
	case FieldSecret:
		return "password"
	case FieldUsername:
		return "username"
	default:
		return fmt.Sprintf("Field(%d)", int(f))
	}
}

// ParseField maps the CLI spelling of a field to a Field.
func ParseField(s string) (Field, error) {
	switch s {
	case "password", "secret":
		return FieldSecret, nil
	case "username", "user":
		return FieldUsername, nil
	default:
		return 0, fmt.Errorf("unknown field %q (want password or username)", s)
	}
}

// EventKind identifies a session event.
type EventKind int

const (
	EventImportStarted EventKind = iota
	EventImported
	EventImportFailed
	EventUnlockStarted
	EventUnlocked
	EventUnlockFailed
	EventCopied
	EventClipboardCleared
	EventSelectionChanged
)

// Event announces a state change. Readers call Snapshot for the full state.
type Event struct {
	Kind   EventKind
	Import *ImportRecord
	Err    error
	Clear  *ClearEvent
}

// SessionState is a consistent copy of everything a front end displays.
type SessionState struct {
	Current   *ImportRecord
	Pinned    bool
	Tree      *Tree
	View      ViewState
	LastError error
	Importing bool
	Unlocking bool

	Clipboard          ClipboardState
	ClipboardRemaining time.Duration
}

// ErrLocked is returned when an operation needs a decrypted tree.
var ErrLocked = errors.New("database is locked")

// eventBuffer bounds undelivered events; further events are dropped.
const eventBuffer = 64

// Session is the single owner of the interactive state: which import is
// current, the decrypted tree, its view state, the last error and the
// clipboard session. All mutations go through its methods; blocking work
// runs on goroutines whose results are applied under the mutex.
//
// Lock order: s.mu is never held while calling into the ClipboardSession.
type Session struct {
	svc    *KVService
	loader VaultLoader
	clip   *ClipboardSession
	logger Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
	events chan Event

	mu           sync.Mutex
	current      *ImportRecord
	pinned       bool
	tree         *Tree
	view         ViewState
	lastErr      error
	imports      int
	unlocking    bool
	unlockSeq    uint64
	unlockCancel context.CancelFunc
	closed       bool
}

// NewSession creates a session. Call Init to select the latest import.
func NewSession(svc *KVService, loader VaultLoader, clip *ClipboardSession, logger Logger) *Session {
	ctx, cancel := context.WithCancel(context.Background())
	s := &Session{
		svc:    svc,
		loader: loader,
		clip:   clip,
		logger: logger,
		ctx:    ctx,
		cancel: cancel,
		events: make(chan Event, eventBuffer),
	}
	clip.OnCleared(s.clipboardCleared)
	return s
}

// Init makes the most recent import current.
func (s *Session) Init() error {
	latest, err := s.svc.Latest()
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.current = latest
	s.pinned = false
	return nil
}

// Events returns the channel on which state changes are announced. It is
// closed by Close.
func (s *Session) Events() <-chan Event {
	return s.events
}

// SelectImport makes the import with the given ID current. The displayed
// tree belongs to the previous import and is discarded.
func (s *Session) SelectImport(id int64) error {
	rec, err := s.svc.Get(id)
	if err != nil {
		s.setError(err)
		return err
	}
	latest, err := s.svc.Latest()
	if err != nil {
		s.setError(err)
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	if s.current != nil && s.current.ID == rec.ID {
		return nil
	}
	s.current = rec
	s.pinned = latest == nil || latest.ID != rec.ID
	s.lastErr = nil
	s.discardTreeLocked()
	s.logger.Info("import selected", "id", rec.ID, "pinned", s.pinned)
	s.emitLocked(Event{Kind: EventSelectionChanged, Import: rec})
	return nil
}

// StartImport downloads rawURL in the background. On success the new import
// becomes current.
func (s *Session) StartImport(rawURL string) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.imports++
	s.lastErr = nil
	s.wg.Add(1)
	s.emitLocked(Event{Kind: EventImportStarted})
	s.mu.Unlock()

	go func() {
		defer s.wg.Done()
		rec, err := s.svc.Import(s.ctx, rawURL)
		s.finishImport(rec, err)
	}()
}

func (s *Session) finishImport(rec *ImportRecord, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.imports--
	if err != nil {
		s.lastErr = err
		s.emitLocked(Event{Kind: EventImportFailed, Err: err})
		return
	}
	s.current = rec
	s.pinned = false
	s.lastErr = nil
	s.discardTreeLocked()
	s.emitLocked(Event{Kind: EventImported, Import: rec})
}

// StartUnlock decrypts the current import with password in the background.
// A newer call supersedes an unfinished one, whose result is discarded. On
// failure the displayed tree is left unchanged.
func (s *Session) StartUnlock(password string) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	if s.current == nil {
		s.lastErr = ErrNoImport
		s.emitLocked(Event{Kind: EventUnlockFailed, Err: ErrNoImport})
		s.mu.Unlock()
		return
	}
	if s.unlockCancel != nil {
		s.unlockCancel()
	}
	s.unlockSeq++
	seq := s.unlockSeq
	ctx, cancel := context.WithCancel(s.ctx)
	s.unlockCancel = cancel
	s.unlocking = true
	s.lastErr = nil
	rec := s.current
	s.wg.Add(1)
	s.emitLocked(Event{Kind: EventUnlockStarted, Import: rec})
	s.mu.Unlock()

	go func() {
		defer s.wg.Done()
		defer cancel()
		tree, err := s.unlock(ctx, rec, password)
		s.finishUnlock(seq, rec, tree, err)
	}()
}

func (s *Session) unlock(ctx context.Context, rec *ImportRecord, password string) (*Tree, error) {
	data, err := s.svc.LoadPayload(rec)
	if err != nil {
		return nil, err
	}
	root, err := s.loader.Decrypt(ctx, data, password)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return BuildTree(root)
}

func (s *Session) finishUnlock(seq uint64, rec *ImportRecord, tree *Tree, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || seq != s.unlockSeq {
		s.logger.Debug("superseded unlock result discarded", "import_id", rec.ID, "seq", seq)
		return
	}
	s.unlocking = false
	s.unlockCancel = nil
	if err != nil {
		s.logger.Warn("unlock failed", "import_id", rec.ID, "error", err)
		s.lastErr = err
		s.emitLocked(Event{Kind: EventUnlockFailed, Import: rec, Err: err})
		return
	}
	s.tree = tree
	s.view = DefaultViewState(tree)
	s.lastErr = nil
	s.logger.Info("database unlocked", "import_id", rec.ID, "entries", tree.CountEntries())
	s.emitLocked(Event{Kind: EventUnlocked, Import: rec})
}

// Toggle expands or collapses the group with the given id. It reports
// whether anything changed.
func (s *Session) Toggle(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.tree == nil {
		return false
	}
	n, ok := s.tree.Find(id)
	if !ok || !n.IsGroup() {
		return false
	}
	s.view = s.view.Toggle(id)
	return true
}

// Copy puts the selected field of an entry on the clipboard and schedules
// its removal.
func (s *Session) Copy(id string, field Field) error {
	s.mu.Lock()
	tree := s.tree
	s.mu.Unlock()

	value, err := entryValue(tree, id, field)
	if err != nil {
		s.setError(err)
		return err
	}

	err = s.clip.Copy(value)

	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil {
		s.lastErr = err
		return err
	}
	s.lastErr = nil
	s.logger.Info("copied to clipboard", "entry", id, "field", field.String())
	s.emitLocked(Event{Kind: EventCopied})
	return nil
}

func entryValue(tree *Tree, id string, field Field) (string, error) {
	if tree == nil {
		return "", ErrLocked
	}
	n, ok := tree.Find(id)
	if !ok {
		return "", fmt.Errorf("no entry with id %s", id)
	}
	if n.IsGroup() {
		return "", fmt.Errorf("%s is a group, not an entry", n.Title)
	}
	switch field {
	case FieldSecret:
		return n.Secret, nil
	case FieldUsername:
		return n.Username, nil
	default:
		return "", fmt.Errorf("unknown field %v", field)
	}
}

// ClearClipboard wipes the clipboard now if it still holds the copied value.
func (s *Session) ClearClipboard() error {
	return s.clip.Flush()
}

// DismissError forgets the last error.
func (s *Session) DismissError() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastErr = nil
}

// Snapshot returns the current state.
func (s *Session) Snapshot() SessionState {
	clipState := s.clip.State()
	remaining := s.clip.Remaining()

	s.mu.Lock()
	defer s.mu.Unlock()
	return SessionState{
		Current:            s.current,
		Pinned:             s.pinned,
		Tree:               s.tree,
		View:               s.view,
		LastError:          s.lastErr,
		Importing:          s.imports > 0,
		Unlocking:          s.unlocking,
		Clipboard:          clipState,
		ClipboardRemaining: remaining,
	}
}

// Close cancels background work, waits for it, resets the clipboard session
// and closes the event channel. Results that arrive during Close are dropped.
func (s *Session) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.mu.Unlock()

	s.cancel()
	s.wg.Wait()
	s.clip.Reset()

	s.mu.Lock()
	close(s.events)
	s.mu.Unlock()
}

func (s *Session) clipboardCleared(ev ClearEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if ev.Err != nil {
		s.lastErr = ev.Err
	}
	s.emitLocked(Event{Kind: EventClipboardCleared, Clear: &ev})
}

func (s *Session) setError(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastErr = err
}

// discardTreeLocked drops the displayed tree and supersedes any decrypt in
// flight for the previous import. Callers hold s.mu.
func (s *Session) discardTreeLocked() {
	if s.unlockCancel != nil {
		s.unlockCancel()
		s.unlockCancel = nil
	}
	s.unlockSeq++
	s.unlocking = false
	s.tree = nil
	s.view = ViewState{}
}

// emitLocked queues ev without blocking. Callers hold s.mu.
func (s *Session) emitLocked(ev Event) {
	if s.closed {
		return
	}
	select {
	case s.events <- ev:
	default:
		s.logger.Debug("session event dropped", "kind", int(ev.Kind))
	}
}
