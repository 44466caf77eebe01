package kv_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"kv-go/internal/kv"
	"kv-go/internal/testutil"
)

const (
	secondURL      = "https://files.example.com/shared/Other.kdbx"
	samplePassword = "correct horse"
)

func waitFor(t *testing.T, s *kv.Session, kind kv.EventKind) kv.Event {
	t.Helper()
	timeout := time.After(5 * time.Second)
	for {
		select {
		case ev, ok := <-s.Events():
			if !ok {
				t.Fatalf("events closed while waiting for kind %d", kind)
			}
			if ev.Kind == kind {
				return ev
			}
		case <-timeout:
			t.Fatalf("timed out waiting for event kind %d", kind)
		}
	}
}

func importVault(t *testing.T, h *testutil.Harness, s *kv.Session, url string) *kv.ImportRecord {
	t.Helper()
	h.Downloader.Serve(url, []byte("payload of "+url))
	s.StartImport(url)
	ev := waitFor(t, s, kv.EventImported)
	h.Clock.Advance(time.Second)
	return ev.Import
}

func unlocked(t *testing.T, h *testutil.Harness) *kv.Session {
	t.Helper()
	s := h.NewSession(t)
	importVault(t, h, s, vaultURL)
	h.Loader.Accept(samplePassword, testutil.SampleVault())
	s.StartUnlock(samplePassword)
	waitFor(t, s, kv.EventUnlocked)
	return s
}

func TestSession_InitEmpty(t *testing.T) {
	h := testutil.NewHarness(t)
	s := h.NewSession(t)

	state := s.Snapshot()
	if state.Current != nil || state.Tree != nil {
		t.Errorf("Snapshot() = %+v, want empty", state)
	}

	s.StartUnlock("anything")
	ev := waitFor(t, s, kv.EventUnlockFailed)
	if !errors.Is(ev.Err, kv.ErrNoImport) {
		t.Errorf("unlock error = %v, want ErrNoImport", ev.Err)
	}
	if !errors.Is(s.Snapshot().LastError, kv.ErrNoImport) {
		t.Errorf("LastError = %v, want ErrNoImport", s.Snapshot().LastError)
	}
}

func TestSession_InitSelectsLatest(t *testing.T) {
	h := testutil.NewHarness(t)
	h.Downloader.Serve(vaultURL, []byte("v1"))
	if _, err := h.Service.Import(context.Background(), vaultURL); err != nil {
		t.Fatalf("Import() error = %v", err)
	}
	h.Clock.Advance(time.Second)
	latest, err := h.Service.Import(context.Background(), vaultURL)
	if err != nil {
		t.Fatalf("Import() error = %v", err)
	}

	s := h.NewSession(t)
	state := s.Snapshot()
	if state.Current == nil || state.Current.ID != latest.ID || state.Pinned {
		t.Errorf("Snapshot() current = %+v pinned = %v, want latest unpinned", state.Current, state.Pinned)
	}
}

func TestSession_ImportBecomesCurrent(t *testing.T) {
	h := testutil.NewHarness(t)
	s := h.NewSession(t)

	first := importVault(t, h, s, vaultURL)
	if got := s.Snapshot().Current; got == nil || got.ID != first.ID {
		t.Fatalf("Current = %+v, want import %d", got, first.ID)
	}

	second := importVault(t, h, s, secondURL)
	state := s.Snapshot()
	if state.Current.ID != second.ID || state.Pinned || state.Importing {
		t.Errorf("Snapshot() = current %d pinned %v importing %v, want %d false false",
			state.Current.ID, state.Pinned, state.Importing, second.ID)
	}
}

func TestSession_ImportFailureKeepsCurrent(t *testing.T) {
	h := testutil.NewHarness(t)
	s := h.NewSession(t)
	first := importVault(t, h, s, vaultURL)

	s.StartImport("https://files.example.com/missing.kdbx")
	ev := waitFor(t, s, kv.EventImportFailed)

	var netErr *kv.NetworkError
	if !errors.As(ev.Err, &netErr) || netErr.Code != 404 {
		t.Errorf("import error = %v, want 404", ev.Err)
	}
	state := s.Snapshot()
	if state.Current.ID != first.ID {
		t.Errorf("Current = %d, want %d", state.Current.ID, first.ID)
	}
	if kv.UserMessage(state.LastError) != "Download failed (HTTP 404)." {
		t.Errorf("UserMessage(LastError) = %q", kv.UserMessage(state.LastError))
	}
}

func TestSession_ImportStorageFailureKeepsCurrent(t *testing.T) {
	h := testutil.NewHarness(t)
	s := h.NewSession(t)
	first := importVault(t, h, s, vaultURL)

	h.StoreFaults.FailInserts(errors.New("disk I/O error"))
	h.Downloader.Serve(secondURL, []byte("second payload"))
	s.StartImport(secondURL)
	ev := waitFor(t, s, kv.EventImportFailed)

	var storageErr *kv.StorageError
	if !errors.As(ev.Err, &storageErr) {
		t.Errorf("import error = %v, want *StorageError", ev.Err)
	}
	state := s.Snapshot()
	if state.Current == nil || state.Current.ID != first.ID || state.Importing {
		t.Errorf("Snapshot() current = %+v importing = %v, want import %d idle", state.Current, state.Importing, first.ID)
	}
	history, err := h.Service.History()
	if err != nil {
		t.Fatalf("History() error = %v", err)
	}
	if len(history) != 1 {
		t.Errorf("History() = %d records, want 1", len(history))
	}
	if h.Payloads.Len() != 1 {
		t.Errorf("payloads = %d, want 1", h.Payloads.Len())
	}
}

func TestSession_Unlock(t *testing.T) {
	h := testutil.NewHarness(t)
	s := unlocked(t, h)

	state := s.Snapshot()
	if state.Tree == nil {
		t.Fatal("Tree = nil after unlock")
	}
	if state.Tree.CountEntries() != 2 {
		t.Errorf("CountEntries() = %d, want 2", state.Tree.CountEntries())
	}
	if got := state.View.IDs(); len(got) != 1 || got[0] != "root" {
		t.Errorf("View = %v, want [root]", got)
	}
	if state.Unlocking || state.LastError != nil {
		t.Errorf("Unlocking = %v, LastError = %v", state.Unlocking, state.LastError)
	}
}

func TestSession_WrongPasswordKeepsTree(t *testing.T) {
	h := testutil.NewHarness(t)
	s := unlocked(t, h)
	s.Toggle("email")
	before := s.Snapshot()

	s.StartUnlock("wrong")
	ev := waitFor(t, s, kv.EventUnlockFailed)
	if !errors.Is(ev.Err, kv.ErrWrongPassword) {
		t.Fatalf("unlock error = %v, want ErrWrongPassword", ev.Err)
	}

	after := s.Snapshot()
	if after.Tree != before.Tree {
		t.Error("Tree replaced after wrong password")
	}
	if !after.View.Equal(before.View) {
		t.Errorf("View = %v, want %v", after.View.IDs(), before.View.IDs())
	}
	if kv.UserMessage(after.LastError) != "Wrong password." {
		t.Errorf("UserMessage(LastError) = %q", kv.UserMessage(after.LastError))
	}

	s.DismissError()
	if s.Snapshot().LastError != nil {
		t.Error("LastError kept after DismissError")
	}
}

func TestSession_SupersededUnlockDiscarded(t *testing.T) {
	h := testutil.NewHarness(t)
	s := h.NewSession(t)
	importVault(t, h, s, vaultURL)

	stale := &kv.RawNode{ID: "stale-root", Title: "Stale", Kind: kv.KindGroup}
	h.Loader.Accept("old", stale)
	h.Loader.Accept("new", testutil.SampleVault())
	release := h.Loader.Hold("old")

	s.StartUnlock("old")
	s.StartUnlock("new")
	waitFor(t, s, kv.EventUnlocked)

	release()
	s.Close()

	tree := s.Snapshot().Tree
	if tree == nil || tree.Root().ID != "root" {
		t.Errorf("Tree root after superseded unlock = %v, want root", tree)
	}
}

func TestSession_SelectImport(t *testing.T) {
	h := testutil.NewHarness(t)
	s := h.NewSession(t)
	first := importVault(t, h, s, vaultURL)
	second := importVault(t, h, s, secondURL)

	h.Loader.Accept(samplePassword, testutil.SampleVault())
	s.StartUnlock(samplePassword)
	waitFor(t, s, kv.EventUnlocked)

	if err := s.SelectImport(first.ID); err != nil {
		t.Fatalf("SelectImport() error = %v", err)
	}
	ev := waitFor(t, s, kv.EventSelectionChanged)
	if ev.Import.ID != first.ID {
		t.Errorf("event import = %d, want %d", ev.Import.ID, first.ID)
	}
	state := s.Snapshot()
	if state.Current.ID != first.ID || !state.Pinned {
		t.Errorf("current = %d pinned = %v, want %d true", state.Current.ID, state.Pinned, first.ID)
	}
	if state.Tree != nil {
		t.Error("Tree kept after switching imports")
	}

	if err := s.SelectImport(second.ID); err != nil {
		t.Fatalf("SelectImport() error = %v", err)
	}
	if s.Snapshot().Pinned {
		t.Error("Pinned = true after selecting the latest import")
	}

	if err := s.SelectImport(99); err == nil {
		t.Error("SelectImport(99) expected error")
	}
}

func TestSession_ImportWhilePinned(t *testing.T) {
	h := testutil.NewHarness(t)
	s := h.NewSession(t)
	first := importVault(t, h, s, vaultURL)
	importVault(t, h, s, secondURL)

	if err := s.SelectImport(first.ID); err != nil {
		t.Fatalf("SelectImport() error = %v", err)
	}
	third := importVault(t, h, s, vaultURL)

	state := s.Snapshot()
	if state.Current.ID != third.ID || state.Pinned {
		t.Errorf("current = %d pinned = %v, want %d false", state.Current.ID, state.Pinned, third.ID)
	}
}

func TestSession_SwitchDuringUnlock(t *testing.T) {
	h := testutil.NewHarness(t)
	s := h.NewSession(t)
	first := importVault(t, h, s, vaultURL)
	importVault(t, h, s, secondURL)

	h.Loader.Accept(samplePassword, testutil.SampleVault())
	release := h.Loader.Hold(samplePassword)
	s.StartUnlock(samplePassword)

	if err := s.SelectImport(first.ID); err != nil {
		t.Fatalf("SelectImport() error = %v", err)
	}
	release()
	s.Close()

	state := s.Snapshot()
	if state.Tree != nil {
		t.Error("Tree from the previous import applied after switching")
	}
	if state.Current.ID != first.ID {
		t.Errorf("Current = %d, want %d", state.Current.ID, first.ID)
	}
}

func TestSession_Toggle(t *testing.T) {
	h := testutil.NewHarness(t)

	locked := h.NewSession(t)
	if locked.Toggle("root") {
		t.Error("Toggle() on a locked session = true")
	}

	s := unlocked(t, h)
	tests := []struct {
		id   string
		want bool
	}{
		{"email", true},
		{"gmail", false},
		{"missing", false},
	}
	for _, tt := range tests {
		if got := s.Toggle(tt.id); got != tt.want {
			t.Errorf("Toggle(%q) = %v, want %v", tt.id, got, tt.want)
		}
	}
	if !s.Snapshot().View.IsExpanded("email") {
		t.Error("email not expanded after Toggle")
	}
}

func TestSession_Copy(t *testing.T) {
	h := testutil.NewHarness(t)
	s := unlocked(t, h)

	if err := s.Copy("gmail", kv.FieldSecret); err != nil {
		t.Fatalf("Copy() error = %v", err)
	}
	waitFor(t, s, kv.EventCopied)
	if got := h.Clipboard.Content(); got != "p@ss" {
		t.Errorf("clipboard = %q, want %q", got, "p@ss")
	}
	state := s.Snapshot()
	if !state.Clipboard.Holding || state.ClipboardRemaining != kv.ClearAfter {
		t.Errorf("clipboard state = %+v remaining %v", state.Clipboard, state.ClipboardRemaining)
	}

	h.Clock.Advance(kv.ClearAfter)
	ev := waitFor(t, s, kv.EventClipboardCleared)
	if ev.Clear == nil || !ev.Clear.Cleared {
		t.Errorf("clear event = %+v, want cleared", ev.Clear)
	}
	if got := h.Clipboard.Content(); got != "" {
		t.Errorf("clipboard = %q, want empty", got)
	}

	if err := s.Copy("gmail", kv.FieldUsername); err != nil {
		t.Fatalf("Copy(username) error = %v", err)
	}
	if got := h.Clipboard.Content(); got != "alice" {
		t.Errorf("clipboard = %q, want %q", got, "alice")
	}

	if err := s.ClearClipboard(); err != nil {
		t.Fatalf("ClearClipboard() error = %v", err)
	}
	if got := h.Clipboard.Content(); got != "" {
		t.Errorf("clipboard after ClearClipboard = %q, want empty", got)
	}
}

func TestSession_CopyErrors(t *testing.T) {
	h := testutil.NewHarness(t)

	locked := h.NewSession(t)
	if err := locked.Copy("gmail", kv.FieldSecret); !errors.Is(err, kv.ErrLocked) {
		t.Errorf("Copy() on locked session error = %v, want ErrLocked", err)
	}

	s := unlocked(t, h)
	if err := s.Copy("email", kv.FieldSecret); err == nil {
		t.Error("Copy(group) expected error")
	}
	if err := s.Copy("missing", kv.FieldSecret); err == nil {
		t.Error("Copy(missing) expected error")
	}

	h.Clipboard.FailWrites(errors.New("no display"))
	err := s.Copy("gmail", kv.FieldSecret)
	var clipErr *kv.ClipboardError
	if !errors.As(err, &clipErr) {
		t.Fatalf("Copy() error = %v, want *ClipboardError", err)
	}
	if !errors.As(s.Snapshot().LastError, &clipErr) {
		t.Errorf("LastError = %v, want *ClipboardError", s.Snapshot().LastError)
	}
}

func TestSession_Close(t *testing.T) {
	h := testutil.NewHarness(t)
	s := unlocked(t, h)

	if err := s.Copy("gmail", kv.FieldSecret); err != nil {
		t.Fatalf("Copy() error = %v", err)
	}
	s.Close()

	if h.Clock.Pending() != 0 {
		t.Errorf("Pending() = %d after Close, want 0", h.Clock.Pending())
	}
	for range s.Events() {
	}

	s.StartImport(vaultURL)
	s.StartUnlock(samplePassword)
	s.Close()
}

func TestParseField(t *testing.T) {
	tests := []struct {
		in      string
		want    kv.Field
		wantErr bool
	}{
		{"password", kv.FieldSecret, false},
		{"secret", kv.FieldSecret, false},
		{"username", kv.FieldUsername, false},
		{"user", kv.FieldUsername, false},
		{"notes", 0, true},
	}
	for _, tt := range tests {
		got, err := kv.ParseField(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseField(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseField(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
