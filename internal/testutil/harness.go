package testutil

import (
	"testing"

	"kv-go/internal/clipboard"
	"kv-go/internal/encryption"
	"kv-go/internal/kv"
	"kv-go/internal/payload"
)

// Harness wires a KVService and a ClipboardSession to in-memory doubles.
// The service reaches Store and Payloads through StoreFaults and
// PayloadFaults, so tests can make writes fail.
type Harness struct {
	Store         kv.ImportStore
	Payloads      *payload.MemoryStore
	StoreFaults   *FaultyImportStore
	PayloadFaults *FaultyPayloadStore
	Sealer     *encryption.TestSealer
	Downloader *StubDownloader
	Loader     *StubLoader
	Clipboard  *clipboard.Memory
	Clock      *FakeClock
	Service    *kv.KVService
	ClipSess   *kv.ClipboardSession
}

// NewHarness creates a Harness whose clock starts at FixedClock.
func NewHarness(t *testing.T) *Harness {
	t.Helper()

	h := &Harness{
		Store:      NewTestImportStore(t),
		Payloads:   NewTestPayloadStore(),
		Sealer:     NewTestSealer(),
		Downloader: NewStubDownloader(),
		Loader:     NewStubLoader(),
		Clipboard:  NewMemoryClipboard(),
		Clock:      FixedClock(),
	}
	h.StoreFaults = NewFaultyImportStore(h.Store)
	h.PayloadFaults = NewFaultyPayloadStore(h.Payloads)
	logger := kv.NewNopLogger()
	h.Service = kv.NewKVService(h.StoreFaults, h.PayloadFaults, h.Sealer, h.Downloader, logger, h.Clock)
	h.ClipSess = kv.NewClipboardSession(h.Clipboard, h.Clock, logger)
	return h
}

// NewSession creates a Session over the harness and closes it on cleanup.
func (h *Harness) NewSession(t *testing.T) *kv.Session {
	t.Helper()

	s := kv.NewSession(h.Service, h.Loader, h.ClipSess, kv.NewNopLogger())
	if err := s.Init(); err != nil {
		t.Fatalf("Init() error = %v", err)
	}
	t.Cleanup(s.Close)
	return s
}
