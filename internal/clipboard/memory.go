package clipboard

import (
	"sync"

	"kv-go/internal/kv"
)

// Memory is a process-local clipboard. It also serves as the test double:
// SetContent simulates another application, and FailWrites/FailReads inject
// errors.
type Memory struct {
	mu       sync.Mutex
	content  string
	writes   []string
	writeErr error
	readErr  error
}

var _ kv.Clipboard = (*Memory)(nil)

// NewMemory creates an empty clipboard.
func NewMemory() *Memory {
	return &Memory{}
}

func (m *Memory) Write(text string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.writeErr != nil {
		return m.writeErr
	}
	m.content = text
	m.writes = append(m.writes, text)
	return nil
}

func (m *Memory) Read() (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.readErr != nil {
		return "", m.readErr
	}
	return m.content, nil
}

// SetContent replaces the content without recording a write, as another
// application would.
func (m *Memory) SetContent(text string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.content = text
}

// Content returns the current content.
func (m *Memory) Content() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.content
}

// Writes returns every value written through Write, in order.
func (m *Memory) Writes() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.writes...)
}

// FailWrites makes Write return err until called again with nil.
func (m *Memory) FailWrites(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.writeErr = err
}

// FailReads makes Read return err until called again with nil.
func (m *Memory) FailReads(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.readErr = err
}
