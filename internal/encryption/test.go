package encryption

import (
	"bytes"
	"fmt"
	"io"

	"kv-go/internal/kv"
)

// testHeader is prepended to data by TestSealer to make sealed output
// clearly different from plaintext while remaining deterministic and reversible.
var testHeader = []byte("KVSEAL\x00\x00")

// TestSealer is a simple, deterministic sealer for testing.
// It prepends a fixed 8-byte header when sealing and strips it when opening,
// so tests can tell a sealed payload apart from the original without any
// crypto.
type TestSealer struct {
	setupCalled bool
}

var _ kv.Sealer = (*TestSealer)(nil)

// NewTestSealer creates a new TestSealer.
func NewTestSealer() *TestSealer {
	return &TestSealer{}
}

func (s *TestSealer) Setup() error {
	s.setupCalled = true
	return nil
}

func (s *TestSealer) Seal(r io.Reader, w io.Writer) error {
	if _, err := w.Write(testHeader); err != nil {
		return fmt.Errorf("writing test header: %w", err)
	}
	if _, err := io.Copy(w, r); err != nil {
		return fmt.Errorf("copying data: %w", err)
	}
	return nil
}

func (s *TestSealer) Open(r io.Reader, w io.Writer) error {
	header := make([]byte, len(testHeader))
	if _, err := io.ReadFull(r, header); err != nil {
		return fmt.Errorf("reading test header: %w", err)
	}
	if !bytes.Equal(header, testHeader) {
		return fmt.Errorf("invalid test seal header")
	}
	if _, err := io.Copy(w, r); err != nil {
		return fmt.Errorf("copying data: %w", err)
	}
	return nil
}

func (s *TestSealer) IsConfigured() bool {
	return true
}
