package kv

import "io"

// Sealer wraps payloads before they reach the PayloadStore and unwraps them
// on the way back. It hides the fact that a stored file is a KeePass
// database; the KDBX encryption itself is untouched.
type Sealer interface {
	// Setup performs one-time key generation. Called during `kv config init`.
	Setup() error

	// Seal reads plaintext from r and writes the sealed form to w.
	Seal(r io.Reader, w io.Writer) error

	// Open reads a sealed payload from r and writes the original bytes to w.
	Open(r io.Reader, w io.Writer) error

	// IsConfigured returns true if the sealer has the keys it needs.
	IsConfigured() bool
}
