package kv

import "context"

// VaultLoader decrypts and parses a KeePass database. It is a blocking call
// and must not run on the interactive goroutine.
type VaultLoader interface {
	// Decrypt returns the decrypted tree. It fails with ErrWrongPassword or
	// ErrCorruptFile.
	Decrypt(ctx context.Context, data []byte, password string) (*RawNode, error)
}

// Downloader fetches a database file. It is a blocking call and must not run
// on the interactive goroutine.
type Downloader interface {
	// Fetch returns the bytes at rawURL. Failures are *NetworkError.
	Fetch(ctx context.Context, rawURL string) ([]byte, error)
}
