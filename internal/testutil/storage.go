package testutil

import (
	"kv-go/internal/clipboard"
	"kv-go/internal/encryption"
	"kv-go/internal/payload"
)

// NewTestSealer creates a sealer that marks payloads without encrypting them.
func NewTestSealer() *encryption.TestSealer {
	return encryption.NewTestSealer()
}

// NewTestPayloadStore creates an in-memory payload store.
func NewTestPayloadStore() *payload.MemoryStore {
	return payload.NewMemoryStore()
}

// NewMemoryClipboard creates an in-memory clipboard.
func NewMemoryClipboard() *clipboard.Memory {
	return clipboard.NewMemory()
}
