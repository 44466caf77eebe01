package payload

import (
	"context"
	"fmt"

	"kv-go/internal/config"
	"kv-go/internal/kv"
)

// NewStoreFromConfig creates a PayloadStore based on the payload config type.
func NewStoreFromConfig(ctx context.Context, cfg config.PayloadConfig) (kv.PayloadStore, error) {
	switch cfg.Type {
	case "memory":
		return NewMemoryStore(), nil
	case "filesystem":
		if cfg.FSRoot == "" {
			return nil, fmt.Errorf("filesystem payload store requires fs_root to be set")
		}
		store, err := NewFileSystemStore(cfg.FSRoot)
		if err != nil {
			return nil, err
		}
		return store, nil
	case "s3":
		store, err := NewS3Store(ctx, cfg)
		if err != nil {
			return nil, err
		}
		return store, nil
	default:
		return nil, fmt.Errorf("unknown payload store type: %s", cfg.Type)
	}
}
