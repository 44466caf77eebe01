package clipboard

import (
	"fmt"

	"kv-go/internal/config"
	"kv-go/internal/kv"
)

// NewFromConfig creates a Clipboard based on the clipboard config type.
func NewFromConfig(cfg config.ClipboardConfig) (kv.Clipboard, error) {
	switch cfg.Type {
	case "system", "":
		sys, err := NewSystem()
		if err != nil {
			return nil, err
		}
		return sys, nil
	case "memory":
		return NewMemory(), nil
	default:
		return nil, fmt.Errorf("unknown clipboard type: %s", cfg.Type)
	}
}
