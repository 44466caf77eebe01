// Package clipboard provides the clipboard backends behind kv.Clipboard.
package clipboard

import (
	"errors"

	"github.com/atotto/clipboard"

	"kv-go/internal/kv"
)

// ErrUnsupported is returned when no clipboard utility is available, for
// example on Linux without xclip, xsel or wl-clipboard.
var ErrUnsupported = errors.New("system clipboard is not available (install xclip, xsel or wl-clipboard)")

// System uses the operating system clipboard.
type System struct{}

var _ kv.Clipboard = System{}

// NewSystem returns the system clipboard, or ErrUnsupported.
func NewSystem() (System, error) {
	if clipboard.Unsupported {
		return System{}, ErrUnsupported
	}
	return System{}, nil
}

func (System) Write(text string) error {
	return clipboard.WriteAll(text)
}

func (System) Read() (string, error) {
	return clipboard.ReadAll()
}
