package app

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"

	"kv-go/internal/kv"
)

const (
	lockFileName   = "import.lock"
	lockRetryDelay = 100 * time.Millisecond
)

// importLock is an advisory file lock on <base_dir>/import.lock shared by
// every kv process using the same base directory.
type importLock struct {
	fl *flock.Flock
}

var _ kv.ImportLock = (*importLock)(nil)

func newImportLock(baseDir string) *importLock {
	return &importLock{fl: flock.New(filepath.Join(baseDir, lockFileName))}
}

func (l *importLock) Acquire(ctx context.Context) (func(), error) {
	ok, err := l.fl.TryLockContext(ctx, lockRetryDelay)
	if err != nil {
		return nil, fmt.Errorf("locking %s: %w", l.fl.Path(), err)
	}
	if !ok {
		return nil, fmt.Errorf("import lock %s is held by another process", l.fl.Path())
	}
	return func() { _ = l.fl.Unlock() }, nil
}
