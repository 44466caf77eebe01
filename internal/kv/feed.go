package kv

import (
	"context"
	"sync"
	"time"
)

// HistoryFeed is an ImportStore that notifies subscribers whenever a record
// is inserted through it.
//
// Each subscriber channel holds at most one list. A publish replaces an
// unread list with the newer one, so a slow reader never blocks an import
// and always sees the latest history. The mutex is held across the listing
// and the sends so lists are delivered in insert order.
type HistoryFeed struct {
	ImportStore
	logger Logger

	mu   sync.Mutex
	subs map[chan []*ImportRecord]struct{}
}

// NewHistoryFeed wraps store.
func NewHistoryFeed(store ImportStore, logger Logger) *HistoryFeed {
	return &HistoryFeed{
		ImportStore: store,
		logger:      logger,
		subs:        make(map[chan []*ImportRecord]struct{}),
	}
}

// Insert appends the record and publishes the new history.
func (f *HistoryFeed) Insert(storedName, originalName string, importedAt time.Time, meta ImportMeta) (*ImportRecord, error) {
	rec, err := f.ImportStore.Insert(storedName, originalName, importedAt, meta)
	if err != nil {
		return nil, err
	}
	f.publish()
	return rec, nil
}

// Subscribe returns a channel that receives the current history right away
// and again after every insert. The channel is closed when ctx ends.
func (f *HistoryFeed) Subscribe(ctx context.Context) (<-chan []*ImportRecord, error) {
	f.mu.Lock()
	list, err := f.ImportStore.ListAll()
	if err != nil {
		f.mu.Unlock()
		return nil, err
	}
	ch := make(chan []*ImportRecord, 1)
	ch <- list
	f.subs[ch] = struct{}{}
	f.mu.Unlock()

	go func() {
		<-ctx.Done()
		f.mu.Lock()
		delete(f.subs, ch)
		close(ch)
		f.mu.Unlock()
	}()
	return ch, nil
}

func (f *HistoryFeed) publish() {
	f.mu.Lock()
	defer f.mu.Unlock()

	if len(f.subs) == 0 {
		return
	}
	list, err := f.ImportStore.ListAll()
	if err != nil {
		f.logger.Warn("history feed refresh failed", "error", err)
		return
	}
	for ch := range f.subs {
		select {
		case <-ch:
		default:
		}
		ch <- list
	}
}

var _ ImportStore = (*HistoryFeed)(nil)
