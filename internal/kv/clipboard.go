package kv

import (
	"sync"
	"time"
)

// ClearAfter is how long a copied secret may stay on the clipboard.
const ClearAfter = 10 * time.Second

// Clipboard is the system clipboard boundary. Other applications may change
// its content at any time.
type Clipboard interface {
	Write(text string) error
	Read() (string, error)
}

// ClipboardState is a snapshot of the session's state machine.
type ClipboardState struct {
	Holding   bool
	ExpiresAt time.Time
}

// ClearEvent describes the outcome of a scheduled (or flushed) clear.
type ClearEvent struct {
	At time.Time
	// Cleared is true when the clipboard still held the tracked secret and
	// was wiped. False means another application replaced the content, or
	// Err is set.
	Cleared bool
	Err     error
}

// ClipboardSession tracks the one secret this process placed on the
// clipboard and wipes it after ClearAfter.
//
// At most one clear is ever pending. Copy cancels the previous timer and
// bumps a generation counter; a timer callback that already started before
// it could be stopped sees a stale generation and does nothing. The mutex is
// held across the clipboard write in Copy and across the read-compare-clear
// in the expiry, so a copy can never land between the compare and the clear.
type ClipboardSession struct {
	clip     Clipboard
	sched    Scheduler
	logger   Logger
	interval time.Duration

	mu        sync.Mutex
	holding   bool
	value     string
	expiresAt time.Time
	pending   Timer
	gen       uint64
	onCleared func(ClearEvent)
}

// NewClipboardSession creates an idle session clearing after ClearAfter.
func NewClipboardSession(clip Clipboard, sched Scheduler, logger Logger) *ClipboardSession {
	return &ClipboardSession{
		clip:     clip,
		sched:    sched,
		logger:   logger,
		interval: ClearAfter,
	}
}

// OnCleared registers an observer called after every scheduled clear or
// Flush, outside the session lock.
func (c *ClipboardSession) OnCleared(f func(ClearEvent)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onCleared = f
}

// Copy writes value to the clipboard and schedules its removal. Any pending
// clear for a previous value is canceled first. If the write fails the
// session stays in its prior state, including the prior timer.
func (c *ClipboardSession) Copy(value string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.clip.Write(value); err != nil {
		c.logger.Warn("clipboard write failed", "error", err)
		return &ClipboardError{Op: "write", Err: err}
	}

	c.cancelLocked()
	c.gen++
	gen := c.gen
	c.holding = true
	c.value = value
	c.expiresAt = c.sched.Now().Add(c.interval)
	c.pending = c.sched.AfterFunc(c.interval, func() { c.expire(gen) })

	c.logger.Debug("clipboard clear scheduled", "generation", gen, "expires_at", c.expiresAt)
	return nil
}

// Reset returns to idle and cancels any pending clear without touching the
// clipboard.
func (c *ClipboardSession) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.cancelLocked()
	c.gen++
	c.holding = false
	c.value = ""
	c.expiresAt = time.Time{}
}

// Flush performs the pending clear now. It is a no-op when idle.
func (c *ClipboardSession) Flush() error {
	c.mu.Lock()
	if !c.holding {
		c.mu.Unlock()
		return nil
	}
	c.cancelLocked()
	c.gen++
	ev := c.clearLocked()
	observer := c.onCleared
	c.mu.Unlock()

	if observer != nil {
		observer(ev)
	}
	return ev.Err
}

// State returns the current state.
func (c *ClipboardSession) State() ClipboardState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return ClipboardState{Holding: c.holding, ExpiresAt: c.expiresAt}
}

// Remaining returns the time left before the pending clear, or 0 when idle.
func (c *ClipboardSession) Remaining() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.holding {
		return 0
	}
	return max(c.expiresAt.Sub(c.sched.Now()), 0)
}

// expire is the timer callback for generation gen.
func (c *ClipboardSession) expire(gen uint64) {
	c.mu.Lock()
	if !c.holding || gen != c.gen {
		c.mu.Unlock()
		c.logger.Debug("stale clipboard timer ignored", "generation", gen)
		return
	}
	c.pending = nil
	ev := c.clearLocked()
	observer := c.onCleared
	c.mu.Unlock()

	if observer != nil {
		observer(ev)
	}
}

// clearLocked wipes the clipboard if it still holds the tracked value and
// transitions to idle. Callers hold c.mu.
func (c *ClipboardSession) clearLocked() ClearEvent {
	value := c.value
	c.holding = false
	c.value = ""
	c.expiresAt = time.Time{}

	ev := ClearEvent{At: c.sched.Now()}
	current, err := c.clip.Read()
	if err != nil {
		ev.Err = &ClipboardError{Op: "read", Err: err}
		c.logger.Warn("clipboard read failed during clear", "error", err)
		return ev
	}
	if current != value {
		c.logger.Info("clipboard changed by another application, leaving it untouched")
		return ev
	}
	if err := c.clip.Write(""); err != nil {
		ev.Err = &ClipboardError{Op: "clear", Err: err}
		c.logger.Warn("clipboard clear failed", "error", err)
		return ev
	}
	ev.Cleared = true
	c.logger.Info("clipboard cleared")
	return ev
}

// cancelLocked stops the pending timer, if any. Callers hold c.mu.
func (c *ClipboardSession) cancelLocked() {
	if c.pending != nil {
		c.pending.Stop()
		c.pending = nil
	}
}
