package kv

import "time"

// Clock abstracts time retrieval so business logic is deterministic in tests.
type Clock interface {
	Now() time.Time
}

// Timer is a scheduled callback that can be canceled.
type Timer interface {
	// Stop prevents the callback from running. It returns false if the
	// callback already ran or is running.
	Stop() bool
}

// Scheduler is a Clock that can also run a callback after a delay.
type Scheduler interface {
	Clock
	AfterFunc(d time.Duration, f func()) Timer
}

// RealClock returns the actual current time and schedules on real timers.
type RealClock struct{}

func (RealClock) Now() time.Time { return time.Now() }

func (RealClock) AfterFunc(d time.Duration, f func()) Timer { return time.AfterFunc(d, f) }
