package convo

import "time"

// Scheduler abstracts deferred execution so the finalization state machine
// is testable without real timers.
type Scheduler interface {
	AfterFunc(d time.Duration, f func()) Timer
}

// Timer is a cancellable pending callback. Stop reports whether the call
// was prevented from firing.
type Timer interface {
	Stop() bool
}

type realScheduler struct{}

func (realScheduler) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

// NewScheduler returns a Scheduler backed by time.AfterFunc.
func NewScheduler() Scheduler { return realScheduler{} }
