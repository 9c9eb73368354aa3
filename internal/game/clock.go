package game

import "time"

// Clock abstracts wall time and delayed execution.
//
// Every suspension point in the engine - the assist scheduler's auto-fill
// delay, the reconciler's grace periods, the publisher's debounce window -
// schedules through a Clock rather than the time package directly. Tests
// substitute a deterministic implementation (testutil.FakeClock) so timer
// behavior is reproducible without real sleeps.
type Clock interface {
	// Now returns the current time.
	Now() time.Time
	// AfterFunc runs f after d elapses. The returned Timer cancels the
	// pending call; Stop reports whether it fired in time.
	AfterFunc(d time.Duration, f func()) Timer
}

// Timer is a cancellable pending call scheduled via Clock.AfterFunc.
type Timer interface {
	// Stop cancels the pending call. Returns false if the call already
	// fired or was already stopped.
	Stop() bool
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

func (systemClock) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

// SystemClock returns the production Clock backed by the time package.
func SystemClock() Clock {
	return systemClock{}
}
