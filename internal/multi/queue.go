package multi

import (
	"sync"

	"github.com/gridrace/gridrace/internal/game"
	"github.com/gridrace/gridrace/internal/room"
)

// eventKind distinguishes match loop event kinds.
type eventKind int

const (
	// eventRoom carries a validated remote room snapshot.
	eventRoom eventKind = iota + 1
	// eventLocal carries a local session change notification.
	eventLocal
	// eventFunc carries a deferred timer action onto the loop goroutine.
	eventFunc
)

// event wraps the inputs the match loop serializes: remote snapshots,
// local state changes, and timer firings.
type event struct {
	kind eventKind
	room room.Room
	snap game.Snapshot
	fn   func()
}

// eventQueue is a thread-safe FIFO queue feeding the single-writer match
// loop.
//
// Thread-safety covers external producers (subscription delivery, session
// change callbacks, timer goroutines) while the loop goroutine dequeues.
// The queue is unbounded so producers never block; a channel signal
// enables context-aware waiting in the loop.
type eventQueue struct {
	mu     sync.Mutex
	events []event
	closed bool
	signal chan struct{} // buffered size 1; coalesces multiple signals
}

func newEventQueue() *eventQueue {
	return &eventQueue{
		events: make([]event, 0, 16),
		signal: make(chan struct{}, 1),
	}
}

// Enqueue adds an event to the back of the queue.
// Returns false if the queue is closed.
func (q *eventQueue) Enqueue(e event) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return false
	}
	q.events = append(q.events, e)

	select {
	case q.signal <- struct{}{}:
	default:
	}
	return true
}

// TryDequeue attempts to dequeue without blocking.
func (q *eventQueue) TryDequeue() (event, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.events) == 0 {
		return event{}, false
	}
	e := q.events[0]

	// Nil the slot so the backing array does not retain the event's
	// pointers until reallocation.
	q.events[0] = event{}
	if len(q.events) == 1 {
		q.events = q.events[:0]
	} else {
		q.events = q.events[1:]
	}
	return e, true
}

// Wait returns a channel that signals when events may be available.
func (q *eventQueue) Wait() <-chan struct{} {
	return q.signal
}

// Len returns the current queue length.
func (q *eventQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.events)
}

// Closed reports whether the queue has been closed.
func (q *eventQueue) Closed() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.closed
}

// Close signals that no more events will be enqueued and wakes waiters.
func (q *eventQueue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return
	}
	q.closed = true
	close(q.signal)
}
