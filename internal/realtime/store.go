// Package realtime models the shared realtime backend as a capability
// surface: subscribe-to-path, merge-write-to-path, atomic transaction on a
// path, and a disconnect-triggered write.
//
// Paths are slash-separated ("rooms/<id>/players/<pid>"). A subscription
// observes the full JSON subtree under its path and is re-notified with
// the whole subtree whenever anything under it changes. Conflicting writes
// to the same subkey resolve last-write-wins at the backend, which is why
// consumers (the reconciler) are designed to be monotone rather than
// relying on write order being "correct".
package realtime

import "context"

// Cancel tears down a subscription.
type Cancel func()

// Store is the capability surface consumed from the realtime backend.
//
// All writes are expected to be fire-and-forget from the caller's point of
// view: failures are logged by the caller and not retried, because any
// stale value is superseded by the next write.
type Store interface {
	// Read returns the JSON subtree at path, or nil when absent.
	Read(ctx context.Context, path string) ([]byte, error)

	// Subscribe registers onChange to receive the JSON subtree at path,
	// re-delivered in full on every change beneath it. onChange is called
	// from the store's delivery goroutine; callers serialize internally.
	Subscribe(ctx context.Context, path string, onChange func(data []byte)) (Cancel, error)

	// Write deep-merges a partial record into the subtree at path,
	// creating it if absent.
	Write(ctx context.Context, path string, partial map[string]any) error

	// AtomicUpdate runs a read-modify-write transaction on path. fn
	// receives the current subtree (nil when absent) and returns the
	// replacement value. The update retries internally on write conflict,
	// so concurrent transactions on the same path never lose an update.
	AtomicUpdate(ctx context.Context, path string, fn func(current []byte) (next any, err error)) error

	// OnDisconnectWrite registers a value the backend writes to path if
	// this client disconnects uncleanly, without relying on the client to
	// run cleanup code.
	OnDisconnectWrite(ctx context.Context, path string, value any) error

	// Delete removes the subtree at path.
	Delete(ctx context.Context, path string) error
}
