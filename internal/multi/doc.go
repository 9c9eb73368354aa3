// Package multi runs a head-to-head round against a shared realtime room.
//
// A Match wires four pieces around one local game session: a store
// subscription feeding remote room snapshots in, a Reconciler merging
// those snapshots into the session, a debounced publisher pushing the
// local player's progress out, and an outcome ledger recording win/loss
// tallies when the round ends.
//
// All merging happens on a single loop goroutine (Run). Subscription
// callbacks, session change notifications, and timer firings enqueue
// events; nothing outside the loop touches the reconciler's state. The
// reconciler only ever raises the local status toward a terminal one and
// never lowers it, so replayed or out-of-order snapshots are harmless.
package multi
