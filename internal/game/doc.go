// Package game implements the sudoku puzzle state machine.
//
// The centerpiece is Game, a pure state machine over the working grid:
// moves are validated and applied synchronously, mistakes and progress are
// derived incrementally, and a linear history enables single-step undo.
// Game has no internal locking - it is owned by exactly one logical thread
// of control (a Session, which serializes access).
//
// ARCHITECTURE:
//
// Single-Owner Mutation:
// All grid mutation happens synchronously inside a Move Processor call
// (Apply, Undo, ToggleNote). Status is re-derived after every mutation:
//   - Lost when the lifetime mistake counter reaches 3
//   - Won when progress reaches 0 AND the live mistake set is empty
//
// A full grid with an outstanding contradiction is never a win.
//
// Mistake Accounting:
// The live mistake set tracks cells whose current digit disagrees with the
// solution; it shrinks when cells are corrected or cleared. The lifetime
// mistake counter only ever grows during play - correcting or undoing a
// wrong placement does not refund the penalty. The two are deliberately
// separate: the set drives display, the counter drives the 3-strike loss.
//
// Session wraps Game with lifecycle orchestration (start, reset, teardown),
// the assist scheduler, and change notification for the multiplayer
// publisher. All timers flow through the Clock interface so tests run on a
// deterministic clock.
package game
