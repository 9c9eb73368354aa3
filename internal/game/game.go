package game

import (
	"fmt"
	"sort"
	"time"

	"github.com/gridrace/gridrace/internal/board"
)

// Move is one history entry: the cell touched and the value it held before
// the move. Undo pops the most recent entry and restores Prev.
type Move struct {
	Row  int
	Col  int
	Prev uint8
}

// Game is the puzzle state machine for a single round.
//
// Not safe for concurrent use: a Game is owned by one Session, which
// serializes all access. All mutation goes through Apply, ToggleNote,
// Undo, and Reset.
type Game struct {
	difficulty Difficulty
	initial    board.Grid
	working    board.Grid
	solution   board.Solution
	notes      board.Notes

	// mistakes is the live set of row-major indices whose current digit
	// disagrees with the solution. mistakeCount is the lifetime tally of
	// wrong placements; it never decreases during a round.
	mistakes     map[int]struct{}
	mistakeCount int

	// progress counts empty working-grid cells. It is maintained
	// incrementally on every placement and removal, never by rescan.
	progress int

	history []Move
	status  Status

	startedAt  time.Time
	finishedAt time.Time
	now        func() time.Time
}

// New builds a Game from an 81-character puzzle string ('-' for blanks)
// and its 81-character solution. The parsed puzzle becomes both the
// immutable initial grid and the starting working grid, and status moves
// straight to Playing.
//
// now stamps the start and terminal times; pass nil for wall time.
func New(puzzle string, solution string, difficulty Difficulty, now func() time.Time) (*Game, error) {
	grid, err := board.Parse(puzzle)
	if err != nil {
		return nil, fmt.Errorf("new game: %w", err)
	}
	sol, err := board.ParseSolution(solution)
	if err != nil {
		return nil, fmt.Errorf("new game: %w", err)
	}
	if now == nil {
		now = time.Now
	}
	g := &Game{
		difficulty: difficulty,
		initial:    grid,
		working:    grid,
		solution:   sol,
		mistakes:   make(map[int]struct{}),
		progress:   grid.CountEmpty(),
		status:     StatusPlaying,
		now:        now,
	}
	g.startedAt = now()
	return g, nil
}

// Apply validates and applies a single move. v is a digit 1-9 to place, or
// 0 to clear the cell. Returns false without mutating anything when the
// move is rejected: terminal session, out-of-bounds target, given clue, or
// a value equal to the cell's current value. Rejections are normal UI
// interaction, not errors.
func (g *Game) Apply(row, col int, v uint8) bool {
	if g.status != StatusPlaying || v > 9 {
		return false
	}
	if !board.InBounds(row, col) {
		return false
	}
	if !g.initial.Empty(row, col) {
		return false
	}
	cur := g.working.At(row, col)
	if cur == v {
		return false
	}

	idx := board.Index(row, col)
	g.history = append(g.history, Move{Row: row, Col: col, Prev: cur})
	g.working.Set(row, col, v)

	if v == 0 {
		// Clearing: the cell leaves the mistake set but the lifetime
		// counter keeps its tally. Notes are untouched - the cell is
		// annotatable again.
		delete(g.mistakes, idx)
		g.progress++
	} else {
		g.notes.Clear(idx)
		if cur == 0 {
			g.progress--
		}
		if g.solution.Matches(row, col, v) {
			delete(g.mistakes, idx)
		} else {
			g.mistakes[idx] = struct{}{}
			g.mistakeCount++
		}
	}

	g.refreshStatus()
	return true
}

// ToggleNote adds or removes a candidate digit annotation on an empty,
// non-given cell. No-op when the session is not in play, the cell is a
// given clue, or the cell currently holds a value.
func (g *Game) ToggleNote(row, col int, d uint8) bool {
	if g.status != StatusPlaying {
		return false
	}
	if !board.InBounds(row, col) {
		return false
	}
	if !g.initial.Empty(row, col) || !g.working.Empty(row, col) {
		return false
	}
	g.notes.Toggle(board.Index(row, col), d)
	return true
}

// Undo reverses the most recent move: the cell's previous value is
// restored, progress is adjusted inversely, and the cell leaves the
// mistake set unconditionally - even if the restored value is itself
// wrong. The lifetime mistake counter is never refunded; the 3-strike
// penalty is not reversible.
//
// Undo is a no-op on a lost session and on empty history. Undoing the
// completing move of a won session reverts status to Playing.
func (g *Game) Undo() bool {
	if g.status == StatusLost || g.status == StatusIdle {
		return false
	}
	if len(g.history) == 0 {
		return false
	}

	m := g.history[len(g.history)-1]
	g.history = g.history[:len(g.history)-1]

	idx := board.Index(m.Row, m.Col)
	cur := g.working.At(m.Row, m.Col)
	g.working.Set(m.Row, m.Col, m.Prev)

	switch {
	case cur == 0 && m.Prev != 0:
		g.progress--
	case cur != 0 && m.Prev == 0:
		g.progress++
	}

	// An undone cell is never shown as a mistake. This is deliberately not
	// a full mistake-history replay.
	delete(g.mistakes, idx)

	if g.status == StatusWon {
		g.status = StatusPlaying
		g.finishedAt = time.Time{}
	}
	return true
}

// Reset restores the round to its starting position: working grid back to
// the initial clues, notes, history, mistakes, and the lifetime counter
// all cleared, status back to Playing.
func (g *Game) Reset() {
	g.working = g.initial
	g.notes.ClearAll()
	g.mistakes = make(map[int]struct{})
	g.mistakeCount = 0
	g.progress = g.initial.CountEmpty()
	g.history = nil
	g.status = StatusPlaying
	g.startedAt = g.now()
	g.finishedAt = time.Time{}
}

// refreshStatus derives Won/Lost after a mutation and stamps the terminal
// time on a transition. Loss takes precedence: a full grid with an
// outstanding contradiction is a loss, not a win.
func (g *Game) refreshStatus() {
	if g.status != StatusPlaying {
		return
	}
	switch {
	case g.mistakeCount >= MaxMistakes:
		g.status = StatusLost
		g.finishedAt = g.now()
	case g.progress == 0 && len(g.mistakes) == 0:
		g.status = StatusWon
		g.finishedAt = g.now()
	}
}

// MarkLost forces the session into the Lost state. Used by the multiplayer
// reconciler when the room concludes against the local player. No-op once
// terminal.
func (g *Game) MarkLost() {
	if g.status != StatusPlaying {
		return
	}
	g.status = StatusLost
	g.finishedAt = g.now()
}

// MarkWon forces the session into the Won state. Used by the multiplayer
// reconciler for victory by attrition. No-op once terminal.
func (g *Game) MarkWon() {
	if g.status != StatusPlaying {
		return
	}
	g.status = StatusWon
	g.finishedAt = g.now()
}

// Status returns the session status.
func (g *Game) Status() Status { return g.status }

// Progress returns the count of empty cells remaining.
func (g *Game) Progress() int { return g.progress }

// MistakeCount returns the lifetime tally of wrong placements.
func (g *Game) MistakeCount() int { return g.mistakeCount }

// Difficulty returns the round's difficulty.
func (g *Game) Difficulty() Difficulty { return g.difficulty }

// Solution returns the reference answer string.
func (g *Game) Solution() board.Solution { return g.solution }

// Cell returns the working-grid digit at (row, col), 0 if empty.
func (g *Game) Cell(row, col int) uint8 { return g.working.At(row, col) }

// Given reports whether (row, col) is a pre-filled clue.
func (g *Game) Given(row, col int) bool { return !g.initial.Empty(row, col) }

// Working returns a copy of the working grid.
func (g *Game) Working() board.Grid { return g.working }

// NoteDigits returns the cell's candidate annotations in ascending order.
func (g *Game) NoteDigits(row, col int) []uint8 {
	return g.notes.Digits(board.Index(row, col))
}

// MistakeCells returns the live mistake set as sorted row-major indices.
func (g *Game) MistakeCells() []int {
	out := make([]int, 0, len(g.mistakes))
	for idx := range g.mistakes {
		out = append(out, idx)
	}
	sort.Ints(out)
	return out
}

// IsMistake reports whether the cell is in the live mistake set.
func (g *Game) IsMistake(row, col int) bool {
	_, ok := g.mistakes[board.Index(row, col)]
	return ok
}

// HistoryLen returns the number of undoable moves.
func (g *Game) HistoryLen() int { return len(g.history) }

// StartedAt returns when the round began.
func (g *Game) StartedAt() time.Time { return g.startedAt }

// FinishedAt returns when the round reached a terminal status, or the zero
// time while still in play.
func (g *Game) FinishedAt() time.Time { return g.finishedAt }

// TimeTaken returns the round duration for a concluded round, 0 otherwise.
func (g *Game) TimeTaken() time.Duration {
	if g.finishedAt.IsZero() {
		return 0
	}
	return g.finishedAt.Sub(g.startedAt)
}
