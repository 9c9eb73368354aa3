package game

import (
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// Puzzle is the generator's product: an 81-character puzzle string with
// '-' for blanks, its 81-character solution, and the difficulty it was
// generated for.
type Puzzle struct {
	Puzzle     string
	Solution   string
	Difficulty Difficulty
}

// Generator produces puzzles. The production implementation lives in
// internal/generator; tests substitute fixtures.
type Generator interface {
	Generate(d Difficulty) (Puzzle, error)
	// GenerateSeeded derives the same puzzle for the same seed string, so
	// all clients can compute an identical daily puzzle from its date key
	// without transmitting it.
	GenerateSeeded(seed string, d Difficulty) (Puzzle, error)
}

// Snapshot is the observable state a session exposes to presentation and
// to the multiplayer publisher.
type Snapshot struct {
	Status       Status
	Progress     int
	Mistakes     int
	Difficulty   Difficulty
	TimeTaken    time.Duration
	AssistTarget int // row-major index of the pending auto-fill cell, -1 when none
}

// Session owns one Game per round and orchestrates its lifecycle: start,
// reset, assisted fill, and teardown. All access to the underlying Game is
// serialized through the session's lock; timer callbacks re-enter through
// the same lock, so callers never observe a half-applied move.
type Session struct {
	mu     sync.Mutex
	logger *slog.Logger
	clock  Clock
	gen    Generator

	game *Game

	assistDelay  time.Duration
	assistTimer  Timer
	assistTarget int

	onChange func(Snapshot)
	closed   bool
}

// Option configures a Session.
type Option func(*Session)

// WithClock substitutes the session's clock. Tests pass a deterministic
// clock so the assist delay is driven explicitly.
func WithClock(c Clock) Option {
	return func(s *Session) { s.clock = c }
}

// WithLogger sets the session's structured logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Session) { s.logger = l }
}

// WithAssistDelay overrides the pause before an assist auto-fill lands.
func WithAssistDelay(d time.Duration) Option {
	return func(s *Session) { s.assistDelay = d }
}

// DefaultAssistDelay is the pause between the assist scheduler marking a
// target cell and filling it, long enough for a visual cue.
const DefaultAssistDelay = 400 * time.Millisecond

// NewSession creates an idle session backed by the given generator.
func NewSession(gen Generator, opts ...Option) *Session {
	s := &Session{
		logger:       slog.Default(),
		clock:        SystemClock(),
		gen:          gen,
		assistDelay:  DefaultAssistDelay,
		assistTarget: -1,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SetOnChange registers a callback invoked after every successful mutation
// with a snapshot of the new state. The callback runs outside the session
// lock. Used by the multiplayer publisher to debounce outbound writes.
func (s *Session) SetOnChange(fn func(Snapshot)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onChange = fn
}

// NewGame generates a fresh puzzle and starts playing it. On generation
// failure the session logs and remains Idle rather than entering a corrupt
// playing state.
func (s *Session) NewGame(d Difficulty) error {
	p, err := s.gen.Generate(d)
	if err != nil {
		s.logger.Error("puzzle generation failed", "difficulty", d, "error", err)
		return fmt.Errorf("new game: %w", err)
	}
	return s.adopt(p)
}

// NewSeededGame starts a round from a deterministic seed, used for daily
// challenges where every client derives the same puzzle.
func (s *Session) NewSeededGame(seed string, d Difficulty) error {
	p, err := s.gen.GenerateSeeded(seed, d)
	if err != nil {
		s.logger.Error("seeded puzzle generation failed", "seed", seed, "difficulty", d, "error", err)
		return fmt.Errorf("new seeded game: %w", err)
	}
	return s.adopt(p)
}

// Adopt starts a round from an externally supplied puzzle/solution pair.
// The multiplayer reconciler uses this during bootstrap to take over the
// room's round.
func (s *Session) Adopt(p Puzzle) error {
	return s.adopt(p)
}

func (s *Session) adopt(p Puzzle) error {
	g, err := New(p.Puzzle, p.Solution, p.Difficulty, s.clock.Now)
	if err != nil {
		s.logger.Error("puzzle rejected", "difficulty", p.Difficulty, "error", err)
		return err
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return fmt.Errorf("session closed")
	}
	s.game = g
	s.recheckAssistLocked()
	snap, emit := s.snapshotLocked(), s.onChange
	s.mu.Unlock()

	s.logger.Info("round started", "difficulty", p.Difficulty, "progress", snap.Progress)
	if emit != nil {
		emit(snap)
	}
	return nil
}

// Apply forwards a move to the Move Processor. Returns whether the move
// was applied.
func (s *Session) Apply(row, col int, v uint8) bool {
	return s.mutate(func(g *Game) bool { return g.Apply(row, col, v) })
}

// ToggleNote forwards a note toggle to the Move Processor.
func (s *Session) ToggleNote(row, col int, d uint8) bool {
	return s.mutate(func(g *Game) bool { return g.ToggleNote(row, col, d) })
}

// Undo reverses the most recent move.
func (s *Session) Undo() bool {
	return s.mutate(func(g *Game) bool { return g.Undo() })
}

// Reset restarts the current round from its initial clues.
func (s *Session) Reset() {
	s.mutate(func(g *Game) bool { g.Reset(); return true })
}

// MarkLost forces the round lost; used by the reconciler. Emits a change
// notification when the status actually transitioned.
func (s *Session) MarkLost() {
	s.mutate(func(g *Game) bool {
		if g.Status() != StatusPlaying {
			return false
		}
		g.MarkLost()
		return true
	})
}

// MarkWon forces the round won; used by the reconciler for victory by
// attrition.
func (s *Session) MarkWon() {
	s.mutate(func(g *Game) bool {
		if g.Status() != StatusPlaying {
			return false
		}
		g.MarkWon()
		return true
	})
}

func (s *Session) mutate(fn func(*Game) bool) bool {
	s.mu.Lock()
	if s.closed || s.game == nil {
		s.mu.Unlock()
		return false
	}
	ok := fn(s.game)
	var snap Snapshot
	var emit func(Snapshot)
	if ok {
		s.recheckAssistLocked()
		snap, emit = s.snapshotLocked(), s.onChange
	}
	s.mu.Unlock()

	if ok && emit != nil {
		emit(snap)
	}
	return ok
}

// Status returns the session status, StatusIdle when no round is loaded.
func (s *Session) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.game == nil {
		return StatusIdle
	}
	return s.game.Status()
}

// Snapshot returns the current observable state.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

func (s *Session) snapshotLocked() Snapshot {
	if s.game == nil {
		return Snapshot{Status: StatusIdle, AssistTarget: -1}
	}
	return Snapshot{
		Status:       s.game.Status(),
		Progress:     s.game.Progress(),
		Mistakes:     s.game.MistakeCount(),
		Difficulty:   s.game.Difficulty(),
		TimeTaken:    s.game.TimeTaken(),
		AssistTarget: s.assistTarget,
	}
}

// View runs fn with the session's Game under the lock, for read-mostly
// callers (rendering, tests) that need more than a Snapshot. fn must not
// retain the *Game and must not call back into the session.
func (s *Session) View(fn func(*Game)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.game != nil {
		fn(s.game)
	}
}

// Close tears the session down, cancelling any pending assist fill so it
// cannot mutate a grid that no longer exists.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	s.stopAssistLocked()
	s.game = nil
}
