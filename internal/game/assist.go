package game

import "github.com/gridrace/gridrace/internal/board"

// The assist scheduler auto-completes remaining cells once the player is
// close to finishing: when progress falls to the difficulty's threshold or
// below, it marks the first empty cell (row-major) as the pending target
// and fills in that cell's solution digit after a short delay.
//
// The scan restarts from scratch on every state change rather than
// resuming, so a player's own concurrent move naturally redirects the next
// auto-fill target. Each fill goes through the ordinary Move Processor,
// which re-triggers the recheck and chains fills until the round ends.

// AssistTarget returns the row-major index of the cell pending auto-fill,
// or -1 when none. Presentation layers use it for a visual cue.
func (s *Session) AssistTarget() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.assistTarget
}

// recheckAssistLocked re-evaluates assist eligibility after any state
// change. Any previously pending fill is cancelled first; a stale timer
// must never fire against a retargeted or concluded round.
func (s *Session) recheckAssistLocked() {
	s.stopAssistLocked()
	if s.closed || s.game == nil || s.game.Status() != StatusPlaying {
		return
	}
	if s.game.Progress() == 0 || s.game.Progress() > s.game.Difficulty().AssistThreshold() {
		return
	}
	target := s.game.working.FirstEmpty()
	if target < 0 {
		return
	}
	s.assistTarget = target
	s.assistTimer = s.clock.AfterFunc(s.assistDelay, func() { s.fireAssist(target) })
}

func (s *Session) stopAssistLocked() {
	if s.assistTimer != nil {
		s.assistTimer.Stop()
		s.assistTimer = nil
	}
	s.assistTarget = -1
}

// fireAssist lands a scheduled auto-fill. The target guard rejects stale
// firings from timers that lost a race with Stop.
func (s *Session) fireAssist(target int) {
	s.mu.Lock()
	if s.closed || s.game == nil || s.game.Status() != StatusPlaying || s.assistTarget != target {
		s.mu.Unlock()
		return
	}
	row, col := board.Coord(target)
	ok := s.game.Apply(row, col, s.game.solution.Digit(row, col))
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
}
