package multi

import (
	"log/slog"
	"time"

	"github.com/gridrace/gridrace/internal/game"
	"github.com/gridrace/gridrace/internal/room"
)

const (
	// DefaultVictoryGrace is how long after round start victory by
	// attrition may first be declared. It protects against the startup
	// race where one client's "still playing" snapshot has not landed yet.
	DefaultVictoryGrace = 3 * time.Second

	// DefaultDefeatDelay is the confirmation pause before a room-finished
	// snapshot marks the local player lost, resolving a near-simultaneous
	// finish in the local player's favor if a win lands in the interim.
	DefaultDefeatDelay = 1500 * time.Millisecond
)

// Reconciler folds remote room snapshots into local session state.
//
// Its merge is monotone: local status only ever moves toward terminal
// states, and a remote snapshot can never downgrade a local terminal
// status back to Playing. Local mistake/progress counters are the source
// of truth and are never overwritten by remote data. This makes the
// reconciler safe over a last-write-wins backend with no cross-client
// ordering guarantee.
//
// All methods run on the match loop goroutine; the struct has no locking,
// mirroring the engine's single-writer discipline. Timer callbacks are
// re-enqueued onto the loop via the schedule hook.
type Reconciler struct {
	selfID  string
	clock   game.Clock
	session *game.Session
	logger  *slog.Logger

	victoryGrace time.Duration
	defeatDelay  time.Duration

	// schedule defers fn onto the match loop after d and returns the
	// cancellation handle.
	schedule func(d time.Duration, fn func()) game.Timer

	// finishRoom marks the shared room finished after a local win by
	// attrition.
	finishRoom func()

	victoryTimer game.Timer
	defeatTimer  game.Timer

	last    room.Room
	haveOne bool
}

// OnRoom merges one validated remote snapshot.
func (r *Reconciler) OnRoom(rm room.Room) {
	r.last = rm
	r.haveOne = true

	status := r.session.Status()

	// Bootstrap: adopt the room's round exactly once, when the room goes
	// Playing while we are still Idle. The remote player status field is
	// deliberately NOT adopted here - it may be stale leftover from a
	// previous round sharing the same room object.
	if status == game.StatusIdle && rm.Status == room.StatusPlaying {
		d, err := game.ParseDifficulty(rm.Difficulty)
		if err != nil {
			r.logger.Warn("room carries unknown difficulty", "room", rm.ID, "difficulty", rm.Difficulty)
			return
		}
		if err := r.session.Adopt(game.Puzzle{Puzzle: rm.Puzzle, Solution: rm.Solution, Difficulty: d}); err != nil {
			r.logger.Warn("room round rejected", "room", rm.ID, "error", err)
			return
		}
		// Stale player statuses in the bootstrap snapshot are ignored;
		// merging resumes with the next snapshot.
		return
	}

	// Once terminal, local state is authoritative; nothing remote can
	// change it.
	if status != game.StatusPlaying {
		r.stopTimers()
		return
	}

	// Steady state: raise-only adoption of our own remote terminal
	// status. Remote Won/Lost can end a still-active local game.
	if self, ok := rm.Players[r.selfID]; ok {
		switch self.Status {
		case room.PlayerWon:
			r.logger.Info("adopting remote win", "room", rm.ID)
			r.session.MarkWon()
			return
		case room.PlayerLost:
			r.logger.Info("adopting remote loss", "room", rm.ID)
			r.session.MarkLost()
			return
		}
	}

	// Victory by attrition: every opponent out while we still play.
	if rm.AllOpponentsOut(r.selfID) {
		r.scheduleVictory(rm)
	} else {
		r.stopVictoryTimer()
	}

	// Defeat by room finish: someone else won first.
	if rm.Status == room.StatusFinished {
		r.scheduleDefeat()
	} else {
		r.stopDefeatTimer()
	}
}

// scheduleVictory arms the attrition check for whatever remains of the
// grace period after round start.
func (r *Reconciler) scheduleVictory(rm room.Room) {
	if r.victoryTimer != nil {
		return
	}
	wait := time.Duration(0)
	if started := rm.StartedAt(); !started.IsZero() {
		if elapsed := r.clock.Now().Sub(started); elapsed < r.victoryGrace {
			wait = r.victoryGrace - elapsed
		}
	} else {
		wait = r.victoryGrace
	}
	r.victoryTimer = r.schedule(wait, r.confirmVictory)
}

// confirmVictory re-evaluates attrition against the latest snapshot when
// the grace period ends.
func (r *Reconciler) confirmVictory() {
	r.victoryTimer = nil
	if r.session.Status() != game.StatusPlaying {
		return
	}
	if !r.haveOne || !r.last.AllOpponentsOut(r.selfID) {
		return
	}
	r.logger.Info("victory by attrition", "room", r.last.ID)
	r.session.MarkWon()
	r.finishRoom()
}

func (r *Reconciler) scheduleDefeat() {
	if r.defeatTimer != nil {
		return
	}
	r.defeatTimer = r.schedule(r.defeatDelay, r.confirmDefeat)
}

// confirmDefeat marks the local player lost unless a win landed during
// the confirmation window.
func (r *Reconciler) confirmDefeat() {
	r.defeatTimer = nil
	if r.session.Status() != game.StatusPlaying {
		return
	}
	if !r.haveOne || r.last.Status != room.StatusFinished {
		return
	}
	r.logger.Info("defeat: room finished by another player", "room", r.last.ID)
	r.session.MarkLost()
}

func (r *Reconciler) stopVictoryTimer() {
	if r.victoryTimer != nil {
		r.victoryTimer.Stop()
		r.victoryTimer = nil
	}
}

func (r *Reconciler) stopDefeatTimer() {
	if r.defeatTimer != nil {
		r.defeatTimer.Stop()
		r.defeatTimer = nil
	}
}

func (r *Reconciler) stopTimers() {
	r.stopVictoryTimer()
	r.stopDefeatTimer()
}

// Close cancels pending grace-period timers on teardown.
func (r *Reconciler) Close() {
	r.stopTimers()
}
