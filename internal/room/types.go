// Package room defines the shared multiplayer match record and its wire
// schema. A Room is owned collectively by its participants: each player
// writes their own snapshot subkey, and shared subkeys (status, start
// time) are written only under the narrow conditions the reconciler
// enforces. Remote records are untrusted and validated against a CUE
// schema before they are merged into local state.
package room

import (
	"sort"
	"time"

	"github.com/duke-git/lancet/v2/maputil"
)

// Status is the room lifecycle state.
type Status string

const (
	// StatusWaiting means the room exists and participants may join.
	StatusWaiting Status = "waiting"
	// StatusPlaying means the round has started; no further joins.
	StatusPlaying Status = "playing"
	// StatusFinished means a winner was decided; the owner deletes the
	// room a fixed delay later so the loser can still read the terminal
	// snapshot.
	StatusFinished Status = "finished"
)

// PlayerStatus is one participant's published game state.
type PlayerStatus string

const (
	PlayerPlaying      PlayerStatus = "playing"
	PlayerWon          PlayerStatus = "won"
	PlayerLost         PlayerStatus = "lost"
	PlayerDisconnected PlayerStatus = "disconnected"
)

// Terminal reports whether the player status is an end state. A
// disconnected player no longer competes and counts as out of the round.
func (s PlayerStatus) Terminal() bool {
	return s == PlayerWon || s == PlayerLost || s == PlayerDisconnected
}

// Player is one participant's snapshot inside the room record.
type Player struct {
	ID        string       `json:"id"`
	Name      string       `json:"name"`
	Progress  int          `json:"progress"`
	Mistakes  int          `json:"mistakes"`
	Completed bool         `json:"completed"`
	Status    PlayerStatus `json:"status"`
	TimeTaken int64        `json:"timeTaken"` // milliseconds; 0 while playing
	JoinedAt  int64        `json:"joinedAt"`  // unix milliseconds
}

// Room is the shared match record.
type Room struct {
	ID         string            `json:"id"`
	OwnerID    string            `json:"ownerId"`
	Status     Status            `json:"status"`
	Puzzle     string            `json:"puzzle"`
	Solution   string            `json:"solution"`
	Difficulty string            `json:"difficulty"`
	StartTime  int64             `json:"startTime"` // unix milliseconds; 0 until started
	CreatedAt  int64             `json:"createdAt"` // unix milliseconds
	Players    map[string]Player `json:"players"`
}

// MaxPlayers bounds room membership.
const MaxPlayers = 4

// Opponents returns every participant other than selfID, ordered by ID
// for deterministic iteration.
func (r *Room) Opponents(selfID string) []Player {
	ids := maputil.Keys(r.Players)
	sort.Strings(ids)
	out := make([]Player, 0, len(ids))
	for _, id := range ids {
		if id != selfID {
			out = append(out, r.Players[id])
		}
	}
	return out
}

// AllOpponentsOut reports whether the room has at least one opponent and
// every one of them is lost or disconnected. This is the victory-by-
// attrition condition; a won opponent never satisfies it.
func (r *Room) AllOpponentsOut(selfID string) bool {
	opps := r.Opponents(selfID)
	if len(opps) == 0 {
		return false
	}
	for _, p := range opps {
		if p.Status != PlayerLost && p.Status != PlayerDisconnected {
			return false
		}
	}
	return true
}

// StartedAt returns the server-assigned start time, or the zero time when
// the round has not started.
func (r *Room) StartedAt() time.Time {
	if r.StartTime == 0 {
		return time.Time{}
	}
	return time.UnixMilli(r.StartTime)
}
