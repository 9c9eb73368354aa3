// Package ledger records pairwise win/loss outcomes between players.
//
// Each (self, opponent) pair maps to one record updated through the shared
// store's atomic read-modify-write, so both sides of a match can record
// their outcome concurrently without losing an increment. The ledger has
// no natural de-duplication key for a specific match; callers guard
// against double recording with a one-shot.
package ledger

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/gridrace/gridrace/internal/realtime"
)

// Record is the cumulative outcome tally against one opponent.
type Record struct {
	Wins      int    `json:"wins"`
	Losses    int    `json:"losses"`
	Name      string `json:"name"` // opponent's last-known display name
	UpdatedAt int64  `json:"updatedAt"`
}

// Ledger reads and updates outcome records in the shared store.
type Ledger struct {
	store  realtime.Store
	logger *slog.Logger
	now    func() time.Time
}

// Option configures a Ledger.
type Option func(*Ledger)

// WithLogger sets the ledger's structured logger.
func WithLogger(l *slog.Logger) Option {
	return func(lg *Ledger) { lg.logger = l }
}

// WithNow substitutes the timestamp source for tests.
func WithNow(now func() time.Time) Option {
	return func(lg *Ledger) { lg.now = now }
}

// New creates a Ledger backed by the given store.
func New(store realtime.Store, opts ...Option) *Ledger {
	lg := &Ledger{store: store, logger: slog.Default(), now: time.Now}
	for _, opt := range opts {
		opt(lg)
	}
	return lg
}

func recordPath(selfID, opponentID string) string {
	return "ledgers/" + selfID + "/" + opponentID
}

// RecordResult increments the win or loss counter against one opponent and
// refreshes the opponent's display name, initializing the record when
// absent. The whole update is one atomic transaction; it must be invoked
// at most once per concluded match per opponent.
func (lg *Ledger) RecordResult(ctx context.Context, selfID, opponentID, opponentName string, didWin bool) error {
	err := lg.store.AtomicUpdate(ctx, recordPath(selfID, opponentID), func(current []byte) (any, error) {
		var rec Record
		if current != nil {
			if err := json.Unmarshal(current, &rec); err != nil {
				return nil, fmt.Errorf("decode ledger record: %w", err)
			}
		}
		if didWin {
			rec.Wins++
		} else {
			rec.Losses++
		}
		rec.Name = opponentName
		rec.UpdatedAt = lg.now().UnixMilli()
		return rec, nil
	})
	if err != nil {
		return fmt.Errorf("record result vs %s: %w", opponentID, err)
	}
	lg.logger.Info("outcome recorded", "opponent", opponentID, "won", didWin)
	return nil
}

// Records returns every outcome record for a player, keyed by opponent ID.
// Returns an empty map when the player has no history.
func (lg *Ledger) Records(ctx context.Context, selfID string) (map[string]Record, error) {
	data, err := lg.store.Read(ctx, "ledgers/"+selfID)
	if err != nil {
		return nil, fmt.Errorf("read ledger: %w", err)
	}
	if data == nil {
		return map[string]Record{}, nil
	}
	var out map[string]Record
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("decode ledger: %w", err)
	}
	return out, nil
}
