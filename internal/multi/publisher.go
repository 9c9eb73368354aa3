package multi

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/gridrace/gridrace/internal/game"
	"github.com/gridrace/gridrace/internal/realtime"
	"github.com/gridrace/gridrace/internal/room"
)

// DefaultDebounceWindow is how long outbound publication coalesces local
// state changes before one write lands.
const DefaultDebounceWindow = 500 * time.Millisecond

// publisher pushes the local player snapshot to the shared room on a
// trailing debounce: writes within the window coalesce to one, bounding
// write volume while guaranteeing eventual publication of the latest
// state. A win transition additionally marks the room finished in the
// same batched write.
//
// Writes are fire-and-forget with logged failures; a missed update is
// superseded by the next debounced write.
type publisher struct {
	mu     sync.Mutex
	clock  game.Clock
	window time.Duration
	store  realtime.Store
	logger *slog.Logger

	roomPath string
	selfID   string

	pending *room.Player
	finish  bool
	timer   game.Timer
	closed  bool
}

func newPublisher(store realtime.Store, clock game.Clock, logger *slog.Logger, roomPath, selfID string, window time.Duration) *publisher {
	return &publisher{
		clock:    clock,
		window:   window,
		store:    store,
		logger:   logger,
		roomPath: roomPath,
		selfID:   selfID,
	}
}

// publish queues the snapshot for the next debounced write. finish marks
// the room finished alongside the player snapshot.
func (p *publisher) publish(pl room.Player, finish bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return
	}
	p.pending = &pl
	p.finish = p.finish || finish
	if p.timer == nil {
		p.timer = p.clock.AfterFunc(p.window, p.flush)
	}
}

// flush performs the coalesced write. Runs on the timer goroutine.
func (p *publisher) flush() {
	p.mu.Lock()
	if p.closed || p.pending == nil {
		p.timer = nil
		p.mu.Unlock()
		return
	}
	pl := *p.pending
	finish := p.finish
	p.pending = nil
	p.finish = false
	p.timer = nil
	p.mu.Unlock()

	partial := map[string]any{
		"players": map[string]any{p.selfID: asMap(pl)},
	}
	if finish {
		partial["status"] = string(room.StatusFinished)
	}
	if err := p.store.Write(context.Background(), p.roomPath, partial); err != nil {
		p.logger.Warn("progress publication failed", "room", p.roomPath, "error", err)
	}
}

// close cancels any pending write and stops further publication.
func (p *publisher) close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	if p.timer != nil {
		p.timer.Stop()
		p.timer = nil
	}
	p.pending = nil
}
