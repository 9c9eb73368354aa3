package multi

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/gridrace/gridrace/internal/game"
	"github.com/gridrace/gridrace/internal/ledger"
	"github.com/gridrace/gridrace/internal/realtime"
	"github.com/gridrace/gridrace/internal/room"
)

// DefaultDeleteDelay is how long the owning client waits after a match
// concludes before deleting the room, so the losing side can still read
// the terminal snapshot.
const DefaultDeleteDelay = 10 * time.Second

// Match orchestrates one multiplayer round: it owns the local session,
// subscribes to the shared room, reconciles remote snapshots, publishes
// local progress, and records the outcome when the round concludes.
//
// Match follows the single-writer loop model: remote snapshots, local
// change notifications, and timer firings are all enqueued as events and
// processed by the one goroutine running Run. Enqueuing is safe from any
// goroutine.
type Match struct {
	logger *slog.Logger
	clock  game.Clock
	store  realtime.Store
	gen    game.Generator

	session *game.Session
	ledger  *ledger.Ledger
	queue   *eventQueue
	rec     *Reconciler
	pub     *publisher

	selfID   string
	selfName string
	roomID   string
	owner    bool
	joinedAt int64

	debounce     time.Duration
	victoryGrace time.Duration
	defeatDelay  time.Duration
	deleteDelay  time.Duration

	unsubscribe realtime.Cancel
	lastRoom    room.Room
	haveRoom    bool
	recorded    bool // one-shot guard for ledger recording
}

// MatchOption configures a Match.
type MatchOption func(*Match)

// WithLogger sets the match's structured logger.
func WithLogger(l *slog.Logger) MatchOption {
	return func(m *Match) { m.logger = l }
}

// WithClock substitutes all of the match's timers and timestamps. Tests
// pass a deterministic clock.
func WithClock(c game.Clock) MatchOption {
	return func(m *Match) { m.clock = c }
}

// WithDebounceWindow overrides the outbound publication debounce.
func WithDebounceWindow(d time.Duration) MatchOption {
	return func(m *Match) { m.debounce = d }
}

// WithVictoryGrace overrides the attrition-victory grace period.
func WithVictoryGrace(d time.Duration) MatchOption {
	return func(m *Match) { m.victoryGrace = d }
}

// WithDefeatDelay overrides the defeat confirmation delay.
func WithDefeatDelay(d time.Duration) MatchOption {
	return func(m *Match) { m.defeatDelay = d }
}

// WithDeleteDelay overrides the owner's post-match room deletion delay.
func WithDeleteDelay(d time.Duration) MatchOption {
	return func(m *Match) { m.deleteDelay = d }
}

// NewMatch creates a match client for one player identity. The session
// starts Idle; it adopts the room's round when the room goes Playing.
func NewMatch(store realtime.Store, gen game.Generator, selfID, selfName string, opts ...MatchOption) *Match {
	m := &Match{
		logger:       slog.Default(),
		clock:        game.SystemClock(),
		store:        store,
		gen:          gen,
		queue:        newEventQueue(),
		selfID:       selfID,
		selfName:     selfName,
		debounce:     DefaultDebounceWindow,
		victoryGrace: DefaultVictoryGrace,
		defeatDelay:  DefaultDefeatDelay,
		deleteDelay:  DefaultDeleteDelay,
	}
	for _, opt := range opts {
		opt(m)
	}

	m.session = game.NewSession(gen, game.WithClock(m.clock), game.WithLogger(m.logger))
	m.session.SetOnChange(m.onLocalChange)
	m.ledger = ledger.New(store, ledger.WithLogger(m.logger), ledger.WithNow(m.clock.Now))
	m.rec = &Reconciler{
		selfID:       selfID,
		clock:        m.clock,
		session:      m.session,
		logger:       m.logger,
		victoryGrace: m.victoryGrace,
		defeatDelay:  m.defeatDelay,
		schedule:     m.scheduleOnLoop,
		finishRoom:   m.finishRoom,
	}
	return m
}

// Session exposes the local session for presentation and input.
func (m *Match) Session() *game.Session { return m.session }

// RoomID returns the joined or created room's ID, empty before either.
func (m *Match) RoomID() string { return m.roomID }

func (m *Match) roomPath() string   { return "rooms/" + m.roomID }
func (m *Match) playerPath() string { return m.roomPath() + "/players/" + m.selfID }

// Create generates a round, creates a waiting room owned by this player,
// and subscribes to it. The local session stays Idle until Start flips
// the room to Playing and the bootstrap path adopts the round.
func (m *Match) Create(ctx context.Context, d game.Difficulty) error {
	p, err := m.gen.Generate(d)
	if err != nil {
		return fmt.Errorf("create room: %w", err)
	}

	m.roomID = uuid.NewString()
	m.owner = true
	now := m.clock.Now().UnixMilli()
	m.joinedAt = now

	rm := room.Room{
		ID:         m.roomID,
		OwnerID:    m.selfID,
		Status:     room.StatusWaiting,
		Puzzle:     p.Puzzle,
		Solution:   p.Solution,
		Difficulty: string(d),
		CreatedAt:  now,
		Players:    map[string]room.Player{m.selfID: m.selfSnapshot()},
	}
	if err := m.store.Write(ctx, m.roomPath(), asMap(rm)); err != nil {
		return fmt.Errorf("create room: %w", err)
	}

	m.registerDisconnect(ctx)
	if err := m.subscribe(ctx); err != nil {
		return fmt.Errorf("create room: %w", err)
	}

	m.logger.Info("room created", "room", m.roomID, "difficulty", d)
	return nil
}

// Join adds this player to an existing waiting room. Room-not-found,
// already-started, and room-full come back as structured JoinErrors so
// the presentation layer can message them distinctly from connectivity
// failures.
func (m *Match) Join(ctx context.Context, roomID string) error {
	m.roomID = roomID

	data, err := m.store.Read(ctx, m.roomPath())
	if err != nil {
		return fmt.Errorf("join room %s: %w", roomID, err)
	}
	if data == nil {
		return &JoinError{Code: ErrCodeRoomNotFound, RoomID: roomID}
	}
	rm, err := room.Decode(data)
	if err != nil {
		return fmt.Errorf("join room %s: %w", roomID, err)
	}
	if rm.Status != room.StatusWaiting {
		return &JoinError{Code: ErrCodeRoomAlreadyStarted, RoomID: roomID}
	}
	if len(rm.Players) >= room.MaxPlayers {
		return &JoinError{Code: ErrCodeRoomFull, RoomID: roomID}
	}

	m.joinedAt = m.clock.Now().UnixMilli()
	partial := map[string]any{
		"players": map[string]any{m.selfID: asMap(m.selfSnapshot())},
	}
	if err := m.store.Write(ctx, m.roomPath(), partial); err != nil {
		return fmt.Errorf("join room %s: %w", roomID, err)
	}

	m.registerDisconnect(ctx)
	if err := m.subscribe(ctx); err != nil {
		return fmt.Errorf("join room %s: %w", roomID, err)
	}

	m.logger.Info("room joined", "room", roomID)
	return nil
}

// Start transitions the room Waiting -> Playing. Only the designated
// starter - the room owner - performs this transition.
func (m *Match) Start(ctx context.Context) error {
	if !m.owner {
		return fmt.Errorf("start room %s: only the owner starts the round", m.roomID)
	}
	partial := map[string]any{
		"status":    string(room.StatusPlaying),
		"startTime": m.clock.Now().UnixMilli(),
	}
	if err := m.store.Write(ctx, m.roomPath(), partial); err != nil {
		return fmt.Errorf("start room %s: %w", m.roomID, err)
	}
	m.logger.Info("round started", "room", m.roomID)
	return nil
}

// Run processes the match's events until the context is cancelled or the
// match is closed. Must be called from exactly one goroutine.
func (m *Match) Run(ctx context.Context) error {
	for {
		ev, ok := m.queue.TryDequeue()
		if ok {
			m.process(ev)
			continue
		}

		select {
		case <-ctx.Done():
			m.queue.Close()
			return ctx.Err()
		case <-m.queue.Wait():
			if m.queue.Closed() && m.queue.Len() == 0 {
				return nil
			}
		}
	}
}

// process handles one event on the loop goroutine.
func (m *Match) process(ev event) {
	switch ev.kind {
	case eventRoom:
		m.lastRoom = ev.room
		m.haveRoom = true
		m.rec.OnRoom(ev.room)
		m.maybeConclude()

	case eventLocal:
		if m.pub != nil && ev.snap.Status != game.StatusIdle {
			m.pub.publish(m.snapshotToPlayer(ev.snap), ev.snap.Status == game.StatusWon)
		}
		m.maybeConclude()

	case eventFunc:
		if ev.fn != nil {
			ev.fn()
		}
	}
}

// Step processes at most one pending event; used by tests to drive the
// loop deterministically without a goroutine.
func (m *Match) Step() bool {
	ev, ok := m.queue.TryDequeue()
	if ok {
		m.process(ev)
	}
	return ok
}

// Close tears the match down: subscription, grace timers, pending
// publication, and the session's assist timer are all cancelled so
// nothing fires against a torn-down round.
func (m *Match) Close() {
	if m.unsubscribe != nil {
		m.unsubscribe()
		m.unsubscribe = nil
	}
	m.rec.Close()
	if m.pub != nil {
		m.pub.close()
	}
	m.session.Close()
	m.queue.Close()
}

func (m *Match) subscribe(ctx context.Context) error {
	m.pub = newPublisher(m.store, m.clock, m.logger, m.roomPath(), m.selfID, m.debounce)

	cancel, err := m.store.Subscribe(ctx, m.roomPath(), func(data []byte) {
		rm, err := room.Decode(data)
		if err != nil {
			// Torn or malformed remote snapshot: drop it. The next
			// consistent write re-delivers the whole subtree.
			m.logger.Warn("dropping invalid room snapshot", "room", m.roomID, "error", err)
			return
		}
		m.queue.Enqueue(event{kind: eventRoom, room: rm})
	})
	if err != nil {
		return err
	}
	m.unsubscribe = cancel
	return nil
}

// registerDisconnect asks the backend to mark this player disconnected if
// the client drops uncleanly. Failure to register is logged, not fatal:
// it only degrades the attrition check for other players.
func (m *Match) registerDisconnect(ctx context.Context) {
	err := m.store.OnDisconnectWrite(ctx, m.playerPath()+"/status", string(room.PlayerDisconnected))
	if err != nil {
		m.logger.Warn("disconnect registration failed", "room", m.roomID, "error", err)
	}
}

// onLocalChange is the session's change callback; it may fire from any
// goroutine and only enqueues.
func (m *Match) onLocalChange(snap game.Snapshot) {
	m.queue.Enqueue(event{kind: eventLocal, snap: snap})
}

// scheduleOnLoop defers fn onto the loop goroutine after d.
func (m *Match) scheduleOnLoop(d time.Duration, fn func()) game.Timer {
	return m.clock.AfterFunc(d, func() {
		m.queue.Enqueue(event{kind: eventFunc, fn: fn})
	})
}

// finishRoom marks the shared room finished; fire-and-forget.
func (m *Match) finishRoom() {
	partial := map[string]any{"status": string(room.StatusFinished)}
	if err := m.store.Write(context.Background(), m.roomPath(), partial); err != nil {
		m.logger.Warn("room finish write failed", "room", m.roomID, "error", err)
	}
}

// maybeConclude records outcomes exactly once when the local session
// reaches a terminal status. Ledger writes run off-loop; a failed write
// is logged and the match outcome stands locally.
func (m *Match) maybeConclude() {
	snap := m.session.Snapshot()
	if !snap.Status.Terminal() || m.recorded || !m.haveRoom {
		return
	}
	m.recorded = true
	didWin := snap.Status == game.StatusWon

	for _, opp := range m.lastRoom.Opponents(m.selfID) {
		opp := opp
		go func() {
			if err := m.ledger.RecordResult(context.Background(), m.selfID, opp.ID, opp.Name, didWin); err != nil {
				m.logger.Warn("outcome recording failed", "opponent", opp.ID, "error", err)
			}
		}()
	}

	if m.owner {
		roomPath := m.roomPath()
		m.clock.AfterFunc(m.deleteDelay, func() {
			if err := m.store.Delete(context.Background(), roomPath); err != nil {
				m.logger.Warn("room deletion failed", "room", roomPath, "error", err)
			}
		})
	}

	m.logger.Info("match concluded", "room", m.roomID, "won", didWin)
}

// snapshotToPlayer converts a local session snapshot into this player's
// published room record.
func (m *Match) snapshotToPlayer(snap game.Snapshot) room.Player {
	return room.Player{
		ID:        m.selfID,
		Name:      m.selfName,
		Progress:  snap.Progress,
		Mistakes:  snap.Mistakes,
		Completed: snap.Status == game.StatusWon,
		Status:    toPlayerStatus(snap.Status),
		TimeTaken: snap.TimeTaken.Milliseconds(),
		JoinedAt:  m.joinedAt,
	}
}

func (m *Match) selfSnapshot() room.Player {
	return room.Player{
		ID:       m.selfID,
		Name:     m.selfName,
		Progress: 0,
		Status:   room.PlayerPlaying,
		JoinedAt: m.joinedAt,
	}
}

func toPlayerStatus(s game.Status) room.PlayerStatus {
	switch s {
	case game.StatusWon:
		return room.PlayerWon
	case game.StatusLost:
		return room.PlayerLost
	default:
		return room.PlayerPlaying
	}
}

// asMap round-trips a struct through JSON into the generic map shape the
// store's merge writes take.
func asMap(v any) map[string]any {
	data, err := json.Marshal(v)
	if err != nil {
		return map[string]any{}
	}
	var out map[string]any
	if err := json.Unmarshal(data, &out); err != nil {
		return map[string]any{}
	}
	return out
}
