package multi

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gridrace/gridrace/internal/game"
	"github.com/gridrace/gridrace/internal/ledger"
	"github.com/gridrace/gridrace/internal/realtime"
	"github.com/gridrace/gridrace/internal/room"
	"github.com/gridrace/gridrace/internal/testutil"
)

// matchUnderTest starts a match's event loop and wires teardown.
func matchUnderTest(t *testing.T, store realtime.Store, id, name string) *Match {
	t.Helper()
	m := NewMatch(store, testutil.NewFixedGenerator(0, 1, 2, 3, 4, 5), id, name,
		WithDebounceWindow(10*time.Millisecond),
		WithVictoryGrace(50*time.Millisecond),
		WithDefeatDelay(50*time.Millisecond),
		WithDeleteDelay(50*time.Millisecond),
	)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = m.Run(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
		m.Close()
	})
	return m
}

func waitForStatus(t *testing.T, s *game.Session, want game.Status) {
	t.Helper()
	require.Eventually(t, func() bool { return s.Status() == want },
		2*time.Second, 5*time.Millisecond, "session never reached %s", want)
}

// solveBlanks fills the six cells the fixed generator leaves empty.
func solveBlanks(t *testing.T, s *game.Session) {
	t.Helper()
	for col := 0; col < 6; col++ {
		require.True(t, s.Apply(0, col, testutil.SolutionDigit(0, col)))
	}
}

func TestMatchFullRound(t *testing.T) {
	store := realtime.NewMemStore()
	defer store.Close()
	ctx := context.Background()

	owner := matchUnderTest(t, store, "p1", "alice")
	joiner := matchUnderTest(t, store, "p2", "bob")

	require.NoError(t, owner.Create(ctx, game.DifficultyHard))
	require.NotEmpty(t, owner.RoomID())
	require.NoError(t, joiner.Join(ctx, owner.RoomID()))
	require.NoError(t, owner.Start(ctx))

	// Both clients adopt the round off the Playing transition.
	waitForStatus(t, owner.Session(), game.StatusPlaying)
	waitForStatus(t, joiner.Session(), game.StatusPlaying)

	solveBlanks(t, owner.Session())
	waitForStatus(t, owner.Session(), game.StatusWon)

	// The winner's debounced write marks the room finished, which the
	// loser confirms into a defeat after the delay.
	waitForStatus(t, joiner.Session(), game.StatusLost)

	lg := ledger.New(store)
	require.Eventually(t, func() bool {
		recs, err := lg.Records(ctx, "p1")
		return err == nil && recs["p2"].Wins == 1
	}, 2*time.Second, 5*time.Millisecond, "winner's ledger entry never landed")
	require.Eventually(t, func() bool {
		recs, err := lg.Records(ctx, "p2")
		return err == nil && recs["p1"].Losses == 1
	}, 2*time.Second, 5*time.Millisecond, "loser's ledger entry never landed")

	recs, err := lg.Records(ctx, "p2")
	require.NoError(t, err)
	assert.Equal(t, "alice", recs["p1"].Name)

	// The owner deletes the concluded room after the grace window.
	roomPath := "rooms/" + owner.RoomID()
	require.Eventually(t, func() bool {
		v, err := store.Read(ctx, roomPath)
		return err == nil && v == nil
	}, 2*time.Second, 5*time.Millisecond, "owner never deleted the room")
}

func TestMatchVictoryByDisconnection(t *testing.T) {
	store := realtime.NewMemStore()
	defer store.Close()
	ctx := context.Background()

	owner := matchUnderTest(t, store, "p1", "alice")
	joiner := matchUnderTest(t, store, "p2", "bob")

	require.NoError(t, owner.Create(ctx, game.DifficultyHard))
	require.NoError(t, joiner.Join(ctx, owner.RoomID()))
	require.NoError(t, owner.Start(ctx))
	waitForStatus(t, owner.Session(), game.StatusPlaying)
	waitForStatus(t, joiner.Session(), game.StatusPlaying)

	// Simulate the joiner dropping uncleanly: the registered disconnect
	// write fires and the owner wins by attrition after the grace period.
	joiner.Close()
	require.NoError(t, store.TriggerDisconnects(ctx))

	waitForStatus(t, owner.Session(), game.StatusWon)

	lg := ledger.New(store)
	require.Eventually(t, func() bool {
		recs, err := lg.Records(ctx, "p1")
		return err == nil && recs["p2"].Wins == 1
	}, 2*time.Second, 5*time.Millisecond, "attrition win was never recorded")
}

func TestJoinUnknownRoom(t *testing.T) {
	store := realtime.NewMemStore()
	defer store.Close()

	m := NewMatch(store, testutil.NewFixedGenerator(0), "p2", "bob")
	defer m.Close()

	err := m.Join(context.Background(), "no-such-room")
	require.Error(t, err)
	assert.True(t, IsRoomNotFound(err))
}

func TestJoinStartedRoom(t *testing.T) {
	store := realtime.NewMemStore()
	defer store.Close()
	ctx := context.Background()

	rm := waitingRoom("p1")
	rm.Status = room.StatusPlaying
	rm.StartTime = time.Now().UnixMilli()
	require.NoError(t, store.Write(ctx, "rooms/"+rm.ID, asMap(rm)))

	m := NewMatch(store, testutil.NewFixedGenerator(0), "p2", "bob")
	defer m.Close()

	err := m.Join(ctx, rm.ID)
	require.Error(t, err)
	assert.True(t, IsRoomAlreadyStarted(err))
}

func TestJoinFullRoom(t *testing.T) {
	store := realtime.NewMemStore()
	defer store.Close()
	ctx := context.Background()

	rm := waitingRoom("p1")
	for i := 2; i <= room.MaxPlayers; i++ {
		id := fmt.Sprintf("p%d", i)
		rm.Players[id] = room.Player{ID: id, Name: id, Status: room.PlayerPlaying}
	}
	require.NoError(t, store.Write(ctx, "rooms/"+rm.ID, asMap(rm)))

	m := NewMatch(store, testutil.NewFixedGenerator(0), "p9", "late")
	defer m.Close()

	err := m.Join(ctx, rm.ID)
	require.Error(t, err)
	assert.True(t, IsRoomFull(err))
}

func waitingRoom(ownerID string) room.Room {
	return room.Room{
		ID:         "fixed-room",
		OwnerID:    ownerID,
		Status:     room.StatusWaiting,
		Puzzle:     testutil.Blank(0),
		Solution:   testutil.Solution,
		Difficulty: "easy",
		CreatedAt:  time.Now().UnixMilli(),
		Players: map[string]room.Player{
			ownerID: {ID: ownerID, Name: ownerID, Status: room.PlayerPlaying},
		},
	}
}
