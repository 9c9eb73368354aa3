package realtime

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemStoreReadMissingPath(t *testing.T) {
	m := NewMemStore()
	defer m.Close()

	data, err := m.Read(context.Background(), "rooms/none")
	require.NoError(t, err)
	assert.Nil(t, data)
}

func TestMemStoreWriteDeepMerge(t *testing.T) {
	m := NewMemStore()
	defer m.Close()
	ctx := context.Background()

	require.NoError(t, m.Write(ctx, "rooms/r1", map[string]any{
		"status":  "waiting",
		"players": map[string]any{"a": map[string]any{"progress": 40}},
	}))
	// Partial update must not clobber sibling keys.
	require.NoError(t, m.Write(ctx, "rooms/r1", map[string]any{
		"players": map[string]any{"b": map[string]any{"progress": 50}},
	}))

	data, err := m.Read(ctx, "rooms/r1")
	require.NoError(t, err)

	var got map[string]any
	require.NoError(t, json.Unmarshal(data, &got))
	assert.Equal(t, "waiting", got["status"])
	players := got["players"].(map[string]any)
	assert.Len(t, players, 2)
}

func TestMemStoreSubscribeReceivesSubtree(t *testing.T) {
	m := NewMemStore()
	defer m.Close()
	ctx := context.Background()

	var mu sync.Mutex
	var last []byte
	cancel, err := m.Subscribe(ctx, "rooms/r1", func(data []byte) {
		mu.Lock()
		last = data
		mu.Unlock()
	})
	require.NoError(t, err)
	defer cancel()

	// A write below the subscribed path delivers the whole subtree.
	require.NoError(t, m.Write(ctx, "rooms/r1/players/a", map[string]any{"progress": 12}))

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		if last == nil {
			return false
		}
		var got map[string]any
		if err := json.Unmarshal(last, &got); err != nil {
			return false
		}
		_, ok := got["players"]
		return ok
	}, time.Second, 5*time.Millisecond)
}

func TestMemStoreSubscribeCancelStopsCallbacks(t *testing.T) {
	m := NewMemStore()
	defer m.Close()
	ctx := context.Background()

	calls := make(chan struct{}, 16)
	cancel, err := m.Subscribe(ctx, "rooms/r1", func([]byte) { calls <- struct{}{} })
	require.NoError(t, err)

	require.NoError(t, m.Write(ctx, "rooms/r1", map[string]any{"status": "waiting"}))
	select {
	case <-calls:
	case <-time.After(time.Second):
		t.Fatal("expected a notification before cancel")
	}

	cancel()
	cancel() // idempotent

	require.NoError(t, m.Write(ctx, "rooms/r1", map[string]any{"status": "playing"}))
	select {
	case <-calls:
		t.Fatal("callback after cancel")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestMemStoreAtomicUpdateSerializes(t *testing.T) {
	m := NewMemStore()
	defer m.Close()
	ctx := context.Background()

	const workers = 20
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := m.AtomicUpdate(ctx, "ledgers/a/b", func(current []byte) (any, error) {
				count := 0
				if current != nil {
					var rec map[string]int
					if err := json.Unmarshal(current, &rec); err != nil {
						return nil, err
					}
					count = rec["wins"]
				}
				return map[string]int{"wins": count + 1}, nil
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	data, err := m.Read(ctx, "ledgers/a/b")
	require.NoError(t, err)
	var rec map[string]int
	require.NoError(t, json.Unmarshal(data, &rec))
	assert.Equal(t, workers, rec["wins"], "no increment may be lost")
}

func TestMemStoreAtomicUpdatePropagatesError(t *testing.T) {
	m := NewMemStore()
	defer m.Close()

	err := m.AtomicUpdate(context.Background(), "x/y", func([]byte) (any, error) {
		return nil, assert.AnError
	})
	require.ErrorIs(t, err, assert.AnError)
}

func TestMemStoreDelete(t *testing.T) {
	m := NewMemStore()
	defer m.Close()
	ctx := context.Background()

	require.NoError(t, m.Write(ctx, "rooms/r1", map[string]any{"status": "finished"}))
	require.NoError(t, m.Delete(ctx, "rooms/r1"))

	data, err := m.Read(ctx, "rooms/r1")
	require.NoError(t, err)
	assert.Nil(t, data)

	// Deleting something absent is fine.
	require.NoError(t, m.Delete(ctx, "rooms/never"))
}

func TestMemStoreTriggerDisconnects(t *testing.T) {
	m := NewMemStore()
	defer m.Close()
	ctx := context.Background()

	require.NoError(t, m.Write(ctx, "rooms/r1/players/a", map[string]any{"status": "playing"}))
	require.NoError(t, m.OnDisconnectWrite(ctx, "rooms/r1/players/a/status", "disconnected"))
	require.NoError(t, m.TriggerDisconnects(ctx))

	data, err := m.Read(ctx, "rooms/r1/players/a")
	require.NoError(t, err)
	var got map[string]any
	require.NoError(t, json.Unmarshal(data, &got))
	assert.Equal(t, "disconnected", got["status"])
}

func TestMemStoreCloseRejectsWrites(t *testing.T) {
	m := NewMemStore()
	m.Close()
	m.Close() // idempotent

	err := m.Write(context.Background(), "x", map[string]any{"a": 1})
	require.Error(t, err)

	_, err = m.Subscribe(context.Background(), "x", func([]byte) {})
	require.Error(t, err)
}
