package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/SierraSoftworks/multicast/v2"
)

// MemStore is an in-process Store used by tests and the duel simulator.
// It keeps the whole tree in memory and fans out change notifications
// through one multicast channel per subscribed path, so several simulated
// clients can share a single backend instance.
type MemStore struct {
	mu   sync.Mutex
	root map[string]any

	chans map[string]*multicast.Channel[[]byte]

	// disconnect writes registered via OnDisconnectWrite, applied by
	// TriggerDisconnects (the simulator's stand-in for an unclean drop).
	disconnects []disconnectWrite

	closed bool
}

type disconnectWrite struct {
	path  string
	value any
}

// NewMemStore creates an empty in-memory store.
func NewMemStore() *MemStore {
	return &MemStore{
		root:  make(map[string]any),
		chans: make(map[string]*multicast.Channel[[]byte]),
	}
}

func splitPath(path string) []string {
	return strings.Split(strings.Trim(path, "/"), "/")
}

// subtree returns the node at path, or nil when absent.
func (m *MemStore) subtree(path string) any {
	var node any = m.root
	for _, seg := range splitPath(path) {
		obj, ok := node.(map[string]any)
		if !ok {
			return nil
		}
		node, ok = obj[seg]
		if !ok {
			return nil
		}
	}
	return node
}

// ensure returns the map at path, creating intermediate maps as needed.
func (m *MemStore) ensure(path string) map[string]any {
	node := m.root
	for _, seg := range splitPath(path) {
		child, ok := node[seg].(map[string]any)
		if !ok {
			child = make(map[string]any)
			node[seg] = child
		}
		node = child
	}
	return node
}

// toGeneric round-trips a value through JSON so the tree only ever holds
// generic maps, slices, and primitives.
func toGeneric(v any) (any, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode value: %w", err)
	}
	var out any
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("decode value: %w", err)
	}
	return out, nil
}

func deepMerge(dst map[string]any, src map[string]any) {
	for k, v := range src {
		if sv, ok := v.(map[string]any); ok {
			if dv, ok := dst[k].(map[string]any); ok {
				deepMerge(dv, sv)
				continue
			}
		}
		dst[k] = v
	}
}

// Read implements Store.
func (m *MemStore) Read(_ context.Context, path string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	node := m.subtree(path)
	if node == nil {
		return nil, nil
	}
	return json.Marshal(node)
}

// Write implements Store: deep-merges partial into the subtree at path.
func (m *MemStore) Write(_ context.Context, path string, partial map[string]any) error {
	generic, err := toGeneric(partial)
	if err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}

	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return fmt.Errorf("write %s: store closed", path)
	}
	deepMerge(m.ensure(path), generic.(map[string]any))
	pending := m.collectLocked(path)
	m.mu.Unlock()

	deliver(pending)
	return nil
}

// AtomicUpdate implements Store. The in-memory form holds the store lock
// across the read-modify-write, so concurrent updates serialize and no
// increment is lost.
func (m *MemStore) AtomicUpdate(_ context.Context, path string, fn func(current []byte) (any, error)) error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return fmt.Errorf("atomic update %s: store closed", path)
	}

	var current []byte
	if node := m.subtree(path); node != nil {
		data, err := json.Marshal(node)
		if err != nil {
			m.mu.Unlock()
			return fmt.Errorf("atomic update %s: %w", path, err)
		}
		current = data
	}

	next, err := fn(current)
	if err != nil {
		m.mu.Unlock()
		return fmt.Errorf("atomic update %s: %w", path, err)
	}
	generic, err := toGeneric(next)
	if err != nil {
		m.mu.Unlock()
		return fmt.Errorf("atomic update %s: %w", path, err)
	}

	segs := splitPath(path)
	parent := m.ensure(strings.Join(segs[:len(segs)-1], "/"))
	parent[segs[len(segs)-1]] = generic
	pending := m.collectLocked(path)
	m.mu.Unlock()

	deliver(pending)
	return nil
}

// Delete implements Store.
func (m *MemStore) Delete(_ context.Context, path string) error {
	m.mu.Lock()
	segs := splitPath(path)
	parentPath := strings.Join(segs[:len(segs)-1], "/")
	parent, ok := m.subtree(parentPath).(map[string]any)
	if !ok {
		m.mu.Unlock()
		return nil
	}
	delete(parent, segs[len(segs)-1])
	pending := m.collectLocked(path)
	m.mu.Unlock()

	deliver(pending)
	return nil
}

// Subscribe implements Store. The callback stops after cancel, but the
// internal listener keeps draining until the store closes so fanout never
// blocks on an abandoned subscriber.
func (m *MemStore) Subscribe(_ context.Context, path string, onChange func(data []byte)) (Cancel, error) {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil, fmt.Errorf("subscribe %s: store closed", path)
	}
	ch, ok := m.chans[path]
	if !ok {
		ch = multicast.New[[]byte]()
		m.chans[path] = ch
	}
	l := ch.Listen()
	m.mu.Unlock()

	done := make(chan struct{})
	go func() {
		for data := range l.C {
			select {
			case <-done:
				// Drain without delivering.
			default:
				onChange(data)
			}
		}
	}()

	var once sync.Once
	cancel := func() { once.Do(func() { close(done) }) }
	return cancel, nil
}

// OnDisconnectWrite implements Store by queueing the write for
// TriggerDisconnects.
func (m *MemStore) OnDisconnectWrite(_ context.Context, path string, value any) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.disconnects = append(m.disconnects, disconnectWrite{path: path, value: value})
	return nil
}

// TriggerDisconnects applies every registered disconnect write, simulating
// the backend reacting to an unclean client drop.
func (m *MemStore) TriggerDisconnects(ctx context.Context) error {
	m.mu.Lock()
	pending := m.disconnects
	m.disconnects = nil
	m.mu.Unlock()

	for _, dw := range pending {
		generic, err := toGeneric(dw.value)
		if err != nil {
			return err
		}
		obj, ok := generic.(map[string]any)
		if !ok {
			// Scalar disconnect value: write it under its parent key.
			segs := splitPath(dw.path)
			obj = map[string]any{segs[len(segs)-1]: generic}
			dw.path = strings.Join(segs[:len(segs)-1], "/")
		}
		if err := m.Write(ctx, dw.path, obj); err != nil {
			return err
		}
	}
	return nil
}

// Close shuts the store down and releases all subscription listeners.
func (m *MemStore) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return
	}
	m.closed = true
	for _, ch := range m.chans {
		ch.Close()
	}
}

type notification struct {
	ch   *multicast.Channel[[]byte]
	data []byte
}

// collectLocked snapshots the payload for every subscription whose path
// contains, or is contained by, the mutated path. Delivery happens after
// the store lock is released: a subscriber callback may re-enter the store.
func (m *MemStore) collectLocked(mutated string) []notification {
	var out []notification
	for path, ch := range m.chans {
		if !related(path, mutated) {
			continue
		}
		node := m.subtree(path)
		if node == nil {
			continue
		}
		data, err := json.Marshal(node)
		if err != nil {
			continue
		}
		out = append(out, notification{ch: ch, data: data})
	}
	return out
}

func deliver(pending []notification) {
	for _, n := range pending {
		n.ch.C <- n.data
	}
}

func related(a, b string) bool {
	a, b = strings.Trim(a, "/"), strings.Trim(b, "/")
	return a == b || strings.HasPrefix(b, a+"/") || strings.HasPrefix(a, b+"/")
}
