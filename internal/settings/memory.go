package settings

import (
	"context"
	"sync"
)

// MemoryBackend keeps values in process. Watchers see every Set.
type MemoryBackend struct {
	mu       sync.Mutex
	values   map[string][]byte
	watchers map[string]map[chan struct{}]struct{}
}

func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{
		values:   map[string][]byte{},
		watchers: map[string]map[chan struct{}]struct{}{},
	}
}

func (m *MemoryBackend) Get(_ context.Context, key string) ([]byte, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.values[key]
	if !ok {
		return nil, false, nil
	}
	return append([]byte(nil), v...), true, nil
}

func (m *MemoryBackend) Set(_ context.Context, key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[key] = append([]byte(nil), value...)
	for ch := range m.watchers[key] {
		select {
		case ch <- struct{}{}:
		default:
			// a notification is already pending
		}
	}
	return nil
}

func (m *MemoryBackend) Watch(ctx context.Context, key string) (<-chan struct{}, error) {
	ch := make(chan struct{}, 1)
	m.mu.Lock()
	set := m.watchers[key]
	if set == nil {
		set = map[chan struct{}]struct{}{}
		m.watchers[key] = set
	}
	set[ch] = struct{}{}
	m.mu.Unlock()

	go func() {
		<-ctx.Done()
		m.mu.Lock()
		delete(m.watchers[key], ch)
		close(ch)
		m.mu.Unlock()
	}()
	return ch, nil
}

func (m *MemoryBackend) Close() error { return nil }
