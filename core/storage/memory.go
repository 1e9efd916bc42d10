package storage

import "sync"

type MemoryStore struct {
	mu          sync.RWMutex
	values      map[string]string
	subscribers map[int]func(string)
	nextSub     int
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		values:      map[string]string{},
		subscribers: map[int]func(string){},
	}
}

func (m *MemoryStore) Get(key string) (string, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.values[key]
	return v, ok
}

func (m *MemoryStore) Set(key, value string) {
	m.mu.Lock()
	m.values[key] = value
	fns := m.listenersLocked()
	m.mu.Unlock()
	for _, fn := range fns {
		fn(key)
	}
}

func (m *MemoryStore) Remove(key string) {
	m.mu.Lock()
	_, existed := m.values[key]
	delete(m.values, key)
	var fns []func(string)
	if existed {
		fns = m.listenersLocked()
	}
	m.mu.Unlock()
	for _, fn := range fns {
		fn(key)
	}
}

func (m *MemoryStore) Subscribe(fn func(key string)) (cancel func()) {
	m.mu.Lock()
	id := m.nextSub
	m.nextSub++
	m.subscribers[id] = fn
	m.mu.Unlock()
	return func() {
		m.mu.Lock()
		delete(m.subscribers, id)
		m.mu.Unlock()
	}
}

func (m *MemoryStore) listenersLocked() []func(string) {
	fns := make([]func(string), 0, len(m.subscribers))
	for _, fn := range m.subscribers {
		fns = append(fns, fn)
	}
	return fns
}
