package session

import (
	"encoding/json"

	"parceldesk/core/storage"
)

// broadcast writes a tagged sync message to the shared store. Other
// tabs observe it through their store subscription; the writer skips
// its own messages, mirroring how browser storage events never fire in
// the originating tab.
func (m *Manager) broadcast(kind string) {
	if m.isClosed() {
		return
	}
	msg := syncMessage{Kind: kind, Origin: m.id, At: m.now().UnixMilli()}
	raw, err := json.Marshal(msg)
	if err != nil {
		return
	}
	m.store.Set(storage.KeySync, string(raw))
}

func (m *Manager) handleStorageEvent(key string) {
	if key != storage.KeySync {
		return
	}
	raw, ok := m.store.Get(storage.KeySync)
	if !ok {
		return
	}
	var msg syncMessage
	if err := json.Unmarshal([]byte(raw), &msg); err != nil {
		return
	}
	if msg.Origin == m.id {
		return
	}
	// Throttle: rapid writes from other tabs collapse to one handled
	// event per window.
	m.mu.Lock()
	now := m.now()
	if m.closed || now.Sub(m.lastSync) < m.cfg.SyncThrottle {
		m.mu.Unlock()
		return
	}
	m.lastSync = now
	m.mu.Unlock()

	switch msg.Kind {
	case syncLogout:
		m.clearLocal()
		if m.onForcedLogout != nil {
			m.onForcedLogout()
		}
	case syncLogin:
		if m.onStateReload != nil {
			m.onStateReload()
		}
	case syncTokenChanged:
		// Re-validate on the next loop pass instead of inline; the
		// store listener must not block.
		m.Wake()
	}
}
