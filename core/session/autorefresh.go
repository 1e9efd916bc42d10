package session

import (
	"context"
	"time"

	"parceldesk/core/storage"
	"parceldesk/core/token"
)

// Run drives the background expiry check: once immediately, then on a
// fixed interval, plus whenever Wake is called (tab became visible,
// network came back, another tab rotated the token). It returns when
// ctx is cancelled.
func (m *Manager) Run(ctx context.Context) {
	m.CheckNow(ctx)
	ticker := time.NewTicker(m.cfg.CheckInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		case <-m.wake:
		}
		m.CheckNow(ctx)
	}
}

// Wake requests an immediate expiry check from the Run loop. Safe to
// call from any goroutine; extra wakes coalesce.
func (m *Manager) Wake() {
	select {
	case m.wake <- struct{}{}:
	default:
	}
}

// CheckNow performs one expiry check: refresh proactively when the
// token expires within the threshold, destroy the session when it is
// already gone. A failed refresh redirects to the login view with a
// session-expired marker. No token stored means nobody is signed in
// and there is nothing to do.
func (m *Manager) CheckNow(ctx context.Context) {
	raw, ok := m.store.Get(storage.KeyAccessToken)
	if !ok {
		return
	}
	claims, err := token.Decode(raw)
	if err != nil {
		// Malformed token is never trusted.
		m.forceLogout()
		m.expire()
		return
	}
	left := claims.ExpiresIn(m.now())
	switch {
	case left > m.cfg.RefreshThreshold:
		return
	case left > 0:
		if !m.Refresh(ctx) {
			m.expire()
		}
	default:
		// Expired outright; the refresh token may still be alive, so
		// try once before giving up.
		if !m.Refresh(ctx) {
			m.expire()
		}
	}
}

// expire announces the end of the session to the host UI. Local state
// is already cleared by the failing refresh path.
func (m *Manager) expire() {
	if m.onSessionExpired != nil {
		m.onSessionExpired()
	}
	if m.nav != nil {
		m.nav.Redirect(PathLoginExpired)
	}
}
