package session

import (
	"context"
	"testing"
	"time"

	"parceldesk/core/storage"
)

// Two managers on one store model two browser tabs sharing
// localStorage.
func TestLogoutPropagatesAcrossTabs(t *testing.T) {
	srv := newStubAuthServer(t)
	store := storage.NewMemoryStore()
	tabA := newTestManager(t, srv, store)
	tabB := newTestManager(t, srv, store)

	if _, err := tabA.Login(context.Background(), "a@b.c", "Sup3rSecret"); err != nil {
		t.Fatalf("login: %v", err)
	}
	if !tabB.IsAuthenticated() {
		t.Fatalf("tab B does not see the shared session")
	}
	// Step past the throttle window opened by the login broadcast.
	tabB.now = func() time.Time { return time.Now().Add(time.Second) }

	forced := false
	tabB.OnForcedLogout(func() { forced = true })
	tabA.Logout(context.Background())

	if tabB.IsAuthenticated() {
		t.Fatalf("tab B still authenticated after logout in tab A")
	}
	if !forced {
		t.Fatalf("forced-logout hook not invoked in tab B")
	}
}

func TestLoginElsewhereTriggersReload(t *testing.T) {
	srv := newStubAuthServer(t)
	store := storage.NewMemoryStore()
	tabA := newTestManager(t, srv, store)
	tabB := newTestManager(t, srv, store)

	reloaded := false
	tabB.OnStateReload(func() { reloaded = true })
	if _, err := tabA.Login(context.Background(), "a@b.c", "Sup3rSecret"); err != nil {
		t.Fatalf("login: %v", err)
	}
	if !reloaded {
		t.Fatalf("reload hook not invoked in tab B")
	}
}

func TestOwnMessagesAreIgnored(t *testing.T) {
	srv := newStubAuthServer(t)
	store := storage.NewMemoryStore()
	m := newTestManager(t, srv, store)

	forced := false
	m.OnForcedLogout(func() { forced = true })
	if _, err := m.Login(context.Background(), "a@b.c", "Sup3rSecret"); err != nil {
		t.Fatalf("login: %v", err)
	}
	m.Logout(context.Background())
	if forced {
		t.Fatalf("manager handled its own broadcast")
	}
}

func TestSyncThrottleDropsRapidEvents(t *testing.T) {
	srv := newStubAuthServer(t)
	store := storage.NewMemoryStore()
	tabA := newTestManager(t, srv, store)
	tabB := newTestManager(t, srv, store)

	base := time.Now()
	tabB.now = func() time.Time { return base }

	reloads := 0
	tabB.OnStateReload(func() { reloads++ })

	// Two logins in the same instant: the second broadcast lands inside
	// the 500ms window and is dropped.
	if _, err := tabA.Login(context.Background(), "a@b.c", "Sup3rSecret"); err != nil {
		t.Fatalf("login: %v", err)
	}
	if _, err := tabA.Login(context.Background(), "a@b.c", "Sup3rSecret"); err != nil {
		t.Fatalf("login: %v", err)
	}
	if reloads != 1 {
		t.Fatalf("throttle failed: %d reloads", reloads)
	}

	// Past the window the next event is processed again.
	tabB.now = func() time.Time { return base.Add(time.Second) }
	if _, err := tabA.Login(context.Background(), "a@b.c", "Sup3rSecret"); err != nil {
		t.Fatalf("login: %v", err)
	}
	if reloads != 2 {
		t.Fatalf("event after throttle window dropped: %d reloads", reloads)
	}
}

func TestTokenChangedElsewhereWakesLoop(t *testing.T) {
	srv := newStubAuthServer(t)
	store := storage.NewMemoryStore()
	tabA := newTestManager(t, srv, store)
	tabB := newTestManager(t, srv, store)

	if _, err := tabA.Login(context.Background(), "a@b.c", "Sup3rSecret"); err != nil {
		t.Fatalf("login: %v", err)
	}
	// Drain the login event's throttle window.
	tabB.now = func() time.Time { return time.Now().Add(time.Second) }

	if !tabA.Refresh(context.Background()) {
		t.Fatalf("refresh failed")
	}
	select {
	case <-tabB.wake:
	default:
		t.Fatalf("token_changed did not wake tab B")
	}
}

func TestClosedManagerIgnoresEvents(t *testing.T) {
	srv := newStubAuthServer(t)
	store := storage.NewMemoryStore()
	tabA := newTestManager(t, srv, store)
	tabB := NewManager(testClientConfig(srv.srv.URL), store, nil, nil)

	forced := false
	tabB.OnForcedLogout(func() { forced = true })
	tabB.Close()

	if _, err := tabA.Login(context.Background(), "a@b.c", "Sup3rSecret"); err != nil {
		t.Fatalf("login: %v", err)
	}
	tabA.Logout(context.Background())
	if forced {
		t.Fatalf("closed manager handled an event")
	}
}
