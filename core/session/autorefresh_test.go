package session

import (
	"context"
	"testing"
	"time"

	"parceldesk/core/storage"
)

func TestCheckNowRefreshesInsideThreshold(t *testing.T) {
	srv := newStubAuthServer(t)
	srv.tokenTTL = 4 * time.Minute // expires within the 10m threshold
	store := storage.NewMemoryStore()
	m := newTestManager(t, srv, store)
	if _, err := m.Login(context.Background(), "a@b.c", "Sup3rSecret"); err != nil {
		t.Fatalf("login: %v", err)
	}
	if m.IsTokenValid() {
		t.Fatalf("4m token must already fail the 5m validity margin")
	}

	srv.tokenTTL = time.Hour // the refresh hands out a fresh token
	m.CheckNow(context.Background())
	if srv.refreshCalls.Load() != 1 {
		t.Fatalf("expected one refresh, got %d", srv.refreshCalls.Load())
	}
	if !m.IsTokenValid() {
		t.Fatalf("token still invalid after proactive refresh")
	}
}

func TestCheckNowLeavesHealthyTokenAlone(t *testing.T) {
	srv := newStubAuthServer(t)
	store := storage.NewMemoryStore()
	m := newTestManager(t, srv, store)
	if _, err := m.Login(context.Background(), "a@b.c", "Sup3rSecret"); err != nil {
		t.Fatalf("login: %v", err)
	}
	m.CheckNow(context.Background())
	if srv.refreshCalls.Load() != 0 {
		t.Fatalf("healthy token refreshed")
	}
}

func TestCheckNowNoSessionIsNoop(t *testing.T) {
	srv := newStubAuthServer(t)
	store := storage.NewMemoryStore()
	m := newTestManager(t, srv, store)
	m.CheckNow(context.Background())
	if srv.refreshCalls.Load() != 0 {
		t.Fatalf("refresh attempted with nobody signed in")
	}
}

func TestFailedAutoRefreshRedirectsToLogin(t *testing.T) {
	srv := newStubAuthServer(t)
	srv.tokenTTL = 4 * time.Minute
	store := storage.NewMemoryStore()

	var redirects []string
	nav := NavigatorFunc(func(path string) { redirects = append(redirects, path) })
	m := NewManager(testClientConfig(srv.srv.URL), store, nav, nil)
	defer m.Close()

	if _, err := m.Login(context.Background(), "a@b.c", "Sup3rSecret"); err != nil {
		t.Fatalf("login: %v", err)
	}
	expired := false
	m.OnSessionExpired(func() { expired = true })

	srv.failRefresh = true
	m.CheckNow(context.Background())
	if !expired {
		t.Fatalf("expiry hook not invoked")
	}
	if len(redirects) != 1 || redirects[0] != PathLoginExpired {
		t.Fatalf("redirects: %v", redirects)
	}
	if m.IsAuthenticated() {
		t.Fatalf("session survived failed refresh")
	}
}

func TestRunHonoursWakeAndCancel(t *testing.T) {
	srv := newStubAuthServer(t)
	srv.tokenTTL = 8 * time.Minute // inside the refresh threshold
	store := storage.NewMemoryStore()
	m := newTestManager(t, srv, store)
	if _, err := m.Login(context.Background(), "a@b.c", "Sup3rSecret"); err != nil {
		t.Fatalf("login: %v", err)
	}
	srv.tokenTTL = time.Hour

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		m.Run(ctx)
		close(done)
	}()

	// The immediate startup check refreshes the soon-to-expire token.
	deadline := time.Now().Add(2 * time.Second)
	for srv.refreshCalls.Load() == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if srv.refreshCalls.Load() == 0 {
		t.Fatalf("startup check did not refresh")
	}

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("Run did not return after cancel")
	}
}
