package api

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"parceldesk/config"
)

func TestLoginRateLimiterPerKey(t *testing.T) {
	l := newLimiter(3, time.Hour)
	for i := 0; i < 3; i++ {
		if !l.allow("10.0.0.1") {
			t.Fatalf("attempt %d blocked inside burst", i)
		}
	}
	if l.allow("10.0.0.1") {
		t.Fatalf("burst not enforced")
	}
	// Other keys are unaffected.
	if !l.allow("10.0.0.2") {
		t.Fatalf("independent key blocked")
	}
}

func TestLoginRateLimiterRefills(t *testing.T) {
	l := newLimiter(1, 10*time.Millisecond)
	if !l.allow("k") {
		t.Fatalf("first attempt blocked")
	}
	if l.allow("k") {
		t.Fatalf("second attempt allowed")
	}
	time.Sleep(20 * time.Millisecond)
	if !l.allow("k") {
		t.Fatalf("bucket did not refill")
	}
}

func TestLoginEndpointRateLimited(t *testing.T) {
	s, srv, db, cfg := newTestServer(t)
	seedUser(t, db, cfg, "agent@depot.example", "Sup3rSecret", "agent")
	s.loginLimiter = newLimiter(2, time.Hour)

	for i := 0; i < 2; i++ {
		resp := postJSON(t, srv.URL+"/api/auth/login", map[string]string{"email": "agent@depot.example", "password": "wrong"})
		if resp.StatusCode != http.StatusUnauthorized {
			t.Fatalf("attempt %d status: %d", i, resp.StatusCode)
		}
		resp.Body.Close()
	}
	resp := postJSON(t, srv.URL+"/api/auth/login", map[string]string{"email": "agent@depot.example", "password": "Sup3rSecret"})
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusTooManyRequests {
		t.Fatalf("limiter did not kick in: %d", resp.StatusCode)
	}
}

func TestClientIPHonoursTrustedProxies(t *testing.T) {
	s := &Server{cfg: &config.AppConfig{Security: config.SecurityConfig{TrustedProxies: []string{"10.0.0.0/8"}}}}

	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.RemoteAddr = "10.1.2.3:4567"
	r.Header.Set("X-Forwarded-For", "203.0.113.7, 10.1.2.3")
	if ip := s.clientIP(r); ip != "203.0.113.7" {
		t.Fatalf("trusted proxy ip: %q", ip)
	}

	// An untrusted peer cannot spoof via headers.
	r.RemoteAddr = "192.0.2.9:4567"
	if ip := s.clientIP(r); ip != "192.0.2.9" {
		t.Fatalf("untrusted peer ip: %q", ip)
	}
}

func TestSecurityHeaders(t *testing.T) {
	_, srv, _, _ := newTestServer(t)
	resp, err := http.Get(srv.URL + "/healthz")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp.Body.Close()
	if resp.Header.Get("X-Content-Type-Options") != "nosniff" {
		t.Fatalf("missing nosniff header")
	}
}
