// Package session owns the client-side authentication lifecycle:
// logging in, persisting tokens, proactive refresh and cross-tab
// synchronization. Exactly one Manager runs per tab; several managers
// sharing one storage.Store behave like tabs sharing localStorage.
package session

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"parceldesk/config"
	"parceldesk/core/rbac"
	"parceldesk/core/storage"
	"parceldesk/core/token"
	"parceldesk/core/utils"
)

// Well-known UI routes the manager and the route guard redirect to.
const (
	PathLogin        = "/login"
	PathLoginExpired = "/login?reason=session-expired"
	PathUnauthorized = "/unauthorized"
	PathSelectTenant = "/select-tenant"
)

type Manager struct {
	cfg    config.ClientConfig
	store  storage.Store
	httpc  *http.Client
	logger *utils.Logger
	nav    Navigator
	id     string

	now          func() time.Time
	refreshGroup singleflight.Group
	wake         chan struct{}

	mu          sync.Mutex
	lastSync    time.Time
	closed      bool
	unsubscribe func()

	onSessionExpired func()
	onForcedLogout   func()
	onStateReload    func()
}

func NewManager(cfg config.ClientConfig, store storage.Store, nav Navigator, logger *utils.Logger) *Manager {
	id, _ := utils.RandString(9)
	m := &Manager{
		cfg:    cfg,
		store:  store,
		httpc:  &http.Client{Timeout: cfg.HTTPTimeout},
		logger: logger,
		nav:    nav,
		id:     id,
		now:    time.Now,
		wake:   make(chan struct{}, 1),
	}
	m.unsubscribe = store.Subscribe(m.handleStorageEvent)
	return m
}

// Close detaches the manager from the store. Any network call still in
// flight completes as a no-op instead of writing state back.
func (m *Manager) Close() {
	m.mu.Lock()
	m.closed = true
	unsub := m.unsubscribe
	m.unsubscribe = nil
	m.mu.Unlock()
	if unsub != nil {
		unsub()
	}
}

func (m *Manager) isClosed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}

// OnSessionExpired registers the hook invoked when the background
// check finds the session beyond saving.
func (m *Manager) OnSessionExpired(fn func()) { m.onSessionExpired = fn }

// OnForcedLogout fires when another tab logged out.
func (m *Manager) OnForcedLogout(fn func()) { m.onForcedLogout = fn }

// OnStateReload fires when another tab logged in and local views
// should re-read the store.
func (m *Manager) OnStateReload(fn func()) { m.onStateReload = fn }

// Login authenticates against the auth API and persists the session.
// On any failure nothing is persisted and the returned error is always
// an *AuthError.
func (m *Manager) Login(ctx context.Context, email, password string) (*Session, error) {
	var resp loginResponse
	if err := m.postJSON(ctx, "/api/auth/login", loginRequest{Email: email, Password: password}, &resp); err != nil {
		return nil, err
	}
	claims, err := token.Decode(resp.AccessToken)
	if err != nil {
		return nil, authErr(KindAuth, "malformed access token in login response", err)
	}
	sess := &Session{
		AccessToken:  resp.AccessToken,
		RefreshToken: resp.RefreshToken,
		Claims:       claims,
		User:         resp.User,
		ExpiresAt:    claims.ExpiresAt.Time,
	}
	if m.isClosed() {
		return sess, nil
	}
	m.persist(sess)
	m.broadcast(syncLogin)
	return sess, nil
}

// Logout revokes the refresh token best-effort and always clears local
// state. It never fails.
func (m *Manager) Logout(ctx context.Context) {
	if rt, ok := m.store.Get(storage.KeyRefreshToken); ok && rt != "" {
		if err := m.postJSON(ctx, "/api/auth/logout", logoutRequest{RefreshToken: rt}, nil); err != nil {
			m.logger.Debugf("session: server logout failed: %v", err)
		}
	}
	m.clearLocal()
	m.broadcast(syncLogout)
}

// IsTokenValid reports whether a decodable access token is stored and
// stays valid beyond the configured safety margin.
func (m *Manager) IsTokenValid() bool {
	raw, ok := m.store.Get(storage.KeyAccessToken)
	if !ok {
		return false
	}
	claims, err := token.Decode(raw)
	if err != nil {
		return false
	}
	return claims.ValidWithin(m.now(), m.cfg.ExpiryMargin)
}

func (m *Manager) IsAuthenticated() bool { return m.IsTokenValid() }

// Refresh rotates the token pair. Concurrent calls collapse into one
// request; every failure path clears the session and reports false.
func (m *Manager) Refresh(ctx context.Context) bool {
	v, _, _ := m.refreshGroup.Do("refresh", func() (any, error) {
		return m.doRefresh(ctx), nil
	})
	ok, _ := v.(bool)
	return ok
}

func (m *Manager) doRefresh(ctx context.Context) bool {
	rt, ok := m.store.Get(storage.KeyRefreshToken)
	if !ok || rt == "" {
		m.forceLogout()
		return false
	}
	var resp refreshResponse
	if err := m.postJSON(ctx, "/api/auth/refresh", refreshRequest{RefreshToken: rt}, &resp); err != nil {
		m.logger.Debugf("session: refresh failed: %v", err)
		m.forceLogout()
		return false
	}
	claims, err := token.Decode(resp.AccessToken)
	if err != nil {
		m.forceLogout()
		return false
	}
	if m.isClosed() {
		return false
	}
	m.store.Set(storage.KeyAccessToken, resp.AccessToken)
	m.store.Set(storage.KeyRefreshToken, resp.RefreshToken)
	if perms, err := json.Marshal(claims.Permissions); err == nil {
		m.store.Set(storage.KeyPermissions, string(perms))
	}
	m.broadcast(syncTokenChanged)
	return true
}

// CurrentUser returns the persisted user view, or nil when absent.
func (m *Manager) CurrentUser() *User {
	raw, ok := m.store.Get(storage.KeyUser)
	if !ok {
		return nil
	}
	var u User
	if err := json.Unmarshal([]byte(raw), &u); err != nil {
		return nil
	}
	return &u
}

func (m *Manager) CurrentTenant() string {
	if u := m.CurrentUser(); u != nil {
		return u.TenantID
	}
	return ""
}

// Permissions returns the persisted permission list.
func (m *Manager) Permissions() []string {
	raw, ok := m.store.Get(storage.KeyPermissions)
	if !ok {
		return nil
	}
	var perms []string
	if err := json.Unmarshal([]byte(raw), &perms); err != nil {
		return nil
	}
	return perms
}

// Subject builds the evaluator view from the stored token. It is nil
// when no decodable, unexpired token exists (fail closed).
func (m *Manager) Subject() *rbac.Subject {
	raw, ok := m.store.Get(storage.KeyAccessToken)
	if !ok {
		return nil
	}
	claims, err := token.Decode(raw)
	if err != nil || !claims.ValidWithin(m.now(), 0) {
		return nil
	}
	return &rbac.Subject{
		Role:        claims.Role,
		UserType:    claims.UserType,
		TenantID:    claims.TenantID,
		Permissions: claims.Permissions,
	}
}

func (m *Manager) HasPermission(key string) bool {
	return rbac.HasPermission(m.Subject(), key)
}

func (m *Manager) HasAnyPermission(keys []string) bool {
	return rbac.HasAnyPermission(m.Subject(), keys)
}

func (m *Manager) HasRole(name string) bool {
	return rbac.HasRole(m.Subject(), name)
}

func (m *Manager) HasUserType(userType string) bool {
	return rbac.HasUserType(m.Subject(), userType)
}

// FilterMenuList derives the navigation visible to the current session.
func (m *Manager) FilterMenuList(tree []rbac.Group) []rbac.Group {
	return rbac.FilterTree(m.Subject(), tree)
}

func (m *Manager) persist(sess *Session) {
	m.store.Set(storage.KeyAccessToken, sess.AccessToken)
	m.store.Set(storage.KeyRefreshToken, sess.RefreshToken)
	if user, err := json.Marshal(sess.User); err == nil {
		m.store.Set(storage.KeyUser, string(user))
	}
	if perms, err := json.Marshal(sess.Claims.Permissions); err == nil {
		m.store.Set(storage.KeyPermissions, string(perms))
	}
}

func (m *Manager) clearLocal() {
	m.store.Remove(storage.KeyAccessToken)
	m.store.Remove(storage.KeyRefreshToken)
	m.store.Remove(storage.KeyUser)
	m.store.Remove(storage.KeyPermissions)
}

// forceLogout clears the session and tells other tabs.
func (m *Manager) forceLogout() {
	m.clearLocal()
	m.broadcast(syncLogout)
}

func (m *Manager) postJSON(ctx context.Context, path string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return authErr(KindNetwork, "encode request", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.cfg.BaseURL+path, bytes.NewReader(payload))
	if err != nil {
		return authErr(KindNetwork, "build request", err)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := m.httpc.Do(req)
	if err != nil {
		return authErr(KindNetwork, "authentication service unreachable", err)
	}
	defer resp.Body.Close()
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if resp.StatusCode >= 500 {
		return authErr(KindNetwork, "authentication service error", nil)
	}
	if resp.StatusCode >= 400 {
		return authErr(KindAuth, serverMessage(raw), nil)
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return authErr(KindNetwork, "malformed server response", err)
	}
	return nil
}

func serverMessage(raw []byte) string {
	var er errorResponse
	if err := json.Unmarshal(raw, &er); err == nil && er.Error != "" {
		return er.Error
	}
	if msg := strings.TrimSpace(string(raw)); msg != "" && len(msg) < 200 {
		return msg
	}
	return "authentication failed"
}
