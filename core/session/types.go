package session

import (
	"time"

	"parceldesk/core/token"
)

// User is the read-only view pages get of the authenticated account.
type User struct {
	ID       string `json:"id"`
	Email    string `json:"email"`
	Role     string `json:"role"`
	UserType string `json:"user_type"`
	TenantID string `json:"tenant_id"`
}

// Session is either fully populated or absent; the manager never
// persists a partial one.
type Session struct {
	AccessToken  string
	RefreshToken string
	Claims       *token.Claims
	User         User
	ExpiresAt    time.Time
}

// Navigator is the redirect primitive the host environment provides.
type Navigator interface {
	Redirect(path string)
}

// NavigatorFunc adapts a plain function to Navigator.
type NavigatorFunc func(path string)

func (f NavigatorFunc) Redirect(path string) { f(path) }

// Sync messages broadcast between tabs through the shared store.
const (
	syncLogout       = "logout"
	syncLogin        = "login"
	syncTokenChanged = "token_changed"
)

type syncMessage struct {
	Kind   string `json:"kind"`
	Origin string `json:"origin"`
	At     int64  `json:"at"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResponse struct {
	User         User   `json:"user"`
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int64  `json:"expires_in"`
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type refreshResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

type logoutRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type errorResponse struct {
	Error string `json:"error"`
}
