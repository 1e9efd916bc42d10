package auth

import "parceldesk/core/store"

type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// TokenPair is what the login and refresh endpoints hand back. The
// refresh token is the raw opaque value; only its hash is stored.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
	ExpiresIn    int64
}

type LoginResult struct {
	User   *store.User
	Tokens TokenPair
}
