package store

import "time"

type User struct {
	ID           int64
	Email        string
	FullName     string
	Role         string
	UserType     string
	TenantID     string
	PasswordHash string
	Salt         string
	Active       bool
	LastLoginAt  *time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

type Role struct {
	Name        string
	Description string
	Permissions []string
	BuiltIn     bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// RefreshToken holds only the SHA-256 of the opaque token; the raw
// value is handed to the client once and never stored.
type RefreshToken struct {
	ID         string
	UserID     int64
	TokenHash  string
	IssuedAt   time.Time
	ExpiresAt  time.Time
	RevokedAt  *time.Time
	ReplacedBy string
}

type AuditEntry struct {
	ID        int64
	Actor     string
	TenantID  string
	Action    string
	Detail    string
	IP        string
	CreatedAt time.Time
}
