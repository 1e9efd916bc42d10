package auth

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"parceldesk/config"
	"parceldesk/core/rbac"
	"parceldesk/core/store"
	"parceldesk/core/token"
	"parceldesk/core/utils"
)

var (
	// ErrInvalidCredentials covers unknown email, wrong password and
	// disabled accounts alike, so responses do not leak which one it was.
	ErrInvalidCredentials  = errors.New("invalid credentials")
	ErrInvalidRefreshToken = errors.New("invalid refresh token")
)

const refreshTokenBytes = 32

type Service struct {
	cfg     *config.AppConfig
	users   store.UsersStore
	refresh store.RefreshTokensStore
	audits  store.AuditStore
	policy  *rbac.Policy
	logger  *utils.Logger
}

func NewService(cfg *config.AppConfig, users store.UsersStore, refresh store.RefreshTokensStore, audits store.AuditStore, policy *rbac.Policy, logger *utils.Logger) *Service {
	return &Service{cfg: cfg, users: users, refresh: refresh, audits: audits, policy: policy, logger: logger}
}

func (s *Service) Login(ctx context.Context, cred Credentials, ip string) (*LoginResult, error) {
	email := utils.NormalizeEmail(cred.Email)
	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if user == nil || !user.Active {
		return nil, ErrInvalidCredentials
	}
	ok, err := VerifyPassword(cred.Password, s.cfg.Pepper, &PasswordHash{Hash: user.PasswordHash, Salt: user.Salt})
	if err != nil || !ok {
		s.audit(ctx, email, user.TenantID, "auth.login_failed", ip)
		return nil, ErrInvalidCredentials
	}

	pair, err := s.issueTokens(ctx, user)
	if err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	if err := s.users.TouchLogin(ctx, user.ID, now); err != nil && s.logger != nil {
		s.logger.Errorf("touch login: %v", err)
	}
	s.audit(ctx, email, user.TenantID, "auth.login", ip)
	return &LoginResult{User: user, Tokens: *pair}, nil
}

// Refresh rotates the opaque token and mints a new access token. The
// rotation is transactional in the store, so a concurrently presented
// token loses the race and is treated as invalid.
func (s *Service) Refresh(ctx context.Context, rawRefresh, ip string) (*LoginResult, error) {
	if rawRefresh == "" {
		return nil, ErrInvalidRefreshToken
	}
	nextRaw, err := utils.RandString(refreshTokenBytes)
	if err != nil {
		return nil, err
	}
	rotated, err := s.refresh.Rotate(ctx, hashToken(rawRefresh), hashToken(nextRaw), time.Now().Add(s.cfg.RefreshTokenTTL))
	if err != nil {
		return nil, err
	}
	if rotated == nil {
		return nil, ErrInvalidRefreshToken
	}
	user, err := s.users.Get(ctx, rotated.UserID)
	if err != nil {
		return nil, err
	}
	if user == nil || !user.Active {
		return nil, ErrInvalidRefreshToken
	}

	access, expiresIn, err := s.signAccessToken(user)
	if err != nil {
		return nil, err
	}
	s.audit(ctx, user.Email, user.TenantID, "auth.refresh", ip)
	return &LoginResult{User: user, Tokens: TokenPair{
		AccessToken:  access,
		RefreshToken: nextRaw,
		ExpiresIn:    expiresIn,
	}}, nil
}

// Logout revokes the presented refresh token. Unknown tokens are not
// an error; logout must always succeed from the caller's view.
func (s *Service) Logout(ctx context.Context, rawRefresh, ip string) {
	if rawRefresh == "" {
		return
	}
	if err := s.refresh.Revoke(ctx, hashToken(rawRefresh)); err != nil && s.logger != nil {
		s.logger.Errorf("revoke refresh token: %v", err)
	}
	s.audit(ctx, "", "", "auth.logout", ip)
}

func (s *Service) RevokeAllSessions(ctx context.Context, userID int64) error {
	return s.refresh.RevokeAllForUser(ctx, userID)
}

func (s *Service) issueTokens(ctx context.Context, user *store.User) (*TokenPair, error) {
	access, expiresIn, err := s.signAccessToken(user)
	if err != nil {
		return nil, err
	}
	raw, err := utils.RandString(refreshTokenBytes)
	if err != nil {
		return nil, err
	}
	if _, err := s.refresh.Create(ctx, user.ID, hashToken(raw), time.Now().Add(s.cfg.RefreshTokenTTL)); err != nil {
		return nil, err
	}
	return &TokenPair{AccessToken: access, RefreshToken: raw, ExpiresIn: expiresIn}, nil
}

func (s *Service) signAccessToken(user *store.User) (string, int64, error) {
	now := time.Now()
	exp := now.Add(s.cfg.AccessTokenTTL)
	claims := &token.Claims{
		Email:       user.Email,
		Role:        user.Role,
		UserType:    user.UserType,
		TenantID:    user.TenantID,
		Permissions: s.permissionsForRole(user.Role),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(user.ID, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}
	signed, err := token.Sign(claims, s.cfg.JWTSecret)
	if err != nil {
		return "", 0, err
	}
	return signed, int64(s.cfg.AccessTokenTTL / time.Second), nil
}

func (s *Service) permissionsForRole(role string) []string {
	if s.policy == nil {
		return nil
	}
	return s.policy.PermissionsForRole(role)
}

func (s *Service) audit(ctx context.Context, actor, tenantID, action, ip string) {
	if s.audits == nil {
		return
	}
	err := s.audits.Record(ctx, &store.AuditEntry{Actor: actor, TenantID: tenantID, Action: action, IP: ip})
	if err != nil && s.logger != nil {
		s.logger.Errorf("audit %s: %v", action, err)
	}
}

func hashToken(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}
