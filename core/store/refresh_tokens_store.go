package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/gofrs/uuid/v5"
)

type RefreshTokensStore interface {
	Create(ctx context.Context, userID int64, tokenHash string, expiresAt time.Time) (*RefreshToken, error)
	FindByHash(ctx context.Context, tokenHash string) (*RefreshToken, error)
	// Rotate revokes the old row and issues a replacement in one
	// transaction; a revoked or expired old token yields no new one.
	Rotate(ctx context.Context, tokenHash, newHash string, expiresAt time.Time) (*RefreshToken, error)
	Revoke(ctx context.Context, tokenHash string) error
	RevokeAllForUser(ctx context.Context, userID int64) error
	PurgeExpired(ctx context.Context, before time.Time) (int64, error)
}

type refreshTokensStore struct {
	db *sql.DB
}

func NewRefreshTokensStore(db *sql.DB) RefreshTokensStore {
	return &refreshTokensStore{db: db}
}

const refreshColumns = `id, user_id, token_hash, issued_at, expires_at, revoked_at, replaced_by`

func (s *refreshTokensStore) Create(ctx context.Context, userID int64, tokenHash string, expiresAt time.Time) (*RefreshToken, error) {
	id, err := uuid.NewV4()
	if err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	rt := &RefreshToken{
		ID:        id.String(),
		UserID:    userID,
		TokenHash: tokenHash,
		IssuedAt:  now,
		ExpiresAt: expiresAt.UTC(),
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO refresh_tokens(id, user_id, token_hash, issued_at, expires_at, revoked_at, replaced_by)
		VALUES(?,?,?,?,?,NULL,'')`,
		rt.ID, rt.UserID, rt.TokenHash, rt.IssuedAt, rt.ExpiresAt)
	if err != nil {
		return nil, err
	}
	return rt, nil
}

func (s *refreshTokensStore) FindByHash(ctx context.Context, tokenHash string) (*RefreshToken, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+refreshColumns+` FROM refresh_tokens WHERE token_hash=?`, tokenHash)
	return scanRefreshToken(row)
}

func scanRefreshToken(row rowScanner) (*RefreshToken, error) {
	rt := RefreshToken{}
	var revoked sql.NullTime
	if err := row.Scan(&rt.ID, &rt.UserID, &rt.TokenHash, &rt.IssuedAt, &rt.ExpiresAt, &revoked, &rt.ReplacedBy); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	rt.RevokedAt = timePtr(revoked)
	return &rt, nil
}

func (s *refreshTokensStore) Rotate(ctx context.Context, tokenHash, newHash string, expiresAt time.Time) (*RefreshToken, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	row := tx.QueryRowContext(ctx, `SELECT `+refreshColumns+` FROM refresh_tokens WHERE token_hash=?`, tokenHash)
	old, err := scanRefreshToken(row)
	if err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	if old == nil || old.RevokedAt != nil || now.After(old.ExpiresAt) {
		return nil, nil
	}

	id, err := uuid.NewV4()
	if err != nil {
		return nil, err
	}
	next := &RefreshToken{
		ID:        id.String(),
		UserID:    old.UserID,
		TokenHash: newHash,
		IssuedAt:  now,
		ExpiresAt: expiresAt.UTC(),
	}
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO refresh_tokens(id, user_id, token_hash, issued_at, expires_at, revoked_at, replaced_by)
		VALUES(?,?,?,?,?,NULL,'')`,
		next.ID, next.UserID, next.TokenHash, next.IssuedAt, next.ExpiresAt); err != nil {
		return nil, err
	}
	if _, err := tx.ExecContext(ctx, `UPDATE refresh_tokens SET revoked_at=?, replaced_by=? WHERE id=?`,
		now, next.ID, old.ID); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return next, nil
}

func (s *refreshTokensStore) Revoke(ctx context.Context, tokenHash string) error {
	_, err := s.db.ExecContext(ctx, `UPDATE refresh_tokens SET revoked_at=? WHERE token_hash=? AND revoked_at IS NULL`,
		time.Now().UTC(), tokenHash)
	return err
}

func (s *refreshTokensStore) RevokeAllForUser(ctx context.Context, userID int64) error {
	_, err := s.db.ExecContext(ctx, `UPDATE refresh_tokens SET revoked_at=? WHERE user_id=? AND revoked_at IS NULL`,
		time.Now().UTC(), userID)
	return err
}

func (s *refreshTokensStore) PurgeExpired(ctx context.Context, before time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM refresh_tokens WHERE expires_at < ? OR revoked_at IS NOT NULL AND revoked_at < ?`,
		before.UTC(), before.UTC())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
