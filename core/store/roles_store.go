package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"
)

type RolesStore interface {
	EnsureBuiltIn(ctx context.Context, roles []Role) error
	List(ctx context.Context) ([]Role, error)
	Get(ctx context.Context, name string) (*Role, error)
	Save(ctx context.Context, role *Role) error
	Delete(ctx context.Context, name string) error
}

type rolesStore struct {
	db *sql.DB
}

func NewRolesStore(db *sql.DB) RolesStore {
	return &rolesStore{db: db}
}

// EnsureBuiltIn inserts missing built-in roles; existing rows keep any
// operator edits to their permission lists.
func (s *rolesStore) EnsureBuiltIn(ctx context.Context, roles []Role) error {
	now := time.Now().UTC()
	for _, r := range roles {
		perms, _ := json.Marshal(r.Permissions)
		_, err := s.db.ExecContext(ctx, `
			INSERT INTO roles(name, description, permissions, built_in, created_at, updated_at)
			VALUES(?,?,?,?,?,?) ON CONFLICT(name) DO NOTHING`,
			r.Name, r.Description, string(perms), boolToInt(true), now, now)
		if err != nil {
			return err
		}
	}
	return nil
}

func (s *rolesStore) List(ctx context.Context) ([]Role, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT name, description, permissions, built_in, created_at, updated_at FROM roles ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []Role
	for rows.Next() {
		r, err := scanRole(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, *r)
	}
	return res, rows.Err()
}

func (s *rolesStore) Get(ctx context.Context, name string) (*Role, error) {
	row := s.db.QueryRowContext(ctx, `SELECT name, description, permissions, built_in, created_at, updated_at FROM roles WHERE name=?`, name)
	r, err := scanRole(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return r, err
}

func scanRole(row rowScanner) (*Role, error) {
	r := Role{}
	var permsRaw string
	var builtIn int
	if err := row.Scan(&r.Name, &r.Description, &permsRaw, &builtIn, &r.CreatedAt, &r.UpdatedAt); err != nil {
		return nil, err
	}
	r.BuiltIn = builtIn == 1
	if permsRaw != "" {
		_ = json.Unmarshal([]byte(permsRaw), &r.Permissions)
	}
	return &r, nil
}

func (s *rolesStore) Save(ctx context.Context, role *Role) error {
	now := time.Now().UTC()
	perms, _ := json.Marshal(role.Permissions)
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO roles(name, description, permissions, built_in, created_at, updated_at)
		VALUES(?,?,?,?,?,?)
		ON CONFLICT(name) DO UPDATE SET description=excluded.description, permissions=excluded.permissions, updated_at=excluded.updated_at`,
		role.Name, role.Description, string(perms), boolToInt(role.BuiltIn), now, now)
	return err
}

func (s *rolesStore) Delete(ctx context.Context, name string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM roles WHERE name=? AND built_in=0`, name)
	return err
}
