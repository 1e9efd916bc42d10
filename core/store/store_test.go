package store

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"parceldesk/config"
	"parceldesk/core/utils"
)

func mustTestDB(t *testing.T) *sql.DB {
	t.Helper()
	dir := t.TempDir()
	cfg := &config.AppConfig{DBPath: filepath.Join(dir, "tmp.db"), Pepper: "pepper"}
	logger := utils.NewLogger()
	db, err := NewDB(cfg, logger)
	if err != nil {
		t.Fatalf("db: %v", err)
	}
	if err := ApplyMigrations(context.Background(), db, logger); err != nil {
		t.Fatalf("migrations: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func seedUser(t *testing.T, db *sql.DB, email string) int64 {
	t.Helper()
	us := NewUsersStore(db)
	id, err := us.Create(context.Background(), &User{
		Email:        email,
		FullName:     "Test Agent",
		Role:         "agent",
		UserType:     "staff",
		TenantID:     "t-1",
		PasswordHash: "h",
		Salt:         "s",
		Active:       true,
	})
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	return id
}

func TestUsersRoundTrip(t *testing.T) {
	db := mustTestDB(t)
	us := NewUsersStore(db)
	id := seedUser(t, db, "agent@depot.example")

	u, err := us.FindByEmail(context.Background(), "agent@depot.example")
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if u == nil || u.ID != id || u.Role != "agent" || !u.Active {
		t.Fatalf("user: %+v", u)
	}

	u.Role = "manager"
	u.TenantID = "t-2"
	if err := us.Update(context.Background(), u); err != nil {
		t.Fatalf("update: %v", err)
	}
	got, err := us.Get(context.Background(), id)
	if err != nil || got == nil {
		t.Fatalf("get: %v", err)
	}
	if got.Role != "manager" || got.TenantID != "t-2" {
		t.Fatalf("update not persisted: %+v", got)
	}

	if err := us.SetActive(context.Background(), id, false); err != nil {
		t.Fatalf("deactivate: %v", err)
	}
	got, _ = us.Get(context.Background(), id)
	if got.Active {
		t.Fatalf("user still active")
	}
}

func TestFindByEmailMissingUser(t *testing.T) {
	db := mustTestDB(t)
	us := NewUsersStore(db)
	u, err := us.FindByEmail(context.Background(), "nobody@depot.example")
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if u != nil {
		t.Fatalf("phantom user: %+v", u)
	}
}

func TestUsersListFiltersByTenant(t *testing.T) {
	db := mustTestDB(t)
	us := NewUsersStore(db)
	seedUser(t, db, "a@depot.example")
	id, err := us.Create(context.Background(), &User{
		Email: "b@depot.example", Role: "agent", UserType: "staff", TenantID: "t-9",
		PasswordHash: "h", Salt: "s", Active: true,
	})
	if err != nil || id == 0 {
		t.Fatalf("create: %v", err)
	}
	list, err := us.List(context.Background(), "t-9")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 1 || list[0].Email != "b@depot.example" {
		t.Fatalf("tenant filter: %+v", list)
	}
}

func TestRefreshTokenRotation(t *testing.T) {
	db := mustTestDB(t)
	rts := NewRefreshTokensStore(db)
	userID := seedUser(t, db, "agent@depot.example")
	ctx := context.Background()

	first, err := rts.Create(ctx, userID, "hash-1", time.Now().Add(time.Hour))
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	next, err := rts.Rotate(ctx, "hash-1", "hash-2", time.Now().Add(time.Hour))
	if err != nil {
		t.Fatalf("rotate: %v", err)
	}
	if next == nil || next.TokenHash != "hash-2" || next.UserID != userID {
		t.Fatalf("rotated token: %+v", next)
	}

	old, err := rts.FindByHash(ctx, "hash-1")
	if err != nil {
		t.Fatalf("find old: %v", err)
	}
	if old.RevokedAt == nil || old.ReplacedBy != next.ID {
		t.Fatalf("old token not revoked: %+v", old)
	}
	_ = first

	// A revoked token cannot be rotated again.
	reused, err := rts.Rotate(ctx, "hash-1", "hash-3", time.Now().Add(time.Hour))
	if err != nil {
		t.Fatalf("rotate revoked: %v", err)
	}
	if reused != nil {
		t.Fatalf("revoked token rotated: %+v", reused)
	}
}

func TestRotateExpiredTokenFails(t *testing.T) {
	db := mustTestDB(t)
	rts := NewRefreshTokensStore(db)
	userID := seedUser(t, db, "agent@depot.example")
	ctx := context.Background()

	if _, err := rts.Create(ctx, userID, "hash-old", time.Now().Add(-time.Minute)); err != nil {
		t.Fatalf("create: %v", err)
	}
	next, err := rts.Rotate(ctx, "hash-old", "hash-new", time.Now().Add(time.Hour))
	if err != nil {
		t.Fatalf("rotate: %v", err)
	}
	if next != nil {
		t.Fatalf("expired token rotated: %+v", next)
	}
}

func TestRevokeAllForUser(t *testing.T) {
	db := mustTestDB(t)
	rts := NewRefreshTokensStore(db)
	userID := seedUser(t, db, "agent@depot.example")
	ctx := context.Background()

	for _, h := range []string{"h1", "h2", "h3"} {
		if _, err := rts.Create(ctx, userID, h, time.Now().Add(time.Hour)); err != nil {
			t.Fatalf("create %s: %v", h, err)
		}
	}
	if err := rts.RevokeAllForUser(ctx, userID); err != nil {
		t.Fatalf("revoke all: %v", err)
	}
	for _, h := range []string{"h1", "h2", "h3"} {
		rt, err := rts.FindByHash(ctx, h)
		if err != nil || rt == nil {
			t.Fatalf("find %s: %v", h, err)
		}
		if rt.RevokedAt == nil {
			t.Fatalf("token %s survived revoke-all", h)
		}
	}
}

func TestPurgeExpired(t *testing.T) {
	db := mustTestDB(t)
	rts := NewRefreshTokensStore(db)
	userID := seedUser(t, db, "agent@depot.example")
	ctx := context.Background()

	if _, err := rts.Create(ctx, userID, "stale", time.Now().Add(-2*time.Hour)); err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := rts.Create(ctx, userID, "live", time.Now().Add(time.Hour)); err != nil {
		t.Fatalf("create: %v", err)
	}
	n, err := rts.PurgeExpired(ctx, time.Now())
	if err != nil {
		t.Fatalf("purge: %v", err)
	}
	if n != 1 {
		t.Fatalf("purged %d rows", n)
	}
	if rt, _ := rts.FindByHash(ctx, "live"); rt == nil {
		t.Fatalf("live token purged")
	}
}

func TestRolesEnsureBuiltInKeepsEdits(t *testing.T) {
	db := mustTestDB(t)
	rs := NewRolesStore(db)
	ctx := context.Background()

	builtin := []Role{{Name: "agent", Permissions: []string{"parcels:read"}}}
	if err := rs.EnsureBuiltIn(ctx, builtin); err != nil {
		t.Fatalf("ensure: %v", err)
	}
	// Operator widens the role.
	if err := rs.Save(ctx, &Role{Name: "agent", Permissions: []string{"parcels:read", "parcels:update"}, BuiltIn: true}); err != nil {
		t.Fatalf("save: %v", err)
	}
	// A second bootstrap must not reset the edit.
	if err := rs.EnsureBuiltIn(ctx, builtin); err != nil {
		t.Fatalf("re-ensure: %v", err)
	}
	got, err := rs.Get(ctx, "agent")
	if err != nil || got == nil {
		t.Fatalf("get: %v", err)
	}
	if len(got.Permissions) != 2 {
		t.Fatalf("bootstrap clobbered operator edit: %+v", got.Permissions)
	}
}

func TestAuditRecordAndList(t *testing.T) {
	db := mustTestDB(t)
	as := NewAuditStore(db)
	ctx := context.Background()

	for _, action := range []string{"auth.login", "auth.refresh", "auth.logout"} {
		if err := as.Record(ctx, &AuditEntry{Actor: "agent@depot.example", TenantID: "t-1", Action: action, IP: "10.0.0.1"}); err != nil {
			t.Fatalf("record %s: %v", action, err)
		}
	}
	entries, err := as.List(ctx, "t-1", 10)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(entries) != 3 {
		t.Fatalf("entries: %d", len(entries))
	}
	if entries, _ = as.List(ctx, "t-other", 10); len(entries) != 0 {
		t.Fatalf("tenant leak: %+v", entries)
	}
}
