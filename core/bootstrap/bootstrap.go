package bootstrap

import (
	"context"
	"database/sql"

	"parceldesk/config"
	"parceldesk/core/auth"
	"parceldesk/core/rbac"
	"parceldesk/core/store"
	"parceldesk/core/utils"
)

const defaultAdminEmail = "admin@parceldesk.local"

// EnsureDefaultRoles seeds the built-in role catalogue. Operator edits
// to existing roles are preserved.
func EnsureDefaultRoles(ctx context.Context, db *sql.DB) error {
	def := rbac.DefaultRoles()
	roles := make([]store.Role, 0, len(def))
	for _, r := range def {
		perms := make([]string, 0, len(r.Permissions))
		for _, p := range r.Permissions {
			perms = append(perms, string(p))
		}
		roles = append(roles, store.Role{Name: r.Name, Permissions: perms, BuiltIn: true})
	}
	return store.NewRolesStore(db).EnsureBuiltIn(ctx, roles)
}

// EnsureDefaultAdmin creates the superadmin account on first start.
func EnsureDefaultAdmin(ctx context.Context, db *sql.DB, cfg *config.AppConfig, logger *utils.Logger) error {
	us := store.NewUsersStore(db)
	existing, err := us.FindByEmail(ctx, defaultAdminEmail)
	if err != nil {
		return err
	}
	if existing != nil {
		if existing.Role != "superadmin" {
			existing.Role = "superadmin"
			if err := us.Update(ctx, existing); err != nil && logger != nil {
				logger.Printf("default admin update failed: %v", err)
			}
		}
		return nil
	}
	ph := auth.MustHashPassword("admin", cfg.Pepper)
	_, err = us.Create(ctx, &store.User{
		Email:        defaultAdminEmail,
		FullName:     "Default Administrator",
		Role:         "superadmin",
		UserType:     rbac.UserTypeAdmin,
		PasswordHash: ph.Hash,
		Salt:         ph.Salt,
		Active:       true,
	})
	if err == nil && logger != nil {
		logger.Printf("default admin created; password must be changed")
	}
	return err
}
