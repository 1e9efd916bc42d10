package cli

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"os"

	"parceldesk/config"
	"parceldesk/core/auth"
	"parceldesk/core/bootstrap"
	"parceldesk/core/store"
	"parceldesk/core/utils"
)

func Run() {
	if len(os.Args) < 2 {
		fmt.Println("commands: create-user, set-password")
		return
	}

	switch os.Args[1] {
	case "create-user":
		runCreateUser(os.Args[2:])
	case "set-password":
		runSetPassword(os.Args[2:])
	default:
		fmt.Println("unknown command")
	}
}

func openDB() (*config.AppConfig, *sql.DB, *utils.Logger) {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	logger := utils.NewLogger().With("cli")
	db, err := store.NewDB(cfg, logger)
	if err != nil {
		logger.Fatalf("db: %v", err)
	}
	if err := store.ApplyMigrations(context.Background(), db, logger); err != nil {
		logger.Fatalf("migrations: %v", err)
	}
	return cfg, db, logger
}

func runCreateUser(args []string) {
	fs := flag.NewFlagSet("create-user", flag.ExitOnError)
	email := fs.String("email", "", "account email")
	password := fs.String("password", "", "initial password")
	role := fs.String("role", "agent", "role name")
	userType := fs.String("type", "staff", "user type (admin, staff, courier, merchant)")
	tenant := fs.String("tenant", "", "tenant id")
	_ = fs.Parse(args)

	cfg, db, logger := openDB()
	defer db.Close()

	addr := utils.NormalizeEmail(*email)
	if err := utils.ValidateEmail(addr); err != nil {
		logger.Fatalf("email: %v", err)
	}
	if err := utils.ValidatePassword(*password); err != nil {
		logger.Fatalf("password: %v", err)
	}
	if err := bootstrap.EnsureDefaultRoles(context.Background(), db); err != nil {
		logger.Fatalf("seed roles: %v", err)
	}
	ph := auth.MustHashPassword(*password, cfg.Pepper)
	_, err := store.NewUsersStore(db).Create(context.Background(), &store.User{
		Email:        addr,
		Role:         *role,
		UserType:     *userType,
		TenantID:     *tenant,
		PasswordHash: ph.Hash,
		Salt:         ph.Salt,
		Active:       true,
	})
	if err != nil {
		logger.Fatalf("create: %v", err)
	}
	fmt.Println("user created")
}

// runSetPassword rotates an account password and revokes every live
// session, so stolen refresh tokens die with the old credential.
func runSetPassword(args []string) {
	fs := flag.NewFlagSet("set-password", flag.ExitOnError)
	email := fs.String("email", "", "account email")
	password := fs.String("password", "", "new password")
	_ = fs.Parse(args)

	cfg, db, logger := openDB()
	defer db.Close()

	addr := utils.NormalizeEmail(*email)
	if err := utils.ValidateEmail(addr); err != nil {
		logger.Fatalf("email: %v", err)
	}
	if err := utils.ValidatePassword(*password); err != nil {
		logger.Fatalf("password: %v", err)
	}
	users := store.NewUsersStore(db)
	user, err := users.FindByEmail(context.Background(), addr)
	if err != nil {
		logger.Fatalf("lookup: %v", err)
	}
	if user == nil {
		logger.Fatalf("no account with email %s", addr)
	}
	ph := auth.MustHashPassword(*password, cfg.Pepper)
	if err := users.UpdatePassword(context.Background(), user.ID, ph.Hash, ph.Salt); err != nil {
		logger.Fatalf("update password: %v", err)
	}
	if err := store.NewRefreshTokensStore(db).RevokeAllForUser(context.Background(), user.ID); err != nil {
		logger.Fatalf("revoke sessions: %v", err)
	}
	fmt.Println("password updated")
}
