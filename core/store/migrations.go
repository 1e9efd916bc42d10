package store

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"strings"

	"parceldesk/core/utils"
	"github.com/pressly/goose/v3"
)

//go:embed migrations_pg/*.sql
var gooseMigrationsPgFS embed.FS

//go:embed schema_sqlite.sql
var sqliteSchema string

// ApplyMigrations brings the database up to the current schema. On
// postgres this runs the embedded goose migrations; the sqlite branch
// exists only for the test runtime and applies a flat schema file.
func ApplyMigrations(ctx context.Context, db *sql.DB, logger *utils.Logger) error {
	if db == nil {
		return fmt.Errorf("nil db")
	}
	isPG, err := isPostgresDB(ctx, db)
	if err != nil {
		return err
	}
	if !isPG {
		if !isTestRuntime() {
			return fmt.Errorf("non-postgres database outside test runtime")
		}
		for _, stmt := range splitStatements(sqliteSchema) {
			if _, err := db.ExecContext(ctx, stmt); err != nil {
				return fmt.Errorf("sqlite schema: %w", err)
			}
		}
		return nil
	}
	if err := goose.SetDialect("postgres"); err != nil {
		return err
	}
	goose.SetBaseFS(gooseMigrationsPgFS)
	if logger != nil {
		logger.Printf("applying goose migrations")
	}
	if err := goose.UpContext(ctx, db, "migrations_pg"); err != nil {
		return err
	}
	if logger != nil {
		logger.Printf("goose migrations applied")
	}
	return nil
}

func isPostgresDB(ctx context.Context, db *sql.DB) (bool, error) {
	var one int
	if err := db.QueryRowContext(ctx, "SELECT 1").Scan(&one); err != nil {
		return false, err
	}
	var version string
	if err := db.QueryRowContext(ctx, "SELECT version()").Scan(&version); err != nil {
		// sqlite has no version() function
		return false, nil
	}
	return true, nil
}

func splitStatements(schema string) []string {
	parts := strings.Split(schema, ";")
	res := make([]string, 0, len(parts))
	for _, p := range parts {
		if strings.TrimSpace(p) != "" {
			res = append(res, p)
		}
	}
	return res
}
