package store

import (
	"database/sql"
	"embed"
	"fmt"

	"github.com/pressly/goose/v3"
)

//go:embed migrations/postgres/*.sql migrations/sqlite/*.sql
var migrations embed.FS

func setupGoose(dialect Dialect) (string, error) {
	goose.SetBaseFS(migrations)

	switch dialect {
	case Postgres:
		return "migrations/postgres", goose.SetDialect("postgres")
	case SQLite:
		return "migrations/sqlite", goose.SetDialect("sqlite3")
	default:
		return "", fmt.Errorf("unsupported dialect %q", dialect)
	}
}

// Migrate applies all pending schema migrations.
func Migrate(db *sql.DB, dialect Dialect) error {
	dir, err := setupGoose(dialect)
	if err != nil {
		return err
	}
	if err := goose.Up(db, dir); err != nil {
		return fmt.Errorf("migrate up: %w", err)
	}
	return nil
}

// Rollback reverts the most recent migration.
func Rollback(db *sql.DB, dialect Dialect) error {
	dir, err := setupGoose(dialect)
	if err != nil {
		return err
	}
	if err := goose.Down(db, dir); err != nil {
		return fmt.Errorf("migrate down: %w", err)
	}
	return nil
}

// Status prints the applied state of every migration.
func Status(db *sql.DB, dialect Dialect) error {
	dir, err := setupGoose(dialect)
	if err != nil {
		return err
	}
	if err := goose.Status(db, dir); err != nil {
		return fmt.Errorf("migrate status: %w", err)
	}
	return nil
}
