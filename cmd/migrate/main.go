package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/blackmichael/geofeed/internal/store"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var (
		driver   string
		database string
		command  string
	)

	flag.StringVar(&driver, "driver", envOrDefault("DATABASE_DRIVER", "postgres"), "Database driver (postgres or sqlite)")
	flag.StringVar(&database, "database", envOrDefault("DATABASE_URL", ""), "Database connection string or sqlite file path")
	flag.StringVar(&command, "cmd", "up", "Migration command: up, down or status")
	flag.Parse()

	if database == "" {
		return fmt.Errorf("--database is required (or set DATABASE_URL)")
	}

	dialect, err := store.ParseDialect(driver)
	if err != nil {
		return err
	}

	db, err := store.Open(dialect, database)
	if err != nil {
		return err
	}
	defer db.Close()

	switch command {
	case "up":
		if err := store.Migrate(db, dialect); err != nil {
			return err
		}
		fmt.Println("Migrations applied")
	case "down":
		if err := store.Rollback(db, dialect); err != nil {
			return err
		}
		fmt.Println("Rolled back one migration")
	case "status":
		return store.Status(db, dialect)
	default:
		return fmt.Errorf("unknown command %q (want up, down or status)", command)
	}

	return nil
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
