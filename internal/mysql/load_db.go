package mysql

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"log"
	"time"

	driver "github.com/go-sql-driver/mysql"
)

//go:embed *.sql
var schema embed.FS

// Tables in creation order; profiles references users.
var tables = []string{"users.sql", "profiles.sql", "sessions.sql"}

func LoadDB(dsn string) *sql.DB {
	cfg, err := driver.ParseDSN(dsn)
	if err != nil {
		log.Fatal("Invalid MYSQL_DSN:", err)
	}
	cfg.ParseTime = true
	cfg.Loc = time.UTC

	db, err := sql.Open("mysql", cfg.FormatDSN())
	if err != nil {
		log.Fatal(err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		log.Fatal("Cannot connect to DB:", err)
	}
	if err := Migrate(ctx, db); err != nil {
		log.Fatal("Cannot create tables:", err)
	}
	return db
}

func Migrate(ctx context.Context, db *sql.DB) error {
	for _, file := range tables {
		query, err := schema.ReadFile(file)
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", file, err)
		}
		if _, err := db.ExecContext(ctx, string(query)); err != nil {
			return fmt.Errorf("failed to execute %s: %w", file, err)
		}
	}
	return nil
}
