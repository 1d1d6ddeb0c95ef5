// Package db persists finished extractions and API users in PostgreSQL.
package db

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"
)

var (
	// ErrNoDatabase is returned when no database is configured.
	ErrNoDatabase = errors.New("database not available")
	// ErrNotFound is returned when a row does not exist for the caller's team.
	ErrNotFound = errors.New("not found")
)

// Pool is the global database connection pool
var Pool *pgxpool.Pool

// DatabaseURL returns DATABASE_URL, or a URL built from the DB_* variables.
func DatabaseURL() string {
	if url := os.Getenv("DATABASE_URL"); url != "" {
		return url
	}
	host := os.Getenv("DB_HOST")
	port := os.Getenv("DB_PORT")
	user := os.Getenv("DB_USER")
	password := os.Getenv("DB_PASSWORD")
	dbname := os.Getenv("DB_NAME")

	if host == "" || user == "" || dbname == "" {
		return ""
	}
	if port == "" {
		port = "5432"
	}
	return fmt.Sprintf("postgresql://%s:%s@%s:%s/%s?sslmode=disable", user, password, host, port, dbname)
}

// Init opens the pool and creates the schema. Without configuration it returns
// ErrNoDatabase and the service runs extraction only.
func Init() error {
	databaseURL := DatabaseURL()
	if databaseURL == "" {
		return ErrNoDatabase
	}

	config, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return fmt.Errorf("failed to parse database URL: %w", err)
	}

	config.MaxConns = 10
	config.MinConns = 2
	config.MaxConnLifetime = 1 * time.Hour
	config.MaxConnIdleTime = 30 * time.Minute
	config.HealthCheckPeriod = 1 * time.Minute

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return fmt.Errorf("failed to ping database: %w", err)
	}

	if _, err := pool.Exec(ctx, schema); err != nil {
		pool.Close()
		return fmt.Errorf("failed to create schema: %w", err)
	}

	Pool = pool
	log.Info().Str("component", "db").Msg("Database connection pool initialized")
	return nil
}

// Close closes the database connection pool
func Close() {
	if Pool != nil {
		Pool.Close()
		Pool = nil
		log.Info().Str("component", "db").Msg("Database connection pool closed")
	}
}

const schema = `
CREATE TABLE IF NOT EXISTS users (
	id            uuid PRIMARY KEY DEFAULT gen_random_uuid(),
	email         text NOT NULL UNIQUE,
	name          text NOT NULL,
	team          text NOT NULL DEFAULT '',
	role          text NOT NULL DEFAULT 'member',
	password_hash text NOT NULL,
	last_login    timestamptz,
	created_at    timestamptz NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS invoices (
	id           uuid PRIMARY KEY,
	team         text NOT NULL DEFAULT '',
	created_by   uuid,
	employee     text NOT NULL DEFAULT '',
	file_name    text NOT NULL,
	object_key   text NOT NULL DEFAULT '',
	source       text NOT NULL,
	invoice_date text NOT NULL DEFAULT '',
	number       text NOT NULL DEFAULT '',
	seller       text NOT NULL DEFAULT '',
	tax_code     text NOT NULL DEFAULT '',
	category     text NOT NULL DEFAULT '',
	pre_tax      bigint,
	tax_total    bigint,
	total        bigint,
	record       jsonb NOT NULL,
	items        jsonb NOT NULL DEFAULT '[]',
	issues       jsonb NOT NULL DEFAULT '[]',
	valid        boolean NOT NULL DEFAULT false,
	needs_review boolean NOT NULL DEFAULT true,
	created_at   timestamptz NOT NULL DEFAULT now(),
	updated_at   timestamptz
);

CREATE INDEX IF NOT EXISTS invoices_team_created_idx ON invoices (team, created_at DESC);
`
