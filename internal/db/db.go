package db

import (
	"context"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	pgxdecimal "github.com/jackc/pgx-shopspring-decimal"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"
)

// Connect opens a pool and waits for Postgres to accept connections,
// retrying with exponential backoff for up to maxWait.
func Connect(ctx context.Context, dsn string, maxWait time.Duration) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse dsn: %w", err)
	}
	cfg.AfterConnect = func(_ context.Context, conn *pgx.Conn) error {
		pgxdecimal.Register(conn.TypeMap())
		return nil
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}

	b := backoff.NewExponentialBackOff()
	b.MaxElapsedTime = maxWait
	ping := func() error { return pool.Ping(ctx) }
	notify := func(err error, next time.Duration) {
		log.Warn().Err(err).Dur("retry_in", next).Msg("postgres not ready")
	}
	if err := backoff.RetryNotify(ping, backoff.WithContext(b, ctx), notify); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	log.Info().Str("host", cfg.ConnConfig.Host).Msg("connected to postgres")
	return pool, nil
}

// EnsureSchema creates the tables and indexes the store relies on.
// Statements are idempotent so it runs on every start.
func EnsureSchema(ctx context.Context, pool *pgxpool.Pool) error {
	for _, stmt := range schema {
		if _, err := pool.Exec(ctx, stmt.sql); err != nil {
			return fmt.Errorf("ensure %s: %w", stmt.name, err)
		}
	}
	log.Info().Int("statements", len(schema)).Msg("schema ensured")
	return nil
}

var schema = []struct {
	name string
	sql  string
}{
	{"users", `
		CREATE TABLE IF NOT EXISTS users (
			id         UUID PRIMARY KEY,
			first_name TEXT NOT NULL DEFAULT '',
			last_name  TEXT NOT NULL DEFAULT '',
			email      TEXT NOT NULL UNIQUE,
			password   TEXT NOT NULL,
			role       TEXT NOT NULL DEFAULT 'guest' CHECK (role IN ('guest','host','admin')),
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`},
	{"listings", `
		CREATE TABLE IF NOT EXISTS listings (
			id                  UUID PRIMARY KEY,
			host_id             UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			title               TEXT NOT NULL,
			description         TEXT NOT NULL,
			location            TEXT NOT NULL,
			price_per_night     NUMERIC(10,2) NOT NULL CHECK (price_per_night > 0),
			number_of_bedrooms  INTEGER NOT NULL DEFAULT 1 CHECK (number_of_bedrooms >= 0),
			number_of_bathrooms INTEGER NOT NULL DEFAULT 1 CHECK (number_of_bathrooms >= 0),
			max_guests          INTEGER NOT NULL DEFAULT 1 CHECK (max_guests >= 1),
			available           BOOLEAN NOT NULL DEFAULT TRUE,
			version             BIGINT NOT NULL DEFAULT 1,
			created_at          TIMESTAMPTZ NOT NULL DEFAULT now(),
			updated_at          TIMESTAMPTZ NOT NULL DEFAULT now()
		)`},
	{"bookings", `
		CREATE TABLE IF NOT EXISTS bookings (
			id               UUID PRIMARY KEY,
			listing_id       UUID NOT NULL REFERENCES listings(id) ON DELETE CASCADE,
			guest_id         UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			check_in_date    DATE NOT NULL,
			check_out_date   DATE NOT NULL,
			number_of_guests INTEGER NOT NULL CHECK (number_of_guests > 0),
			total_price      NUMERIC(10,2) NOT NULL CHECK (total_price > 0),
			status           TEXT NOT NULL DEFAULT 'pending'
			                 CHECK (status IN ('pending','confirmed','cancelled','completed')),
			version          BIGINT NOT NULL DEFAULT 1,
			created_at       TIMESTAMPTZ NOT NULL DEFAULT now(),
			updated_at       TIMESTAMPTZ NOT NULL DEFAULT now(),
			CHECK (check_out_date > check_in_date)
		)`},
	{"reviews", `
		CREATE TABLE IF NOT EXISTS reviews (
			id         UUID PRIMARY KEY,
			listing_id UUID NOT NULL REFERENCES listings(id) ON DELETE CASCADE,
			guest_id   UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			rating     INTEGER NOT NULL CHECK (rating BETWEEN 1 AND 5),
			comment    TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			UNIQUE (listing_id, guest_id)
		)`},
	{"payments", `
		CREATE TABLE IF NOT EXISTS payments (
			id             UUID PRIMARY KEY,
			booking_id     UUID NOT NULL REFERENCES bookings(id) ON DELETE CASCADE,
			transaction_id TEXT NOT NULL UNIQUE,
			amount         NUMERIC(10,2) NOT NULL CHECK (amount > 0),
			currency       TEXT NOT NULL,
			status         TEXT NOT NULL DEFAULT 'Pending'
			               CHECK (status IN ('Pending','Completed','Failed')),
			checkout_url   TEXT NOT NULL DEFAULT '',
			version        BIGINT NOT NULL DEFAULT 1,
			created_at     TIMESTAMPTZ NOT NULL DEFAULT now(),
			updated_at     TIMESTAMPTZ NOT NULL DEFAULT now()
		)`},
	{"bookings_guest_idx", `CREATE INDEX IF NOT EXISTS bookings_guest_idx ON bookings (guest_id)`},
	{"bookings_listing_idx", `CREATE INDEX IF NOT EXISTS bookings_listing_idx ON bookings (listing_id)`},
	{"payments_booking_idx", `CREATE INDEX IF NOT EXISTS payments_booking_idx ON payments (booking_id)`},
	{"listings_created_idx", `CREATE INDEX IF NOT EXISTS listings_created_idx ON listings (created_at DESC)`},
}
