package postgres

import (
	"context"
	"fmt"
)

// RunMigrations executes the initial schema migration.
func (s *Store) RunMigrations(ctx context.Context) error {
	query := `
		CREATE TABLE IF NOT EXISTS users (
			id         TEXT PRIMARY KEY,
			email      TEXT NOT NULL UNIQUE,
			password   TEXT NOT NULL,
			role       TEXT NOT NULL DEFAULT 'user',
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
		CREATE INDEX IF NOT EXISTS idx_users_email ON users(email);

		CREATE TABLE IF NOT EXISTS platform (
			address             TEXT PRIMARY KEY,
			authority           TEXT NOT NULL,
			total_subscriptions BIGINT NOT NULL DEFAULT 0,
			total_merchants     BIGINT NOT NULL DEFAULT 0,
			created_at          TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);

		CREATE TABLE IF NOT EXISTS merchants (
			address        TEXT PRIMARY KEY,
			authority      TEXT NOT NULL,
			name           TEXT NOT NULL,
			total_products BIGINT NOT NULL DEFAULT 0,
			total_revenue  BIGINT NOT NULL DEFAULT 0,
			is_verified    BOOLEAN NOT NULL DEFAULT FALSE,
			created_at     TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
		CREATE INDEX IF NOT EXISTS idx_merchants_authority ON merchants(authority);

		CREATE TABLE IF NOT EXISTS products (
			address           TEXT PRIMARY KEY,
			merchant_address  TEXT NOT NULL,
			name              TEXT NOT NULL,
			description       TEXT NOT NULL DEFAULT '',
			price             BIGINT NOT NULL,
			duration_days     INTEGER NOT NULL,
			asset             TEXT NOT NULL,
			total_subscribers BIGINT NOT NULL DEFAULT 0,
			is_active         BOOLEAN NOT NULL DEFAULT TRUE,
			created_at        TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
		CREATE INDEX IF NOT EXISTS idx_products_merchant ON products(merchant_address);

		CREATE TABLE IF NOT EXISTS subscriptions (
			address          TEXT PRIMARY KEY,
			user_id          TEXT NOT NULL,
			product_address  TEXT NOT NULL,
			merchant_address TEXT NOT NULL,
			start_time       BIGINT NOT NULL,
			end_time         BIGINT NOT NULL,
			is_active        BOOLEAN NOT NULL DEFAULT TRUE,
			proof_hash       BYTEA NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_subscriptions_user ON subscriptions(user_id);

		CREATE TABLE IF NOT EXISTS accounts (
			address    TEXT PRIMARY KEY,
			owner      TEXT NOT NULL,
			asset      TEXT NOT NULL,
			balance    BIGINT NOT NULL DEFAULT 0,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
		CREATE INDEX IF NOT EXISTS idx_accounts_owner ON accounts(owner);
	`
	if _, err := s.pool.Exec(ctx, query); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	return nil
}
