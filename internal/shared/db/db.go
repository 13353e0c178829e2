package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"
)

func ConnectPostgres(dsn string) (*sql.DB, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}

	db.SetMaxOpenConns(20)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	return db, nil
}

// Migrate cria as tabelas do ledger se ainda não existirem (idempotente)
func Migrate(ctx context.Context, db *sql.DB) error {
	for i, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate step %d: %w", i+1, err)
		}
	}
	return nil
}

var schema = []string{
	`CREATE TABLE IF NOT EXISTS users (
		user_id       BIGSERIAL PRIMARY KEY,
		username      TEXT NOT NULL,
		password_hash TEXT NOT NULL,
		is_admin      BOOLEAN NOT NULL DEFAULT FALSE,
		balance       NUMERIC(14,2) NOT NULL DEFAULT 0 CHECK (balance >= 0),
		created_at    TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS ux_users_username ON users (lower(username))`,

	`CREATE TABLE IF NOT EXISTS players (
		player_id BIGSERIAL PRIMARY KEY,
		name      TEXT NOT NULL,
		country   TEXT NOT NULL DEFAULT ''
	)`,

	`CREATE TABLE IF NOT EXISTS matches (
		match_id              BIGSERIAL PRIMARY KEY,
		player_one_id         BIGINT NOT NULL REFERENCES players(player_id),
		player_two_id         BIGINT NOT NULL REFERENCES players(player_id),
		match_time            TIMESTAMPTZ NOT NULL,
		match_status          TEXT NOT NULL DEFAULT 'pending' CHECK (match_status IN ('pending','finished')),
		winner_id             BIGINT REFERENCES players(player_id),
		first_scorer_id       BIGINT REFERENCES players(player_id),
		total_points          BIGINT,
		games_played          BIGINT,
		highest_lead_amount   BIGINT,
		first_tilt_player_id  BIGINT REFERENCES players(player_id),
		first_abuse_player_id BIGINT REFERENCES players(player_id),
		settled_at            TIMESTAMPTZ,
		CHECK (player_one_id <> player_two_id)
	)`,

	`CREATE TABLE IF NOT EXISTS odds (
		odd_id    BIGSERIAL PRIMARY KEY,
		match_id  BIGINT NOT NULL REFERENCES matches(match_id),
		player_id BIGINT REFERENCES players(player_id),
		odd_type  TEXT NOT NULL,
		odd_value NUMERIC(10,3) NOT NULL CHECK (odd_value > 0),
		odd_line  NUMERIC(10,2),
		is_active BOOLEAN NOT NULL DEFAULT TRUE
	)`,
	`CREATE INDEX IF NOT EXISTS ix_odds_match ON odds (match_id)`,

	`CREATE TABLE IF NOT EXISTS bets (
		bet_id       BIGSERIAL PRIMARY KEY,
		user_id      BIGINT NOT NULL REFERENCES users(user_id),
		odd_id       BIGINT NOT NULL REFERENCES odds(odd_id),
		stake_amount NUMERIC(14,2) NOT NULL CHECK (stake_amount > 0),
		bet_status   TEXT NOT NULL DEFAULT 'pending' CHECK (bet_status IN ('pending','won','lost','revoked')),
		payout       NUMERIC(14,2) NOT NULL DEFAULT 0,
		placed_at    TIMESTAMPTZ NOT NULL DEFAULT now(),
		resolved_at  TIMESTAMPTZ
	)`,
	`CREATE INDEX IF NOT EXISTS ix_bets_user ON bets (user_id, placed_at DESC)`,
	`CREATE INDEX IF NOT EXISTS ix_bets_odd_pending ON bets (odd_id) WHERE bet_status = 'pending'`,

	`CREATE TABLE IF NOT EXISTS balance_ledger (
		entry_id   BIGSERIAL PRIMARY KEY,
		user_id    BIGINT NOT NULL REFERENCES users(user_id),
		kind       TEXT NOT NULL CHECK (kind IN ('STAKE','PAYOUT','REFUND')),
		amount     NUMERIC(14,2) NOT NULL,
		bet_id     BIGINT REFERENCES bets(bet_id),
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS ix_balance_ledger_user ON balance_ledger (user_id, created_at)`,
}
