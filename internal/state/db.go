// ./internal/state/db.go
package state

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq" // PostgreSQL driver
	"github.com/rs/zerolog/log"
)

// DB is a global database connection pool.
var DB *sql.DB

// DBConfig holds database connection parameters.
type DBConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string // "disable", "require", "verify-full", etc.
}

// InitDB initializes the database connection pool.
func InitDB(cfg DBConfig) error {
	psqlInfo := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.DBName, cfg.SSLMode)

	var err error
	DB, err = sql.Open("postgres", psqlInfo)
	if err != nil {
		return fmt.Errorf("failed to open database connection: %w", err)
	}

	DB.SetMaxOpenConns(25)
	DB.SetMaxIdleConns(25)
	DB.SetConnMaxLifetime(5 * time.Minute)

	err = DB.Ping()
	if err != nil {
		DB.Close()
		return fmt.Errorf("failed to ping database: %w", err)
	}

	log.Info().Msg("Successfully connected to the PostgreSQL database!")
	return nil
}

// CloseDB closes the database connection pool.
func CloseDB() {
	if DB != nil {
		log.Info().Msg("Closing database connection...")
		if err := DB.Close(); err != nil {
			log.Error().Err(err).Msg("Error closing database connection")
		}
	}
}

// EnsureSchema applies the necessary DDL to create tables if they don't exist.
func EnsureSchema() error {
	if DB == nil {
		return fmt.Errorf("database not initialized")
	}

	schemaSQL := `
		CREATE TABLE IF NOT EXISTS farm_events (
			journal_id SERIAL PRIMARY KEY,
			event_id UUID NOT NULL UNIQUE,
			event_type VARCHAR(50) NOT NULL,
			actor VARCHAR(255),
			pool_id BIGINT,
			amount NUMERIC(78, 0) NOT NULL DEFAULT 0,
			referrer VARCHAR(255),
			old_rate NUMERIC(78, 0),
			new_rate NUMERIC(78, 0),
			step BIGINT NOT NULL,
			event_timestamp TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
			payload JSONB
		);
		CREATE INDEX IF NOT EXISTS idx_farm_events_timestamp ON farm_events(event_timestamp DESC);
		CREATE INDEX IF NOT EXISTS idx_farm_events_actor ON farm_events(actor);
		CREATE INDEX IF NOT EXISTS idx_farm_events_pool_id ON farm_events(pool_id);
		CREATE INDEX IF NOT EXISTS idx_farm_events_type ON farm_events(event_type);

		CREATE TABLE IF NOT EXISTS pool_snapshots (
			snapshot_id SERIAL PRIMARY KEY,
			pool_id BIGINT NOT NULL,
			stake_denom VARCHAR(128) NOT NULL,
			alloc_weight NUMERIC(78, 0) NOT NULL,
			last_reward_step BIGINT NOT NULL,
			acc_reward_per_share NUMERIC(78, 0) NOT NULL,
			deposit_fee_bp INTEGER NOT NULL,
			staked_balance NUMERIC(78, 0) NOT NULL,
			step BIGINT NOT NULL,
			snapshot_timestamp TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP
		);
		CREATE INDEX IF NOT EXISTS idx_pool_snapshots_pool_step ON pool_snapshots(pool_id, step DESC);
		CREATE INDEX IF NOT EXISTS idx_pool_snapshots_timestamp ON pool_snapshots(snapshot_timestamp DESC);

		CREATE TABLE IF NOT EXISTS position_snapshots (
			snapshot_id SERIAL PRIMARY KEY,
			pool_id BIGINT NOT NULL,
			account VARCHAR(255) NOT NULL,
			amount NUMERIC(78, 0) NOT NULL,
			reward_debt NUMERIC(78, 0) NOT NULL,
			pending NUMERIC(78, 0) NOT NULL,
			step BIGINT NOT NULL,
			snapshot_timestamp TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP
		);
		CREATE INDEX IF NOT EXISTS idx_position_snapshots_account ON position_snapshots(account, step DESC);
		CREATE INDEX IF NOT EXISTS idx_position_snapshots_pool ON position_snapshots(pool_id, step DESC);

		-- Emission state table for persistent rate tracking across restarts
		CREATE TABLE IF NOT EXISTS emission_state (
			id INTEGER PRIMARY KEY DEFAULT 1,
			rate_per_step NUMERIC(78, 0) NOT NULL,
			last_decay_index BIGINT NOT NULL DEFAULT 0,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
			CONSTRAINT single_row_check CHECK (id = 1)
		);
	`
	_, err := DB.Exec(schemaSQL)
	if err != nil {
		return fmt.Errorf("failed to execute schema DDL: %w", err)
	}
	log.Info().Msg("Database schema ensured.")
	return nil
}

// TestDBConnection tests if the database connection is healthy
func TestDBConnection() error {
	if DB == nil {
		return fmt.Errorf("database connection is nil")
	}

	// Use a short timeout context for health checks
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	err := DB.PingContext(ctx)
	if err != nil {
		return fmt.Errorf("database ping failed: %w", err)
	}

	return nil
}
