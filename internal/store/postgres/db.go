// Package postgres implements the trade store against PostgreSQL using
// pgx, for deployments with direct database access.
package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"trade-journal/internal/logging"
)

// DB wraps the PostgreSQL connection pool
type DB struct {
	Pool   *pgxpool.Pool
	logger zerolog.Logger
}

// Config holds database configuration
type Config struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string
}

// NewDB creates a new database connection
func NewDB(cfg Config) (*DB, error) {
	dsn := fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.Database, cfg.SSLMode,
	)

	poolConfig, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("unable to parse database config: %w", err)
	}

	// Configure connection pool
	poolConfig.MaxConns = 25
	poolConfig.MinConns = 5
	poolConfig.MaxConnLifetime = time.Hour
	poolConfig.MaxConnIdleTime = 30 * time.Minute
	poolConfig.HealthCheckPeriod = time.Minute

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("unable to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		return nil, fmt.Errorf("unable to ping database: %w", err)
	}

	logger := logging.WithComponent("postgres")
	logger.Info().Str("database", cfg.Database).Msg("connected to PostgreSQL")

	return &DB{Pool: pool, logger: logger}, nil
}

// Close closes the database connection
func (db *DB) Close() {
	if db.Pool != nil {
		db.Pool.Close()
		db.logger.Info().Msg("database connection closed")
	}
}

// RunMigrations executes database migrations
func (db *DB) RunMigrations(ctx context.Context) error {
	db.logger.Info().Msg("running database migrations")

	migrations := []string{
		`CREATE EXTENSION IF NOT EXISTS pgcrypto`,

		// Sessions table. current_capital is bookkept by the application,
		// not by a trigger.
		`CREATE TABLE IF NOT EXISTS trading_sessions (
			id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			user_id UUID NOT NULL,
			name VARCHAR(120) NOT NULL,
			initial_capital DECIMAL(20, 8) NOT NULL,
			current_capital DECIMAL(20, 8) NOT NULL,
			session_type VARCHAR(10) NOT NULL CHECK (session_type IN ('Forex', 'Crypto')),
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE INDEX IF NOT EXISTS idx_trading_sessions_user ON trading_sessions(user_id, created_at DESC)`,

		// Trades table, flat columns covering both instrument shapes
		`CREATE TABLE IF NOT EXISTS trades (
			id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			session_id UUID NOT NULL REFERENCES trading_sessions(id) ON DELETE CASCADE,
			margin DECIMAL(20, 8) NOT NULL,
			roi DECIMAL(12, 4) NOT NULL,
			entry_side VARCHAR(5) NOT NULL CHECK (entry_side IN ('Long', 'Short')),
			profit_loss DECIMAL(20, 8) NOT NULL,
			comments TEXT,
			source VARCHAR(20) NOT NULL DEFAULT 'manual',
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			symbol VARCHAR(30),
			volume_lot DECIMAL(20, 8),
			open_price DECIMAL(20, 8),
			close_price DECIMAL(20, 8),
			tp DECIMAL(20, 8),
			sl DECIMAL(20, 8),
			position VARCHAR(10),
			open_time TIMESTAMPTZ,
			close_time TIMESTAMPTZ,
			reason VARCHAR(20),
			leverage DECIMAL(10, 2),
			contract_size DECIMAL(20, 8),
			futures_symbol VARCHAR(30),
			margin_mode VARCHAR(20),
			avg_entry_price DECIMAL(20, 8),
			avg_close_price DECIMAL(20, 8),
			margin_adjustment_history TEXT,
			closing_quantity DECIMAL(20, 8),
			realized_pnl DECIMAL(20, 8)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_trades_session ON trades(session_id, created_at DESC)`,

		// Chat messages, immutable append-only log
		`CREATE TABLE IF NOT EXISTS chat_messages (
			id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			user_id UUID NOT NULL,
			message TEXT NOT NULL,
			message_type VARCHAR(10) NOT NULL CHECK (message_type IN ('user', 'ai')),
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE INDEX IF NOT EXISTS idx_chat_messages_user ON chat_messages(user_id, created_at DESC)`,
	}

	for i, migration := range migrations {
		if _, err := db.Pool.Exec(ctx, migration); err != nil {
			return fmt.Errorf("migration %d failed: %w", i+1, err)
		}
	}

	db.logger.Info().Msg("database migrations completed")
	return nil
}

// HealthCheck performs a database health check
func (db *DB) HealthCheck(ctx context.Context) error {
	return db.Pool.Ping(ctx)
}
