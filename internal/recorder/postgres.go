package recorder

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

const schema = `
CREATE TABLE IF NOT EXISTS signals (
	id          BIGSERIAL PRIMARY KEY,
	symbol      TEXT NOT NULL,
	strategy    TEXT NOT NULL,
	signal_type TEXT NOT NULL,
	direction   TEXT NOT NULL,
	entry_price DOUBLE PRECISION NOT NULL,
	stop_pips   DOUBLE PRECISION NOT NULL,
	target_pips DOUBLE PRECISION NOT NULL,
	volume      DOUBLE PRECISION NOT NULL,
	reason      TEXT NOT NULL,
	created_at  TIMESTAMPTZ NOT NULL
);
CREATE TABLE IF NOT EXISTS orders (
	id          BIGSERIAL PRIMARY KEY,
	position_id TEXT NOT NULL,
	symbol      TEXT NOT NULL,
	direction   TEXT NOT NULL,
	volume      DOUBLE PRECISION NOT NULL,
	entry_price DOUBLE PRECISION NOT NULL,
	success     BOOLEAN NOT NULL,
	error       TEXT NOT NULL DEFAULT '',
	created_at  TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_signals_symbol_time ON signals (symbol, created_at);
CREATE INDEX IF NOT EXISTS idx_orders_symbol_time ON orders (symbol, created_at);
`

// Postgres records history into a PostgreSQL database via a pgx pool.
type Postgres struct {
	pool   *pgxpool.Pool
	logger zerolog.Logger
}

// NewPostgres connects to the database and ensures the schema exists.
func NewPostgres(ctx context.Context, databaseURL string, logger zerolog.Logger) (*Postgres, error) {
	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid database url: %w", err)
	}
	cfg.MaxConns = 4
	cfg.MaxConnLifetime = time.Hour

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	if _, err := pool.Exec(ctx, schema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	return &Postgres{
		pool:   pool,
		logger: logger.With().Str("component", "Recorder").Logger(),
	}, nil
}

// RecordSignal inserts a signal row.
func (p *Postgres) RecordSignal(ctx context.Context, rec SignalRecord) error {
	_, err := p.pool.Exec(ctx,
		`INSERT INTO signals (symbol, strategy, signal_type, direction, entry_price, stop_pips, target_pips, volume, reason, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		rec.Symbol, rec.Strategy, rec.SignalType, rec.Direction, rec.EntryPrice,
		rec.StopPips, rec.TargetPips, rec.Volume, rec.Reason, rec.Time)
	if err != nil {
		return fmt.Errorf("failed to record signal: %w", err)
	}
	return nil
}

// RecordOrder inserts an order row.
func (p *Postgres) RecordOrder(ctx context.Context, rec OrderRecord) error {
	_, err := p.pool.Exec(ctx,
		`INSERT INTO orders (position_id, symbol, direction, volume, entry_price, success, error, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		rec.PositionID, rec.Symbol, rec.Direction, rec.Volume, rec.EntryPrice,
		rec.Success, rec.Error, rec.Time)
	if err != nil {
		return fmt.Errorf("failed to record order: %w", err)
	}
	return nil
}

// Close releases the connection pool.
func (p *Postgres) Close() {
	p.pool.Close()
}
