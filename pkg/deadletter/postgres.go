package deadletter

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"go.uber.org/zap"

	"github.com/wehubfusion/Daedalus/pkg/engine"
)

// PostgresConfig configures the connection pool for a PostgresSink.
type PostgresConfig struct {
	// URL is a postgres:// connection string.
	URL string

	// PingTimeout bounds the connectivity check in OpenPostgres.
	// Defaults to 5s.
	PingTimeout time.Duration

	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
}

// OpenPostgres opens a pgx-backed database/sql pool and verifies
// connectivity before returning it.
func OpenPostgres(ctx context.Context, cfg PostgresConfig) (*sql.DB, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("postgres url is required")
	}

	db, err := sql.Open("pgx", cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to open postgres pool: %w", err)
	}

	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}
	if cfg.ConnMaxIdleTime > 0 {
		db.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)
	}

	pingTimeout := cfg.PingTimeout
	if pingTimeout <= 0 {
		pingTimeout = 5 * time.Second
	}
	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()

	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping postgres: %w", err)
	}

	return db, nil
}

var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS dead_letters (
		id           BIGSERIAL PRIMARY KEY,
		node_id      TEXT NOT NULL,
		execution_id TEXT NOT NULL,
		item         JSONB,
		error        TEXT,
		occurred_at  TIMESTAMPTZ NOT NULL,
		recorded_at  TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS dead_letters_node_idx
		ON dead_letters (node_id, occurred_at)`,
}

const insertLetter = `INSERT INTO dead_letters (node_id, execution_id, item, error, occurred_at)
	VALUES ($1, $2, $3, $4, $5)`

// PostgresSink inserts dead letters into the dead_letters table. Call
// EnsureSchema once at startup (or manage the table with migrations).
type PostgresSink struct {
	db     *sql.DB
	logger *zap.Logger
}

var _ Sink = (*PostgresSink)(nil)

// NewPostgresSink creates a sink over an open pool.
func NewPostgresSink(db *sql.DB, logger *zap.Logger) (*PostgresSink, error) {
	if db == nil {
		return nil, fmt.Errorf("database pool is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PostgresSink{db: db, logger: logger}, nil
}

// EnsureSchema creates the dead_letters table and its index if missing.
// Statements run one at a time; pgx's extended protocol rejects batched DDL.
func (s *PostgresSink) EnsureSchema(ctx context.Context) error {
	for _, stmt := range schemaStatements {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to ensure dead letter schema: %w", err)
		}
	}
	return nil
}

// Write inserts the letter.
func (s *PostgresSink) Write(ctx context.Context, letter engine.DeadLetter) error {
	rec := NewRecord(letter)

	_, err := s.db.ExecContext(ctx, insertLetter,
		rec.NodeID,
		rec.ExecutionID,
		[]byte(rec.Item),
		rec.Error,
		rec.OccurredAt,
	)
	if err != nil {
		s.logger.Error("Failed to insert dead letter",
			zap.String("node_id", rec.NodeID),
			zap.String("execution_id", rec.ExecutionID),
			zap.Error(err))
		return fmt.Errorf("failed to insert dead letter: %w", err)
	}

	return nil
}
