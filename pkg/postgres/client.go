package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	_ "github.com/lib/pq"
	"github.com/stakeway/stakeway-platform/pkg/config"
)

// client wraps the shared Postgres connection pool. The pool backs the
// advisor's history and fingerprint stores and the milestone agent's
// achievement table.
type client struct {
	db *sql.DB

	connStr         string
	database        string
	maxOpen         int
	maxIdle         int
	connMaxLifetime time.Duration

	logger *slog.Logger
}

// NewClient creates a Postgres client from the shared configuration. The
// client must be connected before use; calling query methods on an
// unconnected client is a programming error.
func NewClient(cfg *config.Config, logger *slog.Logger) Client {
	if logger == nil {
		logger = slog.Default()
	}

	return &client{
		connStr:         cfg.PostgresConnectionString(),
		database:        cfg.PostgresDB,
		maxOpen:         cfg.PostgresMaxConnections,
		maxIdle:         cfg.PostgresMaxIdleConnections,
		connMaxLifetime: cfg.PostgresConnMaxLifetime,
		logger:          logger,
	}
}

// Connect opens the pool, applies the configured limits and verifies the
// connection. The pgvector extension is probed because the fingerprint
// store's similarity queries need it; its absence is logged rather than
// fatal since the verifier and milestone agents run without it.
func (c *client) Connect(ctx context.Context) error {
	c.logger.Info("Connecting to Postgres",
		"database", c.database,
		"max_open", c.maxOpen,
		"max_idle", c.maxIdle)

	db, err := sql.Open("postgres", c.connStr)
	if err != nil {
		return fmt.Errorf("failed to open postgres connection: %w", err)
	}

	db.SetMaxOpenConns(c.maxOpen)
	db.SetMaxIdleConns(c.maxIdle)
	db.SetConnMaxLifetime(c.connMaxLifetime)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return fmt.Errorf("failed to ping postgres: %w", err)
	}

	c.db = db

	if !c.hasVectorExtension(ctx) {
		c.logger.Warn("pgvector extension not installed, trip fingerprint queries will fail",
			"database", c.database)
	}

	c.logger.Info("Connected to Postgres", "database", c.database)
	return nil
}

func (c *client) hasVectorExtension(ctx context.Context) bool {
	var installed bool
	err := c.db.QueryRowContext(ctx,
		"SELECT EXISTS (SELECT 1 FROM pg_extension WHERE extname = 'vector')").Scan(&installed)
	if err != nil {
		c.logger.Warn("Failed to probe pgvector extension", "error", err)
		return false
	}
	return installed
}

// Disconnect closes the connection pool
func (c *client) Disconnect() error {
	if c.db == nil {
		return nil
	}

	c.logger.Info("Disconnecting from Postgres", "database", c.database)

	if err := c.db.Close(); err != nil {
		return fmt.Errorf("failed to close postgres connection: %w", err)
	}

	c.db = nil
	return nil
}

// Exec executes a statement without returning rows
func (c *client) Exec(ctx context.Context, query string, args ...interface{}) (sql.Result, error) {
	if c.db == nil {
		return nil, fmt.Errorf("postgres client not connected")
	}
	return c.db.ExecContext(ctx, query, args...)
}

// Query executes a query that returns rows
func (c *client) Query(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error) {
	if c.db == nil {
		return nil, fmt.Errorf("postgres client not connected")
	}
	return c.db.QueryContext(ctx, query, args...)
}

// QueryRow executes a query expected to return at most one row. Requires a
// connected client.
func (c *client) QueryRow(ctx context.Context, query string, args ...interface{}) *sql.Row {
	return c.db.QueryRowContext(ctx, query, args...)
}

