package postgres

import (
	"context"
	"database/sql"
)

// Client is the Postgres surface the history, fingerprint and achievement
// stores depend on. A narrow interface keeps those stores testable without
// a database.
type Client interface {
	// Connect opens the connection pool
	Connect(ctx context.Context) error

	// Disconnect closes the connection pool
	Disconnect() error

	// Exec executes a statement without returning rows
	Exec(ctx context.Context, query string, args ...interface{}) (sql.Result, error)

	// Query executes a query that returns rows
	Query(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)

	// QueryRow executes a query expected to return at most one row
	QueryRow(ctx context.Context, query string, args ...interface{}) *sql.Row

	// HealthCheck reports connection and pool state
	HealthCheck(ctx context.Context) (*HealthStatus, error)
}
