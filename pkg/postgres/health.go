package postgres

import (
	"context"
	"fmt"
	"time"
)

// HealthStatus reports the state of the Postgres connection pool, including
// whether the pgvector extension the fingerprint store depends on is
// installed.
type HealthStatus struct {
	Connected       bool      `json:"connected"`
	ServerVersion   string    `json:"server_version,omitempty"`
	Database        string    `json:"database"`
	VectorExtension bool      `json:"vector_extension"`
	OpenConns       int       `json:"open_connections"`
	InUseConns      int       `json:"in_use_connections"`
	IdleConns       int       `json:"idle_connections"`
	Error           string    `json:"error,omitempty"`
	Timestamp       time.Time `json:"timestamp"`
}

// HealthCheck pings the database and collects pool statistics for the
// detailed health endpoint.
func (c *client) HealthCheck(ctx context.Context) (*HealthStatus, error) {
	status := HealthStatus{
		Database:  c.database,
		Timestamp: time.Now(),
	}

	if c.db == nil {
		status.Error = "not connected"
		return &status, nil
	}

	if err := c.db.PingContext(ctx); err != nil {
		status.Error = fmt.Sprintf("ping failed: %v", err)
		return &status, nil
	}

	status.Connected = true
	status.VectorExtension = c.hasVectorExtension(ctx)

	stats := c.db.Stats()
	status.OpenConns = stats.OpenConnections
	status.InUseConns = stats.InUse
	status.IdleConns = stats.Idle

	var version string
	if err := c.db.QueryRowContext(ctx, "SELECT version()").Scan(&version); err != nil {
		status.Error = fmt.Sprintf("failed to get version: %v", err)
		return &status, nil
	}
	status.ServerVersion = version

	return &status, nil
}
