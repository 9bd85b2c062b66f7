package advisor

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/stakeway/stakeway-platform/pkg/commitment"
	"github.com/stakeway/stakeway-platform/pkg/config"
	"github.com/stakeway/stakeway-platform/pkg/postgres"
	"github.com/stakeway/stakeway-platform/pkg/redis"
)

// HistoryStore loads a user's historical record from Postgres. The rows are
// derived from confirmed ledger state by the product backend; the core only
// reads them.
type HistoryStore struct {
	pg     postgres.Client
	logger *slog.Logger
}

// NewHistoryStore creates a history store over the given client.
func NewHistoryStore(pgClient postgres.Client, logger *slog.Logger) *HistoryStore {
	return &HistoryStore{pg: pgClient, logger: logger}
}

// LoadUserHistory returns up to limit most recent completed commitments for
// a user, chronological (most recent last), plus their bet history.
func (s *HistoryStore) LoadUserHistory(ctx context.Context, userID string, limit int) (commitment.UserHistory, error) {
	hist := commitment.UserHistory{UserID: userID}

	query := `
		SELECT commitment_id, outcome, estimated_distance_km, estimated_pace,
		       actual_pace, committed_departure, actual_arrival, deadline,
		       stake_amount, COALESCE(mode, '')
		FROM commitment_history
		WHERE user_id = $1
		ORDER BY actual_arrival DESC
		LIMIT $2
	`

	rows, err := s.pg.Query(ctx, query, userID, limit)
	if err != nil {
		return hist, fmt.Errorf("failed to query commitment history: %w", err)
	}
	defer rows.Close()

	var records []commitment.CommitmentRecord
	for rows.Next() {
		var r commitment.CommitmentRecord
		if err := rows.Scan(&r.ID, &r.Outcome, &r.EstimatedDistanceKm, &r.EstimatedPace,
			&r.ActualPace, &r.CommittedDeparture, &r.ActualArrival, &r.Deadline,
			&r.StakeAmount, &r.Mode); err != nil {
			return hist, fmt.Errorf("failed to scan commitment record: %w", err)
		}
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return hist, fmt.Errorf("failed to iterate commitment history: %w", err)
	}

	// Rows arrive most recent first; the engine wants chronological order.
	for i, j := 0, len(records)-1; i < j; i, j = i+1, j-1 {
		records[i], records[j] = records[j], records[i]
	}
	hist.Commitments = records

	bets, err := s.loadBets(ctx, userID, limit)
	if err != nil {
		// Bet history enriches context but is not required for any
		// recommendation; log and continue.
		s.logger.Warn("Failed to load bet history", "user_id", userID, "error", err)
	} else {
		hist.Bets = bets
	}

	return hist, nil
}

func (s *HistoryStore) loadBets(ctx context.Context, userID string, limit int) ([]commitment.BetRecord, error) {
	query := `
		SELECT commitment_id, amount, won, placed_at
		FROM bet_history
		WHERE user_id = $1
		ORDER BY placed_at DESC
		LIMIT $2
	`

	rows, err := s.pg.Query(ctx, query, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query bet history: %w", err)
	}
	defer rows.Close()

	var bets []commitment.BetRecord
	for rows.Next() {
		var b commitment.BetRecord
		if err := rows.Scan(&b.CommitmentID, &b.Amount, &b.Won, &b.PlacedAt); err != nil {
			return nil, fmt.Errorf("failed to scan bet record: %w", err)
		}
		bets = append(bets, b)
	}

	return bets, rows.Err()
}

// AdviceCache mirrors the latest recommendation per user and quantity to
// Redis so the product UI can read it without a round trip through MQTT.
type AdviceCache struct {
	redis  redis.Client
	ttl    time.Duration
	logger *slog.Logger
}

// NewAdviceCache creates an advice cache handler
func NewAdviceCache(redisClient redis.Client, cfg *config.Config, logger *slog.Logger) *AdviceCache {
	return &AdviceCache{
		redis:  redisClient,
		ttl:    time.Duration(cfg.AdviceCacheTTLMin) * time.Minute,
		logger: logger,
	}
}

// Store caches one recommendation under advice:{user}:{quantity}.
func (c *AdviceCache) Store(ctx context.Context, userID string, rec commitment.Recommendation) error {
	raw, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to encode recommendation: %w", err)
	}

	key := redis.AdviceKey(userID, rec.Quantity)
	if err := c.redis.Set(ctx, key, raw, c.ttl); err != nil {
		return fmt.Errorf("failed to cache recommendation: %w", err)
	}

	c.logger.Debug("Cached recommendation", "key", key, "tier", rec.Tier)
	return nil
}
