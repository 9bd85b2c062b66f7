package milestone

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/stakeway/stakeway-platform/pkg/commitment"
	"github.com/stakeway/stakeway-platform/pkg/config"
	"github.com/stakeway/stakeway-platform/pkg/postgres"
	"github.com/stakeway/stakeway-platform/pkg/redis"
)

// Storage handles the milestone agent's persistence: history reads and
// achievement unlocks in Postgres, streak counters mirrored to Redis.
type Storage struct {
	pg        postgres.Client
	redis     redis.Client
	mirrorTTL time.Duration
	logger    *slog.Logger
}

// NewStorage creates a milestone storage handler
func NewStorage(pgClient postgres.Client, redisClient redis.Client, cfg *config.Config, logger *slog.Logger) *Storage {
	return &Storage{
		pg:        pgClient,
		redis:     redisClient,
		mirrorTTL: time.Duration(cfg.StreakMirrorTTLHours) * time.Hour,
		logger:    logger,
	}
}

// LoadHistory returns a user's full completed history in chronological
// order (most recent last).
func (s *Storage) LoadHistory(ctx context.Context, userID string) ([]commitment.CommitmentRecord, error) {
	query := `
		SELECT commitment_id, outcome, estimated_distance_km, estimated_pace,
		       actual_pace, committed_departure, actual_arrival, deadline,
		       stake_amount, COALESCE(mode, '')
		FROM commitment_history
		WHERE user_id = $1
		ORDER BY actual_arrival ASC
	`

	rows, err := s.pg.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query commitment history: %w", err)
	}
	defer rows.Close()

	var records []commitment.CommitmentRecord
	for rows.Next() {
		var r commitment.CommitmentRecord
		if err := rows.Scan(&r.ID, &r.Outcome, &r.EstimatedDistanceKm, &r.EstimatedPace,
			&r.ActualPace, &r.CommittedDeparture, &r.ActualArrival, &r.Deadline,
			&r.StakeAmount, &r.Mode); err != nil {
			return nil, fmt.Errorf("failed to scan commitment record: %w", err)
		}
		records = append(records, r)
	}

	return records, rows.Err()
}

// LoadUnlocked returns the set of achievement ids the user already holds.
func (s *Storage) LoadUnlocked(ctx context.Context, userID string) (map[string]bool, error) {
	query := `SELECT achievement_id FROM achievements WHERE user_id = $1`

	rows, err := s.pg.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query achievements: %w", err)
	}
	defer rows.Close()

	unlocked := make(map[string]bool)
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan achievement id: %w", err)
		}
		unlocked[id] = true
	}

	return unlocked, rows.Err()
}

// Unlock persists one achievement. The conflict clause makes concurrent or
// replayed unlocks of the same achievement harmless; the boolean reports
// whether this call actually inserted the row.
func (s *Storage) Unlock(ctx context.Context, userID, achievementID string, unlockedAt time.Time) (bool, error) {
	query := `
		INSERT INTO achievements (user_id, achievement_id, unlocked_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (user_id, achievement_id) DO NOTHING
	`

	result, err := s.pg.Exec(ctx, query, userID, achievementID, unlockedAt)
	if err != nil {
		return false, fmt.Errorf("failed to unlock achievement %s: %w", achievementID, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read unlock result: %w", err)
	}
	return affected > 0, nil
}

// MirrorStreaks writes a user's streak counters to the streak hash so the
// product UI can read them without touching Postgres.
func (s *Storage) MirrorStreaks(ctx context.Context, userID string, streaks Streaks) error {
	key := redis.StreakKey(userID)

	if err := s.redis.HSet(ctx, key, "current", strconv.Itoa(streaks.Current)); err != nil {
		return fmt.Errorf("failed to mirror current streak: %w", err)
	}
	if err := s.redis.HSet(ctx, key, "longest", strconv.Itoa(streaks.Longest)); err != nil {
		return fmt.Errorf("failed to mirror longest streak: %w", err)
	}
	if err := s.redis.Expire(ctx, key, s.mirrorTTL); err != nil {
		return fmt.Errorf("failed to set streak mirror TTL: %w", err)
	}

	s.logger.Debug("Mirrored streaks",
		"user_id", userID,
		"current", streaks.Current,
		"longest", streaks.Longest)
	return nil
}
