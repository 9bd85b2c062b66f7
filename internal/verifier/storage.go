package verifier

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/stakeway/stakeway-platform/pkg/commitment"
	"github.com/stakeway/stakeway-platform/pkg/config"
	"github.com/stakeway/stakeway-platform/pkg/redis"
)

// Storage handles Redis operations for the verifier agent: the commitment
// document (written by the product API), the cached verification result, and
// the processed-submission markers used for idempotent redelivery.
type Storage struct {
	redis     redis.Client
	resultTTL time.Duration
	dedupTTL  time.Duration
	logger    *slog.Logger
}

// NewStorage creates a new storage handler
func NewStorage(redisClient redis.Client, cfg *config.Config, logger *slog.Logger) *Storage {
	return &Storage{
		redis:     redisClient,
		resultTTL: time.Duration(cfg.VerificationTTLHours) * time.Hour,
		dedupTTL:  time.Duration(cfg.ProofDedupTTLHours) * time.Hour,
		logger:    logger,
	}
}

// LoadCommitment fetches the commitment document for an id.
func (s *Storage) LoadCommitment(ctx context.Context, commitmentID string) (*commitment.Commitment, error) {
	raw, err := s.redis.Get(ctx, redis.CommitmentKey(commitmentID))
	if err != nil {
		return nil, fmt.Errorf("failed to load commitment %s: %w", commitmentID, err)
	}

	var c commitment.Commitment
	if err := json.Unmarshal([]byte(raw), &c); err != nil {
		return nil, fmt.Errorf("failed to decode commitment %s: %w", commitmentID, err)
	}

	return &c, nil
}

// StoreCommitment writes the commitment document back, typically after a
// status transition. Concurrent writers are serialized by the store, not
// here.
func (s *Storage) StoreCommitment(ctx context.Context, c *commitment.Commitment) error {
	raw, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to encode commitment %s: %w", c.ID, err)
	}

	if err := s.redis.Set(ctx, redis.CommitmentKey(c.ID), raw, 0); err != nil {
		return fmt.Errorf("failed to store commitment %s: %w", c.ID, err)
	}
	return nil
}

// StoreResult caches the verification result for a commitment.
func (s *Storage) StoreResult(ctx context.Context, commitmentID string, result commitment.VerificationResult) error {
	raw, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("failed to encode verification result: %w", err)
	}

	if err := s.redis.Set(ctx, redis.VerificationKey(commitmentID), raw, s.resultTTL); err != nil {
		return fmt.Errorf("failed to store verification result for %s: %w", commitmentID, err)
	}

	s.logger.Debug("Stored verification result", "commitment_id", commitmentID)
	return nil
}

// ClaimSubmission marks a submission as processed. Returns false when another
// delivery already claimed it, which makes MQTT redelivery a no-op.
func (s *Storage) ClaimSubmission(ctx context.Context, commitmentID, submissionID string) (bool, error) {
	claimed, err := s.redis.SetNX(ctx, redis.ProofSeenKey(commitmentID, submissionID), "1", s.dedupTTL)
	if err != nil {
		return false, fmt.Errorf("failed to claim submission %s: %w", submissionID, err)
	}
	return claimed, nil
}
