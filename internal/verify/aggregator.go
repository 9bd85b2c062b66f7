package verify

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/stakeway/stakeway-platform/pkg/commitment"
)

// Aggregator reduces per-condition verdicts into one verification result.
// It is pure given its inputs and safe to call repeatedly: re-verifying the
// same submission against the same condition set yields the same result.
type Aggregator struct {
	registry *Registry
	logger   *slog.Logger
}

// NewAggregator creates an aggregator over the given validator registry.
func NewAggregator(registry *Registry, logger *slog.Logger) *Aggregator {
	return &Aggregator{
		registry: registry,
		logger:   logger,
	}
}

// VerifyCommitment judges one submission against every required condition of
// a commitment. The overall result succeeds iff every required condition's
// validator succeeded; partial success is reported in the message but counts
// as failure for commitment status purposes.
//
// A commitment with zero required conditions verifies successfully. That
// degenerate case is preserved deliberately; enforcing at least one required
// condition is a commitment-creation concern, not the aggregator's.
//
// The returned error is non-nil only for the ErrUnknownMethod configuration
// defect, which must surface loudly rather than read as a failed condition.
func (a *Aggregator) VerifyCommitment(ctx context.Context, c *commitment.Commitment, sub commitment.ProofSubmission) (commitment.VerificationResult, error) {
	required := c.RequiredConditions()

	if len(required) == 0 {
		a.logger.Warn("Commitment has no required conditions, verifying as successful",
			"commitment_id", c.ID,
			"submission_id", sub.ID)
		return commitment.VerificationResult{
			Success: true,
			Message: "no required conditions to verify",
		}, nil
	}

	var verified, failed []string
	for _, cond := range required {
		validator, err := a.registry.Validator(cond.Method)
		if err != nil {
			return commitment.VerificationResult{}, fmt.Errorf("commitment %s: %w", c.ID, err)
		}

		result := validator.Validate(ctx, sub, cond)

		a.logger.Debug("Condition verdict",
			"commitment_id", c.ID,
			"submission_id", sub.ID,
			"condition", cond.Description,
			"method", cond.Method,
			"met", result.Met,
			"message", result.Message)

		if result.Met {
			verified = append(verified, cond.Description)
		} else {
			failed = append(failed, cond.Description)
		}
	}

	success := len(failed) == 0

	var message string
	if success {
		message = fmt.Sprintf("all %d required conditions verified", len(required))
	} else {
		message = fmt.Sprintf("%d of %d required conditions verified", len(verified), len(required))
	}

	return commitment.VerificationResult{
		Success:            success,
		Message:            message,
		VerifiedConditions: verified,
		FailedConditions:   failed,
	}, nil
}
