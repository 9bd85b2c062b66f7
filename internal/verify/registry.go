package verify

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/stakeway/stakeway-platform/pkg/analysis"
	"github.com/stakeway/stakeway-platform/pkg/commitment"
)

// Validator judges one proof submission against one condition. Implementations
// are pure except for the AI validator, which calls the external analysis
// collaborator under an explicit timeout.
//
// Payload and geometry problems are reported as failed results with a
// human-readable reason, never as errors.
type Validator interface {
	Validate(ctx context.Context, sub commitment.ProofSubmission, cond commitment.Condition) commitment.ConditionResult
}

// Registry maps verification methods to their validators. The method set is
// closed: asking for anything outside it is a configuration defect surfaced
// as ErrUnknownMethod, never a silently failed verification.
type Registry struct {
	validators map[commitment.Method]Validator
}

// NewRegistry builds the full validator set. The analysis client backs the
// AI validator and may be nil, in which case AI-verified conditions fail
// with an unavailability message.
func NewRegistry(analysisClient analysis.Client, logger *slog.Logger) *Registry {
	return &Registry{
		validators: map[commitment.Method]Validator{
			commitment.MethodGPS:    &GPSValidator{logger: logger},
			commitment.MethodPhoto:  &MediaValidator{kind: commitment.ProofPhoto},
			commitment.MethodVideo:  &MediaValidator{kind: commitment.ProofVideo},
			commitment.MethodManual: &ManualValidator{},
			commitment.MethodAI:     &AIValidator{client: analysisClient, logger: logger},
		},
	}
}

// Validator returns the validator registered for a method.
func (r *Registry) Validator(method commitment.Method) (Validator, error) {
	v, ok := r.validators[method]
	if !ok {
		return nil, fmt.Errorf("%w: %q", commitment.ErrUnknownMethod, method)
	}
	return v, nil
}

// failed builds a failed condition result with the given reason.
func failed(cond commitment.Condition, format string, args ...interface{}) commitment.ConditionResult {
	return commitment.ConditionResult{
		Condition: cond,
		Met:       false,
		Message:   fmt.Sprintf(format, args...),
	}
}

// passed builds a successful condition result with the given message.
func passed(cond commitment.Condition, format string, args ...interface{}) commitment.ConditionResult {
	return commitment.ConditionResult{
		Condition: cond,
		Met:       true,
		Message:   fmt.Sprintf(format, args...),
	}
}
