package verify

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/stakeway/stakeway-platform/pkg/analysis"
	"github.com/stakeway/stakeway-platform/pkg/commitment"
)

// aiCallTimeout bounds the single suspension point of the verification core.
const aiCallTimeout = 5 * time.Second

// aiMetThreshold is the minimum collaborator verdict value treated as a pass.
const aiMetThreshold = 0.5

// AIValidator delegates to the external analysis collaborator. When the
// collaborator is unavailable, out of quota, or slow, the condition fails
// with an explicit unavailability message; it never silently succeeds.
type AIValidator struct {
	client analysis.Client
	logger *slog.Logger
}

func (v *AIValidator) Validate(ctx context.Context, sub commitment.ProofSubmission, cond commitment.Condition) commitment.ConditionResult {
	if v.client == nil {
		return failed(cond, "AI verification unavailable: no analysis collaborator configured")
	}

	callCtx, cancel := context.WithTimeout(ctx, aiCallTimeout)
	defer cancel()

	result, err := v.client.Analyze(callCtx, analysis.Request{
		Task:   "verify_condition",
		Prompt: buildVerificationPrompt(sub, cond),
	})
	if err != nil {
		v.logger.Warn("AI verification call failed",
			"submission_id", sub.ID,
			"condition", cond.Description,
			"error", err)
		return failed(cond, "AI verification unavailable")
	}

	if result.Value >= aiMetThreshold {
		return passed(cond, "AI verification passed (confidence %.2f): %s", result.Confidence, result.Reasoning)
	}
	return failed(cond, "AI verification rejected the evidence (confidence %.2f): %s", result.Confidence, result.Reasoning)
}

// buildVerificationPrompt describes one condition/evidence pair for the
// collaborator and pins the expected JSON shape.
func buildVerificationPrompt(sub commitment.ProofSubmission, cond commitment.Condition) string {
	return fmt.Sprintf(`You are verifying evidence for a staked commitment.

CONDITION:
- kind: %s
- description: %s
- required value: %g %s

EVIDENCE:
- submission id: %s
- evidence kind: %s
- submitted at: %s
- notes: %s
- payload: %s

Judge whether the evidence satisfies the condition.

Respond with ONLY valid JSON in this exact format:
{
  "value": 1.0 if satisfied else 0.0,
  "confidence": 0.0 to 1.0,
  "reasoning": "brief explanation"
}

JSON response:`,
		cond.Kind, cond.Description, cond.Value, cond.Unit,
		sub.ID, sub.Kind, sub.SubmittedAt.Format(time.RFC3339), sub.Notes, string(sub.Payload))
}
