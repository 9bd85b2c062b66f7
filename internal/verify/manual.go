package verify

import (
	"context"

	"github.com/stakeway/stakeway-platform/pkg/commitment"
)

// ManualValidator never blocks a verification pass on a human. It reports
// success with a review note; the actual accept/reject decision arrives
// later from the reviewer as a new submission, outside this pass.
type ManualValidator struct{}

func (v *ManualValidator) Validate(ctx context.Context, sub commitment.ProofSubmission, cond commitment.Condition) commitment.ConditionResult {
	return passed(cond, "submission %s queued for human review", sub.ID)
}
