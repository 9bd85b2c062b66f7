package advisor

import (
	"math"

	"github.com/stakeway/stakeway-platform/pkg/commitment"
)

// Consistency measures how well a user's realized pace tracked the estimate
// across past successful commitments:
//
//	consistency = max(0, 1 - meanAbsoluteRelativeError(estimated, realized))
//
// 1 means estimates were spot on, 0 means they were off by 100% or more on
// average. Higher consistency shrinks recommended buffers, lower grows them.
func Consistency(records []commitment.CommitmentRecord) float64 {
	var sum float64
	var count int

	for _, r := range records {
		if !r.Succeeded() || r.EstimatedPace <= 0 {
			continue
		}
		realized := r.RealizedPace()
		if realized <= 0 {
			continue
		}
		sum += math.Abs(realized-r.EstimatedPace) / r.EstimatedPace
		count++
	}

	if count == 0 {
		return 0
	}

	return math.Max(0, 1-sum/float64(count))
}
