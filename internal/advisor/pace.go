package advisor

import (
	"context"
	"fmt"
	"math"
	"strings"

	"github.com/stakeway/stakeway-platform/pkg/commitment"
)

// feasibilityMargin keeps the recommended pace at least 10% faster than the
// bare minimum needed to cover the distance before the deadline.
const feasibilityMargin = 0.9

// ruleBasedPace averages the realized pace (min/km) of past successful
// commitments, adjusts for urgency, and floors the result by feasibility:
// the suggestion must cover the committed distance within the deadline with
// margin to spare.
func (e *Engine) ruleBasedPace(ctx context.Context, req commitment.AdviceRequest, hist commitment.UserHistory) commitment.Recommendation {
	successes := hist.Successes()

	var sum float64
	var count int
	for _, r := range successes {
		pace := r.RealizedPace()
		if pace > 0 && isFinite(pace) {
			sum += pace
			count++
		}
	}
	if count == 0 {
		return e.coldStart(commitment.QuantityPace)
	}

	pace := sum / float64(count)
	factors := []string{fmt.Sprintf("average realized pace %.2f min/km over %d successes", pace, count)}

	if req.Urgency == "high" {
		pace *= 0.85
		factors = append(factors, "high urgency (15% faster)")
	}

	// Feasibility floor: never suggest a pace too slow to make the deadline.
	if req.DistanceKm > 0 && req.Deadline.After(req.Departure) {
		available := req.Deadline.Sub(req.Departure).Minutes()
		maxPace := (available / req.DistanceKm) * feasibilityMargin
		if pace > maxPace {
			pace = maxPace
			factors = append(factors, fmt.Sprintf("capped at %.2f min/km to make the deadline with a 10%% margin", maxPace))
		}
	}

	if aside, ok := e.similarTripAside(ctx, req); ok {
		factors = append(factors, aside)
	}

	consistency := Consistency(hist.Commitments)
	confidence := math.Min(maxConfidence, 0.3+0.05*math.Min(float64(count), 10)+0.3*consistency)

	return commitment.Recommendation{
		Quantity:   commitment.QuantityPace,
		Value:      round2(pace),
		Confidence: confidence,
		Reasoning:  fmt.Sprintf("pace %.2f min/km: %s", pace, strings.Join(factors, "; ")),
		Tier:       commitment.TierRuleBased,
		Factors:    factors,
	}
}

// similarTripAside retrieves the nearest past trips by fingerprint and
// reports their average realized pace. Advisory only: it lands in the
// factors, never in the recommended number.
func (e *Engine) similarTripAside(ctx context.Context, req commitment.AdviceRequest) (string, bool) {
	if e.fingerprints == nil {
		return "", false
	}

	trips, err := e.fingerprints.SimilarTrips(ctx, req.UserID, EncodeRequestFingerprint(req), e.cfg.SimilarTripCount)
	if err != nil {
		e.logger.Debug("Similar trip retrieval failed", "user_id", req.UserID, "error", err)
		return "", false
	}
	if len(trips) == 0 {
		return "", false
	}

	var sum float64
	for _, trip := range trips {
		sum += trip.PaceMinPerKm
	}
	avg := sum / float64(len(trips))

	return fmt.Sprintf("%d similar past trips averaged %.2f min/km", len(trips), avg), true
}
