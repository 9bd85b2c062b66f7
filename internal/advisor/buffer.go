package advisor

import (
	"fmt"
	"math"
	"strings"

	"github.com/sixdouglas/suncalc"

	"github.com/stakeway/stakeway-platform/pkg/commitment"
)

// baseBufferMin is the time buffer before any scaling.
const baseBufferMin = 10.0

// lowSuccessThreshold triggers the extra buffer penalty.
const lowSuccessThreshold = 0.7

// ruleBasedBuffer scales a base buffer by distance, traffic, rush hour, the
// user's success rate and their pacing consistency. Lower consistency always
// widens the buffer; that monotonic coupling is load-bearing for callers.
func (e *Engine) ruleBasedBuffer(req commitment.AdviceRequest, hist commitment.UserHistory) commitment.Recommendation {
	buffer := baseBufferMin
	var factors []string

	// Distance: +50% per 10 km, capped at 3x base.
	if req.DistanceKm > 0 {
		distanceMult := math.Min(3.0, 1.0+req.DistanceKm/20.0)
		buffer *= distanceMult
		factors = append(factors, fmt.Sprintf("distance %.1f km (x%.2f)", req.DistanceKm, distanceMult))
	}

	switch req.Traffic {
	case "heavy":
		buffer *= 1.5
		factors = append(factors, "heavy traffic (x1.50)")
	case "moderate":
		buffer *= 1.25
		factors = append(factors, "moderate traffic (x1.25)")
	}

	if isRushHour(req) {
		buffer *= 1.2
		factors = append(factors, "rush hour departure (x1.20)")
	}

	successRate := hist.SuccessRate()
	if successRate < lowSuccessThreshold {
		buffer *= 1.25
		factors = append(factors, fmt.Sprintf("success rate %.0f%% below 70%% (x1.25)", successRate*100))
	}

	consistency := Consistency(hist.Commitments)
	consistencyMult := 1.5 - 0.5*consistency
	buffer *= consistencyMult
	factors = append(factors, fmt.Sprintf("pacing consistency %.2f (x%.2f)", consistency, consistencyMult))

	if isDarkDeparture(req) {
		buffer *= 1.15
		factors = append(factors, "departure after dark (x1.15)")
	}

	confidence := math.Min(maxConfidence,
		0.3+0.04*math.Min(float64(hist.CompletedCount()), 10)+0.25*consistency)

	return commitment.Recommendation{
		Quantity:   commitment.QuantityTimeBuffer,
		Value:      math.Round(buffer),
		Confidence: confidence,
		Reasoning:  fmt.Sprintf("buffer %.0f min from base %.0f: %s", math.Round(buffer), baseBufferMin, strings.Join(factors, "; ")),
		Tier:       commitment.TierRuleBased,
		Factors:    factors,
	}
}

// isRushHour flags weekday departures in the morning and evening peaks.
func isRushHour(req commitment.AdviceRequest) bool {
	if req.Departure.IsZero() {
		return false
	}
	weekday := req.Departure.Weekday()
	if weekday == 0 || weekday == 6 {
		return false
	}
	hour := req.Departure.Hour()
	return (hour >= 7 && hour < 10) || (hour >= 16 && hour < 19)
}

// isDarkDeparture checks whether the sun is below the horizon at the
// departure location. Requires coordinates; without them the factor is
// skipped rather than guessed.
func isDarkDeparture(req commitment.AdviceRequest) bool {
	if req.Departure.IsZero() || (req.Lat == 0 && req.Lng == 0) {
		return false
	}
	position := suncalc.GetPosition(req.Departure, req.Lat, req.Lng)
	return position.Altitude < 0
}
