package advisor

import (
	"strings"
	"testing"
	"time"

	"github.com/stakeway/stakeway-platform/pkg/commitment"
)

func TestRuleBasedBufferBaseline(t *testing.T) {
	engine := testEngine(nil)

	// 5 km, no traffic, midday midweek, perfect record: only the distance
	// multiplier applies. 10 * 1.25 = 12.5, rounded to 13.
	rec := engine.ruleBasedBuffer(adviceRequest(), historyWithSuccesses(10, 6.0, 6.0))

	if rec.Value != 13 {
		t.Errorf("Expected baseline buffer 13 min, got %v", rec.Value)
	}
	if rec.Tier != commitment.TierRuleBased {
		t.Errorf("Expected rule-based tier, got %q", rec.Tier)
	}
}

func TestRuleBasedBufferWidensWithWorseConsistency(t *testing.T) {
	engine := testEngine(nil)
	req := adviceRequest()

	// Same success rate, progressively worse pace estimates.
	var previous float64 = -1
	for _, realized := range []float64{6.0, 6.6, 7.2, 9.0} {
		rec := engine.ruleBasedBuffer(req, historyWithSuccesses(10, realized, 6.0))
		if rec.Value < previous {
			t.Errorf("Worse consistency must never shrink the buffer: got %v after %v (realized pace %v)",
				rec.Value, previous, realized)
		}
		previous = rec.Value
	}
}

func TestRuleBasedBufferTraffic(t *testing.T) {
	tests := []struct {
		traffic  string
		expected float64
	}{
		{"", 13},          // 12.5 rounded
		{"light", 13},     // no multiplier
		{"moderate", 16},  // 12.5 * 1.25 = 15.625
		{"heavy", 19},     // 12.5 * 1.5 = 18.75
	}

	engine := testEngine(nil)
	hist := historyWithSuccesses(10, 6.0, 6.0)

	for _, tt := range tests {
		name := tt.traffic
		if name == "" {
			name = "unspecified"
		}
		t.Run(name, func(t *testing.T) {
			req := adviceRequest()
			req.Traffic = tt.traffic

			rec := engine.ruleBasedBuffer(req, hist)

			if rec.Value != tt.expected {
				t.Errorf("Expected buffer %v min, got %v", tt.expected, rec.Value)
			}
		})
	}
}

func TestRuleBasedBufferRushHour(t *testing.T) {
	engine := testEngine(nil)
	hist := historyWithSuccesses(10, 6.0, 6.0)

	rush := adviceRequest()
	rush.Departure = time.Date(2026, 3, 4, 8, 30, 0, 0, time.UTC) // Wednesday morning
	calm := adviceRequest()
	calm.Departure = time.Date(2026, 3, 7, 8, 30, 0, 0, time.UTC) // Saturday morning

	rushRec := engine.ruleBasedBuffer(rush, hist)
	calmRec := engine.ruleBasedBuffer(calm, hist)

	if rushRec.Value <= calmRec.Value {
		t.Errorf("Rush hour should widen the buffer: rush=%v calm=%v",
			rushRec.Value, calmRec.Value)
	}
	if !strings.Contains(rushRec.Reasoning, "rush hour") {
		t.Errorf("Expected reasoning to mention rush hour: %q", rushRec.Reasoning)
	}
}

func TestRuleBasedBufferLowSuccessPenalty(t *testing.T) {
	engine := testEngine(nil)
	req := adviceRequest()

	reliable := engine.ruleBasedBuffer(req, historyWithSuccesses(8, 6.0, 6.0))
	shaky := engine.ruleBasedBuffer(req, withFailures(historyWithSuccesses(4, 6.0, 6.0), 4))

	if shaky.Value <= reliable.Value {
		t.Errorf("A 50%% success rate should widen the buffer: shaky=%v reliable=%v",
			shaky.Value, reliable.Value)
	}
	if !strings.Contains(shaky.Reasoning, "below 70%") {
		t.Errorf("Expected reasoning to flag the low success rate: %q", shaky.Reasoning)
	}
}

func TestRuleBasedBufferDistanceCap(t *testing.T) {
	engine := testEngine(nil)
	hist := historyWithSuccesses(10, 6.0, 6.0)

	req := adviceRequest()
	req.DistanceKm = 200

	rec := engine.ruleBasedBuffer(req, hist)

	// Distance multiplier caps at 3x base.
	if rec.Value != 30 {
		t.Errorf("Expected distance-capped buffer 30 min, got %v", rec.Value)
	}
}

func TestRuleBasedBufferDarkDeparture(t *testing.T) {
	engine := testEngine(nil)
	hist := historyWithSuccesses(10, 6.0, 6.0)

	night := adviceRequest()
	night.Departure = time.Date(2026, 3, 4, 23, 0, 0, 0, time.UTC)
	night.Lat, night.Lng = 60.17, 24.94 // Helsinki, well after sunset

	day := adviceRequest()
	day.Departure = time.Date(2026, 3, 4, 11, 0, 0, 0, time.UTC)
	day.Lat, day.Lng = 60.17, 24.94

	nightRec := engine.ruleBasedBuffer(night, hist)
	dayRec := engine.ruleBasedBuffer(day, hist)

	if nightRec.Value <= dayRec.Value {
		t.Errorf("Departure after dark should widen the buffer: night=%v day=%v",
			nightRec.Value, dayRec.Value)
	}
}

func TestRuleBasedBufferNoCoordinatesSkipsDarkness(t *testing.T) {
	engine := testEngine(nil)
	hist := historyWithSuccesses(10, 6.0, 6.0)

	req := adviceRequest()
	req.Departure = time.Date(2026, 3, 4, 23, 0, 0, 0, time.UTC)

	rec := engine.ruleBasedBuffer(req, hist)

	if strings.Contains(rec.Reasoning, "after dark") {
		t.Errorf("Without coordinates the darkness factor must be skipped: %q", rec.Reasoning)
	}
}
