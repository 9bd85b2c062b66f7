package verify

import (
	"fmt"

	"github.com/stakeway/stakeway-platform/pkg/geo"
)

// Speed bands used to bucket individual path legs into transport modes.
// These bands overlap in reality (a fast runner outpaces a slow cyclist), so
// the attribution below is a deliberately approximate heuristic. Do not
// treat its output as verified distance or speed.
const (
	maxWalkSpeedKmh  = 7.0
	maxRunSpeedKmh   = 14.0
	maxCycleSpeedKmh = 28.0
)

// ModeShare estimates the fraction of total path distance attributable to
// the given mode of transport by classifying each leg on its speed.
// Legs with no elapsed time are counted toward the declared mode: a stopped
// user has not changed vehicle. Returns a value in [0, 1].
func ModeShare(path []geo.Point, mode string) (float64, error) {
	if len(path) < 2 {
		return 0, nil
	}

	var total, matching float64
	for i := 1; i < len(path); i++ {
		legDist, err := geo.Distance(path[i-1], path[i])
		if err != nil {
			return 0, err
		}
		if legDist == 0 {
			continue
		}
		total += legDist

		elapsedHours := float64(path[i].TimestampMs-path[i-1].TimestampMs) / 3600000.0
		if elapsedHours <= 0 {
			matching += legDist
			continue
		}

		legMode := classifyLegSpeed(legDist / elapsedHours)
		if legMode == normalizeMode(mode) {
			matching += legDist
		}
	}

	if total == 0 {
		return 0, nil
	}
	return matching / total, nil
}

// classifyLegSpeed maps a leg speed to a coarse transport mode.
func classifyLegSpeed(speedKmh float64) string {
	switch {
	case speedKmh <= maxWalkSpeedKmh:
		return "walk"
	case speedKmh <= maxRunSpeedKmh:
		return "run"
	case speedKmh <= maxCycleSpeedKmh:
		return "cycle"
	default:
		return "drive"
	}
}

// normalizeMode collapses common aliases onto the four speed buckets.
func normalizeMode(mode string) string {
	switch mode {
	case "walk", "walking", "foot":
		return "walk"
	case "run", "running", "jog", "jogging":
		return "run"
	case "cycle", "cycling", "bike", "biking", "bicycle":
		return "cycle"
	case "drive", "driving", "car", "bus", "transit", "train":
		return "drive"
	default:
		// Unknown modes pass through so the share ends up 0 instead of
		// accidentally matching a bucket.
		return fmt.Sprintf("unknown:%s", mode)
	}
}
