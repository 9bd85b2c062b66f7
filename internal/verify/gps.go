package verify

import (
	"context"
	"log/slog"

	"github.com/stakeway/stakeway-platform/pkg/commitment"
	"github.com/stakeway/stakeway-platform/pkg/geo"
)

// GPSValidator verifies distance, time, speed and mode conditions against
// the path carried by a GPS submission.
type GPSValidator struct {
	logger *slog.Logger
}

// Validate dispatches on the condition kind. Every branch reports the
// measured value against the required one so a failed verification always
// carries a concrete reason.
func (v *GPSValidator) Validate(ctx context.Context, sub commitment.ProofSubmission, cond commitment.Condition) commitment.ConditionResult {
	payload, err := commitment.DecodeGPSPayload(sub)
	if err != nil {
		return failed(cond, "GPS evidence rejected: %v", err)
	}

	if len(payload.Path) < 2 {
		return failed(cond, "GPS evidence rejected: path has %d point(s), at least 2 required", len(payload.Path))
	}

	switch cond.Kind {
	case commitment.KindDistance:
		return v.validateDistance(payload.Path, cond)
	case commitment.KindTime:
		return v.validateTime(payload.Path, cond)
	case commitment.KindSpeed:
		return v.validateSpeed(payload.Path, cond)
	case commitment.KindMode:
		return v.validateMode(payload, cond)
	default:
		return failed(cond, "condition kind %q is not verifiable by GPS", cond.Kind)
	}
}

func (v *GPSValidator) validateDistance(path []geo.Point, cond commitment.Condition) commitment.ConditionResult {
	dist, err := geo.PathDistance(path)
	if err != nil {
		return failed(cond, "GPS evidence rejected: %v", err)
	}

	if dist >= cond.Value {
		return passed(cond, "path distance %.2f km meets required %g km", dist, cond.Value)
	}
	return failed(cond, "path distance %.2f km is below required %g km", dist, cond.Value)
}

func (v *GPSValidator) validateTime(path []geo.Point, cond commitment.Condition) commitment.ConditionResult {
	elapsed := geo.ElapsedMinutes(path)
	if elapsed <= 0 {
		return failed(cond, "GPS evidence rejected: path timestamps carry no elapsed time")
	}

	if elapsed <= cond.Value {
		return passed(cond, "elapsed time %.1f min is within required %g min", elapsed, cond.Value)
	}
	return failed(cond, "elapsed time %.1f min exceeds required %g min", elapsed, cond.Value)
}

func (v *GPSValidator) validateSpeed(path []geo.Point, cond commitment.Condition) commitment.ConditionResult {
	speed, err := geo.AverageSpeed(path)
	if err != nil {
		return failed(cond, "GPS evidence rejected: %v", err)
	}

	if speed >= cond.Value {
		return passed(cond, "average speed %.2f km/h meets required %g km/h", speed, cond.Value)
	}
	return failed(cond, "average speed %.2f km/h is below required %g km/h", speed, cond.Value)
}

// validateMode checks what share of the path distance is attributable to the
// declared mode of transport. The segmentation is an approximate per-leg
// speed heuristic, not transport-mode classification; its verdicts are
// best-effort, not proof-grade.
func (v *GPSValidator) validateMode(payload *commitment.GPSPayload, cond commitment.Condition) commitment.ConditionResult {
	mode := payload.Mode
	if mode == "" {
		mode = cond.Target
	}
	if mode == "" {
		return failed(cond, "mode condition has no declared mode of transport")
	}

	share, err := ModeShare(payload.Path, mode)
	if err != nil {
		return failed(cond, "GPS evidence rejected: %v", err)
	}

	sharePct := share * 100
	if sharePct >= cond.Value {
		return passed(cond, "estimated %.0f%% of distance by %s meets required %g%% (approximate)", sharePct, mode, cond.Value)
	}
	return failed(cond, "estimated %.0f%% of distance by %s is below required %g%% (approximate)", sharePct, mode, cond.Value)
}
