package advisor

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"time"

	"github.com/stakeway/stakeway-platform/pkg/analysis"
	"github.com/stakeway/stakeway-platform/pkg/commitment"
	"github.com/stakeway/stakeway-platform/pkg/config"
)

// Cold-start defaults, used when a user has no usable history. Deliberately
// conservative: a small stake, an easy pace and a wide buffer.
const (
	coldStartStake        = 10.0
	coldStartPaceMinPerKm = 8.0
	coldStartBufferMin    = 20.0
	coldStartConfidence   = 0.25
)

// maxConfidence caps every rule-based confidence score.
const maxConfidence = 0.95

// Engine computes stake, pace and time-buffer recommendations from a user's
// historical record. Each quantity follows the same fallback chain:
// external collaborator -> rule-based -> cold-start. Collaborator failures
// are absorbed by falling back a tier; they never surface to the caller.
type Engine struct {
	analysis     analysis.Client // nil disables the external tier
	fingerprints *FingerprintStore
	cfg          *config.Config
	logger       *slog.Logger
	now          func() time.Time
}

// NewEngine creates a recommendation engine. The analysis client and the
// fingerprint store are optional collaborators; either may be nil.
func NewEngine(analysisClient analysis.Client, fingerprints *FingerprintStore, cfg *config.Config, logger *slog.Logger) *Engine {
	return &Engine{
		analysis:     analysisClient,
		fingerprints: fingerprints,
		cfg:          cfg,
		logger:       logger,
		now:          time.Now,
	}
}

// Recommend produces one recommendation for the named quantity
// (stake | pace | time_buffer).
func (e *Engine) Recommend(ctx context.Context, quantity string, req commitment.AdviceRequest, hist commitment.UserHistory) commitment.Recommendation {
	if rec, ok := e.externalTier(ctx, quantity, req, hist); ok {
		return rec
	}

	if hist.CompletedCount() == 0 || hist.SuccessCount() == 0 {
		return e.coldStart(quantity)
	}

	switch quantity {
	case commitment.QuantityStake:
		return e.ruleBasedStake(req, hist)
	case commitment.QuantityPace:
		return e.ruleBasedPace(ctx, req, hist)
	case commitment.QuantityTimeBuffer:
		return e.ruleBasedBuffer(req, hist)
	default:
		return commitment.Recommendation{
			Quantity:   quantity,
			Confidence: 0,
			Reasoning:  fmt.Sprintf("unknown quantity %q", quantity),
			Tier:       commitment.TierRuleBased,
		}
	}
}

// externalTier consults the analysis collaborator when one is configured.
// Unavailable, PaymentRequired and timeouts all fall through silently to the
// rule-based tier.
func (e *Engine) externalTier(ctx context.Context, quantity string, req commitment.AdviceRequest, hist commitment.UserHistory) (commitment.Recommendation, bool) {
	if e.analysis == nil {
		return commitment.Recommendation{}, false
	}

	callCtx, cancel := context.WithTimeout(ctx, e.cfg.AnalysisTimeout())
	defer cancel()

	result, err := e.analysis.Analyze(callCtx, analysis.Request{
		Task:   "recommend_" + quantity,
		Prompt: buildAdvicePrompt(quantity, req, hist),
	})
	if err != nil {
		e.logger.Warn("External recommendation tier failed, falling back",
			"quantity", quantity,
			"user_id", req.UserID,
			"error", err)
		return commitment.Recommendation{}, false
	}

	if result.Value <= 0 || !isFinite(result.Value) {
		e.logger.Warn("External recommendation tier returned unusable value, falling back",
			"quantity", quantity, "value", result.Value)
		return commitment.Recommendation{}, false
	}

	return commitment.Recommendation{
		Quantity:   quantity,
		Value:      result.Value,
		Confidence: math.Min(result.Confidence, maxConfidence),
		Reasoning:  result.Reasoning,
		Tier:       commitment.TierExternal,
		Factors:    []string{"external analysis"},
	}, true
}

// coldStart returns the conservative fixed default for a quantity.
func (e *Engine) coldStart(quantity string) commitment.Recommendation {
	rec := commitment.Recommendation{
		Quantity:   quantity,
		Confidence: coldStartConfidence,
		Tier:       commitment.TierColdStart,
		Factors:    []string{"no usable history"},
	}

	switch quantity {
	case commitment.QuantityStake:
		rec.Value = coldStartStake
		rec.Reasoning = fmt.Sprintf("insufficient history: conservative default stake %.0f", coldStartStake)
	case commitment.QuantityPace:
		rec.Value = coldStartPaceMinPerKm
		rec.Reasoning = fmt.Sprintf("insufficient history: conservative default pace %.1f min/km", coldStartPaceMinPerKm)
	case commitment.QuantityTimeBuffer:
		rec.Value = coldStartBufferMin
		rec.Reasoning = fmt.Sprintf("insufficient history: conservative default buffer %.0f min", coldStartBufferMin)
	default:
		rec.Confidence = 0
		rec.Reasoning = fmt.Sprintf("insufficient history and unknown quantity %q", quantity)
	}

	return rec
}

// buildAdvicePrompt summarizes the request and history for the collaborator.
func buildAdvicePrompt(quantity string, req commitment.AdviceRequest, hist commitment.UserHistory) string {
	var b strings.Builder

	fmt.Fprintf(&b, "You are recommending the %s parameter for a staked location commitment.\n\n", quantity)
	fmt.Fprintf(&b, "REQUEST:\n- distance: %.2f km\n- departure: %s\n- deadline: %s\n- urgency: %s\n- risk tolerance: %s\n- traffic: %s\n- mode: %s\n\n",
		req.DistanceKm,
		req.Departure.Format(time.RFC3339),
		req.Deadline.Format(time.RFC3339),
		orDefault(req.Urgency, "normal"),
		orDefault(req.RiskTolerance, "medium"),
		orDefault(req.Traffic, "moderate"),
		orDefault(req.Mode, "unspecified"))

	fmt.Fprintf(&b, "HISTORY:\n- completed commitments: %d\n- successes: %d\n- success rate: %.2f\n",
		hist.CompletedCount(), hist.SuccessCount(), hist.SuccessRate())

	successes := hist.Successes()
	shown := successes
	if len(shown) > 5 {
		shown = shown[len(shown)-5:]
	}
	for _, r := range shown {
		fmt.Fprintf(&b, "- past success: %.1f km at realized pace %.2f min/km, staked %.0f\n",
			r.EstimatedDistanceKm, r.RealizedPace(), r.StakeAmount)
	}

	b.WriteString(`
Respond with ONLY valid JSON in this exact format:
{
  "value": the recommended number,
  "confidence": 0.0 to 1.0,
  "reasoning": "brief explanation"
}

JSON response:`)

	return b.String()
}

func orDefault(v, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
