package advisor

import (
	"fmt"
	"math"
	"strings"

	"github.com/stakeway/stakeway-platform/pkg/commitment"
)

// ruleBasedStake computes
//
//	stake = clamp(baseBySuccessRate * contextMultiplier * riskMultiplier, min, max)
//
// where the base scales linearly with the user's success rate from half to
// one-and-a-half times the configured base stake. Confidence grows with both
// sample size and success rate, capped at 0.95.
func (e *Engine) ruleBasedStake(req commitment.AdviceRequest, hist commitment.UserHistory) commitment.Recommendation {
	successRate := hist.SuccessRate()
	completed := hist.CompletedCount()

	base := e.cfg.BaseStake * (0.5 + successRate)

	contextMult, contextFactors := stakeContextMultiplier(req)
	riskMult, riskFactor := riskMultiplier(req.RiskTolerance)
	wagerMult, wagerFactor := wagerMultiplier(hist.Bets)

	stake := clamp(base*contextMult*riskMult*wagerMult, e.cfg.MinStake, e.cfg.MaxStake)

	confidence := math.Min(maxConfidence,
		0.35+0.04*math.Min(float64(completed), 10)+0.2*successRate)

	factors := append([]string{
		fmt.Sprintf("success rate %.0f%% over %d commitments", successRate*100, completed),
	}, contextFactors...)
	factors = append(factors, riskFactor)
	if wagerFactor != "" {
		factors = append(factors, wagerFactor)
	}

	return commitment.Recommendation{
		Quantity:   commitment.QuantityStake,
		Value:      round2(stake),
		Confidence: confidence,
		Reasoning:  fmt.Sprintf("stake %.2f from base %.2f: %s", stake, base, strings.Join(factors, "; ")),
		Tier:       commitment.TierRuleBased,
		Factors:    factors,
	}
}

// stakeContextMultiplier scales the stake for urgency and commitment type.
func stakeContextMultiplier(req commitment.AdviceRequest) (float64, []string) {
	mult := 1.0
	var factors []string

	switch req.Urgency {
	case "high":
		mult *= 1.2
		factors = append(factors, "high urgency (x1.20)")
	case "low":
		mult *= 0.9
		factors = append(factors, "low urgency (x0.90)")
	}

	if req.CommitmentType == "route" {
		mult *= 1.1
		factors = append(factors, "route commitment (x1.10)")
	}

	return mult, factors
}

// wagerMultiplier dampens the stake when the user's recorded bets have lost
// more than they won. The dampener is one-sided: a winning betting record
// never inflates the recommendation.
func wagerMultiplier(bets []commitment.BetRecord) (float64, string) {
	if len(bets) < 3 {
		return 1.0, ""
	}

	var won, lost float64
	for _, b := range bets {
		if b.Won {
			won += b.Amount
		} else {
			lost += b.Amount
		}
	}

	if lost > won {
		return 0.85, fmt.Sprintf("recent wager losses %.0f vs %.0f won (x0.85)", lost, won)
	}
	return 1.0, ""
}

// riskMultiplier maps the user's stated risk tolerance to a scale factor.
func riskMultiplier(tolerance string) (float64, string) {
	switch tolerance {
	case "low":
		return 0.7, "low risk tolerance (x0.70)"
	case "high":
		return 1.4, "high risk tolerance (x1.40)"
	default:
		return 1.0, "medium risk tolerance (x1.00)"
	}
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
