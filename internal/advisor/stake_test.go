package advisor

import (
	"strings"
	"testing"

	"github.com/stakeway/stakeway-platform/pkg/commitment"
)

func TestRuleBasedStakeScalesWithSuccessRate(t *testing.T) {
	engine := testEngine(nil)
	req := adviceRequest()

	weak := engine.ruleBasedStake(req, withFailures(historyWithSuccesses(2, 6.0, 6.0), 8))
	strong := engine.ruleBasedStake(req, historyWithSuccesses(10, 6.0, 6.0))

	if weak.Value >= strong.Value {
		t.Errorf("Higher success rate should not lower the stake: weak=%v strong=%v",
			weak.Value, strong.Value)
	}
	if weak.Confidence >= strong.Confidence {
		t.Errorf("Higher success rate should not lower confidence: weak=%v strong=%v",
			weak.Confidence, strong.Confidence)
	}
}

func TestRuleBasedStakePerfectRecord(t *testing.T) {
	engine := testEngine(nil)

	rec := engine.ruleBasedStake(adviceRequest(), historyWithSuccesses(10, 6.0, 6.0))

	// base 25 * (0.5 + 1.0) = 37.50, no context or risk adjustments
	if rec.Value != 37.50 {
		t.Errorf("Expected stake 37.50, got %v", rec.Value)
	}
	if rec.Tier != commitment.TierRuleBased {
		t.Errorf("Expected rule-based tier, got %q", rec.Tier)
	}
}

func TestRuleBasedStakeMultipliers(t *testing.T) {
	tests := []struct {
		name     string
		urgency  string
		ctype    string
		risk     string
		expected float64 // base 37.50 for a perfect 10-commitment record
	}{
		{"high urgency", "high", "", "", 45.00},
		{"low urgency", "low", "", "", 33.75},
		{"route commitment", "", "route", "", 41.25},
		{"low risk tolerance", "", "", "low", 26.25},
		{"high risk tolerance", "", "", "high", 52.50},
		{"stacked", "high", "route", "high", 69.30},
	}

	engine := testEngine(nil)
	hist := historyWithSuccesses(10, 6.0, 6.0)

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := adviceRequest()
			req.Urgency = tt.urgency
			req.CommitmentType = tt.ctype
			req.RiskTolerance = tt.risk

			rec := engine.ruleBasedStake(req, hist)

			if rec.Value != tt.expected {
				t.Errorf("Expected stake %v, got %v", tt.expected, rec.Value)
			}
		})
	}
}

func TestRuleBasedStakeWagerPressure(t *testing.T) {
	engine := testEngine(nil)
	req := adviceRequest()

	losing := historyWithSuccesses(10, 6.0, 6.0)
	losing.Bets = []commitment.BetRecord{
		{CommitmentID: "c-1", Amount: 50, Won: false},
		{CommitmentID: "c-2", Amount: 50, Won: false},
		{CommitmentID: "c-3", Amount: 20, Won: true},
	}

	rec := engine.ruleBasedStake(req, losing)

	// base 37.50 dampened by wager losses: 37.50 * 0.85 = 31.88
	if rec.Value != 31.88 {
		t.Errorf("Expected stake 31.88, got %v", rec.Value)
	}
	if !strings.Contains(rec.Reasoning, "wager losses") {
		t.Errorf("Expected reasoning to name the wager dampener: %q", rec.Reasoning)
	}
}

func TestRuleBasedStakeWagerPressureNeedsBets(t *testing.T) {
	engine := testEngine(nil)
	req := adviceRequest()

	// Two bets is below the sample floor; a winning record never inflates
	for _, bets := range [][]commitment.BetRecord{
		{
			{CommitmentID: "c-1", Amount: 100, Won: false},
			{CommitmentID: "c-2", Amount: 100, Won: false},
		},
		{
			{CommitmentID: "c-1", Amount: 50, Won: true},
			{CommitmentID: "c-2", Amount: 50, Won: true},
			{CommitmentID: "c-3", Amount: 10, Won: false},
		},
	} {
		hist := historyWithSuccesses(10, 6.0, 6.0)
		hist.Bets = bets

		rec := engine.ruleBasedStake(req, hist)
		if rec.Value != 37.50 {
			t.Errorf("Expected unchanged stake 37.50 for bets %+v, got %v", bets, rec.Value)
		}
	}
}

func TestRuleBasedStakeClamped(t *testing.T) {
	engine := testEngine(nil)
	engine.cfg.MaxStake = 40

	rec := engine.ruleBasedStake(commitment.AdviceRequest{
		Urgency:       "high",
		RiskTolerance: "high",
	}, historyWithSuccesses(10, 6.0, 6.0))

	if rec.Value != 40 {
		t.Errorf("Expected stake clamped to 40, got %v", rec.Value)
	}

	engine.cfg.MaxStake = 500
	engine.cfg.MinStake = 20
	rec = engine.ruleBasedStake(commitment.AdviceRequest{
		RiskTolerance: "low",
	}, withFailures(historyWithSuccesses(1, 6.0, 6.0), 9))

	if rec.Value != 20 {
		t.Errorf("Expected stake clamped to 20, got %v", rec.Value)
	}
}

func TestRuleBasedStakeReasoningNamesFactors(t *testing.T) {
	engine := testEngine(nil)
	req := adviceRequest()
	req.Urgency = "high"
	req.RiskTolerance = "low"

	rec := engine.ruleBasedStake(req, historyWithSuccesses(4, 6.0, 6.0))

	for _, want := range []string{"success rate", "high urgency", "low risk tolerance"} {
		if !strings.Contains(rec.Reasoning, want) {
			t.Errorf("Expected reasoning to mention %q: %q", want, rec.Reasoning)
		}
	}
}
