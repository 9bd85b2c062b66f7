package milestone

import (
	"testing"

	"github.com/stakeway/stakeway-platform/pkg/commitment"
)

// historyFromPattern builds a chronological history from a pattern string,
// 'S' for success and 'F' for failure.
func historyFromPattern(pattern string) []commitment.CommitmentRecord {
	var records []commitment.CommitmentRecord
	for i, c := range pattern {
		outcome := commitment.OutcomeFailure
		if c == 'S' {
			outcome = commitment.OutcomeSuccess
		}
		records = append(records, commitment.CommitmentRecord{
			ID:      "c-" + string(rune('a'+i)),
			Outcome: outcome,
		})
	}
	return records
}

func TestComputeStreaks(t *testing.T) {
	tests := []struct {
		name    string
		pattern string
		current int
		longest int
	}{
		{"empty history", "", 0, 0},
		{"single success", "S", 1, 1},
		{"single failure", "F", 0, 0},
		{"all successes", "SSSSS", 5, 5},
		{"failure resets current", "SSSF", 0, 3},
		{"trailing run after failure", "SSSFSSSSSS", 6, 6},
		{"longest in the middle", "SSSSSFSS", 2, 5},
		{"alternating", "SFSFSF", 0, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			streaks := ComputeStreaks(historyFromPattern(tt.pattern))

			if streaks.Current != tt.current {
				t.Errorf("Expected current streak %d, got %d", tt.current, streaks.Current)
			}
			if streaks.Longest != tt.longest {
				t.Errorf("Expected longest streak %d, got %d", tt.longest, streaks.Longest)
			}
		})
	}
}

func TestComputeStreaksNineOfTen(t *testing.T) {
	// 10 commitments, 9 successes, the one failure 4 from the end.
	streaks := ComputeStreaks(historyFromPattern("SSSFSSSSSS"))

	if streaks.Current != 6 {
		t.Errorf("Expected current streak 6, got %d", streaks.Current)
	}
}
