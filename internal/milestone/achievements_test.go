package milestone

import "testing"

func containsID(ids []string, id string) bool {
	for _, candidate := range ids {
		if candidate == id {
			return true
		}
	}
	return false
}

func TestBuildStats(t *testing.T) {
	records := historyFromPattern("SSFSS")
	for i := range records {
		records[i].EstimatedDistanceKm = 10
		records[i].StakeAmount = 50
	}
	records[0].Mode = "walk"
	records[1].Mode = "cycle"
	records[2].Mode = "walk"

	stats := BuildStats(records)

	if stats.TotalCompleted != 5 {
		t.Errorf("Expected 5 completed, got %d", stats.TotalCompleted)
	}
	if stats.SuccessCount != 4 {
		t.Errorf("Expected 4 successes, got %d", stats.SuccessCount)
	}
	if stats.SuccessRate != 0.8 {
		t.Errorf("Expected success rate 0.8, got %v", stats.SuccessRate)
	}
	if stats.CurrentStreak != 2 || stats.LongestStreak != 2 {
		t.Errorf("Expected streaks 2/2, got %d/%d", stats.CurrentStreak, stats.LongestStreak)
	}
	if stats.TotalDistanceKm != 40 {
		t.Errorf("Expected 40 km over successes, got %v", stats.TotalDistanceKm)
	}
	if stats.TotalStaked != 250 {
		t.Errorf("Expected 250 staked, got %v", stats.TotalStaked)
	}
	if stats.DistinctModes != 2 {
		t.Errorf("Expected 2 distinct modes, got %d", stats.DistinctModes)
	}
}

func TestEvaluateCatalog(t *testing.T) {
	tests := []struct {
		name     string
		stats    UserStats
		unlocked []string
		locked   []string
	}{
		{
			name:     "first success",
			stats:    UserStats{TotalCompleted: 1, SuccessCount: 1, SuccessRate: 1, CurrentStreak: 1, LongestStreak: 1},
			unlocked: []string{"first_commitment"},
			locked:   []string{"streak_5", "consistency_80"},
		},
		{
			name:     "five in a row",
			stats:    UserStats{TotalCompleted: 5, SuccessCount: 5, SuccessRate: 1, CurrentStreak: 5, LongestStreak: 5},
			unlocked: []string{"first_commitment", "streak_5", "consistency_80"},
			locked:   []string{"streak_10"},
		},
		{
			name:     "high rate but thin history",
			stats:    UserStats{TotalCompleted: 3, SuccessCount: 3, SuccessRate: 1, LongestStreak: 3},
			locked:   []string{"consistency_80"},
		},
		{
			name:     "long distance multimodal",
			stats:    UserStats{TotalCompleted: 20, SuccessCount: 15, SuccessRate: 0.75, TotalDistanceKm: 120, DistinctModes: 3},
			unlocked: []string{"century_distance", "multimodal"},
			locked:   []string{"consistency_80"},
		},
		{
			name:     "big spender",
			stats:    UserStats{TotalCompleted: 10, SuccessCount: 8, SuccessRate: 0.8, TotalStaked: 1200},
			unlocked: []string{"high_roller", "consistency_80"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ids := Evaluate(tt.stats, nil)

			for _, want := range tt.unlocked {
				if !containsID(ids, want) {
					t.Errorf("Expected %s to unlock, got %v", want, ids)
				}
			}
			for _, notWant := range tt.locked {
				if containsID(ids, notWant) {
					t.Errorf("Expected %s to stay locked, got %v", notWant, ids)
				}
			}
		})
	}
}

func TestEvaluateSkipsAlreadyUnlocked(t *testing.T) {
	stats := UserStats{TotalCompleted: 5, SuccessCount: 5, SuccessRate: 1, CurrentStreak: 5, LongestStreak: 5}

	first := Evaluate(stats, nil)
	if !containsID(first, "streak_5") {
		t.Fatalf("Expected streak_5 in first evaluation, got %v", first)
	}

	already := make(map[string]bool)
	for _, id := range first {
		already[id] = true
	}

	second := Evaluate(stats, already)
	if len(second) != 0 {
		t.Errorf("Re-evaluating unchanged stats must unlock nothing, got %v", second)
	}
}

func TestEvaluateIsOneWay(t *testing.T) {
	// A streak_5 holder whose stats later drop below the threshold keeps
	// the achievement and never re-earns it.
	already := map[string]bool{"first_commitment": true, "streak_5": true}
	dropped := UserStats{TotalCompleted: 20, SuccessCount: 8, SuccessRate: 0.4, CurrentStreak: 0, LongestStreak: 2}

	ids := Evaluate(dropped, already)

	if containsID(ids, "streak_5") {
		t.Errorf("streak_5 must not be re-emitted, got %v", ids)
	}
}

func TestEvaluateFromHistory(t *testing.T) {
	// 10 commitments, 9 successes ending on a 6-streak: streak_5 unlocks,
	// streak_10 stays locked, consistency_80 unlocks at a 90% rate.
	stats := BuildStats(historyFromPattern("SSSFSSSSSS"))

	ids := Evaluate(stats, nil)

	for _, want := range []string{"first_commitment", "streak_5", "consistency_80"} {
		if !containsID(ids, want) {
			t.Errorf("Expected %s to unlock, got %v", want, ids)
		}
	}
	if containsID(ids, "streak_10") {
		t.Errorf("Expected streak_10 to stay locked, got %v", ids)
	}
}
