package milestone

import "github.com/stakeway/stakeway-platform/pkg/commitment"

// UserStats aggregates a user's history into the figures achievement
// predicates judge against.
type UserStats struct {
	TotalCompleted  int
	SuccessCount    int
	SuccessRate     float64
	CurrentStreak   int
	LongestStreak   int
	TotalStaked     float64
	TotalDistanceKm float64
	DistinctModes   int
}

// BuildStats computes UserStats from a chronological history.
func BuildStats(records []commitment.CommitmentRecord) UserStats {
	streaks := ComputeStreaks(records)

	stats := UserStats{
		TotalCompleted: len(records),
		CurrentStreak:  streaks.Current,
		LongestStreak:  streaks.Longest,
	}

	modes := make(map[string]bool)
	for _, r := range records {
		if r.Succeeded() {
			stats.SuccessCount++
			stats.TotalDistanceKm += r.EstimatedDistanceKm
		}
		stats.TotalStaked += r.StakeAmount
		if r.Mode != "" {
			modes[r.Mode] = true
		}
	}

	stats.DistinctModes = len(modes)
	if stats.TotalCompleted > 0 {
		stats.SuccessRate = float64(stats.SuccessCount) / float64(stats.TotalCompleted)
	}

	return stats
}

// Definition is one achievement in the catalog: an id and a pure predicate
// over user stats.
type Definition struct {
	ID          string
	Description string
	Unlocked    func(UserStats) bool
}

// Catalog is the fixed set of achievements the milestone agent evaluates.
// Order determines emission order for simultaneous unlocks.
var Catalog = []Definition{
	{
		ID:          "first_commitment",
		Description: "Complete your first commitment",
		Unlocked:    func(s UserStats) bool { return s.SuccessCount >= 1 },
	},
	{
		ID:          "streak_5",
		Description: "Succeed at 5 commitments in a row",
		Unlocked:    func(s UserStats) bool { return s.LongestStreak >= 5 },
	},
	{
		ID:          "streak_10",
		Description: "Succeed at 10 commitments in a row",
		Unlocked:    func(s UserStats) bool { return s.LongestStreak >= 10 },
	},
	{
		ID:          "consistency_80",
		Description: "Hold an 80% success rate over at least 5 commitments",
		Unlocked:    func(s UserStats) bool { return s.TotalCompleted >= 5 && s.SuccessRate >= 0.8 },
	},
	{
		ID:          "century_distance",
		Description: "Cover 100 km across successful commitments",
		Unlocked:    func(s UserStats) bool { return s.TotalDistanceKm >= 100 },
	},
	{
		ID:          "high_roller",
		Description: "Stake a cumulative 1000 across commitments",
		Unlocked:    func(s UserStats) bool { return s.TotalStaked >= 1000 },
	},
	{
		ID:          "multimodal",
		Description: "Complete commitments in 3 different travel modes",
		Unlocked:    func(s UserStats) bool { return s.DistinctModes >= 3 },
	},
}

// Evaluate returns the ids of achievements newly unlocked by the given
// stats. Ids present in already are skipped: unlocking is one-way, an
// achievement once earned is never re-emitted or revoked even if the stats
// later drop below its threshold.
func Evaluate(stats UserStats, already map[string]bool) []string {
	var unlocked []string
	for _, def := range Catalog {
		if already[def.ID] {
			continue
		}
		if def.Unlocked(stats) {
			unlocked = append(unlocked, def.ID)
		}
	}
	return unlocked
}
