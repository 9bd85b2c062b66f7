package milestone

import "github.com/stakeway/stakeway-platform/pkg/commitment"

// Streaks holds a user's success streak counters.
type Streaks struct {
	Current int `json:"current"`
	Longest int `json:"longest"`
}

// ComputeStreaks derives the current and longest success streaks from a
// chronological history. The current streak is the trailing run of
// successes; it is zero whenever the most recent commitment failed.
func ComputeStreaks(records []commitment.CommitmentRecord) Streaks {
	var streaks Streaks
	var run int

	for _, r := range records {
		if r.Succeeded() {
			run++
			if run > streaks.Longest {
				streaks.Longest = run
			}
		} else {
			run = 0
		}
	}

	streaks.Current = run
	return streaks
}
