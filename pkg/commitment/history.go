package commitment

import "time"

// Outcome of a past commitment.
type Outcome string

const (
	OutcomeSuccess Outcome = "success"
	OutcomeFailure Outcome = "failure"
)

// CommitmentRecord is one entry of a user's historical record, derived from
// confirmed ledger state by the product backend. Pace values are minutes
// per kilometer.
type CommitmentRecord struct {
	ID                  string    `json:"id"`
	Outcome             Outcome   `json:"outcome"`
	EstimatedDistanceKm float64   `json:"estimated_distance_km"`
	EstimatedPace       float64   `json:"estimated_pace"`
	ActualPace          float64   `json:"actual_pace"`
	CommittedDeparture  time.Time `json:"committed_departure"`
	ActualArrival       time.Time `json:"actual_arrival"`
	Deadline            time.Time `json:"deadline"`
	StakeAmount         float64   `json:"stake_amount"`
	Mode                string    `json:"mode,omitempty"`
}

// Succeeded reports whether the commitment was verified successfully.
func (r CommitmentRecord) Succeeded() bool {
	return r.Outcome == OutcomeSuccess
}

// RealizedPace derives the actually achieved pace (minutes per km) from the
// recorded departure/arrival pair. Falls back to the stored ActualPace when
// the record lacks usable timestamps or distance.
func (r CommitmentRecord) RealizedPace() float64 {
	if r.EstimatedDistanceKm <= 0 {
		return r.ActualPace
	}
	elapsed := r.ActualArrival.Sub(r.CommittedDeparture).Minutes()
	if elapsed <= 0 {
		return r.ActualPace
	}
	return elapsed / r.EstimatedDistanceKm
}

// BetRecord is one third-party wager associated with a past commitment.
type BetRecord struct {
	CommitmentID string    `json:"commitment_id"`
	Amount       float64   `json:"amount"`
	Won          bool      `json:"won"`
	PlacedAt     time.Time `json:"placed_at"`
}

// UserHistory is the read-only historical record consumed by the advisor
// and milestone components. Commitments are chronological, most recent last.
type UserHistory struct {
	UserID      string             `json:"user_id"`
	Commitments []CommitmentRecord `json:"commitments"`
	Bets        []BetRecord        `json:"bets,omitempty"`
}

// CompletedCount returns the number of past commitments with an outcome.
func (h UserHistory) CompletedCount() int {
	return len(h.Commitments)
}

// SuccessCount returns the number of successfully verified commitments.
func (h UserHistory) SuccessCount() int {
	count := 0
	for _, r := range h.Commitments {
		if r.Succeeded() {
			count++
		}
	}
	return count
}

// SuccessRate returns the fraction of completed commitments that succeeded,
// 0 when the history is empty.
func (h UserHistory) SuccessRate() float64 {
	if len(h.Commitments) == 0 {
		return 0
	}
	return float64(h.SuccessCount()) / float64(len(h.Commitments))
}

// Successes returns the successful commitments in chronological order.
func (h UserHistory) Successes() []CommitmentRecord {
	var successes []CommitmentRecord
	for _, r := range h.Commitments {
		if r.Succeeded() {
			successes = append(successes, r)
		}
	}
	return successes
}
