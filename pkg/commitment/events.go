package commitment

import "time"

// OutcomeEvent is published by the verifier agent after judging a submission
// and consumed by the milestone agent.
type OutcomeEvent struct {
	EventID      string             `json:"event_id"`
	CommitmentID string             `json:"commitment_id"`
	UserID       string             `json:"user_id"`
	SubmissionID string             `json:"submission_id"`
	Status       Status             `json:"status"`
	Result       VerificationResult `json:"result"`
	Timestamp    time.Time          `json:"timestamp"`
}

// AdviceRequest asks the advisor agent for recommendations before a
// commitment is created. Quantities lists which numbers the caller wants;
// empty means all of them.
type AdviceRequest struct {
	RequestID      string    `json:"request_id"`
	UserID         string    `json:"user_id"`
	Quantities     []string  `json:"quantities,omitempty"`
	DistanceKm     float64   `json:"distance_km"`
	Departure      time.Time `json:"departure"`
	Deadline       time.Time `json:"deadline"`
	Urgency        string    `json:"urgency,omitempty"`         // low|normal|high
	CommitmentType string    `json:"commitment_type,omitempty"` // arrival|route
	RiskTolerance  string    `json:"risk_tolerance,omitempty"`  // low|medium|high
	Traffic        string    `json:"traffic,omitempty"`         // light|moderate|heavy
	Mode           string    `json:"mode,omitempty"`
	Lat            float64   `json:"lat,omitempty"`
	Lng            float64   `json:"lng,omitempty"`
}

// AdviceResponse carries the recommendations back to the requester.
type AdviceResponse struct {
	RequestID       string           `json:"request_id"`
	UserID          string           `json:"user_id"`
	Recommendations []Recommendation `json:"recommendations"`
	Timestamp       time.Time        `json:"timestamp"`
}

// AchievementEvent is published by the milestone agent for each new unlock.
type AchievementEvent struct {
	EventID       string    `json:"event_id"`
	UserID        string    `json:"user_id"`
	AchievementID string    `json:"achievement_id"`
	UnlockedAt    time.Time `json:"unlocked_at"`
	CurrentStreak int       `json:"current_streak"`
	LongestStreak int       `json:"longest_streak"`
}
