package commitment

import (
	"encoding/json"
	"errors"
	"time"
)

// Sentinel errors for the verification core.
//
// ErrMalformedPayload and geometry problems surface to callers as failed
// condition results, never as errors past the aggregator. ErrUnknownMethod
// is a configuration defect and is surfaced loudly.
var (
	ErrMalformedPayload = errors.New("malformed proof payload")
	ErrUnknownMethod    = errors.New("unknown verification method")
)

// ConditionKind identifies what a condition measures.
type ConditionKind string

const (
	KindDistance ConditionKind = "distance"
	KindTime     ConditionKind = "time"
	KindMode     ConditionKind = "mode"
	KindProof    ConditionKind = "proof"
	KindBehavior ConditionKind = "behavior"
	KindLocation ConditionKind = "location"
	KindSpeed    ConditionKind = "speed"
)

// Method identifies the evidence-kind-specific verification procedure.
type Method string

const (
	MethodGPS    Method = "gps"
	MethodPhoto  Method = "photo"
	MethodVideo  Method = "video"
	MethodManual Method = "manual"
	MethodAI     Method = "ai"
)

// ProofKind identifies the evidence type of a submission.
type ProofKind string

const (
	ProofPhoto      ProofKind = "photo"
	ProofVideo      ProofKind = "video"
	ProofGPS        ProofKind = "gps"
	ProofDocument   ProofKind = "document"
	ProofAIVerified ProofKind = "ai_verified"
)

// Status is the lifecycle state of a commitment.
type Status string

const (
	StatusPending    Status = "pending"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
	StatusVerified   Status = "verified"
)

// Condition is one measurable requirement attached to a commitment.
// Conditions are immutable once the commitment is created.
type Condition struct {
	Kind        ConditionKind `json:"kind"`
	Value       float64       `json:"value"`
	Unit        string        `json:"unit,omitempty"`
	Target      string        `json:"target,omitempty"` // mode name, location label, behavior hint
	Description string        `json:"description"`
	Method      Method        `json:"verification_method"`
	Required    bool          `json:"required"`
}

// ProofSubmission is one piece of evidence submitted during commitment
// execution. The payload is opaque per kind and decoded by the matching
// validator. Only the verification aggregator sets Verified.
type ProofSubmission struct {
	ID          string          `json:"id"`
	Kind        ProofKind       `json:"kind"`
	Payload     json.RawMessage `json:"payload"`
	SubmittedAt time.Time       `json:"submitted_at"`
	Verified    bool            `json:"verified"`
	VerifierID  string          `json:"verifier_id,omitempty"`
	Notes       string          `json:"notes,omitempty"`
}

// Commitment is a user's staked pledge to satisfy a set of conditions by a
// deadline. Serialization of status transitions is the store's concern,
// not the core's.
type Commitment struct {
	ID               string            `json:"id"`
	UserID           string            `json:"user_id"`
	Conditions       []Condition       `json:"conditions"`
	ProofSubmissions []ProofSubmission `json:"proof_submissions,omitempty"`
	Status           Status            `json:"status"`
	Deadline         time.Time         `json:"deadline"`
	StakeAmount      float64           `json:"stake_amount"`
}

// RequiredConditions returns the subset of conditions flagged required.
func (c *Commitment) RequiredConditions() []Condition {
	var required []Condition
	for _, cond := range c.Conditions {
		if cond.Required {
			required = append(required, cond)
		}
	}
	return required
}

// ConditionResult is the verdict of one validator against one condition.
type ConditionResult struct {
	Condition Condition `json:"condition"`
	Met       bool      `json:"met"`
	Message   string    `json:"message"`
}

// VerificationResult is the aggregate verdict for a commitment. It is a pure
// value; persistence is an external collaborator's job.
type VerificationResult struct {
	Success            bool     `json:"success"`
	Message            string   `json:"message"`
	VerifiedConditions []string `json:"verified_condition_descriptions"`
	FailedConditions   []string `json:"failed_condition_descriptions"`
}

// Recommendation quantities.
const (
	QuantityStake      = "stake"
	QuantityPace       = "pace"
	QuantityTimeBuffer = "time_buffer"
)

// Recommendation tiers, named after the fallback level that produced the
// number.
const (
	TierExternal  = "external"
	TierRuleBased = "rule_based"
	TierColdStart = "cold_start"
)

// Recommendation is one suggested numeric parameter. Reasoning is a hard
// requirement: a user must be able to see why the number was suggested.
type Recommendation struct {
	Quantity   string   `json:"quantity"`
	Value      float64  `json:"value"`
	Confidence float64  `json:"confidence"`
	Reasoning  string   `json:"reasoning"`
	Tier       string   `json:"tier"`
	Factors    []string `json:"factors,omitempty"`
}

// Achievement is an unlocked milestone. Unlocking is idempotent.
type Achievement struct {
	ID         string    `json:"id"`
	UnlockedAt time.Time `json:"unlocked_at"`
}
