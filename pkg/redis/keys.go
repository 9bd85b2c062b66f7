package redis

import "fmt"

// Key construction helpers for the commitment hot-state schema.

// CommitmentKey returns the key for a commitment document (string, JSON).
// Written by the product API, consumed by the verifier agent.
// Pattern: commitment:{commitment_id}
func CommitmentKey(commitmentID string) string {
	return fmt.Sprintf("commitment:%s", commitmentID)
}

// VerificationKey returns the key for a cached verification result (string, JSON).
// Pattern: verification:{commitment_id}
func VerificationKey(commitmentID string) string {
	return fmt.Sprintf("verification:%s", commitmentID)
}

// AdviceKey returns the key for a cached recommendation (string, JSON, TTL).
// Pattern: advice:{user_id}:{quantity}
func AdviceKey(userID, quantity string) string {
	return fmt.Sprintf("advice:%s:%s", userID, quantity)
}

// StreakKey returns the key for a user's streak counters (hash).
// Pattern: streak:{user_id}
func StreakKey(userID string) string {
	return fmt.Sprintf("streak:%s", userID)
}

// ProofSeenKey returns the dedup marker key for a processed submission.
// Pattern: proofseen:{commitment_id}:{submission_id}
func ProofSeenKey(commitmentID, submissionID string) string {
	return fmt.Sprintf("proofseen:%s:%s", commitmentID, submissionID)
}
