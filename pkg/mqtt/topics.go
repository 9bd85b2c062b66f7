package mqtt

import (
	"fmt"
	"strings"
)

// Topic constants for the commitment event bus.
const (
	// Proof submission intake (input to the verifier agent)
	TopicProofSubmissions = "commitments/proof/+/+"

	// Verification outcomes (verifier output, milestone input)
	TopicOutcomes = "commitments/outcome/+/+"

	// Recommendation request/response
	TopicAdviceRequests = "commitments/advice/request/+"

	// Achievement unlock events
	TopicAchievements = "commitments/achievement/+"
)

// ProofTopic constructs the intake topic for one submission
// Pattern: commitments/proof/{user_id}/{commitment_id}
func ProofTopic(userID, commitmentID string) string {
	return fmt.Sprintf("commitments/proof/%s/%s", userID, commitmentID)
}

// OutcomeTopic constructs the outcome topic for one commitment
// Pattern: commitments/outcome/{user_id}/{commitment_id}
func OutcomeTopic(userID, commitmentID string) string {
	return fmt.Sprintf("commitments/outcome/%s/%s", userID, commitmentID)
}

// AdviceRequestTopic constructs the recommendation request topic for a user
// Pattern: commitments/advice/request/{user_id}
func AdviceRequestTopic(userID string) string {
	return fmt.Sprintf("commitments/advice/request/%s", userID)
}

// AdviceTopic constructs the recommendation response topic for a user
// Pattern: commitments/advice/{user_id}
func AdviceTopic(userID string) string {
	return fmt.Sprintf("commitments/advice/%s", userID)
}

// AchievementTopic constructs the unlock event topic for a user
// Pattern: commitments/achievement/{user_id}
func AchievementTopic(userID string) string {
	return fmt.Sprintf("commitments/achievement/%s", userID)
}

// ParseProofTopic extracts user and commitment IDs from a proof topic
func ParseProofTopic(topic string) (userID, commitmentID string, err error) {
	return parseUserCommitmentTopic(topic, "proof")
}

// ParseOutcomeTopic extracts user and commitment IDs from an outcome topic
func ParseOutcomeTopic(topic string) (userID, commitmentID string, err error) {
	return parseUserCommitmentTopic(topic, "outcome")
}

// ParseAdviceRequestTopic extracts the user ID from an advice request topic
func ParseAdviceRequestTopic(topic string) (string, error) {
	parts := strings.Split(topic, "/")
	if len(parts) != 4 || parts[0] != "commitments" || parts[1] != "advice" || parts[2] != "request" {
		return "", fmt.Errorf("unexpected advice request topic: %s", topic)
	}
	if parts[3] == "" {
		return "", fmt.Errorf("advice request topic missing user id: %s", topic)
	}
	return parts[3], nil
}

func parseUserCommitmentTopic(topic, segment string) (string, string, error) {
	parts := strings.Split(topic, "/")
	if len(parts) != 4 || parts[0] != "commitments" || parts[1] != segment {
		return "", "", fmt.Errorf("unexpected %s topic: %s", segment, topic)
	}
	if parts[2] == "" || parts[3] == "" {
		return "", "", fmt.Errorf("%s topic missing ids: %s", segment, topic)
	}
	return parts[2], parts[3], nil
}
