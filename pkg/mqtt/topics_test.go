package mqtt

import "testing"

func TestProofTopicRoundTrip(t *testing.T) {
	topic := ProofTopic("user-42", "c-abc")
	if topic != "commitments/proof/user-42/c-abc" {
		t.Errorf("Unexpected topic: %s", topic)
	}

	userID, commitmentID, err := ParseProofTopic(topic)
	if err != nil {
		t.Fatalf("ParseProofTopic returned error: %v", err)
	}
	if userID != "user-42" || commitmentID != "c-abc" {
		t.Errorf("Expected user-42/c-abc, got %s/%s", userID, commitmentID)
	}
}

func TestParseProofTopic_Malformed(t *testing.T) {
	cases := []string{
		"commitments/proof/user-42",
		"commitments/outcome/user-42/c-abc",
		"automation/proof/user-42/c-abc",
		"commitments/proof//c-abc",
	}

	for _, topic := range cases {
		if _, _, err := ParseProofTopic(topic); err == nil {
			t.Errorf("Expected error for topic %q", topic)
		}
	}
}

func TestParseAdviceRequestTopic(t *testing.T) {
	userID, err := ParseAdviceRequestTopic(AdviceRequestTopic("user-7"))
	if err != nil {
		t.Fatalf("ParseAdviceRequestTopic returned error: %v", err)
	}
	if userID != "user-7" {
		t.Errorf("Expected user-7, got %s", userID)
	}

	if _, err := ParseAdviceRequestTopic("commitments/advice/user-7"); err == nil {
		t.Error("Expected error for response topic passed as request topic")
	}
}
