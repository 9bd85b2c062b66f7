package scenario

import (
	"strings"
	"testing"
)

const validScenario = `
name: proof-happy-path
description: verify a GPS proof end to end
setup:
  user_id: user-1
  commitments:
    - id: c-1
      status: in_progress
events:
  - time: 1
    proof: "user-1:c-1"
    description: submit proof
    data:
      kind: gps
expectations:
  verifier:
    - time: 5
      topic: commitments/outcome/user-1/c-1
      payload:
        status: verified
`

func TestLoadScenarioFromBytes(t *testing.T) {
	scen, err := LoadScenarioFromBytes([]byte(validScenario))
	if err != nil {
		t.Fatalf("Expected valid scenario, got error: %v", err)
	}

	if scen.Name != "proof-happy-path" {
		t.Errorf("Expected name proof-happy-path, got %q", scen.Name)
	}
	if len(scen.Events) != 1 || scen.Events[0].Category() != "proof" {
		t.Errorf("Expected one proof event, got %+v", scen.Events)
	}
}

func TestValidateScenarioRejections(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Scenario)
		wantErr string
	}{
		{"missing user", func(s *Scenario) { s.Setup.UserID = "" }, "user_id"},
		{"no events", func(s *Scenario) { s.Events = nil }, "at least one event"},
		{"bad proof ref", func(s *Scenario) { s.Events[0].Proof = "no-colon" }, "user:commitment"},
		{"ambiguous event", func(s *Scenario) { s.Events[0].AdviceFor = "user-1" }, "exactly one"},
		{"no expectations", func(s *Scenario) { s.Expectations = nil }, "at least one expectation"},
		{"topic without payload", func(s *Scenario) {
			s.Expectations["verifier"][0].Payload = nil
		}, "require a payload"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			scen, err := LoadScenarioFromBytes([]byte(validScenario))
			if err != nil {
				t.Fatalf("Base scenario should be valid: %v", err)
			}

			tt.mutate(scen)

			err = ValidateScenario(scen)
			if err == nil {
				t.Fatal("Expected validation error, got nil")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Expected error containing %q, got %q", tt.wantErr, err.Error())
			}
		})
	}
}
