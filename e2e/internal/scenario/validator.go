package scenario

import (
	"fmt"
	"strings"
)

// ValidateScenario performs validation checks on a loaded scenario
func ValidateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("scenario name is required")
	}

	if s.Description == "" {
		return fmt.Errorf("scenario description is required")
	}

	if s.Setup.UserID == "" {
		return fmt.Errorf("setup.user_id is required")
	}

	for i, c := range s.Setup.Commitments {
		if _, ok := c["id"]; !ok {
			return fmt.Errorf("setup commitment %d: id is required", i)
		}
	}

	if err := validateEvents(s.Events); err != nil {
		return fmt.Errorf("events validation failed: %w", err)
	}

	if err := validateWaitPeriods(s.Wait); err != nil {
		return fmt.Errorf("wait periods validation failed: %w", err)
	}

	if err := validateExpectations(s.Expectations); err != nil {
		return fmt.Errorf("expectations validation failed: %w", err)
	}

	return nil
}

func validateEvents(events []Event) error {
	if len(events) == 0 {
		return fmt.Errorf("at least one event is required")
	}

	for i, event := range events {
		if event.Time < 0 {
			return fmt.Errorf("event %d: time cannot be negative", i)
		}

		if event.Description == "" {
			return fmt.Errorf("event %d: description is required", i)
		}

		// Exactly one of proof / advice_for / topic
		set := 0
		if event.Proof != "" {
			set++
			if !strings.Contains(event.Proof, ":") {
				return fmt.Errorf("event %d: proof must be user:commitment", i)
			}
		}
		if event.AdviceFor != "" {
			set++
		}
		if event.Topic != "" {
			set++
		}
		if set != 1 {
			return fmt.Errorf("event %d: exactly one of 'proof', 'advice_for' or 'topic' is required", i)
		}

		if len(event.Data) == 0 {
			return fmt.Errorf("event %d: data is required", i)
		}
	}

	return nil
}

func validateWaitPeriods(waits []WaitPeriod) error {
	for i, wait := range waits {
		if wait.Time < 0 {
			return fmt.Errorf("wait period %d: time cannot be negative", i)
		}

		if wait.Description == "" {
			return fmt.Errorf("wait period %d: description is required", i)
		}
	}

	return nil
}

func validateExpectations(expectations map[string][]Expectation) error {
	if len(expectations) == 0 {
		return fmt.Errorf("at least one expectation is required")
	}

	for layer, exps := range expectations {
		if layer == "" {
			return fmt.Errorf("expectation layer name cannot be empty")
		}

		for i, exp := range exps {
			if exp.Time < 0 {
				return fmt.Errorf("layer %s, expectation %d: time cannot be negative", layer, i)
			}

			if exp.Topic == "" && exp.RedisKey == "" && exp.PostgresQuery == "" {
				return fmt.Errorf("layer %s, expectation %d: topic, redis_key or postgres_query is required", layer, i)
			}

			if exp.Topic != "" && len(exp.Payload) == 0 {
				return fmt.Errorf("layer %s, expectation %d: MQTT expectations require a payload", layer, i)
			}

			if exp.RedisKey != "" && exp.Expected == "" {
				return fmt.Errorf("layer %s, expectation %d: expected is required when redis_key is specified", layer, i)
			}

			if exp.PostgresQuery != "" && exp.PostgresExpected == nil {
				return fmt.Errorf("layer %s, expectation %d: postgres_expected is required when postgres_query is specified", layer, i)
			}
		}
	}

	return nil
}
