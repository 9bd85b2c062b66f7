package scenario

import "time"

// Scenario represents a complete E2E test scenario
type Scenario struct {
	Name         string                   `yaml:"name"`
	Description  string                   `yaml:"description"`
	Setup        SetupConfig              `yaml:"setup"`
	Events       []Event                  `yaml:"events"`
	Wait         []WaitPeriod             `yaml:"wait"`
	Expectations map[string][]Expectation `yaml:"expectations"`
}

// SetupConfig seeds the system state before any event fires. Commitments
// are written to Redis the way the product backend would have created them.
type SetupConfig struct {
	UserID      string                   `yaml:"user_id"`
	Commitments []map[string]interface{} `yaml:"commitments,omitempty"`
}

// Event represents one message published during the test: a proof
// submission, an advice request, or a raw publish to an arbitrary topic.
type Event struct {
	Time         int                    `yaml:"time"`                    // Seconds from start
	Proof        string                 `yaml:"proof,omitempty"`         // "user:commitment" for proof submissions
	AdviceFor    string                 `yaml:"advice_for,omitempty"`    // user id for advice requests
	Topic        string                 `yaml:"topic,omitempty"`         // raw publish topic
	Data         map[string]interface{} `yaml:"data"`                    // message payload
	Description  string                 `yaml:"description"`
}

// Category returns the event category
func (e *Event) Category() string {
	if e.Proof != "" {
		return "proof"
	}
	if e.AdviceFor != "" {
		return "advice"
	}
	return "raw"
}

// WaitPeriod represents a pause in the scenario
type WaitPeriod struct {
	Time        int    `yaml:"time"` // Seconds from start
	Description string `yaml:"description"`
}

// Expectation represents an expected outcome to verify
type Expectation struct {
	Time    int                    `yaml:"time"`    // Seconds from start
	Topic   string                 `yaml:"topic"`   // MQTT topic
	Payload map[string]interface{} `yaml:"payload"` // Expected payload (supports special matchers)

	// Optional: Redis state checks. When redis_field is empty the key is
	// read as a plain string, otherwise as a hash field.
	RedisKey   string `yaml:"redis_key,omitempty"`
	RedisField string `yaml:"redis_field,omitempty"`
	Expected   string `yaml:"expected,omitempty"`

	// Optional: Postgres state checks
	PostgresQuery    string      `yaml:"postgres_query,omitempty"`
	PostgresExpected interface{} `yaml:"postgres_expected,omitempty"`
}

// TestResult represents the outcome of running a scenario
type TestResult struct {
	Scenario     *Scenario
	StartTime    time.Time
	EndTime      time.Time
	Passed       bool
	PassedCount  int
	FailedCount  int
	Expectations []ExpectationResult
}

// ExpectationResult represents the result of checking a single expectation
type ExpectationResult struct {
	Layer         string
	Expectation   Expectation
	Passed        bool
	Reason        string
	ActualTopic   string
	ActualPayload interface{}
}
