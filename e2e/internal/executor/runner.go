package executor

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sort"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/stakeway/stakeway-platform/e2e/internal/checker"
	"github.com/stakeway/stakeway-platform/e2e/internal/observer"
	"github.com/stakeway/stakeway-platform/e2e/internal/reporter"
	"github.com/stakeway/stakeway-platform/e2e/internal/scenario"
)

// Runner orchestrates test scenario execution against a running agent stack
type Runner struct {
	mqttBroker      string
	redisHost       string
	postgresConnStr string
	logger          *log.Logger
	observer        *observer.Observer
	player          *MQTTPlayer
	redisClient     *redis.Client
	postgresChecker *checker.PostgresChecker
}

// NewRunner creates a new test runner. postgresConnStr may be empty when
// the scenario has no database expectations.
func NewRunner(mqttBroker, redisHost, postgresConnStr string, logger *log.Logger) *Runner {
	if logger == nil {
		logger = log.Default()
	}

	return &Runner{
		mqttBroker:      mqttBroker,
		redisHost:       redisHost,
		postgresConnStr: postgresConnStr,
		logger:          logger,
	}
}

// Run executes a test scenario
func (r *Runner) Run(ctx context.Context, s *scenario.Scenario) (*scenario.TestResult, []reporter.TimelineEvent, error) {
	r.logger.Printf("Starting scenario: %s", s.Name)
	r.logger.Printf("Description: %s", s.Description)

	if err := r.initialize(); err != nil {
		return nil, nil, fmt.Errorf("initialization failed: %w", err)
	}
	defer r.cleanup()

	// Seed commitments before the agents see any traffic
	if err := r.seedSetup(ctx, s.Setup); err != nil {
		return nil, nil, fmt.Errorf("setup seeding failed: %w", err)
	}

	// Wait for agents to start up
	r.logger.Printf("Waiting 5 seconds for agents to start up...")
	time.Sleep(5 * time.Second)

	if err := r.observer.Start(); err != nil {
		return nil, nil, fmt.Errorf("failed to start observer: %w", err)
	}

	startTime := time.Now()
	var timelineEvents []reporter.TimelineEvent

	// Execute events
	for _, event := range s.Events {
		WaitUntil(startTime, event.Time)
		elapsed := GetElapsed(startTime)

		r.logger.Printf("[%.2fs] Publishing event: %s", elapsed, event.Description)

		var err error
		switch event.Category() {
		case "proof":
			err = r.player.PublishProof(event)
		case "advice":
			err = r.player.PublishAdviceRequest(event)
		case "raw":
			err = r.player.PublishRaw(event)
		default:
			err = fmt.Errorf("unknown event category")
		}

		if err != nil {
			return nil, nil, fmt.Errorf("failed to publish event: %w", err)
		}

		timelineEvents = append(timelineEvents, reporter.TimelineEvent{
			Elapsed:     elapsed,
			Layer:       event.Category(),
			Description: event.Description,
			IsCheck:     false,
		})
	}

	// Execute wait periods
	for _, wait := range s.Wait {
		WaitUntil(startTime, wait.Time)
		elapsed := GetElapsed(startTime)

		r.logger.Printf("[%.2fs] Wait: %s", elapsed, wait.Description)

		timelineEvents = append(timelineEvents, reporter.TimelineEvent{
			Elapsed:     elapsed,
			Layer:       "wait",
			Description: fmt.Sprintf("%s (%.1fs)", wait.Description, float64(wait.Time)),
			IsCheck:     false,
		})
	}

	// Check expectations in time order across layers
	type layerExp struct {
		layer string
		exp   scenario.Expectation
	}
	var allExpectations []layerExp
	for layer, exps := range s.Expectations {
		for _, exp := range exps {
			allExpectations = append(allExpectations, layerExp{layer, exp})
		}
	}
	sort.Slice(allExpectations, func(i, j int) bool {
		return allExpectations[i].exp.Time < allExpectations[j].exp.Time
	})

	var expectationResults []scenario.ExpectationResult

	for _, le := range allExpectations {
		WaitUntil(startTime, le.exp.Time)
		elapsed := GetElapsed(startTime)

		checkDesc := le.exp.Topic
		if checkDesc == "" && le.exp.RedisKey != "" {
			checkDesc = "redis " + le.exp.RedisKey
		}
		if checkDesc == "" && le.exp.PostgresQuery != "" {
			checkDesc = "postgres query"
		}

		r.logger.Printf("[%.2fs] Checking expectation: %s - %s", elapsed, le.layer, checkDesc)

		var passed bool
		var reason string
		var actualPayload interface{}

		switch {
		case le.exp.PostgresQuery != "":
			passed, reason, actualPayload = r.checkPostgresExpectation(le.exp)
		case le.exp.RedisKey != "":
			passed, reason, actualPayload = checker.CheckRedisExpectation(ctx, r.redisClient, le.exp)
		default:
			messages := r.observer.GetAllMessages()
			passed, reason, actualPayload = checker.CheckExpectation(le.exp, messages)
		}

		expectationResults = append(expectationResults, scenario.ExpectationResult{
			Layer:         le.layer,
			Expectation:   le.exp,
			Passed:        passed,
			Reason:        reason,
			ActualTopic:   le.exp.Topic,
			ActualPayload: actualPayload,
		})

		if passed {
			r.logger.Printf("[%.2fs] ✓ PASS", elapsed)
		} else {
			r.logger.Printf("[%.2fs] ✗ FAIL: %s", elapsed, reason)
		}

		timelineEvents = append(timelineEvents, reporter.TimelineEvent{
			Elapsed:     elapsed,
			Layer:       le.layer,
			Description: checkDesc,
			Success:     passed,
			IsCheck:     true,
		})
	}

	endTime := time.Now()

	passedCount := 0
	failedCount := 0
	for _, result := range expectationResults {
		if result.Passed {
			passedCount++
		} else {
			failedCount++
		}
	}

	testResult := &scenario.TestResult{
		Scenario:     s,
		StartTime:    startTime,
		EndTime:      endTime,
		Passed:       failedCount == 0,
		PassedCount:  passedCount,
		FailedCount:  failedCount,
		Expectations: expectationResults,
	}

	return testResult, timelineEvents, nil
}

// seedSetup writes the scenario's commitments to Redis the way the product
// backend would have, so the verifier finds them on first lookup.
func (r *Runner) seedSetup(ctx context.Context, setup scenario.SetupConfig) error {
	for _, c := range setup.Commitments {
		id, ok := c["id"].(string)
		if !ok || id == "" {
			return fmt.Errorf("setup commitment missing string id")
		}
		if _, exists := c["user_id"]; !exists {
			c["user_id"] = setup.UserID
		}

		data, err := json.Marshal(c)
		if err != nil {
			return fmt.Errorf("failed to marshal commitment %s: %w", id, err)
		}

		key := fmt.Sprintf("commitment:%s", id)
		if err := r.redisClient.Set(ctx, key, data, 0).Err(); err != nil {
			return fmt.Errorf("failed to seed commitment %s: %w", id, err)
		}

		r.logger.Printf("Seeded %s", key)
	}

	return nil
}

// checkPostgresExpectation checks a Postgres query expectation
func (r *Runner) checkPostgresExpectation(exp scenario.Expectation) (bool, string, interface{}) {
	if r.postgresChecker == nil {
		return false, "postgres checker not initialized", nil
	}

	if err := r.postgresChecker.CheckQuery(exp.PostgresQuery, exp.PostgresExpected); err != nil {
		return false, fmt.Sprintf("postgres check failed: %v", err), nil
	}

	return true, "postgres check passed", exp.PostgresExpected
}

// initialize sets up connections
func (r *Runner) initialize() error {
	r.observer = observer.NewObserver(r.mqttBroker, r.logger)

	player, err := NewMQTTPlayer(r.mqttBroker, r.logger)
	if err != nil {
		return fmt.Errorf("failed to create MQTT player: %w", err)
	}
	r.player = player

	r.redisClient = redis.NewClient(&redis.Options{
		Addr: r.redisHost,
	})

	ctx := context.Background()
	if err := r.redisClient.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("failed to connect to Redis: %w", err)
	}

	r.logger.Printf("Connected to Redis at %s", r.redisHost)

	if r.postgresConnStr != "" {
		postgresChecker, err := checker.NewPostgresChecker(r.postgresConnStr, r.logger)
		if err != nil {
			return fmt.Errorf("failed to create Postgres checker: %w", err)
		}
		r.postgresChecker = postgresChecker
		r.logger.Printf("Connected to Postgres")
	}

	return nil
}

// cleanup closes all connections
func (r *Runner) cleanup() {
	if r.observer != nil {
		r.observer.Stop()
	}
	if r.player != nil {
		r.player.Close()
	}
	if r.redisClient != nil {
		r.redisClient.Close()
	}
	if r.postgresChecker != nil {
		r.postgresChecker.Close()
	}
}

// SaveCapture saves the MQTT capture to a file
func (r *Runner) SaveCapture(filename string) error {
	if r.observer == nil {
		return fmt.Errorf("observer not initialized")
	}
	return r.observer.SaveCapture(filename)
}
