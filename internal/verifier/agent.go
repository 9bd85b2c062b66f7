package verifier

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/stakeway/stakeway-platform/internal/verify"
	"github.com/stakeway/stakeway-platform/pkg/commitment"
	"github.com/stakeway/stakeway-platform/pkg/config"
	"github.com/stakeway/stakeway-platform/pkg/mqtt"
	"github.com/stakeway/stakeway-platform/pkg/redis"
)

// Agent is the verifier agent: it consumes proof submissions from MQTT, runs
// the verification aggregator against the commitment's conditions, persists
// the result and publishes the outcome event.
type Agent struct {
	mqtt       mqtt.Client
	redis      redis.Client
	aggregator *verify.Aggregator
	storage    *Storage
	cfg        *config.Config
	logger     *slog.Logger
}

// NewAgent creates a new verifier agent with the given dependencies
func NewAgent(mqttClient mqtt.Client, redisClient redis.Client, aggregator *verify.Aggregator, cfg *config.Config, logger *slog.Logger) *Agent {
	return &Agent{
		mqtt:       mqttClient,
		redis:      redisClient,
		aggregator: aggregator,
		storage:    NewStorage(redisClient, cfg, logger),
		cfg:        cfg,
		logger:     logger,
	}
}

// Start starts the verifier agent and begins processing proof submissions
func (a *Agent) Start(ctx context.Context) error {
	a.logger.Info("Starting verifier agent",
		"service_name", a.cfg.ServiceName,
		"mqtt_broker", a.cfg.MQTTAddress())

	// Connect to MQTT broker
	if err := a.mqtt.Connect(ctx); err != nil {
		return fmt.Errorf("failed to connect to MQTT: %w", err)
	}

	// Verify Redis connection
	if err := a.redis.Ping(ctx); err != nil {
		return fmt.Errorf("failed to ping Redis: %w", err)
	}

	if err := a.mqtt.Subscribe(mqtt.TopicProofSubmissions, 1, a.handleSubmission); err != nil {
		return fmt.Errorf("failed to subscribe to proof submissions: %w", err)
	}

	a.logger.Info("Verifier agent started and ready to receive submissions",
		"topic", mqtt.TopicProofSubmissions)

	// Block until context is cancelled
	<-ctx.Done()
	a.logger.Info("Verifier agent stopping")

	return nil
}

// Stop gracefully stops the verifier agent
func (a *Agent) Stop() error {
	a.logger.Info("Stopping verifier agent")

	a.mqtt.Disconnect()

	if err := a.redis.Close(); err != nil {
		a.logger.Error("Error closing Redis connection", "error", err)
		return err
	}

	a.logger.Info("Verifier agent stopped")
	return nil
}

// handleSubmission processes one incoming proof submission message
func (a *Agent) handleSubmission(msg mqtt.Message) {
	topic := msg.Topic()

	userID, commitmentID, err := mqtt.ParseProofTopic(topic)
	if err != nil {
		a.logger.Error("Failed to parse proof topic", "topic", topic, "error", err)
		return
	}

	var sub commitment.ProofSubmission
	if err := json.Unmarshal(msg.Payload(), &sub); err != nil {
		a.logger.Error("Failed to decode proof submission",
			"topic", topic, "error", err)
		return
	}
	if sub.ID == "" {
		sub.ID = uuid.NewString()
	}

	ctx := context.Background()

	c, err := a.storage.LoadCommitment(ctx, commitmentID)
	if err != nil {
		a.logger.Error("Failed to load commitment",
			"commitment_id", commitmentID, "error", err)
		return
	}
	if c.UserID != userID {
		a.logger.Error("Topic user does not own commitment",
			"commitment_id", commitmentID, "topic_user", userID, "owner", c.UserID)
		return
	}

	// Claim only after the commitment loaded and the owner check passed.
	// Claiming earlier would leave a marker behind when the commitment
	// document is not in Redis yet, and the QoS 1 redelivery that could
	// still succeed would be skipped as already processed.
	claimed, err := a.storage.ClaimSubmission(ctx, commitmentID, sub.ID)
	if err != nil {
		a.logger.Error("Failed to claim submission",
			"commitment_id", commitmentID, "submission_id", sub.ID, "error", err)
		return
	}
	if !claimed {
		a.logger.Debug("Submission already processed, skipping redelivery",
			"commitment_id", commitmentID, "submission_id", sub.ID)
		return
	}

	result, status := a.judge(ctx, c, sub)
	if status == "" {
		// Configuration defect already logged; nothing to publish.
		return
	}

	c.Status = status
	sub.Verified = result.Success
	c.ProofSubmissions = append(c.ProofSubmissions, sub)

	if err := a.storage.StoreResult(ctx, commitmentID, result); err != nil {
		a.logger.Error("Failed to store verification result",
			"commitment_id", commitmentID, "error", err)
		// Continue to publish; downstream consumers can still react.
	}
	if err := a.storage.StoreCommitment(ctx, c); err != nil {
		a.logger.Error("Failed to store commitment status",
			"commitment_id", commitmentID, "error", err)
	}

	a.publishOutcome(c, sub, result)

	a.logger.Info("Proof submission processed",
		"commitment_id", commitmentID,
		"submission_id", sub.ID,
		"status", status,
		"message", result.Message)
}

// judge runs the aggregator and folds in the deadline invariant: a commitment
// whose deadline passed without full verification is failed even when the
// evidence itself checks out.
func (a *Agent) judge(ctx context.Context, c *commitment.Commitment, sub commitment.ProofSubmission) (commitment.VerificationResult, commitment.Status) {
	result, err := a.aggregator.VerifyCommitment(ctx, c, sub)
	if err != nil {
		if errors.Is(err, commitment.ErrUnknownMethod) {
			// Deployment bug, not user input. Surface loudly and do not
			// publish a verdict.
			a.logger.Error("Verification aborted: unknown verification method",
				"commitment_id", c.ID, "error", err)
			return commitment.VerificationResult{}, ""
		}
		a.logger.Error("Verification failed", "commitment_id", c.ID, "error", err)
		return commitment.VerificationResult{}, ""
	}

	now := time.Now()
	if now.After(c.Deadline) {
		if result.Success {
			result.Success = false
			result.Message = fmt.Sprintf("conditions verified but deadline %s passed", c.Deadline.Format(time.RFC3339))
		}
		return result, commitment.StatusFailed
	}

	if result.Success {
		return result, commitment.StatusVerified
	}
	return result, commitment.StatusInProgress
}

// publishOutcome emits the outcome event for downstream agents.
func (a *Agent) publishOutcome(c *commitment.Commitment, sub commitment.ProofSubmission, result commitment.VerificationResult) {
	event := commitment.OutcomeEvent{
		EventID:      uuid.NewString(),
		CommitmentID: c.ID,
		UserID:       c.UserID,
		SubmissionID: sub.ID,
		Status:       c.Status,
		Result:       result,
		Timestamp:    time.Now().UTC(),
	}

	payload, err := json.Marshal(event)
	if err != nil {
		a.logger.Error("Failed to encode outcome event", "commitment_id", c.ID, "error", err)
		return
	}

	topic := mqtt.OutcomeTopic(c.UserID, c.ID)
	if err := a.mqtt.Publish(topic, 1, false, payload); err != nil {
		a.logger.Error("Failed to publish outcome event",
			"topic", topic, "commitment_id", c.ID, "error", err)
	}
}
