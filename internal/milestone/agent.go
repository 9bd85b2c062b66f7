package milestone

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/stakeway/stakeway-platform/pkg/commitment"
	"github.com/stakeway/stakeway-platform/pkg/config"
	"github.com/stakeway/stakeway-platform/pkg/mqtt"
	"github.com/stakeway/stakeway-platform/pkg/postgres"
	"github.com/stakeway/stakeway-platform/pkg/redis"
)

// Agent is the milestone agent: it follows verification outcomes and turns
// them into streak counters and achievement unlocks.
type Agent struct {
	mqtt    mqtt.Client
	storage *Storage
	cfg     *config.Config
	logger  *slog.Logger
}

// NewAgent creates a new milestone agent with the given dependencies
func NewAgent(mqttClient mqtt.Client, redisClient redis.Client, pgClient postgres.Client, cfg *config.Config, logger *slog.Logger) *Agent {
	return &Agent{
		mqtt:    mqttClient,
		storage: NewStorage(pgClient, redisClient, cfg, logger),
		cfg:     cfg,
		logger:  logger,
	}
}

// Start starts the milestone agent and begins following outcome events
func (a *Agent) Start(ctx context.Context) error {
	a.logger.Info("Starting milestone agent",
		"service_name", a.cfg.ServiceName,
		"mqtt_broker", a.cfg.MQTTAddress())

	if err := a.mqtt.Connect(ctx); err != nil {
		return fmt.Errorf("failed to connect to MQTT: %w", err)
	}

	if err := a.mqtt.Subscribe(mqtt.TopicOutcomes, 1, a.handleOutcome); err != nil {
		return fmt.Errorf("failed to subscribe to outcomes: %w", err)
	}

	a.logger.Info("Milestone agent started and following outcomes",
		"topic", mqtt.TopicOutcomes)

	<-ctx.Done()
	a.logger.Info("Milestone agent stopping")

	return nil
}

// Stop gracefully stops the milestone agent
func (a *Agent) Stop() error {
	a.logger.Info("Stopping milestone agent")
	a.mqtt.Disconnect()
	a.logger.Info("Milestone agent stopped")
	return nil
}

// handleOutcome reacts to one verification outcome: it recomputes the
// user's stats from history and unlocks anything newly earned.
func (a *Agent) handleOutcome(msg mqtt.Message) {
	topic := msg.Topic()

	userID, _, err := mqtt.ParseOutcomeTopic(topic)
	if err != nil {
		a.logger.Error("Failed to parse outcome topic", "topic", topic, "error", err)
		return
	}

	var event commitment.OutcomeEvent
	if err := json.Unmarshal(msg.Payload(), &event); err != nil {
		a.logger.Error("Failed to decode outcome event", "topic", topic, "error", err)
		return
	}
	if event.UserID == "" {
		event.UserID = userID
	}

	// Only settled outcomes move streaks or achievements.
	if event.Status != commitment.StatusVerified && event.Status != commitment.StatusFailed {
		a.logger.Debug("Ignoring non-terminal outcome",
			"commitment_id", event.CommitmentID, "status", event.Status)
		return
	}

	if err := a.evaluate(context.Background(), event.UserID); err != nil {
		a.logger.Error("Failed to evaluate milestones",
			"user_id", event.UserID, "error", err)
	}
}

// evaluate recomputes streaks and unlocks from the user's full history.
// Recomputing from scratch keeps the agent stateless between events and
// makes redeliveries harmless.
func (a *Agent) evaluate(ctx context.Context, userID string) error {
	records, err := a.storage.LoadHistory(ctx, userID)
	if err != nil {
		return fmt.Errorf("failed to load history: %w", err)
	}

	stats := BuildStats(records)
	streaks := Streaks{Current: stats.CurrentStreak, Longest: stats.LongestStreak}

	if err := a.storage.MirrorStreaks(ctx, userID, streaks); err != nil {
		a.logger.Warn("Failed to mirror streaks", "user_id", userID, "error", err)
	}

	already, err := a.storage.LoadUnlocked(ctx, userID)
	if err != nil {
		return fmt.Errorf("failed to load unlocked achievements: %w", err)
	}

	now := time.Now().UTC()
	for _, id := range Evaluate(stats, already) {
		inserted, err := a.storage.Unlock(ctx, userID, id, now)
		if err != nil {
			a.logger.Error("Failed to persist unlock",
				"user_id", userID, "achievement_id", id, "error", err)
			continue
		}
		if !inserted {
			// Another instance won the race; it also published the event.
			continue
		}

		a.logger.Info("Achievement unlocked",
			"user_id", userID,
			"achievement_id", id,
			"current_streak", streaks.Current,
			"longest_streak", streaks.Longest)

		a.publishUnlock(commitment.AchievementEvent{
			EventID:       uuid.NewString(),
			UserID:        userID,
			AchievementID: id,
			UnlockedAt:    now,
			CurrentStreak: streaks.Current,
			LongestStreak: streaks.Longest,
		})
	}

	return nil
}

func (a *Agent) publishUnlock(event commitment.AchievementEvent) {
	payload, err := json.Marshal(event)
	if err != nil {
		a.logger.Error("Failed to encode achievement event",
			"achievement_id", event.AchievementID, "error", err)
		return
	}

	topic := mqtt.AchievementTopic(event.UserID)
	if err := a.mqtt.Publish(topic, 1, false, payload); err != nil {
		a.logger.Error("Failed to publish achievement event",
			"topic", topic, "achievement_id", event.AchievementID, "error", err)
	}
}
