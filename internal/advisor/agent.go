package advisor

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

// Agent is the advisor agent: it answers recommendation requests with
// stake, pace and time-buffer suggestions adapted to the user's history.
type Agent struct {
	mqtt    mqtt.Client
	redis   redis.Client
	engine  *Engine
	history *HistoryStore
	cache   *AdviceCache
	cfg     *config.Config
	logger  *slog.Logger
}

// NewAgent creates a new advisor agent with the given dependencies
func NewAgent(mqttClient mqtt.Client, redisClient redis.Client, pgClient postgres.Client, engine *Engine, cfg *config.Config, logger *slog.Logger) *Agent {
	return &Agent{
		mqtt:    mqttClient,
		redis:   redisClient,
		engine:  engine,
		history: NewHistoryStore(pgClient, logger),
		cache:   NewAdviceCache(redisClient, cfg, logger),
		cfg:     cfg,
		logger:  logger,
	}
}

// Start starts the advisor agent and begins answering advice requests
func (a *Agent) Start(ctx context.Context) error {
	a.logger.Info("Starting advisor agent",
		"service_name", a.cfg.ServiceName,
		"mqtt_broker", a.cfg.MQTTAddress(),
		"analysis_enabled", a.cfg.AnalysisEnabled)

	if err := a.mqtt.Connect(ctx); err != nil {
		return fmt.Errorf("failed to connect to MQTT: %w", err)
	}

	if err := a.redis.Ping(ctx); err != nil {
		return fmt.Errorf("failed to ping Redis: %w", err)
	}

	if err := a.mqtt.Subscribe(mqtt.TopicAdviceRequests, 1, a.handleRequest); err != nil {
		return fmt.Errorf("failed to subscribe to advice requests: %w", err)
	}

	a.logger.Info("Advisor agent started and ready to receive requests",
		"topic", mqtt.TopicAdviceRequests)

	<-ctx.Done()
	a.logger.Info("Advisor agent stopping")

	return nil
}

// Stop gracefully stops the advisor agent
func (a *Agent) Stop() error {
	a.logger.Info("Stopping advisor agent")

	a.mqtt.Disconnect()

	if err := a.redis.Close(); err != nil {
		a.logger.Error("Error closing Redis connection", "error", err)
		return err
	}

	a.logger.Info("Advisor agent stopped")
	return nil
}

// handleRequest processes one advice request message
func (a *Agent) handleRequest(msg mqtt.Message) {
	topic := msg.Topic()

	topicUserID, err := mqtt.ParseAdviceRequestTopic(topic)
	if err != nil {
		a.logger.Error("Failed to parse advice request topic", "topic", topic, "error", err)
		return
	}

	var req commitment.AdviceRequest
	if err := json.Unmarshal(msg.Payload(), &req); err != nil {
		a.logger.Error("Failed to decode advice request", "topic", topic, "error", err)
		return
	}
	if req.UserID == "" {
		req.UserID = topicUserID
	}
	if req.RequestID == "" {
		req.RequestID = uuid.NewString()
	}

	ctx := context.Background()

	hist, err := a.history.LoadUserHistory(ctx, req.UserID, a.cfg.HistoryLimit)
	if err != nil {
		// A missing history is the cold-start case, not a hard failure.
		a.logger.Warn("Failed to load user history, treating as cold start",
			"user_id", req.UserID, "error", err)
		hist = commitment.UserHistory{UserID: req.UserID}
	}

	a.backfillFingerprints(ctx, hist)

	quantities := req.Quantities
	if len(quantities) == 0 {
		quantities = []string{
			commitment.QuantityStake,
			commitment.QuantityPace,
			commitment.QuantityTimeBuffer,
		}
	}

	response := commitment.AdviceResponse{
		RequestID: req.RequestID,
		UserID:    req.UserID,
		Timestamp: time.Now().UTC(),
	}

	for _, quantity := range quantities {
		rec := a.engine.Recommend(ctx, quantity, req, hist)
		response.Recommendations = append(response.Recommendations, rec)

		if err := a.cache.Store(ctx, req.UserID, rec); err != nil {
			a.logger.Warn("Failed to cache recommendation",
				"user_id", req.UserID, "quantity", quantity, "error", err)
		}

		a.logger.Info("Recommendation computed",
			"user_id", req.UserID,
			"quantity", quantity,
			"value", rec.Value,
			"confidence", rec.Confidence,
			"tier", rec.Tier)
	}

	a.publishResponse(response)
}

// backfillFingerprints upserts fingerprints for the loaded history records.
// Idempotent per commitment; failures only cost the similar-trip aside.
func (a *Agent) backfillFingerprints(ctx context.Context, hist commitment.UserHistory) {
	if a.engine.fingerprints == nil {
		return
	}

	for _, r := range hist.Commitments {
		if !r.Succeeded() {
			continue
		}
		if err := a.engine.fingerprints.Upsert(ctx, hist.UserID, r); err != nil {
			a.logger.Debug("Fingerprint upsert failed",
				"user_id", hist.UserID, "commitment_id", r.ID, "error", err)
		}
	}
}

func (a *Agent) publishResponse(response commitment.AdviceResponse) {
	payload, err := json.Marshal(response)
	if err != nil {
		a.logger.Error("Failed to encode advice response",
			"request_id", response.RequestID, "error", err)
		return
	}

	topic := mqtt.AdviceTopic(response.UserID)
	if err := a.mqtt.Publish(topic, 1, false, payload); err != nil {
		a.logger.Error("Failed to publish advice response",
			"topic", topic, "request_id", response.RequestID, "error", err)
	}
}
