package verifier

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/stakeway/stakeway-platform/internal/verify"
	"github.com/stakeway/stakeway-platform/pkg/commitment"
	"github.com/stakeway/stakeway-platform/pkg/config"
	"github.com/stakeway/stakeway-platform/pkg/mqtt"
)

// fakeMQTT records published messages
type fakeMQTT struct {
	published []publishedMessage
}

type publishedMessage struct {
	topic   string
	payload []byte
}

func (f *fakeMQTT) Connect(ctx context.Context) error { return nil }
func (f *fakeMQTT) Disconnect()                       {}
func (f *fakeMQTT) IsConnected() bool                 { return true }
func (f *fakeMQTT) Subscribe(topic string, qos byte, handler mqtt.MessageHandler) error {
	return nil
}
func (f *fakeMQTT) Publish(topic string, qos byte, retained bool, payload []byte) error {
	f.published = append(f.published, publishedMessage{topic: topic, payload: payload})
	return nil
}

// fakeMessage implements mqtt.Message for handler tests
type fakeMessage struct {
	topic   string
	payload []byte
}

func (m *fakeMessage) Topic() string   { return m.topic }
func (m *fakeMessage) Payload() []byte { return m.payload }
func (m *fakeMessage) Ack()            {}

// fakeRedis is an in-memory stand-in for the Redis client
type fakeRedis struct {
	data   map[string]string
	hashes map[string]map[string]string
}

func newFakeRedis() *fakeRedis {
	return &fakeRedis{
		data:   make(map[string]string),
		hashes: make(map[string]map[string]string),
	}
}

func asString(value interface{}) string {
	switch v := value.(type) {
	case string:
		return v
	case []byte:
		return string(v)
	default:
		return fmt.Sprintf("%v", v)
	}
}

func (f *fakeRedis) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	f.data[key] = asString(value)
	return nil
}

func (f *fakeRedis) SetNX(ctx context.Context, key string, value interface{}, ttl time.Duration) (bool, error) {
	if _, exists := f.data[key]; exists {
		return false, nil
	}
	f.data[key] = asString(value)
	return true, nil
}

func (f *fakeRedis) Get(ctx context.Context, key string) (string, error) {
	value, exists := f.data[key]
	if !exists {
		return "", fmt.Errorf("key %s not found", key)
	}
	return value, nil
}

func (f *fakeRedis) HSet(ctx context.Context, key string, field string, value interface{}) error {
	if f.hashes[key] == nil {
		f.hashes[key] = make(map[string]string)
	}
	f.hashes[key][field] = asString(value)
	return nil
}

func (f *fakeRedis) HGet(ctx context.Context, key string, field string) (string, error) {
	value, exists := f.hashes[key][field]
	if !exists {
		return "", fmt.Errorf("field %s not found", field)
	}
	return value, nil
}

func (f *fakeRedis) HGetAll(ctx context.Context, key string) (map[string]string, error) {
	return f.hashes[key], nil
}

func (f *fakeRedis) Expire(ctx context.Context, key string, ttl time.Duration) error { return nil }
func (f *fakeRedis) Ping(ctx context.Context) error                                  { return nil }
func (f *fakeRedis) Close() error                                                    { return nil }

func testAgent(redisClient *fakeRedis, mqttClient *fakeMQTT) *Agent {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	registry := verify.NewRegistry(nil, logger)
	aggregator := verify.NewAggregator(registry, logger)
	return NewAgent(mqttClient, redisClient, aggregator, config.NewConfig(), logger)
}

func seedCommitment(t *testing.T, redisClient *fakeRedis, c commitment.Commitment) {
	t.Helper()
	raw, err := json.Marshal(c)
	if err != nil {
		t.Fatalf("Failed to marshal commitment: %v", err)
	}
	redisClient.data["commitment:"+c.ID] = string(raw)
}

// sixKmSubmission builds a GPS proof whose path covers roughly 6 km in an
// hour of walking.
func sixKmSubmission(t *testing.T, id string) []byte {
	t.Helper()

	start := time.Date(2026, 3, 4, 12, 0, 0, 0, time.UTC)
	payload := map[string]interface{}{
		"mode": "walk",
		"path": []map[string]interface{}{
			{"lat": 60.0000, "lng": 24.9, "timestamp_ms": start.UnixMilli()},
			{"lat": 60.0270, "lng": 24.9, "timestamp_ms": start.Add(30 * time.Minute).UnixMilli()},
			{"lat": 60.0540, "lng": 24.9, "timestamp_ms": start.Add(60 * time.Minute).UnixMilli()},
		},
	}
	payloadRaw, _ := json.Marshal(payload)

	sub := commitment.ProofSubmission{
		ID:          id,
		Kind:        commitment.ProofGPS,
		Payload:     payloadRaw,
		SubmittedAt: start.Add(60 * time.Minute),
	}
	raw, err := json.Marshal(sub)
	if err != nil {
		t.Fatalf("Failed to marshal submission: %v", err)
	}
	return raw
}

func distanceCommitment(id, userID string, deadline time.Time) commitment.Commitment {
	return commitment.Commitment{
		ID:     id,
		UserID: userID,
		Status: commitment.StatusInProgress,
		Conditions: []commitment.Condition{
			{
				Kind:        commitment.KindDistance,
				Value:       5,
				Unit:        "km",
				Description: "walk at least 5 km",
				Method:      commitment.MethodGPS,
				Required:    true,
			},
		},
		Deadline:    deadline,
		StakeAmount: 25,
	}
}

func TestHandleSubmissionVerifies(t *testing.T) {
	redisClient := newFakeRedis()
	mqttClient := &fakeMQTT{}
	agent := testAgent(redisClient, mqttClient)

	seedCommitment(t, redisClient, distanceCommitment("c-1", "user-1", time.Now().Add(24*time.Hour)))

	agent.handleSubmission(&fakeMessage{
		topic:   "commitments/proof/user-1/c-1",
		payload: sixKmSubmission(t, "sub-1"),
	})

	if len(mqttClient.published) != 1 {
		t.Fatalf("Expected 1 outcome published, got %d", len(mqttClient.published))
	}

	msg := mqttClient.published[0]
	if msg.topic != "commitments/outcome/user-1/c-1" {
		t.Errorf("Expected outcome topic, got %q", msg.topic)
	}

	var event commitment.OutcomeEvent
	if err := json.Unmarshal(msg.payload, &event); err != nil {
		t.Fatalf("Failed to decode outcome event: %v", err)
	}
	if event.Status != commitment.StatusVerified {
		t.Errorf("Expected status verified, got %q", event.Status)
	}
	if !event.Result.Success {
		t.Errorf("Expected successful result: %+v", event.Result)
	}

	// Result cached for the product UI
	cached, ok := redisClient.data["verification:c-1"]
	if !ok {
		t.Fatal("Expected cached verification result")
	}
	if !strings.Contains(cached, `"success":true`) {
		t.Errorf("Expected cached result to record success: %s", cached)
	}
}

func TestHandleSubmissionRedeliveryIsNoOp(t *testing.T) {
	redisClient := newFakeRedis()
	mqttClient := &fakeMQTT{}
	agent := testAgent(redisClient, mqttClient)

	seedCommitment(t, redisClient, distanceCommitment("c-1", "user-1", time.Now().Add(24*time.Hour)))

	msg := &fakeMessage{
		topic:   "commitments/proof/user-1/c-1",
		payload: sixKmSubmission(t, "sub-1"),
	}
	agent.handleSubmission(msg)
	agent.handleSubmission(msg)

	if len(mqttClient.published) != 1 {
		t.Errorf("Redelivered submission must not publish again, got %d messages", len(mqttClient.published))
	}
}

func TestHandleSubmissionDeadlinePassed(t *testing.T) {
	redisClient := newFakeRedis()
	mqttClient := &fakeMQTT{}
	agent := testAgent(redisClient, mqttClient)

	seedCommitment(t, redisClient, distanceCommitment("c-1", "user-1", time.Now().Add(-time.Hour)))

	agent.handleSubmission(&fakeMessage{
		topic:   "commitments/proof/user-1/c-1",
		payload: sixKmSubmission(t, "sub-1"),
	})

	if len(mqttClient.published) != 1 {
		t.Fatalf("Expected 1 outcome published, got %d", len(mqttClient.published))
	}

	var event commitment.OutcomeEvent
	if err := json.Unmarshal(mqttClient.published[0].payload, &event); err != nil {
		t.Fatalf("Failed to decode outcome event: %v", err)
	}
	if event.Status != commitment.StatusFailed {
		t.Errorf("Deadline passed must fail the commitment, got %q", event.Status)
	}
	if event.Result.Success {
		t.Errorf("Result must not report success after the deadline")
	}
	if !strings.Contains(event.Result.Message, "deadline") {
		t.Errorf("Expected message to mention the deadline: %q", event.Result.Message)
	}
}

func TestHandleSubmissionUnknownMethodPublishesNothing(t *testing.T) {
	redisClient := newFakeRedis()
	mqttClient := &fakeMQTT{}
	agent := testAgent(redisClient, mqttClient)

	c := distanceCommitment("c-1", "user-1", time.Now().Add(24*time.Hour))
	c.Conditions[0].Method = "telepathy"
	seedCommitment(t, redisClient, c)

	agent.handleSubmission(&fakeMessage{
		topic:   "commitments/proof/user-1/c-1",
		payload: sixKmSubmission(t, "sub-1"),
	})

	if len(mqttClient.published) != 0 {
		t.Errorf("Unknown verification method must not publish a verdict, got %d messages", len(mqttClient.published))
	}
}

func TestHandleSubmissionRetriesAfterMissingCommitment(t *testing.T) {
	redisClient := newFakeRedis()
	mqttClient := &fakeMQTT{}
	agent := testAgent(redisClient, mqttClient)

	// First delivery races ahead of the commitment document
	msg := &fakeMessage{
		topic:   "commitments/proof/user-1/c-1",
		payload: sixKmSubmission(t, "sub-1"),
	}
	agent.handleSubmission(msg)

	if len(mqttClient.published) != 0 {
		t.Fatalf("Expected no outcome before the commitment exists, got %d messages", len(mqttClient.published))
	}

	// The failed delivery must not leave a claim behind: once the
	// commitment appears, the QoS 1 redelivery has to verify it.
	seedCommitment(t, redisClient, distanceCommitment("c-1", "user-1", time.Now().Add(24*time.Hour)))
	agent.handleSubmission(msg)

	if len(mqttClient.published) != 1 {
		t.Fatalf("Expected the redelivery to publish an outcome, got %d messages", len(mqttClient.published))
	}

	var event commitment.OutcomeEvent
	if err := json.Unmarshal(mqttClient.published[0].payload, &event); err != nil {
		t.Fatalf("Failed to decode outcome event: %v", err)
	}
	if event.Status != commitment.StatusVerified {
		t.Errorf("Expected status verified, got %q", event.Status)
	}
}

func TestHandleSubmissionWrongOwner(t *testing.T) {
	redisClient := newFakeRedis()
	mqttClient := &fakeMQTT{}
	agent := testAgent(redisClient, mqttClient)

	seedCommitment(t, redisClient, distanceCommitment("c-1", "user-1", time.Now().Add(24*time.Hour)))

	agent.handleSubmission(&fakeMessage{
		topic:   "commitments/proof/user-2/c-1",
		payload: sixKmSubmission(t, "sub-1"),
	})

	if len(mqttClient.published) != 0 {
		t.Errorf("A submission from a non-owner must be dropped, got %d messages", len(mqttClient.published))
	}
}
