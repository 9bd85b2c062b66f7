package executor

import (
	"encoding/json"
	"fmt"
	"log"
	"strings"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/stakeway/stakeway-platform/e2e/internal/scenario"
)

// MQTTPlayer publishes commitment events to the MQTT broker
type MQTTPlayer struct {
	client mqtt.Client
	logger *log.Logger
}

// NewMQTTPlayer creates a new MQTT player
func NewMQTTPlayer(broker string, logger *log.Logger) (*MQTTPlayer, error) {
	if logger == nil {
		logger = log.Default()
	}

	opts := mqtt.NewClientOptions()
	opts.AddBroker(broker)
	opts.SetClientID("stakeway-test-player")
	opts.SetCleanSession(true)
	opts.SetAutoReconnect(true)

	client := mqtt.NewClient(opts)
	token := client.Connect()
	token.Wait()
	if token.Error() != nil {
		return nil, fmt.Errorf("failed to connect to MQTT broker: %w", token.Error())
	}

	logger.Printf("Connected to MQTT broker at %s", broker)

	return &MQTTPlayer{
		client: client,
		logger: logger,
	}, nil
}

// PublishProof publishes a proof submission for a commitment. The event's
// proof field carries "user:commitment".
func (p *MQTTPlayer) PublishProof(event scenario.Event) error {
	parts := strings.SplitN(event.Proof, ":", 2)
	if len(parts) != 2 {
		return fmt.Errorf("invalid proof reference %q, expected user:commitment", event.Proof)
	}

	topic := fmt.Sprintf("commitments/proof/%s/%s", parts[0], parts[1])
	return p.publishJSON(topic, event.Data)
}

// PublishAdviceRequest publishes a recommendation request for a user
func (p *MQTTPlayer) PublishAdviceRequest(event scenario.Event) error {
	topic := fmt.Sprintf("commitments/advice/request/%s", event.AdviceFor)
	return p.publishJSON(topic, event.Data)
}

// PublishRaw publishes arbitrary data to an explicit topic
func (p *MQTTPlayer) PublishRaw(event scenario.Event) error {
	return p.publishJSON(event.Topic, event.Data)
}

func (p *MQTTPlayer) publishJSON(topic string, data map[string]interface{}) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}

	// QoS 1 to ensure delivery
	token := p.client.Publish(topic, 1, false, payload)
	token.Wait()
	if token.Error() != nil {
		return fmt.Errorf("failed to publish to %s: %w", topic, token.Error())
	}

	p.logger.Printf("Published to %s: %s", topic, string(payload))
	return nil
}

// Close disconnects from MQTT broker
func (p *MQTTPlayer) Close() {
	if p.client != nil && p.client.IsConnected() {
		p.client.Disconnect(250)
		p.logger.Printf("Disconnected from MQTT broker")
	}
}
