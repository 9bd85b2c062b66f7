package mqtt

import "context"

// Client is the MQTT surface the agents depend on. Agents subscribe to the
// commitments/* topic families and publish outcome, advice and achievement
// events; the interface keeps their handlers testable without a broker.
type Client interface {
	// Connect establishes a connection to the MQTT broker
	Connect(ctx context.Context) error

	// Disconnect closes the connection to the MQTT broker
	Disconnect()

	// Subscribe subscribes to a topic with the given QoS and handler
	Subscribe(topic string, qos byte, handler MessageHandler) error

	// Publish publishes a message to a topic
	Publish(topic string, qos byte, retained bool, payload []byte) error

	// IsConnected returns whether the client is currently connected
	IsConnected() bool
}

// MessageHandler is the callback invoked for each delivered message.
// Handlers must tolerate QoS 1 reddelivery.
type MessageHandler func(Message)

// Message is one delivered MQTT message
type Message interface {
	// Topic returns the topic the message was published to
	Topic() string

	// Payload returns the message payload
	Payload() []byte

	// Ack acknowledges the message (for QoS > 0)
	Ack()
}
