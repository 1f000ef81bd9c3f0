package domain

import (
	"context"
)

// EventBus is the interface for event-driven communication. The default
// implementation uses Go channels; NATS is available for multi-node setups.
type EventBus interface {
	// Publish sends a message to a topic.
	Publish(ctx context.Context, topic string, payload []byte) error

	// Subscribe registers a handler for a topic.
	// Returns a subscription that can be used to unsubscribe.
	Subscribe(ctx context.Context, topic string, handler MessageHandler) (Subscription, error)

	// Health check
	Ping(ctx context.Context) error

	// Lifecycle
	Close() error
}

// MessageHandler processes incoming messages.
type MessageHandler func(ctx context.Context, msg *Message) error

// Message represents an event message.
type Message struct {
	ID        string            `json:"id"`
	Topic     string            `json:"topic"`
	Payload   []byte            `json:"payload"`
	Metadata  map[string]string `json:"metadata"`
	Timestamp int64             `json:"timestamp"`
}

// Subscription represents an active subscription.
type Subscription interface {
	// Unsubscribe stops receiving messages.
	Unsubscribe() error

	// Topic returns the subscribed topic.
	Topic() string
}

// EventBusConfig holds configuration for event bus initialization.
type EventBusConfig struct {
	// Type is the bus type: "channel" or "nats"
	Type string `env:"TALLY_BUS_TYPE"`

	// Channel settings
	ChannelBufferSize int `env:"TALLY_BUS_BUFFER"`

	// NATS settings
	NATSUrl           string `env:"TALLY_NATS_URL"`
	NATSToken         string `env:"TALLY_NATS_TOKEN"`
	NATSMaxReconnects int    `env:"TALLY_NATS_MAX_RECONNECTS"`
	NATSReconnectWait int    `env:"TALLY_NATS_RECONNECT_WAIT"` // seconds
}

// Standard topic names for the calculation pipeline. Topics are logical
// names; transport-level namespacing (the NATS subject prefix) is applied by
// the bus implementation.
const (
	TopicCalculationCompleted = "calculation.completed"
	TopicHistoryRecord        = "history.record"
)
