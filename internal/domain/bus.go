package domain

import (
	"context"
)

// EventBus defines the interface for event-driven communication.
// Supports Go channels (single process) or NATS.
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
	Type string

	// Channel settings
	ChannelBufferSize int

	// NATS settings
	NATSUrl           string
	NATSToken         string
	NATSMaxReconnects int
	NATSReconnectWait int // seconds
	NATSQueueGroup    string
}

// Topics used by the comparison pipeline.
const (
	TopicComparisonRequested = "baobab.comparison.requested"
	TopicComparisonCompleted = "baobab.comparison.completed"
	TopicSevereRisk          = "baobab.risk.severe"
)

// IsWorkTopic reports whether each message on topic should be handled by a
// single consumer. Other topics are events every subscriber receives.
func IsWorkTopic(topic string) bool {
	return topic == TopicComparisonRequested
}

// ComparisonJob is the payload of TopicComparisonRequested.
type ComparisonJob struct {
	JobID   string            `json:"jobId"`
	TraceID string            `json:"traceId,omitempty"`
	Request ComparisonRequest `json:"request"`
}

// ComparisonEvent is the payload of TopicComparisonCompleted and TopicSevereRisk.
type ComparisonEvent struct {
	JobID           string    `json:"jobId,omitempty"`
	ComparisonID    string    `json:"comparisonId"`
	RegionID        string    `json:"region"`
	CropID          string    `json:"crop"`
	CellCount       int       `json:"cellCount"`
	FailedCells     int       `json:"failedCells"`
	MaxTier         *RiskTier `json:"maxTier,omitempty"`
	SevereScenarios []string  `json:"severeScenarios,omitempty"`
}
