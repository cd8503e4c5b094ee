package bus

import (
	"errors"
	"fmt"

	"github.com/opensource-finance/baobab/internal/domain"
)

// ErrClosed is returned by Publish, Subscribe and Ping once the bus is closed.
var ErrClosed = errors.New("event bus closed")

// New returns the bus selected by cfg.Type: "channel" for in-process
// delivery, "nats" for a NATS server.
func New(cfg domain.EventBusConfig) (domain.EventBus, error) {
	switch cfg.Type {
	case "channel":
		return NewChannelBus(cfg.ChannelBufferSize), nil
	case "nats":
		return NewNATSBus(cfg)
	default:
		return nil, fmt.Errorf("unsupported event bus type: %s", cfg.Type)
	}
}

func newMessage(topic string, payload []byte, id string, now int64) *domain.Message {
	return &domain.Message{
		ID:        id,
		Topic:     topic,
		Payload:   payload,
		Metadata:  map[string]string{},
		Timestamp: now,
	}
}
