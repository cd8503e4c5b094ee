// Package bus carries comparison jobs and result events between the API,
// the workers and any other listener.
package bus

import (
	"context"
	"log/slog"
	"slices"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"github.com/opensource-finance/baobab/internal/domain"
)

const defaultChannelBuffer = 1000

// ChannelBus delivers messages inside one process. Event topics fan out to
// every subscriber; work topics (domain.IsWorkTopic) go to one subscriber
// per message, round-robin, like a NATS queue group.
type ChannelBus struct {
	mu     sync.RWMutex
	topics map[string]*topicSubs
	closed bool

	buffer  int
	clock   clockwork.Clock
	dropped atomic.Int64
}

type topicSubs struct {
	subs []*channelSub
	next atomic.Uint64
}

type channelSub struct {
	bus     *ChannelBus
	id      string
	topic   string
	handler domain.MessageHandler
	inbox   chan *domain.Message
	ctx     context.Context
	cancel  context.CancelFunc
}

// NewChannelBus returns a bus whose subscribers each buffer up to
// bufferSize undelivered messages.
func NewChannelBus(bufferSize int) *ChannelBus {
	return NewChannelBusWithClock(bufferSize, clockwork.NewRealClock())
}

// NewChannelBusWithClock is NewChannelBus with an injectable message clock.
func NewChannelBusWithClock(bufferSize int, clock clockwork.Clock) *ChannelBus {
	if bufferSize <= 0 {
		bufferSize = defaultChannelBuffer
	}
	return &ChannelBus{
		topics: map[string]*topicSubs{},
		buffer: bufferSize,
		clock:  clock,
	}
}

// Publish never blocks: a subscriber with a full inbox misses the message
// and the drop is counted.
func (b *ChannelBus) Publish(_ context.Context, topic string, payload []byte) error {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return ErrClosed
	}

	ts := b.topics[topic]
	if ts == nil || len(ts.subs) == 0 {
		return nil
	}
	msg := newMessage(topic, payload, uuid.NewString(), b.clock.Now().UnixNano())

	targets := ts.subs
	if domain.IsWorkTopic(topic) {
		i := (ts.next.Add(1) - 1) % uint64(len(ts.subs))
		targets = ts.subs[i : i+1]
	}
	for _, sub := range targets {
		b.deliver(sub, msg)
	}
	return nil
}

func (b *ChannelBus) deliver(sub *channelSub, msg *domain.Message) {
	select {
	case sub.inbox <- msg:
	default:
		b.dropped.Add(1)
		slog.Warn("subscriber inbox full, message dropped",
			"topic", msg.Topic,
			"message_id", msg.ID,
			"subscription_id", sub.id,
		)
	}
}

// Subscribe starts a goroutine running handler for each message on topic
// until ctx ends, the subscription is dropped or the bus closes.
func (b *ChannelBus) Subscribe(ctx context.Context, topic string, handler domain.MessageHandler) (domain.Subscription, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil, ErrClosed
	}

	subCtx, cancel := context.WithCancel(ctx)
	sub := &channelSub{
		bus:     b,
		id:      uuid.NewString(),
		topic:   topic,
		handler: handler,
		inbox:   make(chan *domain.Message, b.buffer),
		ctx:     subCtx,
		cancel:  cancel,
	}

	ts := b.topics[topic]
	if ts == nil {
		ts = &topicSubs{}
		b.topics[topic] = ts
	}
	ts.subs = append(ts.subs, sub)

	go sub.loop()
	return sub, nil
}

func (s *channelSub) loop() {
	for {
		select {
		case <-s.ctx.Done():
			return
		case msg := <-s.inbox:
			if err := s.handler(s.ctx, msg); err != nil {
				slog.Error("message handler failed",
					"topic", s.topic,
					"message_id", msg.ID,
					"error", err,
				)
			}
		}
	}
}

// Dropped returns how many deliveries were skipped on full inboxes.
func (b *ChannelBus) Dropped() int64 {
	return b.dropped.Load()
}

func (b *ChannelBus) Ping(context.Context) error {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return ErrClosed
	}
	return nil
}

// Close stops every subscription. Closing twice is a no-op.
func (b *ChannelBus) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil
	}
	b.closed = true
	for _, ts := range b.topics {
		for _, sub := range ts.subs {
			sub.cancel()
		}
	}
	clear(b.topics)
	return nil
}

func (s *channelSub) Unsubscribe() error {
	s.cancel()

	b := s.bus
	b.mu.Lock()
	defer b.mu.Unlock()
	if ts := b.topics[s.topic]; ts != nil {
		ts.subs = slices.DeleteFunc(ts.subs, func(o *channelSub) bool { return o == s })
	}
	return nil
}

func (s *channelSub) Topic() string {
	return s.topic
}
