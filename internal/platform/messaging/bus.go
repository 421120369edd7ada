package messaging

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"strings"
	"sync"

	contractsv1 "civitas/contracts/gen/events/v1"
)

var (
	ErrNoSubscriber  = errors.New("subscription closed before delivery")
	ErrInvalidBroker = errors.New("invalid broker address")
)

// Bus is the event bus used by the outbox relay and the event consumers.
// Delivery is in process: every consumer group of a topic receives each event
// once, and within a group subscribers take turns.
type Bus struct {
	mu     sync.RWMutex
	groups map[string]map[string]*consumerGroup
	logger *slog.Logger
}

type consumerGroup struct {
	next          int
	subscriptions []*subscription
}

type subscription struct {
	events chan contractsv1.Envelope
	done   chan struct{}
}

// NewBus validates the configured broker addresses and logs them. Each
// broker must be host:port.
func NewBus(brokers []string, logger *slog.Logger) (*Bus, error) {
	if logger == nil {
		logger = slog.Default()
	}
	normalized := make([]string, 0, len(brokers))
	for _, broker := range brokers {
		broker = strings.TrimSpace(broker)
		if broker == "" {
			continue
		}
		if _, port, err := net.SplitHostPort(broker); err != nil || port == "" {
			return nil, fmt.Errorf("%w: %q", ErrInvalidBroker, broker)
		}
		normalized = append(normalized, broker)
	}
	logger.Info("event bus initialized",
		"event", "bus_initialized",
		"module", "internal/platform/messaging",
		"layer", "platform",
		"brokers", strings.Join(normalized, ","),
		"broker_count", len(normalized),
	)
	return &Bus{
		groups: make(map[string]map[string]*consumerGroup),
		logger: logger,
	}, nil
}

// Publish blocks until every group has accepted the event or ctx ends. A
// topic without subscribers accepts everything.
func (b *Bus) Publish(ctx context.Context, topic string, event contractsv1.Envelope) error {
	for _, sub := range b.pick(topic) {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-sub.done:
			b.logger.Warn("subscription closed before delivery",
				"event", "bus_publish_subscription_closed",
				"module", "internal/platform/messaging",
				"layer", "platform",
				"topic", topic,
				"event_id", event.EventID,
			)
			return ErrNoSubscriber
		case sub.events <- event:
		}
	}

	b.logger.Info("event published",
		"event", "bus_publish",
		"module", "internal/platform/messaging",
		"layer", "platform",
		"topic", topic,
		"event_id", event.EventID,
		"event_type", event.EventType,
		"partition_key", event.PartitionKey,
	)
	return nil
}

func (b *Bus) Subscribe(
	ctx context.Context,
	topic string,
	consumerGroup string,
	handler func(context.Context, contractsv1.Envelope) error,
) error {
	topic = strings.TrimSpace(topic)
	if topic == "" {
		return errors.New("topic is required")
	}
	if handler == nil {
		return errors.New("handler is required")
	}
	sub := &subscription{
		events: make(chan contractsv1.Envelope, 128),
		done:   make(chan struct{}),
	}

	b.mu.Lock()
	groups, ok := b.groups[topic]
	if !ok {
		groups = make(map[string]*consumerGroup)
		b.groups[topic] = groups
	}
	group, ok := groups[consumerGroup]
	if !ok {
		group = &consumerGroup{}
		groups[consumerGroup] = group
	}
	group.subscriptions = append(group.subscriptions, sub)
	b.mu.Unlock()

	go func() {
		for {
			select {
			case <-ctx.Done():
				b.removeSubscription(topic, consumerGroup, sub)
				close(sub.done)
				return
			case event := <-sub.events:
				if err := handler(ctx, event); err != nil {
					b.logger.Error("consumer handler failed",
						"event", "bus_consume_failed",
						"module", "internal/platform/messaging",
						"layer", "platform",
						"topic", topic,
						"consumer_group", consumerGroup,
						"event_id", event.EventID,
						"event_type", event.EventType,
						"error", err.Error(),
					)
				}
			}
		}
	}()
	return nil
}

// pick selects one subscription per consumer group of topic.
func (b *Bus) pick(topic string) []*subscription {
	b.mu.Lock()
	defer b.mu.Unlock()

	groups := b.groups[topic]
	picked := make([]*subscription, 0, len(groups))
	for _, group := range groups {
		if len(group.subscriptions) == 0 {
			continue
		}
		sub := group.subscriptions[group.next%len(group.subscriptions)]
		group.next++
		picked = append(picked, sub)
	}
	return picked
}

func (b *Bus) removeSubscription(topic string, consumerGroup string, target *subscription) {
	b.mu.Lock()
	defer b.mu.Unlock()

	group, ok := b.groups[topic][consumerGroup]
	if !ok {
		return
	}
	filtered := make([]*subscription, 0, len(group.subscriptions))
	for _, item := range group.subscriptions {
		if item != target {
			filtered = append(filtered, item)
		}
	}
	group.subscriptions = filtered
	if len(filtered) == 0 {
		delete(b.groups[topic], consumerGroup)
	}
}
