package messaging

import (
	"context"
	"log/slog"
	"sync"

	"ballotbox/contexts/governance/ballot-engine/ports"
)

// Kafka is the event bus adapter used by the outbox relay.
// Current implementation is in-process fan-out while runtime wiring is
// finalized for external brokers.
type Kafka struct {
	mu          sync.RWMutex
	brokers     []string
	subscribers map[string][]chan ports.EventEnvelope
	logger      *slog.Logger
}

func NewKafka(brokers []string, logger *slog.Logger) (*Kafka, error) {
	if logger == nil {
		logger = slog.Default()
	}
	logger.Info("event bus configured",
		"event", "kafka_configured",
		"module", "internal/platform/messaging",
		"layer", "platform",
		"brokers", brokers,
	)
	return &Kafka{
		brokers:     append([]string(nil), brokers...),
		subscribers: make(map[string][]chan ports.EventEnvelope),
		logger:      logger,
	}, nil
}

func (k *Kafka) Publish(ctx context.Context, topic string, event ports.EventEnvelope) error {
	// Sends never block, so holding the read lock keeps subscriber removal
	// from closing a channel mid-send.
	k.mu.RLock()
	defer k.mu.RUnlock()

	for _, sub := range k.subscribers[topic] {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case sub <- event:
		default:
			k.logger.Warn("dropping event for slow subscriber",
				"event", "kafka_publish_drop",
				"module", "internal/platform/messaging",
				"layer", "platform",
				"topic", topic,
				"event_id", event.EventID,
			)
		}
	}

	k.logger.Info("event published",
		"event", "kafka_publish",
		"module", "internal/platform/messaging",
		"layer", "platform",
		"topic", topic,
		"event_id", event.EventID,
		"event_type", event.EventType,
		"partition_key", event.PartitionKey,
	)
	return nil
}

// Subscribe returns a buffered channel of events published to topic. The
// channel is closed once ctx is done.
func (k *Kafka) Subscribe(ctx context.Context, topic string) <-chan ports.EventEnvelope {
	ch := make(chan ports.EventEnvelope, 128)

	k.mu.Lock()
	k.subscribers[topic] = append(k.subscribers[topic], ch)
	k.mu.Unlock()

	go func() {
		<-ctx.Done()
		k.removeSubscriber(topic, ch)
		close(ch)
	}()
	return ch
}

func (k *Kafka) removeSubscriber(topic string, target chan ports.EventEnvelope) {
	k.mu.Lock()
	defer k.mu.Unlock()

	items := k.subscribers[topic]
	if len(items) == 0 {
		return
	}
	filtered := make([]chan ports.EventEnvelope, 0, len(items))
	for _, item := range items {
		if item != target {
			filtered = append(filtered, item)
		}
	}
	k.subscribers[topic] = filtered
}

var _ ports.EventPublisher = (*Kafka)(nil)
