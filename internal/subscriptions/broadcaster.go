package subscriptions

import (
	"context"
	"sync"

	"go.uber.org/zap"

	executor "github.com/hanpama/lighthouse/internal/executor"
)

// Broadcaster delivers the result of a replayed subscription to the client
// behind a channel.
type Broadcaster interface {
	Broadcast(ctx context.Context, s *Subscriber, result *executor.ExecutionResult) error
}

// LogBroadcaster writes deliveries to a logger. It stands in for a push
// transport during development.
type LogBroadcaster struct {
	Logger *zap.Logger
}

func (b *LogBroadcaster) Broadcast(_ context.Context, s *Subscriber, result *executor.ExecutionResult) error {
	log := b.Logger
	if log == nil {
		log = zap.NewNop()
	}
	log.Info("subscription broadcast",
		zap.String("channel", s.Channel),
		zap.String("topic", s.Topic),
		zap.Any("data", result.Data),
		zap.Int("errors", len(result.Errors)))
	return nil
}

// Delivery is one message handed to a MemoryBroadcaster.
type Delivery struct {
	Channel string
	Result  *executor.ExecutionResult
}

// MemoryBroadcaster keeps every delivery in memory.
type MemoryBroadcaster struct {
	mu         sync.Mutex
	deliveries []Delivery
}

func (b *MemoryBroadcaster) Broadcast(_ context.Context, s *Subscriber, result *executor.ExecutionResult) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.deliveries = append(b.deliveries, Delivery{Channel: s.Channel, Result: result})
	return nil
}

// Deliveries returns a copy of the recorded deliveries in order.
func (b *MemoryBroadcaster) Deliveries() []Delivery {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]Delivery(nil), b.deliveries...)
}
