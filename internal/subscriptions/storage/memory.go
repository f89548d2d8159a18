package storage

import (
	"context"
	"slices"
	"sync"

	subscriptions "github.com/hanpama/lighthouse/internal/subscriptions"
)

// Memory keeps serialized subscribers in process memory.
type Memory struct {
	mu     sync.RWMutex
	cs     subscriptions.ContextSerializer
	byChan map[string][]byte
	topics map[string][]string // topic -> channels in registration order
}

var _ subscriptions.Storage = (*Memory)(nil)

func NewMemory(cs subscriptions.ContextSerializer) *Memory {
	return &Memory{cs: cs, byChan: make(map[string][]byte), topics: make(map[string][]string)}
}

func (m *Memory) SubscriberByChannel(_ context.Context, channel string) (*subscriptions.Subscriber, error) {
	m.mu.RLock()
	data, ok := m.byChan[channel]
	m.mu.RUnlock()
	if !ok {
		return nil, subscriptions.ErrSubscriberNotFound
	}
	return subscriptions.DeserializeSubscriber(data, m.cs)
}

func (m *Memory) SubscribersByTopic(_ context.Context, topic string) ([]*subscriptions.Subscriber, error) {
	m.mu.RLock()
	records := make([][]byte, 0, len(m.topics[topic]))
	for _, channel := range m.topics[topic] {
		records = append(records, m.byChan[channel])
	}
	m.mu.RUnlock()

	out := make([]*subscriptions.Subscriber, 0, len(records))
	for _, data := range records {
		s, err := subscriptions.DeserializeSubscriber(data, m.cs)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}

func (m *Memory) StoreSubscriber(_ context.Context, s *subscriptions.Subscriber, topic string) error {
	s.Topic = topic
	data, err := s.Serialize(m.cs)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.byChan[s.Channel]; ok {
		m.unindex(s.Channel)
	}
	m.byChan[s.Channel] = data
	m.topics[topic] = append(m.topics[topic], s.Channel)
	return nil
}

func (m *Memory) DeleteSubscriber(_ context.Context, channel string) (*subscriptions.Subscriber, error) {
	m.mu.Lock()
	data, ok := m.byChan[channel]
	if ok {
		delete(m.byChan, channel)
		m.unindex(channel)
	}
	m.mu.Unlock()
	if !ok {
		return nil, subscriptions.ErrSubscriberNotFound
	}
	return subscriptions.DeserializeSubscriber(data, m.cs)
}

// unindex removes channel from every topic index. Callers hold m.mu.
func (m *Memory) unindex(channel string) {
	for topic, channels := range m.topics {
		i := slices.Index(channels, channel)
		if i < 0 {
			continue
		}
		channels = slices.Delete(channels, i, i+1)
		if len(channels) == 0 {
			delete(m.topics, topic)
		} else {
			m.topics[topic] = channels
		}
	}
}
