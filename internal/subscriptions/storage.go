package subscriptions

import (
	"context"
	"errors"
)

var ErrSubscriberNotFound = errors.New("subscriber not found")

// Storage persists subscribers between registration and broadcast.
type Storage interface {
	// SubscriberByChannel returns ErrSubscriberNotFound for unknown channels.
	SubscriberByChannel(ctx context.Context, channel string) (*Subscriber, error)
	SubscribersByTopic(ctx context.Context, topic string) ([]*Subscriber, error)
	// StoreSubscriber stores s under topic and sets s.Topic.
	StoreSubscriber(ctx context.Context, s *Subscriber, topic string) error
	// DeleteSubscriber removes and returns the subscriber of channel.
	DeleteSubscriber(ctx context.Context, channel string) (*Subscriber, error)
}
