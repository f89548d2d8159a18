package events

import "time"

// SubscriberRegistered is emitted after a subscriber has been stored.
// RequestID is empty outside an HTTP request.
type SubscriberRegistered struct {
	RequestID string
	Channel   string
	Topic     string
	FieldName string
}

// BroadcastStart is emitted before a broadcast is delivered to the
// subscribers of a topic.
type BroadcastStart struct {
	FieldName   string
	Topic       string
	Subscribers int
}

// BroadcastFinish is emitted after every subscriber of the topic has been
// handled.
type BroadcastFinish struct {
	FieldName string
	Topic     string
	Delivered int
	Err       error
	Duration  time.Duration
}
