package subscriptions

import (
	"context"

	"github.com/iancoleman/strcase"
)

// Subscription implements one Subscription root field.
type Subscription interface {
	// Authorize decides whether the subscriber may register.
	Authorize(ctx context.Context, s *Subscriber) (bool, error)
	// Filter decides whether root is delivered to s.
	Filter(ctx context.Context, s *Subscriber, root any) (bool, error)
	// EncodeTopic returns the topic a new subscriber is stored under.
	EncodeTopic(s *Subscriber, fieldName string) string
	// DecodeTopic returns the topic whose subscribers receive root.
	DecodeTopic(fieldName string, root any) string
	// Resolve turns the broadcast root into the field value.
	Resolve(ctx context.Context, root any, s *Subscriber) (any, error)
}

// Base authorizes everyone, delivers everything and uses the field name in
// SCREAMING_SNAKE_CASE as topic. Embed it to override single methods.
type Base struct{}

func (Base) Authorize(context.Context, *Subscriber) (bool, error) { return true, nil }

func (Base) Filter(context.Context, *Subscriber, any) (bool, error) { return true, nil }

func (Base) EncodeTopic(_ *Subscriber, fieldName string) string { return Topic(fieldName) }

func (Base) DecodeTopic(fieldName string, _ any) string { return Topic(fieldName) }

func (Base) Resolve(_ context.Context, root any, _ *Subscriber) (any, error) { return root, nil }

// Topic is the default topic of a subscription field.
func Topic(fieldName string) string { return strcase.ToScreamingSnake(fieldName) }
