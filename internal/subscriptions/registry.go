package subscriptions

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"go.uber.org/zap"

	arguments "github.com/hanpama/lighthouse/internal/arguments"
	eventbus "github.com/hanpama/lighthouse/internal/eventbus"
	events "github.com/hanpama/lighthouse/internal/events"
	executor "github.com/hanpama/lighthouse/internal/executor"
	gqlcontext "github.com/hanpama/lighthouse/internal/gqlcontext"
	reqid "github.com/hanpama/lighthouse/internal/reqid"
)

// ExtensionKey is the response extension announcing the channel of a new
// subscriber.
const ExtensionKey = "lighthouse_subscriptions"

var ErrUnauthorized = errors.New("unauthorized subscription request")

// Registry maps Subscription root fields to their implementation and
// registers subscribers when those fields are queried.
type Registry struct {
	mu      sync.RWMutex
	fields  map[string]Subscription
	storage Storage
	version int
	log     *zap.Logger
}

// RegistryOption configures a Registry.
type RegistryOption func(*Registry)

// WithVersion selects the shape of the response extension: 1 keys channels
// by field name, 2 carries a single channel.
func WithVersion(v int) RegistryOption { return func(r *Registry) { r.version = v } }

// WithLogger sets the logger for subscriber registration.
func WithLogger(l *zap.Logger) RegistryOption { return func(r *Registry) { r.log = l } }

// NewRegistry returns an empty registry storing new subscribers in storage.
// The response extension defaults to version 2.
func NewRegistry(storage Storage, opts ...RegistryOption) *Registry {
	r := &Registry{fields: make(map[string]Subscription), storage: storage, version: 2, log: zap.NewNop()}
	for _, o := range opts {
		o(r)
	}
	return r
}

// Register binds the Subscription root field fieldName to s.
func (r *Registry) Register(fieldName string, s Subscription) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.fields[fieldName] = s
}

// Subscription returns the implementation registered for fieldName.
func (r *Registry) Subscription(fieldName string) (Subscription, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.fields[fieldName]
	return s, ok
}

// Has reports whether fieldName has a registered implementation.
func (r *Registry) Has(fieldName string) bool {
	_, ok := r.Subscription(fieldName)
	return ok
}

// ResolveField resolves a Subscription root field. When source is a
// *Subscriber the field is being replayed for a broadcast and resolves to
// the broadcast value. Otherwise a new subscriber is authorized, stored and
// announced through the response extensions; the field itself resolves to
// null.
func (r *Registry) ResolveField(ctx context.Context, source any, args *arguments.ArgumentSet, info *executor.ResolveInfo) (any, error) {
	sub, ok := r.Subscription(info.FieldName)
	if !ok {
		return nil, fmt.Errorf("no subscription registered for field %q", info.FieldName)
	}
	if replay, ok := source.(*Subscriber); ok {
		return sub.Resolve(ctx, replay.Root, replay)
	}

	var gctx any
	if c, ok := gqlcontext.FromContext(ctx); ok {
		gctx = c
	}
	subscriber := NewSubscriber(args.ToArray(), gctx, info)

	allowed, err := sub.Authorize(ctx, subscriber)
	if err != nil {
		return nil, err
	}
	if !allowed {
		return nil, ErrUnauthorized
	}

	topic := sub.EncodeTopic(subscriber, info.FieldName)
	if err := r.storage.StoreSubscriber(ctx, subscriber, topic); err != nil {
		return nil, fmt.Errorf("store subscriber: %w", err)
	}
	r.log.Debug("subscriber registered",
		zap.String("channel", subscriber.Channel),
		zap.String("topic", topic),
		zap.String("field", info.FieldName))
	rid, _ := reqid.FromContext(ctx)
	eventbus.Publish(ctx, events.SubscriberRegistered{
		RequestID: rid,
		Channel:   subscriber.Channel,
		Topic:     topic,
		FieldName: info.FieldName,
	})

	executor.SetExtension(ctx, ExtensionKey, r.extension(info.FieldName, subscriber.Channel))
	return nil, nil
}

func (r *Registry) extension(fieldName, channel string) map[string]any {
	if r.version == 1 {
		return map[string]any{
			"version":  1,
			"channels": map[string]any{fieldName: channel},
		}
	}
	return map[string]any{"version": 2, "channel": channel}
}

// Channels returns the subscriber channels announced in the response
// extensions, in either extension version.
func Channels(extensions map[string]any) []string {
	ext, ok := extensions[ExtensionKey].(map[string]any)
	if !ok {
		return nil
	}
	if ch, ok := ext["channel"].(string); ok {
		return []string{ch}
	}
	byField, _ := ext["channels"].(map[string]any)
	out := make([]string, 0, len(byField))
	for _, ch := range byField {
		if s, ok := ch.(string); ok {
			out = append(out, s)
		}
	}
	sort.Strings(out)
	return out
}
