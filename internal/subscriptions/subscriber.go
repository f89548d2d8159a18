package subscriptions

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/mitchellh/mapstructure"

	executor "github.com/hanpama/lighthouse/internal/executor"
	language "github.com/hanpama/lighthouse/internal/language"
)

// ChannelPrefix starts every subscriber channel name.
const ChannelPrefix = "private-lighthouse-"

// Subscriber is one client's subscription registration. Its serialized form
// holds everything needed to execute the subscribed field again when a
// broadcast for its topic arrives.
type Subscriber struct {
	// Channel identifies the subscriber for its whole lifetime.
	Channel string
	Topic   string
	// Query is the subscription operation together with every fragment of
	// the request.
	Query     *language.QueryDocument
	FieldName string
	// Root is the value being broadcast. It is never persisted.
	Root      any
	Args      map[string]any
	Variables map[string]any
	Context   any
}

// NewSubscriber builds a subscriber with a fresh channel from the
// resolution of a subscription field. It panics when info carries no
// operation; execution always provides one.
func NewSubscriber(args map[string]any, gctx any, info *executor.ResolveInfo) *Subscriber {
	if info == nil || info.Operation == nil {
		panic("subscriptions: resolve info has no operation definition")
	}
	return &Subscriber{
		Channel:   UniqueChannelName(),
		Query:     &language.QueryDocument{Operations: language.OperationList{info.Operation}, Fragments: info.Fragments},
		FieldName: info.FieldName,
		Args:      args,
		Variables: info.VariableValues,
		Context:   gctx,
	}
}

// DecodeArgs decodes the subscribed arguments into out, a pointer to a
// struct or map. Struct fields match argument names through their
// "graphql" tag or case-insensitively by name. Input is decoded weakly, so
// an Int argument fills a string field and a Float fills an int field.
func (s *Subscriber) DecodeArgs(out any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:          "graphql",
		WeaklyTypedInput: true,
		Result:           out,
	})
	if err != nil {
		return err
	}
	if err := dec.Decode(s.Args); err != nil {
		return fmt.Errorf("decode arguments of %s: %w", s.Channel, err)
	}
	return nil
}

// UniqueChannelName returns "private-lighthouse-" followed by 32 random
// alphanumerics, a dash and the current unix time in seconds.
func UniqueChannelName() string {
	token := strings.ReplaceAll(uuid.NewString(), "-", "")
	return ChannelPrefix + token + "-" + strconv.FormatInt(time.Now().Unix(), 10)
}

// ContextSerializer persists the opaque request context of a subscriber.
type ContextSerializer interface {
	Serialize(gctx any) ([]byte, error)
	Deserialize(data []byte) (any, error)
}

// record is the persisted form of a Subscriber. Field names are stable.
// Args and Variables keep the Go type of every value so that a restored
// subscriber resolves with exactly the values it subscribed with.
type record struct {
	Channel   string          `json:"channel"`
	Topic     string          `json:"topic"`
	Query     []byte          `json:"query"`
	FieldName string          `json:"field_name"`
	Args      json.RawMessage `json:"args"`
	Variables json.RawMessage `json:"variables"`
	Context   []byte          `json:"context"`
}

// Serialize encodes the subscriber. The context is encoded with cs.
func (s *Subscriber) Serialize(cs ContextSerializer) ([]byte, error) {
	query, err := language.EncodeDocument(s.Query)
	if err != nil {
		return nil, fmt.Errorf("encode query: %w", err)
	}
	args, err := encodeValues(s.Args)
	if err != nil {
		return nil, fmt.Errorf("encode arguments: %w", err)
	}
	vars, err := encodeValues(s.Variables)
	if err != nil {
		return nil, fmt.Errorf("encode variables: %w", err)
	}
	gctx, err := cs.Serialize(s.Context)
	if err != nil {
		return nil, fmt.Errorf("serialize context: %w", err)
	}
	return json.Marshal(record{
		Channel:   s.Channel,
		Topic:     s.Topic,
		Query:     query,
		FieldName: s.FieldName,
		Args:      args,
		Variables: vars,
		Context:   gctx,
	})
}

// DeserializeSubscriber restores a subscriber encoded by Serialize.
func DeserializeSubscriber(data []byte, cs ContextSerializer) (*Subscriber, error) {
	var r record
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("decode subscriber: %w", err)
	}
	args, err := decodeValues(r.Args)
	if err != nil {
		return nil, fmt.Errorf("decode arguments of %s: %w", r.Channel, err)
	}
	vars, err := decodeValues(r.Variables)
	if err != nil {
		return nil, fmt.Errorf("decode variables of %s: %w", r.Channel, err)
	}
	query, err := language.DecodeDocument(r.Query)
	if err != nil {
		return nil, fmt.Errorf("decode subscriber %s: %w", r.Channel, err)
	}
	gctx, err := cs.Deserialize(r.Context)
	if err != nil {
		return nil, fmt.Errorf("deserialize context of %s: %w", r.Channel, err)
	}
	return &Subscriber{
		Channel:   r.Channel,
		Topic:     r.Topic,
		Query:     query,
		FieldName: r.FieldName,
		Args:      args,
		Variables: vars,
		Context:   gctx,
	}, nil
}
