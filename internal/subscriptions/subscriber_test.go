package subscriptions

import (
	"errors"
	"math"
	"net/http"
	"regexp"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"

	executor "github.com/hanpama/lighthouse/internal/executor"
	gqlcontext "github.com/hanpama/lighthouse/internal/gqlcontext"
	language "github.com/hanpama/lighthouse/internal/language"
)

const subscriptionQuery = `subscription OnPost($author: ID!, $withBody: Boolean = false) {
	postCreated(author: $author, tags: ["go", "graphql"]) {
		...PostFields
		body @include(if: $withBody)
	}
}

fragment PostFields on Post {
	id
	title
}
`

func resolveInfo(t *testing.T) *executor.ResolveInfo {
	t.Helper()
	doc, err := language.ParseQuery(subscriptionQuery)
	require.NoError(t, err)
	op := doc.Operations[0]
	field := op.SelectionSet[0].(*language.Field)
	return &executor.ResolveInfo{
		FieldName:      field.Name,
		Field:          field,
		FieldNodes:     []*language.Field{field},
		Operation:      op,
		Fragments:      doc.Fragments,
		VariableValues: map[string]any{"author": "7", "withBody": false},
		Path:           executor.Path{"postCreated"},
	}
}

func TestUniqueChannelName(t *testing.T) {
	pattern := regexp.MustCompile(`^private-lighthouse-[A-Za-z0-9]{32}-\d+$`)
	seen := make(map[string]struct{}, 10000)
	for range 10000 {
		name := UniqueChannelName()
		require.Regexp(t, pattern, name)
		_, dup := seen[name]
		require.False(t, dup, "duplicate channel %s", name)
		seen[name] = struct{}{}
	}
}

func TestNewSubscriber(t *testing.T) {
	info := resolveInfo(t)
	args := map[string]any{"author": "7", "tags": []any{"go", "graphql"}}

	s := NewSubscriber(args, nil, info)

	require.Regexp(t, `^private-lighthouse-`, s.Channel)
	require.Equal(t, "postCreated", s.FieldName)
	require.Equal(t, args, s.Args)
	require.Equal(t, info.VariableValues, s.Variables)
	require.Len(t, s.Query.Operations, 1)
	require.Len(t, s.Query.Fragments, 1)
	require.Equal(t, "PostFields", s.Query.Fragments[0].Name)
	require.Empty(t, s.Topic)

	other := NewSubscriber(args, nil, info)
	require.NotEqual(t, s.Channel, other.Channel)
}

func TestNewSubscriberWithoutOperation(t *testing.T) {
	info := resolveInfo(t)
	info.Operation = nil
	require.Panics(t, func() { NewSubscriber(nil, nil, info) })
}

func TestSubscriberRoundTrip(t *testing.T) {
	var cs gqlcontext.JSONSerializer
	gctx := &gqlcontext.Context{
		User:    map[string]any{"id": "7", "roles": []any{"author"}},
		Headers: http.Header{"X-Tenant": []string{"acme"}},
	}
	s := NewSubscriber(map[string]any{
		"author": "7",
		"tags":   []any{"go", "graphql"},
		"filter": map[string]any{"minScore": 1.5, "draft": false},
	}, gctx, resolveInfo(t))
	s.Topic = "POST_CREATED"
	s.Root = map[string]any{"id": "1"}

	data, err := s.Serialize(cs)
	require.NoError(t, err)

	got, err := DeserializeSubscriber(data, cs)
	require.NoError(t, err)

	require.Equal(t, s.Channel, got.Channel)
	require.Equal(t, s.Topic, got.Topic)
	require.Equal(t, s.FieldName, got.FieldName)
	require.Nil(t, got.Root)
	if diff := cmp.Diff(s.Args, got.Args); diff != "" {
		t.Fatalf("args mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(s.Variables, got.Variables); diff != "" {
		t.Fatalf("variables mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(any(gctx), got.Context); diff != "" {
		t.Fatalf("context mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(language.Print(s.Query), language.Print(got.Query)); diff != "" {
		t.Fatalf("query mismatch (-want +got):\n%s", diff)
	}
}

func TestSubscriberRoundTripKeepsValueTypes(t *testing.T) {
	var cs gqlcontext.JSONSerializer
	info := resolveInfo(t)
	info.VariableValues = map[string]any{
		"author": int64(9007199254740993),
		"limit":  int32(20),
		"since":  time.Date(2024, 3, 1, 12, 30, 0, 500, time.UTC),
	}
	s := NewSubscriber(map[string]any{
		"first":   7,
		"id":      int64(9007199254740993),
		"ratio":   math.Inf(1),
		"weights": []any{uint64(18446744073709551615), float32(0.25), nil},
		"filter": map[string]any{
			"after":  int64(-9007199254740995),
			"labels": []any{map[string]any{"rank": 3, "name": "go"}},
		},
	}, nil, info)

	data, err := s.Serialize(cs)
	require.NoError(t, err)
	got, err := DeserializeSubscriber(data, cs)
	require.NoError(t, err)

	if diff := cmp.Diff(s.Args, got.Args); diff != "" {
		t.Fatalf("args mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(s.Variables, got.Variables); diff != "" {
		t.Fatalf("variables mismatch (-want +got):\n%s", diff)
	}
	require.IsType(t, 0, got.Args["first"])
	require.Equal(t, int64(9007199254740993), got.Args["id"])
}

func TestSubscriberNilValues(t *testing.T) {
	var cs gqlcontext.JSONSerializer
	info := resolveInfo(t)
	info.VariableValues = nil
	s := NewSubscriber(nil, nil, info)

	data, err := s.Serialize(cs)
	require.NoError(t, err)
	got, err := DeserializeSubscriber(data, cs)
	require.NoError(t, err)
	require.Nil(t, got.Args)
	require.Nil(t, got.Variables)

	corrupt := []byte(`{"channel":"c","args":{"k":"martian"}}`)
	_, err = DeserializeSubscriber(corrupt, cs)
	require.ErrorContains(t, err, "unknown value kind")
}

func TestSerializedRecordKeys(t *testing.T) {
	s := NewSubscriber(map[string]any{}, nil, resolveInfo(t))
	data, err := s.Serialize(gqlcontext.JSONSerializer{})
	require.NoError(t, err)
	for _, key := range []string{"channel", "topic", "query", "field_name", "args", "variables", "context"} {
		require.Contains(t, string(data), `"`+key+`":`)
	}
	require.NotContains(t, string(data), "Root")
}

type failingSerializer struct{ err error }

func (f failingSerializer) Serialize(any) ([]byte, error)   { return nil, f.err }
func (f failingSerializer) Deserialize([]byte) (any, error) { return nil, f.err }

func TestSubscriberSerializationErrors(t *testing.T) {
	s := NewSubscriber(map[string]any{}, nil, resolveInfo(t))
	boom := errors.New("boom")

	_, err := s.Serialize(failingSerializer{err: boom})
	require.ErrorIs(t, err, boom)

	data, err := s.Serialize(gqlcontext.JSONSerializer{})
	require.NoError(t, err)
	_, err = DeserializeSubscriber(data, failingSerializer{err: boom})
	require.ErrorIs(t, err, boom)

	_, err = DeserializeSubscriber([]byte("not json"), gqlcontext.JSONSerializer{})
	require.Error(t, err)

	corrupt := []byte(`{"channel":"c","query":"AQID","context":"bnVsbA=="}`)
	_, err = DeserializeSubscriber(corrupt, gqlcontext.JSONSerializer{})
	require.ErrorIs(t, err, language.ErrMalformedDocument)
}

func TestDecodeArgs(t *testing.T) {
	s := NewSubscriber(map[string]any{
		"author":   "7",
		"minScore": 2.0,
		"tags":     []any{"go"},
	}, nil, resolveInfo(t))

	var args struct {
		Author   string
		MinScore int      `graphql:"minScore"`
		Tags     []string `graphql:"tags"`
	}
	require.NoError(t, s.DecodeArgs(&args))
	require.Equal(t, "7", args.Author)
	require.Equal(t, 2, args.MinScore)
	require.Equal(t, []string{"go"}, args.Tags)

	var bad struct{ Author map[string]any }
	require.Error(t, s.DecodeArgs(&bad))
}
