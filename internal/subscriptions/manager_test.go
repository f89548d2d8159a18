package subscriptions_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	arguments "github.com/hanpama/lighthouse/internal/arguments"
	eventbus "github.com/hanpama/lighthouse/internal/eventbus"
	events "github.com/hanpama/lighthouse/internal/events"
	executor "github.com/hanpama/lighthouse/internal/executor"
	gqlcontext "github.com/hanpama/lighthouse/internal/gqlcontext"
	language "github.com/hanpama/lighthouse/internal/language"
	reqid "github.com/hanpama/lighthouse/internal/reqid"
	schema "github.com/hanpama/lighthouse/internal/schema"
	subscriptions "github.com/hanpama/lighthouse/internal/subscriptions"
	storage "github.com/hanpama/lighthouse/internal/subscriptions/storage"
)

const sdl = `
type Query { ping: String }
type Post { id: ID! title: String author: ID }
type Subscription {
	postCreated(author: ID): Post
	postDeleted: Post
}
`

const subscribeQuery = `subscription ($author: ID) { postCreated(author: $author) { id title } }`

// fieldRuntime resolves Subscription fields through the registry and every
// other field as a map property.
type fieldRuntime struct {
	registry *subscriptions.Registry
}

func (r *fieldRuntime) ResolveSync(ctx context.Context, info *executor.ResolveInfo, source any, args map[string]any) (any, error) {
	if info.ParentType.Name == schema.RootSubscription {
		return r.registry.ResolveField(ctx, source, arguments.FromMap(args), info)
	}
	if m, ok := source.(map[string]any); ok {
		return m[info.FieldName], nil
	}
	return nil, nil
}

func (r *fieldRuntime) BatchResolveAsync(ctx context.Context, tasks []executor.AsyncResolveTask) []executor.AsyncResolveResult {
	out := make([]executor.AsyncResolveResult, len(tasks))
	for i, task := range tasks {
		v, err := r.ResolveSync(ctx, task.Info, task.Source, task.Args)
		out[i] = executor.AsyncResolveResult{Value: v, Error: err}
	}
	return out
}

func (r *fieldRuntime) ResolveType(context.Context, string, any) (string, error) {
	return "", errors.New("no abstract types")
}

func (r *fieldRuntime) SerializeLeafValue(_ context.Context, _ string, value any) (any, error) {
	return value, nil
}

type byAuthor struct{ subscriptions.Base }

func (byAuthor) Filter(_ context.Context, s *subscriptions.Subscriber, root any) (bool, error) {
	return root.(map[string]any)["author"] == s.Args["author"], nil
}

type denyAll struct{ subscriptions.Base }

func (denyAll) Authorize(context.Context, *subscriptions.Subscriber) (bool, error) { return false, nil }

type dropAll struct{ subscriptions.Base }

func (dropAll) Resolve(context.Context, any, *subscriptions.Subscriber) (any, error) { return nil, nil }

type fixture struct {
	registry    *subscriptions.Registry
	store       *storage.Memory
	broadcaster *subscriptions.MemoryBroadcaster
	exec        *executor.Executor
}

func newFixture(t *testing.T, opts ...subscriptions.RegistryOption) *fixture {
	t.Helper()
	sch, err := schema.BuildFromSDL(&language.Source{Name: "subscriptions.graphql", Input: sdl})
	require.NoError(t, err)
	store := storage.NewMemory(gqlcontext.JSONSerializer{})
	reg := subscriptions.NewRegistry(store, opts...)
	reg.Register("postCreated", byAuthor{})
	return &fixture{
		registry:    reg,
		store:       store,
		broadcaster: &subscriptions.MemoryBroadcaster{},
		exec:        executor.NewExecutor(&fieldRuntime{registry: reg}, sch),
	}
}

func (f *fixture) subscribe(t *testing.T, author string) string {
	t.Helper()
	doc, err := language.ParseQuery(subscribeQuery)
	require.NoError(t, err)
	ctx := gqlcontext.NewContext(context.Background(), &gqlcontext.Context{User: map[string]any{"id": author}})

	res := f.exec.ExecuteRequest(ctx, doc, "", map[string]any{"author": author}, nil)
	require.Empty(t, res.Errors)
	require.Equal(t, map[string]any{"postCreated": nil}, res.Data)

	ext, ok := res.Extensions[subscriptions.ExtensionKey].(map[string]any)
	require.True(t, ok, "missing %s extension", subscriptions.ExtensionKey)
	require.Equal(t, 2, ext["version"])
	channel, _ := ext["channel"].(string)
	require.NotEmpty(t, channel)
	return channel
}

func TestRegistryResolveField(t *testing.T) {
	f := newFixture(t)
	channel := f.subscribe(t, "7")

	s, err := f.store.SubscriberByChannel(context.Background(), channel)
	require.NoError(t, err)
	require.Equal(t, "POST_CREATED", s.Topic)
	require.Equal(t, "postCreated", s.FieldName)
	require.Equal(t, map[string]any{"author": "7"}, s.Args)
	require.Equal(t, &gqlcontext.Context{User: map[string]any{"id": "7"}}, s.Context)
}

func TestRegistryExtensionVersion1(t *testing.T) {
	f := newFixture(t, subscriptions.WithVersion(1))
	doc, err := language.ParseQuery(subscribeQuery)
	require.NoError(t, err)

	res := f.exec.ExecuteRequest(context.Background(), doc, "", nil, nil)
	require.Empty(t, res.Errors)
	ext := res.Extensions[subscriptions.ExtensionKey].(map[string]any)
	require.Equal(t, 1, ext["version"])
	channels := ext["channels"].(map[string]any)
	require.Contains(t, channels, "postCreated")
}

func TestRegistryRejects(t *testing.T) {
	f := newFixture(t)
	f.registry.Register("postDeleted", denyAll{})

	doc, err := language.ParseQuery(`subscription { postDeleted { id } }`)
	require.NoError(t, err)
	res := f.exec.ExecuteRequest(context.Background(), doc, "", nil, nil)
	want := []executor.GraphQLError{{Message: subscriptions.ErrUnauthorized.Error(), Path: executor.Path{"postDeleted"}}}
	if diff := cmp.Diff(want, res.Errors); diff != "" {
		t.Fatalf("errors mismatch (-want +got):\n%s", diff)
	}
	require.Nil(t, res.Extensions)

	subs, err := f.store.SubscribersByTopic(context.Background(), "POST_DELETED")
	require.NoError(t, err)
	require.Empty(t, subs)
}

func TestManagerBroadcast(t *testing.T) {
	f := newFixture(t)
	ch7 := f.subscribe(t, "7")
	f.subscribe(t, "8")

	m := subscriptions.NewManager(f.registry, f.store, f.broadcaster, f.exec)
	root := map[string]any{"id": "1", "title": "hello", "author": "7"}
	require.NoError(t, m.Broadcast(context.Background(), "postCreated", root))

	want := []subscriptions.Delivery{{
		Channel: ch7,
		Result: &executor.ExecutionResult{
			Data:   map[string]any{"postCreated": map[string]any{"id": "1", "title": "hello"}},
			Errors: []executor.GraphQLError{},
		},
	}}
	if diff := cmp.Diff(want, f.broadcaster.Deliveries()); diff != "" {
		t.Fatalf("deliveries mismatch (-want +got):\n%s", diff)
	}

	err := m.Broadcast(context.Background(), "unknown", root)
	require.Error(t, err)
}

func TestManagerExcludeEmpty(t *testing.T) {
	f := newFixture(t)
	f.registry.Register("postCreated", dropAll{})
	f.subscribe(t, "7")

	m := subscriptions.NewManager(f.registry, f.store, f.broadcaster, f.exec, subscriptions.WithExcludeEmpty(true))
	require.NoError(t, m.Broadcast(context.Background(), "postCreated", map[string]any{"author": "7"}))
	require.Empty(t, f.broadcaster.Deliveries())

	m = subscriptions.NewManager(f.registry, f.store, f.broadcaster, f.exec)
	require.NoError(t, m.Broadcast(context.Background(), "postCreated", map[string]any{"author": "7"}))
	require.Len(t, f.broadcaster.Deliveries(), 1)
}

func TestManagerQueue(t *testing.T) {
	defer goleak.VerifyNone(t)

	f := newFixture(t)
	ch := f.subscribe(t, "7")
	m := subscriptions.NewManager(f.registry, f.store, f.broadcaster, f.exec, subscriptions.WithQueueSize(4))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- m.Run(ctx) }()

	require.NoError(t, m.Queue(ctx, "postCreated", map[string]any{"id": "2", "author": "7"}))
	require.Eventually(t, func() bool { return len(f.broadcaster.Deliveries()) == 1 }, time.Second, 5*time.Millisecond)
	require.Equal(t, ch, f.broadcaster.Deliveries()[0].Channel)

	cancel()
	require.NoError(t, <-done)
	require.ErrorIs(t, m.Queue(context.Background(), "postCreated", nil), subscriptions.ErrQueueClosed)
}

func TestManagerRunDeliversBufferedJobsOnShutdown(t *testing.T) {
	defer goleak.VerifyNone(t)

	f := newFixture(t)
	ch := f.subscribe(t, "7")
	m := subscriptions.NewManager(f.registry, f.store, f.broadcaster, f.exec, subscriptions.WithQueueSize(4))

	require.NoError(t, m.Queue(context.Background(), "postCreated", map[string]any{"id": "3", "author": "7"}))
	require.NoError(t, m.Queue(context.Background(), "postCreated", map[string]any{"id": "4", "author": "7"}))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.NoError(t, m.Run(ctx))

	var ids []any
	for _, d := range f.broadcaster.Deliveries() {
		require.Equal(t, ch, d.Channel)
		data := d.Result.Data.(map[string]any)
		ids = append(ids, data["postCreated"].(map[string]any)["id"])
	}
	require.Equal(t, []any{"3", "4"}, ids)

	require.ErrorIs(t, m.Queue(context.Background(), "postCreated", nil), subscriptions.ErrQueueClosed)
	require.NotPanics(t, func() {
		require.ErrorIs(t, m.Run(context.Background()), subscriptions.ErrQueueClosed)
	})
}

func TestManagerQueueUnblocksOnShutdown(t *testing.T) {
	defer goleak.VerifyNone(t)

	f := newFixture(t)
	m := subscriptions.NewManager(f.registry, f.store, f.broadcaster, f.exec)

	queued := make(chan error, 1)
	go func() { queued <- m.Queue(context.Background(), "postCreated", map[string]any{"author": "7"}) }()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.NoError(t, m.Run(ctx))

	require.ErrorIs(t, <-queued, subscriptions.ErrQueueClosed)
	require.Empty(t, f.broadcaster.Deliveries())
}

func TestRegistryLookup(t *testing.T) {
	f := newFixture(t)
	require.True(t, f.registry.Has("postCreated"))
	require.False(t, f.registry.Has("postDeleted"))

	sub, ok := f.registry.Subscription("postCreated")
	require.True(t, ok)
	require.IsType(t, byAuthor{}, sub)
	_, ok = f.registry.Subscription("postDeleted")
	require.False(t, ok)
}

func TestSubscriberRegisteredEvent(t *testing.T) {
	bus := eventbus.New()
	eventbus.Use(bus)
	t.Cleanup(func() { eventbus.Use(nil) })
	var got []events.SubscriberRegistered
	eventbus.On(bus, func(_ context.Context, e events.SubscriberRegistered) { got = append(got, e) })

	f := newFixture(t)
	doc, err := language.ParseQuery(subscribeQuery)
	require.NoError(t, err)
	ctx, rid := reqid.NewContext(context.Background())
	res := f.exec.ExecuteRequest(ctx, doc, "", map[string]any{"author": "7"}, nil)
	require.Empty(t, res.Errors)

	channels := subscriptions.Channels(res.Extensions)
	require.Len(t, channels, 1)
	want := []events.SubscriberRegistered{{
		RequestID: rid,
		Channel:   channels[0],
		Topic:     "POST_CREATED",
		FieldName: "postCreated",
	}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("events mismatch (-want +got):\n%s", diff)
	}
}

func TestChannels(t *testing.T) {
	require.Nil(t, subscriptions.Channels(nil))
	require.Equal(t, []string{"c2"}, subscriptions.Channels(map[string]any{
		subscriptions.ExtensionKey: map[string]any{"version": 2, "channel": "c2"},
	}))
	require.Equal(t, []string{"a", "b"}, subscriptions.Channels(map[string]any{
		subscriptions.ExtensionKey: map[string]any{"version": 1, "channels": map[string]any{"y": "b", "x": "a"}},
	}))
}
