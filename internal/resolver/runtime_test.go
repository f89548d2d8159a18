package resolver_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"

	arguments "github.com/hanpama/lighthouse/internal/arguments"
	directives "github.com/hanpama/lighthouse/internal/directives"
	executor "github.com/hanpama/lighthouse/internal/executor"
	gqlcontext "github.com/hanpama/lighthouse/internal/gqlcontext"
	language "github.com/hanpama/lighthouse/internal/language"
	resolver "github.com/hanpama/lighthouse/internal/resolver"
	scalars "github.com/hanpama/lighthouse/internal/scalars"
	schema "github.com/hanpama/lighthouse/internal/schema"
	subscriptions "github.com/hanpama/lighthouse/internal/subscriptions"
	storage "github.com/hanpama/lighthouse/internal/subscriptions/storage"
)

const sdl = `
scalar JSON
scalar DateTime

enum Role { ADMIN MEMBER }

interface Node { id: ID! }

type User implements Node {
  id: ID!
  fullName: String @rename(attribute: "full_name")
  role: Role
  joinedAt: DateTime
}

type Post implements Node { id: ID! title: String }

union SearchResult = User | Post

type Query {
  hello(name: String = "world"): String
  user(id: ID!): User
  node(id: ID!): Node
  search(term: String): [SearchResult!]
  echo(input: ProfileInput @spread, tag: String): JSON
  boom: String
}

type Mutation {
  updateProfile(input: ProfileInput! @spread): JSON
    @inject(context: "user.id", name: "input.owner")
}

type Subscription {
  userJoined: User
}

input ProfileInput { name: String owner: ID }
`

var namespaces = schema.RootNamespaces{
	Queries:       []string{"app.queries", "queries"},
	Mutations:     []string{"mutations"},
	Subscriptions: []string{"subscriptions"},
}

func loadSchema(t *testing.T) *schema.Schema {
	t.Helper()
	s, err := schema.BuildFromSDL(directives.Definitions(), &language.Source{Name: t.Name() + ".graphql", Input: sdl})
	require.NoError(t, err)
	return s
}

func execute(t *testing.T, s *schema.Schema, rt executor.Runtime, ctx context.Context, query string, vars map[string]any) *executor.ExecutionResult {
	t.Helper()
	doc, err := language.ParseQuery(query)
	require.NoError(t, err)
	return executor.NewExecutor(rt, s).ExecuteRequest(ctx, doc, "", vars, nil)
}

func undefinedAware(name string) directives.ResolveFunc {
	return func(_ context.Context, _ any, args *arguments.ArgumentSet, _ *executor.ResolveInfo) (any, error) {
		arg, ok := args.ArgumentsWithUndefined().Get(name)
		if !ok {
			return nil, nil
		}
		return fmt.Sprintf("hello %v", arg.ToPlain()), nil
	}
}

func TestRootNamespaces(t *testing.T) {
	s := loadSchema(t)
	reg := resolver.NewRegistry(namespaces).
		Register("queries", "hello", undefinedAware("name")).
		Register("queries", "user", func(context.Context, any, *arguments.ArgumentSet, *executor.ResolveInfo) (any, error) {
			return map[string]any{"id": "shadowed"}, nil
		}).
		Register("app.queries", "user", func(_ context.Context, _ any, args *arguments.ArgumentSet, _ *executor.ResolveInfo) (any, error) {
			return map[string]any{"id": args.ToArray()["id"], "full_name": "Ann Lee", "role": "ADMIN"}, nil
		})
	rt := resolver.NewRuntime(s, reg)

	res := execute(t, s, rt, context.Background(), `{ hello named: hello(name: "ann") user(id: "1") { id fullName role } }`, nil)
	require.Empty(t, res.Errors)
	want := map[string]any{
		"hello": "hello world",
		"named": "hello ann",
		"user":  map[string]any{"id": "1", "fullName": "Ann Lee", "role": "ADMIN"},
	}
	if diff := cmp.Diff(want, res.Data); diff != "" {
		t.Fatalf("data mismatch (-want +got):\n%s", diff)
	}
}

func TestEcho(t *testing.T) {
	s := loadSchema(t)
	query := `{ echo(input: {name: "ann"}, tag: "x") }`

	res := execute(t, s, resolver.NewRuntime(s, resolver.NewRegistry(namespaces), resolver.WithEcho(true)), context.Background(), query, nil)
	require.Empty(t, res.Errors)
	require.Equal(t, map[string]any{"echo": map[string]any{"name": "ann", "tag": "x"}}, res.Data)

	res = execute(t, s, resolver.NewRuntime(s, resolver.NewRegistry(namespaces)), context.Background(), query, nil)
	require.Empty(t, res.Errors)
	require.Equal(t, map[string]any{"echo": nil}, res.Data)
}

func TestArgumentDirectives(t *testing.T) {
	s := loadSchema(t)
	dirs := directives.NewRegistry()
	dirs.Register(directives.InjectDirective, directives.Inject{})
	reg := resolver.NewRegistry(namespaces).Register("mutations", "updateProfile", resolver.Echo)
	rt := resolver.NewRuntime(s, reg, resolver.WithDirectives(dirs))

	ctx := gqlcontext.NewContext(context.Background(), &gqlcontext.Context{User: map[string]any{"id": "7"}})
	res := execute(t, s, rt, ctx, `mutation { updateProfile(input: {name: "ann", owner: "1"}) }`, nil)
	require.Empty(t, res.Errors)
	require.Equal(t, map[string]any{"updateProfile": map[string]any{"name": "ann", "owner": "7"}}, res.Data)
}

func TestBatchResolvers(t *testing.T) {
	s := loadSchema(t)
	var (
		mu    sync.Mutex
		calls [][]string
	)
	reg := resolver.NewRegistry(namespaces).
		Register("queries", "hello", undefinedAware("name")).
		RegisterBatch("queries", "user", func(_ context.Context, items []resolver.BatchItem) ([]any, error) {
			ids := make([]string, len(items))
			out := make([]any, len(items))
			for i, item := range items {
				id := item.Args.ToArray()["id"].(string)
				ids[i] = id
				if id == "404" {
					out[i] = errors.New("user 404 not found")
					continue
				}
				out[i] = map[string]any{"id": id}
			}
			mu.Lock()
			calls = append(calls, ids)
			mu.Unlock()
			return out, nil
		})
	rt := resolver.NewRuntime(s, reg, resolver.WithConcurrency(1))

	res := execute(t, s, rt, context.Background(), `{ a: user(id: "1") { id } b: user(id: "2") { id } c: user(id: "404") { id } hello }`, nil)
	require.Equal(t, [][]string{{"1", "2", "404"}}, calls)
	want := map[string]any{
		"a":     map[string]any{"id": "1"},
		"b":     map[string]any{"id": "2"},
		"c":     nil,
		"hello": "hello world",
	}
	if diff := cmp.Diff(want, res.Data); diff != "" {
		t.Fatalf("data mismatch (-want +got):\n%s", diff)
	}
	wantErrs := []executor.GraphQLError{{Message: "user 404 not found", Path: executor.Path{"c"}}}
	if diff := cmp.Diff(wantErrs, res.Errors); diff != "" {
		t.Fatalf("errors mismatch (-want +got):\n%s", diff)
	}
}

func TestBatchResolverLengthMismatch(t *testing.T) {
	s := loadSchema(t)
	reg := resolver.NewRegistry(namespaces).
		RegisterBatch("queries", "user", func(context.Context, []resolver.BatchItem) ([]any, error) {
			return nil, nil
		})
	res := execute(t, s, resolver.NewRuntime(s, reg), context.Background(), `{ user(id: "1") { id } }`, nil)
	require.Len(t, res.Errors, 1)
	require.Equal(t, "batch resolver returned 0 values for 1 items", res.Errors[0].Message)
}

func TestResolverPanic(t *testing.T) {
	s := loadSchema(t)
	reg := resolver.NewRegistry(namespaces).
		Register("queries", "hello", undefinedAware("name")).
		Register("queries", "boom", func(context.Context, any, *arguments.ArgumentSet, *executor.ResolveInfo) (any, error) {
			panic("kaboom")
		})
	res := execute(t, s, resolver.NewRuntime(s, reg), context.Background(), `{ boom hello }`, nil)

	require.Equal(t, map[string]any{"boom": nil, "hello": "hello world"}, res.Data)
	wantErrs := []executor.GraphQLError{{Message: "internal error resolving Query.boom", Path: executor.Path{"boom"}}}
	if diff := cmp.Diff(wantErrs, res.Errors); diff != "" {
		t.Fatalf("errors mismatch (-want +got):\n%s", diff)
	}
}

func TestResolveType(t *testing.T) {
	s := loadSchema(t)
	reg := resolver.NewRegistry(namespaces).
		Register("queries", "node", func(_ context.Context, _ any, args *arguments.ArgumentSet, _ *executor.ResolveInfo) (any, error) {
			return map[string]any{"id": args.ToArray()["id"], "title": "hi"}, nil
		}).
		Register("queries", "search", func(context.Context, any, *arguments.ArgumentSet, *executor.ResolveInfo) (any, error) {
			return []any{
				map[string]any{"__typename": "User", "id": "1", "full_name": "Ann"},
				map[string]any{"__typename": "Post", "id": "2", "title": "Hello"},
			}, nil
		}).
		RegisterType("Node", func(_ context.Context, value any) (string, error) {
			if _, ok := value.(map[string]any)["title"]; ok {
				return "Post", nil
			}
			return "User", nil
		})
	rt := resolver.NewRuntime(s, reg)

	res := execute(t, s, rt, context.Background(), `{
		node(id: "9") { id ... on Post { title } }
		search { ... on User { fullName } ... on Post { title } }
	}`, nil)
	require.Empty(t, res.Errors)
	want := map[string]any{
		"node":   map[string]any{"id": "9", "title": "hi"},
		"search": []any{map[string]any{"fullName": "Ann"}, map[string]any{"title": "Hello"}},
	}
	if diff := cmp.Diff(want, res.Data); diff != "" {
		t.Fatalf("data mismatch (-want +got):\n%s", diff)
	}

	_, err := rt.ResolveType(context.Background(), "SearchResult", "plain")
	require.EqualError(t, err, "cannot resolve the concrete type of SearchResult for string")
}

func TestSubscriptionFields(t *testing.T) {
	s := loadSchema(t)
	store := storage.NewMemory(gqlcontext.JSONSerializer{})
	subs := subscriptions.NewRegistry(store)
	subs.Register("userJoined", subscriptions.Base{})
	rt := resolver.NewRuntime(s, resolver.NewRegistry(namespaces), resolver.WithSubscriptions(subs), resolver.WithScalars(scalars.NewRegistry()))

	res := execute(t, s, rt, context.Background(), `subscription { userJoined { id joinedAt } }`, nil)
	require.Empty(t, res.Errors)
	require.Equal(t, map[string]any{"userJoined": nil}, res.Data)
	ext := res.Extensions[subscriptions.ExtensionKey].(map[string]any)

	sub, err := store.SubscriberByChannel(context.Background(), ext["channel"].(string))
	require.NoError(t, err)
	require.Equal(t, "USER_JOINED", sub.Topic)

	// Replaying the stored query resolves the field from the broadcast root.
	broadcaster := &subscriptions.MemoryBroadcaster{}
	m := subscriptions.NewManager(subs, store, broadcaster, executor.NewExecutor(rt, s))
	require.NoError(t, m.Broadcast(context.Background(), "userJoined", map[string]any{"id": "5", "joined_at": "2020-4-20 1:2:3"}))
	deliveries := broadcaster.Deliveries()
	require.Len(t, deliveries, 1)
	require.Equal(t, map[string]any{"userJoined": map[string]any{"id": "5", "joinedAt": "2020-04-20 01:02:03"}}, deliveries[0].Result.Data)
}
