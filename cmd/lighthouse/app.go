package main

import (
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"slices"

	"go.uber.org/zap"

	config "github.com/hanpama/lighthouse/internal/config"
	directives "github.com/hanpama/lighthouse/internal/directives"
	gqlcontext "github.com/hanpama/lighthouse/internal/gqlcontext"
	language "github.com/hanpama/lighthouse/internal/language"
	resolver "github.com/hanpama/lighthouse/internal/resolver"
	scalars "github.com/hanpama/lighthouse/internal/scalars"
	schema "github.com/hanpama/lighthouse/internal/schema"
	server "github.com/hanpama/lighthouse/internal/server"
	subscriptions "github.com/hanpama/lighthouse/internal/subscriptions"
	storage "github.com/hanpama/lighthouse/internal/subscriptions/storage"
)

// loadSchema builds the schema from the SDL files matched by patterns
// together with the server directive definitions.
func loadSchema(patterns []string) (*schema.Schema, error) {
	var files []string
	for _, p := range patterns {
		matches, err := filepath.Glob(p)
		if err != nil {
			return nil, fmt.Errorf("schema pattern %q: %w", p, err)
		}
		if len(matches) == 0 {
			return nil, fmt.Errorf("schema pattern %q matches no files", p)
		}
		files = append(files, matches...)
	}
	slices.Sort(files)
	files = slices.Compact(files)

	sources := []*language.Source{directives.Definitions()}
	for _, f := range files {
		data, err := os.ReadFile(f)
		if err != nil {
			return nil, err
		}
		sources = append(sources, &language.Source{Name: f, Input: string(data)})
	}
	return schema.BuildFromSDL(sources...)
}

func openStorage(cfg config.Subscriptions) (subscriptions.Storage, func() error, error) {
	cs := gqlcontext.JSONSerializer{}
	if cfg.Storage == "bolt" {
		db, err := storage.OpenBolt(cfg.BoltPath, cs)
		if err != nil {
			return nil, nil, err
		}
		return db, db.Close, nil
	}
	return storage.NewMemory(cs), func() error { return nil }, nil
}

// app is the wired GraphQL service.
type app struct {
	handler     *server.Handler
	manager     *subscriptions.Manager
	storage     subscriptions.Storage
	broadcaster subscriptions.Broadcaster
	resolvers   *resolver.Registry
	close       func() error
}

func newApp(cfg *config.Config, sch *schema.Schema, log *zap.Logger, echo bool) (*app, error) {
	store, closeStore, err := openStorage(cfg.Subscriptions)
	if err != nil {
		return nil, fmt.Errorf("open subscriber storage: %w", err)
	}

	subs := subscriptions.NewRegistry(store,
		subscriptions.WithVersion(cfg.Subscriptions.Version),
		subscriptions.WithLogger(log))
	if root := sch.GetSubscriptionType(); root != nil {
		for _, f := range root.Fields {
			subs.Register(f.Name, subscriptions.Base{})
		}
	}

	var broadcaster subscriptions.Broadcaster = &subscriptions.LogBroadcaster{Logger: log}
	if cfg.Subscriptions.Broadcaster == "memory" {
		broadcaster = &subscriptions.MemoryBroadcaster{}
	}

	broadcast := &directives.Broadcast{Logger: log}
	dirs := directives.NewRegistry()
	dirs.Register(directives.InjectDirective, directives.Inject{})
	dirs.Register(directives.BroadcastDirective, broadcast)

	resolvers := resolver.NewRegistry(cfg.Namespaces.RootNamespaces())
	rt := resolver.NewRuntime(sch, resolvers,
		resolver.WithDirectives(dirs),
		resolver.WithSubscriptions(subs),
		resolver.WithScalars(scalars.NewRegistry()),
		resolver.WithEcho(echo),
		resolver.WithLogger(log))

	opts := []server.Option{
		server.WithTimeout(cfg.Server.Timeout),
		server.WithMaxBodyBytes(cfg.Server.MaxBodyBytes),
		server.WithQueryCache(cfg.Server.QueryCacheSize),
		server.WithLogger(log),
	}
	if cfg.Server.Pretty {
		opts = append(opts, server.WithPretty())
	}
	if len(cfg.Server.CORS) > 0 {
		opts = append(opts, server.WithCORS(cfg.Server.CORS...))
	}
	if cfg.Auth.UserHeader != "" {
		opts = append(opts, server.WithContext(gqlcontext.HeaderUser(cfg.Auth.UserHeader)))
	}
	h, err := server.New(rt, sch, opts...)
	if err != nil {
		_ = closeStore()
		return nil, fmt.Errorf("server init: %w", err)
	}

	manager := subscriptions.NewManager(subs, store, broadcaster, h.Executor(),
		subscriptions.WithExcludeEmpty(cfg.Subscriptions.ExcludeEmpty),
		subscriptions.WithQueueSize(cfg.Subscriptions.QueueSize),
		subscriptions.WithManagerLogger(log))
	broadcast.Broadcaster = manager

	return &app{
		handler:     h,
		manager:     manager,
		storage:     store,
		broadcaster: broadcaster,
		resolvers:   resolvers,
		close:       closeStore,
	}, nil
}

func (a *app) routes() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/graphql", a.handler)
	return mux
}
