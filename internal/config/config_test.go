package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"

	schema "github.com/hanpama/lighthouse/internal/schema"
)

func TestDefault(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	require.Equal(t, ":8080", cfg.Server.Addr)
	require.Equal(t, "memory", cfg.Subscriptions.Storage)

	want := schema.RootNamespaces{
		Queries:       []string{"queries"},
		Mutations:     []string{"mutations"},
		Subscriptions: []string{"subscriptions"},
	}
	if diff := cmp.Diff(want, cfg.Namespaces.RootNamespaces()); diff != "" {
		t.Fatalf("namespaces mismatch (-want +got):\n%s", diff)
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "lighthouse.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
namespaces:
  queries: app.queries
  mutations: [app.mutations, shared.mutations]
server:
  addr: 127.0.0.1:9000
  timeout: 3s
  cors: "*"
subscriptions:
  storage: bolt
  bolt_path: /var/lib/lighthouse/subscribers.db
  exclude_empty: true
log:
  level: debug
`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	require.Equal(t, StringList{"app.queries"}, cfg.Namespaces.Queries)
	require.Equal(t, StringList{"app.mutations", "shared.mutations"}, cfg.Namespaces.Mutations)
	require.Equal(t, StringList{"subscriptions"}, cfg.Namespaces.Subscriptions)
	require.Equal(t, "127.0.0.1:9000", cfg.Server.Addr)
	require.Equal(t, 3*time.Second, cfg.Server.Timeout)
	require.Equal(t, StringList{"*"}, cfg.Server.CORS)
	require.Equal(t, "bolt", cfg.Subscriptions.Storage)
	require.True(t, cfg.Subscriptions.ExcludeEmpty)
	require.Equal(t, 2, cfg.Subscriptions.Version)
	require.Equal(t, "debug", cfg.Log.Level)
}

func TestParseInvalid(t *testing.T) {
	cases := map[string]string{
		"unknown storage":  "subscriptions: {storage: redis}",
		"bolt needs path":  "subscriptions: {storage: bolt}",
		"bad log level":    "log: {level: loud}",
		"bad version":      "subscriptions: {version: 3}",
		"namespace object": "namespaces: {queries: {a: b}}",
		"empty addr":       `server: {addr: ""}`,
	}
	for name, doc := range cases {
		t.Run(name, func(t *testing.T) {
			require.Error(t, Parse([]byte(doc), Default()))
		})
	}

	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.ErrorIs(t, err, os.ErrNotExist)
}
