package eventbus

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

type ping struct{ n int }
type pong struct{}

func TestBus(t *testing.T) {
	b := New()
	Use(b)
	t.Cleanup(func() { Use(nil) })

	var got []string
	unsubA := Subscribe(func(_ context.Context, p ping) { got = append(got, "a") })
	unsubB := Subscribe(func(_ context.Context, p ping) { got = append(got, "b") })
	On(b, func(context.Context, pong) { got = append(got, "pong") })

	Publish(context.Background(), ping{n: 1})
	require.Equal(t, []string{"a", "b"}, got)

	// A second unsubscribe is a no-op.
	unsubA()
	unsubA()
	got = nil
	Publish(context.Background(), ping{n: 2})
	Publish(context.Background(), pong{})
	require.Equal(t, []string{"b", "pong"}, got)

	unsubB()
	got = nil
	Publish(context.Background(), ping{n: 3})
	require.Empty(t, got)
}

func TestPublishWithoutBus(t *testing.T) {
	Use(nil)
	called := false
	unsub := Subscribe(func(context.Context, ping) { called = true })
	Publish(context.Background(), ping{})
	unsub()
	require.False(t, called)
}
