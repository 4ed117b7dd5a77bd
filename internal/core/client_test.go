package core

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestClientTrySend(t *testing.T) {
	c := guestClient("a")

	require.True(t, c.TrySend(&Reply{Action: ReplyConnect}))
	require.Len(t, c.Replies, 1)
}

func TestClientTrySendDroppedAfterClose(t *testing.T) {
	c := guestClient("a")
	require.True(t, c.TrySend(&Reply{Action: ReplyConnect}))

	c.Close()

	require.False(t, c.TrySend(&Reply{Action: ReplyUpdateClients}))
	// Only the pre-close reply is queued.
	require.Len(t, c.Replies, 1)
}

func TestClientTrySendDroppedWhenBufferFull(t *testing.T) {
	c := guestClient("a")

	for c.TrySend(&Reply{Action: ReplyUpdateClients}) {
	}

	require.Equal(t, cap(c.Replies), len(c.Replies))
	require.False(t, c.TrySend(&Reply{Action: ReplyUpdateClients}))

	// Draining one slot makes sends possible again.
	<-c.Replies
	require.True(t, c.TrySend(&Reply{Action: ReplyUpdateClients}))
}

func TestClientIdentity(t *testing.T) {
	require.Equal(t, "conn:a", guestClient("a").Identity())
	require.Equal(t, "user:42", registeredClient(42, "alice").Identity())
}
