package server

import (
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func recvOrNil(c *Client) []byte {
	select {
	case payload := <-c.send:
		return payload
	default:
		return nil
	}
}

func TestPublishFansOutExceptSender(t *testing.T) {
	t.Parallel()

	hub := NewHub(discardLogger())
	c1 := newTestClient("chat", "alice", 4)
	c2 := newTestClient("chat", "bob", 4)
	c3 := newTestClient("chat", "carol", 4)
	hub.Registry().Join("chat", c1)
	hub.Registry().Join("chat", c2)
	hub.Registry().Join("chat", c3)

	hub.Publish(c1, []byte("hello"))

	assert.Nil(t, recvOrNil(c1), "sender must not receive its own message")
	assert.Equal(t, []byte("hello"), recvOrNil(c2))
	assert.Equal(t, []byte("hello"), recvOrNil(c3))
}

func TestPublishIsolatedBetweenChannels(t *testing.T) {
	t.Parallel()

	hub := NewHub(discardLogger())
	c1 := newTestClient("chat-1", "alice", 4)
	c2 := newTestClient("chat-1", "bob", 4)
	c3 := newTestClient("chat-2", "carol", 4)
	hub.Registry().Join("chat-1", c1)
	hub.Registry().Join("chat-1", c2)
	hub.Registry().Join("chat-2", c3)

	hub.Publish(c1, []byte("only chat-1"))

	assert.Equal(t, []byte("only chat-1"), recvOrNil(c2))
	assert.Nil(t, recvOrNil(c3), "other channels must never observe the message")
}

func TestPublishToUnknownChannelIsNoOp(t *testing.T) {
	t.Parallel()

	hub := NewHub(discardLogger())
	orphan := newTestClient("ghost", "alice", 1)

	// Never joined; publish must not panic or create the channel.
	hub.Publish(orphan, []byte("into the void"))
	assert.False(t, hub.Registry().Contains("ghost"))
}

func TestPublishPreservesOrderPerReceiver(t *testing.T) {
	t.Parallel()

	hub := NewHub(discardLogger())
	sender := newTestClient("chat", "alice", 4)
	receiver := newTestClient("chat", "bob", 4)
	hub.Registry().Join("chat", sender)
	hub.Registry().Join("chat", receiver)

	hub.Publish(sender, []byte("first"))
	hub.Publish(sender, []byte("second"))

	assert.Equal(t, []byte("first"), recvOrNil(receiver))
	assert.Equal(t, []byte("second"), recvOrNil(receiver))
}

func TestSlowConsumerIsRemovedWithoutBlockingOthers(t *testing.T) {
	t.Parallel()

	hub := NewHub(discardLogger())
	sender := newTestClient("chat", "alice", 4)
	healthy := newTestClient("chat", "bob", 4)
	slow := newTestClient("chat", "carol", 1)
	hub.Registry().Join("chat", sender)
	hub.Registry().Join("chat", healthy)
	hub.Registry().Join("chat", slow)

	// First publish fills the slow client's one-slot queue; the second
	// overflows it and must evict the slow client only.
	hub.Publish(sender, []byte("m1"))
	hub.Publish(sender, []byte("m2"))

	assert.Equal(t, 2, hub.Registry().MemberCount("chat"))
	members := hub.Registry().Snapshot("chat", nil)
	for _, member := range members {
		assert.NotSame(t, slow, member, "slow consumer must be removed")
	}

	assert.Equal(t, []byte("m1"), recvOrNil(healthy))
	assert.Equal(t, []byte("m2"), recvOrNil(healthy))

	select {
	case <-slow.done:
	default:
		t.Fatal("slow consumer must be force-closed")
	}
}

func TestDropIsIdempotent(t *testing.T) {
	t.Parallel()

	hub := NewHub(discardLogger())
	c1 := newTestClient("chat", "alice", 1)
	c2 := newTestClient("chat", "bob", 1)
	hub.Registry().Join("chat", c1)
	hub.Registry().Join("chat", c2)

	hub.drop(c1)
	hub.drop(c1)

	assert.Equal(t, 1, hub.Registry().MemberCount("chat"))

	hub.drop(c2)
	assert.False(t, hub.Registry().Contains("chat"))
}

func TestClosedClientNotReportedSlow(t *testing.T) {
	t.Parallel()

	hub := NewHub(discardLogger())
	sender := newTestClient("chat", "alice", 1)
	closing := newTestClient("chat", "bob", 1)
	hub.Registry().Join("chat", sender)
	hub.Registry().Join("chat", closing)

	closing.Close()
	hub.Publish(sender, []byte("m1"))
	hub.Publish(sender, []byte("m2"))

	// A connection already transitioning to closed is skipped, not treated
	// as a fresh slow-consumer violation; cleanup happens via its own path.
	require.True(t, hub.Registry().Contains("chat"))
}
