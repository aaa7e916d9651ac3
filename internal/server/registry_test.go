package server

import (
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestClient builds a Client that is not backed by a real socket, enough
// for registry and hub logic.
func newTestClient(channel, username string, queueSize int) *Client {
	return &Client{
		id:       uuid.NewString(),
		channel:  channel,
		username: username,
		send:     make(chan []byte, queueSize),
		done:     make(chan struct{}),
	}
}

func TestJoinCreatesChannelLazily(t *testing.T) {
	t.Parallel()

	reg := NewRegistry()
	assert.False(t, reg.Contains("chat"))

	c1 := newTestClient("chat", "alice", 1)
	reg.Join("chat", c1)

	assert.True(t, reg.Contains("chat"))
	assert.Equal(t, 1, reg.MemberCount("chat"))
}

func TestSnapshotExcludesGivenClient(t *testing.T) {
	t.Parallel()

	reg := NewRegistry()
	c1 := newTestClient("chat", "alice", 1)
	c2 := newTestClient("chat", "bob", 1)
	reg.Join("chat", c1)
	reg.Join("chat", c2)

	members := reg.Snapshot("chat", c1)
	require.Len(t, members, 1)
	assert.Same(t, c2, members[0])

	assert.Nil(t, reg.Snapshot("nosuch", nil))
}

func TestLeaveRemovesEmptyChannel(t *testing.T) {
	t.Parallel()

	reg := NewRegistry()
	c1 := newTestClient("chat", "alice", 1)
	c2 := newTestClient("chat", "bob", 1)
	reg.Join("chat", c1)
	reg.Join("chat", c2)

	reg.Leave("chat", c1)
	assert.True(t, reg.Contains("chat"), "non-empty channel must remain")
	assert.Equal(t, 1, reg.MemberCount("chat"))

	reg.Leave("chat", c2)
	assert.False(t, reg.Contains("chat"), "empty channel must be removed, not kept empty")
	assert.Equal(t, 0, reg.ChannelCount())
}

func TestLeaveIsIdempotent(t *testing.T) {
	t.Parallel()

	reg := NewRegistry()
	c1 := newTestClient("chat", "alice", 1)
	c2 := newTestClient("chat", "bob", 1)
	reg.Join("chat", c1)
	reg.Join("chat", c2)

	reg.Leave("chat", c1)
	reg.Leave("chat", c1)
	reg.Leave("chat", newTestClient("chat", "eve", 1))
	reg.Leave("nosuch", c1)

	assert.Equal(t, 1, reg.MemberCount("chat"))
}

func TestConcurrentChurnLeavesNoResidue(t *testing.T) {
	t.Parallel()

	reg := NewRegistry()
	const clients = 50

	var wg sync.WaitGroup
	joined := make([]*Client, clients)
	for i := range joined {
		joined[i] = newTestClient("stress", "user", 1)
	}

	wg.Add(clients)
	for _, c := range joined {
		go func(c *Client) {
			defer wg.Done()
			reg.Join("stress", c)
		}(c)
	}
	wg.Wait()
	assert.Equal(t, clients, reg.MemberCount("stress"))

	wg.Add(clients)
	for _, c := range joined {
		go func(c *Client) {
			defer wg.Done()
			reg.Leave("stress", c)
		}(c)
	}
	wg.Wait()

	assert.False(t, reg.Contains("stress"))
	assert.Equal(t, 0, reg.ChannelCount())
}

func TestConcurrentJoinLeaveAcrossChannels(t *testing.T) {
	t.Parallel()

	reg := NewRegistry()
	channels := []string{"a", "b", "c", "d"}

	var wg sync.WaitGroup
	for _, name := range channels {
		for i := 0; i < 25; i++ {
			wg.Add(1)
			go func(name string) {
				defer wg.Done()
				c := newTestClient(name, "user", 1)
				reg.Join(name, c)
				_ = reg.Snapshot(name, nil)
				reg.Leave(name, c)
			}(name)
		}
	}
	wg.Wait()

	assert.Equal(t, 0, reg.ChannelCount())
}
