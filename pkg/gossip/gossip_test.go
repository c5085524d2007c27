package gossip

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andydunstall/lattice/pkg/log"
	"github.com/andydunstall/lattice/pkg/node"
	"github.com/andydunstall/lattice/pkg/protocol"
	"github.com/andydunstall/lattice/pkg/replog"
)

type testStore struct {
	log *replog.Log[int]
}

func (s *testStore) Log() *replog.Log[int] {
	return s.log
}

type fakeTransport struct {
	lines [][]byte
	// down contains destinations that fail to send.
	down map[string]bool
	mu   sync.Mutex
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{
		down: make(map[string]bool),
	}
}

func (t *fakeTransport) Send(dest string, b []byte) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.down[dest] {
		return errors.New("link down")
	}
	t.lines = append(t.lines, append([]byte(nil), b...))
	return nil
}

func (t *fakeTransport) SetDown(dest string, down bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.down[dest] = down
}

// Flush returns the messages sent since the last flush.
func (t *fakeTransport) Flush(tt *testing.T) []*protocol.Message {
	t.mu.Lock()
	defer t.mu.Unlock()

	var messages []*protocol.Message
	for _, line := range t.lines {
		m, err := protocol.ParseMessage(line)
		require.NoError(tt, err)
		messages = append(messages, m)
	}
	t.lines = nil
	return messages
}

func newTestGossip(nodeID string) (*Gossip[int, *testStore], *node.State[*testStore], *fakeTransport) {
	state := node.NewState(
		node.Init{NodeID: nodeID, NodeIDs: []string{"n1", "n2", "n3"}},
		&testStore{log: replog.NewLog[int](nodeID)},
	)
	transport := newFakeTransport()
	sender := protocol.NewSender(transport, log.NewNopLogger())
	conf := DefaultConfig()
	return New[int](state, sender, &conf, log.NewNopLogger()), state, transport
}

func insert(state *node.State[*testStore], values ...int) []string {
	var keys []string
	state.With(func(s *testStore) {
		for _, v := range values {
			keys = append(keys, replog.Insert[int](s, v))
		}
	})
	return keys
}

func entries(state *node.State[*testStore]) map[string]int {
	var entries map[string]int
	state.With(func(s *testStore) {
		entries = s.Log().Entries()
	})
	return entries
}

func newMessage(t *testing.T, src, dest string, msgID uint64, payload protocol.Payload) *protocol.Message {
	m, err := protocol.NewMessage(src, dest, protocol.Header{MsgID: &msgID}, payload)
	require.NoError(t, err)
	return m
}

func decodeSeen(t *testing.T, m *protocol.Message) map[string]int {
	switch m.Type() {
	case TypeGossip:
		var req Request[int]
		require.NoError(t, m.Decode(&req))
		return req.Seen
	case TypeGossipOK:
		var ack Ack[int]
		require.NoError(t, m.Decode(&ack))
		return ack.Seen
	default:
		t.Fatalf("unexpected type: %s", m.Type())
		return nil
	}
}

func TestGossip_Round(t *testing.T) {
	t.Run("empty log", func(t *testing.T) {
		g, _, transport := newTestGossip("n1")

		g.Round()
		assert.Empty(t, transport.Flush(t))
	})

	t.Run("sends missing entries to neighbors", func(t *testing.T) {
		g, state, transport := newTestGossip("n1")
		insert(state, 5, 6)

		g.Round()

		messages := transport.Flush(t)
		require.Equal(t, 2, len(messages))
		// Never gossips with itself.
		assert.Equal(t, "n2", messages[0].Dest)
		assert.Equal(t, "n3", messages[1].Dest)
		for _, m := range messages {
			assert.Equal(t, "n1", m.Src)
			assert.Equal(t, TypeGossip, m.Type())
			_, ok := m.MsgID()
			assert.True(t, ok)
			assert.Nil(t, m.Header().InReplyTo)
			assert.Equal(t, map[string]int{"n1-0": 5, "n1-1": 6}, decodeSeen(t, m))
		}
	})

	t.Run("skips acknowledged entries", func(t *testing.T) {
		g, state, transport := newTestGossip("n1")
		insert(state, 5, 6)

		g.Round()
		transport.Flush(t)

		// n2 acknowledges both entries.
		g.Handle(newMessage(t, "n2", "n1", 1, &Ack[int]{
			Seen: map[string]int{"n1-0": 5, "n1-1": 6},
		}))

		g.Round()
		messages := transport.Flush(t)
		require.Equal(t, 1, len(messages))
		assert.Equal(t, "n3", messages[0].Dest)

		// Only the new entry is sent to n2.
		insert(state, 7)
		g.Round()
		messages = transport.Flush(t)
		require.Equal(t, 2, len(messages))
		assert.Equal(t, "n2", messages[0].Dest)
		assert.Equal(t, map[string]int{"n1-2": 7}, decodeSeen(t, messages[0]))
		assert.Equal(t, "n3", messages[1].Dest)
		assert.Equal(t, 3, len(decodeSeen(t, messages[1])))
	})

	t.Run("neighbors", func(t *testing.T) {
		g, state, transport := newTestGossip("n1")
		insert(state, 5)
		state.SetNeighbors([]string{"n3"})

		g.Round()
		messages := transport.Flush(t)
		require.Equal(t, 1, len(messages))
		assert.Equal(t, "n3", messages[0].Dest)
	})

	t.Run("unreachable peer", func(t *testing.T) {
		g, state, transport := newTestGossip("n1")
		insert(state, 5)
		transport.SetDown("n2", true)

		g.Round()
		messages := transport.Flush(t)
		require.Equal(t, 1, len(messages))
		assert.Equal(t, "n3", messages[0].Dest)
		assert.Equal(t, float64(1), testutil.ToFloat64(g.Metrics().SendErrors))

		// Once reachable the entries are retried.
		transport.SetDown("n2", false)
		g.Round()
		messages = transport.Flush(t)
		require.Equal(t, 2, len(messages))
		assert.Equal(t, "n2", messages[0].Dest)
		assert.Equal(t, map[string]int{"n1-0": 5}, decodeSeen(t, messages[0]))
	})
}

func TestGossip_Handle(t *testing.T) {
	t.Run("gossip", func(t *testing.T) {
		g, state, transport := newTestGossip("n1")
		insert(state, 5)

		g.Handle(newMessage(t, "n2", "n1", 3, &Request[int]{
			Seen: map[string]int{"n2-0": 8},
		}))

		assert.Equal(t, map[string]int{"n1-0": 5, "n2-0": 8}, entries(state))

		messages := transport.Flush(t)
		require.Equal(t, 1, len(messages))
		ack := messages[0]
		assert.Equal(t, TypeGossipOK, ack.Type())
		assert.Equal(t, "n1", ack.Src)
		assert.Equal(t, "n2", ack.Dest)
		require.NotNil(t, ack.Header().InReplyTo)
		assert.Equal(t, uint64(3), *ack.Header().InReplyTo)
		// Includes both the seen entries and the entries n2 is missing.
		assert.Equal(t, map[string]int{"n1-0": 5, "n2-0": 8}, decodeSeen(t, ack))

		keys, ok := g.KnownKeys("n2")
		require.True(t, ok)
		assert.Equal(t, []string{"n2-0"}, keys)

		// n2 doesn't know about n1-0 until it acknowledges.
		g.Round()
		messages = transport.Flush(t)
		require.Equal(t, 2, len(messages))
		assert.Equal(t, map[string]int{"n1-0": 5}, decodeSeen(t, messages[0]))
		assert.Equal(t, map[string]int{"n1-0": 5, "n2-0": 8}, decodeSeen(t, messages[1]))
	})

	t.Run("gossip idempotent", func(t *testing.T) {
		g, state, transport := newTestGossip("n1")

		req := &Request[int]{Seen: map[string]int{"n2-0": 8}}
		g.Handle(newMessage(t, "n2", "n1", 1, req))
		g.Handle(newMessage(t, "n2", "n1", 2, req))

		assert.Equal(t, map[string]int{"n2-0": 8}, entries(state))
		assert.Equal(t, float64(1), testutil.ToFloat64(g.Metrics().EntriesMerged))
		assert.Equal(t, 2, len(transport.Flush(t)))
	})

	t.Run("gossip ok", func(t *testing.T) {
		g, state, transport := newTestGossip("n1")

		g.Handle(newMessage(t, "n3", "n1", 1, &Ack[int]{
			Seen: map[string]int{"n3-0": 1, "n2-0": 2},
		}))

		assert.Equal(t, map[string]int{"n2-0": 2, "n3-0": 1}, entries(state))
		// Acks are never replied to.
		assert.Empty(t, transport.Flush(t))

		// Only n2 is missing entries.
		g.Round()
		messages := transport.Flush(t)
		require.Equal(t, 1, len(messages))
		assert.Equal(t, "n2", messages[0].Dest)
	})

	t.Run("unknown peer", func(t *testing.T) {
		g, _, _ := newTestGossip("n1")
		assert.Equal(t, map[string]int{"n1": 0, "n2": 0, "n3": 0}, g.Known())

		g.Handle(newMessage(t, "n9", "n1", 1, &Ack[int]{
			Seen: map[string]int{"n9-0": 1},
		}))
		assert.Equal(t, 1, g.Known()["n9"])
	})

	t.Run("ignore other types", func(t *testing.T) {
		g, state, transport := newTestGossip("n1")

		m, err := protocol.ParseMessage([]byte(
			`{"src":"c1","dest":"n1","body":{"type":"broadcast","msg_id":1,"seen":{"c1-0":1}}}`,
		))
		require.NoError(t, err)
		g.Handle(m)

		assert.Empty(t, entries(state))
		assert.Empty(t, transport.Flush(t))
	})
}

func TestGossip_Converge(t *testing.T) {
	// Deliver messages between nodes until no more messages are sent.
	gossips := make(map[string]*Gossip[int, *testStore])
	states := make(map[string]*node.State[*testStore])
	transports := make(map[string]*fakeTransport)
	for _, id := range []string{"n1", "n2", "n3"} {
		gossips[id], states[id], transports[id] = newTestGossip(id)
	}
	// Line topology.
	states["n1"].SetNeighbors([]string{"n2"})
	states["n2"].SetNeighbors([]string{"n1", "n3"})
	states["n3"].SetNeighbors([]string{"n2"})

	insert(states["n1"], 1, 2)
	insert(states["n3"], 3)

	for round := 0; round != 10; round++ {
		for _, g := range gossips {
			g.Round()
		}
		for delivered := true; delivered; {
			delivered = false
			for _, transport := range transports {
				for _, m := range transport.Flush(t) {
					gossips[m.Dest].Handle(m)
					delivered = true
				}
			}
		}
	}

	expected := entries(states["n1"])
	assert.Equal(t, 3, len(expected))
	for _, state := range states {
		assert.Equal(t, expected, entries(state))
	}

	// Once converged there is nothing left to gossip.
	for _, g := range gossips {
		g.Round()
	}
	for _, transport := range transports {
		assert.Empty(t, transport.Flush(t))
	}
}

func TestGossip_Run(t *testing.T) {
	t.Run("inbound closed", func(t *testing.T) {
		g, _, _ := newTestGossip("n1")

		inbound := make(chan *protocol.Message)
		close(inbound)
		assert.NoError(t, g.Run(context.Background(), inbound))
	})

	t.Run("periodic rounds", func(t *testing.T) {
		g, state, transport := newTestGossip("n1")
		g.conf.Interval = time.Millisecond
		insert(state, 1)

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		inbound := make(chan *protocol.Message)
		errCh := make(chan error, 1)
		go func() {
			errCh <- g.Run(ctx, inbound)
		}()

		assert.Eventually(t, func() bool {
			transport.mu.Lock()
			defer transport.mu.Unlock()
			return len(transport.lines) >= 2
		}, time.Second*5, time.Millisecond)

		cancel()
		assert.ErrorIs(t, <-errCh, context.Canceled)
	})
}

func TestFactory(t *testing.T) {
	conf := DefaultConfig()
	f := NewFactory(&conf, log.NewNopLogger())

	// No engine yet.
	assert.Empty(t, f.Known())
	_, ok := f.KnownKeys("n2")
	assert.False(t, ok)

	registry := prometheus.NewRegistry()
	f.SetRegistry(registry)

	state := node.NewState(
		node.Init{NodeID: "n1", NodeIDs: []string{"n1", "n2"}},
		&testStore{log: replog.NewLog[int]("n1")},
	)
	g := Build[int](f, state, protocol.NewSender(newFakeTransport(), log.NewNopLogger()))

	g.Handle(newMessage(t, "n2", "n1", 1, &Ack[int]{
		Seen: map[string]int{"n2-0": 1},
	}))
	assert.Equal(t, map[string]int{"n1": 0, "n2": 1}, f.Known())
	keys, ok := f.KnownKeys("n2")
	assert.True(t, ok)
	assert.Equal(t, []string{"n2-0"}, keys)

	families, err := registry.Gather()
	require.NoError(t, err)
	assert.NotEmpty(t, families)
}
