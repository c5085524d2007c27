package client

import (
	"context"
	"net"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andydunstall/lattice/pkg/admin"
	"github.com/andydunstall/lattice/pkg/gossip"
	"github.com/andydunstall/lattice/pkg/log"
	"github.com/andydunstall/lattice/pkg/node"
)

type fakeNode struct {
	status node.Status
}

func (n *fakeNode) Status() node.Status {
	return n.status
}

type fakeKnown struct {
	known map[string][]string
}

func (k *fakeKnown) Known() map[string]int {
	counts := make(map[string]int)
	for peer, keys := range k.known {
		counts[peer] = len(keys)
	}
	return counts
}

func (k *fakeKnown) KnownKeys(peer string) ([]string, bool) {
	keys, ok := k.known[peer]
	return keys, ok
}

func startServer(t *testing.T) *Client {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	s := admin.NewServer(nil, log.NewNopLogger())
	s.AddStatus("/node", node.NewStatusHandler(&fakeNode{
		status: node.Status{
			Ready:     true,
			NodeID:    "n1",
			NodeIDs:   []string{"n1", "n2", "n3"},
			Neighbors: []string{"n2"},
		},
	}))
	s.AddStatus("/gossip", gossip.NewStatus(&fakeKnown{
		known: map[string][]string{
			"n2": {"n1-0", "n2-0"},
			"n3": {},
		},
	}))

	go func() {
		assert.NoError(t, s.Serve(ln))
	}()
	t.Cleanup(func() {
		assert.NoError(t, s.Shutdown(context.TODO()))
	})

	url, err := url.Parse("http://" + ln.Addr().String())
	require.NoError(t, err)
	client := NewClient(url)
	t.Cleanup(client.Close)
	return client
}

func TestClient(t *testing.T) {
	client := startServer(t)

	t.Run("node", func(t *testing.T) {
		status, err := client.Node()
		require.NoError(t, err)
		assert.Equal(t, &node.Status{
			Ready:     true,
			NodeID:    "n1",
			NodeIDs:   []string{"n1", "n2", "n3"},
			Neighbors: []string{"n2"},
		}, status)
	})

	t.Run("gossip known", func(t *testing.T) {
		known, err := client.GossipKnown()
		require.NoError(t, err)
		assert.Equal(t, map[string]int{"n2": 2, "n3": 0}, known)
	})

	t.Run("gossip known keys", func(t *testing.T) {
		keys, err := client.GossipKnownKeys("n2")
		require.NoError(t, err)
		assert.Equal(t, []string{"n1-0", "n2-0"}, keys)
	})

	t.Run("gossip known unknown peer", func(t *testing.T) {
		_, err := client.GossipKnownKeys("n9")
		assert.ErrorContains(t, err, "bad status: 404: peer not found")
	})
}
