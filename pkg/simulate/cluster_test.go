package simulate

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andydunstall/lattice/pkg/node"
	"github.com/andydunstall/lattice/pkg/protocol"
)

type ping struct{}

func (p *ping) Type() string {
	return "ping"
}

type pong struct {
	NodeID string `json:"node_id"`
}

func (p *pong) Type() string {
	return "pong"
}

type pingApp struct{}

func (a *pingApp) NewState(init node.Init) string {
	return init.NodeID
}

func (a *pingApp) Register(
	mux *node.Mux,
	state *node.State[string],
	sender *protocol.Sender,
) {
	node.Handle(mux, func(m *protocol.Message, _ *ping) error {
		return sender.Reply(m, &pong{NodeID: state.NodeID()})
	})
}

func (a *pingApp) Services(_ *node.State[string], _ *protocol.Sender) []node.Service {
	return nil
}

func TestCluster(t *testing.T) {
	cluster, err := Start(func(_ string) node.Application[string] {
		return &pingApp{}
	}, WithNodes(4), WithTimeout(time.Millisecond*500))
	require.NoError(t, err)

	assert.Equal(t, []string{"n1", "n2", "n3", "n4"}, cluster.NodeIDs())

	for _, id := range cluster.NodeIDs() {
		status, ok := cluster.Status(id)
		require.True(t, ok)
		assert.True(t, status.Ready)
		assert.Equal(t, id, status.NodeID)

		reply, err := cluster.Request(id, &ping{})
		require.NoError(t, err)

		var p pong
		require.NoError(t, reply.Decode(&p))
		assert.Equal(t, id, p.NodeID)
	}

	_, ok := cluster.Status("n5")
	assert.False(t, ok)

	// Unknown requests are never replied to.
	_, err = cluster.Request("n1", &pong{})
	assert.ErrorIs(t, err, ErrTimeout)

	assert.NoError(t, cluster.Close())
}
