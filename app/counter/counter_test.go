package counter

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andydunstall/lattice/pkg/gossip"
	"github.com/andydunstall/lattice/pkg/log"
	"github.com/andydunstall/lattice/pkg/node"
	"github.com/andydunstall/lattice/pkg/replog"
	"github.com/andydunstall/lattice/pkg/simulate"
)

func TestState(t *testing.T) {
	state := NewState("n1")
	replog.Insert[int](state, 3)
	replog.Insert[int](state, 4)
	assert.Equal(t, 7, state.Sum())

	merged := replog.Merge[int](state, map[string]int{
		"n2-0": 5,
		// Duplicate.
		"n1-0": 3,
	})
	assert.Equal(t, 1, merged)
	assert.Equal(t, 12, state.Sum())
}

func startCluster(t *testing.T, opts ...simulate.Option) *simulate.Cluster {
	gossipConf := gossip.Config{
		Interval: time.Millisecond * 10,
	}
	cluster, err := simulate.Start(func(_ string) node.Application[*State] {
		return NewApp(&gossipConf, log.NewNopLogger())
	}, opts...)
	require.NoError(t, err)
	t.Cleanup(func() {
		assert.NoError(t, cluster.Close())
	})
	return cluster
}

func read(t *testing.T, cluster *simulate.Cluster, id string) int {
	reply, err := cluster.Request(id, &Read{})
	require.NoError(t, err)

	var readOK ReadOK
	require.NoError(t, reply.Decode(&readOK))
	return readOK.Value
}

func TestCounter(t *testing.T) {
	t.Run("add then read", func(t *testing.T) {
		cluster := startCluster(t, simulate.WithNodes(1))

		_, err := cluster.Request("n1", &Add{Delta: 3})
		require.NoError(t, err)
		_, err = cluster.Request("n1", &Add{Delta: 4})
		require.NoError(t, err)

		assert.Equal(t, 7, read(t, cluster, "n1"))
	})

	t.Run("converge", func(t *testing.T) {
		cluster := startCluster(t, simulate.WithNodes(3))

		expected := 0
		for i, id := range cluster.NodeIDs() {
			for delta := 1; delta <= 3; delta++ {
				reply, err := cluster.Request(id, &Add{Delta: delta * (i + 1)})
				require.NoError(t, err)
				assert.Equal(t, "add_ok", reply.Type())
				expected += delta * (i + 1)
			}
		}

		for _, id := range cluster.NodeIDs() {
			assert.NoError(t, cluster.WaitFor(func() bool {
				return read(t, cluster, id) == expected
			}))
		}
	})

	t.Run("read key unsupported", func(t *testing.T) {
		cluster := startCluster(
			t, simulate.WithNodes(1), simulate.WithTimeout(time.Millisecond*200),
		)

		key := "foo"
		_, err := cluster.Request("n1", &Read{Key: &key})
		// No reply is sent.
		assert.ErrorIs(t, err, simulate.ErrTimeout)

		// The node keeps handling requests.
		assert.Equal(t, 0, read(t, cluster, "n1"))
	})
}
