package uniqueids

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andydunstall/lattice/pkg/log"
	"github.com/andydunstall/lattice/pkg/node"
	"github.com/andydunstall/lattice/pkg/simulate"
)

func TestNewID(t *testing.T) {
	id, err := NewID()
	require.NoError(t, err)

	parsed, err := uuid.Parse(id)
	require.NoError(t, err)
	assert.Equal(t, uuid.Version(7), parsed.Version())
}

func TestUniqueIDs(t *testing.T) {
	cluster, err := simulate.Start(func(_ string) node.Application[*State] {
		return NewApp(log.NewNopLogger())
	})
	require.NoError(t, err)
	defer cluster.Close()

	ids := make(map[string]struct{})
	for i := 0; i != 50; i++ {
		for _, id := range cluster.NodeIDs() {
			reply, err := cluster.Request(id, &Generate{})
			require.NoError(t, err)

			var generateOK GenerateOK
			require.NoError(t, reply.Decode(&generateOK))
			ids[generateOK.ID] = struct{}{}
		}
	}
	assert.Equal(t, 150, len(ids))
}
