package simulate

import (
	"bufio"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andydunstall/lattice/pkg/log"
)

func TestNetwork(t *testing.T) {
	t.Run("deliver to node", func(t *testing.T) {
		network := NewNetwork(log.NewNopLogger())
		input := network.AddNode("n2")
		network.AddNode("n1")
		defer network.Close()

		require.NoError(t, network.Transport("n1").Send("n2", []byte(`{"foo":"bar"}`)))

		line, err := bufio.NewReader(input).ReadString('\n')
		require.NoError(t, err)
		assert.Equal(t, "{\"foo\":\"bar\"}\n", line)
		assert.Equal(t, uint64(1), network.Delivered())
	})

	t.Run("deliver to client", func(t *testing.T) {
		network := NewNetwork(log.NewNopLogger())
		network.AddNode("n1")
		defer network.Close()

		require.NoError(t, network.Transport("n1").Send(
			"c1", []byte(`{"src":"n1","dest":"c1","body":{"type":"echo_ok","in_reply_to":4}}`),
		))

		messages := network.ClientMessages("c1")
		require.Equal(t, 1, len(messages))
		assert.Equal(t, "echo_ok", messages[0].Type())

		reply, ok := network.Reply("c1", 4)
		require.True(t, ok)
		assert.Equal(t, "n1", reply.Src)

		_, ok = network.Reply("c1", 5)
		assert.False(t, ok)
	})

	t.Run("link down", func(t *testing.T) {
		network := NewNetwork(log.NewNopLogger())
		network.AddNode("n1")
		network.AddNode("n2")
		defer network.Close()

		network.SetLinkDown("n1", "n2", true)
		assert.ErrorIs(t, network.Transport("n1").Send("n2", []byte(`{}`)), ErrLinkDown)
		assert.ErrorIs(t, network.Transport("n2").Send("n1", []byte(`{}`)), ErrLinkDown)
		assert.Equal(t, uint64(2), network.Dropped())

		network.SetLinkDown("n2", "n1", false)
		assert.NoError(t, network.Transport("n1").Send("n2", []byte(`{}`)))
	})

	t.Run("close", func(t *testing.T) {
		network := NewNetwork(log.NewNopLogger())
		input := network.AddNode("n1")

		require.NoError(t, network.Deliver(ClientID, "n1", []byte(`{"a":1}`)))
		network.Close()

		// Queued messages are delivered before the input closes.
		r := bufio.NewReader(input)
		line, err := r.ReadString('\n')
		require.NoError(t, err)
		assert.Equal(t, "{\"a\":1}\n", line)

		_, err = r.ReadString('\n')
		assert.Error(t, err)

		assert.ErrorIs(t, network.Deliver(ClientID, "n1", []byte(`{}`)), ErrClosed)
	})
}
