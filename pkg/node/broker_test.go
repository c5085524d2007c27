package node

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andydunstall/lattice/pkg/log"
	"github.com/andydunstall/lattice/pkg/protocol"
)

func TestBroker(t *testing.T) {
	t.Run("fan out", func(t *testing.T) {
		broker := NewBroker()
		// Unbuffered subscribers still receive every message.
		sub1 := broker.Subscribe(0)
		sub2 := broker.Subscribe(0)

		inbound := make(chan *protocol.Message, 10)
		for _, typ := range []string{"a", "b", "c"} {
			inbound <- parseMessage(
				t, `{"src":"c1","dest":"n1","body":{"type":"`+typ+`"}}`,
			)
		}
		close(inbound)

		errCh := make(chan error, 1)
		go func() {
			errCh <- broker.Run(context.Background(), inbound)
		}()

		collect := func(sub <-chan *protocol.Message, out chan<- []string) {
			var types []string
			for m := range sub {
				types = append(types, m.Type())
			}
			out <- types
		}
		out1 := make(chan []string)
		out2 := make(chan []string)
		go collect(sub1, out1)
		go collect(sub2, out2)

		assert.Equal(t, []string{"a", "b", "c"}, <-out1)
		assert.Equal(t, []string{"a", "b", "c"}, <-out2)
		assert.NoError(t, <-errCh)
	})

	t.Run("cancel", func(t *testing.T) {
		broker := NewBroker()
		sub := broker.Subscribe(0)

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		err := broker.Run(ctx, make(chan *protocol.Message))
		assert.ErrorIs(t, err, context.Canceled)

		_, ok := <-sub
		assert.False(t, ok)
	})
}

func TestReader(t *testing.T) {
	input := strings.Join([]string{
		`{"src":"c1","dest":"n1","body":{"type":"init","node_id":"n1"}}`,
		``,
		`not json`,
		`{"src":"c1","dest":"n1","body":"foo"}`,
		`{"src":"c1","dest":"n1","body":{"msg_id":1}}`,
		// Last line without a trailing newline.
		`{"src":"c1","dest":"n1","body":{"type":"echo"}}`,
	}, "\n")

	metrics := NewMetrics()
	r := newReader(strings.NewReader(input), metrics, log.NewNopLogger())

	out := make(chan *protocol.Message, 10)
	require.NoError(t, r.Run(context.Background(), out))

	var types []string
	for m := range out {
		types = append(types, m.Type())
	}
	assert.Equal(t, []string{"init", "echo"}, types)
}
