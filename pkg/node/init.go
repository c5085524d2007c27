package node

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"go.uber.org/zap"

	"github.com/andydunstall/lattice/pkg/protocol"
)

const (
	TypeInit   = "init"
	TypeInitOK = "init_ok"
)

// errInputClosed is returned by waitInit when the input is closed before
// the init request is received.
var errInputClosed = errors.New("input closed before init")

// Init is the init request payload, received exactly once when the node
// starts.
type Init struct {
	NodeID  string   `json:"node_id"`
	NodeIDs []string `json:"node_ids"`
}

func (i *Init) Type() string {
	return TypeInit
}

// Copy returns a deep copy of the init.
func (i Init) Copy() Init {
	return Init{
		NodeID:  i.NodeID,
		NodeIDs: slices.Clone(i.NodeIDs),
	}
}

type InitOK struct{}

func (i *InitOK) Type() string {
	return TypeInitOK
}

// waitInit waits for the first message and handles the init handshake.
//
// The first message must be an init request, otherwise the node can't learn
// its own identity so fails with ErrNotInit.
func (n *Node[S]) waitInit(
	ctx context.Context,
	inbound <-chan *protocol.Message,
) (Init, error) {
	var m *protocol.Message
	select {
	case msg, ok := <-inbound:
		if !ok {
			return Init{}, errInputClosed
		}
		m = msg
	case <-ctx.Done():
		return Init{}, ctx.Err()
	}

	n.metrics.MessagesInbound.WithLabelValues(m.Type()).Inc()

	if m.Type() != TypeInit {
		return Init{}, fmt.Errorf("%w: %s", ErrNotInit, m.Type())
	}

	var init Init
	if err := m.Decode(&init); err != nil {
		return Init{}, fmt.Errorf("init: %w", err)
	}
	if init.NodeID == "" {
		return Init{}, fmt.Errorf("init: missing node id")
	}

	if err := n.sender.Reply(m, &InitOK{}); err != nil {
		return Init{}, fmt.Errorf("reply init: %w", err)
	}

	n.logger.Info(
		"node initialized",
		zap.String("node-id", init.NodeID),
		zap.Strings("node-ids", init.NodeIDs),
	)

	return init, nil
}
