package simulate

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/atomic"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/andydunstall/lattice/pkg/backoff"
	"github.com/andydunstall/lattice/pkg/log"
	"github.com/andydunstall/lattice/pkg/node"
	"github.com/andydunstall/lattice/pkg/protocol"
)

const (
	// ClientID is the ID of the client sending requests to the cluster.
	ClientID = "c1"
)

var (
	// ErrTimeout is returned when a request doesn't receive a reply or a
	// condition isn't met in time.
	ErrTimeout = errors.New("timeout")
)

// Cluster runs a cluster of nodes in the local process connected by an
// in-memory network.
type Cluster struct {
	nodeIDs []string
	nodes   map[string]node.StatusProvider

	network *Network

	nextMsgID *atomic.Uint64

	group  *errgroup.Group
	cancel context.CancelFunc

	options options

	logger log.Logger
}

// Start starts a cluster running the application returned by newApp, and
// initializes every node.
func Start[S any](newApp func(id string) node.Application[S], opts ...Option) (*Cluster, error) {
	options := options{
		nodes:   3,
		timeout: time.Second * 5,
		logger:  log.NewNopLogger(),
	}
	for _, o := range opts {
		o.apply(&options)
	}

	ctx, cancel := context.WithCancel(context.Background())
	group, ctx := errgroup.WithContext(ctx)

	c := &Cluster{
		nodes:     make(map[string]node.StatusProvider),
		network:   NewNetwork(options.logger),
		nextMsgID: atomic.NewUint64(0),
		group:     group,
		cancel:    cancel,
		options:   options,
		logger:    options.logger.WithSubsystem("simulate"),
	}

	for i := 0; i != options.nodes; i++ {
		c.nodeIDs = append(c.nodeIDs, fmt.Sprintf("n%d", i+1))
	}

	for _, id := range c.nodeIDs {
		id := id
		input := c.network.AddNode(id)
		n := node.New[S](
			newApp(id),
			input,
			c.network.Transport(id),
			options.logger.With(zap.String("node-id", id)),
		)
		c.nodes[id] = n

		group.Go(func() error {
			defer input.Close()

			if err := n.Run(ctx); err != nil {
				return fmt.Errorf("node %s: %w", id, err)
			}
			return nil
		})
	}

	for _, id := range c.nodeIDs {
		if _, err := c.Request(id, &node.Init{
			NodeID:  id,
			NodeIDs: c.nodeIDs,
		}); err != nil {
			c.Close()
			return nil, fmt.Errorf("init %s: %w", id, err)
		}
	}

	c.logger.Info("cluster started", zap.Strings("node-ids", c.nodeIDs))

	return c, nil
}

// NodeIDs returns the IDs of the nodes in the cluster.
func (c *Cluster) NodeIDs() []string {
	return c.nodeIDs
}

// Status returns the status of the node with the given ID.
func (c *Cluster) Status(id string) (node.Status, bool) {
	n, ok := c.nodes[id]
	if !ok {
		return node.Status{}, false
	}
	return n.Status(), true
}

func (c *Cluster) Network() *Network {
	return c.network
}

// Request sends a client request to the node with the given ID and waits
// for the reply.
func (c *Cluster) Request(id string, payload protocol.Payload) (*protocol.Message, error) {
	msgID := c.nextMsgID.Inc()
	m, err := protocol.NewMessage(
		ClientID, id, protocol.Header{MsgID: &msgID}, payload,
	)
	if err != nil {
		return nil, fmt.Errorf("encode: %w", err)
	}
	b, err := m.Encode()
	if err != nil {
		return nil, fmt.Errorf("encode: %w", err)
	}
	if err := c.network.Deliver(ClientID, id, b); err != nil {
		return nil, fmt.Errorf("deliver: %w", err)
	}

	var reply *protocol.Message
	if err := c.WaitFor(func() bool {
		var ok bool
		reply, ok = c.network.Reply(ClientID, msgID)
		return ok
	}); err != nil {
		return nil, fmt.Errorf("%s: %w", payload.Type(), err)
	}
	return reply, nil
}

// WaitFor waits for f to return true, polling with backoff. Returns
// ErrTimeout if f doesn't return true within the configured timeout.
func (c *Cluster) WaitFor(f func() bool) error {
	ctx, cancel := context.WithTimeout(context.Background(), c.options.timeout)
	defer cancel()

	b := backoff.New(0, time.Millisecond, time.Millisecond*50)
	if !b.Poll(ctx, f) {
		return ErrTimeout
	}
	return nil
}

// Close stops every node, waiting for them to process any queued messages.
// Returns an error if any node failed.
func (c *Cluster) Close() error {
	c.network.Close()
	defer c.cancel()

	return c.group.Wait()
}
