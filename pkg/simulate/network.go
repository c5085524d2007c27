package simulate

import (
	"errors"
	"fmt"
	"io"
	"sync"

	"go.uber.org/atomic"
	"go.uber.org/zap"

	"github.com/andydunstall/lattice/pkg/log"
	"github.com/andydunstall/lattice/pkg/protocol"
)

var (
	// ErrLinkDown is returned when sending over a link that is blocked.
	ErrLinkDown = errors.New("link down")

	// ErrClosed is returned when sending on a closed network.
	ErrClosed = errors.New("network closed")
)

// endpoint delivers messages to a node's input.
//
// Messages are queued without bound so a sender never blocks on a slow
// receiver, which would otherwise deadlock two nodes sending to each other.
type endpoint struct {
	w *io.PipeWriter

	queue  [][]byte
	closed bool
	mu     sync.Mutex
	cond   *sync.Cond
}

func newEndpoint(w *io.PipeWriter) *endpoint {
	e := &endpoint{w: w}
	e.cond = sync.NewCond(&e.mu)
	return e
}

func (e *endpoint) Push(b []byte) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return ErrClosed
	}
	e.queue = append(e.queue, b)
	e.cond.Signal()
	return nil
}

func (e *endpoint) Close() {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.closed = true
	e.cond.Signal()
}

// Run writes queued messages to the node input until the endpoint is closed
// and the queue is drained.
func (e *endpoint) Run() {
	defer e.w.Close()

	for {
		e.mu.Lock()
		for len(e.queue) == 0 && !e.closed {
			e.cond.Wait()
		}
		if len(e.queue) == 0 {
			e.mu.Unlock()
			return
		}
		b := e.queue[0]
		e.queue = e.queue[1:]
		e.mu.Unlock()

		if _, err := e.w.Write(append(b, '\n')); err != nil {
			// The node has stopped reading.
			return
		}
	}
}

type link struct {
	from string
	to   string
}

// Network is an in-memory network connecting nodes in the same process.
//
// Messages addressed to a node are written to that node's input. Messages
// addressed to anything else are treated as client replies and recorded.
type Network struct {
	endpoints map[string]*endpoint

	// clients contains the messages sent to each client.
	clients map[string][]*protocol.Message

	down map[link]struct{}

	// mu protects the above fields.
	mu sync.Mutex

	// delivered is the number of messages delivered between nodes.
	delivered *atomic.Uint64
	// dropped is the number of messages dropped due to a blocked link.
	dropped *atomic.Uint64

	logger log.Logger
}

func NewNetwork(logger log.Logger) *Network {
	return &Network{
		endpoints: make(map[string]*endpoint),
		clients:   make(map[string][]*protocol.Message),
		down:      make(map[link]struct{}),
		delivered: atomic.NewUint64(0),
		dropped:   atomic.NewUint64(0),
		logger:    logger.WithSubsystem("simulate.network"),
	}
}

// AddNode adds a node to the network, returning the node input. The input
// should be closed once the node exits.
func (n *Network) AddNode(id string) io.ReadCloser {
	r, w := io.Pipe()
	e := newEndpoint(w)
	go e.Run()

	n.mu.Lock()
	defer n.mu.Unlock()

	n.endpoints[id] = e
	return r
}

// Transport returns the transport for the node with the given ID.
func (n *Network) Transport(src string) protocol.Transport {
	return &transport{
		src:     src,
		network: n,
	}
}

// SetLinkDown blocks or unblocks messages in both directions between a and
// b.
func (n *Network) SetLinkDown(a, b string, down bool) {
	n.mu.Lock()
	defer n.mu.Unlock()

	for _, l := range []link{{from: a, to: b}, {from: b, to: a}} {
		if down {
			n.down[l] = struct{}{}
		} else {
			delete(n.down, l)
		}
	}
}

// Deliver delivers an encoded message from src to dest.
func (n *Network) Deliver(src, dest string, b []byte) error {
	n.mu.Lock()

	if _, ok := n.down[link{from: src, to: dest}]; ok {
		n.mu.Unlock()
		n.dropped.Inc()
		return fmt.Errorf("%s -> %s: %w", src, dest, ErrLinkDown)
	}

	_, fromNode := n.endpoints[src]
	e, ok := n.endpoints[dest]
	if ok {
		n.mu.Unlock()
		if err := e.Push(b); err != nil {
			return err
		}
		if fromNode {
			n.delivered.Inc()
		}
		return nil
	}
	defer n.mu.Unlock()

	m, err := protocol.ParseMessage(b)
	if err != nil {
		return fmt.Errorf("parse: %w", err)
	}
	n.clients[dest] = append(n.clients[dest], m)

	n.logger.Debug(
		"client message",
		zap.String("src", src),
		zap.String("client", dest),
		zap.String("type", m.Type()),
	)

	return nil
}

// ClientMessages returns the messages sent to the given client.
func (n *Network) ClientMessages(client string) []*protocol.Message {
	n.mu.Lock()
	defer n.mu.Unlock()

	return append([]*protocol.Message(nil), n.clients[client]...)
}

// Reply returns the reply sent to the client for the request with the
// given message ID.
func (n *Network) Reply(client string, msgID uint64) (*protocol.Message, bool) {
	n.mu.Lock()
	defer n.mu.Unlock()

	for _, m := range n.clients[client] {
		inReplyTo := m.Header().InReplyTo
		if inReplyTo != nil && *inReplyTo == msgID {
			return m, true
		}
	}
	return nil, false
}

// Delivered returns the number of messages delivered between nodes,
// excluding client requests and replies.
func (n *Network) Delivered() uint64 {
	return n.delivered.Load()
}

// Dropped returns the number of messages dropped by blocked links.
func (n *Network) Dropped() uint64 {
	return n.dropped.Load()
}

// Close closes every node input, which causes the nodes to exit once they
// have processed any queued messages.
func (n *Network) Close() {
	n.mu.Lock()
	defer n.mu.Unlock()

	for _, e := range n.endpoints {
		e.Close()
	}
}

type transport struct {
	src     string
	network *Network
}

func (t *transport) Send(dest string, b []byte) error {
	// The sender may reuse the buffer.
	return t.network.Deliver(t.src, dest, append([]byte(nil), b...))
}

var _ protocol.Transport = &transport{}
