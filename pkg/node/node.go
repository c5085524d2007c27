package node

import (
	"context"
	"errors"
	"io"
	"sync"

	"go.uber.org/atomic"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/andydunstall/lattice/pkg/log"
	"github.com/andydunstall/lattice/pkg/protocol"
)

const (
	// subscriberBuffer is the buffer size of each broker subscription.
	subscriberBuffer = 16
)

// Service runs alongside the application handler with its own subscription
// to inbound messages, such as the gossip engine.
type Service interface {
	Run(ctx context.Context, inbound <-chan *protocol.Message) error
}

// Application is implemented by each protocol built on the node, where S is
// the application state.
type Application[S any] interface {
	// NewState creates the application state from the init request.
	NewState(init Init) S

	// Register registers the application message handlers.
	Register(mux *Mux, state *State[S], sender *protocol.Sender)

	// Services returns the services to run alongside the application
	// handler.
	Services(state *State[S], sender *protocol.Sender) []Service
}

// Status contains the node status exposed by the admin server.
type Status struct {
	Ready     bool     `json:"ready"`
	NodeID    string   `json:"node_id,omitempty"`
	NodeIDs   []string `json:"node_ids,omitempty"`
	Neighbors []string `json:"neighbors,omitempty"`
}

// Node runs the application, reading messages from the input and writing
// messages with the sender.
type Node[S any] struct {
	app Application[S]

	input  io.Reader
	sender *protocol.Sender

	// state is set once the node is initialized.
	state *State[S]

	// mu protects the above fields.
	mu sync.Mutex

	ready *atomic.Bool

	metrics *Metrics

	logger log.Logger
}

func New[S any](
	app Application[S],
	input io.Reader,
	transport protocol.Transport,
	logger log.Logger,
) *Node[S] {
	return &Node[S]{
		app:     app,
		input:   input,
		sender:  protocol.NewSender(transport, logger),
		ready:   atomic.NewBool(false),
		metrics: NewMetrics(),
		logger:  logger.WithSubsystem("node"),
	}
}

// Run runs the node until the input is closed, the context is cancelled or
// a fatal error occurs.
//
// Returns nil when the input is closed or the context is cancelled, including
// before the node is initialized. Returns ErrNotInit if the first message is
// not an init request.
func (n *Node[S]) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	inbound := make(chan *protocol.Message, subscriberBuffer)

	// The reader isn't waited for on exit since it may be blocked reading
	// the input.
	reader := newReader(n.input, n.metrics, n.logger)
	readErrCh := make(chan error, 1)
	go func() {
		readErrCh <- reader.Run(ctx, inbound)
	}()

	init, err := n.waitInit(ctx, inbound)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return nil
		}
		if errors.Is(err, errInputClosed) {
			n.logger.Info("input closed before init")
			return nil
		}
		return err
	}

	state := NewState(init, n.app.NewState(init))
	n.mu.Lock()
	n.state = state
	n.mu.Unlock()
	n.ready.Store(true)

	n.logger = n.logger.With(zap.String("node-id", init.NodeID))

	mux := NewMux()
	n.app.Register(mux, state, n.sender)
	services := n.app.Services(state, n.sender)

	broker := NewBroker()
	handlerCh := broker.Subscribe(subscriberBuffer)
	var serviceChs []<-chan *protocol.Message
	for range services {
		serviceChs = append(serviceChs, broker.Subscribe(subscriberBuffer))
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return broker.Run(gctx, inbound)
	})
	g.Go(func() error {
		return n.serve(gctx, mux, handlerCh)
	})
	for i, service := range services {
		service := service
		ch := serviceChs[i]
		g.Go(func() error {
			return service.Run(gctx, ch)
		})
	}

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}

	select {
	case err := <-readErrCh:
		if err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
	default:
	}

	return nil
}

// State returns the node state, or false if the node is not yet
// initialized.
func (n *Node[S]) State() (*State[S], bool) {
	n.mu.Lock()
	defer n.mu.Unlock()

	return n.state, n.state != nil
}

func (n *Node[S]) Status() Status {
	state, ok := n.State()
	if !ok {
		return Status{}
	}
	init := state.Init()
	return Status{
		Ready:     n.ready.Load(),
		NodeID:    init.NodeID,
		NodeIDs:   init.NodeIDs,
		Neighbors: state.Neighbors(),
	}
}

func (n *Node[S]) Sender() *protocol.Sender {
	return n.sender
}

func (n *Node[S]) Metrics() *Metrics {
	return n.metrics
}

// serve handles inbound messages with the application handlers.
//
// Handler errors are logged and the message dropped, unless the error is
// fatal.
func (n *Node[S]) serve(
	ctx context.Context,
	mux *Mux,
	inbound <-chan *protocol.Message,
) error {
	for {
		select {
		case m, ok := <-inbound:
			if !ok {
				return nil
			}

			n.metrics.MessagesInbound.WithLabelValues(m.Type()).Inc()

			if err := mux.Serve(m); err != nil {
				if IsFatal(err) {
					n.logger.Error(
						"fatal error handling message",
						zap.String("type", m.Type()),
						zap.String("src", m.Src),
						zap.Error(err),
					)
					return err
				}
				n.handleError(m, err)
			}
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (n *Node[S]) handleError(m *protocol.Message, err error) {
	// Every subscriber sees every message, so messages for other
	// subscribers are expected.
	if errors.Is(err, ErrUnknownType) {
		return
	}

	n.metrics.HandlerErrors.WithLabelValues(m.Type()).Inc()

	if errors.Is(err, ErrDecode) {
		n.logger.Debug(
			"skipping message; decode",
			zap.String("type", m.Type()),
			zap.String("src", m.Src),
			zap.Error(err),
		)
		return
	}

	n.logger.Warn(
		"failed to handle message",
		zap.String("type", m.Type()),
		zap.String("src", m.Src),
		zap.Error(err),
	)
}
