// Package counter implements a grow-only counter.
//
// Each node records the deltas added locally in its replicated log, which
// gossip replicates to the other nodes. The counter value is the sum of all
// deltas in the log.
package counter

import (
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/andydunstall/lattice/pkg/gossip"
	"github.com/andydunstall/lattice/pkg/log"
	"github.com/andydunstall/lattice/pkg/node"
	"github.com/andydunstall/lattice/pkg/protocol"
	"github.com/andydunstall/lattice/pkg/replog"
)

var (
	// ErrUnsupported is returned for reads of a key, since the counter has
	// a single value.
	ErrUnsupported = errors.New("unsupported")

	ErrNegativeDelta = errors.New("negative delta")
)

type Add struct {
	Delta int `json:"delta"`
}

func (a *Add) Type() string {
	return "add"
}

type AddOK struct{}

func (a *AddOK) Type() string {
	return "add_ok"
}

type Read struct {
	Key *string `json:"key,omitempty"`
}

func (r *Read) Type() string {
	return "read"
}

type ReadOK struct {
	Value int `json:"value"`
}

func (r *ReadOK) Type() string {
	return "read_ok"
}

// State is the counter state. The sum is maintained incrementally as each
// new delta is accepted into the log.
type State struct {
	log *replog.Log[int]
	sum int
}

func NewState(nodeID string) *State {
	return &State{
		log: replog.NewLog[int](nodeID),
	}
}

func (s *State) Log() *replog.Log[int] {
	return s.log
}

func (s *State) NewValue(delta int) {
	s.sum += delta
}

func (s *State) Sum() int {
	return s.sum
}

var _ replog.Store[int] = &State{}
var _ replog.Observer[int] = &State{}

type App struct {
	gossip *gossip.Factory

	logger log.Logger
}

func NewApp(gossipConf *gossip.Config, logger log.Logger) *App {
	return &App{
		gossip: gossip.NewFactory(gossipConf, logger),
		logger: logger.WithSubsystem("app.counter"),
	}
}

func (a *App) NewState(init node.Init) *State {
	return NewState(init.NodeID)
}

func (a *App) Register(
	mux *node.Mux,
	state *node.State[*State],
	sender *protocol.Sender,
) {
	node.Handle(mux, func(m *protocol.Message, req *Add) error {
		if req.Delta < 0 {
			return fmt.Errorf("add: %w: %d", ErrNegativeDelta, req.Delta)
		}

		state.With(func(s *State) {
			replog.Insert[int](s, req.Delta)
		})
		a.logger.Debug("add", zap.Int("delta", req.Delta))

		return sender.Reply(m, &AddOK{})
	})
	node.Handle(mux, func(m *protocol.Message, req *Read) error {
		if req.Key != nil {
			return fmt.Errorf("read %s: %w", *req.Key, ErrUnsupported)
		}

		var sum int
		state.With(func(s *State) {
			sum = s.Sum()
		})
		return sender.Reply(m, &ReadOK{Value: sum})
	})
	mux.RejectReply((&AddOK{}).Type(), (&ReadOK{}).Type())
}

func (a *App) Services(
	state *node.State[*State],
	sender *protocol.Sender,
) []node.Service {
	return []node.Service{gossip.Build[int](a.gossip, state, sender)}
}

func (a *App) Gossip() *gossip.Factory {
	return a.gossip
}

var _ node.Application[*State] = &App{}
