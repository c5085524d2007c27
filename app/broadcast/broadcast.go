// Package broadcast implements a set broadcast, where every message
// broadcast to any node is eventually read from every node.
package broadcast

import (
	"slices"

	"go.uber.org/zap"

	"github.com/andydunstall/lattice/pkg/gossip"
	"github.com/andydunstall/lattice/pkg/log"
	"github.com/andydunstall/lattice/pkg/node"
	"github.com/andydunstall/lattice/pkg/protocol"
	"github.com/andydunstall/lattice/pkg/replog"
)

type Broadcast struct {
	Message int `json:"message"`
}

func (b *Broadcast) Type() string {
	return "broadcast"
}

type BroadcastOK struct{}

func (b *BroadcastOK) Type() string {
	return "broadcast_ok"
}

type Read struct{}

func (r *Read) Type() string {
	return "read"
}

type ReadOK struct {
	Messages []int `json:"messages"`
}

func (r *ReadOK) Type() string {
	return "read_ok"
}

type Topology struct {
	Topology map[string][]string `json:"topology"`
}

func (t *Topology) Type() string {
	return "topology"
}

type TopologyOK struct{}

func (t *TopologyOK) Type() string {
	return "topology_ok"
}

type State struct {
	log *replog.Log[int]
}

func NewState(nodeID string) *State {
	return &State{
		log: replog.NewLog[int](nodeID),
	}
}

func (s *State) Log() *replog.Log[int] {
	return s.log
}

// Messages returns the distinct messages in ascending order.
func (s *State) Messages() []int {
	messages := s.log.Values()
	slices.Sort(messages)
	return slices.Compact(messages)
}

var _ replog.Store[int] = &State{}

type App struct {
	gossip *gossip.Factory

	logger log.Logger
}

func NewApp(gossipConf *gossip.Config, logger log.Logger) *App {
	return &App{
		gossip: gossip.NewFactory(gossipConf, logger),
		logger: logger.WithSubsystem("app.broadcast"),
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
	node.Handle(mux, func(m *protocol.Message, req *Broadcast) error {
		state.With(func(s *State) {
			replog.Insert[int](s, req.Message)
		})
		return sender.Reply(m, &BroadcastOK{})
	})
	node.Handle(mux, func(m *protocol.Message, _ *Read) error {
		var messages []int
		state.With(func(s *State) {
			messages = s.Messages()
		})
		if messages == nil {
			messages = []int{}
		}
		return sender.Reply(m, &ReadOK{Messages: messages})
	})
	node.Handle(mux, func(m *protocol.Message, req *Topology) error {
		if err := state.UpdateTopology(req.Topology); err != nil {
			return node.Fatal(err)
		}
		a.logger.Info(
			"updated topology",
			zap.Strings("neighbors", state.Neighbors()),
		)
		return sender.Reply(m, &TopologyOK{})
	})
	mux.RejectReply(
		(&BroadcastOK{}).Type(),
		(&ReadOK{}).Type(),
		(&TopologyOK{}).Type(),
	)
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
