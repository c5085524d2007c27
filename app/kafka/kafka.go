// Package kafka implements a replicated log-structured message queue.
//
// Clients append messages to keys, poll messages from an offset and commit
// the offsets they have processed. Records and commits are both entries in
// the node's replicated log, so are replicated to the other nodes by gossip.
//
// Each key has a single owner node that assigns its offsets. A send to any
// other node is forwarded to the owner, and the reply is relayed back to
// the client.
package kafka

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/andydunstall/lattice/pkg/gossip"
	"github.com/andydunstall/lattice/pkg/log"
	"github.com/andydunstall/lattice/pkg/node"
	"github.com/andydunstall/lattice/pkg/protocol"
)

type App struct {
	conf   *Config
	gossip *gossip.Factory

	logger log.Logger
}

func NewApp(conf *Config, gossipConf *gossip.Config, logger log.Logger) *App {
	return &App{
		conf:   conf,
		gossip: gossip.NewFactory(gossipConf, logger),
		logger: logger.WithSubsystem("app.kafka"),
	}
}

func (a *App) NewState(init node.Init) *State {
	return NewState(init.NodeID, init.NodeIDs)
}

func (a *App) Register(
	mux *node.Mux,
	state *node.State[*State],
	sender *protocol.Sender,
) {
	node.Handle(mux, func(m *protocol.Message, req *Send) error {
		var owner string
		var isOwner bool
		var offset int
		state.With(func(s *State) {
			owner = s.Owner(req.Key)
			isOwner = s.IsOwner(req.Key)
			if isOwner {
				offset = s.Append(req.Key, req.Msg)
			}
		})

		if !isOwner {
			msgID, ok := m.MsgID()
			if !ok {
				return fmt.Errorf("send: %w", protocol.ErrNoMsgID)
			}

			a.logger.Debug(
				"send; forwarding to owner",
				zap.String("key", req.Key),
				zap.String("owner", owner),
			)

			if err := sender.Send(state.NodeID(), owner, &ForwardSend{
				Key:         req.Key,
				Msg:         req.Msg,
				Client:      m.Src,
				ClientMsgID: msgID,
			}, true); err != nil {
				return fmt.Errorf("send: forward: %s: %w", owner, err)
			}
			return nil
		}

		a.logger.Debug(
			"send",
			zap.String("key", req.Key),
			zap.Int("offset", offset),
		)

		return sender.Reply(m, &SendOK{Offset: offset})
	})
	node.Handle(mux, func(m *protocol.Message, req *ForwardSend) error {
		var offset int
		state.With(func(s *State) {
			offset = s.Append(req.Key, req.Msg)
		})

		a.logger.Debug(
			"forwarded send",
			zap.String("key", req.Key),
			zap.String("src", m.Src),
			zap.Int("offset", offset),
		)

		return sender.Reply(m, &ForwardSendOK{
			Offset:      offset,
			Client:      req.Client,
			ClientMsgID: req.ClientMsgID,
		})
	})
	node.Handle(mux, func(_ *protocol.Message, req *ForwardSendOK) error {
		return sender.ReplyTo(
			state.NodeID(),
			req.Client,
			req.ClientMsgID,
			&SendOK{Offset: req.Offset},
		)
	})
	node.Handle(mux, func(m *protocol.Message, req *Poll) error {
		msgs := make(map[string][][2]int)
		state.With(func(s *State) {
			for key, from := range req.Offsets {
				if records := s.Poll(key, from, a.conf.PollLimit); len(records) > 0 {
					msgs[key] = records
				}
			}
		})

		a.logger.Debug("poll", zap.Any("offsets", req.Offsets))

		return sender.Reply(m, &PollOK{Msgs: msgs})
	})
	node.Handle(mux, func(m *protocol.Message, req *CommitOffsets) error {
		state.With(func(s *State) {
			for key, offset := range req.Offsets {
				s.Commit(key, offset)
			}
		})

		a.logger.Debug("commit offsets", zap.Any("offsets", req.Offsets))

		return sender.Reply(m, &CommitOffsetsOK{})
	})
	node.Handle(mux, func(m *protocol.Message, req *ListCommittedOffsets) error {
		offsets := make(map[string]int)
		state.With(func(s *State) {
			for _, key := range req.Keys {
				if offset, ok := s.Committed(key); ok {
					offsets[key] = offset
				}
			}
		})

		a.logger.Debug("list committed offsets", zap.Strings("keys", req.Keys))

		return sender.Reply(m, &ListCommittedOffsetsOK{Offsets: offsets})
	})
	mux.RejectReply(
		(&SendOK{}).Type(),
		(&PollOK{}).Type(),
		(&CommitOffsetsOK{}).Type(),
		(&ListCommittedOffsetsOK{}).Type(),
	)
}

func (a *App) Services(
	state *node.State[*State],
	sender *protocol.Sender,
) []node.Service {
	return []node.Service{gossip.Build[Entry](a.gossip, state, sender)}
}

func (a *App) Gossip() *gossip.Factory {
	return a.gossip
}

var _ node.Application[*State] = &App{}
