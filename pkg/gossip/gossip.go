package gossip

import (
	"context"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/andydunstall/lattice/pkg/log"
	"github.com/andydunstall/lattice/pkg/node"
	"github.com/andydunstall/lattice/pkg/protocol"
	"github.com/andydunstall/lattice/pkg/replog"
)

// Gossip replicates the log of the node application state to the node's
// neighbors.
//
// Gossip runs as a node service, so receives every inbound message and
// ignores those that aren't gossip messages.
type Gossip[T comparable, S replog.Store[T]] struct {
	state  *node.State[S]
	sender *protocol.Sender

	// known contains the set of keys each peer is known to have.
	known map[string]map[string]struct{}

	// mu protects the above fields. When holding both, the node state lock
	// must be acquired first.
	mu sync.Mutex

	conf *Config

	metrics *Metrics

	logger log.Logger
}

func New[T comparable, S replog.Store[T]](
	state *node.State[S],
	sender *protocol.Sender,
	conf *Config,
	logger log.Logger,
) *Gossip[T, S] {
	known := make(map[string]map[string]struct{})
	for _, id := range state.Init().NodeIDs {
		known[id] = make(map[string]struct{})
	}
	return &Gossip[T, S]{
		state:   state,
		sender:  sender,
		known:   known,
		conf:    conf,
		metrics: NewMetrics(),
		logger:  logger.WithSubsystem("gossip"),
	}
}

// Run handles inbound gossip messages and initiates a gossip round every
// interval until inbound is closed or the context is cancelled.
func (g *Gossip[T, S]) Run(ctx context.Context, inbound <-chan *protocol.Message) error {
	g.logger.Info(
		"starting gossip",
		zap.Duration("interval", g.conf.Interval),
	)

	ticker := time.NewTicker(g.conf.Interval)
	defer ticker.Stop()

	for {
		select {
		case m, ok := <-inbound:
			if !ok {
				return nil
			}
			g.Handle(m)
		case <-ticker.C:
			g.Round()
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// Round sends each neighbor the entries it isn't known to have. Neighbors
// that have all entries are skipped.
//
// A failed send is logged and the round continues with the other neighbors.
// Since the peer isn't marked as knowing the entries, they will be sent
// again next round.
func (g *Gossip[T, S]) Round() {
	for _, peer := range g.state.Neighbors() {
		if peer == g.state.NodeID() {
			continue
		}

		var delta map[string]T
		g.state.With(func(s S) {
			g.mu.Lock()
			defer g.mu.Unlock()

			delta = g.deltaLocked(s.Log(), peer)
		})
		if len(delta) == 0 {
			continue
		}

		if err := g.sender.Send(
			g.state.NodeID(), peer, &Request[T]{Seen: delta}, true,
		); err != nil {
			g.metrics.SendErrors.Inc()
			g.logger.Warn(
				"failed to send gossip",
				zap.String("peer", peer),
				zap.Error(err),
			)
			continue
		}

		g.metrics.MessagesOutbound.WithLabelValues(TypeGossip).Inc()
		g.metrics.EntriesOutbound.Add(float64(len(delta)))
	}
}

// Handle handles an inbound message. Messages that aren't gossip messages
// are ignored.
func (g *Gossip[T, S]) Handle(m *protocol.Message) {
	switch m.Type() {
	case TypeGossip:
		var req Request[T]
		if err := m.Decode(&req); err != nil {
			g.logger.Debug(
				"skipping gossip; decode",
				zap.String("src", m.Src),
				zap.Error(err),
			)
			return
		}
		g.metrics.MessagesInbound.WithLabelValues(TypeGossip).Inc()
		g.handleRequest(m, &req)
	case TypeGossipOK:
		var ack Ack[T]
		if err := m.Decode(&ack); err != nil {
			g.logger.Debug(
				"skipping gossip ack; decode",
				zap.String("src", m.Src),
				zap.Error(err),
			)
			return
		}
		g.metrics.MessagesInbound.WithLabelValues(TypeGossipOK).Inc()
		g.merge(m.Src, ack.Seen)
	}
}

// Known returns the number of keys each peer is known to have.
func (g *Gossip[T, S]) Known() map[string]int {
	g.mu.Lock()
	defer g.mu.Unlock()

	known := make(map[string]int, len(g.known))
	for peer, keys := range g.known {
		known[peer] = len(keys)
	}
	return known
}

// KnownKeys returns the sorted keys the peer is known to have.
func (g *Gossip[T, S]) KnownKeys(peer string) ([]string, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()

	known, ok := g.known[peer]
	if !ok {
		return nil, false
	}
	keys := make([]string, 0, len(known))
	for key := range known {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys, true
}

func (g *Gossip[T, S]) Metrics() *Metrics {
	return g.metrics
}

func (g *Gossip[T, S]) handleRequest(m *protocol.Message, req *Request[T]) {
	var merged int
	var seen map[string]T
	g.state.With(func(s S) {
		merged = replog.Merge[T](s, req.Seen)

		g.mu.Lock()
		defer g.mu.Unlock()

		g.addKnownLocked(m.Src, req.Seen)
		seen = g.deltaLocked(s.Log(), m.Src)
	})
	for key, v := range req.Seen {
		seen[key] = v
	}

	g.metrics.EntriesMerged.Add(float64(merged))
	if merged > 0 {
		g.logger.Debug(
			"merged entries",
			zap.String("peer", m.Src),
			zap.Int("merged", merged),
		)
	}

	if err := g.sender.Reply(m, &Ack[T]{Seen: seen}); err != nil {
		g.metrics.SendErrors.Inc()
		g.logger.Warn(
			"failed to send gossip ack",
			zap.String("peer", m.Src),
			zap.Error(err),
		)
		return
	}
	g.metrics.MessagesOutbound.WithLabelValues(TypeGossipOK).Inc()
	g.metrics.EntriesOutbound.Add(float64(len(seen)))
}

func (g *Gossip[T, S]) merge(peer string, entries map[string]T) {
	var merged int
	g.state.With(func(s S) {
		merged = replog.Merge[T](s, entries)

		g.mu.Lock()
		defer g.mu.Unlock()

		g.addKnownLocked(peer, entries)
	})

	g.metrics.EntriesMerged.Add(float64(merged))
}

// deltaLocked returns the entries in the log the peer isn't known to have.
func (g *Gossip[T, S]) deltaLocked(l *replog.Log[T], peer string) map[string]T {
	known := g.knownLocked(peer)

	delta := make(map[string]T)
	l.Range(func(key string, v T) bool {
		if _, ok := known[key]; !ok {
			delta[key] = v
		}
		return true
	})
	return delta
}

func (g *Gossip[T, S]) addKnownLocked(peer string, entries map[string]T) {
	known := g.knownLocked(peer)
	for key := range entries {
		known[key] = struct{}{}
	}
	g.metrics.KnownEntries.WithLabelValues(peer).Set(float64(len(known)))
}

// knownLocked returns the keys known by the peer, adding the peer if it
// doesn't exist.
func (g *Gossip[T, S]) knownLocked(peer string) map[string]struct{} {
	known, ok := g.known[peer]
	if !ok {
		known = make(map[string]struct{})
		g.known[peer] = known
	}
	return known
}

var _ node.Service = &Gossip[int, replog.Store[int]]{}
