package gossip

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/andydunstall/lattice/pkg/log"
	"github.com/andydunstall/lattice/pkg/node"
	"github.com/andydunstall/lattice/pkg/protocol"
	"github.com/andydunstall/lattice/pkg/replog"
)

// Factory builds the gossip engine for an application.
//
// The engine can only be built once the node is initialized, though its
// status handler and metrics registry are configured on startup. Until the
// engine is built, Factory reports that no keys are known.
type Factory struct {
	conf *Config

	registry prometheus.Registerer
	engine   KnownStore

	// mu protects the above fields.
	mu sync.Mutex

	logger log.Logger
}

func NewFactory(conf *Config, logger log.Logger) *Factory {
	return &Factory{
		conf:   conf,
		logger: logger,
	}
}

// SetRegistry sets the registry to register the engine metrics with.
func (f *Factory) SetRegistry(registry prometheus.Registerer) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.registry = registry
}

func (f *Factory) Known() map[string]int {
	engine := f.get()
	if engine == nil {
		return make(map[string]int)
	}
	return engine.Known()
}

func (f *Factory) KnownKeys(peer string) ([]string, bool) {
	engine := f.get()
	if engine == nil {
		return nil, false
	}
	return engine.KnownKeys(peer)
}

func (f *Factory) get() KnownStore {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.engine
}

// Build builds a gossip engine replicating the log in the node state.
func Build[T comparable, S replog.Store[T]](
	f *Factory,
	state *node.State[S],
	sender *protocol.Sender,
) *Gossip[T, S] {
	g := New[T](state, sender, f.conf, f.logger)

	f.mu.Lock()
	defer f.mu.Unlock()

	f.engine = g
	if f.registry != nil {
		g.Metrics().Register(f.registry)
	}
	return g
}

var _ KnownStore = &Factory{}
