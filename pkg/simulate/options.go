package simulate

import (
	"time"

	"github.com/andydunstall/lattice/pkg/log"
)

type options struct {
	nodes   int
	timeout time.Duration
	logger  log.Logger
}

type nodesOption int

func (o nodesOption) apply(opts *options) {
	opts.nodes = int(o)
}

// WithNodes configures the number of nodes in the cluster. Defaults to 3.
func WithNodes(nodes int) Option {
	return nodesOption(nodes)
}

type timeoutOption time.Duration

func (o timeoutOption) apply(opts *options) {
	opts.timeout = time.Duration(o)
}

// WithTimeout configures the time to wait for a reply to a client request.
// Defaults to 5 seconds.
func WithTimeout(timeout time.Duration) Option {
	return timeoutOption(timeout)
}

type loggerOption struct {
	Logger log.Logger
}

func (o loggerOption) apply(opts *options) {
	opts.logger = o.Logger
}

// WithLogger configures the logger. Defaults to no output.
func WithLogger(logger log.Logger) Option {
	return loggerOption{Logger: logger}
}

type Option interface {
	apply(*options)
}
