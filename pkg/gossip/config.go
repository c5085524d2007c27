package gossip

import (
	"fmt"
	"time"

	"github.com/spf13/pflag"
)

type Config struct {
	// Interval is the rate to initiate a gossip round.
	Interval time.Duration `json:"interval" yaml:"interval"`
}

func DefaultConfig() Config {
	return Config{
		Interval: time.Millisecond * 100,
	}
}

func (c *Config) Validate() error {
	if c.Interval <= 0 {
		return fmt.Errorf("missing interval")
	}
	return nil
}

func (c *Config) RegisterFlags(fs *pflag.FlagSet) {
	fs.DurationVar(
		&c.Interval,
		"gossip.interval",
		c.Interval,
		`
The interval to initiate rounds of gossip.

Each round sends every neighbor the log entries it isn't known to have. A
shorter interval converges faster at the cost of more messages.`,
	)
}
