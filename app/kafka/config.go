package kafka

import (
	"fmt"

	"github.com/spf13/pflag"
)

type Config struct {
	// PollLimit is the maximum number of records returned per key in a
	// single poll.
	PollLimit int `json:"poll_limit" yaml:"poll_limit"`
}

func DefaultConfig() Config {
	return Config{
		PollLimit: 100,
	}
}

func (c *Config) Validate() error {
	if c.PollLimit <= 0 {
		return fmt.Errorf("poll limit must be positive")
	}
	return nil
}

func (c *Config) RegisterFlags(fs *pflag.FlagSet) {
	fs.IntVar(
		&c.PollLimit,
		"kafka.poll-limit",
		c.PollLimit,
		`
The maximum number of records returned for each key in a single poll.`,
	)
}
