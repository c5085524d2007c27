// Package config contains the node configuration shared by every
// application.
package config

import (
	"fmt"

	"github.com/spf13/pflag"

	"github.com/andydunstall/lattice/app/kafka"
	"github.com/andydunstall/lattice/pkg/admin"
	"github.com/andydunstall/lattice/pkg/gossip"
	"github.com/andydunstall/lattice/pkg/log"
)

type Config struct {
	Gossip gossip.Config `json:"gossip" yaml:"gossip"`
	Kafka  kafka.Config  `json:"kafka" yaml:"kafka"`
	Admin  admin.Config  `json:"admin" yaml:"admin"`
	Log    log.Config    `json:"log" yaml:"log"`
}

func Default() *Config {
	return &Config{
		Gossip: gossip.DefaultConfig(),
		Kafka:  kafka.DefaultConfig(),
		Log: log.Config{
			Level: "info",
		},
	}
}

func (c *Config) Validate() error {
	if err := c.Gossip.Validate(); err != nil {
		return fmt.Errorf("gossip: %w", err)
	}
	if err := c.Kafka.Validate(); err != nil {
		return fmt.Errorf("kafka: %w", err)
	}
	if err := c.Admin.Validate(); err != nil {
		return fmt.Errorf("admin: %w", err)
	}
	if err := c.Log.Validate(); err != nil {
		return fmt.Errorf("log: %w", err)
	}
	return nil
}

func (c *Config) RegisterFlags(fs *pflag.FlagSet) {
	c.Gossip.RegisterFlags(fs)
	c.Kafka.RegisterFlags(fs)
	c.Admin.RegisterFlags(fs)
	c.Log.RegisterFlags(fs)
}
