package admin

import (
	"github.com/spf13/pflag"
)

type Config struct {
	// BindAddr is the address to bind to listen for admin HTTP requests.
	// If empty the admin server is disabled.
	BindAddr string `json:"bind_addr" yaml:"bind_addr"`

	// AdvertiseAddr is the address to reach the admin server. Defaults to
	// the bind address, using the node's private IP if the bind address
	// doesn't include a host.
	AdvertiseAddr string `json:"advertise_addr" yaml:"advertise_addr"`
}

func (c *Config) Enabled() bool {
	return c.BindAddr != ""
}

func (c *Config) Validate() error {
	return nil
}

func (c *Config) RegisterFlags(fs *pflag.FlagSet) {
	fs.StringVar(
		&c.BindAddr,
		"admin.bind-addr",
		c.BindAddr,
		`
The host/port to listen for admin HTTP requests, such as ':8002'.

The admin server exposes the node health, Prometheus metrics and status
endpoints. Since nodes are usually run many to a host by the test harness,
the admin server is disabled by default.`,
	)
	fs.StringVar(
		&c.AdvertiseAddr,
		"admin.advertise-addr",
		c.AdvertiseAddr,
		`
Admin address to advertise, which is logged on startup so the node status
can be inspected with 'lattice status --server.url'.

By default, if the bind address includes an IP to bind to that will be used.
If the bind address does not include an IP (such as ':8002') the nodes
private IP will be used.`,
	)
}
