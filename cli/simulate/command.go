package simulate

import (
	"fmt"
	"os"
	"time"

	yaml "github.com/goccy/go-yaml"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/andydunstall/lattice/pkg/gossip"
	"github.com/andydunstall/lattice/pkg/log"
)

type config struct {
	Nodes     int           `json:"nodes"`
	Values    int           `json:"values"`
	Partition bool          `json:"partition"`
	Timeout   time.Duration `json:"timeout"`

	Gossip gossip.Config `json:"gossip"`
	Log    log.Config    `json:"log"`
}

func (c *config) Validate() error {
	if c.Nodes < 1 {
		return fmt.Errorf("nodes must be at least 1")
	}
	if c.Values < 0 {
		return fmt.Errorf("values cannot be negative")
	}
	if c.Timeout == 0 {
		return fmt.Errorf("missing timeout")
	}
	if err := c.Gossip.Validate(); err != nil {
		return fmt.Errorf("gossip: %w", err)
	}
	if err := c.Log.Validate(); err != nil {
		return fmt.Errorf("log: %w", err)
	}
	return nil
}

func (c *config) RegisterFlags(fs *pflag.FlagSet) {
	fs.IntVar(
		&c.Nodes,
		"nodes",
		5,
		`
Number of nodes in the simulated cluster.`,
	)
	fs.IntVar(
		&c.Values,
		"values",
		20,
		`
Number of values to write. Values are written to the nodes in round-robin
order.`,
	)
	fs.BoolVar(
		&c.Partition,
		"partition",
		false,
		`
Whether to partition node 'n1' from the rest of the cluster while writing
values. The partition is healed once every value has been written, so the
cluster only converges once gossip catches up.`,
	)
	fs.DurationVar(
		&c.Timeout,
		"timeout",
		time.Second*30,
		`
Maximum duration to wait for a request to be acknowledged or for the
cluster to converge.`,
	)

	c.Gossip = gossip.DefaultConfig()
	c.Gossip.RegisterFlags(fs)
	c.Log.RegisterFlags(fs)
}

type report struct {
	App       string `json:"app"`
	Nodes     int    `json:"nodes"`
	Values    int    `json:"values"`
	Partition bool   `json:"partition"`

	// Converged is the time between writing the first value and every node
	// returning the expected result.
	Converged time.Duration `json:"converged"`

	Messages struct {
		Delivered uint64 `json:"delivered"`
		Dropped   uint64 `json:"dropped"`
	} `json:"messages"`
}

func NewCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "simulate",
		Short: "simulate a cluster",
		Long: `Simulate a cluster.

Runs a cluster of nodes in the local process, connected by an in-memory
network, then writes values and waits for every node to converge.

Once converged, a report is written to stdout containing the time taken to
converge and the number of messages exchanged between nodes.

See 'simulate --help' for the availale commands.

Examples:
  # Simulate a 5 node broadcast cluster.
  lattice simulate broadcast

  # Simulate a 10 node counter cluster with a partition.
  lattice simulate counter --nodes 10 --partition
`,
	}

	cmd.AddCommand(newBroadcastCommand())
	cmd.AddCommand(newCounterCommand())

	return cmd
}

func newBroadcastCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "broadcast",
		Short: "simulate a broadcast cluster",
		Long: `Simulate a broadcast cluster.

Broadcasts each value to a node, then waits for every node to read every
value.

Examples:
  lattice simulate broadcast --nodes 25 --values 100
`,
	}
	return newAppCommand(cmd, "broadcast", runBroadcast)
}

func newCounterCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "counter",
		Short: "simulate a counter cluster",
		Long: `Simulate a counter cluster.

Adds each value to a node, then waits for every node to read the sum of
the values.

Examples:
  lattice simulate counter --nodes 10 --gossip.interval 50ms
`,
	}
	return newAppCommand(cmd, "counter", runCounter)
}

type runFunc func(conf *config, logger log.Logger) (*report, error)

func newAppCommand(cmd *cobra.Command, name string, run runFunc) *cobra.Command {
	var conf config
	conf.RegisterFlags(cmd.Flags())

	cmd.Run = func(cmd *cobra.Command, args []string) {
		if err := conf.Validate(); err != nil {
			fmt.Printf("invalid config: %s\n", err.Error())
			os.Exit(1)
		}

		logger, err := log.NewLogger(conf.Log.Level, conf.Log.Subsystems)
		if err != nil {
			fmt.Printf("failed to setup logger: %s\n", err.Error())
			os.Exit(1)
		}

		r, err := run(&conf, logger)
		if err != nil {
			fmt.Printf("failed to simulate %s: %s\n", name, err.Error())
			os.Exit(1)
		}

		b, _ := yaml.Marshal(r)
		fmt.Println(string(b))
	}

	return cmd
}
