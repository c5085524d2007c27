package node

import (
	"github.com/spf13/cobra"

	"github.com/andydunstall/lattice/app/broadcast"
	"github.com/andydunstall/lattice/app/config"
	"github.com/andydunstall/lattice/app/counter"
	"github.com/andydunstall/lattice/app/echo"
	"github.com/andydunstall/lattice/app/kafka"
	"github.com/andydunstall/lattice/app/uniqueids"
	"github.com/andydunstall/lattice/pkg/log"
	"github.com/andydunstall/lattice/pkg/node"
)

func NewCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "node",
		Short: "run a node",
		Long: `Run a node.

A node reads messages from stdin and writes messages to stdout, one JSON
message per line. Nodes are started by a test harness such as Maelstrom,
which routes messages between nodes and clients.

The first message received must be 'init', which tells the node its own ID
and the IDs of every node in the cluster.

Logs are written to stderr.

See 'node --help' for the available applications.

Examples:
  # Run a broadcast node.
  lattice node broadcast

  # Run a counter node, gossiping every 50ms.
  lattice node counter --gossip.interval 50ms

  # Run a kafka node, with the admin server listening on :8002.
  lattice node kafka --admin.bind-addr :8002
`,
	}

	cmd.AddCommand(newEchoCommand())
	cmd.AddCommand(newCounterCommand())
	cmd.AddCommand(newBroadcastCommand())
	cmd.AddCommand(newUniqueIDsCommand())
	cmd.AddCommand(newKafkaCommand())

	return cmd
}

func newEchoCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "echo",
		Short: "run an echo node",
		Long: `Run an echo node.

Replies to each 'echo' request with 'echo_ok', containing the echo value from
the request.

Examples:
  lattice node echo
`,
	}
	return newAppCommand(cmd, "echo", func(_ *config.Config, logger log.Logger) node.Application[*echo.State] {
		return echo.NewApp(logger)
	})
}

func newCounterCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "counter",
		Short: "run a grow-only counter node",
		Long: `Run a grow-only counter node.

Each 'add' request adds a delta to the counter, and 'read' returns the sum
of all deltas added to any node. Deltas are replicated between nodes with
gossip, so reads are eventually consistent.

Examples:
  lattice node counter
`,
	}
	return newAppCommand(cmd, "counter", func(conf *config.Config, logger log.Logger) node.Application[*counter.State] {
		return counter.NewApp(&conf.Gossip, logger)
	})
}

func newBroadcastCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "broadcast",
		Short: "run a broadcast node",
		Long: `Run a broadcast node.

Messages broadcast to any node are replicated to every node with gossip.
'read' returns the messages the node has seen, and 'topology' configures the
node's neighbors to gossip with. Before a topology is received, the node
gossips with every node in the cluster.

Examples:
  lattice node broadcast
`,
	}
	return newAppCommand(cmd, "broadcast", func(conf *config.Config, logger log.Logger) node.Application[*broadcast.State] {
		return broadcast.NewApp(&conf.Gossip, logger)
	})
}

func newUniqueIDsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "unique-ids",
		Short: "run a unique ID node",
		Long: `Run a unique ID node.

Replies to each 'generate' request with a globally unique ID, without
coordinating with other nodes.

Examples:
  lattice node unique-ids
`,
	}
	return newAppCommand(cmd, "unique-ids", func(_ *config.Config, logger log.Logger) node.Application[*uniqueids.State] {
		return uniqueids.NewApp(logger)
	})
}

func newKafkaCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "kafka",
		Short: "run a kafka-style log node",
		Long: `Run a kafka-style log node.

Clients 'send' messages to keys, 'poll' messages from an offset, and commit
the offsets they have processed. Records and committed offsets are replicated
between nodes with gossip.

Offsets are unique and increasing for each key, though may have gaps.

Examples:
  lattice node kafka --kafka.poll-limit 50
`,
	}
	return newAppCommand(cmd, "kafka", func(conf *config.Config, logger log.Logger) node.Application[*kafka.State] {
		return kafka.NewApp(&conf.Kafka, &conf.Gossip, logger)
	})
}
