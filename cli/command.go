package cli

import (
	"github.com/spf13/cobra"

	"github.com/andydunstall/lattice/cli/node"
	"github.com/andydunstall/lattice/cli/simulate"
	"github.com/andydunstall/lattice/cli/status"
)

func NewCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:          "lattice [command] (flags)",
		SilenceUsage: true,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		Long: `Lattice is a toolkit for building distributed system nodes that run
under a Maelstrom-style test harness.

Each node exchanges JSON messages with the harness over stdin and stdout, one
message per line. The harness routes messages between nodes and clients, and
may delay, drop or partition them.

Nodes replicate state with gossip, periodically sending each neighbor the log
entries the neighbor isn't known to have.

Start a broadcast node with:

  $ lattice node broadcast

If the node is started with '--admin.bind-addr', you can inspect its status
using:

  $ lattice status node

You can also run a cluster of nodes in the local process, connected by an
in-memory network, using:

  $ lattice simulate broadcast --nodes 5
`,
	}

	cmd.AddCommand(node.NewCommand())
	cmd.AddCommand(status.NewCommand())
	cmd.AddCommand(simulate.NewCommand())

	return cmd
}

func init() {
	cobra.EnableCommandSorting = false
}
