package status

import "github.com/spf13/cobra"

func NewCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status",
		Short: "inspect node status",
		Long: `Inspect node status.

Each node started with '--admin.bind-addr' exposes a status API to inspect
the state of the node, this can be used to answer questions such as:
* Has the node been initialised, and what are its neighbors?
* Which log entries does the node know each peer has?

See 'status --help' for the availale commands.

Examples:
  # Inspect the node state.
  lattice status node

  # Inspect how many entries each peer is known to have.
  lattice status gossip known

  # Inspect the node at 10.26.104.56:8002.
  lattice status node --server.url http://10.26.104.56:8002
`,
	}

	cmd.AddCommand(newNodeCommand())
	cmd.AddCommand(newGossipCommand())

	return cmd
}
