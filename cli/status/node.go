package status

import (
	"fmt"
	"net/url"
	"os"

	yaml "github.com/goccy/go-yaml"
	"github.com/spf13/cobra"

	"github.com/andydunstall/lattice/status/client"
	"github.com/andydunstall/lattice/status/config"
)

func newNodeCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "node",
		Short: "inspect node state",
		Long: `Inspect node state.

Queries the node for its ID, the cluster node IDs and its neighbors.

Examples:
  lattice status node
`,
	}

	var conf config.Config
	conf.RegisterFlags(cmd.Flags())

	cmd.Run = func(cmd *cobra.Command, args []string) {
		if err := conf.Validate(); err != nil {
			fmt.Printf("invalid config: %s\n", err.Error())
			os.Exit(1)
		}

		showNode(&conf)
	}

	return cmd
}

func showNode(conf *config.Config) {
	// The URL has already been validated in conf.
	url, _ := url.Parse(conf.Server.URL)
	client := client.NewClient(url)
	defer client.Close()

	status, err := client.Node()
	if err != nil {
		fmt.Printf("failed to get node status: %s\n", err.Error())
		os.Exit(1)
	}

	b, _ := yaml.Marshal(status)
	fmt.Println(string(b))
}
