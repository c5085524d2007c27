package status

import (
	"fmt"
	"net/url"
	"os"
	"sort"

	yaml "github.com/goccy/go-yaml"
	"github.com/spf13/cobra"

	"github.com/andydunstall/lattice/status/client"
	"github.com/andydunstall/lattice/status/config"
)

func newGossipCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "gossip",
		Short: "inspect gossip state",
	}

	cmd.AddCommand(newGossipKnownCommand())

	return cmd
}

func newGossipKnownCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "known [peer]",
		Args:  cobra.MaximumNArgs(1),
		Short: "inspect the entries known by each peer",
		Long: `Inspect the entries known by each peer.

Without arguments, queries the node for the number of log entries it knows
each peer has. With a peer ID, queries the keys of the entries the node knows
that peer has.

Examples:
  # Number of known entries for each peer.
  lattice status gossip known

  # Known entry keys for peer n2.
  lattice status gossip known n2
`,
	}

	var conf config.Config
	conf.RegisterFlags(cmd.Flags())

	cmd.Run = func(cmd *cobra.Command, args []string) {
		if err := conf.Validate(); err != nil {
			fmt.Printf("invalid config: %s\n", err.Error())
			os.Exit(1)
		}

		if len(args) == 1 {
			showGossipKnownKeys(args[0], &conf)
			return
		}
		showGossipKnown(&conf)
	}

	return cmd
}

type knownPeer struct {
	ID      string `json:"id"`
	Entries int    `json:"entries"`
}

type gossipKnownOutput struct {
	Peers []knownPeer `json:"peers"`
}

func showGossipKnown(conf *config.Config) {
	// The URL has already been validated in conf.
	url, _ := url.Parse(conf.Server.URL)
	client := client.NewClient(url)
	defer client.Close()

	known, err := client.GossipKnown()
	if err != nil {
		fmt.Printf("failed to get gossip known: %s\n", err.Error())
		os.Exit(1)
	}

	var output gossipKnownOutput
	for id, entries := range known {
		output.Peers = append(output.Peers, knownPeer{
			ID:      id,
			Entries: entries,
		})
	}
	// Sort by ID.
	sort.Slice(output.Peers, func(i, j int) bool {
		return output.Peers[i].ID < output.Peers[j].ID
	})

	b, _ := yaml.Marshal(output)
	fmt.Println(string(b))
}

type gossipKnownKeysOutput struct {
	Peer string   `json:"peer"`
	Keys []string `json:"keys"`
}

func showGossipKnownKeys(peer string, conf *config.Config) {
	// The URL has already been validated in conf.
	url, _ := url.Parse(conf.Server.URL)
	client := client.NewClient(url)
	defer client.Close()

	keys, err := client.GossipKnownKeys(peer)
	if err != nil {
		fmt.Printf("failed to get gossip known: %s: %s\n", peer, err.Error())
		os.Exit(1)
	}

	sort.Strings(keys)

	b, _ := yaml.Marshal(gossipKnownKeysOutput{
		Peer: peer,
		Keys: keys,
	})
	fmt.Println(string(b))
}
