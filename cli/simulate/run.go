package simulate

import (
	"fmt"
	"slices"
	"time"

	"go.uber.org/zap"

	"github.com/andydunstall/lattice/app/broadcast"
	"github.com/andydunstall/lattice/app/counter"
	"github.com/andydunstall/lattice/pkg/log"
	"github.com/andydunstall/lattice/pkg/node"
	"github.com/andydunstall/lattice/pkg/protocol"
	"github.com/andydunstall/lattice/pkg/simulate"
)

func runBroadcast(conf *config, logger log.Logger) (*report, error) {
	cluster, err := simulate.Start(func(_ string) node.Application[*broadcast.State] {
		return broadcast.NewApp(&conf.Gossip, logger)
	}, clusterOptions(conf, logger)...)
	if err != nil {
		return nil, fmt.Errorf("start cluster: %w", err)
	}
	defer cluster.Close()

	var expected []int
	return simulateApp(
		"broadcast",
		cluster,
		conf,
		func(i int) protocol.Payload {
			expected = append(expected, i)
			return &broadcast.Broadcast{Message: i}
		},
		func(id string) bool {
			reply, err := cluster.Request(id, &broadcast.Read{})
			if err != nil {
				return false
			}
			var readOK broadcast.ReadOK
			if err := reply.Decode(&readOK); err != nil {
				return false
			}
			return slices.Equal(expected, readOK.Messages)
		},
		logger,
	)
}

func runCounter(conf *config, logger log.Logger) (*report, error) {
	cluster, err := simulate.Start(func(_ string) node.Application[*counter.State] {
		return counter.NewApp(&conf.Gossip, logger)
	}, clusterOptions(conf, logger)...)
	if err != nil {
		return nil, fmt.Errorf("start cluster: %w", err)
	}
	defer cluster.Close()

	var sum int
	return simulateApp(
		"counter",
		cluster,
		conf,
		func(i int) protocol.Payload {
			sum += i
			return &counter.Add{Delta: i}
		},
		func(id string) bool {
			reply, err := cluster.Request(id, &counter.Read{})
			if err != nil {
				return false
			}
			var readOK counter.ReadOK
			if err := reply.Decode(&readOK); err != nil {
				return false
			}
			return readOK.Value == sum
		},
		logger,
	)
}

func clusterOptions(conf *config, logger log.Logger) []simulate.Option {
	return []simulate.Option{
		simulate.WithNodes(conf.Nodes),
		simulate.WithTimeout(conf.Timeout),
		simulate.WithLogger(logger),
	}
}

// simulateApp writes each value returned by write to the cluster, then
// waits for converged to return true for every node.
func simulateApp(
	app string,
	cluster *simulate.Cluster,
	conf *config,
	write func(i int) protocol.Payload,
	converged func(id string) bool,
	logger log.Logger,
) (*report, error) {
	nodeIDs := cluster.NodeIDs()

	setPartition := func(down bool) {
		for _, id := range nodeIDs[1:] {
			cluster.Network().SetLinkDown(nodeIDs[0], id, down)
		}
	}
	if conf.Partition {
		setPartition(true)
	}

	start := time.Now()

	for i := 0; i != conf.Values; i++ {
		id := nodeIDs[i%len(nodeIDs)]
		if _, err := cluster.Request(id, write(i)); err != nil {
			return nil, fmt.Errorf("write %d: %s: %w", i, id, err)
		}
	}

	if conf.Partition {
		setPartition(false)
		logger.Info("partition healed")
	}

	for _, id := range nodeIDs {
		if err := cluster.WaitFor(func() bool {
			return converged(id)
		}); err != nil {
			return nil, fmt.Errorf("converge: %s: %w", id, err)
		}
	}

	r := &report{
		App:       app,
		Nodes:     conf.Nodes,
		Values:    conf.Values,
		Partition: conf.Partition,
		Converged: time.Since(start),
	}
	r.Messages.Delivered = cluster.Network().Delivered()
	r.Messages.Dropped = cluster.Network().Dropped()

	logger.Info(
		"cluster converged",
		zap.Duration("converged", r.Converged),
	)

	return r, nil
}
