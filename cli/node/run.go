package node

import (
	"context"
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	rungroup "github.com/oklog/run"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/andydunstall/lattice/app/config"
	"github.com/andydunstall/lattice/pkg/admin"
	lconfig "github.com/andydunstall/lattice/pkg/config"
	"github.com/andydunstall/lattice/pkg/gossip"
	"github.com/andydunstall/lattice/pkg/log"
	"github.com/andydunstall/lattice/pkg/node"
	"github.com/andydunstall/lattice/pkg/protocol"
)

const (
	adminShutdownTimeout = time.Second * 5
)

// gossipApp is implemented by applications that replicate state with
// gossip.
type gossipApp interface {
	Gossip() *gossip.Factory
}

// newAppCommand creates a command that runs a node with the application
// returned by newApp.
func newAppCommand[S any](
	cmd *cobra.Command,
	name string,
	newApp func(conf *config.Config, logger log.Logger) node.Application[S],
) *cobra.Command {
	conf := config.Default()

	var loadConf lconfig.LoadConfig
	loadConf.RegisterFlags(cmd.Flags())

	// Register flags and set default values.
	conf.RegisterFlags(cmd.Flags())

	cmd.Run = func(cmd *cobra.Command, args []string) {
		if err := loadConf.Load(conf); err != nil {
			fmt.Fprintf(os.Stderr, "load config: %s\n", err.Error())
			os.Exit(1)
		}

		if err := conf.Validate(); err != nil {
			fmt.Fprintf(os.Stderr, "invalid config: %s\n", err.Error())
			os.Exit(1)
		}

		logger, err := log.NewLogger(conf.Log.Level, conf.Log.Subsystems)
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to setup logger: %s\n", err.Error())
			os.Exit(1)
		}

		if conf.Admin.Enabled() && conf.Admin.AdvertiseAddr == "" {
			advertiseAddr, err := admin.AdvertiseAddrFromBindAddr(conf.Admin.BindAddr)
			if err != nil {
				logger.Warn(
					"failed to get admin advertise address; using bind address",
					zap.Error(err),
				)
				advertiseAddr = conf.Admin.BindAddr
			}
			conf.Admin.AdvertiseAddr = advertiseAddr
		}

		if err := run(name, newApp(conf, logger), conf, logger); err != nil {
			logger.Error("failed to run node", zap.Error(err))
			os.Exit(1)
		}
	}

	return cmd
}

func run[S any](
	name string,
	app node.Application[S],
	conf *config.Config,
	logger log.Logger,
) error {
	logger.Info(
		"starting node",
		zap.String("app", name),
		zap.Any("conf", conf),
	)

	registry := prometheus.NewRegistry()

	n := node.New[S](
		app,
		os.Stdin,
		protocol.NewStreamTransport(os.Stdout),
		logger,
	)
	n.Metrics().Register(registry)
	n.Sender().Metrics().Register(registry)

	var gossipFactory *gossip.Factory
	if g, ok := app.(gossipApp); ok {
		gossipFactory = g.Gossip()
		gossipFactory.SetRegistry(registry)
	}

	var group rungroup.Group

	// Termination handler.
	signalCtx, signalCancel := context.WithCancel(context.Background())
	signalCh := make(chan os.Signal, 1)
	signal.Notify(signalCh, syscall.SIGINT, syscall.SIGTERM)
	group.Add(func() error {
		select {
		case sig := <-signalCh:
			logger.Info(
				"received shutdown signal",
				zap.String("signal", sig.String()),
			)
			return nil
		case <-signalCtx.Done():
			return nil
		}
	}, func(error) {
		signalCancel()
	})

	// Node.
	nodeCtx, nodeCancel := context.WithCancel(context.Background())
	group.Add(func() error {
		if err := n.Run(nodeCtx); err != nil {
			return fmt.Errorf("node: %w", err)
		}
		logger.Info("node stopped")
		return nil
	}, func(error) {
		nodeCancel()
	})

	// Admin server.
	if conf.Admin.Enabled() {
		adminLn, err := net.Listen("tcp", conf.Admin.BindAddr)
		if err != nil {
			return fmt.Errorf("admin listen: %s: %w", conf.Admin.BindAddr, err)
		}

		adminServer := admin.NewServer(registry, logger)
		adminServer.AddStatus("/node", node.NewStatusHandler(n))
		if gossipFactory != nil {
			adminServer.AddStatus("/gossip", gossip.NewStatus(gossipFactory))
		}

		logger.Info(
			"admin server listening",
			zap.String("advertise-addr", conf.Admin.AdvertiseAddr),
		)

		group.Add(func() error {
			if err := adminServer.Serve(adminLn); err != nil {
				return fmt.Errorf("admin server serve: %w", err)
			}
			return nil
		}, func(error) {
			shutdownCtx, cancel := context.WithTimeout(
				context.Background(),
				adminShutdownTimeout,
			)
			defer cancel()

			if err := adminServer.Shutdown(shutdownCtx); err != nil {
				logger.Warn("failed to gracefully shutdown admin server", zap.Error(err))
			}

			logger.Info("admin server shut down")
		})
	}

	if err := group.Run(); err != nil {
		return err
	}

	logger.Info("shutdown complete")

	return nil
}
