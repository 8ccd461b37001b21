// Copyright (C) 2024, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/ava-labs/avalanchego/utils/logging"
	"github.com/ava-labs/avalanchego/utils/wrappers"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/ava-labs/dutchvm/archive"
	"github.com/ava-labs/dutchvm/clock"
	"github.com/ava-labs/dutchvm/config"
	"github.com/ava-labs/dutchvm/consts"
	"github.com/ava-labs/dutchvm/controller"
	"github.com/ava-labs/dutchvm/genesis"
	"github.com/ava-labs/dutchvm/pebble"
	"github.com/ava-labs/dutchvm/rpc"
	"github.com/ava-labs/dutchvm/server"
	"github.com/ava-labs/dutchvm/stream"
	"github.com/ava-labs/dutchvm/trace"
	"github.com/ava-labs/dutchvm/utils"

	ametrics "github.com/ava-labs/avalanchego/api/metrics"
)

const metricsEndpoint = "/metrics"

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run an auction node",
	RunE: func(cmd *cobra.Command, _ []string) error {
		flags := cmd.Flags()
		configPath, err := flags.GetString("config")
		if err != nil {
			return err
		}
		genesisPath, err := flags.GetString("genesis")
		if err != nil {
			return err
		}
		dataDir, err := flags.GetString("data-dir")
		if err != nil {
			return err
		}
		cfg, err := config.Load(configPath)
		if err != nil {
			return err
		}
		var g *genesis.Genesis
		if genesisPath != "" {
			g, err = genesis.Load(genesisPath)
			if err != nil {
				return err
			}
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		return run(ctx, cfg, g, dataDir)
	},
}

func run(ctx context.Context, cfg *config.Config, g *genesis.Genesis, dataDir string) error {
	logDir, err := utils.InitSubDirectory(dataDir, cfg.LogDir)
	if err != nil {
		return err
	}
	logConfig := logging.Config{
		RotatingWriterConfig: logging.RotatingWriterConfig{
			MaxSize:   8, // megabytes
			MaxFiles:  5,
			MaxAge:    7, // days
			Directory: logDir,
			Compress:  true,
		},
		LogLevel:     cfg.GetLogLevel(),
		DisplayLevel: cfg.GetLogDisplayLevel(),
		LogFormat:    logging.Colors,
	}
	logs := newLogFactory(logConfig)
	defer logs.Close()
	log, err := logs.Make(consts.Name)
	if err != nil {
		return err
	}
	log.Info("loaded config", zap.Any("config", cfg))

	tracer, err := trace.New(cfg.GetTraceConfig())
	if err != nil {
		return err
	}
	defer func() {
		if err := tracer.Close(); err != nil {
			log.Warn("unable to close tracer", zap.Error(err))
		}
	}()

	var (
		gatherer = ametrics.NewPrefixGatherer()
		errs     = wrappers.Errs{}
	)
	dbDir, err := utils.InitSubDirectory(dataDir, cfg.DatabaseDir)
	if err != nil {
		return err
	}
	stateDir, err := utils.InitSubDirectory(dbDir, "state")
	if err != nil {
		return err
	}
	db, dbRegistry, err := pebble.New(stateDir, cfg.Pebble)
	if err != nil {
		return err
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Warn("unable to close database", zap.Error(err))
		}
	}()
	errs.Add(gatherer.Register("state", dbRegistry))

	streamConfig := stream.NewDefaultConfig()
	streamConfig.ReadBufferSize = cfg.StreamReadBufferSize
	streamConfig.WriteBufferSize = cfg.StreamWriteBufferSize
	streamConfig.MaxPendingMessages = cfg.StreamBacklogSize
	streamServer := stream.New(log, streamConfig)

	opts := []controller.Option{
		controller.WithReplayWindow(cfg.ReplayWindow),
	}
	if cfg.Archive.Enabled {
		archiveDir, err := utils.InitSubDirectory(dbDir, "archive")
		if err != nil {
			return err
		}
		archiveDB, archiveRegistry, err := pebble.New(archiveDir, cfg.Pebble)
		if err != nil {
			return err
		}
		errs.Add(gatherer.Register("archive", archiveRegistry))
		// Closing the controller closes the archive and its database.
		a, err := archive.New(ctx, archiveDB, cfg.Archive)
		if err != nil {
			_ = archiveDB.Close()
			return err
		}
		opts = append(opts, controller.WithArchive(a))
	}
	opts = append(opts, controller.WithSubscriptions(streamServer))

	controllerRegistry := prometheus.NewRegistry()
	errs.Add(gatherer.Register(consts.Name, controllerRegistry))
	if errs.Errored() {
		return errs.Err
	}
	c, err := controller.New(ctx, log, tracer, clock.NewSystem(), controllerRegistry, db, g, opts...)
	if err != nil {
		return err
	}
	defer func() {
		if err := c.Close(); err != nil {
			log.Warn("unable to close subscriptions", zap.Error(err))
		}
	}()

	jsonRPCHandler, err := rpc.NewJSONRPCHandler(rpc.Name, rpc.NewJSONRPCServer(c))
	if err != nil {
		return err
	}
	listener, err := net.Listen("tcp", cfg.HTTPAddress)
	if err != nil {
		return err
	}
	srv := server.New(
		log,
		listener,
		server.HTTPConfig{
			ReadTimeout:       cfg.ReadTimeout,
			ReadHeaderTimeout: cfg.ReadHeaderTimeout,
			WriteTimeout:      cfg.WriteTimeout,
			IdleTimeout:       cfg.IdleTimeout,
		},
		cfg.AllowedOrigins,
		cfg.AllowedHosts,
		cfg.ShutdownTimeout,
	)
	errs.Add(
		srv.AddRoute(jsonRPCHandler, rpc.JSONRPCEndpoint),
		srv.AddRoute(streamServer, stream.Endpoint),
		srv.AddRoute(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}), metricsEndpoint),
	)
	if errs.Errored() {
		_ = listener.Close()
		return errs.Err
	}

	eg, ctx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		log.Info("serving", zap.Stringer("address", listener.Addr()))
		if err := srv.Dispatch(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	eg.Go(func() error {
		<-ctx.Done()
		log.Info("shutting down")
		return srv.Shutdown()
	})
	return eg.Wait()
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().String("config", "", "Node config file (JSON or YAML)")
	runCmd.Flags().String("genesis", "", "Genesis file used when the database holds no auction")
	runCmd.Flags().String("data-dir", ".dutchvm", "Directory for databases and logs")
}
