// Command indexer starts the on-chain event indexer: it loads
// configuration, dials the RPC read client and the Postgres entity-refresh
// service, builds the dispatch registry, and runs the checkpoint worker
// until an exit signal stops the checkpoint source and in-flight dispatch
// drains.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/sui-indexer/onchain-indexer/internal/checkpoint"
	"github.com/sui-indexer/onchain-indexer/internal/config"
	"github.com/sui-indexer/onchain-indexer/internal/logging"
	"github.com/sui-indexer/onchain-indexer/internal/reader"
	"github.com/sui-indexer/onchain-indexer/internal/registry"
	"github.com/sui-indexer/onchain-indexer/internal/rpc"
	"github.com/sui-indexer/onchain-indexer/internal/server"
	"github.com/sui-indexer/onchain-indexer/internal/store"
	"github.com/sui-indexer/onchain-indexer/internal/telemetry"
)

func main() {
	configPath := flag.String("config", "config.toml", "path to the indexer's TOML configuration file")
	flag.Parse()

	cfg, err := config.LoadFromFile(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	logger := logging.NewComponentLogger(cfg.ServiceName, cfg.ServiceVersion)
	logging.SetLevel(cfg.LogLevel)

	network, err := cfg.ActiveNetwork()
	if err != nil {
		logger.Fatal().Err(err).Msg("resolve active network")
	}

	logger.LogStartup(logging.StartupConfig{
		RunMode:               cfg.RunMode,
		RpcURL:                network.RpcURL,
		HealthPort:            cfg.HealthPort,
		OnchainIndexerEnabled: cfg.OnchainIndexerEnabled,
		ArbitrageEnabled:      cfg.ArbitrageEnabled,
		LiquidationEnabled:    cfg.LiquidationEnabled,
		DevMode:               cfg.Indexer.DevMode,
		StartCheckpointNumber: cfg.Indexer.StartCheckpointNumber,
		IndexerWorkerCount:    cfg.Indexer.IndexerWorkerCount,
	})

	if !cfg.OnchainIndexerEnabled {
		logger.Info().Msg("onchain indexer disabled by config, exiting")
		return
	}

	rpcClient := rpc.NewHTTPClient(network.RpcURL)
	defer rpcClient.Close()

	pgStore, err := store.NewPostgresStore(store.PostgresConfig{
		URL:             cfg.Database.URL,
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
	}, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("connect to database")
	}
	defer pgStore.Close()

	reg := registry.Build(rpcClient, pgStore, registry.Options{
		ArbitrageEnabled:   cfg.ArbitrageEnabled,
		LiquidationEnabled: cfg.LiquidationEnabled,
	})

	counters := telemetry.NewCounters()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	seed, err := pgStore.LatestMetric(ctx)
	if err != nil {
		logger.Fatal().Err(err).Msg("load latest metric")
	}
	if seed != nil {
		counters.SeedFrom(seed)
	} else {
		counters.SeedFrom(&store.Metric{Watermark: cfg.Indexer.StartCheckpointNumber})
	}

	alert := &telemetry.AlertSchedule{}
	snapshotter := telemetry.NewSnapshotter(pgStore, counters)

	worker := checkpoint.NewWorker(reg, counters, alert, snapshotter, logger, checkpoint.Config{
		DevMode:               cfg.Indexer.DevMode,
		StartCheckpointNumber: cfg.Indexer.StartCheckpointNumber,
		LagThresholdMs:        cfg.Arbitrage.IndexerLaggingMsThreshold,
	})

	healthSrv := server.NewHealthServer(logger, cfg.HealthPort, cfg.ServiceVersion, counters.Watermark)
	healthSrv.RegisterComponent("database")
	healthSrv.RegisterComponent("rpc")
	healthSrv.UpdateComponentHealth("database", true, nil, nil)
	healthSrv.UpdateComponentHealth("rpc", true, nil, nil)
	if err := healthSrv.Start(); err != nil {
		logger.Fatal().Err(err).Msg("start health server")
	}
	defer healthSrv.Stop()

	// The concrete checkpoint reader ships separately; an empty source lets
	// the process come up, serve health/metrics, and shut down cleanly when
	// no reader implementation has been wired in yet.
	source := reader.NewSliceSource(nil)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		logger.Info().Msg("shutdown signal received, draining in-flight dispatch")
		cancel()
	}()

	checkpoints, errs := source.Checkpoints(ctx)
	if err := worker.Run(ctx, checkpoints, errs); err != nil && ctx.Err() == nil {
		logger.Error().Err(err).Msg("checkpoint worker stopped")
		os.Exit(1)
	}

	logger.Info().Msg("onchain indexer stopped")
}
