// Command server runs the tideline broker: it loads configuration,
// opens the root System against a data directory, starts the TCP
// broker and the prometheus metrics endpoint, and shuts down cleanly on
// SIGINT/SIGTERM.
package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/tideline-io/tideline/internal/broker"
	"github.com/tideline-io/tideline/internal/config"
	"github.com/tideline-io/tideline/internal/logging"
	"github.com/tideline-io/tideline/internal/metrics"
	"github.com/tideline-io/tideline/internal/partition"
	"github.com/tideline-io/tideline/internal/storage"
	"github.com/tideline-io/tideline/internal/system"
)

func main() {
	configFile := os.Getenv("TIDELINE_CONFIG_FILE")
	if len(os.Args) > 1 {
		configFile = os.Args[1]
	}

	cfg, err := config.Load(configFile)
	if err != nil {
		log.Fatalf("loading config: %v", err)
	}

	logger, err := logging.New(cfg.LogLevel, cfg.LogDevelopment)
	if err != nil {
		log.Fatalf("building logger: %v", err)
	}
	defer logger.Sync()

	logger.Info("starting tideline broker",
		zap.String("listen_addr", cfg.ListenAddr),
		zap.String("data_dir", cfg.DataDir),
		zap.String("metrics_addr", cfg.MetricsAddr),
	)

	strg := storage.NewFileSegmentStorage()
	sys := system.New(cfg.DataDir, strg, nil, nil)

	cleaner := partition.NewRetentionCleaner(time.Duration(cfg.Partition.RetentionCheckIntervalMs) * time.Millisecond)
	sys.SetRetentionRegistrar(cleaner)
	cleaner.Start()
	defer cleaner.Stop()

	reg := metrics.New()
	go reportCounters(sys, reg)

	metricsServer := &http.Server{Addr: cfg.MetricsAddr, Handler: reg.Handler()}
	go func() {
		if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("metrics server failed", zap.Error(err))
		}
	}()

	brokerCfg := broker.Config{
		ListenAddr:      cfg.ListenAddr,
		LegacyUDPAddr:   cfg.LegacyUDPAddr,
		BaseDir:         cfg.DataDir,
		PartitionConfig: cfg.Partition,
	}
	brk := broker.New(brokerCfg, sys, reg, logger)

	go func() {
		if err := brk.Start(); err != nil {
			logger.Fatal("broker failed to start", zap.Error(err))
		}
	}()

	go func() {
		if err := brk.StartUDP(brokerCfg.LegacyUDPAddr); err != nil {
			logger.Error("legacy udp listener failed", zap.Error(err))
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	logger.Info("shutting down")
	brk.Stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := metricsServer.Shutdown(shutdownCtx); err != nil {
		logger.Warn("metrics server shutdown error", zap.Error(err))
	}

	fmt.Println("tideline broker stopped")
}

func reportCounters(sys *system.System, reg *metrics.Registry) {
	ticker := time.NewTicker(10 * time.Second)
	defer ticker.Stop()
	for range ticker.C {
		reg.ObserveSnapshot(sys.Snapshot())
	}
}
