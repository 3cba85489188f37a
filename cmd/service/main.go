// Copyright 2025 Certen Protocol
package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	dbm "github.com/cometbft/cometbft-db"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/certen/eth-lc-coprocessor/pkg/beacon"
	"github.com/certen/eth-lc-coprocessor/pkg/config"
	"github.com/certen/eth-lc-coprocessor/pkg/domain"
	"github.com/certen/eth-lc-coprocessor/pkg/history"
	"github.com/certen/eth-lc-coprocessor/pkg/kvdb"
	"github.com/certen/eth-lc-coprocessor/pkg/prover"
	"github.com/certen/eth-lc-coprocessor/pkg/service"
)

func main() {
	var (
		proverURL      = flag.String("prover", "", "Remote prover websocket URL (overrides PROVER_URL)")
		coprocessorURL = flag.String("coprocessor", "", "Coprocessor host URL (overrides COPROCESSOR_URL)")
		domainName     = flag.String("domain", "", "Domain name this service advances (overrides DOMAIN_NAME)")
		interval       = flag.Duration("interval", 0, "Polling interval (overrides SERVICE_INTERVAL)")
		overlayPath    = flag.String("config", "", "Optional YAML config overlay")
	)
	flag.Parse()

	cfg, err := config.LoadService(*overlayPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	if *proverURL != "" {
		cfg.ProverURL = *proverURL
	}
	if *coprocessorURL != "" {
		cfg.CoprocessorURL = *coprocessorURL
	}
	if *domainName != "" {
		cfg.DomainName = *domainName
	}
	if *interval != 0 {
		cfg.Interval = *interval
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("invalid configuration: %v", err)
	}

	logger := log.New(os.Stdout, "[service] ", log.LstdFlags|log.Lmicroseconds)
	logger.Printf("starting domain %q (coprocessor contract %s)", cfg.DomainName, cfg.CoprocessorURL)

	db, err := dbm.NewGoLevelDB("eth-lc-history", cfg.LocalStatePath)
	if err != nil {
		log.Fatalf("open local state db: %v", err)
	}
	kv := kvdb.NewKVAdapter(db)
	controller := domain.NewController(cfg.DomainName, kv)

	beaconClient := beacon.NewClient(cfg.BeaconBaseURL, cfg.AnkrAPIKey)

	proverClient, closeProver, err := dialProver(cfg)
	if err != nil {
		log.Fatalf("initialize prover: %v", err)
	}
	if closeProver != nil {
		defer closeProver()
	}

	h := history.NewWithLimits(cfg.HistoryCapacity, cfg.HistoryMinimum)

	reg := prometheus.NewRegistry()
	metrics := service.NewMetrics(reg)

	loop := service.New(service.Config{
		Beacon:     beaconClient,
		Prover:     proverClient,
		History:    h,
		Controller: controller,
		Interval:   cfg.Interval,
		Logger:     logger,
		Metrics:    metrics,
	})

	server := service.NewServer(loop, reg)
	httpServer := &http.Server{
		Addr:    cfg.ListenAddr,
		Handler: server,
	}

	ctx, cancel := context.WithCancel(context.Background())

	go func() {
		if err := loop.Run(ctx); err != nil && err != context.Canceled {
			logger.Printf("service loop stopped: %v", err)
		}
	}()

	go func() {
		logger.Printf("listening on %s (/healthz, /metrics)", cfg.ListenAddr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("http server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Println("shutting down")
	cancel()
	loop.Stop()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Printf("http server shutdown error: %v", err)
	}

	logger.Println("stopped")
}

// dialProver builds the service's prover client: a remote websocket client
// when cfg.ProverURL points at one, otherwise an in-process LocalClient
// (compiling both circuits on Initialize, which can take a while but avoids
// standing up a separate prover process for a single-domain deployment).
func dialProver(cfg *config.ServiceConfig) (service.ProverClient, func(), error) {
	if cfg.ProverURL == "" {
		local := prover.NewLocalClient()
		if err := local.Initialize(); err != nil {
			return nil, nil, err
		}
		return local, nil, nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	client, err := prover.Dial(ctx, cfg.ProverURL)
	if err != nil {
		return nil, nil, err
	}
	return client, func() { _ = client.Close() }, nil
}
