// Copyright (C) 2025, Gridmine Labs. All rights reserved.
// See the file LICENSE for licensing terms.

package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/gridmine/gridmine/pkg/bank"
	"github.com/gridmine/gridmine/pkg/config"
	"github.com/gridmine/gridmine/pkg/ledger"
	"github.com/gridmine/gridmine/pkg/log"
	"github.com/gridmine/gridmine/pkg/metric"
	"github.com/gridmine/gridmine/pkg/multicall"
	"github.com/gridmine/gridmine/pkg/sale"
	"github.com/gridmine/gridmine/pkg/server"
	"github.com/gridmine/gridmine/pkg/storage"
)

var (
	configFile = flag.String("config", "", "Path to YAML config file")
	bindAddr   = flag.String("bind-addr", "", "Listen address (overrides config)")
	dataDir    = flag.String("data-dir", "", "Data directory (overrides config)")
	logLevel   = flag.String("log-level", "", "Log level (overrides config)")

	// Version info
	Version   = "dev"
	GitCommit = "unknown"
)

func main() {
	flag.Parse()
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "minerd: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load(*configFile)
	if err != nil {
		return err
	}
	if *bindAddr != "" {
		cfg.BindAddr = *bindAddr
	}
	if *dataDir != "" {
		cfg.DataDir = *dataDir
	}
	if *logLevel != "" {
		cfg.LogLevel = *logLevel
	}

	logger := log.NewWithLevel(cfg.LogLevel)
	defer logger.Sync()
	logger.Info("starting minerd", "version", Version, "commit", GitCommit)

	metrics, err := metric.NewMetrics()
	if err != nil {
		return err
	}

	store, err := storage.New(cfg.DBBackend, filepath.Join(cfg.DataDir, "state"))
	if err != nil {
		return err
	}
	defer store.Close()

	eng := bank.NewEngine()
	start := time.Now()

	l, err := ledger.New(cfg.LedgerConfig(), eng, metrics, logger, start)
	if err != nil {
		return err
	}
	s, err := sale.New(cfg.SaleConfig(), eng, metrics, logger, start)
	if err != nil {
		return err
	}

	// Resume mid-round state from the last snapshot, if any.
	snap, err := store.LoadSnapshot()
	switch {
	case err == nil:
		if err := l.RestoreState(snap.Ledger); err != nil {
			logger.Warn("snapshot incompatible with configured capacity, starting fresh", "error", err.Error())
		} else {
			s.RestoreState(snap.Sale)
			eng.Restore(snap.Balances)
			logger.Info("state restored", "taken_at", snap.TakenAt.Format(time.RFC3339))
		}
	case errors.Is(err, storage.ErrNotFound):
		logger.Info("no snapshot found, starting fresh")
	default:
		return err
	}

	mc := multicall.New(l, s, eng)
	srv := server.New(cfg.BindAddr, mc, l, metrics, nil, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Periodic snapshots so a restart resumes mid-round.
	go func() {
		ticker := time.NewTicker(cfg.SnapshotEvery())
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				snapshot(store, l, s, eng, logger)
			}
		}
	}()

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown", "error", err.Error())
	}
	snapshot(store, l, s, eng, logger)
	return nil
}

func snapshot(store *storage.Store, l *ledger.Ledger, s *sale.Sale, eng *bank.Engine, logger log.Logger) {
	err := store.SaveSnapshot(storage.Snapshot{
		TakenAt:  time.Now(),
		Ledger:   l.State(),
		Sale:     s.State(),
		Balances: eng.Snapshot(),
	})
	if err != nil {
		logger.Error("snapshot failed", "error", err.Error())
	}
}
