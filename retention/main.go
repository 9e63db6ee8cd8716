package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/DeafMist/waste-radar/internal/config"
	"github.com/DeafMist/waste-radar/internal/elasticsearch"
	"github.com/DeafMist/waste-radar/internal/logger"
)

type expirer interface {
	DeleteOlderThan(ctx context.Context, maxAge time.Duration, batchSize int) (int64, error)
}

func main() {
	log := logger.New("retention")
	cfg, err := config.LoadRetention()
	if err != nil {
		log.Error("load config", slog.Any("err", err))
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	esClient, err := elasticsearch.Connect(ctx, cfg.ElasticsearchAddr, cfg.ElasticsearchIndex, log, elasticsearch.DefaultConnectOptions())
	if err != nil {
		if ctx.Err() != nil {
			log.Info("shutdown signal received during startup")
			return
		}
		log.Error("failed to connect to elasticsearch after retries", slog.Any("err", err))
		os.Exit(1)
	}

	ticker := time.NewTicker(cfg.Interval)
	defer ticker.Stop()

	log.Info("retention job running",
		slog.String("index", cfg.ElasticsearchIndex),
		slog.Duration("interval", cfg.Interval),
		slog.Duration("max_age", cfg.MaxAge),
	)

	// first pass right away; failures only log and wait for the next tick
	runOnce(ctx, log, esClient, cfg)

	for {
		select {
		case <-ctx.Done():
			log.Info("shutdown signal received")
			return
		case <-ticker.C:
			runOnce(ctx, log, esClient, cfg)
		}
	}
}

func runOnce(ctx context.Context, log *slog.Logger, store expirer, cfg *config.Retention) int64 {
	subCtx, cancel := context.WithTimeout(ctx, 2*time.Minute)
	defer cancel()

	deleted, err := store.DeleteOlderThan(subCtx, cfg.MaxAge, cfg.BatchSize)
	if err != nil {
		log.Warn("retention run failed (will retry on next interval)", slog.Any("err", err))
		return 0
	}

	if deleted > 0 {
		log.Info("retention run completed", slog.Int64("deleted", deleted))
	} else {
		log.Debug("retention run completed, no old posts found")
	}
	return deleted
}
