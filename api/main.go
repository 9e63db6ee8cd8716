package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/DeafMist/waste-radar/internal/bootstrap"
	"github.com/DeafMist/waste-radar/internal/classifier"
	"github.com/DeafMist/waste-radar/internal/config"
	"github.com/DeafMist/waste-radar/internal/elasticsearch"
	"github.com/DeafMist/waste-radar/internal/logger"
	"github.com/DeafMist/waste-radar/internal/metrics"
)

func main() {
	log := logger.New("api")
	cfg, err := config.LoadAPI()
	if err != nil {
		log.Error("load config", slog.Any("err", err))
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	esClient, err := elasticsearch.New(cfg.ElasticsearchAddr, cfg.ElasticsearchIndex, log)
	if err != nil {
		log.Error("init elasticsearch", slog.Any("err", err))
		os.Exit(1)
	}

	cls, err := bootstrap.NewClassification(ctx, cfg.Classifier, log)
	if err != nil {
		log.Error("init classifier", slog.Any("err", err))
		os.Exit(1)
	}

	m := metrics.New()
	srv := &server{
		log:      log,
		cfg:      cfg,
		store:    esClient,
		enricher: classifier.NewEnricher(cls.Classifier, log, m),
		metrics:  m,
	}

	httpServer := &http.Server{
		Addr:              cfg.BindAddr,
		Handler:           newRouter(srv),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      30 * time.Second,
	}

	go func() {
		log.Info("api server starting", slog.String("addr", cfg.BindAddr), slog.String("strategy", cls.Classifier.Name()))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server stopped", slog.Any("err", err))
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	log.Info("shutdown signal received")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Error("server shutdown", slog.Any("err", err))
	}
}
