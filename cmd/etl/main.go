package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
	"github.com/joho/godotenv"

	"github.com/couchcryptid/neo-risk-etl/internal/adapter/filestore"
	httpadapter "github.com/couchcryptid/neo-risk-etl/internal/adapter/http"
	kafkaadapter "github.com/couchcryptid/neo-risk-etl/internal/adapter/kafka"
	"github.com/couchcryptid/neo-risk-etl/internal/adapter/neows"
	"github.com/couchcryptid/neo-risk-etl/internal/adapter/pgstore"
	"github.com/couchcryptid/neo-risk-etl/internal/adapter/redisstore"
	"github.com/couchcryptid/neo-risk-etl/internal/adapter/storecache"
	"github.com/couchcryptid/neo-risk-etl/internal/config"
	"github.com/couchcryptid/neo-risk-etl/internal/observability"
	"github.com/couchcryptid/neo-risk-etl/internal/pipeline"
)

// artifactStore is what both the pipeline and the export endpoint need.
type artifactStore interface {
	pipeline.Store
	List(ctx context.Context) ([]string, error)
}

func main() {
	os.Exit(run())
}

func run() int {
	// A missing .env file is normal outside local development.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		return 1
	}

	logger := sharedobs.NewLogger(cfg.LogLevel, cfg.LogFormat)
	metrics := observability.NewMetrics()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, closeStore, err := openStore(ctx, cfg)
	if err != nil {
		logger.Error("failed to open artifact store", "backend", cfg.StorageBackend, "error", err)
		return 1
	}
	defer closeStore()
	if cfg.StoreCacheEntries > 0 {
		store = storecache.New(store, cfg.StoreCacheEntries)
	}
	logger.Info("artifact store ready", "backend", cfg.StorageBackend, "cache_entries", cfg.StoreCacheEntries)

	client := neows.NewClient(cfg.NASAAPIKey, cfg.NeoWsBaseURL, cfg.FeedTimeout, logger, metrics)
	fetcher := pipeline.NewFetcher(client, logger, metrics, pipeline.FetchOptions{
		ChunkDays:       cfg.ChunkDays,
		MaxAttempts:     cfg.FeedMaxAttempts,
		RetryBackoff:    cfg.FeedRetryBackoff,
		RequestInterval: cfg.FeedRequestInterval,
	})

	// Kafka sink is feature-flagged via KAFKA_ENABLED.
	var publisher pipeline.Publisher
	if cfg.KafkaEnabled {
		pub := kafkaadapter.NewPublisher(cfg, logger)
		defer func() {
			if err := pub.Close(); err != nil {
				logger.Error("kafka publisher close error", "error", err)
			}
		}()
		publisher = pub
		logger.Info("kafka sink enabled", "brokers", cfg.KafkaBrokers, "topic", cfg.KafkaSinkTopic)
	}

	p := pipeline.New(fetcher, store, publisher, logger, metrics, pipeline.Options{
		Range:        cfg.Range,
		Scoring:      cfg.Scoring,
		ForceRefresh: cfg.ForceRefresh,
	})

	var srv *httpadapter.Server
	if cfg.Serve {
		srv = httpadapter.NewServer(cfg.HTTPAddr, p, store, logger)
		go func() {
			if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("http server error", "error", err)
				stop()
			}
		}()
	}

	code := 0
	if _, err := p.Run(ctx); err != nil {
		logger.Error("pipeline failed", "error", err)
		code = 1
	} else if srv != nil {
		<-ctx.Done()
	}

	logger.Info("shutting down")
	if srv != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("http server shutdown error", "error", err)
		}
	}

	logger.Info("shutdown complete")
	return code
}

func openStore(ctx context.Context, cfg *config.Config) (artifactStore, func(), error) {
	switch cfg.StorageBackend {
	case config.StoragePostgres:
		s, err := pgstore.New(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, nil, err
		}
		return s, func() { _ = s.Close() }, nil
	case config.StorageRedis:
		s, err := redisstore.New(ctx, redisstore.Options{
			Addr:      cfg.RedisAddr,
			Password:  cfg.RedisPassword,
			DB:        cfg.RedisDB,
			KeyPrefix: cfg.RedisKeyPrefix,
		})
		if err != nil {
			return nil, nil, err
		}
		return s, func() { _ = s.Close() }, nil
	}

	s, err := filestore.New(cfg.DataDir)
	if err != nil {
		return nil, nil, err
	}
	return s, func() {}, nil
}
