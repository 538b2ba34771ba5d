package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/trivia-arena/internal/config"
	"github.com/trivia-arena/internal/content"
	"github.com/trivia-arena/internal/handler"
	"github.com/trivia-arena/internal/kafka"
	"github.com/trivia-arena/internal/match"
	"github.com/trivia-arena/internal/postgres"
	"github.com/trivia-arena/internal/profile"
	"github.com/trivia-arena/internal/queue"
	"github.com/trivia-arena/internal/rank"
	"github.com/trivia-arena/internal/reward"
	"github.com/trivia-arena/internal/store"
	"github.com/trivia-arena/internal/worker"
)

func main() {
	// Parse command line flags
	configPath := flag.String("config", "config.yaml", "Path to configuration file")
	flag.Parse()

	// Setup structured logging
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Warn("failed to load config file, using defaults", "error", err)
		cfg = config.DefaultConfig()
	}

	// Create context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize the Redis actor store
	logger.Info("connecting to Redis", "addr", cfg.Redis.Addr)
	actorStore, err := store.NewRedisStore(&cfg.Redis, logger)
	if err != nil {
		logger.Error("failed to connect to Redis", "error", err)
		os.Exit(1)
	}
	defer actorStore.Close()
	logger.Info("connected to Redis")

	// Initialize PostgreSQL
	logger.Info("connecting to PostgreSQL", "host", cfg.Postgres.Host, "database", cfg.Postgres.Database)
	postgresRepo, err := postgres.NewRepository(&cfg.Postgres, logger)
	if err != nil {
		logger.Error("failed to connect to PostgreSQL", "error", err)
		os.Exit(1)
	}
	defer postgresRepo.Close()
	logger.Info("connected to PostgreSQL")

	// Run database migrations
	if err := postgresRepo.RunMigrations(ctx); err != nil {
		logger.Error("failed to run migrations", "error", err)
		os.Exit(1)
	}

	// Initialize services
	clock := clockwork.NewRealClock()
	boards := store.NewRedisBoards(actorStore)
	profiles := profile.NewStore(actorStore, logger)
	catalog := content.NewResolver(postgresRepo, logger)
	ranks := rank.NewResolver(profiles, catalog, logger)

	matchService := match.NewService(actorStore, profiles, catalog, ranks, &cfg.Match, clock, logger)
	queueService := queue.NewService(actorStore, matchService, &cfg.Queue, clock, logger)

	// Initialize the Kafka settlement pipeline. Both ends are optional:
	// the service runs without them, only the analytics ledger goes dark.
	var producer *kafka.Producer
	var consumer *kafka.Consumer
	if cfg.Kafka.Enabled {
		logger.Info("initializing Kafka pipeline",
			"brokers", cfg.Kafka.Brokers,
			"topic", cfg.Kafka.Topic,
		)
		producer, err = kafka.NewProducer(&cfg.Kafka, logger)
		if err != nil {
			logger.Warn("failed to create Kafka producer, continuing without it", "error", err)
			producer = nil
		}

		consumer, err = kafka.NewConsumer(&cfg.Kafka, postgresRepo, logger)
		if err != nil {
			logger.Warn("failed to create Kafka consumer, continuing without it", "error", err)
			consumer = nil
		} else if err := consumer.Start(); err != nil {
			logger.Warn("failed to start Kafka consumer, continuing without it", "error", err)
			consumer = nil
		}
	}

	var publisher reward.Publisher
	if producer != nil {
		publisher = producer
	}
	rewardService := reward.NewService(actorStore, profiles, matchService, boards, publisher, clock, logger)

	// Initialize the sweep worker
	sweepWorker := worker.NewSweepWorker(actorStore, matchService, postgresRepo, &cfg.Sweep, logger)
	if cfg.Sweep.Enabled {
		if err := sweepWorker.Start(ctx); err != nil {
			logger.Error("failed to start sweep worker", "error", err)
			os.Exit(1)
		}
	}

	// Initialize HTTP handler
	httpHandler := handler.NewHandler(queueService, matchService, rewardService, profiles, boards, logger)

	// Create HTTP server
	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      httpHandler.Router(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// Start server in goroutine
	go func() {
		logger.Info("starting HTTP server", "port", cfg.Server.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("HTTP server error", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")

	// Create shutdown context with timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	// Stop Kafka pipeline
	if consumer != nil {
		if err := consumer.Stop(); err != nil {
			logger.Error("failed to stop Kafka consumer", "error", err)
		}
	}
	if producer != nil {
		if err := producer.Close(); err != nil {
			logger.Error("failed to close Kafka producer", "error", err)
		}
	}

	// Stop sweep worker
	if err := sweepWorker.Stop(); err != nil {
		logger.Error("failed to stop sweep worker", "error", err)
	}

	// Shutdown HTTP server
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("failed to shutdown server", "error", err)
	}

	logger.Info("server stopped")
}
