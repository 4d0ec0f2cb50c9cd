package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"migitrader/internal/adapters/config"
	"migitrader/internal/adapters/errors/noop"
	"migitrader/internal/adapters/errors/sentry"
	"migitrader/internal/adapters/kafka"
	"migitrader/internal/adapters/nse"
	redisadapter "migitrader/internal/adapters/redis"
	"migitrader/internal/api"
	"migitrader/internal/marketclock"
	"migitrader/internal/metrics"
	redisrepo "migitrader/internal/repository/redis"
	insightssvc "migitrader/internal/services/insights"
	"migitrader/pkg/errors"
	"migitrader/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	if err := logger.Init(cfg.App.LogLevel, cfg.App.Env); err != nil {
		panic("failed to init logger: " + err.Error())
	}
	defer logger.Sync()

	log := logger.Get()
	log.Infof("Starting %s in %s mode", cfg.App.Name, cfg.App.Env)

	errorTracker := initErrorTracker(cfg, log)
	logger.SetErrorTracker(errorTracker)

	metrics.Register()

	clock, err := marketclock.New()
	if err != nil {
		log.Fatalf("Failed to initialize market clock: %v", err)
	}

	// Connection is lazy; first cache operation establishes it
	redisClient := redisadapter.NewClient(cfg.Redis)
	defer redisClient.Close()

	cache := redisrepo.NewInsightsRepository(redisClient, clock, cfg.Cache.Namespace)
	nseClient := nse.NewClient(cfg.NSE)

	var publisher insightssvc.EventPublisher
	if len(cfg.Kafka.Brokers) > 0 {
		producer := kafka.NewProducer(kafka.ProducerConfig{Brokers: cfg.Kafka.Brokers})
		defer producer.Close()
		publisher = producer
		log.Infow("Event publishing enabled", "brokers", cfg.Kafka.Brokers)
	} else {
		log.Info("Event publishing disabled (no brokers configured)")
	}

	service := insightssvc.NewService(cache, nseClient, nseClient, publisher, clock, cfg.Cache.TopPicks)

	server := api.New(cfg.HTTP.Port, service, redisClient)

	go func() {
		if err := server.Start(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("HTTP server failed: %v", err)
		}
	}()

	log.Info("System initialized successfully")

	waitForShutdown(server, errorTracker, log)
}

// initErrorTracker initializes error tracking (Sentry or no-op)
func initErrorTracker(cfg *config.Config, log *logger.Logger) errors.Tracker {
	if !cfg.ErrorTracking.Enabled || cfg.ErrorTracking.SentryDSN == "" {
		log.Info("Error tracking disabled")
		return noop.New()
	}

	tracker, err := sentry.New(cfg.ErrorTracking.SentryDSN, cfg.ErrorTracking.Environment)
	if err != nil {
		log.Warnf("Failed to initialize Sentry: %v", err)
		return noop.New()
	}

	log.Info("Error tracking initialized (Sentry)")
	return tracker
}

func waitForShutdown(server *api.Server, errorTracker errors.Tracker, log *logger.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh

	log.Infof("Received signal %s, shutting down...", sig)

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Warnf("HTTP server shutdown: %v", err)
	}
	_ = errorTracker.Flush(ctx)

	log.Info("Shutdown complete")
}
