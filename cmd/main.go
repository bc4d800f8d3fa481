package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"hermes/internal/adapters/ai"
	"hermes/internal/adapters/config"
	"hermes/internal/adapters/errors/noop"
	"hermes/internal/adapters/errors/sentry"
	"hermes/internal/adapters/redis"
	"hermes/internal/adapters/telegram"
	"hermes/internal/adapters/tradingview"
	"hermes/internal/agents"
	"hermes/internal/api"
	"hermes/internal/api/health"
	"hermes/internal/metrics"
	"hermes/internal/services/email"
	"hermes/internal/services/market_data"
	"hermes/internal/tools"
	markettools "hermes/internal/tools/market"
	"hermes/internal/tools/shared"
	"hermes/pkg/errors"
	"hermes/pkg/logger"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	// Initialize logger
	if err := logger.Init(cfg.App.LogLevel, cfg.App.Env); err != nil {
		panic("failed to init logger: " + err.Error())
	}
	defer logger.Sync()

	log := logger.Get()
	log.Infof("Starting %s in %s mode", cfg.App.Name, cfg.App.Env)

	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	// Initialize error tracker
	errorTracker := initErrorTracker(cfg, log)
	logger.SetErrorTracker(errorTracker)

	// Register Prometheus metrics
	metrics.Init()

	// Optional Redis scan cache
	healthChecks := map[string]health.Checker{}
	var scanCache tradingview.Cache
	if cfg.Redis.Enabled() {
		redisClient, err := redis.NewClient(cfg.Redis)
		if err != nil {
			log.Fatalf("Failed to connect to Redis: %v", err)
		}
		defer func() { _ = redisClient.Close() }()
		scanCache = redisClient
		healthChecks["redis"] = redisClient
		log.Info("Redis scan cache enabled")
	} else {
		log.Info("Redis not configured, scan caching disabled")
	}

	// Market data gateway
	scanner := tradingview.NewClient(tradingview.Config{
		BaseURL:   cfg.TradingView.BaseURL,
		Market:    cfg.TradingView.Market,
		Timeout:   cfg.TradingView.Timeout,
		ReqPerMin: cfg.TradingView.ReqPerMin,
		Cache:     scanCache,
		CacheTTL:  cfg.TradingView.CacheTTL,
	}, log)
	gateway := market_data.NewService(scanner, log)

	// Tools
	registry := tools.NewRegistry()
	markettools.RegisterAll(registry, shared.Deps{Market: gateway, Log: log})

	// Agent loop
	provider := ai.NewOpenAIProvider(ai.OpenAIConfig{
		APIKey:    cfg.AI.OpenAIKey,
		BaseURL:   cfg.AI.BaseURL,
		Timeout:   cfg.AI.Timeout,
		ReqPerMin: cfg.AI.ReqPerMin,
	})
	orchestrator := agents.NewOrchestrator(provider, registry, cfg.Agent, cfg.AI, log)

	// Email delivery
	mailer := email.NewService(cfg.Email, log)

	// HTTP API
	handlers := api.NewHandlers(orchestrator, gateway, mailer, log)

	// Optional Telegram signal push
	if cfg.Telegram.Enabled() {
		notifier, err := telegram.NewNotifier(cfg.Telegram, log)
		if err != nil {
			log.Warnf("Failed to initialize Telegram notifier: %v", err)
		} else {
			handlers.SetNotifier(notifier)
			log.Info("Telegram signal push enabled")
		}
	}
	healthHandler := health.New(log, healthChecks, cfg.App.Name, cfg.App.Version)
	server := api.NewServer(api.ServerConfig{
		Port:         cfg.Server.Port,
		ServiceName:  cfg.App.Name,
		Version:      cfg.App.Version,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}, handlers, healthHandler, log)

	go func() {
		if err := server.Start(); err != nil {
			log.Fatalf("HTTP server error: %v", err)
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

// waitForShutdown waits for a shutdown signal and stops components gracefully
func waitForShutdown(server *api.Server, errorTracker errors.Tracker, log *logger.Logger) {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	<-quit
	log.Info("Shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Warnf("HTTP server shutdown: %v", err)
	}

	if errorTracker != nil {
		if err := errorTracker.Flush(shutdownCtx); err != nil {
			log.Warnf("Failed to flush error tracker: %v", err)
		}
	}

	log.Info("Shutdown complete")
}
