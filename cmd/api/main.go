package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/healthsync/healthsync-api/internal/api/router"
	"github.com/healthsync/healthsync-api/internal/app/bootstrap"
	appconfig "github.com/healthsync/healthsync-api/internal/config"
	"github.com/healthsync/healthsync-api/internal/http/handlers"
	httpmiddleware "github.com/healthsync/healthsync-api/internal/http/middleware"
	"github.com/healthsync/healthsync-api/internal/observability/metrics"
	"github.com/healthsync/healthsync-api/internal/schedule"
	"github.com/healthsync/healthsync-api/pkg/logging"
)

func main() {
	cfg := appconfig.Load()
	logger := logging.NewWithFormat(cfg.LogLevel, cfg.LogFormat, os.Stdout)
	logger.Info("starting healthsync API server",
		"env", cfg.Env,
		"port", cfg.Port,
		"llm_provider", cfg.LLMProvider,
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("server exited with error", "error", err)
		os.Exit(1)
	}
	logger.Info("server stopped")
}

func run(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger) error {
	pool, err := bootstrap.BuildPostgresPool(ctx, cfg)
	if err != nil {
		return err
	}
	defer pool.Close()

	llmStack, err := bootstrap.BuildLLMClient(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := llmStack.Close(); err != nil {
			logger.Warn("close llm clients", "error", err)
		}
	}()

	redisClient := bootstrap.BuildRedisClient(ctx, cfg, logger, true)
	if redisClient != nil {
		defer func() { _ = redisClient.Close() }()
	}

	registry, metricsHandler := setupMetrics()
	agentMetrics := metrics.NewAgentMetrics(registry)

	assistant, err := bootstrap.BuildAgent(cfg, schedule.NewPostgresStore(pool), llmStack.Client, redisClient, agentMetrics, logger)
	if err != nil {
		return fmt.Errorf("build agent: %w", err)
	}

	limiter := httpmiddleware.NewRateLimiter(cfg.ChatRateLimit, cfg.ChatRateBurst)
	go limiter.RunEviction(ctx, 5*time.Minute, 10*time.Minute)

	r := router.New(&router.Config{
		Logger:             logger,
		AgentHandler:       handlers.NewAgentHandler(assistant, logger),
		HealthHandler:      handlers.NewHealthHandler(healthChecks(pool.Ping, redisClient), registry, logger),
		MetricsHandler:     metricsHandler,
		JWTSecret:          cfg.JWTSecret,
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
		ChatLimiter:        limiter,
	})
	if cfg.JWTSecret == "" {
		logger.Warn("JWT_SECRET is empty; /chatbot will reject every request")
	}

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		// Router, department inference and general answers may each take a model call.
		WriteTimeout: 3*cfg.LLMTimeout + 15*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown: %w", err)
	}
	return nil
}

// setupMetrics builds a dedicated registry carrying the Go runtime collectors.
func setupMetrics() (*prometheus.Registry, http.Handler) {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return registry, promhttp.HandlerFor(registry, promhttp.HandlerOpts{Registry: registry})
}

func healthChecks(pingDB func(context.Context) error, redisClient *redis.Client) map[string]handlers.Check {
	checks := map[string]handlers.Check{
		"postgres": pingDB,
	}
	if redisClient != nil {
		checks["redis"] = func(ctx context.Context) error {
			return redisClient.Ping(ctx).Err()
		}
	}
	return checks
}
