package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/wolfman30/homecare-booking/internal/api/router"
	"github.com/wolfman30/homecare-booking/internal/app/bootstrap"
	"github.com/wolfman30/homecare-booking/internal/backend"
	"github.com/wolfman30/homecare-booking/internal/booking"
	appconfig "github.com/wolfman30/homecare-booking/internal/config"
	httpmiddleware "github.com/wolfman30/homecare-booking/internal/http/middleware"
	"github.com/wolfman30/homecare-booking/internal/identity"
	"github.com/wolfman30/homecare-booking/internal/observability/metrics"
	"github.com/wolfman30/homecare-booking/internal/query"
	"github.com/wolfman30/homecare-booking/internal/web"
	"github.com/wolfman30/homecare-booking/pkg/logging"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	// Load configuration
	cfg := appconfig.Load()

	// Initialize logger
	logger := logging.NewWithOptions(logging.Options{Level: cfg.LogLevel, Format: cfg.LogFormat})
	logger.Info("starting homecare booking site",
		"env", cfg.Env,
		"port", cfg.Port,
		"backend_url", cfg.BackendURL,
	)

	redisClient := bootstrap.BuildRedisClient(context.Background(), cfg, logger, true)
	if redisClient != nil {
		defer redisClient.Close()
	}

	handler, err := buildHandler(cfg, redisClient, logger)
	if err != nil {
		logger.Error("failed to build site", "error", err)
		os.Exit(1)
	}

	// Create HTTP server
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		logger.Info("server listening", "addr", srv.Addr, "public_url", cfg.PublicBaseURL)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}

	logger.Info("server stopped")
	fmt.Println("Server exited gracefully")
}

// setupMetrics creates the registry shared by every collector and the
// handler that exposes it.
func setupMetrics() (*prometheus.Registry, http.Handler) {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg, promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
}

// buildHandler wires the site: backend client, query cache, booking
// workflow, identity sessions and the router.
func buildHandler(cfg *appconfig.Config, redisClient *redis.Client, logger *logging.Logger) (http.Handler, error) {
	reg, metricsHandler := setupMetrics()

	client := backend.NewClient(cfg.BackendURL, cfg.BackendTimeout, metrics.NewBackendMetrics(reg), logger)
	cache := query.NewCache(bootstrap.BuildQueryStore(cfg, redisClient, logger), metrics.NewQueryMetrics(reg), logger)
	queries := query.NewQueries(client, cache, logger)
	workflow := booking.NewWorkflow(queries, cfg.ServiceCity, metrics.NewBookingMetrics(reg), logger)

	manager := identity.NewManager(identity.Config{
		ProviderURL:   cfg.IdentityProviderURL,
		ClientID:      cfg.IdentityClientID,
		PublicBaseURL: cfg.PublicBaseURL,
		CookieName:    cfg.SessionCookieName,
		CookieTTL:     cfg.SessionTTL,
		SecureCookie:  !cfg.IsDevelopment(),
	}, bootstrap.BuildSessionStore(cfg, redisClient, logger), bootstrap.BuildVerifier(cfg, logger), logger)

	deps := web.Deps{Queries: queries, Workflow: workflow, Identity: manager, Logger: logger}
	site, err := web.NewSite(deps)
	if err != nil {
		return nil, err
	}

	var limiter *httpmiddleware.RateLimiter
	if cfg.BookingRateLimitRPS > 0 {
		limiter = httpmiddleware.NewRateLimiter(cfg.BookingRateLimitRPS, cfg.BookingRateLimitBurst)
	}

	return router.New(&router.Config{
		Logger:             logger,
		Site:               site,
		API:                web.NewAPI(deps),
		Identity:           manager,
		MetricsHandler:     metricsHandler,
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
		BookingLimiter:     limiter,
	}), nil
}
