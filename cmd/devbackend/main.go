package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"

	"github.com/wolfman30/homecare-booking/internal/demo"
	httpmiddleware "github.com/wolfman30/homecare-booking/internal/http/middleware"
	"github.com/wolfman30/homecare-booking/internal/identity"
	"github.com/wolfman30/homecare-booking/pkg/logging"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	logger := logging.NewWithOptions(logging.Options{
		Level:  getEnv("LOG_LEVEL", "debug"),
		Format: getEnv("LOG_FORMAT", "text"),
	})

	port := getEnv("DEV_BACKEND_PORT", "8090")
	secret := getEnv("IDENTITY_TOKEN_SECRET", demo.DefaultTokenSecret)

	srv := &http.Server{
		Addr:         ":" + port,
		Handler:      newHandler(secret, logger),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		logger.Info("dev backend listening", "addr", srv.Addr, "rpc", "/rpc/{method}", "identity", "/identity/authorize")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
	}
}

// newHandler serves a seeded stand-in backend next to the identity provider
// that issues the tokens it accepts.
func newHandler(secret string, logger *logging.Logger) http.Handler {
	stand := demo.NewBackend(identity.NewHMACVerifier(secret, demo.DefaultIssuer, ""), logger)
	stand.Seed()
	idp := demo.NewIdentityProvider(secret, logger)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(httpmiddleware.RequestLogger(logger))
	r.Use(middleware.Recoverer)
	r.Mount("/", stand.Routes())
	r.Mount("/identity", idp.Routes())
	return r
}

func getEnv(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}
