package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/urbanthread/loyalty/internal/config"
	"github.com/urbanthread/loyalty/internal/database"
	"github.com/urbanthread/loyalty/internal/handler"
	"github.com/urbanthread/loyalty/internal/service"
)

func main() {
	ctx := context.Background()

	// Load configuration from environment variables
	cfg, err := config.Load(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	// Configure zerolog
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	if level, err := zerolog.ParseLevel(cfg.App.LogLevel); err == nil {
		zerolog.SetGlobalLevel(level)
	}
	log.Logger = log.With().Str("service", "loyalty").Logger()

	log.Info().Str("environment", cfg.App.Environment).Msg("starting loyalty service")

	// Initialize database connections
	db, err := database.NewDB(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error().Err(err).Msg("error closing database connections")
		}
	}()

	// Create loyalty service with direct DB access
	loyaltyService := service.NewLoyaltyService(db.Postgres, cfg.Loyalty)

	// Create HTTP mux
	mux := http.NewServeMux()

	// Mount the API router
	mux.Handle("/api/", handler.NewRouter(loyaltyService, cfg))

	// Add health check endpoint
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		hostname, _ := os.Hostname()
		w.WriteHeader(http.StatusOK)
		response := fmt.Sprintf(`{"status":"ok","service":"loyalty","hostname":"%s"}`, hostname)
		w.Write([]byte(response))
	})

	// Add database health check endpoint
	mux.HandleFunc("/health/db", func(w http.ResponseWriter, r *http.Request) {
		if err := db.Postgres.PingContext(r.Context()); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			w.Write([]byte(`{"status":"error","message":"postgres unavailable"}`))
			return
		}
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok","postgres":"connected"}`))
	})

	// Add Prometheus metrics endpoint
	mux.Handle("/metrics", promhttp.Handler())

	// Create server with configuration optimized for high concurrency
	server := &http.Server{
		Addr:           cfg.Server.GetServerAddr(),
		ReadTimeout:    time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout:   time.Duration(cfg.Server.WriteTimeout) * time.Second,
		IdleTimeout:    120 * time.Second, // Keep connections alive longer
		MaxHeaderBytes: 1 << 20,           // 1MB
		// Use h2c so we can serve HTTP/2 without TLS
		Handler: h2c.NewHandler(mux, &http2.Server{
			MaxConcurrentStreams: 1000, // Allow more concurrent streams
		}),
	}

	// Start server in goroutine
	go func() {
		log.Info().Str("addr", server.Addr).Msg("starting loyalty service listener")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("failed to start server")
		}
	}()

	// Wait for interrupt signal to gracefully shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("shutting down server")

	// Graceful shutdown
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Fatal().Err(err).Msg("server forced to shutdown")
	}

	log.Info().Msg("server exited gracefully")
}
