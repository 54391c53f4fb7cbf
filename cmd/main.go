/*
Package main is the entry point for the chat relay.

It is responsible for loading configuration, initializing the global logging system,
opening the optional message log, setting up the HTTP server and the chat hub,
and gracefully handling operating system interrupt signals (SIGINT, SIGTERM)
to ensure a smooth server shutdown.
*/
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

	"golang.org/x/time/rate"

	"roomrelay/internal/app/chat"
	"roomrelay/internal/app/db"
	"roomrelay/internal/app/history"
	"roomrelay/internal/configs"
	"roomrelay/internal/handler"
	"roomrelay/internal/pkg/limiter"
	"roomrelay/internal/pkg/logx"
)

func main() {
	// Load configuration from environment variables
	cfg, err := configs.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize global logger
	logx.InitGlobalLogger(cfg.LogLevel, cfg.IsDevelopment())
	logx.Logger().Info().
		Str("environment", cfg.Environment).
		Int("port", cfg.Port).
		Strs("allowed_origins", cfg.AllowedOrigins).
		Dur("delivery_timeout", cfg.DeliveryTimeout).
		Bool("persistence", cfg.PersistenceEnabled()).
		Msg("Configuration loaded successfully")

	// Create a context that listens for the interrupt signal from the OS.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	hubOpts := chat.Options{
		DeliveryTimeout: cfg.DeliveryTimeout,
		MessageRate:     rate.Limit(cfg.MessageRate),
		MessageBurst:    cfg.MessageBurst,
	}

	// Open the message log when a database is configured
	var writer *history.Writer
	if cfg.PersistenceEnabled() {
		pool, err := db.NewPool(ctx, cfg.DatabaseDSN)
		if err != nil {
			logx.Fatal(err, "Failed to initialize message log database")
		}
		defer pool.Close()

		writer = history.NewWriter(history.NewPGStore(pool), cfg.HistoryBuffer)
		hubOpts.Recorder = writer
		logx.Info("Message log enabled.", "buffer", cfg.HistoryBuffer)
	}

	hub := chat.NewHub(hubOpts)

	ipLimiter := limiter.PerWindow(cfg.RateLimitMax, cfg.RateLimitWindow)
	defer ipLimiter.Stop()

	// Setup HTTP server and routes
	router := handler.Router(&handler.AppDeps{
		Hub:       hub,
		Config:    cfg,
		IPLimiter: ipLimiter,
	})

	serverAddr := fmt.Sprintf(":%d", cfg.Port)
	server := &http.Server{
		Addr:              serverAddr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	go func() {
		logx.Info(fmt.Sprintf("Chat relay starting on http://localhost%s", serverAddr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logx.Fatal(err, "Server failed to start")
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server with a timeout of 10 seconds.
	<-ctx.Done()
	logx.Info("Received shutdown signal. Starting graceful shutdown...")

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelShutdown()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logx.Error(err, "Server forced to shutdown")
	}

	if err := hub.Shutdown(shutdownCtx); err != nil {
		logx.Error(err, "Hub shutdown incomplete")
	}

	if writer != nil {
		if err := writer.Close(shutdownCtx); err != nil {
			logx.Error(err, "Message log did not drain before shutdown")
		}
	}

	logx.Info("Server gracefully stopped.")
}
