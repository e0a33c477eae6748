// Package main runs the summarization HTTP API.
//
// Usage:
//
//	summarizer-api [-config path/to/config.yaml]
//
// Configuration is read from defaults, the optional YAML file and environment
// variables, in that order. See internal/config for the variable names.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"chunk-summarizer/internal/app"
	"chunk-summarizer/internal/config"
	hhttp "chunk-summarizer/internal/handler/http"
	"chunk-summarizer/internal/observability/logging"
	"chunk-summarizer/internal/observability/tracing"
)

func main() {
	configPath := flag.String("config", "", "path to a YAML config file (default: $"+config.ConfigFileEnv+")")
	flag.Parse()

	cfg, err := config.LoadSummarizeConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	logger := initLogger(cfg.Logging)
	version := getVersion()

	shutdownTracing := tracing.Setup()
	defer func() {
		if err := shutdownTracing(context.Background()); err != nil {
			logger.Error("failed to shut down tracer provider", slog.Any("error", err))
		}
	}()

	a, err := app.New(cfg)
	if err != nil {
		logger.Error("failed to build summarization pipeline", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := a.Close(); err != nil {
			logger.Error("failed to release pipeline resources", slog.Any("error", err))
		}
	}()

	handler := hhttp.NewRouter(hhttp.RouterConfig{
		Pipeline:          a,
		Documents:         a.Fetcher,
		Circuits:          a.Circuits(),
		Logger:            logger,
		Version:           version,
		Provider:          cfg.Provider.Name,
		MaxRequestBytes:   cfg.Server.MaxRequestBytes,
		RequestTimeout:    cfg.Server.RequestTimeout,
		RateLimitRPS:      cfg.Server.RateLimitRPS,
		RateLimitBurst:    cfg.Server.RateLimitBurst,
		TrustProxyHeaders: cfg.Server.TrustProxyHeaders,
	})

	if err := runServer(logger, cfg.Server, handler, version); err != nil {
		logger.Error("server failed", slog.Any("error", err))
		os.Exit(1)
	}
}

// initLogger builds the process logger from configuration and installs it as the slog default.
func initLogger(cfg config.LoggingConfig) *slog.Logger {
	logger := logging.New(os.Stdout, cfg.Format, cfg.Level)
	slog.SetDefault(logger)
	return logger
}

// getVersion returns the application version from environment or default.
func getVersion() string {
	version := os.Getenv("VERSION")
	if version == "" {
		version = "dev"
	}
	return version
}

// runServer serves until SIGINT/SIGTERM, then shuts down gracefully.
// In-flight summaries get ShutdownTimeout to finish; after that their
// contexts are canceled and the remaining backend calls abort.
func runServer(logger *slog.Logger, cfg config.ServerConfig, handler http.Handler, version string) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second, // Slowloris 対策
		BaseContext: func(_ net.Listener) context.Context {
			return ctx
		},
	}

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("server starting",
			slog.String("addr", cfg.Addr),
			slog.String("version", version))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	select {
	case err := <-serveErr:
		return err
	case <-quit:
	}
	logger.Info("shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer shutdownCancel()
	err := srv.Shutdown(shutdownCtx)
	// 猶予を過ぎた要約はキャンセルする
	cancel()
	if err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	logger.Info("server stopped")
	return nil
}
