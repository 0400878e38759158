// Package main is the entry point for the PageKeep document library server.
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

	"github.com/pagekeep/pagekeep/internal/blob"
	"github.com/pagekeep/pagekeep/internal/config"
	"github.com/pagekeep/pagekeep/internal/logging"
	"github.com/pagekeep/pagekeep/internal/server"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to configuration file")
	port := flag.Int("port", 0, "override listening port (default: from config or 8080)")
	host := flag.String("host", "", "override listening host (default: from config or 0.0.0.0)")
	logLevel := flag.String("log-level", "", "log level: debug, info, warn, error (default: from config or info)")
	logFormat := flag.String("log-format", "", "log format: text, json (default: from config or text)")
	shutdownTimeout := flag.Int("shutdown-timeout", 0, "graceful shutdown timeout in seconds (default: from config or 30)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Command-line flags override config file values.
	if *port != 0 {
		cfg.Server.Port = *port
	}
	if *host != "" {
		cfg.Server.Host = *host
	}
	if *logLevel != "" {
		cfg.Logging.Level = *logLevel
	}
	if *logFormat != "" {
		cfg.Logging.Format = *logFormat
	}
	if *shutdownTimeout != 0 {
		cfg.Server.ShutdownTimeout = *shutdownTimeout
	}

	// Initialize structured logging.
	logging.Setup(cfg.Logging.Level, cfg.Logging.Format, os.Stderr)

	store, err := newStore(context.Background(), cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize storage backend: %v\n", err)
		os.Exit(1)
	}

	srv := server.New(cfg, store)
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)

	// Start the server in a goroutine so we can handle shutdown signals.
	errCh := make(chan error, 1)
	go func() {
		slog.Info("PageKeep listening", "addr", addr)
		if err := srv.ListenAndServe(addr); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	// SIGTERM/SIGINT handler: stop accepting connections, wait for in-flight
	// requests with a timeout, then exit.
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		slog.Info("Received signal, shutting down", "signal", sig)

		ctx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.Server.ShutdownTimeout)*time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			slog.Error("Shutdown error", "error", err)
		}
		slog.Info("Server stopped")

	case err := <-errCh:
		if err != nil {
			fmt.Fprintf(os.Stderr, "server error: %v\n", err)
			os.Exit(1)
		}
	}
}

// newStore constructs the blob store from configuration. The server holds no
// backend-specific logic beyond this switch; everything downstream sees the
// blob.Store interface.
func newStore(ctx context.Context, cfg *config.Config) (blob.Store, error) {
	switch cfg.Storage.Backend {
	case "s3":
		store, err := blob.NewS3Store(ctx, cfg.Storage.S3)
		if err != nil {
			return nil, err
		}
		return store, nil
	case "gcs":
		store, err := blob.NewGCSStore(ctx, cfg.Storage.GCS)
		if err != nil {
			return nil, err
		}
		return store, nil
	case "azure":
		store, err := blob.NewAzureStore(ctx, cfg.Storage.Azure)
		if err != nil {
			return nil, err
		}
		return store, nil
	case "memory":
		slog.Info("Memory store initialized (contents are lost on restart)")
		return blob.NewMemoryStore(), nil
	default:
		// Default to the local filesystem backend.
		store, err := blob.NewLocalStore(cfg.Storage.Local.DataDir)
		if err != nil {
			return nil, err
		}
		// Clean orphan temp files from incomplete writes.
		if err := store.CleanTempFiles(); err != nil {
			slog.Warn("Failed to clean temp files", "error", err)
		}
		slog.Info("Local store initialized", "data_dir", cfg.Storage.Local.DataDir)
		return store, nil
	}
}
