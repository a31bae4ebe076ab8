// Package cli provides common initialization utilities shared by the
// cmd binaries.
package cli

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"cashflow/internal/config"
	"cashflow/internal/core"
	applog "cashflow/internal/log"
	"cashflow/internal/storage"
	"cashflow/internal/upstream"
	"cashflow/internal/upstream/lunchmoney"
	"cashflow/internal/upstream/memory"
)

// SetupLogger initializes structured logging for the given component and
// installs it as the process default.
func SetupLogger(component string) *slog.Logger {
	logger := applog.New(component, slog.LevelInfo)
	applog.SetDefault(logger)
	return logger.Logger
}

// LoadEnvFile loads the .env file for local development. Missing files
// are fine in production.
func LoadEnvFile() {
	_ = godotenv.Load()
}

// LoadAndValidateConfig loads configuration or exits the process on
// validation failure.
func LoadAndValidateConfig(logger *slog.Logger) *config.Config {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", "error", err)
		os.Exit(1)
	}
	return cfg
}

// InitSQLite opens the SQLite repository or exits the process.
func InitSQLite(logger *slog.Logger, dbPath string) *storage.SQLiteRepository {
	repo, err := storage.NewSQLiteRepository(dbPath)
	if err != nil {
		logger.Error("Failed to initialize SQLite repository", "error", err, "path", dbPath)
		os.Exit(1)
	}
	return repo
}

// InitUpstream builds the configured upstream feed.
func InitUpstream(logger *slog.Logger, cfg *config.Config) upstream.Feed {
	switch cfg.UpstreamBackend {
	case "lunchmoney":
		logger.Info("Initialized Lunch Money upstream", "url", cfg.LunchMoneyURL)
		return lunchmoney.NewClient(cfg.LunchMoneyURL, cfg.LunchMoneyToken, cfg.UpstreamTimeout)
	default:
		logger.Info("Initialized memory upstream")
		return memory.NewSeededFeed(core.DateOf(time.Now()))
	}
}

// GracefulShutdown installs signal handling. It returns a context that
// is cancelled on SIGINT or SIGTERM and a channel closed once cleanup
// has run.
func GracefulShutdown(logger *slog.Logger, timeout time.Duration, cleanup func()) (context.Context, <-chan struct{}) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigChan
		logger.Info("Shutdown signal received", "signal", sig.String())

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), timeout)
		defer shutdownCancel()

		if cleanup != nil {
			cleanup()
		}

		cancel()

		select {
		case <-shutdownCtx.Done():
			logger.Warn("Shutdown timeout reached")
		case <-time.After(2 * time.Second):
			logger.Info("Shutdown complete")
		}
		close(done)
	}()

	return ctx, done
}

// WaitForShutdown blocks until the context is cancelled and cleanup has
// finished.
func WaitForShutdown(ctx context.Context, done <-chan struct{}) {
	<-ctx.Done()
	<-done
}
