package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"cashflow/internal/amqp"
	"cashflow/internal/cli"
	"cashflow/internal/ledger/google"
	applog "cashflow/internal/log"
	"cashflow/internal/worker"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(applog.ComponentWorker)

	logger.Info("Starting cashflow-worker")

	cfg := cli.LoadAndValidateConfig(logger)

	sqliteRepo := cli.InitSQLite(logger, cfg.SQLiteDBPath)
	defer sqliteRepo.Close()

	if cfg.GoogleSpreadsheetID == "" {
		logger.Error("Ledger backup disabled - GOOGLE_SPREADSHEET_ID is required for the worker")
		os.Exit(1)
	}
	ledgerClient, err := google.New(context.Background(), cfg.GoogleSpreadsheetID, cfg.GoogleLedgerSheet)
	if err != nil {
		logger.Error("Failed to initialize Google Sheets ledger", "error", err)
		os.Exit(1)
	}
	logger.Info("Google Sheets ledger initialized",
		"spreadsheet_id", cfg.GoogleSpreadsheetID,
		"sheet", cfg.GoogleLedgerSheet)

	amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		logger.Error("Failed to initialize AMQP client", "error", err)
		os.Exit(1)
	}
	defer amqpClient.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	syncWorker := worker.NewSyncWorker(sqliteRepo, ledgerClient, cfg.SyncBatchSize)

	// Recover anything that missed its message while the worker was down.
	logger.Info("Performing startup sync check...")
	if err := syncWorker.StartupSyncCheck(ctx); err != nil {
		logger.Error("Failed startup sync check", "error", err)
	}

	go func() {
		err := amqpClient.ConsumeLedgerSync(ctx, func(msg *amqp.LedgerSyncMessage) error {
			return syncWorker.HandleSyncMessage(ctx, msg)
		})
		if err != nil && err != context.Canceled {
			logger.Error("Message consumption failed", "error", err)
		}
		cancel()
	}()

	// Periodic recovery pass for lost messages.
	ticker := time.NewTicker(cfg.SyncInterval)
	defer ticker.Stop()
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if err := syncWorker.ProcessPending(ctx); err != nil {
					logger.Error("Periodic sync failed", "error", err)
				}
			}
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		logger.Info("Shutdown signal received", "signal", sig.String())
	case <-ctx.Done():
		logger.Info("Context cancelled")
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	logger.Info("Shutting down worker...")
	cancel()

	select {
	case <-shutdownCtx.Done():
		logger.Warn("Shutdown timeout reached")
	case <-time.After(5 * time.Second):
		logger.Info("Worker shutdown complete")
	}
}
