package main

import (
	"context"
	"net/http"
	"os"
	"time"

	"cashflow/internal/amqp"
	"cashflow/internal/cli"
	apphttp "cashflow/internal/http"
	applog "cashflow/internal/log"
	"cashflow/internal/projection"
	"cashflow/internal/services"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(applog.ComponentApp)

	logger.Info("Starting cashflow server")

	cfg := cli.LoadAndValidateConfig(logger)

	sqliteRepo := cli.InitSQLite(logger, cfg.SQLiteDBPath)
	feed := cli.InitUpstream(logger, cfg)

	// AMQP is optional: without it transactions are still saved locally
	// and the worker's recovery pass picks them up.
	var amqpClient *amqp.Client
	if cfg.AMQPURL != "" {
		var err error
		amqpClient, err = amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Error("Failed to initialize AMQP client", "error", err)
			os.Exit(1)
		}
		logger.Info("AMQP client initialized", "exchange", cfg.AMQPExchange, "queue", cfg.AMQPQueue)
	} else {
		logger.Info("AMQP disabled - no AMQP_URL provided")
	}

	projections := services.NewProjectionService(
		feed,
		sqliteRepo,
		cfg.DefaultHorizonMonths,
		cfg.SnapshotTTL,
		cfg.SnapshotEntries,
		projection.Options{ApplyIncomeSign: cfg.ApplyIncomeSign},
	)
	transactions := services.NewTransactionService(sqliteRepo, amqpClient)

	srv := apphttp.NewServer(":"+cfg.Port, projections, transactions)

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("Server shutdown error", "error", err)
		}
		if err := transactions.Close(); err != nil {
			logger.Error("Service close error", "error", err)
		}
	})

	logger.Info("Starting HTTP server",
		"port", cfg.Port,
		"upstream", cfg.UpstreamBackend,
		"default_horizon_months", cfg.DefaultHorizonMonths)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("Server error", "error", err, "port", cfg.Port)
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Server stopped gracefully")
}
