// Command project runs a one-shot balance projection and prints the
// result as JSON. Useful for scripting and debugging without the HTTP
// server.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"os"

	"cashflow/internal/cli"
	"cashflow/internal/core"
	applog "cashflow/internal/log"
	"cashflow/internal/projection"
	"cashflow/internal/services"
)

func main() {
	var (
		accountID = flag.Int64("account", 0, "account id to project (required)")
		months    = flag.Int("months", 0, "projection horizon in months (default from config)")
		pretty    = flag.Bool("pretty", false, "indent the JSON output")
	)
	flag.Parse()

	cli.LoadEnvFile()
	logger := cli.SetupLogger(applog.ComponentApp)

	if *accountID < 1 {
		logger.Error("Missing or invalid -account flag")
		flag.Usage()
		os.Exit(2)
	}

	cfg := cli.LoadAndValidateConfig(logger)

	sqliteRepo := cli.InitSQLite(logger, cfg.SQLiteDBPath)
	defer sqliteRepo.Close()

	feed := cli.InitUpstream(logger, cfg)

	projections := services.NewProjectionService(
		feed,
		sqliteRepo,
		cfg.DefaultHorizonMonths,
		cfg.SnapshotTTL,
		cfg.SnapshotEntries,
		projection.Options{ApplyIncomeSign: cfg.ApplyIncomeSign},
	)

	ctx, cancel := context.WithTimeout(context.Background(), cfg.UpstreamTimeout*2)
	defer cancel()

	result, err := projections.Project(ctx, core.AccountID(*accountID), *months)
	if err != nil {
		logger.Error("Projection failed", "account_id", *accountID, "error", err)
		os.Exit(1)
	}
	if result == nil {
		logger.Error("Account not found", "account_id", *accountID)
		os.Exit(1)
	}

	enc := json.NewEncoder(os.Stdout)
	if *pretty {
		enc.SetIndent("", "  ")
	}
	if err := enc.Encode(result); err != nil {
		logger.Error("Failed to encode result", "error", err)
		os.Exit(1)
	}
}
