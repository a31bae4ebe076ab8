package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	// HTTP Server
	Port string

	// Database
	SQLiteDBPath string

	// Upstream feed ("lunchmoney" or "memory")
	UpstreamBackend string
	LunchMoneyToken string
	LunchMoneyURL   string
	UpstreamTimeout time.Duration

	// Snapshot cache
	SnapshotTTL     time.Duration
	SnapshotEntries int

	// Projection
	DefaultHorizonMonths int
	ApplyIncomeSign      bool

	// AMQP
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	// Ledger backup worker
	SyncBatchSize int
	SyncInterval  time.Duration

	// Google Sheets ledger backup
	GoogleSpreadsheetID string
	GoogleLedgerSheet   string
}

func Load() *Config {
	return &Config{
		Port:         getEnv("PORT", "8082"),
		SQLiteDBPath: getEnv("SQLITE_DB_PATH", "./data/cashflow.db"),

		UpstreamBackend: getEnv("UPSTREAM_BACKEND", "lunchmoney"),
		LunchMoneyToken: getEnv("LUNCHMONEY_TOKEN", ""),
		LunchMoneyURL:   getEnv("LUNCHMONEY_URL", "https://dev.lunchmoney.app/v1"),
		UpstreamTimeout: getEnvDuration("UPSTREAM_TIMEOUT", 15*time.Second),

		SnapshotTTL:     getEnvDuration("SNAPSHOT_TTL", 5*time.Minute),
		SnapshotEntries: getEnvInt("SNAPSHOT_ENTRIES", 16),

		DefaultHorizonMonths: getEnvInt("DEFAULT_HORIZON_MONTHS", 3),
		ApplyIncomeSign:      getEnvBool("APPLY_INCOME_SIGN", false),

		AMQPURL:      getEnv("AMQP_URL", ""),
		AMQPExchange: getEnv("AMQP_EXCHANGE", "cashflow"),
		AMQPQueue:    getEnv("AMQP_QUEUE", "ledger_sync"),

		SyncBatchSize: getEnvInt("SYNC_BATCH_SIZE", 10),
		SyncInterval:  getEnvDuration("SYNC_INTERVAL", 5*time.Minute),

		GoogleSpreadsheetID: getEnv("GOOGLE_SPREADSHEET_ID", ""),
		GoogleLedgerSheet:   getEnv("GOOGLE_LEDGER_SHEET", "Ledger"),
	}
}

// Validate validates the configuration and returns an error if invalid.
func (c *Config) Validate() error {
	var problems []string

	if port, err := strconv.Atoi(c.Port); err != nil {
		problems = append(problems, fmt.Sprintf("invalid port %q: must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		problems = append(problems, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	switch c.UpstreamBackend {
	case "lunchmoney":
		if c.LunchMoneyToken == "" {
			problems = append(problems, "LUNCHMONEY_TOKEN is required for the lunchmoney backend")
		}
		if u, err := url.Parse(c.LunchMoneyURL); err != nil || (u.Scheme != "http" && u.Scheme != "https") {
			problems = append(problems, fmt.Sprintf("invalid LUNCHMONEY_URL %q", c.LunchMoneyURL))
		}
	case "memory":
	default:
		problems = append(problems, fmt.Sprintf("invalid upstream backend %q: must be one of [lunchmoney memory]", c.UpstreamBackend))
	}

	if c.SQLiteDBPath == "" {
		problems = append(problems, "SQLite database path cannot be empty")
	} else if dir := filepath.Dir(c.SQLiteDBPath); dir != "." && dir != "" {
		if _, err := os.Stat(dir); os.IsNotExist(err) {
			if err := os.MkdirAll(dir, 0755); err != nil {
				problems = append(problems, fmt.Sprintf("cannot create SQLite database directory %q: %v", dir, err))
			}
		}
	}

	if c.DefaultHorizonMonths < 1 || c.DefaultHorizonMonths > 24 {
		problems = append(problems, fmt.Sprintf("invalid default horizon %d: must be between 1 and 24 months", c.DefaultHorizonMonths))
	}

	if c.SnapshotTTL < time.Second {
		problems = append(problems, fmt.Sprintf("invalid snapshot TTL %v: must be at least 1 second", c.SnapshotTTL))
	}
	if c.SnapshotEntries < 1 {
		problems = append(problems, fmt.Sprintf("invalid snapshot entry cap %d: must be at least 1", c.SnapshotEntries))
	}

	if c.AMQPURL != "" {
		if u, err := url.Parse(c.AMQPURL); err != nil {
			problems = append(problems, fmt.Sprintf("invalid AMQP URL %q: %v", c.AMQPURL, err))
		} else if u.Scheme != "amqp" && u.Scheme != "amqps" {
			problems = append(problems, fmt.Sprintf("invalid AMQP URL scheme %q: must be 'amqp' or 'amqps'", u.Scheme))
		}
		if c.AMQPExchange == "" {
			problems = append(problems, "AMQP exchange name cannot be empty when AMQP URL is provided")
		}
		if c.AMQPQueue == "" {
			problems = append(problems, "AMQP queue name cannot be empty when AMQP URL is provided")
		}
	}

	if c.SyncBatchSize < 1 {
		problems = append(problems, fmt.Sprintf("invalid sync batch size %d: must be at least 1", c.SyncBatchSize))
	}
	if c.SyncInterval < time.Second {
		problems = append(problems, fmt.Sprintf("invalid sync interval %v: must be at least 1 second", c.SyncInterval))
	}

	if c.GoogleSpreadsheetID != "" && c.GoogleLedgerSheet == "" {
		problems = append(problems, "Google ledger sheet name cannot be empty when a spreadsheet is configured")
	}

	if len(problems) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(problems, "\n- "))
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
