// Command report prints a trading performance report for a time window.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"os"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/your-org/signal-trader/internal/config"
	"github.com/your-org/signal-trader/internal/report"
	"github.com/your-org/signal-trader/pkg/logger"
)

const timeLayout = "2006-01-02 15:04:05"

func main() {
	configPath := flag.String("config", "config/config.yaml", "Path to the configuration file")
	startStr := flag.String("start", "", "Start of the report window (YYYY-MM-DD HH:MM:SS, UTC)")
	endStr := flag.String("end", "", "End of the report window (YYYY-MM-DD HH:MM:SS, UTC)")
	flag.Parse()

	logger.SetGlobalLogLevel("info")

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		logger.Fatalf("Failed to load configuration: %v", err)
	}
	if cfg.DatabaseURL == "" {
		logger.Fatal("DATABASE_URL must be set to generate a report")
	}

	now := time.Now().UTC()
	from := now.AddDate(0, -1, 0)
	to := now
	if *startStr != "" {
		if from, err = time.Parse(timeLayout, *startStr); err != nil {
			logger.Fatalf("Invalid --start: %v", err)
		}
	}
	if *endStr != "" {
		if to, err = time.Parse(timeLayout, *endStr); err != nil {
			logger.Fatalf("Invalid --end: %v", err)
		}
	}

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Fatalf("Unable to connect to database: %v", err)
	}
	defer pool.Close()

	rep, err := report.NewService(pool).Generate(ctx, from, to)
	if err != nil {
		logger.Fatalf("Failed to generate report: %v", err)
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(rep); err != nil {
		logger.Fatalf("Failed to encode report: %v", err)
	}
}
