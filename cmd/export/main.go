// Command export dumps recorded signals or trades as CSV.
package main

import (
	"context"
	"flag"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/your-org/signal-trader/internal/config"
	"github.com/your-org/signal-trader/internal/csvwriter"
	"github.com/your-org/signal-trader/pkg/logger"
)

const timeLayout = "2006-01-02 15:04:05"

func main() {
	configPath := flag.String("config", "config/config.yaml", "Path to the configuration file")
	table := flag.String("table", "trades", "Dataset to export: trades or signals")
	startStr := flag.String("start", "", "Start of the export window (YYYY-MM-DD HH:MM:SS, UTC)")
	endStr := flag.String("end", "", "End of the export window (YYYY-MM-DD HH:MM:SS, UTC)")
	flag.Parse()

	logger.SetGlobalLogLevel("info")

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		logger.Fatalf("Failed to load configuration: %v", err)
	}
	if cfg.DatabaseURL == "" {
		logger.Fatal("DATABASE_URL must be set to export data")
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

	zapLogger, err := zap.NewProduction()
	if err != nil {
		logger.Fatalf("Failed to initialize zap logger: %v", err)
	}
	defer zapLogger.Sync()

	writer := csvwriter.New(os.Stdout, zapLogger)
	defer writer.Close()

	switch *table {
	case "trades":
		err = exportTrades(ctx, pool, writer, from, to)
	case "signals":
		err = exportSignals(ctx, pool, writer, from, to)
	default:
		logger.Fatalf("Unknown --table %q, want trades or signals", *table)
	}
	if err != nil {
		logger.Fatalf("Export failed: %v", err)
	}
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func exportTrades(ctx context.Context, pool *pgxpool.Pool, writer *csvwriter.Writer, from, to time.Time) error {
	if err := writer.WriteHeader("time", "symbol", "instrument", "side", "kind",
		"order_id", "quantity", "price", "notional", "status", "reason"); err != nil {
		return err
	}
	rows, err := pool.Query(ctx, `
		SELECT time, symbol, instrument, side, kind, order_id,
		       quantity, price, notional, status, reason
		FROM trades
		WHERE time >= $1 AND time < $2
		ORDER BY time ASC`, from, to)
	if err != nil {
		return err
	}
	defer rows.Close()

	var count int
	for rows.Next() {
		var (
			t                                       time.Time
			symbol, instrument, side, kind, orderID string
			quantity, price, notional               float64
			status, reason                          string
		)
		if err := rows.Scan(&t, &symbol, &instrument, &side, &kind, &orderID,
			&quantity, &price, &notional, &status, &reason); err != nil {
			return err
		}
		if err := writer.Write([]string{
			t.UTC().Format(time.RFC3339), symbol, instrument, side, kind, orderID,
			formatFloat(quantity), formatFloat(price), formatFloat(notional), status, reason,
		}); err != nil {
			return err
		}
		count++
	}
	if err := rows.Err(); err != nil {
		return err
	}
	logger.Infof("Exported %d trade records.", count)
	return nil
}

func exportSignals(ctx context.Context, pool *pgxpool.Pool, writer *csvwriter.Writer, from, to time.Time) error {
	if err := writer.WriteHeader("time", "symbol", "direction", "confidence",
		"price", "risk", "reasoning"); err != nil {
		return err
	}
	rows, err := pool.Query(ctx, `
		SELECT time, symbol, direction, confidence, price, risk, reasoning
		FROM signals
		WHERE time >= $1 AND time < $2
		ORDER BY time ASC`, from, to)
	if err != nil {
		return err
	}
	defer rows.Close()

	var count int
	for rows.Next() {
		var (
			t                       time.Time
			symbol, direction, risk string
			confidence, price       float64
			reasoning               []string
		)
		if err := rows.Scan(&t, &symbol, &direction, &confidence, &price, &risk, &reasoning); err != nil {
			return err
		}
		if err := writer.Write([]string{
			t.UTC().Format(time.RFC3339), symbol, direction,
			formatFloat(confidence), formatFloat(price), risk,
			strings.Join(reasoning, "; "),
		}); err != nil {
			return err
		}
		count++
	}
	if err := rows.Err(); err != nil {
		return err
	}
	logger.Infof("Exported %d signal records.", count)
	return nil
}
