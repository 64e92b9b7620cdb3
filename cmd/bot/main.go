// Package main is the entry point of the signal trading bot.
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/your-org/signal-trader/internal/alert"
	"github.com/your-org/signal-trader/internal/analyzer"
	"github.com/your-org/signal-trader/internal/config"
	"github.com/your-org/signal-trader/internal/datastore"
	"github.com/your-org/signal-trader/internal/engine"
	"github.com/your-org/signal-trader/internal/exchange/cryptocom"
	"github.com/your-org/signal-trader/internal/http/handler"
	"github.com/your-org/signal-trader/internal/marketdata"
	"github.com/your-org/signal-trader/internal/pnl"
	"github.com/your-org/signal-trader/internal/position"
	signalengine "github.com/your-org/signal-trader/internal/signal"
	"github.com/your-org/signal-trader/pkg/logger"
)

func main() {
	// --- Configuration ---
	configPath := flag.String("config", "config/config.yaml", "Path to the configuration file")
	watch := flag.String("watch", "", "Comma-separated symbols to seed the watchlist with")
	flag.Parse()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// --- Logger ---
	logger.SetGlobalLogLevel(cfg.LogLevel)
	logger.Info("Signal trading bot starting...")
	logger.Infof("Loaded configuration from: %s", *configPath)

	if cfg.Exchange.APIKey == "" || cfg.Exchange.APISecret == "" {
		logger.Fatal("CRYPTO_API_KEY and CRYPTO_API_SECRET must be set")
	}

	var zapLogger *zap.Logger
	if cfg.LogLevel == "debug" {
		zapLogger, err = zap.NewDevelopment()
	} else {
		zapLogger, err = zap.NewProduction()
	}
	if err != nil {
		logger.Fatalf("Failed to initialize zap logger: %v", err)
	}
	defer zapLogger.Sync()

	// --- Datastore ---
	var store datastore.Store
	if cfg.DatabaseURL != "" {
		if err := datastore.RunMigrations(cfg.DatabaseURL); err != nil {
			logger.Fatalf("Failed to run database migrations: %v", err)
		}
		pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
		if err != nil {
			logger.Fatalf("Failed to connect to database: %v", err)
		}
		store = datastore.NewRepository(pool, zapLogger)
		logger.Info("Database store initialized.")
	} else {
		store = datastore.NewMemory()
		logger.Warn("DATABASE_URL not set, state will not survive restarts.")
	}
	defer store.Close()

	registry := config.NewRegistry(cfg, store)

	// --- Exchange client and market data ---
	client := cryptocom.NewClient(cfg.Exchange, zapLogger)
	stream := cryptocom.NewTickerStream(cfg.Exchange.WebsocketURL, zapLogger)
	go stream.Start(ctx)
	provider := marketdata.NewExchangeProvider(client, stream, cfg.Exchange.QuoteCurrency)

	// --- Trading components ---
	notifier := alert.NewLogNotifier(zapLogger, time.Minute)
	defer notifier.Close()

	book := position.NewBook()
	calc := pnl.NewCalculator()
	manager := engine.NewManager(client, provider, registry, book, store, notifier,
		calc, cfg.Exchange.QuoteCurrency)
	defer manager.Close()

	open, err := store.ListOpenPositions(ctx)
	if err != nil {
		logger.Errorf("Failed to load open positions: %v", err)
	} else if len(open) > 0 {
		manager.Resume(open)
	}

	if *watch != "" {
		for _, symbol := range strings.Split(*watch, ",") {
			symbol = strings.ToUpper(strings.TrimSpace(symbol))
			if symbol == "" {
				continue
			}
			if err := store.AddWatch(ctx, symbol); err != nil {
				logger.Errorf("Failed to add %s to watchlist: %v", symbol, err)
			}
		}
	}

	sigEngine := signalengine.NewEngine(provider, registry)
	scheduler := analyzer.New(sigEngine, manager, store, registry, notifier)

	// --- HTTP surface ---
	router := chi.NewRouter()
	router.Get("/healthz", handler.HealthCheckHandler)
	handler.NewStatusHandler(book, calc).RegisterRoutes(router)
	httpServer := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.HTTP.Port),
		Handler: router,
	}
	go func() {
		logger.Infof("HTTP server listening on %s", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatalf("HTTP server failed: %v", err)
		}
	}()

	// --- Graceful shutdown setup ---
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)

	analyzerDone := make(chan error, 1)
	go func() {
		analyzerDone <- scheduler.Run(ctx)
	}()

	select {
	case sig := <-sigs:
		logger.Infof("Received signal: %s, initiating shutdown...", sig)
	case err := <-analyzerDone:
		logger.Errorf("Analyzer stopped: %v", err)
	}

	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Errorf("HTTP server shutdown: %v", err)
	}

	// Let the analyzer drain its in-flight batch before resources close.
	select {
	case <-analyzerDone:
	case <-time.After(5 * time.Second):
	}
	logger.Info("Signal trading bot shut down gracefully.")
}
