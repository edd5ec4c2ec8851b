package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/selivandex/regime-lab/internal/adapters/clickhouse"
	"github.com/selivandex/regime-lab/internal/adapters/config"
	"github.com/selivandex/regime-lab/internal/adapters/database"
	"github.com/selivandex/regime-lab/internal/adapters/exchange"
	"github.com/selivandex/regime-lab/internal/adapters/market"
	redisAdapter "github.com/selivandex/regime-lab/internal/adapters/redis"
	"github.com/selivandex/regime-lab/internal/adapters/telegram"
	"github.com/selivandex/regime-lab/internal/features"
	"github.com/selivandex/regime-lab/internal/health"
	"github.com/selivandex/regime-lab/internal/summary"
	"github.com/selivandex/regime-lab/internal/workers"
	"github.com/selivandex/regime-lab/pkg/logger"
	"github.com/selivandex/regime-lab/pkg/worker"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sigChan
		fmt.Println("\nReceived interrupt signal, shutting down...")
		cancel()
	}()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	cfg, err := initConfig()
	if err != nil {
		return err
	}
	defer logger.Sync()

	logger.Info("regime feature deriver starting...",
		zap.Strings("symbols", cfg.Derive.Symbols),
		zap.String("timeframe", cfg.Derive.Timeframe),
	)

	db, err := initDatabase(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	ch, chRepo, err := initClickHouse(ctx, cfg)
	if err != nil {
		return err
	}
	defer ch.Close()

	redisClient, err := redisAdapter.New(&cfg.Redis)
	if err != nil {
		return fmt.Errorf("failed to connect to redis: %w", err)
	}
	defer redisClient.Close()

	ex, err := exchange.New(&cfg.Exchange)
	if err != nil {
		return fmt.Errorf("failed to initialize exchange: %w", err)
	}
	defer ex.Close()

	notifier := initNotifier(cfg)

	// Batch writers buffer ClickHouse inserts; closed last so the final
	// flush happens after workers stop producing.
	barWriter := clickhouse.NewBarBatchWriter(chRepo, 1000, 10*time.Second)
	defer barWriter.Close()

	rowWriter := clickhouse.NewFeatureRowBatchWriter(chRepo, 1000, 10*time.Second)
	defer rowWriter.Close()

	marketRepo := market.NewRepository(ch.DB())
	summaryRepo := summary.NewRepository(db.DB())

	deriver := features.NewDeriver(features.Config{
		VolWindow:     cfg.Derive.VolWindow,
		RollingWindow: cfg.Derive.RollingWindow,
	})

	group := worker.NewGroup(ctx)
	group.Add(
		workers.NewBarsWorker(ex, barWriter, cfg.Derive.Symbols, cfg.Derive.Timeframe, cfg.Exchange.FetchLimit),
		cfg.Exchange.FetchInterval,
	)
	group.Add(
		workers.NewDeriveWorker(
			deriver,
			marketRepo,
			rowWriter,
			summaryRepo,
			redisClient,
			notifier,
			cfg.Derive.Symbols,
			cfg.Derive.Timeframe,
			cfg.Derive.HistoryBars,
		),
		cfg.Derive.Interval,
	)
	group.Start()

	healthServer := startHealthServer(cfg, db, ch, redisClient, summaryRepo, marketRepo)

	<-ctx.Done()

	return performGracefulShutdown(healthServer, group)
}

// initConfig loads configuration and initializes the logger
func initConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	if err := logger.Init(cfg.Logging.Level, cfg.Logging.File); err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	return cfg, nil
}

// initDatabase connects to PostgreSQL and applies migrations
func initDatabase(cfg *config.Config) (*database.DB, error) {
	db, err := database.New(&cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := database.RunMigrations(db.Conn(), "./migrations"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return db, nil
}

// initClickHouse connects to ClickHouse and ensures the schema
func initClickHouse(ctx context.Context, cfg *config.Config) (*database.ClickHouse, *clickhouse.Repository, error) {
	ch, err := database.NewClickHouse(&cfg.ClickHouse)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to clickhouse: %w", err)
	}

	repo := clickhouse.NewRepository(ch.DB())
	if err := repo.EnsureSchema(ctx); err != nil {
		ch.Close()
		return nil, nil, err
	}

	return ch, repo, nil
}

// initNotifier creates the Telegram notifier when enabled
func initNotifier(cfg *config.Config) *telegram.Notifier {
	if !cfg.Telegram.Enabled {
		logger.Info("telegram notifications disabled")
		return nil
	}

	notifier, err := telegram.NewNotifier(&cfg.Telegram)
	if err != nil {
		logger.Warn("failed to initialize telegram notifier", zap.Error(err))
		return nil
	}

	return notifier
}

// startHealthServer starts the K8s probe and status endpoints
func startHealthServer(
	cfg *config.Config,
	db *database.DB,
	ch *database.ClickHouse,
	redisClient *redisAdapter.Client,
	summaryRepo *summary.Repository,
	marketRepo *market.Repository,
) *health.Server {
	healthServer := health.NewServer(
		cfg.Health.Addr,
		db, ch, redisClient,
		summaryRepo, marketRepo, redisClient,
		cfg.Derive.Symbols, cfg.Derive.Timeframe,
	)

	go func() {
		if err := healthServer.Start(); err != nil && err != http.ErrServerClosed {
			logger.Error("health server error", zap.Error(err))
		}
	}()

	healthServer.SetReady(true)

	logger.Info("deriver service ready",
		zap.String("health_addr", cfg.Health.Addr),
	)

	return healthServer
}

// performGracefulShutdown stops workers and the health server in order
func performGracefulShutdown(healthServer *health.Server, group *worker.Group) error {
	logger.Info("shutdown signal received, starting graceful shutdown...")

	healthServer.SetReady(false)

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 25*time.Second)
	defer shutdownCancel()

	group.Stop(20 * time.Second)

	if err := healthServer.Stop(shutdownCtx); err != nil {
		logger.Error("health server stop error", zap.Error(err))
	}

	logger.Info("shutdown completed")
	return nil
}
