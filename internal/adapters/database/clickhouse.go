package database

import (
	"context"
	"fmt"
	"time"

	_ "github.com/ClickHouse/clickhouse-go/v2"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/selivandex/regime-lab/internal/adapters/config"
	"github.com/selivandex/regime-lab/pkg/logger"
)

// ClickHouse wraps the columnar store holding bars and feature rows
type ClickHouse struct {
	conn *sqlx.DB
}

// NewClickHouse creates new ClickHouse connection
func NewClickHouse(cfg *config.ClickHouseConfig) (*ClickHouse, error) {
	conn, err := sqlx.Connect("clickhouse", cfg.GetDSN())
	if err != nil {
		return nil, fmt.Errorf("failed to connect to clickhouse: %w", err)
	}

	conn.SetMaxOpenConns(10)
	conn.SetMaxIdleConns(5)
	conn.SetConnMaxLifetime(10 * time.Minute)

	logger.Info("clickhouse connection established",
		zap.String("host", cfg.Host),
		zap.Int("port", cfg.Port),
		zap.String("database", cfg.Name),
	)

	return &ClickHouse{conn: conn}, nil
}

// Close closes clickhouse connection
func (ch *ClickHouse) Close() error {
	if ch.conn != nil {
		logger.Info("closing clickhouse connection")
		return ch.conn.Close()
	}
	return nil
}

// DB returns the sqlx handle for repositories
func (ch *ClickHouse) DB() *sqlx.DB {
	return ch.conn
}

// Health checks clickhouse health
func (ch *ClickHouse) Health() error {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if err := ch.conn.PingContext(ctx); err != nil {
		return fmt.Errorf("clickhouse health check failed: %w", err)
	}

	return nil
}
