package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/amyangfei/redlock-go/v3/redlock"
	redis "github.com/go-redis/redis/v8"
	"go.uber.org/zap"

	"github.com/selivandex/regime-lab/internal/adapters/config"
	"github.com/selivandex/regime-lab/pkg/logger"
	"github.com/selivandex/regime-lab/pkg/models"
)

// Client wraps a RedLock manager for run coordination plus a standard
// Redis client for caching derive summaries.
type Client struct {
	lockManager *redlock.RedLock
	cache       *redis.Client
	lockTTL     time.Duration
	cacheTTL    time.Duration
}

// New creates new Redis client with RedLock support and caching
func New(cfg *config.RedisConfig) (*Client, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	// Single instance here; a cluster would list every node address
	lockManager, err := redlock.NewRedLock(ctx, []string{"tcp://" + cfg.Addr})
	if err != nil {
		return nil, fmt.Errorf("failed to create redlock manager: %w", err)
	}

	cache := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolSize:     10,
	})

	if err := cache.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	logger.Info("redis client initialized",
		zap.String("address", cfg.Addr),
		zap.Int("db", cfg.DB),
	)

	return &Client{
		lockManager: lockManager,
		cache:       cache,
		lockTTL:     cfg.LockTTL,
		cacheTTL:    cfg.CacheTTL,
	}, nil
}

// NewRunLock creates a distributed lock guarding derive runs for a symbol
func (c *Client) NewRunLock(symbol string) *RunLock {
	return &RunLock{
		lockManager: c.lockManager,
		lockName:    fmt.Sprintf("derive:lock:%s", symbol),
		ttl:         c.lockTTL,
	}
}

// CacheSummary stores the latest derive summary for a symbol
func (c *Client) CacheSummary(ctx context.Context, summary *models.DeriveSummary) error {
	data, err := json.Marshal(summary)
	if err != nil {
		return fmt.Errorf("failed to marshal summary: %w", err)
	}

	key := fmt.Sprintf("derive:summary:%s", summary.Symbol)
	if err := c.cache.Set(ctx, key, data, c.cacheTTL).Err(); err != nil {
		return fmt.Errorf("failed to cache summary: %w", err)
	}

	return nil
}

// GetCachedSummary returns the latest cached summary, or nil on a miss
func (c *Client) GetCachedSummary(ctx context.Context, symbol string) (*models.DeriveSummary, error) {
	key := fmt.Sprintf("derive:summary:%s", symbol)

	data, err := c.cache.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get cached summary: %w", err)
	}

	var summary models.DeriveSummary
	if err := json.Unmarshal(data, &summary); err != nil {
		return nil, fmt.Errorf("failed to unmarshal summary: %w", err)
	}

	return &summary, nil
}

// Close closes redis connections
func (c *Client) Close() error {
	if c.cache != nil {
		logger.Info("closing redis client")
		if err := c.cache.Close(); err != nil {
			return fmt.Errorf("failed to close redis: %w", err)
		}
	}
	return nil
}

// Health checks redis health
func (c *Client) Health() error {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if err := c.cache.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis health check failed: %w", err)
	}

	return nil
}
