// Package cache provides the Redis connection and caching decorators for
// AI provider calls
package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/omq/mealsync/internal/infrastructure/config"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// RedisClient provides Redis connection management
type RedisClient struct {
	client redis.UniversalClient
	config *config.RedisConfig
	logger *zap.Logger
}

// NewRedisClient connects to Redis and verifies the connection
func NewRedisClient(cfg *config.RedisConfig, logger *zap.Logger) (*RedisClient, error) {
	if cfg == nil {
		return nil, fmt.Errorf("redis config cannot be nil")
	}

	client := redis.NewUniversalClient(&redis.UniversalOptions{
		Addrs:        []string{fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)},
		Password:     cfg.Password,
		DB:           cfg.Database,
		MaxRetries:   cfg.MaxRetries,
		PoolSize:     cfg.PoolSize,
		DialTimeout:  cfg.DialTimeout,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		PoolTimeout:  10 * time.Second,
	})

	rc := &RedisClient{
		client: client,
		config: cfg,
		logger: logger.Named("redis"),
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := rc.Ping(ctx); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	rc.logger.Info("Redis client initialized successfully",
		zap.String("host", cfg.Host),
		zap.Int("port", cfg.Port),
		zap.Int("database", cfg.Database),
	)
	return rc, nil
}

// Ping checks the connection
func (rc *RedisClient) Ping(ctx context.Context) error {
	return rc.client.Ping(ctx).Err()
}

// Client returns the underlying go-redis client
func (rc *RedisClient) Client() redis.UniversalClient {
	return rc.client
}

// Close closes the connection pool
func (rc *RedisClient) Close() error {
	return rc.client.Close()
}
