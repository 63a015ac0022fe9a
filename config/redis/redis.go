package redis

import (
	"context"
	"fmt"

	"github.com/joy095/marketplace/config"
	"github.com/joy095/marketplace/logger"
	"github.com/redis/go-redis/v9"
)

// Connect returns a Redis client for REDIS_URL. It returns (nil, nil) when
// REDIS_URL is unset so callers can fall back to in-process implementations.
func Connect(ctx context.Context) (*redis.Client, error) {
	redisURL := config.GetString("REDIS_URL", "")
	if redisURL == "" {
		logger.WarnLogger.Warn("REDIS_URL not set, running without redis")
		return nil, nil
	}

	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_URL: %w", err)
	}

	client := redis.NewClient(opt)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	logger.InfoLogger.Info("Connected to Redis")
	return client, nil
}

// Close closes the client if it was opened.
func Close(client *redis.Client) {
	if client == nil {
		return
	}
	if err := client.Close(); err != nil {
		logger.ErrorLogger.Errorf("Error closing Redis connection: %v", err)
		return
	}
	logger.InfoLogger.Info("Redis connection closed")
}
