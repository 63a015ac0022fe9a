package pricing_models

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joy095/marketplace/logger"
	"github.com/joy095/marketplace/utils"
	"github.com/redis/go-redis/v9"
)

const pricingCacheKey = "settings:pricing"

// Store reads the pricing settings row, caching it in Redis when available.
type Store struct {
	db       *pgxpool.Pool
	rdb      *redis.Client
	ttl      time.Duration
	defaults PricingConfig
}

func NewStore(db *pgxpool.Pool, rdb *redis.Client, ttl time.Duration, defaults PricingConfig) *Store {
	return &Store{db: db, rdb: rdb, ttl: ttl, defaults: defaults}
}

// GetPricingConfig returns the current settings, or the configured defaults
// when no settings row exists yet.
func (s *Store) GetPricingConfig(ctx context.Context) (PricingConfig, error) {
	if cfg, ok := s.cached(ctx); ok {
		return cfg, nil
	}

	var cfg PricingConfig
	err := s.db.QueryRow(ctx, `
		SELECT platform_fee_percent, min_fee, gst_rate_percent
		FROM pricing_settings
		ORDER BY updated_at DESC
		LIMIT 1`,
	).Scan(&cfg.PlatformFeePercent, &cfg.MinFee, &cfg.GSTRatePercent)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			logger.WarnLogger.Warn("No pricing_settings row found, using defaults")
			return s.defaults, nil
		}
		return PricingConfig{}, utils.NewPersistenceError("get pricing config", err)
	}

	s.store(ctx, cfg)
	return cfg, nil
}

func (s *Store) cached(ctx context.Context) (PricingConfig, bool) {
	if s.rdb == nil {
		return PricingConfig{}, false
	}
	raw, err := s.rdb.Get(ctx, pricingCacheKey).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			logger.WarnLogger.Warnf("Pricing cache read failed: %v", err)
		}
		return PricingConfig{}, false
	}
	var cfg PricingConfig
	if err := json.Unmarshal(raw, &cfg); err != nil {
		logger.WarnLogger.Warnf("Discarding malformed pricing cache entry: %v", err)
		return PricingConfig{}, false
	}
	return cfg, true
}

func (s *Store) store(ctx context.Context, cfg PricingConfig) {
	if s.rdb == nil {
		return
	}
	raw, err := json.Marshal(cfg)
	if err != nil {
		logger.WarnLogger.Warnf("Failed to encode pricing config for cache: %v", err)
		return
	}
	if err := s.rdb.Set(ctx, pricingCacheKey, raw, s.ttl).Err(); err != nil {
		logger.WarnLogger.Warnf("Pricing cache write failed: %v", err)
	}
}

// SavePricingConfig records new settings and drops the cached copy.
func (s *Store) SavePricingConfig(ctx context.Context, cfg PricingConfig) error {
	if err := cfg.Validate(); err != nil {
		return err
	}

	_, err := s.db.Exec(ctx, `
		INSERT INTO pricing_settings (platform_fee_percent, min_fee, gst_rate_percent, updated_at)
		VALUES ($1, $2, $3, NOW())`,
		cfg.PlatformFeePercent, cfg.MinFee, cfg.GSTRatePercent,
	)
	if err != nil {
		logger.ErrorLogger.Errorf("Failed to save pricing settings: %v", err)
		return utils.NewPersistenceError("save pricing config", err)
	}

	if err := s.Invalidate(ctx); err != nil {
		logger.WarnLogger.Warnf("%v", err)
	}
	logger.InfoLogger.Infof("Pricing updated: fee %s%%, min %s, gst %s%%", cfg.PlatformFeePercent, cfg.MinFee, cfg.GSTRatePercent)
	return nil
}

// Invalidate drops the cached settings so the next read hits the database.
func (s *Store) Invalidate(ctx context.Context) error {
	if s.rdb == nil {
		return nil
	}
	if err := s.rdb.Del(ctx, pricingCacheKey).Err(); err != nil {
		return fmt.Errorf("failed to invalidate pricing cache: %w", err)
	}
	return nil
}
