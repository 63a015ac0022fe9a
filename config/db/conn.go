package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joy095/marketplace/config"
	"github.com/joy095/marketplace/logger"
)

// Connect opens the Postgres pool described by DATABASE_URL. The pool is
// returned to the caller and passed explicitly to every repository.
func Connect(ctx context.Context) (*pgxpool.Pool, error) {
	dsn := config.GetString("DATABASE_URL", "")
	if dsn == "" {
		return nil, errors.New("DATABASE_URL not set")
	}

	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("unable to parse DATABASE_URL: %w", err)
	}

	cfg.MaxConns = int32(config.GetInt("DB_MAX_CONNS", 10))
	cfg.MinConns = 2
	cfg.MaxConnLifetime = time.Hour
	cfg.MaxConnIdleTime = 30 * time.Minute

	start := time.Now()

	connectCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	pool, err := pgxpool.NewWithConfig(connectCtx, cfg)
	if err != nil {
		return nil, fmt.Errorf("database connection error: %w", err)
	}

	// Ping in the background so a cold database does not block startup.
	go func() {
		pingCtx, pingCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer pingCancel()

		if err := pool.Ping(pingCtx); err != nil {
			logger.WarnLogger.Warnf("Database cold start or unreachable: %v", err)
			return
		}
		logger.InfoLogger.Infof("Database ready (ping ok in %v)", time.Since(start))
	}()

	logger.InfoLogger.Info("Connected to PostgreSQL pool (async ping).")
	return pool, nil
}

func Close(pool *pgxpool.Pool) {
	if pool != nil {
		pool.Close()
		logger.InfoLogger.Info("Disconnected from PostgreSQL.")
	}
}
