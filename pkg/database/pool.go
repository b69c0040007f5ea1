package database

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

// PoolConfig - параметры пула соединений PostgreSQL.
type PoolConfig struct {
	DSN             string
	MaxConns        int32
	MaxConnIdleTime time.Duration
	ConnectRetries  int
	RetryDelay      time.Duration
	PingTimeout     time.Duration
}

// NewPool создаёт пул и проверяет соединение, повторяя попытки ConnectRetries раз.
func NewPool(ctx context.Context, cfg PoolConfig, logger *zap.Logger) (*pgxpool.Pool, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		// DSN некорректен, повторять бессмысленно
		return nil, fmt.Errorf("failed to parse DSN: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolConfig.MaxConns = cfg.MaxConns
	}
	if cfg.MaxConnIdleTime > 0 {
		poolConfig.MaxConnIdleTime = cfg.MaxConnIdleTime
	}

	retries := cfg.ConnectRetries
	if retries < 1 {
		retries = 1
	}
	pingTimeout := cfg.PingTimeout
	if pingTimeout <= 0 {
		pingTimeout = 5 * time.Second
	}

	var lastErr error
	for attempt := 1; attempt <= retries; attempt++ {
		pool, err := connectOnce(ctx, poolConfig, pingTimeout)
		if err == nil {
			logger.Info("Connected to PostgreSQL",
				zap.Int("attempt", attempt),
				zap.Int32("max_conns", poolConfig.MaxConns),
			)
			return pool, nil
		}
		lastErr = err
		logger.Warn("PostgreSQL connection attempt failed",
			zap.Int("attempt", attempt),
			zap.Int("max_attempts", retries),
			zap.Duration("retry_delay", cfg.RetryDelay),
			zap.Error(err),
		)
		if attempt == retries {
			break
		}
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("database connection cancelled: %w", ctx.Err())
		case <-time.After(cfg.RetryDelay):
		}
	}
	return nil, fmt.Errorf("failed to connect to PostgreSQL after %d attempts: %w", retries, lastErr)
}

func connectOnce(ctx context.Context, poolConfig *pgxpool.Config, timeout time.Duration) (*pgxpool.Pool, error) {
	attemptCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	pool, err := pgxpool.NewWithConfig(attemptCtx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create pool: %w", err)
	}
	if err := pool.Ping(attemptCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping failed: %w", err)
	}
	return pool, nil
}
