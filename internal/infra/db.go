package infra

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// DBPoolOptions tunes the credential store pool. Zero values keep the
// defaults below.
type DBPoolOptions struct {
	MaxConns        int32
	ApplicationName string
	ConnectTimeout  time.Duration
}

// NewDBPool opens and pings a pgx pool for the credential store.
func NewDBPool(ctx context.Context, cfg *Config, opts ...DBPoolOptions) (*pgxpool.Pool, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	var o DBPoolOptions
	if len(opts) > 0 {
		o = opts[0]
	}
	if o.MaxConns <= 0 {
		o.MaxConns = 10
	}
	if o.ApplicationName == "" {
		o.ApplicationName = "filmgen"
	}
	if o.ConnectTimeout <= 0 {
		o.ConnectTimeout = 10 * time.Second
	}

	poolCfg, err := pgxpool.ParseConfig(cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}
	// Credential lookups are small point reads.
	poolCfg.MaxConns = o.MaxConns
	poolCfg.MinConns = 1
	poolCfg.MaxConnLifetime = time.Hour
	poolCfg.MaxConnIdleTime = 30 * time.Minute
	poolCfg.HealthCheckPeriod = time.Minute
	poolCfg.ConnConfig.RuntimeParams["application_name"] = o.ApplicationName

	ctx, cancel := context.WithTimeout(ctx, o.ConnectTimeout)
	defer cancel()

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return pool, nil
}
