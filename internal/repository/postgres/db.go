package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

type Config struct {
	DSN               string        `mapstructure:"dsn"`
	MaxConns          int32         `mapstructure:"max_conns"`
	MinConns          int32         `mapstructure:"min_conns"`
	MaxConnLifetime   time.Duration `mapstructure:"max_conn_lifetime"`
	MaxConnIdleTime   time.Duration `mapstructure:"max_conn_idle_time"`
	HealthCheckPeriod time.Duration `mapstructure:"health_check_period"`
	QueryTimeout      time.Duration `mapstructure:"query_timeout"`
}

// DB wraps a pgx pool with a per-query timeout applied by every repo.
type DB struct {
	Pool         *pgxpool.Pool
	QueryTimeout time.Duration
}

// NewDB parses the DSN, applies pool limits from cfg (zero values keep the
// pgx defaults), and pings once so a bad DSN fails at startup instead of on
// the first query.
func NewDB(ctx context.Context, cfg Config) (*DB, error) {
	pc, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse pool config: %w", err)
	}

	if v := cfg.MaxConns; v > 0 {
		pc.MaxConns = v
	}
	if v := cfg.MinConns; v > 0 {
		pc.MinConns = v
	}
	if v := cfg.MaxConnLifetime; v > 0 {
		pc.MaxConnLifetime = v
	}
	if v := cfg.MaxConnIdleTime; v > 0 {
		pc.MaxConnIdleTime = v
	}
	if v := cfg.HealthCheckPeriod; v > 0 {
		pc.HealthCheckPeriod = v
	}

	pool, err := pgxpool.NewWithConfig(ctx, pc)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping db: %w", err)
	}

	return &DB{Pool: pool, QueryTimeout: cfg.QueryTimeout}, nil
}

func (db *DB) Close() { db.Pool.Close() }

func (db *DB) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if db.QueryTimeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, db.QueryTimeout)
}
