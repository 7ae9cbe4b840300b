package persist

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/petfx/server/internal/config"
	"go.uber.org/zap"
)

const (
	journalAppName    = "petfx-journal"
	pingTimeout       = 5 * time.Second
	healthCheckPeriod = 30 * time.Second
)

// DB is the journal's connection pool. The journal writes batches from the
// tick thread only, so the pool stays small.
type DB struct {
	Pool *pgxpool.Pool
	log  *zap.Logger
}

// poolConfig maps the journal section onto pgxpool settings.
func poolConfig(cfg config.JournalConfig) (*pgxpool.Config, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse journal dsn: %w", err)
	}
	maxConns := int32(max(cfg.MaxOpenConns, 1))
	poolCfg.MaxConns = maxConns
	poolCfg.MinConns = min(int32(max(cfg.MaxIdleConns, 0)), maxConns)
	if cfg.ConnMaxLifetime > 0 {
		poolCfg.MaxConnLifetime = cfg.ConnMaxLifetime
	}
	poolCfg.HealthCheckPeriod = healthCheckPeriod
	poolCfg.ConnConfig.RuntimeParams["application_name"] = journalAppName
	return poolCfg, nil
}

func NewDB(ctx context.Context, cfg config.JournalConfig, log *zap.Logger) (*DB, error) {
	if log == nil {
		log = zap.NewNop()
	}
	poolCfg, err := poolConfig(cfg)
	if err != nil {
		return nil, err
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("open journal pool: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping journal db %s: %w", poolCfg.ConnConfig.Host, err)
	}

	log = log.With(zap.String("journal_db", poolCfg.ConnConfig.Database))
	log.Info("journal database connected",
		zap.String("host", poolCfg.ConnConfig.Host),
		zap.Int32("max_conns", poolCfg.MaxConns),
	)
	return &DB{Pool: pool, log: log}, nil
}

func (db *DB) Close() {
	db.Pool.Close()
	db.log.Debug("journal pool closed")
}
