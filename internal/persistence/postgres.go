package persistence

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/spec-kit/support-bot/internal/config"
)

const (
	auditApplicationName = "support-bot-audit"
	connectTimeout       = 5 * time.Second
)

// AuditDB is the Postgres pool behind the audit trail. A nil *AuditDB means
// auditing is switched off; every method is safe to call on it.
type AuditDB struct {
	pool *pgxpool.Pool
}

// OpenAuditDB connects to Postgres and applies pending migrations when
// configured. It returns nil without error when no DSN is set.
func OpenAuditDB(ctx context.Context, cfg config.PostgresConfig, logger *zap.Logger) (*AuditDB, error) {
	if cfg.DSN == "" {
		logger.Info("POSTGRES_DSN not set; audit trail disabled")
		return nil, nil
	}

	poolCfg, err := auditPoolConfig(cfg)
	if err != nil {
		return nil, err
	}
	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("open audit pool: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping audit db: %w", err)
	}

	db := &AuditDB{pool: pool}
	if cfg.RunMigrations {
		if err := RunMigrations(ctx, pool, cfg.MigrationsDir, logger); err != nil {
			db.Close()
			return nil, err
		}
	}

	logger.Info("audit trail enabled",
		zap.String("host", poolCfg.ConnConfig.Host),
		zap.String("database", poolCfg.ConnConfig.Database),
		zap.Int32("max_conns", poolCfg.MaxConns))
	return db, nil
}

// auditPoolConfig parses the DSN and applies pool limits. It does not connect.
func auditPoolConfig(cfg config.PostgresConfig) (*pgxpool.Config, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse POSTGRES_DSN: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	if cfg.MinConns > 0 {
		poolCfg.MinConns = min(cfg.MinConns, poolCfg.MaxConns)
	}
	if cfg.ConnMaxIdleSec > 0 {
		poolCfg.MaxConnIdleTime = time.Duration(cfg.ConnMaxIdleSec) * time.Second
	}
	if cfg.ConnMaxLifeSec > 0 {
		poolCfg.MaxConnLifetime = time.Duration(cfg.ConnMaxLifeSec) * time.Second
	}
	if _, ok := poolCfg.ConnConfig.RuntimeParams["application_name"]; !ok {
		poolCfg.ConnConfig.RuntimeParams["application_name"] = auditApplicationName
	}
	return poolCfg, nil
}

// Pool returns the pool, or nil when auditing is off.
func (d *AuditDB) Pool() *pgxpool.Pool {
	if d == nil {
		return nil
	}
	return d.pool
}

// Close releases pool resources.
func (d *AuditDB) Close() {
	if d != nil && d.pool != nil {
		d.pool.Close()
	}
}
