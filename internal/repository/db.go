package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"github.com/joseph-ayodele/course-extractor/internal/common"
)

type Config struct {
	Backend          string // common.StorePostgres | common.StoreSQLite
	DSN              string
	MaxConns         int32
	MinConns         int32
	MaxConnLifetime  time.Duration
	MaxConnIdleTime  time.Duration
	DialTimeout      time.Duration
	StatementTimeout time.Duration
}

// OpenSQL connects to postgres through a pgx pool or to sqlite through the
// pure-Go driver, and returns a sqlx handle plus its closer.
func OpenSQL(ctx context.Context, cfg Config, logger *zap.Logger) (*sqlx.DB, func(), error) {
	logger = common.OrNop(logger)
	switch cfg.Backend {
	case common.StorePostgres:
		return openPostgres(ctx, cfg, logger)
	case common.StoreSQLite:
		db, err := sqlx.Open("sqlite", cfg.DSN)
		if err != nil {
			return nil, nil, fmt.Errorf("open sqlite: %w", err)
		}
		// one writer avoids SQLITE_BUSY under concurrent task updates
		db.SetMaxOpenConns(1)
		if err := HealthCheck(ctx, db, cfg.DialTimeout, logger); err != nil {
			_ = db.Close()
			return nil, nil, err
		}
		logger.Info("opened sqlite task store", zap.String("dsn", cfg.DSN))
		return db, func() { Close(db, nil, logger) }, nil
	default:
		return nil, nil, fmt.Errorf("unsupported sql backend %q", cfg.Backend)
	}
}

func openPostgres(ctx context.Context, cfg Config, logger *zap.Logger) (*sqlx.DB, func(), error) {
	logger.Info("connecting to database")
	pc, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		logger.Error("failed to parse database dsn", zap.Error(err))
		return nil, nil, err
	}

	if cfg.MaxConns > 0 {
		pc.MaxConns = cfg.MaxConns
	}
	pc.MinConns = cfg.MinConns
	if cfg.MaxConnLifetime > 0 {
		pc.MaxConnLifetime = cfg.MaxConnLifetime
	}
	if cfg.MaxConnIdleTime > 0 {
		pc.MaxConnIdleTime = cfg.MaxConnIdleTime
	}
	pc.ConnConfig.RuntimeParams["application_name"] = "course-extractor"
	if cfg.StatementTimeout > 0 {
		pc.ConnConfig.RuntimeParams["statement_timeout"] = fmt.Sprintf("%d", cfg.StatementTimeout.Milliseconds())
	}

	dialCtx := ctx
	if cfg.DialTimeout > 0 {
		var cancel context.CancelFunc
		dialCtx, cancel = context.WithTimeout(ctx, cfg.DialTimeout)
		defer cancel()
	}
	pool, err := pgxpool.NewWithConfig(dialCtx, pc)
	if err != nil {
		logger.Error("failed to connect to database", zap.Error(err))
		return nil, nil, err
	}

	// Wrap pool as *sql.DB for sqlx
	db := sqlx.NewDb(stdlib.OpenDBFromPool(pool), "pgx")
	if err := HealthCheck(ctx, db, cfg.DialTimeout, logger); err != nil {
		Close(db, pool, logger)
		return nil, nil, err
	}

	logger.Info("successfully connected to database")
	return db, func() { Close(db, pool, logger) }, nil
}

// Close closes the database connections gracefully
func Close(db *sqlx.DB, pool *pgxpool.Pool, logger *zap.Logger) {
	logger.Info("closing database connections")
	if db != nil {
		if err := db.Close(); err != nil {
			logger.Error("failed to close sql handle", zap.Error(err))
		}
	}
	if pool != nil {
		pool.Close()
	}
	logger.Info("database connections closed")
}

// HealthCheck pings using database/sql to catch DSN issues early.
func HealthCheck(ctx context.Context, db *sqlx.DB, timeout time.Duration, logger *zap.Logger) error {
	logger.Debug("pinging database")
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	if err := db.PingContext(ctx); err != nil {
		return fmt.Errorf("ping database: %w", err)
	}
	logger.Debug("database ping successful")
	return nil
}
