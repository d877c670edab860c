package server

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/joseph-ayodele/course-extractor/internal/common"
	"github.com/joseph-ayodele/course-extractor/internal/repository"
)

// OpenTaskStore connects the task store selected by cfg.Backend.
func OpenTaskStore(ctx context.Context, cfg common.StoreConfig, logger *zap.Logger) (repository.TaskStore, error) {
	logger = common.OrNop(logger)
	logger.Info("opening task store", zap.String("backend", cfg.Backend))

	switch cfg.Backend {
	case common.StoreMemory, "":
		return repository.NewMemoryTaskStore(), nil

	case common.StoreRedis:
		client, err := repository.NewRedisClient(ctx, repository.RedisConfig{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		if err != nil {
			logger.Error("failed to connect to redis", zap.Error(err))
			return nil, err
		}
		return repository.NewRedisTaskStore(client, cfg.TaskTTL, logger), nil

	case common.StoreSQLite, common.StorePostgres:
		db, closeDB, err := repository.OpenSQL(ctx, repository.Config{
			Backend:         cfg.Backend,
			DSN:             cfg.DSN,
			MaxConns:        cfg.MaxConns,
			MinConns:        1,
			MaxConnLifetime: 30 * time.Minute,
			MaxConnIdleTime: 5 * time.Minute,
			DialTimeout:     cfg.DialTimeout,
		}, logger)
		if err != nil {
			return nil, err
		}
		store := repository.NewSQLTaskStore(db, logger)
		if err := store.Migrate(ctx); err != nil {
			closeDB()
			return nil, err
		}
		return &closingStore{SQLTaskStore: store, closeFn: closeDB}, nil

	default:
		return nil, fmt.Errorf("unknown task store backend %q", cfg.Backend)
	}
}

// closingStore releases the pool behind a SQL store on Close.
type closingStore struct {
	*repository.SQLTaskStore
	closeFn func()
}

func (s *closingStore) Close() error {
	s.closeFn()
	return nil
}

// PingStore pings the store to ensure it's responsive
func PingStore(ctx context.Context, store Pinger, logger *zap.Logger, timeout time.Duration) error {
	logger = common.OrNop(logger)
	logger.Debug("pinging task store")
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	if err := store.Ping(ctx); err != nil {
		logger.Error("task store ping failed", zap.Error(err))
		return err
	}
	logger.Debug("task store ping successful")
	return nil
}
