package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/joseph-ayodele/course-extractor/internal/common"
	"github.com/joseph-ayodele/course-extractor/internal/entity"
)

const redisKeyPrefix = "course-extractor:"

// RedisTaskStore keeps each task under its own key with a TTL and indexes
// task IDs by creation time in a sorted set.
type RedisTaskStore struct {
	client *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

// RedisConfig holds connection settings.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	TTL      time.Duration
}

// NewRedisClient builds a client and pings it.
func NewRedisClient(ctx context.Context, cfg RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping %s: %w", cfg.Addr, err)
	}
	return client, nil
}

func NewRedisTaskStore(client *redis.Client, ttl time.Duration, logger *zap.Logger) *RedisTaskStore {
	return &RedisTaskStore{client: client, ttl: ttl, logger: common.OrNop(logger)}
}

func taskKey(id string) string { return redisKeyPrefix + "task:" + id }

func indexKey() string { return redisKeyPrefix + "tasks" }

func (s *RedisTaskStore) Put(ctx context.Context, task *entity.Task) error {
	if task == nil || task.ID == "" {
		return common.InputError("task id is required")
	}
	payload, err := json.Marshal(task)
	if err != nil {
		return fmt.Errorf("marshal task %s: %w", task.ID, err)
	}
	pipe := s.client.TxPipeline()
	pipe.Set(ctx, taskKey(task.ID), payload, s.ttl)
	pipe.ZAdd(ctx, indexKey(), redis.Z{Score: float64(task.CreatedAt.UnixNano()), Member: task.ID})
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis put task %s: %w", task.ID, err)
	}
	return nil
}

func (s *RedisTaskStore) Get(ctx context.Context, id string) (*entity.Task, error) {
	raw, err := s.client.Get(ctx, taskKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, common.NotFound("task %q not found", id)
		}
		return nil, fmt.Errorf("redis get task %s: %w", id, err)
	}
	var t entity.Task
	if err := json.Unmarshal(raw, &t); err != nil {
		return nil, fmt.Errorf("decode task %s: %w", id, err)
	}
	return &t, nil
}

// List returns the newest tasks first and prunes index entries whose task expired.
func (s *RedisTaskStore) List(ctx context.Context, limit int) ([]*entity.Task, error) {
	stop := int64(-1)
	if limit > 0 {
		stop = int64(limit - 1)
	}
	ids, err := s.client.ZRevRange(ctx, indexKey(), 0, stop).Result()
	if err != nil {
		return nil, fmt.Errorf("redis list tasks: %w", err)
	}
	out := make([]*entity.Task, 0, len(ids))
	for _, id := range ids {
		t, err := s.Get(ctx, id)
		if errors.Is(err, common.ErrNotFound) {
			if err := s.client.ZRem(ctx, indexKey(), id).Err(); err != nil {
				s.logger.Warn("repository.redis.prune_failed", zap.String("task_id", id), zap.Error(err))
			}
			continue
		}
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, nil
}

func (s *RedisTaskStore) Delete(ctx context.Context, id string) error {
	pipe := s.client.TxPipeline()
	pipe.Del(ctx, taskKey(id))
	pipe.ZRem(ctx, indexKey(), id)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis delete task %s: %w", id, err)
	}
	return nil
}

func (s *RedisTaskStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

func (s *RedisTaskStore) Close() error {
	return s.client.Close()
}
