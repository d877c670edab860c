package repository

import (
	"context"

	"github.com/joseph-ayodele/course-extractor/internal/entity"
)

// TaskStore persists task snapshots. Implementations return common.ErrNotFound
// for unknown IDs and never share memory with callers.
type TaskStore interface {
	Put(ctx context.Context, task *entity.Task) error
	Get(ctx context.Context, id string) (*entity.Task, error)
	List(ctx context.Context, limit int) ([]*entity.Task, error)
	Delete(ctx context.Context, id string) error
	Ping(ctx context.Context) error
	Close() error
}
