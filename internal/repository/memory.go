package repository

import (
	"context"
	"sort"
	"sync"

	"github.com/joseph-ayodele/course-extractor/internal/common"
	"github.com/joseph-ayodele/course-extractor/internal/entity"
)

// MemoryTaskStore is the process-wide registry; tasks do not survive a restart.
type MemoryTaskStore struct {
	mu    sync.RWMutex
	tasks map[string]*entity.Task
}

func NewMemoryTaskStore() *MemoryTaskStore {
	return &MemoryTaskStore{tasks: make(map[string]*entity.Task)}
}

func (s *MemoryTaskStore) Put(_ context.Context, task *entity.Task) error {
	if task == nil || task.ID == "" {
		return common.InputError("task id is required")
	}
	cp := task.Clone()
	s.mu.Lock()
	s.tasks[cp.ID] = cp
	s.mu.Unlock()
	return nil
}

func (s *MemoryTaskStore) Get(_ context.Context, id string) (*entity.Task, error) {
	s.mu.RLock()
	t, ok := s.tasks[id]
	s.mu.RUnlock()
	if !ok {
		return nil, common.NotFound("task %q not found", id)
	}
	return t.Clone(), nil
}

// List returns the newest tasks first; limit <= 0 returns all.
func (s *MemoryTaskStore) List(_ context.Context, limit int) ([]*entity.Task, error) {
	s.mu.RLock()
	out := make([]*entity.Task, 0, len(s.tasks))
	for _, t := range s.tasks {
		out = append(out, t.Clone())
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *MemoryTaskStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	delete(s.tasks, id)
	s.mu.Unlock()
	return nil
}

func (s *MemoryTaskStore) Ping(context.Context) error { return nil }

func (s *MemoryTaskStore) Close() error { return nil }
