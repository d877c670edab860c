package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/joseph-ayodele/course-extractor/internal/common"
	"github.com/joseph-ayodele/course-extractor/internal/entity"
)

const tasksSchema = `CREATE TABLE IF NOT EXISTS tasks (
	id TEXT PRIMARY KEY,
	status TEXT NOT NULL,
	payload TEXT NOT NULL,
	created_at TIMESTAMP NOT NULL,
	updated_at TIMESTAMP NOT NULL
)`

const tasksIndex = `CREATE INDEX IF NOT EXISTS tasks_created_at_idx ON tasks (created_at)`

type taskRow struct {
	ID        string    `db:"id"`
	Status    string    `db:"status"`
	Payload   string    `db:"payload"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

// SQLTaskStore keeps one row per task with the full snapshot as JSON.
// Queries use ? placeholders and are rebound for the driver.
type SQLTaskStore struct {
	db     *sqlx.DB
	logger *zap.Logger
}

func NewSQLTaskStore(db *sqlx.DB, logger *zap.Logger) *SQLTaskStore {
	return &SQLTaskStore{db: db, logger: common.OrNop(logger)}
}

// Migrate creates the tasks table when missing.
func (s *SQLTaskStore) Migrate(ctx context.Context) error {
	for _, stmt := range []string{tasksSchema, tasksIndex} {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate tasks: %w", err)
		}
	}
	return nil
}

func (s *SQLTaskStore) Put(ctx context.Context, task *entity.Task) error {
	if task == nil || task.ID == "" {
		return common.InputError("task id is required")
	}
	payload, err := json.Marshal(task)
	if err != nil {
		return fmt.Errorf("marshal task %s: %w", task.ID, err)
	}
	query := s.db.Rebind(`INSERT INTO tasks (id, status, payload, created_at, updated_at)
VALUES (?, ?, ?, ?, ?)
ON CONFLICT (id) DO UPDATE SET status = excluded.status, payload = excluded.payload, updated_at = excluded.updated_at`)
	if _, err := s.db.ExecContext(ctx, query, task.ID, string(task.Status), string(payload), task.CreatedAt.UTC(), task.UpdatedAt.UTC()); err != nil {
		return fmt.Errorf("upsert task %s: %w", task.ID, err)
	}
	return nil
}

func (s *SQLTaskStore) Get(ctx context.Context, id string) (*entity.Task, error) {
	var row taskRow
	query := s.db.Rebind(`SELECT id, status, payload, created_at, updated_at FROM tasks WHERE id = ?`)
	if err := s.db.GetContext(ctx, &row, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.NotFound("task %q not found", id)
		}
		return nil, fmt.Errorf("get task %s: %w", id, err)
	}
	return decodeTask(row.Payload)
}

// List returns the newest tasks first; limit <= 0 returns all.
func (s *SQLTaskStore) List(ctx context.Context, limit int) ([]*entity.Task, error) {
	query := `SELECT id, status, payload, created_at, updated_at FROM tasks ORDER BY created_at DESC, id`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}
	var rows []taskRow
	if err := s.db.SelectContext(ctx, &rows, s.db.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	out := make([]*entity.Task, 0, len(rows))
	for _, row := range rows {
		t, err := decodeTask(row.Payload)
		if err != nil {
			s.logger.Warn("repository.task.decode_failed", zap.String("task_id", row.ID), zap.Error(err))
			continue
		}
		out = append(out, t)
	}
	return out, nil
}

func (s *SQLTaskStore) Delete(ctx context.Context, id string) error {
	if _, err := s.db.ExecContext(ctx, s.db.Rebind(`DELETE FROM tasks WHERE id = ?`), id); err != nil {
		return fmt.Errorf("delete task %s: %w", id, err)
	}
	return nil
}

func (s *SQLTaskStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *SQLTaskStore) Close() error {
	return s.db.Close()
}

func decodeTask(payload string) (*entity.Task, error) {
	var t entity.Task
	if err := json.Unmarshal([]byte(payload), &t); err != nil {
		return nil, fmt.Errorf("decode task payload: %w", err)
	}
	return &t, nil
}
