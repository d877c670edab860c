package repository

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/course-extractor/constants"
	"github.com/joseph-ayodele/course-extractor/internal/common"
	"github.com/joseph-ayodele/course-extractor/internal/entity"
)

func sampleTask(id string, created time.Time) *entity.Task {
	return &entity.Task{
		ID:     id,
		Status: constants.TaskStatusProcessing,
		Files: []entity.FileTask{
			{Index: 0, Filename: "CS_202409.pdf", SubjectCode: "CS", TermYear: "202409", Status: constants.FileStatusQueued},
			{Index: 1, Filename: "ECE_202409.pdf", SubjectCode: "ECE", TermYear: "202409", Status: constants.FileStatusDone, Records: 12},
		},
		CreatedAt: created,
		UpdatedAt: created,
	}
}

// exerciseStore runs the same contract against every backend.
func exerciseStore(t *testing.T, store TaskStore) {
	t.Helper()
	ctx := context.Background()
	base := time.Date(2024, 9, 1, 10, 0, 0, 0, time.UTC)

	_, err := store.Get(ctx, "missing")
	assert.True(t, errors.Is(err, common.ErrNotFound))

	for i := 0; i < 3; i++ {
		require.NoError(t, store.Put(ctx, sampleTask(fmt.Sprintf("task-%d", i), base.Add(time.Duration(i)*time.Minute))))
	}

	got, err := store.Get(ctx, "task-1")
	require.NoError(t, err)
	assert.Equal(t, "task-1", got.ID)
	require.Len(t, got.Files, 2)
	assert.Equal(t, 12, got.Files[1].Records)

	// upsert replaces the snapshot
	got.Status = constants.TaskStatusCompleted
	got.CombinedCount = 7
	got.UpdatedAt = base.Add(time.Hour)
	require.NoError(t, store.Put(ctx, got))
	again, err := store.Get(ctx, "task-1")
	require.NoError(t, err)
	assert.Equal(t, constants.TaskStatusCompleted, again.Status)
	assert.Equal(t, 7, again.CombinedCount)

	list, err := store.List(ctx, 2)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "task-2", list[0].ID)
	assert.Equal(t, "task-1", list[1].ID)

	require.NoError(t, store.Delete(ctx, "task-0"))
	_, err = store.Get(ctx, "task-0")
	assert.True(t, errors.Is(err, common.ErrNotFound))

	all, err := store.List(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	assert.Error(t, store.Put(ctx, &entity.Task{}))
	assert.NoError(t, store.Ping(ctx))
}

func TestMemoryTaskStore(t *testing.T) {
	store := NewMemoryTaskStore()
	exerciseStore(t, store)
}

func TestMemoryTaskStore_CopiesOnReadAndWrite(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryTaskStore()
	task := sampleTask("t", time.Now())
	require.NoError(t, store.Put(ctx, task))

	task.Files[0].Status = constants.FileStatusFailed
	got, err := store.Get(ctx, "t")
	require.NoError(t, err)
	assert.Equal(t, constants.FileStatusQueued, got.Files[0].Status)

	got.Files[1].Records = 0
	again, err := store.Get(ctx, "t")
	require.NoError(t, err)
	assert.Equal(t, 12, again.Files[1].Records)
}

func TestSQLTaskStore_SQLite(t *testing.T) {
	ctx := context.Background()
	dsn := "file:" + filepath.Join(t.TempDir(), "tasks.db")
	db, closeDB, err := OpenSQL(ctx, Config{Backend: common.StoreSQLite, DSN: dsn, DialTimeout: time.Second}, nil)
	require.NoError(t, err)
	t.Cleanup(closeDB)

	store := NewSQLTaskStore(db, nil)
	require.NoError(t, store.Migrate(ctx))
	require.NoError(t, store.Migrate(ctx), "migrate is idempotent")
	exerciseStore(t, store)
}

func TestSQLTaskStore_PutUsesUpsert(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	defer db.Close()

	store := NewSQLTaskStore(sqlx.NewDb(db, "sqlmock"), nil)
	task := sampleTask("abc", time.Date(2024, 9, 1, 0, 0, 0, 0, time.UTC))

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO tasks (id, status, payload, created_at, updated_at)") + `.*ON CONFLICT \(id\) DO UPDATE`).
		WithArgs("abc", "processing", sqlmock.AnyArg(), task.CreatedAt, task.UpdatedAt).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, store.Put(context.Background(), task))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLTaskStore_GetMapsNoRows(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	defer db.Close()

	store := NewSQLTaskStore(sqlx.NewDb(db, "sqlmock"), nil)
	mock.ExpectQuery(`SELECT id, status, payload, created_at, updated_at FROM tasks WHERE id = \?`).
		WithArgs("nope").
		WillReturnRows(sqlmock.NewRows([]string{"id", "status", "payload", "created_at", "updated_at"}))

	_, err = store.Get(context.Background(), "nope")
	assert.True(t, errors.Is(err, common.ErrNotFound))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLTaskStore_ListSkipsCorruptPayload(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	defer db.Close()

	store := NewSQLTaskStore(sqlx.NewDb(db, "sqlmock"), nil)
	now := time.Now()
	rows := sqlmock.NewRows([]string{"id", "status", "payload", "created_at", "updated_at"}).
		AddRow("good", "completed", `{"task_id":"good","status":"completed"}`, now, now).
		AddRow("bad", "completed", `{not json`, now, now)
	mock.ExpectQuery(`ORDER BY created_at DESC, id LIMIT \?`).WithArgs(10).WillReturnRows(rows)

	list, err := store.List(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "good", list[0].ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOpenSQL_UnknownBackend(t *testing.T) {
	_, _, err := OpenSQL(context.Background(), Config{Backend: "mongo"}, nil)
	assert.Error(t, err)
}
