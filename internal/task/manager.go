// Package task owns the lifecycle of a submission batch: it registers files,
// schedules them on the worker pool, tracks progress and merges once every
// file has resolved.
package task

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/joseph-ayodele/course-extractor/constants"
	"github.com/joseph-ayodele/course-extractor/internal/async"
	"github.com/joseph-ayodele/course-extractor/internal/common"
	"github.com/joseph-ayodele/course-extractor/internal/entity"
	"github.com/joseph-ayodele/course-extractor/internal/export"
	"github.com/joseph-ayodele/course-extractor/internal/merge"
	"github.com/joseph-ayodele/course-extractor/internal/metrics"
	"github.com/joseph-ayodele/course-extractor/internal/pipeline"
	"github.com/joseph-ayodele/course-extractor/internal/record"
	"github.com/joseph-ayodele/course-extractor/internal/storage"
)

// Store is the task registry. Implementations live in internal/repository.
type Store interface {
	Put(ctx context.Context, task *entity.Task) error
	Get(ctx context.Context, id string) (*entity.Task, error)
	List(ctx context.Context, limit int) ([]*entity.Task, error)
}

// Processor runs one document to its records.
type Processor interface {
	Process(ctx context.Context, job pipeline.Job, tr pipeline.Tracker) (pipeline.Outcome, error)
}

// Renderer turns a merge result into named artifacts.
type Renderer interface {
	Render(taskID string, res merge.Result) ([]export.Artifact, error)
}

type Config struct {
	MaxUploadBytes int64
	GraduateOnly   bool
	IgnoreTitles   []string
	KeepUploads    bool
}

// Deps groups the collaborators of a Manager.
type Deps struct {
	Store     Store
	Uploads   *storage.LocalStorage
	Outputs   *storage.LocalStorage
	Queue     async.Queue
	Processor Processor
	Renderer  Renderer
	Metrics   *metrics.Metrics
	Logger    *zap.Logger
}

type Manager struct {
	store    Store
	uploads  *storage.LocalStorage
	outputs  *storage.LocalStorage
	queue    async.Queue
	proc     Processor
	renderer Renderer
	metrics  *metrics.Metrics
	logger   *zap.Logger
	cfg      Config
	validate *validator.Validate
	now      func() time.Time

	mu   sync.Mutex
	runs map[string]*run
	wg   sync.WaitGroup
}

// run is the in-flight state of one task. Every mutation of task happens
// under mu and is written through to the store before mu is released, so
// readers of the store never observe progress going backwards.
type run struct {
	mu       sync.Mutex
	task     *entity.Task
	records  [][]record.Record
	resolved int
}

func NewManager(deps Deps, cfg Config) *Manager {
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = constants.MaxUploadBytesDefault
	}
	return &Manager{
		store:    deps.Store,
		uploads:  deps.Uploads,
		outputs:  deps.Outputs,
		queue:    deps.Queue,
		proc:     deps.Processor,
		renderer: deps.Renderer,
		metrics:  deps.Metrics,
		logger:   common.OrNop(deps.Logger).Named("task"),
		cfg:      cfg,
		validate: newValidator(),
		now:      func() time.Time { return time.Now().UTC() },
		runs:     make(map[string]*run),
	}
}

// CreateTask stores the uploads, registers one queued FileTask per input and
// returns without waiting for processing. Invalid submissions are rejected
// with an input error before any task exists.
func (m *Manager) CreateTask(ctx context.Context, inputs []FileInput) (string, error) {
	if len(inputs) == 0 {
		return "", common.InputError("at least one file is required")
	}
	for i, in := range inputs {
		if err := m.check(i, in); err != nil {
			return "", err
		}
	}

	id := uuid.NewString()
	now := m.now()
	files := make([]entity.FileTask, 0, len(inputs))
	for i, in := range inputs {
		f, err := m.storeUpload(id, i, in, now)
		if err != nil {
			m.discardUploads(id)
			return "", err
		}
		files = append(files, f)
	}

	t := &entity.Task{
		ID:        id,
		Status:    constants.TaskStatusProcessing,
		Files:     files,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := m.store.Put(ctx, t); err != nil {
		m.discardUploads(id)
		return "", fmt.Errorf("register task: %w", err)
	}

	r := &run{task: t.Clone(), records: make([][]record.Record, len(files))}
	m.mu.Lock()
	m.runs[id] = r
	m.mu.Unlock()

	// one for the task, one for the dispatcher
	m.wg.Add(2)
	m.metrics.TaskStarted()
	m.logger.Info("task.created", zap.String("task_id", id), zap.Int("files", len(files)))

	go m.dispatch(r)
	return id, nil
}

func (m *Manager) storeUpload(id string, i int, in FileInput, now time.Time) (entity.FileTask, error) {
	body, err := sniffPDF(in.Content, in.Filename)
	if err != nil {
		return entity.FileTask{}, err
	}
	h := sha256.New()
	key := storage.Key(id, fmt.Sprintf("%02d-%s", i, in.Filename), now)
	n, err := m.uploads.SaveStream(key, io.TeeReader(body, h), m.cfg.MaxUploadBytes)
	if err != nil {
		if errors.Is(err, common.ErrInput) {
			return entity.FileTask{}, common.InputError("%s: %v", in.Filename, err)
		}
		return entity.FileTask{}, fmt.Errorf("store upload %s: %w", in.Filename, err)
	}
	return entity.FileTask{
		Index:       i,
		Filename:    in.Filename,
		UploadKey:   key,
		SizeBytes:   n,
		ContentHash: hex.EncodeToString(h.Sum(nil)),
		SubjectCode: normalizeSubject(in.SubjectCode),
		TermYear:    in.TermYear,
		Status:      constants.FileStatusQueued,
	}, nil
}

// dispatch hands every file to the queue. A file the queue refuses resolves
// as failed so the task still reaches a terminal state.
func (m *Manager) dispatch(r *run) {
	defer m.wg.Done()

	r.mu.Lock()
	id := r.task.ID
	n := len(r.task.Files)
	r.mu.Unlock()

	for i := 0; i < n; i++ {
		idx := i
		job := async.Job{
			TaskID: id,
			Name:   fmt.Sprintf("file-%d", idx),
			Run: func(ctx context.Context) error {
				return m.runFile(ctx, r, idx)
			},
		}
		if err := m.queue.Enqueue(context.Background(), job); err != nil {
			m.logger.Error("task.file.enqueue_failed", zap.String("task_id", id), zap.Int("index", idx), zap.Error(err))
			m.resolveFile(context.Background(), r, idx, pipeline.Outcome{}, fmt.Errorf("schedule file: %w", err))
		}
	}
}

func (m *Manager) runFile(ctx context.Context, r *run, idx int) error {
	defer func() {
		if p := recover(); p != nil {
			m.resolveFile(ctx, r, idx, pipeline.Outcome{}, fmt.Errorf("processing panicked: %v", p))
			panic(p)
		}
	}()

	r.mu.Lock()
	f := r.task.Files[idx]
	r.mu.Unlock()

	path, err := m.uploads.Path(f.UploadKey)
	if err != nil {
		m.resolveFile(ctx, r, idx, pipeline.Outcome{}, err)
		return err
	}
	out, err := m.proc.Process(ctx, pipeline.Job{
		Path:        path,
		Filename:    f.Filename,
		SubjectCode: f.SubjectCode,
		TermYear:    f.TermYear,
	}, &tracker{m: m, r: r, idx: idx, ctx: ctx})
	m.resolveFile(ctx, r, idx, out, err)
	return err
}

// tracker applies forward-only state changes of one file.
type tracker struct {
	m   *Manager
	r   *run
	idx int
	ctx context.Context
}

func (t *tracker) Advance(status constants.FileStatus) {
	t.m.update(t.ctx, t.r, func(task *entity.Task) bool {
		f := &task.Files[t.idx]
		if !f.Status.CanTransition(status) || status.IsTerminal() {
			return false
		}
		f.Status = status
		if f.StartedAt == nil {
			now := t.m.now()
			f.StartedAt = &now
		}
		return true
	})
}

// update mutates the task under its lock and writes the result through.
func (m *Manager) update(ctx context.Context, r *run, fn func(*entity.Task) bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !fn(r.task) {
		return
	}
	r.task.UpdatedAt = m.now()
	m.persist(ctx, r.task)
}

// persist must be called with the run lock held.
func (m *Manager) persist(ctx context.Context, t *entity.Task) {
	if err := m.store.Put(context.WithoutCancel(ctx), t); err != nil {
		m.logger.Error("task.store.put_failed", zap.String("task_id", t.ID), zap.Error(err))
	}
}

// resolveFile records the terminal state of one file exactly once. The file
// that brings the resolved count to the total triggers the merge.
func (m *Manager) resolveFile(ctx context.Context, r *run, idx int, out pipeline.Outcome, err error) {
	r.mu.Lock()
	f := &r.task.Files[idx]
	if f.Status.IsTerminal() {
		r.mu.Unlock()
		return
	}
	now := m.now()
	if f.StartedAt == nil {
		f.StartedAt = &now
	}
	f.FinishedAt = &now
	f.Attempts = out.Attempts
	f.Dropped = out.Dropped
	f.Pages = out.Pages
	f.TextMethod = out.TextMethod
	if err != nil {
		f.Status = constants.FileStatusFailed
		f.ErrorMessage = err.Error()
	} else {
		f.Status = constants.FileStatusDone
		f.Records = len(out.Records)
		r.records[idx] = out.Records
	}
	r.resolved++
	last := r.resolved == len(r.task.Files)
	r.task.UpdatedAt = now
	m.persist(ctx, r.task)
	status, kept, filename, taskID := f.Status, f.Records, f.Filename, r.task.ID
	r.mu.Unlock()

	m.metrics.FileFinished(string(status), kept, out.Dropped)
	fields := []zap.Field{
		zap.String("task_id", taskID),
		zap.String("file", filename),
		zap.Int("records", kept),
		zap.Int("dropped", out.Dropped),
		zap.Int("attempts", out.Attempts),
	}
	if err != nil {
		m.logger.Warn("task.file.failed", append(fields, zap.Error(err))...)
	} else {
		m.logger.Info("task.file.done", fields...)
	}

	if last {
		m.finalize(ctx, r)
	}
}

// finalize merges every kept record, writes the artifacts and moves the task
// to its terminal state.
func (m *Manager) finalize(ctx context.Context, r *run) {
	defer m.wg.Done()

	r.mu.Lock()
	id := r.task.ID
	var all []record.Record
	for _, recs := range r.records {
		all = append(all, recs...)
	}
	r.records = nil
	r.mu.Unlock()

	start := time.Now()
	res := merge.Merge(all, merge.Options{GraduateOnly: m.cfg.GraduateOnly, IgnoreTitles: m.cfg.IgnoreTitles})
	outputs, err := m.writeOutputs(id, res)

	r.mu.Lock()
	now := m.now()
	if err != nil {
		r.task.Status = constants.TaskStatusFailed
		r.task.ErrorMessage = err.Error()
	} else {
		r.task.Status = constants.TaskStatusCompleted
		r.task.Outputs = outputs
		r.task.CombinedCount = len(res.Combined)
		r.task.UnderenrolledCount = len(res.Underenrolled)
	}
	r.task.FinishedAt = &now
	r.task.UpdatedAt = now
	m.persist(ctx, r.task)
	status := r.task.Status
	r.mu.Unlock()

	m.metrics.TaskFinished(string(status))
	if err != nil {
		m.logger.Error("task.merge.failed", zap.String("task_id", id), zap.Error(err))
	} else {
		m.logger.Info("task.completed",
			zap.String("task_id", id),
			zap.Int("input_records", len(all)),
			zap.Int("combined", len(res.Combined)),
			zap.Int("underenrolled", len(res.Underenrolled)),
			zap.Int("collapsed", res.Collapsed),
			zap.Int("filtered", res.Filtered),
			zap.Int64("elapsed_ms", time.Since(start).Milliseconds()),
		)
	}

	if !m.cfg.KeepUploads {
		m.discardUploads(id)
	}
	m.mu.Lock()
	delete(m.runs, id)
	m.mu.Unlock()
}

func (m *Manager) writeOutputs(id string, res merge.Result) ([]entity.OutputFile, error) {
	artifacts, err := m.renderer.Render(id, res)
	if err != nil {
		return nil, common.MergeError("render outputs", err)
	}
	now := m.now()
	outputs := make([]entity.OutputFile, 0, len(artifacts))
	for _, a := range artifacts {
		key := storage.Key(id, a.Name, now)
		n, err := m.outputs.Save(key, a.Data)
		if err != nil {
			if derr := m.outputs.DeletePrefix(id); derr != nil {
				m.logger.Warn("task.outputs.cleanup_failed", zap.String("task_id", id), zap.Error(derr))
			}
			return nil, common.MergeError("write "+a.Name, err)
		}
		outputs = append(outputs, entity.OutputFile{Kind: a.Kind, Name: a.Name, Key: key, SizeBytes: n})
	}
	return outputs, nil
}

func (m *Manager) discardUploads(id string) {
	if err := m.uploads.DeletePrefix(id); err != nil {
		m.logger.Warn("task.uploads.cleanup_failed", zap.String("task_id", id), zap.Error(err))
	}
}

// GetStatus reads the current snapshot; safe to call while files are running.
func (m *Manager) GetStatus(ctx context.Context, id string) (entity.Status, error) {
	t, err := m.store.Get(ctx, id)
	if err != nil {
		return entity.Status{}, err
	}
	return t.Snapshot(), nil
}

// GetOutputs lists the artifacts of a completed task.
func (m *Manager) GetOutputs(ctx context.Context, id string) ([]entity.OutputFile, error) {
	t, err := m.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if t.Status != constants.TaskStatusCompleted {
		return nil, common.NotReady("task %s is %s", id, t.Status)
	}
	return t.Outputs, nil
}

// OpenOutput opens a named artifact for streaming. The caller closes the file.
func (m *Manager) OpenOutput(ctx context.Context, id, name string) (*os.File, entity.OutputFile, error) {
	outs, err := m.GetOutputs(ctx, id)
	if err != nil {
		return nil, entity.OutputFile{}, err
	}
	for _, o := range outs {
		if o.Name == name {
			f, err := m.outputs.Open(o.Key)
			return f, o, err
		}
	}
	return nil, entity.OutputFile{}, common.NotFound("output %q not found for task %s", name, id)
}

// ListTasks returns snapshots of the newest tasks first.
func (m *Manager) ListTasks(ctx context.Context, limit int) ([]entity.Status, error) {
	tasks, err := m.store.List(ctx, limit)
	if err != nil {
		return nil, err
	}
	out := make([]entity.Status, 0, len(tasks))
	for _, t := range tasks {
		out = append(out, t.Snapshot())
	}
	return out, nil
}

// InFlight reports how many tasks are still processing in this process.
func (m *Manager) InFlight() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.runs)
}

// Wait blocks until every task created by this manager is terminal or ctx ends.
func (m *Manager) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		m.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// FailInterrupted marks tasks a previous process left in processing as failed.
// Their workers are gone, so they would otherwise poll as processing forever.
func (m *Manager) FailInterrupted(ctx context.Context) (int, error) {
	tasks, err := m.store.List(ctx, 0)
	if err != nil {
		return 0, err
	}
	n := 0
	for _, t := range tasks {
		if t.Status.IsTerminal() {
			continue
		}
		m.mu.Lock()
		_, live := m.runs[t.ID]
		m.mu.Unlock()
		if live {
			continue
		}
		now := m.now()
		for i := range t.Files {
			if !t.Files[i].Status.IsTerminal() {
				t.Files[i].Status = constants.FileStatusFailed
				t.Files[i].ErrorMessage = "interrupted before completion"
				t.Files[i].FinishedAt = &now
			}
		}
		t.Status = constants.TaskStatusFailed
		t.ErrorMessage = "service restarted while the task was processing"
		t.FinishedAt = &now
		t.UpdatedAt = now
		if err := m.store.Put(ctx, t); err != nil {
			return n, fmt.Errorf("mark task %s interrupted: %w", t.ID, err)
		}
		n++
	}
	if n > 0 {
		m.logger.Warn("task.interrupted.failed", zap.Int("tasks", n))
	}
	return n, nil
}

func normalizeSubject(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}
