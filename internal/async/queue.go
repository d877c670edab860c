package async

import (
	"context"
	"errors"
	"time"
)

// ErrQueueClosed is returned by Enqueue once Shutdown has started.
var ErrQueueClosed = errors.New("queue is shutting down")

// Job is one unit of work, typically one file of one task.
type Job struct {
	TaskID      string
	Name        string
	SubmittedAt time.Time
	Run         func(ctx context.Context) error
}

type Queue interface {
	Enqueue(ctx context.Context, job Job) error
	Shutdown(ctx context.Context)
}
