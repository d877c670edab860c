// Package server exposes the task manager over HTTP.
package server

import (
	"context"
	"net/http"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/joseph-ayodele/course-extractor/constants"
	"github.com/joseph-ayodele/course-extractor/internal/common"
	"github.com/joseph-ayodele/course-extractor/internal/entity"
	"github.com/joseph-ayodele/course-extractor/internal/metrics"
	"github.com/joseph-ayodele/course-extractor/internal/task"
)

// TaskService is the part of task.Manager the API needs.
type TaskService interface {
	CreateTask(ctx context.Context, inputs []task.FileInput) (string, error)
	GetStatus(ctx context.Context, id string) (entity.Status, error)
	GetOutputs(ctx context.Context, id string) ([]entity.OutputFile, error)
	OpenOutput(ctx context.Context, id, name string) (*os.File, entity.OutputFile, error)
	ListTasks(ctx context.Context, limit int) ([]entity.Status, error)
}

// Pinger reports backing store health.
type Pinger interface {
	Ping(ctx context.Context) error
}

type Options struct {
	MaxUploadBytes int64
	MaxFiles       int
	HealthTimeout  time.Duration
}

type Server struct {
	tasks   TaskService
	store   Pinger
	metrics *metrics.Metrics
	logger  *zap.Logger
	opts    Options
}

func New(tasks TaskService, store Pinger, m *metrics.Metrics, logger *zap.Logger, opts Options) *Server {
	if opts.MaxUploadBytes <= 0 {
		opts.MaxUploadBytes = constants.MaxUploadBytesDefault
	}
	if opts.MaxFiles <= 0 {
		opts.MaxFiles = 50
	}
	if opts.HealthTimeout <= 0 {
		opts.HealthTimeout = 2 * time.Second
	}
	return &Server{tasks: tasks, store: store, metrics: m, logger: common.OrNop(logger).Named("http"), opts: opts}
}

// Router builds the gin engine with middleware and routes.
func (s *Server) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), RequestID(), AccessLog(s.logger), Metrics(s.metrics))
	r.MaxMultipartMemory = 32 << 20

	r.POST("/process", s.process)
	r.GET("/status/:task_id", s.status)
	r.GET("/tasks", s.listTasks)
	r.GET("/outputs/:task_id", s.listOutputs)
	r.GET("/outputs/:task_id/:name", s.download)
	r.GET("/health", s.health)
	if s.metrics != nil {
		r.GET("/metrics", gin.WrapH(s.metrics.Handler()))
	}
	r.NoRoute(func(c *gin.Context) {
		respondError(c, common.NotFound("route %s %s not found", c.Request.Method, c.Request.URL.Path))
	})
	return r
}

// HTTPServer wraps the router with timeouts suited to multipart uploads.
func (s *Server) HTTPServer(addr string) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
}
