package main

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/joseph-ayodele/course-extractor/internal/async"
	"github.com/joseph-ayodele/course-extractor/internal/common"
	"github.com/joseph-ayodele/course-extractor/internal/export"
	"github.com/joseph-ayodele/course-extractor/internal/llm"
	"github.com/joseph-ayodele/course-extractor/internal/llm/gemini"
	"github.com/joseph-ayodele/course-extractor/internal/llm/openai"
	"github.com/joseph-ayodele/course-extractor/internal/metrics"
	"github.com/joseph-ayodele/course-extractor/internal/ocr"
	"github.com/joseph-ayodele/course-extractor/internal/pipeline"
	"github.com/joseph-ayodele/course-extractor/internal/repository"
	"github.com/joseph-ayodele/course-extractor/internal/server"
	"github.com/joseph-ayodele/course-extractor/internal/storage"
	"github.com/joseph-ayodele/course-extractor/internal/task"
)

// components is everything a running task manager needs.
type components struct {
	store   repository.TaskStore
	uploads *storage.LocalStorage
	outputs *storage.LocalStorage
	pool    *async.Pool
	metrics *metrics.Metrics
	manager *task.Manager
}

func build(ctx context.Context, cfg *common.Config, logger *zap.Logger) (*components, error) {
	store, err := server.OpenTaskStore(ctx, cfg.Store, logger)
	if err != nil {
		return nil, fmt.Errorf("open task store: %w", err)
	}
	uploads, err := storage.NewLocalStorage(cfg.Storage.UploadDir)
	if err != nil {
		_ = store.Close()
		return nil, err
	}
	outputs, err := storage.NewLocalStorage(cfg.Storage.OutputDir)
	if err != nil {
		_ = store.Close()
		return nil, err
	}

	pool := async.NewPool(logger,
		async.WithWorkers(cfg.Pipeline.Workers),
		async.WithQueueSize(cfg.Pipeline.QueueSize),
		async.WithJobTimeout(cfg.Pipeline.FileTimeout),
	)
	m := metrics.New(func() float64 { return float64(pool.Depth()) })

	proc, err := newProcessor(ctx, cfg, m, logger)
	if err != nil {
		pool.Shutdown(ctx)
		_ = store.Close()
		return nil, err
	}

	mgr := task.NewManager(task.Deps{
		Store:     store,
		Uploads:   uploads,
		Outputs:   outputs,
		Queue:     pool,
		Processor: proc,
		Renderer:  export.NewService(true, logger),
		Metrics:   m,
		Logger:    logger,
	}, task.Config{
		MaxUploadBytes: cfg.Server.MaxUploadBytes,
		GraduateOnly:   cfg.Pipeline.GraduateOnly,
		IgnoreTitles:   cfg.Pipeline.IgnoreTitles,
		KeepUploads:    cfg.Storage.KeepUploads,
	})

	return &components{
		store:   store,
		uploads: uploads,
		outputs: outputs,
		pool:    pool,
		metrics: m,
		manager: mgr,
	}, nil
}

// close drains the pool, waits for in-flight tasks and releases the store.
func (c *components) close(ctx context.Context, logger *zap.Logger) {
	c.pool.Shutdown(ctx)
	if err := c.manager.Wait(ctx); err != nil {
		logger.Warn("tasks still running at shutdown", zap.Int("tasks", c.manager.InFlight()), zap.Error(err))
	}
	if err := c.store.Close(); err != nil {
		logger.Warn("close task store", zap.Error(err))
	}
}

func newProcessor(ctx context.Context, cfg *common.Config, m *metrics.Metrics, logger *zap.Logger) (*pipeline.FileProcessor, error) {
	gen, err := newGenerator(ctx, cfg.LLM, logger)
	if err != nil {
		return nil, err
	}
	text := ocr.NewExtractor(ocr.Config{
		Pdftotext:      cfg.Text.Pdftotext,
		NativeFallback: cfg.Text.NativeFallback,
	}, logger)
	records := llm.NewExtractor(gen, llm.ExtractorConfig{
		Provider:       gen.Name(),
		Temperature:    cfg.LLM.Temperature,
		CallTimeout:    cfg.LLM.CallTimeout,
		MaxPromptChars: cfg.LLM.MaxPromptChars,
		Retry: llm.RetryPolicy{
			MaxAttempts:    cfg.LLM.MaxAttempts,
			InitialBackoff: cfg.LLM.InitialBackoff,
			MaxBackoff:     cfg.LLM.MaxBackoff,
			Multiplier:     2,
		},
	}, logger, llm.WithObserver(m))
	return pipeline.NewFileProcessor(text, records, logger), nil
}

// generator is a backend that can label itself in logs and metrics.
type generator interface {
	llm.Generator
	Name() string
}

func newGenerator(ctx context.Context, cfg common.LLMConfig, logger *zap.Logger) (generator, error) {
	switch cfg.Provider {
	case common.ProviderGemini:
		client, err := gemini.NewClient(ctx, cfg.APIKey, cfg.Model, logger)
		if err != nil {
			return nil, fmt.Errorf("gemini client: %w", err)
		}
		return client, nil
	default:
		return openai.NewClient(openai.Config{
			APIKey:   cfg.APIKey,
			BaseURL:  cfg.BaseURL,
			Model:    cfg.Model,
			Timeout:  cfg.CallTimeout + 5*time.Second,
			JSONMode: true,
		}, logger), nil
	}
}
