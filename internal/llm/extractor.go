package llm

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/joseph-ayodele/course-extractor/internal/common"
	"github.com/joseph-ayodele/course-extractor/internal/record"
)

// ExtractorConfig tunes one Extractor.
type ExtractorConfig struct {
	Provider       string
	Temperature    float32
	CallTimeout    time.Duration
	MaxPromptChars int
	Retry          RetryPolicy
}

// Extractor turns document text into validated records through a Generator.
type Extractor struct {
	gen   Generator
	cfg   ExtractorConfig
	log   *zap.Logger
	obs   Observer
	sleep SleepFunc
}

// Option customizes an Extractor.
type Option func(*Extractor)

// WithObserver installs a telemetry observer.
func WithObserver(o Observer) Option {
	return func(e *Extractor) {
		if o != nil {
			e.obs = o
		}
	}
}

// WithSleep replaces the backoff wait; tests use it to skip real sleeps.
func WithSleep(fn SleepFunc) Option {
	return func(e *Extractor) {
		if fn != nil {
			e.sleep = fn
		}
	}
}

func NewExtractor(gen Generator, cfg ExtractorConfig, logger *zap.Logger, opts ...Option) *Extractor {
	if cfg.CallTimeout <= 0 {
		cfg.CallTimeout = 90 * time.Second
	}
	if cfg.Temperature < 0 || cfg.Temperature > 1 {
		cfg.Temperature = 0.1
	}
	if cfg.Provider == "" {
		cfg.Provider = "unknown"
	}
	e := &Extractor{
		gen:   gen,
		cfg:   cfg,
		log:   common.OrNop(logger),
		obs:   nopObserver{},
		sleep: sleepContext,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Extract runs the generate, parse and validate loop for one document.
//
// A well-formed response ends the loop even when every entry is dropped by
// validation. Malformed responses and generator errors consume one attempt
// each; once the policy is exhausted the error wraps common.ErrExtractionFailed
// and the Result still reports how many attempts were made.
func (e *Extractor) Extract(ctx context.Context, text string, meta Metadata) (Result, error) {
	rid := uuid.New().String()
	start := time.Now()
	req := GenerateRequest{
		System:      BuildSystemPrompt(),
		Prompt:      BuildUserPrompt(text, meta, e.cfg.MaxPromptChars),
		Temperature: e.cfg.Temperature,
	}
	log := e.log.With(
		zap.String("req_id", rid),
		zap.String("provider", e.cfg.Provider),
		zap.String("file", meta.SourceFile),
	)
	log.Info("llm.extract.start",
		zap.Int("text_len", len(text)),
		zap.Int("prompt_len", len(req.Prompt)),
		zap.Float32("temp", req.Temperature),
	)

	maxAttempts := e.cfg.Retry.attempts()
	var lastErr error
	attempt := 0
	for attempt < maxAttempts {
		attempt++
		if attempt > 1 {
			wait := e.cfg.Retry.Backoff(attempt - 1)
			if err := e.sleep(ctx, wait); err != nil {
				lastErr = errors.Join(lastErr, err)
				break
			}
		}

		raw, err := e.generate(ctx, req)
		if err != nil {
			lastErr = err
			log.Warn("llm.extract.generate_error", zap.Int("attempt", attempt), zap.Error(err))
			if errors.Is(err, ErrPermanent) || ctx.Err() != nil {
				break
			}
			e.obs.ObserveRetry(e.cfg.Provider, "generate_error")
			continue
		}

		switch parsed := Parse(raw).(type) {
		case ParsedOK:
			res := e.validate(parsed.Entries, meta)
			res.Dropped += parsed.Skipped
			res.Attempts = attempt
			res.Repaired = parsed.Repaired
			if res.Dropped > 0 {
				e.obs.ObserveDropped(res.Dropped)
			}
			log.Info("llm.extract.ok",
				zap.Int("attempt", attempt),
				zap.Bool("repaired", parsed.Repaired),
				zap.Int("entries", len(parsed.Entries)),
				zap.Int("records", len(res.Records)),
				zap.Int("dropped", res.Dropped),
				zap.Int64("elapsed_ms", time.Since(start).Milliseconds()),
			)
			return res, nil
		case ParsedMalformed:
			lastErr = parsed.Reason
			log.Warn("llm.extract.malformed",
				zap.Int("attempt", attempt),
				zap.Error(parsed.Reason),
				zap.Int("raw_len", len(parsed.Raw)),
			)
			e.obs.ObserveRetry(e.cfg.Provider, "malformed")
		}
	}

	log.Error("llm.extract.failed",
		zap.Int("attempts", attempt),
		zap.Error(lastErr),
		zap.Int64("elapsed_ms", time.Since(start).Milliseconds()),
	)
	return Result{Attempts: attempt}, common.ExtractionFailed(
		fmt.Sprintf("no usable output after %d attempt(s)", attempt), lastErr)
}

func (e *Extractor) generate(ctx context.Context, req GenerateRequest) (string, error) {
	callCtx, cancel := context.WithTimeout(ctx, e.cfg.CallTimeout)
	defer cancel()

	start := time.Now()
	raw, err := e.gen.Generate(callCtx, req)
	e.obs.ObserveGenerate(e.cfg.Provider, time.Since(start), err)
	return raw, err
}

func (e *Extractor) validate(entries []map[string]any, meta Metadata) Result {
	res := Result{Records: make([]record.Record, 0, len(entries))}
	for i, entry := range entries {
		raw := normalizeEntry(entry)
		if isBlank(raw["subject_code"]) && meta.SubjectCode != "" {
			raw["subject_code"] = meta.SubjectCode
		}
		if isBlank(raw["term_year"]) && meta.TermYear != "" {
			raw["term_year"] = meta.TermYear
		}
		rec, err := record.Validate(raw)
		if err != nil {
			res.Dropped++
			e.log.Debug("llm.extract.entry_dropped",
				zap.String("file", meta.SourceFile),
				zap.Int("index", i),
				zap.Error(err),
			)
			continue
		}
		rec.IsCrossListed = false
		res.Records = append(res.Records, rec)
	}
	return res
}
