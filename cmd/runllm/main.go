// Command runllm runs one PDF through text extraction and record extraction
// several times and reports how stable the output is.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"github.com/joseph-ayodele/course-extractor/internal/common"
	"github.com/joseph-ayodele/course-extractor/internal/llm"
	"github.com/joseph-ayodele/course-extractor/internal/llm/gemini"
	"github.com/joseph-ayodele/course-extractor/internal/llm/openai"
	"github.com/joseph-ayodele/course-extractor/internal/ocr"
	"github.com/joseph-ayodele/course-extractor/internal/pipeline"
)

func main() {
	subject := flag.String("subject", "", "subject code, e.g. CS (required)")
	term := flag.String("term", "", "term as YYYYMM (required)")
	times := flag.Int("times", 1, "number of runs")
	dump := flag.Bool("json", false, "print the records of the last run as JSON")
	flag.Parse()

	cfg, err := common.LoadConfig()
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(1)
	}
	logger, err := common.NewLogger(cfg.Env, cfg.Log)
	if err != nil {
		fmt.Fprintln(os.Stderr, "logger:", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	if flag.NArg() != 1 || *subject == "" || *term == "" {
		logger.Error("usage: runllm -subject CS -term 202409 [-times N] [-json] <file.pdf>")
		os.Exit(2)
	}
	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", zap.Error(err))
		os.Exit(2)
	}
	path := flag.Arg(0)

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(*times)*5*time.Minute)
	defer cancel()

	var gen interface {
		llm.Generator
		Name() string
	}
	switch cfg.LLM.Provider {
	case common.ProviderGemini:
		g, err := gemini.NewClient(ctx, cfg.LLM.APIKey, cfg.LLM.Model, logger)
		if err != nil {
			logger.Error("gemini client", zap.Error(err))
			os.Exit(1)
		}
		gen = g
	default:
		gen = openai.NewClient(openai.Config{
			APIKey:   cfg.LLM.APIKey,
			BaseURL:  cfg.LLM.BaseURL,
			Model:    cfg.LLM.Model,
			Timeout:  cfg.LLM.CallTimeout + 5*time.Second,
			JSONMode: true,
		}, logger)
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
	}, logger)
	proc := pipeline.NewFileProcessor(text, records, logger)

	job := pipeline.Job{Path: path, Filename: filepath.Base(path), SubjectCode: *subject, TermYear: *term}
	counts := make([]int, 0, *times)
	var last pipeline.Outcome
	for i := 1; i <= *times; i++ {
		start := time.Now()
		out, err := proc.Process(ctx, job, nil)
		if err != nil {
			logger.Error("run failed", zap.Int("run", i), zap.Int("attempts", out.Attempts), zap.Error(err))
			counts = append(counts, -1)
			continue
		}
		logger.Info("run OK",
			zap.Int("run", i),
			zap.Int("records", len(out.Records)),
			zap.Int("dropped", out.Dropped),
			zap.Int("attempts", out.Attempts),
			zap.Int64("duration_ms", time.Since(start).Milliseconds()),
		)
		counts = append(counts, len(out.Records))
		last = out
	}
	logger.Info("summary", zap.Ints("records_per_run", counts))

	if *dump {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(last.Records); err != nil {
			logger.Error("encode records", zap.Error(err))
			os.Exit(1)
		}
	}
}
