// Package ocr turns timetable PDFs into plain text.
package ocr

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"github.com/joseph-ayodele/course-extractor/constants"
	"github.com/joseph-ayodele/course-extractor/internal/common"
)

// Extraction methods reported in ExtractionResult.Method.
const (
	MethodPdftotext = "pdftotext"
	MethodNative    = "native"
)

type Config struct {
	Pdftotext      string // binary name or absolute path; if empty -> "pdftotext"
	NativeFallback bool   // read the PDF in-process when pdftotext fails or finds nothing
	MaxPages       int    // 0 = no limit
}

type ExtractionResult struct {
	Text     string
	Pages    int
	Method   string
	Duration time.Duration
	Warnings []string
}

type Extractor struct {
	cfg    Config
	runner Runner
	native func(path string, maxPages int) (string, int, error)
	log    *zap.Logger
}

func NewExtractor(cfg Config, logger *zap.Logger) *Extractor {
	if cfg.Pdftotext == "" {
		cfg.Pdftotext = "pdftotext"
	}
	log := common.OrNop(logger).Named("ocr")
	return &Extractor{cfg: cfg, runner: execRunner{log: log}, native: nativeText, log: log}
}

// WithRunner swaps the command runner; tests use it to stub pdftotext.
func (e *Extractor) WithRunner(r Runner) *Extractor {
	e.runner = r
	return e
}

// Extract returns the best-effort text of the PDF at path. An image-only
// document yields empty text and no error; callers decide what empty means.
func (e *Extractor) Extract(ctx context.Context, path string) (ExtractionResult, error) {
	start := time.Now()
	ext := constants.NormalizeExt(filepath.Ext(path))
	if !constants.IsAllowedExt(ext) {
		e.log.Error("ocr.unsupported_extension", zap.String("extension", ext))
		return ExtractionResult{}, fmt.Errorf("unsupported extension: %q", ext)
	}

	res, err := e.extractPDF(ctx, path)
	res.Duration = time.Since(start)
	if err != nil {
		e.log.Error("ocr.extract.failed", zap.String("path", path), zap.Error(err))
		return res, err
	}
	e.log.Info("ocr.extract.ok",
		zap.String("path", path),
		zap.String("method", res.Method),
		zap.Int("pages", res.Pages),
		zap.Int("text_len", len(res.Text)),
		zap.Int64("elapsed_ms", res.Duration.Milliseconds()),
	)
	return res, nil
}

func (e *Extractor) extractPDF(ctx context.Context, path string) (ExtractionResult, error) {
	res := ExtractionResult{Method: MethodPdftotext}

	text, pages, warns, err := e.pdfToText(ctx, path)
	res.Warnings = append(res.Warnings, warns...)
	if err == nil {
		res.Text = Normalize(text)
		res.Pages = pages
		if res.Text != "" || !e.cfg.NativeFallback {
			return res, nil
		}
		res.Warnings = append(res.Warnings, "pdftotext returned no text")
	} else if !e.cfg.NativeFallback {
		return res, fmt.Errorf("pdftotext: %w", err)
	} else {
		res.Warnings = append(res.Warnings, "pdftotext: "+err.Error())
	}
	if ctx.Err() != nil {
		return res, ctx.Err()
	}

	e.log.Debug("ocr.native_fallback", zap.String("path", path), zap.Strings("warnings", res.Warnings))
	ntext, npages, nerr := e.native(path, e.cfg.MaxPages)
	if nerr != nil {
		if err != nil {
			return res, errors.Join(fmt.Errorf("pdftotext: %w", err), fmt.Errorf("native: %w", nerr))
		}
		// pdftotext ran fine and found nothing; an unreadable native pass does not change that.
		res.Warnings = append(res.Warnings, "native: "+nerr.Error())
		return res, nil
	}
	res.Method = MethodNative
	res.Text = Normalize(ntext)
	res.Pages = npages
	return res, nil
}
