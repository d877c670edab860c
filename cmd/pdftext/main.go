// Command pdftext prints the normalized text layer of a timetable PDF, the
// same text the extraction prompt is built from.
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/joseph-ayodele/course-extractor/internal/common"
	"github.com/joseph-ayodele/course-extractor/internal/ocr"
)

func main() {
	cfg, err := common.LoadConfig()
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(1)
	}
	logger, err := common.NewLogger(cfg.Env, common.LogConfig{Level: cfg.Log.Level, Format: "console"})
	if err != nil {
		fmt.Fprintln(os.Stderr, "logger:", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	if len(os.Args) != 2 {
		logger.Error("usage: pdftext <file.pdf>")
		os.Exit(2)
	}
	path := os.Args[1]

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	x := ocr.NewExtractor(ocr.Config{
		Pdftotext:      cfg.Text.Pdftotext,
		NativeFallback: cfg.Text.NativeFallback,
	}, logger)

	start := time.Now()
	res, err := x.Extract(ctx, path)
	if err != nil {
		logger.Error("text extraction failed", zap.String("file", path), zap.Error(err))
		os.Exit(1)
	}

	logger.Info("text extraction OK",
		zap.String("method", res.Method),
		zap.Int("pages", res.Pages),
		zap.Int("text_len", len(res.Text)),
		zap.Strings("warnings", res.Warnings),
		zap.Int64("duration_ms", time.Since(start).Milliseconds()),
	)
	fmt.Println(res.Text)
}
