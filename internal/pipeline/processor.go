// Package pipeline runs one document through text extraction and record extraction.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/joseph-ayodele/course-extractor/constants"
	"github.com/joseph-ayodele/course-extractor/internal/common"
	"github.com/joseph-ayodele/course-extractor/internal/extract"
	"github.com/joseph-ayodele/course-extractor/internal/llm"
	"github.com/joseph-ayodele/course-extractor/internal/record"
)

// ErrEmptyText marks a document whose text layer is empty. Retrying cannot help.
var ErrEmptyText = errors.New("text extraction returned no content")

// Job is one stored document and its submitted metadata.
type Job struct {
	Path        string
	Filename    string
	SubjectCode string
	TermYear    string
}

// Outcome is what processing one document yielded.
type Outcome struct {
	Records    []record.Record
	Dropped    int
	Attempts   int
	Pages      int
	TextMethod string
}

// Tracker receives the non-terminal state changes of one file.
type Tracker interface {
	Advance(status constants.FileStatus)
}

// FileProcessor coordinates text extraction then record extraction for one file.
type FileProcessor struct {
	Text    extract.TextExtractor
	Records extract.RecordExtractor
	Logger  *zap.Logger
}

func NewFileProcessor(text extract.TextExtractor, records extract.RecordExtractor, logger *zap.Logger) *FileProcessor {
	return &FileProcessor{Text: text, Records: records, Logger: common.OrNop(logger)}
}

// Process walks queued -> extracting -> parsing. The caller records the terminal
// state from the returned error: nil means done, anything else means failed.
func (p *FileProcessor) Process(ctx context.Context, job Job, tr Tracker) (Outcome, error) {
	start := time.Now()
	log := p.Logger.With(append(common.LogFields(ctx), zap.String("file", job.Filename))...)
	advance := func(s constants.FileStatus) {
		if tr != nil {
			tr.Advance(s)
		}
	}

	advance(constants.FileStatusExtracting)
	text, err := p.Text.Extract(ctx, job.Path)
	if err != nil {
		log.Error("processor.text.failed", zap.Error(err))
		return Outcome{}, common.ExtractionFailed("text extraction failed", err)
	}
	out := Outcome{Pages: text.Pages, TextMethod: text.Method}
	if strings.TrimSpace(text.Text) == "" {
		log.Warn("processor.text.empty", zap.Int("pages", text.Pages), zap.Strings("warnings", text.Warnings))
		return out, common.ExtractionFailed("document has no extractable text", ErrEmptyText)
	}
	log.Info("processor.text.ok",
		zap.String("method", text.Method),
		zap.Int("pages", text.Pages),
		zap.Int("text_len", len(text.Text)),
	)

	advance(constants.FileStatusParsing)
	meta := llm.Metadata{
		SubjectCode: strings.ToUpper(strings.TrimSpace(job.SubjectCode)),
		TermYear:    strings.TrimSpace(job.TermYear),
		SourceFile:  job.Filename,
	}
	res, err := p.Records.Extract(ctx, text.Text, meta)
	out.Attempts = res.Attempts
	out.Dropped = res.Dropped
	if err != nil {
		log.Error("processor.parse.failed", zap.Int("attempts", res.Attempts), zap.Error(err))
		if !errors.Is(err, common.ErrExtractionFailed) {
			err = common.ExtractionFailed("record extraction failed", err)
		}
		return out, fmt.Errorf("%s: %w", job.Filename, err)
	}

	out.Records = make([]record.Record, 0, len(res.Records))
	for _, rec := range res.Records {
		rec.SourceFile = job.Filename
		// cross-listing is decided by the merge, never by one document
		rec.IsCrossListed = false
		if meta.SubjectCode != "" {
			rec.SubjectCode = meta.SubjectCode
		}
		if meta.TermYear != "" {
			rec.TermYear = meta.TermYear
		}
		out.Records = append(out.Records, rec)
	}

	log.Info("processor.parse.ok",
		zap.Int("records", len(out.Records)),
		zap.Int("dropped", out.Dropped),
		zap.Int("attempts", out.Attempts),
		zap.Int64("elapsed_ms", time.Since(start).Milliseconds()),
	)
	return out, nil
}
