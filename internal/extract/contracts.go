package extract

import (
	"context"

	"github.com/joseph-ayodele/course-extractor/internal/llm"
	"github.com/joseph-ayodele/course-extractor/internal/ocr"
)

// TextExtractor is Stage 1: file -> text.
type TextExtractor interface {
	Extract(ctx context.Context, path string) (TextExtractionResult, error)
}

// TextExtractionResult is the text of one document and how it was obtained.
type TextExtractionResult = ocr.ExtractionResult

var _ TextExtractor = (*ocr.Extractor)(nil)

// RecordExtractor is Stage 2: text -> validated records.
type RecordExtractor interface {
	Extract(ctx context.Context, text string, meta llm.Metadata) (llm.Result, error)
}
