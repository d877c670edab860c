package llm

import (
	"context"
	"errors"
	"time"

	"github.com/joseph-ayodele/course-extractor/internal/record"
)

// GenerateRequest is one single-shot call to a text-generation backend.
type GenerateRequest struct {
	System      string
	Prompt      string
	Temperature float32
}

// Generator is the generation service the Extractor depends on.
// Implementations may fail on connectivity and may return arbitrary text.
type Generator interface {
	Generate(ctx context.Context, req GenerateRequest) (string, error)
}

// GeneratorFunc adapts a function to Generator.
type GeneratorFunc func(ctx context.Context, req GenerateRequest) (string, error)

func (f GeneratorFunc) Generate(ctx context.Context, req GenerateRequest) (string, error) {
	return f(ctx, req)
}

// Metadata is the user-supplied context of one document.
type Metadata struct {
	SubjectCode string
	TermYear    string
	SourceFile  string
}

// Result is what one extraction produced.
type Result struct {
	Records  []record.Record
	Dropped  int
	Attempts int
	Repaired bool
}

// Observer receives extraction telemetry. All methods must be safe for concurrent use.
type Observer interface {
	ObserveGenerate(provider string, elapsed time.Duration, err error)
	ObserveRetry(provider, reason string)
	ObserveDropped(n int)
}

type nopObserver struct{}

func (nopObserver) ObserveGenerate(string, time.Duration, error) {}
func (nopObserver) ObserveRetry(string, string)                  {}
func (nopObserver) ObserveDropped(int)                           {}

// ErrPermanent marks generation errors that retrying cannot fix (bad key, unknown model).
var ErrPermanent = errors.New("permanent generation error")

type permanentError struct{ err error }

func (e *permanentError) Error() string { return e.err.Error() }
func (e *permanentError) Unwrap() []error {
	return []error{ErrPermanent, e.err}
}

// Permanent wraps err so the Extractor stops retrying.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}
