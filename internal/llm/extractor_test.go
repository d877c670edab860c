package llm

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/course-extractor/internal/common"
)

type scriptedGenerator struct {
	mu        sync.Mutex
	responses []string
	errs      []error
	calls     int
	last      GenerateRequest
}

func (g *scriptedGenerator) Generate(_ context.Context, req GenerateRequest) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	i := g.calls
	g.calls++
	g.last = req
	var err error
	if i < len(g.errs) {
		err = g.errs[i]
	}
	if err != nil {
		return "", err
	}
	if i < len(g.responses) {
		return g.responses[i], nil
	}
	return g.responses[len(g.responses)-1], nil
}

type recordingSleep struct {
	waits []time.Duration
}

func (r *recordingSleep) sleep(_ context.Context, d time.Duration) error {
	r.waits = append(r.waits, d)
	return nil
}

type countingObserver struct {
	mu       sync.Mutex
	generate int
	retries  int
	dropped  int
}

func (o *countingObserver) ObserveGenerate(string, time.Duration, error) {
	o.mu.Lock()
	o.generate++
	o.mu.Unlock()
}

func (o *countingObserver) ObserveRetry(string, string) {
	o.mu.Lock()
	o.retries++
	o.mu.Unlock()
}

func (o *countingObserver) ObserveDropped(n int) {
	o.mu.Lock()
	o.dropped += n
	o.mu.Unlock()
}

func newTestExtractor(gen Generator, sl *recordingSleep, obs Observer) *Extractor {
	return NewExtractor(gen, ExtractorConfig{
		Provider:    "fake",
		Temperature: 0.1,
		CallTimeout: time.Second,
		Retry:       RetryPolicy{MaxAttempts: 3, InitialBackoff: time.Second, MaxBackoff: 5 * time.Second, Multiplier: 2},
	}, nil, WithSleep(sl.sleep), WithObserver(obs))
}

func TestExtractValidatesAndFillsMetadata(t *testing.T) {
	gen := &scriptedGenerator{responses: []string{
		`{"courses":[
			{"crn":"10001","course":"CS 5024","enrolled":3},
			{"crn":"10002","enrolled":"40"},
			{"title":"no crn here"}
		]}`,
	}}
	sl := &recordingSleep{}
	obs := &countingObserver{}
	ex := newTestExtractor(gen, sl, obs)

	res, err := ex.Extract(context.Background(), "timetable text", Metadata{SubjectCode: "CS", TermYear: "202409", SourceFile: "a.pdf"})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Attempts)
	assert.Equal(t, 1, res.Dropped)
	require.Len(t, res.Records, 2)
	assert.Equal(t, "CS", res.Records[0].SubjectCode)
	assert.Equal(t, "5024", res.Records[0].CourseNumber)
	assert.Equal(t, "202409", res.Records[1].TermYear)
	require.NotNil(t, res.Records[1].Enrolled)
	assert.Equal(t, 40, *res.Records[1].Enrolled)
	assert.Empty(t, sl.waits)
	assert.Equal(t, 1, obs.dropped)

	assert.Equal(t, float32(0.1), gen.last.Temperature)
	assert.Contains(t, gen.last.System, "courses")
	assert.Contains(t, gen.last.Prompt, "timetable text")
	assert.Contains(t, gen.last.Prompt, "202409")
}

func TestExtractDropsNonObjectEntries(t *testing.T) {
	gen := &scriptedGenerator{responses: []string{
		`{"courses":[{"crn":"10001","subject_code":"CS","term_year":"202409","enrolled":3}, null]}`,
	}}
	obs := &countingObserver{}
	ex := newTestExtractor(gen, &recordingSleep{}, obs)

	res, err := ex.Extract(context.Background(), "text", Metadata{SubjectCode: "CS", TermYear: "202409"})
	require.NoError(t, err)
	assert.Equal(t, 1, gen.calls)
	assert.Equal(t, 1, res.Attempts)
	require.Len(t, res.Records, 1)
	assert.Equal(t, "10001", res.Records[0].CRN)
	assert.Equal(t, 1, res.Dropped)
	assert.Equal(t, 1, obs.dropped)
}

func TestExtractIgnoresGeneratedCrossListedFlag(t *testing.T) {
	gen := &scriptedGenerator{responses: []string{
		`{"courses":[{"crn":"10001","subject_code":"CS","term_year":"202409","is_cross_listed":true}]}`,
	}}
	ex := newTestExtractor(gen, &recordingSleep{}, nil)

	res, err := ex.Extract(context.Background(), "text", Metadata{SubjectCode: "CS", TermYear: "202409"})
	require.NoError(t, err)
	require.Len(t, res.Records, 1)
	assert.False(t, res.Records[0].IsCrossListed)
}

func TestExtractRetriesMalformedThenSucceeds(t *testing.T) {
	gen := &scriptedGenerator{responses: []string{
		"Sorry, I cannot help with that.",
		`{"courses":[{"crn":"10001"}]}`,
	}}
	sl := &recordingSleep{}
	obs := &countingObserver{}
	ex := newTestExtractor(gen, sl, obs)

	res, err := ex.Extract(context.Background(), "text", Metadata{SubjectCode: "CS", TermYear: "202409"})
	require.NoError(t, err)
	assert.Equal(t, 2, res.Attempts)
	assert.Len(t, res.Records, 1)
	assert.Equal(t, []time.Duration{time.Second}, sl.waits)
	assert.Equal(t, 1, obs.retries)
}

func TestExtractExhaustsRetriesOnProse(t *testing.T) {
	gen := &scriptedGenerator{responses: []string{"no structured output, just prose"}}
	sl := &recordingSleep{}
	ex := newTestExtractor(gen, sl, nil)

	res, err := ex.Extract(context.Background(), "text", Metadata{SubjectCode: "CS", TermYear: "202409"})
	require.Error(t, err)
	assert.ErrorIs(t, err, common.ErrExtractionFailed)
	assert.Equal(t, common.CodeExtractionFailed, common.CodeOf(err))
	assert.Equal(t, 3, res.Attempts)
	assert.Empty(t, res.Records)
	assert.Equal(t, 3, gen.calls)
	assert.Equal(t, []time.Duration{time.Second, 2 * time.Second}, sl.waits)
}

func TestExtractRetriesTransientErrors(t *testing.T) {
	gen := &scriptedGenerator{
		errs:      []error{errors.New("connection reset"), context.DeadlineExceeded},
		responses: []string{"", "", `{"courses":[]}`},
	}
	ex := newTestExtractor(gen, &recordingSleep{}, nil)

	res, err := ex.Extract(context.Background(), "text", Metadata{SubjectCode: "CS", TermYear: "202409"})
	require.NoError(t, err)
	assert.Equal(t, 3, res.Attempts)
	assert.Empty(t, res.Records)
}

func TestExtractStopsOnPermanentError(t *testing.T) {
	gen := &scriptedGenerator{errs: []error{Permanent(errors.New("401 unauthorized"))}, responses: []string{""}}
	ex := newTestExtractor(gen, &recordingSleep{}, nil)

	res, err := ex.Extract(context.Background(), "text", Metadata{SubjectCode: "CS", TermYear: "202409"})
	require.Error(t, err)
	assert.ErrorIs(t, err, common.ErrExtractionFailed)
	assert.ErrorIs(t, err, ErrPermanent)
	assert.Equal(t, 1, res.Attempts)
	assert.Equal(t, 1, gen.calls)
}

func TestExtractAppliesCallTimeout(t *testing.T) {
	gen := GeneratorFunc(func(ctx context.Context, _ GenerateRequest) (string, error) {
		<-ctx.Done()
		return "", ctx.Err()
	})
	ex := NewExtractor(gen, ExtractorConfig{
		CallTimeout: 10 * time.Millisecond,
		Retry:       RetryPolicy{MaxAttempts: 2},
	}, nil)

	res, err := ex.Extract(context.Background(), "text", Metadata{SubjectCode: "CS", TermYear: "202409"})
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, 2, res.Attempts)
}
