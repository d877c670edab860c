// Package export renders merged records into downloadable artifacts.
package export

import (
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/joseph-ayodele/course-extractor/constants"
	"github.com/joseph-ayodele/course-extractor/internal/common"
	"github.com/joseph-ayodele/course-extractor/internal/entity"
	"github.com/joseph-ayodele/course-extractor/internal/merge"
)

// Artifact is one rendered file before it is stored.
type Artifact struct {
	Kind string
	Name string
	Data []byte
}

// Service renders the artifacts of a merged task.
type Service struct {
	workbook bool
	logger   *zap.Logger
}

func NewService(workbook bool, logger *zap.Logger) *Service {
	return &Service{workbook: workbook, logger: common.OrNop(logger).Named("export")}
}

// Render returns the combined CSV, the underenrolled CSV and, when enabled, the workbook.
func (s *Service) Render(taskID string, res merge.Result) ([]Artifact, error) {
	start := time.Now()

	combined, err := RenderCSV(res.Combined)
	if err != nil {
		return nil, fmt.Errorf("combined csv: %w", err)
	}
	under, err := RenderCSV(res.Underenrolled)
	if err != nil {
		return nil, fmt.Errorf("underenrolled csv: %w", err)
	}
	out := []Artifact{
		{Kind: entity.OutputCombined, Name: taskID + constants.CombinedOutputSuffix, Data: combined},
		{Kind: entity.OutputUnderenrolled, Name: taskID + constants.UnderenrolledOutputSuffix, Data: under},
	}

	if s.workbook {
		wb, err := RenderWorkbook(res.Combined, res.Underenrolled)
		if err != nil {
			return nil, fmt.Errorf("workbook: %w", err)
		}
		out = append(out, Artifact{Kind: entity.OutputWorkbook, Name: taskID + constants.WorkbookOutputSuffix, Data: wb})
	}

	s.logger.Info("export.render.ok",
		zap.String("task_id", taskID),
		zap.Int("combined", len(res.Combined)),
		zap.Int("underenrolled", len(res.Underenrolled)),
		zap.Int("artifacts", len(out)),
		zap.Int64("elapsed_ms", time.Since(start).Milliseconds()),
	)
	return out, nil
}
