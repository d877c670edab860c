package entity

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/course-extractor/constants"
)

func TestSnapshotCountsAndProgress(t *testing.T) {
	task := &Task{
		ID:     "t1",
		Status: constants.TaskStatusProcessing,
		Files: []FileTask{
			{Filename: "a.pdf", Status: constants.FileStatusDone, Records: 3, Dropped: 1},
			{Filename: "b.pdf", Status: constants.FileStatusFailed, ErrorMessage: "boom"},
			{Filename: "c.pdf", Status: constants.FileStatusParsing},
		},
		Outputs: []OutputFile{{Kind: OutputCombined, Name: "x.csv", Key: "t1/x.csv"}},
	}

	s := task.Snapshot()
	assert.Equal(t, 1, s.Processed)
	assert.Equal(t, 1, s.Failed)
	assert.Equal(t, 1, s.Pending)
	assert.Equal(t, 3, s.Total)
	assert.Equal(t, s.Total, s.Processed+s.Failed+s.Pending)
	assert.Equal(t, 66.7, s.Progress)
	assert.Equal(t, 1, s.DroppedRecords)
	assert.Equal(t, "t1/x.csv", s.CombinedOutput)
	assert.Empty(t, s.UnderenrolledOutput)
	require.Len(t, s.Files, 3)
	assert.Equal(t, "boom", s.Files[1].Error)
}

func TestCloneIsIndependent(t *testing.T) {
	task := &Task{ID: "t1", Files: []FileTask{{Filename: "a.pdf", Status: constants.FileStatusQueued}}}
	cp := task.Clone()
	cp.Files[0].Status = constants.FileStatusDone
	cp.Outputs = append(cp.Outputs, OutputFile{Name: "n"})

	assert.Equal(t, constants.FileStatusQueued, task.Files[0].Status)
	assert.Empty(t, task.Outputs)
}

func TestFileStatusTransitions(t *testing.T) {
	assert.True(t, constants.FileStatusQueued.CanTransition(constants.FileStatusExtracting))
	assert.True(t, constants.FileStatusQueued.CanTransition(constants.FileStatusFailed))
	assert.True(t, constants.FileStatusParsing.CanTransition(constants.FileStatusDone))
	assert.False(t, constants.FileStatusParsing.CanTransition(constants.FileStatusExtracting))
	assert.False(t, constants.FileStatusDone.CanTransition(constants.FileStatusFailed))
	assert.False(t, constants.FileStatusFailed.CanTransition(constants.FileStatusDone))
}
