package storage

import (
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/course-extractor/internal/common"
)

func TestKeyFormat(t *testing.T) {
	now := time.Date(2024, 9, 3, 14, 5, 6, 0, time.UTC)
	assert.Equal(t, "t1/20240903-140506-fall-2024-cs-timetable.pdf", Key("t1", "Fall 2024 CS Timetable.pdf", now))
	assert.Equal(t, "t1/20240903-140506-passwd", Key("t1", "../../etc/passwd", now))
	assert.Equal(t, "file", SafeName("  "))
}

func TestSaveOpenSizeDelete(t *testing.T) {
	s, err := NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	n, err := s.Save("t1/out.csv", []byte("crn\n1\n"))
	require.NoError(t, err)
	assert.Equal(t, int64(6), n)

	size, err := s.Size("t1/out.csv")
	require.NoError(t, err)
	assert.Equal(t, int64(6), size)

	f, err := s.Open("t1/out.csv")
	require.NoError(t, err)
	b, err := io.ReadAll(f)
	require.NoError(t, err)
	require.NoError(t, f.Close())
	assert.Equal(t, "crn\n1\n", string(b))

	require.NoError(t, s.DeletePrefix("t1"))
	_, err = s.Open("t1/out.csv")
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestSaveStreamEnforcesLimit(t *testing.T) {
	s, err := NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	_, err = s.SaveStream("t1/big.pdf", strings.NewReader(strings.Repeat("x", 11)), 10)
	require.Error(t, err)
	assert.ErrorIs(t, err, common.ErrInput)
	_, err = s.Size("t1/big.pdf")
	assert.ErrorIs(t, err, common.ErrNotFound)

	n, err := s.SaveStream("t1/ok.pdf", strings.NewReader(strings.Repeat("x", 10)), 10)
	require.NoError(t, err)
	assert.Equal(t, int64(10), n)
}

func TestResolveRejectsEscapes(t *testing.T) {
	s, err := NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	for _, key := range []string{"", "../x", "t1/../../x", "/etc/passwd"} {
		_, err := s.Path(key)
		assert.ErrorIs(t, err, ErrInvalidKey, key)
	}
	assert.ErrorIs(t, s.DeletePrefix("."), ErrInvalidKey)
}

func TestCleanupOlderThan(t *testing.T) {
	s, err := NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	_, err = s.Save("t1/a.csv", []byte("a"))
	require.NoError(t, err)

	deleted, err := s.CleanupOlderThan(-time.Minute)
	require.NoError(t, err)
	assert.Equal(t, []string{"t1/a.csv"}, deleted)
}
