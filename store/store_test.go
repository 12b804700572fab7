package store

import (
	"path/filepath"
	"testing"

	"github.com/cyclopcam/logs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nvr-ai/go-ppe/compliance"
)

func openTestStore(t *testing.T) *Store {
	s, err := Open(logs.NewTestingLog(t), filepath.Join(t.TempDir(), "history.sqlite"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

var (
	approved = compliance.Verdict{
		IsSafe:        true,
		Confidence:    88,
		DetectedItems: []string{"Hardhat", "Safety Vest"},
		MissingItems:  []string{},
		Reason:        "Nearest person verified safe: Hardhat, Safety Vest. Entry approved.",
	}
	denied = compliance.Verdict{
		IsSafe:        false,
		Confidence:    70,
		DetectedItems: []string{"Safety Vest"},
		MissingItems:  []string{"Hardhat"},
		Violations:    []string{"NO-Hardhat"},
		Reason:        "Entry denied. Missing: Hardhat. Violations: NO-Hardhat.",
	}
)

func TestSaveAndGet(t *testing.T) {
	s := openTestStore(t)

	rec, err := s.Save(FileTypeImage, "uploads/a.jpg", denied)
	require.NoError(t, err)
	assert.NotZero(t, rec.ID)
	assert.Len(t, rec.RequestID, 36)
	assert.False(t, rec.CreatedAt.Get().IsZero())

	got, err := s.Get(rec.ID)
	require.NoError(t, err)
	assert.Equal(t, "uploads/a.jpg", got.FilePath)
	assert.Equal(t, FileTypeImage, got.FileType)
	assert.Equal(t, rec.RequestID, got.RequestID)

	v, err := got.Verdict()
	require.NoError(t, err)
	assert.Equal(t, denied, v)

	_, err = s.Get(rec.ID + 100)
	assert.Error(t, err)
}

func TestVerdict_NoViolations(t *testing.T) {
	s := openTestStore(t)

	rec, err := s.Save(FileTypeVideo, "uploads/b.mp4", approved)
	require.NoError(t, err)
	assert.Equal(t, "[]", rec.Violations)

	v, err := rec.Verdict()
	require.NoError(t, err)
	assert.Nil(t, v.Violations)
	assert.Equal(t, approved, v)
}

func TestList(t *testing.T) {
	s := openTestStore(t)

	records, err := s.List(0, 0)
	require.NoError(t, err)
	assert.Empty(t, records)

	for i := 0; i < 5; i++ {
		_, err := s.Save(FileTypeImage, "f.jpg", approved)
		require.NoError(t, err)
	}

	records, err = s.List(0, 0)
	require.NoError(t, err)
	require.Len(t, records, 5)
	for i := 1; i < len(records); i++ {
		assert.Greater(t, records[i-1].ID, records[i].ID, "newest first")
	}

	page, err := s.List(1, 2)
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.Equal(t, records[1].ID, page[0].ID)
	assert.Equal(t, records[2].ID, page[1].ID)

	page, err = s.List(-3, MaxListLimit+100)
	require.NoError(t, err)
	assert.Len(t, page, 5)
}

func TestDashboard(t *testing.T) {
	s := openTestStore(t)

	stats, err := s.Dashboard(10)
	require.NoError(t, err)
	assert.Equal(t, int64(0), stats.TotalDetections)
	assert.Empty(t, stats.Recent)

	for _, v := range []compliance.Verdict{approved, denied, denied, approved, denied} {
		_, err := s.Save(FileTypeImage, "f.jpg", v)
		require.NoError(t, err)
	}

	stats, err = s.Dashboard(3)
	require.NoError(t, err)
	assert.Equal(t, int64(5), stats.TotalDetections)
	assert.Equal(t, int64(2), stats.Accepted)
	assert.Equal(t, int64(3), stats.Denied)
	require.Len(t, stats.Recent, 3)
	assert.False(t, stats.Recent[0].IsSafe)
	assert.True(t, stats.Recent[1].IsSafe)
}

func TestReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.sqlite")

	s, err := Open(logs.NewTestingLog(t), path)
	require.NoError(t, err)
	_, err = s.Save(FileTypeImage, "f.jpg", approved)
	require.NoError(t, err)
	require.NoError(t, s.Close())

	s, err = Open(logs.NewTestingLog(t), path)
	require.NoError(t, err)
	defer s.Close()
	records, err := s.List(0, 0)
	require.NoError(t, err)
	assert.Len(t, records, 1)
}
