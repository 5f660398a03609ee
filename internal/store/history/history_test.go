package history

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"insitegent/internal/models"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := NewStore(filepath.Join(t.TempDir(), "history.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestRecordAndListRuns(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	rec := &models.RunRecord{
		AppID:         "in.swiggy.android",
		Date:          "2025-08-20",
		ReviewCount:   42,
		CategoryCount: 9,
		NewCategories: 1,
		Degraded:      false,
		Duration:      1500 * time.Millisecond,
	}
	require.NoError(t, s.RecordRun(ctx, rec))
	assert.NotZero(t, rec.ID)
	assert.False(t, rec.CreatedAt.IsZero())

	runs, err := s.ListRuns(ctx, 10, 0)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	got := runs[0]
	assert.Equal(t, "in.swiggy.android", got.AppID)
	assert.Equal(t, "2025-08-20", got.Date)
	assert.Equal(t, 42, got.ReviewCount)
	assert.Equal(t, 9, got.CategoryCount)
	assert.Equal(t, 1, got.NewCategories)
	assert.False(t, got.Degraded)
	assert.Equal(t, 1500*time.Millisecond, got.Duration)
}

func TestListRunsNewestFirst(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	for _, date := range []string{"2025-08-18", "2025-08-19", "2025-08-20"} {
		require.NoError(t, s.RecordRun(ctx, &models.RunRecord{
			AppID: "in.swiggy.android", Date: date, ReviewCount: 1, CategoryCount: 9,
		}))
	}

	runs, err := s.ListRuns(ctx, 2, 0)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, "2025-08-20", runs[0].Date)
	assert.Equal(t, "2025-08-19", runs[1].Date)
}

func TestRecordRunDegradedFlag(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.RecordRun(ctx, &models.RunRecord{
		AppID: "in.swiggy.android", Date: "2025-08-20", Degraded: true,
	}))

	runs, err := s.ListRuns(ctx, 1, 0)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.True(t, runs[0].Degraded)
}

func TestRecordRunRejectsNil(t *testing.T) {
	s := newTestStore(t)
	assert.Error(t, s.RecordRun(context.Background(), nil))
}
