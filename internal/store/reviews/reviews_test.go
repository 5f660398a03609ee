package reviews

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"insitegent/internal/inputprocessor"
	"insitegent/internal/models"
	"insitegent/internal/store"
)

func newTestArchive(t *testing.T) *Archive {
	t.Helper()
	return NewArchive(t.TempDir(), inputprocessor.New())
}

func sampleReview(content string) models.Review {
	return models.Review{
		ID:       uuid.New(),
		Content:  content,
		Score:    4,
		UserName: "asha",
		At:       time.Date(2025, 8, 20, 10, 0, 0, 0, time.UTC),
	}
}

func TestAppendAndLoadRoundTrip(t *testing.T) {
	a := newTestArchive(t)
	ctx := context.Background()

	in := []models.Review{sampleReview("late delivery"), sampleReview("great food")}
	added, err := a.Append(ctx, "2025-08-20", in)
	require.NoError(t, err)
	assert.Equal(t, 2, added)

	got, err := a.LoadByDate(ctx, "2025-08-20")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, in[0].ID, got[0].ID)
	assert.Equal(t, "late delivery", got[0].Content)
	assert.Equal(t, 4, got[0].Score)
	assert.Equal(t, "asha", got[0].UserName)
	assert.True(t, got[0].At.Equal(in[0].At))
}

func TestAppendDeduplicatesByID(t *testing.T) {
	a := newTestArchive(t)
	ctx := context.Background()

	r := sampleReview("app keeps crashing")
	added, err := a.Append(ctx, "2025-08-20", []models.Review{r})
	require.NoError(t, err)
	assert.Equal(t, 1, added)

	added, err = a.Append(ctx, "2025-08-20", []models.Review{r, sampleReview("fresh one")})
	require.NoError(t, err)
	assert.Equal(t, 1, added, "the already-archived review must be skipped")

	got, err := a.LoadByDate(ctx, "2025-08-20")
	require.NoError(t, err)
	assert.Len(t, got, 2)
}

func TestAppendRejectsBadDate(t *testing.T) {
	a := newTestArchive(t)

	_, err := a.Append(context.Background(), "20-08-2025", []models.Review{sampleReview("x")})
	assert.ErrorIs(t, err, store.ErrInvalidInput)
}

func TestLoadByDateMissingFile(t *testing.T) {
	a := newTestArchive(t)

	_, err := a.LoadByDate(context.Background(), "2025-01-01")
	assert.True(t, errors.Is(err, store.ErrNotFound))
}

func TestAvailableDatesSortedNewestFirst(t *testing.T) {
	a := newTestArchive(t)
	ctx := context.Background()

	for _, date := range []string{"2025-08-18", "2025-08-20", "2025-08-19"} {
		_, err := a.Append(ctx, date, []models.Review{sampleReview("r " + date)})
		require.NoError(t, err)
	}

	dates, err := a.AvailableDates(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"2025-08-20", "2025-08-19", "2025-08-18"}, dates)
}

func TestAvailableDatesIgnoresForeignFiles(t *testing.T) {
	dir := t.TempDir()
	a := NewArchive(dir, inputprocessor.New())
	ctx := context.Background()

	_, err := a.Append(ctx, "2025-08-20", []models.Review{sampleReview("x")})
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("hi"), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "not-a-date.csv"), []byte("a,b"), 0o600))

	dates, err := a.AvailableDates(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"2025-08-20"}, dates)
}

func TestAvailableDatesEmptyDirectory(t *testing.T) {
	a := NewArchive(filepath.Join(t.TempDir(), "missing"), inputprocessor.New())

	dates, err := a.AvailableDates(context.Background())
	require.NoError(t, err)
	assert.Empty(t, dates)
}

func TestLoadToleratesLegacyColumns(t *testing.T) {
	dir := t.TempDir()
	legacy := "reviewId,userName,userImage,content,score,thumbsUpCount,at\n" +
		"gp:AOqpTOHxyz,ravi,http://img,food was cold,2,0,2025-08-20 09:15:00\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "2025-08-20.csv"), []byte(legacy), 0o600))

	a := NewArchive(dir, inputprocessor.New())
	got, err := a.LoadByDate(context.Background(), "2025-08-20")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "food was cold", got[0].Content)
	assert.Equal(t, 2, got[0].Score)
	assert.Equal(t, "ravi", got[0].UserName)
	assert.NotEqual(t, uuid.Nil, got[0].ID)
}
