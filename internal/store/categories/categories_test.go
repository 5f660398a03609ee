package categories

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	return NewStore(filepath.Join(t.TempDir(), "dynamic_categories.json"))
}

func TestAllWithoutFileReturnsPredefined(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	all := s.All(ctx)

	require.Len(t, all, len(PredefinedOrder))
	assert.Contains(t, all, "Delivery issue")
	assert.Contains(t, all["Delivery issue"], "delivery delay")
	assert.Contains(t, all, DefaultCategory)
}

func TestAddDynamicCreatesAndPersists(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	ok := s.AddDynamic(ctx, "Packaging Damaged", []string{"box was crushed"})
	require.True(t, ok)

	assert.True(t, s.Exists(ctx, "Packaging Damaged"))
	assert.Contains(t, s.All(ctx)["Packaging Damaged"], "box was crushed")

	// A second store over the same file sees the persisted category.
	reopened := NewStore(s.path)
	assert.True(t, reopened.Exists(ctx, "Packaging Damaged"))
}

func TestAddDynamicIsIdempotent(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.True(t, s.AddDynamic(ctx, "Foo", []string{"x"}))
	require.True(t, s.AddDynamic(ctx, "Foo", []string{"x"}))

	phrases := s.All(ctx)["Foo"]
	count := 0
	for _, p := range phrases {
		if p == "x" {
			count++
		}
	}
	assert.Equal(t, 1, count, "phrase must appear exactly once after repeated adds")
}

func TestAddDynamicRejectsEmptyName(t *testing.T) {
	s := newTestStore(t)
	assert.False(t, s.AddDynamic(context.Background(), "   ", []string{"x"}))
}

func TestAddDynamicTrimsName(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.True(t, s.AddDynamic(ctx, "  Refund Delays  ", []string{"refund pending"}))
	assert.True(t, s.Exists(ctx, "Refund Delays"))
	assert.True(t, s.Exists(ctx, "  Refund Delays "))
}

func TestDynamicExtendsPredefinedEntry(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.True(t, s.AddDynamic(ctx, "App issues", []string{"otp never arrives", "app crash"}))

	phrases := s.All(ctx)["App issues"]
	assert.Contains(t, phrases, "app crash", "predefined phrases are retained")
	assert.Contains(t, phrases, "otp never arrives")

	crashes := 0
	for _, p := range phrases {
		if p == "app crash" {
			crashes++
		}
	}
	assert.Equal(t, 1, crashes, "duplicate of a predefined phrase must be skipped")
}

func TestMalformedFileTreatedAsEmpty(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "dynamic_categories.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o600))

	s := NewStore(path)
	all := s.All(context.Background())

	assert.Len(t, all, len(PredefinedOrder), "malformed file degrades to predefined-only")
}

func TestVocabularyMonotonicity(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	before := s.All(ctx)
	require.True(t, s.AddDynamic(ctx, "Coupon Problems", []string{"coupon not applied"}))
	after := s.All(ctx)

	for name := range before {
		assert.Contains(t, after, name, "no pre-existing category may disappear")
	}
	assert.Contains(t, after, "Coupon Problems")
}

func TestConcurrentAddSameCategoryLosesNothing(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	phrases := []string{"box was crushed", "seal was broken"}
	for _, phrase := range phrases {
		wg.Add(1)
		go func(p string) {
			defer wg.Done()
			s.AddDynamic(ctx, "Packaging Damaged", []string{p})
		}(phrase)
	}
	wg.Wait()

	got := s.All(ctx)["Packaging Damaged"]
	require.NotNil(t, got)
	assert.Contains(t, got, "box was crushed")
	assert.Contains(t, got, "seal was broken")

	// Exactly one entry on disk as well.
	data, err := os.ReadFile(s.path)
	require.NoError(t, err)
	var persisted map[string][]string
	require.NoError(t, json.Unmarshal(data, &persisted))
	assert.Len(t, persisted, 1)
	assert.ElementsMatch(t, phrases, persisted["Packaging Damaged"])
}

func TestExistsUnknownName(t *testing.T) {
	s := newTestStore(t)
	assert.False(t, s.Exists(context.Background(), "Nonexistent"))
	assert.False(t, s.Exists(context.Background(), ""))
}
