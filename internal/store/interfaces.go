package store

import (
	"context"

	"github.com/pgvector/pgvector-go"

	"insitegent/internal/models"
)

// --- Provider Status ---

type ProviderStatus int

const (
	ProviderStatusUnknown  ProviderStatus = iota // Default zero value
	ProviderStatusActive                         // Provider is operational
	ProviderStatusInactive                       // Provider is temporarily unavailable (e.g., network, rate limit)
	ProviderStatusDisabled                       // Provider is not configured or explicitly disabled
)

// --- Category Store ---

// CategoryStore is the durable category vocabulary: the predefined set
// merged with dynamically created categories. Categories grow append-only
// within a run; nothing is ever deleted.
type CategoryStore interface {
	// All returns predefined categories merged with persisted dynamic ones.
	// Dynamic phrases extend, never replace, a predefined entry of the same
	// name. A read failure degrades to the predefined set alone.
	All(ctx context.Context) map[string][]string

	// AddDynamic registers a dynamic category, or extends an existing one
	// with the phrases it does not already hold. Idempotent: repeating a
	// (name, phrase) pair changes nothing after the first call. Returns
	// false only when the name is unusable (empty after trimming); a failed
	// persistence write still counts as success because the category remains
	// usable in memory for the rest of the run.
	AddDynamic(ctx context.Context, name string, phrases []string) bool

	// Exists reports whether name (after trimming) is in the merged vocabulary.
	Exists(ctx context.Context, name string) bool
}

// --- Review Archive ---

// ReviewArchive stores scraped reviews as one batch per calendar date.
type ReviewArchive interface {
	// Append adds reviews to the date's batch, skipping those whose ID is
	// already archived, and returns how many were actually added.
	Append(ctx context.Context, date string, reviews []models.Review) (int, error)

	// AvailableDates lists archived dates, newest first.
	AvailableDates(ctx context.Context) ([]string, error)

	// LoadByDate returns the archived reviews for a date.
	// Returns ErrNotFound if the date has no batch.
	LoadByDate(ctx context.Context, date string) ([]models.Review, error)
}

// --- Run History ---

// HistoryStore records completed categorization runs.
type HistoryStore interface {
	RecordRun(ctx context.Context, rec *models.RunRecord) error
	ListRuns(ctx context.Context, limit, offset int) ([]*models.RunRecord, error)
	Close() error
}

// --- Similarity Index ---

// IndexMatch is one nearest-neighbor hit: the stored example phrase, its
// squared Euclidean distance from the query, and the owning category.
type IndexMatch struct {
	Text     string
	Distance float32
	Category string
}

// VectorIndex is the in-memory nearest-neighbor index over example-phrase
// embeddings. It lives for one categorization run and is rebuilt from the
// CategoryStore at the start of the next.
type VectorIndex interface {
	// Add stores texts with their vectors and owning categories, returning
	// the assigned positional indices. Empty input is a no-op.
	Add(texts []string, vectors []pgvector.Vector, categories []string) ([]int, error)

	// Search returns up to k nearest neighbors by squared Euclidean
	// distance, ascending. k is clamped to Len(); an empty index yields an
	// empty result.
	Search(query pgvector.Vector, k int) []IndexMatch

	Len() int
}

// --- Embedding Service ---

type EmbeddingService interface {
	GenerateEmbedding(ctx context.Context, text string) (pgvector.Vector, error)
	GenerateEmbeddings(ctx context.Context, texts []string) ([]pgvector.Vector, error)
	Dimension() int
	ModelName() string
	Name() string
	Status() ProviderStatus
}
