// Package vector provides an in-memory exact nearest-neighbor index over
// example-phrase embeddings. The corpus is small (tens to low hundreds of
// phrases), so a brute-force scan with squared Euclidean distance beats any
// approximate structure on both simplicity and freshness: the index is
// rebuilt from the category store at the start of every run.
package vector

import (
	"fmt"
	"sort"
	"sync"

	"github.com/pgvector/pgvector-go"

	"insitegent/internal/store"
)

type entry struct {
	text     string
	vec      []float32
	category string
}

// Index is a fixed-dimension, in-memory L2 index. Safe for concurrent use.
type Index struct {
	dim     int
	mu      sync.RWMutex
	entries []entry
}

// NewIndex creates an empty index for vectors of the given dimension.
func NewIndex(dimension int) (*Index, error) {
	if dimension <= 0 {
		return nil, fmt.Errorf("index dimension must be positive, got %d: %w", dimension, store.ErrInvalidInput)
	}
	return &Index{dim: dimension}, nil
}

// Add stores each (text, vector, category) triple and returns the assigned
// positional indices. Empty input is a no-op returning an empty slice.
func (ix *Index) Add(texts []string, vectors []pgvector.Vector, categories []string) ([]int, error) {
	if len(vectors) == 0 {
		return []int{}, nil
	}
	if len(texts) != len(vectors) || len(categories) != len(vectors) {
		return nil, fmt.Errorf("texts (%d), vectors (%d) and categories (%d) must align: %w",
			len(texts), len(vectors), len(categories), store.ErrInvalidInput)
	}

	for i, v := range vectors {
		if got := len(v.Slice()); got != ix.dim {
			return nil, fmt.Errorf("vector %d has dimension %d, index expects %d: %w",
				i, got, ix.dim, store.ErrDimension)
		}
	}

	ix.mu.Lock()
	defer ix.mu.Unlock()

	ids := make([]int, 0, len(vectors))
	for i, v := range vectors {
		ids = append(ids, len(ix.entries))
		ix.entries = append(ix.entries, entry{
			text:     texts[i],
			vec:      append([]float32(nil), v.Slice()...),
			category: categories[i],
		})
	}
	return ids, nil
}

// Search returns up to k nearest neighbors by squared Euclidean distance,
// closest first. k is clamped to the number of stored entries; an empty
// index yields an empty result.
func (ix *Index) Search(query pgvector.Vector, k int) []store.IndexMatch {
	ix.mu.RLock()
	defer ix.mu.RUnlock()

	if len(ix.entries) == 0 || k <= 0 {
		return []store.IndexMatch{}
	}
	if k > len(ix.entries) {
		k = len(ix.entries)
	}

	q := query.Slice()
	matches := make([]store.IndexMatch, 0, len(ix.entries))
	for _, e := range ix.entries {
		matches = append(matches, store.IndexMatch{
			Text:     e.text,
			Distance: squaredL2(q, e.vec),
			Category: e.category,
		})
	}
	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Distance < matches[j].Distance
	})
	return matches[:k]
}

// Len returns the number of stored entries.
func (ix *Index) Len() int {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return len(ix.entries)
}

func squaredL2(a, b []float32) float32 {
	var sum float32
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	for i := 0; i < n; i++ {
		d := a[i] - b[i]
		sum += d * d
	}
	return sum
}

var _ store.VectorIndex = (*Index)(nil)
