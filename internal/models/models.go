package models

import (
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Review is one app-store review, normalized at the ingestion boundary.
// Records are immutable after ingestion; the categorization pipeline
// associates them with categories but never mutates them.
type Review struct {
	ID       uuid.UUID `json:"reviewId" csv:"reviewId"`
	Content  string    `json:"content"`
	Score    int       `json:"score,omitempty"`
	UserName string    `json:"userName,omitempty"`
	At       time.Time `json:"at,omitempty"`
}

// HasContent reports whether the review carries categorizable text.
// Reviews with empty or whitespace-only content are excluded from
// categorization entirely.
func (r Review) HasContent() bool {
	return strings.TrimSpace(r.Content) != ""
}

// Result is the outcome of one categorization run. Counts maps category
// name to the number of reviews assigned to it; Categorized maps category
// name to the assigned reviews in assignment order. Every review with
// non-empty content appears in exactly one bucket, so the counts always
// sum to the number of such reviews.
type Result struct {
	Counts      map[string]int      `json:"counts"`
	Categorized map[string][]Review `json:"categorized_reviews"`

	// NewCategories lists dynamic categories created during this run, in
	// creation order. Degraded is set when the run fell back to keyword
	// classification because no embedding provider was reachable.
	NewCategories []string `json:"new_categories,omitempty"`
	Degraded      bool     `json:"degraded,omitempty"`
}

// NewResult returns an empty Result with zero counts over the given
// vocabulary so callers always see every known category, matched or not.
func NewResult(vocabulary map[string][]string) *Result {
	r := &Result{
		Counts:      make(map[string]int, len(vocabulary)),
		Categorized: make(map[string][]Review, len(vocabulary)),
	}
	for name := range vocabulary {
		r.Counts[name] = 0
		r.Categorized[name] = []Review{}
	}
	return r
}

// Assign places a review in the named category, removing it from any
// previous bucket first so a review is never double-counted.
func (r *Result) Assign(category string, review Review) {
	for name, reviews := range r.Categorized {
		for i, existing := range reviews {
			if existing.ID == review.ID {
				r.Categorized[name] = append(reviews[:i], reviews[i+1:]...)
				r.Counts[name]--
				break
			}
		}
	}
	r.Categorized[category] = append(r.Categorized[category], review)
	r.Counts[category]++
}

// Total returns the number of assigned reviews across all categories.
func (r *Result) Total() int {
	total := 0
	for _, n := range r.Counts {
		total += n
	}
	return total
}

// Vocabulary returns the category names known to this result, sorted.
// Categories created mid-run are included as soon as they are assigned.
func (r *Result) Vocabulary() []string {
	names := make([]string, 0, len(r.Counts))
	for name := range r.Counts {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// RunRecord is one row of categorization run history.
type RunRecord struct {
	ID            int64         `db:"id"`
	AppID         string        `db:"app_id"`
	Date          string        `db:"date"`
	ReviewCount   int           `db:"review_count"`
	CategoryCount int           `db:"category_count"`
	NewCategories int           `db:"new_categories"`
	Degraded      bool          `db:"degraded"`
	Duration      time.Duration `db:"duration_ms"`
	CreatedAt     time.Time     `db:"created_at"`
}
