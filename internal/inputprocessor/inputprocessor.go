// Package inputprocessor normalizes review rows arriving in different
// shapes (scrape payload entries, archived CSV rows, API payloads) into the
// one canonical Review record the rest of the pipeline consumes. Nothing
// downstream ever branches on input shape.
package inputprocessor

import (
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"insitegent/internal/models"
	"insitegent/internal/util"
)

// reviewIDNamespace is the fixed UUIDv5 namespace for deriving stable
// review IDs from external identifiers (e.g. Play Store review IDs), so
// re-scraping the same review always yields the same ID.
var reviewIDNamespace = uuid.MustParse("9f2c1a48-7c31-4b2e-9d7a-52fd3a0c6e19")

// Accepted timestamp layouts, most common first. Archived files written by
// other tooling use a plain "2006-01-02 15:04:05" form.
var timeLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02",
}

// RawReview is an un-normalized review row: every field is a string and any
// field may be absent.
type RawReview struct {
	ID       string
	Content  string
	Score    string
	UserName string
	At       string
}

// Processor turns raw review rows into canonical Review records.
type Processor interface {
	Process(raw RawReview) models.Review
	ProcessAll(raws []RawReview) []models.Review
}

// New creates the default processor implementation.
func New() Processor {
	return &defaultProcessor{}
}

type defaultProcessor struct{}

// Process normalizes one raw row. Normalization is total: a missing or
// foreign ID is replaced with a derived or fresh UUID, unparseable scores
// and timestamps become zero values, and content is UTF-8 cleaned. Empty
// content is preserved as-is; excluding such reviews is the engine's call.
func (p *defaultProcessor) Process(raw RawReview) models.Review {
	return models.Review{
		ID:       normalizeID(raw.ID),
		Content:  util.CleanText(raw.Content),
		Score:    normalizeScore(raw.Score),
		UserName: strings.TrimSpace(raw.UserName),
		At:       normalizeTime(raw.At),
	}
}

// ProcessAll normalizes a batch, preserving order.
func (p *defaultProcessor) ProcessAll(raws []RawReview) []models.Review {
	out := make([]models.Review, 0, len(raws))
	for _, raw := range raws {
		out = append(out, p.Process(raw))
	}
	return out
}

func normalizeID(id string) uuid.UUID {
	id = strings.TrimSpace(id)
	if id == "" {
		return uuid.New()
	}
	if parsed, err := uuid.Parse(id); err == nil {
		return parsed
	}
	return uuid.NewSHA1(reviewIDNamespace, []byte(id))
}

// normalizeScore accepts both integer and float renderings ("4", "4.0").
func normalizeScore(s string) int {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return int(f)
}

func normalizeTime(s string) time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}
	}
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}

var _ Processor = (*defaultProcessor)(nil)
