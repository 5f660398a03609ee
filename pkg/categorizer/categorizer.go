package categorizer

import (
	"context"
	"errors"
	"strings"
)

// ErrMalformedResponse marks a response that arrived but could not be
// parsed into the expected structure. Callers distinguish it from transport
// failures: malformed output defaults the affected texts, a dead service
// triggers the keyword fallback.
var ErrMalformedResponse = errors.New("categorizer: malformed response")

// Assignment maps review text to the category name chosen for it. Names may
// be new; a text the categorizer could not place is simply absent.
type Assignment map[string]string

// ReviewCategorizer assigns category names to review texts, inventing new
// names when no existing category fits. Implementations must never return
// a "no category" signal for a text they address.
type ReviewCategorizer interface {
	Categorize(ctx context.Context, reviewTexts []string, existingCategories []string) (Assignment, error)
}

// NormalizeName sanitizes an untrusted category name: surrounding
// whitespace is trimmed and runs of inner whitespace collapse to one
// space. If the result differs from an existing name only by casing or
// whitespace, the existing spelling wins so near-duplicates never create
// a second category.
func NormalizeName(name string, existing []string) string {
	name = strings.Join(strings.Fields(name), " ")
	if name == "" {
		return ""
	}
	for _, have := range existing {
		if strings.EqualFold(strings.Join(strings.Fields(have), " "), name) {
			return have
		}
	}
	return name
}
