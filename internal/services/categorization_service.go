package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/pgvector/pgvector-go"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"insitegent/internal/models"
	"insitegent/internal/store"
	"insitegent/internal/store/categories"
	"insitegent/internal/store/vector"
	"insitegent/pkg/categorizer"
)

// CategorizationService runs the pipeline for one review batch: embed the
// vocabulary's example phrases and the review texts, match each review to
// its nearest phrase, escalate whatever could not be matched to the LLM,
// and fall back to keyword rules when providers are down. It always
// returns a complete Result; external failures downgrade the run, they
// never abort it.
type CategorizationService struct {
	categoryStore    store.CategoryStore
	embedder         store.EmbeddingService
	llm              categorizer.ReviewCategorizer
	keywords         *KeywordClassifier
	neighbors        int
	embeddingTimeout time.Duration
	llmTimeout       time.Duration
}

// CategorizationOptions tunes per-run behavior. Zero values select the
// defaults: 1 neighbor, 60s embedding timeout, 120s LLM timeout.
type CategorizationOptions struct {
	// Neighbors is how many nearest examples are fetched per review. Only
	// the closest decides the assignment; the rest are logged for tie
	// diagnostics.
	Neighbors        int
	EmbeddingTimeout time.Duration
	LLMTimeout       time.Duration
}

func NewCategorizationService(categoryStore store.CategoryStore, embedder store.EmbeddingService, llm categorizer.ReviewCategorizer, opts CategorizationOptions) *CategorizationService {
	if opts.Neighbors < 1 {
		opts.Neighbors = 1
	}
	if opts.EmbeddingTimeout <= 0 {
		opts.EmbeddingTimeout = 60 * time.Second
	}
	if opts.LLMTimeout <= 0 {
		opts.LLMTimeout = 120 * time.Second
	}
	return &CategorizationService{
		categoryStore:    categoryStore,
		embedder:         embedder,
		llm:              llm,
		keywords:         NewKeywordClassifier(),
		neighbors:        opts.Neighbors,
		embeddingTimeout: opts.EmbeddingTimeout,
		llmTimeout:       opts.LLMTimeout,
	}
}

// Categorize assigns every review with non-empty content to exactly one
// category. Reviews with blank content are excluded entirely. The returned
// Result is well formed even when every external service is down.
func (s *CategorizationService) Categorize(ctx context.Context, reviews []models.Review) (*models.Result, error) {
	started := time.Now()

	vocabulary := s.categoryStore.All(ctx)
	result := models.NewResult(vocabulary)

	kept := make([]models.Review, 0, len(reviews))
	for _, review := range reviews {
		if review.HasContent() {
			kept = append(kept, review)
		}
	}
	if len(kept) == 0 {
		log.Debug("No categorizable review content in batch")
		return result, nil
	}

	exampleTexts, exampleOwners := flattenVocabulary(vocabulary)
	reviewTexts := make([]string, len(kept))
	for i, review := range kept {
		reviewTexts[i] = review.Content
	}

	log.WithFields(log.Fields{
		"reviews":  len(kept),
		"examples": len(exampleTexts),
		"provider": s.embedder.Name(),
	}).Info("Embedding review batch")

	// Example and review embeddings are independent requests.
	var exampleVecs, reviewVecs []pgvector.Vector
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		vecs, err := s.embed(gctx, exampleTexts)
		exampleVecs = vecs
		return err
	})
	g.Go(func() error {
		vecs, err := s.embed(gctx, reviewTexts)
		reviewVecs = vecs
		return err
	})
	if err := g.Wait(); err != nil {
		log.WithError(err).Warn("Embedding unavailable, degrading to keyword classification")
		s.classifyByKeywords(kept, result)
		result.Degraded = true
		return result, nil
	}

	index := s.buildIndex(exampleTexts, exampleVecs, exampleOwners)

	escalate := make([]models.Review, 0)
	for i, review := range kept {
		matches := index.Search(reviewVecs[i], s.neighbors)
		if len(matches) == 0 {
			escalate = append(escalate, review)
			continue
		}
		if len(matches) > 1 && log.IsLevelEnabled(log.DebugLevel) {
			log.WithFields(log.Fields{
				"category":  matches[0].Category,
				"distance":  matches[0].Distance,
				"runner_up": matches[1].Category,
				"margin":    matches[1].Distance - matches[0].Distance,
			}).Debug("Nearest-neighbor assignment")
		}
		result.Assign(matches[0].Category, review)
	}
	log.WithFields(log.Fields{
		"matched":   len(kept) - len(escalate),
		"escalated": len(escalate),
	}).Info("Similarity matching complete")

	if len(escalate) > 0 {
		s.escalate(ctx, escalate, result)
	}

	log.WithFields(log.Fields{
		"reviews":        result.Total(),
		"categories":     len(result.Counts),
		"new_categories": len(result.NewCategories),
		"took":           time.Since(started).Round(time.Millisecond),
	}).Info("Categorization run complete")
	return result, nil
}

// embed wraps one provider request with the configured timeout and treats
// a short response as a failure.
func (s *CategorizationService) embed(ctx context.Context, texts []string) ([]pgvector.Vector, error) {
	ctx, cancel := context.WithTimeout(ctx, s.embeddingTimeout)
	defer cancel()

	vecs, err := s.embedder.GenerateEmbeddings(ctx, texts)
	if err != nil {
		return nil, err
	}
	if len(vecs) != len(texts) {
		return nil, fmt.Errorf("embedding provider returned %d vectors for %d texts", len(vecs), len(texts))
	}
	return vecs, nil
}

// buildIndex always returns a usable index. If the example phrases cannot
// be indexed the index stays empty and every review escalates instead.
func (s *CategorizationService) buildIndex(texts []string, vecs []pgvector.Vector, owners []string) *vector.Index {
	dim := s.embedder.Dimension()
	if len(vecs) > 0 {
		dim = len(vecs[0].Slice())
	}
	if dim <= 0 {
		dim = 1
	}
	index, _ := vector.NewIndex(dim)
	if _, err := index.Add(texts, vecs, owners); err != nil {
		log.WithError(err).Error("Could not index example phrases")
	}
	return index
}

// escalate sends unmatched reviews to the LLM categorizer. New names are
// registered with the category store as they appear so later reviews in
// the same batch see them; texts the model did not address land in the
// default category. A dead LLM drops the whole queue to keyword rules.
func (s *CategorizationService) escalate(ctx context.Context, reviews []models.Review, result *models.Result) {
	texts := make([]string, len(reviews))
	for i, review := range reviews {
		texts[i] = review.Content
	}

	llmCtx, cancel := context.WithTimeout(ctx, s.llmTimeout)
	assignment, err := s.llm.Categorize(llmCtx, texts, result.Vocabulary())
	cancel()
	if err != nil {
		if errors.Is(err, categorizer.ErrMalformedResponse) {
			log.WithError(err).Warn("Unusable categorizer response, defaulting escalated reviews")
			for _, review := range reviews {
				result.Assign(categories.DefaultCategory, review)
			}
			return
		}
		log.WithError(err).Warn("LLM categorizer unavailable, using keyword classification")
		s.classifyByKeywords(reviews, result)
		return
	}

	for _, review := range reviews {
		name, ok := assignment[review.Content]
		if !ok {
			result.Assign(categories.DefaultCategory, review)
			continue
		}
		name = categorizer.NormalizeName(name, result.Vocabulary())
		if name == "" {
			name = categories.DefaultCategory
		}
		if !s.categoryStore.Exists(ctx, name) {
			if s.categoryStore.AddDynamic(ctx, name, []string{review.Content}) {
				result.NewCategories = append(result.NewCategories, name)
				log.WithField("category", name).Info("Created dynamic category")
			} else {
				name = categories.DefaultCategory
			}
		}
		result.Assign(name, review)
	}
}

func (s *CategorizationService) classifyByKeywords(reviews []models.Review, result *models.Result) {
	for _, review := range reviews {
		result.Assign(s.keywords.Classify(review.Content), review)
	}
}

// flattenVocabulary lays out every example phrase alongside its owning
// category, predefined categories first in their declaration order, then
// dynamic ones sorted by name.
func flattenVocabulary(vocabulary map[string][]string) (texts, owners []string) {
	names := make([]string, 0, len(vocabulary))
	seen := make(map[string]bool, len(vocabulary))
	for _, name := range categories.PredefinedOrder {
		if _, ok := vocabulary[name]; ok {
			names = append(names, name)
			seen[name] = true
		}
	}
	dynamic := make([]string, 0)
	for name := range vocabulary {
		if !seen[name] {
			dynamic = append(dynamic, name)
		}
	}
	sort.Strings(dynamic)
	names = append(names, dynamic...)

	for _, name := range names {
		for _, phrase := range vocabulary[name] {
			texts = append(texts, phrase)
			owners = append(owners, name)
		}
	}
	return texts, owners
}
