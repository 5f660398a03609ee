package services

import (
	"context"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"

	"insitegent/internal/models"
	"insitegent/internal/scraper"
	"insitegent/internal/store"
)

// ReviewService ties the scraper, the review archive, the categorization
// pipeline and run history together. CLI commands, API handlers and worker
// tasks all go through it.
type ReviewService struct {
	scraper scraper.Scraper
	archive store.ReviewArchive
	history store.HistoryStore
	engine  *CategorizationService
	appID   string
}

func NewReviewService(sc scraper.Scraper, archive store.ReviewArchive, history store.HistoryStore, engine *CategorizationService, appID string) *ReviewService {
	return &ReviewService{
		scraper: sc,
		archive: archive,
		history: history,
		engine:  engine,
		appID:   appID,
	}
}

// ScrapeAndArchive fetches up to count reviews for appID (the configured
// app when empty) and appends them to today's archive batch. It returns
// the batch date and how many reviews were new.
func (s *ReviewService) ScrapeAndArchive(ctx context.Context, appID string, count int) (string, int, error) {
	if appID == "" {
		appID = s.appID
	}

	reviews, err := s.scraper.FetchReviews(ctx, appID, count)
	if err != nil {
		return "", 0, fmt.Errorf("fetching reviews: %w", err)
	}

	date := time.Now().Format("2006-01-02")
	added, err := s.archive.Append(ctx, date, reviews)
	if err != nil {
		return "", 0, fmt.Errorf("archiving reviews: %w", err)
	}

	log.WithFields(log.Fields{
		"app_id":  appID,
		"date":    date,
		"fetched": len(reviews),
		"added":   added,
	}).Info("Scrape archived")
	return date, added, nil
}

// CategorizeDate runs the categorization pipeline over one archived date
// and records the run. A history write failure is logged, not returned:
// the categorization result is already complete at that point.
func (s *ReviewService) CategorizeDate(ctx context.Context, date string) (*models.Result, error) {
	started := time.Now()

	reviews, err := s.archive.LoadByDate(ctx, date)
	if err != nil {
		return nil, fmt.Errorf("loading reviews for %s: %w", date, err)
	}

	result, err := s.engine.Categorize(ctx, reviews)
	if err != nil {
		return nil, fmt.Errorf("categorizing %s: %w", date, err)
	}

	if s.history != nil {
		rec := &models.RunRecord{
			AppID:         s.appID,
			Date:          date,
			ReviewCount:   result.Total(),
			CategoryCount: len(result.Counts),
			NewCategories: len(result.NewCategories),
			Degraded:      result.Degraded,
			Duration:      time.Since(started),
		}
		if err := s.history.RecordRun(ctx, rec); err != nil {
			log.WithError(err).Warn("Could not record run history")
		}
	}
	return result, nil
}
