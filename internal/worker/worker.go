// Package worker executes queued scrape and categorize tasks.
package worker

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/hibiken/asynq"
	log "github.com/sirupsen/logrus"

	"insitegent/internal/models"
	"insitegent/internal/tasks"
)

// reviewRunner is the slice of ReviewService the handlers use.
type reviewRunner interface {
	ScrapeAndArchive(ctx context.Context, appID string, count int) (string, int, error)
	CategorizeDate(ctx context.Context, date string) (*models.Result, error)
}

// Handler routes asynq tasks to the review pipeline. appID and count fill
// in for scrape tasks that do not override them. A completed scrape chains
// a categorize task for the archived date through queue.
type Handler struct {
	reviews reviewRunner
	queue   tasks.Enqueuer
	appID   string
	count   int
}

func NewHandler(reviews reviewRunner, queue tasks.Enqueuer, appID string, count int) *Handler {
	return &Handler{reviews: reviews, queue: queue, appID: appID, count: count}
}

// Mux returns the task router for asynq.Server.Run.
func (h *Handler) Mux() *asynq.ServeMux {
	mux := asynq.NewServeMux()
	mux.HandleFunc(tasks.TypeScrapeArchive, h.HandleScrapeArchive)
	mux.HandleFunc(tasks.TypeCategorizeRun, h.HandleCategorizeRun)
	return mux
}

func (h *Handler) HandleScrapeArchive(ctx context.Context, t *asynq.Task) error {
	var p tasks.ScrapeArchivePayload
	if err := json.Unmarshal(t.Payload(), &p); err != nil {
		return fmt.Errorf("scrape payload: %v: %w", err, asynq.SkipRetry)
	}
	if p.AppID == "" {
		p.AppID = h.appID
	}
	if p.Count <= 0 {
		p.Count = h.count
	}

	date, added, err := h.reviews.ScrapeAndArchive(ctx, p.AppID, p.Count)
	if err != nil {
		return err
	}
	log.WithFields(log.Fields{
		"app_id": p.AppID,
		"date":   date,
		"added":  added,
	}).Info("Scrape task complete")

	if h.queue == nil {
		return nil
	}
	// Archive appends are deduplicated, so retrying the whole task after a
	// failed enqueue is safe.
	next, err := tasks.NewCategorizeRunTask(date)
	if err != nil {
		return err
	}
	if _, err := h.queue.EnqueueContext(ctx, next); err != nil {
		return fmt.Errorf("enqueueing categorize for %s: %w", date, err)
	}
	return nil
}

func (h *Handler) HandleCategorizeRun(ctx context.Context, t *asynq.Task) error {
	var p tasks.CategorizeRunPayload
	if err := json.Unmarshal(t.Payload(), &p); err != nil {
		return fmt.Errorf("categorize payload: %v: %w", err, asynq.SkipRetry)
	}
	if p.Date == "" {
		return fmt.Errorf("categorize task without date: %w", asynq.SkipRetry)
	}

	result, err := h.reviews.CategorizeDate(ctx, p.Date)
	if err != nil {
		return err
	}
	log.WithFields(log.Fields{
		"date":           p.Date,
		"reviews":        result.Total(),
		"new_categories": len(result.NewCategories),
		"degraded":       result.Degraded,
	}).Info("Categorize task complete")
	return nil
}
