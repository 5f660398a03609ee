package apihandlers

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"

	"insitegent/internal/models"
	"insitegent/internal/store"
)

// reviewPipeline is the slice of ReviewService the handlers depend on.
type reviewPipeline interface {
	ScrapeAndArchive(ctx context.Context, appID string, count int) (string, int, error)
	CategorizeDate(ctx context.Context, date string) (*models.Result, error)
}

// APIHandler serves the dashboard API over the review archive, the
// category vocabulary and the categorization pipeline.
type APIHandler struct {
	Reviews    reviewPipeline
	Archive    store.ReviewArchive
	Categories store.CategoryStore
}

func NewAPIHandler(reviews reviewPipeline, archive store.ReviewArchive, categories store.CategoryStore) *APIHandler {
	return &APIHandler{
		Reviews:    reviews,
		Archive:    archive,
		Categories: categories,
	}
}

// RegisterRoutes mounts all API routes on the router.
func (h *APIHandler) RegisterRoutes(r *gin.Engine) {
	r.GET("/health", h.HealthHandler)

	v1 := r.Group("/api/v1")
	{
		v1.GET("/dates", h.ListDatesHandler)
		v1.GET("/reviews", h.ReviewsByDateHandler)
		v1.POST("/categorize", h.CategorizeDateHandler)
		v1.GET("/fetch_reviews", h.FetchReviewsHandler)
		v1.GET("/categories", h.ListCategoriesHandler)
		v1.GET("/export", h.ExportHandler)
	}
}

func (h *APIHandler) HealthHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// ListDatesHandler returns the archived batch dates, newest first.
func (h *APIHandler) ListDatesHandler(c *gin.Context) {
	dates, err := h.Archive.AvailableDates(c.Request.Context())
	if err != nil {
		Internal(c, fmt.Sprintf("listing archive dates: %v", err))
		return
	}
	c.JSON(http.StatusOK, gin.H{"dates": dates})
}

// ReviewsByDateHandler returns the raw archived reviews of one date.
func (h *APIHandler) ReviewsByDateHandler(c *gin.Context) {
	date := c.Query("date")
	if date == "" {
		BadRequest(c, "Missing required 'date' parameter")
		return
	}

	reviews, err := h.Archive.LoadByDate(c.Request.Context(), date)
	if err != nil {
		respondLoadError(c, date, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"date":    date,
		"count":   len(reviews),
		"reviews": reviews,
	})
}

// CategorizeDateHandler runs the categorization pipeline over one archived
// date and returns counts plus per-category reviews.
func (h *APIHandler) CategorizeDateHandler(c *gin.Context) {
	var req struct {
		Date string `json:"date"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "Invalid request body: "+err.Error())
		return
	}
	if req.Date == "" {
		BadRequest(c, "Missing required 'date' field")
		return
	}

	result, err := h.Reviews.CategorizeDate(c.Request.Context(), req.Date)
	if err != nil {
		respondLoadError(c, req.Date, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// FetchReviewsHandler scrapes fresh reviews, archives them under today's
// date, categorizes the batch and responds with the full outcome.
func (h *APIHandler) FetchReviewsHandler(c *gin.Context) {
	appID := c.Query("app_id")
	if appID == "" {
		BadRequest(c, "Missing required 'app_id' parameter")
		return
	}
	count, err := parseCount(c)
	if err != nil {
		BadRequest(c, err.Error())
		return
	}

	date, added, err := h.Reviews.ScrapeAndArchive(c.Request.Context(), appID, count)
	if err != nil {
		Internal(c, fmt.Sprintf("fetching reviews for %s: %v", appID, err))
		return
	}

	result, err := h.Reviews.CategorizeDate(c.Request.Context(), date)
	if err != nil {
		Internal(c, fmt.Sprintf("categorizing %s: %v", date, err))
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"app_id":              appID,
		"date":                date,
		"added":               added,
		"counts":              result.Counts,
		"categorized_reviews": result.Categorized,
	})
}

// ListCategoriesHandler returns the merged category vocabulary.
func (h *APIHandler) ListCategoriesHandler(c *gin.Context) {
	vocabulary := h.Categories.All(c.Request.Context())
	c.JSON(http.StatusOK, gin.H{
		"count":      len(vocabulary),
		"categories": vocabulary,
	})
}

// ExportHandler streams one date's reviews as CSV with their assigned
// category appended to each row.
func (h *APIHandler) ExportHandler(c *gin.Context) {
	date := c.Query("date")
	if date == "" {
		BadRequest(c, "Missing required 'date' parameter")
		return
	}

	result, err := h.Reviews.CategorizeDate(c.Request.Context(), date)
	if err != nil {
		respondLoadError(c, date, err)
		return
	}

	c.Header("Content-Type", "text/csv")
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", "reviews_"+date+"_categorized.csv"))
	c.Status(http.StatusOK)

	w := csv.NewWriter(c.Writer)
	_ = w.Write([]string{"reviewId", "content", "score", "userName", "at", "category"})
	for _, category := range result.Vocabulary() {
		for _, review := range result.Categorized[category] {
			at := ""
			if !review.At.IsZero() {
				at = review.At.Format(time.RFC3339)
			}
			_ = w.Write([]string{
				review.ID.String(),
				review.Content,
				strconv.Itoa(review.Score),
				review.UserName,
				at,
				category,
			})
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		log.WithError(err).WithField("date", date).Error("CSV export write failed")
	}
}

// parseCount reads the optional 'count' query parameter, defaulting to 100
// and clamping to the 1..200 the scraper is willing to serve per request.
func parseCount(c *gin.Context) (int, error) {
	raw := c.DefaultQuery("count", "100")
	count, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid count: %s", raw)
	}
	if count < 1 {
		count = 1
	}
	if count > 200 {
		count = 200
	}
	return count, nil
}

// respondLoadError maps archive errors onto HTTP statuses.
func respondLoadError(c *gin.Context, date string, err error) {
	switch {
	case errors.Is(err, store.ErrNotFound):
		NotFound(c, fmt.Sprintf("No reviews archived for date: %s", date))
	case errors.Is(err, store.ErrInvalidInput):
		BadRequest(c, fmt.Sprintf("Invalid date: %s", date))
	default:
		Internal(c, fmt.Sprintf("loading %s: %v", date, err))
	}
}
