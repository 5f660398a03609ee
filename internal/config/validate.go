package config

import (
	"errors"
	"fmt"

	"github.com/robfig/cron/v3"
)

// Validate checks the loaded configuration for values that would only fail
// later at an awkward point (mid-scrape, first LLM call, worker start).
func (c *Config) Validate() error {
	switch c.Logging.Format {
	case "", "text", "json":
	default:
		return fmt.Errorf("logging.format must be \"text\" or \"json\", got %q", c.Logging.Format)
	}

	if c.Scrape.AppID == "" {
		return errors.New("scrape.app_id is required")
	}
	if c.Scrape.Count < 1 || c.Scrape.Count > 200 {
		return fmt.Errorf("scrape.count must be between 1 and 200, got %d", c.Scrape.Count)
	}
	if c.Scrape.Schedule != "" {
		if _, err := cron.ParseStandard(c.Scrape.Schedule); err != nil {
			return fmt.Errorf("scrape.schedule is not a valid cron spec: %w", err)
		}
	}

	if c.Storage.ReviewsDir == "" {
		return errors.New("storage.reviews_dir is required")
	}
	if c.Storage.CategoriesFile == "" {
		return errors.New("storage.categories_file is required")
	}
	if c.Storage.HistoryDB == "" {
		return errors.New("storage.history_db is required")
	}

	if c.Embedding.Dimension <= 0 {
		return errors.New("embedding.dimension must be a positive integer")
	}
	if c.Embedding.GeminiModelName != "" && c.Embedding.GoogleApiKey == "" {
		return errors.New("embedding.google_api_key is required when embedding.gemini_model_name is set")
	}

	if c.Categorization.BatchLimit <= 0 {
		return errors.New("categorization.batch_limit must be a positive integer")
	}
	if c.Categorization.Neighbors < 1 {
		return errors.New("categorization.neighbors must be at least 1")
	}

	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be a valid TCP port, got %d", c.Server.Port)
	}

	if c.Worker.Concurrency <= 0 {
		return errors.New("worker.concurrency must be a positive integer")
	}
	if len(c.Worker.Queues) == 0 {
		return errors.New("worker.queues must define at least one queue")
	}
	for name, priority := range c.Worker.Queues {
		if name == "" {
			return errors.New("worker.queues contains an empty queue name")
		}
		if priority <= 0 {
			return fmt.Errorf("worker.queues priority for queue '%s' must be positive", name)
		}
	}

	return nil
}
