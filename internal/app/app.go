// Package app wires configuration, stores, providers and services together
// so the CLI commands share one initialization path.
package app

import (
	"fmt"
	"time"

	"github.com/hibiken/asynq"
	openai "github.com/sashabaranov/go-openai"
	log "github.com/sirupsen/logrus"

	"insitegent/internal/config"
	"insitegent/internal/inputprocessor"
	"insitegent/internal/scraper"
	"insitegent/internal/services"
	"insitegent/internal/store"
	"insitegent/internal/store/categories"
	"insitegent/internal/store/history"
	"insitegent/internal/store/reviews"
	"insitegent/pkg/categorizer"
)

// App holds every initialized dependency. Commands pick what they need.
type App struct {
	Config *config.Config

	CategoryStore store.CategoryStore
	ReviewArchive store.ReviewArchive
	HistoryStore  store.HistoryStore

	EmbeddingService store.EmbeddingService
	Categorizer      categorizer.ReviewCategorizer
	Scraper          scraper.Scraper

	CategorizationService *services.CategorizationService
	ReviewService         *services.ReviewService

	gemini *services.GeminiProvider
}

func NewApp(cfg *config.Config) (*App, error) {
	app := &App{Config: cfg}

	if err := app.initStores(); err != nil {
		return nil, err
	}
	if err := app.initEmbeddingService(); err != nil {
		app.Close()
		return nil, err
	}
	if err := app.initCategorizer(); err != nil {
		app.Close()
		return nil, err
	}
	app.initPipeline()

	log.Debug("Application initialization complete")
	return app, nil
}

// --- Private Helper Methods ---

func (a *App) initStores() error {
	cfg := a.Config
	a.CategoryStore = categories.NewStore(cfg.Storage.CategoriesFile)
	a.ReviewArchive = reviews.NewArchive(cfg.Storage.ReviewsDir, inputprocessor.New())

	hs, err := history.NewStore(cfg.Storage.HistoryDB)
	if err != nil {
		return fmt.Errorf("init history store: %w", err)
	}
	a.HistoryStore = hs
	return nil
}

// initEmbeddingService chains the configured providers behind the fallback
// service. A provider without an API key stays in the chain disabled: its
// calls fail, the chain is exhausted, and the engine degrades to keyword
// matching instead of refusing to start.
func (a *App) initEmbeddingService() error {
	cfg := a.Config

	openaiProvider, err := services.NewOpenAIProvider(cfg.Embedding.OpenaiApiKey, cfg.Embedding.Model, cfg.Embedding.Dimension)
	if err != nil {
		return fmt.Errorf("init openai embedding provider: %w", err)
	}
	providers := []services.EmbeddingProvider{openaiProvider}

	if cfg.Embedding.GeminiModelName != "" {
		geminiProvider, err := services.NewGeminiProvider(cfg.Embedding.GoogleApiKey, cfg.Embedding.GeminiModelName)
		if err != nil {
			return fmt.Errorf("init gemini embedding provider: %w", err)
		}
		a.gemini = geminiProvider
		providers = append(providers, geminiProvider)
	}

	retryStrategy := &services.SimpleRetryStrategy{MaxAttempts: 3, BaseDelayMs: 200}
	embeddingService, err := services.NewFallbackEmbeddingService(providers, retryStrategy)
	if err != nil {
		return fmt.Errorf("init embedding service: %w", err)
	}
	a.EmbeddingService = embeddingService
	return nil
}

func (a *App) initCategorizer() error {
	cfg := a.Config

	switch cfg.Categorization.Provider {
	case "", "openai":
	default:
		return fmt.Errorf("unsupported categorization provider %q", cfg.Categorization.Provider)
	}
	if cfg.Embedding.OpenaiApiKey == "" {
		log.Warn("OpenAI API key not set; LLM escalation will fall back to keyword matching")
	}

	promptTemplate := ""
	if cfg.Categorization.PromptTemplate != "" {
		content, err := config.LoadPromptContent(cfg.Categorization.PromptTemplate, "categorize.txt")
		if err != nil {
			log.WithError(err).Warn("Could not load categorization prompt, using the built-in template")
		} else {
			promptTemplate = content
		}
	}

	llm, err := categorizer.NewLLMCategorizer(
		openai.NewClient(cfg.Embedding.OpenaiApiKey),
		cfg.Categorization.Model,
		promptTemplate,
		categories.DefaultCategory,
		cfg.Categorization.BatchLimit,
	)
	if err != nil {
		return fmt.Errorf("init llm categorizer: %w", err)
	}
	a.Categorizer = llm
	return nil
}

func (a *App) initPipeline() {
	cfg := a.Config
	a.Scraper = scraper.NewPlayStore(cfg.Scrape.Lang, cfg.Scrape.Country)
	a.CategorizationService = services.NewCategorizationService(
		a.CategoryStore, a.EmbeddingService, a.Categorizer,
		services.CategorizationOptions{
			Neighbors:        cfg.Categorization.Neighbors,
			EmbeddingTimeout: time.Duration(cfg.Embedding.TimeoutSeconds) * time.Second,
			LLMTimeout:       time.Duration(cfg.Categorization.TimeoutSeconds) * time.Second,
		},
	)
	a.ReviewService = services.NewReviewService(a.Scraper, a.ReviewArchive, a.HistoryStore, a.CategorizationService, cfg.Scrape.AppID)
}

// RedisOpt builds the asynq connection options from config.
func (a *App) RedisOpt() asynq.RedisClientOpt {
	return asynq.RedisClientOpt{
		Addr:     a.Config.Redis.Address,
		Password: a.Config.Redis.Password,
		DB:       a.Config.Redis.DB,
	}
}

// QueueClient returns a new asynq client for enqueueing background tasks.
// The caller owns the client and must close it.
func (a *App) QueueClient() *asynq.Client {
	return asynq.NewClient(a.RedisOpt())
}

// Close releases everything the app holds open. Safe to call on a
// partially initialized app.
func (a *App) Close() {
	if a.HistoryStore != nil {
		if err := a.HistoryStore.Close(); err != nil {
			log.WithError(err).Warn("Could not close history store")
		}
	}
	if a.gemini != nil {
		if err := a.gemini.Close(); err != nil {
			log.WithError(err).Warn("Could not close Gemini client")
		}
	}
}
