package config

import (
	"fmt"

	"github.com/spf13/viper"
)

type Config struct {
	Logging struct {
		Level  string `mapstructure:"level"`
		Format string `mapstructure:"format"` // "text" or "json"
	} `mapstructure:"logging"`

	Scrape struct {
		AppID    string `mapstructure:"app_id"`
		Count    int    `mapstructure:"count"`
		Lang     string `mapstructure:"lang"`
		Country  string `mapstructure:"country"`
		Schedule string `mapstructure:"schedule"` // cron spec for auto-scrape in serve mode; empty disables
	} `mapstructure:"scrape"`

	Storage struct {
		ReviewsDir     string `mapstructure:"reviews_dir"`
		CategoriesFile string `mapstructure:"categories_file"`
		HistoryDB      string `mapstructure:"history_db"`
	} `mapstructure:"storage"`

	Embedding struct {
		Model           string `mapstructure:"model"`
		OpenaiApiKey    string `mapstructure:"openai_api_key"`
		GoogleApiKey    string `mapstructure:"google_api_key"`
		GeminiModelName string `mapstructure:"gemini_model_name"` // empty disables the Gemini fallback provider
		Dimension       int    `mapstructure:"dimension"`
		TimeoutSeconds  int    `mapstructure:"timeout_seconds"`
	} `mapstructure:"embedding"`

	Categorization struct {
		Provider       string `mapstructure:"provider"` // "openai"
		Model          string `mapstructure:"model"`
		PromptTemplate string `mapstructure:"prompt_template"` // path to a template file; empty uses the built-in prompt
		BatchLimit     int    `mapstructure:"batch_limit"`     // max review texts per LLM call
		Neighbors      int    `mapstructure:"neighbors"`       // k fetched per similarity lookup; only the closest decides
		TimeoutSeconds int    `mapstructure:"timeout_seconds"`
	} `mapstructure:"categorization"`

	Server struct {
		Addr string `mapstructure:"addr"`
		Port int    `mapstructure:"port"`
	} `mapstructure:"server"`

	Redis struct {
		Address  string `mapstructure:"address"`
		Password string `mapstructure:"password"`
		DB       int    `mapstructure:"db"`
	} `mapstructure:"redis"`

	Worker struct {
		Concurrency int            `mapstructure:"concurrency"`
		Queues      map[string]int `mapstructure:"queues"`
	} `mapstructure:"worker"`
}

func LoadConfig() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("$HOME/.config/insitegent")

	setDefaults()

	viper.SetEnvPrefix("INSITEGENT")
	viper.AutomaticEnv()

	// Secrets are conventionally set through the providers' own variable
	// names, so bind those explicitly rather than requiring the prefix.
	viper.BindEnv("embedding.openai_api_key", "OPENAI_API_KEY")
	viper.BindEnv("embedding.google_api_key", "GEMINI_API_KEY")

	if err := viper.ReadInConfig(); err != nil {
		// Missing config file is fine; defaults and env vars cover everything.
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, err
	}

	return &config, nil
}

func setDefaults() {
	viper.SetDefault("logging.level", "info")
	viper.SetDefault("logging.format", "text")

	viper.SetDefault("scrape.app_id", "in.swiggy.android")
	viper.SetDefault("scrape.count", 100)
	viper.SetDefault("scrape.lang", "en")
	viper.SetDefault("scrape.country", "in")
	viper.SetDefault("scrape.schedule", "")

	viper.SetDefault("storage.reviews_dir", "data/reviews")
	viper.SetDefault("storage.categories_file", "data/dynamic_categories.json")
	viper.SetDefault("storage.history_db", "data/insitegent.db")

	viper.SetDefault("embedding.model", "text-embedding-3-small")
	viper.SetDefault("embedding.dimension", 1536)
	viper.SetDefault("embedding.timeout_seconds", 30)

	viper.SetDefault("categorization.provider", "openai")
	viper.SetDefault("categorization.model", "gpt-3.5-turbo-0125")
	viper.SetDefault("categorization.batch_limit", 50)
	viper.SetDefault("categorization.neighbors", 3)
	viper.SetDefault("categorization.timeout_seconds", 60)

	viper.SetDefault("server.addr", "")
	viper.SetDefault("server.port", 8080)

	viper.SetDefault("redis.address", "localhost:6379")
	viper.SetDefault("redis.db", 0)

	viper.SetDefault("worker.concurrency", 5)
	viper.SetDefault("worker.queues", map[string]int{"critical": 6, "default": 3, "low": 1})
}
