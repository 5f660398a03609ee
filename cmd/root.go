package cmd

import (
	"context"
	"fmt"
	"os"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"insitegent/internal/app"
	"insitegent/internal/config"
	"insitegent/internal/store"
)

var rootCmd = &cobra.Command{
	Use:   "insitegent",
	Short: "Insitegent CLI App",
	Long: `Insitegent scrapes Play Store reviews, archives them by day and
categorizes them with an embedding similarity index, escalating reviews
that match nothing to an LLM.`,
	Run: func(cmd *cobra.Command, args []string) {
		// If no subcommand is given, print help.
		cmd.Help()
	},
	// PersistentPreRunE runs before any subcommand's RunE.
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Name() == "help" || cmd.Name() == "version" {
			return nil
		}

		cfg, err := config.LoadConfig()
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		if err := cfg.Validate(); err != nil {
			return fmt.Errorf("invalid config: %w", err)
		}
		configureLogging(cfg)

		appInstance, err := app.NewApp(cfg)
		if err != nil {
			return fmt.Errorf("failed to initialize app: %w", err)
		}

		// Store the app instance in the command's context.
		ctx := context.WithValue(cmd.Context(), appKey, appInstance)
		cmd.SetContext(ctx)
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if appInstance, err := GetAppFromContext(cmd.Context()); err == nil {
			appInstance.Close()
		}
	},
}

func configureLogging(cfg *config.Config) {
	level, err := log.ParseLevel(cfg.Logging.Level)
	if err != nil {
		level = log.InfoLevel
	}
	log.SetLevel(level)
	if cfg.Logging.Format == "json" {
		log.SetFormatter(&log.JSONFormatter{})
	}
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// Define a custom type for the context key to avoid collisions.
type contextKey string

const appKey contextKey = "app"

// GetAppFromContext retrieves the app instance stored by PersistentPreRunE.
func GetAppFromContext(ctx context.Context) (*app.App, error) {
	appInstance, ok := ctx.Value(appKey).(*app.App)
	if !ok || appInstance == nil {
		return nil, fmt.Errorf("application instance not found in context")
	}
	return appInstance, nil
}

func init() {
	rootCmd.AddCommand(doctorCmd)
}

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Check storage and provider health",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		appInstance, err := GetAppFromContext(ctx)
		if err != nil {
			return err
		}

		dates, err := appInstance.ReviewArchive.AvailableDates(ctx)
		if err != nil {
			return fmt.Errorf("review archive check failed: %w", err)
		}
		fmt.Printf("Review archive: ok (%d archived dates)\n", len(dates))

		if _, err := appInstance.HistoryStore.ListRuns(ctx, 1, 0); err != nil {
			return fmt.Errorf("history database check failed: %w", err)
		}
		fmt.Println("History database: ok")

		vocab := appInstance.CategoryStore.All(ctx)
		fmt.Printf("Category vocabulary: %d categories\n", len(vocab))

		fmt.Printf("Embedding provider: %s (%s), %s\n",
			appInstance.EmbeddingService.Name(),
			appInstance.EmbeddingService.ModelName(),
			providerStatusText(appInstance.EmbeddingService.Status()))
		return nil
	},
}

func providerStatusText(status store.ProviderStatus) string {
	switch status {
	case store.ProviderStatusActive:
		return "active"
	case store.ProviderStatusInactive:
		return "inactive"
	case store.ProviderStatusDisabled:
		return "disabled"
	default:
		return "unknown"
	}
}
