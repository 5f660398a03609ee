package cmd

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"insitegent/internal/tasks"
)

var (
	scrapeAppID   string
	scrapeCount   int
	scrapeEnqueue bool
)

// scrapeCmd represents the scrape command
var scrapeCmd = &cobra.Command{
	Use:   "scrape",
	Short: "Fetch the latest reviews and archive them under today's date",
	Long: `Scrapes reviews for the configured Play Store app and appends them
to today's archive batch. Reviews already archived are skipped.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		appInstance, err := GetAppFromContext(cmd.Context())
		if err != nil {
			return err
		}

		count := scrapeCount
		if count <= 0 {
			count = appInstance.Config.Scrape.Count
		}

		if scrapeEnqueue {
			task, err := tasks.NewScrapeArchiveTask(scrapeAppID, count)
			if err != nil {
				return fmt.Errorf("failed to build scrape task: %w", err)
			}
			client := appInstance.QueueClient()
			defer client.Close()

			info, err := client.EnqueueContext(cmd.Context(), task)
			if err != nil {
				return fmt.Errorf("failed to enqueue scrape task: %w", err)
			}
			fmt.Printf("%s task %s on queue %q\n", color.GreenString("Enqueued"), info.ID, info.Queue)
			return nil
		}

		date, added, err := appInstance.ReviewService.ScrapeAndArchive(cmd.Context(), scrapeAppID, count)
		if err != nil {
			return fmt.Errorf("scrape failed: %w", err)
		}
		fmt.Printf("%s %d new reviews into %s\n", color.GreenString("Archived"), added, date)
		return nil
	},
}

func init() {
	scrapeCmd.Flags().StringVar(&scrapeAppID, "app-id", "", "Play Store application ID (defaults to scrape.app_id)")
	scrapeCmd.Flags().IntVar(&scrapeCount, "count", 0, "How many reviews to fetch (defaults to scrape.count)")
	scrapeCmd.Flags().BoolVar(&scrapeEnqueue, "enqueue", false, "Queue the scrape as a background task instead of running it inline")
	rootCmd.AddCommand(scrapeCmd)
}
