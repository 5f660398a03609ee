package cmd

import (
	"fmt"
	"os"
	"strconv"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"insitegent/internal/clix"
)

var categorizeAppID string

// categorizeCmd represents the categorize command
var categorizeCmd = &cobra.Command{
	Use:   "categorize",
	Short: "Categorize archived reviews",
	Long: `Runs the categorization pipeline over one archived day and prints the
category counts. Without --date it scrapes the latest reviews first and
categorizes today's batch.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		appInstance, err := GetAppFromContext(cmd.Context())
		if err != nil {
			return err
		}

		date, err := clix.ParseDate(cmd.Flags())
		if err != nil {
			return err
		}
		if date == "" {
			var added int
			date, added, err = appInstance.ReviewService.ScrapeAndArchive(cmd.Context(), categorizeAppID, appInstance.Config.Scrape.Count)
			if err != nil {
				return fmt.Errorf("scrape failed: %w", err)
			}
			fmt.Printf("%s %d new reviews into %s\n", color.GreenString("Archived"), added, date)
		}

		result, err := appInstance.ReviewService.CategorizeDate(cmd.Context(), date)
		if err != nil {
			return fmt.Errorf("categorization failed: %w", err)
		}

		if result.Degraded {
			fmt.Println(color.YellowString("Embedding providers unavailable; categorized with keyword rules only."))
		}

		table := tablewriter.NewWriter(os.Stdout)
		table.SetHeader([]string{"Category", "Reviews"})
		table.SetBorder(false)
		table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
		table.SetAlignment(tablewriter.ALIGN_LEFT)
		for _, name := range result.Vocabulary() {
			table.Append([]string{name, strconv.Itoa(result.Counts[name])})
		}
		table.Render()

		for _, name := range result.NewCategories {
			fmt.Printf("%s new category %q\n", color.GreenString("Created"), name)
		}
		fmt.Printf("%s %d reviews for %s\n", color.GreenString("Categorized"), result.Total(), date)
		return nil
	},
}

func init() {
	categorizeCmd.Flags().String("date", "", "Archived date to categorize (YYYY-MM-DD); empty scrapes first")
	categorizeCmd.Flags().StringVar(&categorizeAppID, "app-id", "", "Play Store application ID for the implicit scrape")
	rootCmd.AddCommand(categorizeCmd)
}
