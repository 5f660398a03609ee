package cmd

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"insitegent/internal/clix"
)

// historyCmd represents the base command for run history operations
var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "View categorization run history",
	Long:  `Displays past categorization runs recorded by the application.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return listRunsCmd.RunE(cmd, args)
	},
}

var listRunsCmd = &cobra.Command{
	Use:   "list",
	Short: "List recent categorization runs",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		appInstance, err := GetAppFromContext(cmd.Context())
		if err != nil {
			return err
		}

		page := clix.ParsePagination(cmd.Flags())
		records, err := appInstance.HistoryStore.ListRuns(cmd.Context(), page.Limit, page.Offset)
		if err != nil {
			return fmt.Errorf("error listing run history: %w", err)
		}

		if len(records) == 0 {
			fmt.Println("No categorization runs recorded yet.")
			return nil
		}

		table := tablewriter.NewWriter(os.Stdout)
		table.SetHeader([]string{"ID", "Date", "App", "Reviews", "Categories", "New", "Degraded", "Took", "Ran At"})
		table.SetBorder(false)
		table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
		table.SetAlignment(tablewriter.ALIGN_LEFT)

		for _, rec := range records {
			degraded := ""
			if rec.Degraded {
				degraded = "yes"
			}
			table.Append([]string{
				strconv.FormatInt(rec.ID, 10),
				rec.Date,
				rec.AppID,
				strconv.Itoa(rec.ReviewCount),
				strconv.Itoa(rec.CategoryCount),
				strconv.Itoa(rec.NewCategories),
				degraded,
				rec.Duration.Round(time.Millisecond).String(),
				rec.CreatedAt.Format("2006-01-02 15:04:05"),
			})
		}
		table.Render()
		return nil
	},
}

func init() {
	for _, c := range []*cobra.Command{historyCmd, listRunsCmd} {
		c.Flags().IntP("limit", "n", 20, "Maximum number of runs to show")
		c.Flags().Int("offset", 0, "Number of runs to skip")
	}

	historyCmd.AddCommand(listRunsCmd)
	rootCmd.AddCommand(historyCmd)
}
