package cmd

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"insitegent/internal/store/categories"
)

// categoriesCmd represents the base command for vocabulary operations
var categoriesCmd = &cobra.Command{
	Use:   "categories",
	Short: "Inspect and extend the category vocabulary",
	Long:  `Lists the predefined and dynamically created categories, or adds new ones.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return listCategoriesCmd.RunE(cmd, args)
	},
}

var listCategoriesCmd = &cobra.Command{
	Use:   "list",
	Short: "List categories and their example phrases",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		appInstance, err := GetAppFromContext(cmd.Context())
		if err != nil {
			return err
		}

		vocab := appInstance.CategoryStore.All(cmd.Context())

		predefined := make(map[string]struct{}, len(categories.PredefinedOrder))
		names := make([]string, 0, len(vocab))
		for _, name := range categories.PredefinedOrder {
			if _, ok := vocab[name]; ok {
				names = append(names, name)
				predefined[name] = struct{}{}
			}
		}
		var dynamic []string
		for name := range vocab {
			if _, ok := predefined[name]; !ok {
				dynamic = append(dynamic, name)
			}
		}
		sort.Strings(dynamic)
		names = append(names, dynamic...)

		table := tablewriter.NewWriter(os.Stdout)
		table.SetHeader([]string{"Category", "Origin", "Example Phrases"})
		table.SetBorder(false)
		table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
		table.SetAlignment(tablewriter.ALIGN_LEFT)

		for _, name := range names {
			origin := "dynamic"
			if _, ok := predefined[name]; ok {
				origin = "predefined"
			}
			table.Append([]string{name, origin, strings.Join(vocab[name], ", ")})
		}
		table.Render()
		return nil
	},
}

var addCategoryCmd = &cobra.Command{
	Use:   "add <name> <phrase>...",
	Short: "Add a category with example phrases",
	Long: `Registers a dynamic category. Adding to an existing name extends its
example phrases; the next categorization run indexes them.`,
	Args: cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		appInstance, err := GetAppFromContext(cmd.Context())
		if err != nil {
			return err
		}

		name, phrases := args[0], args[1:]
		if !appInstance.CategoryStore.AddDynamic(cmd.Context(), name, phrases) {
			return fmt.Errorf("category name %q is not usable", name)
		}
		fmt.Printf("%s category %q with %d example phrases\n", color.GreenString("Added"), name, len(phrases))
		return nil
	},
}

func init() {
	categoriesCmd.AddCommand(listCategoriesCmd)
	categoriesCmd.AddCommand(addCategoryCmd)
	rootCmd.AddCommand(categoriesCmd)
}
