package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/varoOP/niterudb/internal/app"
	"github.com/varoOP/niterudb/internal/domain"
)

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Search all catalogs for a title",
	Long: `Search fans the query out to every enabled catalog, merges the
matching records into one confidence-weighted view, and prints them
ranked by score x confidence.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		application, err := app.NewApp()
		if err != nil {
			return fmt.Errorf("failed to initialize application: %w", err)
		}

		year, _ := cmd.Flags().GetInt("year")
		perPage, _ := cmd.Flags().GetInt("limit")
		includeAdult, _ := cmd.Flags().GetBool("include-adult")
		asJSON, _ := cmd.Flags().GetBool("json")

		query := strings.Join(args, " ")
		records, err := application.Service().SearchAnime(context.Background(), query, domain.SearchOptions{
			PerPage:      perPage,
			Year:         year,
			IncludeAdult: includeAdult,
		})
		if err != nil {
			return fmt.Errorf("search failed: %w", err)
		}

		if asJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(records)
		}

		for _, rec := range records {
			year := "????"
			if y := rec.StartYear(); y > 0 {
				year = fmt.Sprintf("%d", y)
			}
			fmt.Printf("%-14s %-40s %s  score=%.1f conf=%.2f\n",
				rec.ID, rec.Title.Best(), year, rec.AverageScore, rec.Confidence)
		}
		fmt.Printf("%d results\n", len(records))
		return nil
	},
}

func init() {
	searchCmd.Flags().Int("year", 0, "filter by release year")
	searchCmd.Flags().Int("limit", 0, "results per source")
	searchCmd.Flags().Bool("include-adult", false, "include adult titles")
	searchCmd.Flags().Bool("json", false, "print records as JSON")
	rootCmd.AddCommand(searchCmd)
}
