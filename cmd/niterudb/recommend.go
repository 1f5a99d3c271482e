package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/varoOP/niterudb/internal/app"
	"github.com/varoOP/niterudb/internal/domain"
	"github.com/varoOP/niterudb/pkg/animelist"
)

// maxListReferences caps how many list entries seed hybrid recommendations;
// each reference costs a details fetch plus a recommendation fan-out.
const maxListReferences = 10

var recommendCmd = &cobra.Command{
	Use:   "recommend [id]",
	Short: "Recommend titles similar to a reference",
	Long: `Recommend ranks candidates against a reference. The reference is
one of:

  an id         composite "<source>-<localId>" id, e.g. anilist-9253
  --profile     a YAML preference profile (no reference title needed)
  --from-list   a MyAnimeList XML export; your best-rated completed shows
                become the references for hybrid recommendations`,
	RunE: func(cmd *cobra.Command, args []string) error {
		application, err := app.NewApp()
		if err != nil {
			return fmt.Errorf("failed to initialize application: %w", err)
		}

		limit, _ := cmd.Flags().GetInt("limit")
		asJSON, _ := cmd.Flags().GetBool("json")
		profilePath, _ := cmd.Flags().GetString("profile")
		listPath, _ := cmd.Flags().GetString("from-list")
		minScore, _ := cmd.Flags().GetInt("min-score")

		ctx := context.Background()
		var results []domain.RecommendationResult

		switch {
		case profilePath != "":
			profile, err := application.FileRepo().GetProfile(ctx, profilePath)
			if err != nil {
				return fmt.Errorf("failed to load profile: %w", err)
			}
			results, err = application.Service().GetPreferenceBasedRecommendations(ctx, *profile, limit)
			if err != nil {
				return fmt.Errorf("preference recommendations failed: %w", err)
			}

		case listPath != "":
			al, err := animelist.FromFile(listPath)
			if err != nil {
				return fmt.Errorf("failed to parse anime list: %w", err)
			}
			favorites := al.Favorites(minScore)
			if len(favorites) > maxListReferences {
				favorites = favorites[:maxListReferences]
			}
			if len(favorites) == 0 {
				return fmt.Errorf("no completed entries with score >= %d in %s", minScore, listPath)
			}

			// MAL ids are jikan-local ids.
			ids := make([]string, 0, len(favorites))
			for _, e := range favorites {
				ids = append(ids, domain.ComposeID("jikan", fmt.Sprintf("%d", e.SeriesID)))
			}
			results, err = application.Service().GetHybridRecommendations(ctx, ids, limit)
			if err != nil {
				return fmt.Errorf("hybrid recommendations failed: %w", err)
			}

		case len(args) == 1:
			results, err = application.Service().GetRecommendations(ctx, args[0], limit)
			if err != nil {
				return fmt.Errorf("recommendations failed: %w", err)
			}

		default:
			return fmt.Errorf("provide an id, --profile, or --from-list")
		}

		if asJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(results)
		}

		for i, r := range results {
			fmt.Printf("%2d. %-40s %.3f  (%s)\n", i+1, r.Record.Title.Best(), r.Score, r.Record.ID)
			for _, reason := range r.Reasons {
				fmt.Printf("      %s: %s (%.2f)\n", reason.Kind, reason.Value, reason.Weight)
			}
		}
		fmt.Printf("%d recommendations\n", len(results))
		return nil
	},
}

func init() {
	recommendCmd.Flags().Int("limit", 0, "maximum results (default 20)")
	recommendCmd.Flags().Bool("json", false, "print results as JSON")
	recommendCmd.Flags().String("profile", "", "YAML preference profile file")
	recommendCmd.Flags().String("from-list", "", "MyAnimeList XML export file")
	recommendCmd.Flags().Int("min-score", 8, "minimum list score for --from-list references")
	rootCmd.AddCommand(recommendCmd)
}
