package main

import (
	"context"
	"fmt"

	"github.com/matsen/citegraph/internal/graph"
	"github.com/spf13/cobra"
)

var similarLimit int

func init() {
	rootCmd.AddCommand(similarCmd)

	similarCmd.Flags().IntVarP(&similarLimit, "limit", "l", 20, "Maximum number of results")
}

// SimilarResponse is the response for the similar command.
type SimilarResponse struct {
	DOI     string             `json:"doi"`
	Total   int                `json:"total"`
	Similar []graph.Similarity `json:"similar"`
}

var similarCmd = &cobra.Command{
	Use:   "similar <doi>",
	Short: "Find papers related to a DOI by citation structure",
	Long: `Rank papers related to the given DOI by a combined score over
co-citation, bibliographic coupling, and direct citation links.`,
	Args: cobra.ExactArgs(1),
	RunE: runSimilar,
}

func runSimilar(cmd *cobra.Command, args []string) error {
	doi := args[0]
	cfg := loadConfig()

	store := mustOpenStore(cfg)
	defer store.Close()

	engine := newEngine(cfg, store)
	similar, err := engine.CombinedSimilarity(context.Background(), doi, similarLimit)
	if err != nil {
		exitWithError(ExitError, "computing similarity: %v", err)
	}

	if humanOutput {
		fmt.Printf("%d papers similar to %s\n", len(similar), doi)
		for i, s := range similar {
			fmt.Printf("%d. [%d] %s (cocited %d, coupled %d)\n",
				i+1, s.Score, s.DOI, s.CoCited, s.Coupled)
		}
	} else {
		outputJSON(SimilarResponse{DOI: doi, Total: len(similar), Similar: similar})
	}

	return nil
}
