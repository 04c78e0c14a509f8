package main

import (
	"context"
	"fmt"

	"github.com/matsen/citegraph/internal/storage"
	"github.com/spf13/cobra"
)

var cocitedLimit int

func init() {
	rootCmd.AddCommand(cocitedCmd)

	cocitedCmd.Flags().IntVarP(&cocitedLimit, "limit", "l", 20, "Maximum number of results")
}

// RelatedResponse is the response for the cocited and coupled commands.
type RelatedResponse struct {
	DOI    string            `json:"doi"`
	Total  int               `json:"total"`
	Papers []storage.Related `json:"papers"`
}

var cocitedCmd = &cobra.Command{
	Use:   "cocited <doi>",
	Short: "Find papers frequently cited together with a DOI",
	Long: `Find papers that appear alongside the given DOI in other papers'
reference lists, strongest co-citation first.`,
	Args: cobra.ExactArgs(1),
	RunE: runCocited,
}

func runCocited(cmd *cobra.Command, args []string) error {
	doi := args[0]
	cfg := loadConfig()

	store := mustOpenStore(cfg)
	defer store.Close()

	engine := newEngine(cfg, store)
	papers, err := engine.CoCitation(context.Background(), doi, cocitedLimit)
	if err != nil {
		exitWithError(ExitError, "querying co-citations: %v", err)
	}

	if humanOutput {
		fmt.Printf("%d papers co-cited with %s\n", len(papers), doi)
		for _, p := range papers {
			fmt.Printf("  %4d  %s\n", p.Count, p.DOI)
		}
	} else {
		outputJSON(RelatedResponse{DOI: doi, Total: len(papers), Papers: papers})
	}

	return nil
}
