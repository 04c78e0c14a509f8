package main

import (
	"context"
	"fmt"

	"github.com/matsen/citegraph/internal/storage"
	"github.com/spf13/cobra"
)

var citingLimit int

func init() {
	rootCmd.AddCommand(citingCmd)

	citingCmd.Flags().IntVarP(&citingLimit, "limit", "l", 100, "Maximum number of results")
}

// CitingResponse is the response for the citing command.
type CitingResponse struct {
	DOI    string             `json:"doi"`
	Total  int                `json:"total"`
	Papers []storage.Citation `json:"papers"`
}

var citingCmd = &cobra.Command{
	Use:   "citing <doi>",
	Short: "List papers that cite a DOI",
	Long: `List papers whose reference lists contain the given DOI, newest first.

An unknown DOI returns an empty list, not an error.`,
	Args: cobra.ExactArgs(1),
	RunE: runCiting,
}

func runCiting(cmd *cobra.Command, args []string) error {
	doi := args[0]
	cfg := loadConfig()

	store := mustOpenStore(cfg)
	defer store.Close()

	engine := newEngine(cfg, store)
	papers, err := engine.ReverseCitations(context.Background(), doi, citingLimit)
	if err != nil {
		exitWithError(ExitError, "querying citing papers: %v", err)
	}

	if humanOutput {
		fmt.Printf("%d papers citing %s\n", len(papers), doi)
		for _, p := range papers {
			fmt.Printf("  %d  %s\n", p.CitingYear, p.CitingDOI)
		}
	} else {
		outputJSON(CitingResponse{DOI: doi, Total: len(papers), Papers: papers})
	}

	return nil
}
