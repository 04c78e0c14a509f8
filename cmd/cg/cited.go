package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var citedLimit int

func init() {
	rootCmd.AddCommand(citedCmd)

	citedCmd.Flags().IntVarP(&citedLimit, "limit", "l", 100, "Maximum number of results")
}

// CitedResponse is the response for the cited command.
type CitedResponse struct {
	DOI    string   `json:"doi"`
	Total  int      `json:"total"`
	Papers []string `json:"papers"`
}

var citedCmd = &cobra.Command{
	Use:   "cited <doi>",
	Short: "List papers a DOI cites",
	Long:  `List the papers referenced by the given DOI, in identifier order.`,
	Args:  cobra.ExactArgs(1),
	RunE:  runCited,
}

func runCited(cmd *cobra.Command, args []string) error {
	doi := args[0]
	cfg := loadConfig()

	store := mustOpenStore(cfg)
	defer store.Close()

	engine := newEngine(cfg, store)
	papers, err := engine.ForwardCitations(context.Background(), doi, citedLimit)
	if err != nil {
		exitWithError(ExitError, "querying cited papers: %v", err)
	}

	if humanOutput {
		fmt.Printf("%d papers cited by %s\n", len(papers), doi)
		for _, p := range papers {
			fmt.Printf("  %s\n", p)
		}
	} else {
		outputJSON(CitedResponse{DOI: doi, Total: len(papers), Papers: papers})
	}

	return nil
}
