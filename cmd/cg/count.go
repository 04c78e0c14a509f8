package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(countCmd)
}

// CountResponse is the response for the count command.
type CountResponse struct {
	Edges int `json:"edges"`
	Works int `json:"works_with_references"`
}

var countCmd = &cobra.Command{
	Use:   "count",
	Short: "Show edge store and corpus sizes",
	RunE:  runCount,
}

func runCount(cmd *cobra.Command, args []string) error {
	cfg := loadConfig()
	ctx := context.Background()

	store := mustOpenStore(cfg)
	defer store.Close()
	src := mustOpenCorpus(cfg)
	defer src.Close()

	edges, err := store.CountEdges(ctx)
	if err != nil {
		exitWithError(ExitError, "counting edges: %v", err)
	}
	works, err := src.CountWorks(ctx)
	if err != nil {
		exitWithError(ExitError, "counting works: %v", err)
	}

	if humanOutput {
		fmt.Printf("%d edges indexed from %d works with references\n", edges, works)
	} else {
		outputJSON(CountResponse{Edges: edges, Works: works})
	}

	return nil
}
