package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var coupledLimit int

func init() {
	rootCmd.AddCommand(coupledCmd)

	coupledCmd.Flags().IntVarP(&coupledLimit, "limit", "l", 20, "Maximum number of results")
}

var coupledCmd = &cobra.Command{
	Use:   "coupled <doi>",
	Short: "Find papers sharing references with a DOI",
	Long: `Find papers bibliographically coupled to the given DOI: papers whose
reference lists overlap with its own, most shared references first.`,
	Args: cobra.ExactArgs(1),
	RunE: runCoupled,
}

func runCoupled(cmd *cobra.Command, args []string) error {
	doi := args[0]
	cfg := loadConfig()

	store := mustOpenStore(cfg)
	defer store.Close()

	engine := newEngine(cfg, store)
	papers, err := engine.BibliographicCoupling(context.Background(), doi, coupledLimit)
	if err != nil {
		exitWithError(ExitError, "querying coupled papers: %v", err)
	}

	if humanOutput {
		fmt.Printf("%d papers coupled with %s\n", len(papers), doi)
		for _, p := range papers {
			fmt.Printf("  %4d  %s\n", p.Count, p.DOI)
		}
	} else {
		outputJSON(RelatedResponse{DOI: doi, Total: len(papers), Papers: papers})
	}

	return nil
}
