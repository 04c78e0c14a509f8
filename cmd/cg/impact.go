package main

import (
	"context"
	"fmt"

	"github.com/matsen/citegraph/internal/impact"
	"github.com/spf13/cobra"
)

var (
	impactYear     int
	impactWindow   int
	impactFrom     int
	impactTo       int
	impactMA       int
	impactStrategy string
	impactAllItems bool
)

func init() {
	rootCmd.AddCommand(impactCmd)

	impactCmd.Flags().IntVarP(&impactYear, "year", "y", 0, "Target year (required unless --from/--to)")
	impactCmd.Flags().IntVarP(&impactWindow, "window", "w", 2, "Citation window in years")
	impactCmd.Flags().IntVar(&impactFrom, "from", 0, "First year of a time series")
	impactCmd.Flags().IntVar(&impactTo, "to", 0, "Last year of a time series")
	impactCmd.Flags().IntVar(&impactMA, "ma", 0, "Trailing moving-average window for a time series")
	impactCmd.Flags().StringVar(&impactStrategy, "strategy", string(impact.StrategyEdgeIndex),
		"Citation counting strategy: edge-index, cumulative-proxy, or brute-force")
	impactCmd.Flags().BoolVar(&impactAllItems, "all-items", false,
		"Count all articles in the denominator, not just citable items")
}

var impactCmd = &cobra.Command{
	Use:   "impact <journal>",
	Short: "Calculate a journal impact factor",
	Long: `Calculate the impact factor for a journal: citations received in the
target year to articles published in the preceding window, divided by the
article count.

The denominator keeps only citable items (research articles with more than
20 references) unless --all-items is set. Use --from/--to for a time series
and --ma for a trailing moving average over it.`,
	Args: cobra.ExactArgs(1),
	RunE: runImpact,
}

func runImpact(cmd *cobra.Command, args []string) error {
	journal := args[0]
	cfg := loadConfig()

	series := impactFrom != 0 || impactTo != 0
	if series && (impactFrom == 0 || impactTo == 0 || impactFrom > impactTo) {
		exitWithError(ExitError, "--from and --to must both be set, with --from <= --to")
	}
	if !series && impactYear == 0 {
		exitWithError(ExitError, "--year is required (or use --from/--to for a series)")
	}

	store := mustOpenStore(cfg)
	defer store.Close()
	src := mustOpenCorpus(cfg)
	defer src.Close()

	calc := impact.NewCalculator(src, store)
	if cfg.CitableRefThreshold > 0 {
		calc.CitableRefThreshold = cfg.CitableRefThreshold
	}

	opts := impact.Options{
		CitableOnly: !impactAllItems,
		Strategy:    impact.Strategy(impactStrategy),
	}
	ctx := context.Background()

	if series {
		results, err := calc.TimeSeries(ctx, journal, impactFrom, impactTo, impactWindow, opts)
		if err != nil {
			exitWithError(ExitError, "calculating impact factor series: %v", err)
		}
		if impactMA > 0 {
			impact.MovingAverage(results, impactMA)
		}

		if humanOutput {
			for _, r := range results {
				line := fmt.Sprintf("%d: IF %.3f (%d citations / %d articles)",
					r.TargetYear, r.ImpactFactor, r.TotalCitations, r.TotalArticles)
				if r.MovingAverage != nil {
					line += fmt.Sprintf("  MA %.3f", *r.MovingAverage)
				}
				fmt.Println(line)
			}
		} else {
			outputJSON(results)
		}
		return nil
	}

	result, err := calc.Compute(ctx, journal, impactYear, impactWindow, opts)
	if err != nil {
		exitWithError(ExitError, "calculating impact factor: %v", err)
	}

	if humanOutput {
		if result.Status == impact.StatusNoArticles {
			fmt.Printf("No articles for %s in %s\n", result.Journal, result.WindowRange)
		} else {
			fmt.Printf("%s %d: IF %.3f (%d citations / %d articles, window %s)\n",
				result.Journal, result.TargetYear, result.ImpactFactor,
				result.TotalCitations, result.TotalArticles, result.WindowRange)
		}
	} else {
		outputJSON(result)
	}

	return nil
}
