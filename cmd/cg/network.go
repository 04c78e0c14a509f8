package main

import (
	"context"
	"fmt"

	"github.com/matsen/citegraph/internal/network"
	"github.com/spf13/cobra"
)

var (
	networkDepth     int
	networkMaxCiting int
	networkMaxCited  int
)

func init() {
	rootCmd.AddCommand(networkCmd)

	networkCmd.Flags().IntVarP(&networkDepth, "depth", "d", 1, "Expansion depth from the seed")
	networkCmd.Flags().IntVar(&networkMaxCiting, "max-citing", 25, "Max citing papers expanded per node")
	networkCmd.Flags().IntVar(&networkMaxCited, "max-cited", 25, "Max cited papers expanded per node")
}

var networkCmd = &cobra.Command{
	Use:   "network <doi>",
	Short: "Build a citation network around a seed paper",
	Long: `Expand the citation neighborhood around a seed DOI breadth-first.

Each node contributes at most --max-citing reverse and --max-cited forward
neighbors; there is no global size cap, so large depth times fan-out is on
the caller.`,
	Args: cobra.ExactArgs(1),
	RunE: runNetwork,
}

func runNetwork(cmd *cobra.Command, args []string) error {
	seed := args[0]
	cfg := loadConfig()

	store := mustOpenStore(cfg)
	defer store.Close()
	src := mustOpenCorpus(cfg)
	defer src.Close()

	expander := network.NewExpander(newEngine(cfg, store), src)
	g, err := expander.Build(context.Background(), seed, networkDepth, networkMaxCiting, networkMaxCited)
	if err != nil {
		exitWithError(ExitError, "building network: %v", err)
	}

	if humanOutput {
		fmt.Printf("Network around %s: %d nodes, %d edges\n", seed, len(g.Nodes), len(g.Edges))
		for _, n := range g.Nodes {
			fmt.Printf("  [d%d] %s  %s\n", n.Depth, n.DOI, truncateString(n.Title, 60))
		}
	} else {
		outputJSON(g)
	}

	return nil
}
