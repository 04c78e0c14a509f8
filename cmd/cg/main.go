// Package main provides the cg CLI entry point.
package main

import (
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

// Version is set at build time via ldflags
var Version = "dev"

// humanOutput controls whether to use human-readable output
var humanOutput bool

func main() {
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		os.Exit(ExitError)
	}
}

var rootCmd = &cobra.Command{
	Use:   "cg",
	Short: "Citation graph index and analytics engine",
	Long: `cg maintains a citation graph over a scholarly corpus and serves
relatedness and bibliometric queries against it.

The edge index is built once with 'cg rebuild' and then queried with the
citing/cited/cocited/coupled/similar/network/impact commands. All commands
output JSON by default for easy integration with other tools.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&humanOutput, "human", false, "Use human-readable output instead of JSON")
	rootCmd.Version = Version
}
