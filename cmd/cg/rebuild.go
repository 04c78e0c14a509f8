package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/matsen/citegraph/internal/index"
	"github.com/matsen/citegraph/internal/storage"
	"github.com/spf13/cobra"
)

var (
	rebuildResume   bool
	rebuildNoBackup bool
)

func init() {
	rootCmd.AddCommand(rebuildCmd)

	rebuildCmd.Flags().BoolVar(&rebuildResume, "resume", false, "Continue from the persisted checkpoint")
	rebuildCmd.Flags().BoolVar(&rebuildNoBackup, "no-backup", false, "Skip backing up the existing edge store")
}

// RebuildResult is the response for the rebuild command.
type RebuildResult struct {
	Status         string         `json:"status"`
	WorksScanned   int            `json:"works_scanned"`
	EdgesCommitted int            `json:"edges_committed"`
	Duplicates     int            `json:"duplicates_removed"`
	Skipped        map[string]int `json:"skipped,omitempty"`
	BackupPath     string         `json:"backup_path,omitempty"`
	Duration       string         `json:"duration"`
}

var rebuildCmd = &cobra.Command{
	Use:   "rebuild",
	Short: "Rebuild the citation edge index from the corpus",
	Long: `Rebuild the citation edge store by scanning every work with references.

A fresh run backs up the existing store with a timestamp and rebuilds from
scratch with deferred indexing for bulk throughput. An interrupted run can be
continued with --resume; the persisted checkpoint guarantees no edges are
lost or duplicated across the boundary.`,
	RunE: runRebuild,
}

func runRebuild(cmd *cobra.Command, args []string) error {
	cfg := loadConfig()
	src := mustOpenCorpus(cfg)
	defer src.Close()

	builder := index.NewBuilder(src, cfg.ResolveEdgesPath())
	if cfg.BatchSize > 0 {
		builder.BatchSize = cfg.BatchSize
	}
	if cfg.CommitThreshold > 0 {
		builder.CommitThreshold = cfg.CommitThreshold
	}
	if cfg.Workers > 0 {
		builder.Workers = cfg.Workers
	}
	builder.Progress = os.Stderr

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	stats, err := builder.Rebuild(ctx, index.Options{
		Resume:         rebuildResume,
		BackupExisting: !rebuildNoBackup,
	})
	if err != nil {
		if errors.Is(err, storage.ErrStorageBusy) {
			exitWithError(ExitStorageBusy, "%v", err)
		}
		if errors.Is(err, index.ErrInterrupted) {
			fmt.Fprintf(os.Stderr, "rebuild interrupted at %d works; continue with 'cg rebuild --resume'\n", stats.WorksScanned)
			os.Exit(ExitError)
		}
		exitWithError(ExitDataError, "rebuilding index: %v", err)
	}

	if humanOutput {
		fmt.Printf("Indexed %d edges from %d works in %s\n",
			stats.EdgesCommitted, stats.WorksScanned, stats.Duration.Round(time.Second))
	} else {
		outputJSON(RebuildResult{
			Status:         "rebuilt",
			WorksScanned:   stats.WorksScanned,
			EdgesCommitted: stats.EdgesCommitted,
			Duplicates:     stats.Duplicates,
			Skipped:        stats.Skipped,
			BackupPath:     stats.BackupPath,
			Duration:       stats.Duration.String(),
		})
	}

	return nil
}
