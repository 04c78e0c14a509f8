// Package index implements the citation index rebuild pipeline: a resumable,
// crash-safe scan of the corpus that extracts citation edges and commits them
// to the edge store in batch-atomic transactions.
package index

import (
	"context"
	"errors"
	"fmt"
	"io"
	"runtime"
	"time"

	"github.com/matsen/citegraph/internal/cite"
	"github.com/matsen/citegraph/internal/corpus"
	"github.com/matsen/citegraph/internal/storage"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
)

// ErrInterrupted is returned when a rebuild is cancelled mid-run. Accumulated
// edges are flushed and the checkpoint persisted first, so the run is
// resumable.
var ErrInterrupted = errors.New("rebuild interrupted")

// Defaults for the builder knobs. Batch size and commit threshold are
// independent so read pagination stays small while transactions stay large.
const (
	DefaultBatchSize       = 5000
	DefaultCommitThreshold = 50000
	DefaultMaxRetries      = 5
	DefaultRetryBase       = 500 * time.Millisecond
)

// Options controls a rebuild run.
type Options struct {
	// Resume continues from the persisted checkpoint instead of starting
	// fresh. A missing checkpoint falls back to a full scan; insert-or-ignore
	// plus the final dedup pass keep that safe.
	Resume bool

	// BackupExisting renames the current edge store aside with a timestamp
	// before a fresh rebuild.
	BackupExisting bool
}

// Stats summarizes a rebuild run.
type Stats struct {
	WorksScanned   int            `json:"works_scanned"`
	EdgesExtracted int            `json:"edges_extracted"`
	EdgesCommitted int            `json:"edges_committed"`
	Duplicates     int            `json:"duplicates_removed"`
	Skipped        map[string]int `json:"skipped,omitempty"`
	BackupPath     string         `json:"backup_path,omitempty"`
	Resumed        bool           `json:"resumed"`
	Duration       time.Duration  `json:"-"`
}

// Builder drives the extract-transform-load pipeline over the corpus.
// Extraction is sharded across workers; all writes funnel through the single
// Rebuild loop so commits and checkpoints stay ordered.
type Builder struct {
	Source    corpus.Source
	EdgesPath string

	BatchSize       int // works per read page
	CommitThreshold int // accumulated edges per commit transaction
	Workers         int // extraction shards per read page
	MaxRetries      int // bounded attempts on busy storage mid-run
	RetryBase       time.Duration

	// Progress receives throttled human-readable progress lines. Nil is
	// silent.
	Progress io.Writer
}

// NewBuilder returns a builder with default knobs.
func NewBuilder(source corpus.Source, edgesPath string) *Builder {
	return &Builder{
		Source:          source,
		EdgesPath:       edgesPath,
		BatchSize:       DefaultBatchSize,
		CommitThreshold: DefaultCommitThreshold,
		Workers:         runtime.NumCPU(),
		MaxRetries:      DefaultMaxRetries,
		RetryBase:       DefaultRetryBase,
	}
}

// Rebuild builds the citation edge store from the corpus.
//
// Fresh runs replace the previous edge set wholesale: the existing store is
// optionally backed aside, any remaining edge tables dropped, and a new table
// built without indexes; on completion duplicates are collapsed, the indexes
// built, and the checkpoint deleted. Resumed runs continue strictly past the
// persisted checkpoint. Contention at open fails fast with
// storage.ErrStorageBusy; contention mid-run is retried with bounded
// exponential backoff. Cancellation flushes accumulated edges, persists the
// checkpoint, and returns ErrInterrupted.
func (b *Builder) Rebuild(ctx context.Context, opts Options) (Stats, error) {
	start := time.Now()
	stats := Stats{Skipped: make(map[string]int), Resumed: opts.Resume}

	if !opts.Resume && opts.BackupExisting {
		backup, err := storage.Backup(b.EdgesPath)
		if err != nil {
			return stats, err
		}
		stats.BackupPath = backup
	}

	store, err := storage.OpenExclusive(b.EdgesPath)
	if err != nil {
		return stats, err
	}
	defer store.Close()

	// A fresh run replaces the old edge set wholesale. Without the backup
	// rename the old file is still there, so drop its tables explicitly.
	if !opts.Resume {
		if err := store.Reset(); err != nil {
			return stats, err
		}
	}

	if err := store.CreateBulkSchema(); err != nil {
		return stats, err
	}

	var lastKey int64
	if opts.Resume {
		key, ok, err := store.Checkpoint()
		if err != nil {
			return stats, err
		}
		if ok {
			lastKey = key
		}
	}

	total, err := b.Source.CountWorks(ctx)
	if err != nil {
		return stats, fmt.Errorf("counting corpus works: %w", err)
	}

	batchSize := b.BatchSize
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	threshold := b.CommitThreshold
	if threshold <= 0 {
		threshold = DefaultCommitThreshold
	}

	progress := rate.NewLimiter(rate.Every(time.Second), 1)
	var pending []cite.Edge

	for {
		if err := ctx.Err(); err != nil {
			// Best-effort flush so the run resumes where it stopped.
			if len(pending) > 0 {
				if n, err := b.commitWithRetry(ctx, store, pending, lastKey); err == nil {
					stats.EdgesCommitted += n
				}
			}
			stats.Duration = time.Since(start)
			return stats, fmt.Errorf("at work key %d: %w", lastKey, ErrInterrupted)
		}

		works, err := b.Source.ScanWorks(ctx, lastKey, batchSize)
		if err != nil {
			return stats, fmt.Errorf("scanning works after key %d: %w", lastKey, err)
		}
		if len(works) == 0 {
			break
		}

		edges, skips := b.extract(ctx, works)
		pending = append(pending, edges...)
		stats.WorksScanned += len(works)
		stats.EdgesExtracted += len(edges)
		for reason, n := range skips {
			stats.Skipped[string(reason)] += n
		}
		lastKey = works[len(works)-1].Key

		if len(pending) >= threshold {
			n, err := b.commitWithRetry(ctx, store, pending, lastKey)
			if err != nil {
				return stats, err
			}
			stats.EdgesCommitted += n
			pending = pending[:0]
		}

		if b.Progress != nil && progress.Allow() {
			fmt.Fprintf(b.Progress, "scanned %d/%d works, %d edges extracted\n",
				stats.WorksScanned, total, stats.EdgesExtracted)
		}
	}

	if len(pending) > 0 {
		n, err := b.commitWithRetry(ctx, store, pending, lastKey)
		if err != nil {
			return stats, err
		}
		stats.EdgesCommitted += n
	}

	removed, err := store.Dedup()
	if err != nil {
		return stats, err
	}
	stats.Duplicates = removed

	if err := store.Finalize(); err != nil {
		return stats, err
	}
	if err := store.ClearCheckpoint(); err != nil {
		return stats, err
	}

	stats.Duration = time.Since(start)
	if b.Progress != nil {
		fmt.Fprintf(b.Progress, "done: %d works, %d edges committed in %s\n",
			stats.WorksScanned, stats.EdgesCommitted, stats.Duration.Round(time.Second))
	}
	return stats, nil
}

// extract shards edge extraction for one read page across workers. Extraction
// is pure, so shards only synchronize on completion; results merge back in
// page order.
func (b *Builder) extract(ctx context.Context, works []corpus.Work) ([]cite.Edge, map[cite.Skip]int) {
	workers := b.Workers
	if workers < 1 {
		workers = 1
	}
	if workers > len(works) {
		workers = len(works)
	}

	shardEdges := make([][]cite.Edge, workers)
	shardSkips := make([]map[cite.Skip]int, workers)

	g, _ := errgroup.WithContext(ctx)
	chunk := (len(works) + workers - 1) / workers
	for i := 0; i < workers; i++ {
		lo := i * chunk
		hi := min(lo+chunk, len(works))
		i := i
		g.Go(func() error {
			skips := make(map[cite.Skip]int)
			var edges []cite.Edge
			for _, w := range works[lo:hi] {
				extracted, skip := cite.Extract(w)
				if skip != cite.SkipNone {
					skips[skip]++
					continue
				}
				edges = append(edges, extracted...)
			}
			shardEdges[i] = edges
			shardSkips[i] = skips
			return nil
		})
	}
	g.Wait() // extraction never errors

	var edges []cite.Edge
	skips := make(map[cite.Skip]int)
	for i := 0; i < workers; i++ {
		edges = append(edges, shardEdges[i]...)
		for reason, n := range shardSkips[i] {
			skips[reason] += n
		}
	}
	return edges, skips
}

// commitWithRetry commits one batch, retrying transient storage contention
// with exponential backoff up to MaxRetries attempts.
func (b *Builder) commitWithRetry(ctx context.Context, store *storage.Store, edges []cite.Edge, lastKey int64) (int, error) {
	retries := b.MaxRetries
	if retries < 1 {
		retries = 1
	}
	base := b.RetryBase
	if base <= 0 {
		base = DefaultRetryBase
	}

	var lastErr error
	for attempt := 0; attempt < retries; attempt++ {
		if attempt > 0 {
			select {
			case <-time.After(base << (attempt - 1)):
			case <-ctx.Done():
				return 0, fmt.Errorf("commit aborted: %w", ctx.Err())
			}
		}

		n, err := store.CommitBatch(edges, lastKey)
		if err == nil {
			return n, nil
		}
		if !storage.IsBusy(err) {
			return 0, err
		}
		lastErr = err
	}
	return 0, fmt.Errorf("edge store busy after %d attempts: %w", retries, lastErr)
}
