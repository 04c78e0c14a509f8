package corpus

import "context"

// Source is the work-source collaborator: key-ordered scans for the index
// builder, point lookups for the network expander, and journal/article
// enumeration for the impact-factor aggregator.
//
// All methods are read-only and safe for concurrent use. Absent works and
// unresolvable journals are empty results, not errors.
type Source interface {
	// ScanWorks returns up to limit works with key > afterKey, in key order,
	// restricted to works that carry at least one reference.
	ScanWorks(ctx context.Context, afterKey int64, limit int) ([]Work, error)

	// CountWorks returns the number of works with at least one reference.
	CountWorks(ctx context.Context) (int, error)

	// GetMetadata returns descriptive metadata for a DOI, or (nil, nil) when
	// the DOI is not in the corpus.
	GetMetadata(ctx context.Context, doi string) (*Metadata, error)

	// ResolveJournal resolves a journal name to its canonical ISSN. Returns
	// "" when no match exists; callers then fall back to name matching.
	ResolveJournal(ctx context.Context, name string) (string, error)

	// ArticleDOIs returns DOIs of journal articles published by the journal
	// (ISSN, or name pattern when byName) in the given year. With citableOnly,
	// only works with more than minRefs references are returned.
	ArticleDOIs(ctx context.Context, journal string, year int, byName, citableOnly bool, minRefs int) ([]string, error)

	// CitedByTotal sums the externally supplied total-citation counters over
	// the given DOIs.
	CitedByTotal(ctx context.Context, dois []string) (int, error)

	// ForEachWorkInYear invokes fn for every work with references published in
	// the given year. fn returning an error stops the scan.
	ForEachWorkInYear(ctx context.Context, year int, fn func(Work) error) error
}
