// Package graph implements the read-only citation query engine: forward and
// reverse lookup, co-citation, bibliographic coupling, and a combined
// similarity score over the edge store.
package graph

import (
	"context"
	"sort"
	"time"

	"github.com/matsen/citegraph/internal/storage"
)

// DefaultFanoutLimit caps the intermediate citing/cited set fed into the
// co-citation and coupling self-joins. For seeds with more citers than the
// cap, relatedness counts come from a truncated sample; bounding the join is
// a deliberate accuracy/performance tradeoff.
const DefaultFanoutLimit = 500

// DefaultTimeout bounds wall-clock time per query. Result caps are the
// primary cost control; the timeout is the backstop.
const DefaultTimeout = 30 * time.Second

// Similarity is a combined relatedness score for one candidate work.
// Candidates come from the union of co-citation, coupling, and direct
// neighbors; scores are comparable only within one query.
type Similarity struct {
	DOI     string `json:"doi"`
	CoCited int    `json:"cocitation_count"`
	Coupled int    `json:"coupling_count"`
	Direct  int    `json:"direct_neighbor"`
	Score   int    `json:"combined_score"`
}

// Engine serves graph queries against a built edge store. It is read-only
// and safe for unbounded concurrent callers.
type Engine struct {
	store *storage.Store

	// FanoutLimit is the intermediate set cap M used inside self-join
	// queries.
	FanoutLimit int

	// Timeout bounds each query; zero disables the backstop.
	Timeout time.Duration
}

// NewEngine creates a query engine over the given edge store.
func NewEngine(store *storage.Store) *Engine {
	return &Engine{
		store:       store,
		FanoutLimit: DefaultFanoutLimit,
		Timeout:     DefaultTimeout,
	}
}

func (e *Engine) queryContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if e.Timeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, e.Timeout)
}

func (e *Engine) fanout() int {
	if e.FanoutLimit > 0 {
		return e.FanoutLimit
	}
	return DefaultFanoutLimit
}

// ForwardCitations returns up to limit DOIs cited by the given work,
// ascending by cited DOI. An unknown DOI yields an empty result.
func (e *Engine) ForwardCitations(ctx context.Context, doi string, limit int) ([]string, error) {
	ctx, cancel := e.queryContext(ctx)
	defer cancel()
	return e.store.ForwardCitations(ctx, doi, limit)
}

// ReverseCitations returns up to limit works citing the given DOI, newest
// first.
func (e *Engine) ReverseCitations(ctx context.Context, doi string, limit int) ([]storage.Citation, error) {
	ctx, cancel := e.queryContext(ctx)
	defer cancel()
	return e.store.ReverseCitations(ctx, doi, limit)
}

// CitationCount returns how many works cite the given DOI.
func (e *Engine) CitationCount(ctx context.Context, doi string) (int, error) {
	ctx, cancel := e.queryContext(ctx)
	defer cancel()
	return e.store.CitationCount(ctx, doi)
}

// CoCitation returns works frequently cited together with the given DOI:
// for each citer of doi (capped at the fanout limit), every other work that
// citer also cites, aggregated by count.
func (e *Engine) CoCitation(ctx context.Context, doi string, limit int) ([]storage.Related, error) {
	ctx, cancel := e.queryContext(ctx)
	defer cancel()
	return e.store.CoCited(ctx, doi, e.fanout(), limit)
}

// BibliographicCoupling returns works sharing references with the given DOI:
// for each reference of doi (capped at the fanout limit), every other work
// citing that reference, aggregated by count.
func (e *Engine) BibliographicCoupling(ctx context.Context, doi string, limit int) ([]storage.Related, error) {
	ctx, cancel := e.queryContext(ctx)
	defer cancel()
	return e.store.Coupled(ctx, doi, e.fanout(), limit)
}

// CombinedSimilarity unions the co-citation, coupling, and direct-neighbor
// candidate sets and ranks them by
//
//	score = 2*cocitation + 2*coupling + direct
//
// where direct is 1 for an immediate forward or reverse neighbor. Results
// are strictly ordered by score descending, ties broken by DOI ascending.
func (e *Engine) CombinedSimilarity(ctx context.Context, doi string, limit int) ([]Similarity, error) {
	ctx, cancel := e.queryContext(ctx)
	defer cancel()

	fanout := e.fanout()

	cocited, err := e.store.CoCited(ctx, doi, fanout, limit)
	if err != nil {
		return nil, err
	}
	coupled, err := e.store.Coupled(ctx, doi, fanout, limit)
	if err != nil {
		return nil, err
	}
	forward, err := e.store.ForwardCitations(ctx, doi, fanout)
	if err != nil {
		return nil, err
	}
	reverse, err := e.store.ReverseCitations(ctx, doi, fanout)
	if err != nil {
		return nil, err
	}

	candidates := make(map[string]*Similarity)
	get := func(d string) *Similarity {
		s, ok := candidates[d]
		if !ok {
			s = &Similarity{DOI: d}
			candidates[d] = s
		}
		return s
	}

	for _, r := range cocited {
		get(r.DOI).CoCited = r.Count
	}
	for _, r := range coupled {
		get(r.DOI).Coupled = r.Count
	}
	for _, d := range forward {
		get(d).Direct = 1
	}
	for _, c := range reverse {
		get(c.CitingDOI).Direct = 1
	}

	results := make([]Similarity, 0, len(candidates))
	for _, s := range candidates {
		s.Score = 2*s.CoCited + 2*s.Coupled + s.Direct
		results = append(results, *s)
	}

	sort.Slice(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].DOI < results[j].DOI
	})

	if len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}
