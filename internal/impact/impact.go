// Package impact calculates windowed journal impact factors over the
// citation edge store.
package impact

import (
	"context"
	"fmt"

	"github.com/matsen/citegraph/internal/cite"
	"github.com/matsen/citegraph/internal/corpus"
	"github.com/matsen/citegraph/internal/storage"
)

// DefaultCitableRefThreshold separates citable research articles from
// editorials, letters, and corrections: items with more than this many
// references count toward the denominator. Inherited bibliometric
// convention, kept overridable rather than derived.
const DefaultCitableRefThreshold = 20

// Strategy selects how the citation numerator is counted. All strategies
// must agree given the same corpus; they differ in speed and year accuracy.
type Strategy string

const (
	// StrategyEdgeIndex counts edges landing on denominator articles in the
	// target year. Accurate and year-specific; the preferred strategy.
	StrategyEdgeIndex Strategy = "edge-index"

	// StrategyCumulative sums the externally supplied total-citation
	// counters. Fast but not year-specific; cross-check or fallback only.
	StrategyCumulative Strategy = "cumulative-proxy"

	// StrategyBruteForce scans every target-year work and counts reference
	// matches. Slow; validation only.
	StrategyBruteForce Strategy = "brute-force"
)

// Statuses reported in results.
const (
	StatusSuccess    = "success"
	StatusNoArticles = "no_articles"
)

// Result is one impact-factor calculation.
type Result struct {
	Journal        string      `json:"journal"`
	TargetYear     int         `json:"target_year"`
	WindowYears    int         `json:"window_years"`
	WindowRange    string      `json:"window_range"`
	ArticlesByYear map[int]int `json:"articles_by_year"`
	TotalArticles  int         `json:"total_articles"`
	TotalCitations int         `json:"total_citations"`
	ImpactFactor   float64     `json:"impact_factor"`
	Strategy       Strategy    `json:"strategy"`
	CitableOnly    bool        `json:"citable_only"`
	Status         string      `json:"status"`
	MovingAverage  *float64    `json:"moving_average,omitempty"`
}

// Options controls a calculation.
type Options struct {
	// CitableOnly restricts the denominator to works passing the reference
	// count threshold.
	CitableOnly bool

	// Strategy selects the numerator counting method. Empty means
	// StrategyEdgeIndex.
	Strategy Strategy
}

// Calculator computes impact factors. Read-only; safe to run concurrently
// across journal/year pairs.
type Calculator struct {
	Source corpus.Source
	Store  *storage.Store

	// CitableRefThreshold overrides the citable-item heuristic. Zero means
	// DefaultCitableRefThreshold.
	CitableRefThreshold int
}

// NewCalculator creates a calculator over the given corpus and edge store.
func NewCalculator(source corpus.Source, store *storage.Store) *Calculator {
	return &Calculator{Source: source, Store: store}
}

func (c *Calculator) threshold() int {
	if c.CitableRefThreshold > 0 {
		return c.CitableRefThreshold
	}
	return DefaultCitableRefThreshold
}

// Compute calculates the impact factor for a journal: citations received in
// targetYear to articles published in the preceding windowYears, divided by
// the article count. A journal or window with no matching articles yields
// impact factor 0 with StatusNoArticles, never an error.
func (c *Calculator) Compute(ctx context.Context, journal string, targetYear, windowYears int, opts Options) (*Result, error) {
	strategy := opts.Strategy
	if strategy == "" {
		strategy = StrategyEdgeIndex
	}

	// Resolve the journal name to its canonical ISSN when possible; an
	// unresolvable name falls back to name-pattern matching.
	ident := journal
	byName := true
	issn, err := c.Source.ResolveJournal(ctx, journal)
	if err != nil {
		return nil, err
	}
	if issn != "" {
		ident = issn
		byName = false
	}

	windowStart := targetYear - windowYears
	windowEnd := targetYear - 1

	result := &Result{
		Journal:        ident,
		TargetYear:     targetYear,
		WindowYears:    windowYears,
		WindowRange:    fmt.Sprintf("%d-%d", windowStart, windowEnd),
		ArticlesByYear: make(map[int]int),
		Strategy:       strategy,
		CitableOnly:    opts.CitableOnly,
	}

	var dois []string
	for year := windowStart; year <= windowEnd; year++ {
		yearDOIs, err := c.Source.ArticleDOIs(ctx, ident, year, byName, opts.CitableOnly, c.threshold())
		if err != nil {
			return nil, err
		}
		result.ArticlesByYear[year] = len(yearDOIs)
		dois = append(dois, yearDOIs...)
	}
	result.TotalArticles = len(dois)

	if result.TotalArticles == 0 {
		result.Status = StatusNoArticles
		return result, nil
	}

	citations, err := c.countCitations(ctx, dois, targetYear, strategy)
	if err != nil {
		return nil, err
	}
	result.TotalCitations = citations
	result.ImpactFactor = float64(citations) / float64(result.TotalArticles)
	result.Status = StatusSuccess
	return result, nil
}

// countCitations counts citations received by the denominator articles in
// the target year, by strategy.
func (c *Calculator) countCitations(ctx context.Context, dois []string, targetYear int, strategy Strategy) (int, error) {
	switch strategy {
	case StrategyEdgeIndex:
		// Edges store normalized cited DOIs; normalize the denominator to
		// match.
		normalized := make([]string, len(dois))
		for i, d := range dois {
			normalized[i] = cite.NormalizeDOI(d)
		}
		return c.Store.CountCitationsTo(ctx, normalized, targetYear)

	case StrategyCumulative:
		return c.Source.CitedByTotal(ctx, dois)

	case StrategyBruteForce:
		targets := make(map[string]bool, len(dois))
		for _, d := range dois {
			targets[cite.NormalizeDOI(d)] = true
		}
		count := 0
		err := c.Source.ForEachWorkInYear(ctx, targetYear, func(w corpus.Work) error {
			for _, ref := range w.References {
				if targets[cite.NormalizeDOI(ref.DOI)] {
					count++
				}
			}
			return nil
		})
		return count, err

	default:
		return 0, fmt.Errorf("unknown citation counting strategy: %q", strategy)
	}
}

// TimeSeries computes impact factors for each year in [startYear, endYear].
func (c *Calculator) TimeSeries(ctx context.Context, journal string, startYear, endYear, windowYears int, opts Options) ([]Result, error) {
	var results []Result
	for year := startYear; year <= endYear; year++ {
		r, err := c.Compute(ctx, journal, year, windowYears, opts)
		if err != nil {
			return nil, err
		}
		results = append(results, *r)
	}
	return results, nil
}

// MovingAverage annotates a time series with a trailing moving average of
// the given window: entry i gets the mean of entries i-window+1 through i
// once enough history exists, and stays nil before that.
func MovingAverage(results []Result, window int) {
	if window <= 0 {
		return
	}
	for i := range results {
		if i < window-1 {
			results[i].MovingAverage = nil
			continue
		}
		sum := 0.0
		for j := i - window + 1; j <= i; j++ {
			sum += results[j].ImpactFactor
		}
		ma := sum / float64(window)
		results[i].MovingAverage = &ma
	}
}
