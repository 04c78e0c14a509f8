// Package cite defines the citation edge domain type and the extraction
// transform from work records to edges.
package cite

import (
	"strings"

	"github.com/matsen/citegraph/internal/corpus"
)

// Edge is a directed citation: CitingDOI's reference list contains CitedDOI.
// CitingYear is denormalized from the citing work at extraction time and
// never updated afterward.
type Edge struct {
	CitingDOI  string `json:"citing_doi"`
	CitedDOI   string `json:"cited_doi"`
	CitingYear int    `json:"citing_year"`
}

// Key returns the identity pair for this edge.
func (e Edge) Key() EdgeKey {
	return EdgeKey{CitingDOI: e.CitingDOI, CitedDOI: e.CitedDOI}
}

// EdgeKey is the unique identity of an edge. CitingYear is metadata, not
// identity.
type EdgeKey struct {
	CitingDOI string
	CitedDOI  string
}

// Skip describes why a work contributed no edges.
type Skip string

const (
	// SkipNone means the work was extracted normally.
	SkipNone Skip = ""
	// SkipNoYear means the work has no usable publication year.
	SkipNoYear Skip = "no_year"
	// SkipNoReferences means the work has no reference list.
	SkipNoReferences Skip = "no_references"
)

// NormalizeDOI folds a DOI to its canonical form: trimmed and lowercased.
// DOIs are case-insensitive identifiers but sources mix cases freely.
func NormalizeDOI(doi string) string {
	return strings.ToLower(strings.TrimSpace(doi))
}

// Extract converts one work into its citation edges. Works without a year or
// without references yield no edges and a skip reason; reference entries that
// never resolved to an identifier are silently dropped. Extract never fails:
// all malformed input degrades to "no edges".
func Extract(w corpus.Work) ([]Edge, Skip) {
	if w.Year == 0 {
		return nil, SkipNoYear
	}
	if len(w.References) == 0 {
		return nil, SkipNoReferences
	}

	edges := make([]Edge, 0, len(w.References))
	for _, ref := range w.References {
		cited := NormalizeDOI(ref.DOI)
		if cited == "" {
			continue
		}
		edges = append(edges, Edge{
			CitingDOI:  w.DOI,
			CitedDOI:   cited,
			CitingYear: w.Year,
		})
	}
	return edges, SkipNone
}
