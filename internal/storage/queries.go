package storage

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/matsen/citegraph/internal/cite"
)

// Citation is one reverse-citation row: a work that cites the queried DOI.
type Citation struct {
	CitingDOI  string `json:"citing_doi"`
	CitingYear int    `json:"citing_year"`
}

// Related is one co-citation or coupling aggregation row.
type Related struct {
	DOI   string `json:"doi"`
	Count int    `json:"count"`
}

// ForwardCitations returns DOIs cited by the given work, ascending, capped.
func (s *Store) ForwardCitations(ctx context.Context, doi string, limit int) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT cited_doi
		FROM citations
		WHERE citing_doi = ?
		ORDER BY cited_doi
		LIMIT ?
	`, doi, limit)
	if err != nil {
		return nil, fmt.Errorf("querying forward citations: %w", err)
	}
	defer rows.Close()

	var dois []string
	for rows.Next() {
		var d string
		if err := rows.Scan(&d); err != nil {
			return nil, err
		}
		dois = append(dois, d)
	}
	return dois, rows.Err()
}

// ReverseCitations returns works citing the given DOI, newest first, ties
// broken by citing DOI ascending.
func (s *Store) ReverseCitations(ctx context.Context, doi string, limit int) ([]Citation, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT citing_doi, citing_year
		FROM citations
		WHERE cited_doi = ?
		ORDER BY citing_year DESC, citing_doi ASC
		LIMIT ?
	`, doi, limit)
	if err != nil {
		return nil, fmt.Errorf("querying reverse citations: %w", err)
	}
	defer rows.Close()

	var cites []Citation
	for rows.Next() {
		var c Citation
		if err := rows.Scan(&c.CitingDOI, &c.CitingYear); err != nil {
			return nil, err
		}
		cites = append(cites, c)
	}
	return cites, rows.Err()
}

// CitationCount returns the number of works citing the given DOI. A store
// that was never built counts as empty.
func (s *Store) CitationCount(ctx context.Context, doi string) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM citations WHERE cited_doi = ?", doi,
	).Scan(&count)
	if err != nil {
		if strings.Contains(err.Error(), "no such table") {
			return 0, nil
		}
		return 0, fmt.Errorf("counting citations: %w", err)
	}
	return count, nil
}

// CoCited returns works cited together with the given DOI, strongest first.
// The citing set is capped at fanout before the self-join; for very highly
// cited seeds the counts are computed over a truncated sample of citers.
// That accuracy/performance tradeoff bounds worst-case join cost.
func (s *Store) CoCited(ctx context.Context, doi string, fanout, limit int) ([]Related, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT c2.cited_doi, COUNT(*) AS n
		FROM (
			SELECT citing_doi FROM citations WHERE cited_doi = ? LIMIT ?
		) c1
		JOIN citations c2 ON c2.citing_doi = c1.citing_doi
		WHERE c2.cited_doi != ?
		GROUP BY c2.cited_doi
		ORDER BY n DESC, c2.cited_doi ASC
		LIMIT ?
	`, doi, fanout, doi, limit)
	if err != nil {
		return nil, fmt.Errorf("querying co-citations: %w", err)
	}
	defer rows.Close()

	return scanRelated(rows)
}

// Coupled returns works sharing references with the given DOI, strongest
// first. Symmetric to CoCited: the reference set is capped at fanout before
// the self-join on the cited column.
func (s *Store) Coupled(ctx context.Context, doi string, fanout, limit int) ([]Related, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT c2.citing_doi, COUNT(*) AS n
		FROM (
			SELECT cited_doi FROM citations WHERE citing_doi = ? LIMIT ?
		) c1
		JOIN citations c2 ON c2.cited_doi = c1.cited_doi
		WHERE c2.citing_doi != ?
		GROUP BY c2.citing_doi
		ORDER BY n DESC, c2.citing_doi ASC
		LIMIT ?
	`, doi, fanout, doi, limit)
	if err != nil {
		return nil, fmt.Errorf("querying coupled works: %w", err)
	}
	defer rows.Close()

	return scanRelated(rows)
}

func scanRelated(rows *sql.Rows) ([]Related, error) {
	var related []Related
	for rows.Next() {
		var r Related
		if err := rows.Scan(&r.DOI, &r.Count); err != nil {
			return nil, err
		}
		related = append(related, r)
	}
	return related, rows.Err()
}

// CountCitationsTo counts edges landing on any of the given DOIs in a
// specific citing year. Served by the (cited_doi, citing_year) index.
func (s *Store) CountCitationsTo(ctx context.Context, dois []string, year int) (int, error) {
	if len(dois) == 0 {
		return 0, nil
	}

	placeholders := strings.Repeat("?,", len(dois)-1) + "?"
	args := make([]any, 0, len(dois)+1)
	for _, d := range dois {
		args = append(args, d)
	}
	args = append(args, year)

	var count int
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*)
		FROM citations
		WHERE cited_doi IN (`+placeholders+`)
		AND citing_year = ?
	`, args...).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("counting citations to articles: %w", err)
	}
	return count, nil
}

// CountEdges returns the total number of edges. A store that was never built
// counts as empty.
func (s *Store) CountEdges(ctx context.Context) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM citations").Scan(&count)
	if err != nil {
		if strings.Contains(err.Error(), "no such table") {
			return 0, nil
		}
		return 0, err
	}
	return count, nil
}

// AllEdges returns every edge in deterministic order. Intended for small
// stores and verification; production reads go through the capped queries.
func (s *Store) AllEdges(ctx context.Context) ([]cite.Edge, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT citing_doi, cited_doi, citing_year
		FROM citations
		ORDER BY citing_doi, cited_doi
	`)
	if err != nil {
		return nil, fmt.Errorf("querying all edges: %w", err)
	}
	defer rows.Close()

	var edges []cite.Edge
	for rows.Next() {
		var e cite.Edge
		if err := rows.Scan(&e.CitingDOI, &e.CitedDOI, &e.CitingYear); err != nil {
			return nil, err
		}
		edges = append(edges, e)
	}
	return edges, rows.Err()
}
