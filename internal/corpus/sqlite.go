package corpus

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"math"
	"strings"

	_ "modernc.org/sqlite"
)

// hasRefsFilter restricts scans to works that carry at least one reference.
const hasRefsFilter = "json_extract(metadata, '$.reference') IS NOT NULL"

// SQLiteSource reads a crossref-style corpus database with a
// works(id, doi, type, metadata) table holding raw JSON metadata, plus an
// optional journals(name_lower, issn) lookup table.
type SQLiteSource struct {
	db          *sql.DB
	hasJournals bool
}

// OpenSQLite opens a corpus database for reading.
func OpenSQLite(path string) (*SQLiteSource, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening corpus database: %w", err)
	}

	s := &SQLiteSource{db: db}
	s.hasJournals = tableExists(db, "journals")
	return s, nil
}

// Close closes the database connection.
func (s *SQLiteSource) Close() error {
	return s.db.Close()
}

func tableExists(db *sql.DB, name string) bool {
	var n string
	err := db.QueryRow(
		"SELECT name FROM sqlite_master WHERE type='table' AND name = ?", name,
	).Scan(&n)
	return err == nil
}

// ScanWorks returns up to limit works with key > afterKey in key order,
// restricted to works with at least one reference. Key-ordered cursor
// pagination keeps each page O(limit) regardless of scan position.
func (s *SQLiteSource) ScanWorks(ctx context.Context, afterKey int64, limit int) ([]Work, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, doi, metadata
		FROM works
		WHERE id > ? AND `+hasRefsFilter+`
		ORDER BY id
		LIMIT ?
	`, afterKey, limit)
	if err != nil {
		return nil, fmt.Errorf("scanning works: %w", err)
	}
	defer rows.Close()

	var works []Work
	for rows.Next() {
		var (
			key     int64
			doi     string
			rawMeta string
		)
		if err := rows.Scan(&key, &doi, &rawMeta); err != nil {
			return nil, err
		}
		works = append(works, parseWork(key, doi, rawMeta))
	}
	return works, rows.Err()
}

// CountWorks returns the number of works with at least one reference.
func (s *SQLiteSource) CountWorks(ctx context.Context) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM works WHERE "+hasRefsFilter,
	).Scan(&count)
	return count, err
}

// GetMetadata returns descriptive metadata for a DOI, or (nil, nil) when the
// DOI is not in the corpus.
func (s *SQLiteSource) GetMetadata(ctx context.Context, doi string) (*Metadata, error) {
	var rawMeta string
	err := s.db.QueryRowContext(ctx,
		"SELECT metadata FROM works WHERE doi = ?", doi,
	).Scan(&rawMeta)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("fetching metadata for %s: %w", doi, err)
	}

	var m rawMetadata
	if err := json.Unmarshal([]byte(rawMeta), &m); err != nil {
		// Corrupt metadata degrades to a minimal record rather than failing
		// the whole lookup.
		return &Metadata{DOI: doi}, nil
	}

	meta := &Metadata{
		DOI:          doi,
		Abstract:     m.Abstract,
		Year:         yearOf(m.Published.DateParts),
		CitedByCount: m.IsReferencedByCount,
	}
	if len(m.Title) > 0 {
		meta.Title = m.Title[0]
	}
	if len(m.ContainerTitle) > 0 {
		meta.Journal = m.ContainerTitle[0]
	}
	for _, a := range m.Author {
		name := strings.TrimSpace(a.Given + " " + a.Family)
		if name != "" {
			meta.Authors = append(meta.Authors, name)
		}
	}
	return meta, nil
}

// ResolveJournal resolves a journal name to its canonical ISSN using the
// journals lookup table, falling back to a works-table scan when the table is
// absent. Returns "" when no match exists.
func (s *SQLiteSource) ResolveJournal(ctx context.Context, name string) (string, error) {
	lower := strings.ToLower(strings.TrimSpace(name))
	if lower == "" {
		return "", nil
	}

	if s.hasJournals {
		var issn string
		err := s.db.QueryRowContext(ctx,
			"SELECT issn FROM journals WHERE name_lower = ? LIMIT 1", lower,
		).Scan(&issn)
		if err == nil {
			return issn, nil
		}
		if err != sql.ErrNoRows {
			return "", fmt.Errorf("resolving journal %q: %w", name, err)
		}
		return "", nil
	}

	// Slow fallback: scan works for an exact container-title match.
	var issn sql.NullString
	err := s.db.QueryRowContext(ctx, `
		SELECT json_extract(metadata, '$.ISSN[0]')
		FROM works
		WHERE json_extract(metadata, '$.container-title[0]') = ?
		AND json_extract(metadata, '$.ISSN[0]') IS NOT NULL
		LIMIT 1
	`, name).Scan(&issn)
	if err != nil {
		if err == sql.ErrNoRows {
			return "", nil
		}
		return "", fmt.Errorf("resolving journal %q: %w", name, err)
	}
	return issn.String, nil
}

// ArticleDOIs returns DOIs of journal articles for a journal and year.
// The citable filter keeps works with more than minRefs references, the
// inherited heuristic separating research articles from editorials and
// letters.
func (s *SQLiteSource) ArticleDOIs(ctx context.Context, journal string, year int, byName, citableOnly bool, minRefs int) ([]string, error) {
	var (
		where string
		ident any
	)
	if byName {
		where = "json_extract(metadata, '$.container-title[0]') LIKE ?"
		ident = "%" + journal + "%"
	} else {
		where = "json_extract(metadata, '$.ISSN[0]') = ?"
		ident = journal
	}

	query := `
		SELECT doi
		FROM works
		WHERE ` + where + `
		AND json_extract(metadata, '$.published.date-parts[0][0]') = ?
		AND type = 'journal-article'
	`
	args := []any{ident, year}
	if citableOnly {
		query += " AND json_array_length(json_extract(metadata, '$.reference')) > ?"
		args = append(args, minRefs)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing articles: %w", err)
	}
	defer rows.Close()

	var dois []string
	for rows.Next() {
		var doi string
		if err := rows.Scan(&doi); err != nil {
			return nil, err
		}
		dois = append(dois, doi)
	}
	return dois, rows.Err()
}

// CitedByTotal sums the cumulative citation counters over the given DOIs.
func (s *SQLiteSource) CitedByTotal(ctx context.Context, dois []string) (int, error) {
	if len(dois) == 0 {
		return 0, nil
	}

	placeholders := strings.Repeat("?,", len(dois)-1) + "?"
	args := make([]any, len(dois))
	for i, d := range dois {
		args[i] = d
	}

	var total sql.NullInt64
	err := s.db.QueryRowContext(ctx, `
		SELECT SUM(CAST(json_extract(metadata, '$.is-referenced-by-count') AS INTEGER))
		FROM works
		WHERE doi IN (`+placeholders+`)
	`, args...).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("summing citation counters: %w", err)
	}
	return int(total.Int64), nil
}

// ForEachWorkInYear invokes fn for every work with references published in
// the given year.
func (s *SQLiteSource) ForEachWorkInYear(ctx context.Context, year int, fn func(Work) error) error {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, doi, metadata
		FROM works
		WHERE json_extract(metadata, '$.published.date-parts[0][0]') = ?
		AND `+hasRefsFilter+`
	`, year)
	if err != nil {
		return fmt.Errorf("scanning works for %d: %w", year, err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			key     int64
			doi     string
			rawMeta string
		)
		if err := rows.Scan(&key, &doi, &rawMeta); err != nil {
			return err
		}
		if err := fn(parseWork(key, doi, rawMeta)); err != nil {
			return err
		}
	}
	return rows.Err()
}

// rawMetadata mirrors the crossref JSON fields the engine consumes.
type rawMetadata struct {
	Title               []string    `json:"title"`
	Abstract            string      `json:"abstract"`
	ContainerTitle      []string    `json:"container-title"`
	ISSN                []string    `json:"ISSN"`
	Author              []rawAuthor `json:"author"`
	Published           rawDate     `json:"published"`
	Reference           []rawRef    `json:"reference"`
	IsReferencedByCount int         `json:"is-referenced-by-count"`
}

type rawAuthor struct {
	Given  string `json:"given"`
	Family string `json:"family"`
}

type rawDate struct {
	DateParts [][]any `json:"date-parts"`
}

type rawRef struct {
	DOI string `json:"DOI"`
}

// parseWork parses a raw metadata record into a Work. Malformed metadata
// degrades to a work with no year and no references, which the extractor
// counts as a skip.
func parseWork(key int64, doi, rawMeta string) Work {
	w := Work{Key: key, DOI: doi}

	var m rawMetadata
	if err := json.Unmarshal([]byte(rawMeta), &m); err != nil {
		return w
	}

	w.Year = yearOf(m.Published.DateParts)
	if len(m.Reference) > 0 {
		w.References = make([]Reference, len(m.Reference))
		for i, r := range m.Reference {
			w.References[i] = Reference{DOI: r.DOI}
		}
	}
	return w
}

// yearOf extracts the publication year from crossref date-parts. Anything
// other than a whole number yields 0.
func yearOf(parts [][]any) int {
	if len(parts) == 0 || len(parts[0]) == 0 {
		return 0
	}
	f, ok := parts[0][0].(float64)
	if !ok || f != math.Trunc(f) {
		return 0
	}
	return int(f)
}
