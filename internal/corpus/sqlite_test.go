package corpus

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	_ "modernc.org/sqlite"
)

func newTestCorpus(t *testing.T, withJournals bool) *SQLiteSource {
	t.Helper()
	path := filepath.Join(t.TempDir(), "corpus.db")

	db, err := sql.Open("sqlite", path)
	if err != nil {
		t.Fatalf("opening database: %v", err)
	}
	defer db.Close()

	if _, err := db.Exec(`
		CREATE TABLE works (
			id INTEGER PRIMARY KEY,
			doi TEXT NOT NULL,
			type TEXT,
			metadata TEXT
		)
	`); err != nil {
		t.Fatalf("creating works table: %v", err)
	}
	if withJournals {
		if _, err := db.Exec(`
			CREATE TABLE journals (name_lower TEXT PRIMARY KEY, issn TEXT);
			INSERT INTO journals VALUES ('test journal', '1234-5678');
		`); err != nil {
			t.Fatalf("creating journals table: %v", err)
		}
	}

	rows := []struct {
		id   int64
		doi  string
		typ  string
		meta string
	}{
		{1, "10.1/a", "journal-article", `{
			"title": ["Paper A"],
			"container-title": ["Test Journal"],
			"ISSN": ["1234-5678"],
			"author": [{"given": "Ada", "family": "Lovelace"}],
			"published": {"date-parts": [[2021, 3]]},
			"reference": [{"DOI": "10.1/B"}, {}, {"DOI": "10.1/c"}],
			"is-referenced-by-count": 12
		}`},
		{2, "10.1/b", "journal-article", `{
			"title": ["Paper B"],
			"container-title": ["Test Journal"],
			"ISSN": ["1234-5678"],
			"published": {"date-parts": [[2022]]},
			"reference": [{"DOI": "10.1/c"}],
			"is-referenced-by-count": 3
		}`},
		{3, "10.1/norefs", "journal-article", `{
			"title": ["No References"],
			"published": {"date-parts": [[2021]]}
		}`},
		{4, "10.1/garbled", "journal-article", `not json`},
		{5, "10.1/editorial", "journal-article", `{
			"container-title": ["Test Journal"],
			"ISSN": ["1234-5678"],
			"published": {"date-parts": [[2021]]},
			"reference": [{"DOI": "10.1/x"}]
		}`},
	}
	for _, r := range rows {
		if _, err := db.Exec(
			"INSERT INTO works (id, doi, type, metadata) VALUES (?, ?, ?, ?)",
			r.id, r.doi, r.typ, r.meta,
		); err != nil {
			t.Fatalf("inserting work %s: %v", r.doi, err)
		}
	}

	src, err := OpenSQLite(path)
	if err != nil {
		t.Fatalf("opening corpus: %v", err)
	}
	t.Cleanup(func() { src.Close() })
	return src
}

func TestScanWorks(t *testing.T) {
	src := newTestCorpus(t, false)
	ctx := context.Background()

	works, err := src.ScanWorks(ctx, 0, 10)
	if err != nil {
		t.Fatalf("scanning: %v", err)
	}
	// Only works with a reference list; the garbled and reference-free rows
	// are filtered at the query level.
	if len(works) != 3 {
		t.Fatalf("got %d works, want 3", len(works))
	}
	if works[0].DOI != "10.1/a" || works[0].Key != 1 {
		t.Errorf("first work = %+v", works[0])
	}
	if works[0].Year != 2021 {
		t.Errorf("year = %d, want 2021", works[0].Year)
	}
	if len(works[0].References) != 3 {
		t.Errorf("got %d references, want 3 including unresolved", len(works[0].References))
	}
	if works[0].References[0].DOI != "10.1/B" {
		t.Errorf("reference DOI = %q, want raw case preserved", works[0].References[0].DOI)
	}
}

func TestScanWorksPagination(t *testing.T) {
	src := newTestCorpus(t, false)
	ctx := context.Background()

	page1, err := src.ScanWorks(ctx, 0, 2)
	if err != nil {
		t.Fatalf("scanning page 1: %v", err)
	}
	if len(page1) != 2 {
		t.Fatalf("page 1 has %d works, want 2", len(page1))
	}

	page2, err := src.ScanWorks(ctx, page1[len(page1)-1].Key, 2)
	if err != nil {
		t.Fatalf("scanning page 2: %v", err)
	}
	if len(page2) != 1 {
		t.Fatalf("page 2 has %d works, want 1", len(page2))
	}
	if page2[0].Key <= page1[len(page1)-1].Key {
		t.Error("page 2 keys not strictly past the cursor")
	}
}

func TestCountWorks(t *testing.T) {
	src := newTestCorpus(t, false)
	count, err := src.CountWorks(context.Background())
	if err != nil {
		t.Fatalf("counting: %v", err)
	}
	if count != 3 {
		t.Errorf("count = %d, want 3", count)
	}
}

func TestGetMetadata(t *testing.T) {
	src := newTestCorpus(t, false)
	ctx := context.Background()

	meta, err := src.GetMetadata(ctx, "10.1/a")
	if err != nil {
		t.Fatalf("fetching: %v", err)
	}
	if meta == nil {
		t.Fatal("metadata missing for present DOI")
	}
	if meta.Title != "Paper A" {
		t.Errorf("title = %q", meta.Title)
	}
	if meta.Journal != "Test Journal" {
		t.Errorf("journal = %q", meta.Journal)
	}
	if meta.Year != 2021 {
		t.Errorf("year = %d", meta.Year)
	}
	if meta.CitedByCount != 12 {
		t.Errorf("cited-by count = %d", meta.CitedByCount)
	}
	if len(meta.Authors) != 1 || meta.Authors[0] != "Ada Lovelace" {
		t.Errorf("authors = %v", meta.Authors)
	}

	absent, err := src.GetMetadata(ctx, "10.1/missing")
	if err != nil {
		t.Fatalf("fetching absent: %v", err)
	}
	if absent != nil {
		t.Errorf("got metadata %+v for absent DOI", absent)
	}

	garbled, err := src.GetMetadata(ctx, "10.1/garbled")
	if err != nil {
		t.Fatalf("fetching garbled: %v", err)
	}
	if garbled == nil || garbled.DOI != "10.1/garbled" {
		t.Errorf("garbled metadata = %+v, want minimal record", garbled)
	}
}

func TestResolveJournal(t *testing.T) {
	ctx := context.Background()

	withTable := newTestCorpus(t, true)
	issn, err := withTable.ResolveJournal(ctx, "  Test JOURNAL ")
	if err != nil {
		t.Fatalf("resolving: %v", err)
	}
	if issn != "1234-5678" {
		t.Errorf("issn = %q, want 1234-5678 via lookup table", issn)
	}
	issn, err = withTable.ResolveJournal(ctx, "Nope Quarterly")
	if err != nil {
		t.Fatalf("resolving unknown: %v", err)
	}
	if issn != "" {
		t.Errorf("issn = %q for unknown journal, want empty", issn)
	}

	withoutTable := newTestCorpus(t, false)
	issn, err = withoutTable.ResolveJournal(ctx, "Test Journal")
	if err != nil {
		t.Fatalf("resolving via fallback: %v", err)
	}
	if issn != "1234-5678" {
		t.Errorf("issn = %q, want 1234-5678 via works scan", issn)
	}
}

func TestArticleDOIs(t *testing.T) {
	src := newTestCorpus(t, false)
	ctx := context.Background()

	dois, err := src.ArticleDOIs(ctx, "1234-5678", 2021, false, false, 0)
	if err != nil {
		t.Fatalf("listing: %v", err)
	}
	if len(dois) != 2 {
		t.Fatalf("got %d articles for 2021, want 2", len(dois))
	}

	// The citable filter requires more than minRefs references; the
	// single-reference editorial drops out.
	citable, err := src.ArticleDOIs(ctx, "1234-5678", 2021, false, true, 2)
	if err != nil {
		t.Fatalf("listing citable: %v", err)
	}
	if len(citable) != 1 || citable[0] != "10.1/a" {
		t.Errorf("citable articles = %v, want [10.1/a]", citable)
	}

	byName, err := src.ArticleDOIs(ctx, "Test Jour", 2022, true, false, 0)
	if err != nil {
		t.Fatalf("listing by name: %v", err)
	}
	if len(byName) != 1 || byName[0] != "10.1/b" {
		t.Errorf("by-name articles = %v, want [10.1/b]", byName)
	}
}

func TestCitedByTotal(t *testing.T) {
	src := newTestCorpus(t, false)
	total, err := src.CitedByTotal(context.Background(), []string{"10.1/a", "10.1/b"})
	if err != nil {
		t.Fatalf("summing: %v", err)
	}
	if total != 15 {
		t.Errorf("total = %d, want 15", total)
	}

	total, err = src.CitedByTotal(context.Background(), nil)
	if err != nil {
		t.Fatalf("summing empty set: %v", err)
	}
	if total != 0 {
		t.Errorf("total = %d for empty set, want 0", total)
	}
}

func TestForEachWorkInYear(t *testing.T) {
	src := newTestCorpus(t, false)

	var dois []string
	err := src.ForEachWorkInYear(context.Background(), 2021, func(w Work) error {
		dois = append(dois, w.DOI)
		return nil
	})
	if err != nil {
		t.Fatalf("iterating: %v", err)
	}
	if len(dois) != 2 {
		t.Errorf("visited %v, want the two 2021 works with references", dois)
	}
}

func TestYearOf(t *testing.T) {
	tests := []struct {
		name  string
		parts [][]any
		want  int
	}{
		{"year and month", [][]any{{float64(2021), float64(3)}}, 2021},
		{"empty", nil, 0},
		{"empty inner", [][]any{{}}, 0},
		{"non-numeric", [][]any{{"2021"}}, 0},
		{"fractional", [][]any{{2021.5}}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := yearOf(tt.parts); got != tt.want {
				t.Errorf("yearOf(%v) = %d, want %d", tt.parts, got, tt.want)
			}
		})
	}
}
