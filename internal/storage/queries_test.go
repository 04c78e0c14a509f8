package storage

import (
	"context"
	"testing"

	"github.com/matsen/citegraph/internal/cite"
)

// seedStore builds a finalized store from the given edges.
func seedStore(t *testing.T, edges []cite.Edge) *Store {
	t.Helper()
	s := newTestStore(t)
	if _, err := s.CommitBatch(edges, int64(len(edges))); err != nil {
		t.Fatalf("committing edges: %v", err)
	}
	if err := s.Finalize(); err != nil {
		t.Fatalf("finalizing: %v", err)
	}
	return s
}

func TestForwardCitations(t *testing.T) {
	s := seedStore(t, []cite.Edge{
		{CitingDOI: "10.1/x", CitedDOI: "10.1/c", CitingYear: 2020},
		{CitingDOI: "10.1/x", CitedDOI: "10.1/a", CitingYear: 2020},
		{CitingDOI: "10.1/x", CitedDOI: "10.1/b", CitingYear: 2020},
		{CitingDOI: "10.1/y", CitedDOI: "10.1/z", CitingYear: 2021},
	})

	dois, err := s.ForwardCitations(context.Background(), "10.1/x", 10)
	if err != nil {
		t.Fatalf("querying: %v", err)
	}
	want := []string{"10.1/a", "10.1/b", "10.1/c"}
	if len(dois) != len(want) {
		t.Fatalf("got %d DOIs, want %d", len(dois), len(want))
	}
	for i, d := range dois {
		if d != want[i] {
			t.Errorf("doi %d = %q, want %q", i, d, want[i])
		}
	}

	capped, err := s.ForwardCitations(context.Background(), "10.1/x", 2)
	if err != nil {
		t.Fatalf("querying capped: %v", err)
	}
	if len(capped) != 2 {
		t.Errorf("got %d DOIs with limit 2", len(capped))
	}
}

func TestReverseCitationsOrdering(t *testing.T) {
	s := seedStore(t, []cite.Edge{
		{CitingDOI: "10.1/old", CitedDOI: "10.1/t", CitingYear: 2018},
		{CitingDOI: "10.1/b", CitedDOI: "10.1/t", CitingYear: 2022},
		{CitingDOI: "10.1/a", CitedDOI: "10.1/t", CitingYear: 2022},
	})

	cites, err := s.ReverseCitations(context.Background(), "10.1/t", 10)
	if err != nil {
		t.Fatalf("querying: %v", err)
	}
	want := []Citation{
		{CitingDOI: "10.1/a", CitingYear: 2022},
		{CitingDOI: "10.1/b", CitingYear: 2022},
		{CitingDOI: "10.1/old", CitingYear: 2018},
	}
	if len(cites) != len(want) {
		t.Fatalf("got %d citations, want %d", len(cites), len(want))
	}
	for i, c := range cites {
		if c != want[i] {
			t.Errorf("citation %d = %+v, want %+v", i, c, want[i])
		}
	}
}

func TestCoCited(t *testing.T) {
	// x and y are cited together by p and q; z only by p.
	s := seedStore(t, []cite.Edge{
		{CitingDOI: "10.1/p", CitedDOI: "10.1/x", CitingYear: 2020},
		{CitingDOI: "10.1/p", CitedDOI: "10.1/y", CitingYear: 2020},
		{CitingDOI: "10.1/p", CitedDOI: "10.1/z", CitingYear: 2020},
		{CitingDOI: "10.1/q", CitedDOI: "10.1/x", CitingYear: 2021},
		{CitingDOI: "10.1/q", CitedDOI: "10.1/y", CitingYear: 2021},
	})

	related, err := s.CoCited(context.Background(), "10.1/x", 500, 10)
	if err != nil {
		t.Fatalf("querying: %v", err)
	}
	want := []Related{
		{DOI: "10.1/y", Count: 2},
		{DOI: "10.1/z", Count: 1},
	}
	if len(related) != len(want) {
		t.Fatalf("got %d rows, want %d", len(related), len(want))
	}
	for i, r := range related {
		if r != want[i] {
			t.Errorf("row %d = %+v, want %+v", i, r, want[i])
		}
	}
}

func TestCoupled(t *testing.T) {
	// a and b share two references; c shares one.
	s := seedStore(t, []cite.Edge{
		{CitingDOI: "10.1/a", CitedDOI: "10.1/r1", CitingYear: 2020},
		{CitingDOI: "10.1/a", CitedDOI: "10.1/r2", CitingYear: 2020},
		{CitingDOI: "10.1/b", CitedDOI: "10.1/r1", CitingYear: 2021},
		{CitingDOI: "10.1/b", CitedDOI: "10.1/r2", CitingYear: 2021},
		{CitingDOI: "10.1/c", CitedDOI: "10.1/r2", CitingYear: 2022},
	})

	related, err := s.Coupled(context.Background(), "10.1/a", 500, 10)
	if err != nil {
		t.Fatalf("querying: %v", err)
	}
	want := []Related{
		{DOI: "10.1/b", Count: 2},
		{DOI: "10.1/c", Count: 1},
	}
	if len(related) != len(want) {
		t.Fatalf("got %d rows, want %d", len(related), len(want))
	}
	for i, r := range related {
		if r != want[i] {
			t.Errorf("row %d = %+v, want %+v", i, r, want[i])
		}
	}
}

func TestCoCitedFanoutCap(t *testing.T) {
	// Two citers of the seed; a fanout of 1 samples only one of them, so the
	// co-citation count cannot exceed 1.
	s := seedStore(t, []cite.Edge{
		{CitingDOI: "10.1/p", CitedDOI: "10.1/x", CitingYear: 2020},
		{CitingDOI: "10.1/p", CitedDOI: "10.1/y", CitingYear: 2020},
		{CitingDOI: "10.1/q", CitedDOI: "10.1/x", CitingYear: 2021},
		{CitingDOI: "10.1/q", CitedDOI: "10.1/y", CitingYear: 2021},
	})

	related, err := s.CoCited(context.Background(), "10.1/x", 1, 10)
	if err != nil {
		t.Fatalf("querying: %v", err)
	}
	if len(related) != 1 {
		t.Fatalf("got %d rows, want 1", len(related))
	}
	if related[0].Count != 1 {
		t.Errorf("count = %d, want 1 under fanout cap", related[0].Count)
	}
}

func TestCitationCount(t *testing.T) {
	s := seedStore(t, []cite.Edge{
		{CitingDOI: "10.1/a", CitedDOI: "10.1/t", CitingYear: 2020},
		{CitingDOI: "10.1/b", CitedDOI: "10.1/t", CitingYear: 2021},
	})

	count, err := s.CitationCount(context.Background(), "10.1/t")
	if err != nil {
		t.Fatalf("counting: %v", err)
	}
	if count != 2 {
		t.Errorf("count = %d, want 2", count)
	}

	count, err = s.CitationCount(context.Background(), "10.1/absent")
	if err != nil {
		t.Fatalf("counting absent: %v", err)
	}
	if count != 0 {
		t.Errorf("count = %d for absent DOI, want 0", count)
	}
}

func TestCountCitationsTo(t *testing.T) {
	s := seedStore(t, []cite.Edge{
		{CitingDOI: "10.1/p", CitedDOI: "10.1/d1", CitingYear: 2023},
		{CitingDOI: "10.1/q", CitedDOI: "10.1/d1", CitingYear: 2023},
		{CitingDOI: "10.1/r", CitedDOI: "10.1/d2", CitingYear: 2023},
		{CitingDOI: "10.1/s", CitedDOI: "10.1/d2", CitingYear: 2022},
		{CitingDOI: "10.1/u", CitedDOI: "10.1/other", CitingYear: 2023},
	})

	count, err := s.CountCitationsTo(context.Background(), []string{"10.1/d1", "10.1/d2"}, 2023)
	if err != nil {
		t.Fatalf("counting: %v", err)
	}
	if count != 3 {
		t.Errorf("count = %d, want 3", count)
	}

	count, err = s.CountCitationsTo(context.Background(), nil, 2023)
	if err != nil {
		t.Fatalf("counting empty set: %v", err)
	}
	if count != 0 {
		t.Errorf("count = %d for empty DOI set, want 0", count)
	}
}

func TestCountEdgesMissingTable(t *testing.T) {
	path := t.TempDir() + "/citations.db"
	s, err := Open(path)
	if err != nil {
		t.Fatalf("opening: %v", err)
	}
	defer s.Close()

	count, err := s.CountEdges(context.Background())
	if err != nil {
		t.Fatalf("counting: %v", err)
	}
	if count != 0 {
		t.Errorf("count = %d for unbuilt store, want 0", count)
	}
}

func TestCitationCountMissingTable(t *testing.T) {
	path := t.TempDir() + "/citations.db"
	s, err := Open(path)
	if err != nil {
		t.Fatalf("opening: %v", err)
	}
	defer s.Close()

	count, err := s.CitationCount(context.Background(), "10.1/t")
	if err != nil {
		t.Fatalf("counting: %v", err)
	}
	if count != 0 {
		t.Errorf("count = %d for unbuilt store, want 0", count)
	}
}
