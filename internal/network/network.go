// Package network builds bounded citation neighborhoods for visualization.
package network

import (
	"context"
	"errors"

	"github.com/matsen/citegraph/internal/corpus"
	"github.com/matsen/citegraph/internal/graph"
)

// Node is one work in an expanded network. Depth is the hop distance from
// the seed. Metadata fields are best-effort: works absent from the corpus
// keep a minimal node so edges to them stay visible.
type Node struct {
	DOI           string   `json:"doi"`
	Depth         int      `json:"depth"`
	Title         string   `json:"title,omitempty"`
	Authors       []string `json:"authors,omitempty"`
	Year          int      `json:"year,omitempty"`
	Journal       string   `json:"journal,omitempty"`
	CitationCount int      `json:"citation_count"`
}

// Link is a directed citation edge between two network nodes.
type Link struct {
	From string `json:"from"`
	To   string `json:"to"`
}

// Graph is the expanded neighborhood around a seed work: plain structured
// values, ready for any caching or presentation layer to wrap.
type Graph struct {
	Seed  string `json:"seed"`
	Nodes []Node `json:"nodes"`
	Edges []Link `json:"edges"`
}

// Expander builds citation networks by breadth-first traversal over the
// query engine, fetching node metadata from the corpus. Stateless per call.
type Expander struct {
	Engine *graph.Engine
	Source corpus.Source
}

// NewExpander creates a network expander.
func NewExpander(engine *graph.Engine, source corpus.Source) *Expander {
	return &Expander{Engine: engine, Source: source}
}

// Build expands the citation neighborhood around seed to the given depth.
// Each node contributes at most maxCiting reverse and maxCited forward
// neighbors; edges to neighbors beyond the depth boundary are kept for leaf
// connectivity even though those neighbors are not expanded. Depth 0 returns
// exactly the seed node and no edges.
//
// Citation graphs are cyclic at the multi-hop level, so a visited set guards
// against reprocessing. If the context expires mid-walk the graph built so
// far is returned rather than blocking the caller.
func (x *Expander) Build(ctx context.Context, seed string, depth, maxCiting, maxCited int) (*Graph, error) {
	type frontier struct {
		doi   string
		depth int
	}

	g := &Graph{Seed: seed}
	queue := []frontier{{doi: seed, depth: 0}}
	visited := make(map[string]bool)
	seenEdge := make(map[Link]bool)

	addEdge := func(from, to string) {
		l := Link{From: from, To: to}
		if !seenEdge[l] {
			seenEdge[l] = true
			g.Edges = append(g.Edges, l)
		}
	}

	for len(queue) > 0 {
		if ctx.Err() != nil {
			return g, nil // partial result beats an indefinite wait
		}

		cur := queue[0]
		queue = queue[1:]

		if visited[cur.doi] {
			continue
		}
		visited[cur.doi] = true

		node, err := x.buildNode(ctx, cur.doi, cur.depth)
		if err != nil {
			if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
				return g, nil
			}
			return nil, err
		}
		g.Nodes = append(g.Nodes, node)

		if cur.depth >= depth {
			continue
		}

		citing, err := x.Engine.ReverseCitations(ctx, cur.doi, maxCiting)
		if err != nil {
			return nil, err
		}
		for _, c := range citing {
			addEdge(c.CitingDOI, cur.doi)
			if !visited[c.CitingDOI] {
				queue = append(queue, frontier{doi: c.CitingDOI, depth: cur.depth + 1})
			}
		}

		cited, err := x.Engine.ForwardCitations(ctx, cur.doi, maxCited)
		if err != nil {
			return nil, err
		}
		for _, d := range cited {
			addEdge(cur.doi, d)
			if !visited[d] {
				queue = append(queue, frontier{doi: d, depth: cur.depth + 1})
			}
		}
	}

	return g, nil
}

// buildNode fetches metadata and citation count for one node. Metadata is
// fetched once per unique node, never per edge.
func (x *Expander) buildNode(ctx context.Context, doi string, depth int) (Node, error) {
	node := Node{DOI: doi, Depth: depth}

	count, err := x.Engine.CitationCount(ctx, doi)
	if err != nil {
		return node, err
	}
	node.CitationCount = count

	meta, err := x.Source.GetMetadata(ctx, doi)
	if err != nil {
		return node, err
	}
	if meta != nil {
		node.Title = meta.Title
		node.Authors = meta.Authors
		node.Year = meta.Year
		node.Journal = meta.Journal
	}
	return node, nil
}
