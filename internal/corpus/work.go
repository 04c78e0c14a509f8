// Package corpus provides read access to the ingested works corpus.
//
// Raw source records are parsed exactly once here, at the ingestion boundary,
// into validated structs. Downstream packages never re-interpret raw metadata.
package corpus

// Work is one scholarly work as seen by the citation indexer.
// Key is the stable ordering key used for resumable scans.
type Work struct {
	Key        int64
	DOI        string
	Year       int // 0 when the source record has no usable year
	References []Reference
}

// Reference is a single entry in a work's reference list. Not every entry
// resolves to an identifier; DOI is empty for those.
type Reference struct {
	DOI string
}

// Metadata is the descriptive record for a work, used by network nodes and
// impact-factor denominators.
type Metadata struct {
	DOI          string   `json:"doi"`
	Title        string   `json:"title"`
	Authors      []string `json:"authors,omitempty"`
	Year         int      `json:"year,omitempty"`
	Journal      string   `json:"journal,omitempty"`
	Abstract     string   `json:"abstract,omitempty"`
	CitedByCount int      `json:"cited_by_count"`
}
