// Package storage implements the durable citation edge store.
//
// The store is append/replace-only: edges are written in batch-atomic
// transactions by the index builder and replaced wholesale by a full rebuild.
// Readers never observe a partial batch.
package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/matsen/citegraph/internal/cite"
	_ "modernc.org/sqlite"
)

// ErrStorageBusy is returned when another writer holds the edge store.
var ErrStorageBusy = errors.New("edge store is locked by another writer")

// Store wraps the SQLite edge database.
type Store struct {
	db *sql.DB
}

// Open opens the edge store for reading and querying.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening edge store: %w", err)
	}
	return &Store{db: db}, nil
}

// OpenExclusive opens the edge store for writing, probing for exclusive
// access. If another writer holds the store it fails immediately with
// ErrStorageBusy rather than blocking; operators get fast feedback.
func OpenExclusive(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening edge store: %w", err)
	}
	db.SetMaxOpenConns(1) // SQLite doesn't support concurrent writes

	if _, err := db.Exec("PRAGMA busy_timeout = 0"); err != nil {
		db.Close()
		return nil, fmt.Errorf("configuring edge store: %w", err)
	}

	// Probe: an immediate transaction acquires the write lock or fails now.
	tx, err := db.Begin()
	if err == nil {
		_, err = tx.Exec("PRAGMA user_version = 0")
		if err == nil {
			err = tx.Commit()
		} else {
			tx.Rollback()
		}
	}
	if err != nil {
		db.Close()
		if isBusy(err) {
			return nil, ErrStorageBusy
		}
		return nil, fmt.Errorf("probing edge store: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// isBusy reports whether err is SQLite lock contention.
func isBusy(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "database is locked") || strings.Contains(msg, "SQLITE_BUSY")
}

// IsBusy reports whether err indicates transient storage contention.
func IsBusy(err error) bool {
	return errors.Is(err, ErrStorageBusy) || isBusy(err)
}

// Backup renames an existing edge store aside with a timestamp so a rebuild
// never deletes the previous edge set silently. Returns the backup path, or
// "" if there was nothing to back up.
func Backup(path string) (string, error) {
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return "", nil
		}
		return "", fmt.Errorf("checking edge store: %w", err)
	}

	backup := fmt.Sprintf("%s.%s.bak", path, time.Now().UTC().Format("20060102T150405"))
	if err := os.Rename(path, backup); err != nil {
		return "", fmt.Errorf("backing up edge store: %w", err)
	}
	return backup, nil
}

// Reset drops the citations table and checkpoint so a fresh rebuild starts
// empty. Dropping the table also drops any indexes a previous Finalize built,
// restoring bulk-insert speed.
func (s *Store) Reset() error {
	if _, err := s.db.Exec(`
		DROP TABLE IF EXISTS citations;
		DROP TABLE IF EXISTS rebuild_checkpoint;
	`); err != nil {
		return fmt.Errorf("resetting edge store: %w", err)
	}
	return nil
}

// CreateBulkSchema creates the citations table without its uniqueness
// constraint or secondary indexes. Deferred indexing keeps bulk inserts fast
// at tens-of-millions-of-rows scale; Finalize adds the indexes afterward.
func (s *Store) CreateBulkSchema() error {
	schema := `
		CREATE TABLE IF NOT EXISTS citations (
			citing_doi TEXT NOT NULL,
			cited_doi TEXT NOT NULL,
			citing_year INTEGER NOT NULL
		);

		CREATE TABLE IF NOT EXISTS rebuild_checkpoint (
			id INTEGER PRIMARY KEY CHECK (id = 1),
			last_key INTEGER NOT NULL
		);
	`
	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("creating edge schema: %w", err)
	}
	return nil
}

// CommitBatch durably commits a batch of edges and advances the checkpoint
// cursor to lastKey in a single transaction. The checkpoint therefore never
// points past uncommitted edges, no matter where a crash lands.
func (s *Store) CommitBatch(edges []cite.Edge, lastKey int64) (int, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return 0, fmt.Errorf("beginning commit: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`
		INSERT OR IGNORE INTO citations (citing_doi, cited_doi, citing_year)
		VALUES (?, ?, ?)
	`)
	if err != nil {
		return 0, fmt.Errorf("preparing edge insert: %w", err)
	}
	defer stmt.Close()

	inserted := 0
	for _, e := range edges {
		res, err := stmt.Exec(e.CitingDOI, e.CitedDOI, e.CitingYear)
		if err != nil {
			return 0, fmt.Errorf("inserting edge: %w", err)
		}
		if n, err := res.RowsAffected(); err == nil {
			inserted += int(n)
		}
	}

	_, err = tx.Exec(`
		INSERT INTO rebuild_checkpoint (id, last_key) VALUES (1, ?)
		ON CONFLICT(id) DO UPDATE SET last_key = excluded.last_key
	`, lastKey)
	if err != nil {
		return 0, fmt.Errorf("advancing checkpoint: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("committing batch: %w", err)
	}
	return inserted, nil
}

// Checkpoint returns the persisted rebuild cursor. ok is false when no
// checkpoint exists.
func (s *Store) Checkpoint() (lastKey int64, ok bool, err error) {
	err = s.db.QueryRow("SELECT last_key FROM rebuild_checkpoint WHERE id = 1").Scan(&lastKey)
	if err != nil {
		if err == sql.ErrNoRows || strings.Contains(err.Error(), "no such table") {
			return 0, false, nil
		}
		return 0, false, fmt.Errorf("reading checkpoint: %w", err)
	}
	return lastKey, true, nil
}

// ClearCheckpoint removes the rebuild cursor after a successful build.
func (s *Store) ClearCheckpoint() error {
	if _, err := s.db.Exec("DROP TABLE IF EXISTS rebuild_checkpoint"); err != nil {
		return fmt.Errorf("clearing checkpoint: %w", err)
	}
	return nil
}

// Dedup collapses duplicate (citing, cited) pairs, keeping the first row of
// each pair. Duplicates arise from re-fed source records around an imprecise
// resume boundary; counts must never inflate from them. Returns the number
// of rows removed.
func (s *Store) Dedup() (int, error) {
	res, err := s.db.Exec(`
		DELETE FROM citations
		WHERE rowid NOT IN (
			SELECT MIN(rowid) FROM citations GROUP BY citing_doi, cited_doi
		)
	`)
	if err != nil {
		return 0, fmt.Errorf("deduplicating edges: %w", err)
	}
	n, _ := res.RowsAffected()
	return int(n), nil
}

// Finalize builds the uniqueness constraint and the secondary orderings that
// serve the query shapes: reverse lookups by (cited, year), forward lookups
// by citing, and year slices for aggregation.
func (s *Store) Finalize() error {
	schema := `
		CREATE UNIQUE INDEX IF NOT EXISTS idx_citations_pair ON citations(citing_doi, cited_doi);
		CREATE INDEX IF NOT EXISTS idx_citations_cited ON citations(cited_doi, citing_year);
		CREATE INDEX IF NOT EXISTS idx_citations_citing ON citations(citing_doi);
		CREATE INDEX IF NOT EXISTS idx_citations_year ON citations(citing_year);
	`
	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("building edge indexes: %w", err)
	}
	return nil
}
