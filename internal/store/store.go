// Package store is the durable cache: transcripts persisted as gob
// blobs, third-party Sereal caches ingested directly, and
// accession-resolution / batch-run bookkeeping kept in DuckDB so a
// repeated batchCheck run over the same file is idempotent.
package store

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/marcboeker/go-duckdb"
)

// Store owns one DuckDB connection used for bookkeeping tables; the
// bulk transcript data itself lives in gob files managed by
// TranscriptCache, mirroring the split the teacher's internal/duckdb
// package makes between "gob for transcripts" and "DuckDB for
// queryable results".
type Store struct {
	db   *sql.DB
	path string
}

// Open opens or creates a DuckDB database at path ("" for in-memory).
func Open(path string) (*Store, error) {
	if path != "" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("store: create cache directory: %w", err)
		}
	}

	db, err := sql.Open("duckdb", path)
	if err != nil {
		return nil, fmt.Errorf("store: open duckdb: %w", err)
	}

	s := &Store{db: db, path: path}
	if err := s.ensureSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("store: ensure schema: %w", err)
	}
	return s, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) DB() *sql.DB {
	return s.db
}

func (s *Store) ensureSchema() error {
	_, err := s.db.Exec(`CREATE TABLE IF NOT EXISTS accession_resolutions (
		accession VARCHAR,
		version VARCHAR,
		resolved BOOLEAN,
		error VARCHAR,
		resolved_at TIMESTAMP,
		PRIMARY KEY (accession, version)
	)`)
	if err != nil {
		return err
	}

	_, err = s.db.Exec(`CREATE TABLE IF NOT EXISTS batch_runs (
		batch_id VARCHAR,
		source_path VARCHAR,
		line_number BIGINT,
		variant VARCHAR,
		valid BOOLEAN,
		code VARCHAR,
		description VARCHAR,
		PRIMARY KEY (batch_id, line_number)
	)`)
	return err
}

// RecordAccessionResolution persists whether an accession lookup
// succeeded, so a subsequent run can skip re-resolving it.
func (s *Store) RecordAccessionResolution(accession, version string, resolved bool, resolveErr error) error {
	msg := ""
	if resolveErr != nil {
		msg = resolveErr.Error()
	}
	_, err := s.db.Exec(`INSERT OR REPLACE INTO accession_resolutions
		(accession, version, resolved, error, resolved_at) VALUES (?, ?, ?, ?, now())`,
		accession, version, resolved, msg)
	return err
}

// AccessionResolved reports whether accession/version was previously
// recorded as resolved, so refseq lookups can be skipped on rerun.
func (s *Store) AccessionResolved(accession, version string) (bool, error) {
	var resolved bool
	err := s.db.QueryRow(`SELECT resolved FROM accession_resolutions
		WHERE accession = ? AND version = ?`, accession, version).Scan(&resolved)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("store: query accession resolution: %w", err)
	}
	return resolved, nil
}

// GetAccessionResolution returns a previously recorded resolution
// outcome, if any. found is false when accession/version has never
// been recorded. Only the outcome (and, for failures, the error
// message) is cached here — not the resolved bases, which getGenBank
// still must fetch from refseq.Resolver on a cache hit for a
// successful resolution; a cache hit for a previously-failed
// resolution lets the caller skip hitting the resolver again.
func (s *Store) GetAccessionResolution(accession, version string) (resolved bool, errMsg string, found bool, err error) {
	err = s.db.QueryRow(`SELECT resolved, error FROM accession_resolutions
		WHERE accession = ? AND version = ?`, accession, version).Scan(&resolved, &errMsg)
	if err == sql.ErrNoRows {
		return false, "", false, nil
	}
	if err != nil {
		return false, "", false, fmt.Errorf("store: query accession resolution: %w", err)
	}
	return resolved, errMsg, true, nil
}

// BatchRunComplete reports whether batchID already has a recorded row
// for lineNumber, making a rerun over the same input file idempotent.
func (s *Store) BatchRunComplete(batchID string, lineNumber int64) (bool, error) {
	var count int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM batch_runs
		WHERE batch_id = ? AND line_number = ?`, batchID, lineNumber).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("store: query batch run: %w", err)
	}
	return count > 0, nil
}

// RecordBatchRow persists one batchCheck result row.
func (s *Store) RecordBatchRow(batchID, sourcePath string, lineNumber int64, variant string, valid bool, code, description string) error {
	_, err := s.db.Exec(`INSERT OR REPLACE INTO batch_runs
		(batch_id, source_path, line_number, variant, valid, code, description)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		batchID, sourcePath, lineNumber, variant, valid, code, description)
	return err
}

// GetBatchRow retrieves a previously recorded batchCheck row, so a
// rerun over the same batchID/lineNumber can skip re-running
// hgvs.CheckSyntax and return the recorded outcome instead.
func (s *Store) GetBatchRow(batchID string, lineNumber int64) (variant string, valid bool, code, description string, err error) {
	err = s.db.QueryRow(`SELECT variant, valid, code, description FROM batch_runs
		WHERE batch_id = ? AND line_number = ?`, batchID, lineNumber).Scan(&variant, &valid, &code, &description)
	if err != nil {
		return "", false, "", "", fmt.Errorf("store: query batch row: %w", err)
	}
	return variant, valid, code, description, nil
}
