// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package store persists retrieval run history in a local SQLite database.
// Each recorded run keeps the query, the plan diagnostics, and the final
// paper selection so past retrievals can be listed and inspected offline.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/pdiddy/paperscout/pkg/types"
)

const dbFile = "runs.db"

// Store manages the run history SQLite database.
type Store struct {
	db *sql.DB
}

// RunRecord is one completed retrieval run to be persisted.
type RunRecord struct {
	CreatedAt     time.Time
	Query         string
	Categories    []string
	Keywords      []string
	FetchSource   string
	Backend       string
	Model         string
	TotalFetched  int
	FilteredCount int
	SelectedCount int
	Metadata      string // JSON blob of the full run metadata
	Papers        []types.Paper
}

// RunSummary is one row of the run listing.
type RunSummary struct {
	ID            int64
	CreatedAt     time.Time
	Query         string
	FetchSource   string
	SelectedCount int
}

// RunDetail is a fully loaded run with its paper selection.
type RunDetail struct {
	RunSummary
	Categories    []string
	Keywords      []string
	Backend       string
	Model         string
	TotalFetched  int
	FilteredCount int
	Metadata      string
	Papers        []types.Paper
}

// Open opens or creates the run history database at dataDir/runs.db and
// creates the schema if it does not exist.
func Open(cfg types.StoreConfig) (*Store, error) {
	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	dbPath := filepath.Join(cfg.DataDir, dbFile)
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Store{db: db}
	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return s, nil
}

// Close releases the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) createSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS runs (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			created_at TEXT NOT NULL,
			query TEXT,
			categories TEXT,
			keywords TEXT,
			fetch_source TEXT,
			backend TEXT,
			model TEXT,
			total_fetched INTEGER,
			filtered_count INTEGER,
			selected_count INTEGER,
			metadata TEXT
		)`,
		`CREATE TABLE IF NOT EXISTS run_papers (
			run_id INTEGER NOT NULL REFERENCES runs(id),
			position INTEGER NOT NULL,
			paper_id TEXT,
			title TEXT,
			url TEXT,
			published TEXT,
			authors TEXT,
			score REAL,
			citation_count INTEGER,
			PRIMARY KEY (run_id, position)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_run_papers_run ON run_papers(run_id)`,
	}
	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("executing schema statement: %w", err)
		}
	}
	return nil
}

// RecordRun inserts a run and its paper selection in one transaction and
// returns the new run ID.
func (s *Store) RecordRun(ctx context.Context, rec RunRecord) (int64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	createdAt := rec.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	res, err := tx.ExecContext(ctx,
		`INSERT INTO runs (created_at, query, categories, keywords, fetch_source,
			backend, model, total_fetched, filtered_count, selected_count, metadata)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		createdAt.UTC().Format(time.RFC3339Nano), rec.Query,
		strings.Join(rec.Categories, ","), strings.Join(rec.Keywords, ","),
		rec.FetchSource, rec.Backend, rec.Model,
		rec.TotalFetched, rec.FilteredCount, rec.SelectedCount, rec.Metadata,
	)
	if err != nil {
		return 0, fmt.Errorf("inserting run: %w", err)
	}
	runID, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("reading run id: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO run_papers (run_id, position, paper_id, title, url, published, authors, score, citation_count)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return 0, fmt.Errorf("preparing insert: %w", err)
	}
	defer stmt.Close()

	for i, p := range rec.Papers {
		authorsJSON, _ := json.Marshal(p.Authors)
		var cites any
		if p.CitationCount != nil {
			cites = *p.CitationCount
		}
		_, err := stmt.ExecContext(ctx,
			runID, i, p.ID, p.Title, p.URL, p.Published,
			string(authorsJSON), p.SemanticScore, cites,
		)
		if err != nil {
			return 0, fmt.Errorf("inserting paper %d: %w", i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("committing run: %w", err)
	}
	return runID, nil
}

// ListRuns returns the most recent runs, newest first. A limit of zero or
// less lists everything.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]RunSummary, error) {
	query := `SELECT id, created_at, query, fetch_source, selected_count
		FROM runs ORDER BY id DESC`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing runs: %w", err)
	}
	defer rows.Close()

	var out []RunSummary
	for rows.Next() {
		var r RunSummary
		var createdAt string
		if err := rows.Scan(&r.ID, &createdAt, &r.Query, &r.FetchSource, &r.SelectedCount); err != nil {
			return nil, fmt.Errorf("scanning run: %w", err)
		}
		r.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt)
		out = append(out, r)
	}
	return out, rows.Err()
}

// GetRun loads one run and its paper selection by ID.
func (s *Store) GetRun(ctx context.Context, id int64) (*RunDetail, error) {
	var d RunDetail
	var createdAt, categories, keywords string
	err := s.db.QueryRowContext(ctx,
		`SELECT id, created_at, query, categories, keywords, fetch_source,
			backend, model, total_fetched, filtered_count, selected_count, metadata
		 FROM runs WHERE id = ?`, id,
	).Scan(&d.ID, &createdAt, &d.Query, &categories, &keywords,
		&d.FetchSource, &d.Backend, &d.Model, &d.TotalFetched, &d.FilteredCount,
		&d.SelectedCount, &d.Metadata)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("run %d not found", id)
	}
	if err != nil {
		return nil, fmt.Errorf("loading run %d: %w", id, err)
	}
	d.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt)
	d.Categories = splitList(categories)
	d.Keywords = splitList(keywords)

	rows, err := s.db.QueryContext(ctx,
		`SELECT paper_id, title, url, published, authors, score, citation_count
		 FROM run_papers WHERE run_id = ? ORDER BY position`, id)
	if err != nil {
		return nil, fmt.Errorf("loading papers for run %d: %w", id, err)
	}
	defer rows.Close()

	for rows.Next() {
		var p types.Paper
		var authorsJSON string
		var cites sql.NullInt64
		if err := rows.Scan(&p.ID, &p.Title, &p.URL, &p.Published, &authorsJSON, &p.SemanticScore, &cites); err != nil {
			return nil, fmt.Errorf("scanning paper: %w", err)
		}
		json.Unmarshal([]byte(authorsJSON), &p.Authors)
		if cites.Valid {
			n := int(cites.Int64)
			p.CitationCount = &n
		}
		d.Papers = append(d.Papers, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return &d, nil
}

func splitList(s string) []string {
	if s == "" {
		return nil
	}
	return strings.Split(s, ",")
}
