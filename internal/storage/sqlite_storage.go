package storage

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	_ "modernc.org/sqlite"
)

const ddlAnalyses = `CREATE TABLE IF NOT EXISTS analyses (
	id          TEXT PRIMARY KEY,
	created_at  DATETIME NOT NULL,
	source      TEXT NOT NULL DEFAULT '',
	group_by    TEXT NOT NULL DEFAULT '',
	ngram       INTEGER NOT NULL DEFAULT 1,
	documents   INTEGER NOT NULL DEFAULT 0,
	degenerate  INTEGER NOT NULL DEFAULT 0,
	table_json  TEXT NOT NULL
)`

// SQLiteStorage implements AnalysisStorage on a single SQLite file.
// Driver name is "sqlite" (modernc.org/sqlite, no cgo).
type SQLiteStorage struct {
	db *sql.DB
}

// NewSQLiteStorage opens path with WAL enabled and creates the schema
func NewSQLiteStorage(path string) (*SQLiteStorage, error) {
	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("storage.NewSQLiteStorage: open: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("storage.NewSQLiteStorage: ping: %w", err)
	}
	// one writer at a time avoids SQLITE_BUSY
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(ddlAnalyses); err != nil {
		db.Close()
		return nil, fmt.Errorf("storage.NewSQLiteStorage: migrate: %w", err)
	}
	return &SQLiteStorage{db: db}, nil
}

func (s *SQLiteStorage) Save(analysis *Analysis) error {
	if !validID(analysis.ID) {
		return fmt.Errorf("invalid analysis id %q", analysis.ID)
	}
	data, err := json.Marshal(analysis.Table)
	if err != nil {
		return fmt.Errorf("failed to marshal table: %w", err)
	}
	summary := analysis.Summary()

	_, err = s.db.Exec(`INSERT OR REPLACE INTO analyses
		(id, created_at, source, group_by, ngram, documents, degenerate, table_json)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		analysis.ID, analysis.CreatedAt.UTC(), analysis.Source, analysis.GroupBy, analysis.NGram,
		summary.Documents, summary.Degenerate, string(data))
	if err != nil {
		return fmt.Errorf("storage.Save: %w", err)
	}
	return nil
}

func (s *SQLiteStorage) Get(id string) (*Analysis, error) {
	var (
		analysis Analysis
		data     string
	)
	row := s.db.QueryRow(`SELECT id, created_at, source, group_by, ngram, table_json
		FROM analyses WHERE id = ?`, id)
	err := row.Scan(&analysis.ID, &analysis.CreatedAt, &analysis.Source, &analysis.GroupBy, &analysis.NGram, &data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("storage.Get: %w", err)
	}
	if err := json.Unmarshal([]byte(data), &analysis.Table); err != nil {
		return nil, fmt.Errorf("failed to unmarshal table: %w", err)
	}
	return &analysis, nil
}

func (s *SQLiteStorage) List() ([]Summary, error) {
	rows, err := s.db.Query(`SELECT id, created_at, source, group_by, documents, degenerate
		FROM analyses ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("storage.List: %w", err)
	}
	defer rows.Close()

	var summaries []Summary
	for rows.Next() {
		var summary Summary
		if err := rows.Scan(&summary.ID, &summary.CreatedAt, &summary.Source, &summary.GroupBy,
			&summary.Documents, &summary.Degenerate); err != nil {
			return nil, fmt.Errorf("storage.List: scan: %w", err)
		}
		summaries = append(summaries, summary)
	}
	return summaries, rows.Err()
}

func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}
