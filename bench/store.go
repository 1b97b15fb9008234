package bench

import (
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

// Run is one persisted benchmark result.
type Run struct {
	ID         string    `json:"id"`
	TaskID     string    `json:"task_id"`
	Category   string    `json:"category"`
	Model      string    `json:"model"`
	Passed     bool      `json:"passed"`
	Reason     string    `json:"reason"`
	Turns      int       `json:"turns"`
	ToolCalls  int       `json:"tool_calls"`
	Tokens     int       `json:"tokens"`
	Cost       float64   `json:"cost"`
	DurationMS int64     `json:"duration_ms"`
	Artifact   string    `json:"artifact,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

// CategorySummary aggregates pass rates per category.
type CategorySummary struct {
	Category string  `json:"category"`
	Passed   int     `json:"passed"`
	Total    int     `json:"total"`
	PassRate float64 `json:"pass_rate"`
}

// Store persists benchmark runs in SQLite.
type Store struct {
	db *sql.DB
}

// NewStore opens (or creates) a SQLite database at the given path.
func NewStore(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// WAL mode for better concurrent read/write performance.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting WAL mode: %w", err)
	}

	if err := migrate(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return &Store{db: db}, nil
}

func migrate(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS runs (
			id          TEXT PRIMARY KEY,
			task_id     TEXT NOT NULL,
			category    TEXT NOT NULL,
			model       TEXT NOT NULL,
			passed      INTEGER NOT NULL DEFAULT 0,
			reason      TEXT NOT NULL DEFAULT '',
			turns       INTEGER NOT NULL DEFAULT 0,
			tool_calls  INTEGER NOT NULL DEFAULT 0,
			tokens      INTEGER NOT NULL DEFAULT 0,
			cost        REAL NOT NULL DEFAULT 0,
			duration_ms INTEGER NOT NULL DEFAULT 0,
			artifact    TEXT NOT NULL DEFAULT '',
			created_at  DATETIME NOT NULL DEFAULT (datetime('now'))
		);

		CREATE INDEX IF NOT EXISTS idx_runs_task_id ON runs(task_id);
		CREATE INDEX IF NOT EXISTS idx_runs_created_at ON runs(created_at);
	`)
	return err
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// SaveRun inserts one benchmark result.
func (s *Store) SaveRun(r *Run) error {
	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now().UTC()
	}
	_, err := s.db.Exec(
		`INSERT INTO runs (id, task_id, category, model, passed, reason,
			turns, tool_calls, tokens, cost, duration_ms, artifact, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID, r.TaskID, r.Category, r.Model, r.Passed, r.Reason,
		r.Turns, r.ToolCalls, r.Tokens, r.Cost, r.DurationMS, r.Artifact, r.CreatedAt,
	)
	return err
}

// RecentRuns returns up to limit runs, newest first.
func (s *Store) RecentRuns(limit int) ([]*Run, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.Query(
		`SELECT id, task_id, category, model, passed, reason,
			turns, tool_calls, tokens, cost, duration_ms, artifact, created_at
		 FROM runs ORDER BY created_at DESC LIMIT ?`, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []*Run
	for rows.Next() {
		var r Run
		if err := rows.Scan(&r.ID, &r.TaskID, &r.Category, &r.Model, &r.Passed,
			&r.Reason, &r.Turns, &r.ToolCalls, &r.Tokens, &r.Cost,
			&r.DurationMS, &r.Artifact, &r.CreatedAt); err != nil {
			return nil, err
		}
		runs = append(runs, &r)
	}
	return runs, rows.Err()
}

// Summary aggregates pass rates per category across all stored runs.
func (s *Store) Summary() ([]CategorySummary, error) {
	rows, err := s.db.Query(
		`SELECT category, SUM(passed), COUNT(*)
		 FROM runs GROUP BY category ORDER BY category`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var summaries []CategorySummary
	for rows.Next() {
		var cs CategorySummary
		if err := rows.Scan(&cs.Category, &cs.Passed, &cs.Total); err != nil {
			return nil, err
		}
		if cs.Total > 0 {
			cs.PassRate = float64(cs.Passed) / float64(cs.Total)
		}
		summaries = append(summaries, cs)
	}
	return summaries, rows.Err()
}
