package registry

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	_ "modernc.org/sqlite" // Pure Go SQLite driver
)

// SQLiteStore persists deployment records to SQLite.
// It is suitable for single-process production use.
type SQLiteStore struct {
	db     *sql.DB
	mu     sync.RWMutex
	closed bool
}

// NewSQLiteStore creates a new SQLite registry.
// The path should be a file path (e.g., "./deployments.db") or ":memory:" for testing.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// Enable WAL mode for better concurrent read performance
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable WAL mode: %w", err)
	}

	if _, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS deployments (
			id TEXT PRIMARY KEY,
			flow_name TEXT NOT NULL,
			name TEXT NOT NULL,
			work_pool TEXT NOT NULL,
			schedule_cron TEXT NOT NULL,
			tags TEXT NOT NULL,
			source_file TEXT NOT NULL,
			output_file TEXT NOT NULL,
			paused INTEGER NOT NULL,
			created_at TEXT NOT NULL
		)
	`); err != nil {
		db.Close()
		return nil, fmt.Errorf("create table: %w", err)
	}

	if _, err := db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_deployments_flow_name
		ON deployments(flow_name)
	`); err != nil {
		db.Close()
		return nil, fmt.Errorf("create index: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// Save implements Store.
func (s *SQLiteStore) Save(d Deployment) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrStoreClosed
	}

	tags, err := json.Marshal(d.Tags)
	if err != nil {
		return fmt.Errorf("encode tags: %w", err)
	}

	_, err = s.db.Exec(`
		INSERT INTO deployments
			(id, flow_name, name, work_pool, schedule_cron, tags,
			 source_file, output_file, paused, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			flow_name = excluded.flow_name,
			name = excluded.name,
			work_pool = excluded.work_pool,
			schedule_cron = excluded.schedule_cron,
			tags = excluded.tags,
			source_file = excluded.source_file,
			output_file = excluded.output_file,
			paused = excluded.paused,
			created_at = excluded.created_at
	`, d.ID, d.FlowName, d.Name, d.WorkPool, d.ScheduleCron, string(tags),
		d.SourceFile, d.OutputFile, boolToInt(d.Paused),
		d.CreatedAt.UTC().Format(time.RFC3339Nano))

	if err != nil {
		return fmt.Errorf("save deployment: %w", err)
	}
	return nil
}

// Get implements Store.
func (s *SQLiteStore) Get(id string) (Deployment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return Deployment{}, ErrStoreClosed
	}

	row := s.db.QueryRow(`
		SELECT id, flow_name, name, work_pool, schedule_cron, tags,
		       source_file, output_file, paused, created_at
		FROM deployments
		WHERE id = ?
	`, id)

	d, err := scanDeployment(row)
	if err == sql.ErrNoRows {
		return Deployment{}, ErrNotFound
	}
	if err != nil {
		return Deployment{}, fmt.Errorf("load deployment: %w", err)
	}
	return d, nil
}

// List implements Store.
func (s *SQLiteStore) List(flowName string) ([]Deployment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, ErrStoreClosed
	}

	query := `
		SELECT id, flow_name, name, work_pool, schedule_cron, tags,
		       source_file, output_file, paused, created_at
		FROM deployments
	`
	args := []any{}
	if flowName != "" {
		query += " WHERE flow_name = ?"
		args = append(args, flowName)
	}
	query += " ORDER BY created_at DESC, id"

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("list deployments: %w", err)
	}
	defer rows.Close()

	out := []Deployment{}
	for rows.Next() {
		d, err := scanDeployment(rows)
		if err != nil {
			return nil, fmt.Errorf("scan deployment: %w", err)
		}
		out = append(out, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate deployments: %w", err)
	}
	return out, nil
}

// Delete implements Store.
func (s *SQLiteStore) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrStoreClosed
	}

	if _, err := s.db.Exec(`DELETE FROM deployments WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete deployment: %w", err)
	}
	return nil
}

// Close implements Store.
func (s *SQLiteStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}

	s.closed = true
	return s.db.Close()
}

// scanner covers both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanDeployment(row scanner) (Deployment, error) {
	var d Deployment
	var tags, createdAt string
	var paused int
	if err := row.Scan(&d.ID, &d.FlowName, &d.Name, &d.WorkPool, &d.ScheduleCron,
		&tags, &d.SourceFile, &d.OutputFile, &paused, &createdAt); err != nil {
		return Deployment{}, err
	}
	if err := json.Unmarshal([]byte(tags), &d.Tags); err != nil {
		return Deployment{}, fmt.Errorf("decode tags: %w", err)
	}
	d.Paused = paused != 0
	d.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt)
	return d, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
