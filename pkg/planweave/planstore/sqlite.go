package planstore

import (
	"database/sql"
	"fmt"
	"sync"
	"time"

	_ "modernc.org/sqlite" // Pure Go SQLite driver
)

// SQLiteStore persists plans to SQLite.
// It is suitable for single-process production use.
type SQLiteStore struct {
	db     *sql.DB
	mu     sync.RWMutex
	closed bool
}

// NewSQLiteStore creates a SQLite plan store.
// The path should be a file path (e.g., "./plans.db") or ":memory:" for testing.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// WAL mode for better concurrent read performance
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable WAL mode: %w", err)
	}

	if _, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS plans (
			workflow TEXT NOT NULL,
			plan_id TEXT NOT NULL,
			created TEXT NOT NULL,
			doc BLOB NOT NULL,
			PRIMARY KEY (workflow, plan_id)
		)
	`); err != nil {
		db.Close()
		return nil, fmt.Errorf("create table: %w", err)
	}

	if _, err := db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_plans_workflow
		ON plans(workflow, created)
	`); err != nil {
		db.Close()
		return nil, fmt.Errorf("create index: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// Save implements Store.
func (s *SQLiteStore) Save(workflow, planID string, doc []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrStoreClosed
	}

	_, err := s.db.Exec(`
		INSERT INTO plans (workflow, plan_id, created, doc)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(workflow, plan_id) DO UPDATE SET
			created = excluded.created,
			doc = excluded.doc
	`, workflow, planID, time.Now().UTC().Format(time.RFC3339Nano), doc)

	if err != nil {
		return fmt.Errorf("save plan: %w", err)
	}
	return nil
}

// Load implements Store.
func (s *SQLiteStore) Load(workflow, planID string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, ErrStoreClosed
	}

	var doc []byte
	err := s.db.QueryRow(`
		SELECT doc FROM plans
		WHERE workflow = ? AND plan_id = ?
	`, workflow, planID).Scan(&doc)

	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load plan: %w", err)
	}
	return doc, nil
}

// Latest implements Store.
func (s *SQLiteStore) Latest(workflow string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, ErrStoreClosed
	}

	var doc []byte
	err := s.db.QueryRow(`
		SELECT doc FROM plans
		WHERE workflow = ?
		ORDER BY created DESC, plan_id DESC
		LIMIT 1
	`, workflow).Scan(&doc)

	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load latest plan: %w", err)
	}
	return doc, nil
}

// List implements Store.
func (s *SQLiteStore) List(workflow string) ([]Info, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, ErrStoreClosed
	}

	rows, err := s.db.Query(`
		SELECT plan_id, created, LENGTH(doc)
		FROM plans
		WHERE workflow = ?
		ORDER BY created, plan_id
	`, workflow)
	if err != nil {
		return nil, fmt.Errorf("list plans: %w", err)
	}
	defer rows.Close()

	var infos []Info
	for rows.Next() {
		var info Info
		var created string
		if err := rows.Scan(&info.PlanID, &created, &info.Size); err != nil {
			return nil, fmt.Errorf("scan plan info: %w", err)
		}
		info.Workflow = workflow
		info.Created, _ = time.Parse(time.RFC3339Nano, created)
		infos = append(infos, info)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate plans: %w", err)
	}
	return infos, nil
}

// Delete implements Store.
func (s *SQLiteStore) Delete(workflow, planID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrStoreClosed
	}

	_, err := s.db.Exec(`
		DELETE FROM plans
		WHERE workflow = ? AND plan_id = ?
	`, workflow, planID)
	if err != nil {
		return fmt.Errorf("delete plan: %w", err)
	}
	return nil
}

// DeleteWorkflow implements Store.
func (s *SQLiteStore) DeleteWorkflow(workflow string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrStoreClosed
	}

	_, err := s.db.Exec(`
		DELETE FROM plans WHERE workflow = ?
	`, workflow)
	if err != nil {
		return fmt.Errorf("delete workflow plans: %w", err)
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
