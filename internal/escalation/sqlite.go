package escalation

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"

	"accord/internal/logging"
)

// SQLiteStore persists escalations in a local SQLite database. The full
// record is stored as JSON; status, priority and creation time are
// mirrored into columns so listing does not deserialize every row.
type SQLiteStore struct {
	db   *sql.DB
	path string
}

// NewSQLiteStore opens (or creates) the database at the given path.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	timer := logging.StartTimer(logging.CategoryStore, "NewSQLiteStore")
	defer timer.Stop()

	logging.Store("Opening escalation store at %s", path)

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		logging.Get(logging.CategoryStore).Error("Failed to open database at %s: %v", path, err)
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store := &SQLiteStore{db: db, path: path}
	if err := store.ensureSchema(); err != nil {
		db.Close()
		return nil, err
	}
	return store, nil
}

func (s *SQLiteStore) ensureSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS escalations (
		id TEXT PRIMARY KEY,
		status TEXT NOT NULL,
		priority TEXT NOT NULL,
		created_at TIMESTAMP NOT NULL,
		record TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_escalations_status ON escalations(status);
	`
	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("failed to create escalations table: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Create(esc *Escalation) error {
	record, err := json.Marshal(esc)
	if err != nil {
		return fmt.Errorf("failed to serialize escalation: %w", err)
	}
	_, err = s.db.Exec(
		`INSERT INTO escalations (id, status, priority, created_at, record) VALUES (?, ?, ?, ?, ?)`,
		esc.ID, string(esc.Status), string(esc.Priority), esc.CreatedAt, string(record),
	)
	if err != nil {
		return fmt.Errorf("failed to insert escalation %s: %w", esc.ID, err)
	}
	logging.StoreDebug("Created escalation %s priority=%s", esc.ID, esc.Priority)
	return nil
}

func (s *SQLiteStore) Get(id string) (*Escalation, error) {
	var record string
	err := s.db.QueryRow(`SELECT record FROM escalations WHERE id = ?`, id).Scan(&record)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("escalation %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load escalation %s: %w", id, err)
	}
	var esc Escalation
	if err := json.Unmarshal([]byte(record), &esc); err != nil {
		return nil, fmt.Errorf("failed to deserialize escalation %s: %w", id, err)
	}
	return &esc, nil
}

func (s *SQLiteStore) Update(esc *Escalation) error {
	record, err := json.Marshal(esc)
	if err != nil {
		return fmt.Errorf("failed to serialize escalation: %w", err)
	}
	res, err := s.db.Exec(
		`UPDATE escalations SET status = ?, priority = ?, record = ? WHERE id = ?`,
		string(esc.Status), string(esc.Priority), string(record), esc.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update escalation %s: %w", esc.ID, err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return fmt.Errorf("escalation %s: %w", esc.ID, ErrNotFound)
	}
	logging.StoreDebug("Updated escalation %s status=%s", esc.ID, esc.Status)
	return nil
}

func (s *SQLiteStore) List(statuses ...Status) ([]*Escalation, error) {
	query := `SELECT record FROM escalations`
	var args []interface{}
	if len(statuses) > 0 {
		query += ` WHERE status IN (?` + repeatPlaceholder(len(statuses)-1) + `)`
		for _, st := range statuses {
			args = append(args, string(st))
		}
	}
	query += ` ORDER BY created_at DESC, id ASC`

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list escalations: %w", err)
	}
	defer rows.Close()

	var out []*Escalation
	for rows.Next() {
		var record string
		if err := rows.Scan(&record); err != nil {
			return nil, fmt.Errorf("failed to scan escalation row: %w", err)
		}
		var esc Escalation
		if err := json.Unmarshal([]byte(record), &esc); err != nil {
			return nil, fmt.Errorf("failed to deserialize escalation: %w", err)
		}
		out = append(out, &esc)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) Close() error {
	logging.StoreDebug("Closing escalation store at %s", s.path)
	return s.db.Close()
}

func repeatPlaceholder(n int) string {
	out := ""
	for i := 0; i < n; i++ {
		out += ", ?"
	}
	return out
}
