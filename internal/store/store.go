package store

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// Store keeps the login history in SQLite
type Store struct {
	db *sql.DB
}

// New creates a new Store with SQLite backend
func New(dbPath string) (*Store, error) {
	// Ensure directory exists
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, err
	}

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, err
	}

	return s, nil
}

// Close closes the database connection
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate creates the database schema
func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS login_attempts (
		id TEXT PRIMARY KEY,
		email TEXT NOT NULL,
		device TEXT NOT NULL,
		outcome TEXT NOT NULL,
		succeeded BOOLEAN NOT NULL,
		challenge TEXT,
		error TEXT,
		recovered TEXT,
		secondary TEXT,
		cycles INTEGER,
		started_at DATETIME NOT NULL,
		finished_at DATETIME NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_attempts_started_at ON login_attempts(started_at);
	CREATE INDEX IF NOT EXISTS idx_attempts_account ON login_attempts(email, device);
	`

	_, err := s.db.Exec(schema)
	return err
}

// RecordAttempt inserts an attempt, assigning an ID when it has none
func (s *Store) RecordAttempt(ctx context.Context, a *Attempt) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO login_attempts (id, email, device, outcome, succeeded, challenge,
			error, recovered, secondary, cycles, started_at, finished_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, a.ID.String(), a.Email, a.Device, a.Outcome, a.Succeeded, a.Challenge,
		a.Error, a.Recovered, a.Secondary, a.Cycles, a.StartedAt.UTC(), a.FinishedAt.UTC())

	return err
}

// RecentAttempts returns the newest attempts first. An empty email lists all accounts.
func (s *Store) RecentAttempts(ctx context.Context, email string, limit int) ([]Attempt, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, email, device, outcome, succeeded, challenge, error, recovered,
			secondary, cycles, started_at, finished_at
		FROM login_attempts
		WHERE ? = '' OR email = ? COLLATE NOCASE
		ORDER BY started_at DESC
		LIMIT ?
	`, email, email, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanAttempts(rows)
}

// LastSuccess returns the most recent successful attempt for email on device
func (s *Store) LastSuccess(ctx context.Context, email, device string) (Attempt, bool, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, email, device, outcome, succeeded, challenge, error, recovered,
			secondary, cycles, started_at, finished_at
		FROM login_attempts
		WHERE email = ? COLLATE NOCASE AND device = ? AND succeeded
		ORDER BY started_at DESC
		LIMIT 1
	`, email, device)
	if err != nil {
		return Attempt{}, false, err
	}
	defer rows.Close()

	attempts, err := scanAttempts(rows)
	if err != nil || len(attempts) == 0 {
		return Attempt{}, false, err
	}
	return attempts[0], true, nil
}

func scanAttempts(rows *sql.Rows) ([]Attempt, error) {
	var attempts []Attempt
	for rows.Next() {
		var a Attempt
		var id string
		var challenge, errText, recovered, secondary sql.NullString
		var cycles sql.NullInt64

		err := rows.Scan(
			&id, &a.Email, &a.Device, &a.Outcome, &a.Succeeded, &challenge, &errText, &recovered,
			&secondary, &cycles, &a.StartedAt, &a.FinishedAt,
		)
		if err != nil {
			return nil, err
		}

		if a.ID, err = uuid.Parse(id); err != nil {
			return nil, errors.Join(errors.New("corrupt attempt id"), err)
		}
		a.Challenge = challenge.String
		a.Error = errText.String
		a.Recovered = recovered.String
		a.Secondary = secondary.String
		a.Cycles = int(cycles.Int64)

		attempts = append(attempts, a)
	}
	return attempts, rows.Err()
}
