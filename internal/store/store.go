// Package store provides SQLite-backed persistence for fabrik.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/fentz26/fabrik/internal/models"
)

// Store provides access to the fabrik SQLite database.
type Store struct {
	db *sql.DB
}

// New creates a new Store and runs migrations.
func New(dbPath string) (*Store, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_journal_mode=WAL&_busy_timeout=5000&_synchronous=NORMAL")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	// SQLite only supports one writer at a time
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping checks the database connection is alive.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// migrate runs idempotent schema migrations.
func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS production_totals (
		plan TEXT PRIMARY KEY,
		completed INTEGER NOT NULL DEFAULT 0,
		cost REAL NOT NULL DEFAULT 0,
		profit REAL NOT NULL DEFAULT 0,
		updated_at DATETIME NOT NULL
	);

	CREATE TABLE IF NOT EXISTS plans (
		name TEXT PRIMARY KEY,
		format TEXT NOT NULL,
		body TEXT NOT NULL,
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL
	);

	CREATE TABLE IF NOT EXISTS pdr (
		id TEXT PRIMARY KEY,
		action TEXT NOT NULL,
		inputs_hash TEXT NOT NULL,
		outcome TEXT NOT NULL,
		run_id TEXT,
		details TEXT,
		timestamp DATETIME NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_pdr_timestamp ON pdr(timestamp);
	`

	_, err := s.db.Exec(schema)
	return err
}

// --- Totals Operations ---

// RecordCompletion adds one finished product to the plan's totals and
// returns the updated row.
func (s *Store) RecordCompletion(plan string, cost, profit float64) (*models.ProductionTotals, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	now := time.Now().UTC()
	_, err = tx.Exec(
		`INSERT INTO production_totals (plan, completed, cost, profit, updated_at) VALUES (?, 1, ?, ?, ?)
		 ON CONFLICT(plan) DO UPDATE SET
			completed = completed + 1,
			cost = cost + excluded.cost,
			profit = profit + excluded.profit,
			updated_at = excluded.updated_at`,
		plan, cost, profit, now,
	)
	if err != nil {
		return nil, fmt.Errorf("upsert totals: %w", err)
	}

	totals := &models.ProductionTotals{}
	err = tx.QueryRow(
		`SELECT plan, completed, cost, profit, updated_at FROM production_totals WHERE plan = ?`,
		plan,
	).Scan(&totals.Plan, &totals.Completed, &totals.Cost, &totals.Profit, &totals.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("query totals: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit transaction: %w", err)
	}
	return totals, nil
}

// GetTotals retrieves the totals for a plan. It returns nil when the plan
// has never finished a product.
func (s *Store) GetTotals(plan string) (*models.ProductionTotals, error) {
	totals := &models.ProductionTotals{}
	err := s.db.QueryRow(
		`SELECT plan, completed, cost, profit, updated_at FROM production_totals WHERE plan = ?`,
		plan,
	).Scan(&totals.Plan, &totals.Completed, &totals.Cost, &totals.Profit, &totals.UpdatedAt)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query totals: %w", err)
	}
	return totals, nil
}

// ListTotals returns the totals of every plan, by plan name.
func (s *Store) ListTotals() ([]models.ProductionTotals, error) {
	rows, err := s.db.Query(`SELECT plan, completed, cost, profit, updated_at FROM production_totals ORDER BY plan`)
	if err != nil {
		return nil, fmt.Errorf("query totals: %w", err)
	}
	defer rows.Close()

	var out []models.ProductionTotals
	for rows.Next() {
		var t models.ProductionTotals
		if err := rows.Scan(&t.Plan, &t.Completed, &t.Cost, &t.Profit, &t.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan totals: %w", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// --- Plan Operations ---

// SavePlan inserts or replaces a stored plan, keeping its creation time.
func (s *Store) SavePlan(name, format, body string) (*models.StoredPlan, error) {
	now := time.Now().UTC()
	_, err := s.db.Exec(
		`INSERT INTO plans (name, format, body, created_at, updated_at) VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(name) DO UPDATE SET
			format = excluded.format,
			body = excluded.body,
			updated_at = excluded.updated_at`,
		name, format, body, now, now,
	)
	if err != nil {
		return nil, fmt.Errorf("upsert plan: %w", err)
	}
	return s.GetPlan(name)
}

// GetPlan retrieves a stored plan by name. It returns nil when absent.
func (s *Store) GetPlan(name string) (*models.StoredPlan, error) {
	p := &models.StoredPlan{}
	err := s.db.QueryRow(
		`SELECT name, format, body, created_at, updated_at FROM plans WHERE name = ?`,
		name,
	).Scan(&p.Name, &p.Format, &p.Body, &p.CreatedAt, &p.UpdatedAt)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query plan: %w", err)
	}
	return p, nil
}

// ListPlans returns every stored plan, most recently updated first.
func (s *Store) ListPlans() ([]models.StoredPlan, error) {
	rows, err := s.db.Query(`SELECT name, format, body, created_at, updated_at FROM plans ORDER BY updated_at DESC, name`)
	if err != nil {
		return nil, fmt.Errorf("query plans: %w", err)
	}
	defer rows.Close()

	var out []models.StoredPlan
	for rows.Next() {
		var p models.StoredPlan
		if err := rows.Scan(&p.Name, &p.Format, &p.Body, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan plan: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// --- PDR Operations ---

// WritePDR writes a Process Decision Record.
func (s *Store) WritePDR(action, inputsHash, outcome, runID, details string) (*models.PDREntry, error) {
	pdr := &models.PDREntry{
		ID:         uuid.New().String(),
		Action:     action,
		InputsHash: inputsHash,
		Outcome:    outcome,
		RunID:      runID,
		Details:    details,
		Timestamp:  time.Now().UTC(),
	}

	_, err := s.db.Exec(
		`INSERT INTO pdr (id, action, inputs_hash, outcome, run_id, details, timestamp) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		pdr.ID, pdr.Action, pdr.InputsHash, pdr.Outcome, pdr.RunID, pdr.Details, pdr.Timestamp,
	)
	if err != nil {
		return nil, fmt.Errorf("insert pdr: %w", err)
	}
	return pdr, nil
}

// ListPDR returns up to limit audit entries, newest first. A limit of zero or
// less returns the 50 most recent.
func (s *Store) ListPDR(limit int) ([]models.PDREntry, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.Query(
		`SELECT id, action, inputs_hash, outcome, run_id, details, timestamp FROM pdr ORDER BY timestamp DESC, rowid DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query pdr: %w", err)
	}
	defer rows.Close()

	var out []models.PDREntry
	for rows.Next() {
		var e models.PDREntry
		var runID, details sql.NullString
		if err := rows.Scan(&e.ID, &e.Action, &e.InputsHash, &e.Outcome, &runID, &details, &e.Timestamp); err != nil {
			return nil, fmt.Errorf("scan pdr: %w", err)
		}
		if runID.Valid {
			e.RunID = runID.String
		}
		if details.Valid {
			e.Details = details.String
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
