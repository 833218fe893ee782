// Package models defines the persisted record types for fabrik.
package models

import "time"

// ProductionTotals aggregates every product a plan has finished.
type ProductionTotals struct {
	Plan      string    `json:"plan"`
	Completed uint64    `json:"completed"`
	Cost      float64   `json:"cost"`
	Profit    float64   `json:"profit"`
	UpdatedAt time.Time `json:"updated_at"`
}

// StoredPlan is an assignment plan saved in its original serialization.
type StoredPlan struct {
	Name      string    `json:"name"`
	Format    string    `json:"format"`
	Body      string    `json:"body"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Outcome values recorded on audit entries.
const (
	OutcomeSuccess = "success"
	OutcomeError   = "error"
)

// PDREntry represents a Process Decision Record for audit.
type PDREntry struct {
	ID         string    `json:"id"`
	Action     string    `json:"action"`
	InputsHash string    `json:"inputs_hash"`
	Outcome    string    `json:"outcome"`
	RunID      string    `json:"run_id,omitempty"`
	Details    string    `json:"details,omitempty"`
	Timestamp  time.Time `json:"timestamp"`
}
