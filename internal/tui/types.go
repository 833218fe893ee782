package tui

import (
	"time"

	"github.com/fentz26/fabrik/internal/engine"
	"github.com/fentz26/fabrik/internal/models"
)

// TotalsView mirrors the body of GET /totals.
type TotalsView struct {
	Plan      string                    `json:"plan"`
	Live      engine.Totals             `json:"live"`
	Persisted []models.ProductionTotals `json:"persisted"`
}

// HealthView mirrors the body of GET /health.
type HealthView struct {
	OK      bool   `json:"ok"`
	DB      string `json:"db"`
	Driver  string `json:"driver"`
	Version string `json:"version"`
}

// Messages

type statusLoadedMsg struct {
	snapshot engine.Snapshot
}

type totalsLoadedMsg struct {
	totals *TotalsView
}

type auditLoadedMsg struct {
	entries []models.PDREntry
}

type daemonStatusMsg struct {
	online bool
	driver string
}

type tickMsg time.Time

type commandResultMsg struct {
	message string
}

type errMsg struct {
	err error
}
