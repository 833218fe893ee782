// Package controlplane provides the HTTP API and service layer for fabrik.
package controlplane

import (
	"errors"
	"fmt"

	"github.com/fentz26/fabrik/internal/audit"
	"github.com/fentz26/fabrik/internal/engine"
	"github.com/fentz26/fabrik/internal/models"
	"github.com/fentz26/fabrik/internal/plan"
	"github.com/fentz26/fabrik/internal/scheduler"
	"github.com/fentz26/fabrik/internal/store"
)

// Service provides the control plane business logic.
type Service struct {
	driver *scheduler.Scheduler
	store  *store.Store
	pdr    *audit.PDRWriter
}

// NewService creates a new control plane service.
func NewService(driver *scheduler.Scheduler, s *store.Store, pdr *audit.PDRWriter) *Service {
	return &Service{
		driver: driver,
		store:  s,
		pdr:    pdr,
	}
}

// --- Workflow Operations ---

// Status returns a snapshot of the running workflow.
func (s *Service) Status() engine.Snapshot {
	return s.driver.Snapshot()
}

// Workers returns the worker part of the snapshot.
func (s *Service) Workers() []engine.WorkerSnapshot {
	return s.driver.Snapshot().Workers
}

// Stats returns driver statistics.
func (s *Service) Stats() map[string]interface{} {
	return s.driver.GetStats()
}

// TotalsResponse pairs the running workflow's counters with the persisted
// totals of every plan.
type TotalsResponse struct {
	Plan      string                    `json:"plan"`
	Live      engine.Totals             `json:"live"`
	Persisted []models.ProductionTotals `json:"persisted"`
}

// Totals returns live and persisted production totals.
func (s *Service) Totals() (*TotalsResponse, error) {
	snap := s.driver.Snapshot()
	persisted, err := s.store.ListTotals()
	if err != nil {
		return nil, err
	}
	if persisted == nil {
		persisted = []models.ProductionTotals{}
	}
	return &TotalsResponse{Plan: snap.Plan, Live: snap.Totals, Persisted: persisted}, nil
}

// Pause suspends the tick driver.
func (s *Service) Pause() error {
	if err := s.driver.Pause(); err != nil {
		return driverError(err)
	}
	return nil
}

// Resume continues the tick driver.
func (s *Service) Resume() error {
	if err := s.driver.Resume(); err != nil {
		return driverError(err)
	}
	return nil
}

func driverError(err error) error {
	if errors.Is(err, scheduler.ErrStopped) {
		return fmt.Errorf("%w: %v", ErrDriverStopped, err)
	}
	return err
}

// --- Plan Operations ---

// CurrentPlan serializes the plan being driven.
func (s *Service) CurrentPlan(format string) ([]byte, plan.Format, error) {
	f, err := plan.ParseFormat(format)
	if err != nil {
		return nil, "", fmt.Errorf("%w: %v", ErrBadRequest, err)
	}
	data, err := plan.Encode(s.driver.Plan(), f)
	if err != nil {
		return nil, "", err
	}
	return data, f, nil
}

// SavePlan validates a serialized plan and stores it under its own name.
func (s *Service) SavePlan(body []byte, format string) (*models.StoredPlan, error) {
	f, err := plan.ParseFormat(format)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadRequest, err)
	}
	p, err := plan.Decode(body, f)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPlan, err)
	}

	stored, err := s.store.SavePlan(p.Name, string(f), string(body))
	if err != nil {
		return nil, err
	}
	s.pdr.Record(audit.ActionPlanSave, map[string]interface{}{
		"name":   p.Name,
		"format": f,
		"tasks":  len(p.Tasks),
	}, models.OutcomeSuccess, "", "")
	return stored, nil
}

// GetPlan retrieves a stored plan by name.
func (s *Service) GetPlan(name string) (*models.StoredPlan, error) {
	p, err := s.store.GetPlan(name)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, fmt.Errorf("%w: plan %s", ErrNotFound, name)
	}
	return p, nil
}

// ListPlans returns every stored plan.
func (s *Service) ListPlans() ([]models.StoredPlan, error) {
	return s.store.ListPlans()
}

// --- Audit Operations ---

// Audit returns the most recent audit entries.
func (s *Service) Audit(limit int) ([]models.PDREntry, error) {
	return s.store.ListPDR(limit)
}
