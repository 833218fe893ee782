// Package audit provides PDR (Process Decision Record) writing for fabrik.
package audit

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"

	"github.com/fentz26/fabrik/internal/models"
	"github.com/fentz26/fabrik/internal/store"
)

// Lifecycle actions recorded by the driver and the control plane.
const (
	ActionWorkflowStart   = "workflow.start"
	ActionProductComplete = "product.complete"
	ActionWorkflowReset   = "workflow.reset"
	ActionWorkflowPause   = "workflow.pause"
	ActionWorkflowResume  = "workflow.resume"
	ActionPlanSave        = "plan.save"
)

// PDRWriter writes Process Decision Records for audit trails.
type PDRWriter struct {
	store *store.Store
}

// NewPDRWriter creates a new PDR writer.
func NewPDRWriter(s *store.Store) *PDRWriter {
	return &PDRWriter{store: s}
}

// Record writes a PDR entry for a lifecycle decision.
func (w *PDRWriter) Record(action string, inputs interface{}, outcome, runID, details string) (*models.PDREntry, error) {
	return w.store.WritePDR(action, HashInputs(inputs), outcome, runID, details)
}

// HashInputs creates a SHA256 hash of the inputs for reproducibility.
func HashInputs(inputs interface{}) string {
	data, err := json.Marshal(inputs)
	if err != nil {
		return "hash_error"
	}
	hash := sha256.Sum256(data)
	return hex.EncodeToString(hash[:])
}
