package controlplane

import (
	"context"
	"encoding/json"
	"io"
	"log"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/fentz26/fabrik/internal/models"
	"github.com/fentz26/fabrik/internal/plan"
	"github.com/fentz26/fabrik/internal/store"
)

// Version is reported by the health endpoint. The CLI overrides it at build
// time.
var Version = "dev"

// maxPlanBody bounds uploaded plan documents.
const maxPlanBody = 1 << 20

// Server provides the HTTP API for fabrik.
type Server struct {
	service *Service
	store   *store.Store
	addr    string
	server  *http.Server
}

// NewServer creates a new HTTP server.
func NewServer(service *Service, st *store.Store, addr string) *Server {
	return &Server{
		service: service,
		store:   st,
		addr:    addr,
	}
}

// Handler returns the routed API.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	// Workflow endpoints
	mux.HandleFunc("/status", s.handleStatus)
	mux.HandleFunc("/workers", s.handleWorkers)
	mux.HandleFunc("/totals", s.handleTotals)
	mux.HandleFunc("/pause", s.handlePause)
	mux.HandleFunc("/resume", s.handleResume)

	// Plan endpoints
	mux.HandleFunc("/plan", s.handlePlan)
	mux.HandleFunc("/plans", s.handlePlans)
	mux.HandleFunc("/plans/", s.handlePlanByName)

	// Audit trail
	mux.HandleFunc("/audit", s.handleAudit)

	// Health check
	mux.HandleFunc("/health", s.handleHealth)

	return mux
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	s.server = &http.Server{
		Addr:         s.addr,
		Handler:      s.Handler(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	log.Printf("Starting fabrik daemon on %s", s.addr)
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	OK      bool   `json:"ok"`
	DB      string `json:"db"`
	Driver  string `json:"driver"`
	Version string `json:"version"`
	Time    string `json:"time"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	health := HealthResponse{
		OK:      true,
		DB:      "ok",
		Driver:  "running",
		Version: Version,
		Time:    time.Now().UTC().Format(time.RFC3339),
	}

	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()
	if err := s.store.Ping(ctx); err != nil {
		health.OK = false
		health.DB = err.Error()
	}

	stats := s.service.Stats()
	switch {
	case stats["error"] != nil:
		health.OK = false
		health.Driver = "failed: " + stats["error"].(string)
	case stats["stopped"] == true:
		health.Driver = "stopped"
	case stats["paused"] == true:
		health.Driver = "paused"
	}

	status := http.StatusOK
	if !health.OK {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, health)
}

// --- Workflow Handlers ---

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, http.StatusOK, s.service.Status())
}

func (s *Server) handleWorkers(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, http.StatusOK, s.service.Workers())
}

func (s *Server) handleTotals(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	totals, err := s.service.Totals()
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, totals)
}

func (s *Server) handlePause(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if err := s.service.Pause(); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "paused"})
}

func (s *Server) handleResume(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if err := s.service.Resume(); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "running"})
}

// --- Plan Handlers ---

// handlePlan handles GET /plan?format=yaml|json|toml
func (s *Server) handlePlan(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	data, format, err := s.service.CurrentPlan(r.URL.Query().Get("format"))
	if err != nil {
		writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", contentType(format))
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}

// handlePlans handles POST /plans and GET /plans
func (s *Server) handlePlans(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		s.savePlan(w, r)
	case http.MethodGet:
		s.listPlans(w, r)
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func (s *Server) savePlan(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxPlanBody))
	if err != nil {
		http.Error(w, "failed to read body", http.StatusBadRequest)
		return
	}
	stored, err := s.service.SavePlan(body, r.URL.Query().Get("format"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, stored)
}

func (s *Server) listPlans(w http.ResponseWriter, r *http.Request) {
	plans, err := s.service.ListPlans()
	if err != nil {
		writeError(w, err)
		return
	}
	if plans == nil {
		plans = []models.StoredPlan{}
	}
	writeJSON(w, http.StatusOK, plans)
}

// handlePlanByName handles GET /plans/{name}
func (s *Server) handlePlanByName(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	name := strings.TrimPrefix(r.URL.Path, "/plans/")
	if name == "" {
		http.Error(w, "plan name required", http.StatusBadRequest)
		return
	}
	stored, err := s.service.GetPlan(name)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stored)
}

// --- Audit Handlers ---

// handleAudit handles GET /audit?limit=N
func (s *Server) handleAudit(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			http.Error(w, "invalid limit", http.StatusBadRequest)
			return
		}
		limit = n
	}
	entries, err := s.service.Audit(limit)
	if err != nil {
		writeError(w, err)
		return
	}
	if entries == nil {
		entries = []models.PDREntry{}
	}
	writeJSON(w, http.StatusOK, entries)
}

func contentType(f plan.Format) string {
	switch f {
	case plan.FormatJSON:
		return "application/json"
	case plan.FormatTOML:
		return "application/toml"
	default:
		return "application/yaml"
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

func writeError(w http.ResponseWriter, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		slog.Error("request failed", "error", err)
	}
	http.Error(w, err.Error(), status)
}
