package handler

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/ParloAI/parlo-call-service/internal/repository"
	"github.com/gorilla/mux"
)

// HealthHandler reports service liveness and dependency health
type HealthHandler struct {
	repos repository.RepositoryManager
}

// NewHealthHandler creates a health handler
func NewHealthHandler(repos repository.RepositoryManager) *HealthHandler {
	return &HealthHandler{repos: repos}
}

// SetupHealthRoutes registers the health endpoints
func (h *HealthHandler) SetupHealthRoutes(router *mux.Router) {
	router.HandleFunc("/health", h.HandleHealth).Methods("GET")
	router.HandleFunc("/health/ready", h.HandleReady).Methods("GET")
}

// HandleHealth is the liveness probe: the process is up.
func (h *HealthHandler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{
		"status": "ok",
		"time":   time.Now().UTC().Format(time.RFC3339),
	})
}

// HandleReady is the readiness probe: the database must answer a ping.
func (h *HealthHandler) HandleReady(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	if err := h.repos.Ping(r.Context()); err != nil {
		w.WriteHeader(http.StatusServiceUnavailable)
		json.NewEncoder(w).Encode(map[string]string{
			"status": "unavailable",
			"error":  err.Error(),
		})
		return
	}

	json.NewEncoder(w).Encode(map[string]string{"status": "ready"})
}
