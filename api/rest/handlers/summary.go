package handlers

import (
	"encoding/json"
	"net/http"

	"pbs-orchestrator/core/monitoring"
	"pbs-orchestrator/core/repository"
)

// SummaryHandler handles cluster-wide status requests
type SummaryHandler struct {
	jobRepo      *repository.JobRepository
	usageTracker *monitoring.UsageTracker
}

// NewSummaryHandler creates a new summary handler
func NewSummaryHandler(jobRepo *repository.JobRepository, usageTracker *monitoring.UsageTracker) *SummaryHandler {
	return &SummaryHandler{
		jobRepo:      jobRepo,
		usageTracker: usageTracker,
	}
}

// GetSummary handles GET /v1/summary
func (h *SummaryHandler) GetSummary(w http.ResponseWriter, r *http.Request) {
	counts, err := h.jobRepo.CountByStatus()
	if err != nil {
		http.Error(w, "Failed to count runs: "+err.Error(), http.StatusInternalServerError)
		return
	}

	byStatus := make(map[string]int, len(counts))
	for status, count := range counts {
		byStatus[string(status)] = count
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"runs_by_status":  byStatus,
		"tracked_running": h.usageTracker.RunningCount(),
	})
}
