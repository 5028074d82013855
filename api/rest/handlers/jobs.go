package handlers

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"pbs-orchestrator/core/models"
	"pbs-orchestrator/core/pbs"
	"pbs-orchestrator/core/repository"
	"pbs-orchestrator/core/scheduler"
	"pbs-orchestrator/core/spec"

	"github.com/fsnotify/fsnotify"
	"github.com/gorilla/mux"
)

// RunHandler handles run-related HTTP requests
type RunHandler struct {
	jobRepo      *repository.JobRepository
	eventRepo    *repository.EventRepository
	artifactRepo *repository.ArtifactRepository
	scheduler    *scheduler.Scheduler
	pbsClient    *pbs.Client
}

// NewRunHandler creates a new run handler
func NewRunHandler(
	jobRepo *repository.JobRepository,
	eventRepo *repository.EventRepository,
	artifactRepo *repository.ArtifactRepository,
	sched *scheduler.Scheduler,
	pbsClient *pbs.Client,
) *RunHandler {
	return &RunHandler{
		jobRepo:      jobRepo,
		eventRepo:    eventRepo,
		artifactRepo: artifactRepo,
		scheduler:    sched,
		pbsClient:    pbsClient,
	}
}

// SubmitRunRequest represents the request to submit a run
type SubmitRunRequest struct {
	Owner    string `json:"owner"`
	SpecYAML string `json:"spec_yaml"`
}

// SubmitRunResponse represents the response after submitting a run
type SubmitRunResponse struct {
	ID        string    `json:"id"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
}

// SubmitRun handles POST /v1/runs
func (h *RunHandler) SubmitRun(w http.ResponseWriter, r *http.Request) {
	var req SubmitRunRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	// Parse YAML spec
	job, err := spec.ParseRunSpec(req.SpecYAML)
	if err != nil {
		http.Error(w, "Invalid run spec: "+err.Error(), http.StatusBadRequest)
		return
	}

	job.Owner = req.Owner
	if job.Owner == "" {
		job.Owner = "default-user"
	}

	// Create run in database
	if err := h.jobRepo.CreateJob(job); err != nil {
		http.Error(w, "Failed to create run: "+err.Error(), http.StatusInternalServerError)
		return
	}

	// Enqueue run for submission
	h.scheduler.Enqueue(job)

	resp := SubmitRunResponse{
		ID:        job.ID,
		Status:    string(job.Status),
		CreatedAt: job.CreatedAt,
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(resp)
}

// GetRun handles GET /v1/runs/{id}
func (h *RunHandler) GetRun(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	jobID := vars["id"]

	job, err := h.jobRepo.GetJob(jobID)
	if err != nil {
		http.Error(w, "Run not found", http.StatusNotFound)
		return
	}

	response := map[string]interface{}{
		"id":         job.ID,
		"name":       job.Name,
		"owner":      job.Owner,
		"status":     job.Status,
		"payload":    job.Payload,
		"pbs_job_id": job.PBSJobID,
		"run_dir":    job.RunDir,
		"log_path":   job.LogPath,
		"resources": map[string]interface{}{
			"walltime": models.FormatWalltime(job.Resources.Walltime),
			"memory":   job.Resources.Memory,
			"ncpus":    job.Resources.NCPUs,
			"queue":    job.Resources.Queue,
			"jobfs":    job.Resources.JobFS,
			"wd":       job.Resources.WorkdirAtSubmit,
		},
		"timestamps": map[string]interface{}{
			"created_at":   job.CreatedAt,
			"submitted_at": job.SubmittedAt,
			"started_at":   job.StartedAt,
			"finished_at":  job.CompletedAt,
		},
	}

	if job.ExitCode != nil {
		response["exit_code"] = *job.ExitCode
	}
	if len(job.Modules) > 0 {
		response["modules"] = job.Modules
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(response)
}

// ListRuns handles GET /v1/runs
func (h *RunHandler) ListRuns(w http.ResponseWriter, r *http.Request) {
	// Parse query parameters
	statusParam := r.URL.Query().Get("status")
	limit := 50 // Default limit
	if limitParam := r.URL.Query().Get("limit"); limitParam != "" {
		fmt.Sscanf(limitParam, "%d", &limit)
	}

	var status *models.JobStatus
	if statusParam != "" {
		s := models.JobStatus(statusParam)
		status = &s
	}

	// Fetch runs from database
	jobs, err := h.jobRepo.ListJobs(status, limit)
	if err != nil {
		http.Error(w, "Failed to list runs: "+err.Error(), http.StatusInternalServerError)
		return
	}

	// Build response items
	items := make([]map[string]interface{}, len(jobs))
	for i, job := range jobs {
		items[i] = map[string]interface{}{
			"id":         job.ID,
			"name":       job.Name,
			"owner":      job.Owner,
			"status":     job.Status,
			"queue":      job.Resources.Queue,
			"pbs_job_id": job.PBSJobID,
			"created_at": job.CreatedAt,
		}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"items": items,
	})
}

// CancelRun handles POST /v1/runs/{id}/cancel
func (h *RunHandler) CancelRun(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	jobID := vars["id"]

	job, err := h.jobRepo.GetJob(jobID)
	if err != nil {
		http.Error(w, "Run not found", http.StatusNotFound)
		return
	}

	if job.Status.Terminal() {
		http.Error(w, "Run already finished", http.StatusConflict)
		return
	}

	// A run the scheduler already holds must be deleted there first
	if job.PBSJobID != "" {
		if err := h.pbsClient.Delete(r.Context(), job.PBSJobID); err != nil {
			http.Error(w, "Failed to delete job from scheduler: "+err.Error(), http.StatusBadGateway)
			return
		}
	}

	if err := h.jobRepo.UpdateJobStatus(job.ID, job.Status, models.JobStatusCancelled, "user_cancelled", nil); err != nil {
		http.Error(w, "Failed to cancel run: "+err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"id":     job.ID,
		"status": "cancelled",
	})
}

// GetRunEvents handles GET /v1/runs/{id}/events
func (h *RunHandler) GetRunEvents(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	jobID := vars["id"]

	// Verify run exists
	_, err := h.jobRepo.GetJob(jobID)
	if err != nil {
		http.Error(w, "Run not found", http.StatusNotFound)
		return
	}

	// Fetch events
	events, err := h.eventRepo.GetJobEvents(jobID, 100)
	if err != nil {
		http.Error(w, "Failed to fetch events: "+err.Error(), http.StatusInternalServerError)
		return
	}

	// Build response items
	items := make([]map[string]interface{}, len(events))
	for i, event := range events {
		item := map[string]interface{}{
			"at":        event.At,
			"to_status": event.ToStatus,
			"reason":    event.Reason,
		}
		if event.FromStatus != nil {
			item["from_status"] = *event.FromStatus
		}
		items[i] = item
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"items": items,
	})
}

// GetRunArtifacts handles GET /v1/runs/{id}/artifacts
func (h *RunHandler) GetRunArtifacts(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	jobID := vars["id"]

	// Verify run exists
	_, err := h.jobRepo.GetJob(jobID)
	if err != nil {
		http.Error(w, "Run not found", http.StatusNotFound)
		return
	}

	// Parse optional type filter
	var artifactType *models.ArtifactType
	if typeParam := r.URL.Query().Get("type"); typeParam != "" {
		t := models.ArtifactType(typeParam)
		artifactType = &t
	}

	// Fetch artifacts
	artifacts, err := h.artifactRepo.GetJobArtifacts(jobID, artifactType)
	if err != nil {
		http.Error(w, "Failed to fetch artifacts: "+err.Error(), http.StatusInternalServerError)
		return
	}

	// Build response items
	items := make([]map[string]interface{}, len(artifacts))
	for i, artifact := range artifacts {
		items[i] = map[string]interface{}{
			"type":       artifact.Type,
			"path":       artifact.Path,
			"size_bytes": artifact.SizeBytes,
			"created_at": artifact.CreatedAt,
		}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"items": items,
	})
}

// GetRunLog handles GET /v1/runs/{id}/log. With ?follow=true the response
// keeps streaming appended output until the run reaches a terminal state.
func (h *RunHandler) GetRunLog(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	jobID := vars["id"]

	job, err := h.jobRepo.GetJob(jobID)
	if err != nil {
		http.Error(w, "Run not found", http.StatusNotFound)
		return
	}
	if job.LogPath == "" {
		http.Error(w, "Run has no log yet", http.StatusNotFound)
		return
	}

	logFile, err := os.Open(job.LogPath)
	if err != nil {
		http.Error(w, "Run has no log yet", http.StatusNotFound)
		return
	}
	defer logFile.Close()

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")

	if r.URL.Query().Get("follow") != "true" {
		io.Copy(w, logFile)
		return
	}

	h.followLog(w, r, job, logFile)
}

// followLog streams the current log contents and then tails appends
func (h *RunHandler) followLog(w http.ResponseWriter, r *http.Request, job *models.Job, logFile *os.File) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		io.Copy(w, logFile)
		return
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		io.Copy(w, logFile)
		return
	}
	defer watcher.Close()

	if err := watcher.Add(job.LogPath); err != nil {
		io.Copy(w, logFile)
		return
	}

	io.Copy(w, logFile)
	flusher.Flush()

	// Re-check the run's status periodically so the stream ends once the
	// scheduler reports the job done and no more writes can arrive.
	statusTicker := time.NewTicker(5 * time.Second)
	defer statusTicker.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if event.Has(fsnotify.Write) {
				io.Copy(w, logFile)
				flusher.Flush()
			}
		case <-statusTicker.C:
			fresh, err := h.jobRepo.GetJob(job.ID)
			if err != nil || fresh.Status.Terminal() {
				io.Copy(w, logFile)
				flusher.Flush()
				return
			}
		case <-watcher.Errors:
			return
		}
	}
}
