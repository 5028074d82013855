package routes

import (
	"pbs-orchestrator/api/rest/handlers"
	"pbs-orchestrator/core/monitoring"
	"pbs-orchestrator/core/pbs"
	"pbs-orchestrator/core/repository"
	"pbs-orchestrator/core/scheduler"

	"github.com/gorilla/mux"
)

// SetupRoutes configures all API routes
func SetupRoutes(
	r *mux.Router,
	db *repository.DB,
	sched *scheduler.Scheduler,
	pbsClient *pbs.Client,
	usageTracker *monitoring.UsageTracker,
) {
	jobRepo := repository.NewJobRepository(db)
	eventRepo := repository.NewEventRepository(db)
	artifactRepo := repository.NewArtifactRepository(db)
	runHandler := handlers.NewRunHandler(jobRepo, eventRepo, artifactRepo, sched, pbsClient)
	summaryHandler := handlers.NewSummaryHandler(jobRepo, usageTracker)

	api := r.PathPrefix("/v1").Subrouter()

	// Run endpoints
	api.HandleFunc("/runs", runHandler.SubmitRun).Methods("POST")
	api.HandleFunc("/runs/{id}", runHandler.GetRun).Methods("GET")
	api.HandleFunc("/runs", runHandler.ListRuns).Methods("GET")
	api.HandleFunc("/runs/{id}/cancel", runHandler.CancelRun).Methods("POST")
	api.HandleFunc("/runs/{id}/events", runHandler.GetRunEvents).Methods("GET")
	api.HandleFunc("/runs/{id}/artifacts", runHandler.GetRunArtifacts).Methods("GET")
	api.HandleFunc("/runs/{id}/log", runHandler.GetRunLog).Methods("GET")
	api.HandleFunc("/summary", summaryHandler.GetSummary).Methods("GET")
}
