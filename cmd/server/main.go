package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"pbs-orchestrator/api/rest/routes"
	"pbs-orchestrator/config"
	"pbs-orchestrator/core/monitoring"
	"pbs-orchestrator/core/pbs"
	"pbs-orchestrator/core/repository"
	"pbs-orchestrator/core/scheduler"
	"pbs-orchestrator/core/script"
	"pbs-orchestrator/storage"

	"github.com/gorilla/mux"
)

func main() {
	cfg := config.Load()

	// Initialize database
	db, err := repository.NewDB(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	if err := db.Migrate(); err != nil {
		log.Fatalf("Failed to migrate database: %v", err)
	}

	log.Println("Database connected successfully")

	ctx := context.Background()

	// Initialize the PBS client
	pbsClient := pbs.NewClient(cfg.QsubPath, cfg.QstatPath, cfg.QdelPath)

	// Initialize the script renderer
	renderer, err := script.NewRenderer(cfg.LauncherPath)
	if err != nil {
		log.Fatalf("Failed to build script renderer: %v", err)
	}

	// Initialize repositories
	jobRepo := repository.NewJobRepository(db)
	artifactRepo := repository.NewArtifactRepository(db)

	// Initialize artifact collection
	patterns := cfg.ArtifactPatterns
	if len(patterns) == 0 {
		patterns = storage.DefaultOutputPatterns
	}
	collector, err := storage.NewArtifactCollector(artifactRepo, patterns)
	if err != nil {
		log.Fatalf("Failed to build artifact collector: %v", err)
	}

	// Initialize usage tracking
	usageTracker := monitoring.NewUsageTracker()
	go usageTracker.Start(ctx)

	// Initialize the job monitor
	jobMonitor := monitoring.NewJobMonitor(jobRepo, pbsClient, usageTracker, collector)
	go jobMonitor.Start(ctx)

	// Initialize scheduler
	sched := scheduler.NewScheduler(jobRepo, renderer, pbsClient, cfg.RunRoot)
	go sched.Start(ctx)
	defer sched.Stop()

	// Setup routes with database and scheduler
	r := mux.NewRouter()
	routes.SetupRoutes(r, db, sched, pbsClient, usageTracker)

	// Health check endpoint
	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	}).Methods("GET")

	// Start server
	server := &http.Server{
		Addr:    ":" + cfg.ServerPort,
		Handler: r,
	}

	// Graceful shutdown
	go func() {
		log.Printf("Starting server on port %s", cfg.ServerPort)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed to start: %v", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")
	if err := server.Shutdown(context.Background()); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}
	log.Println("Server exited")
}
