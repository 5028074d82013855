package scheduler

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"pbs-orchestrator/core/models"
	"pbs-orchestrator/core/pbs"
	"pbs-orchestrator/core/repository"
	"pbs-orchestrator/core/script"
)

// queueCacheTTL bounds how stale the queue catalog may get between refreshes
const queueCacheTTL = 5 * time.Minute

// Scheduler drains pending runs and submits them to the PBS cluster
type Scheduler struct {
	jobRepo    *repository.JobRepository
	queue      *SubmitQueue
	renderer   *script.Renderer
	pbsClient  *pbs.Client
	runRoot    string
	queueCache map[string]pbs.Queue
	cachedAt   time.Time
	stopChan   chan struct{}
}

// NewScheduler creates a new scheduler
func NewScheduler(
	jobRepo *repository.JobRepository,
	renderer *script.Renderer,
	pbsClient *pbs.Client,
	runRoot string,
) *Scheduler {
	return &Scheduler{
		jobRepo:   jobRepo,
		queue:     NewSubmitQueue(),
		renderer:  renderer,
		pbsClient: pbsClient,
		runRoot:   runRoot,
		stopChan:  make(chan struct{}),
	}
}

// Start starts the scheduler worker
func (s *Scheduler) Start(ctx context.Context) {
	ticker := time.NewTicker(5 * time.Second) // Check queue every 5 seconds
	defer ticker.Stop()

	// Load pending jobs from database
	s.loadPendingJobs(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-s.stopChan:
			return
		case <-ticker.C:
			s.processQueue(ctx)
		}
	}
}

// Stop stops the scheduler
func (s *Scheduler) Stop() {
	close(s.stopChan)
}

// Enqueue adds a job to the queue
func (s *Scheduler) Enqueue(job *models.Job) {
	s.queue.Enqueue(job)
}

// loadPendingJobs loads pending jobs from database
func (s *Scheduler) loadPendingJobs(_ context.Context) {
	status := models.JobStatusPending
	jobs, err := s.jobRepo.ListJobs(&status, 100)
	if err != nil {
		log.Printf("Failed to load pending jobs: %v", err)
		return
	}

	for _, job := range jobs {
		s.queue.Enqueue(job)
	}
}

// processQueue processes jobs from the queue
func (s *Scheduler) processQueue(ctx context.Context) {
	for {
		job := s.queue.PopJob()
		if job == nil {
			return
		}

		// Re-fetch job to get latest state
		freshJob, err := s.jobRepo.GetJob(job.ID)
		if err != nil {
			log.Printf("Failed to fetch job %s: %v", job.ID, err)
			continue
		}

		// Skip if job is no longer pending (e.g. cancelled before submission)
		if freshJob.Status != models.JobStatusPending {
			continue
		}

		if err := s.submitJob(ctx, freshJob); err != nil {
			log.Printf("Failed to submit job %s: %v", freshJob.ID, err)
			s.jobRepo.UpdateJobStatus(freshJob.ID, freshJob.Status, models.JobStatusFailed, "submission_failed", map[string]interface{}{
				"error": err.Error(),
			})
		}
	}
}

// submitJob renders the submission script for a job and hands it to qsub
func (s *Scheduler) submitJob(ctx context.Context, job *models.Job) error {
	log.Printf("Submitting job %s (%s)", job.ID, job.Name)

	// Step 1: Admission check against the queue catalog
	queues, err := s.clusterQueues(ctx)
	if err != nil {
		return err
	}
	if err := pbs.CheckAdmission(queues, job.Resources); err != nil {
		return err
	}

	// Step 2: Lay out the per-run directory. Two submissions of the same
	// spec get two directories and two logs.
	if err := s.prepareRunDir(job); err != nil {
		return err
	}

	// Step 3: Render and write the submission script
	content, err := s.renderer.Render(job)
	if err != nil {
		return err
	}
	if err := os.WriteFile(job.ScriptPath, []byte(content), 0o755); err != nil {
		return fmt.Errorf("failed to write script %s: %w", job.ScriptPath, err)
	}

	// Step 4: qsub
	pbsJobID, err := s.pbsClient.Submit(ctx, job.ScriptPath)
	if err != nil {
		return err
	}

	// Step 5: Record the submission
	if err := s.jobRepo.MarkSubmitted(job.ID, pbsJobID, job.RunDir, job.ScriptPath, job.LogPath); err != nil {
		return err
	}
	return s.jobRepo.UpdateJobStatus(job.ID, models.JobStatusPending, models.JobStatusSubmitted, "qsub_accepted", map[string]interface{}{
		"pbs_job_id": pbsJobID,
	})
}

// prepareRunDir creates the run directory and derives the script/log paths
func (s *Scheduler) prepareRunDir(job *models.Job) error {
	base := job.RunDir
	if base == "" {
		base = s.runRoot
	}

	runDir := filepath.Join(base, job.ID)
	if err := os.MkdirAll(runDir, 0o755); err != nil {
		return fmt.Errorf("failed to create run dir %s: %w", runDir, err)
	}

	job.RunDir = runDir
	job.ScriptPath = filepath.Join(runDir, job.Name+".pbs")
	job.LogPath = filepath.Join(runDir, "run.log")
	return nil
}

// clusterQueues returns the queue catalog, refreshing it when stale
func (s *Scheduler) clusterQueues(ctx context.Context) (map[string]pbs.Queue, error) {
	if s.queueCache != nil && time.Since(s.cachedAt) < queueCacheTTL {
		return s.queueCache, nil
	}

	queues, err := s.pbsClient.Queues(ctx)
	if err != nil {
		return nil, err
	}
	s.queueCache = queues
	s.cachedAt = time.Now()
	return queues, nil
}
