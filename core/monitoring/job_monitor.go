package monitoring

import (
	"context"
	"errors"
	"log"
	"strings"
	"time"

	"pbs-orchestrator/core/models"
	"pbs-orchestrator/core/pbs"
	"pbs-orchestrator/core/repository"
	"pbs-orchestrator/storage"
)

// JobMonitor tracks submitted runs against the scheduler's view of them
type JobMonitor struct {
	jobRepo      *repository.JobRepository
	pbsClient    *pbs.Client
	usageTracker *UsageTracker
	collector    *storage.ArtifactCollector
}

// NewJobMonitor creates a new job monitor
func NewJobMonitor(
	jobRepo *repository.JobRepository,
	pbsClient *pbs.Client,
	usageTracker *UsageTracker,
	collector *storage.ArtifactCollector,
) *JobMonitor {
	return &JobMonitor{
		jobRepo:      jobRepo,
		pbsClient:    pbsClient,
		usageTracker: usageTracker,
		collector:    collector,
	}
}

// Start starts the monitoring loop
func (jm *JobMonitor) Start(ctx context.Context) {
	ticker := time.NewTicker(30 * time.Second) // Check every 30 seconds
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			jm.pollActiveJobs(ctx)
		}
	}
}

// pollActiveJobs reconciles every non-terminal submitted run with qstat
func (jm *JobMonitor) pollActiveJobs(ctx context.Context) {
	for _, status := range []models.JobStatus{
		models.JobStatusSubmitted,
		models.JobStatusQueued,
		models.JobStatusRunning,
	} {
		s := status
		jobs, err := jm.jobRepo.ListJobs(&s, 100)
		if err != nil {
			log.Printf("Failed to fetch %s jobs: %v", status, err)
			continue
		}

		for _, job := range jobs {
			jm.reconcileJob(ctx, job)
		}
	}
}

// reconcileJob advances one run's status from the scheduler's state
func (jm *JobMonitor) reconcileJob(ctx context.Context, job *models.Job) {
	state, err := jm.pbsClient.JobState(ctx, job.PBSJobID)
	if errors.Is(err, pbs.ErrUnknownJob) {
		// Servers purge finished jobs from qstat after a while. Without an
		// exit status the run cannot be called successful.
		log.Printf("Job %s vanished from scheduler", job.PBSJobID)
		jm.finishJob(job, models.JobStatusFailed, "vanished_from_scheduler", nil)
		return
	}
	if err != nil {
		log.Printf("Failed to query job %s: %v", job.PBSJobID, err)
		return
	}

	switch {
	case state.Finished():
		toStatus, reason := classifyExit(state)
		jm.finishJob(job, toStatus, reason, state.ExitStatus)

	case state.State == "R" && job.Status != models.JobStatusRunning:
		if err := jm.jobRepo.MarkStarted(job.ID); err != nil {
			log.Printf("Failed to mark job %s started: %v", job.ID, err)
			return
		}
		jm.jobRepo.UpdateJobStatus(job.ID, job.Status, models.JobStatusRunning, "scheduler_started_job", nil)
		jm.usageTracker.TrackJob(job.ID, job.Resources.Walltime)

	case state.State == "Q" && job.Status == models.JobStatusSubmitted:
		jm.jobRepo.UpdateJobStatus(job.ID, job.Status, models.JobStatusQueued, "scheduler_queued_job", nil)
	}
}

// finishJob records a terminal state and collects the run's artifacts
func (jm *JobMonitor) finishJob(job *models.Job, toStatus models.JobStatus, reason string, exitCode *int) {
	if err := jm.jobRepo.MarkFinished(job.ID, exitCode); err != nil {
		log.Printf("Failed to record exit for job %s: %v", job.ID, err)
		return
	}

	meta := map[string]interface{}{}
	if exitCode != nil {
		meta["exit_code"] = *exitCode
	}
	if err := jm.jobRepo.UpdateJobStatus(job.ID, job.Status, toStatus, reason, meta); err != nil {
		log.Printf("Failed to update job %s status: %v", job.ID, err)
		return
	}

	jm.usageTracker.StopTracking(job.ID)

	fresh, err := jm.jobRepo.GetJob(job.ID)
	if err != nil {
		log.Printf("Failed to fetch job %s for collection: %v", job.ID, err)
		return
	}
	if err := jm.collector.Collect(fresh); err != nil {
		log.Printf("Failed to collect artifacts for job %s: %v", job.ID, err)
	}
}

// classifyExit maps a finished job's exit status onto the run lifecycle.
// PBS reports exit codes >= 256 (signal deaths) for jobs it killed, and
// writes the violated limit into the job comment.
func classifyExit(state *pbs.JobState) (models.JobStatus, string) {
	comment := strings.ToLower(state.Comment)
	if strings.Contains(comment, "walltime") || strings.Contains(comment, "exceeded") {
		return models.JobStatusKilled, "resource_limit_exceeded"
	}

	if state.ExitStatus == nil {
		return models.JobStatusFailed, "no_exit_status"
	}

	code := *state.ExitStatus
	switch {
	case code == 0:
		return models.JobStatusCompleted, "payload_succeeded"
	case code < 0 || code >= 256:
		return models.JobStatusKilled, "killed_by_scheduler"
	default:
		return models.JobStatusFailed, "payload_failed"
	}
}
