package repository

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"pbs-orchestrator/core/models"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

// JobRepository handles database operations for runs
type JobRepository struct {
	db *DB
}

// NewJobRepository creates a new job repository
func NewJobRepository(db *DB) *JobRepository {
	return &JobRepository{db: db}
}

// CreateJob creates a new run in the database
func (r *JobRepository) CreateJob(job *models.Job) error {
	query := `
		INSERT INTO runs (
			id, name, owner, payload, run_dir, walltime_secs, memory, ncpus,
			queue_name, workdir_at_submit, jobfs, modules, status, spec_yaml,
			created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16
		)
	`

	jobID := uuid.New()
	if job.ID != "" {
		var err error
		jobID, err = uuid.Parse(job.ID)
		if err != nil {
			return err
		}
	}

	now := time.Now()
	_, err := r.db.Exec(query,
		jobID,
		job.Name,
		job.Owner,
		job.Payload,
		job.RunDir,
		int64(job.Resources.Walltime.Seconds()),
		job.Resources.Memory,
		job.Resources.NCPUs,
		job.Resources.Queue,
		job.Resources.WorkdirAtSubmit,
		job.Resources.JobFS,
		pq.Array(job.Modules),
		job.Status,
		job.SpecYAML,
		now,
		now,
	)

	if err != nil {
		return err
	}

	job.ID = jobID.String()
	job.CreatedAt = now

	// Create initial event
	return r.CreateJobEvent(job.ID, nil, job.Status, "run_created", nil)
}

// GetJob retrieves a run by ID
func (r *JobRepository) GetJob(id string) (*models.Job, error) {
	query := `
		SELECT id, name, owner, payload, run_dir, script_path, log_path,
			walltime_secs, memory, ncpus, queue_name, workdir_at_submit, jobfs,
			modules, status, pbs_job_id, exit_code, spec_yaml,
			created_at, submitted_at, started_at, completed_at, updated_at
		FROM runs
		WHERE id = $1
	`

	var job models.Job
	var walltimeSecs int64
	var exitCode sql.NullInt64
	var submittedAt sql.NullTime
	var startedAt sql.NullTime
	var completedAt sql.NullTime

	err := r.db.QueryRow(query, id).Scan(
		&job.ID,
		&job.Name,
		&job.Owner,
		&job.Payload,
		&job.RunDir,
		&job.ScriptPath,
		&job.LogPath,
		&walltimeSecs,
		&job.Resources.Memory,
		&job.Resources.NCPUs,
		&job.Resources.Queue,
		&job.Resources.WorkdirAtSubmit,
		&job.Resources.JobFS,
		pq.Array(&job.Modules),
		&job.Status,
		&job.PBSJobID,
		&exitCode,
		&job.SpecYAML,
		&job.CreatedAt,
		&submittedAt,
		&startedAt,
		&completedAt,
		&job.UpdatedAt,
	)

	if err != nil {
		return nil, err
	}

	job.Resources.Walltime = time.Duration(walltimeSecs) * time.Second
	if exitCode.Valid {
		code := int(exitCode.Int64)
		job.ExitCode = &code
	}
	if submittedAt.Valid {
		job.SubmittedAt = &submittedAt.Time
	}
	if startedAt.Valid {
		job.StartedAt = &startedAt.Time
	}
	if completedAt.Valid {
		job.CompletedAt = &completedAt.Time
	}

	return &job, nil
}

// ListJobs lists runs with an optional status filter
func (r *JobRepository) ListJobs(status *models.JobStatus, limit int) ([]*models.Job, error) {
	query := `
		SELECT id, name, owner, payload, queue_name, status, pbs_job_id,
			walltime_secs, created_at, started_at
		FROM runs
	`
	args := []interface{}{}

	if status != nil {
		query += " WHERE status = $1"
		args = append(args, *status)
	}

	query += fmt.Sprintf(" ORDER BY created_at DESC LIMIT $%d", len(args)+1)
	args = append(args, limit)

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var jobs []*models.Job
	for rows.Next() {
		var job models.Job
		var walltimeSecs int64
		var startedAt sql.NullTime
		err := rows.Scan(
			&job.ID,
			&job.Name,
			&job.Owner,
			&job.Payload,
			&job.Resources.Queue,
			&job.Status,
			&job.PBSJobID,
			&walltimeSecs,
			&job.CreatedAt,
			&startedAt,
		)
		if err != nil {
			continue
		}
		job.Resources.Walltime = time.Duration(walltimeSecs) * time.Second
		if startedAt.Valid {
			job.StartedAt = &startedAt.Time
		}
		jobs = append(jobs, &job)
	}

	return jobs, nil
}

// MarkSubmitted records the PBS job id and run layout after qsub accepted
func (r *JobRepository) MarkSubmitted(jobID, pbsJobID, runDir, scriptPath, logPath string) error {
	query := `
		UPDATE runs
		SET pbs_job_id = $1, run_dir = $2, script_path = $3, log_path = $4,
			submitted_at = NOW(), updated_at = NOW()
		WHERE id = $5
	`
	_, err := r.db.Exec(query, pbsJobID, runDir, scriptPath, logPath, jobID)
	return err
}

// MarkStarted records the moment the scheduler began executing the run
func (r *JobRepository) MarkStarted(jobID string) error {
	query := `UPDATE runs SET started_at = NOW(), updated_at = NOW() WHERE id = $1 AND started_at IS NULL`
	_, err := r.db.Exec(query, jobID)
	return err
}

// MarkFinished records the run's exit code and completion time
func (r *JobRepository) MarkFinished(jobID string, exitCode *int) error {
	query := `UPDATE runs SET exit_code = $1, completed_at = NOW(), updated_at = NOW() WHERE id = $2`
	_, err := r.db.Exec(query, exitCode, jobID)
	return err
}

// UpdateJobStatus updates run status atomically with event logging
func (r *JobRepository) UpdateJobStatus(jobID string, fromStatus, toStatus models.JobStatus, reason string, meta map[string]interface{}) error {
	tx, err := r.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	// Update run status
	updateQuery := `UPDATE runs SET status = $1, updated_at = NOW() WHERE id = $2`
	_, err = tx.Exec(updateQuery, toStatus, jobID)
	if err != nil {
		return err
	}

	// Create event
	err = r.createJobEventTx(tx, jobID, &fromStatus, toStatus, reason, meta)
	if err != nil {
		return err
	}

	return tx.Commit()
}

// CreateJobEvent creates a run event
func (r *JobRepository) CreateJobEvent(jobID string, fromStatus *models.JobStatus, toStatus models.JobStatus, reason string, meta map[string]interface{}) error {
	tx, err := r.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	err = r.createJobEventTx(tx, jobID, fromStatus, toStatus, reason, meta)
	if err != nil {
		return err
	}

	return tx.Commit()
}

func (r *JobRepository) createJobEventTx(tx *sql.Tx, jobID string, fromStatus *models.JobStatus, toStatus models.JobStatus, reason string, meta map[string]interface{}) error {
	query := `
		INSERT INTO run_events (job_id, from_status, to_status, reason, meta_json)
		VALUES ($1, $2, $3, $4, $5)
	`

	var fromStatusStr *string
	if fromStatus != nil {
		s := string(*fromStatus)
		fromStatusStr = &s
	}

	metaJSON := "{}"
	if meta != nil {
		if encoded, err := json.Marshal(meta); err == nil {
			metaJSON = string(encoded)
		}
	}

	_, err := tx.Exec(query, jobID, fromStatusStr, toStatus, reason, metaJSON)
	return err
}

// CountByStatus returns the number of runs per status
func (r *JobRepository) CountByStatus() (map[models.JobStatus]int, error) {
	rows, err := r.db.Query(`SELECT status, COUNT(*) FROM runs GROUP BY status`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[models.JobStatus]int)
	for rows.Next() {
		var status models.JobStatus
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			continue
		}
		counts[status] = count
	}
	return counts, nil
}
