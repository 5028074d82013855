package repository

import (
	"pbs-orchestrator/core/models"
)

// ArtifactRepository handles database operations for run artifacts
type ArtifactRepository struct {
	db *DB
}

// NewArtifactRepository creates a new artifact repository
func NewArtifactRepository(db *DB) *ArtifactRepository {
	return &ArtifactRepository{db: db}
}

// CreateArtifact registers a file produced by a run
func (r *ArtifactRepository) CreateArtifact(jobID string, artifactType models.ArtifactType, path string, sizeBytes int64) error {
	query := `
		INSERT INTO run_artifacts (job_id, artifact_type, path, size_bytes)
		VALUES ($1, $2, $3, $4)
	`
	_, err := r.db.Exec(query, jobID, artifactType, path, sizeBytes)
	return err
}

// GetJobArtifacts retrieves artifacts for a run, optionally filtered by type
func (r *ArtifactRepository) GetJobArtifacts(jobID string, artifactType *models.ArtifactType) ([]models.JobArtifact, error) {
	query := `
		SELECT id, job_id, artifact_type, path, size_bytes, created_at
		FROM run_artifacts
		WHERE job_id = $1
	`
	args := []interface{}{jobID}

	if artifactType != nil {
		query += " AND artifact_type = $2"
		args = append(args, *artifactType)
	}

	query += " ORDER BY created_at"

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var artifacts []models.JobArtifact
	for rows.Next() {
		var artifact models.JobArtifact
		err := rows.Scan(
			&artifact.ID,
			&artifact.JobID,
			&artifact.Type,
			&artifact.Path,
			&artifact.SizeBytes,
			&artifact.CreatedAt,
		)
		if err != nil {
			continue
		}
		artifacts = append(artifacts, artifact)
	}

	return artifacts, nil
}
