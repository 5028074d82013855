package models

import "time"

// JobEvent represents a state transition event for a job
type JobEvent struct {
	ID         int64
	JobID      string
	At         time.Time
	FromStatus *JobStatus
	ToStatus   JobStatus
	Reason     string
	MetaJSON   map[string]interface{} // Additional metadata
}

// ArtifactType represents the type of file a run produced
type ArtifactType string

const (
	ArtifactTypeLog        ArtifactType = "log"
	ArtifactTypeOutput     ArtifactType = "output"
	ArtifactTypeDiagnostic ArtifactType = "diagnostic"
)

// JobArtifact represents a file registered after a run finished
type JobArtifact struct {
	ID        int64
	JobID     string
	Type      ArtifactType
	Path      string
	SizeBytes int64
	CreatedAt time.Time
}
