package models

import (
	"fmt"
	"regexp"
	"strconv"
	"time"
)

// Job represents a single batch run submitted to the PBS cluster
type Job struct {
	ID          string
	Name        string
	Owner       string
	Payload     string // command executed inside the job, given no arguments
	RunDir      string // per-run directory holding the script and log
	ScriptPath  string
	LogPath     string
	Resources   JobResources
	Modules     []string // environment modules loaded before the payload
	Status      JobStatus
	PBSJobID    string
	ExitCode    *int
	CreatedAt   time.Time
	SubmittedAt *time.Time
	StartedAt   *time.Time
	CompletedAt *time.Time
	UpdatedAt   time.Time
	SpecYAML    string // Original spec for replay/debug
}

// JobResources mirrors the PBS resource directives of a submission script
type JobResources struct {
	Walltime        time.Duration // rendered as HH:MM:SS
	Memory          string        // e.g. "64gb"
	NCPUs           int
	Queue           string
	WorkdirAtSubmit bool   // -l wd: start in the directory the job was submitted from
	JobFS           string // per-job scratch allocation, e.g. "4gb"
}

// JobStatus represents the current status of a job
type JobStatus string

const (
	JobStatusPending   JobStatus = "pending"
	JobStatusSubmitted JobStatus = "submitted"
	JobStatusQueued    JobStatus = "queued"
	JobStatusRunning   JobStatus = "running"
	JobStatusCompleted JobStatus = "completed"
	JobStatusFailed    JobStatus = "failed"
	JobStatusKilled    JobStatus = "killed" // evicted by the scheduler (walltime/memory)
	JobStatusCancelled JobStatus = "cancelled"
)

// Terminal reports whether the status is a final state
func (s JobStatus) Terminal() bool {
	switch s {
	case JobStatusCompleted, JobStatusFailed, JobStatusKilled, JobStatusCancelled:
		return true
	}
	return false
}

// FormatWalltime renders a duration in the HH:MM:SS form PBS expects
func FormatWalltime(d time.Duration) string {
	secs := int64(d.Seconds())
	return fmt.Sprintf("%02d:%02d:%02d", secs/3600, (secs%3600)/60, secs%60)
}

// walltimeRe matches a complete HH:MM:SS walltime with nothing trailing
var walltimeRe = regexp.MustCompile(`^([0-9]+):([0-9]{2}):([0-9]{2})$`)

// ParseWalltime parses a HH:MM:SS walltime into a duration
func ParseWalltime(s string) (time.Duration, error) {
	m := walltimeRe.FindStringSubmatch(s)
	if m == nil {
		return 0, fmt.Errorf("invalid walltime %q: want HH:MM:SS", s)
	}

	h, _ := strconv.Atoi(m[1])
	min, _ := strconv.Atoi(m[2])
	sec, _ := strconv.Atoi(m[3])
	if min > 59 || sec > 59 {
		return 0, fmt.Errorf("invalid walltime %q: field out of range", s)
	}

	d := time.Duration(h)*time.Hour + time.Duration(min)*time.Minute + time.Duration(sec)*time.Second
	if d <= 0 {
		return 0, fmt.Errorf("invalid walltime %q: must be positive", s)
	}
	return d, nil
}
