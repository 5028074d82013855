package pbs

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
)

// ErrUnknownJob is returned when the scheduler no longer knows a job id
var ErrUnknownJob = errors.New("unknown job id")

// Client wraps the PBS command line tools on the login node
type Client struct {
	qsubPath  string
	qstatPath string
	qdelPath  string
}

// NewClient creates a client for the given tool paths
func NewClient(qsubPath, qstatPath, qdelPath string) *Client {
	return &Client{
		qsubPath:  qsubPath,
		qstatPath: qstatPath,
		qdelPath:  qdelPath,
	}
}

// JobState is the scheduler's view of a submitted job
type JobState struct {
	PBSJobID   string
	State      string // PBS state letter: Q, R, H, E, F, ...
	ExitStatus *int
	Comment    string
}

// Finished reports whether the scheduler considers the job done
func (s *JobState) Finished() bool {
	return s.State == "F" || s.State == "E"
}

// Submit submits a script with qsub and returns the PBS job id
func (c *Client) Submit(ctx context.Context, scriptPath string) (string, error) {
	out, err := exec.CommandContext(ctx, c.qsubPath, scriptPath).Output()
	if err != nil {
		return "", fmt.Errorf("qsub %s: %w", scriptPath, err)
	}

	// qsub prints the job id as its only output line
	jobID := strings.TrimSpace(string(out))
	if jobID == "" {
		return "", fmt.Errorf("qsub %s: empty job id", scriptPath)
	}
	return jobID, nil
}

// JobState queries qstat for the current state of a job. The -x flag keeps
// finished jobs visible long enough to read their exit status.
func (c *Client) JobState(ctx context.Context, pbsJobID string) (*JobState, error) {
	out, err := exec.CommandContext(ctx, c.qstatPath, "-f", "-x", pbsJobID).Output()
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) && strings.Contains(string(exitErr.Stderr), "Unknown Job Id") {
			return nil, fmt.Errorf("qstat %s: %w", pbsJobID, ErrUnknownJob)
		}
		return nil, fmt.Errorf("qstat %s: %w", pbsJobID, err)
	}
	return parseJobState(pbsJobID, string(out)), nil
}

// Delete removes a job from the scheduler with qdel
func (c *Client) Delete(ctx context.Context, pbsJobID string) error {
	if out, err := exec.CommandContext(ctx, c.qdelPath, pbsJobID).CombinedOutput(); err != nil {
		return fmt.Errorf("qdel %s: %w: %s", pbsJobID, err, strings.TrimSpace(string(out)))
	}
	return nil
}

// parseJobState extracts the fields we track from qstat -f output
func parseJobState(pbsJobID, out string) *JobState {
	fields := parseQstatFields(out)

	state := &JobState{
		PBSJobID: pbsJobID,
		State:    fields["job_state"],
		Comment:  fields["comment"],
	}
	if v, ok := fields["Exit_status"]; ok {
		if code, err := strconv.Atoi(v); err == nil {
			state.ExitStatus = &code
		}
	}
	return state
}

// parseQstatFields parses the "key = value" lines of qstat -f output.
// Values wrapped across lines continue on a tab-indented line.
func parseQstatFields(out string) map[string]string {
	fields := make(map[string]string)
	var lastKey string

	for _, line := range strings.Split(out, "\n") {
		if strings.HasPrefix(line, "\t") {
			if lastKey != "" {
				fields[lastKey] += strings.TrimSpace(line)
			}
			continue
		}

		key, value, found := strings.Cut(line, " = ")
		if !found {
			continue
		}
		lastKey = strings.TrimSpace(key)
		fields[lastKey] = strings.TrimSpace(value)
	}

	return fields
}
