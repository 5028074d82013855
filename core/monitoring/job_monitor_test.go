package monitoring

import (
	"testing"

	"pbs-orchestrator/core/models"
	"pbs-orchestrator/core/pbs"

	"github.com/stretchr/testify/assert"
)

func intPtr(v int) *int { return &v }

func TestClassifyExit(t *testing.T) {
	cases := []struct {
		name       string
		state      *pbs.JobState
		wantStatus models.JobStatus
		wantReason string
	}{
		{
			name:       "clean exit",
			state:      &pbs.JobState{State: "F", ExitStatus: intPtr(0)},
			wantStatus: models.JobStatusCompleted,
			wantReason: "payload_succeeded",
		},
		{
			name:       "payload failure",
			state:      &pbs.JobState{State: "F", ExitStatus: intPtr(1)},
			wantStatus: models.JobStatusFailed,
			wantReason: "payload_failed",
		},
		{
			name:       "signal death",
			state:      &pbs.JobState{State: "F", ExitStatus: intPtr(271)},
			wantStatus: models.JobStatusKilled,
			wantReason: "killed_by_scheduler",
		},
		{
			name: "walltime eviction",
			state: &pbs.JobState{
				State:      "F",
				ExitStatus: intPtr(271),
				Comment:    "Job killed: walltime 108123 exceeded limit 108000",
			},
			wantStatus: models.JobStatusKilled,
			wantReason: "resource_limit_exceeded",
		},
		{
			name:       "no exit status",
			state:      &pbs.JobState{State: "F"},
			wantStatus: models.JobStatusFailed,
			wantReason: "no_exit_status",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			status, reason := classifyExit(tc.state)
			assert.Equal(t, tc.wantStatus, status)
			assert.Equal(t, tc.wantReason, reason)
		})
	}
}
