package spec

import (
	"testing"
	"time"

	"pbs-orchestrator/core/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const fullSpec = `
run:
  name: assim_6day
  payload: python runscript.py
  run_dir: /scratch/runs
  resources:
    walltime: "30:00:00"
    memory: 64GB
    ncpus: 4
    queue: normal
    jobfs: 4gb
  modules:
    - intel-mpi/2021.5
    - netcdf/4.8.0
`

func TestParseRunSpec(t *testing.T) {
	job, err := ParseRunSpec(fullSpec)
	require.NoError(t, err)

	assert.Equal(t, "assim_6day", job.Name)
	assert.Equal(t, "python runscript.py", job.Payload)
	assert.Equal(t, "/scratch/runs", job.RunDir)
	assert.Equal(t, models.JobStatusPending, job.Status)
	assert.Equal(t, fullSpec, job.SpecYAML)

	assert.Equal(t, 30*time.Hour, job.Resources.Walltime)
	assert.Equal(t, "64gb", job.Resources.Memory, "memory unit should be normalized")
	assert.Equal(t, 4, job.Resources.NCPUs)
	assert.Equal(t, "normal", job.Resources.Queue)
	assert.Equal(t, "4gb", job.Resources.JobFS)
	assert.True(t, job.Resources.WorkdirAtSubmit, "wd should default to true")

	assert.Equal(t, []string{"intel-mpi/2021.5", "netcdf/4.8.0"}, job.Modules)
}

func TestParseRunSpecDefaults(t *testing.T) {
	job, err := ParseRunSpec(`
run:
  name: minimal
  payload: ./run.sh
  resources:
    walltime: "01:00:00"
    memory: 2gb
    ncpus: 1
    queue: express
`)
	require.NoError(t, err)

	assert.Empty(t, job.Resources.JobFS)
	assert.Empty(t, job.Modules)
	assert.True(t, job.Resources.WorkdirAtSubmit)
}

func TestParseRunSpecWorkdirOverride(t *testing.T) {
	job, err := ParseRunSpec(`
run:
  name: nowd
  payload: ./run.sh
  resources:
    walltime: "01:00:00"
    memory: 2gb
    ncpus: 1
    queue: express
    wd: false
`)
	require.NoError(t, err)
	assert.False(t, job.Resources.WorkdirAtSubmit)
}

func TestParseRunSpecRejectsInvalid(t *testing.T) {
	cases := []struct {
		name     string
		spec     string
		errMatch string
	}{
		{"not yaml", "{{nope", "failed to parse YAML"},
		{"missing name", `
run:
  payload: ./run.sh
  resources:
    walltime: "01:00:00"
    memory: 2gb
    ncpus: 1
    queue: express
`, "name is required"},
		{"missing payload", `
run:
  name: x
  resources:
    walltime: "01:00:00"
    memory: 2gb
    ncpus: 1
    queue: express
`, "payload is required"},
		{"bad walltime", `
run:
  name: x
  payload: ./run.sh
  resources:
    walltime: "tomorrow"
    memory: 2gb
    ncpus: 1
    queue: express
`, "invalid walltime"},
		{"bad memory", `
run:
  name: x
  payload: ./run.sh
  resources:
    walltime: "01:00:00"
    memory: lots
    ncpus: 1
    queue: express
`, "invalid memory"},
		{"zero ncpus", `
run:
  name: x
  payload: ./run.sh
  resources:
    walltime: "01:00:00"
    memory: 2gb
    ncpus: 0
    queue: express
`, "ncpus must be a positive integer"},
		{"missing queue", `
run:
  name: x
  payload: ./run.sh
  resources:
    walltime: "01:00:00"
    memory: 2gb
    ncpus: 1
`, "queue is required"},
		{"name with newline", `
run:
  name: "evil\nrm -rf /tmp/victim"
  payload: ./run.sh
  resources:
    walltime: "01:00:00"
    memory: 2gb
    ncpus: 1
    queue: express
`, "invalid run name"},
		{"name with spaces", `
run:
  name: "two words"
  payload: ./run.sh
  resources:
    walltime: "01:00:00"
    memory: 2gb
    ncpus: 1
    queue: express
`, "invalid run name"},
		{"name escaping the run dir", `
run:
  name: "../../etc/cron.d/x"
  payload: ./run.sh
  resources:
    walltime: "01:00:00"
    memory: 2gb
    ncpus: 1
    queue: express
`, "invalid run name"},
		{"module with newline", `
run:
  name: x
  payload: ./run.sh
  resources:
    walltime: "01:00:00"
    memory: 2gb
    ncpus: 1
    queue: express
  modules:
    - "netcdf\nrm -rf /tmp/victim"
`, "invalid module name"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ParseRunSpec(tc.spec)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.errMatch)
		})
	}
}
