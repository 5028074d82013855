package script

import (
	"strings"
	"testing"
	"time"

	"pbs-orchestrator/core/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testJob() *models.Job {
	return &models.Job{
		ID:      "a1b2c3",
		Name:    "assim_6day",
		Payload: "python runscript.py",
		LogPath: "/scratch/runs/a1b2c3/run.log",
		Resources: models.JobResources{
			Walltime:        30 * time.Hour,
			Memory:          "64gb",
			NCPUs:           4,
			Queue:           "normal",
			WorkdirAtSubmit: true,
			JobFS:           "4gb",
		},
	}
}

func TestRenderDirectives(t *testing.T) {
	r, err := NewRenderer("/usr/local/bin/pbs-launcher")
	require.NoError(t, err)

	out, err := r.Render(testJob())
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(out, "#!/bin/bash\n"))
	assert.Contains(t, out, "#PBS -N assim_6day\n")
	assert.Contains(t, out, "#PBS -l walltime=30:00:00\n")
	assert.Contains(t, out, "#PBS -l mem=64gb\n")
	assert.Contains(t, out, "#PBS -l ncpus=4\n")
	assert.Contains(t, out, "#PBS -q normal\n")
	assert.Contains(t, out, "#PBS -l wd\n")
	assert.Contains(t, out, "#PBS -l jobfs=4gb\n")
}

func TestRenderSingleInvocation(t *testing.T) {
	r, err := NewRenderer("/usr/local/bin/pbs-launcher")
	require.NoError(t, err)

	out, err := r.Render(testJob())
	require.NoError(t, err)

	invocation := "/usr/local/bin/pbs-launcher -log /scratch/runs/a1b2c3/run.log -- python runscript.py >> /scratch/runs/a1b2c3/run.log 2>&1"
	assert.Equal(t, 1, strings.Count(out, "pbs-launcher"), "exactly one payload invocation")
	assert.Contains(t, out, invocation)
	assert.True(t, strings.HasSuffix(out, invocation+"\n"))
}

func TestRenderOptionalLines(t *testing.T) {
	r, err := NewRenderer("/usr/local/bin/pbs-launcher")
	require.NoError(t, err)

	t.Run("no wd or jobfs", func(t *testing.T) {
		job := testJob()
		job.Resources.WorkdirAtSubmit = false
		job.Resources.JobFS = ""

		out, err := r.Render(job)
		require.NoError(t, err)
		assert.NotContains(t, out, "-l wd")
		assert.NotContains(t, out, "jobfs")
	})

	t.Run("modules", func(t *testing.T) {
		job := testJob()
		job.Modules = []string{"intel-mpi/2021.5", "netcdf/4.8.0"}

		out, err := r.Render(job)
		require.NoError(t, err)
		assert.Contains(t, out, "module load intel-mpi/2021.5\n")
		assert.Contains(t, out, "module load netcdf/4.8.0\n")
	})

	t.Run("no modules by default", func(t *testing.T) {
		out, err := r.Render(testJob())
		require.NoError(t, err)
		assert.NotContains(t, out, "module load")
	})
}

func TestRenderDeterministic(t *testing.T) {
	r, err := NewRenderer("/usr/local/bin/pbs-launcher")
	require.NoError(t, err)

	first, err := r.Render(testJob())
	require.NoError(t, err)
	second, err := r.Render(testJob())
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestRenderRequiresLogPath(t *testing.T) {
	r, err := NewRenderer("/usr/local/bin/pbs-launcher")
	require.NoError(t, err)

	job := testJob()
	job.LogPath = ""
	_, err = r.Render(job)
	assert.Error(t, err)
}
