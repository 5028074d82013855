package scheduler

import (
	"os"
	"strings"
	"testing"

	"pbs-orchestrator/core/models"
	"pbs-orchestrator/core/spec"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const resubmitSpec = `
run:
  name: assim_6day
  payload: python runscript.py
  resources:
    walltime: "30:00:00"
    memory: 64gb
    ncpus: 4
    queue: normal
`

func TestPrepareRunDirIndependentRuns(t *testing.T) {
	runRoot := t.TempDir()
	s := NewScheduler(nil, nil, nil, runRoot)

	// The same spec submitted twice must never share a directory or log
	first, err := spec.ParseRunSpec(resubmitSpec)
	require.NoError(t, err)
	first.ID = "run-1"
	second, err := spec.ParseRunSpec(resubmitSpec)
	require.NoError(t, err)
	second.ID = "run-2"

	require.NoError(t, s.prepareRunDir(first))
	require.NoError(t, s.prepareRunDir(second))

	assert.NotEqual(t, first.RunDir, second.RunDir)
	assert.NotEqual(t, first.ScriptPath, second.ScriptPath)
	assert.NotEqual(t, first.LogPath, second.LogPath)

	for _, job := range []*models.Job{first, second} {
		info, err := os.Stat(job.RunDir)
		require.NoError(t, err)
		assert.True(t, info.IsDir())
		assert.True(t, strings.HasPrefix(job.ScriptPath, job.RunDir))
		assert.True(t, strings.HasPrefix(job.LogPath, job.RunDir))
	}
}

func TestPrepareRunDirHonorsSpecBaseDir(t *testing.T) {
	base := t.TempDir()
	s := NewScheduler(nil, nil, nil, t.TempDir())

	job, err := spec.ParseRunSpec(resubmitSpec)
	require.NoError(t, err)
	job.ID = "run-3"
	job.RunDir = base

	require.NoError(t, s.prepareRunDir(job))
	assert.True(t, strings.HasPrefix(job.RunDir, base), "spec run_dir is the base for the per-run dir")
}
