package scheduler

import (
	"testing"
	"time"

	"pbs-orchestrator/core/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSubmitQueueOrdering(t *testing.T) {
	sq := NewSubmitQueue()

	base := time.Now()
	third := &models.Job{ID: "3", CreatedAt: base.Add(2 * time.Minute)}
	first := &models.Job{ID: "1", CreatedAt: base}
	second := &models.Job{ID: "2", CreatedAt: base.Add(time.Minute)}

	sq.Enqueue(third)
	sq.Enqueue(first)
	sq.Enqueue(second)
	require.Equal(t, 3, sq.Len())

	assert.Equal(t, "1", sq.PopJob().ID)
	assert.Equal(t, "2", sq.PopJob().ID)
	assert.Equal(t, "3", sq.PopJob().ID)
	assert.Nil(t, sq.PopJob())
}
