package monitoring

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestUsageTrackerTracking(t *testing.T) {
	ut := NewUsageTracker()

	ut.TrackJob("run-1", 10*time.Hour)
	ut.TrackJob("run-2", 5*time.Hour)
	assert.Equal(t, 2, ut.RunningCount())

	fraction := ut.WalltimeFraction("run-1")
	assert.GreaterOrEqual(t, fraction, 0.0)
	assert.Less(t, fraction, 0.01, "a just-started job has consumed almost nothing")

	ut.StopTracking("run-1")
	assert.Equal(t, 1, ut.RunningCount())
	assert.Zero(t, ut.WalltimeFraction("run-1"))
}

func TestUsageTrackerStartStopsOnCancel(t *testing.T) {
	ut := NewUsageTracker()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		ut.Start(ctx)
		close(done)
	}()

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Start did not return after context cancellation")
	}
}
