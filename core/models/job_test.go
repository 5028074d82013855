package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseWalltime(t *testing.T) {
	t.Run("valid", func(t *testing.T) {
		d, err := ParseWalltime("30:00:00")
		require.NoError(t, err)
		assert.Equal(t, 30*time.Hour, d)

		d, err = ParseWalltime("00:05:30")
		require.NoError(t, err)
		assert.Equal(t, 5*time.Minute+30*time.Second, d)
	})

	t.Run("round trip", func(t *testing.T) {
		for _, s := range []string{"30:00:00", "01:02:03", "120:00:00"} {
			d, err := ParseWalltime(s)
			require.NoError(t, err)
			assert.Equal(t, s, FormatWalltime(d))
		}
	})

	t.Run("invalid", func(t *testing.T) {
		for _, s := range []string{"", "30", "30:00", "abc", "00:61:00", "00:00:99", "00:00:00"} {
			_, err := ParseWalltime(s)
			assert.Error(t, err, "input %q", s)
		}
	})

	t.Run("trailing garbage", func(t *testing.T) {
		for _, s := range []string{"30:00:00 extra", "01:02:03xyz", " 30:00:00", "30:00:00\n"} {
			_, err := ParseWalltime(s)
			assert.Error(t, err, "input %q", s)
		}
	})
}

func TestJobStatusTerminal(t *testing.T) {
	assert.True(t, JobStatusCompleted.Terminal())
	assert.True(t, JobStatusFailed.Terminal())
	assert.True(t, JobStatusKilled.Terminal())
	assert.True(t, JobStatusCancelled.Terminal())

	assert.False(t, JobStatusPending.Terminal())
	assert.False(t, JobStatusSubmitted.Terminal())
	assert.False(t, JobStatusQueued.Terminal())
	assert.False(t, JobStatusRunning.Terminal())
}
