package monitoring

import (
	"context"
	"log"
	"sync"
	"time"
)

// UsageTracker tracks walltime consumption for running jobs
type UsageTracker struct {
	usage map[string]*JobUsage
	mu    sync.RWMutex
}

// JobUsage tracks walltime for a single running job
type JobUsage struct {
	JobID             string
	StartTime         time.Time
	RequestedWalltime time.Duration
	LastUpdate        time.Time
}

// NewUsageTracker creates a new usage tracker
func NewUsageTracker() *UsageTracker {
	return &UsageTracker{
		usage: make(map[string]*JobUsage),
	}
}

// Start starts the usage tracking worker
func (ut *UsageTracker) Start(ctx context.Context) {
	ticker := time.NewTicker(1 * time.Minute) // Update every minute
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			ut.reportUsage()
		}
	}
}

// TrackJob starts tracking walltime for a job
func (ut *UsageTracker) TrackJob(jobID string, requestedWalltime time.Duration) {
	ut.mu.Lock()
	defer ut.mu.Unlock()

	ut.usage[jobID] = &JobUsage{
		JobID:             jobID,
		StartTime:         time.Now(),
		RequestedWalltime: requestedWalltime,
		LastUpdate:        time.Now(),
	}
}

// StopTracking removes a job from tracking
func (ut *UsageTracker) StopTracking(jobID string) {
	ut.mu.Lock()
	defer ut.mu.Unlock()

	delete(ut.usage, jobID)
}

// WalltimeFraction returns the share of requested walltime consumed so far
func (ut *UsageTracker) WalltimeFraction(jobID string) float64 {
	ut.mu.RLock()
	defer ut.mu.RUnlock()

	u, ok := ut.usage[jobID]
	if !ok || u.RequestedWalltime <= 0 {
		return 0
	}
	return time.Since(u.StartTime).Seconds() / u.RequestedWalltime.Seconds()
}

// RunningCount returns how many jobs are currently tracked
func (ut *UsageTracker) RunningCount() int {
	ut.mu.RLock()
	defer ut.mu.RUnlock()

	return len(ut.usage)
}

// reportUsage logs jobs approaching their walltime limit
func (ut *UsageTracker) reportUsage() {
	ut.mu.Lock()
	defer ut.mu.Unlock()

	for jobID, u := range ut.usage {
		u.LastUpdate = time.Now()
		if u.RequestedWalltime <= 0 {
			continue
		}
		fraction := time.Since(u.StartTime).Seconds() / u.RequestedWalltime.Seconds()
		if fraction > 0.9 {
			log.Printf("Job %s has consumed %.0f%% of its requested walltime", jobID, fraction*100)
		}
	}
}
