package scheduler

import (
	"container/heap"
	"sync"

	"pbs-orchestrator/core/models"
)

// SubmitQueue is a priority queue of runs awaiting submission
type SubmitQueue struct {
	jobs []*queuedJob
	mu   sync.Mutex
}

// queuedJob wraps a job with its heap bookkeeping
type queuedJob struct {
	Job   *models.Job
	Index int // For heap.Interface
}

// NewSubmitQueue creates a new submission queue
func NewSubmitQueue() *SubmitQueue {
	sq := &SubmitQueue{
		jobs: make([]*queuedJob, 0),
	}
	heap.Init(sq)
	return sq
}

// Enqueue adds a job to the queue
func (sq *SubmitQueue) Enqueue(job *models.Job) {
	sq.mu.Lock()
	defer sq.mu.Unlock()

	heap.Push(sq, &queuedJob{Job: job})
}

// PopJob removes and returns the oldest pending job
func (sq *SubmitQueue) PopJob() *models.Job {
	sq.mu.Lock()
	defer sq.mu.Unlock()

	if sq.Len() == 0 {
		return nil
	}

	item := heap.Pop(sq).(*queuedJob)
	return item.Job
}

// Len returns the number of jobs in the queue
func (sq *SubmitQueue) Len() int {
	return len(sq.jobs)
}

// Less orders jobs by creation time so submission is first-come first-served
func (sq *SubmitQueue) Less(i, j int) bool {
	return sq.jobs[i].Job.CreatedAt.Before(sq.jobs[j].Job.CreatedAt)
}

// Swap swaps two jobs
func (sq *SubmitQueue) Swap(i, j int) {
	sq.jobs[i], sq.jobs[j] = sq.jobs[j], sq.jobs[i]
	sq.jobs[i].Index = i
	sq.jobs[j].Index = j
}

// Push implements heap.Interface
func (sq *SubmitQueue) Push(x interface{}) {
	n := len(sq.jobs)
	item := x.(*queuedJob)
	item.Index = n
	sq.jobs = append(sq.jobs, item)
}

// Pop implements heap.Interface
func (sq *SubmitQueue) Pop() interface{} {
	old := sq.jobs
	n := len(old)
	item := old[n-1]
	old[n-1] = nil
	item.Index = -1
	sq.jobs = old[0 : n-1]
	return item
}
