package queue

import (
	"errors"
	"sync"
	"time"
)

// MemoryQueue is an in-process priority queue ordered by (available, priority
// desc, enqueue order). Jobs not yet AvailableAt are skipped by Dequeue
// until their time arrives, which is what lets WorkerPool's retry backoff
// (job.AvailableAt pushed into the future) coexist with normal enqueuing.
type MemoryQueue struct {
	mu   sync.Mutex
	jobs []*Job
}

// NewMemoryQueue returns an empty queue.
func NewMemoryQueue() *MemoryQueue {
	return &MemoryQueue{}
}

// Enqueue adds a job. Safe for concurrent use.
func (q *MemoryQueue) Enqueue(job *Job) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.jobs = append(q.jobs, job)
	return nil
}

// Dequeue removes and returns the highest-priority available job: among
// jobs whose AvailableAt has passed, highest Priority first, ties broken by
// enqueue order (FIFO).
func (q *MemoryQueue) Dequeue() (*Job, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	now := time.Now()
	best := -1
	for i, j := range q.jobs {
		if j.AvailableAt.After(now) {
			continue
		}
		if best == -1 {
			best = i
			continue
		}
		if j.Priority > q.jobs[best].Priority {
			best = i
		}
	}
	if best == -1 {
		return nil, errors.New("queue: no available job")
	}

	job := q.jobs[best]
	q.jobs = append(q.jobs[:best], q.jobs[best+1:]...)
	return job, nil
}

// Size returns the total number of jobs currently held, including ones not
// yet available.
func (q *MemoryQueue) Size() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.jobs)
}
