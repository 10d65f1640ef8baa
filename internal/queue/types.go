package queue

import "time"

// JobType represents the type of job
type JobType string

const (
	// JobTypePlannerBatch runs a full batch-mode planning cycle
	// (orchestrator.CreateHolisticPlan) over the current portfolio state.
	JobTypePlannerBatch JobType = "planner_batch"
	// JobTypePlannerIncremental runs one amortized incremental-mode step
	// (orchestrator.ProcessPlannerIncremental).
	JobTypePlannerIncremental JobType = "planner_incremental"
	// JobTypeHealthCheck is a lightweight periodic self-check (DB reachable,
	// queue not backed up, system memory headroom).
	JobTypeHealthCheck JobType = "health_check"
	// JobTypeMaintenance prunes stale sequences/evaluations left behind by
	// portfolio-hash invalidation that outlive their retention window.
	JobTypeMaintenance JobType = "maintenance"
)

// Priority represents job priority
type Priority int

const (
	PriorityLow Priority = iota
	PriorityMedium
	PriorityHigh
	PriorityCritical
)

// Job represents a queued job
type Job struct {
	ID          string
	Type        JobType
	Priority    Priority
	Payload     map[string]interface{}
	CreatedAt   time.Time
	AvailableAt time.Time
	Retries     int
	MaxRetries  int

	progressReporter ProgressReporter
}

// SetProgressReporter attaches a reporter a handler can use to publish
// incremental progress while it runs. Set by WorkerPool just before
// dispatch; nil when no event manager is configured.
func (j *Job) SetProgressReporter(r ProgressReporter) {
	j.progressReporter = r
}

// GetProgressReporter returns the reporter attached by WorkerPool, or nil.
func (j *Job) GetProgressReporter() ProgressReporter {
	return j.progressReporter
}

// ProgressReporter lets a long-running job handler (e.g. a batch plan over
// thousands of sequences) report intermediate progress without depending on
// the queue package's internals.
type ProgressReporter interface {
	Report(percent float64, message string)
}

// Queue interface for job queue operations
type Queue interface {
	Enqueue(job *Job) error
	Dequeue() (*Job, error)
	Size() int
}
