package queue

import (
	"fmt"
	"sync"
	"time"

	"github.com/aristath/holistic-planner/internal/events"
	"github.com/rs/zerolog"
)

// WorkerPool manages workers that process jobs
type WorkerPool struct {
	manager      *Manager
	registry     *Registry
	workers      int
	stop         chan struct{}
	log          zerolog.Logger
	stopped      bool
	started      bool
	mu           sync.Mutex
	eventManager *events.Manager
}

// NewWorkerPool creates a new worker pool
func NewWorkerPool(manager *Manager, registry *Registry, workers int) *WorkerPool {
	return &WorkerPool{
		manager:  manager,
		registry: registry,
		workers:  workers,
		stop:     make(chan struct{}),
		log:      zerolog.Nop(),
	}
}

// SetLogger sets the logger for the worker pool
func (wp *WorkerPool) SetLogger(log zerolog.Logger) {
	wp.log = log.With().Str("component", "worker_pool").Logger()
}

// SetEventManager wires job-lifecycle events (started/completed/failed) onto
// the bus. Optional: a nil event manager (the default) means processJob
// skips emission and GetProgressReporter returns nil to handlers.
func (wp *WorkerPool) SetEventManager(em *events.Manager) {
	wp.eventManager = em
}

// jobDescriptions gives a human-readable label for the lifecycle events
// emitted around each job type; unlisted types fall back to a generic label.
var jobDescriptions = map[JobType]string{
	JobTypePlannerBatch:       "Generating holistic rebalancing plan",
	JobTypePlannerIncremental: "Advancing incremental rebalancing plan",
	JobTypeHealthCheck:        "Running health check",
	JobTypeMaintenance:        "Pruning stale planner state",
}

func describeJob(jobType JobType) string {
	if d, ok := jobDescriptions[jobType]; ok {
		return d
	}
	return "Processing job"
}

// reporter implements ProgressReporter by forwarding to the worker pool's
// event manager, scoped to one job.
type reporter struct {
	em      *events.Manager
	jobID   string
	jobType string
}

func (r *reporter) Report(percent float64, message string) {
	r.em.EmitJobProgress(r.jobID, r.jobType, percent, message)
}

// Start starts the worker pool
func (wp *WorkerPool) Start() {
	wp.mu.Lock()
	defer wp.mu.Unlock()

	// Prevent multiple starts
	if wp.started && !wp.stopped {
		wp.log.Warn().Msg("Worker pool already started, ignoring")
		return
	}

	if wp.stopped {
		// Reset stop channel if it was stopped
		wp.stop = make(chan struct{})
		wp.stopped = false
	}

	wp.started = true
	for i := 0; i < wp.workers; i++ {
		go wp.worker(i)
	}
}

// Stop stops the worker pool
func (wp *WorkerPool) Stop() {
	wp.mu.Lock()
	defer wp.mu.Unlock()
	if !wp.stopped {
		close(wp.stop)
		wp.stopped = true
		wp.started = false
		wp.log.Info().Msg("Worker pool stopped")
	}
}

func (wp *WorkerPool) worker(id int) {
	wp.log.Debug().Int("worker_id", id).Msg("Worker started")

	for {
		select {
		case <-wp.stop:
			wp.log.Debug().Int("worker_id", id).Msg("Worker stopped")
			return
		default:
			job, err := wp.manager.Dequeue()
			if err != nil {
				// Queue empty, wait a bit
				time.Sleep(100 * time.Millisecond)
				continue
			}

			wp.processJob(job)
		}
	}
}

func (wp *WorkerPool) processJob(job *Job) {
	start := time.Now()

	// Recover from panics in job handlers
	defer func() {
		if r := recover(); r != nil {
			wp.log.Error().
				Interface("panic", r).
				Str("job_id", job.ID).
				Str("job_type", string(job.Type)).
				Msg("Job handler panicked")
			if err := wp.manager.RecordExecution(job.Type, "failed"); err != nil {
				wp.log.Error().Err(err).Str("job_type", string(job.Type)).Msg("Failed to record execution after panic")
			}
			if wp.eventManager != nil {
				wp.eventManager.EmitJobFailed(job.ID, string(job.Type), time.Since(start).Seconds(), fmt.Errorf("panic: %v", r))
			}
		}
	}()

	wp.log.Debug().
		Str("job_id", job.ID).
		Str("job_type", string(job.Type)).
		Msg("Processing job")

	if wp.eventManager != nil {
		job.SetProgressReporter(&reporter{em: wp.eventManager, jobID: job.ID, jobType: string(job.Type)})
		wp.eventManager.EmitJobStarted(job.ID, string(job.Type), describeJob(job.Type))
	}

	handler, exists := wp.registry.Get(job.Type)
	if !exists {
		wp.log.Error().
			Str("job_id", job.ID).
			Str("job_type", string(job.Type)).
			Msg("No handler registered for job type")
		if err := wp.manager.RecordExecution(job.Type, "failed"); err != nil {
			wp.log.Error().Err(err).Str("job_type", string(job.Type)).Msg("Failed to record execution for missing handler")
		}
		if wp.eventManager != nil {
			wp.eventManager.EmitJobFailed(job.ID, string(job.Type), time.Since(start).Seconds(), fmt.Errorf("no handler registered"))
		}
		return
	}

	err := handler(job)
	if err != nil {
		wp.log.Error().
			Err(err).
			Str("job_id", job.ID).
			Str("job_type", string(job.Type)).
			Int("retries", job.Retries).
			Msg("Job failed")

		// Retry if not exceeded max retries
		if job.Retries < job.MaxRetries {
			job.Retries++
			// Linear backoff: one second per retry so far
			delay := time.Duration(job.Retries) * time.Second
			job.AvailableAt = time.Now().Add(delay)
			if err := wp.manager.Enqueue(job); err != nil {
				wp.log.Error().Err(err).Str("job_id", job.ID).Msg("Failed to enqueue job for retry")
				// Record failure since we can't retry
				if recordErr := wp.manager.RecordExecution(job.Type, "failed"); recordErr != nil {
					wp.log.Error().Err(recordErr).Str("job_type", string(job.Type)).Msg("Failed to record execution after enqueue failure")
				}
			} else {
				wp.log.Debug().
					Str("job_id", job.ID).
					Int("retries", job.Retries).
					Dur("delay", delay).
					Msg("Retrying job")
			}
		} else {
			wp.log.Error().
				Str("job_id", job.ID).
				Str("job_type", string(job.Type)).
				Msg("Job failed after max retries")
			if err := wp.manager.RecordExecution(job.Type, "failed"); err != nil {
				wp.log.Error().Err(err).Str("job_type", string(job.Type)).Msg("Failed to record execution after max retries")
			}
			if wp.eventManager != nil {
				wp.eventManager.EmitJobFailed(job.ID, string(job.Type), time.Since(start).Seconds(), err)
			}
		}
		return
	}

	wp.log.Debug().
		Str("job_id", job.ID).
		Str("job_type", string(job.Type)).
		Msg("Job completed successfully")

	if err := wp.manager.RecordExecution(job.Type, "success"); err != nil {
		wp.log.Error().Err(err).Str("job_type", string(job.Type)).Msg("Failed to record successful execution")
	}
	if wp.eventManager != nil {
		wp.eventManager.EmitJobCompleted(job.ID, string(job.Type), time.Since(start).Seconds())
	}
}
