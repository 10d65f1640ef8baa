package queue

import (
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
	"github.com/shirou/gopsutil/v3/mem"
)

// batchMemoryGuardPercent is the system memory usage above which a
// scheduled batch run is skipped rather than enqueued: a combinatorial
// batch plan evaluates many sequences concurrently and is the single
// heaviest job type this scheduler drives.
const batchMemoryGuardPercent = 90.0

// Scheduler enqueues time-based jobs on cron schedules.
type Scheduler struct {
	manager *Manager
	cron    *cron.Cron
	log     zerolog.Logger
	started bool
	stopped bool
	mu      sync.Mutex
}

// NewScheduler creates a new time-based scheduler
func NewScheduler(manager *Manager) *Scheduler {
	return &Scheduler{
		manager: manager,
		cron:    cron.New(),
		log:     zerolog.Nop(),
	}
}

// SetLogger sets the logger for the scheduler
func (s *Scheduler) SetLogger(log zerolog.Logger) {
	s.log = log.With().Str("component", "time_scheduler").Logger()
}

// Start registers the cron schedules and starts the underlying cron runner.
// Safe to call once; a second call while already running is a no-op.
func (s *Scheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started && !s.stopped {
		s.log.Warn().Msg("Time scheduler already started, ignoring")
		return
	}

	if s.stopped {
		s.cron = cron.New()
		s.stopped = false
	}

	// Incremental planning step: every 5 minutes, amortizing sequence
	// generation/evaluation across many small ticks (§4.6).
	s.mustSchedule("*/5 * * * *", func() {
		s.enqueueTimeBasedJob(JobTypePlannerIncremental, PriorityHigh, 5*time.Minute)
	})

	// Batch planning run: nightly at 01:00, guarded by system memory headroom.
	s.mustSchedule("0 1 * * *", func() {
		if pct, err := memoryUsedPercent(); err == nil && pct > batchMemoryGuardPercent {
			s.log.Warn().Float64("mem_used_percent", pct).Msg("Skipping scheduled planner_batch: memory pressure")
			return
		}
		s.enqueueTimeBasedJob(JobTypePlannerBatch, PriorityMedium, 24*time.Hour)
	})

	// Health check: daily at 04:00.
	s.mustSchedule("0 4 * * *", func() {
		s.enqueueTimeBasedJob(JobTypeHealthCheck, PriorityMedium, 24*time.Hour)
	})

	// Maintenance (prune stale sequences/evaluations): daily at midnight.
	s.mustSchedule("0 0 * * *", func() {
		s.enqueueTimeBasedJob(JobTypeMaintenance, PriorityLow, 24*time.Hour)
	})

	s.cron.Start()
	s.started = true
	s.log.Info().Msg("Time scheduler started")
}

func (s *Scheduler) mustSchedule(spec string, fn func()) {
	if _, err := s.cron.AddFunc(spec, fn); err != nil {
		s.log.Error().Err(err).Str("spec", spec).Msg("Failed to register cron schedule")
	}
}

// memoryUsedPercent reports current system memory utilization.
func memoryUsedPercent() (float64, error) {
	v, err := mem.VirtualMemory()
	if err != nil {
		return 0, err
	}
	return v.UsedPercent, nil
}

// Stop stops the scheduler.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.stopped {
		ctx := s.cron.Stop()
		<-ctx.Done()
		s.stopped = true
		s.started = false
		s.log.Info().Msg("Time scheduler stopped")
	}
}

// enqueueTimeBasedJob enqueues a job if the interval has passed since its
// last recorded execution.
func (s *Scheduler) enqueueTimeBasedJob(jobType JobType, priority Priority, interval time.Duration) bool {
	enqueued := s.manager.EnqueueIfShouldRun(jobType, priority, interval, map[string]interface{}{})
	if enqueued {
		s.log.Info().
			Str("job_type", string(jobType)).
			Dur("interval", interval).
			Msg("Enqueued time-based job")
	} else {
		s.log.Debug().
			Str("job_type", string(jobType)).
			Dur("interval", interval).
			Msg("Skipped time-based job (interval not yet passed)")
	}
	return enqueued
}
