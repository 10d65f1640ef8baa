package events

import (
	"time"

	"github.com/rs/zerolog"
)

// Job lifecycle event types, emitted by the queue's worker pool so anything
// on the bus (a progress log, a future dashboard) can observe job execution
// without coupling to the queue package.
const (
	JobStarted   EventType = "job_started"
	JobCompleted EventType = "job_completed"
	JobFailed    EventType = "job_failed"
	JobProgress  EventType = "job_progress"
)

// JobProgressData is the typed payload attached to JobProgress events.
type JobProgressData struct {
	JobID   string
	JobType string
	Percent float64
	Message string
}

// JobStatusData is the typed payload attached to JobStarted/JobCompleted/
// JobFailed events.
type JobStatusData struct {
	JobID       string
	JobType     string
	Status      string
	Description string
	Duration    float64
	Error       string
}

// Manager is a thin convenience layer over Bus for emitting job-lifecycle
// events with a typed payload alongside the plain Data map.
type Manager struct {
	bus *Bus
	log zerolog.Logger
}

// NewManager wraps bus with job-lifecycle emit helpers.
func NewManager(bus *Bus, log zerolog.Logger) *Manager {
	return &Manager{bus: bus, log: log.With().Str("component", "event_manager").Logger()}
}

func (m *Manager) emit(eventType EventType, status string, data *JobStatusData) {
	m.bus.EmitEvent(&Event{
		Type:      eventType,
		Timestamp: time.Now(),
		Module:    "queue",
		Data: map[string]interface{}{
			"job_id":   data.JobID,
			"job_type": data.JobType,
			"status":   status,
		},
		TypedData: data,
	})
}

// EmitJobStarted fires when a worker picks a job off the queue.
func (m *Manager) EmitJobStarted(jobID, jobType, description string) {
	m.emit(JobStarted, "started", &JobStatusData{
		JobID: jobID, JobType: jobType, Status: "started", Description: description,
	})
}

// EmitJobCompleted fires when a job handler returns without error.
func (m *Manager) EmitJobCompleted(jobID, jobType string, duration float64) {
	m.emit(JobCompleted, "completed", &JobStatusData{
		JobID: jobID, JobType: jobType, Status: "completed", Duration: duration,
	})
}

// EmitJobFailed fires when a job handler errors or panics.
func (m *Manager) EmitJobFailed(jobID, jobType string, duration float64, err error) {
	m.emit(JobFailed, "failed", &JobStatusData{
		JobID: jobID, JobType: jobType, Status: "failed", Duration: duration, Error: err.Error(),
	})
}

// EmitJobProgress fires when a running handler reports intermediate
// progress via its injected ProgressReporter.
func (m *Manager) EmitJobProgress(jobID, jobType string, percent float64, message string) {
	data := &JobProgressData{JobID: jobID, JobType: jobType, Percent: percent, Message: message}
	m.bus.EmitEvent(&Event{
		Type:      JobProgress,
		Timestamp: time.Now(),
		Module:    "queue",
		Data: map[string]interface{}{
			"job_id": jobID, "job_type": jobType, "percent": percent, "message": message,
		},
		TypedData: data,
	})
}
