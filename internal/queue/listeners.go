package queue

import (
	"fmt"

	"github.com/aristath/holistic-planner/internal/events"
	"github.com/rs/zerolog"
)

// RegisterListeners wires the event bus to the job queue: state changes that
// invalidate the incremental planner's cached sequences enqueue a fresh
// batch run, and price ticks enqueue an incremental step.
func RegisterListeners(bus *events.Bus, manager *Manager, registry *Registry, log zerolog.Logger) {
	log = log.With().Str("component", "event_listeners").Logger()

	// PortfolioChanged -> planner_batch (CRITICAL priority). Positions, cash,
	// or active-security state changed, which changes the portfolio hash and
	// invalidates every previously cached sequence/evaluation.
	_ = bus.Subscribe(events.PortfolioChanged, func(event *events.Event) {
		job := &Job{
			ID:          fmt.Sprintf("%s-%d", JobTypePlannerBatch, event.Timestamp.UnixNano()),
			Type:        JobTypePlannerBatch,
			Priority:    PriorityCritical,
			Payload:     event.Data,
			CreatedAt:   event.Timestamp,
			AvailableAt: event.Timestamp,
			Retries:     0,
			MaxRetries:  3,
		}
		if err := manager.Enqueue(job); err != nil {
			log.Error().
				Err(err).
				Str("event_type", string(events.PortfolioChanged)).
				Str("job_type", string(JobTypePlannerBatch)).
				Str("job_id", job.ID).
				Msg("Failed to enqueue planner_batch from PortfolioChanged event")
			return
		}
		oldHash, _ := event.Data["old_hash"].(string)
		newHash, _ := event.Data["new_hash"].(string)
		log.Info().
			Str("old_hash", oldHash).
			Str("new_hash", newHash).
			Msg("Enqueued planner_batch due to portfolio change")
	})

	// PriceUpdated -> planner_incremental (LOW priority). A price tick alone
	// doesn't change the portfolio hash, so it's cheap to fold into the next
	// incremental step rather than forcing a full batch re-plan.
	_ = bus.Subscribe(events.PriceUpdated, func(event *events.Event) {
		job := &Job{
			ID:          fmt.Sprintf("%s-%d", JobTypePlannerIncremental, event.Timestamp.UnixNano()),
			Type:        JobTypePlannerIncremental,
			Priority:    PriorityLow,
			Payload:     event.Data,
			CreatedAt:   event.Timestamp,
			AvailableAt: event.Timestamp,
			Retries:     0,
			MaxRetries:  3,
		}
		if err := manager.Enqueue(job); err != nil {
			log.Error().
				Err(err).
				Str("event_type", string(events.PriceUpdated)).
				Str("job_type", string(JobTypePlannerIncremental)).
				Str("job_id", job.ID).
				Msg("Failed to enqueue planner_incremental from PriceUpdated event")
		}
	})
}
