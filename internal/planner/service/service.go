// Package service adapts queue jobs to orchestrator calls. It is the
// boundary named in spec.md §1's "explicitly out of scope" list: building a
// PlanRequest from live portfolio/price/metrics data is an external
// collaborator's job, so this package only knows how to decode one out of a
// job's JSON-shaped payload.
package service

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/aristath/holistic-planner/internal/planner/domain"
	"github.com/aristath/holistic-planner/internal/planner/orchestrator"
	"github.com/rs/zerolog"
)

// payloadRequest mirrors orchestrator.PlanRequest's JSON shape, plus a
// Metrics side-table the real metrics cache would otherwise serve directly;
// here it travels alongside the request since there's no live cache wired
// into this process (§1: "consumed from a metrics cache; their derivation
// is out of scope").
type payloadRequest struct {
	Context        domain.PortfolioContext           `json:"Context"`
	Securities     map[string]domain.Security        `json:"Securities"`
	Prices         map[string]float64                `json:"Prices"`
	TargetWeights  map[string]float64                `json:"TargetWeights"`
	RecentlyBought map[string]bool                   `json:"RecentlyBought"`
	RecentlySold   map[string]bool                   `json:"RecentlySold"`
	AvailableCash  float64                            `json:"AvailableCash"`
	Metrics        map[string]domain.SecurityMetrics `json:"Metrics"`
}

// PlanRequestFromPayload decodes a queue.Job's Payload map into an
// orchestrator.PlanRequest. Payload is expected to carry the JSON-encoded
// fields an upstream portfolio/price feed would supply for one planning
// call; a "Metrics" side-table backs MetricsLookup since no live metrics
// cache collaborator exists in this process.
func PlanRequestFromPayload(payload map[string]interface{}) (orchestrator.PlanRequest, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return orchestrator.PlanRequest{}, fmt.Errorf("marshal job payload: %w", err)
	}

	var pr payloadRequest
	if err := json.Unmarshal(raw, &pr); err != nil {
		return orchestrator.PlanRequest{}, fmt.Errorf("unmarshal job payload: %w", err)
	}

	metrics := pr.Metrics
	return orchestrator.PlanRequest{
		Context:        pr.Context,
		Securities:     pr.Securities,
		Prices:         pr.Prices,
		TargetWeights:  pr.TargetWeights,
		RecentlyBought: pr.RecentlyBought,
		RecentlySold:   pr.RecentlySold,
		AvailableCash:  pr.AvailableCash,
		MetricsLookup: func(symbol string) domain.SecurityMetrics {
			return metrics[symbol]
		},
	}, nil
}

// PlannerService wires a queue handler to the orchestrator's batch and
// incremental entry points.
type PlannerService struct {
	orch *orchestrator.Orchestrator
	log  zerolog.Logger
}

// New constructs a PlannerService around an already-configured orchestrator.
func New(orch *orchestrator.Orchestrator, log zerolog.Logger) *PlannerService {
	return &PlannerService{orch: orch, log: log.With().Str("component", "planner_service").Logger()}
}

// RunBatch decodes payload and runs one full batch planning call (§4.6
// batch mode), logging the resulting plan's score and step count.
func (s *PlannerService) RunBatch(ctx context.Context, payload map[string]interface{}) error {
	req, err := PlanRequestFromPayload(payload)
	if err != nil {
		return err
	}
	plan, err := s.orch.CreateHolisticPlan(ctx, req)
	if err != nil {
		return fmt.Errorf("create holistic plan: %w", err)
	}
	s.log.Info().
		Float64("score", plan.EndStateScore).
		Int("steps", len(plan.Steps)).
		Msg("batch plan generated")
	return nil
}

// RunIncremental decodes payload and advances one incremental step (§4.6
// incremental mode).
func (s *PlannerService) RunIncremental(ctx context.Context, payload map[string]interface{}) error {
	req, err := PlanRequestFromPayload(payload)
	if err != nil {
		return err
	}
	plan, err := s.orch.ProcessPlannerIncremental(ctx, req)
	if err != nil {
		return fmt.Errorf("process planner incremental: %w", err)
	}
	if plan == nil {
		s.log.Debug().Msg("incremental step produced no best plan yet")
		return nil
	}
	s.log.Info().
		Float64("score", plan.EndStateScore).
		Int("steps", len(plan.Steps)).
		Msg("incremental step advanced best plan")
	return nil
}
