package orchestrator

import (
	"context"
	"sort"

	"github.com/aristath/holistic-planner/internal/planner/domain"
	"github.com/aristath/holistic-planner/internal/planner/scoring"
)

// minEvaluatedBeforeEarlyStop is the floor named in §4.6 step 5: early
// termination never fires before at least this many sequences (or the
// total, if smaller) have been evaluated.
const minEvaluatedBeforeEarlyStop = 10

// CreateHolisticPlan runs batch mode (§4.6): generate every candidate
// sequence, apply the early feasibility filter, sort by priority, then
// evaluate in concurrent batches of ConcurrencyBatchSize while maintaining
// a beam of the top BeamWidth sequences by end-score, stopping early once
// the beam plateaus.
func (o *Orchestrator) CreateHolisticPlan(ctx context.Context, req PlanRequest) (domain.HolisticPlan, error) {
	opps, candidates := generateCandidateSequences(req, o.cfg)

	survivors, drops := feasibilityFilter(candidates, req, o.cfg.PriorityThreshold)
	if len(drops) > 0 {
		o.log.Debug().Interface("dropped_by_reason", drops).Int("survivors", len(survivors)).Msg("early feasibility filter")
	}
	if len(survivors) == 0 {
		return domain.HolisticPlan{Feasible: false, NarrativeSummary: "No actions recommended. The portfolio is well-positioned."}, nil
	}

	sortSequencesByPriority(survivors)

	metrics := prefetchMetrics(survivors, req)
	weights := scoring.DefaultWeights()

	b := newBeam(o.cfg.BeamWidth)
	plateau := 0
	evaluated := 0
	minEvaluated := minEvaluatedBeforeEarlyStop
	if minEvaluated > len(survivors) {
		minEvaluated = len(survivors)
	}

	batchSize := o.cfg.ConcurrencyBatchSize
	if batchSize <= 0 {
		batchSize = 5
	}

	for start := 0; start < len(survivors); start += batchSize {
		if ctx.Err() != nil {
			break
		}
		end := start + batchSize
		if end > len(survivors) {
			end = len(survivors)
		}
		batch := survivors[start:end]

		results := runBatched(ctx, batch, batchSize, func(seq domain.ActionSequence) domain.SequenceEvaluationResult {
			return evaluate(seq, req, metrics, weights)
		})

		for _, r := range results {
			evaluated++
			if b.insert(r) {
				plateau = 0
			} else {
				plateau++
			}
		}

		if evaluated >= minEvaluated && plateau >= o.cfg.PlateauThreshold {
			o.log.Debug().Int("evaluated", evaluated).Msg("beam plateaued, stopping early")
			break
		}
	}

	best, ok := b.best()
	if !ok {
		return domain.HolisticPlan{Feasible: false}, nil
	}

	plan := buildPlan(best, req, opps)
	return plan, nil
}

func sortSequencesByPriority(seqs []domain.ActionSequence) {
	sumPriority := func(s domain.ActionSequence) float64 {
		total := 0.0
		for _, a := range s.Actions {
			total += a.Priority
		}
		return total
	}
	sort.SliceStable(seqs, func(i, j int) bool { return sumPriority(seqs[i]) > sumPriority(seqs[j]) })
}
