package orchestrator

import (
	"context"

	"github.com/aristath/holistic-planner/internal/planner/domain"
	"github.com/aristath/holistic-planner/internal/planner/scoring"
)

// ProcessPlannerIncremental runs one amortized step of incremental mode
// (§4.6): invalidate stale portfolio-hash rows, generate and bulk-insert
// sequences on first entry, evaluate the next BatchSize pending sequences,
// update best_result monotonically, and return the best plan found so far.
// A caller invokes this repeatedly to progress the work across cycles.
func (o *Orchestrator) ProcessPlannerIncremental(ctx context.Context, req PlanRequest) (*domain.HolisticPlan, error) {
	hash := portfolioHash(req)

	if err := o.invalidateStaleHashes(hash); err != nil {
		return nil, err
	}

	metricsCache := o.loadMetricsCache(hash)
	req.MetricsLookup = cachedMetricsLookup(req.MetricsLookup, metricsCache)

	count, err := o.repo.CountSequences(hash)
	if err != nil {
		return nil, err
	}
	opps, candidates := generateCandidateSequences(req, o.cfg)
	if count == 0 {
		survivors, drops := feasibilityFilter(candidates, req, o.cfg.PriorityThreshold)
		if len(drops) > 0 {
			o.log.Debug().Interface("dropped_by_reason", drops).Msg("incremental: early feasibility filter")
		}
		for _, seq := range survivors {
			if err := o.repo.InsertSequence(hash, seq); err != nil {
				return nil, err
			}
		}
	}

	pending, err := o.repo.GetPendingSequences(hash, o.cfg.BatchSize)
	if err != nil {
		return nil, err
	}

	weights := scoring.DefaultWeights()
	allPending := make([]domain.ActionSequence, len(pending))
	for i, rec := range pending {
		allPending[i] = rec.Sequence
	}
	metrics := prefetchMetrics(allPending, req)

	batchSize := o.cfg.ConcurrencyBatchSize
	if batchSize <= 0 {
		batchSize = 5
	}

	results := runBatched(ctx, allPending, batchSize, func(seq domain.ActionSequence) domain.SequenceEvaluationResult {
		if existing, _ := o.repo.GetEvaluation(seq.SequenceHash, hash); existing != nil {
			return domain.SequenceEvaluationResult{Sequence: seq, EndScore: existing.EndScore, Breakdown: existing.Breakdown, Feasible: true}
		}
		return evaluate(seq, req, metrics, weights)
	})

	var best *domain.SequenceEvaluationResult
	for i, r := range results {
		eval := domain.EvaluationResult{
			SequenceHash: r.Sequence.SequenceHash, PortfolioHash: hash,
			EndScore: r.EndScore, Breakdown: r.Breakdown, EndCash: r.EndCashEUR,
			EndPositions: r.EndPortfolio.Positions, TotalValue: r.EndPortfolio.TotalValue,
			DivScore: r.Breakdown["diversification"],
		}
		if err := o.repo.InsertEvaluation(eval); err != nil {
			return nil, err
		}
		if err := o.repo.MarkSequenceCompleted(r.Sequence.SequenceHash, hash); err != nil {
			return nil, err
		}
		if best == nil || r.EndScore > best.EndScore {
			best = &results[i]
		}
	}

	if best != nil {
		plan := buildPlan(*best, req, opps)
		evalResult := domain.EvaluationResult{SequenceHash: best.Sequence.SequenceHash, PortfolioHash: hash, EndScore: best.EndScore}
		if err := o.repo.UpsertBestResult(hash, evalResult, plan); err != nil {
			return nil, err
		}
	}

	o.saveMetricsCache(hash, metricsCache)

	return o.repo.GetBestResult(hash)
}

// invalidateStaleHashes implements §4.6 incremental step 1: delete every
// sequences/evaluations/best_result row whose portfolio_hash no longer
// matches the current state (portfolio-change invalidation).
func (o *Orchestrator) invalidateStaleHashes(currentHash string) error {
	hashes, err := o.repo.ListDistinctPortfolioHashes()
	if err != nil {
		return err
	}
	for _, hash := range hashes {
		if hash == currentHash {
			continue
		}
		if err := o.repo.DeleteSequencesByPortfolioHash(hash); err != nil {
			return err
		}
		if err := o.repo.DeleteEvaluationsByPortfolioHash(hash); err != nil {
			return err
		}
		if err := o.repo.DeleteBestResult(hash); err != nil {
			return err
		}
		o.log.Info().Str("stale_portfolio_hash", hash).Msg("invalidated stale portfolio state")
	}
	return nil
}
