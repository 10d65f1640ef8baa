// Package orchestrator implements C6: the batch and incremental planning
// entry points that tie together the opportunity identifier, sequence
// generator, simulator, scorer, narrative generator, and persistence layer.
// Grounded on the bounded-fan-out batch-of-5 concurrency pattern described
// in spec.md §4.6/§5 and on internal/queue/worker.go's zerolog-scoped
// component logging style.
package orchestrator

import (
	"context"
	"sort"

	"github.com/aristath/holistic-planner/internal/planner/domain"
	"github.com/aristath/holistic-planner/internal/planner/narrative"
	"github.com/aristath/holistic-planner/internal/planner/opportunities"
	"github.com/aristath/holistic-planner/internal/planner/repository"
	"github.com/aristath/holistic-planner/internal/planner/scoring"
	"github.com/aristath/holistic-planner/internal/planner/sequences"
	"github.com/aristath/holistic-planner/internal/planner/simulation"
	"github.com/rs/zerolog"
)

// PlanRequest bundles everything a planning call needs beyond the
// orchestrator's own configuration (§6 "Inputs consumed by the core").
type PlanRequest struct {
	Context        domain.PortfolioContext
	Securities     map[string]domain.Security
	Prices         map[string]float64
	TargetWeights  map[string]float64
	RecentlyBought map[string]bool
	RecentlySold   map[string]bool
	AvailableCash  float64
	// MetricsLookup supplies the per-symbol metrics cache entry (§4.5); the
	// orchestrator calls it only for symbols that actually appear in some
	// end state, never for the whole universe.
	MetricsLookup func(symbol string) domain.SecurityMetrics
}

// Orchestrator is C6, constructed with a frozen configuration and a
// persistence backend (sqliterepo or memrepo).
type Orchestrator struct {
	cfg  domain.PlannerConfiguration
	repo repository.PlannerRepository
	log  zerolog.Logger
}

// New constructs an Orchestrator. cfg must already be validated (see
// domain.NewPlannerConfiguration).
func New(cfg domain.PlannerConfiguration, repo repository.PlannerRepository, log zerolog.Logger) *Orchestrator {
	return &Orchestrator{cfg: cfg, repo: repo, log: log.With().Str("component", "planner_orchestrator").Logger()}
}

// portfolioHash derives the stable fingerprint of the request's state (§3).
// Position quantities are approximated from EUR value / average cost, since
// PortfolioContext carries EUR values rather than share counts.
func portfolioHash(req PlanRequest) string {
	positions := make(map[string]int, len(req.Context.Positions))
	active := make(map[string]bool, len(req.Securities))
	cash := map[string]float64{"EUR": req.AvailableCash}

	for symbol, value := range req.Context.Positions {
		positions[symbol] = estimateQuantity(req.Context, symbol, value)
	}
	for symbol, sec := range req.Securities {
		active[symbol] = sec.AllowBuy || sec.AllowSell
	}
	return domain.GeneratePortfolioHash(positions, active, cash, nil)
}

func estimateQuantity(ctx domain.PortfolioContext, symbol string, value float64) int {
	price := ctx.PositionAvgPrices[symbol]
	if price <= 0 {
		price = ctx.CurrentPrices[symbol]
	}
	if price <= 0 {
		return 0
	}
	return int(value / price)
}

func heldQuantities(req PlanRequest) map[string]int {
	out := make(map[string]int, len(req.Context.Positions))
	for symbol, value := range req.Context.Positions {
		out[symbol] = estimateQuantity(req.Context, symbol, value)
	}
	return out
}

func generateCandidateSequences(req PlanRequest, cfg domain.PlannerConfiguration) (domain.OpportunitiesByCategory, []domain.ActionSequence) {
	opps := opportunities.Identify(opportunities.Input{
		Context:                req.Context,
		Securities:             req.Securities,
		Prices:                 req.Prices,
		TargetWeights:          req.TargetWeights,
		RecentlyBought:         req.RecentlyBought,
		RecentlySold:           req.RecentlySold,
		TransactionCostFixed:   cfg.TransactionCostFixed,
		TransactionCostPercent: cfg.TransactionCostPercent,
	})

	seqs := sequences.Generate(opps, sequences.Params{
		MaxDepth:                   cfg.MaxPlanDepth,
		PriorityThreshold:          cfg.PriorityThreshold,
		EnableCombinatorial:        cfg.EnableCombinatorial,
		CombinatorialMaxCombos:     cfg.CombinatorialMaxCombinations,
		CombinatorialMaxSells:      cfg.CombinatorialMaxSells,
		CombinatorialMaxBuys:       cfg.CombinatorialMaxBuys,
		CombinatorialMaxCandidates: cfg.CombinatorialMaxCandidates,
		EnableDiverseSelection:     cfg.EnableDiverseSelection,
		DiversityWeight:            cfg.DiversityWeight,
		MaxPerCategory:             cfg.MaxOpportunitiesPerCategory,
		AvailableCash:              req.AvailableCash,
	})
	return opps, seqs
}

// feasibilityFilter applies §4.6 step 2 and returns the survivors plus a
// count of drops per reason, for logging.
func feasibilityFilter(seqs []domain.ActionSequence, req PlanRequest, threshold float64) ([]domain.ActionSequence, map[string]int) {
	held := heldQuantities(req)
	drops := make(map[string]int)
	var survivors []domain.ActionSequence

	for _, seq := range seqs {
		if len(seq.Actions) == 0 {
			drops["empty"]++
			continue
		}
		if seq.Priority < threshold {
			drops["below_priority_threshold"]++
			continue
		}
		reason := simulation.CheckSequenceFeasibility(seq, req.AvailableCash, req.Securities, held)
		if reason != "" {
			drops[reason]++
			continue
		}
		survivors = append(survivors, seq)
	}
	return survivors, drops
}

// evaluate simulates and scores one sequence against the request's starting
// state, returning the full result.
func evaluate(seq domain.ActionSequence, req PlanRequest, metrics map[string]domain.SecurityMetrics, weights scoring.Weights) domain.SequenceEvaluationResult {
	endCtx, endCash := simulation.SimulateSequence(seq.Actions, req.Context, req.AvailableCash, req.Securities)
	score, breakdown := scoring.EndStateScore(endCtx, metrics, weights)
	return domain.SequenceEvaluationResult{
		Sequence: seq, EndScore: score, Breakdown: breakdown,
		EndCashEUR: endCash, EndPortfolio: endCtx, Feasible: true,
	}
}

// prefetchMetrics pre-simulates every survivor once to discover every
// symbol appearing in any end-state position, then calls MetricsLookup only
// for those symbols (§4.6 common preamble).
func prefetchMetrics(seqs []domain.ActionSequence, req PlanRequest) map[string]domain.SecurityMetrics {
	seen := make(map[string]bool)
	for symbol := range req.Context.Positions {
		seen[symbol] = true
	}
	for _, seq := range seqs {
		endCtx, _ := simulation.SimulateSequence(seq.Actions, req.Context, req.AvailableCash, req.Securities)
		for symbol := range endCtx.Positions {
			seen[symbol] = true
		}
	}
	out := make(map[string]domain.SecurityMetrics, len(seen))
	if req.MetricsLookup == nil {
		return out
	}
	for symbol := range seen {
		out[symbol] = req.MetricsLookup(symbol)
	}
	return out
}

func buildPlan(best domain.SequenceEvaluationResult, req PlanRequest, opps domain.OpportunitiesByCategory) domain.HolisticPlan {
	currentScore := scoring.ScorePortfolio(req.Context).Total / 100
	steps := make([]domain.HolisticStep, len(best.Sequence.Actions))
	var cashGenerated, cashRequired float64

	for i, a := range best.Sequence.Actions {
		steps[i] = domain.HolisticStep{
			StepNumber: i + 1, Side: a.Side, Symbol: a.Symbol, Name: a.Name,
			Quantity: a.Quantity, EstimatedPrice: a.Price, EstimatedValue: a.ValueEUR,
			Currency: a.Currency, Reason: a.Reason,
			Narrative:       narrative.GenerateStepNarrative(a, req.Context, opps),
			IsWindfall:      a.HasTag("windfall"),
			IsAveragingDown: a.HasTag("averaging_down"),
			ContributesTo:   best.Sequence.PatternType,
		}
		if a.Side == domain.SideSell {
			cashGenerated += a.ValueEUR
		} else {
			cashRequired += a.ValueEUR
		}
	}

	return domain.HolisticPlan{
		Steps:            steps,
		CurrentScore:     currentScore,
		EndStateScore:    best.EndScore,
		Improvement:      best.EndScore - currentScore,
		NarrativeSummary: narrative.GeneratePlanNarrative(steps, currentScore*100, best.EndScore*100),
		ScoreBreakdown:   best.Breakdown,
		CashRequired:     cashRequired,
		CashGenerated:    cashGenerated,
		Feasible:         best.Feasible,
	}
}

// beam is the top-K-by-end-score structure batch mode maintains, keyed by
// (end_score, sequence_hash) for a stable tiebreaker (§5).
type beam struct {
	width   int
	entries []domain.SequenceEvaluationResult
}

func newBeam(width int) *beam { return &beam{width: width} }

func (b *beam) worst() float64 {
	if len(b.entries) < b.width {
		return -1 // beam isn't full yet, everything improves it
	}
	return b.entries[len(b.entries)-1].EndScore
}

func (b *beam) insert(r domain.SequenceEvaluationResult) bool {
	improved := r.EndScore > b.worst()
	b.entries = append(b.entries, r)
	sort.SliceStable(b.entries, func(i, j int) bool {
		if b.entries[i].EndScore != b.entries[j].EndScore {
			return b.entries[i].EndScore > b.entries[j].EndScore
		}
		return b.entries[i].Sequence.SequenceHash < b.entries[j].Sequence.SequenceHash
	})
	if len(b.entries) > b.width {
		b.entries = b.entries[:b.width]
	}
	return improved
}

func (b *beam) best() (domain.SequenceEvaluationResult, bool) {
	if len(b.entries) == 0 {
		return domain.SequenceEvaluationResult{}, false
	}
	return b.entries[0], true
}

// runBatched evaluates seqs in fixed-size concurrent groups, awaiting each
// group fully before starting the next (structured concurrency, §5:
// "all batch tasks complete before the next batch starts"). ctx
// cancellation stops the group as a whole between batches.
func runBatched(ctx context.Context, seqs []domain.ActionSequence, batchSize int, work func(domain.ActionSequence) domain.SequenceEvaluationResult) []domain.SequenceEvaluationResult {
	results := make([]domain.SequenceEvaluationResult, 0, len(seqs))
	for start := 0; start < len(seqs); start += batchSize {
		if ctx.Err() != nil {
			break
		}
		end := start + batchSize
		if end > len(seqs) {
			end = len(seqs)
		}
		batch := seqs[start:end]

		out := make([]domain.SequenceEvaluationResult, len(batch))
		done := make(chan int, len(batch))
		for i, seq := range batch {
			go func(i int, seq domain.ActionSequence) {
				out[i] = work(seq)
				done <- i
			}(i, seq)
		}
		for range batch {
			<-done
		}
		results = append(results, out...)
	}
	return results
}
