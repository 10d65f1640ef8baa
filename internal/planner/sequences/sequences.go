// Package sequences implements C3: turns five categorized candidate lists
// into a deduplicated set of feasible action sequences, combining ten
// deterministic pattern templates with bounded combinatorial enumeration.
// Grounded on internal/modules/sequences/patterns/base.go (PatternGenerator,
// CreateSequence, Get*Param helpers).
package sequences

import (
	"sort"

	"github.com/aristath/holistic-planner/internal/planner/domain"
)

// Params controls generation, mirroring domain.PlannerConfiguration's
// combinatorial/diversity fields so callers don't need to thread the whole
// configuration through.
type Params struct {
	MaxDepth                 int
	PriorityThreshold        float64
	EnableCombinatorial      bool
	CombinatorialMaxCombos   int
	CombinatorialMaxSells    int
	CombinatorialMaxBuys     int
	CombinatorialMaxCandidates int
	EnableDiverseSelection   bool
	DiversityWeight          float64
	MaxPerCategory           int
	AvailableCash            float64
}

// Generate runs diverse candidate selection, then the ten pattern templates
// and combinatorial enumeration at every depth 1..MaxDepth, then deduplicates
// on the ordered (symbol, side) tuple.
func Generate(opps domain.OpportunitiesByCategory, p Params) []domain.ActionSequence {
	if p.MaxPerCategory <= 0 {
		p.MaxPerCategory = 5
	}
	reduced := domain.OpportunitiesByCategory{
		ProfitTaking:    selectDiverse(opps.ProfitTaking, p),
		AveragingDown:   selectDiverse(opps.AveragingDown, p),
		RebalanceSells:  selectDiverse(opps.RebalanceSells, p),
		RebalanceBuys:   selectDiverse(opps.RebalanceBuys, p),
		OpportunityBuys: selectDiverse(opps.OpportunityBuys, p),
	}

	var all []domain.ActionSequence
	for depth := 1; depth <= p.MaxDepth; depth++ {
		for _, builder := range templateBuilders {
			if seq, ok := builder(reduced, depth, p); ok {
				all = append(all, seq)
			}
		}
		if p.EnableCombinatorial {
			all = append(all, combinatorialAtDepth(reduced, depth, p)...)
		}
	}

	return dedupe(all)
}

// --- Diverse candidate selection (§4.3) -----------------------------------

type cluster struct {
	country string
	industry string
	prefix  string
}

func clusterKey(a domain.ActionCandidate) cluster {
	prefix := a.Symbol
	if len(prefix) > 2 {
		prefix = prefix[:2]
	}
	return cluster{country: a.Country, industry: a.Industry, prefix: prefix}
}

// selectDiverse reduces a category to at most MaxPerCategory entries. When
// diversity selection is disabled, it is pure top-priority truncation.
func selectDiverse(candidates []domain.ActionCandidate, p Params) []domain.ActionCandidate {
	if len(candidates) == 0 {
		return nil
	}
	if !p.EnableDiverseSelection {
		out := append([]domain.ActionCandidate(nil), candidates...)
		sortDesc(out)
		return truncate(out, p.MaxPerCategory)
	}

	counts := make(map[cluster]int)
	for _, c := range candidates {
		counts[clusterKey(c)]++
	}

	maxPriority := 0.0
	for _, c := range candidates {
		if c.Priority > maxPriority {
			maxPriority = c.Priority
		}
	}
	if maxPriority <= 0 {
		maxPriority = 1
	}

	w := p.DiversityWeight
	type scored struct {
		candidate domain.ActionCandidate
		score     float64
	}
	rescored := make([]scored, len(candidates))
	for i, c := range candidates {
		normalized := c.Priority / maxPriority
		sameCluster := counts[clusterKey(c)]
		score := (1-w)*normalized + w*(1/(1+0.5*float64(sameCluster)))
		rescored[i] = scored{c, score}
	}
	sort.SliceStable(rescored, func(i, j int) bool { return rescored[i].score > rescored[j].score })

	limit := p.MaxPerCategory
	if limit > len(rescored) {
		limit = len(rescored)
	}
	out := make([]domain.ActionCandidate, limit)
	for i := 0; i < limit; i++ {
		out[i] = rescored[i].candidate
	}
	return out
}

func truncate(s []domain.ActionCandidate, n int) []domain.ActionCandidate {
	if n <= 0 || n >= len(s) {
		return s
	}
	return s[:n]
}

func sortDesc(s []domain.ActionCandidate) {
	sort.SliceStable(s, func(i, j int) bool { return s[i].Priority > s[j].Priority })
}

// --- Deduplication ---------------------------------------------------------

type actionKey struct {
	symbol string
	side   domain.TradeSide
}

func hasDuplicateSymbols(actions []domain.ActionCandidate) bool {
	seen := make(map[string]bool, len(actions))
	for _, a := range actions {
		if seen[a.Symbol] {
			return true
		}
		seen[a.Symbol] = true
	}
	return false
}

func dedupe(sequences []domain.ActionSequence) []domain.ActionSequence {
	seen := make(map[string]bool, len(sequences))
	out := make([]domain.ActionSequence, 0, len(sequences))
	for _, seq := range sequences {
		if hasDuplicateSymbols(seq.Actions) {
			continue
		}
		keys := make([]actionKey, len(seq.Actions))
		for i, a := range seq.Actions {
			keys[i] = actionKey{a.Symbol, a.Side}
		}
		tupleKey := tupleString(keys)
		if seen[tupleKey] {
			continue
		}
		seen[tupleKey] = true
		out = append(out, seq)
	}
	return out
}

func tupleString(keys []actionKey) string {
	s := ""
	for _, k := range keys {
		s += string(k.side) + ":" + k.symbol + "|"
	}
	return s
}

// --- Common helpers used by both templates and combinatorics ---------------

func createSequence(actions []domain.ActionCandidate, patternType string) domain.ActionSequence {
	priority := 0.0
	for _, a := range actions {
		priority += a.Priority
	}
	if len(actions) > 0 {
		priority /= float64(len(actions))
	}
	return domain.ActionSequence{
		Actions:      actions,
		Priority:     priority,
		Depth:        len(actions),
		PatternType:  patternType,
		SequenceHash: domain.GenerateSequenceHash(actions),
	}
}

// cashFeasible reports whether walking actions in order (sells first assumed
// by caller ordering) never drives the running cash balance negative.
func cashFeasible(actions []domain.ActionCandidate, startingCash float64) bool {
	cash := startingCash
	for _, a := range actions {
		if a.Side == domain.SideSell {
			cash += a.ValueEUR
		} else {
			if a.ValueEUR > cash {
				return false
			}
			cash -= a.ValueEUR
		}
	}
	return true
}

func sellsFirst(actions []domain.ActionCandidate) []domain.ActionCandidate {
	out := make([]domain.ActionCandidate, 0, len(actions))
	for _, a := range actions {
		if a.Side == domain.SideSell {
			out = append(out, a)
		}
	}
	for _, a := range actions {
		if a.Side == domain.SideBuy {
			out = append(out, a)
		}
	}
	return out
}
