package sequences

import (
	"sort"

	"github.com/aristath/holistic-planner/internal/planner/domain"
)

// templateBuilder returns (sequence, true) when the pattern applies at this
// depth given the reduced opportunity lists, or (zero, false) when it has
// nothing to contribute. Each builder enforces: sells before buys, never a
// negative running cash balance, and at most `depth` total actions.
type templateBuilder func(opps domain.OpportunitiesByCategory, depth int, p Params) (domain.ActionSequence, bool)

var templateBuilders = []templateBuilder{
	patternDirectBuys,
	patternProfitTakeReinvest,
	patternRebalance,
	patternAveragingDownFocus,
	patternSingleBest,
	patternMultiSellMultiBuy,
	patternMixed,
	patternOpportunityFirst,
	patternDeepRebalance,
	patternCashGeneration,
}

func build(name string, actions []domain.ActionCandidate, depth int, p Params) (domain.ActionSequence, bool) {
	if len(actions) == 0 || len(actions) > depth {
		return domain.ActionSequence{}, false
	}
	ordered := sellsFirst(actions)
	if !cashFeasible(ordered, p.AvailableCash) {
		return domain.ActionSequence{}, false
	}
	return createSequence(ordered, name), true
}

func topN(candidates []domain.ActionCandidate, n int) []domain.ActionCandidate {
	if n > len(candidates) {
		n = len(candidates)
	}
	return append([]domain.ActionCandidate(nil), candidates[:n]...)
}

// 1. Direct buys only, when cash alone suffices.
func patternDirectBuys(opps domain.OpportunitiesByCategory, depth int, p Params) (domain.ActionSequence, bool) {
	buys := append(append([]domain.ActionCandidate{}, opps.AveragingDown...), opps.RebalanceBuys...)
	buys = append(buys, opps.OpportunityBuys...)
	sortDesc(buys)
	n := topN(buys, depth)
	return build("direct_buys", n, depth, p)
}

// 2. Profit-take-then-reinvest: sells from profit_taking, then
// averaging/rebalance buys.
func patternProfitTakeReinvest(opps domain.OpportunitiesByCategory, depth int, p Params) (domain.ActionSequence, bool) {
	if len(opps.ProfitTaking) == 0 {
		return domain.ActionSequence{}, false
	}
	sells := topN(opps.ProfitTaking, 1)
	remaining := depth - len(sells)
	if remaining <= 0 {
		return build("profit_take_reinvest", sells, depth, p)
	}
	buys := append(append([]domain.ActionCandidate{}, opps.AveragingDown...), opps.RebalanceBuys...)
	sortDesc(buys)
	actions := append(sells, topN(buys, remaining)...)
	return build("profit_take_reinvest", actions, depth, p)
}

// 3. Rebalance: rebalance-sells then rebalance-buys.
func patternRebalance(opps domain.OpportunitiesByCategory, depth int, p Params) (domain.ActionSequence, bool) {
	if len(opps.RebalanceSells) == 0 && len(opps.RebalanceBuys) == 0 {
		return domain.ActionSequence{}, false
	}
	half := depth / 2
	if half == 0 {
		half = 1
	}
	sells := topN(opps.RebalanceSells, half)
	remaining := depth - len(sells)
	buys := topN(opps.RebalanceBuys, remaining)
	actions := append(append([]domain.ActionCandidate{}, sells...), buys...)
	return build("rebalance", actions, depth, p)
}

// 4. Averaging-down focus: one profit-taking sell if cash is short, then
// averaging-down buys.
func patternAveragingDownFocus(opps domain.OpportunitiesByCategory, depth int, p Params) (domain.ActionSequence, bool) {
	if len(opps.AveragingDown) == 0 {
		return domain.ActionSequence{}, false
	}
	buys := topN(opps.AveragingDown, depth)
	buyCost := 0.0
	for _, b := range buys {
		buyCost += b.ValueEUR
	}
	actions := buys
	if buyCost > p.AvailableCash && len(opps.ProfitTaking) > 0 && depth > 1 {
		sells := topN(opps.ProfitTaking, 1)
		buys = topN(opps.AveragingDown, depth-1)
		actions = append(sells, buys...)
	}
	return build("averaging_down_focus", actions, depth, p)
}

// 5. Single best action overall.
func patternSingleBest(opps domain.OpportunitiesByCategory, depth int, p Params) (domain.ActionSequence, bool) {
	all := opps.All()
	if len(all) == 0 {
		return domain.ActionSequence{}, false
	}
	sortDesc(all)
	return build("single_best", all[:1], depth, p)
}

// 6. Multi-sell then multi-buy, drawing from every sell/buy category.
func patternMultiSellMultiBuy(opps domain.OpportunitiesByCategory, depth int, p Params) (domain.ActionSequence, bool) {
	sells := append(append([]domain.ActionCandidate{}, opps.ProfitTaking...), opps.RebalanceSells...)
	buys := append(append([]domain.ActionCandidate{}, opps.AveragingDown...), opps.RebalanceBuys...)
	buys = append(buys, opps.OpportunityBuys...)
	sortDesc(sells)
	sortDesc(buys)
	half := depth / 2
	if half == 0 {
		half = 1
	}
	s := topN(sells, half)
	b := topN(buys, depth-len(s))
	actions := append(append([]domain.ActionCandidate{}, s...), b...)
	return build("multi_sell_multi_buy", actions, depth, p)
}

// 7. Mixed: up to depth/2 sells, then buys filling the remainder.
func patternMixed(opps domain.OpportunitiesByCategory, depth int, p Params) (domain.ActionSequence, bool) {
	sells := append(append([]domain.ActionCandidate{}, opps.ProfitTaking...), opps.RebalanceSells...)
	sortDesc(sells)
	maxSells := depth / 2
	s := topN(sells, maxSells)
	buys := append(append([]domain.ActionCandidate{}, opps.RebalanceBuys...), opps.OpportunityBuys...)
	buys = append(buys, opps.AveragingDown...)
	sortDesc(buys)
	b := topN(buys, depth-len(s))
	actions := append(append([]domain.ActionCandidate{}, s...), b...)
	return build("mixed", actions, depth, p)
}

// 8. Opportunity-first: high-quality buys prioritized, filled out with
// averaging/rebalance buys.
func patternOpportunityFirst(opps domain.OpportunitiesByCategory, depth int, p Params) (domain.ActionSequence, bool) {
	if len(opps.OpportunityBuys) == 0 {
		return domain.ActionSequence{}, false
	}
	primary := topN(opps.OpportunityBuys, depth)
	remaining := depth - len(primary)
	actions := primary
	if remaining > 0 {
		fill := append(append([]domain.ActionCandidate{}, opps.AveragingDown...), opps.RebalanceBuys...)
		sortDesc(fill)
		actions = append(actions, topN(fill, remaining)...)
	}
	return build("opportunity_first", actions, depth, p)
}

// 9. Deep rebalance: multiple rebalance-sells then multiple rebalance-buys.
func patternDeepRebalance(opps domain.OpportunitiesByCategory, depth int, p Params) (domain.ActionSequence, bool) {
	if depth < 2 || (len(opps.RebalanceSells) < 2 && len(opps.RebalanceBuys) < 2) {
		return domain.ActionSequence{}, false
	}
	maxSells := depth - 1
	if maxSells > len(opps.RebalanceSells) {
		maxSells = len(opps.RebalanceSells)
	}
	sells := topN(opps.RebalanceSells, maxSells)
	buys := topN(opps.RebalanceBuys, depth-len(sells))
	actions := append(append([]domain.ActionCandidate{}, sells...), buys...)
	return build("deep_rebalance", actions, depth, p)
}

// 10. Cash-generation: all available sells, then strategic buys.
func patternCashGeneration(opps domain.OpportunitiesByCategory, depth int, p Params) (domain.ActionSequence, bool) {
	sells := append(append([]domain.ActionCandidate{}, opps.ProfitTaking...), opps.RebalanceSells...)
	sortDesc(sells)
	if len(sells) == 0 {
		return domain.ActionSequence{}, false
	}
	s := topN(sells, depth)
	remaining := depth - len(s)
	actions := s
	if remaining > 0 {
		buys := append(append([]domain.ActionCandidate{}, opps.RebalanceBuys...), opps.OpportunityBuys...)
		sortDesc(buys)
		actions = append(actions, topN(buys, remaining)...)
	}
	return build("cash_generation", actions, depth, p)
}

// --- Combinatorial enumeration (§4.3) -------------------------------------

func combinatorialAtDepth(opps domain.OpportunitiesByCategory, depth int, p Params) []domain.ActionSequence {
	allSells := filterByThreshold(append(append([]domain.ActionCandidate{}, opps.ProfitTaking...), opps.RebalanceSells...), p.PriorityThreshold)
	allBuys := filterByThreshold(append(append(append([]domain.ActionCandidate{}, opps.AveragingDown...), opps.RebalanceBuys...), opps.OpportunityBuys...), p.PriorityThreshold)

	maxCandidates := p.CombinatorialMaxCandidates
	if maxCandidates <= 0 {
		maxCandidates = 12
	}
	allSells = topN(allSells, maxCandidates)
	allBuys = topN(allBuys, maxCandidates)

	maxSells := p.CombinatorialMaxSells
	if maxSells <= 0 || maxSells > 4 {
		maxSells = 4
	}
	maxBuys := p.CombinatorialMaxBuys
	if maxBuys <= 0 || maxBuys > 4 {
		maxBuys = 4
	}
	maxCombos := p.CombinatorialMaxCombos
	if maxCombos <= 0 {
		maxCombos = 50
	}

	var out []domain.ActionSequence
combos:
	for k := 1; k <= maxSells; k++ {
		for m := 1; m <= maxBuys; m++ {
			if k+m > depth {
				continue
			}
			for _, sellCombo := range combinations(allSells, k) {
				for _, buyCombo := range combinations(allBuys, m) {
					if len(out) >= maxCombos {
						break combos
					}
					actions := append(append([]domain.ActionCandidate{}, sellCombo...), buyCombo...)
					if !cashFeasible(actions, p.AvailableCash) {
						continue
					}
					out = append(out, createSequence(actions, "combinatorial"))
				}
			}
		}
	}
	return out
}

func filterByThreshold(candidates []domain.ActionCandidate, threshold float64) []domain.ActionCandidate {
	out := make([]domain.ActionCandidate, 0, len(candidates))
	for _, c := range candidates {
		if c.Priority >= threshold {
			out = append(out, c)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Priority > out[j].Priority })
	return out
}

// combinations returns every k-sized subset of items, order preserved
// within each subset.
func combinations(items []domain.ActionCandidate, k int) [][]domain.ActionCandidate {
	n := len(items)
	if k <= 0 || k > n {
		return nil
	}
	var out [][]domain.ActionCandidate
	indices := make([]int, k)
	for i := range indices {
		indices[i] = i
	}
	for {
		combo := make([]domain.ActionCandidate, k)
		for i, idx := range indices {
			combo[i] = items[idx]
		}
		out = append(out, combo)

		i := k - 1
		for i >= 0 && indices[i] == n-k+i {
			i--
		}
		if i < 0 {
			break
		}
		indices[i]++
		for j := i + 1; j < k; j++ {
			indices[j] = indices[j-1] + 1
		}
	}
	return out
}
