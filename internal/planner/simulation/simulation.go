// Package simulation implements C4: walks a sequence of actions forward
// against a starting (context, cash) pair and returns the resulting
// end-state. Deterministic and side-effect free. Grounded on
// internal/modules/evaluation/simulation_test.go's documented behavior.
package simulation

import "github.com/aristath/holistic-planner/internal/planner/domain"

// SimulateSequence walks actions in order, mutating a cloned context so the
// caller's context is never aliased (§9). An unaffordable BUY is skipped
// without mutating state — the earlier feasibility filter is expected to
// have already ruled this out, so this branch is defensive only.
func SimulateSequence(
	actions []domain.ActionCandidate,
	start domain.PortfolioContext,
	startingCash float64,
	securities map[string]domain.Security,
) (domain.PortfolioContext, float64) {
	ctx := start.Clone()
	cash := startingCash

	for _, a := range actions {
		switch a.Side {
		case domain.SideSell:
			remaining := ctx.Positions[a.Symbol] - a.ValueEUR
			if remaining <= 0 {
				delete(ctx.Positions, a.Symbol)
			} else {
				ctx.Positions[a.Symbol] = remaining
			}
			cash += a.ValueEUR

		case domain.SideBuy:
			if a.ValueEUR > cash {
				continue
			}
			ctx.Positions[a.Symbol] = ctx.Positions[a.Symbol] + a.ValueEUR
			if sec, ok := securities[a.Symbol]; ok {
				if ctx.StockCountries == nil {
					ctx.StockCountries = make(map[string]string)
				}
				if ctx.StockIndustries == nil {
					ctx.StockIndustries = make(map[string]string)
				}
				ctx.StockCountries[a.Symbol] = sec.Country
				ctx.StockIndustries[a.Symbol] = sec.Industry
			}
			cash -= a.ValueEUR
		}
	}

	return ctx, cash
}

// CheckSequenceFeasibility applies the early feasibility filter named in
// §4.6 step 2: duplicate symbols, any BUY exceeding running cash, any BUY on
// a disallowed symbol, or any SELL exceeding held quantity or on a
// disallowed symbol makes the sequence infeasible. Returns the failure
// reason for logging, or "" when feasible.
func CheckSequenceFeasibility(
	seq domain.ActionSequence,
	startingCash float64,
	securities map[string]domain.Security,
	heldQuantities map[string]int,
) string {
	seen := make(map[string]bool, len(seq.Actions))
	cash := startingCash
	for _, a := range seq.Actions {
		if seen[a.Symbol] {
			return "duplicate_symbol"
		}
		seen[a.Symbol] = true

		sec, ok := securities[a.Symbol]
		if !ok {
			return "unknown_security"
		}

		switch a.Side {
		case domain.SideBuy:
			if !sec.AllowBuy {
				return "buy_disallowed"
			}
			if a.ValueEUR > cash {
				return "insufficient_cash"
			}
			cash -= a.ValueEUR
		case domain.SideSell:
			if !sec.AllowSell {
				return "sell_disallowed"
			}
			if heldQuantities[a.Symbol] < a.Quantity {
				return "insufficient_quantity"
			}
			cash += a.ValueEUR
		}
	}
	return ""
}

// CalculateSequenceCashFlow returns the total EUR generated by sells and
// the total EUR spent on buys, independent of ordering.
func CalculateSequenceCashFlow(actions []domain.ActionCandidate) (generated, required float64) {
	for _, a := range actions {
		if a.Side == domain.SideSell {
			generated += a.ValueEUR
		} else {
			required += a.ValueEUR
		}
	}
	return generated, required
}
