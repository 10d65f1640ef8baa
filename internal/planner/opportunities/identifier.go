// Package opportunities implements C2: from a portfolio context (plus an
// optional optimizer target-weight map) it emits five categorized lists of
// domain.ActionCandidate. Grounded on
// internal/modules/opportunities/calculators/rebalance_buys.go and
// internal/modules/opportunities/calculators/base.go.
package opportunities

import (
	"sort"

	"github.com/aristath/holistic-planner/internal/planner/domain"
)

// Input bundles everything the identifier needs beyond the context itself.
type Input struct {
	Context domain.PortfolioContext
	// Securities is the per-symbol metadata for every symbol in the
	// universe the planner is allowed to consider, keyed by symbol.
	Securities map[string]domain.Security
	// Prices is a batch snapshot symbol -> native price; 0 means
	// unavailable and suppresses the symbol (§6).
	Prices map[string]float64
	// TargetWeights, when non-nil, triggers weight-driven mode (§4.2).
	TargetWeights map[string]float64
	// RecentlyBought/RecentlySold are cooldown sets (§4.2, §6).
	RecentlyBought map[string]bool
	RecentlySold   map[string]bool

	TransactionCostFixed   float64
	TransactionCostPercent float64
	MinSecurityScore       float64
}

// Identify produces the five opportunity categories, each sorted by
// descending priority.
func Identify(in Input) domain.OpportunitiesByCategory {
	if len(in.TargetWeights) > 0 {
		return identifyWeightDriven(in)
	}
	return identifyHeuristic(in)
}

func roundToLotSize(quantity, lotSize int) int {
	if lotSize <= 1 {
		return quantity
	}
	rounded := (quantity / lotSize) * lotSize
	if rounded == 0 {
		rounded = lotSize
	}
	return rounded
}

func sortByPriorityDesc(candidates []domain.ActionCandidate) {
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Priority > candidates[j].Priority
	})
}

// --- Weight-driven mode (§4.2) -------------------------------------------

func identifyWeightDriven(in Input) domain.OpportunitiesByCategory {
	var rebalanceBuys, rebalanceSells []domain.ActionCandidate

	for symbol, targetFraction := range in.TargetWeights {
		sec, ok := in.Securities[symbol]
		if !ok {
			continue
		}
		price := in.Prices[symbol]
		if price <= 0 {
			continue
		}

		currentValue := in.Context.Positions[symbol]
		currentFraction := 0.0
		if in.Context.TotalValue > 0 {
			currentFraction = currentValue / in.Context.TotalValue
		}

		gap := targetFraction - currentFraction
		if absFloat(gap) < 0.005 {
			continue
		}

		gapValueEUR := gap * in.Context.TotalValue
		cost := in.TransactionCostFixed + absFloat(gapValueEUR)*in.TransactionCostPercent
		if absFloat(gapValueEUR) <= 2*cost {
			continue
		}

		priority := absFloat(gap) * 100

		if gap > 0 {
			if !sec.AllowBuy {
				continue
			}
			quantity := int(gapValueEUR / price)
			if quantity < sec.MinLot {
				quantity = sec.MinLot
			}
			tags := []string{"optimizer_target"}
			avgPrice, held := in.Context.PositionAvgPrices[symbol]
			if held && avgPrice > price {
				tags = append(tags, "averaging_down")
			} else {
				tags = append(tags, "rebalance")
			}
			rebalanceBuys = append(rebalanceBuys, domain.ActionCandidate{
				Side: domain.SideBuy, Symbol: symbol, Name: sec.Name,
				Quantity: quantity, Price: price, ValueEUR: float64(quantity) * price,
				Country: sec.Country, Industry: sec.Industry, Currency: sec.Currency, Priority: priority,
				Reason: "optimizer target weight gap", Tags: tags,
			})
			continue
		}

		// gap < 0: SELL
		if !sec.AllowSell || in.RecentlySold[symbol] {
			continue
		}
		heldQuantity := positionQuantity(in.Context, sec, symbol)
		if heldQuantity <= sec.MinLot {
			continue
		}
		sellValue := absFloat(gapValueEUR)
		sellQuantity := int(sellValue / price)
		if heldQuantity-sellQuantity < sec.MinLot {
			sellQuantity = heldQuantity // sell down to exactly zero
		}
		if sellQuantity <= 0 {
			continue
		}
		rebalanceSells = append(rebalanceSells, domain.ActionCandidate{
			Side: domain.SideSell, Symbol: symbol, Name: sec.Name,
			Quantity: sellQuantity, Price: price, ValueEUR: float64(sellQuantity) * price,
			Country: sec.Country, Industry: sec.Industry, Currency: sec.Currency, Priority: priority,
			Reason: "optimizer target weight gap", Tags: []string{"rebalance", "optimizer_target"},
		})
	}

	sortByPriorityDesc(rebalanceBuys)
	sortByPriorityDesc(rebalanceSells)

	return domain.OpportunitiesByCategory{
		RebalanceBuys:  rebalanceBuys,
		RebalanceSells: rebalanceSells,
	}
}

// positionQuantity estimates held share count from EUR value and average
// cost; falls back to current price when average cost is unknown.
func positionQuantity(ctx domain.PortfolioContext, sec domain.Security, symbol string) int {
	value := ctx.Positions[symbol]
	price := ctx.PositionAvgPrices[symbol]
	if price <= 0 {
		price = ctx.CurrentPrices[symbol]
	}
	if price <= 0 {
		return 0
	}
	return int(value / price)
}

func absFloat(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
