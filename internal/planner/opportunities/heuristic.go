package opportunities

import (
	"fmt"

	"github.com/aristath/holistic-planner/internal/planner/domain"
)

const (
	minUnderweightThreshold = 0.05 // 5% underweight triggers a rebalance buy
	minOverweightThreshold  = 0.05 // 5% overweight triggers a rebalance sell
	maxCostRatio            = 0.01 // a trade must not cost more than 1% of its own value
	windfallGainThreshold   = 0.50 // unrealized gain beyond which a position is a "windfall"
	profitTakeGainThreshold = 0.25
	minHeuristicScore       = 0.5 // minimum stock_scores[s] to be considered an opportunity buy
)

// minTradeAmount derives the smallest EUR trade size that pays back its own
// cost within maxCostRatio, grounded on
// calculators/rebalance_buys.go's CalculateMinTradeAmount: minTrade =
// fixedCost / (maxCostRatio - percentCost).
func minTradeAmount(fixedCost, percentCost float64) float64 {
	denom := maxCostRatio - percentCost
	if denom <= 0 {
		return fixedCost / maxCostRatio
	}
	return fixedCost / denom
}

func identifyHeuristic(in Input) domain.OpportunitiesByCategory {
	minTrade := minTradeAmount(in.TransactionCostFixed, in.TransactionCostPercent)

	return domain.OpportunitiesByCategory{
		ProfitTaking:    profitTakingCandidates(in, minTrade),
		AveragingDown:   averagingDownCandidates(in, minTrade),
		RebalanceSells:  rebalanceSellCandidates(in, minTrade),
		RebalanceBuys:   rebalanceBuyCandidates(in, minTrade),
		OpportunityBuys: opportunityBuyCandidates(in, minTrade),
	}
}

// profitTakingCandidates sells positions whose unrealized gain is large
// enough to be a "windfall" or ordinary profit-take, tagging accordingly.
func profitTakingCandidates(in Input, minTrade float64) []domain.ActionCandidate {
	var out []domain.ActionCandidate
	for symbol, value := range in.Context.Positions {
		if value < minTrade {
			continue
		}
		sec, ok := in.Securities[symbol]
		if !ok || !sec.AllowSell || in.RecentlySold[symbol] {
			continue
		}
		price := in.Prices[symbol]
		avgPrice := in.Context.PositionAvgPrices[symbol]
		if price <= 0 || avgPrice <= 0 {
			continue
		}
		gain := (price - avgPrice) / avgPrice
		if gain < profitTakeGainThreshold {
			continue
		}

		heldQuantity := positionQuantity(in.Context, sec, symbol)
		sellQuantity := roundToLotSize(heldQuantity/4, sec.MinLot) // trim a quarter of the position
		if sellQuantity <= 0 || sellQuantity >= heldQuantity {
			sellQuantity = heldQuantity
		}
		tags := []string{"profit_taking"}
		reason := fmt.Sprintf("unrealized gain %.0f%% above profit-take threshold", gain*100)
		if gain >= windfallGainThreshold {
			tags = []string{"windfall"}
			reason = fmt.Sprintf("unrealized gain %.0f%% exceeds historical growth, windfall", gain*100)
		}
		out = append(out, domain.ActionCandidate{
			Side: domain.SideSell, Symbol: symbol, Name: sec.Name,
			Quantity: sellQuantity, Price: price, ValueEUR: float64(sellQuantity) * price,
			Country: sec.Country, Industry: sec.Industry, Currency: sec.Currency, Priority: gain * 100, Reason: reason, Tags: tags,
		})
	}
	sortByPriorityDesc(out)
	return out
}

// averagingDownCandidates buys more of quality positions currently priced
// below their average cost.
func averagingDownCandidates(in Input, minTrade float64) []domain.ActionCandidate {
	var out []domain.ActionCandidate
	for symbol, value := range in.Context.Positions {
		_ = value
		sec, ok := in.Securities[symbol]
		if !ok || !sec.AllowBuy || in.RecentlyBought[symbol] {
			continue
		}
		price := in.Prices[symbol]
		avgPrice := in.Context.PositionAvgPrices[symbol]
		if price <= 0 || avgPrice <= 0 || price >= avgPrice {
			continue
		}
		score := in.Context.StockScores[symbol]
		if score < minHeuristicScore {
			continue
		}
		dipPct := (avgPrice - price) / avgPrice
		quantity := roundToLotSize(int(minTrade/price), sec.MinLot)
		if quantity <= 0 {
			continue
		}
		out = append(out, domain.ActionCandidate{
			Side: domain.SideBuy, Symbol: symbol, Name: sec.Name,
			Quantity: quantity, Price: price, ValueEUR: float64(quantity) * price,
			Country: sec.Country, Industry: sec.Industry, Currency: sec.Currency, Priority: score * dipPct * 100,
			Reason: fmt.Sprintf("quality position %.0f%% below average cost", dipPct*100),
			Tags:   []string{"averaging_down"},
		})
	}
	sortByPriorityDesc(out)
	return out
}

// rebalanceSellCandidates trims positions whose country group is
// overweight relative to target.
func rebalanceSellCandidates(in Input, minTrade float64) []domain.ActionCandidate {
	var out []domain.ActionCandidate
	groupValues := groupAllocations(in.Context)
	for symbol, value := range in.Context.Positions {
		if value < minTrade {
			continue
		}
		sec, ok := in.Securities[symbol]
		if !ok || !sec.AllowSell || in.RecentlySold[symbol] {
			continue
		}
		group := in.Context.GroupForCountry(in.Context.StockCountries[symbol])
		target := in.Context.CountryWeights[group]
		current := 0.0
		if in.Context.TotalValue > 0 {
			current = groupValues[group] / in.Context.TotalValue
		}
		gap := current - target
		if gap < minOverweightThreshold {
			continue
		}
		price := in.Prices[symbol]
		if price <= 0 {
			continue
		}
		heldQuantity := positionQuantity(in.Context, sec, symbol)
		trimValue := gap * in.Context.TotalValue
		sellQuantity := roundToLotSize(int(trimValue/price), sec.MinLot)
		if sellQuantity <= 0 {
			continue
		}
		if heldQuantity-sellQuantity < sec.MinLot {
			sellQuantity = heldQuantity
		}
		out = append(out, domain.ActionCandidate{
			Side: domain.SideSell, Symbol: symbol, Name: sec.Name,
			Quantity: sellQuantity, Price: price, ValueEUR: float64(sellQuantity) * price,
			Country: sec.Country, Industry: sec.Industry, Currency: sec.Currency, Priority: gap * 100,
			Reason:   fmt.Sprintf("%s overweight by %.1f%%", group, gap*100),
			Tags:     []string{"rebalance", "overweight_" + group},
		})
	}
	sortByPriorityDesc(out)
	return out
}

// rebalanceBuyCandidates buys into underweight country groups, sized by
// allocation gap and capped per position, grounded on
// calculators/rebalance_buys.go's allocation-based sizing.
func rebalanceBuyCandidates(in Input, minTrade float64) []domain.ActionCandidate {
	const maxPerPositionPct = 0.05
	var out []domain.ActionCandidate
	groupValues := groupAllocations(in.Context)
	for symbol, sec := range in.Securities {
		if !sec.AllowBuy || in.RecentlyBought[symbol] {
			continue
		}
		group := in.Context.GroupForCountry(sec.Country)
		target := in.Context.CountryWeights[group]
		current := 0.0
		if in.Context.TotalValue > 0 {
			current = groupValues[group] / in.Context.TotalValue
		}
		gap := target - current
		if gap < minUnderweightThreshold {
			continue
		}
		price := in.Prices[symbol]
		if price <= 0 {
			continue
		}
		score := in.Context.StockScores[symbol]
		if score < minHeuristicScore {
			continue
		}
		gapValue := gap * in.Context.TotalValue
		cap := maxPerPositionPct * in.Context.TotalValue
		tradeValue := gapValue
		if tradeValue > cap {
			tradeValue = cap
		}
		if tradeValue < minTrade {
			continue
		}
		quantity := roundToLotSize(int(tradeValue/price), sec.MinLot)
		if quantity <= 0 {
			continue
		}
		out = append(out, domain.ActionCandidate{
			Side: domain.SideBuy, Symbol: symbol, Name: sec.Name,
			Quantity: quantity, Price: price, ValueEUR: float64(quantity) * price,
			Country: sec.Country, Industry: sec.Industry, Currency: sec.Currency, Priority: gap * score * 100,
			Reason:   fmt.Sprintf("%s underweight by %.1f%%", group, gap*100),
			Tags:     []string{"rebalance", "underweight_" + group},
		})
	}
	sortByPriorityDesc(out)
	return out
}

// opportunityBuyCandidates buys high-quality securities regardless of
// allocation gap, tagged "opportunity"/"quality".
func opportunityBuyCandidates(in Input, minTrade float64) []domain.ActionCandidate {
	var out []domain.ActionCandidate
	for symbol, sec := range in.Securities {
		if !sec.AllowBuy || in.RecentlyBought[symbol] {
			continue
		}
		if _, held := in.Context.Positions[symbol]; held {
			continue // averaging-down already covers held positions
		}
		price := in.Prices[symbol]
		if price <= 0 {
			continue
		}
		score := in.Context.StockScores[symbol]
		if score < minHeuristicScore {
			continue
		}
		quantity := roundToLotSize(int(minTrade/price), sec.MinLot)
		if quantity <= 0 {
			continue
		}
		out = append(out, domain.ActionCandidate{
			Side: domain.SideBuy, Symbol: symbol, Name: sec.Name,
			Quantity: quantity, Price: price, ValueEUR: float64(quantity) * price,
			Country: sec.Country, Industry: sec.Industry, Currency: sec.Currency, Priority: score * 100,
			Reason: fmt.Sprintf("quality score %.2f", score),
			Tags:   []string{"opportunity", "quality"},
		})
	}
	sortByPriorityDesc(out)
	return out
}

func groupAllocations(ctx domain.PortfolioContext) map[string]float64 {
	groups := make(map[string]float64)
	for symbol, value := range ctx.Positions {
		group := ctx.GroupForCountry(ctx.StockCountries[symbol])
		groups[group] += value
	}
	return groups
}
