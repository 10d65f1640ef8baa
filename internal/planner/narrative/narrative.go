// Package narrative turns an ActionCandidate, a HolisticPlan, or a
// trade-off into human-readable text. Pure functions of their inputs, no
// randomness. Grounded on
// original_source/app/domain/planning/narrative.py.
package narrative

import (
	"fmt"
	"strings"

	"github.com/aristath/holistic-planner/internal/planner/domain"
)

// GenerateStepNarrative explains one action: what it is, why it's
// recommended, and how it fits the broader strategy. Branches on the
// action's tags.
func GenerateStepNarrative(action domain.ActionCandidate, ctx domain.PortfolioContext, opps domain.OpportunitiesByCategory) string {
	if action.Side == domain.SideSell {
		return generateSellNarrative(action, ctx, opps)
	}
	return generateBuyNarrative(action, ctx, opps)
}

func generateSellNarrative(action domain.ActionCandidate, ctx domain.PortfolioContext, opps domain.OpportunitiesByCategory) string {
	parts := []string{fmt.Sprintf("Sell €%.0f of %s (%s)", action.ValueEUR, action.Name, action.Symbol)}

	switch {
	case action.HasTag("windfall"):
		parts = append(parts,
			fmt.Sprintf("This position has experienced windfall gains beyond normal growth. %s.", action.Reason),
			"Taking profits locks in gains and frees capital for better opportunities.")
	case action.HasTag("profit_taking"):
		parts = append(parts,
			fmt.Sprintf("Reason: %s.", action.Reason),
			"This reduces risk by converting paper gains to realized profits.")
	case action.HasTag("rebalance"):
		if geo := overweightGeo(action.Tags); geo != "" {
			parts = append(parts,
				fmt.Sprintf("The portfolio is overweight in %s region.", geo),
				"Trimming this position improves geographic diversification.")
		} else {
			parts = append(parts, fmt.Sprintf("Reason: %s.", action.Reason))
		}
	default:
		parts = append(parts, fmt.Sprintf("Reason: %s.", action.Reason))
	}

	buyOpportunities := append(append([]domain.ActionCandidate{}, opps.AveragingDown...), opps.RebalanceBuys...)
	buyOpportunities = append(buyOpportunities, opps.OpportunityBuys...)
	if len(buyOpportunities) > 0 {
		top := buyOpportunities[0]
		parts = append(parts, fmt.Sprintf(
			"This frees capital to invest in %s, which offers better risk-adjusted returns.", top.Name))
	}

	return strings.Join(parts, " ")
}

func generateBuyNarrative(action domain.ActionCandidate, ctx domain.PortfolioContext, opps domain.OpportunitiesByCategory) string {
	parts := []string{fmt.Sprintf("Buy €%.0f of %s (%s)", action.ValueEUR, action.Name, action.Symbol)}

	switch {
	case action.HasTag("averaging_down"):
		parts = append(parts,
			"This quality stock is temporarily down, presenting an opportunity to lower the average cost basis.",
			fmt.Sprintf("%s.", action.Reason),
			"Averaging down on quality dips is a proven long-term strategy.")
	case action.HasTag("rebalance"):
		if geo := underweightGeo(action.Tags); geo != "" {
			parts = append(parts,
				fmt.Sprintf("The portfolio is underweight in %s region.", geo),
				"This purchase improves geographic diversification and reduces concentration risk.")
		} else {
			parts = append(parts, fmt.Sprintf("Reason: %s.", action.Reason))
		}
	case action.HasTag("quality") || action.HasTag("opportunity"):
		parts = append(parts,
			fmt.Sprintf("%s.", action.Reason),
			"High-quality stocks with good fundamentals tend to outperform over the long term.")
	default:
		parts = append(parts, fmt.Sprintf("Reason: %s.", action.Reason))
	}

	if yield := ctx.StockDividends[action.Symbol]; yield > 0.03 {
		parts = append(parts, fmt.Sprintf("This stock also provides a %.1f%% dividend yield for income.", yield*100))
	}

	return strings.Join(parts, " ")
}

func overweightGeo(tags []string) string {
	for _, t := range tags {
		if strings.HasPrefix(t, "overweight_") {
			return strings.ToUpper(strings.TrimPrefix(t, "overweight_"))
		}
	}
	return ""
}

func underweightGeo(tags []string) string {
	for _, t := range tags {
		if strings.HasPrefix(t, "underweight_") {
			return strings.ToUpper(strings.TrimPrefix(t, "underweight_"))
		}
	}
	return ""
}

// GeneratePlanNarrative summarizes the overall plan: the chief pattern,
// step counts, total sell/buy EUR, and the score delta.
func GeneratePlanNarrative(steps []domain.HolisticStep, currentScore, endScore float64) string {
	if len(steps) == 0 {
		return "No actions recommended. The portfolio is well-positioned."
	}

	var sells, buys []domain.HolisticStep
	var windfallSells, averagingBuys []domain.HolisticStep
	for _, s := range steps {
		if s.Side == domain.SideSell {
			sells = append(sells, s)
			if s.IsWindfall {
				windfallSells = append(windfallSells, s)
			}
		} else {
			buys = append(buys, s)
			if s.IsAveragingDown {
				averagingBuys = append(averagingBuys, s)
			}
		}
	}

	improvement := endScore - currentScore
	var parts []string

	switch {
	case len(windfallSells) > 0 && len(averagingBuys) > 0:
		parts = append(parts, "This plan takes profits from windfall gains and reinvests in quality stocks that are temporarily down.")
	case len(windfallSells) > 0:
		parts = append(parts, "This plan captures windfall profits from positions that have exceeded their historical growth rates.")
	case len(averagingBuys) > 0:
		parts = append(parts, "This plan focuses on averaging down on quality positions that are temporarily undervalued.")
	case len(sells) > 0 && len(buys) > 0:
		parts = append(parts, "This plan rebalances the portfolio by trimming overweight positions and adding to underweight areas.")
	case len(buys) > 0:
		parts = append(parts, "This plan deploys available cash into high-quality opportunities.")
	case len(sells) > 0:
		parts = append(parts, "This plan reduces risk by taking profits from selected positions.")
	}

	parts = append(parts, fmt.Sprintf("The plan consists of %d action(s):", len(steps)))

	if len(sells) > 0 {
		totalSell, symbols := 0.0, make([]string, len(sells))
		for i, s := range sells {
			totalSell += s.EstimatedValue
			symbols[i] = s.Symbol
		}
		parts = append(parts, fmt.Sprintf("• Sell €%.0f from %s", totalSell, strings.Join(symbols, ", ")))
	}

	if len(buys) > 0 {
		totalBuy, symbols := 0.0, make([]string, len(buys))
		for i, b := range buys {
			totalBuy += b.EstimatedValue
			symbols[i] = b.Symbol
		}
		parts = append(parts, fmt.Sprintf("• Buy €%.0f in %s", totalBuy, strings.Join(symbols, ", ")))
	}

	switch {
	case improvement > 0:
		parts = append(parts, fmt.Sprintf(
			"Expected portfolio improvement: +%.1f points (from %.1f to %.1f).", improvement, currentScore, endScore))
	case improvement < 0:
		parts = append(parts, fmt.Sprintf(
			"Note: short-term score may decrease by %.1f points, but this positions the portfolio for better long-term growth.", -improvement))
	default:
		parts = append(parts, fmt.Sprintf(
			"This maintains the current portfolio score of %.1f while improving diversification.", currentScore))
	}

	return strings.Join(parts, " ")
}

// GenerateTradeoffExplanation explains why an individually negative action
// contributes to a positive overall outcome. Returns "" when there is no
// trade-off to explain (the action isn't individually negative, or the
// sequence doesn't improve on it).
func GenerateTradeoffExplanation(action domain.ActionCandidate, individualImpact, sequenceImpact float64) string {
	if individualImpact >= 0 {
		return ""
	}
	if sequenceImpact <= individualImpact {
		return ""
	}

	verb := "Buying"
	if action.Side == domain.SideSell {
		verb = "Selling"
	}
	direction := "increase"
	if individualImpact < 0 {
		direction = "reduce"
	}

	return fmt.Sprintf(
		"%s %s in isolation would %s the portfolio score by %.1f points. "+
			"However, as part of this sequence, it enables an overall improvement of %.1f points. "+
			"The short-term sacrifice creates a better long-term outcome.",
		verb, action.Name, direction, -individualImpact, sequenceImpact)
}

// FormatActionSummary formats a brief one-line summary of an action.
func FormatActionSummary(action domain.ActionCandidate) string {
	side := "BUY"
	if action.Side == domain.SideSell {
		side = "SELL"
	}
	return fmt.Sprintf("%s %d %s @ €%.2f = €%.0f", side, action.Quantity, action.Symbol, action.Price, action.ValueEUR)
}
