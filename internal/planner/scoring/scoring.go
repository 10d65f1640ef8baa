// Package scoring implements C5 (end-state scorer) plus the supplemented
// portfolio-health score, grounded on
// original_source/app/domain/scoring/diversification.py's
// calculate_diversification_score and calculate_portfolio_score.
package scoring

import (
	"math"

	"github.com/aristath/holistic-planner/internal/planner/domain"
	"gonum.org/v1/gonum/stat"
)

// Inferred constants: original_source imports these from a constants module
// not present in the retrieval pack. See SPEC_FULL.md, Supplemented Features
// item 1.
const (
	costBasisBoostThreshold = 0.15
	maxCostBasisBoost       = 0.10
	concentrationHigh       = 0.25
	concentrationMed        = 0.15

	volatilityCap = 0.40 // annualized volatility beyond which the risk score's volatility term floors at 0
)

// Weights is the default convex-combination weighting for EndStateScore
// (§4.5). Fields sum to 1.0.
type Weights struct {
	Diversification float64
	Dividend        float64
	Quality         float64
	RiskAdjusted    float64
}

// DefaultWeights are the weights named in spec.md §4.5.
func DefaultWeights() Weights {
	return Weights{Diversification: 0.40, Dividend: 0.15, Quality: 0.20, RiskAdjusted: 0.25}
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// GeoGapScore is the per-geography underweight-boost score: 0.5 + weight*0.4,
// clamped to [0.1, 0.9].
func GeoGapScore(weight float64) float64 {
	score := 0.5 + weight*0.4
	if score < 0.1 {
		return 0.1
	}
	if score > 0.9 {
		return 0.9
	}
	return score
}

// AveragingDownScore scores the potential of a held position priced below
// its average cost, tiered on quality*opportunity, with a cost-basis bonus
// and a concentration penalty.
func AveragingDownScore(
	positionValue, totalValue, avgDownPotential, avgPrice, currentPrice float64,
) float64 {
	if positionValue <= 0 {
		return 0.5
	}

	var score float64
	switch {
	case avgDownPotential >= 0.5:
		score = 0.7 + (avgDownPotential-0.5)*0.6
	case avgDownPotential >= 0.3:
		score = 0.5 + (avgDownPotential-0.3)*1.0
	default:
		score = 0.3
	}

	if avgPrice > 0 && currentPrice > 0 {
		priceVsAvg := (currentPrice - avgPrice) / avgPrice
		if priceVsAvg < 0 {
			lossPct := -priceVsAvg
			if lossPct <= costBasisBoostThreshold {
				boost := math.Min(maxCostBasisBoost, lossPct*2)
				score = math.Min(1.0, score+boost)
			}
		}
	}

	if totalValue > 0 {
		positionPct := positionValue / totalValue
		if positionPct > concentrationHigh {
			score *= 0.7
		} else if positionPct > concentrationMed {
			score *= 0.9
		}
	}

	return score
}

// groupGapScore buckets position values by the group a per-symbol lookup
// resolves to, compares each group's current share of TotalValue against a
// target percentage derived from its configured weight, and returns
// 1 - (average absolute deviation across groups)/0.30, floored at 0. Shared
// by the geo-gap and industry-gap terms of DiversificationFromEndState.
func groupGapScore(
	ctx domain.PortfolioContext,
	groupWeights map[string]float64,
	groupOf func(symbol string) string,
) float64 {
	groupValues := make(map[string]float64)
	for symbol, value := range ctx.Positions {
		groupValues[groupOf(symbol)] += value
	}
	var deviations []float64
	for group, weight := range groupWeights {
		targetPct := 0.33 + weight*0.15
		currentPct := 0.0
		if ctx.TotalValue > 0 {
			currentPct = groupValues[group] / ctx.TotalValue
		}
		deviations = append(deviations, math.Abs(currentPct-targetPct))
	}
	avgDeviation := 0.2
	if len(deviations) > 0 {
		avgDeviation = stat.Mean(deviations, nil)
	}
	score := 1 - avgDeviation/0.30
	if score < 0 {
		score = 0
	}
	return score
}

// DiversificationFromEndState computes the diversification subscore
// described in §4.5: a weighted average of geo-gap (40%), industry-gap
// (30%), and averaging-down-on-held-positions (30%), matching
// original_source/app/domain/scoring/diversification.py's
// calculate_diversification_score weighting.
func DiversificationFromEndState(ctx domain.PortfolioContext) float64 {
	geoScore := groupGapScore(ctx, ctx.CountryWeights, func(symbol string) string {
		return ctx.GroupForCountry(ctx.StockCountries[symbol])
	})
	industryScore := groupGapScore(ctx, ctx.IndustryWeights, func(symbol string) string {
		return ctx.GroupForIndustry(ctx.StockIndustries[symbol])
	})

	var avgDownScores, posValues []float64
	for symbol, value := range ctx.Positions {
		price := ctx.CurrentPrices[symbol]
		avgPrice := ctx.PositionAvgPrices[symbol]
		potential := ctx.StockScores[symbol]
		avgDownScores = append(avgDownScores, AveragingDownScore(value, ctx.TotalValue, potential, avgPrice, price))
		posValues = append(posValues, value)
	}
	avgDownScore := 0.5
	if len(avgDownScores) > 0 {
		avgDownScore = stat.Mean(avgDownScores, posValues)
	}

	return clamp01(geoScore*0.4 + industryScore*0.3 + avgDownScore*0.3)
}

// EndStateScore scores a simulated end state (§4.5): diversification +
// dividend + quality + risk-adjusted, weighted and clamped to [0,1].
func EndStateScore(
	ctx domain.PortfolioContext,
	metrics map[string]domain.SecurityMetrics,
	w Weights,
) (float64, map[string]float64) {
	diversification := DiversificationFromEndState(ctx)

	weightedYield, weightedQuality := weightedYieldAndQuality(ctx)
	dividendScore := clamp01(math.Min(1, (30+weightedYield*1000)/100))
	qualityScore := clamp01(weightedQuality)

	riskScore := weightedRiskAdjusted(ctx, metrics)

	total := diversification*w.Diversification +
		dividendScore*w.Dividend +
		qualityScore*w.Quality +
		riskScore*w.RiskAdjusted

	breakdown := map[string]float64{
		"diversification": diversification,
		"dividend":         dividendScore,
		"quality":          qualityScore,
		"risk_adjusted":    riskScore,
	}
	return clamp01(total), breakdown
}

func weightedYieldAndQuality(ctx domain.PortfolioContext) (yield, quality float64) {
	if ctx.TotalValue <= 0 || len(ctx.Positions) == 0 {
		return 0, 0.5
	}
	yields := make([]float64, 0, len(ctx.Positions))
	qualities := make([]float64, 0, len(ctx.Positions))
	weights := make([]float64, 0, len(ctx.Positions))
	for symbol, value := range ctx.Positions {
		yields = append(yields, ctx.StockDividends[symbol])
		q := ctx.StockScores[symbol]
		if q == 0 {
			q = 0.5
		}
		qualities = append(qualities, q)
		weights = append(weights, value)
	}
	return stat.Mean(yields, weights), stat.Mean(qualities, weights)
}

// weightedRiskAdjusted averages normalized Sharpe, Sortino,
// 1-|max_drawdown|, and 1-volatility/cap across held positions, weighted by
// position value.
func weightedRiskAdjusted(ctx domain.PortfolioContext, metrics map[string]domain.SecurityMetrics) float64 {
	if ctx.TotalValue <= 0 || len(ctx.Positions) == 0 {
		return 0.5
	}
	composites := make([]float64, 0, len(ctx.Positions))
	weights := make([]float64, 0, len(ctx.Positions))
	for symbol, value := range ctx.Positions {
		m := metrics[symbol]

		sharpe := clamp01((m.Sharpe + 1) / 3) // normalize roughly [-1,2] -> [0,1]
		sortino := clamp01((m.Sortino + 1) / 3)
		drawdown := clamp01(1 - math.Abs(m.MaxDrawdown))
		volatility := clamp01(1 - m.VolatilityAnnual/volatilityCap)

		composites = append(composites, (sharpe+sortino+drawdown+volatility)/4)
		weights = append(weights, value)
	}
	return clamp01(stat.Mean(composites, weights))
}

// ScorePortfolio computes the portfolio's current health score (0-100),
// independent of any candidate sequence — a supplement beyond spec.md's C5.
func ScorePortfolio(ctx domain.PortfolioContext) domain.PortfolioScore {
	if ctx.TotalValue <= 0 {
		return domain.PortfolioScore{DiversificationScore: 50, DividendScore: 50, QualityScore: 50, Total: 50}
	}

	geoValues := make(map[string]float64)
	for symbol, value := range ctx.Positions {
		group := ctx.GroupForCountry(ctx.StockCountries[symbol])
		geoValues[group] += value
	}
	var geoDeviations []float64
	for group, weight := range ctx.CountryWeights {
		targetPct := 0.33 + weight*0.15
		currentPct := geoValues[group] / ctx.TotalValue
		geoDeviations = append(geoDeviations, math.Abs(currentPct-targetPct))
	}
	avgGeoDeviation := 0.2
	if len(geoDeviations) > 0 {
		avgGeoDeviation = stat.Mean(geoDeviations, nil)
	}
	diversification := math.Max(0, 100*(1-avgGeoDeviation/0.3))

	weightedYield, weightedQuality := weightedYieldAndQuality(ctx)
	dividend := math.Min(100, 30+weightedYield*1000)
	quality := weightedQuality * 100

	total := diversification*0.40 + dividend*0.30 + quality*0.30

	return domain.PortfolioScore{
		DiversificationScore: diversification,
		DividendScore:        dividend,
		QualityScore:         quality,
		Total:                total,
	}
}

// ScoreSingleAction returns the portfolio score delta a single candidate
// would produce if simulated in isolation — a supplement beyond spec.md's
// C5 whose result fits narrative.GenerateTradeoffExplanation's
// individualImpact argument. No planner code path calls it.
func ScoreSingleAction(before, after domain.PortfolioContext) float64 {
	return ScorePortfolio(after).Total - ScorePortfolio(before).Total
}
