package scoring

import (
	"testing"

	"github.com/aristath/holistic-planner/internal/planner/domain"
	"github.com/stretchr/testify/assert"
)

func TestDefaultWeights_SumToOne(t *testing.T) {
	w := DefaultWeights()
	sum := w.Diversification + w.Dividend + w.Quality + w.RiskAdjusted
	assert.InDelta(t, 1.0, sum, 1e-9)
}

func TestGeoGapScore_ClampsToRange(t *testing.T) {
	assert.InDelta(t, 0.1, GeoGapScore(-10), 1e-9)
	assert.InDelta(t, 0.9, GeoGapScore(10), 1e-9)
	assert.InDelta(t, 0.5, GeoGapScore(0), 1e-9)
}

func TestAveragingDownScore_ZeroPositionValue(t *testing.T) {
	assert.Equal(t, 0.5, AveragingDownScore(0, 1000, 0.4, 100, 90))
}

func TestAveragingDownScore_HighPotentialScoresHigher(t *testing.T) {
	low := AveragingDownScore(100, 1000, 0.2, 0, 0)
	high := AveragingDownScore(100, 1000, 0.6, 0, 0)
	assert.Greater(t, high, low)
}

func TestAveragingDownScore_ConcentrationPenalty(t *testing.T) {
	concentrated := AveragingDownScore(300, 1000, 0.6, 0, 0) // 30% of portfolio
	diffuse := AveragingDownScore(50, 1000, 0.6, 0, 0)       // 5% of portfolio
	assert.Less(t, concentrated, diffuse)
}

func TestAveragingDownScore_CostBasisBoost(t *testing.T) {
	noBoost := AveragingDownScore(100, 1000, 0.2, 100, 100) // priced at cost
	withBoost := AveragingDownScore(100, 1000, 0.2, 100, 95)
	assert.GreaterOrEqual(t, withBoost, noBoost)
}

func emptyContext() domain.PortfolioContext {
	return domain.PortfolioContext{
		Positions:      map[string]float64{},
		CountryWeights: map[string]float64{},
		CountryToGroup: map[string]string{},
	}
}

func TestDiversificationFromEndState_IndustryGapAffectsScore(t *testing.T) {
	concentratedIndustry := domain.PortfolioContext{
		Positions:       map[string]float64{"A": 500, "B": 500},
		TotalValue:      1000,
		CountryWeights:  map[string]float64{"G1": 0.5, "G2": 0.5},
		StockCountries:  map[string]string{"A": "US", "B": "DE"},
		CountryToGroup:  map[string]string{"US": "G1", "DE": "G2"},
		IndustryWeights: map[string]float64{"TECH": 1.0},
		StockIndustries: map[string]string{"A": "SOFTWARE", "B": "SOFTWARE"},
		IndustryToGroup: map[string]string{"SOFTWARE": "TECH"},
	}
	diversifiedIndustry := concentratedIndustry
	diversifiedIndustry.IndustryWeights = map[string]float64{"TECH": 0.5, "HEALTH": 0.5}
	diversifiedIndustry.StockIndustries = map[string]string{"A": "SOFTWARE", "B": "PHARMA"}
	diversifiedIndustry.IndustryToGroup = map[string]string{"SOFTWARE": "TECH", "PHARMA": "HEALTH"}

	assert.Greater(t,
		DiversificationFromEndState(diversifiedIndustry),
		DiversificationFromEndState(concentratedIndustry),
		"a better industry spread must raise the diversification sub-score",
	)
}

func TestDiversificationFromEndState_EmptyIndustryDataDoesNotPanic(t *testing.T) {
	ctx := domain.PortfolioContext{
		Positions:      map[string]float64{"A": 1000},
		TotalValue:     1000,
		CountryWeights: map[string]float64{"G1": 1.0},
		StockCountries: map[string]string{"A": "US"},
		CountryToGroup: map[string]string{"US": "G1"},
	}
	score := DiversificationFromEndState(ctx)
	assert.GreaterOrEqual(t, score, 0.0)
	assert.LessOrEqual(t, score, 1.0)
}

func TestScorePortfolio_ZeroTotalValueReturnsNeutral(t *testing.T) {
	score := ScorePortfolio(domain.PortfolioContext{})
	assert.Equal(t, 50.0, score.Total)
	assert.Equal(t, 50.0, score.DiversificationScore)
}

func TestScorePortfolio_EmptyPositionsNoPanic(t *testing.T) {
	ctx := emptyContext()
	ctx.TotalValue = 1000
	score := ScorePortfolio(ctx)
	assert.GreaterOrEqual(t, score.Total, 0.0)
}

func TestScorePortfolio_WellDiversifiedScoresHigherThanConcentrated(t *testing.T) {
	diversified := domain.PortfolioContext{
		Positions:      map[string]float64{"A": 330, "B": 330, "C": 340},
		TotalValue:     1000,
		CountryWeights: map[string]float64{"G1": 0.33, "G2": 0.33, "G3": 0.34},
		StockCountries: map[string]string{"A": "US", "B": "DE", "C": "JP"},
		CountryToGroup: map[string]string{"US": "G1", "DE": "G2", "JP": "G3"},
	}
	concentrated := domain.PortfolioContext{
		Positions:      map[string]float64{"A": 1000},
		TotalValue:     1000,
		CountryWeights: map[string]float64{"G1": 0.33, "G2": 0.33, "G3": 0.34},
		StockCountries: map[string]string{"A": "US"},
		CountryToGroup: map[string]string{"US": "G1"},
	}

	assert.Greater(t, ScorePortfolio(diversified).DiversificationScore, ScorePortfolio(concentrated).DiversificationScore)
}

func TestScoreSingleAction_PositiveWhenAfterIsBetter(t *testing.T) {
	before := domain.PortfolioContext{
		Positions:      map[string]float64{"A": 1000},
		TotalValue:     1000,
		CountryWeights: map[string]float64{"G1": 0.5, "G2": 0.5},
		StockCountries: map[string]string{"A": "US"},
		CountryToGroup: map[string]string{"US": "G1", "DE": "G2"},
	}
	after := domain.PortfolioContext{
		Positions:      map[string]float64{"A": 500, "B": 500},
		TotalValue:     1000,
		CountryWeights: map[string]float64{"G1": 0.5, "G2": 0.5},
		StockCountries: map[string]string{"A": "US", "B": "DE"},
		CountryToGroup: map[string]string{"US": "G1", "DE": "G2"},
	}
	assert.Greater(t, ScoreSingleAction(before, after), 0.0)
}

func TestEndStateScore_ClampedToUnitInterval(t *testing.T) {
	ctx := domain.PortfolioContext{
		Positions:         map[string]float64{"A": 1000},
		TotalValue:        1000,
		CountryWeights:    map[string]float64{"G1": 1.0},
		StockCountries:    map[string]string{"A": "US"},
		CountryToGroup:    map[string]string{"US": "G1"},
		StockScores:       map[string]float64{"A": 0.9},
		StockDividends:    map[string]float64{"A": 0.03},
		CurrentPrices:     map[string]float64{"A": 100},
		PositionAvgPrices: map[string]float64{"A": 90},
	}
	metrics := map[string]domain.SecurityMetrics{"A": {Sharpe: 1.5, Sortino: 1.5, MaxDrawdown: -0.1, VolatilityAnnual: 0.2}}

	score, breakdown := EndStateScore(ctx, metrics, DefaultWeights())
	assert.GreaterOrEqual(t, score, 0.0)
	assert.LessOrEqual(t, score, 1.0)
	assert.Contains(t, breakdown, "diversification")
	assert.Contains(t, breakdown, "dividend")
	assert.Contains(t, breakdown, "quality")
	assert.Contains(t, breakdown, "risk_adjusted")
}

func TestEndStateScore_EmptyPortfolioDoesNotPanic(t *testing.T) {
	score, _ := EndStateScore(domain.PortfolioContext{}, nil, DefaultWeights())
	assert.GreaterOrEqual(t, score, 0.0)
}
