package narrative

import (
	"testing"

	"github.com/aristath/holistic-planner/internal/planner/domain"
	"github.com/stretchr/testify/assert"
)

func TestGenerateStepNarrative_Windfall(t *testing.T) {
	action := domain.ActionCandidate{Side: domain.SideSell, Symbol: "AAPL", Name: "Apple", ValueEUR: 500, Reason: "unrealized gain 60%", Tags: []string{"windfall"}}
	text := GenerateStepNarrative(action, domain.PortfolioContext{}, domain.OpportunitiesByCategory{})
	assert.Contains(t, text, "Sell")
	assert.Contains(t, text, "windfall")
}

func TestGenerateStepNarrative_RebalanceSell_MentionsOverweightRegion(t *testing.T) {
	action := domain.ActionCandidate{Side: domain.SideSell, Symbol: "AAPL", Name: "Apple", ValueEUR: 100, Tags: []string{"rebalance", "overweight_north_america"}}
	text := GenerateStepNarrative(action, domain.PortfolioContext{}, domain.OpportunitiesByCategory{})
	assert.Contains(t, text, "NORTH_AMERICA")
}

func TestGenerateStepNarrative_SellMentionsFreedCapitalWhenBuyOppsExist(t *testing.T) {
	action := domain.ActionCandidate{Side: domain.SideSell, Symbol: "AAPL", Name: "Apple", ValueEUR: 100, Tags: []string{"profit_taking"}, Reason: "gain"}
	opps := domain.OpportunitiesByCategory{RebalanceBuys: []domain.ActionCandidate{{Name: "SAP"}}}
	text := GenerateStepNarrative(action, domain.PortfolioContext{}, opps)
	assert.Contains(t, text, "SAP")
}

func TestGenerateStepNarrative_AveragingDownBuy(t *testing.T) {
	action := domain.ActionCandidate{Side: domain.SideBuy, Symbol: "SAP", Name: "SAP", ValueEUR: 200, Tags: []string{"averaging_down"}, Reason: "quality dip"}
	text := GenerateStepNarrative(action, domain.PortfolioContext{}, domain.OpportunitiesByCategory{})
	assert.Contains(t, text, "Buy")
	assert.Contains(t, text, "Averaging down")
}

func TestGenerateStepNarrative_BuyMentionsUnderweightRegion(t *testing.T) {
	action := domain.ActionCandidate{Side: domain.SideBuy, Symbol: "SAP", Name: "SAP", ValueEUR: 200, Tags: []string{"rebalance", "underweight_europe"}}
	text := GenerateStepNarrative(action, domain.PortfolioContext{}, domain.OpportunitiesByCategory{})
	assert.Contains(t, text, "EUROPE")
}

func TestGenerateStepNarrative_BuyMentionsDividendYieldAboveThreshold(t *testing.T) {
	action := domain.ActionCandidate{Side: domain.SideBuy, Symbol: "SAP", Name: "SAP", ValueEUR: 200, Reason: "quality"}
	ctx := domain.PortfolioContext{StockDividends: map[string]float64{"SAP": 0.05}}
	text := GenerateStepNarrative(action, ctx, domain.OpportunitiesByCategory{})
	assert.Contains(t, text, "5.0% dividend")
}

func TestGenerateStepNarrative_BuyOmitsDividendBelowThreshold(t *testing.T) {
	action := domain.ActionCandidate{Side: domain.SideBuy, Symbol: "SAP", Name: "SAP", ValueEUR: 200, Reason: "quality"}
	ctx := domain.PortfolioContext{StockDividends: map[string]float64{"SAP": 0.01}}
	text := GenerateStepNarrative(action, ctx, domain.OpportunitiesByCategory{})
	assert.NotContains(t, text, "dividend")
}

func TestGeneratePlanNarrative_NoActions(t *testing.T) {
	text := GeneratePlanNarrative(nil, 50, 50)
	assert.Equal(t, "No actions recommended. The portfolio is well-positioned.", text)
}

func TestGeneratePlanNarrative_MixedSellsAndBuys(t *testing.T) {
	steps := []domain.HolisticStep{
		{Side: domain.SideSell, Symbol: "AAPL", EstimatedValue: 100},
		{Side: domain.SideBuy, Symbol: "SAP", EstimatedValue: 90},
	}
	text := GeneratePlanNarrative(steps, 50, 60)
	assert.Contains(t, text, "rebalances the portfolio")
	assert.Contains(t, text, "Sell €100 from AAPL")
	assert.Contains(t, text, "Buy €90 in SAP")
	assert.Contains(t, text, "+10.0 points")
}

func TestGeneratePlanNarrative_NegativeImprovementNotesTradeoff(t *testing.T) {
	steps := []domain.HolisticStep{{Side: domain.SideBuy, Symbol: "SAP", EstimatedValue: 90}}
	text := GeneratePlanNarrative(steps, 60, 55)
	assert.Contains(t, text, "may decrease")
}

func TestGeneratePlanNarrative_WindfallAndAveragingCombo(t *testing.T) {
	steps := []domain.HolisticStep{
		{Side: domain.SideSell, Symbol: "AAPL", EstimatedValue: 100, IsWindfall: true},
		{Side: domain.SideBuy, Symbol: "SAP", EstimatedValue: 90, IsAveragingDown: true},
	}
	text := GeneratePlanNarrative(steps, 50, 60)
	assert.Contains(t, text, "takes profits from windfall gains")
}

func TestGenerateTradeoffExplanation_NoExplanationWhenIndividualImpactPositive(t *testing.T) {
	action := domain.ActionCandidate{Side: domain.SideBuy, Name: "SAP"}
	text := GenerateTradeoffExplanation(action, 1.0, 5.0)
	assert.Empty(t, text)
}

func TestGenerateTradeoffExplanation_NoExplanationWhenSequenceDoesNotImprove(t *testing.T) {
	action := domain.ActionCandidate{Side: domain.SideBuy, Name: "SAP"}
	text := GenerateTradeoffExplanation(action, -2.0, -3.0)
	assert.Empty(t, text)
}

func TestGenerateTradeoffExplanation_ExplainsWorthwhileSacrifice(t *testing.T) {
	action := domain.ActionCandidate{Side: domain.SideSell, Name: "AAPL"}
	text := GenerateTradeoffExplanation(action, -2.0, 5.0)
	assert.Contains(t, text, "Selling AAPL")
	assert.Contains(t, text, "reduce the portfolio score by 2.0")
	assert.Contains(t, text, "overall improvement of 5.0")
}

func TestFormatActionSummary(t *testing.T) {
	action := domain.ActionCandidate{Side: domain.SideBuy, Symbol: "AAPL", Quantity: 10, Price: 150.5, ValueEUR: 1505}
	text := FormatActionSummary(action)
	assert.Equal(t, "BUY 10 AAPL @ €150.50 = €1505", text)
}

func TestFormatActionSummary_Sell(t *testing.T) {
	action := domain.ActionCandidate{Side: domain.SideSell, Symbol: "AAPL", Quantity: 5, Price: 100, ValueEUR: 500}
	text := FormatActionSummary(action)
	assert.Contains(t, text, "SELL")
}
