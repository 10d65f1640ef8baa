package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPortfolioContext_Clone_DeepCopiesMaps(t *testing.T) {
	original := PortfolioContext{
		Positions:      map[string]float64{"AAPL": 100},
		CountryWeights: map[string]float64{"US": 0.5},
		StockCountries: map[string]string{"AAPL": "US"},
		CountryToGroup: map[string]string{"US": "NORTH_AMERICA"},
	}

	clone := original.Clone()
	clone.Positions["AAPL"] = 999
	clone.CountryWeights["US"] = 0.9
	clone.StockCountries["AAPL"] = "DE"
	clone.CountryToGroup["US"] = "EUROPE"

	assert.Equal(t, 100.0, original.Positions["AAPL"], "mutating the clone must not alias the original")
	assert.Equal(t, 0.5, original.CountryWeights["US"])
	assert.Equal(t, "US", original.StockCountries["AAPL"])
	assert.Equal(t, "NORTH_AMERICA", original.CountryToGroup["US"])
}

func TestPortfolioContext_Clone_PreservesNilMaps(t *testing.T) {
	var original PortfolioContext
	clone := original.Clone()
	assert.Nil(t, clone.Positions)
	assert.Nil(t, clone.StockDividends)
}

func TestPortfolioContext_GroupForCountry(t *testing.T) {
	ctx := PortfolioContext{
		CountryToGroup: map[string]string{"US": "NORTH_AMERICA", "DE": "EUROPE"},
	}

	assert.Equal(t, "NORTH_AMERICA", ctx.GroupForCountry("US"))
	assert.Equal(t, "EUROPE", ctx.GroupForCountry("DE"))
	assert.Equal(t, "OTHER", ctx.GroupForCountry("JP"), "unknown country falls back to OTHER")
	assert.Equal(t, "OTHER", ctx.GroupForCountry(""), "empty country falls back to OTHER")
}

func TestActionCandidate_HasTag(t *testing.T) {
	a := ActionCandidate{Tags: []string{"windfall", "averaging_down"}}

	assert.True(t, a.HasTag("windfall"))
	assert.True(t, a.HasTag("averaging_down"))
	assert.False(t, a.HasTag("profit_taking"))
}

func TestActionCandidate_HasTag_EmptyTags(t *testing.T) {
	a := ActionCandidate{}
	assert.False(t, a.HasTag("anything"))
}

func TestOpportunitiesByCategory_All_FixedOrder(t *testing.T) {
	o := OpportunitiesByCategory{
		ProfitTaking:    []ActionCandidate{{Symbol: "A"}},
		AveragingDown:   []ActionCandidate{{Symbol: "B"}},
		RebalanceSells:  []ActionCandidate{{Symbol: "C"}},
		RebalanceBuys:   []ActionCandidate{{Symbol: "D"}},
		OpportunityBuys: []ActionCandidate{{Symbol: "E"}},
	}

	all := o.All()
	symbols := make([]string, len(all))
	for i, a := range all {
		symbols[i] = a.Symbol
	}
	assert.Equal(t, []string{"A", "B", "C", "D", "E"}, symbols)
}

func TestOpportunitiesByCategory_All_SkipsEmptyCategories(t *testing.T) {
	o := OpportunitiesByCategory{
		RebalanceBuys: []ActionCandidate{{Symbol: "D"}},
	}
	all := o.All()
	assert.Len(t, all, 1)
	assert.Equal(t, "D", all[0].Symbol)
}

func TestOpportunitiesByCategory_ByCategory(t *testing.T) {
	o := OpportunitiesByCategory{
		ProfitTaking:  []ActionCandidate{{Symbol: "A"}},
		RebalanceBuys: []ActionCandidate{{Symbol: "D"}},
	}

	assert.Equal(t, o.ProfitTaking, o.ByCategory(CategoryProfitTaking))
	assert.Equal(t, o.RebalanceBuys, o.ByCategory(CategoryRebalanceBuys))
	assert.Nil(t, o.ByCategory(OpportunityCategory("nonexistent")))
}
