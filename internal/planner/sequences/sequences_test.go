package sequences

import (
	"testing"

	"github.com/aristath/holistic-planner/internal/planner/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func buy(symbol string, priority, valueEUR float64) domain.ActionCandidate {
	return domain.ActionCandidate{Side: domain.SideBuy, Symbol: symbol, Priority: priority, ValueEUR: valueEUR, Quantity: 1, Price: valueEUR}
}

func sell(symbol string, priority, valueEUR float64) domain.ActionCandidate {
	return domain.ActionCandidate{Side: domain.SideSell, Symbol: symbol, Priority: priority, ValueEUR: valueEUR, Quantity: 1, Price: valueEUR}
}

func defaultParams() Params {
	return Params{
		MaxDepth:                   2,
		PriorityThreshold:          0.0,
		EnableCombinatorial:        true,
		CombinatorialMaxCombos:     50,
		CombinatorialMaxSells:      2,
		CombinatorialMaxBuys:       2,
		CombinatorialMaxCandidates: 12,
		EnableDiverseSelection:     false,
		MaxPerCategory:             5,
		AvailableCash:              10000,
	}
}

func TestGenerate_ProducesSomeSequences(t *testing.T) {
	opps := domain.OpportunitiesByCategory{
		RebalanceBuys: []domain.ActionCandidate{buy("AAPL", 10, 100)},
	}
	seqs := Generate(opps, defaultParams())
	assert.NotEmpty(t, seqs)
}

func TestGenerate_NoDuplicateSymbolsWithinASequence(t *testing.T) {
	opps := domain.OpportunitiesByCategory{
		RebalanceBuys:  []domain.ActionCandidate{buy("AAPL", 10, 100)},
		RebalanceSells: []domain.ActionCandidate{sell("AAPL", 9, 50)},
	}
	seqs := Generate(opps, defaultParams())
	for _, seq := range seqs {
		seen := map[string]bool{}
		for _, a := range seq.Actions {
			assert.False(t, seen[a.Symbol], "sequence %s must not repeat a symbol", seq.PatternType)
			seen[a.Symbol] = true
		}
	}
}

func TestGenerate_SellsAlwaysBeforeBuys(t *testing.T) {
	opps := domain.OpportunitiesByCategory{
		RebalanceBuys:  []domain.ActionCandidate{buy("AAPL", 10, 100)},
		RebalanceSells: []domain.ActionCandidate{sell("MSFT", 9, 50)},
	}
	seqs := Generate(opps, defaultParams())
	for _, seq := range seqs {
		sawBuy := false
		for _, a := range seq.Actions {
			if a.Side == domain.SideBuy {
				sawBuy = true
			}
			if sawBuy {
				assert.NotEqual(t, domain.SideSell, a.Side, "a sell must never follow a buy in sequence %s", seq.PatternType)
			}
		}
	}
}

func TestGenerate_RespectsCashFeasibility(t *testing.T) {
	opps := domain.OpportunitiesByCategory{
		RebalanceBuys: []domain.ActionCandidate{buy("AAPL", 10, 100000)},
	}
	p := defaultParams()
	p.AvailableCash = 10
	seqs := Generate(opps, p)
	for _, seq := range seqs {
		cash := p.AvailableCash
		for _, a := range seq.Actions {
			if a.Side == domain.SideBuy {
				cash -= a.ValueEUR
			} else {
				cash += a.ValueEUR
			}
			assert.GreaterOrEqual(t, cash, 0.0)
		}
	}
}

func TestGenerate_DepthNeverExceedsMaxDepth(t *testing.T) {
	opps := domain.OpportunitiesByCategory{
		RebalanceBuys:  []domain.ActionCandidate{buy("A", 10, 10), buy("B", 9, 10), buy("C", 8, 10)},
		RebalanceSells: []domain.ActionCandidate{sell("D", 7, 10), sell("E", 6, 10)},
	}
	p := defaultParams()
	p.MaxDepth = 3
	seqs := Generate(opps, p)
	for _, seq := range seqs {
		assert.LessOrEqual(t, len(seq.Actions), p.MaxDepth)
	}
}

func TestGenerate_EmptyOpportunitiesYieldsNoSequences(t *testing.T) {
	seqs := Generate(domain.OpportunitiesByCategory{}, defaultParams())
	assert.Empty(t, seqs)
}

func TestSelectDiverse_TruncatesToMaxPerCategory(t *testing.T) {
	p := defaultParams()
	p.MaxPerCategory = 2
	p.EnableDiverseSelection = false
	candidates := []domain.ActionCandidate{buy("A", 1, 1), buy("B", 5, 1), buy("C", 3, 1)}
	out := selectDiverse(candidates, p)
	require.Len(t, out, 2)
	assert.Equal(t, "B", out[0].Symbol)
	assert.Equal(t, "C", out[1].Symbol)
}

func TestSelectDiverse_EmptyInput(t *testing.T) {
	assert.Nil(t, selectDiverse(nil, defaultParams()))
}

func TestCashFeasible(t *testing.T) {
	actions := []domain.ActionCandidate{sell("A", 1, 100), buy("B", 1, 150)}
	assert.True(t, cashFeasible(actions, 50))
	assert.False(t, cashFeasible(actions, 49))
}

func TestSellsFirst_ReordersActions(t *testing.T) {
	actions := []domain.ActionCandidate{buy("A", 1, 1), sell("B", 1, 1), buy("C", 1, 1)}
	out := sellsFirst(actions)
	require.Len(t, out, 3)
	assert.Equal(t, domain.SideSell, out[0].Side)
	assert.Equal(t, domain.SideBuy, out[1].Side)
	assert.Equal(t, domain.SideBuy, out[2].Side)
}

func TestCreateSequence_AveragesPriority(t *testing.T) {
	actions := []domain.ActionCandidate{buy("A", 10, 1), buy("B", 20, 1)}
	seq := createSequence(actions, "test_pattern")
	assert.Equal(t, 15.0, seq.Priority)
	assert.Equal(t, 2, seq.Depth)
	assert.Equal(t, "test_pattern", seq.PatternType)
	assert.NotEmpty(t, seq.SequenceHash)
}

func TestCombinations_ReturnsEveryKSizedSubset(t *testing.T) {
	items := []domain.ActionCandidate{buy("A", 1, 1), buy("B", 1, 1), buy("C", 1, 1)}
	combos := combinations(items, 2)
	assert.Len(t, combos, 3) // C(3,2) = 3
}

func TestCombinations_KGreaterThanNReturnsNil(t *testing.T) {
	items := []domain.ActionCandidate{buy("A", 1, 1)}
	assert.Nil(t, combinations(items, 2))
}
