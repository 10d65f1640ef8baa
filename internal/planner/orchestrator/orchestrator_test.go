package orchestrator

import (
	"context"
	"testing"

	"github.com/aristath/holistic-planner/internal/planner/domain"
	"github.com/aristath/holistic-planner/internal/planner/repository/memrepo"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig(t *testing.T) domain.PlannerConfiguration {
	t.Helper()
	cfg, err := domain.NewPlannerConfiguration(domain.DefaultPlannerConfiguration())
	require.NoError(t, err)
	return cfg
}

func sampleRequest() PlanRequest {
	return PlanRequest{
		Context: domain.PortfolioContext{
			Positions:         map[string]float64{"AAPL": 3000},
			TotalValue:        10000,
			CountryWeights:    map[string]float64{"NORTH_AMERICA": 0.4, "EUROPE": 0.6},
			StockCountries:    map[string]string{"AAPL": "US", "SAP": "DE"},
			StockScores:       map[string]float64{"AAPL": 0.6, "SAP": 0.9},
			CountryToGroup:    map[string]string{"US": "NORTH_AMERICA", "DE": "EUROPE"},
			PositionAvgPrices: map[string]float64{"AAPL": 100},
			CurrentPrices:     map[string]float64{"AAPL": 120, "SAP": 50},
		},
		Securities: map[string]domain.Security{
			"AAPL": {Symbol: "AAPL", Name: "Apple", Country: "US", AllowBuy: true, AllowSell: true, MinLot: 1},
			"SAP":  {Symbol: "SAP", Name: "SAP", Country: "DE", AllowBuy: true, AllowSell: true, MinLot: 1},
		},
		Prices:        map[string]float64{"AAPL": 120, "SAP": 50},
		AvailableCash: 5000,
		MetricsLookup: func(symbol string) domain.SecurityMetrics {
			return domain.SecurityMetrics{Sharpe: 1.0, Sortino: 1.0}
		},
	}
}

func newTestOrchestrator(t *testing.T) (*Orchestrator, *memrepo.Repository) {
	t.Helper()
	repo := memrepo.New()
	o := New(testConfig(t), repo, zerolog.Nop())
	return o, repo
}

func TestCreateHolisticPlan_ProducesFeasiblePlan(t *testing.T) {
	o, _ := newTestOrchestrator(t)
	plan, err := o.CreateHolisticPlan(context.Background(), sampleRequest())
	require.NoError(t, err)
	assert.True(t, plan.Feasible)
	assert.NotEmpty(t, plan.Steps)
	assert.NotEmpty(t, plan.NarrativeSummary)
}

func TestCreateHolisticPlan_NoOpportunitiesReturnsInfeasiblePlan(t *testing.T) {
	o, _ := newTestOrchestrator(t)
	req := PlanRequest{
		Context:       domain.PortfolioContext{Positions: map[string]float64{}, TotalValue: 0},
		Securities:    map[string]domain.Security{},
		Prices:        map[string]float64{},
		AvailableCash: 0,
	}
	plan, err := o.CreateHolisticPlan(context.Background(), req)
	require.NoError(t, err)
	assert.False(t, plan.Feasible)
	assert.Empty(t, plan.Steps)
}

func TestCreateHolisticPlan_RespectsContextCancellation(t *testing.T) {
	o, _ := newTestOrchestrator(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	// A plan can still be produced from whatever the beam already holds (or
	// none at all); the call must not block or error out on a canceled ctx.
	_, err := o.CreateHolisticPlan(ctx, sampleRequest())
	assert.NoError(t, err)
}

func TestProcessPlannerIncremental_FirstCallPersistsSequences(t *testing.T) {
	o, repo := newTestOrchestrator(t)
	req := sampleRequest()
	hash := portfolioHash(req)

	_, err := o.ProcessPlannerIncremental(context.Background(), req)
	require.NoError(t, err)

	count, err := repo.CountSequences(hash)
	require.NoError(t, err)
	assert.Positive(t, count)
}

func TestProcessPlannerIncremental_SecondCallDoesNotRegenerateSequences(t *testing.T) {
	o, repo := newTestOrchestrator(t)
	req := sampleRequest()
	hash := portfolioHash(req)

	_, err := o.ProcessPlannerIncremental(context.Background(), req)
	require.NoError(t, err)
	firstCount, err := repo.CountSequences(hash)
	require.NoError(t, err)

	_, err = o.ProcessPlannerIncremental(context.Background(), req)
	require.NoError(t, err)
	secondCount, err := repo.CountSequences(hash)
	require.NoError(t, err)

	assert.Equal(t, firstCount, secondCount, "sequences are only generated once per portfolio hash")
}

func TestProcessPlannerIncremental_EventuallyProducesABestResult(t *testing.T) {
	o, _ := newTestOrchestrator(t)
	req := sampleRequest()

	var plan *domain.HolisticPlan
	var err error
	for i := 0; i < 5; i++ {
		plan, err = o.ProcessPlannerIncremental(context.Background(), req)
		require.NoError(t, err)
		if plan != nil {
			break
		}
	}
	require.NotNil(t, plan, "repeated incremental cycles should eventually surface a best result")
}

func TestProcessPlannerIncremental_InvalidatesStalePortfolioHash(t *testing.T) {
	o, repo := newTestOrchestrator(t)
	reqA := sampleRequest()
	hashA := portfolioHash(reqA)

	_, err := o.ProcessPlannerIncremental(context.Background(), reqA)
	require.NoError(t, err)
	countA, _ := repo.CountSequences(hashA)
	require.Positive(t, countA)

	reqB := sampleRequest()
	reqB.Context.Positions["AAPL"] = 9999 // changes the portfolio hash
	_, err = o.ProcessPlannerIncremental(context.Background(), reqB)
	require.NoError(t, err)

	staleCount, err := repo.CountSequences(hashA)
	require.NoError(t, err)
	assert.Zero(t, staleCount, "the previous portfolio hash's rows must be invalidated once state changes")
}

func TestProcessPlannerIncremental_CheckspointsMetricsCache(t *testing.T) {
	o, repo := newTestOrchestrator(t)
	req := sampleRequest()
	hash := portfolioHash(req)

	_, err := o.ProcessPlannerIncremental(context.Background(), req)
	require.NoError(t, err)

	blob, err := repo.LoadMetricsCacheCheckpoint(hash)
	require.NoError(t, err)
	assert.NotEmpty(t, blob, "a successful incremental cycle should persist a metrics cache checkpoint")
}

func TestPortfolioHash_StableAcrossCalls(t *testing.T) {
	req := sampleRequest()
	assert.Equal(t, portfolioHash(req), portfolioHash(req))
}

func TestBeam_KeepsOnlyTopWidthEntries(t *testing.T) {
	b := newBeam(2)
	b.insert(domain.SequenceEvaluationResult{EndScore: 0.1, Sequence: domain.ActionSequence{SequenceHash: "a"}})
	b.insert(domain.SequenceEvaluationResult{EndScore: 0.5, Sequence: domain.ActionSequence{SequenceHash: "b"}})
	b.insert(domain.SequenceEvaluationResult{EndScore: 0.9, Sequence: domain.ActionSequence{SequenceHash: "c"}})

	best, ok := b.best()
	require.True(t, ok)
	assert.Equal(t, "c", best.Sequence.SequenceHash)
	assert.Len(t, b.entries, 2)
}

func TestBeam_BestOnEmptyBeam(t *testing.T) {
	b := newBeam(3)
	_, ok := b.best()
	assert.False(t, ok)
}
