package service

import (
	"context"
	"testing"

	"github.com/aristath/holistic-planner/internal/planner/domain"
	"github.com/aristath/holistic-planner/internal/planner/orchestrator"
	"github.com/aristath/holistic-planner/internal/planner/repository/memrepo"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func samplePayload() map[string]interface{} {
	return map[string]interface{}{
		"Context": map[string]interface{}{
			"Positions":         map[string]interface{}{"AAPL": 3000.0},
			"TotalValue":        10000.0,
			"CountryWeights":    map[string]interface{}{"NORTH_AMERICA": 0.4, "EUROPE": 0.6},
			"StockCountries":    map[string]interface{}{"AAPL": "US", "SAP": "DE"},
			"StockScores":       map[string]interface{}{"AAPL": 0.6, "SAP": 0.9},
			"CountryToGroup":    map[string]interface{}{"US": "NORTH_AMERICA", "DE": "EUROPE"},
			"PositionAvgPrices": map[string]interface{}{"AAPL": 100.0},
			"CurrentPrices":     map[string]interface{}{"AAPL": 120.0, "SAP": 50.0},
		},
		"Securities": map[string]interface{}{
			"AAPL": map[string]interface{}{"Symbol": "AAPL", "Name": "Apple", "Country": "US", "AllowBuy": true, "AllowSell": true, "MinLot": 1.0},
			"SAP":  map[string]interface{}{"Symbol": "SAP", "Name": "SAP", "Country": "DE", "AllowBuy": true, "AllowSell": true, "MinLot": 1.0},
		},
		"Prices":        map[string]interface{}{"AAPL": 120.0, "SAP": 50.0},
		"AvailableCash": 5000.0,
		"Metrics": map[string]interface{}{
			"AAPL": map[string]interface{}{"Sharpe": 1.0, "Sortino": 1.0},
			"SAP":  map[string]interface{}{"Sharpe": 1.2, "Sortino": 1.1},
		},
	}
}

func TestPlanRequestFromPayload_DecodesFields(t *testing.T) {
	req, err := PlanRequestFromPayload(samplePayload())
	require.NoError(t, err)

	assert.Equal(t, 3000.0, req.Context.Positions["AAPL"])
	assert.Equal(t, 10000.0, req.Context.TotalValue)
	assert.Equal(t, 5000.0, req.AvailableCash)
	require.Contains(t, req.Securities, "AAPL")
	assert.Equal(t, "Apple", req.Securities["AAPL"].Name)
}

func TestPlanRequestFromPayload_MetricsLookupServesSideTable(t *testing.T) {
	req, err := PlanRequestFromPayload(samplePayload())
	require.NoError(t, err)

	m := req.MetricsLookup("SAP")
	assert.Equal(t, 1.2, m.Sharpe)

	unknown := req.MetricsLookup("NOPE")
	assert.Equal(t, domain.SecurityMetrics{}, unknown)
}

func TestPlanRequestFromPayload_EmptyPayloadDoesNotError(t *testing.T) {
	req, err := PlanRequestFromPayload(map[string]interface{}{})
	require.NoError(t, err)
	assert.Equal(t, 0.0, req.AvailableCash)
}

func newTestService(t *testing.T) *PlannerService {
	t.Helper()
	cfg, err := domain.NewPlannerConfiguration(domain.DefaultPlannerConfiguration())
	require.NoError(t, err)
	orch := orchestrator.New(cfg, memrepo.New(), zerolog.Nop())
	return New(orch, zerolog.Nop())
}

func TestPlannerService_RunBatch_Succeeds(t *testing.T) {
	s := newTestService(t)
	err := s.RunBatch(context.Background(), samplePayload())
	assert.NoError(t, err)
}

func TestPlannerService_RunBatch_PropagatesDecodeError(t *testing.T) {
	s := newTestService(t)
	badPayload := map[string]interface{}{"AvailableCash": "not-a-number"}
	err := s.RunBatch(context.Background(), badPayload)
	assert.Error(t, err)
}

func TestPlannerService_RunIncremental_Succeeds(t *testing.T) {
	s := newTestService(t)
	// A single incremental step over a fresh portfolio hash seeds the
	// sequences, evaluates the first batch and stores a best plan;
	// RunIncremental reports that step as success.
	err := s.RunIncremental(context.Background(), samplePayload())
	assert.NoError(t, err)
}

func TestPlannerService_RunIncremental_PropagatesDecodeError(t *testing.T) {
	s := newTestService(t)
	badPayload := map[string]interface{}{"AvailableCash": "not-a-number"}
	err := s.RunIncremental(context.Background(), badPayload)
	assert.Error(t, err)
}
