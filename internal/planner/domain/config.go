package domain

import (
	"fmt"
	"strings"
)

// PlannerConfiguration is the frozen, validated configuration the
// orchestrator and its collaborators are constructed with. It replaces the
// source's dynamic keyword-argument configuration objects (§9): every
// recognized option is an explicit field, and NewPlannerConfiguration
// rejects invalid values at construction rather than at use time.
type PlannerConfiguration struct {
	MaxPlanDepth                  int
	MaxOpportunitiesPerCategory   int
	EnableCombinatorial           bool
	PriorityThreshold             float64
	CombinatorialMaxCombinations  int
	CombinatorialMaxSells         int
	CombinatorialMaxBuys          int
	CombinatorialMaxCandidates    int
	EnableDiverseSelection        bool
	DiversityWeight               float64
	BatchSize                     int
	BeamWidth                     int
	TransactionCostFixed          float64
	TransactionCostPercent        float64
	BuyCooldownDays               int
	SellCooldownDays              int
	PlateauThreshold              int
	ConcurrencyBatchSize          int
}

// DefaultPlannerConfiguration returns the configuration with every default
// named in spec.md §6.
func DefaultPlannerConfiguration() PlannerConfiguration {
	return PlannerConfiguration{
		MaxPlanDepth:                 5,
		MaxOpportunitiesPerCategory:  5,
		EnableCombinatorial:          true,
		PriorityThreshold:            0.3,
		CombinatorialMaxCombinations: 50,
		CombinatorialMaxSells:        4,
		CombinatorialMaxBuys:         4,
		CombinatorialMaxCandidates:   12,
		EnableDiverseSelection:       true,
		DiversityWeight:              0.3,
		BatchSize:                    100,
		BeamWidth:                    10,
		TransactionCostFixed:         2.0,
		TransactionCostPercent:       0.002,
		BuyCooldownDays:              0,
		SellCooldownDays:             0,
		PlateauThreshold:             5,
		ConcurrencyBatchSize:         5,
	}
}

// ValidationError names the offending field and the constraint it failed.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationErrors aggregates every failed constraint from one Validate call.
type ValidationErrors []ValidationError

func (e ValidationErrors) Error() string {
	parts := make([]string, 0, len(e))
	for _, err := range e {
		parts = append(parts, err.Error())
	}
	return strings.Join(parts, "; ")
}

// Validate checks every field against the range named in spec.md §6,
// returning ValidationErrors (never a bare error) so a caller can report
// every violation at once rather than fixing them one at a time.
func (c PlannerConfiguration) Validate() error {
	var errs ValidationErrors

	if c.MaxPlanDepth <= 0 {
		errs = append(errs, ValidationError{"max_plan_depth", "must be greater than 0"})
	}
	if c.MaxPlanDepth > 10 {
		errs = append(errs, ValidationError{"max_plan_depth", "must be <= 10"})
	}
	if c.MaxOpportunitiesPerCategory <= 0 {
		errs = append(errs, ValidationError{"max_opportunities_per_category", "must be greater than 0"})
	}
	if c.PriorityThreshold < 0.0 || c.PriorityThreshold > 1.0 {
		errs = append(errs, ValidationError{"priority_threshold", "must be between 0.0 and 1.0"})
	}
	if c.CombinatorialMaxCombinations <= 0 {
		errs = append(errs, ValidationError{"combinatorial_max_combinations_per_depth", "must be greater than 0"})
	}
	if c.CombinatorialMaxSells <= 0 {
		errs = append(errs, ValidationError{"combinatorial_max_sells", "must be greater than 0"})
	}
	if c.CombinatorialMaxBuys <= 0 {
		errs = append(errs, ValidationError{"combinatorial_max_buys", "must be greater than 0"})
	}
	if c.CombinatorialMaxCandidates <= 0 {
		errs = append(errs, ValidationError{"combinatorial_max_candidates", "must be greater than 0"})
	}
	if c.DiversityWeight < 0.0 || c.DiversityWeight > 1.0 {
		errs = append(errs, ValidationError{"diversity_weight", "must be between 0.0 and 1.0"})
	}
	if c.BatchSize <= 0 {
		errs = append(errs, ValidationError{"batch_size", "must be greater than 0"})
	}
	if c.BeamWidth <= 0 || c.BeamWidth > 50 {
		errs = append(errs, ValidationError{"beam_width", "must be between 1 and 50"})
	}
	if c.TransactionCostFixed < 0 {
		errs = append(errs, ValidationError{"transaction_cost_fixed", "must be non-negative"})
	}
	if c.TransactionCostPercent < 0 {
		errs = append(errs, ValidationError{"transaction_cost_percent", "must be non-negative"})
	}
	if c.BuyCooldownDays < 0 {
		errs = append(errs, ValidationError{"buy_cooldown_days", "must be non-negative"})
	}
	if c.SellCooldownDays < 0 {
		errs = append(errs, ValidationError{"sell_cooldown_days", "must be non-negative"})
	}
	if c.PlateauThreshold <= 0 {
		errs = append(errs, ValidationError{"plateau_threshold", "must be greater than 0"})
	}
	if c.ConcurrencyBatchSize <= 0 {
		errs = append(errs, ValidationError{"concurrency_batch_size", "must be greater than 0"})
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

// NewPlannerConfiguration validates cfg and returns it frozen, or the
// aggregated ValidationErrors. There is no partially-valid configuration:
// a caller either gets a configuration it can use for every subsequent
// orchestrator call, or an error before any work starts.
func NewPlannerConfiguration(cfg PlannerConfiguration) (PlannerConfiguration, error) {
	if err := cfg.Validate(); err != nil {
		return PlannerConfiguration{}, err
	}
	return cfg, nil
}
