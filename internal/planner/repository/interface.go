// Package repository defines the persistence contract for C7 (sequences,
// evaluations, best_result) and provides two implementations: sqliterepo
// (the real database) and memrepo (for tests and the batch-mode orchestrator
// when persistence isn't required). Grounded on
// internal/modules/planning/repository/planner_repository_interface.go.
package repository

import "github.com/aristath/holistic-planner/internal/planner/domain"

// SequenceRecord is a persisted row from the sequences table.
type SequenceRecord struct {
	SequenceHash  string
	PortfolioHash string
	Sequence      domain.ActionSequence
	Completed     bool
}

// EvaluationRecord is a persisted row from the evaluations table.
type EvaluationRecord struct {
	SequenceHash  string
	PortfolioHash string
	Result        domain.EvaluationResult
}

// PlannerRepository is the contract every orchestrator collaborator
// depends on. Both implementations treat every write as its own short
// transaction (§9: "no long-lived transactions across a planning run").
type PlannerRepository interface {
	// ListDistinctPortfolioHashes returns every portfolio_hash with at
	// least one sequences row, for incremental mode's invalidation step.
	ListDistinctPortfolioHashes() ([]string, error)

	InsertSequence(portfolioHash string, sequence domain.ActionSequence) error
	GetSequence(sequenceHash, portfolioHash string) (*domain.ActionSequence, error)
	ListSequencesByPortfolioHash(portfolioHash string, limit int) ([]SequenceRecord, error)
	GetPendingSequences(portfolioHash string, limit int) ([]SequenceRecord, error)
	MarkSequenceCompleted(sequenceHash, portfolioHash string) error
	DeleteSequencesByPortfolioHash(portfolioHash string) error

	InsertEvaluation(evaluation domain.EvaluationResult) error
	GetEvaluation(sequenceHash, portfolioHash string) (*domain.EvaluationResult, error)
	ListEvaluationsByPortfolioHash(portfolioHash string) ([]EvaluationRecord, error)
	DeleteEvaluationsByPortfolioHash(portfolioHash string) error

	UpsertBestResult(portfolioHash string, result domain.EvaluationResult, plan domain.HolisticPlan) error
	GetBestResult(portfolioHash string) (*domain.HolisticPlan, error)
	DeleteBestResult(portfolioHash string) error

	CountSequences(portfolioHash string) (int, error)
	CountPendingSequences(portfolioHash string) (int, error)
	CountEvaluations(portfolioHash string) (int, error)

	// SaveMetricsCacheCheckpoint persists an encoded metrics-cache snapshot
	// (§4.5) for reuse by the next incremental-mode cycle. The blob's
	// encoding is the caller's concern; the repository stores it opaquely.
	SaveMetricsCacheCheckpoint(portfolioHash string, blob []byte) error
	// LoadMetricsCacheCheckpoint returns the last saved blob for
	// portfolioHash, or nil if none exists yet.
	LoadMetricsCacheCheckpoint(portfolioHash string) ([]byte, error)
}
