// Package memrepo is an in-memory PlannerRepository for tests and for
// batch-mode runs that don't need cross-restart persistence. Grounded on
// internal/modules/planning/repository/in_memory_planner_repository.go.
package memrepo

import (
	"sort"
	"sync"

	"github.com/aristath/holistic-planner/internal/planner/domain"
	"github.com/aristath/holistic-planner/internal/planner/repository"
)

type sequenceEntry struct {
	sequence  domain.ActionSequence
	completed bool
	createdAt int
}

// Repository is a sync.RWMutex-guarded, map-backed PlannerRepository.
type Repository struct {
	mu          sync.RWMutex
	sequences   map[string]map[string]*sequenceEntry // portfolioHash -> sequenceHash -> entry
	evaluations map[string]map[string]domain.EvaluationResult
	bestResults map[string]domain.HolisticPlan
	bestScores  map[string]float64
	metricsBlob map[string][]byte
	clock       int
}

// New returns an empty in-memory repository.
func New() *Repository {
	return &Repository{
		sequences:   make(map[string]map[string]*sequenceEntry),
		evaluations: make(map[string]map[string]domain.EvaluationResult),
		bestResults: make(map[string]domain.HolisticPlan),
		bestScores:  make(map[string]float64),
		metricsBlob: make(map[string][]byte),
	}
}

var _ repository.PlannerRepository = (*Repository)(nil)

func (r *Repository) ListDistinctPortfolioHashes() ([]string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.sequences))
	for hash := range r.sequences {
		out = append(out, hash)
	}
	return out, nil
}

func (r *Repository) InsertSequence(portfolioHash string, seq domain.ActionSequence) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	bucket, ok := r.sequences[portfolioHash]
	if !ok {
		bucket = make(map[string]*sequenceEntry)
		r.sequences[portfolioHash] = bucket
	}
	if _, exists := bucket[seq.SequenceHash]; exists {
		return nil
	}
	r.clock++
	bucket[seq.SequenceHash] = &sequenceEntry{sequence: seq, createdAt: r.clock}
	return nil
}

func (r *Repository) GetSequence(sequenceHash, portfolioHash string) (*domain.ActionSequence, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	entry, ok := r.sequences[portfolioHash][sequenceHash]
	if !ok {
		return nil, nil
	}
	seq := entry.sequence
	return &seq, nil
}

func (r *Repository) listSequences(portfolioHash string, limit int, pendingOnly bool) ([]repository.SequenceRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []repository.SequenceRecord
	for hash, entry := range r.sequences[portfolioHash] {
		if pendingOnly && entry.completed {
			continue
		}
		out = append(out, repository.SequenceRecord{
			SequenceHash: hash, PortfolioHash: portfolioHash,
			Sequence: entry.sequence, Completed: entry.completed,
		})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Sequence.Priority > out[j].Sequence.Priority })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *Repository) ListSequencesByPortfolioHash(portfolioHash string, limit int) ([]repository.SequenceRecord, error) {
	return r.listSequences(portfolioHash, limit, false)
}

func (r *Repository) GetPendingSequences(portfolioHash string, limit int) ([]repository.SequenceRecord, error) {
	return r.listSequences(portfolioHash, limit, true)
}

func (r *Repository) MarkSequenceCompleted(sequenceHash, portfolioHash string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if entry, ok := r.sequences[portfolioHash][sequenceHash]; ok {
		entry.completed = true
	}
	return nil
}

func (r *Repository) DeleteSequencesByPortfolioHash(portfolioHash string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sequences, portfolioHash)
	return nil
}

func (r *Repository) InsertEvaluation(eval domain.EvaluationResult) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	bucket, ok := r.evaluations[eval.PortfolioHash]
	if !ok {
		bucket = make(map[string]domain.EvaluationResult)
		r.evaluations[eval.PortfolioHash] = bucket
	}
	bucket[eval.SequenceHash] = eval
	return nil
}

func (r *Repository) GetEvaluation(sequenceHash, portfolioHash string) (*domain.EvaluationResult, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	eval, ok := r.evaluations[portfolioHash][sequenceHash]
	if !ok {
		return nil, nil
	}
	return &eval, nil
}

func (r *Repository) ListEvaluationsByPortfolioHash(portfolioHash string) ([]repository.EvaluationRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []repository.EvaluationRecord
	for hash, eval := range r.evaluations[portfolioHash] {
		out = append(out, repository.EvaluationRecord{SequenceHash: hash, PortfolioHash: portfolioHash, Result: eval})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Result.EndScore > out[j].Result.EndScore })
	return out, nil
}

func (r *Repository) DeleteEvaluationsByPortfolioHash(portfolioHash string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.evaluations, portfolioHash)
	return nil
}

// UpsertBestResult mirrors sqliterepo's monotonic replace rule: a new
// result only overwrites the stored best when its score strictly exceeds it.
func (r *Repository) UpsertBestResult(portfolioHash string, result domain.EvaluationResult, plan domain.HolisticPlan) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if existing, ok := r.bestScores[portfolioHash]; ok && result.EndScore <= existing {
		return nil
	}
	r.bestScores[portfolioHash] = result.EndScore
	r.bestResults[portfolioHash] = plan
	return nil
}

func (r *Repository) GetBestResult(portfolioHash string) (*domain.HolisticPlan, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	plan, ok := r.bestResults[portfolioHash]
	if !ok {
		return nil, nil
	}
	return &plan, nil
}

func (r *Repository) DeleteBestResult(portfolioHash string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.bestResults, portfolioHash)
	delete(r.bestScores, portfolioHash)
	return nil
}

func (r *Repository) CountSequences(portfolioHash string) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sequences[portfolioHash]), nil
}

func (r *Repository) CountPendingSequences(portfolioHash string) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	count := 0
	for _, entry := range r.sequences[portfolioHash] {
		if !entry.completed {
			count++
		}
	}
	return count, nil
}

func (r *Repository) CountEvaluations(portfolioHash string) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.evaluations[portfolioHash]), nil
}

func (r *Repository) SaveMetricsCacheCheckpoint(portfolioHash string, blob []byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.metricsBlob[portfolioHash] = blob
	return nil
}

func (r *Repository) LoadMetricsCacheCheckpoint(portfolioHash string) ([]byte, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.metricsBlob[portfolioHash], nil
}
