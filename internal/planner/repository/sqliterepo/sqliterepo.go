// Package sqliterepo is the SQLite-backed PlannerRepository, grounded on
// internal/modules/planning/repository/planner_repository.go.
package sqliterepo

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/aristath/holistic-planner/internal/database"
	"github.com/aristath/holistic-planner/internal/planner/domain"
	"github.com/aristath/holistic-planner/internal/planner/repository"
	"github.com/aristath/holistic-planner/internal/utils"
	"github.com/rs/zerolog"
)

// Repository is the SQLite-backed implementation of
// repository.PlannerRepository, operating on the planner database profile's
// sequences/evaluations/best_result tables.
type Repository struct {
	db  *database.DB
	log zerolog.Logger
}

// New wraps db with the planner repository contract.
func New(db *database.DB, log zerolog.Logger) *Repository {
	return &Repository{db: db, log: log.With().Str("component", "planner_repository").Logger()}
}

var _ repository.PlannerRepository = (*Repository)(nil)

func (r *Repository) ListDistinctPortfolioHashes() ([]string, error) {
	rows, err := r.db.Query(`SELECT DISTINCT portfolio_hash FROM sequences`)
	if err != nil {
		return nil, fmt.Errorf("list distinct portfolio hashes: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var hash string
		if err := rows.Scan(&hash); err != nil {
			return nil, fmt.Errorf("scan portfolio hash: %w", err)
		}
		out = append(out, hash)
	}
	return out, rows.Err()
}

func (r *Repository) InsertSequence(portfolioHash string, seq domain.ActionSequence) error {
	data, err := json.Marshal(seq.Actions)
	if err != nil {
		return fmt.Errorf("marshal sequence actions: %w", err)
	}
	_, err = r.db.Exec(`
		INSERT INTO sequences (sequence_hash, portfolio_hash, priority, sequence_json, depth, pattern_type, completed, created_at)
		VALUES (?, ?, ?, ?, ?, ?, 0, ?)
		ON CONFLICT(sequence_hash, portfolio_hash) DO NOTHING
	`, seq.SequenceHash, portfolioHash, seq.Priority, string(data), seq.Depth, seq.PatternType, utils.ToUnix(time.Now()))
	if err != nil {
		return fmt.Errorf("insert sequence: %w", err)
	}
	return nil
}

func (r *Repository) GetSequence(sequenceHash, portfolioHash string) (*domain.ActionSequence, error) {
	var actionsJSON, patternType string
	var depth int
	var priority float64
	err := r.db.QueryRow(`
		SELECT sequence_json, pattern_type, depth, priority
		FROM sequences WHERE sequence_hash = ? AND portfolio_hash = ?
	`, sequenceHash, portfolioHash).Scan(&actionsJSON, &patternType, &depth, &priority)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get sequence: %w", err)
	}
	var actions []domain.ActionCandidate
	if err := json.Unmarshal([]byte(actionsJSON), &actions); err != nil {
		return nil, fmt.Errorf("unmarshal sequence actions: %w", err)
	}
	return &domain.ActionSequence{
		Actions: actions, Priority: priority, Depth: depth,
		PatternType: patternType, SequenceHash: sequenceHash,
	}, nil
}

func (r *Repository) ListSequencesByPortfolioHash(portfolioHash string, limit int) ([]repository.SequenceRecord, error) {
	query := `
		SELECT sequence_hash, portfolio_hash, sequence_json, pattern_type, depth, priority, completed
		FROM sequences WHERE portfolio_hash = ?
		ORDER BY priority DESC, created_at DESC
	`
	if limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", limit)
	}
	return r.querySequences(query, portfolioHash)
}

func (r *Repository) GetPendingSequences(portfolioHash string, limit int) ([]repository.SequenceRecord, error) {
	query := `
		SELECT sequence_hash, portfolio_hash, sequence_json, pattern_type, depth, priority, completed
		FROM sequences WHERE portfolio_hash = ? AND completed = 0
		ORDER BY priority DESC, created_at ASC
	`
	if limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", limit)
	}
	return r.querySequences(query, portfolioHash)
}

func (r *Repository) querySequences(query, portfolioHash string) ([]repository.SequenceRecord, error) {
	rows, err := r.db.Query(query, portfolioHash)
	if err != nil {
		return nil, fmt.Errorf("query sequences: %w", err)
	}
	defer rows.Close()

	var out []repository.SequenceRecord
	for rows.Next() {
		var sequenceHash, portfolioHashCol, actionsJSON, patternType string
		var depth int
		var priority float64
		var completed bool
		if err := rows.Scan(&sequenceHash, &portfolioHashCol, &actionsJSON, &patternType, &depth, &priority, &completed); err != nil {
			return nil, fmt.Errorf("scan sequence: %w", err)
		}
		var actions []domain.ActionCandidate
		if err := json.Unmarshal([]byte(actionsJSON), &actions); err != nil {
			return nil, fmt.Errorf("unmarshal sequence actions: %w", err)
		}
		out = append(out, repository.SequenceRecord{
			SequenceHash:  sequenceHash,
			PortfolioHash: portfolioHashCol,
			Completed:     completed,
			Sequence: domain.ActionSequence{
				Actions: actions, Priority: priority, Depth: depth,
				PatternType: patternType, SequenceHash: sequenceHash,
			},
		})
	}
	return out, rows.Err()
}

func (r *Repository) MarkSequenceCompleted(sequenceHash, portfolioHash string) error {
	_, err := r.db.Exec(`
		UPDATE sequences SET completed = 1, evaluated_at = ? WHERE sequence_hash = ? AND portfolio_hash = ?
	`, utils.ToUnix(time.Now()), sequenceHash, portfolioHash)
	if err != nil {
		return fmt.Errorf("mark sequence completed: %w", err)
	}
	return nil
}

func (r *Repository) DeleteSequencesByPortfolioHash(portfolioHash string) error {
	result, err := r.db.Exec(`DELETE FROM sequences WHERE portfolio_hash = ?`, portfolioHash)
	if err != nil {
		return fmt.Errorf("delete sequences: %w", err)
	}
	rowsAffected, _ := result.RowsAffected()
	r.log.Info().Str("portfolio_hash", portfolioHash).Int64("rows_deleted", rowsAffected).Msg("deleted sequences for stale portfolio hash")
	return nil
}

func (r *Repository) InsertEvaluation(eval domain.EvaluationResult) error {
	breakdown, err := json.Marshal(eval.Breakdown)
	if err != nil {
		return fmt.Errorf("marshal breakdown: %w", err)
	}
	positions, err := json.Marshal(eval.EndPositions)
	if err != nil {
		return fmt.Errorf("marshal end positions: %w", err)
	}
	_, err = r.db.Exec(`
		INSERT INTO evaluations (sequence_hash, portfolio_hash, end_score, breakdown_json, end_cash, end_positions_json, div_score, total_value, evaluated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(sequence_hash, portfolio_hash) DO UPDATE SET
			end_score = excluded.end_score, breakdown_json = excluded.breakdown_json,
			end_cash = excluded.end_cash, end_positions_json = excluded.end_positions_json,
			div_score = excluded.div_score, total_value = excluded.total_value, evaluated_at = excluded.evaluated_at
	`, eval.SequenceHash, eval.PortfolioHash, eval.EndScore, string(breakdown), eval.EndCash, string(positions), eval.DivScore, eval.TotalValue, utils.ToUnix(time.Now()))
	if err != nil {
		return fmt.Errorf("insert evaluation: %w", err)
	}
	return nil
}

func (r *Repository) GetEvaluation(sequenceHash, portfolioHash string) (*domain.EvaluationResult, error) {
	var endScore, endCash, divScore, totalValue float64
	var breakdownJSON, positionsJSON string
	err := r.db.QueryRow(`
		SELECT end_score, breakdown_json, end_cash, end_positions_json, div_score, total_value
		FROM evaluations WHERE sequence_hash = ? AND portfolio_hash = ?
	`, sequenceHash, portfolioHash).Scan(&endScore, &breakdownJSON, &endCash, &positionsJSON, &divScore, &totalValue)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get evaluation: %w", err)
	}
	eval := &domain.EvaluationResult{
		SequenceHash: sequenceHash, PortfolioHash: portfolioHash,
		EndScore: endScore, EndCash: endCash, DivScore: divScore, TotalValue: totalValue,
	}
	if err := json.Unmarshal([]byte(breakdownJSON), &eval.Breakdown); err != nil {
		return nil, fmt.Errorf("unmarshal breakdown: %w", err)
	}
	if err := json.Unmarshal([]byte(positionsJSON), &eval.EndPositions); err != nil {
		return nil, fmt.Errorf("unmarshal end positions: %w", err)
	}
	return eval, nil
}

func (r *Repository) ListEvaluationsByPortfolioHash(portfolioHash string) ([]repository.EvaluationRecord, error) {
	rows, err := r.db.Query(`
		SELECT sequence_hash, end_score, breakdown_json, end_cash, end_positions_json, div_score, total_value
		FROM evaluations WHERE portfolio_hash = ? ORDER BY end_score DESC, evaluated_at DESC
	`, portfolioHash)
	if err != nil {
		return nil, fmt.Errorf("list evaluations: %w", err)
	}
	defer rows.Close()

	var out []repository.EvaluationRecord
	for rows.Next() {
		var sequenceHash, breakdownJSON, positionsJSON string
		var endScore, endCash, divScore, totalValue float64
		if err := rows.Scan(&sequenceHash, &endScore, &breakdownJSON, &endCash, &positionsJSON, &divScore, &totalValue); err != nil {
			return nil, fmt.Errorf("scan evaluation: %w", err)
		}
		eval := domain.EvaluationResult{
			SequenceHash: sequenceHash, PortfolioHash: portfolioHash,
			EndScore: endScore, EndCash: endCash, DivScore: divScore, TotalValue: totalValue,
		}
		if err := json.Unmarshal([]byte(breakdownJSON), &eval.Breakdown); err != nil {
			return nil, fmt.Errorf("unmarshal breakdown: %w", err)
		}
		if err := json.Unmarshal([]byte(positionsJSON), &eval.EndPositions); err != nil {
			return nil, fmt.Errorf("unmarshal end positions: %w", err)
		}
		out = append(out, repository.EvaluationRecord{SequenceHash: sequenceHash, PortfolioHash: portfolioHash, Result: eval})
	}
	return out, rows.Err()
}

func (r *Repository) DeleteEvaluationsByPortfolioHash(portfolioHash string) error {
	result, err := r.db.Exec(`DELETE FROM evaluations WHERE portfolio_hash = ?`, portfolioHash)
	if err != nil {
		return fmt.Errorf("delete evaluations: %w", err)
	}
	rowsAffected, _ := result.RowsAffected()
	r.log.Info().Str("portfolio_hash", portfolioHash).Int64("rows_deleted", rowsAffected).Msg("deleted evaluations for stale portfolio hash")
	return nil
}

// UpsertBestResult replaces the stored best result only when result.EndScore
// strictly exceeds the currently stored score for the same portfolio_hash
// (§3 lifecycle: "replaced only when a new score strictly exceeds the
// stored best").
func (r *Repository) UpsertBestResult(portfolioHash string, result domain.EvaluationResult, plan domain.HolisticPlan) error {
	var existingScore float64
	err := r.db.QueryRow(`SELECT best_score FROM best_result WHERE portfolio_hash = ?`, portfolioHash).Scan(&existingScore)
	if err != nil && err != sql.ErrNoRows {
		return fmt.Errorf("check existing best result: %w", err)
	}
	if err == nil && result.EndScore <= existingScore {
		return nil
	}

	planJSON, err := json.Marshal(plan)
	if err != nil {
		return fmt.Errorf("marshal plan: %w", err)
	}
	_, err = r.db.Exec(`
		INSERT INTO best_result (portfolio_hash, best_sequence_hash, best_score, plan_json, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(portfolio_hash) DO UPDATE SET
			best_sequence_hash = excluded.best_sequence_hash, best_score = excluded.best_score,
			plan_json = excluded.plan_json, updated_at = excluded.updated_at
	`, portfolioHash, result.SequenceHash, result.EndScore, string(planJSON), utils.ToUnix(time.Now()))
	if err != nil {
		return fmt.Errorf("upsert best result: %w", err)
	}
	return nil
}

func (r *Repository) GetBestResult(portfolioHash string) (*domain.HolisticPlan, error) {
	var planJSON string
	err := r.db.QueryRow(`SELECT plan_json FROM best_result WHERE portfolio_hash = ?`, portfolioHash).Scan(&planJSON)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get best result: %w", err)
	}
	var plan domain.HolisticPlan
	if err := json.Unmarshal([]byte(planJSON), &plan); err != nil {
		return nil, fmt.Errorf("unmarshal plan: %w", err)
	}
	return &plan, nil
}

func (r *Repository) DeleteBestResult(portfolioHash string) error {
	_, err := r.db.Exec(`DELETE FROM best_result WHERE portfolio_hash = ?`, portfolioHash)
	if err != nil {
		return fmt.Errorf("delete best result: %w", err)
	}
	return nil
}

func (r *Repository) CountSequences(portfolioHash string) (int, error) {
	var count int
	err := r.db.QueryRow(`SELECT COUNT(*) FROM sequences WHERE portfolio_hash = ?`, portfolioHash).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count sequences: %w", err)
	}
	return count, nil
}

func (r *Repository) CountPendingSequences(portfolioHash string) (int, error) {
	var count int
	err := r.db.QueryRow(`SELECT COUNT(*) FROM sequences WHERE portfolio_hash = ? AND completed = 0`, portfolioHash).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count pending sequences: %w", err)
	}
	return count, nil
}

func (r *Repository) CountEvaluations(portfolioHash string) (int, error) {
	var count int
	err := r.db.QueryRow(`SELECT COUNT(*) FROM evaluations WHERE portfolio_hash = ?`, portfolioHash).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count evaluations: %w", err)
	}
	return count, nil
}

func (r *Repository) SaveMetricsCacheCheckpoint(portfolioHash string, blob []byte) error {
	_, err := r.db.Exec(`
		INSERT INTO metrics_cache_checkpoint (portfolio_hash, cache_blob, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT(portfolio_hash) DO UPDATE SET
			cache_blob = excluded.cache_blob, updated_at = excluded.updated_at
	`, portfolioHash, blob, utils.ToUnix(time.Now()))
	if err != nil {
		return fmt.Errorf("save metrics cache checkpoint: %w", err)
	}
	return nil
}

func (r *Repository) LoadMetricsCacheCheckpoint(portfolioHash string) ([]byte, error) {
	var blob []byte
	err := r.db.QueryRow(`SELECT cache_blob FROM metrics_cache_checkpoint WHERE portfolio_hash = ?`, portfolioHash).Scan(&blob)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load metrics cache checkpoint: %w", err)
	}
	return blob, nil
}
