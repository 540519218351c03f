package repository

import (
	"context"
	"fmt"

	"github.com/NurlanOmarov/eMedosmotr-AI/internal/models"

	"github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

var analysisColumns = []string{
	"id", "conscript_id", "examination_id", "specialty",
	"doctor_category", "ai_category", "status", "risk_level",
	"article", "subpoint", "reasoning", "confidence",
	"model_used", "duration_seconds", "created_at",
}

// AnalysisRepository persists validation verdicts. A conscript is
// re-validated every time an examination changes, so writes replace the
// previous results for the same (conscript, specialty) pair instead of
// accumulating them.
type AnalysisRepository struct {
	db     *pgxpool.Pool
	logger *zap.Logger
}

func NewAnalysisRepository(db *pgxpool.Pool, logger *zap.Logger) *AnalysisRepository {
	return &AnalysisRepository{
		db:     db,
		logger: logger,
	}
}

// Replace atomically swaps the stored results for one conscript and
// specialty. Delete and insert run in a single transaction so a reader
// never observes a mix of old and new rows.
func (r *AnalysisRepository) Replace(ctx context.Context, conscriptID uuid.UUID, specialty string, results []*models.AnalysisResult) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	delQuery := squirrel.Delete("analysis_results").
		Where(squirrel.Eq{"conscript_id": conscriptID, "specialty": specialty}).
		PlaceholderFormat(squirrel.Dollar)

	sql, args, err := delQuery.ToSql()
	if err != nil {
		return err
	}
	if _, err := tx.Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("failed to delete previous results: %w", err)
	}

	for _, res := range results {
		insQuery := squirrel.Insert("analysis_results").
			Columns(analysisColumns...).
			Values(res.ID, res.ConscriptID, res.ExaminationID, res.Specialty,
				res.DoctorCategory, res.AICategory, res.Status, res.RiskLevel,
				res.Article, res.Subpoint, res.Reasoning, res.Confidence,
				res.ModelUsed, res.DurationSeconds, res.CreatedAt).
			PlaceholderFormat(squirrel.Dollar)

		sql, args, err := insQuery.ToSql()
		if err != nil {
			return err
		}
		if _, err := tx.Exec(ctx, sql, args...); err != nil {
			return fmt.Errorf("failed to insert result: %w", err)
		}
	}

	return tx.Commit(ctx)
}

func (r *AnalysisRepository) ListByConscript(ctx context.Context, conscriptID uuid.UUID) ([]*models.AnalysisResult, error) {
	query := squirrel.Select(analysisColumns...).
		From("analysis_results").
		Where(squirrel.Eq{"conscript_id": conscriptID}).
		OrderBy("specialty ASC", "created_at DESC").
		PlaceholderFormat(squirrel.Dollar)

	sql, args, err := query.ToSql()
	if err != nil {
		return nil, err
	}

	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []*models.AnalysisResult
	for rows.Next() {
		var res models.AnalysisResult
		if err := rows.Scan(
			&res.ID, &res.ConscriptID, &res.ExaminationID, &res.Specialty,
			&res.DoctorCategory, &res.AICategory, &res.Status, &res.RiskLevel,
			&res.Article, &res.Subpoint, &res.Reasoning, &res.Confidence,
			&res.ModelUsed, &res.DurationSeconds, &res.CreatedAt,
		); err != nil {
			return nil, err
		}
		results = append(results, &res)
	}

	return results, rows.Err()
}
