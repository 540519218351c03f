package repository

import (
	"context"

	"github.com/NurlanOmarov/eMedosmotr-AI/internal/models"

	"github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

var examinationColumns = []string{
	"id", "conscript_id", "specialty", "doctor_name",
	"complaints", "anamnesis", "objective_data", "special_research_results",
	"diagnosis_text", "conclusion_text", "icd10_codes",
	"doctor_category", "doctor_article", "doctor_subpoint", "graph",
	"examination_date",
}

type ExaminationRepository struct {
	db     *pgxpool.Pool
	logger *zap.Logger
}

func NewExaminationRepository(db *pgxpool.Pool, logger *zap.Logger) *ExaminationRepository {
	return &ExaminationRepository{
		db:     db,
		logger: logger,
	}
}

func (r *ExaminationRepository) Create(ctx context.Context, e *models.Examination) error {
	query := squirrel.Insert("examinations").
		Columns(examinationColumns...).
		Values(e.ID, e.ConscriptID, e.Specialty, e.DoctorName,
			e.Complaints, e.Anamnesis, e.ObjectiveData, e.SpecialResearchResults,
			e.DiagnosisText, e.ConclusionText, e.ICD10Codes,
			e.DoctorCategory, e.DoctorArticle, e.DoctorSubpoint, e.Graph,
			e.ExaminationDate).
		PlaceholderFormat(squirrel.Dollar)

	sql, args, err := query.ToSql()
	if err != nil {
		return err
	}

	_, err = r.db.Exec(ctx, sql, args...)
	return err
}

func (r *ExaminationRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Examination, error) {
	query := squirrel.Select(examinationColumns...).
		From("examinations").
		Where(squirrel.Eq{"id": id}).
		PlaceholderFormat(squirrel.Dollar)

	sql, args, err := query.ToSql()
	if err != nil {
		return nil, err
	}

	var e models.Examination
	err = r.db.QueryRow(ctx, sql, args...).Scan(
		&e.ID, &e.ConscriptID, &e.Specialty, &e.DoctorName,
		&e.Complaints, &e.Anamnesis, &e.ObjectiveData, &e.SpecialResearchResults,
		&e.DiagnosisText, &e.ConclusionText, &e.ICD10Codes,
		&e.DoctorCategory, &e.DoctorArticle, &e.DoctorSubpoint, &e.Graph,
		&e.ExaminationDate,
	)
	if err != nil {
		return nil, err
	}

	return &e, nil
}

// ListSpecialties returns the distinct specialties that already examined
// the conscript, used for the completeness check.
func (r *ExaminationRepository) ListSpecialties(ctx context.Context, conscriptID uuid.UUID) ([]string, error) {
	query := squirrel.Select("DISTINCT specialty").
		From("examinations").
		Where(squirrel.Eq{"conscript_id": conscriptID}).
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

	var specialties []string
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, err
		}
		specialties = append(specialties, s)
	}

	return specialties, rows.Err()
}
