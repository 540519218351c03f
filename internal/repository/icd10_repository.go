package repository

import (
	"context"

	"github.com/NurlanOmarov/eMedosmotr-AI/internal/models"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

var icd10Columns = []string{"id", "code", "name_ru", "name_kz", "level", "name_embedding"}

type ICD10Repository struct {
	db     *pgxpool.Pool
	logger *zap.Logger
}

func NewICD10Repository(db *pgxpool.Pool, logger *zap.Logger) *ICD10Repository {
	return &ICD10Repository{
		db:     db,
		logger: logger,
	}
}

func (r *ICD10Repository) Create(ctx context.Context, entry *models.ICD10Entry) error {
	embeddingArray := pgtype.FlatArray[float32](entry.Embedding)

	query := squirrel.Insert("icd10_codes").
		Columns(icd10Columns...).
		Values(entry.ID, entry.Code, entry.NameRU, entry.NameKZ, entry.Level, embeddingArray).
		PlaceholderFormat(squirrel.Dollar)

	sql, args, err := query.ToSql()
	if err != nil {
		return err
	}

	_, err = r.db.Exec(ctx, sql, args...)
	return err
}

func (r *ICD10Repository) GetByCode(ctx context.Context, code string) (*models.ICD10Entry, error) {
	query := squirrel.Select(icd10Columns...).
		From("icd10_codes").
		Where(squirrel.Eq{"code": code}).
		PlaceholderFormat(squirrel.Dollar)

	sql, args, err := query.ToSql()
	if err != nil {
		return nil, err
	}

	var entry models.ICD10Entry
	var embeddingData pgtype.FlatArray[float32]
	err = r.db.QueryRow(ctx, sql, args...).Scan(
		&entry.ID, &entry.Code, &entry.NameRU, &entry.NameKZ, &entry.Level, &embeddingData,
	)
	if err != nil {
		return nil, err
	}

	entry.Embedding = []float32(embeddingData)
	return &entry, nil
}

// ListLeaves returns the diagnosable codes (level > 0 excludes chapter and
// block headers that never appear in conclusions).
func (r *ICD10Repository) ListLeaves(ctx context.Context) ([]*models.ICD10Entry, error) {
	query := squirrel.Select(icd10Columns...).
		From("icd10_codes").
		Where(squirrel.Gt{"level": 0}).
		OrderBy("code ASC").
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

	var results []*models.ICD10Entry
	for rows.Next() {
		var entry models.ICD10Entry
		var embeddingData pgtype.FlatArray[float32]
		if err := rows.Scan(
			&entry.ID, &entry.Code, &entry.NameRU, &entry.NameKZ, &entry.Level, &embeddingData,
		); err != nil {
			return nil, err
		}
		entry.Embedding = []float32(embeddingData)
		results = append(results, &entry)
	}

	return results, rows.Err()
}
