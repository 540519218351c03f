package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/NurlanOmarov/eMedosmotr-AI/internal/models"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

var criterionColumns = []string{
	"id", "article", "subpoint", "point_name", "description", "keywords",
	"graph_1", "graph_2", "graph_3", "graph_4", "embedding", "created_at",
}

// CriteriaRepository reads the disease schedule: one row per (article,
// subpoint) point with the fitness category for each of the four graphs.
type CriteriaRepository struct {
	db     *pgxpool.Pool
	logger *zap.Logger
}

func NewCriteriaRepository(db *pgxpool.Pool, logger *zap.Logger) *CriteriaRepository {
	return &CriteriaRepository{
		db:     db,
		logger: logger,
	}
}

func (r *CriteriaRepository) Create(ctx context.Context, c *models.RegulationCriterion) error {
	embeddingArray := pgtype.FlatArray[float32](c.Embedding)

	graphs := make([]*string, models.GraphCount)
	for g := 1; g <= models.GraphCount; g++ {
		graphs[g-1] = c.Categories[g]
	}

	query := squirrel.Insert("point_criteria").
		Columns(criterionColumns...).
		Values(c.ID, c.Article, c.Subpoint, c.PointName, c.Description, c.Keywords,
			graphs[0], graphs[1], graphs[2], graphs[3], embeddingArray, c.CreatedAt).
		PlaceholderFormat(squirrel.Dollar)

	sql, args, err := query.ToSql()
	if err != nil {
		return err
	}

	_, err = r.db.Exec(ctx, sql, args...)
	return err
}

func (r *CriteriaRepository) ListAll(ctx context.Context) ([]*models.RegulationCriterion, error) {
	query := squirrel.Select(criterionColumns...).
		From("point_criteria").
		OrderBy("article ASC", "subpoint ASC").
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

	var results []*models.RegulationCriterion
	for rows.Next() {
		c, err := scanCriterion(rows)
		if err != nil {
			return nil, err
		}
		results = append(results, c)
	}

	return results, rows.Err()
}

// GetByArticleSubpoint looks up a single schedule point. An empty subpoint
// matches rows stored with NULL or empty subpoint.
func (r *CriteriaRepository) GetByArticleSubpoint(ctx context.Context, article int, subpoint string) (*models.RegulationCriterion, error) {
	subpoint = models.NormalizeSubpoint(subpoint)

	query := squirrel.Select(criterionColumns...).
		From("point_criteria").
		Where(squirrel.Eq{"article": article}).
		PlaceholderFormat(squirrel.Dollar)

	if subpoint == "" {
		query = query.Where(squirrel.Or{
			squirrel.Eq{"subpoint": nil},
			squirrel.Eq{"subpoint": ""},
		})
	} else {
		query = query.Where(squirrel.Eq{"subpoint": subpoint})
	}

	sql, args, err := query.ToSql()
	if err != nil {
		return nil, err
	}

	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, err
		}
		return nil, pgx.ErrNoRows
	}

	return scanCriterion(rows)
}

func scanCriterion(row pgx.Row) (*models.RegulationCriterion, error) {
	var c models.RegulationCriterion
	var subpoint *string
	var graphs [models.GraphCount]*string
	var embeddingData pgtype.FlatArray[float32]

	if err := row.Scan(
		&c.ID, &c.Article, &subpoint, &c.PointName, &c.Description, &c.Keywords,
		&graphs[0], &graphs[1], &graphs[2], &graphs[3], &embeddingData, &c.CreatedAt,
	); err != nil {
		return nil, fmt.Errorf("failed to scan criterion: %w", err)
	}

	if subpoint != nil {
		c.Subpoint = models.NormalizeSubpoint(*subpoint)
	}
	c.Embedding = []float32(embeddingData)
	c.Categories = make(map[int]*string, models.GraphCount)
	for g := 1; g <= models.GraphCount; g++ {
		c.Categories[g] = graphs[g-1]
	}

	return &c, nil
}

// IsNotFound reports whether err means the requested row does not exist.
func IsNotFound(err error) bool {
	return errors.Is(err, pgx.ErrNoRows)
}
