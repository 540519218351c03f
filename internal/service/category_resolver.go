package service

import (
	"errors"
	"fmt"

	"github.com/NurlanOmarov/eMedosmotr-AI/internal/models"

	"go.uber.org/zap"
)

// ErrCriterionNotFound means the (article, subpoint) pair is not in the
// loaded schedule. Distinct from a present pair whose cell is empty for
// the requested graph.
var ErrCriterionNotFound = errors.New("criterion not found in disease schedule")

// CategoryResolver answers the deterministic part of validation: given an
// (article, subpoint) schedule point and a graph, what fitness category
// does the regulation prescribe. The whole table is held in memory; it
// changes only when the regulation does.
type CategoryResolver struct {
	table  map[string]*models.RegulationCriterion
	logger *zap.Logger
}

func NewCategoryResolver(criteria []*models.RegulationCriterion, logger *zap.Logger) *CategoryResolver {
	table := make(map[string]*models.RegulationCriterion, len(criteria))
	for _, c := range criteria {
		key := criterionKey(c.Article, c.Subpoint)
		if _, exists := table[key]; exists {
			logger.Warn("Duplicate schedule point, keeping first",
				zap.Int("article", c.Article),
				zap.String("subpoint", c.Subpoint),
			)
			continue
		}
		table[key] = c
	}

	return &CategoryResolver{
		table:  table,
		logger: logger,
	}
}

func criterionKey(article int, subpoint string) string {
	return fmt.Sprintf("%d|%s", article, models.NormalizeSubpoint(subpoint))
}

// Resolve returns the category prescribed for the point and graph. A nil
// category with nil error means the point exists but defines no category
// for that graph. ErrCriterionNotFound means the point itself is unknown.
func (r *CategoryResolver) Resolve(article int, subpoint string, graph int) (*string, error) {
	if graph < 1 || graph > models.GraphCount {
		return nil, fmt.Errorf("graph must be between 1 and %d, got %d", models.GraphCount, graph)
	}

	criterion, ok := r.table[criterionKey(article, subpoint)]
	if !ok {
		return nil, fmt.Errorf("article %d subpoint %q: %w", article, subpoint, ErrCriterionNotFound)
	}

	category, _ := criterion.CategoryForGraph(graph)
	if category == nil {
		return nil, nil
	}

	normalized := models.NormalizeCategory(*category)
	return &normalized, nil
}

func (r *CategoryResolver) Size() int {
	return len(r.table)
}
