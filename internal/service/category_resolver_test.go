package service

import (
	"testing"

	"github.com/NurlanOmarov/eMedosmotr-AI/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func strPtr(s string) *string { return &s }

func testCriteria() []*models.RegulationCriterion {
	return []*models.RegulationCriterion{
		{
			ID:       1,
			Article:  13,
			Subpoint: "в",
			Categories: map[int]*string{
				1: strPtr("Б"),
				2: strPtr("А"),
				3: nil,
				4: strPtr("НГ"),
			},
		},
		{
			ID:       2,
			Article:  80,
			Subpoint: "",
			Categories: map[int]*string{
				1: strPtr("Г"),
			},
		},
	}
}

func TestResolverResolve(t *testing.T) {
	r := NewCategoryResolver(testCriteria(), zap.NewNop())
	require.Equal(t, 2, r.Size())

	category, err := r.Resolve(13, "в", 1)
	require.NoError(t, err)
	require.NotNil(t, category)
	assert.Equal(t, "Б", *category)

	// Empty cell: the point exists but prescribes nothing for the graph.
	category, err = r.Resolve(13, "в", 3)
	require.NoError(t, err)
	assert.Nil(t, category)

	category, err = r.Resolve(13, "в", 4)
	require.NoError(t, err)
	assert.Equal(t, "НГ", *category)
}

func TestResolverUnknownPoint(t *testing.T) {
	r := NewCategoryResolver(testCriteria(), zap.NewNop())

	_, err := r.Resolve(99, "а", 1)
	assert.ErrorIs(t, err, ErrCriterionNotFound)
}

func TestResolverGraphValidation(t *testing.T) {
	r := NewCategoryResolver(testCriteria(), zap.NewNop())

	_, err := r.Resolve(13, "в", 0)
	assert.Error(t, err)
	_, err = r.Resolve(13, "в", 5)
	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrCriterionNotFound)
}

func TestResolverSubpointNormalization(t *testing.T) {
	r := NewCategoryResolver(testCriteria(), zap.NewNop())

	// "null" and "None" spellings resolve to the empty subpoint.
	category, err := r.Resolve(80, "null", 1)
	require.NoError(t, err)
	assert.Equal(t, "Г", *category)

	category, err = r.Resolve(80, "None", 1)
	require.NoError(t, err)
	assert.Equal(t, "Г", *category)
}

func TestResolverDuplicateKeepsFirst(t *testing.T) {
	criteria := testCriteria()
	criteria = append(criteria, &models.RegulationCriterion{
		ID:       3,
		Article:  13,
		Subpoint: "в",
		Categories: map[int]*string{
			1: strPtr("Д"),
		},
	})

	r := NewCategoryResolver(criteria, zap.NewNop())
	assert.Equal(t, 2, r.Size())

	category, err := r.Resolve(13, "в", 1)
	require.NoError(t, err)
	assert.Equal(t, "Б", *category)
}
