package service

import (
	"context"
	"errors"
	"testing"

	"github.com/NurlanOmarov/eMedosmotr-AI/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type stubEmbedder struct {
	vector []float32
	err    error
}

func (s *stubEmbedder) CreateEmbedding(ctx context.Context, text string) ([]float32, error) {
	return s.vector, s.err
}

func TestSearchByVectorOrdering(t *testing.T) {
	items := []*CorpusItem{
		{Key: "3", Article: 52, Subpoint: "в", Embedding: []float32{0.9, 0.1}},
		{Key: "1", Article: 13, Subpoint: "а", Embedding: []float32{1, 0}},
		{Key: "2", Article: 13, Subpoint: "б", Embedding: []float32{1, 0}},
		{Key: "4", Article: 80, Subpoint: "", Embedding: []float32{0, 1}},
	}
	idx := NewEmbeddingIndex(items, &stubEmbedder{}, zap.NewNop())

	matches := idx.SearchByVector([]float32{1, 0}, 10, 0.5)

	require.Len(t, matches, 3)
	// Perfect hits first, ties broken by article then subpoint.
	assert.Equal(t, "1", matches[0].Item.Key)
	assert.Equal(t, "2", matches[1].Item.Key)
	assert.Equal(t, "3", matches[2].Item.Key)
}

func TestSearchByVectorThresholdAndTopK(t *testing.T) {
	items := []*CorpusItem{
		{Key: "a", Embedding: []float32{1, 0}},
		{Key: "b", Embedding: []float32{0.7, 0.7}},
		{Key: "c", Embedding: []float32{0, 1}},
	}
	idx := NewEmbeddingIndex(items, &stubEmbedder{}, zap.NewNop())

	matches := idx.SearchByVector([]float32{1, 0}, 1, 0.6)
	require.Len(t, matches, 1)
	assert.Equal(t, "a", matches[0].Item.Key)

	// Orthogonal vector never matches a positive threshold.
	matches = idx.SearchByVector([]float32{1, 0}, 10, 0.01)
	require.Len(t, matches, 2)
}

func TestSearchValidation(t *testing.T) {
	idx := NewEmbeddingIndex(nil, &stubEmbedder{vector: []float32{1}}, zap.NewNop())

	_, err := idx.Search(context.Background(), "запрос", 0, 0.5)
	assert.Error(t, err)

	failing := NewEmbeddingIndex(nil, &stubEmbedder{err: errors.New("boom")}, zap.NewNop())
	_, err = failing.Search(context.Background(), "запрос", 5, 0.5)
	assert.Error(t, err)
}

func TestCosineSimilarityDegenerate(t *testing.T) {
	assert.Equal(t, float64(0), cosineSimilarity([]float32{1, 0}, []float32{1}))
	assert.Equal(t, float64(0), cosineSimilarity([]float32{0, 0}, []float32{1, 0}))
	assert.InDelta(t, 1.0, cosineSimilarity([]float32{2, 0}, []float32{5, 0}), 1e-9)
}

func TestBuildCorporaSkipMissingEmbeddings(t *testing.T) {
	criteria := []*models.RegulationCriterion{
		{ID: 1, Article: 13, Subpoint: "а", Description: "описание", Embedding: []float32{1}},
		{ID: 2, Article: 13, Subpoint: "б", Description: "без вектора"},
	}
	items := BuildCriteriaCorpus(criteria, zap.NewNop())
	require.Len(t, items, 1)
	assert.Equal(t, "1", items[0].Key)
	assert.Equal(t, 13, items[0].Article)

	entries := []*models.ICD10Entry{
		{Code: "J35.1", NameRU: "Гипертрофия миндалин", Embedding: []float32{1}},
		{Code: "XVIII", NameRU: "Глава", Level: 0},
	}
	diseases := BuildDiseaseCorpus(entries, zap.NewNop())
	require.Len(t, diseases, 1)
	assert.Equal(t, "J35.1", diseases[0].Key)
}
