package service

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strconv"

	"github.com/NurlanOmarov/eMedosmotr-AI/internal/models"

	"go.uber.org/zap"
)

// Embedder turns text into a vector. Implemented by LLMService; tests
// substitute a deterministic stub.
type Embedder interface {
	CreateEmbedding(ctx context.Context, text string) ([]float32, error)
}

// CorpusItem is one searchable entry. Key identifies the item within its
// corpus (schedule point id, ICD-10 code) and must be unique.
type CorpusItem struct {
	Key        string
	Text       string
	Article    int
	Subpoint   string
	Categories map[int]*string
	Embedding  []float32
}

// Match is a search hit with its cosine similarity in [0, 1] for
// non-degenerate vectors.
type Match struct {
	Item       *CorpusItem
	Similarity float64
}

// EmbeddingIndex performs nearest-neighbor search over a fixed corpus.
// The corpora are small (hundreds of schedule points, thousands of ICD-10
// names), so a linear scan beats maintaining an external vector store.
type EmbeddingIndex struct {
	items    []*CorpusItem
	embedder Embedder
	logger   *zap.Logger
}

func NewEmbeddingIndex(items []*CorpusItem, embedder Embedder, logger *zap.Logger) *EmbeddingIndex {
	return &EmbeddingIndex{
		items:    items,
		embedder: embedder,
		logger:   logger,
	}
}

func (idx *EmbeddingIndex) Size() int {
	return len(idx.items)
}

// Search embeds the query and returns up to topK items with similarity at
// or above threshold, best first. Ordering is deterministic: similarity
// descending, then article, subpoint and key ascending, so equal inputs
// always yield equal output.
func (idx *EmbeddingIndex) Search(ctx context.Context, query string, topK int, threshold float64) ([]*Match, error) {
	if topK <= 0 {
		return nil, fmt.Errorf("topK must be positive, got %d", topK)
	}

	queryEmbedding, err := idx.embedder.CreateEmbedding(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}

	return idx.SearchByVector(queryEmbedding, topK, threshold), nil
}

// SearchByVector runs the scan against an already computed query vector.
func (idx *EmbeddingIndex) SearchByVector(queryEmbedding []float32, topK int, threshold float64) []*Match {
	matches := make([]*Match, 0, topK)
	for _, item := range idx.items {
		sim := cosineSimilarity(queryEmbedding, item.Embedding)
		if sim >= threshold {
			matches = append(matches, &Match{Item: item, Similarity: sim})
		}
	}

	sort.SliceStable(matches, func(i, j int) bool {
		if matches[i].Similarity != matches[j].Similarity {
			return matches[i].Similarity > matches[j].Similarity
		}
		if matches[i].Item.Article != matches[j].Item.Article {
			return matches[i].Item.Article < matches[j].Item.Article
		}
		if matches[i].Item.Subpoint != matches[j].Item.Subpoint {
			return matches[i].Item.Subpoint < matches[j].Item.Subpoint
		}
		return matches[i].Item.Key < matches[j].Item.Key
	})

	if len(matches) > topK {
		matches = matches[:topK]
	}
	return matches
}

// cosineSimilarity returns 0 for vectors of mismatched length or zero norm
// rather than erroring; a degenerate embedding simply never matches.
func cosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) {
		return 0
	}

	var dotProduct, normA, normB float64
	for i := range a {
		dotProduct += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}

	if normA == 0 || normB == 0 {
		return 0
	}

	return dotProduct / (math.Sqrt(normA) * math.Sqrt(normB))
}

// BuildCriteriaCorpus converts schedule points into corpus items. Points
// without a stored embedding are skipped: they cannot be searched and
// embedding them here would hide a broken seed run.
func BuildCriteriaCorpus(criteria []*models.RegulationCriterion, logger *zap.Logger) []*CorpusItem {
	items := make([]*CorpusItem, 0, len(criteria))
	for _, c := range criteria {
		if len(c.Embedding) == 0 {
			logger.Warn("Criterion has no embedding, excluded from index",
				zap.Int("article", c.Article),
				zap.String("subpoint", c.Subpoint),
			)
			continue
		}
		items = append(items, &CorpusItem{
			Key:        strconv.Itoa(c.ID),
			Text:       c.Description,
			Article:    c.Article,
			Subpoint:   c.Subpoint,
			Categories: c.Categories,
			Embedding:  c.Embedding,
		})
	}
	return items
}

// BuildDiseaseCorpus converts ICD-10 names into corpus items keyed by code.
func BuildDiseaseCorpus(entries []*models.ICD10Entry, logger *zap.Logger) []*CorpusItem {
	items := make([]*CorpusItem, 0, len(entries))
	for _, e := range entries {
		if len(e.Embedding) == 0 {
			logger.Warn("ICD-10 entry has no embedding, excluded from index",
				zap.String("code", e.Code),
			)
			continue
		}
		items = append(items, &CorpusItem{
			Key:       e.Code,
			Text:      e.NameRU,
			Embedding: e.Embedding,
		})
	}
	return items
}
