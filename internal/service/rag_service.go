package service

import (
	"context"
	"fmt"

	"github.com/NurlanOmarov/eMedosmotr-AI/internal/models"
	"github.com/NurlanOmarov/eMedosmotr-AI/pkg/config"

	"go.uber.org/zap"
)

// DiseaseMatch is an ICD-10 name recovered from free diagnosis text.
type DiseaseMatch struct {
	Code       string
	Name       string
	Similarity float64
}

// RAGService owns the two retrieval corpora: disease schedule points for
// criterion matching and ICD-10 names for code recovery from free text.
type RAGService struct {
	criteriaIndex *EmbeddingIndex
	diseaseIndex  *EmbeddingIndex
	config        *config.RAGConfig
	logger        *zap.Logger
}

func NewRAGService(criteriaIndex, diseaseIndex *EmbeddingIndex, cfg *config.RAGConfig, logger *zap.Logger) *RAGService {
	return &RAGService{
		criteriaIndex: criteriaIndex,
		diseaseIndex:  diseaseIndex,
		config:        cfg,
		logger:        logger,
	}
}

// SearchCriteria retrieves the schedule points closest to the diagnosis
// text, up to the configured top-K above the similarity threshold. An
// empty result is a valid outcome, not an error.
func (s *RAGService) SearchCriteria(ctx context.Context, diagnosisText string) ([]*models.RAGMatch, error) {
	matches, err := s.criteriaIndex.Search(ctx, diagnosisText, s.config.TopK, s.config.SimilarityThreshold)
	if err != nil {
		return nil, fmt.Errorf("criteria search failed: %w", err)
	}

	results := make([]*models.RAGMatch, 0, len(matches))
	for _, m := range matches {
		results = append(results, &models.RAGMatch{
			Article:     m.Item.Article,
			Subpoint:    m.Item.Subpoint,
			Description: m.Item.Text,
			Similarity:  m.Similarity,
			Categories:  m.Item.Categories,
		})
	}

	s.logger.Info("Criteria search completed",
		zap.Int("results", len(results)),
		zap.Float64("threshold", s.config.SimilarityThreshold),
	)

	return results, nil
}

// SearchDiseasesInText looks for schedule points mentioned in an arbitrary
// narrative fragment. Contradiction checks tune topK and threshold per
// check, so both are explicit here.
func (s *RAGService) SearchDiseasesInText(ctx context.Context, text string, topK int, threshold float64) ([]*models.RAGMatch, error) {
	matches, err := s.criteriaIndex.Search(ctx, text, topK, threshold)
	if err != nil {
		return nil, fmt.Errorf("disease search failed: %w", err)
	}

	results := make([]*models.RAGMatch, 0, len(matches))
	for _, m := range matches {
		results = append(results, &models.RAGMatch{
			Article:     m.Item.Article,
			Subpoint:    m.Item.Subpoint,
			Description: m.Item.Text,
			Similarity:  m.Similarity,
			Categories:  m.Item.Categories,
		})
	}

	return results, nil
}

// SearchDiseaseNames recovers ICD-10 codes from free diagnosis text. Used
// when the doctor supplied no codes and for cross-checking the stated ones.
func (s *RAGService) SearchDiseaseNames(ctx context.Context, text string, topK int) ([]*DiseaseMatch, error) {
	if topK <= 0 {
		topK = s.config.TopK
	}

	matches, err := s.diseaseIndex.Search(ctx, text, topK, s.config.SimilarityThreshold)
	if err != nil {
		return nil, fmt.Errorf("disease name search failed: %w", err)
	}

	results := make([]*DiseaseMatch, 0, len(matches))
	for _, m := range matches {
		results = append(results, &DiseaseMatch{
			Code:       m.Item.Key,
			Name:       m.Item.Text,
			Similarity: m.Similarity,
		})
	}

	return results, nil
}

// CandidatesFromMatches numbers retrieval hits for the judgment prompt.
func CandidatesFromMatches(matches []*models.RAGMatch) []CriterionCandidate {
	candidates := make([]CriterionCandidate, 0, len(matches))
	for i, m := range matches {
		candidates = append(candidates, CriterionCandidate{
			Index:       i + 1,
			Article:     m.Article,
			Subpoint:    m.Subpoint,
			Description: m.Description,
			Similarity:  m.Similarity,
		})
	}
	return candidates
}
