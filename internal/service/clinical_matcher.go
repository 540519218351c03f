package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/NurlanOmarov/eMedosmotr-AI/internal/models"
	"github.com/NurlanOmarov/eMedosmotr-AI/pkg/config"

	"go.uber.org/zap"
)

// Sources of a clinical matching result, recorded for audit.
const (
	SourceHealthyRule        = "HEALTHY_RULE"
	SourceAIJudgment         = "AI_JUDGMENT"
	SourceSimilarityFallback = "SIMILARITY_FALLBACK"
	SourceNoCandidates       = "NO_CANDIDATES"
)

// degradedConfidenceFactor discounts the retrieval similarity when the
// result comes from the fallback path instead of an actual judgment.
const degradedConfidenceFactor = 0.5

// Judge picks the best schedule point among offered candidates.
// Implemented by LLMService.
type Judge interface {
	SelectCriterion(ctx context.Context, diagnosis string, candidates []CriterionCandidate) (*JudgeResult, error)
	ModelName() string
}

// CriteriaSearcher retrieves candidate schedule points for a diagnosis.
// Implemented by RAGService.
type CriteriaSearcher interface {
	SearchCriteria(ctx context.Context, diagnosisText string) ([]*models.RAGMatch, error)
}

// ClinicalResult is the outcome of matching one diagnosis against the
// disease schedule. Article and Subpoint are nil when no point was chosen.
type ClinicalResult struct {
	IsHealthy  bool
	Article    *int
	Subpoint   *string
	Category   *string
	Confidence float64
	Reasoning  string
	Source     string
	Candidates []*models.RAGMatch
}

// ClinicalMatcher maps a diagnosis to a schedule point and its prescribed
// category: retrieval proposes candidates, the model judges them, and the
// resolver supplies the category. The model never invents a point; every
// chosen (article, subpoint) comes from the retrieved set.
type ClinicalMatcher struct {
	searcher CriteriaSearcher
	judge    Judge
	resolver *CategoryResolver
	config   *config.RAGConfig
	logger   *zap.Logger
}

func NewClinicalMatcher(searcher CriteriaSearcher, judge Judge, resolver *CategoryResolver, cfg *config.RAGConfig, logger *zap.Logger) *ClinicalMatcher {
	return &ClinicalMatcher{
		searcher: searcher,
		judge:    judge,
		resolver: resolver,
		config:   cfg,
		logger:   logger,
	}
}

// Match runs the full Stage 1 flow for one examination.
func (m *ClinicalMatcher) Match(ctx context.Context, exam *models.Examination) (*ClinicalResult, error) {
	diagnosis := exam.AnalysisText()
	if diagnosis == "" {
		return nil, fmt.Errorf("examination has no diagnosis or conclusion text")
	}

	// Healthy conclusions bypass retrieval entirely: the regulation
	// prescribes exactly category А for them.
	if isHealthyText(diagnosis) {
		fit := models.CategoryFit
		return &ClinicalResult{
			IsHealthy:  true,
			Category:   &fit,
			Confidence: 1.0,
			Reasoning:  "Призывник здоров - категория А (годен к военной службе)",
			Source:     SourceHealthyRule,
		}, nil
	}

	matches, err := m.searcher.SearchCriteria(ctx, diagnosis)
	if err != nil {
		return nil, fmt.Errorf("candidate retrieval failed: %w", err)
	}

	if len(matches) == 0 {
		return &ClinicalResult{
			Confidence: 0,
			Reasoning: fmt.Sprintf(
				"В Расписании болезней не найдено пунктов со сходством выше %.2f. Требуется ручная проверка.",
				m.config.SimilarityThreshold,
			),
			Source: SourceNoCandidates,
		}, nil
	}

	candidates := CandidatesFromMatches(matches)

	judgment, err := m.judge.SelectCriterion(ctx, diagnosis, candidates)
	if err != nil {
		m.logger.Warn("Judgment failed, falling back to top similarity", zap.Error(err))
		return m.fallbackResult(matches, exam.Graph,
			"Оценка модели недоступна, выбран кандидат с наибольшим сходством."), nil
	}

	if judgment.Selected < 0 || judgment.Selected > len(candidates) {
		m.logger.Warn("Judgment selected index out of range, falling back",
			zap.Int("selected", judgment.Selected),
			zap.Int("candidates", len(candidates)),
		)
		return m.fallbackResult(matches, exam.Graph,
			"Модель вернула недопустимый номер кандидата, выбран кандидат с наибольшим сходством."), nil
	}

	if judgment.Selected == 0 {
		m.logger.Info("Judgment rejected all candidates, falling back",
			zap.String("reasoning", judgment.Reasoning),
		)
		return m.fallbackResult(matches, exam.Graph, judgment.Reasoning), nil
	}

	chosen := matches[judgment.Selected-1]
	result := &ClinicalResult{
		Article:    &chosen.Article,
		Subpoint:   &chosen.Subpoint,
		Confidence: judgment.Confidence,
		Reasoning:  judgment.Reasoning,
		Source:     SourceAIJudgment,
		Candidates: matches,
	}
	m.resolveCategory(result, exam.Graph)

	return result, nil
}

// fallbackResult builds a result from the top retrieval hit with degraded
// confidence. Low confidence keeps it below the review threshold unless
// the similarity was very strong.
func (m *ClinicalMatcher) fallbackResult(matches []*models.RAGMatch, graph int, reasoning string) *ClinicalResult {
	top := matches[0]
	result := &ClinicalResult{
		Article:    &top.Article,
		Subpoint:   &top.Subpoint,
		Confidence: top.Similarity * degradedConfidenceFactor,
		Reasoning:  reasoning,
		Source:     SourceSimilarityFallback,
		Candidates: matches,
	}
	m.resolveCategory(result, graph)
	return result
}

// resolveCategory fills in the regulation category for the chosen point.
// An unknown point or an empty cell leaves Category nil; the orchestrator
// turns that into a review.
func (m *ClinicalMatcher) resolveCategory(result *ClinicalResult, graph int) {
	if result.Article == nil {
		return
	}

	subpoint := ""
	if result.Subpoint != nil {
		subpoint = *result.Subpoint
	}

	category, err := m.resolver.Resolve(*result.Article, subpoint, graph)
	if err != nil {
		if errors.Is(err, ErrCriterionNotFound) {
			m.logger.Warn("Chosen point missing from category table",
				zap.Intp("article", result.Article),
				zap.String("subpoint", subpoint),
			)
			return
		}
		m.logger.Error("Category resolution failed", zap.Error(err))
		return
	}

	result.Category = category
}
