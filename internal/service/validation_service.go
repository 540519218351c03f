package service

import (
	"context"
	"fmt"
	"time"

	"github.com/NurlanOmarov/eMedosmotr-AI/internal/models"
	"github.com/NurlanOmarov/eMedosmotr-AI/pkg/config"
	"github.com/NurlanOmarov/eMedosmotr-AI/pkg/metrics"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// HistoryStore reads a conscript's documented medical history.
type HistoryStore interface {
	ListByConscript(ctx context.Context, conscriptID uuid.UUID) ([]*models.HistoricalRecord, error)
}

// AnalysisStore persists verdicts for audit. Optional: a nil store makes
// every run ephemeral.
type AnalysisStore interface {
	Replace(ctx context.Context, conscriptID uuid.UUID, specialty string, results []*models.AnalysisResult) error
}

// ValidationService orchestrates the three stages over one examination and
// folds their outputs into a single verdict. Runs share no mutable state,
// so any number of examinations may be validated concurrently.
type ValidationService struct {
	detector *ContradictionDetector
	matcher  *ClinicalMatcher
	history  HistoryStore
	audit    AnalysisStore
	config   *config.RAGConfig
	model    string
	logger   *zap.Logger
}

func NewValidationService(
	detector *ContradictionDetector,
	matcher *ClinicalMatcher,
	history HistoryStore,
	audit AnalysisStore,
	cfg *config.RAGConfig,
	modelName string,
	logger *zap.Logger,
) *ValidationService {
	return &ValidationService{
		detector: detector,
		matcher:  matcher,
		history:  history,
		audit:    audit,
		config:   cfg,
		model:    modelName,
		logger:   logger,
	}
}

// Validate runs the full pipeline. When persist is true and an audit store
// is configured, the verdict replaces the stored results for the same
// (conscript, specialty) pair in one transaction.
func (s *ValidationService) Validate(ctx context.Context, exam *models.Examination, persist bool) (*models.Verdict, error) {
	started := time.Now()

	history := s.loadHistory(ctx, exam.ConscriptID)

	contradictions, stageZero := s.runStageZero(ctx, exam, history)

	clinical, stageClinical := s.runStageClinical(ctx, exam)
	stageCategory := s.buildCategoryStage(exam, clinical)

	verdict := s.buildVerdict(exam, contradictions, stageZero, clinical, stageClinical, stageCategory)
	verdict.TotalDurationSeconds = time.Since(started).Seconds()

	metrics.ValidationRuns.WithLabelValues(string(verdict.OverallStatus)).Inc()

	if persist && s.audit != nil {
		if err := s.persistVerdict(ctx, exam, verdict); err != nil {
			return nil, fmt.Errorf("failed to persist verdict: %w", err)
		}
	}

	s.logger.Info("Validation completed",
		zap.String("conscript_id", exam.ConscriptID.String()),
		zap.String("specialty", exam.Specialty),
		zap.String("status", string(verdict.OverallStatus)),
		zap.String("risk", string(verdict.RiskLevel)),
		zap.Int("contradictions", len(verdict.Contradictions)),
		zap.Float64("duration_seconds", verdict.TotalDurationSeconds),
	)

	return verdict, nil
}

// DetectOnly runs Stage 0 without the LLM call, for fast pre-checks.
func (s *ValidationService) DetectOnly(ctx context.Context, exam *models.Examination) ([]*models.Contradiction, []models.ContradictionType) {
	history := s.loadHistory(ctx, exam.ConscriptID)
	return s.detector.Detect(ctx, exam, history)
}

// loadHistory is best effort: a registry outage degrades history-based
// checks instead of blocking validation entirely.
func (s *ValidationService) loadHistory(ctx context.Context, conscriptID uuid.UUID) []*models.HistoricalRecord {
	if s.history == nil {
		return nil
	}
	history, err := s.history.ListByConscript(ctx, conscriptID)
	if err != nil {
		s.logger.Warn("History load failed, history checks degraded",
			zap.String("conscript_id", conscriptID.String()),
			zap.Error(err),
		)
		return nil
	}
	return history
}

func (s *ValidationService) runStageZero(ctx context.Context, exam *models.Examination, history []*models.HistoricalRecord) ([]*models.Contradiction, models.StageResult) {
	started := time.Now()

	contradictions, skippedTypes := s.detector.Detect(ctx, exam, history)

	status := models.StageSuccess
	if len(skippedTypes) > 0 {
		status = models.StageWarning
	}

	skippedNames := make([]string, 0, len(skippedTypes))
	for _, t := range skippedTypes {
		skippedNames = append(skippedNames, string(t))
	}

	stage := models.StageResult{
		Number: 0,
		Name:   "contradiction_detection",
		Passed: len(contradictions) == 0,
		Status: status,
		Details: map[string]any{
			"contradictions_found": len(contradictions),
			"history_records":      len(history),
			"skipped_checks":       skippedNames,
		},
		DurationSeconds: time.Since(started).Seconds(),
	}
	metrics.StageDuration.WithLabelValues("contradiction_detection").Observe(stage.DurationSeconds)

	return contradictions, stage
}

// runStageClinical runs Stage 1 under the configured deadline. An error or
// panic never fails the run: it degrades into the no-match terminal
// outcome with the stage marked ERROR.
func (s *ValidationService) runStageClinical(ctx context.Context, exam *models.Examination) (result *ClinicalResult, stage models.StageResult) {
	started := time.Now()

	stage = models.StageResult{
		Number: 1,
		Name:   "clinical_matching",
		Status: models.StageSuccess,
	}

	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("Clinical matching panicked", zap.Any("panic", r))
			stage.Status = models.StageError
			stage.ErrorMessage = fmt.Sprintf("internal error: %v", r)
			result = &ClinicalResult{
				Confidence: 0,
				Reasoning:  "Клинический анализ не выполнен из-за внутренней ошибки. Требуется ручная проверка.",
				Source:     SourceNoCandidates,
			}
		}
		stage.DurationSeconds = time.Since(started).Seconds()
		stage.Passed = stage.Status == models.StageSuccess && result != nil && result.Confidence >= s.config.MinConfidence
		stage.Details = map[string]any{
			"source":     result.Source,
			"confidence": result.Confidence,
			"candidates": len(result.Candidates),
		}
		metrics.StageDuration.WithLabelValues("clinical_matching").Observe(stage.DurationSeconds)
	}()

	matchCtx := ctx
	if s.config.LLMTimeout > 0 {
		var cancel context.CancelFunc
		matchCtx, cancel = context.WithTimeout(ctx, s.config.LLMTimeout)
		defer cancel()
	}

	matched, err := s.matcher.Match(matchCtx, exam)
	if err != nil {
		s.logger.Error("Clinical matching failed", zap.Error(err))
		stage.Status = models.StageError
		stage.ErrorMessage = err.Error()
		result = &ClinicalResult{
			Confidence: 0,
			Reasoning:  "Клинический анализ недоступен. Требуется ручная проверка.",
			Source:     SourceNoCandidates,
		}
		return result, stage
	}

	result = matched
	return result, stage
}

func (s *ValidationService) buildCategoryStage(exam *models.Examination, clinical *ClinicalResult) models.StageResult {
	started := time.Now()

	matchStatus := s.matchStatus(exam.DoctorCategory, clinical)

	aiCategory := ""
	if clinical.Category != nil {
		aiCategory = *clinical.Category
	}

	stage := models.StageResult{
		Number: 2,
		Name:   "category_resolution",
		Passed: matchStatus == models.MatchStatusMatch,
		Status: models.StageSuccess,
		Details: map[string]any{
			"doctor_category": exam.DoctorCategory,
			"ai_category":     aiCategory,
			"match_status":    string(matchStatus),
			"graph":           exam.Graph,
		},
		DurationSeconds: time.Since(started).Seconds(),
	}
	switch {
	case clinical.Article == nil && clinical.Category == nil:
		// No schedule point was resolved, there is nothing to look up.
		stage.Status = models.StageSkipped
	case clinical.Category == nil:
		stage.Status = models.StageWarning
	}
	metrics.StageDuration.WithLabelValues("category_resolution").Observe(stage.DurationSeconds)

	return stage
}

// matchStatus compares the doctor's category with the recommendation.
// Equal categories are a MATCH even at low confidence: the model agreeing
// with the doctor is corroboration, not grounds for review.
func (s *ValidationService) matchStatus(doctorCategory string, clinical *ClinicalResult) models.MatchStatus {
	if clinical.Category != nil &&
		models.NormalizeCategory(doctorCategory) == models.NormalizeCategory(*clinical.Category) {
		return models.MatchStatusMatch
	}
	if clinical.Category == nil || clinical.Confidence < s.config.MinConfidence {
		return models.MatchStatusReviewRequired
	}
	return models.MatchStatusMismatch
}

func (s *ValidationService) buildVerdict(
	exam *models.Examination,
	contradictions []*models.Contradiction,
	stageZero models.StageResult,
	clinical *ClinicalResult,
	stageClinical models.StageResult,
	stageCategory models.StageResult,
) *models.Verdict {
	matchStatus := s.matchStatus(exam.DoctorCategory, clinical)

	severities := make([]models.Severity, 0, len(contradictions))
	anyCritical := false
	for _, c := range contradictions {
		severities = append(severities, c.Severity)
		if c.Severity == models.SeverityCritical {
			anyCritical = true
		}
	}
	maxSeverity := models.MaxSeverity(severities...)

	// Matching conclusions suppress lower-priority warnings: agreement
	// with the model plus nothing severe means the record is fine.
	risk := maxSeverity
	if matchStatus == models.MatchStatusMatch && !maxSeverity.AtLeast(models.SeverityHigh) {
		risk = models.SeverityLow
	} else if matchStatus == models.MatchStatusMismatch && !risk.AtLeast(models.SeverityHigh) {
		risk = models.SeverityHigh
	}

	lowConfidence := clinical.Confidence < s.config.MinConfidence
	shouldReview := risk != models.SeverityLow || anyCritical || lowConfidence

	overall := models.StatusValid
	switch {
	case anyCritical:
		overall = models.StatusInvalid
	case shouldReview:
		overall = models.StatusWarning
	}

	verdict := &models.Verdict{
		OverallStatus:       overall,
		RiskLevel:           risk,
		Contradictions:      contradictions,
		StageClinical:       stageClinical,
		StageCategory:       stageCategory,
		AIArticle:           clinical.Article,
		AISubpoint:          clinical.Subpoint,
		AICategory:          clinical.Category,
		AIConfidence:        clinical.Confidence,
		AIReasoning:         clinical.Reasoning,
		DoctorArticle:       exam.DoctorArticle,
		DoctorSubpoint:      exam.DoctorSubpoint,
		DoctorCategory:      exam.DoctorCategory,
		CategoryMatchStatus: matchStatus,
		ShouldReview:        shouldReview,
		IsHealthy:           clinical.IsHealthy,
		ModelUsed:           s.model,
	}
	verdict.StageContradictions = stageZero
	verdict.ReviewReasons = s.reviewReasons(verdict, lowConfidence)
	verdict.Recommendations = s.recommendations(verdict)

	return verdict
}

func (s *ValidationService) reviewReasons(v *models.Verdict, lowConfidence bool) []string {
	if !v.ShouldReview {
		return nil
	}

	var reasons []string
	for _, c := range v.Contradictions {
		if c.Severity.AtLeast(models.SeverityHigh) {
			reasons = append(reasons, fmt.Sprintf("Противоречие %s (%s): %s", c.Type, c.Severity, c.Description))
		}
	}
	if v.CategoryMatchStatus == models.MatchStatusMismatch {
		aiCategory := ""
		if v.AICategory != nil {
			aiCategory = *v.AICategory
		}
		reasons = append(reasons, fmt.Sprintf(
			"Категория врача '%s' не совпадает с рекомендованной '%s'.",
			v.DoctorCategory, aiCategory,
		))
	}
	if v.CategoryMatchStatus == models.MatchStatusReviewRequired {
		reasons = append(reasons, "Не удалось однозначно определить категорию по Расписанию болезней.")
	}
	if lowConfidence {
		reasons = append(reasons, fmt.Sprintf(
			"Уверенность модели %.2f ниже порога %.2f.",
			v.AIConfidence, s.config.MinConfidence,
		))
	}
	return reasons
}

func (s *ValidationService) recommendations(v *models.Verdict) []string {
	var recs []string
	seen := make(map[string]struct{})
	for _, c := range v.Contradictions {
		if c.Recommendation == "" {
			continue
		}
		if _, ok := seen[c.Recommendation]; ok {
			continue
		}
		seen[c.Recommendation] = struct{}{}
		recs = append(recs, c.Recommendation)
	}

	if v.CategoryMatchStatus == models.MatchStatusMismatch && v.AIArticle != nil {
		subpoint := "-"
		if v.AISubpoint != nil && *v.AISubpoint != "" {
			subpoint = *v.AISubpoint
		}
		recs = append(recs, fmt.Sprintf(
			"Сверить заключение со статьей %d, подпункт %s Расписания болезней.",
			*v.AIArticle, subpoint,
		))
	}
	return recs
}

func (s *ValidationService) persistVerdict(ctx context.Context, exam *models.Examination, v *models.Verdict) error {
	aiCategory := ""
	if v.AICategory != nil {
		aiCategory = *v.AICategory
	}

	result := &models.AnalysisResult{
		ID:              uuid.New(),
		ConscriptID:     exam.ConscriptID,
		ExaminationID:   &exam.ID,
		Specialty:       exam.Specialty,
		DoctorCategory:  exam.DoctorCategory,
		AICategory:      aiCategory,
		Status:          string(v.OverallStatus),
		RiskLevel:       string(v.RiskLevel),
		Article:         v.AIArticle,
		Subpoint:        v.AISubpoint,
		Reasoning:       sanitizeUTF8(v.AIReasoning),
		Confidence:      v.AIConfidence,
		ModelUsed:       v.ModelUsed,
		DurationSeconds: v.TotalDurationSeconds,
		CreatedAt:       time.Now(),
	}

	return s.audit.Replace(ctx, exam.ConscriptID, exam.Specialty, []*models.AnalysisResult{result})
}
