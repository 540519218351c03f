package service

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/NurlanOmarov/eMedosmotr-AI/internal/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type stubHistoryStore struct {
	records []*models.HistoricalRecord
	err     error
}

func (s *stubHistoryStore) ListByConscript(ctx context.Context, conscriptID uuid.UUID) ([]*models.HistoricalRecord, error) {
	return s.records, s.err
}

type capturingAnalysisStore struct {
	conscriptID uuid.UUID
	specialty   string
	results     []*models.AnalysisResult
}

func (s *capturingAnalysisStore) Replace(ctx context.Context, conscriptID uuid.UUID, specialty string, results []*models.AnalysisResult) error {
	s.conscriptID = conscriptID
	s.specialty = specialty
	s.results = results
	return nil
}

// validationCriteria mirrors schedulePoints so the resolver can supply a
// category for either retrieval hit.
func validationCriteria() []*models.RegulationCriterion {
	return []*models.RegulationCriterion{
		{ID: 1, Article: 13, Subpoint: "в", Categories: map[int]*string{1: strPtr("В")}},
		{ID: 2, Article: 59, Subpoint: "б", Categories: map[int]*string{1: strPtr("Б")}},
	}
}

func newValidationService(searcher *stubCriteriaSearcher, contradictionSearcher ContradictionSearcher, judge Judge, history HistoryStore, audit AnalysisStore) *ValidationService {
	cfg := testRAGConfig()
	logger := zap.NewNop()
	detector := NewContradictionDetector(contradictionSearcher, cfg, logger)
	resolver := NewCategoryResolver(validationCriteria(), logger)
	matcher := NewClinicalMatcher(searcher, judge, resolver, cfg, logger)
	return NewValidationService(detector, matcher, history, audit, cfg, "test-model", logger)
}

func TestValidateHealthyWithWrongCategoryIsInvalid(t *testing.T) {
	svc := newValidationService(&stubCriteriaSearcher{}, &stubSearcher{}, &stubJudge{}, nil, nil)

	exam := healthyExam("Б")
	verdict, err := svc.Validate(context.Background(), exam, false)
	require.NoError(t, err)

	assert.Equal(t, models.StatusInvalid, verdict.OverallStatus)
	assert.True(t, verdict.ShouldReview)
	assert.True(t, verdict.IsHealthy)
	require.NotNil(t, findType(verdict.Contradictions, models.ContradictionTypeE))
	assert.NotEmpty(t, verdict.ReviewReasons)

	// Healthy resolves to А, the doctor said Б.
	require.NotNil(t, verdict.AICategory)
	assert.Equal(t, models.CategoryFit, *verdict.AICategory)
	assert.Equal(t, models.MatchStatusMismatch, verdict.CategoryMatchStatus)
	assert.Equal(t, models.StageSuccess, verdict.StageCategory.Status)
}

func TestValidateAgreementIsValid(t *testing.T) {
	judge := &stubJudge{result: &JudgeResult{Selected: 2, Confidence: 0.9, Reasoning: "диагноз соответствует"}}
	svc := newValidationService(&stubCriteriaSearcher{matches: schedulePoints()}, &stubSearcher{}, judge, nil, nil)

	verdict, err := svc.Validate(context.Background(), gastritisExam(), false)
	require.NoError(t, err)

	assert.Equal(t, models.StatusValid, verdict.OverallStatus)
	assert.Equal(t, models.SeverityLow, verdict.RiskLevel)
	assert.Equal(t, models.MatchStatusMatch, verdict.CategoryMatchStatus)
	assert.False(t, verdict.ShouldReview)
	assert.Empty(t, verdict.ReviewReasons)
	assert.Equal(t, "test-model", verdict.ModelUsed)
	assert.True(t, verdict.StageClinical.Passed)
	assert.True(t, verdict.StageCategory.Passed)
}

func TestValidateMatchSuppressesMediumRisk(t *testing.T) {
	// A medium contradiction alone does not raise the risk when the
	// model agrees with the doctor.
	judge := &stubJudge{result: &JudgeResult{Selected: 2, Confidence: 0.9}}
	exam := gastritisExam()
	exam.Complaints = "Жалоб не предъявляет, считает себя здоровым"

	svc := newValidationService(&stubCriteriaSearcher{matches: schedulePoints()}, &stubSearcher{}, judge, nil, nil)

	verdict, err := svc.Validate(context.Background(), exam, false)
	require.NoError(t, err)

	require.NotNil(t, findType(verdict.Contradictions, models.ContradictionTypeB))
	assert.Equal(t, models.SeverityLow, verdict.RiskLevel)
	assert.Equal(t, models.StatusValid, verdict.OverallStatus)
	assert.False(t, verdict.ShouldReview)
}

func TestValidateMatchOverrideIgnoresLowConfidence(t *testing.T) {
	// Agreement with the doctor keeps the risk LOW even when the model's
	// confidence falls below the review threshold; the low confidence
	// alone still flags the record for review.
	judge := &stubJudge{result: &JudgeResult{Selected: 2, Confidence: 0.2, Reasoning: "совпадает, но уверенность низкая"}}
	svc := newValidationService(&stubCriteriaSearcher{matches: schedulePoints()}, &stubSearcher{}, judge, nil, nil)

	verdict, err := svc.Validate(context.Background(), gastritisExam(), false)
	require.NoError(t, err)

	assert.Equal(t, models.MatchStatusMatch, verdict.CategoryMatchStatus)
	assert.Equal(t, models.SeverityLow, verdict.RiskLevel)
	assert.True(t, verdict.ShouldReview)
	assert.Equal(t, models.StatusWarning, verdict.OverallStatus)
	assert.NotEmpty(t, verdict.ReviewReasons)
}

func TestValidateMismatchEscalatesRisk(t *testing.T) {
	// The model confidently picks a point whose category is В while the
	// doctor wrote Б.
	judge := &stubJudge{result: &JudgeResult{Selected: 1, Confidence: 0.9}}
	svc := newValidationService(&stubCriteriaSearcher{matches: schedulePoints()}, &stubSearcher{}, judge, nil, nil)

	verdict, err := svc.Validate(context.Background(), gastritisExam(), false)
	require.NoError(t, err)

	assert.Equal(t, models.MatchStatusMismatch, verdict.CategoryMatchStatus)
	assert.True(t, verdict.RiskLevel.AtLeast(models.SeverityHigh))
	assert.Equal(t, models.StatusWarning, verdict.OverallStatus)
	assert.True(t, verdict.ShouldReview)
	assert.NotEmpty(t, verdict.Recommendations)
}

func TestValidateNoCandidatesRequiresReview(t *testing.T) {
	svc := newValidationService(&stubCriteriaSearcher{}, &stubSearcher{}, &stubJudge{}, nil, nil)

	verdict, err := svc.Validate(context.Background(), gastritisExam(), false)
	require.NoError(t, err)

	assert.Equal(t, models.MatchStatusReviewRequired, verdict.CategoryMatchStatus)
	assert.Equal(t, float64(0), verdict.AIConfidence)
	assert.Nil(t, verdict.AICategory)
	assert.Equal(t, models.StatusWarning, verdict.OverallStatus)
	assert.True(t, verdict.ShouldReview)
	assert.False(t, verdict.StageClinical.Passed)
	assert.Equal(t, models.StageSkipped, verdict.StageCategory.Status)
}

func TestValidateMatcherErrorDegrades(t *testing.T) {
	// An examination without any diagnosis text makes Stage 1 fail; the
	// run still completes with the stage marked as errored.
	svc := newValidationService(&stubCriteriaSearcher{}, &stubSearcher{}, &stubJudge{}, nil, nil)

	exam := &models.Examination{
		ConscriptID:    uuid.New(),
		DoctorCategory: "Б",
		Graph:          1,
	}
	verdict, err := svc.Validate(context.Background(), exam, false)
	require.NoError(t, err)

	assert.Equal(t, models.StageError, verdict.StageClinical.Status)
	assert.NotEmpty(t, verdict.StageClinical.ErrorMessage)
	assert.Equal(t, models.StatusWarning, verdict.OverallStatus)
	assert.True(t, verdict.ShouldReview)
}

func TestValidateHistoryFeedsStageZero(t *testing.T) {
	history := &stubHistoryStore{
		records: []*models.HistoricalRecord{
			{Kind: models.RecordOutpatient, DiagnosisCode: "K29.3", DiagnosisText: "Хронический гастрит"},
		},
	}
	svc := newValidationService(&stubCriteriaSearcher{}, &stubSearcher{}, &stubJudge{}, history, nil)

	verdict, err := svc.Validate(context.Background(), healthyExam("А"), false)
	require.NoError(t, err)

	require.NotNil(t, findType(verdict.Contradictions, models.ContradictionTypeA))
	assert.Equal(t, 1, verdict.StageContradictions.Details["history_records"])
}

func TestValidateHistoryFailureDegrades(t *testing.T) {
	history := &stubHistoryStore{err: errors.New("registry down")}
	svc := newValidationService(&stubCriteriaSearcher{}, &stubSearcher{}, &stubJudge{}, history, nil)

	verdict, err := svc.Validate(context.Background(), healthyExam("А"), false)
	require.NoError(t, err)

	assert.Nil(t, findType(verdict.Contradictions, models.ContradictionTypeA))
	assert.Equal(t, models.StatusValid, verdict.OverallStatus)
}

func TestValidatePersistsVerdict(t *testing.T) {
	judge := &stubJudge{result: &JudgeResult{Selected: 2, Confidence: 0.9, Reasoning: "соответствует"}}
	audit := &capturingAnalysisStore{}
	svc := newValidationService(&stubCriteriaSearcher{matches: schedulePoints()}, &stubSearcher{}, judge, nil, audit)

	exam := gastritisExam()
	exam.Specialty = "Терапевт"
	verdict, err := svc.Validate(context.Background(), exam, true)
	require.NoError(t, err)

	assert.Equal(t, exam.ConscriptID, audit.conscriptID)
	assert.Equal(t, "Терапевт", audit.specialty)
	require.Len(t, audit.results, 1)

	saved := audit.results[0]
	assert.Equal(t, string(verdict.OverallStatus), saved.Status)
	assert.Equal(t, "Б", saved.AICategory)
	assert.Equal(t, 0.9, saved.Confidence)
	assert.Equal(t, "test-model", saved.ModelUsed)
}

func TestValidateNoPersistWithoutFlag(t *testing.T) {
	audit := &capturingAnalysisStore{}
	svc := newValidationService(&stubCriteriaSearcher{}, &stubSearcher{}, &stubJudge{}, nil, audit)

	_, err := svc.Validate(context.Background(), gastritisExam(), false)
	require.NoError(t, err)
	assert.Empty(t, audit.results)
}

func TestValidateIsDeterministic(t *testing.T) {
	// With a fixed judge answer two runs over the same examination agree
	// on everything except the measured durations.
	run := func() *models.Verdict {
		judge := &stubJudge{result: &JudgeResult{Selected: 1, Confidence: 0.8, Reasoning: "одинаковый ответ"}}
		svc := newValidationService(&stubCriteriaSearcher{matches: schedulePoints()}, &stubSearcher{}, judge, nil, nil)

		verdict, err := svc.Validate(context.Background(), gastritisExam(), false)
		require.NoError(t, err)

		verdict.TotalDurationSeconds = 0
		verdict.StageContradictions.DurationSeconds = 0
		verdict.StageClinical.DurationSeconds = 0
		verdict.StageCategory.DurationSeconds = 0
		return verdict
	}

	first, err := json.Marshal(run())
	require.NoError(t, err)
	second, err := json.Marshal(run())
	require.NoError(t, err)
	assert.Equal(t, string(first), string(second))
}

func TestDetectOnlySkipsClinicalStage(t *testing.T) {
	svc := newValidationService(&stubCriteriaSearcher{}, &stubSearcher{}, &stubJudge{}, nil, nil)

	contradictions, skipped := svc.DetectOnly(context.Background(), healthyExam("Г"))
	require.NotNil(t, findType(contradictions, models.ContradictionTypeE))
	assert.Empty(t, skipped)
}
