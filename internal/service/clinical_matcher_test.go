package service

import (
	"context"
	"errors"
	"testing"

	"github.com/NurlanOmarov/eMedosmotr-AI/internal/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type stubCriteriaSearcher struct {
	matches []*models.RAGMatch
	err     error
}

func (s *stubCriteriaSearcher) SearchCriteria(ctx context.Context, diagnosisText string) ([]*models.RAGMatch, error) {
	return s.matches, s.err
}

type stubJudge struct {
	result *JudgeResult
	err    error
}

func (s *stubJudge) SelectCriterion(ctx context.Context, diagnosis string, candidates []CriterionCandidate) (*JudgeResult, error) {
	return s.result, s.err
}

func (s *stubJudge) ModelName() string { return "test-model" }

func schedulePoints() []*models.RAGMatch {
	return []*models.RAGMatch{
		{Article: 13, Subpoint: "в", Description: "Язвенная болезнь", Similarity: 0.84, Categories: map[int]*string{1: strPtr("В")}},
		{Article: 59, Subpoint: "б", Description: "Гастрит хронический", Similarity: 0.78, Categories: map[int]*string{1: strPtr("Б")}},
	}
}

func newMatcher(searcher CriteriaSearcher, judge Judge) *ClinicalMatcher {
	resolver := NewCategoryResolver(testCriteria(), zap.NewNop())
	return NewClinicalMatcher(searcher, judge, resolver, testRAGConfig(), zap.NewNop())
}

func gastritisExam() *models.Examination {
	return &models.Examination{
		ConscriptID:    uuid.New(),
		DiagnosisText:  "Хронический гастрит с частыми обострениями",
		DoctorCategory: "Б",
		Graph:          1,
	}
}

func TestMatchHealthyShortCircuit(t *testing.T) {
	// The searcher and judge must not be reached for a healthy conclusion.
	searcher := &stubCriteriaSearcher{err: errors.New("must not be called")}
	judge := &stubJudge{err: errors.New("must not be called")}
	m := newMatcher(searcher, judge)

	exam := &models.Examination{
		ConscriptID:    uuid.New(),
		DiagnosisText:  "Здоров",
		DoctorCategory: "А",
		Graph:          1,
	}

	result, err := m.Match(context.Background(), exam)
	require.NoError(t, err)

	assert.True(t, result.IsHealthy)
	require.NotNil(t, result.Category)
	assert.Equal(t, models.CategoryFit, *result.Category)
	assert.Equal(t, 1.0, result.Confidence)
	assert.Equal(t, SourceHealthyRule, result.Source)
	assert.Nil(t, result.Article)
}

func TestMatchEmptyText(t *testing.T) {
	m := newMatcher(&stubCriteriaSearcher{}, &stubJudge{})

	_, err := m.Match(context.Background(), &models.Examination{ConscriptID: uuid.New(), Graph: 1})
	assert.Error(t, err)
}

func TestMatchNoCandidates(t *testing.T) {
	m := newMatcher(&stubCriteriaSearcher{}, &stubJudge{})

	result, err := m.Match(context.Background(), gastritisExam())
	require.NoError(t, err)

	assert.Equal(t, SourceNoCandidates, result.Source)
	assert.Equal(t, float64(0), result.Confidence)
	assert.Nil(t, result.Article)
	assert.Nil(t, result.Category)
}

func TestMatchJudgeSelectsCandidate(t *testing.T) {
	judge := &stubJudge{result: &JudgeResult{Selected: 1, Confidence: 0.9, Reasoning: "совпадает по критериям"}}
	m := newMatcher(&stubCriteriaSearcher{matches: schedulePoints()}, judge)

	result, err := m.Match(context.Background(), gastritisExam())
	require.NoError(t, err)

	assert.Equal(t, SourceAIJudgment, result.Source)
	require.NotNil(t, result.Article)
	assert.Equal(t, 13, *result.Article)
	assert.Equal(t, "в", *result.Subpoint)
	assert.Equal(t, 0.9, result.Confidence)
	require.NotNil(t, result.Category)
	assert.Equal(t, "Б", *result.Category) // from the resolver table, graph 1
	assert.Len(t, result.Candidates, 2)
}

func TestMatchFallbackOnJudgeError(t *testing.T) {
	judge := &stubJudge{err: errors.New("model timeout")}
	m := newMatcher(&stubCriteriaSearcher{matches: schedulePoints()}, judge)

	result, err := m.Match(context.Background(), gastritisExam())
	require.NoError(t, err)

	assert.Equal(t, SourceSimilarityFallback, result.Source)
	require.NotNil(t, result.Article)
	assert.Equal(t, 13, *result.Article)
	assert.InDelta(t, 0.84*degradedConfidenceFactor, result.Confidence, 1e-9)
}

func TestMatchFallbackOnRejection(t *testing.T) {
	judge := &stubJudge{result: &JudgeResult{Selected: 0, Confidence: 0.2, Reasoning: "ни один пункт не подходит"}}
	m := newMatcher(&stubCriteriaSearcher{matches: schedulePoints()}, judge)

	result, err := m.Match(context.Background(), gastritisExam())
	require.NoError(t, err)

	assert.Equal(t, SourceSimilarityFallback, result.Source)
	assert.Equal(t, "ни один пункт не подходит", result.Reasoning)
	assert.InDelta(t, 0.84*degradedConfidenceFactor, result.Confidence, 1e-9)
}

func TestMatchFallbackOnOutOfRangeSelection(t *testing.T) {
	judge := &stubJudge{result: &JudgeResult{Selected: 7, Confidence: 0.9}}
	m := newMatcher(&stubCriteriaSearcher{matches: schedulePoints()}, judge)

	result, err := m.Match(context.Background(), gastritisExam())
	require.NoError(t, err)

	assert.Equal(t, SourceSimilarityFallback, result.Source)
}

func TestMatchUnknownPointLeavesCategoryNil(t *testing.T) {
	matches := []*models.RAGMatch{
		{Article: 99, Subpoint: "я", Similarity: 0.8},
	}
	judge := &stubJudge{result: &JudgeResult{Selected: 1, Confidence: 0.9}}
	m := newMatcher(&stubCriteriaSearcher{matches: matches}, judge)

	result, err := m.Match(context.Background(), gastritisExam())
	require.NoError(t, err)

	require.NotNil(t, result.Article)
	assert.Nil(t, result.Category)
}

func TestMatchSearchError(t *testing.T) {
	m := newMatcher(&stubCriteriaSearcher{err: errors.New("index down")}, &stubJudge{})

	_, err := m.Match(context.Background(), gastritisExam())
	assert.Error(t, err)
}
