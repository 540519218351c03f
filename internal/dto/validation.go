package dto

import (
	"strings"
	"time"

	"github.com/NurlanOmarov/eMedosmotr-AI/internal/models"

	"github.com/google/uuid"
)

// CheckConclusionRequest is the validation entry point payload. Only
// diagnosis text, category and specialty are mandatory; everything else
// refines the checks.
type CheckConclusionRequest struct {
	DiagnosisText          string   `json:"diagnosis_text"`
	ConclusionText         string   `json:"conclusion_text,omitempty"`
	DoctorCategory         string   `json:"doctor_category"`
	Specialty              string   `json:"specialty"`
	Anamnesis              string   `json:"anamnesis,omitempty"`
	Complaints             string   `json:"complaints,omitempty"`
	ObjectiveData          string   `json:"objective_data,omitempty"`
	SpecialResearchResults string   `json:"special_research_results,omitempty"`
	ICD10Codes             []string `json:"icd10_codes,omitempty"`
	Graph                  int      `json:"graph,omitempty"`
	DoctorArticle          *int     `json:"doctor_article,omitempty"`
	DoctorSubpoint         *string  `json:"doctor_subpoint,omitempty"`
	ExaminationID          string   `json:"examination_id,omitempty"`
	ConscriptID            string   `json:"conscript_id,omitempty"`
	SaveToDB               bool     `json:"save_to_db,omitempty"`
}

// Validate reports the first missing mandatory field, empty string when
// the request is acceptable.
func (r *CheckConclusionRequest) Validate() string {
	if strings.TrimSpace(r.DiagnosisText) == "" && strings.TrimSpace(r.ConclusionText) == "" {
		return "diagnosis_text is required"
	}
	if strings.TrimSpace(r.DoctorCategory) == "" {
		return "doctor_category is required"
	}
	if strings.TrimSpace(r.Specialty) == "" {
		return "specialty is required"
	}
	if r.Graph != 0 && (r.Graph < 1 || r.Graph > models.GraphCount) {
		return "graph must be between 1 and 4"
	}
	return ""
}

// ToExamination maps the request onto the domain record. Unparseable or
// absent IDs become fresh UUIDs: an ad hoc check does not need to reference
// stored rows.
func (r *CheckConclusionRequest) ToExamination() *models.Examination {
	graph := r.Graph
	if graph == 0 {
		graph = 1
	}

	examID, err := uuid.Parse(r.ExaminationID)
	if err != nil {
		examID = uuid.New()
	}
	conscriptID, err := uuid.Parse(r.ConscriptID)
	if err != nil {
		conscriptID = uuid.New()
	}

	return &models.Examination{
		ID:                     examID,
		ConscriptID:            conscriptID,
		Specialty:              r.Specialty,
		Complaints:             r.Complaints,
		Anamnesis:              r.Anamnesis,
		ObjectiveData:          r.ObjectiveData,
		SpecialResearchResults: r.SpecialResearchResults,
		DiagnosisText:          r.DiagnosisText,
		ConclusionText:         r.ConclusionText,
		ICD10Codes:             r.ICD10Codes,
		DoctorCategory:         r.DoctorCategory,
		DoctorArticle:          r.DoctorArticle,
		DoctorSubpoint:         r.DoctorSubpoint,
		Graph:                  graph,
		ExaminationDate:        time.Now(),
	}
}

type RAGMatchResponse struct {
	Article     int             `json:"article"`
	Subpoint    string          `json:"subpoint"`
	Description string          `json:"description"`
	Similarity  float64         `json:"similarity"`
	Categories  map[int]*string `json:"categories,omitempty"`
}

type ContradictionResponse struct {
	Type           string             `json:"contradiction_type"`
	Severity       string             `json:"severity"`
	Description    string             `json:"description"`
	SourceField    string             `json:"source_field,omitempty"`
	TargetField    string             `json:"target_field,omitempty"`
	SourceValue    string             `json:"source_value,omitempty"`
	TargetValue    string             `json:"target_value,omitempty"`
	RAGMatches     []RAGMatchResponse `json:"rag_matches,omitempty"`
	Recommendation string             `json:"recommendation,omitempty"`
}

type StageResultResponse struct {
	Number          int            `json:"number"`
	Name            string         `json:"name"`
	Passed          bool           `json:"passed"`
	Status          string         `json:"status"`
	Details         map[string]any `json:"details,omitempty"`
	DurationSeconds float64        `json:"duration_seconds"`
	ErrorMessage    string         `json:"error_message,omitempty"`
}

// CheckConclusionResponse is the wire form of a verdict.
type CheckConclusionResponse struct {
	OverallStatus string `json:"overall_status"`
	RiskLevel     string `json:"risk_level"`

	Stage0Contradictions []ContradictionResponse `json:"stage_0_contradictions"`
	Stage1Clinical       StageResultResponse     `json:"stage_1_clinical"`
	Stage2Administrative StageResultResponse     `json:"stage_2_administrative"`

	AIRecommendedArticle  *int    `json:"ai_recommended_article,omitempty"`
	AIRecommendedSubpoint *string `json:"ai_recommended_subpoint,omitempty"`
	AIRecommendedCategory *string `json:"ai_recommended_category,omitempty"`
	AIConfidence          float64 `json:"ai_confidence"`
	AIReasoning           string  `json:"ai_reasoning"`

	DoctorArticle  *int    `json:"doctor_article,omitempty"`
	DoctorSubpoint *string `json:"doctor_subpoint,omitempty"`
	DoctorCategory string  `json:"doctor_category"`

	CategoryMatchStatus string   `json:"category_match_status"`
	ShouldReview        bool     `json:"should_review"`
	ReviewReasons       []string `json:"review_reasons"`
	Recommendations     []string `json:"recommendations"`
	IsHealthy           bool     `json:"is_healthy"`

	ModelUsed            string  `json:"model_used,omitempty"`
	TotalDurationSeconds float64 `json:"total_duration_seconds"`
}

// FromVerdict is the explicit adapter between domain and wire naming.
func FromVerdict(v *models.Verdict) *CheckConclusionResponse {
	resp := &CheckConclusionResponse{
		OverallStatus:         string(v.OverallStatus),
		RiskLevel:             string(v.RiskLevel),
		Stage0Contradictions:  fromContradictions(v.Contradictions),
		Stage1Clinical:        fromStageResult(v.StageClinical),
		Stage2Administrative:  fromStageResult(v.StageCategory),
		AIRecommendedArticle:  v.AIArticle,
		AIRecommendedSubpoint: v.AISubpoint,
		AIRecommendedCategory: v.AICategory,
		AIConfidence:          v.AIConfidence,
		AIReasoning:           v.AIReasoning,
		DoctorArticle:         v.DoctorArticle,
		DoctorSubpoint:        v.DoctorSubpoint,
		DoctorCategory:        v.DoctorCategory,
		CategoryMatchStatus:   string(v.CategoryMatchStatus),
		ShouldReview:          v.ShouldReview,
		ReviewReasons:         v.ReviewReasons,
		Recommendations:       v.Recommendations,
		IsHealthy:             v.IsHealthy,
		ModelUsed:             v.ModelUsed,
		TotalDurationSeconds:  v.TotalDurationSeconds,
	}
	if resp.ReviewReasons == nil {
		resp.ReviewReasons = []string{}
	}
	if resp.Recommendations == nil {
		resp.Recommendations = []string{}
	}
	return resp
}

// CheckContradictionsResponse is the Stage-0-only pre-check payload.
type CheckContradictionsResponse struct {
	Contradictions []ContradictionResponse `json:"contradictions"`
	SkippedChecks  []string                `json:"skipped_checks"`
	HasCritical    bool                    `json:"has_critical"`
}

func FromContradictionsOnly(contradictions []*models.Contradiction, skipped []models.ContradictionType) *CheckContradictionsResponse {
	resp := &CheckContradictionsResponse{
		Contradictions: fromContradictions(contradictions),
		SkippedChecks:  []string{},
	}
	for _, t := range skipped {
		resp.SkippedChecks = append(resp.SkippedChecks, string(t))
	}
	for _, c := range contradictions {
		if c.Severity == models.SeverityCritical {
			resp.HasCritical = true
			break
		}
	}
	return resp
}

func fromContradictions(contradictions []*models.Contradiction) []ContradictionResponse {
	out := make([]ContradictionResponse, 0, len(contradictions))
	for _, c := range contradictions {
		out = append(out, ContradictionResponse{
			Type:           string(c.Type),
			Severity:       string(c.Severity),
			Description:    c.Description,
			SourceField:    c.SourceField,
			TargetField:    c.TargetField,
			SourceValue:    c.SourceValue,
			TargetValue:    c.TargetValue,
			RAGMatches:     fromRAGMatches(c.RAGMatches),
			Recommendation: c.Recommendation,
		})
	}
	return out
}

func fromRAGMatches(matches []*models.RAGMatch) []RAGMatchResponse {
	if len(matches) == 0 {
		return nil
	}
	out := make([]RAGMatchResponse, 0, len(matches))
	for _, m := range matches {
		out = append(out, RAGMatchResponse{
			Article:     m.Article,
			Subpoint:    m.Subpoint,
			Description: m.Description,
			Similarity:  m.Similarity,
			Categories:  m.Categories,
		})
	}
	return out
}

func fromStageResult(s models.StageResult) StageResultResponse {
	return StageResultResponse{
		Number:          s.Number,
		Name:            s.Name,
		Passed:          s.Passed,
		Status:          string(s.Status),
		Details:         s.Details,
		DurationSeconds: s.DurationSeconds,
		ErrorMessage:    s.ErrorMessage,
	}
}

// DiseaseSearchRequest queries the ICD-10 name corpus directly.
type DiseaseSearchRequest struct {
	Query string `json:"query"`
	TopK  int    `json:"top_k,omitempty"`
}

type DiseaseSearchResponse struct {
	Results []DiseaseMatchResponse `json:"results"`
}

type DiseaseMatchResponse struct {
	Code       string  `json:"code"`
	Name       string  `json:"name"`
	Similarity float64 `json:"similarity"`
}

// AnalysisResultResponse is the stored-verdict listing entry.
type AnalysisResultResponse struct {
	ID              string  `json:"id"`
	ConscriptID     string  `json:"conscript_id"`
	ExaminationID   string  `json:"examination_id,omitempty"`
	Specialty       string  `json:"specialty"`
	DoctorCategory  string  `json:"doctor_category"`
	AICategory      string  `json:"ai_category"`
	Status          string  `json:"status"`
	RiskLevel       string  `json:"risk_level"`
	Article         *int    `json:"article,omitempty"`
	Subpoint        *string `json:"subpoint,omitempty"`
	Reasoning       string  `json:"reasoning"`
	Confidence      float64 `json:"confidence"`
	ModelUsed       string  `json:"model_used"`
	DurationSeconds float64 `json:"duration_seconds"`
	CreatedAt       string  `json:"created_at"`
}

func FromAnalysisResult(r *models.AnalysisResult) AnalysisResultResponse {
	resp := AnalysisResultResponse{
		ID:              r.ID.String(),
		ConscriptID:     r.ConscriptID.String(),
		Specialty:       r.Specialty,
		DoctorCategory:  r.DoctorCategory,
		AICategory:      r.AICategory,
		Status:          r.Status,
		RiskLevel:       r.RiskLevel,
		Article:         r.Article,
		Subpoint:        r.Subpoint,
		Reasoning:       r.Reasoning,
		Confidence:      r.Confidence,
		ModelUsed:       r.ModelUsed,
		DurationSeconds: r.DurationSeconds,
		CreatedAt:       r.CreatedAt.Format(time.RFC3339),
	}
	if r.ExaminationID != nil {
		resp.ExaminationID = r.ExaminationID.String()
	}
	return resp
}

// CompletenessResponse reports roster progress for one conscript.
type CompletenessResponse struct {
	ConscriptID string   `json:"conscript_id"`
	Required    []string `json:"required"`
	Completed   []string `json:"completed"`
	Missing     []string `json:"missing"`
	Complete    bool     `json:"complete"`
}
