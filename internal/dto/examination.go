package dto

import (
	"strings"
	"time"

	"github.com/NurlanOmarov/eMedosmotr-AI/internal/models"

	"github.com/google/uuid"
)

// ExaminationRequest is a specialist conclusion being submitted for a
// conscript's file.
type ExaminationRequest struct {
	ConscriptID            string   `json:"conscript_id"`
	Specialty              string   `json:"specialty"`
	DoctorName             string   `json:"doctor_name,omitempty"`
	Complaints             string   `json:"complaints,omitempty"`
	Anamnesis              string   `json:"anamnesis,omitempty"`
	ObjectiveData          string   `json:"objective_data,omitempty"`
	SpecialResearchResults string   `json:"special_research_results,omitempty"`
	DiagnosisText          string   `json:"diagnosis_text"`
	ConclusionText         string   `json:"conclusion_text,omitempty"`
	ICD10Codes             []string `json:"icd10_codes,omitempty"`
	DoctorCategory         string   `json:"doctor_category"`
	DoctorArticle          *int     `json:"doctor_article,omitempty"`
	DoctorSubpoint         *string  `json:"doctor_subpoint,omitempty"`
	Graph                  int      `json:"graph,omitempty"`
}

// Validate reports the first missing mandatory field, empty string when
// the request is acceptable.
func (r *ExaminationRequest) Validate() string {
	if _, err := uuid.Parse(r.ConscriptID); err != nil {
		return "conscript_id must be a valid UUID"
	}
	if strings.TrimSpace(r.Specialty) == "" {
		return "specialty is required"
	}
	if strings.TrimSpace(r.DiagnosisText) == "" {
		return "diagnosis_text is required"
	}
	if strings.TrimSpace(r.DoctorCategory) == "" {
		return "doctor_category is required"
	}
	if r.Graph != 0 && (r.Graph < 1 || r.Graph > models.GraphCount) {
		return "graph must be between 1 and 4"
	}
	return ""
}

// ToExamination maps the request onto a new domain record.
func (r *ExaminationRequest) ToExamination() *models.Examination {
	graph := r.Graph
	if graph == 0 {
		graph = 1
	}

	conscriptID, _ := uuid.Parse(r.ConscriptID)

	return &models.Examination{
		ID:                     uuid.New(),
		ConscriptID:            conscriptID,
		Specialty:              r.Specialty,
		DoctorName:             r.DoctorName,
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

// ExaminationResponse is the wire form of a stored examination.
type ExaminationResponse struct {
	ID                     string   `json:"id"`
	ConscriptID            string   `json:"conscript_id"`
	Specialty              string   `json:"specialty"`
	DoctorName             string   `json:"doctor_name,omitempty"`
	Complaints             string   `json:"complaints,omitempty"`
	Anamnesis              string   `json:"anamnesis,omitempty"`
	ObjectiveData          string   `json:"objective_data,omitempty"`
	SpecialResearchResults string   `json:"special_research_results,omitempty"`
	DiagnosisText          string   `json:"diagnosis_text"`
	ConclusionText         string   `json:"conclusion_text,omitempty"`
	ICD10Codes             []string `json:"icd10_codes,omitempty"`
	DoctorCategory         string   `json:"doctor_category"`
	DoctorArticle          *int     `json:"doctor_article,omitempty"`
	DoctorSubpoint         *string  `json:"doctor_subpoint,omitempty"`
	Graph                  int      `json:"graph"`
	ExaminationDate        string   `json:"examination_date"`
}

// FromExamination maps a domain record onto the wire form.
func FromExamination(e *models.Examination) ExaminationResponse {
	return ExaminationResponse{
		ID:                     e.ID.String(),
		ConscriptID:            e.ConscriptID.String(),
		Specialty:              e.Specialty,
		DoctorName:             e.DoctorName,
		Complaints:             e.Complaints,
		Anamnesis:              e.Anamnesis,
		ObjectiveData:          e.ObjectiveData,
		SpecialResearchResults: e.SpecialResearchResults,
		DiagnosisText:          e.DiagnosisText,
		ConclusionText:         e.ConclusionText,
		ICD10Codes:             e.ICD10Codes,
		DoctorCategory:         e.DoctorCategory,
		DoctorArticle:          e.DoctorArticle,
		DoctorSubpoint:         e.DoctorSubpoint,
		Graph:                  e.Graph,
		ExaminationDate:        e.ExaminationDate.Format(time.RFC3339),
	}
}
