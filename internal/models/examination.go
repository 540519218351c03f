package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// minNarrativeLength filters out placeholder values ("-", "нет") before
// the narrative fields are fed to contradiction checks.
const minNarrativeLength = 10

// Examination is a specialist's conclusion under evaluation. Once submitted
// for validation the record is treated as immutable; a later edit produces
// a new evaluation run.
type Examination struct {
	ID          uuid.UUID
	ConscriptID uuid.UUID

	Specialty  string
	DoctorName string

	Complaints             string
	Anamnesis              string
	ObjectiveData          string
	SpecialResearchResults string

	DiagnosisText  string
	ConclusionText string
	ICD10Codes     []string

	DoctorCategory string
	DoctorArticle  *int
	DoctorSubpoint *string

	Graph           int
	ExaminationDate time.Time
}

// NarrativeFields returns the non-empty free-text fields of the examination
// keyed by their API field name, in a stable order. Fields shorter than
// minNarrativeLength are dropped.
func (e *Examination) NarrativeFields() []NarrativeField {
	all := []NarrativeField{
		{Name: "anamnesis", Value: e.Anamnesis},
		{Name: "complaints", Value: e.Complaints},
		{Name: "objective_data", Value: e.ObjectiveData},
		{Name: "special_research_results", Value: e.SpecialResearchResults},
	}

	fields := make([]NarrativeField, 0, len(all))
	for _, f := range all {
		if len(strings.TrimSpace(f.Value)) >= minNarrativeLength {
			fields = append(fields, f)
		}
	}
	return fields
}

// AnalysisText returns the text used for clinical matching: the full
// conclusion when present, otherwise the diagnosis.
func (e *Examination) AnalysisText() string {
	if strings.TrimSpace(e.ConclusionText) != "" {
		return e.ConclusionText
	}
	return e.DiagnosisText
}

// NarrativeField is a named free-text field of an examination.
type NarrativeField struct {
	Name  string
	Value string
}
