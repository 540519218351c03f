package dto

import (
	"testing"

	"github.com/NurlanOmarov/eMedosmotr-AI/internal/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validRequest() *CheckConclusionRequest {
	return &CheckConclusionRequest{
		DiagnosisText:  "Хронический гастрит",
		DoctorCategory: "Б",
		Specialty:      "Терапевт",
	}
}

func TestCheckConclusionRequestValidate(t *testing.T) {
	assert.Equal(t, "", validRequest().Validate())

	r := validRequest()
	r.DiagnosisText = "  "
	assert.Equal(t, "diagnosis_text is required", r.Validate())

	// A conclusion alone satisfies the text requirement.
	r.ConclusionText = "Здоров"
	assert.Equal(t, "", r.Validate())

	r = validRequest()
	r.DoctorCategory = ""
	assert.Equal(t, "doctor_category is required", r.Validate())

	r = validRequest()
	r.Specialty = ""
	assert.Equal(t, "specialty is required", r.Validate())

	r = validRequest()
	r.Graph = 5
	assert.Equal(t, "graph must be between 1 and 4", r.Validate())

	r = validRequest()
	r.Graph = 4
	assert.Equal(t, "", r.Validate())
}

func TestToExamination(t *testing.T) {
	conscriptID := uuid.New()
	r := validRequest()
	r.ConscriptID = conscriptID.String()
	r.ICD10Codes = []string{"K29.3"}

	exam := r.ToExamination()

	assert.Equal(t, conscriptID, exam.ConscriptID)
	assert.NotEqual(t, uuid.Nil, exam.ID)
	assert.Equal(t, 1, exam.Graph) // default when unset
	assert.Equal(t, []string{"K29.3"}, exam.ICD10Codes)
	assert.Equal(t, "Терапевт", exam.Specialty)
}

func TestToExaminationBadIDs(t *testing.T) {
	r := validRequest()
	r.ConscriptID = "not-a-uuid"
	r.ExaminationID = "also bad"

	exam := r.ToExamination()
	assert.NotEqual(t, uuid.Nil, exam.ConscriptID)
	assert.NotEqual(t, uuid.Nil, exam.ID)
}

func TestFromVerdictNeverNilSlices(t *testing.T) {
	v := &models.Verdict{
		OverallStatus:       models.StatusValid,
		RiskLevel:           models.SeverityLow,
		CategoryMatchStatus: models.MatchStatusMatch,
		DoctorCategory:      "А",
	}

	resp := FromVerdict(v)
	require.NotNil(t, resp)
	assert.NotNil(t, resp.Stage0Contradictions)
	assert.NotNil(t, resp.ReviewReasons)
	assert.NotNil(t, resp.Recommendations)
	assert.Equal(t, "VALID", resp.OverallStatus)
	assert.Equal(t, "MATCH", resp.CategoryMatchStatus)
}
